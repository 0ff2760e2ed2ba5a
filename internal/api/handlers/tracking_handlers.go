package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pan-pacific/tracking-service/internal/application"
	"github.com/pan-pacific/tracking-service/pkg/logging"
	"github.com/pan-pacific/tracking-service/pkg/middleware"
)

// TrackingHandlers serves public tracking lookups
type TrackingHandlers struct {
	service TrackingService
	logger  *logging.Logger
}

// NewTrackingHandlers creates a new TrackingHandlers
func NewTrackingHandlers(service TrackingService, logger *logging.Logger) *TrackingHandlers {
	RegisterValidators()
	return &TrackingHandlers{service: service, logger: logger}
}

// RegisterRoutes registers tracking routes on the router
func (h *TrackingHandlers) RegisterRoutes(router *gin.RouterGroup) {
	track := router.Group("/track")
	{
		track.POST("/batch", h.TrackBatch)
		track.GET("/:trackingId", h.TrackShipment)
	}
}

// TrackShipment looks up one tracking ID
func (h *TrackingHandlers) TrackShipment(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	trackingID := c.Param("trackingId")
	middleware.AddSpanAttributes(c, map[string]interface{}{"shipment.tracking_id": trackingID})

	result, err := h.service.TrackShipment(c.Request.Context(), application.TrackShipmentQuery{TrackingID: trackingID})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{"tracking.source": result.Source})
	c.JSON(http.StatusOK, result)
}

// TrackBatch looks up several tracking IDs and returns those found, in
// request order
func (h *TrackingHandlers) TrackBatch(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var req TrackBatchRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	middleware.AddSpanAttributes(c, map[string]interface{}{"tracking.batch_size": len(req.TrackingIDs)})

	results, err := h.service.TrackBatch(c.Request.Context(), application.TrackBatchQuery{TrackingIDs: req.TrackingIDs})
	if err != nil {
		responder.RespondWithError(err)
		return
	}
	if results == nil {
		results = []application.TrackingDTO{}
	}

	c.JSON(http.StatusOK, gin.H{
		"results":   results,
		"requested": len(req.TrackingIDs),
		"found":     len(results),
	})
}
