// Package handlers exposes the shipment, tracking and data transfer use
// cases over gin.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pan-pacific/tracking-service/internal/application"
	"github.com/pan-pacific/tracking-service/pkg/api"
	"github.com/pan-pacific/tracking-service/pkg/logging"
	"github.com/pan-pacific/tracking-service/pkg/middleware"
)

// ShipmentHandlers contains handlers for shipment operations
type ShipmentHandlers struct {
	service ShipmentService
	logger  *logging.Logger
}

// NewShipmentHandlers creates a new ShipmentHandlers
func NewShipmentHandlers(service ShipmentService, logger *logging.Logger) *ShipmentHandlers {
	RegisterValidators()
	return &ShipmentHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers shipment routes on the router
func (h *ShipmentHandlers) RegisterRoutes(router *gin.RouterGroup) {
	shipments := router.Group("/shipments")
	{
		shipments.GET("", h.ListShipments)
		shipments.POST("", h.CreateShipment)
		shipments.GET("/stats", h.GetStats)
		shipments.GET("/export", h.ExportShipments)
		shipments.POST("/import", h.ImportShipments)
		shipments.GET("/:id", h.GetShipment)
		shipments.PUT("/:id", h.UpdateShipment)
		shipments.DELETE("/:id", h.DeleteShipment)
		shipments.POST("/:id/transitions", h.TransitionShipment)
		shipments.GET("/:id/timeline", h.GetTimeline)
	}
}

// ListShipments handles the filtered, sorted and paginated shipment list
func (h *ShipmentHandlers) ListShipments(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var filters listQuery
	if appErr := middleware.BindQuery(c, &filters); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	req, appErr := api.ParseListRequest(c, "")
	if appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	list, err := h.service.ListShipments(c.Request.Context(), application.ListShipmentsQuery{
		Search:        req.Filter.Search,
		Status:        req.Filter.Status,
		ServiceType:   req.Filter.ServiceType,
		SortBy:        req.Sort.Field,
		SortDirection: string(req.Sort.Order),
		Page:          req.Pagination.Page,
		PageSize:      req.Pagination.PageSize,
	})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, api.PageResponse[application.ShipmentDTO]{
		Data:       list.Items,
		Page:       list.Page,
		PageSize:   list.PageSize,
		TotalItems: list.Total,
		TotalPages: list.TotalPages,
	})
}

// CreateShipment handles shipment creation
func (h *ShipmentHandlers) CreateShipment(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	var req CreateShipmentRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	cmd, appErr := req.toCommand()
	if appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"shipment.tracking_id":  cmd.TrackingID,
		"shipment.service_type": cmd.ServiceType,
	})

	shipment, err := h.service.CreateShipment(c.Request.Context(), cmd)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.Header("Location", c.FullPath()+"/"+shipment.ID)
	c.JSON(http.StatusCreated, shipment)
}

// GetShipment handles getting a shipment by internal id
func (h *ShipmentHandlers) GetShipment(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	id := c.Param("id")
	middleware.AddSpanAttributes(c, map[string]interface{}{"shipment.id": id})

	shipment, err := h.service.GetShipment(c.Request.Context(), application.GetShipmentQuery{ShipmentID: id})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, shipment)
}

// UpdateShipment handles partial shipment updates
func (h *ShipmentHandlers) UpdateShipment(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	id := c.Param("id")
	middleware.AddSpanAttributes(c, map[string]interface{}{"shipment.id": id})

	var req UpdateShipmentRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}
	cmd, appErr := req.toCommand(id)
	if appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	shipment, err := h.service.UpdateShipment(c.Request.Context(), cmd)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, shipment)
}

// DeleteShipment handles shipment removal
func (h *ShipmentHandlers) DeleteShipment(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	id := c.Param("id")
	middleware.AddSpanAttributes(c, map[string]interface{}{"shipment.id": id})

	if err := h.service.DeleteShipment(c.Request.Context(), application.DeleteShipmentCommand{ShipmentID: id}); err != nil {
		responder.RespondWithError(err)
		return
	}

	c.Status(http.StatusNoContent)
}

// TransitionShipment handles status changes
func (h *ShipmentHandlers) TransitionShipment(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	id := c.Param("id")
	var req TransitionRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"shipment.id":     id,
		"shipment.status": req.Status,
	})

	shipment, err := h.service.TransitionShipment(c.Request.Context(), application.TransitionShipmentCommand{
		ShipmentID:  id,
		Status:      req.Status,
		StatusLabel: req.StatusLabel,
		Location:    req.Location,
		Description: req.Description,
	})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, shipment)
}

// GetTimeline handles the display timeline of a shipment
func (h *ShipmentHandlers) GetTimeline(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	id := c.Param("id")
	timeline, err := h.service.GetTimeline(c.Request.Context(), application.GetTimelineQuery{ShipmentID: id})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, timeline)
}

// GetStats handles the dashboard counters
func (h *ShipmentHandlers) GetStats(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	stats, err := h.service.GetStats(c.Request.Context())
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
