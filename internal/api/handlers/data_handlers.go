package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pan-pacific/tracking-service/internal/application"
	apperrors "github.com/pan-pacific/tracking-service/pkg/errors"
	"github.com/pan-pacific/tracking-service/pkg/middleware"
)

// MaxImportBytes caps an import payload
const MaxImportBytes = 10 << 20

// ExportShipments streams the collection as a download
func (h *ShipmentHandlers) ExportShipments(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	format := c.Query("format")
	middleware.AddSpanAttributes(c, map[string]interface{}{"export.format": format})

	export, err := h.service.ExportShipments(c.Request.Context(), application.ExportShipmentsCommand{Format: format})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.FileName))
	c.Header("X-Record-Count", strconv.Itoa(export.Records))
	c.Data(http.StatusOK, export.ContentType, export.Data)
}

// ImportShipments appends records from a multipart "file" field or a raw body
func (h *ShipmentHandlers) ImportShipments(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger)

	cmd := application.ImportShipmentsCommand{Format: c.Query("format")}

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		data, cmd.FileName, err = readUpload(c)
	} else {
		data, err = io.ReadAll(io.LimitReader(c.Request.Body, MaxImportBytes+1))
	}
	if err != nil {
		responder.RespondWithAppError(apperrors.ErrBadRequest("failed to read import payload").Wrap(err))
		return
	}
	if len(data) > MaxImportBytes {
		responder.RespondWithAppError(apperrors.NewAppError("PAYLOAD_TOO_LARGE",
			fmt.Sprintf("import payload exceeds %d bytes", MaxImportBytes), http.StatusRequestEntityTooLarge))
		return
	}
	if len(data) == 0 {
		responder.RespondBadRequest("import payload is empty")
		return
	}
	cmd.Data = data

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"import.format": cmd.Format,
		"import.file":   cmd.FileName,
		"import.bytes":  len(data),
	})

	result, err := h.service.ImportShipments(c.Request.Context(), cmd)
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func readUpload(c *gin.Context) ([]byte, string, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, "", err
	}
	file, err := header.Open()
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxImportBytes+1))
	return data, header.Filename, err
}
