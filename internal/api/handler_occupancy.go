package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"cto-inventory-backend/internal/export"
	"cto-inventory-backend/internal/metrics"
)

// GetOccupancyStats returns aggregate occupancy for every box, optionally
// filtered by ?status=.
func (h *Handler) GetOccupancyStats(c *gin.Context) {
	status, ok := statusFilter(c)
	if !ok {
		return
	}
	stats, err := h.store.OccupancyStats(c.Request.Context(), status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ExportOccupancyStats renders the occupancy stats as an XLSX or PDF download.
func (h *Handler) ExportOccupancyStats(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", export.FormatXLSX))
	if format != export.FormatXLSX && format != export.FormatPDF {
		badRequest(c, "format must be xlsx or pdf")
		return
	}
	status, ok := statusFilter(c)
	if !ok {
		return
	}

	start := time.Now()
	stats, err := h.store.OccupancyStats(c.Request.Context(), status)
	if err != nil {
		metrics.ObserveExport(format, err, time.Since(start))
		h.writeError(c, err)
		return
	}
	data, err := export.Build(format, stats, start)
	metrics.ObserveExport(format, err, time.Since(start))
	if err != nil {
		h.writeError(c, err)
		return
	}

	filename := fmt.Sprintf("cto-occupancy-%s.%s", start.UTC().Format("20060102-150405"), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, export.ContentType(format), data)
}
