package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cto-inventory-backend/internal/metrics"
	"cto-inventory-backend/internal/occupancy"
)

// CreateConnection binds a client to a free port of a box.
func (h *Handler) CreateConnection(c *gin.Context) {
	var req createConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindingMessage(err))
		return
	}
	conn, err := req.toModel()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	created, err := h.store.Connect(c.Request.Context(), conn)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.maybeAlert(c.Request.Context(), created.BoxID)
	c.JSON(http.StatusCreated, created)
}

// ListConnections returns every connection ordered by box and port.
func (h *Handler) ListConnections(c *gin.Context) {
	conns, err := h.store.ListConnections(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conns)
}

// GetConnection returns a single connection.
func (h *Handler) GetConnection(c *gin.Context) {
	conn, err := h.store.GetConnection(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conn)
}

// FindByContract looks a connection up by its contract id.
func (h *Handler) FindByContract(c *gin.Context) {
	conn, err := h.store.FindConnectionByContract(c.Request.Context(), c.Param("contractId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conn)
}

// FindByOnuSerial lists the connections using an ONU serial. An unknown
// serial yields an empty list.
func (h *Handler) FindByOnuSerial(c *gin.Context) {
	conns, err := h.store.FindConnectionsByOnuSerial(c.Request.Context(), c.Param("onuSerial"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conns)
}

// PatchConnection applies a partial update, possibly moving the connection to
// another port or box.
func (h *Handler) PatchConnection(c *gin.Context) {
	var req patchConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindingMessage(err))
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	previous, err := h.store.GetConnection(ctx, c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	updated, err := h.store.UpdateConnection(ctx, c.Param("id"), patch)
	if err != nil {
		h.writeError(c, err)
		return
	}
	// Occupancy only grows for the box the connection moved into.
	if patch.MovesPort() && updated.BoxID != previous.BoxID {
		h.maybeAlert(ctx, updated.BoxID)
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteConnection frees the port held by a connection.
func (h *Handler) DeleteConnection(c *gin.Context) {
	if err := h.store.RemoveConnection(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetPortsStatus lists every port of a box as occupied or available.
func (h *Handler) GetPortsStatus(c *gin.Context) {
	status, err := h.store.PortsStatus(c.Request.Context(), c.Param("ctoId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// maybeAlert queues a capacity alert when the box has just crossed into the
// high occupancy level. Failures here never fail the request.
func (h *Handler) maybeAlert(ctx context.Context, boxID string) {
	if h.alerts == nil {
		return
	}
	stats, err := h.store.BoxStats(ctx, boxID)
	if err != nil {
		h.log.Warn("failed to compute occupancy for alert", zap.String("box_id", boxID), zap.Error(err))
		return
	}
	if !occupancy.EnteredHigh(stats.TotalPorts, stats.OccupiedPorts) {
		return
	}
	if !h.alerts.Dispatch(boxID) {
		metrics.IncAlert(metrics.AlertDropped)
		h.log.Warn("alert queue full, dropping capacity alert", zap.String("box_id", boxID))
	}
}
