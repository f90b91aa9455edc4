package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cto-inventory-backend/internal/model"
)

// CreateBox registers a new distribution box.
func (h *Handler) CreateBox(c *gin.Context) {
	var req createBoxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindingMessage(err))
		return
	}
	box, err := req.toModel()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	created, err := h.store.RegisterBox(c.Request.Context(), box)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newBoxResponse(created))
}

// ListBoxes returns every box, optionally filtered by ?status=.
func (h *Handler) ListBoxes(c *gin.Context) {
	status, ok := statusFilter(c)
	if !ok {
		return
	}
	boxes, err := h.store.ListBoxes(c.Request.Context(), status)
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]boxDetailResponse, len(boxes))
	for i, b := range boxes {
		out[i] = newBoxDetailResponse(b)
	}
	c.JSON(http.StatusOK, out)
}

// GetBox returns one box with its connections.
func (h *Handler) GetBox(c *gin.Context) {
	box, err := h.store.GetBox(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBoxDetailResponse(box))
}

// PatchBox applies a partial update to a box.
func (h *Handler) PatchBox(c *gin.Context) {
	var req patchBoxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindingMessage(err))
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	updated, err := h.store.UpdateBox(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBoxResponse(updated))
}

// DeleteBox removes a box and every connection bound to it.
func (h *Handler) DeleteBox(c *gin.Context) {
	if err := h.store.RemoveBox(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// statusFilter reads the optional ?status= filter. It writes a 400 and
// reports false for an unknown status.
func statusFilter(c *gin.Context) (*model.BoxStatus, bool) {
	raw := strings.TrimSpace(c.Query("status"))
	if raw == "" {
		return nil, true
	}
	st := model.BoxStatus(strings.ToUpper(raw))
	if !st.Valid() {
		badRequest(c, "status must be one of ACTIVE, PLANNED, MAINTENANCE")
		return nil, false
	}
	return &st, true
}
