package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cto-inventory-backend/internal/metrics"
	"cto-inventory-backend/internal/store"
)

const (
	codeNotFound          = "not_found"
	codeInvalidInput      = "invalid_input"
	codePortOccupied      = "port_occupied"
	codeDuplicateContract = "duplicate_contract"
	codeConflict          = "conflict"
	codeInternal          = "internal"
)

// writeError translates a store error kind into a status code and a JSON body
// carrying the human readable message.
func (h *Handler) writeError(c *gin.Context, err error) {
	status, code := classify(err)
	metrics.IncRequestError(code)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": code})
}

func classify(err error) (int, string) {
	var (
		occupied  *store.PortOccupiedError
		duplicate *store.DuplicateContractError
	)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest, codeInvalidInput
	case errors.As(err, &occupied):
		return http.StatusConflict, codePortOccupied
	case errors.As(err, &duplicate):
		return http.StatusConflict, codeDuplicateContract
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict, codeConflict
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// badRequest reports a malformed request body or parameter.
func badRequest(c *gin.Context, msg string) {
	metrics.IncRequestError(codeInvalidInput)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "code": codeInvalidInput})
}
