package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"cto-inventory-backend/internal/store"
)

// AlertDispatcher queues a capacity alert for a box. It must not block.
type AlertDispatcher interface {
	Dispatch(boxID string) bool
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	alerts  AlertDispatcher
	webpush *webpush.Options
	log     *zap.Logger
}

// NewHandler creates a new API handler. alerts and webpushOptions may be nil
// when push notifications are not configured.
func NewHandler(s store.Store, alerts AlertDispatcher, webpushOptions *webpush.Options, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		store:   s,
		alerts:  alerts,
		webpush: webpushOptions,
		log:     log,
	}
}
