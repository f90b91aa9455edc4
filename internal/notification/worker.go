package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"cto-inventory-backend/internal/metrics"
	"cto-inventory-backend/internal/model"
	"cto-inventory-backend/internal/occupancy"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Source is the part of the store the workers read from.
type Source interface {
	BoxStats(ctx context.Context, boxID string) (occupancy.BoxStats, error)
	SubscriptionsForBox(ctx context.Context, boxID string) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// Payload is the JSON body delivered to the browser.
type Payload struct {
	Title          string          `json:"title"`
	Body           string          `json:"body"`
	BoxID          string          `json:"ctoId"`
	OccupancyRate  int             `json:"occupancyRate"`
	OccupancyLevel occupancy.Level `json:"occupancyLevel"`
}

// WorkerPool sends capacity alerts to the subscribers of a box.
type WorkerPool struct {
	size    int
	jobs    chan string
	source  Source
	webpush *webpush.Options
	sender  NotificationSender
	log     *zap.Logger
	wg      sync.WaitGroup
}

// NewWorkerPool creates a new worker pool with a job queue of the given size.
func NewWorkerPool(size, queue int, source Source, webpushOptions *webpush.Options, log *zap.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	if queue < 1 {
		queue = size
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan string, queue),
		source:  source,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     log.Named("alerts"),
	}
}

// Start launches the worker goroutines. They exit when ctx is done.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Wait blocks until every worker has exited.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	wp.log.Debug("worker started", zap.Int("worker", id))
	for {
		select {
		case boxID := <-wp.jobs:
			wp.sendAlertsForBox(ctx, boxID)
		case <-ctx.Done():
			wp.log.Debug("worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues an alert for a box. It never blocks and reports false when
// the queue is full.
func (wp *WorkerPool) Dispatch(boxID string) bool {
	select {
	case wp.jobs <- boxID:
		return true
	default:
		return false
	}
}

func (wp *WorkerPool) sendAlertsForBox(ctx context.Context, boxID string) {
	subs, err := wp.source.SubscriptionsForBox(ctx, boxID)
	if err != nil {
		wp.log.Error("failed to fetch subscriptions", zap.String("box_id", boxID), zap.Error(err))
		return
	}
	if len(subs) == 0 {
		return
	}

	stats, err := wp.source.BoxStats(ctx, boxID)
	if err != nil {
		wp.log.Error("failed to compute occupancy", zap.String("box_id", boxID), zap.Error(err))
		return
	}
	payload, err := json.Marshal(newPayload(stats))
	if err != nil {
		wp.log.Error("failed to encode alert", zap.String("box_id", boxID), zap.Error(err))
		return
	}

	wp.log.Info("sending capacity alerts", zap.String("box_id", boxID), zap.Int("subscribers", len(subs)))
	for _, sub := range subs {
		wp.sendNotification(ctx, sub, payload)
	}
}

func newPayload(s occupancy.BoxStats) Payload {
	return Payload{
		Title:          "CTO near capacity",
		Body:           fmt.Sprintf("%s is %d%% occupied (%d of %d ports)", s.Name, s.OccupancyRate, s.OccupiedPorts, s.TotalPorts),
		BoxID:          s.ID,
		OccupancyRate:  s.OccupancyRate,
		OccupancyLevel: s.OccupancyLevel,
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		metrics.IncAlert(metrics.AlertFailed)
		wp.log.Warn("failed to send alert", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		metrics.IncAlert(metrics.AlertExpired)
		wp.log.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.source.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	case resp.StatusCode >= 400:
		metrics.IncAlert(metrics.AlertFailed)
		wp.log.Warn("push service rejected alert", zap.String("endpoint", sub.Endpoint), zap.Int("status", resp.StatusCode))
	default:
		metrics.IncAlert(metrics.AlertSent)
	}
}
