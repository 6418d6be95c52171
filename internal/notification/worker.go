package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"barber-growth-backend/internal/model"
	"barber-growth-backend/internal/store"
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

// Job asks the owners of a tenant to look at the alert of a date.
type Job struct {
	TenantID uuid.UUID
	Date     string
}

// Payload is the JSON body delivered to the owner's browser.
type Payload struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	TenantID string `json:"tenantId"`
	Date     string `json:"date"`
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Job
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	logger  *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options, logger *zap.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Job, size*16),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger.Named("notification"),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debug("worker started", zap.Int("worker", id))
	for {
		select {
		case job := <-wp.jobs:
			wp.notifyOwners(ctx, job)
		case <-ctx.Done():
			wp.logger.Debug("worker shutting down", zap.Int("worker", id))
			return
		}
	}
}

// Dispatch queues a job without blocking the caller. It reports false when
// the queue is full and the job was dropped.
func (wp *WorkerPool) Dispatch(tenantID uuid.UUID, date string) bool {
	select {
	case wp.jobs <- Job{TenantID: tenantID, Date: date}:
		return true
	default:
		wp.logger.Warn("notification queue full, dropping job",
			zap.String("tenant_id", tenantID.String()), zap.String("date", date))
		return false
	}
}

func (wp *WorkerPool) notifyOwners(ctx context.Context, job Job) {
	log := wp.logger.With(zap.String("tenant_id", job.TenantID.String()), zap.String("date", job.Date))

	subscriptions, err := wp.store.ListSubscriptions(ctx, job.TenantID)
	if err != nil {
		log.Error("failed to fetch subscriptions", zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	alert, err := wp.store.GetMoneyLostAlert(ctx, job.TenantID, job.Date)
	if err != nil {
		log.Error("failed to fetch alert", zap.Error(err))
		return
	}
	if alert.IsDismissed {
		return
	}

	currency := "BRL"
	if tenant, err := wp.store.GetTenant(ctx, job.TenantID); err != nil {
		log.Warn("failed to fetch tenant", zap.Error(err))
	} else if tenant.CurrencyCode != "" {
		currency = tenant.CurrencyCode
	}

	payload, err := json.Marshal(BuildPayload(*alert, currency))
	if err != nil {
		log.Error("failed to encode payload", zap.Error(err))
		return
	}

	log.Info("sending loss alert", zap.Int("subscriptions", len(subscriptions)))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// BuildPayload renders the message shown to the owner for a critical alert.
func BuildPayload(alert model.MoneyLostAlert, currency string) Payload {
	return Payload{
		Title: "Revenue at risk today",
		Body: fmt.Sprintf("Estimated loss %s %s: %d empty slots, %d cancellations, %d no-shows.",
			currency, alert.EstimatedLoss.StringFixed(2),
			alert.EmptySlotsCount, alert.CancellationsCount, alert.NoShowsCount),
		TenantID: alert.TenantID.String(),
		Date:     alert.Date,
	}
}

// sendNotification sends a single web push notification.
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
		wp.logger.Warn("failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	// Expired subscriptions
	if resp.StatusCode == http.StatusGone {
		wp.logger.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.logger.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
