package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/sweet-shop/internal/events"
	"github.com/spec-kit/sweet-shop/internal/observability"
)

const (
	defaultQueueSize   = 64
	webhookTimeout     = 5 * time.Second
	webhookEventHeader = "X-Sweet-Shop-Event"
)

// NotificationWorker delivers events on a background goroutine so request
// handlers never wait on outbound calls.
type NotificationWorker struct {
	logger     *zap.Logger
	metrics    *observability.Metrics
	webhookURL string
	queue      chan events.Event

	startOnce sync.Once
	done      chan struct{}

	// mu guards stopped and the close of queue.
	mu      sync.Mutex
	stopped bool
}

// NewNotificationWorker builds a worker; an empty webhookURL only logs.
func NewNotificationWorker(logger *zap.Logger, metrics *observability.Metrics, webhookURL string, queueSize int) *NotificationWorker {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &NotificationWorker{
		logger:     logger,
		metrics:    metrics,
		webhookURL: strings.TrimSpace(webhookURL),
		queue:      make(chan events.Event, queueSize),
		done:       make(chan struct{}),
	}
}

// Start launches the delivery loop. It returns immediately.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		go w.run(ctx)
	})
}

// Enqueue schedules an event without blocking. It reports false when the
// queue is full or the worker is stopped and the event was dropped.
func (w *NotificationWorker) Enqueue(event events.Event) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		w.metrics.RecordNotificationDropped()
		w.logger.Warn("notification worker stopped; dropping event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
		return false
	}
	select {
	case w.queue <- event:
		w.metrics.SetNotificationQueueDepth(len(w.queue))
		return true
	default:
		w.metrics.RecordNotificationDropped()
		w.logger.Warn("notification queue full; dropping event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
		return false
	}
}

// Stop drains queued events and waits for the loop to exit. It must follow
// Start. Later Enqueue calls drop their event.
func (w *NotificationWorker) Stop() {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
}

func (w *NotificationWorker) run(ctx context.Context) {
	defer close(w.done)
	for event := range w.queue {
		w.metrics.SetNotificationQueueDepth(len(w.queue))
		w.deliver(ctx, event)
	}
}

func (w *NotificationWorker) deliver(_ context.Context, event events.Event) {
	w.logger.Info("notification",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Any("payload", event.Payload))

	if w.webhookURL == "" {
		return
	}
	if err := w.postWebhook(event); err != nil {
		w.logger.Error("webhook delivery failed",
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}

func (w *NotificationWorker) postWebhook(event events.Event) error {
	agent := fiber.Post(w.webhookURL).
		Timeout(webhookTimeout).
		Set(webhookEventHeader, string(event.Type)).
		JSON(event)

	status, _, errs := agent.Bytes()
	if len(errs) > 0 {
		return errs[0]
	}
	if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
		return fmt.Errorf("webhook responded with status %d", status)
	}
	return nil
}
