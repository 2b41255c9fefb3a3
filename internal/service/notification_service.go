package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/sweet-shop/internal/events"
)

// Notifier accepts events for asynchronous delivery.
type Notifier interface {
	Enqueue(event events.Event) bool
}

// NotificationService forwards domain events to the delivery worker.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   Notifier
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier Notifier, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventStockLow, n.handleStockLow)
}

func (n *NotificationService) handleStockLow(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.StockLowPayload)
	n.logger.Info("StockLow",
		zap.String("sweet_id", payload.SweetID),
		zap.Int64("quantity", payload.Quantity),
		zap.Int64("threshold", payload.Threshold))

	if n.notifier != nil {
		n.notifier.Enqueue(event)
	}
	return nil
}
