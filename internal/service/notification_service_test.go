package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/spec-kit/sweet-shop/internal/events"
)

type recordingNotifier struct {
	events []events.Event
}

func (r *recordingNotifier) Enqueue(event events.Event) bool {
	r.events = append(r.events, event)
	return true
}

func TestNotificationService_ForwardsStockLow(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	notifier := &recordingNotifier{}
	NewNotificationService(dispatcher, notifier, zap.NewNop()).RegisterHandlers()

	svc := newSweetService(0, dispatcher)
	ctx := context.Background()
	sweet := mustCreate(t, svc, SweetInput{Name: "Caramel", Category: "Candy", Price: 1, Quantity: 1})

	if _, err := svc.Purchase(ctx, sweet.ID, 1); err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if len(notifier.events) != 1 || notifier.events[0].Type != events.EventStockLow {
		t.Fatalf("unexpected notifications %+v", notifier.events)
	}
}
