package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventStockLow EventType = "stock.low"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// StockLowPayload is published when a purchase leaves a sweet at or below
// the configured threshold.
type StockLowPayload struct {
	SweetID   string `json:"sweet_id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Quantity  int64  `json:"quantity"`
	Threshold int64  `json:"threshold"`
}
