package dto

import (
	"time"

	"github.com/spec-kit/sweet-shop/internal/domain"
)

// CreateSweetRequest payload for POST /sweets. Pointers distinguish a
// missing field from a zero value.
type CreateSweetRequest struct {
	Name     string   `json:"name" validate:"required"`
	Category string   `json:"category" validate:"required"`
	Price    *float64 `json:"price" validate:"required,gte=0"`
	Quantity *int64   `json:"quantity" validate:"required,gte=0"`
}

// UpdateSweetRequest payload for PUT /sweets/:id. Quantity is accepted only
// so it can be rejected explicitly.
type UpdateSweetRequest struct {
	Name     *string  `json:"name" validate:"omitempty,min=1"`
	Category *string  `json:"category" validate:"omitempty,min=1"`
	Price    *float64 `json:"price" validate:"omitempty,gte=0"`
	Quantity *int64   `json:"quantity"`
}

// StockChangeRequest payload for purchase and restock.
type StockChangeRequest struct {
	Amount *int64 `json:"amount" validate:"required,gt=0"`
}

// SweetResponse is the wire form of a catalog entry.
type SweetResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Price     float64   `json:"price"`
	Quantity  int64     `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSweetResponse maps the domain model.
func NewSweetResponse(s *domain.Sweet) SweetResponse {
	return SweetResponse{
		ID:        s.ID,
		Name:      s.Name,
		Category:  s.Category,
		Price:     s.Price,
		Quantity:  s.Quantity,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// NewSweetListResponse maps a slice, never returning nil.
func NewSweetListResponse(sweets []domain.Sweet) []SweetResponse {
	items := make([]SweetResponse, 0, len(sweets))
	for i := range sweets {
		items = append(items, NewSweetResponse(&sweets[i]))
	}
	return items
}

// MessageResponse carries a plain confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}
