package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sweet-shop/internal/domain"
	"github.com/spec-kit/sweet-shop/internal/events"
	"github.com/spec-kit/sweet-shop/internal/observability"
	"github.com/spec-kit/sweet-shop/internal/repository"
	apperrors "github.com/spec-kit/sweet-shop/pkg/util/errorutil"
)

// SweetInput is the payload for creating a catalog entry.
type SweetInput struct {
	Name     string
	Category string
	Price    float64
	Quantity int64
}

// SweetDependencies encapsulates requirements for the catalog service.
type SweetDependencies struct {
	SweetRepo  repository.SweetRepository
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	// LowStockThreshold triggers a stock.low event when a purchase leaves
	// quantity at or below it. Negative disables the event.
	LowStockThreshold int64
}

// SweetService implements catalog browsing and stock mutation.
type SweetService struct {
	sweets            repository.SweetRepository
	dispatcher        events.Dispatcher
	metrics           *observability.Metrics
	logger            *zap.Logger
	lowStockThreshold int64
}

// NewSweetService builds the service.
func NewSweetService(deps SweetDependencies) *SweetService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SweetService{
		sweets:            deps.SweetRepo,
		dispatcher:        deps.Dispatcher,
		metrics:           deps.Metrics,
		logger:            logger,
		lowStockThreshold: deps.LowStockThreshold,
	}
}

// List returns sweets matching every supplied filter, ordered by name.
func (s *SweetService) List(ctx context.Context, filter repository.SweetFilter) ([]domain.Sweet, error) {
	for field, bound := range map[string]*float64{"minPrice": filter.MinPrice, "maxPrice": filter.MaxPrice} {
		if bound != nil && (math.IsNaN(*bound) || math.IsInf(*bound, 0)) {
			return nil, apperrors.NewValidationError(field+" must be a number", map[string]any{"field": field})
		}
	}

	sweets, err := s.sweets.List(ctx, filter)
	if err != nil {
		s.logger.Error("list sweets failed", zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}
	return sweets, nil
}

// Get returns a single sweet.
func (s *SweetService) Get(ctx context.Context, id string) (*domain.Sweet, error) {
	if !validID(id) {
		return nil, sweetNotFound(id)
	}
	sweet, err := s.sweets.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError(err, id)
	}
	return sweet, nil
}

// Create adds a sweet to the catalog.
func (s *SweetService) Create(ctx context.Context, in SweetInput) (*domain.Sweet, error) {
	name := strings.TrimSpace(in.Name)
	category := strings.TrimSpace(in.Category)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if category == "" {
		return nil, apperrors.NewValidationError("category is required", map[string]any{"field": "category"})
	}
	price, err := normalizePrice(in.Price)
	if err != nil {
		return nil, err
	}
	if in.Quantity < 0 {
		return nil, apperrors.NewValidationError("quantity must be greater than or equal to 0", map[string]any{"field": "quantity"})
	}

	sweet := &domain.Sweet{
		ID:       uuid.NewString(),
		Name:     name,
		Category: category,
		Price:    price,
		Quantity: in.Quantity,
	}
	if err := s.sweets.Create(ctx, sweet); err != nil {
		s.logger.Error("create sweet failed", zap.Error(err))
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("sweet created", zap.String("sweet_id", sweet.ID), zap.String("name", sweet.Name))
	return sweet, nil
}

// Update overwrites the supplied fields. Quantity is not updatable here.
func (s *SweetService) Update(ctx context.Context, id string, patch domain.SweetPatch) (*domain.Sweet, error) {
	if !validID(id) {
		return nil, sweetNotFound(id)
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name must not be empty", map[string]any{"field": "name"})
		}
		patch.Name = &name
	}
	if patch.Category != nil {
		category := strings.TrimSpace(*patch.Category)
		if category == "" {
			return nil, apperrors.NewValidationError("category must not be empty", map[string]any{"field": "category"})
		}
		patch.Category = &category
	}
	if patch.Price != nil {
		price, err := normalizePrice(*patch.Price)
		if err != nil {
			return nil, err
		}
		patch.Price = &price
	}

	if patch.Empty() {
		return s.Get(ctx, id)
	}

	sweet, err := s.sweets.Update(ctx, id, patch)
	if err != nil {
		return nil, s.mapRepoError(err, id)
	}
	s.logger.Info("sweet updated", zap.String("sweet_id", id))
	return sweet, nil
}

// Delete removes a sweet.
func (s *SweetService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return sweetNotFound(id)
	}
	if err := s.sweets.Delete(ctx, id); err != nil {
		return s.mapRepoError(err, id)
	}
	s.logger.Info("sweet deleted", zap.String("sweet_id", id))
	return nil
}

// Purchase atomically removes amount units from stock. It fails with
// INSUFFICIENT_STOCK, leaving the sweet unchanged, when amount exceeds the
// stored quantity.
func (s *SweetService) Purchase(ctx context.Context, id string, amount int64) (*domain.Sweet, error) {
	if amount <= 0 {
		return nil, apperrors.NewValidationError("amount must be a positive integer", map[string]any{"field": "amount"})
	}
	if !validID(id) {
		s.metrics.RecordPurchase("not_found", 0)
		return nil, sweetNotFound(id)
	}

	sweet, err := s.sweets.Decrement(ctx, id, amount)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientStock):
			s.metrics.RecordPurchase("insufficient_stock", 0)
		case errors.Is(err, repository.ErrNotFound):
			s.metrics.RecordPurchase("not_found", 0)
		default:
			s.metrics.RecordPurchase("error", 0)
		}
		return nil, s.mapRepoError(err, id)
	}

	s.metrics.RecordPurchase("ok", amount)
	s.logger.Info("sweet purchased",
		zap.String("sweet_id", id),
		zap.Int64("amount", amount),
		zap.Int64("remaining", sweet.Quantity))

	s.publishLowStock(ctx, sweet)
	return sweet, nil
}

// Restock atomically adds amount units to stock.
func (s *SweetService) Restock(ctx context.Context, id string, amount int64) (*domain.Sweet, error) {
	if amount <= 0 {
		return nil, apperrors.NewValidationError("amount must be a positive integer", map[string]any{"field": "amount"})
	}
	if !validID(id) {
		return nil, sweetNotFound(id)
	}

	sweet, err := s.sweets.Increment(ctx, id, amount)
	if err != nil {
		return nil, s.mapRepoError(err, id)
	}

	s.metrics.RecordRestock(amount)
	s.logger.Info("sweet restocked",
		zap.String("sweet_id", id),
		zap.Int64("amount", amount),
		zap.Int64("quantity", sweet.Quantity))
	return sweet, nil
}

func (s *SweetService) publishLowStock(ctx context.Context, sweet *domain.Sweet) {
	if s.dispatcher == nil || s.lowStockThreshold < 0 || sweet.Quantity > s.lowStockThreshold {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventStockLow,
		Timestamp: time.Now().UTC(),
		Payload: events.StockLowPayload{
			SweetID:   sweet.ID,
			Name:      sweet.Name,
			Category:  sweet.Category,
			Quantity:  sweet.Quantity,
			Threshold: s.lowStockThreshold,
		},
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("stock.low handlers failed", zap.String("sweet_id", sweet.ID), zap.Error(err))
	}
}

func (s *SweetService) mapRepoError(err error, id string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return sweetNotFound(id)
	case errors.Is(err, repository.ErrInsufficientStock):
		return apperrors.NewInsufficientStock(map[string]any{"sweet_id": id})
	default:
		s.logger.Error("sweet storage failure", zap.String("sweet_id", id), zap.Error(err))
		return apperrors.NewInternalError(err)
	}
}

func sweetNotFound(id string) error {
	return apperrors.NewNotFound("sweet", map[string]any{"id": id})
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// maxPrice is the largest value the Postgres price column (NUMERIC(12,2)) holds.
const maxPrice = 9999999999.99

// normalizePrice rejects out-of-range prices and rounds to cents so every
// storage driver stores the same value.
func normalizePrice(price float64) (float64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return 0, apperrors.NewValidationError("price must be greater than or equal to 0", map[string]any{"field": "price"})
	}
	rounded := math.Round(price*100) / 100
	if rounded > maxPrice {
		return 0, apperrors.NewValidationError(
			fmt.Sprintf("price must be at most %.2f", maxPrice), map[string]any{"field": "price"})
	}
	return rounded, nil
}
