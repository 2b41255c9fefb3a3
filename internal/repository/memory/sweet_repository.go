package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/sweet-shop/internal/domain"
	"github.com/spec-kit/sweet-shop/internal/repository"
)

// sweetRepository serialises every mutation behind one mutex, so the
// check-and-decrement in Decrement is atomic with respect to other callers.
type sweetRepository struct {
	mu     sync.RWMutex
	sweets map[string]domain.Sweet
	now    func() time.Time
}

// NewSweetRepository returns an in-process catalog store.
func NewSweetRepository() repository.SweetRepository {
	return &sweetRepository{
		sweets: make(map[string]domain.Sweet),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *sweetRepository) Create(_ context.Context, sweet *domain.Sweet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	sweet.CreatedAt = now
	sweet.UpdatedAt = now
	r.sweets[sweet.ID] = *sweet
	return nil
}

func (r *sweetRepository) GetByID(_ context.Context, id string) (*domain.Sweet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sweet, ok := r.sweets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sweet, nil
}

func (r *sweetRepository) List(_ context.Context, filter repository.SweetFilter) ([]domain.Sweet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var name string
	if filter.Name != nil {
		name = strings.ToLower(strings.TrimSpace(*filter.Name))
	}

	result := []domain.Sweet{}
	for _, s := range r.sweets {
		if filter.Category != nil && s.Category != *filter.Category {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(s.Name), name) {
			continue
		}
		if filter.MinPrice != nil && s.Price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && s.Price > *filter.MaxPrice {
			continue
		}
		result = append(result, s)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r *sweetRepository) Update(_ context.Context, id string, patch domain.SweetPatch) (*domain.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sweet, ok := r.sweets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.Name != nil {
		sweet.Name = *patch.Name
	}
	if patch.Category != nil {
		sweet.Category = *patch.Category
	}
	if patch.Price != nil {
		sweet.Price = *patch.Price
	}
	sweet.UpdatedAt = r.now()
	r.sweets[id] = sweet
	return &sweet, nil
}

func (r *sweetRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sweets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.sweets, id)
	return nil
}

func (r *sweetRepository) Decrement(_ context.Context, id string, amount int64) (*domain.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sweet, ok := r.sweets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if sweet.Quantity < amount {
		return nil, repository.ErrInsufficientStock
	}
	sweet.Quantity -= amount
	sweet.UpdatedAt = r.now()
	r.sweets[id] = sweet
	return &sweet, nil
}

func (r *sweetRepository) Increment(_ context.Context, id string, amount int64) (*domain.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sweet, ok := r.sweets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	sweet.Quantity += amount
	sweet.UpdatedAt = r.now()
	r.sweets[id] = sweet
	return &sweet, nil
}
