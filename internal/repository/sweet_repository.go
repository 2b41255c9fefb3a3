package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/sweet-shop/internal/domain"
)

// SweetRepository encapsulates catalog persistence. Quantity changes go
// through Decrement and Increment, each a single atomic statement.
type SweetRepository interface {
	Create(ctx context.Context, sweet *domain.Sweet) error
	GetByID(ctx context.Context, id string) (*domain.Sweet, error)
	List(ctx context.Context, filter SweetFilter) ([]domain.Sweet, error)
	Update(ctx context.Context, id string, patch domain.SweetPatch) (*domain.Sweet, error)
	Delete(ctx context.Context, id string) error
	// Decrement lowers quantity by amount only if enough stock remains.
	// It returns ErrInsufficientStock without mutating otherwise.
	Decrement(ctx context.Context, id string, amount int64) (*domain.Sweet, error)
	Increment(ctx context.Context, id string, amount int64) (*domain.Sweet, error)
}

const sweetColumns = `id, name, category, price, quantity, created_at, updated_at`

type sweetRepository struct {
	pool *pgxpool.Pool
}

// NewSweetRepository instantiates repository.
func NewSweetRepository(pool *pgxpool.Pool) SweetRepository {
	return &sweetRepository{pool: pool}
}

func (r *sweetRepository) Create(ctx context.Context, sweet *domain.Sweet) error {
	const query = `
        INSERT INTO sweets (id, name, category, price, quantity)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		sweet.ID,
		sweet.Name,
		sweet.Category,
		sweet.Price,
		sweet.Quantity,
	).Scan(&sweet.CreatedAt, &sweet.UpdatedAt)
}

func (r *sweetRepository) GetByID(ctx context.Context, id string) (*domain.Sweet, error) {
	query := `SELECT ` + sweetColumns + ` FROM sweets WHERE id=$1`
	return scanSweet(r.pool.QueryRow(ctx, query, id))
}

func (r *sweetRepository) List(ctx context.Context, filter SweetFilter) ([]domain.Sweet, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.Name != nil && strings.TrimSpace(*filter.Name) != "" {
		args = append(args, "%"+escapeLike(strings.TrimSpace(*filter.Name))+"%")
		clauses = append(clauses, fmt.Sprintf(`name ILIKE $%d ESCAPE '\'`, len(args)))
	}
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		clauses = append(clauses, fmt.Sprintf("price >= $%d", len(args)))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		clauses = append(clauses, fmt.Sprintf("price <= $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM sweets WHERE %s ORDER BY name, id`,
		sweetColumns, strings.Join(clauses, " AND "))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSweets(rows)
}

func (r *sweetRepository) Update(ctx context.Context, id string, patch domain.SweetPatch) (*domain.Sweet, error) {
	query := `
        UPDATE sweets SET
            name = COALESCE($2, name),
            category = COALESCE($3, category),
            price = COALESCE($4, price),
            updated_at = NOW()
        WHERE id=$1
        RETURNING ` + sweetColumns
	return scanSweet(r.pool.QueryRow(ctx, query, id, patch.Name, patch.Category, patch.Price))
}

func (r *sweetRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM sweets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *sweetRepository) Decrement(ctx context.Context, id string, amount int64) (*domain.Sweet, error) {
	query := `
        UPDATE sweets SET quantity = quantity - $2, updated_at = NOW()
        WHERE id=$1 AND quantity >= $2
        RETURNING ` + sweetColumns
	sweet, err := scanSweet(r.pool.QueryRow(ctx, query, id, amount))
	if !errors.Is(err, ErrNotFound) {
		return sweet, err
	}

	// No row changed: tell a missing sweet apart from short stock.
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM sweets WHERE id=$1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	return nil, ErrInsufficientStock
}

func (r *sweetRepository) Increment(ctx context.Context, id string, amount int64) (*domain.Sweet, error) {
	query := `
        UPDATE sweets SET quantity = quantity + $2, updated_at = NOW()
        WHERE id=$1
        RETURNING ` + sweetColumns
	return scanSweet(r.pool.QueryRow(ctx, query, id, amount))
}

func scanSweet(row pgx.Row) (*domain.Sweet, error) {
	var sweet domain.Sweet
	if err := row.Scan(
		&sweet.ID,
		&sweet.Name,
		&sweet.Category,
		&sweet.Price,
		&sweet.Quantity,
		&sweet.CreatedAt,
		&sweet.UpdatedAt,
	); err != nil {
		return nil, mapNoRows(err)
	}
	return &sweet, nil
}

func scanSweets(rows pgx.Rows) ([]domain.Sweet, error) {
	result := []domain.Sweet{}
	for rows.Next() {
		sweet, err := scanSweet(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *sweet)
	}
	return result, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
