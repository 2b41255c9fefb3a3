package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors shared by every storage driver.
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrInsufficientStock = errors.New("insufficient stock")
)

const pgUniqueViolation = "23505"

// SweetFilter narrows catalog listings. Nil fields are not applied.
type SweetFilter struct {
	Category *string
	Name     *string
	MinPrice *float64
	MaxPrice *float64
}

func mapNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
