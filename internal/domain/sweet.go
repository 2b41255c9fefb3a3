package domain

import "time"

// Categories offered by the storefront. The store itself accepts any text.
const (
	CategoryChocolate = "Chocolate"
	CategoryCandy     = "Candy"
	CategoryLollipop  = "Lollipop"
	CategoryOther     = "Other"
)

// Sweet is a catalog entry.
type Sweet struct {
	ID        string
	Name      string
	Category  string
	Price     float64
	Quantity  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SweetPatch carries the fields of a partial update; nil means unchanged.
type SweetPatch struct {
	Name     *string
	Category *string
	Price    *float64
}

// Empty reports whether the patch changes nothing.
func (p SweetPatch) Empty() bool {
	return p.Name == nil && p.Category == nil && p.Price == nil
}
