// AngelaMos | 2026
// entity.go

package inventory

import (
	"strings"
	"time"
)

// Product is a per-user inventory row. Price is stored in cents to keep
// arithmetic exact.
type Product struct {
	ID        string    `db:"id"         json:"id"`
	UserID    string    `db:"user_id"    json:"-"`
	Name      string    `db:"name"       json:"name"`
	Price     int64     `db:"price"      json:"price"`
	Quantity  int       `db:"quantity"   json:"quantity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CleanName collapses runs of whitespace but keeps the owner's casing;
// this is the form that gets stored and displayed.
func CleanName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// NormalizeName lowercases and collapses interior whitespace, so
// "  Gaming   Laptop " and "gaming laptop" compare equal.
func NormalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// CompactName additionally strips every whitespace character. Uniqueness
// checks compare on both forms, so "play station" cannot coexist with
// "playstation".
func CompactName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}
