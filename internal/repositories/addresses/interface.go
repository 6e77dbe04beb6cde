// Package addresses stores the locally cached address collection. The cache
// is a derived projection of the server's collection: it is replaced
// wholesale on a successful list, mutated entry-by-entry only after the
// server confirms a write, and wiped on logout.
package addresses

import (
	"context"

	"storefront/internal/models"
)

type Repository interface {
	// ReplaceAll drops the cached collection and stores list in order.
	ReplaceAll(ctx context.Context, list []models.Address) error

	// Upsert inserts or replaces one address by id.
	Upsert(ctx context.Context, addr models.Address) error

	// GetAll returns the cached collection in insertion order.
	GetAll(ctx context.Context) ([]models.Address, error)

	// DeleteByID removes one address. Unknown ids are not an error.
	DeleteByID(ctx context.Context, id string) error

	// SetDefault marks the given id as the only default across the whole
	// collection.
	SetDefault(ctx context.Context, id string) error

	// Clear wipes the cache.
	Clear(ctx context.Context) error
}
