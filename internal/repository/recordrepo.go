package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/ecosort/internal/model"
)

// RecordRepository is the storage contract shared by both record kinds.
// Backends keep one logical list per owner; lists returned by ListByOwner
// and ListAll preserve insertion order so stores can break timestamp ties
// deterministically. Each mutation is atomic per record.
type RecordRepository[T model.Owned] interface {
	// Put inserts a new record.
	Put(ctx context.Context, rec T) error
	// Replace rewrites an existing record in place; errs.ErrNotFound if absent.
	Replace(ctx context.Context, rec T) error
	// Get loads one record by ID; errs.ErrNotFound if absent.
	Get(ctx context.Context, id uuid.UUID) (T, error)
	// Delete removes one record by ID; errs.ErrNotFound if absent.
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByOwner returns the owner's records in insertion order.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]T, error)
	// ListAll returns every record across owners in insertion order.
	ListAll(ctx context.Context) ([]T, error)
	// PurgeOwner removes all of the owner's records, returning how many.
	PurgeOwner(ctx context.Context, ownerID uuid.UUID) (int, error)
}
