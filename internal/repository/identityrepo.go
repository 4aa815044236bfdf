// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/ecosort/internal/model"
)

// IdentityRepository provides CRUD access for identities.
type IdentityRepository interface {
	// Create inserts a new identity; errs.ErrAlreadyExists when the email is taken.
	Create(ctx context.Context, id *model.Identity) error
	// GetByID loads an identity by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Identity, error)
	// GetByEmail loads an identity by email.
	GetByEmail(ctx context.Context, email string) (*model.Identity, error)
	// Update rewrites the stored identity (profile, counters, claim version).
	Update(ctx context.Context, id *model.Identity) error
}
