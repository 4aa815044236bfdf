// Package store implements the guarded record stores over the repository
// interfaces. Validation and derived fields are owned here: repositories
// persist exactly what the store hands them, and every read or mutation
// passes through the access guard.
package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/ecosort/internal/access"
	"github.com/and161185/ecosort/internal/errs"
	"github.com/and161185/ecosort/internal/model"
	"github.com/and161185/ecosort/internal/repository"
)

// Core is the kind-independent half of a record store: guarded get, delete
// and list. Create/update semantics differ per kind and live on the typed
// stores embedding it.
type Core[T model.Owned] struct {
	repo repository.RecordRepository[T]
	now  func() time.Time
}

// NewCore wraps a repository with guard checks.
func NewCore[T model.Owned](repo repository.RecordRepository[T]) *Core[T] {
	return &Core[T]{repo: repo, now: time.Now}
}

// Get returns the record if the actor may read it. PermissionDenied and
// NotFound are surfaced distinctly.
func (c *Core[T]) Get(ctx context.Context, actor *model.Identity, id uuid.UUID) (T, error) {
	var zero T
	if actor == nil {
		return zero, errs.ErrUnauthorized
	}
	rec, err := c.repo.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	if !access.AllowRes(actor, rec, access.OpRead) {
		return zero, errs.ErrPermissionDenied
	}
	return rec, nil
}

// Delete removes the record if the actor owns it or is an admin.
func (c *Core[T]) Delete(ctx context.Context, actor *model.Identity, id uuid.UUID) error {
	if actor == nil {
		return errs.ErrUnauthorized
	}
	rec, err := c.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !access.AllowRes(actor, rec, access.OpDelete) {
		return errs.ErrPermissionDenied
	}
	return c.repo.Delete(ctx, id)
}

// List returns the actor-visible records, newest first. Members see their
// own records, admins see everything. Ties on the creation timestamp keep
// the repository's insertion order (the sort is stable).
func (c *Core[T]) List(ctx context.Context, actor *model.Identity) ([]T, error) {
	if actor == nil {
		return nil, errs.ErrUnauthorized
	}
	var (
		recs []T
		err  error
	)
	if actor.IsAdmin() {
		recs, err = c.repo.ListAll(ctx)
	} else {
		recs, err = c.repo.ListByOwner(ctx, actor.ID)
	}
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Created().After(recs[j].Created())
	})
	return recs, nil
}

// checkDraft runs struct-tag validation and converts the first failure into
// the typed ValidationError the edge layer can map.
func checkDraft(v *validator.Validate, draft any) error {
	err := v.Struct(draft)
	if err == nil {
		return nil
	}
	var ferrs validator.ValidationErrors
	if errors.As(err, &ferrs) && len(ferrs) > 0 {
		f := ferrs[0]
		field := strings.ToLower(f.Field()[:1]) + f.Field()[1:]
		return errs.Invalid(field, "failed "+f.Tag()+" check")
	}
	return errs.Invalid("draft", err.Error())
}
