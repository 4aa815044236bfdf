package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/ecosort/internal/errs"
	"github.com/and161185/ecosort/internal/model"
)

// IdentityRepo implements IdentityRepository using PostgreSQL.
type IdentityRepo struct{ db *DB }

// NewIdentityRepo constructs an identity repository.
func NewIdentityRepo(db *DB) *IdentityRepo { return &IdentityRepo{db: db} }

const identityColumns = `id, display_name, email, role, pwd_hash, salt_auth, claim_ver, items_classified, reports_created, created_at, last_login_at`

// Create inserts a new identity row.
func (r *IdentityRepo) Create(ctx context.Context, u *model.Identity) error {
	const q = `
INSERT INTO identities (id, display_name, email, role, pwd_hash, salt_auth, claim_ver, items_classified, reports_created, created_at, last_login_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := r.db.Pool.Exec(ctx, q,
		u.ID, u.DisplayName, u.Email, string(u.Role), u.PwdHash, u.SaltAuth,
		u.ClaimVer, u.ItemsClassified, u.ReportsCreated, u.CreatedAt, u.LastLoginAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects an identity by ID.
func (r *IdentityRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Identity, error) {
	const q = `SELECT ` + identityColumns + ` FROM identities WHERE id=$1`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByEmail selects an identity by email (case-insensitive).
func (r *IdentityRepo) GetByEmail(ctx context.Context, email string) (*model.Identity, error) {
	const q = `SELECT ` + identityColumns + ` FROM identities WHERE lower(email)=lower($1)`
	return r.scanOne(r.db.Pool.QueryRow(ctx, q, email))
}

func (r *IdentityRepo) scanOne(row pgx.Row) (*model.Identity, error) {
	var (
		u    model.Identity
		role string
	)
	err := row.Scan(&u.ID, &u.DisplayName, &u.Email, &role, &u.PwdHash, &u.SaltAuth,
		&u.ClaimVer, &u.ItemsClassified, &u.ReportsCreated, &u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	u.Role = model.Role(role)
	return &u, nil
}

// Update rewrites the mutable identity columns.
func (r *IdentityRepo) Update(ctx context.Context, u *model.Identity) error {
	const q = `
UPDATE identities
SET display_name=$2, email=$3, claim_ver=$4, items_classified=$5, reports_created=$6, last_login_at=$7
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q,
		u.ID, u.DisplayName, u.Email, u.ClaimVer, u.ItemsClassified, u.ReportsCreated, u.LastLoginAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
