package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gofrs/uuid/v5"

	"github.com/and161185/ecosort/internal/errs"
	"github.com/and161185/ecosort/internal/model"
	"github.com/and161185/ecosort/internal/repository"
)

var identitiesKey = []byte("identities")

// storedIdentity re-exposes the credential fields the API-facing model
// hides from JSON; without it the hashes would be silently dropped on the
// round trip through the value encoding.
type storedIdentity struct {
	model.Identity
	PwdHash  []byte `json:"pwdHash"`
	SaltAuth []byte `json:"saltAuth"`
	ClaimVer int64  `json:"claimVer"`
}

func toStored(u model.Identity) storedIdentity {
	return storedIdentity{Identity: u, PwdHash: u.PwdHash, SaltAuth: u.SaltAuth, ClaimVer: u.ClaimVer}
}

func (s storedIdentity) toModel() model.Identity {
	u := s.Identity
	u.PwdHash = s.PwdHash
	u.SaltAuth = s.SaltAuth
	u.ClaimVer = s.ClaimVer
	return u
}

// Identities implements IdentityRepository over a single global list value,
// matching the persisted layout contract.
type Identities struct {
	db *badger.DB
}

var _ repository.IdentityRepository = (*Identities)(nil)

// NewIdentities constructs the identity repository.
func NewIdentities(s *Store) *Identities {
	return &Identities{db: s.db}
}

func readIdentities(txn *badger.Txn) ([]storedIdentity, error) {
	item, err := txn.Get(identitiesKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var list []storedIdentity
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &list)
	}); err != nil {
		return nil, fmt.Errorf("decode identity list: %w", err)
	}
	return list, nil
}

func writeIdentities(txn *badger.Txn, list []storedIdentity) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return txn.Set(identitiesKey, raw)
}

// Create appends the identity; the email must be unused.
func (r *Identities) Create(ctx context.Context, id *model.Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		list, err := readIdentities(txn)
		if err != nil {
			return err
		}
		for i := range list {
			if strings.EqualFold(list[i].Email, id.Email) {
				return errs.ErrAlreadyExists
			}
		}
		return writeIdentities(txn, append(list, toStored(*id)))
	})
}

// GetByID loads an identity by ID.
func (r *Identities) GetByID(ctx context.Context, id uuid.UUID) (*model.Identity, error) {
	return r.find(ctx, func(u *model.Identity) bool { return u.ID == id })
}

// GetByEmail loads an identity by email.
func (r *Identities) GetByEmail(ctx context.Context, email string) (*model.Identity, error) {
	return r.find(ctx, func(u *model.Identity) bool { return strings.EqualFold(u.Email, email) })
}

func (r *Identities) find(ctx context.Context, match func(*model.Identity) bool) (*model.Identity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var found *model.Identity
	err := r.db.View(func(txn *badger.Txn) error {
		list, err := readIdentities(txn)
		if err != nil {
			return err
		}
		for i := range list {
			u := list[i].toModel()
			if match(&u) {
				found = &u
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, errs.ErrNotFound
	}
	return found, nil
}

// Update rewrites the stored identity in place.
func (r *Identities) Update(ctx context.Context, id *model.Identity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		list, err := readIdentities(txn)
		if err != nil {
			return err
		}
		for i := range list {
			if list[i].ID == id.ID {
				list[i] = toStored(*id)
				return writeIdentities(txn, list)
			}
		}
		return errs.ErrNotFound
	})
}
