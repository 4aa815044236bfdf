// Package session owns the identity lifecycle and the signed session claim.
//
// A claim is a reference, not a snapshot: it carries only the identity id,
// expiry and a claim version. Authenticate always reloads the identity row,
// so profile updates and resets can never leave a stale snapshot in
// circulation; bumping the claim version retires every previously issued
// claim at once.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/and161185/ecosort/internal/access"
	pkgcrypto "github.com/and161185/ecosort/internal/crypto"
	"github.com/and161185/ecosort/internal/errs"
	"github.com/and161185/ecosort/internal/limiter"
	"github.com/and161185/ecosort/internal/model"
	"github.com/and161185/ecosort/internal/repository"
)

// DefaultClaimTTL is how long an issued claim stays valid.
const DefaultClaimTTL = 24 * time.Hour

// Manager defines the identity lifecycle operations.
type Manager interface {
	// SignUp registers a new identity and issues its first claim.
	SignUp(ctx context.Context, name, email, password, requestedRole string) (*model.Identity, string, error)
	// SignIn authenticates credentials under rate limiting and issues a claim.
	SignIn(ctx context.Context, email, password, ip string) (*model.Identity, string, error)
	// Authenticate validates a claim and returns the current identity.
	Authenticate(ctx context.Context, token string) (*model.Identity, error)
	// UpdateProfile merges the patch and re-issues the claim.
	UpdateProfile(ctx context.Context, actor *model.Identity, patch model.ProfilePatch) (*model.Identity, string, error)
	// ResetOwnedData purges the target's records, zeroes counters, re-issues the claim.
	ResetOwnedData(ctx context.Context, actor *model.Identity, targetID uuid.UUID) (string, error)
	// CheckExists reports whether an identity with that email is registered.
	CheckExists(ctx context.Context, email string) (bool, error)
}

type sessionClaims struct {
	jwt.RegisteredClaims
	ClaimVer int64 `json:"cv"`
}

// Service implements Manager over the identity and record repositories.
type Service struct {
	identities      repository.IdentityRepository
	classifications repository.RecordRepository[model.ClassificationRecord]
	reports         repository.RecordRepository[model.Report]
	signKey         []byte
	claimTTL        time.Duration
	lim             limiter.Limiter
	now             func() time.Time
}

// NewService constructs the session manager with required dependencies.
func NewService(
	identities repository.IdentityRepository,
	classifications repository.RecordRepository[model.ClassificationRecord],
	reports repository.RecordRepository[model.Report],
	signKey []byte,
	claimTTL time.Duration,
	lim limiter.Limiter,
) *Service {
	if claimTTL <= 0 {
		claimTTL = DefaultClaimTTL
	}
	return &Service{
		identities:      identities,
		classifications: classifications,
		reports:         reports,
		signKey:         signKey,
		claimTTL:        claimTTL,
		lim:             lim,
		now:             time.Now,
	}
}

// SignUp registers a new identity. Only an explicit admin request yields the
// admin role; anything else becomes a member.
func (s *Service) SignUp(ctx context.Context, name, email, password, requestedRole string) (*model.Identity, string, error) {
	email = normalizeEmail(email)
	if name == "" {
		return nil, "", errs.Invalid("name", "required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", errs.Invalid("email", "must be a valid address")
	}
	if len(password) < 8 {
		return nil, "", errs.Invalid("password", "must be at least 8 characters")
	}

	role := model.RoleMember
	if requestedRole == string(model.RoleAdmin) {
		role = model.RoleAdmin
	}

	uid, err := uuid.NewV4()
	if err != nil {
		return nil, "", err
	}
	salt, err := pkgcrypto.RandBytes(16)
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	id := &model.Identity{
		ID:          uid,
		DisplayName: name,
		Email:       email,
		Role:        role,
		PwdHash:     pkgcrypto.HashPassword([]byte(password), salt),
		SaltAuth:    salt,
		ClaimVer:    1,
		CreatedAt:   now,
		LastLoginAt: now,
	}
	if err := s.identities.Create(ctx, id); err != nil {
		return nil, "", err
	}

	token, err := s.issueClaim(id)
	if err != nil {
		return nil, "", err
	}
	return id, token, nil
}

// SignIn verifies credentials behind the rate limiter. Unknown email and
// wrong password are both masked as ErrUnauthorized.
func (s *Service) SignIn(ctx context.Context, email, password, ip string) (*model.Identity, string, error) {
	email = normalizeEmail(email)
	ipHash := limiter.HashIP(ip)

	allowed, _, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return nil, "", err
	}
	if !allowed {
		return nil, "", errs.ErrRateLimited
	}

	id, err := s.identities.GetByEmail(ctx, email)
	if err != nil || !pkgcrypto.VerifyPassword([]byte(password), id.SaltAuth, id.PwdHash) {
		if blocked, _, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return nil, "", errs.ErrRateLimited
		}
		return nil, "", errs.ErrUnauthorized
	}

	_ = s.lim.Success(ctx, email, ipHash)

	id.LastLoginAt = s.now()
	if err := s.identities.Update(ctx, id); err != nil {
		return nil, "", err
	}

	token, err := s.issueClaim(id)
	if err != nil {
		return nil, "", err
	}
	return id, token, nil
}

// Authenticate parses and validates the claim, then revalidates it against
// the stored identity. A claim whose version is behind the stored one is
// treated as expired.
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Identity, error) {
	var sc sessionClaims
	_, err := jwt.ParseWithClaims(token, &sc, func(t *jwt.Token) (any, error) {
		return s.signKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, errs.ErrClaimExpired
	default:
		return nil, fmt.Errorf("%w: %w", errs.ErrClaimMalformed, err)
	}

	uid, err := uuid.FromString(sc.Subject)
	if err != nil {
		return nil, errs.ErrClaimMalformed
	}
	id, err := s.identities.GetByID(ctx, uid)
	if err != nil {
		return nil, errs.ErrUnauthorized
	}
	if sc.ClaimVer != id.ClaimVer {
		return nil, errs.ErrClaimExpired
	}
	return id, nil
}

// UpdateProfile merges the patch into the stored identity and re-issues the
// claim; the previous claim is retired by the version bump.
func (s *Service) UpdateProfile(ctx context.Context, actor *model.Identity, patch model.ProfilePatch) (*model.Identity, string, error) {
	id, err := s.identities.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, "", err
	}

	if patch.DisplayName != nil {
		if *patch.DisplayName == "" {
			return nil, "", errs.Invalid("displayName", "required")
		}
		id.DisplayName = *patch.DisplayName
	}
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		if email == "" || !strings.Contains(email, "@") {
			return nil, "", errs.Invalid("email", "must be a valid address")
		}
		if email != id.Email {
			if other, err := s.identities.GetByEmail(ctx, email); err == nil && other.ID != id.ID {
				return nil, "", errs.ErrAlreadyExists
			}
			id.Email = email
		}
	}

	id.ClaimVer++
	if err := s.identities.Update(ctx, id); err != nil {
		return nil, "", err
	}
	token, err := s.issueClaim(id)
	if err != nil {
		return nil, "", err
	}
	return id, token, nil
}

// ResetOwnedData deletes every record owned by the target, zeroes the
// derived counters, and retires outstanding claims. Members may only target
// themselves; admins may name any tenant. When an admin resets someone
// else, the returned token is empty: the actor's own claim stays valid.
func (s *Service) ResetOwnedData(ctx context.Context, actor *model.Identity, targetID uuid.UUID) (string, error) {
	if targetID == uuid.Nil {
		targetID = actor.ID
	}
	if !access.Allow(actor, targetID, false, access.OpDelete) {
		return "", errs.ErrPermissionDenied
	}

	target, err := s.identities.GetByID(ctx, targetID)
	if err != nil {
		return "", err
	}
	if _, err := s.classifications.PurgeOwner(ctx, targetID); err != nil {
		return "", err
	}
	if _, err := s.reports.PurgeOwner(ctx, targetID); err != nil {
		return "", err
	}

	target.ItemsClassified = 0
	target.ReportsCreated = 0
	target.ClaimVer++
	if err := s.identities.Update(ctx, target); err != nil {
		return "", err
	}

	if target.ID != actor.ID {
		return "", nil
	}
	return s.issueClaim(target)
}

// CheckExists reports whether the email is registered.
func (s *Service) CheckExists(ctx context.Context, email string) (bool, error) {
	_, err := s.identities.GetByEmail(ctx, normalizeEmail(email))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errs.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// issueClaim creates a signed HS256 JWT for the identity's current claim version.
func (s *Service) issueClaim(id *model.Identity) (string, error) {
	now := s.now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.claimTTL)),
		},
		ClaimVer: id.ClaimVer,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signKey)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
