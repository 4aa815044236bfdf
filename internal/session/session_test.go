package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/ecosort/internal/errs"
	"github.com/and161185/ecosort/internal/limiter"
	"github.com/and161185/ecosort/internal/model"
	"github.com/and161185/ecosort/internal/repository"
)

type fakeIdentities struct {
	byID map[uuid.UUID]*model.Identity

	createErr error
	updateErr error
}

var _ repository.IdentityRepository = (*fakeIdentities)(nil)

func newFakeIdentities() *fakeIdentities {
	return &fakeIdentities{byID: map[uuid.UUID]*model.Identity{}}
}

func (f *fakeIdentities) Create(_ context.Context, id *model.Identity) error {
	if f.createErr != nil {
		return f.createErr
	}
	for _, u := range f.byID {
		if u.Email == id.Email {
			return errs.ErrAlreadyExists
		}
	}
	cpy := *id
	f.byID[id.ID] = &cpy
	return nil
}

func (f *fakeIdentities) GetByID(_ context.Context, id uuid.UUID) (*model.Identity, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeIdentities) GetByEmail(_ context.Context, email string) (*model.Identity, error) {
	for _, u := range f.byID {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeIdentities) Update(_ context.Context, id *model.Identity) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.byID[id.ID]; !ok {
		return errs.ErrNotFound
	}
	cpy := *id
	f.byID[id.ID] = &cpy
	return nil
}

type fakeRecords[T model.Owned] struct {
	byOwner map[uuid.UUID][]T

	purgeErr error
}

func newFakeRecords[T model.Owned]() *fakeRecords[T] {
	return &fakeRecords[T]{byOwner: map[uuid.UUID][]T{}}
}

func (f *fakeRecords[T]) Put(_ context.Context, rec T) error {
	f.byOwner[rec.Owner()] = append(f.byOwner[rec.Owner()], rec)
	return nil
}
func (f *fakeRecords[T]) Replace(context.Context, T) error { return nil }
func (f *fakeRecords[T]) Get(_ context.Context, id uuid.UUID) (T, error) {
	var zero T
	return zero, errs.ErrNotFound
}
func (f *fakeRecords[T]) Delete(context.Context, uuid.UUID) error { return nil }
func (f *fakeRecords[T]) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]T, error) {
	return append([]T(nil), f.byOwner[ownerID]...), nil
}
func (f *fakeRecords[T]) ListAll(context.Context) ([]T, error) { return nil, nil }
func (f *fakeRecords[T]) PurgeOwner(_ context.Context, ownerID uuid.UUID) (int, error) {
	if f.purgeErr != nil {
		return 0, f.purgeErr
	}
	n := len(f.byOwner[ownerID])
	delete(f.byOwner, ownerID)
	return n, nil
}

func newManager(t *testing.T) (*Service, *fakeIdentities, *fakeRecords[model.ClassificationRecord], *fakeRecords[model.Report]) {
	t.Helper()
	ids := newFakeIdentities()
	recs := newFakeRecords[model.ClassificationRecord]()
	reps := newFakeRecords[model.Report]()
	lim := limiter.NewMemory(time.Minute, 5, time.Minute)
	return NewService(ids, recs, reps, []byte("test-key"), time.Hour, lim), ids, recs, reps
}

func TestSignUp_RolesAndDuplicates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, _, _ := newManager(t)

	if _, _, err := s.SignUp(ctx, "", "a@x.io", "password1", ""); !errs.IsValidation(err) {
		t.Fatalf("want validation error on empty name, got %v", err)
	}
	if _, _, err := s.SignUp(ctx, "A", "not-an-email", "password1", ""); !errs.IsValidation(err) {
		t.Fatalf("want validation error on bad email, got %v", err)
	}
	if _, _, err := s.SignUp(ctx, "A", "a@x.io", "short", ""); !errs.IsValidation(err) {
		t.Fatalf("want validation error on short password, got %v", err)
	}

	member, tok, err := s.SignUp(ctx, "Alice", "Alice@X.io", "password1", "")
	if err != nil || tok == "" {
		t.Fatalf("SignUp: %v", err)
	}
	if member.Role != model.RoleMember || member.Email != "alice@x.io" {
		t.Fatalf("member mis-created: %+v", member)
	}
	if member.ItemsClassified != 0 || member.ReportsCreated != 0 {
		t.Fatalf("counters not zeroed: %+v", member)
	}

	admin, _, err := s.SignUp(ctx, "Root", "root@x.io", "password1", "admin")
	if err != nil || admin.Role != model.RoleAdmin {
		t.Fatalf("explicit admin request must yield admin: %+v err=%v", admin, err)
	}
	odd, _, err := s.SignUp(ctx, "Odd", "odd@x.io", "password1", "superuser")
	if err != nil || odd.Role != model.RoleMember {
		t.Fatalf("non-admin role request must yield member: %+v err=%v", odd, err)
	}

	if _, _, err := s.SignUp(ctx, "Clone", "alice@x.io", "password1", ""); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists on duplicate email, got %v", err)
	}
}

func TestSignIn_MaskingAndRateLimit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ids := newFakeIdentities()
	recs := newFakeRecords[model.ClassificationRecord]()
	reps := newFakeRecords[model.Report]()
	lim := limiter.NewMemory(time.Minute, 2, time.Minute)
	s := NewService(ids, recs, reps, []byte("k"), time.Hour, lim)

	if _, _, err := s.SignUp(ctx, "Alice", "alice@x.io", "password1", ""); err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.SignIn(ctx, "ghost@x.io", "whatever1", "1.1.1.1"); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("unknown email must be masked as unauthorized, got %v", err)
	}
	if _, _, err := s.SignIn(ctx, "alice@x.io", "wrong-pass", "1.1.1.1"); !errors.Is(err, errs.ErrUnauthorized) {
		t.Fatalf("first wrong password must be unauthorized, got %v", err)
	}
	if _, _, err := s.SignIn(ctx, "alice@x.io", "wrong-pass", "1.1.1.1"); !errors.Is(err, errs.ErrRateLimited) {
		// second failure on this (email, ip) reaches the threshold of 2
		t.Fatalf("want rate limited at threshold, got %v", err)
	}
	if _, _, err := s.SignIn(ctx, "alice@x.io", "password1", "1.1.1.1"); !errors.Is(err, errs.ErrRateLimited) {
		t.Fatalf("blocked pair must stay blocked even with correct password, got %v", err)
	}

	id, tok, err := s.SignIn(ctx, "alice@x.io", "password1", "2.2.2.2")
	if err != nil || tok == "" {
		t.Fatalf("SignIn from clean ip: %v", err)
	}
	if id.LastLoginAt.IsZero() {
		t.Fatalf("lastLoginAt not refreshed")
	}
}

func TestAuthenticate_ExpiredMalformedStale(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, ids, _, _ := newManager(t)

	id, tok, err := s.SignUp(ctx, "Alice", "alice@x.io", "password1", "")
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.Authenticate(ctx, tok)
	if err != nil || got.ID != id.ID {
		t.Fatalf("Authenticate: %v", err)
	}

	if _, err := s.Authenticate(ctx, "not.a.token"); !errors.Is(err, errs.ErrClaimMalformed) {
		t.Fatalf("want ErrClaimMalformed, got %v", err)
	}

	// Claims signed with a different key are malformed, not expired.
	other := NewService(ids, newFakeRecords[model.ClassificationRecord](), newFakeRecords[model.Report](), []byte("other-key"), time.Hour, limiter.NewMemory(time.Minute, 5, time.Minute))
	foreign, _ := other.issueClaim(id)
	if _, err := s.Authenticate(ctx, foreign); !errors.Is(err, errs.ErrClaimMalformed) {
		t.Fatalf("want ErrClaimMalformed on bad signature, got %v", err)
	}

	// Wind the service clock past the TTL.
	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := s.Authenticate(ctx, tok); !errors.Is(err, errs.ErrClaimExpired) {
		t.Fatalf("want ErrClaimExpired, got %v", err)
	}
	s.now = time.Now

	// Bump the stored claim version: the old token is retired.
	stored := ids.byID[id.ID]
	stored.ClaimVer++
	if _, err := s.Authenticate(ctx, tok); !errors.Is(err, errs.ErrClaimExpired) {
		t.Fatalf("want ErrClaimExpired on stale claim version, got %v", err)
	}
}

func TestUpdateProfile_ReissuesClaim(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, _, _ := newManager(t)

	id, oldTok, err := s.SignUp(ctx, "Alice", "alice@x.io", "password1", "")
	if err != nil {
		t.Fatal(err)
	}

	name := "Alice Cooper"
	updated, newTok, err := s.UpdateProfile(ctx, id, model.ProfilePatch{DisplayName: &name})
	if err != nil || newTok == "" || newTok == oldTok {
		t.Fatalf("UpdateProfile: err=%v tokens equal=%v", err, newTok == oldTok)
	}
	if updated.DisplayName != name || updated.Email != "alice@x.io" {
		t.Fatalf("patch merged wrong: %+v", updated)
	}

	// The pre-update claim must no longer authenticate.
	if _, err := s.Authenticate(ctx, oldTok); !errors.Is(err, errs.ErrClaimExpired) {
		t.Fatalf("old claim still valid after profile update: %v", err)
	}
	got, err := s.Authenticate(ctx, newTok)
	if err != nil || got.DisplayName != name {
		t.Fatalf("new claim must reflect the update: %+v err=%v", got, err)
	}
}

func TestUpdateProfile_EmailConflict(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, _, _ := newManager(t)

	a, _, _ := s.SignUp(ctx, "A", "a@x.io", "password1", "")
	if _, _, err := s.SignUp(ctx, "B", "b@x.io", "password1", ""); err != nil {
		t.Fatal(err)
	}

	taken := "b@x.io"
	if _, _, err := s.UpdateProfile(ctx, a, model.ProfilePatch{Email: &taken}); !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("want ErrAlreadyExists on taken email, got %v", err)
	}
}

func TestResetOwnedData(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, ids, recs, reps := newManager(t)

	alice, aliceTok, _ := s.SignUp(ctx, "Alice", "alice@x.io", "password1", "")
	bob, _, _ := s.SignUp(ctx, "Bob", "bob@x.io", "password1", "")
	admin, _, _ := s.SignUp(ctx, "Root", "root@x.io", "password1", "admin")

	seed := func(owner uuid.UUID) {
		_ = recs.Put(ctx, model.ClassificationRecord{ID: uuid.Must(uuid.NewV4()), OwnerID: owner})
		_ = reps.Put(ctx, model.Report{ID: uuid.Must(uuid.NewV4()), OwnerID: owner})
	}
	seed(alice.ID)
	seed(bob.ID)
	ids.byID[alice.ID].ItemsClassified = 3
	ids.byID[alice.ID].ReportsCreated = 2

	// Member resetting someone else is denied; nothing is purged.
	if _, err := s.ResetOwnedData(ctx, alice, bob.ID); !errors.Is(err, errs.ErrPermissionDenied) {
		t.Fatalf("want ErrPermissionDenied, got %v", err)
	}
	if n := len(recs.byOwner[bob.ID]); n != 1 {
		t.Fatalf("denied reset purged records: %d left", n)
	}

	// Member resetting self: records gone, counters zeroed, fresh claim.
	tok, err := s.ResetOwnedData(ctx, alice, uuid.Nil)
	if err != nil || tok == "" {
		t.Fatalf("self reset: %v", err)
	}
	if len(recs.byOwner[alice.ID]) != 0 || len(reps.byOwner[alice.ID]) != 0 {
		t.Fatalf("records survived reset")
	}
	if u := ids.byID[alice.ID]; u.ItemsClassified != 0 || u.ReportsCreated != 0 {
		t.Fatalf("counters survived reset: %+v", u)
	}
	if _, err := s.Authenticate(ctx, aliceTok); !errors.Is(err, errs.ErrClaimExpired) {
		t.Fatalf("pre-reset claim still valid: %v", err)
	}
	if _, err := s.Authenticate(ctx, tok); err != nil {
		t.Fatalf("post-reset claim rejected: %v", err)
	}

	// Admin resetting another tenant: allowed, no token for the admin.
	tok, err = s.ResetOwnedData(ctx, admin, bob.ID)
	if err != nil || tok != "" {
		t.Fatalf("admin reset of other tenant: tok=%q err=%v", tok, err)
	}
	if len(recs.byOwner[bob.ID]) != 0 {
		t.Fatalf("bob's records survived admin reset")
	}
}

func TestCheckExists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, _, _, _ := newManager(t)

	if _, _, err := s.SignUp(ctx, "Alice", "alice@x.io", "password1", ""); err != nil {
		t.Fatal(err)
	}
	ok, err := s.CheckExists(ctx, "ALICE@x.io")
	if err != nil || !ok {
		t.Fatalf("existing email not found: ok=%v err=%v", ok, err)
	}
	ok, err = s.CheckExists(ctx, "ghost@x.io")
	if err != nil || ok {
		t.Fatalf("missing email reported present: ok=%v err=%v", ok, err)
	}
}
