package access

import (
	"testing"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/ecosort/internal/model"
)

func TestAllow(t *testing.T) {
	t.Parallel()

	ownerID := uuid.Must(uuid.NewV4())
	owner := &model.Identity{ID: ownerID, Role: model.RoleMember}
	stranger := &model.Identity{ID: uuid.Must(uuid.NewV4()), Role: model.RoleMember}
	admin := &model.Identity{ID: uuid.Must(uuid.NewV4()), Role: model.RoleAdmin}

	cases := []struct {
		name   string
		actor  *model.Identity
		public bool
		op     Op
		want   bool
	}{
		{"owner read", owner, false, OpRead, true},
		{"owner write", owner, false, OpWrite, true},
		{"owner delete", owner, false, OpDelete, true},
		{"admin write foreign", admin, false, OpWrite, true},
		{"admin delete foreign", admin, false, OpDelete, true},
		{"stranger read private", stranger, false, OpRead, false},
		{"stranger read public", stranger, true, OpRead, true},
		{"stranger write public", stranger, true, OpWrite, false},
		{"stranger delete public", stranger, true, OpDelete, false},
		{"nil actor", nil, true, OpRead, false},
	}
	for _, tc := range cases {
		if got := Allow(tc.actor, ownerID, tc.public, tc.op); got != tc.want {
			t.Errorf("%s: Allow=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestAllowRes(t *testing.T) {
	t.Parallel()

	ownerID := uuid.Must(uuid.NewV4())
	stranger := &model.Identity{ID: uuid.Must(uuid.NewV4()), Role: model.RoleMember}

	pub := model.Report{ID: uuid.Must(uuid.NewV4()), OwnerID: ownerID, IsPublic: true}
	if !AllowRes(stranger, pub, OpRead) {
		t.Fatalf("public report must be readable by anyone")
	}
	if AllowRes(stranger, pub, OpWrite) {
		t.Fatalf("public report must not be writable by strangers")
	}

	rec := model.ClassificationRecord{ID: uuid.Must(uuid.NewV4()), OwnerID: ownerID}
	if AllowRes(stranger, rec, OpRead) {
		t.Fatalf("classification records are never public")
	}
}
