package store

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/ecosort/internal/access"
	"github.com/and161185/ecosort/internal/collab"
	"github.com/and161185/ecosort/internal/errs"
	"github.com/and161185/ecosort/internal/model"
	"github.com/and161185/ecosort/internal/repository"
)

// ReportStore owns reports: create/update with the tagged-content check,
// plus the export flow with its download counter.
type ReportStore struct {
	*Core[model.Report]

	identities repository.IdentityRepository
	exporter   collab.Exporter
	validate   *validator.Validate
	log        *zap.Logger
}

// NewReportStore wires the store.
func NewReportStore(
	repo repository.RecordRepository[model.Report],
	identities repository.IdentityRepository,
	exporter collab.Exporter,
	log *zap.Logger,
) *ReportStore {
	return &ReportStore{
		Core:       NewCore(repo),
		identities: identities,
		exporter:   exporter,
		validate:   validator.New(),
		log:        log,
	}
}

// Create validates the draft, checks that the content variant matches the
// declared type, and commits in one step.
func (s *ReportStore) Create(ctx context.Context, actor *model.Identity, draft model.ReportDraft) (model.Report, error) {
	if actor == nil {
		return model.Report{}, errs.ErrUnauthorized
	}
	if err := checkDraft(s.validate, draft); err != nil {
		return model.Report{}, err
	}
	if got := draft.Content.Branch(); got != draft.Type {
		return model.Report{}, errs.Invalid("content", fmt.Sprintf("content variant %q does not match report type %q", got, draft.Type))
	}

	id, err := uuid.NewV4()
	if err != nil {
		return model.Report{}, err
	}
	status := draft.Status
	if status == "" {
		status = model.StatusCompleted
	}
	now := s.now()
	rep := model.Report{
		ID:        id,
		OwnerID:   actor.ID,
		Title:     draft.Title,
		Type:      draft.Type,
		Content:   draft.Content,
		Status:    status,
		Tags:      draft.Tags,
		IsPublic:  draft.IsPublic,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Put(ctx, rep); err != nil {
		return model.Report{}, err
	}

	s.bumpCounter(ctx, actor.ID)
	return rep, nil
}

// Update applies the patch if the actor owns the report or is an admin.
// The report type is immutable; a patched content variant must still match it.
func (s *ReportStore) Update(ctx context.Context, actor *model.Identity, id uuid.UUID, patch model.ReportPatch) (model.Report, error) {
	if actor == nil {
		return model.Report{}, errs.ErrUnauthorized
	}
	rep, err := s.repo.Get(ctx, id)
	if err != nil {
		return model.Report{}, err
	}
	if !access.AllowRes(actor, rep, access.OpWrite) {
		return model.Report{}, errs.ErrPermissionDenied
	}

	if patch.Title != nil {
		if *patch.Title == "" {
			return model.Report{}, errs.Invalid("title", "required")
		}
		rep.Title = *patch.Title
	}
	if patch.Content != nil {
		if got := patch.Content.Branch(); got != rep.Type {
			return model.Report{}, errs.Invalid("content", fmt.Sprintf("content variant %q does not match report type %q", got, rep.Type))
		}
		rep.Content = *patch.Content
	}
	if patch.Status != nil {
		switch *patch.Status {
		case model.StatusProcessing, model.StatusCompleted, model.StatusFailed:
			rep.Status = *patch.Status
		default:
			return model.Report{}, errs.Invalid("status", "unknown status")
		}
	}
	if patch.Tags != nil {
		rep.Tags = *patch.Tags
	}
	if patch.IsPublic != nil {
		rep.IsPublic = *patch.IsPublic
	}

	rep.UpdatedAt = s.now()
	if err := s.repo.Replace(ctx, rep); err != nil {
		return model.Report{}, err
	}
	return rep, nil
}

// Export renders the report through the exporter collaborator. The download
// counter moves only after the exporter confirmed success; a failure leaves
// the report untouched and is retryable.
func (s *ReportStore) Export(ctx context.Context, actor *model.Identity, id uuid.UUID, format model.ExportFormat) ([]byte, error) {
	rep, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	out, err := s.exporter.Export(ctx, rep, format)
	if err != nil {
		return nil, fmt.Errorf("%w: export: %w", errs.ErrCollaboratorTimeout, err)
	}

	rep.DownloadCount++
	if err := s.repo.Replace(ctx, rep); err != nil {
		// The caller still gets the bytes; only the counter is stale.
		s.log.Warn("export: download counter not persisted", zap.Error(err))
	}
	return out, nil
}

// bumpCounter increments the owner's report counter. Best-effort, same as
// the classification side.
func (s *ReportStore) bumpCounter(ctx context.Context, ownerID uuid.UUID) {
	owner, err := s.identities.GetByID(ctx, ownerID)
	if err != nil {
		s.log.Warn("counter bump: load identity", zap.Error(err))
		return
	}
	owner.ReportsCreated++
	if err := s.identities.Update(ctx, owner); err != nil {
		s.log.Warn("counter bump: update identity", zap.Error(err))
	}
}
