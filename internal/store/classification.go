package store

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/ecosort/internal/collab"
	"github.com/and161185/ecosort/internal/errs"
	"github.com/and161185/ecosort/internal/model"
	"github.com/and161185/ecosort/internal/repository"
	"github.com/and161185/ecosort/internal/reuse"
	"github.com/and161185/ecosort/internal/stats"
)

// ClassificationStore owns classification records. Score and label are
// derived on every create; caller-supplied values have no way in (drafts do
// not carry them).
type ClassificationStore struct {
	*Core[model.ClassificationRecord]

	identities repository.IdentityRepository
	classifier collab.Classifier
	locator    collab.Locator
	validate   *validator.Validate
	log        *zap.Logger
}

// NewClassificationStore wires the store. locator may be nil.
func NewClassificationStore(
	repo repository.RecordRepository[model.ClassificationRecord],
	identities repository.IdentityRepository,
	classifier collab.Classifier,
	locator collab.Locator,
	log *zap.Logger,
) *ClassificationStore {
	return &ClassificationStore{
		Core:       NewCore(repo),
		identities: identities,
		classifier: classifier,
		locator:    locator,
		validate:   validator.New(),
		log:        log,
	}
}

// Create validates the draft, derives score and label, and commits in one
// step. Nothing is persisted when validation fails.
func (s *ClassificationStore) Create(ctx context.Context, actor *model.Identity, draft model.ClassificationDraft) (model.ClassificationRecord, error) {
	if actor == nil {
		return model.ClassificationRecord{}, errs.ErrUnauthorized
	}
	if err := checkDraft(s.validate, draft); err != nil {
		return model.ClassificationRecord{}, err
	}
	draft.HazardousMaterials = dedupeMaterials(draft.HazardousMaterials)

	id, err := uuid.NewV4()
	if err != nil {
		return model.ClassificationRecord{}, err
	}
	score, label := reuse.Derive(draft.Category, draft.HazardousMaterials)
	rec := model.ClassificationRecord{
		ID:                 id,
		OwnerID:            actor.ID,
		ItemName:           draft.ItemName,
		Category:           draft.Category,
		HazardousMaterials: draft.HazardousMaterials,
		Confidence:         draft.Confidence,
		SafetyLevel:        draft.SafetyLevel,
		ReusabilityScore:   score,
		ReusabilityLabel:   label,
		Recommendations:    draft.Recommendations,
		Location:           draft.Location,
		CreatedAt:          s.now(),
	}
	if err := s.repo.Put(ctx, rec); err != nil {
		return model.ClassificationRecord{}, err
	}

	s.bumpCounter(ctx, actor.ID)
	return rec, nil
}

// ClassifyAndCreate runs the classifier collaborator on the image and logs
// the outcome as a record. A failing classifier surfaces as a retryable
// CollaboratorTimeout with no store mutation; a failing locator only drops
// the location annotation.
func (s *ClassificationStore) ClassifyAndCreate(ctx context.Context, actor *model.Identity, image []byte, annotateLocation bool) (model.ClassificationRecord, error) {
	if actor == nil {
		return model.ClassificationRecord{}, errs.ErrUnauthorized
	}
	out, err := s.classifier.Classify(ctx, image)
	if err != nil {
		return model.ClassificationRecord{}, fmt.Errorf("%w: classify: %w", errs.ErrCollaboratorTimeout, err)
	}

	draft := model.ClassificationDraft{
		ItemName:           out.ItemName,
		Category:           out.Category,
		HazardousMaterials: out.HazardousMaterials,
		Confidence:         out.Confidence,
		SafetyLevel:        out.SafetyLevel,
		Recommendations:    out.Recommendations,
	}
	if annotateLocation && s.locator != nil {
		if pt, err := s.locator.Locate(ctx); err == nil {
			draft.Location = &pt
		} else {
			s.log.Warn("locate failed, record saved without location", zap.Error(err))
		}
	}
	return s.Create(ctx, actor, draft)
}

// Stats recomputes the aggregate view over the actor-visible record set.
func (s *ClassificationStore) Stats(ctx context.Context, actor *model.Identity) (stats.Summary, error) {
	recs, err := s.List(ctx, actor)
	if err != nil {
		return stats.Summary{}, err
	}
	return stats.Compute(recs), nil
}

// dedupeMaterials collapses repeats, keeping first-occurrence order. The
// material list is a set: duplicates must not stack the hazard penalty and
// must not be persisted.
func dedupeMaterials(in []string) []string {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, m := range in {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// bumpCounter increments the owner's classified-items counter. Best-effort:
// the record is already committed and counters are derived data.
func (s *ClassificationStore) bumpCounter(ctx context.Context, ownerID uuid.UUID) {
	owner, err := s.identities.GetByID(ctx, ownerID)
	if err != nil {
		s.log.Warn("counter bump: load identity", zap.Error(err))
		return
	}
	owner.ItemsClassified++
	if err := s.identities.Update(ctx, owner); err != nil {
		s.log.Warn("counter bump: update identity", zap.Error(err))
	}
}
