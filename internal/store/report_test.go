package store

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/ecosort/internal/errs"
	"github.com/and161185/ecosort/internal/model"
)

type fakeExporter struct {
	out   []byte
	err   error
	calls int
}

func (f *fakeExporter) Export(context.Context, model.Report, model.ExportFormat) ([]byte, error) {
	f.calls++
	return f.out, f.err
}

func analysisDraft(title string) model.ReportDraft {
	return model.ReportDraft{
		Title: title,
		Type:  model.ReportAnalysis,
		Content: model.ReportContent{
			Analysis: &model.AnalysisContent{Findings: []string{"f1"}, Narrative: "n"},
		},
	}
}

func newReportStore(t *testing.T, ids *fakeIdentities, exp *fakeExporter) (*ReportStore, *fakeRepo[model.Report]) {
	t.Helper()
	repo := &fakeRepo[model.Report]{}
	return NewReportStore(repo, ids, exp, nopLogger()), repo
}

func TestReportCreate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	actor := member(t)
	ids := newFakeIdentities(actor)
	s, repo := newReportStore(t, ids, &fakeExporter{})

	rep, err := s.Create(ctx, actor, analysisDraft("Q1 analysis"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rep.OwnerID != actor.ID || rep.ID == uuid.Nil {
		t.Fatalf("identity fields not assigned: %+v", rep)
	}
	if rep.Status != model.StatusCompleted {
		t.Fatalf("status default want completed, got %s", rep.Status)
	}
	if rep.CreatedAt.IsZero() || !rep.UpdatedAt.Equal(rep.CreatedAt) {
		t.Fatalf("timestamps wrong: %+v", rep)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("report not persisted")
	}
	if ids.byID[actor.ID].ReportsCreated != 1 {
		t.Fatalf("report counter not bumped")
	}
}

func TestReportCreate_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	actor := member(t)
	s, repo := newReportStore(t, newFakeIdentities(actor), &fakeExporter{})

	// Empty title.
	if _, err := s.Create(ctx, actor, analysisDraft("")); !errs.IsValidation(err) {
		t.Fatalf("want validation error on empty title, got %v", err)
	}

	// Content variant not matching the declared type.
	bad := analysisDraft("t")
	bad.Type = model.ReportSummary
	if _, err := s.Create(ctx, actor, bad); !errs.IsValidation(err) {
		t.Fatalf("want validation error on variant mismatch, got %v", err)
	}

	// Two branches set at once.
	twice := analysisDraft("t")
	twice.Content.Summary = &model.SummaryContent{}
	if _, err := s.Create(ctx, actor, twice); !errs.IsValidation(err) {
		t.Fatalf("want validation error on ambiguous variant, got %v", err)
	}

	// Unknown type string.
	unknown := analysisDraft("t")
	unknown.Type = "pivot"
	if _, err := s.Create(ctx, actor, unknown); !errs.IsValidation(err) {
		t.Fatalf("want validation error on unknown type, got %v", err)
	}

	if len(repo.entries) != 0 {
		t.Fatalf("validation failure persisted a report: %d entries", len(repo.entries))
	}
}

func TestReportUpdate_Permissions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	owner, stranger, root := member(t), member(t), adminIdentity(t)
	s, repo := newReportStore(t, newFakeIdentities(owner, stranger, root), &fakeExporter{})

	rep, err := s.Create(ctx, owner, analysisDraft("original"))
	if err != nil {
		t.Fatal(err)
	}

	title := "hijacked"
	if _, err := s.Update(ctx, stranger, rep.ID, model.ReportPatch{Title: &title}); !errors.Is(err, errs.ErrPermissionDenied) {
		t.Fatalf("want ErrPermissionDenied, got %v", err)
	}
	unchanged, _ := repo.Get(ctx, rep.ID)
	if unchanged.Title != "original" {
		t.Fatalf("denied update mutated the report: %+v", unchanged)
	}

	title = "admin edit"
	got, err := s.Update(ctx, root, rep.ID, model.ReportPatch{Title: &title})
	if err != nil || got.Title != "admin edit" {
		t.Fatalf("admin update: %+v err=%v", got, err)
	}
	if !got.UpdatedAt.After(rep.UpdatedAt) && !got.UpdatedAt.Equal(rep.UpdatedAt) {
		t.Fatalf("updatedAt not refreshed")
	}

	if _, err := s.Update(ctx, owner, uuid.Must(uuid.NewV4()), model.ReportPatch{Title: &title}); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestReportUpdate_PatchRules(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	owner := member(t)
	s, _ := newReportStore(t, newFakeIdentities(owner), &fakeExporter{})

	rep, _ := s.Create(ctx, owner, analysisDraft("t"))

	empty := ""
	if _, err := s.Update(ctx, owner, rep.ID, model.ReportPatch{Title: &empty}); !errs.IsValidation(err) {
		t.Fatalf("want validation error on empty title patch, got %v", err)
	}

	// Patched content must keep matching the immutable type.
	mismatch := model.ReportContent{Summary: &model.SummaryContent{}}
	if _, err := s.Update(ctx, owner, rep.ID, model.ReportPatch{Content: &mismatch}); !errs.IsValidation(err) {
		t.Fatalf("want validation error on variant mismatch patch, got %v", err)
	}

	badStatus := model.ReportStatus("archived")
	if _, err := s.Update(ctx, owner, rep.ID, model.ReportPatch{Status: &badStatus}); !errs.IsValidation(err) {
		t.Fatalf("want validation error on unknown status, got %v", err)
	}

	public := true
	tags := []string{"shared"}
	status := model.StatusProcessing
	got, err := s.Update(ctx, owner, rep.ID, model.ReportPatch{IsPublic: &public, Tags: &tags, Status: &status})
	if err != nil || !got.IsPublic || got.Status != model.StatusProcessing || len(got.Tags) != 1 {
		t.Fatalf("patch not applied: %+v err=%v", got, err)
	}
}

func TestReportPublicVisibility(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	owner, stranger := member(t), member(t)
	s, _ := newReportStore(t, newFakeIdentities(owner, stranger), &fakeExporter{})

	draft := analysisDraft("shared")
	draft.IsPublic = true
	rep, _ := s.Create(ctx, owner, draft)

	got, err := s.Get(ctx, stranger, rep.ID)
	if err != nil || got.ID != rep.ID {
		t.Fatalf("public report must be readable by strangers: %v", err)
	}

	title := "defaced"
	if _, err := s.Update(ctx, stranger, rep.ID, model.ReportPatch{Title: &title}); !errors.Is(err, errs.ErrPermissionDenied) {
		t.Fatalf("public read must not grant write: %v", err)
	}
	if err := s.Delete(ctx, stranger, rep.ID); !errors.Is(err, errs.ErrPermissionDenied) {
		t.Fatalf("public read must not grant delete: %v", err)
	}
}

func TestReportExport_CounterSemantics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	owner := member(t)
	exp := &fakeExporter{out: []byte("bytes")}
	s, repo := newReportStore(t, newFakeIdentities(owner), exp)

	rep, _ := s.Create(ctx, owner, analysisDraft("t"))

	out, err := s.Export(ctx, owner, rep.ID, model.FormatPDF)
	if err != nil || string(out) != "bytes" {
		t.Fatalf("Export: %v", err)
	}
	got, _ := repo.Get(ctx, rep.ID)
	if got.DownloadCount != 1 {
		t.Fatalf("downloadCount want 1, got %d", got.DownloadCount)
	}

	// Failure: retryable error, counter untouched.
	exp.err = errors.New("renderer crashed")
	if _, err := s.Export(ctx, owner, rep.ID, model.FormatPDF); !errors.Is(err, errs.ErrCollaboratorTimeout) {
		t.Fatalf("want ErrCollaboratorTimeout, got %v", err)
	}
	got, _ = repo.Get(ctx, rep.ID)
	if got.DownloadCount != 1 {
		t.Fatalf("failed export moved the counter: %d", got.DownloadCount)
	}
}
