package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/ecosort/internal/errs"
	"github.com/and161185/ecosort/internal/model"
	"github.com/and161185/ecosort/internal/repository"
)

// ReportRepo implements RecordRepository[Report] using PostgreSQL.
type ReportRepo struct{ db *DB }

var _ repository.RecordRepository[model.Report] = (*ReportRepo)(nil)

// NewReportRepo constructs a report repository.
func NewReportRepo(db *DB) *ReportRepo { return &ReportRepo{db: db} }

const reportColumns = `id, owner_id, title, type, content, status, tags, is_public, download_count, created_at, updated_at`

// Put inserts a new report.
func (r *ReportRepo) Put(ctx context.Context, rep model.Report) error {
	content, err := json.Marshal(rep.Content)
	if err != nil {
		return err
	}
	tags, err := json.Marshal(rep.Tags)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO reports (id, owner_id, title, type, content, status, tags, is_public, download_count, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err = r.db.Pool.Exec(ctx, q,
		rep.ID, rep.OwnerID, rep.Title, string(rep.Type), content,
		string(rep.Status), tags, rep.IsPublic, rep.DownloadCount, rep.CreatedAt, rep.UpdatedAt)
	return err
}

// Replace rewrites the report's mutable columns.
func (r *ReportRepo) Replace(ctx context.Context, rep model.Report) error {
	content, err := json.Marshal(rep.Content)
	if err != nil {
		return err
	}
	tags, err := json.Marshal(rep.Tags)
	if err != nil {
		return err
	}
	const q = `
UPDATE reports
SET title=$2, content=$3, status=$4, tags=$5, is_public=$6, download_count=$7, updated_at=$8
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q,
		rep.ID, rep.Title, content, string(rep.Status), tags, rep.IsPublic, rep.DownloadCount, rep.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Get returns a single report by id.
func (r *ReportRepo) Get(ctx context.Context, id uuid.UUID) (model.Report, error) {
	const q = `SELECT ` + reportColumns + ` FROM reports WHERE id=$1`
	rep, err := scanReport(r.db.Pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Report{}, errs.ErrNotFound
	}
	return rep, err
}

// Delete removes a report by id.
func (r *ReportRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM reports WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ListByOwner returns the owner's reports in insertion order.
func (r *ReportRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Report, error) {
	const q = `SELECT ` + reportColumns + ` FROM reports WHERE owner_id=$1 ORDER BY seq ASC`
	return r.list(ctx, q, ownerID)
}

// ListAll returns every report in insertion order.
func (r *ReportRepo) ListAll(ctx context.Context) ([]model.Report, error) {
	const q = `SELECT ` + reportColumns + ` FROM reports ORDER BY seq ASC`
	return r.list(ctx, q)
}

func (r *ReportRepo) list(ctx context.Context, q string, args ...any) ([]model.Report, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}

// PurgeOwner removes every report of the owner.
func (r *ReportRepo) PurgeOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	const q = `DELETE FROM reports WHERE owner_id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, ownerID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanReport(row pgx.Row) (model.Report, error) {
	var (
		rep     model.Report
		typ     string
		content []byte
		status  string
		tags    []byte
	)
	err := row.Scan(&rep.ID, &rep.OwnerID, &rep.Title, &typ, &content, &status,
		&tags, &rep.IsPublic, &rep.DownloadCount, &rep.CreatedAt, &rep.UpdatedAt)
	if err != nil {
		return model.Report{}, err
	}
	if err := json.Unmarshal(content, &rep.Content); err != nil {
		return model.Report{}, err
	}
	if err := json.Unmarshal(tags, &rep.Tags); err != nil {
		return model.Report{}, err
	}
	rep.Type = model.ReportType(typ)
	rep.Status = model.ReportStatus(status)
	return rep, nil
}
