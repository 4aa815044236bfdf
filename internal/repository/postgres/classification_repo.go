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

// ClassificationRepo implements RecordRepository[ClassificationRecord]
// using PostgreSQL. The seq column preserves insertion order for the
// store's stable tie-break.
type ClassificationRepo struct{ db *DB }

var _ repository.RecordRepository[model.ClassificationRecord] = (*ClassificationRepo)(nil)

// NewClassificationRepo constructs a classification record repository.
func NewClassificationRepo(db *DB) *ClassificationRepo { return &ClassificationRepo{db: db} }

const classificationColumns = `id, owner_id, item_name, category, hazardous_materials, confidence, safety_level, reusability_score, reusability_label, recommendations, lat, lng, created_at`

// Put inserts a new record.
func (r *ClassificationRepo) Put(ctx context.Context, rec model.ClassificationRecord) error {
	hazmats, err := json.Marshal(rec.HazardousMaterials)
	if err != nil {
		return err
	}
	recs, err := json.Marshal(rec.Recommendations)
	if err != nil {
		return err
	}
	var lat, lng *float64
	if rec.Location != nil {
		lat, lng = &rec.Location.Lat, &rec.Location.Lng
	}
	const q = `
INSERT INTO classification_records (id, owner_id, item_name, category, hazardous_materials, confidence, safety_level, reusability_score, reusability_label, recommendations, lat, lng, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err = r.db.Pool.Exec(ctx, q,
		rec.ID, rec.OwnerID, rec.ItemName, rec.Category, hazmats, rec.Confidence,
		string(rec.SafetyLevel), rec.ReusabilityScore, string(rec.ReusabilityLabel),
		recs, lat, lng, rec.CreatedAt)
	return err
}

// Replace rewrites the record's mutable columns. Classification records are
// immutable in the current design, but the repository honors the full
// storage contract.
func (r *ClassificationRepo) Replace(ctx context.Context, rec model.ClassificationRecord) error {
	hazmats, err := json.Marshal(rec.HazardousMaterials)
	if err != nil {
		return err
	}
	recs, err := json.Marshal(rec.Recommendations)
	if err != nil {
		return err
	}
	var lat, lng *float64
	if rec.Location != nil {
		lat, lng = &rec.Location.Lat, &rec.Location.Lng
	}
	const q = `
UPDATE classification_records
SET item_name=$2, category=$3, hazardous_materials=$4, confidence=$5, safety_level=$6, reusability_score=$7, reusability_label=$8, recommendations=$9, lat=$10, lng=$11
WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q,
		rec.ID, rec.ItemName, rec.Category, hazmats, rec.Confidence, string(rec.SafetyLevel),
		rec.ReusabilityScore, string(rec.ReusabilityLabel), recs, lat, lng)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// Get returns a single record by id.
func (r *ClassificationRepo) Get(ctx context.Context, id uuid.UUID) (model.ClassificationRecord, error) {
	const q = `SELECT ` + classificationColumns + ` FROM classification_records WHERE id=$1`
	rec, err := scanClassification(r.db.Pool.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ClassificationRecord{}, errs.ErrNotFound
	}
	return rec, err
}

// Delete removes a record by id.
func (r *ClassificationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM classification_records WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// ListByOwner returns the owner's records in insertion order.
func (r *ClassificationRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.ClassificationRecord, error) {
	const q = `SELECT ` + classificationColumns + ` FROM classification_records WHERE owner_id=$1 ORDER BY seq ASC`
	return r.list(ctx, q, ownerID)
}

// ListAll returns every record in insertion order.
func (r *ClassificationRepo) ListAll(ctx context.Context) ([]model.ClassificationRecord, error) {
	const q = `SELECT ` + classificationColumns + ` FROM classification_records ORDER BY seq ASC`
	return r.list(ctx, q)
}

func (r *ClassificationRepo) list(ctx context.Context, q string, args ...any) ([]model.ClassificationRecord, error) {
	rows, err := r.db.Pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ClassificationRecord
	for rows.Next() {
		rec, err := scanClassification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PurgeOwner removes every record of the owner.
func (r *ClassificationRepo) PurgeOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	const q = `DELETE FROM classification_records WHERE owner_id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, ownerID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func scanClassification(row pgx.Row) (model.ClassificationRecord, error) {
	var (
		rec      model.ClassificationRecord
		hazmats  []byte
		recs     []byte
		safety   string
		label    string
		lat, lng *float64
	)
	err := row.Scan(&rec.ID, &rec.OwnerID, &rec.ItemName, &rec.Category, &hazmats,
		&rec.Confidence, &safety, &rec.ReusabilityScore, &label, &recs, &lat, &lng, &rec.CreatedAt)
	if err != nil {
		return model.ClassificationRecord{}, err
	}
	if err := json.Unmarshal(hazmats, &rec.HazardousMaterials); err != nil {
		return model.ClassificationRecord{}, err
	}
	if err := json.Unmarshal(recs, &rec.Recommendations); err != nil {
		return model.ClassificationRecord{}, err
	}
	rec.SafetyLevel = model.SafetyLevel(safety)
	rec.ReusabilityLabel = model.ReusabilityLabel(label)
	if lat != nil && lng != nil {
		rec.Location = &model.GeoPoint{Lat: *lat, Lng: *lng}
	}
	return rec, nil
}
