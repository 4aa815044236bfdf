package stats

import (
	"fmt"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/ecosort/internal/model"
)

func rec(category string, hazmats []string, createdAt time.Time) model.ClassificationRecord {
	return model.ClassificationRecord{
		ID:                 uuid.Must(uuid.NewV4()),
		Category:           category,
		HazardousMaterials: hazmats,
		CreatedAt:          createdAt,
	}
}

func TestCompute_Empty(t *testing.T) {
	t.Parallel()
	s := Compute(nil)
	if s.Total != 0 || s.HazardousCount != 0 || len(s.CategoryHistogram) != 0 || len(s.RecentActivity) != 0 {
		t.Fatalf("empty input: %+v", s)
	}
}

func TestCompute_HistogramSumsToTotal(t *testing.T) {
	t.Parallel()

	base := time.Now()
	var records []model.ClassificationRecord
	for i := 0; i < 13; i++ {
		records = append(records, rec(fmt.Sprintf("cat-%d", i%4), nil, base.Add(time.Duration(i)*time.Minute)))
	}
	s := Compute(records)

	sum := 0
	for _, n := range s.CategoryHistogram {
		sum += n
	}
	if sum != s.Total || s.Total != 13 {
		t.Fatalf("histogram sum %d != total %d", sum, s.Total)
	}
}

func TestCompute_HazardousCount(t *testing.T) {
	t.Parallel()

	now := time.Now()
	records := []model.ClassificationRecord{
		rec("Battery", []string{"Lithium"}, now),
		rec("Cable", nil, now),
		rec("Display", []string{"Mercury", "Lead"}, now),
		rec("Cable", []string{}, now),
	}
	if s := Compute(records); s.HazardousCount != 2 {
		t.Fatalf("hazardousCount want 2, got %d", s.HazardousCount)
	}
}

func TestCompute_RecentActivity(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	var records []model.ClassificationRecord
	for i := 0; i < 8; i++ {
		records = append(records, rec("c", nil, base.Add(time.Duration(i)*time.Hour)))
	}
	s := Compute(records)

	if len(s.RecentActivity) != RecentLimit {
		t.Fatalf("recent size want %d, got %d", RecentLimit, len(s.RecentActivity))
	}
	for i := 0; i < len(s.RecentActivity)-1; i++ {
		if s.RecentActivity[i].CreatedAt.Before(s.RecentActivity[i+1].CreatedAt) {
			t.Fatalf("recent not newest-first at %d", i)
		}
	}
	if !s.RecentActivity[0].CreatedAt.Equal(base.Add(7 * time.Hour)) {
		t.Fatalf("newest record missing from recent activity")
	}

	// Input order preserved.
	if !records[0].CreatedAt.Equal(base) {
		t.Fatalf("input slice mutated")
	}
}
