// Package stats derives dashboard aggregates from a visible record set.
// Every call recomputes from scratch; there is no cached state.
package stats

import (
	"sort"

	"github.com/and161185/ecosort/internal/model"
)

// RecentLimit is how many records land in RecentActivity.
const RecentLimit = 5

// Summary is the aggregate view over one actor's visible records.
type Summary struct {
	Total             int                          `json:"total"`
	HazardousCount    int                          `json:"hazardousCount"`
	CategoryHistogram map[string]int               `json:"categoryHistogram"`
	RecentActivity    []model.ClassificationRecord `json:"recentActivity"`
}

// Compute folds the record set into a Summary. The input is not modified.
func Compute(records []model.ClassificationRecord) Summary {
	s := Summary{
		Total:             len(records),
		CategoryHistogram: map[string]int{},
	}
	for i := range records {
		if len(records[i].HazardousMaterials) > 0 {
			s.HazardousCount++
		}
		s.CategoryHistogram[records[i].Category]++
	}

	recent := append([]model.ClassificationRecord(nil), records...)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > RecentLimit {
		recent = recent[:RecentLimit]
	}
	s.RecentActivity = recent
	return s
}
