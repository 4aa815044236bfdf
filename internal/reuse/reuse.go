// Package reuse derives the reusability score and label for a classified
// item. The derivation is pure: the store re-runs it on every create and
// discards whatever the caller supplied.
package reuse

import (
	"strings"

	"github.com/and161185/ecosort/internal/model"
)

const (
	base           = 70
	hazardPenalty  = 15
	batteryPenalty = 30
	cableBonus     = 20
	deviceBonus    = 10
)

// Label thresholds over the clamped score.
const (
	highlyReusableMin = 70
	moderateMin       = 40
)

// Score computes the reusability score for a category and its hazardous
// material set. The materials are a set: repeated entries count once.
// Category matching is case-insensitive substring containment; every
// matching adjustment applies.
func Score(category string, hazardousMaterials []string) int {
	distinct := make(map[string]struct{}, len(hazardousMaterials))
	for _, m := range hazardousMaterials {
		distinct[m] = struct{}{}
	}

	score := base
	score -= hazardPenalty * len(distinct)

	c := strings.ToLower(category)
	if strings.Contains(c, "battery") {
		score -= batteryPenalty
	}
	if strings.Contains(c, "cable") || strings.Contains(c, "accessory") {
		score += cableBonus
	}
	if strings.Contains(c, "phone") || strings.Contains(c, "computer") {
		score += deviceBonus
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// Label buckets a score into its reusability label.
func Label(score int) model.ReusabilityLabel {
	switch {
	case score >= highlyReusableMin:
		return model.HighlyReusable
	case score >= moderateMin:
		return model.Moderate
	default:
		return model.NonReusable
	}
}

// Derive returns both score and label for the given inputs.
func Derive(category string, hazardousMaterials []string) (int, model.ReusabilityLabel) {
	s := Score(category, hazardousMaterials)
	return s, Label(s)
}
