package extract

import (
	"strings"

	"github.com/xxxsen/mrecall/internal/model"
)

var strongTerms = []string{
	"always", "never", "must", "critical", "important",
	"exactly", "perfect", "wrong", "incorrect",
}

var hedgeTerms = []string{
	"maybe", "perhaps", "might", "could", "unsure",
}

// Score converts a producer-reported 0-100 confidence into the stored [0,1]
// score. Pure function: base plus a per-type boost, plus a bonus when the
// content uses strong language, minus a penalty when it hedges. Bonus and
// penalty can both apply.
func Score(rawConfidence int, typ model.MemoryType, content string) float64 {
	base := float64(rawConfidence) / 100

	var boost float64
	switch typ {
	case model.MemoryTypeCorrection, model.MemoryTypeDecision, model.MemoryTypeCommitment:
		boost = 0.15
	case model.MemoryTypeInsight, model.MemoryTypeLearning, model.MemoryTypeConfidence:
		boost = 0.10
	default:
		boost = 0.05
	}

	lowered := strings.ToLower(content)
	if containsAny(lowered, strongTerms) {
		boost += 0.10
	}
	if containsAny(lowered, hedgeTerms) {
		boost -= 0.10
	}

	result := base + boost
	if result < 0 {
		return 0
	}
	if result > 1 {
		return 1
	}
	return result
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
