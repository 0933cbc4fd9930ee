package match

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/width"

	"github.com/polimatch/polimatch/internal/model"
)

// Weights holds the rule-based scoring weights. The total is capped at 1.0.
type Weights struct {
	ExactName      float64
	NormalizedName float64
	Party          float64
	District       float64
}

// DefaultWeights returns the standard scoring weights.
func DefaultWeights() Weights {
	return Weights{
		ExactName:      0.5,
		NormalizedName: 0.3,
		Party:          0.3,
		District:       0.2,
	}
}

// ScoredPolitician pairs a canonical identity with its rule-based score
// against one candidate.
type ScoredPolitician struct {
	Politician model.Politician
	Score      float64
}

// ScoreInput carries the candidate-side fields the scorer compares against a
// canonical identity.
type ScoreInput struct {
	Name           string
	NormalizedName string
	Party          string
	District       string
}

// Score computes the weighted rule-based match score between a candidate and
// one canonical identity. Deterministic, capped at 1.0.
func Score(input ScoreInput, p model.Politician, w Weights) float64 {
	score := 0.0

	switch {
	case input.Name != "" && input.Name == p.Name:
		score += w.ExactName
	case input.NormalizedName != "" &&
		(input.NormalizedName == p.NormalizedName || input.NormalizedName == Normalize(p.Name)):
		score += w.NormalizedName
	}

	if partyMatches(input.Party, p.Party) {
		score += w.Party
	}

	if input.District != "" && foldTrim(input.District) == foldTrim(p.District) {
		score += w.District
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// Rank scores each politician against the candidate and orders the result
// deterministically: score descending, then edit distance between the
// normalized names ascending, then politician id ascending.
func Rank(input ScoreInput, politicians []model.Politician, w Weights) []ScoredPolitician {
	scored := make([]ScoredPolitician, 0, len(politicians))
	for _, p := range politicians {
		scored = append(scored, ScoredPolitician{
			Politician: p,
			Score:      Score(input, p, w),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		di := levenshtein.ComputeDistance(input.NormalizedName, scored[i].Politician.NormalizedName)
		dj := levenshtein.ComputeDistance(input.NormalizedName, scored[j].Politician.NormalizedName)
		if di != dj {
			return di < dj
		}
		return scored[i].Politician.ID < scored[j].Politician.ID
	})

	return scored
}

// partyMatches reports whether the candidate's raw party string resolves to
// the canonical party. Comparison is width-folded and whitespace-trimmed;
// containment covers abbreviated party names.
func partyMatches(raw, canonical string) bool {
	a := foldTrim(raw)
	b := foldTrim(canonical)
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}

func foldTrim(s string) string {
	return strings.TrimSpace(width.Fold.String(s))
}
