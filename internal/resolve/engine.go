package resolve

import (
	"github.com/rotisserie/eris"

	"github.com/welda-labs/compintel/internal/model"
)

// DefaultReviewThreshold is the fuzzy score below which a candidate is
// flagged for manual review. At or above it the candidate is a strong
// recommendation, though still never auto-accepted.
const DefaultReviewThreshold = 90

// ErrEmptyName is returned when a partner name normalizes to nothing.
var ErrEmptyName = eris.New("resolve: empty partner name")

// Resolution is the outcome of resolving one partner name. A fuzzy
// candidate is advisory only: Matched is true solely for exact hits.
type Resolution struct {
	PartnerName    string
	NormalizedName string
	Matched        bool
	Entry          model.RegistryEntry // registry hit when Matched
	Candidate      model.RegistryEntry // best fuzzy candidate otherwise
	Score          int
	NeedsReview    bool
}

type candidate struct {
	norm  string
	entry model.RegistryEntry
}

// Engine resolves partner names against a fixed registry snapshot.
type Engine struct {
	exact           map[string]model.RegistryEntry
	candidates      []candidate
	reviewThreshold int
}

// NewEngine indexes the registry for resolution. When several entries
// normalize to the same name the first one wins. A non-positive
// threshold falls back to DefaultReviewThreshold.
func NewEngine(entries []model.RegistryEntry, reviewThreshold int) *Engine {
	if reviewThreshold <= 0 {
		reviewThreshold = DefaultReviewThreshold
	}
	e := &Engine{
		exact:           make(map[string]model.RegistryEntry, len(entries)),
		candidates:      make([]candidate, 0, len(entries)),
		reviewThreshold: reviewThreshold,
	}
	for _, entry := range entries {
		norm := Normalize(entry.CorpName)
		if norm == "" {
			continue
		}
		if _, ok := e.exact[norm]; !ok {
			e.exact[norm] = entry
			e.candidates = append(e.candidates, candidate{norm: norm, entry: entry})
		}
	}
	return e
}

// Size returns the number of distinct normalized registry names.
func (e *Engine) Size() int {
	return len(e.candidates)
}

// Resolve matches one partner name. Exact normalized hits match with
// score 100. Otherwise the single best fuzzy candidate is reported,
// flagged for review when its score falls below the threshold. Ties
// on score break toward the smaller edit distance, then the smaller
// corp code.
func (e *Engine) Resolve(partnerName string) (Resolution, error) {
	norm := Normalize(partnerName)
	if norm == "" {
		return Resolution{}, ErrEmptyName
	}

	res := Resolution{PartnerName: partnerName, NormalizedName: norm}

	if entry, ok := e.exact[norm]; ok {
		res.Matched = true
		res.Entry = entry
		res.Score = 100
		return res, nil
	}

	bestScore := -1
	bestDist := 0
	var best model.RegistryEntry
	for _, c := range e.candidates {
		score := Score(norm, c.norm)
		if score < bestScore {
			continue
		}
		dist := Distance(norm, c.norm)
		if score > bestScore ||
			dist < bestDist ||
			(dist == bestDist && c.entry.CorpCode < best.CorpCode) {
			bestScore = score
			bestDist = dist
			best = c.entry
		}
	}

	if bestScore >= 0 {
		res.Candidate = best
		res.Score = bestScore
		res.NeedsReview = bestScore < e.reviewThreshold
	} else {
		// No candidates at all still needs a human look.
		res.NeedsReview = true
	}
	return res, nil
}
