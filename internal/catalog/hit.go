package catalog

import "strings"

// Hit is one piece of evidence that a normalized name denotes an ingredient.
type Hit struct {
	Ingredient     *Concept
	VocabularyID   string
	ConceptClassID string
	// RelationshipID is empty for evidence that does not come from a relationship.
	RelationshipID string
	Synonym        bool
	Score          int
}

// Same reports whether two hits carry the same evidence. The score is ignored
// and ingredients are compared by concept id.
func (h Hit) Same(o Hit) bool {
	return h.Ingredient.ID == o.Ingredient.ID &&
		h.VocabularyID == o.VocabularyID &&
		h.ConceptClassID == o.ConceptClassID &&
		h.RelationshipID == o.RelationshipID &&
		h.Synonym == o.Synonym
}

// Score bands do not overlap: no combination of lower bands reaches the
// smallest step of a higher one.
const (
	scoreNonOrphan = 200000
	scoreOrphan    = 100000

	scorePreferredVocabulary = 20000
	scoreOtherVocabulary     = 10000

	scorePrimaryName = 20
	scoreSynonym     = 10
)

var relationshipScores = []struct {
	match func(string) bool
	score int
}{
	{func(r string) bool { return r == "Concept replaced by" }, 4000},
	{func(r string) bool { return strings.HasSuffix(r, "RxNorm eq") }, 3000},
	{func(r string) bool { return r == "Form of" }, 2000},
	{func(r string) bool { return r == "Maps to" }, 1000},
}

var conceptClassScores = map[string]int{
	"Ingredient":          800,
	"Precise Ingredient":  700,
	"Substance":           600,
	"ATC 5th":             500,
	"ATC 4th":             400,
	"Pharma/Biol Product": 300,
	"11-digit NDC":        200,
	"9-digit NDC":         100,
}

// Score computes the rank of a hit under settings. It depends on nothing else.
func Score(h Hit, settings Settings) int {
	score := 0

	if settings.PreferNonOrphans {
		if h.Ingredient.Orphan() {
			score += scoreOrphan
		} else {
			score += scoreNonOrphan
		}
	}

	if settings.VocabularyPreference != "" {
		fromRxNorm := h.VocabularyID == VocabularyRxNorm
		if (settings.VocabularyPreference == VocabularyRxNorm) == fromRxNorm {
			score += scorePreferredVocabulary
		} else {
			score += scoreOtherVocabulary
		}
	}

	for _, rel := range relationshipScores {
		if rel.match(h.RelationshipID) {
			score += rel.score
			break
		}
	}

	score += conceptClassScores[h.ConceptClassID]

	if h.Synonym {
		score += scoreSynonym
	} else {
		score += scorePrimaryName
	}
	return score
}
