package catalog

import "strings"

const (
	VocabularyRxNorm = "RxNorm"
	VocabularyATC    = "ATC"

	ClassIngredient = "Ingredient"
)

// Settings is the preference snapshot consulted by Score. It is captured once
// after loading and passed explicitly to Recalculate.
type Settings struct {
	// PreferNonOrphans enables the orphan band of the score.
	PreferNonOrphans bool
	// VocabularyPreference is "" when the vocabulary band is disabled.
	VocabularyPreference string
}

// ParseSettings maps the NON_ORPHAN_INGREDIENTS_PREFERENCE and
// VOCABULARY_PREFERENCE option values onto Settings. Unknown values disable
// the corresponding band.
func ParseSettings(nonOrphanPreference, vocabularyPreference string) Settings {
	s := Settings{
		PreferNonOrphans: strings.EqualFold(strings.TrimSpace(nonOrphanPreference), "Yes"),
	}
	v := strings.TrimSpace(vocabularyPreference)
	if v != "" && !strings.EqualFold(v, "None") {
		s.VocabularyPreference = v
	}
	return s
}

func (s Settings) String() string {
	orphan := "No"
	if s.PreferNonOrphans {
		orphan = "Yes"
	}
	vocab := s.VocabularyPreference
	if vocab == "" {
		vocab = "None"
	}
	return "NON_ORPHAN_INGREDIENTS_PREFERENCE=" + orphan + " VOCABULARY_PREFERENCE=" + vocab
}
