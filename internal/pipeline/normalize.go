package pipeline

import (
	"strings"

	"drugmap/internal"
)

// NormalizeItems tidies source ingredients before matching: whitespace is
// collapsed, rows without a name are dropped and repeated rows of the same
// sheet are kept once.
func NormalizeItems(items []internal.SourceIngredient) []internal.SourceIngredient {
	seen := map[string]struct{}{}
	out := make([]internal.SourceIngredient, 0, len(items))
	for _, item := range items {
		item.Code = normalizeSpaces(item.Code)
		item.Name = normalizeSpaces(item.Name)
		item.VocabularyID = normalizeSpaces(item.VocabularyID)
		if item.Name == "" {
			continue
		}
		key := strings.Join([]string{item.Sheet, item.VocabularyID, item.Code, strings.ToUpper(item.Name)}, "|")
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}
