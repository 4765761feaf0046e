package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"drugmap/internal"
)

func concept(id string, orphan bool) *Concept {
	c := newConcept(internal.IngredientRow{ConceptID: id, ConceptName: "C" + id})
	c.orphan = orphan
	return c
}

func TestScore(t *testing.T) {
	nonOrphan := concept("1", false)
	orphan := concept("2", true)

	cases := []struct {
		name     string
		hit      Hit
		settings Settings
		want     int
	}{
		{name: "primary ingredient name", hit: Hit{Ingredient: nonOrphan, VocabularyID: "RxNorm", ConceptClassID: "Ingredient"}, want: 820},
		{name: "synonym", hit: Hit{Ingredient: nonOrphan, ConceptClassID: "Precise Ingredient", Synonym: true}, want: 710},
		{name: "replaced by", hit: Hit{Ingredient: nonOrphan, RelationshipID: "Concept replaced by", ConceptClassID: "Substance"}, want: 4620},
		{name: "rxnorm eq suffix", hit: Hit{Ingredient: nonOrphan, RelationshipID: "ATC - RxNorm eq", ConceptClassID: "ATC 5th"}, want: 3520},
		{name: "form of", hit: Hit{Ingredient: nonOrphan, RelationshipID: "Form of", ConceptClassID: "ATC 4th"}, want: 2420},
		{name: "maps to", hit: Hit{Ingredient: nonOrphan, RelationshipID: "Maps to", ConceptClassID: "Pharma/Biol Product", Synonym: true}, want: 1310},
		{name: "ndc classes", hit: Hit{Ingredient: nonOrphan, ConceptClassID: "11-digit NDC"}, want: 220},
		{name: "9 digit ndc", hit: Hit{Ingredient: nonOrphan, ConceptClassID: "9-digit NDC"}, want: 120},
		{name: "unknown relationship and class", hit: Hit{Ingredient: nonOrphan, RelationshipID: "Has tradename", ConceptClassID: "Brand Name"}, want: 20},
		{
			name:     "non orphan preferred",
			hit:      Hit{Ingredient: nonOrphan, ConceptClassID: "Ingredient"},
			settings: Settings{PreferNonOrphans: true},
			want:     200820,
		},
		{
			name:     "orphan",
			hit:      Hit{Ingredient: orphan, ConceptClassID: "Ingredient"},
			settings: Settings{PreferNonOrphans: true},
			want:     100820,
		},
		{
			name:     "orphan ignored without preference",
			hit:      Hit{Ingredient: orphan, ConceptClassID: "Ingredient"},
			want:     820,
		},
		{
			name:     "prefer rxnorm from rxnorm",
			hit:      Hit{Ingredient: nonOrphan, VocabularyID: "RxNorm"},
			settings: Settings{VocabularyPreference: "RxNorm"},
			want:     20020,
		},
		{
			name:     "prefer rxnorm from extension",
			hit:      Hit{Ingredient: nonOrphan, VocabularyID: "RxNorm Extension"},
			settings: Settings{VocabularyPreference: "RxNorm"},
			want:     10020,
		},
		{
			name:     "prefer extension from rxnorm",
			hit:      Hit{Ingredient: nonOrphan, VocabularyID: "RxNorm"},
			settings: Settings{VocabularyPreference: "RxNorm Extension"},
			want:     10020,
		},
		{
			name:     "prefer extension from extension",
			hit:      Hit{Ingredient: nonOrphan, VocabularyID: "RxNorm Extension"},
			settings: Settings{VocabularyPreference: "RxNorm Extension"},
			want:     20020,
		},
		{
			name:     "all bands",
			hit:      Hit{Ingredient: nonOrphan, VocabularyID: "RxNorm", RelationshipID: "Concept replaced by", ConceptClassID: "Ingredient"},
			settings: Settings{PreferNonOrphans: true, VocabularyPreference: "RxNorm"},
			want:     224820,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Score(tc.hit, tc.settings))
		})
	}
}

func TestScoreBandsDoNotOverlap(t *testing.T) {
	c := concept("1", false)

	highRelation := Hit{Ingredient: c, RelationshipID: "Form of", ConceptClassID: "9-digit NDC", Synonym: true}
	lowRelation := Hit{Ingredient: c, RelationshipID: "Maps to", ConceptClassID: "Ingredient"}
	assert.Greater(t, Score(highRelation, Settings{}), Score(lowRelation, Settings{}))

	highClass := Hit{Ingredient: c, ConceptClassID: "Substance", Synonym: true}
	lowClass := Hit{Ingredient: c, ConceptClassID: "ATC 5th"}
	assert.Greater(t, Score(highClass, Settings{}), Score(lowClass, Settings{}))

	bestWithoutVocabulary := Hit{Ingredient: c, VocabularyID: "RxNorm Extension", RelationshipID: "Concept replaced by", ConceptClassID: "Ingredient"}
	worstWithVocabulary := Hit{Ingredient: c, VocabularyID: "RxNorm", ConceptClassID: "Brand Name", Synonym: true}
	prefer := Settings{VocabularyPreference: "RxNorm"}
	assert.Greater(t, Score(worstWithVocabulary, prefer), Score(bestWithoutVocabulary, prefer))
}

func TestHitSameIgnoresScoreAndIdentity(t *testing.T) {
	a := Hit{Ingredient: concept("7", true), VocabularyID: "RxNorm", ConceptClassID: "Ingredient", Score: 1}
	b := Hit{Ingredient: concept("7", false), VocabularyID: "RxNorm", ConceptClassID: "Ingredient", Score: 99}
	assert.True(t, a.Same(b))

	b.Synonym = true
	assert.False(t, a.Same(b))
}

func TestParseSettings(t *testing.T) {
	assert.Equal(t, Settings{PreferNonOrphans: true, VocabularyPreference: "RxNorm"}, ParseSettings("Yes", "RxNorm"))
	assert.Equal(t, Settings{}, ParseSettings("No", "None"))
	assert.Equal(t, Settings{VocabularyPreference: "RxNorm Extension"}, ParseSettings("maybe", "RxNorm Extension"))
	assert.Equal(t, Settings{}, ParseSettings("", ""))
}

func TestConceptATCAndCAS(t *testing.T) {
	c := concept("1", true)
	c.SetATC("N02BE01")
	c.SetATC("N02BE01")
	assert.Equal(t, "N02BE01", c.ATC())

	c.SetATC("N02BE51")
	assert.Equal(t, "", c.ATC())
	c.SetATC("N02BE01")
	assert.Equal(t, "", c.ATC(), "a conflicted code stays cleared")

	assert.True(t, c.SetCAS("103-90-2"))
	assert.True(t, c.SetCAS("103-90-2"))
	assert.False(t, c.SetCAS("50-78-2"))
	assert.Equal(t, "103-90-2", c.CAS())
}
