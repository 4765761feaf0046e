package catalog

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformedConceptID is returned when a tie has to be broken on a concept
// id that is not numeric. The vocabulary is corrupt; no ordering is guessed.
var ErrMalformedConceptID = errors.New("malformed concept id")

// HitBucket holds the distinct hits sharing one normalized key, in insertion order.
type HitBucket struct {
	hits []Hit
}

// Add appends the hit unless an equal one is already present. It reports
// whether the bucket grew.
func (b *HitBucket) Add(h Hit) bool {
	for _, existing := range b.hits {
		if existing.Same(h) {
			return false
		}
	}
	b.hits = append(b.hits, h)
	return true
}

func (b *HitBucket) Len() int {
	if b == nil {
		return 0
	}
	return len(b.hits)
}

func (b *HitBucket) recalculate(settings Settings) {
	for i := range b.hits {
		b.hits[i].Score = Score(b.hits[i], settings)
	}
}

// Candidate is the outcome of best-candidate selection in a bucket.
type Candidate struct {
	Hit Hit
	// ScoreFiltered is set when the bucket held hits with different scores.
	ScoreFiltered bool
	// IDFiltered is set when several ingredients shared the top score.
	IDFiltered bool
}

// Best selects the hit with the highest score; among top-scoring hits of
// different ingredients the smallest numeric concept id wins, and hits of
// the same ingredient keep insertion order.
func (b *HitBucket) Best() (Candidate, bool, error) {
	if b.Len() == 0 {
		return Candidate{}, false, nil
	}
	if len(b.hits) == 1 {
		return Candidate{Hit: b.hits[0]}, true, nil
	}

	var c Candidate
	best := 0
	for i := 1; i < len(b.hits); i++ {
		h := b.hits[i]
		if h.Score != b.hits[0].Score {
			c.ScoreFiltered = true
		}
		switch {
		case h.Score > b.hits[best].Score:
			best = i
			c.IDFiltered = false
		case h.Score == b.hits[best].Score && h.Ingredient.ID != b.hits[best].Ingredient.ID:
			less, err := lessConceptID(h.Ingredient.ID, b.hits[best].Ingredient.ID)
			if err != nil {
				return Candidate{}, false, err
			}
			if less {
				best = i
			}
			c.IDFiltered = true
		}
	}
	c.Hit = b.hits[best]
	return c, true, nil
}

func lessConceptID(a, b string) (bool, error) {
	x, err := strconv.ParseInt(a, 10, 64)
	if err != nil {
		return false, fmt.Errorf("%w: %q", ErrMalformedConceptID, a)
	}
	y, err := strconv.ParseInt(b, 10, 64)
	if err != nil {
		return false, fmt.Errorf("%w: %q", ErrMalformedConceptID, b)
	}
	return x < y, nil
}

// annotation renders the explanation fragment for the candidate:
// relationship provenance, synonym marker and the filters that were needed.
func (c Candidate) annotation() string {
	s := ""
	if c.Hit.RelationshipID != "" {
		s += " " + c.Hit.ConceptClassID + " with relation " + c.Hit.RelationshipID
	}
	if c.Hit.Synonym {
		s += " Synonym of"
	}
	if c.ScoreFiltered {
		s += " - Filter on best fit"
	}
	if c.IDFiltered {
		s += " - Filter on lowest concept_id"
	}
	return s
}
