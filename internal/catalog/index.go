package catalog

import (
	"drugmap/internal/util"
)

// EvidenceIndex maps one normalized name to the bucket of hits for that name.
type EvidenceIndex struct {
	buckets map[string]*HitBucket
	hits    int
}

func NewEvidenceIndex() *EvidenceIndex {
	return &EvidenceIndex{buckets: map[string]*HitBucket{}}
}

// Add files the evidence under key. Duplicate evidence is a no-op.
func (x *EvidenceIndex) Add(key, vocabularyID, conceptClassID, relationshipID string, synonym bool, ingredient *Concept) bool {
	b, ok := x.buckets[key]
	if !ok {
		b = &HitBucket{}
		x.buckets[key] = b
	}
	added := b.Add(Hit{
		Ingredient:     ingredient,
		VocabularyID:   vocabularyID,
		ConceptClassID: conceptClassID,
		RelationshipID: relationshipID,
		Synonym:        synonym,
	})
	if added {
		x.hits++
	}
	return added
}

// Get returns the bucket for key, or nil.
func (x *EvidenceIndex) Get(key string) *HitBucket {
	return x.buckets[key]
}

func (x *EvidenceIndex) Recalculate(settings Settings) {
	for _, b := range x.buckets {
		b.recalculate(settings)
	}
}

func (x *EvidenceIndex) Keys() int { return len(x.buckets) }

func (x *EvidenceIndex) Hits() int { return x.hits }

// Level tells which normalization of the query produced a match.
type Level int

const (
	LevelExact Level = iota
	LevelStandardized
	LevelSorted
	LevelStandardizedSorted
)

func (l Level) String() string {
	switch l {
	case LevelExact:
		return "exact"
	case LevelStandardized:
		return "standardized"
	case LevelSorted:
		return "sorted"
	case LevelStandardizedSorted:
		return "standardized+sorted"
	default:
		return "unknown"
	}
}

func (l Level) annotation() string {
	switch l {
	case LevelStandardized:
		return " (Standardised)"
	case LevelSorted:
		return " (Sorted)"
	case LevelStandardizedSorted:
		return " (Sorted, Standardised)"
	default:
		return ""
	}
}

// keys computes the four lookup keys of a name, one per Level.
func keys(name string) [4]string {
	raw := util.FoldCase(name)
	standardized := util.Standardize(raw)
	return [4]string{
		LevelExact:              raw,
		LevelStandardized:       standardized,
		LevelSorted:             util.SortWords(raw),
		LevelStandardizedSorted: util.SortWords(standardized),
	}
}

// CategoryIndexSet holds the four normalization indexes of one evidence category.
type CategoryIndexSet struct {
	indexes [4]*EvidenceIndex
}

func NewCategoryIndexSet() *CategoryIndexSet {
	s := &CategoryIndexSet{}
	for i := range s.indexes {
		s.indexes[i] = NewEvidenceIndex()
	}
	return s
}

// AddNames registers name in all four indexes. Blank names are ignored.
func (s *CategoryIndexSet) AddNames(name, vocabularyID, conceptClassID, relationshipID string, synonym bool, ingredient *Concept) {
	k := keys(name)
	if k[LevelExact] == "" {
		return
	}
	for level, key := range k {
		if key == "" {
			continue
		}
		s.indexes[level].Add(key, vocabularyID, conceptClassID, relationshipID, synonym, ingredient)
	}
}

// Match is the best candidate of the first non-empty bucket in the cascade.
type Match struct {
	Candidate
	Level Level
}

// Lookup tries the exact, standardized, sorted and standardized+sorted
// indexes in that order and stops at the first non-empty bucket.
func (s *CategoryIndexSet) Lookup(name string) (Match, bool, error) {
	k := keys(name)
	if k[LevelExact] == "" {
		return Match{}, false, nil
	}
	for level, key := range k {
		b := s.indexes[level].Get(key)
		if b.Len() == 0 {
			continue
		}
		c, ok, err := b.Best()
		if err != nil {
			return Match{}, false, err
		}
		if ok {
			return Match{Candidate: c, Level: Level(level)}, true, nil
		}
	}
	return Match{}, false, nil
}

func (s *CategoryIndexSet) Recalculate(settings Settings) {
	for _, x := range s.indexes {
		x.Recalculate(settings)
	}
}

// Index returns the evidence index of one level.
func (s *CategoryIndexSet) Index(l Level) *EvidenceIndex {
	return s.indexes[l]
}
