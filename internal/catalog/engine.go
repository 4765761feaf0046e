package catalog

import (
	"errors"
	"strings"

	"drugmap/internal"
)

var (
	// ErrSealed is returned by build operations once scores were calculated.
	ErrSealed = errors.New("engine is sealed")
	// ErrNotCalculated is returned by Resolve before Recalculate ran.
	ErrNotCalculated = errors.New("engine scores not calculated")
)

// Category is the provenance class of evidence.
type Category int

const (
	CategoryName Category = iota
	CategorySynonym
	CategoryRelation
)

func (c Category) String() string {
	switch c {
	case CategoryName:
		return "name"
	case CategorySynonym:
		return "synonym"
	case CategoryRelation:
		return "relation"
	default:
		return "unknown"
	}
}

// Label is the category wording used in explanations.
func (c Category) Label() string {
	switch c {
	case CategoryName:
		return "Ingredient Term"
	case CategorySynonym:
		return "Synonym Term"
	case CategoryRelation:
		return "Ingredient Relationship"
	default:
		return ""
	}
}

// Resolution is the answer to one Resolve call. Ingredient is nil when nothing matched.
type Resolution struct {
	Ingredient  *Concept
	Category    Category
	Level       Level
	Hit         Hit
	Explanation string
}

func (r Resolution) Found() bool { return r.Ingredient != nil }

type Stats struct {
	Ingredients          int
	OrphanIngredients    int
	RelationshipsUsed    int
	RelationshipsSkipped int
	ATCConflicts         int
	CASConflicts         int
	NameHits             int
	SynonymHits          int
	RelationHits         int
}

// Engine resolves free-text ingredient names against the loaded vocabulary.
//
// It is built single-threaded (AddIngredient, AddRelationship, MarkReferenced),
// sealed by Recalculate and read-only afterwards; Resolve may then be called
// from any number of goroutines.
type Engine struct {
	ingredients map[string]*Concept
	categories  [3]*CategoryIndexSet

	relationshipsUsed    int
	relationshipsSkipped int
	casConflicts         int

	settings Settings
	sealed   bool
}

func NewEngine() *Engine {
	e := &Engine{ingredients: map[string]*Concept{}}
	for i := range e.categories {
		e.categories[i] = NewCategoryIndexSet()
	}
	return e
}

// AddIngredient registers the concept of row (reusing it when already known),
// its name under Name and its synonym, if any, under Synonym.
func (e *Engine) AddIngredient(row internal.IngredientRow) (*Concept, error) {
	if e.sealed {
		return nil, ErrSealed
	}
	id := strings.TrimSpace(row.ConceptID)
	if id == "" {
		return nil, errors.New("ingredient row without concept_id")
	}
	row.ConceptID = id

	c, ok := e.ingredients[id]
	if !ok {
		c = newConcept(row)
		e.ingredients[id] = c
	}
	if cas := strings.TrimSpace(row.CASNumber); cas != "" && !c.SetCAS(cas) {
		e.casConflicts++
	}
	e.categories[CategoryName].AddNames(c.Name, c.VocabularyID, c.ConceptClassID, "", false, c)
	if row.ConceptSynonymName != "" {
		e.categories[CategorySynonym].AddNames(row.ConceptSynonymName, c.VocabularyID, c.ConceptClassID, "", true, c)
	}
	return c, nil
}

// AddRelationship registers the related concept's name and synonym under
// Relation for a known ingredient. Rows pointing at unknown ingredients are
// skipped and reported as false.
func (e *Engine) AddRelationship(row internal.RelationshipRow) (bool, error) {
	if e.sealed {
		return false, ErrSealed
	}
	c, ok := e.ingredient(row.IngredientConceptID)
	if !ok {
		e.relationshipsSkipped++
		return false, nil
	}
	e.relationshipsUsed++

	relation := e.categories[CategoryRelation]
	relation.AddNames(row.DrugConceptName, row.DrugVocabularyID, row.DrugConceptClassID, row.RelationshipID, false, c)
	if row.DrugSynonymName != "" {
		relation.AddNames(row.DrugSynonymName, row.DrugVocabularyID, row.DrugConceptClassID, row.RelationshipID, true, c)
	}
	if row.DrugVocabularyID == VocabularyATC {
		c.SetATC(row.DrugConceptCode)
	}
	return true, nil
}

// MarkReferenced clears the orphan flag of an ingredient used by a drug product.
func (e *Engine) MarkReferenced(conceptID string) (bool, error) {
	if e.sealed {
		return false, ErrSealed
	}
	c, ok := e.ingredient(conceptID)
	if !ok {
		return false, nil
	}
	c.orphan = false
	return true, nil
}

// Recalculate scores every hit in all categories under settings and seals
// the engine. It may run again with other settings, but never concurrently
// with Resolve.
func (e *Engine) Recalculate(settings Settings) {
	for _, set := range e.categories {
		set.Recalculate(settings)
	}
	e.settings = settings
	e.sealed = true
}

func (e *Engine) Settings() Settings { return e.settings }

// Resolve looks name up in Name, then Synonym, then Relation and explains the
// first match. A miss is a zero Resolution and a nil error.
func (e *Engine) Resolve(name, contextLabel string) (Resolution, error) {
	if !e.sealed {
		return Resolution{}, ErrNotCalculated
	}
	for i, set := range e.categories {
		m, ok, err := set.Lookup(name)
		if err != nil {
			return Resolution{}, err
		}
		if !ok {
			continue
		}
		category := Category(i)
		return Resolution{
			Ingredient:  m.Hit.Ingredient,
			Category:    category,
			Level:       m.Level,
			Hit:         m.Hit,
			Explanation: explain(contextLabel, category, m, name),
		}, nil
	}
	return Resolution{}, nil
}

func explain(contextLabel string, category Category, m Match, name string) string {
	var b strings.Builder
	b.WriteString(contextLabel)
	b.WriteString(" - ")
	b.WriteString(category.Label())
	b.WriteString(m.Level.annotation())
	if m.Hit.Ingredient.Orphan() {
		b.WriteString(" (Orphan ingredient)")
	}
	b.WriteString(m.annotation())
	b.WriteString(` ("`)
	b.WriteString(name)
	b.WriteString(`")`)
	return b.String()
}

func (e *Engine) ingredient(conceptID string) (*Concept, bool) {
	c, ok := e.ingredients[strings.TrimSpace(conceptID)]
	return c, ok
}

func (e *Engine) Stats() Stats {
	s := Stats{
		Ingredients:          len(e.ingredients),
		RelationshipsUsed:    e.relationshipsUsed,
		RelationshipsSkipped: e.relationshipsSkipped,
		CASConflicts:         e.casConflicts,
		NameHits:             e.categories[CategoryName].Index(LevelExact).Hits(),
		SynonymHits:          e.categories[CategorySynonym].Index(LevelExact).Hits(),
		RelationHits:         e.categories[CategoryRelation].Index(LevelExact).Hits(),
	}
	for _, c := range e.ingredients {
		if c.orphan {
			s.OrphanIngredients++
		}
		if c.atcConflict {
			s.ATCConflicts++
		}
	}
	return s
}
