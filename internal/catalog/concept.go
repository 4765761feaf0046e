package catalog

import "drugmap/internal"

// Concept is a canonical ingredient of the reference vocabulary.
//
// Apart from the orphan flag and the ATC/CAS annotations, which are only
// touched while the engine is being built, a Concept never changes.
type Concept struct {
	ID              string
	Name            string
	VocabularyID    string
	DomainID        string
	ConceptClassID  string
	StandardConcept string
	ValidStartDate  string
	ValidEndDate    string

	orphan      bool
	atc         *string
	atcConflict bool
	cas         *string
}

func newConcept(row internal.IngredientRow) *Concept {
	c := &Concept{
		ID:              row.ConceptID,
		Name:            row.ConceptName,
		VocabularyID:    row.VocabularyID,
		DomainID:        row.DomainID,
		ConceptClassID:  row.ConceptClassID,
		StandardConcept: row.StandardConcept,
		ValidStartDate:  row.ValidStartDate,
		ValidEndDate:    row.ValidEndDate,
		orphan:          true,
	}
	if c.VocabularyID == "" {
		c.VocabularyID = VocabularyRxNorm
	}
	if c.DomainID == "" {
		c.DomainID = "Drug"
	}
	if c.ConceptClassID == "" {
		c.ConceptClassID = ClassIngredient
	}
	return c
}

// Orphan reports whether no loaded drug product references the ingredient.
func (c *Concept) Orphan() bool { return c.orphan }

// ATC returns the assigned ATC code, or "" when none or when assignments conflicted.
func (c *Concept) ATC() string {
	if c.atc == nil {
		return ""
	}
	return *c.atc
}

// SetATC assigns the ATC code once. A second assignment with a different
// code clears it for good.
func (c *Concept) SetATC(code string) {
	if code == "" || c.atcConflict {
		return
	}
	if c.atc == nil {
		c.atc = &code
		return
	}
	if *c.atc != code {
		c.atc = nil
		c.atcConflict = true
	}
}

func (c *Concept) CAS() string {
	if c.cas == nil {
		return ""
	}
	return *c.cas
}

// SetCAS records the CAS number picked upstream for the concept. The first
// number sticks; it returns false when a different one was already set.
func (c *Concept) SetCAS(cas string) bool {
	if c.cas != nil {
		return *c.cas == cas
	}
	c.cas = &cas
	return true
}
