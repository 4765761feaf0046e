package internal

// IngredientRow is one row of the ingredient query: a concept with at most one
// synonym. Concepts with several synonyms arrive as several rows.
type IngredientRow struct {
	ConceptID          string
	ConceptName        string
	ConceptSynonymName string
	VocabularyID       string
	DomainID           string
	ConceptClassID     string
	StandardConcept    string
	ValidStartDate     string
	ValidEndDate       string
	// CASNumber is the registry number picked for the concept upstream, if any.
	CASNumber          string
}

// RelationshipRow links a concept of another vocabulary to a known ingredient.
type RelationshipRow struct {
	RelationshipID      string
	DrugConceptName     string
	DrugVocabularyID    string
	DrugConceptClassID  string
	DrugConceptCode     string
	IngredientConceptID string
	DrugSynonymName     string
}

// UsageRow records that a drug product references an ingredient.
type UsageRow struct {
	DrugConceptID       string
	IngredientConceptID string
}

type SourceIngredient struct {
	LineNo       int
	Sheet        string
	Code         string
	Name         string
	VocabularyID string
}

type MappingStatus string

const (
	StatusMapped   MappingStatus = "MAPPED"
	StatusUnmapped MappingStatus = "UNMAPPED"
)

type MappingResult struct {
	Status         MappingStatus `json:"status"`
	ConceptID      *string       `json:"conceptId"`
	ConceptName    *string       `json:"conceptName"`
	VocabularyID   *string       `json:"vocabularyId"`
	ConceptClassID *string       `json:"conceptClassId"`
	ATC            *string       `json:"atc"`
	CAS            *string       `json:"cas"`
	Orphan         bool          `json:"orphan"`
	Category       string        `json:"category"`
	Level          string        `json:"level"`
	Explanation    string        `json:"explanation"`
}

type RunRow struct {
	ID        string
	InputRef  string
	Settings  string
	CreatedAt string
	Total     int
	Mapped    int
	Unmapped  int
}

type MappingExportRow struct {
	LineNo             int
	Sheet              string
	SourceCode         string
	SourceName         string
	SourceVocabularyID string
	Status             string
	ConceptID          *string
	ConceptName        *string
	VocabularyID       *string
	ConceptClassID     *string
	ATC                *string
	CAS                *string
	Orphan             bool
	Category           string
	Level              string
	Explanation        string
}
