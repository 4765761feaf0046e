package pipeline

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"drugmap/internal"
)

var reSpaces = regexp.MustCompile(`\s+`)

// Vocabulary is the content of a vocabulary workbook.
type Vocabulary struct {
	Ingredients   []internal.IngredientRow
	Relationships []internal.RelationshipRow
	Usage         []internal.UsageRow
}

const (
	sheetIngredients   = "ingredients"
	sheetRelationships = "relationships"
	sheetUsage         = "usage"
)

// ReadSourceWorkbook reads the source ingredient list from every sheet of the
// workbook. Only the first non-blank row of a sheet can be a header; without
// one the layout is code, name, vocabulary.
func ReadSourceWorkbook(path string) ([]internal.SourceIngredient, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open source workbook: %w", err)
	}
	defer f.Close()

	out := []internal.SourceIngredient{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}

		codeIdx, nameIdx, vocabIdx := -1, -1, -1
		first, headerSeen := true, false
		for i, row := range rows {
			cells := normalizeCells(row)
			if isBlankRow(cells) {
				continue
			}
			if first {
				first = false
				codeIdx, nameIdx, vocabIdx = inferSourceColumns(cells)
				if isSourceHeader(cells, codeIdx, nameIdx, vocabIdx) {
					headerSeen = true
					continue
				}
			}
			if !headerSeen {
				codeIdx, nameIdx, vocabIdx = 0, 1, 2
				if len(cells) == 1 {
					codeIdx, nameIdx = -1, 0
				}
			}

			name := pickCell(cells, nameIdx, -1)
			if name == "" {
				continue
			}
			out = append(out, internal.SourceIngredient{
				LineNo:       i + 1,
				Sheet:        sheet,
				Code:         pickCell(cells, codeIdx, -1),
				Name:         name,
				VocabularyID: pickCell(cells, vocabIdx, -1),
			})
		}
	}
	return out, nil
}

// ReadVocabularyWorkbook reads the ingredients, relationships and usage
// sheets. The ingredients sheet is required, the others are optional.
func ReadVocabularyWorkbook(path string) (Vocabulary, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("open vocabulary workbook: %w", err)
	}
	defer f.Close()

	var v Vocabulary
	sheets := map[string]string{}
	for _, sheet := range f.GetSheetList() {
		sheets[strings.ToLower(strings.TrimSpace(sheet))] = sheet
	}

	sheet, ok := sheets[sheetIngredients]
	if !ok {
		return Vocabulary{}, fmt.Errorf("vocabulary workbook %s: missing sheet %q", path, sheetIngredients)
	}
	err = readTable(f, sheet, func(get func(string) string) {
		v.Ingredients = append(v.Ingredients, internal.IngredientRow{
			ConceptID:          get("concept_id"),
			ConceptName:        get("concept_name"),
			ConceptSynonymName: get("concept_synonym_name"),
			VocabularyID:       get("vocabulary_id"),
			DomainID:           get("domain_id"),
			ConceptClassID:     get("concept_class_id"),
			StandardConcept:    get("standard_concept"),
			ValidStartDate:     get("valid_start_date"),
			ValidEndDate:       get("valid_end_date"),
			CASNumber:          get("cas_number"),
		})
	})
	if err != nil {
		return Vocabulary{}, err
	}

	if sheet, ok := sheets[sheetRelationships]; ok {
		err = readTable(f, sheet, func(get func(string) string) {
			v.Relationships = append(v.Relationships, internal.RelationshipRow{
				RelationshipID:      get("relationship_id"),
				DrugConceptName:     get("drug_concept_name"),
				DrugVocabularyID:    get("drug_vocabulary_id"),
				DrugConceptClassID:  get("drug_concept_class_id"),
				DrugConceptCode:     get("drug_concept_code"),
				IngredientConceptID: get("ingredient_concept_id"),
				DrugSynonymName:     get("drug_synonym_name"),
			})
		})
		if err != nil {
			return Vocabulary{}, err
		}
	}

	if sheet, ok := sheets[sheetUsage]; ok {
		err = readTable(f, sheet, func(get func(string) string) {
			v.Usage = append(v.Usage, internal.UsageRow{
				DrugConceptID:       get("drug_concept_id"),
				IngredientConceptID: get("ingredient_concept_id"),
			})
		})
		if err != nil {
			return Vocabulary{}, err
		}
	}
	return v, nil
}

// readTable calls emit for every non-blank data row of a sheet whose first
// row holds snake_case column names.
func readTable(f *excelize.File, sheet string, emit func(get func(string) string)) error {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil
	}

	columns := map[string]int{}
	for i, h := range normalizeCells(rows[0]) {
		columns[strings.ToLower(h)] = i
	}
	for _, row := range rows[1:] {
		cells := normalizeCells(row)
		if isBlankRow(cells) {
			continue
		}
		emit(func(name string) string {
			idx, ok := columns[name]
			if !ok {
				return ""
			}
			return pickCell(cells, idx, -1)
		})
	}
	return nil
}

func findHeaderIndex(headers []string, keys []string) int {
	for i, h := range headers {
		for _, key := range keys {
			if strings.Contains(h, key) {
				return i
			}
		}
	}
	return -1
}

func pickCell(cells []string, idx int, fallback int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	if fallback >= 0 && fallback < len(cells) {
		return strings.TrimSpace(cells[fallback])
	}
	return ""
}

func inferSourceColumns(headers []string) (codeIdx, nameIdx, vocabIdx int) {
	norm := make([]string, 0, len(headers))
	for _, h := range headers {
		norm = append(norm, strings.ToLower(h))
	}
	vocabIdx = findHeaderIndex(norm, []string{"vocab"})
	nameIdx = findHeaderIndex(norm, []string{"name", "ingredient", "substance", "libell", "term"})
	codeIdx = -1
	for i, h := range norm {
		if i == nameIdx || i == vocabIdx {
			continue
		}
		if hasWord(h, "code", "id") {
			codeIdx = i
			break
		}
	}
	return
}

// sourceHeaderNames are the cells that make a row a header on their own.
var sourceHeaderNames = map[string]bool{
	"name":            true,
	"ingredient":      true,
	"ingredients":     true,
	"ingredient name": true,
	"ingredient_name": true,
	"substance":       true,
	"term":            true,
	"libelle":         true,
	"libellé":         true,
	"source name":     true,
	"source_name":     true,
}

// isSourceHeader reports whether a row reads as a header: a name column next
// to a code or vocabulary column, or a name cell that is a bare column title.
// A data row such as "Substance P" is not taken for one.
func isSourceHeader(cells []string, codeIdx, nameIdx, vocabIdx int) bool {
	if nameIdx < 0 {
		return false
	}
	if codeIdx >= 0 || vocabIdx >= 0 {
		return true
	}
	return sourceHeaderNames[strings.ToLower(pickCell(cells, nameIdx, -1))]
}

// hasWord reports whether s contains one of words as a whole word, with
// anything but letters and digits separating words.
func hasWord(s string, words ...string) bool {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, f := range fields {
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	return false
}

func normalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		out = append(out, normalizeSpaces(c))
	}
	return out
}

func isBlankRow(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
