package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"drugmap/internal"
	"drugmap/internal/util"
)

func ExportRowsToXLSX(rows []internal.MappingExportRow, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := []string{
		"line_no", "sheet", "source_code", "source_name", "source_vocabulary_id",
		"status", "concept_id", "concept_name", "vocabulary_id", "concept_class_id",
		"atc_code", "orphan", "category", "level", "explanation",
		"cas_number",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.LineNo)
		set(2, row.Sheet)
		set(3, row.SourceCode)
		set(4, row.SourceName)
		set(5, row.SourceVocabularyID)
		set(6, row.Status)
		set(7, util.Deref(row.ConceptID))
		set(8, util.Deref(row.ConceptName))
		set(9, util.Deref(row.VocabularyID))
		set(10, util.Deref(row.ConceptClassID))
		set(11, util.Deref(row.ATC))
		set(12, yesNo(row.Orphan))
		set(13, row.Category)
		set(14, row.Level)
		set(15, row.Explanation)
		set(16, util.Deref(row.CAS))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
