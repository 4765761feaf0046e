package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drugmap/internal"
	"drugmap/internal/util"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "vocab.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestIngredientRowsRoundTripInOrder(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	rows := []internal.IngredientRow{
		{ConceptID: "1125315", ConceptName: "acetaminophen", ConceptSynonymName: "paracetamol", VocabularyID: "RxNorm", CASNumber: "103-90-2"},
		{ConceptID: "1125315", ConceptName: "acetaminophen", ConceptSynonymName: "APAP", VocabularyID: "RxNorm"},
		{ConceptID: "1112807", ConceptName: "aspirin", VocabularyID: "RxNorm"},
	}
	n, err := db.InsertIngredientRows(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = db.InsertIngredientRows(ctx, rows[:1])
	require.NoError(t, err)
	assert.Equal(t, 0, n, "duplicate rows are ignored")

	got, err := db.ListIngredientRows(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "paracetamol", got[0].ConceptSynonymName)
	assert.Equal(t, "103-90-2", got[0].CASNumber)
	assert.Equal(t, "", got[1].CASNumber)
	assert.Equal(t, "APAP", got[1].ConceptSynonymName)
	assert.Equal(t, "aspirin", got[2].ConceptName)
}

func TestRelationshipAndUsageRows(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.InsertRelationshipRows(ctx, []internal.RelationshipRow{{
		RelationshipID:      "Maps to",
		DrugConceptName:     "Paracetamol",
		DrugVocabularyID:    "SNOMED",
		DrugConceptClassID:  "Substance",
		DrugConceptCode:     "387517004",
		IngredientConceptID: "1125315",
	}})
	require.NoError(t, err)

	rels, err := db.ListRelationshipRows(ctx)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "Maps to", rels[0].RelationshipID)
	assert.Equal(t, "", rels[0].DrugSynonymName)

	_, err = db.InsertUsageRows(ctx, []internal.UsageRow{
		{DrugConceptID: "1", IngredientConceptID: "1125315"},
		{DrugConceptID: "2", IngredientConceptID: "1125315"},
		{DrugConceptID: "2", IngredientConceptID: "1112807"},
	})
	require.NoError(t, err)

	ids, err := db.ListReferencedIngredientIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"1112807", "1125315"}, ids)
}

func TestRunsAndExportRows(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.GetRun(ctx, "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)

	run := internal.RunRow{ID: "01HRUN", InputRef: "sources.xlsx", Settings: "x", Total: 2, Mapped: 1, Unmapped: 1}
	items := []internal.SourceIngredient{
		{LineNo: 1, Sheet: "Sheet1", Code: "X1", Name: "unknownium"},
		{LineNo: 2, Sheet: "Sheet1", Code: "X2", Name: "paracetamol"},
	}
	results := []internal.MappingResult{
		{Status: internal.StatusUnmapped},
		{
			Status:      internal.StatusMapped,
			ConceptID:   util.StringPtr("1125315"),
			ConceptName: util.StringPtr("acetaminophen"),
			CAS:         util.StringPtr("103-90-2"),
			Orphan:      true,
			Category:    "synonym",
			Level:       "exact",
			Explanation: "X2 - Synonym Term Synonym of (\"paracetamol\")",
		},
	}
	require.NoError(t, db.SaveRun(ctx, run, items, results))

	stored, err := db.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Mapped)

	rows, err := db.GetExportRows(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "MAPPED", rows[0].Status)
	assert.Equal(t, "1125315", *rows[0].ConceptID)
	assert.True(t, rows[0].Orphan)
	require.NotNil(t, rows[0].CAS)
	assert.Equal(t, "103-90-2", *rows[0].CAS)
	assert.Nil(t, rows[1].ConceptID)
	assert.Nil(t, rows[1].CAS)
}

func TestSaveRunIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	run := internal.RunRow{ID: "01HDUP", InputRef: "sources.xlsx", Total: 2, Unmapped: 2}
	items := []internal.SourceIngredient{
		{LineNo: 1, Sheet: "Sheet1", Name: "a"},
		{LineNo: 1, Sheet: "Sheet1", Name: "b"},
	}
	results := []internal.MappingResult{{Status: internal.StatusUnmapped}, {Status: internal.StatusUnmapped}}

	err := db.SaveRun(ctx, run, items, results)
	require.Error(t, err)
	assert.ErrorContains(t, err, "Sheet1 line 1")

	_, err = db.GetRun(ctx, run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound, "the run row is rolled back with its mappings")
	rows, err := db.GetExportRows(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	err = db.SaveRun(ctx, run, items[:1], results)
	assert.ErrorContains(t, err, "1 items but 2 results")
	_, err = db.GetRun(ctx, run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestMetadata(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	v, err := db.GetMetadata(ctx, "vocab.last_load")
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, db.SetMetadata(ctx, "vocab.last_load", "a"))
	require.NoError(t, db.SetMetadata(ctx, "vocab.last_load", "b"))
	v, err = db.GetMetadata(ctx, "vocab.last_load")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "b", *v)
}
