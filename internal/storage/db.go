package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"drugmap/internal"
)

var ErrRunNotFound = errors.New("run not found")

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS ingredients (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  concept_id TEXT NOT NULL,
  concept_name TEXT NOT NULL,
  concept_synonym_name TEXT NOT NULL DEFAULT '',
  vocabulary_id TEXT NOT NULL DEFAULT '',
  domain_id TEXT NOT NULL DEFAULT '',
  concept_class_id TEXT NOT NULL DEFAULT '',
  standard_concept TEXT NOT NULL DEFAULT '',
  valid_start_date TEXT NOT NULL DEFAULT '',
  valid_end_date TEXT NOT NULL DEFAULT '',
  cas_number TEXT NOT NULL DEFAULT '',
  UNIQUE(concept_id, concept_synonym_name)
);
CREATE INDEX IF NOT EXISTS idx_ingredients_concept ON ingredients(concept_id);

CREATE TABLE IF NOT EXISTS relationships (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  relationship_id TEXT NOT NULL,
  drug_concept_name TEXT NOT NULL,
  drug_vocabulary_id TEXT NOT NULL,
  drug_concept_class_id TEXT NOT NULL,
  drug_concept_code TEXT NOT NULL DEFAULT '',
  ingredient_concept_id TEXT NOT NULL,
  drug_synonym_name TEXT NOT NULL DEFAULT '',
  UNIQUE(relationship_id, drug_concept_name, drug_vocabulary_id, drug_concept_class_id, drug_concept_code, ingredient_concept_id, drug_synonym_name)
);
CREATE INDEX IF NOT EXISTS idx_relationships_ingredient ON relationships(ingredient_concept_id);

CREATE TABLE IF NOT EXISTS ingredient_usage (
  drug_concept_id TEXT NOT NULL,
  ingredient_concept_id TEXT NOT NULL,
  PRIMARY KEY(drug_concept_id, ingredient_concept_id)
);

CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  inputRef TEXT NOT NULL,
  settings TEXT NOT NULL,
  total INTEGER NOT NULL DEFAULT 0,
  mapped INTEGER NOT NULL DEFAULT 0,
  unmapped INTEGER NOT NULL DEFAULT 0,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS mappings (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  lineNo INTEGER NOT NULL,
  sheet TEXT NOT NULL DEFAULT '',
  sourceCode TEXT NOT NULL DEFAULT '',
  sourceName TEXT NOT NULL,
  sourceVocabularyId TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  conceptId TEXT,
  conceptName TEXT,
  vocabularyId TEXT,
  conceptClassId TEXT,
  atc TEXT,
  cas TEXT,
  orphan INTEGER NOT NULL DEFAULT 0,
  category TEXT NOT NULL DEFAULT '',
  level TEXT NOT NULL DEFAULT '',
  explanation TEXT NOT NULL DEFAULT '',
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(runId, sheet, lineNo),
  FOREIGN KEY(runId) REFERENCES runs(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// InsertIngredientRows stores ingredient rows; rows already present are ignored.
func (d *DB) InsertIngredientRows(ctx context.Context, rows []internal.IngredientRow) (int, error) {
	return d.insertBatch(ctx, `
INSERT OR IGNORE INTO ingredients (
  concept_id, concept_name, concept_synonym_name, vocabulary_id, domain_id,
  concept_class_id, standard_concept, valid_start_date, valid_end_date, cas_number
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, len(rows), func(stmt *sql.Stmt, i int) (sql.Result, error) {
		r := rows[i]
		return stmt.ExecContext(ctx,
			r.ConceptID, r.ConceptName, r.ConceptSynonymName, r.VocabularyID, r.DomainID,
			r.ConceptClassID, r.StandardConcept, r.ValidStartDate, r.ValidEndDate, r.CASNumber,
		)
	})
}

func (d *DB) InsertRelationshipRows(ctx context.Context, rows []internal.RelationshipRow) (int, error) {
	return d.insertBatch(ctx, `
INSERT OR IGNORE INTO relationships (
  relationship_id, drug_concept_name, drug_vocabulary_id, drug_concept_class_id,
  drug_concept_code, ingredient_concept_id, drug_synonym_name
) VALUES (?, ?, ?, ?, ?, ?, ?)`, len(rows), func(stmt *sql.Stmt, i int) (sql.Result, error) {
		r := rows[i]
		return stmt.ExecContext(ctx,
			r.RelationshipID, r.DrugConceptName, r.DrugVocabularyID, r.DrugConceptClassID,
			r.DrugConceptCode, r.IngredientConceptID, r.DrugSynonymName,
		)
	})
}

func (d *DB) InsertUsageRows(ctx context.Context, rows []internal.UsageRow) (int, error) {
	return d.insertBatch(ctx, `
INSERT OR IGNORE INTO ingredient_usage (drug_concept_id, ingredient_concept_id) VALUES (?, ?)`,
		len(rows), func(stmt *sql.Stmt, i int) (sql.Result, error) {
			return stmt.ExecContext(ctx, rows[i].DrugConceptID, rows[i].IngredientConceptID)
		})
}

func (d *DB) insertBatch(ctx context.Context, query string, n int, exec func(*sql.Stmt, int) (sql.Result, error)) (int, error) {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for i := 0; i < n; i++ {
		res, err := exec(stmt, i)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		if affected, err := res.RowsAffected(); err == nil {
			inserted += int(affected)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// ListIngredientRows returns the stored ingredient rows in insertion order.
func (d *DB) ListIngredientRows(ctx context.Context) ([]internal.IngredientRow, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT concept_id, concept_name, concept_synonym_name, vocabulary_id, domain_id,
       concept_class_id, standard_concept, valid_start_date, valid_end_date, cas_number
FROM ingredients ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.IngredientRow
	for rows.Next() {
		var r internal.IngredientRow
		if err := rows.Scan(
			&r.ConceptID, &r.ConceptName, &r.ConceptSynonymName, &r.VocabularyID, &r.DomainID,
			&r.ConceptClassID, &r.StandardConcept, &r.ValidStartDate, &r.ValidEndDate, &r.CASNumber,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) ListRelationshipRows(ctx context.Context) ([]internal.RelationshipRow, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT relationship_id, drug_concept_name, drug_vocabulary_id, drug_concept_class_id,
       drug_concept_code, ingredient_concept_id, drug_synonym_name
FROM relationships ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RelationshipRow
	for rows.Next() {
		var r internal.RelationshipRow
		if err := rows.Scan(
			&r.RelationshipID, &r.DrugConceptName, &r.DrugVocabularyID, &r.DrugConceptClassID,
			&r.DrugConceptCode, &r.IngredientConceptID, &r.DrugSynonymName,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListReferencedIngredientIDs returns the ingredients used by at least one drug product.
func (d *DB) ListReferencedIngredientIDs(ctx context.Context) ([]string, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT DISTINCT ingredient_concept_id FROM ingredient_usage ORDER BY ingredient_concept_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// SaveRun stores a run together with the mapping of every item in one
// transaction: either the whole run is visible or none of it is.
func (d *DB) SaveRun(ctx context.Context, run internal.RunRow, items []internal.SourceIngredient, results []internal.MappingResult) error {
	if len(items) != len(results) {
		return fmt.Errorf("run %s: %d items but %d results", run.ID, len(items), len(results))
	}
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, inputRef, settings, total, mapped, unmapped) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  total=excluded.total,
  mapped=excluded.mapped,
  unmapped=excluded.unmapped
`, run.ID, run.InputRef, run.Settings, run.Total, run.Mapped, run.Unmapped)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO mappings (
  runId, lineNo, sheet, sourceCode, sourceName, sourceVocabularyId,
  status, conceptId, conceptName, vocabularyId, conceptClassId, atc, cas, orphan,
  category, level, explanation
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, item := range items {
		result := results[i]
		_, err := stmt.ExecContext(ctx, run.ID, item.LineNo, item.Sheet, item.Code, item.Name, item.VocabularyID,
			string(result.Status), result.ConceptID, result.ConceptName, result.VocabularyID, result.ConceptClassID, result.ATC, result.CAS, result.Orphan,
			result.Category, result.Level, result.Explanation)
		if err != nil {
			return fmt.Errorf("mapping %s line %d: %w", item.Sheet, item.LineNo, err)
		}
	}
	return tx.Commit()
}

func (d *DB) GetRun(ctx context.Context, id string) (internal.RunRow, error) {
	var run internal.RunRow
	err := d.conn.QueryRowContext(ctx, `
SELECT id, inputRef, settings, createdAt, total, mapped, unmapped FROM runs WHERE id = ?
`, id).Scan(&run.ID, &run.InputRef, &run.Settings, &run.CreatedAt, &run.Total, &run.Mapped, &run.Unmapped)
	if errors.Is(err, sql.ErrNoRows) {
		return internal.RunRow{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return internal.RunRow{}, err
	}
	return run, nil
}

// GetExportRows returns the mappings of a run, mapped rows first.
func (d *DB) GetExportRows(ctx context.Context, runID string) ([]internal.MappingExportRow, error) {
	rows, err := d.conn.QueryContext(ctx, `
SELECT lineNo, sheet, sourceCode, sourceName, sourceVocabularyId, status,
       conceptId, conceptName, vocabularyId, conceptClassId, atc, cas, orphan,
       category, level, explanation
FROM mappings
WHERE runId = ?
ORDER BY
  CASE status WHEN 'MAPPED' THEN 1 ELSE 2 END,
  sheet ASC,
  lineNo ASC
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.MappingExportRow
	for rows.Next() {
		var row internal.MappingExportRow
		if err := rows.Scan(
			&row.LineNo, &row.Sheet, &row.SourceCode, &row.SourceName, &row.SourceVocabularyID, &row.Status,
			&row.ConceptID, &row.ConceptName, &row.VocabularyID, &row.ConceptClassID, &row.ATC, &row.CAS, &row.Orphan,
			&row.Category, &row.Level, &row.Explanation,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(ctx context.Context, key, value string) error {
	_, err := d.conn.ExecContext(ctx, `
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(ctx context.Context, key string) (*string, error) {
	var value string
	err := d.conn.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
