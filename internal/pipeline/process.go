package pipeline

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"drugmap/internal"
	"drugmap/internal/catalog"
	"drugmap/internal/storage"
)

type ProcessingService struct {
	db      *storage.DB
	engine  *catalog.Engine
	workers int
	log     *zap.Logger

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewProcessingService(db *storage.DB, engine *catalog.Engine, workers int, log *zap.Logger) *ProcessingService {
	return &ProcessingService{
		db:      db,
		engine:  engine,
		workers: workers,
		log:     log,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

type RunSummary struct {
	RunID    string
	Total    int
	Mapped   int
	Unmapped int
}

// Run maps every ingredient of the source workbook and stores the run. A
// malformed concept id in the vocabulary aborts the run before anything is
// written.
func (s *ProcessingService) Run(ctx context.Context, inputPath string) (RunSummary, error) {
	start := time.Now()

	items, err := ReadSourceWorkbook(inputPath)
	if err != nil {
		return RunSummary{}, err
	}
	items = NormalizeItems(items)

	results, err := NewMatcher(s.engine).MatchAll(ctx, items, s.workers)
	if err != nil {
		return RunSummary{}, fmt.Errorf("map %s: %w", inputPath, err)
	}

	summary := RunSummary{RunID: s.newRunID(), Total: len(items)}
	for _, res := range results {
		if res.Status == internal.StatusMapped {
			summary.Mapped++
		} else {
			summary.Unmapped++
		}
	}

	run := internal.RunRow{
		ID:       summary.RunID,
		InputRef: inputPath,
		Settings: s.engine.Settings().String(),
		Total:    summary.Total,
		Mapped:   summary.Mapped,
		Unmapped: summary.Unmapped,
	}
	if err := s.db.SaveRun(ctx, run, items, results); err != nil {
		return RunSummary{}, err
	}

	s.log.Info("run finished",
		zap.String("run_id", summary.RunID),
		zap.String("input", inputPath),
		zap.Int("total", summary.Total),
		zap.Int("mapped", summary.Mapped),
		zap.Int("unmapped", summary.Unmapped),
		zap.Duration("took", time.Since(start)),
	)
	return summary, nil
}

func (s *ProcessingService) newRunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Now(), s.entropy).String()
}

type ImportResult struct {
	Ingredients   int
	Relationships int
	Usage         int
}

// ImportVocabulary copies a vocabulary workbook into the database. Rows
// already present are ignored, so importing twice is harmless.
func ImportVocabulary(ctx context.Context, db *storage.DB, path string, log *zap.Logger) (ImportResult, error) {
	v, err := ReadVocabularyWorkbook(path)
	if err != nil {
		return ImportResult{}, err
	}

	var res ImportResult
	if res.Ingredients, err = db.InsertIngredientRows(ctx, v.Ingredients); err != nil {
		return ImportResult{}, fmt.Errorf("import ingredients: %w", err)
	}
	if res.Relationships, err = db.InsertRelationshipRows(ctx, v.Relationships); err != nil {
		return ImportResult{}, fmt.Errorf("import relationships: %w", err)
	}
	if res.Usage, err = db.InsertUsageRows(ctx, v.Usage); err != nil {
		return ImportResult{}, fmt.Errorf("import usage: %w", err)
	}

	log.Info("vocabulary imported",
		zap.String("file", path),
		zap.Int("ingredients", res.Ingredients),
		zap.Int("relationships", res.Relationships),
		zap.Int("usage", res.Usage),
	)
	return res, nil
}
