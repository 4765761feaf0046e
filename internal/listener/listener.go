package listener

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"drugmap/internal/pipeline"
	"drugmap/internal/storage"
)

const settleDelay = 500 * time.Millisecond

// failedMarker prefixes the metadata value of a workbook version that could
// not be mapped. That version is not retried; saving the file again is.
const failedMarker = "failed: "

// Service watches an inbox directory and maps every new source workbook
// dropped into it. Results are exported to <outputDir>/listener.
type Service struct {
	db        *storage.DB
	proc      *pipeline.ProcessingService
	inboxDir  string
	outputDir string
	interval  time.Duration
	log       *zap.Logger
}

func NewService(db *storage.DB, proc *pipeline.ProcessingService, inboxDir, outputDir string, interval time.Duration, log *zap.Logger) *Service {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Service{db: db, proc: proc, inboxDir: inboxDir, outputDir: outputDir, interval: interval, log: log}
}

// Run processes the inbox once, then again on file events and every
// interval until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	if err := os.MkdirAll(s.inboxDir, 0o755); err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(s.inboxDir); err != nil {
		return fmt.Errorf("watch %s: %w", s.inboxDir, err)
	}

	settle := time.NewTimer(0)
	defer settle.Stop()
	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if isWorkbook(event.Name) && (event.Has(fsnotify.Create) || event.Has(fsnotify.Write)) {
				settle.Reset(settleDelay)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("inbox watcher error", zap.Error(err))
		case <-settle.C:
			s.cycle(ctx)
		case <-tick.C:
			s.cycle(ctx)
		}
	}
}

func (s *Service) cycle(ctx context.Context) {
	n, err := s.runCycle(ctx)
	if err != nil {
		s.log.Error("listener cycle failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.log.Info("listener cycle done", zap.Int("processed", n))
	}
}

// runCycle maps the inbox workbooks that were not processed in their
// current version yet and returns how many succeeded. A workbook that fails
// is logged and marked; only inbox and database faults end the cycle.
func (s *Service) runCycle(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.inboxDir)
	if err != nil {
		return 0, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	processed := 0
	for _, entry := range entries {
		if entry.IsDir() || !isWorkbook(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		key := fmt.Sprintf("inbox:%s:%d", entry.Name(), info.ModTime().UnixNano())
		done, err := s.db.GetMetadata(ctx, key)
		if err != nil {
			return processed, err
		}
		if done != nil {
			continue
		}

		runID, err := s.processFile(ctx, entry.Name())
		if err != nil {
			if ctx.Err() != nil {
				return processed, ctx.Err()
			}
			s.log.Warn("inbox workbook failed", zap.String("file", entry.Name()), zap.Error(err))
			if err := s.db.SetMetadata(ctx, key, failedMarker+err.Error()); err != nil {
				return processed, err
			}
			continue
		}
		if err := s.db.SetMetadata(ctx, key, runID); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

// processFile maps one inbox workbook and exports the run. It returns the run id.
func (s *Service) processFile(ctx context.Context, name string) (string, error) {
	summary, err := s.proc.Run(ctx, filepath.Join(s.inboxDir, name))
	if err != nil {
		return "", err
	}
	rows, err := s.db.GetExportRows(ctx, summary.RunID)
	if err != nil {
		return "", err
	}
	base := strings.TrimSuffix(name, filepath.Ext(name))
	out := filepath.Join(s.outputDir, "listener", fmt.Sprintf("%s_%s.xlsx", base, summary.RunID))
	if err := pipeline.ExportRowsToXLSX(rows, out); err != nil {
		return "", err
	}
	return summary.RunID, nil
}

// isWorkbook skips office lock files such as "~$sources.xlsx".
func isWorkbook(path string) bool {
	base := filepath.Base(path)
	return strings.EqualFold(filepath.Ext(base), ".xlsx") && !strings.HasPrefix(base, "~$")
}
