package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"drugmap/internal/catalog"
	"drugmap/internal/config"
	"drugmap/internal/listener"
	"drugmap/internal/logging"
	"drugmap/internal/pipeline"
	"drugmap/internal/storage"
)

// app carries what every command needs once the root command has started.
type app struct {
	cfg config.Config
	log *zap.Logger
	db  *storage.DB
}

func main() {
	a := &app{}
	root := &cobra.Command{
		Use:           "drugmap",
		Short:         "Map source ingredient names to vocabulary ingredients",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.close()
		},
	}
	root.AddCommand(
		a.vocabImportCmd(),
		a.resolveCmd(),
		a.runCmd(),
		a.exportCmd(),
		a.statsCmd(),
		a.watchCmd(),
	)
	must(root.Execute())
}

func (a *app) open() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return err
	}
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	a.cfg, a.log, a.db = cfg, log, db
	return nil
}

func (a *app) close() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func (a *app) engine(ctx context.Context) (*catalog.Engine, error) {
	return catalog.NewLoader(a.db, a.log).Load(ctx, a.cfg.Settings())
}

func (a *app) vocabImportCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "vocab:import",
		Short: "Load a vocabulary workbook into the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Require("--file", file); err != nil {
				return err
			}
			res, err := pipeline.ImportVocabulary(cmd.Context(), a.db, file, a.log)
			if err != nil {
				return err
			}
			fmt.Printf("vocabulary import done ingredients=%d relationships=%d usage=%d\n", res.Ingredients, res.Relationships, res.Usage)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "vocabulary workbook (.xlsx)")
	return cmd
}

func (a *app) resolveCmd() *cobra.Command {
	var name, label string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve one ingredient name",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Require("--name", name); err != nil {
				return err
			}
			engine, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			res, err := engine.Resolve(name, label)
			if err != nil {
				return err
			}
			if !res.Found() {
				fmt.Printf("no match for %q\n", name)
				return nil
			}
			fmt.Printf("%s\t%s\t%s\n", res.Ingredient.ID, res.Ingredient.Name, res.Explanation)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "ingredient name")
	cmd.Flags().StringVar(&label, "context", "cli", "label prefixed to the explanation")
	return cmd
}

func (a *app) runCmd() *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Map a source ingredient workbook and export the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Require("--input", input); err != nil {
				return err
			}
			engine, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			proc := pipeline.NewProcessingService(a.db, engine, a.cfg.ResolveWorkers, a.log)
			summary, err := proc.Run(cmd.Context(), input)
			if err != nil {
				return err
			}
			if output == "" {
				output = filepath.Join(a.cfg.OutputDir, fmt.Sprintf("run_%s_%s.xlsx", summary.RunID, time.Now().Format("20060102_150405")))
			}
			if err := a.export(cmd.Context(), summary.RunID, output); err != nil {
				return err
			}
			fmt.Printf("run=%s total=%d mapped=%d unmapped=%d output=%s\n", summary.RunID, summary.Total, summary.Mapped, summary.Unmapped, output)
			return nil
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "source ingredient workbook (.xlsx)")
	cmd.Flags().StringVar(&output, "output", "", "result workbook, defaults to OUTPUT_DIR")
	return cmd
}

func (a *app) exportCmd() *cobra.Command {
	var runID, out string
	cmd := &cobra.Command{
		Use:   "export:xlsx",
		Short: "Export a stored run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Require("--run", runID); err != nil {
				return err
			}
			if _, err := a.db.GetRun(cmd.Context(), runID); err != nil {
				return err
			}
			if out == "" {
				out = filepath.Join(a.cfg.OutputDir, fmt.Sprintf("run_%s.xlsx", runID))
			}
			if err := a.export(cmd.Context(), runID, out); err != nil {
				return err
			}
			fmt.Println(out)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id")
	cmd.Flags().StringVar(&out, "out", "", "output path")
	return cmd
}

func (a *app) export(ctx context.Context, runID, out string) error {
	rows, err := a.db.GetExportRows(ctx, runID)
	if err != nil {
		return err
	}
	return pipeline.ExportRowsToXLSX(rows, out)
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print vocabulary load statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := a.engine(cmd.Context())
			if err != nil {
				return err
			}
			s := engine.Stats()
			fmt.Printf("settings: %s\n", engine.Settings())
			fmt.Printf("ingredients=%d orphans=%d atc_conflicts=%d cas_conflicts=%d\n", s.Ingredients, s.OrphanIngredients, s.ATCConflicts, s.CASConflicts)
			fmt.Printf("relationships used=%d skipped=%d\n", s.RelationshipsUsed, s.RelationshipsSkipped)
			fmt.Printf("hits name=%d synonym=%d relation=%d\n", s.NameHits, s.SynonymHits, s.RelationHits)
			if last, err := a.db.GetMetadata(cmd.Context(), catalog.MetadataLastLoad); err == nil && last != nil {
				fmt.Printf("last load: %s\n", *last)
			}
			return nil
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Map every workbook dropped into INBOX_DIR until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			engine, err := a.engine(ctx)
			if err != nil {
				return err
			}
			proc := pipeline.NewProcessingService(a.db, engine, a.cfg.ResolveWorkers, a.log)
			interval := time.Duration(a.cfg.ListenerIntervalSec) * time.Second
			a.log.Info("watching inbox", zap.String("dir", a.cfg.InboxDir), zap.Duration("interval", interval))
			return listener.NewService(a.db, proc, a.cfg.InboxDir, a.cfg.OutputDir, interval, a.log).Run(ctx)
		},
	}
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
