package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"drugmap/internal/storage"
)

// MetadataLastLoad is the metadata key holding the time of the last engine load.
const MetadataLastLoad = "vocab.last_load"

// Loader builds an Engine from the vocabulary stored in the database.
type Loader struct {
	db  *storage.DB
	log *zap.Logger
}

func NewLoader(db *storage.DB, log *zap.Logger) *Loader {
	return &Loader{db: db, log: log}
}

// Load reads ingredients, relationships and usage rows in that order, then
// scores every hit once with settings. The returned engine is sealed.
func (l *Loader) Load(ctx context.Context, settings Settings) (*Engine, error) {
	start := time.Now()
	engine := NewEngine()

	ingredients, err := l.db.ListIngredientRows(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range ingredients {
		if _, err := engine.AddIngredient(row); err != nil {
			l.log.Warn("skipping ingredient row", zap.String("concept_id", row.ConceptID), zap.Error(err))
		}
	}

	relationships, err := l.db.ListRelationshipRows(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range relationships {
		if _, err := engine.AddRelationship(row); err != nil {
			return nil, err
		}
	}

	referenced, err := l.db.ListReferencedIngredientIDs(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range referenced {
		if _, err := engine.MarkReferenced(id); err != nil {
			return nil, err
		}
	}

	engine.Recalculate(settings)

	stats := engine.Stats()
	l.log.Info("vocabulary loaded",
		zap.Int("ingredients", stats.Ingredients),
		zap.Int("orphans", stats.OrphanIngredients),
		zap.Int("relationships_used", stats.RelationshipsUsed),
		zap.Int("relationships_skipped", stats.RelationshipsSkipped),
		zap.Int("atc_conflicts", stats.ATCConflicts),
		zap.Int("cas_conflicts", stats.CASConflicts),
		zap.Stringer("settings", settings),
		zap.Duration("took", time.Since(start)),
	)
	if err := l.db.SetMetadata(ctx, MetadataLastLoad, time.Now().UTC().Format(time.RFC3339)); err != nil {
		l.log.Warn("record last load", zap.Error(err))
	}
	return engine, nil
}
