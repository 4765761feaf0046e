package pipeline

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"drugmap/internal"
	"drugmap/internal/catalog"
	"drugmap/internal/util"
)

// Matcher resolves source ingredients against a sealed engine.
type Matcher struct {
	engine *catalog.Engine
}

func NewMatcher(engine *catalog.Engine) *Matcher {
	return &Matcher{engine: engine}
}

// Match resolves one source ingredient. The explanation is prefixed with
// "<source vocabulary> <code>".
func (m *Matcher) Match(item internal.SourceIngredient) (internal.MappingResult, error) {
	res, err := m.engine.Resolve(item.Name, contextLabel(item))
	if err != nil {
		return internal.MappingResult{}, err
	}
	if !res.Found() {
		return internal.MappingResult{Status: internal.StatusUnmapped}, nil
	}

	c := res.Ingredient
	return internal.MappingResult{
		Status:         internal.StatusMapped,
		ConceptID:      util.StringPtr(c.ID),
		ConceptName:    util.StringPtr(c.Name),
		VocabularyID:   util.StringPtr(c.VocabularyID),
		ConceptClassID: util.StringPtr(c.ConceptClassID),
		ATC:            util.NonEmptyPtr(c.ATC()),
		CAS:            util.NonEmptyPtr(c.CAS()),
		Orphan:         c.Orphan(),
		Category:       res.Category.String(),
		Level:          res.Level.String(),
		Explanation:    res.Explanation,
	}, nil
}

// MatchAll resolves items with up to workers goroutines. Results keep the
// input order. The first error cancels the batch.
func (m *Matcher) MatchAll(ctx context.Context, items []internal.SourceIngredient, workers int) ([]internal.MappingResult, error) {
	if workers < 1 {
		workers = 1
	}
	out := make([]internal.MappingResult, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range items {
		i := i
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := m.Match(items[i])
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func contextLabel(item internal.SourceIngredient) string {
	return strings.TrimSpace(item.VocabularyID + " " + item.Code)
}
