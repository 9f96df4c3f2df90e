package tables

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pairstat/domain/table"
	"pairstat/internal/errors"
	"pairstat/internal/logging"
)

// Source names one file backing a logical table
type Source struct {
	Name     string
	Path     string
	Sheet    string
	Required bool
}

// Loader reads several sources concurrently
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a loader
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logging.OrNop(logger)}
}

// LoadAll reads every source in parallel and joins the results once all have
// finished. An optional source that fails is logged and left out of the set;
// only a required source failure is returned.
func (l *Loader) LoadAll(ctx context.Context, sources []Source) (table.Set, error) {
	var mu sync.Mutex
	set := make(table.Set, len(sources))

	g, gCtx := errgroup.WithContext(ctx)
	for _, src := range sources {
		src := src
		if src.Path == "" {
			continue
		}
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			t, err := ReadFile(src.Name, src.Path, src.Sheet)
			if err != nil {
				if src.Required {
					return errors.Wrapf(err, "load required table %s", src.Name)
				}
				l.logger.Warn("optional table unavailable, treating as absent",
					zap.String("table", src.Name),
					zap.String("path", src.Path),
					zap.Error(err))
				return nil
			}

			mu.Lock()
			set[src.Name] = t
			mu.Unlock()

			l.logger.Debug("table loaded",
				zap.String("table", src.Name),
				zap.String("path", src.Path),
				zap.Int("rows", len(t.Rows)),
				zap.Int("columns", len(t.Columns)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return set, nil
}
