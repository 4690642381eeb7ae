package geocode

import (
	"context"
	"os"

	"go.uber.org/zap"
)

// Sources locates the reference data used to build an Index.
type Sources struct {
	ZIPTable     string
	ZIPSearchDir string
	Boundaries   string
}

// BuildIndex loads every available reference source into a new Index.
// A missing or unreadable source is logged and skipped, leaving that table
// empty; only context cancellation is returned as an error.
func BuildIndex(ctx context.Context, src Sources, opts ...Option) (*Index, error) {
	log := zap.L().With(zap.String("component", "geocode"))
	b := NewBuilder(opts...)

	if path := FindZIPTable(src.ZIPTable, src.ZIPSearchDir); path == "" {
		log.Warn("no zip reference table found; postal lookup disabled",
			zap.String("zip_table", src.ZIPTable),
			zap.String("search_dir", src.ZIPSearchDir),
		)
	} else if _, err := LoadZIPTable(ctx, b, path); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn("failed to load zip reference table", zap.String("path", path), zap.Error(err))
	}

	if src.Boundaries == "" {
		log.Warn("no municipality boundaries configured; place lookup limited to overrides")
	} else if _, err := os.Stat(src.Boundaries); err != nil {
		log.Warn("municipality boundaries not found", zap.String("path", src.Boundaries), zap.Error(err))
	} else if _, err := LoadBoundaries(b, src.Boundaries); err != nil {
		log.Warn("failed to load municipality boundaries", zap.String("path", src.Boundaries), zap.Error(err))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := b.Build()
	st := idx.Stats()
	log.Info("geocode index built",
		zap.Int("postal_entries", st.PostalEntries),
		zap.Int("place_entries", st.PlaceEntries),
	)
	return idx, nil
}
