// Package sink publishes pipeline datasets to searchable stores.
//
// Each category (merged, valid, invalid) is replaced wholesale on every
// run. The valid category may be stored with typed columns; the others are
// kept as text because their values have not passed validation.
package sink

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/AssetRecon/internal/config"
	"github.com/JonMunkholm/AssetRecon/internal/core"
)

// Closer is a core.Sink holding resources that must be released.
type Closer interface {
	core.Sink
	io.Closer
}

// Open builds the sink selected by cfg.Sink.Driver. It returns nil for the
// "none" driver, which the pipeline treats as "do not publish".
func Open(ctx context.Context, cfg *config.Config, columnTypes map[string]core.ColumnType) (Closer, error) {
	switch strings.ToLower(cfg.Sink.Driver) {
	case config.SinkNone, "":
		return nil, nil
	case config.SinkSQLite:
		return OpenSQLite(cfg.Sink.SQLitePath, cfg.Sink.TablePrefix)
	case config.SinkPostgres:
		pool, err := ConnectPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return NewPostgres(pool, cfg.Sink.TablePrefix, columnTypes), nil
	default:
		return nil, fmt.Errorf("unknown sink driver %q", cfg.Sink.Driver)
	}
}
