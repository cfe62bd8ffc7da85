package commands

import (
	"context"
	"fmt"

	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/chat"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/core/config"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/store/jsonfile"
	"github.com/abu-bakrrd/dripuzz-sub000/internal/store/postgres"
)

// migrator is implemented by stores that manage a schema.
type migrator interface {
	Migrate(ctx context.Context) error
}

// openStore opens the message store selected by the configuration.
func openStore(ctx context.Context, cfg *config.Config) (chat.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}

	switch cfg.Store.Driver {
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.Store.DSN, postgres.Options{
			MaxOpenConns:    cfg.Store.MaxOpenConns,
			MaxIdleConns:    cfg.Store.MaxIdleConns,
			ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	case config.DriverJSONFile:
		return jsonfile.NewMsgStore(cfg.Store.DataDir), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// migrate brings the store schema up to date. Stores without a schema only
// need to be reachable.
func migrate(ctx context.Context, store chat.Store) error {
	if m, ok := store.(migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate store: %w", err)
		}
		return nil
	}
	return store.Ping(ctx)
}
