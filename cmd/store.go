package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/signals-cli/internal/store"
)

// initStore constructs the configured store backend. SQLite is the default
// for single-user CLI use; Postgres backs shared deployments.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.Pool.MaxConns,
			MinConns: cfg.Store.Pool.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver %q (want sqlite or postgres)", cfg.Store.Driver)
	}
}

// openStore initializes the store and applies migrations. The caller owns
// Close.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}
