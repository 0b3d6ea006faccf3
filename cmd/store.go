package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/census-choropleth/internal/config"
	"github.com/sells-group/census-choropleth/internal/store"
)

// withDefaultDriver falls back to a local SQLite file when no driver is set.
func withDefaultDriver(c config.StoreConfig) config.StoreConfig {
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	return c
}

func initStore(ctx context.Context, c config.StoreConfig) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch c.Driver {
	case "sqlite":
		dsn := c.DatabaseURL
		if dsn == "" {
			dsn = "census.db"
		}
		st, err = store.NewSQLite(dsn)
	case "postgres":
		st, err = store.NewPostgres(ctx, c.DatabaseURL, &store.PoolConfig{MaxConns: c.MaxConns, MinConns: c.MinConns})
	case "":
		return nil, eris.New("no store configured (set store.driver or CHOROPLETH_STORE_DRIVER)")
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}
