package cli

import (
	"context"
	"fmt"

	"github.com/roach88/rotation/internal/config"
	"github.com/roach88/rotation/internal/engine"
	"github.com/roach88/rotation/internal/gormstore"
	"github.com/roach88/rotation/internal/memstore"
	"github.com/roach88/rotation/internal/record"
	"github.com/roach88/rotation/internal/redisstore"
	"github.com/roach88/rotation/internal/store"
)

// backendStore is what every configured backend provides.
type backendStore interface {
	engine.Store
	ListGroups(ctx context.Context) ([]record.Record, error)
	Ping(ctx context.Context) error
	Close() error
}

// assigneeFinder is implemented by the SQL backends, which index
// last_assigned_id.
type assigneeFinder interface {
	FindByAssignee(ctx context.Context, id int64) ([]record.Record, error)
}

// openBackend opens the store named by cfg.Backend.
func openBackend(ctx context.Context, cfg config.Config) (backendStore, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memstore.New(), nil

	case config.BackendSQLite:
		return store.Open(cfg.DSN)

	case config.BackendGormSQLite, config.BackendPostgres:
		dialect := gormstore.DialectSQLite
		if cfg.Backend == config.BackendPostgres {
			dialect = gormstore.DialectPostgres
		}
		st, err := gormstore.Open(gormstore.Config{Dialect: dialect, DSN: cfg.DSN})
		if err != nil {
			return nil, err
		}
		if err := st.AutoMigrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil

	case config.BackendRedis:
		return redisstore.Open(ctx, redisstore.Options{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// withBackend opens the configured backend, checks that it answers, runs
// fn and closes it. A backend that cannot be opened or pinged is reported
// as E_BACKEND.
func withBackend(ctx context.Context, opts *RootOptions, f *OutputFormatter, fn func(backendStore) error) error {
	opts.Logger.Debug("opening store", "backend", opts.Config.Backend)
	st, err := openBackend(ctx, opts.Config)
	if err != nil {
		return f.BackendFailure(fmt.Sprintf("failed to open %s store", opts.Config.Backend), err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			opts.Logger.Error("error closing store", "error", closeErr)
		}
	}()

	if err := st.Ping(ctx); err != nil {
		return f.BackendFailure(fmt.Sprintf("%s store is unreachable", opts.Config.Backend), err)
	}
	return fn(st)
}
