// Package persistence opens the configured storage driver and ties it to the
// application lifecycle.
package persistence

import (
	"context"
	"log/slog"

	"addrstore/config"
	"addrstore/internal/domain/repository"
	"addrstore/internal/infra/persistence/pebble"
	"addrstore/internal/infra/persistence/sqlite"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// New opens the storage driver selected by config.Storage.Driver.
// The store is closed when the application stops.
func New(params Params) (repository.Store, error) {
	store, err := Open(params.Config, params.Logger)
	if err != nil {
		return nil, err
	}

	params.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return store.Close()
		},
	})

	return store, nil
}

// Open opens the storage driver without lifecycle management.
func Open(appConfig *config.Config, logger *slog.Logger) (repository.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := appConfig.Storage
	logger = logger.With(slog.String("driver", cfg.Driver))

	switch cfg.Driver {
	case config.DriverPebble, "":
		store, err := pebble.Open(pebble.Options{
			Path:     cfg.Path,
			InMemory: cfg.InMemory,
			NoSync:   cfg.NoSync,
		}, logger)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open pebble store")
		}

		return store, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(sqlite.Options{
			Path:          cfg.Path,
			InMemory:      cfg.InMemory,
			Debug:         appConfig.Env.Debug,
			SlowThreshold: cfg.SlowThreshold,
		}, logger)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open sqlite store")
		}

		return store, nil
	default:
		return nil, errors.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}
