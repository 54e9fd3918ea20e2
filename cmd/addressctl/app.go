package main

import (
	"context"
	"io"

	"addrstore/config"
	"addrstore/internal/domain/lifecycle"
	"addrstore/internal/domain/service"
	"addrstore/internal/infra/codec"
	logs "addrstore/internal/infra/log"
	"addrstore/internal/infra/persistence"
	"addrstore/internal/infra/persistence/index"
	"addrstore/internal/infra/persistence/kv"
	"addrstore/internal/infra/snapshot"
	"addrstore/internal/usecase"
	"addrstore/internal/usecase/impl"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"
)

// services is what a command needs from the application graph.
type services struct {
	fx.In

	Addresses usecase.AddressUsecase
	Snapshots service.AddressSnapshot
}

func injectInfra(cfg *config.Config, logWriter io.Writer) fx.Option {
	options := []fx.Option{
		fx.Supply(cfg),
		fx.Provide(
			logs.New,
			persistence.New,
			clock.New,
		),
	}
	if logWriter != nil {
		options = append(options, fx.Provide(
			fx.Annotate(
				func() io.Writer { return logWriter },
				fx.ResultTags(`name:"logWriter"`),
			),
		))
	}

	return fx.Options(options...)
}

func injectRepo() fx.Option {
	return fx.Provide(
		kv.NewAddressRepository,
	)
}

func injectService() fx.Option {
	return fx.Provide(
		codec.New,
		snapshot.New,
	)
}

func injectUsecase() fx.Option {
	return fx.Provide(
		impl.NewAddressService,
	)
}

func appOptions(cfg *config.Config, logWriter io.Writer) []fx.Option {
	return []fx.Option{
		fx.NopLogger,
		injectInfra(cfg, logWriter),
		injectRepo(),
		injectService(),
		injectUsecase(),
	}
}

// runApp starts the application graph, hands the services to fn and stops
// the graph again, closing the store and the snapshot bucket.
func runApp(ctx context.Context, cfg *config.Config, logWriter io.Writer, fn func(context.Context, services) error) (err error) {
	var svc services
	app := fx.New(append(appOptions(cfg, logWriter), fx.Populate(&svc))...)
	if err := app.Err(); err != nil {
		return errors.Wrap(err, "failed to build application")
	}

	startCtx, cancel := context.WithTimeout(ctx, lifecycle.DefaultTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return errors.Wrap(err, "failed to start application")
	}

	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lifecycle.DefaultTimeout)
		defer cancel()
		multierr.AppendInto(&err, errors.Wrap(app.Stop(stopCtx), "failed to stop application"))
	}()

	return fn(ctx, svc)
}

// writeMetrics dumps the index counters in the node exporter textfile format.
func writeMetrics(path string) error {
	registry := prometheus.NewRegistry()
	for _, collector := range index.Collectors() {
		if err := registry.Register(collector); err != nil {
			return errors.Wrap(err, "failed to register metrics")
		}
	}

	return errors.Wrapf(prometheus.WriteToTextfile(path, registry), "failed to write metrics to %s", path)
}
