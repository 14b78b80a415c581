package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/mployhr/recruitdash/internal/adapters/docstore"
	"github.com/mployhr/recruitdash/internal/adapters/natsfeed"
	service "github.com/mployhr/recruitdash/internal/app"
	"github.com/mployhr/recruitdash/internal/config"
	"github.com/mployhr/recruitdash/internal/gateway"
	"github.com/mployhr/recruitdash/internal/identity"
	"github.com/mployhr/recruitdash/pkg/logger"
)

// runtimeDeps is everything a command needs to talk to the documents.
type runtimeDeps struct {
	store      docstore.Store
	replicator *natsfeed.Replicator
	gateway    *gateway.Gateway
	service    *service.Service
}

// openStore builds the document store selected by store_backend.
func openStore(ctx context.Context, cfg *config.Config, log logger.Logger) (docstore.Store, error) {
	opts := []docstore.Option{
		docstore.WithBuffer(cfg.StreamBuffer),
		docstore.WithLogger(log.Named("docstore")),
	}
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return docstore.NewMemoryStore(opts...), nil
	case config.BackendSQLite:
		return docstore.OpenSQLite(ctx, cfg.SQLitePath, opts...)
	case config.BackendPostgres:
		return docstore.OpenPostgres(ctx, cfg.PostgresURL, opts...)
	default:
		return nil, fmt.Errorf("%w: unknown store_backend %q", config.ErrInvalidConfig, cfg.StoreBackend)
	}
}

// bootstrap wires store, optional replication, gateway and service.
// Nothing is started.
func bootstrap(ctx context.Context, cfg *config.Config, log logger.Logger) (*runtimeDeps, error) {
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreBackend, err)
	}
	rt := &runtimeDeps{store: store}

	gwOpts := []gateway.Option{
		gateway.WithAppID(cfg.AppID),
		gateway.WithQueueSize(cfg.WriteQueueSize),
		gateway.WithLogger(log.Named("gateway")),
	}
	if cfg.NATSURL != "" {
		rt.replicator = natsfeed.New(cfg.AppID, store, natsfeed.WithLogger(log.Named("natsfeed")))
		if err := rt.replicator.Connect(cfg.NATSURL); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("connect replication: %w", err)
		}
		repl := rt.replicator
		gwOpts = append(gwOpts, gateway.WithWriteObserver(func(t gateway.Topic, doc docstore.Document) {
			if err := repl.Publish(string(t), doc); err != nil {
				log.Warn(ctx, "replicating write failed", logger.String("topic", string(t)), logger.Error(err))
			}
		}))
	}

	rt.gateway = gateway.New(store, gwOpts...)
	provider := identity.NewTokenProvider(identity.NewSigner(cfg.APIKey), cfg.AuthToken)
	rt.service = service.New(rt.gateway, provider,
		service.WithRoster(cfg.Team),
		service.WithLogger(log.Named("service")),
	)
	return rt, nil
}

// close stops the service, then replication, then the store.
func (rt *runtimeDeps) close(ctx context.Context) error {
	var errs []error
	if err := rt.service.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if rt.replicator != nil {
		if err := rt.replicator.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close replication: %w", err))
		}
	}
	if err := rt.store.Close(); err != nil && !errors.Is(err, docstore.ErrClosed) {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
