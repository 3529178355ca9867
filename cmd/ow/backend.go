package main

import (
	"context"
	"errors"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"overlay-widgets/internal/api"
	"overlay-widgets/internal/cli"
	"overlay-widgets/internal/config"
	"overlay-widgets/internal/events"
	"overlay-widgets/internal/gateway"
	"overlay-widgets/internal/repository"
	"overlay-widgets/internal/scheduler"
	"overlay-widgets/internal/server"
	"overlay-widgets/internal/services"
)

// backend wires storage, events, the websocket gateway and the HTTP server
type backend struct {
	cfg         *config.Config
	repo        repository.Repository
	nc          *nats.Conn
	subscriber  *events.NATSSubscriber
	connections *gateway.ConnectionManager
	timers      services.TimerService
	businessAPI api.BusinessAPI
	reconciler  *scheduler.Reconciler
	server      *server.Server
}

// newBackend opens the configured repository and wires the application
func newBackend(ctx context.Context, cfg *config.Config) (cli.Backend, error) {
	repo, err := config.NewRepositoryFactory(config.GetEnvironment(), cfg).CreateRepository(ctx)
	if err != nil {
		return nil, err
	}

	b, err := wireBackend(cfg, repo, clockwork.NewRealClock())
	if err != nil {
		_ = repo.Close()
		return nil, err
	}
	return b, nil
}

func wireBackend(cfg *config.Config, repo repository.Repository, clock clockwork.Clock) (*backend, error) {
	b := &backend{cfg: cfg, repo: repo}

	// The gateway asks the service for the snapshot sent on connect
	provider := gateway.StateProviderFunc(func(ctx context.Context, timerID string) (events.TimerPayload, error) {
		return b.timers.CurrentState(ctx, timerID)
	})
	b.connections = gateway.NewConnectionManager(gateway.NewConfig(cfg.Gateway, cfg.Server.AllowedOrigins), provider)

	publisher, err := b.newPublisher()
	if err != nil {
		return nil, err
	}

	b.timers = services.NewTimerService(repo, clock, publisher)
	b.businessAPI = api.NewBusinessAPI(b.timers, cfg)
	if cfg.Reconciler.Enabled {
		b.reconciler = scheduler.NewReconciler(b.timers, clock, cfg.Reconciler.Interval, cfg.Reconciler.Timeout)
	}
	b.server = server.New(b.businessAPI, b.connections, cfg.Server)

	return b, nil
}

// newPublisher delivers events straight to the gateway, or through NATS when
// a URL is configured so every instance's overlays see every change.
func (b *backend) newPublisher() (events.Publisher, error) {
	logPublisher := events.NewLogPublisher()

	if b.cfg.Events.NATSURL == "" {
		return events.NewFanoutPublisher(b.connections, logPublisher), nil
	}

	nc, err := events.Connect(events.NATSConfig{
		URL:           b.cfg.Events.NATSURL,
		SubjectPrefix: b.cfg.Events.SubjectPrefix,
		MaxReconnects: b.cfg.Events.MaxReconnects,
		ReconnectWait: b.cfg.Events.ReconnectWait,
	})
	if err != nil {
		return nil, err
	}
	b.nc = nc

	b.subscriber = events.NewNATSSubscriber(nc, b.cfg.Events.SubjectPrefix, func(event events.Event) {
		// a full queue is logged by the gateway
		_ = b.connections.Publish(context.Background(), event)
	})

	return events.NewFanoutPublisher(events.NewNATSPublisher(nc, b.cfg.Events.SubjectPrefix), logPublisher), nil
}

func (b *backend) API() api.BusinessAPI {
	return b.businessAPI
}

// Serve runs the gateway, the reconciler and the HTTP server until ctx is
// cancelled or one of them fails.
func (b *backend) Serve(ctx context.Context) error {
	if b.subscriber != nil {
		if err := b.subscriber.Start(ctx); err != nil {
			return err
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.connections.Start(ctx)
		return nil
	})

	if b.reconciler != nil {
		g.Go(func() error {
			// Catch up everything that ran while the server was down
			changed, err := b.reconciler.RunOnce(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("startup reconciliation failed")
			} else {
				log.Info().Int("changed", changed).Msg("startup reconciliation complete")
			}
			b.reconciler.Start(ctx)
			return nil
		})
	}

	g.Go(func() error {
		return b.server.Run(ctx)
	})

	return g.Wait()
}

func (b *backend) Close() error {
	var errs []error
	if b.nc != nil {
		if err := b.nc.Drain(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := b.repo.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
