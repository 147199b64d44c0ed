// Package app wires the services shared by the binaries.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrJamesThe3rd/proposalflow/internal/config"
	"github.com/MrJamesThe3rd/proposalflow/internal/database"
	"github.com/MrJamesThe3rd/proposalflow/internal/event"
	"github.com/MrJamesThe3rd/proposalflow/internal/event/amqpqueue"
	"github.com/MrJamesThe3rd/proposalflow/internal/event/redisqueue"
	"github.com/MrJamesThe3rd/proposalflow/internal/metrics"
	"github.com/MrJamesThe3rd/proposalflow/internal/proposal"
	proposalStore "github.com/MrJamesThe3rd/proposalflow/internal/proposal/store"
	"github.com/MrJamesThe3rd/proposalflow/internal/status"
	"github.com/MrJamesThe3rd/proposalflow/internal/transition"
	"github.com/MrJamesThe3rd/proposalflow/internal/uow"
	"github.com/MrJamesThe3rd/proposalflow/internal/workflow"
)

type App struct {
	DB          *sql.DB
	Metrics     *metrics.Metrics
	Dispatcher  *event.Dispatcher
	Proposals   *proposal.Service
	Transitions *transition.Service
	Workflow    *workflow.Service

	// Redis is nil unless the queue driver is redis.
	Redis *redis.Client

	closers []func() error
}

// New connects to the database and the queue broker and builds the services.
func New(cfg *config.Config) (*App, error) {
	if cfg.DB.MigrateOnStart {
		if err := database.Migrate(cfg.ConnectionString()); err != nil {
			return nil, err
		}
	}

	db, err := database.New(cfg.ConnectionString(), database.PoolConfig{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &App{DB: db, Metrics: metrics.New()}
	a.closers = append(a.closers, db.Close)

	publisher, err := a.publisher(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Dispatcher = event.NewDispatcher(publisher,
		event.WithObserver(a.Metrics),
		event.WithBreaker(event.BreakerSettings{
			ConsecutiveFailures: cfg.Breaker.ConsecutiveFailures,
			OpenTimeout:         cfg.Breaker.OpenTimeout,
		}),
	)

	unit := uow.New(db, database.Postgres, uow.WithRetry(cfg.Transition.MaxAttempts, cfg.Transition.RetryInterval))
	coord := transition.NewCoordinator(status.NewValidator(status.DefaultGraph()), time.Now)

	a.Proposals = proposal.NewService(proposalStore.New(db, database.Postgres))
	a.Transitions = transition.NewService(unit, coord, a.Dispatcher, transition.WithObserver(a.Metrics))
	a.Workflow = workflow.NewService(a.Transitions, cfg.Documents.StorageRoot)

	return a, nil
}

func (a *App) publisher(cfg *config.Config) (event.Publisher, error) {
	switch cfg.Queue.Driver {
	case "amqp":
		pub, closeFn, err := amqpqueue.Dial(cfg.Queue.AMQPURL, cfg.Queue.Prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to broker: %w", err)
		}

		a.closers = append(a.closers, closeFn)

		return pub, nil
	default:
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Queue.RedisAddr,
			Password: cfg.Queue.RedisPassword,
			DB:       cfg.Queue.RedisDB,
		})
		a.closers = append(a.closers, a.Redis.Close)

		return redisqueue.New(a.Redis, cfg.Queue.Prefix), nil
	}
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}

	if err := errors.Join(errs...); err != nil {
		slog.Warn("closing app", "error", err)
	}
}
