package commands

import (
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/wonny/homescan/internal/gateconfig"
	"github.com/wonny/homescan/internal/s0_data/collector"
	"github.com/wonny/homescan/internal/s0_data/quality"
	"github.com/wonny/homescan/pkg/config"
	"github.com/wonny/homescan/pkg/database"
	"github.com/wonny/homescan/pkg/logger"
	"github.com/wonny/homescan/pkg/natsutil"
	"github.com/wonny/homescan/pkg/redis"
)

// app holds the shared infrastructure of a long-running command
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	db         *database.DB // nil이면 저장소 비활성
	redis      *redis.Client
	nc         *nats.Conn // nil이면 발행/구독 비활성
	thresholds *gateconfig.Loaded
}

type appOptions struct {
	requireDB bool
}

// newApp connects the configured backends. Postgres is optional unless
// requireDB is set; Redis and NATS follow their ENABLED flags.
func newApp(opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg)

	a := &app{cfg: cfg, log: log, redis: redis.Disabled()}

	a.thresholds, err = gateconfig.Resolve(cfg.Gate.ThresholdsFile, log)
	if err != nil {
		return nil, fmt.Errorf("load thresholds: %w", err)
	}

	if cfg.Database.URL != "" || opts.requireDB {
		a.db, err = database.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		log.Info("Connected to database")
	} else {
		log.Warn("DATABASE_URL not set, run storage disabled")
	}

	a.redis, err = redis.New(cfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	if cfg.NATS.Enabled {
		a.nc, err = natsutil.Connect(cfg, log)
		if err != nil {
			a.close()
			return nil, err
		}
		log.WithField("subject", cfg.NATS.Subject).Info("Connected to NATS")
	}

	return a, nil
}

// runRepository returns the run summary store, nil without a database
func (a *app) runRepository() *quality.Repository {
	if a.db == nil {
		return nil
	}
	return quality.NewRepository(a.db.Pool, redis.NewCache(a.redis, "homescan"))
}

// publisher returns the run summary publisher, nil without NATS
func (a *app) publisher() *natsutil.Publisher {
	if a.nc == nil {
		return nil
	}
	return natsutil.NewPublisher(a.nc, a.cfg.NATS.Subject)
}

// source returns the collection stage adapter selected by COLLECTOR_SOURCE
func (a *app) source() (collector.Source, error) {
	switch a.cfg.Collector.Source {
	case "http":
		return collector.NewHTTPSource(a.cfg, a.log, a.redis), nil
	default:
		if a.db == nil {
			return nil, fmt.Errorf("COLLECTOR_SOURCE=db requires DATABASE_URL: %w", database.ErrNoDatabaseURL)
		}
		return collector.NewPostgresSource(a.db.Pool), nil
	}
}

func (a *app) close() {
	if a.nc != nil {
		if err := a.nc.Drain(); err != nil {
			a.log.WithError(err).Warn("NATS drain failed")
		}
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		a.db.Close()
	}
}
