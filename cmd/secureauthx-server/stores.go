package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-hclog"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/secureauthx/secureauthx"
	"github.com/secureauthx/secureauthx/internal/config"
	"github.com/secureauthx/secureauthx/internal/server"
	"github.com/secureauthx/secureauthx/session"
	"github.com/secureauthx/secureauthx/store/gormstore"
	"github.com/secureauthx/secureauthx/store/memory"
	"github.com/secureauthx/secureauthx/store/postgres"
)

type stores struct {
	directory secureauthx.UserDirectory
	ledger    session.Ledger
	checks    map[string]server.HealthCheck
	closers   []func() error
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg config.Config, logger hclog.Logger) (*stores, error) {
	s := &stores{checks: make(map[string]server.HealthCheck)}

	var storeLedger session.Ledger
	switch cfg.StoreDriver {
	case config.DriverMemory:
		s.directory = memory.NewDirectory()
		storeLedger = session.NewMemoryLedger()

	case config.DriverPostgres:
		var db *sql.DB
		err := retry(ctx, cfg, logger, "postgres", func() error {
			var err error
			db, err = postgres.Open(ctx, cfg.DatabaseURL)
			return err
		})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		if err := postgres.Migrate(ctx, db); err != nil {
			s.Close()
			return nil, err
		}
		s.directory = postgres.NewDirectory(db)
		s.checks["store"] = db.PingContext
		storeLedger = postgres.NewLedger(db)

	case config.DriverGorm, config.DriverSQLite:
		var db *gorm.DB
		err := retry(ctx, cfg, logger, cfg.StoreDriver, func() error {
			var err error
			if cfg.StoreDriver == config.DriverSQLite {
				db, err = gormstore.OpenSQLite(cfg.SQLitePath)
			} else {
				db, err = gormstore.OpenPostgres(cfg.DatabaseURL)
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, sqlDB.Close)
		if err := gormstore.Migrate(ctx, db); err != nil {
			s.Close()
			return nil, err
		}
		s.directory = gormstore.NewDirectory(db)
		s.checks["store"] = sqlDB.PingContext
		storeLedger = gormstore.NewLedger(db)
	}

	switch cfg.LedgerDriver {
	case config.LedgerRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{cfg.RedisAddr},
		})
		s.closers = append(s.closers, client.Close)
		err := retry(ctx, cfg, logger, "redis", func() error {
			return client.Ping(ctx).Err()
		})
		if err != nil {
			s.Close()
			return nil, err
		}
		// Zero retention: records stay in Redis after they expire.
		store := session.NewStore(client, cfg.RedisPrefix, 0)
		s.ledger = store
		s.checks["ledger"] = func(ctx context.Context) error {
			_, err := store.Ping(ctx)
			return err
		}
	default:
		s.ledger = storeLedger
	}

	return s, nil
}

// retry connects with exponential backoff until CONNECT_TIMEOUT elapses.
func retry(ctx context.Context, cfg config.Config, logger hclog.Logger, what string, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.ConnectTimeout

	err := backoff.RetryNotify(op, backoff.WithContext(policy, ctx), func(err error, next time.Duration) {
		logger.Warn("connection attempt failed", "target", what, "error", err, "retry_in", next)
	})
	if err != nil {
		return fmt.Errorf("connect %s: %w", what, err)
	}
	return nil
}
