package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"checkin/config"
	"checkin/db"
	"checkin/kv"
	"checkin/models"
	"checkin/repository"
	"checkin/session"
)

// backend is everything a command needs, opened per the configuration.
type backend struct {
	cfg      config.Config
	log      zerolog.Logger
	kv       kv.Store
	rdb      *redis.Client
	repo     *repository.Repository
	accounts models.AccountRepository
	session  *session.Manager
	closers  []func() error
}

func openBackend(ctx context.Context, cfg config.Config, log zerolog.Logger) (*backend, error) {
	b := &backend{cfg: cfg, log: log}
	if err := b.open(ctx); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

func (b *backend) open(ctx context.Context) error {
	cfg, log := b.cfg, b.log

	switch cfg.KVDriver {
	case config.KVRedis:
		rdb, err := db.OpenRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		b.rdb = rdb
		b.closers = append(b.closers, rdb.Close)
		b.kv = kv.NewRedis(rdb, cfg.RedisPrefix)
	default:
		store, err := kv.OpenSQLite(cfg.DataPath)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, store.Close)
		b.kv = store
	}

	var records models.RecordStore
	switch cfg.Backend {
	case config.BackendRemote:
		client, store, err := db.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDB, cfg.StoreTimeout)
		if err != nil {
			return err
		}
		records = store
		b.closers = append(b.closers, func() error { return client.Disconnect(context.Background()) })
	default:
		records = models.NewLocalStore(b.kv)
	}
	b.repo = repository.New(records)

	if cfg.PostgresDSN != "" {
		sqldb, err := db.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, sqldb.Close)
		b.accounts = models.NewSQLAccounts(sqldb, cfg.StoreTimeout)
	} else {
		b.accounts = models.NewLocalAccounts(b.kv)
	}

	b.session = session.New(b.accounts, b.kv, log)
	if err := b.session.Init(ctx); err != nil {
		log.Warn().Err(err).Msg("starting signed out")
	}
	if cfg.Seeded() {
		if err := b.session.EnsureAccount(ctx, cfg.SeedName, cfg.SeedEmail, cfg.SeedPassword); err != nil {
			log.Warn().Err(err).Msg("could not seed demo account")
		}
	}

	log.Debug().
		Str("backend", cfg.Backend).
		Str("kv", cfg.KVDriver).
		Bool("sql_accounts", cfg.PostgresDSN != "").
		Msg("backend ready")
	return nil
}

// cacheRedis returns the Redis client for the response cache and quota,
// reusing the kv connection when there is one. nil means run uncached.
func (b *backend) cacheRedis(ctx context.Context) *redis.Client {
	if b.rdb != nil {
		return b.rdb
	}
	rdb, err := db.OpenRedis(ctx, b.cfg.RedisAddr)
	if err != nil {
		b.log.Warn().Err(err).Msg("redis unavailable, serving without cache and quota")
		return nil
	}
	b.rdb = rdb
	b.closers = append(b.closers, rdb.Close)
	return rdb
}

// requireUser fails when nobody is signed in on this device.
func (b *backend) requireUser() (session.Identity, error) {
	id, ok := b.session.CurrentUser()
	if !ok {
		return session.Identity{}, fmt.Errorf("%w: run `checkin login` first", models.ErrUnauthenticated)
	}
	return id, nil
}

func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
