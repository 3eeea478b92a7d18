package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"quizloop-service/internal/app"
	"quizloop-service/internal/config"
	"quizloop-service/internal/infra/collection"
	"quizloop-service/internal/infra/gemini"
	"quizloop-service/internal/infra/memory"
	"quizloop-service/internal/infra/openai"
	"quizloop-service/internal/infra/postgres"
	redisinfra "quizloop-service/internal/infra/redis"
	"quizloop-service/internal/logger"
)

const (
	defaultProjectCacheTTL = 30 * time.Second
	defaultVisitTTL        = 2 * time.Hour
	visitSweepInterval     = time.Minute
)

// deps holds the backing services shared by every subcommand.
type deps struct {
	cfg   config.Config
	log   zerolog.Logger
	store *collection.Store
	redis *redis.Client

	closers []func()
}

func openDeps(ctx context.Context, configPath string) (*deps, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	d := &deps{cfg: cfg, log: logger.New(cfg.Log.Level, cfg.Log.Format)}

	if cfg.Redis.Addr != "" {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.closers = append(d.closers, func() { _ = d.redis.Close() })
	}

	kv, err := d.openKV(ctx)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.store = collection.NewStore(kv)
	return d, nil
}

func (d *deps) openKV(ctx context.Context) (collection.KV, error) {
	driver := d.cfg.StoreDriver()
	d.log.Info().Str("driver", driver).Msg("opening collection store")

	switch driver {
	case config.DriverRedis:
		if d.redis == nil {
			return nil, fmt.Errorf("redis store selected but redis addr not configured")
		}
		if err := d.redis.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		prefix := d.cfg.Redis.Prefix
		if prefix == "" {
			prefix = redisinfra.DefaultKeyPrefix
		}
		return redisinfra.NewKVStore(d.redis, prefix), nil
	case config.DriverPostgres:
		if err := runMigrationsWithConfig(ctx, d.cfg, d.log); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, d.cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		d.closers = append(d.closers, pool.Close)
		return postgres.NewKVStore(pool), nil
	default:
		d.log.Warn().Msg("memory store selected; data is lost on restart")
		return memory.NewKVStore(), nil
	}
}

// projects wraps the store with the slug lookup cache.
func (d *deps) projects() *memory.ProjectCache {
	return memory.NewProjectCache(d.store, config.TTLDuration(d.cfg.Project.CacheTTL, defaultProjectCacheTTL))
}

// visits keeps visits in memory, with Redis liveness keys when Redis is configured.
// Visits idle longer than visit.ttl are dropped.
func (d *deps) visits() app.VisitRepository {
	ttl := config.TTLDuration(d.cfg.Visit.TTL, defaultVisitTTL)
	if d.redis != nil {
		return redisinfra.NewVisitStore(d.redis, ttl)
	}
	return memory.NewVisitStore(ttl)
}

// generator returns nil when no API key is configured; generation requests then
// fail with domain.ErrGeneratorNotConfigured.
func (d *deps) generator(ctx context.Context) (app.QuestionGenerator, error) {
	key := d.cfg.GeneratorKey()
	provider := d.cfg.GeneratorProvider()
	if key == "" {
		d.log.Warn().Str("provider", provider).Msg("no generator api key configured; question generation disabled")
		return nil, nil
	}

	switch provider {
	case config.ProviderOpenAI:
		g, err := openai.NewGenerator(key, d.cfg.Generator.Model)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		g, err := gemini.NewGenerator(ctx, key, d.cfg.Generator.Model)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}
