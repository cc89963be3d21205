package container

import (
	"database/sql"
	"os"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/hiendaovinh/toolkit/pkg/db"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"vouchswap/internal/interfaces"
	"vouchswap/internal/pkg/caching"
	"vouchswap/internal/pkg/limiter"
	"vouchswap/internal/services"
)

// New builds the dependency graph every binary shares. The api, bot and
// cron daemons all run the same engine services, so they wire the same
// providers; per-binary knobs come in through vs.
func New(vs map[string]string) *do.Injector {
	injector := do.New()

	vs["API_MODE"] = os.Getenv("API_MODE")
	vs["API_ORIGINS"] = os.Getenv("API_ORIGINS")
	vs["ADMIN_API_KEY"] = os.Getenv("ADMIN_API_KEY")
	vs["VISION_API_KEY"] = os.Getenv("VISION_API_KEY")

	if vs["API_MODE"] == "" {
		vs["API_MODE"] = services.SERVER_MODE_PRODUCTION
	}
	if vs["API_ORIGINS"] == "" {
		vs["API_ORIGINS"] = "*"
	}

	do.ProvideNamedValue(injector, "envs", vs)

	do.Provide(injector, func(i *do.Injector) (*bun.DB, error) {
		sqldb := sql.OpenDB(pgdriver.NewConnector(
			pgdriver.WithDSN(os.Getenv("DB_DSN")),
			pgdriver.WithPassword(os.Getenv("DB_PASSWORD")),
		))

		return bun.NewDB(sqldb, pgdialect.New()), nil
	})

	do.ProvideNamed(injector, "db-readonly", func(i *do.Injector) (*bun.DB, error) {
		dsn := os.Getenv("DB_DSN_READONLY")
		password := os.Getenv("DB_PASSWORD_READONLY")
		if dsn == "" {
			dsn = os.Getenv("DB_DSN")
			password = os.Getenv("DB_PASSWORD")
		}

		sqldb := sql.OpenDB(pgdriver.NewConnector(
			pgdriver.WithDSN(dsn),
			pgdriver.WithPassword(password),
		))

		return bun.NewDB(sqldb, pgdialect.New()), nil
	})

	do.ProvideNamed(injector, "redis-db", func(i *do.Injector) (redis.UniversalClient, error) {
		clusterURL := os.Getenv("CLUSTER_REDIS_SESSIONS")
		if clusterURL != "" {
			clusterOpts, err := redis.ParseClusterURL(clusterURL)
			if err != nil {
				return nil, err
			}
			return redis.NewClusterClient(clusterOpts), nil
		}

		return db.InitRedis(&db.RedisConfig{
			URL: os.Getenv("REDIS_SESSIONS"),
		})
	})

	do.ProvideNamed(injector, "redis-cache", func(i *do.Injector) (redis.UniversalClient, error) {
		clusterURL := os.Getenv("CLUSTER_REDIS_CACHE")
		if clusterURL != "" {
			clusterOpts, err := redis.ParseClusterURL(clusterURL)
			if err != nil {
				return nil, err
			}
			return redis.NewClusterClient(clusterOpts), nil
		}

		return db.InitRedis(&db.RedisConfig{
			URL: os.Getenv("REDIS_CACHE"),
		})
	})

	do.ProvideNamed(injector, "redis-cache-readonly", func(i *do.Injector) (redis.UniversalClient, error) {
		var clusterOpts *redis.ClusterOptions
		var err error

		clusterReadOnlyURL := os.Getenv("CLUSTER_REDIS_CACHE_READONLY")
		if clusterReadOnlyURL != "" {
			clusterOpts, err = redis.ParseClusterURL(clusterReadOnlyURL)
		} else {
			clusterURL := os.Getenv("CLUSTER_REDIS_CACHE")
			if clusterURL != "" {
				clusterOpts, err = redis.ParseClusterURL(clusterURL)
			}
		}
		if err != nil {
			return nil, err
		}
		if clusterOpts != nil {
			clusterOpts.ReadOnly = true
			return redis.NewClusterClient(clusterOpts), nil
		}

		readOnlyURL := os.Getenv("REDIS_CACHE_READONLY")
		if readOnlyURL == "" {
			readOnlyURL = os.Getenv("REDIS_CACHE")
		}

		return db.InitRedis(&db.RedisConfig{
			URL: readOnlyURL,
		})
	})

	do.ProvideNamed(injector, "redis-limiter", func(i *do.Injector) (redis.UniversalClient, error) {
		clusterURL := os.Getenv("CLUSTER_REDIS_LIMITER")
		if clusterURL != "" {
			clusterOpts, err := redis.ParseClusterURL(clusterURL)
			if err != nil {
				return nil, err
			}
			return redis.NewClusterClient(clusterOpts), nil
		}

		return db.InitRedis(&db.RedisConfig{
			URL: os.Getenv("REDIS_LIMITER"),
		})
	})

	do.ProvideNamed(injector, "redis-mutex", func(i *do.Injector) (redis.UniversalClient, error) {
		clusterURL := os.Getenv("CLUSTER_REDIS_MUTEX")
		if clusterURL != "" {
			clusterOpts, err := redis.ParseClusterURL(clusterURL)
			if err != nil {
				return nil, err
			}
			return redis.NewClusterClient(clusterOpts), nil
		}

		return db.InitRedis(&db.RedisConfig{
			URL: os.Getenv("REDIS_MUTEX"),
		})
	})

	do.Provide(injector, func(i *do.Injector) (caching.Cache, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-cache")
		if err != nil {
			return nil, err
		}

		return caching.NewCacheRedis(dbRedis, false)
	})

	do.Provide(injector, func(i *do.Injector) (caching.ReadOnlyCache, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-cache-readonly")
		if err != nil {
			return nil, err
		}

		return caching.NewCacheRedis(dbRedis, false)
	})

	do.Provide(injector, func(i *do.Injector) (interfaces.Limiter, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-limiter")
		if err != nil {
			return nil, err
		}

		return limiter.NewLimiter(dbRedis)
	})

	do.Provide(injector, func(i *do.Injector) (*redsync.Redsync, error) {
		dbRedis, err := do.InvokeNamed[redis.UniversalClient](i, "redis-mutex")
		if err != nil {
			return nil, err
		}

		pool := goredis.NewPool(dbRedis)
		return redsync.New(pool), nil
	})

	do.Provide(injector, func(i *do.Injector) (*services.Bot, error) {
		return services.NewBot(vs["BOT_TOKEN"])
	})

	do.Provide(injector, func(i *do.Injector) (*services.Authentication, error) {
		return services.NewAuthentication(vs["JWT_SECRET"])
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceVision, error) {
		return services.NewServiceVision(vs["VISION_ENDPOINT"], vs["VISION_API_KEY"])
	})

	do.Provide(injector, func(i *do.Injector) (*services.Notifier, error) {
		return services.NewNotifier(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceConfig, error) {
		return services.NewServiceConfig(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceUser, error) {
		return services.NewServiceUser(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceVoucher, error) {
		return services.NewServiceVoucher(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceReport, error) {
		return services.NewServiceReport(injector)
	})

	do.Provide(injector, func(i *do.Injector) (*services.ServiceLedger, error) {
		return services.NewServiceLedger(injector)
	})

	return injector
}
