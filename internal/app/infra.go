package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/Alijeyrad/destek_backend/config"
	"github.com/Alijeyrad/destek_backend/internal/events"
	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo"
	"github.com/Alijeyrad/destek_backend/internal/repo/gormrepo"
	"github.com/Alijeyrad/destek_backend/pkg/authorize"
	"github.com/Alijeyrad/destek_backend/pkg/constants"
	"github.com/Alijeyrad/destek_backend/pkg/database"
	"github.com/Alijeyrad/destek_backend/pkg/dispatch"
	"github.com/Alijeyrad/destek_backend/pkg/email"
	"github.com/Alijeyrad/destek_backend/pkg/logs"
	"github.com/Alijeyrad/destek_backend/pkg/observability"
	pasetotoken "github.com/Alijeyrad/destek_backend/pkg/paseto"
	"github.com/Alijeyrad/destek_backend/pkg/push"
	redispkg "github.com/Alijeyrad/destek_backend/pkg/redis"
	s3pkg "github.com/Alijeyrad/destek_backend/pkg/s3"
	"github.com/Alijeyrad/destek_backend/pkg/sms"
	"github.com/Alijeyrad/destek_backend/pkg/util/password"
)

// InfraModule provides all infrastructure dependencies.
var InfraModule = fx.Module("infra",
	fx.Provide(ProvideLogger),
	fx.Provide(ProvideGorm),
	fx.Provide(ProvideRepo),
	fx.Provide(ProvideRedis),
	fx.Provide(ProvideSessionStore),
	fx.Provide(ProvideProfileCache),
	fx.Provide(ProvideAuthorization),
	fx.Provide(ProvideEmailClient),
	fx.Provide(ProvideSMSClient),
	fx.Provide(ProvidePushClient),
	fx.Provide(ProvideOTel),
	fx.Provide(ProvideS3Client),
	fx.Provide(ProvideNatsClient),
	fx.Provide(ProvideEventBus),
	fx.Provide(ProvideDispatcher),
	fx.Provide(ProvidePasetoManager),
	fx.Provide(ProvideHasher),
	fx.Invoke(func(*slog.Logger) {}),
)

// ProvideLogger builds the process logger and installs it as the slog default.
func ProvideLogger(cfg *config.Config) *slog.Logger {
	logger := logs.New(cfg)
	slog.SetDefault(logger)
	return logger
}

func ProvideGorm(lc fx.Lifecycle, cfg *config.Config) (*gorm.DB, error) {
	db, err := database.NewGorm(cfg.Database)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing main database connection")
			return database.Close(db)
		},
	})
	return db, nil
}

func ProvideRepo(db *gorm.DB) *repo.Client {
	return gormrepo.NewClient(db)
}

func ProvideRedis(lc fx.Lifecycle, cfg *config.Config) (*redis.Client, error) {
	rdb, err := redispkg.NewRedisFromCentral(cfg.Redis)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("closing Redis connection")
			return rdb.Close()
		},
	})
	return rdb, nil
}

func ProvideSessionStore(rdb *redis.Client) *redispkg.SessionStore {
	return redispkg.NewSessionStore(rdb)
}

func ProvideProfileCache(rdb *redis.Client, cfg *config.Config) *redispkg.JSONCache[model.Profile] {
	ttl := 24 * time.Hour
	if m := cfg.Authentication.ProfileCacheTTLMin; m > 0 {
		ttl = time.Duration(m) * time.Minute
	}
	return redispkg.NewJSONCache[model.Profile](rdb, constants.ProfileKeyPrefix, ttl)
}

func ProvideAuthorization(lc fx.Lifecycle, cfg *config.Config) (authorize.IAuthorization, error) {
	acfg := authorize.FromCentralConfig(cfg.Authorization)
	dsn := database.NewDSN(cfg.CasbinDatabase)
	enforcer, cleanup, err := authorize.NewEnforcer(acfg.CasbinModelPath, dsn, acfg.PolicySyncEnabled)
	if err != nil {
		return nil, err
	}
	auth, err := authorize.NewAuthorization(enforcer, acfg.SuperadminBypass)
	if err != nil {
		cleanup(context.Background())
		return nil, err
	}
	if acfg.EnableAudit {
		auth = authorize.NewAuditedAuthorization(auth, slog.Default())
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("cleaning up Casbin enforcer")
			cleanup(ctx)
			return nil
		},
	})
	return auth, nil
}

func ProvideEmailClient(cfg *config.Config) (*email.Client, error) {
	return email.NewFromCentral(cfg.Email)
}

func ProvideSMSClient(cfg *config.Config) (*sms.Client, error) {
	return sms.NewFromConfig(cfg.SMS)
}

func ProvidePushClient(cfg *config.Config) *push.Client {
	return push.New(push.FromCentralConfig(cfg.Push))
}

// ProvideS3Client returns nil when no bucket is configured; photo uploads
// are then refused and only inline photos are accepted.
func ProvideS3Client(cfg *config.Config) (*s3pkg.Client, error) {
	cli, err := s3pkg.New(context.Background(), cfg.S3)
	if errors.Is(err, s3pkg.ErrNoBucket) {
		slog.Warn("blob storage disabled: s3.bucket is empty")
		return nil, nil
	}
	return cli, err
}

// ProvideNatsClient returns nil when nats.url is empty; the event bus then
// stays in-process.
func ProvideNatsClient(lc fx.Lifecycle, cfg *config.Config) (*nats.Conn, error) {
	if cfg.Nats.URL == "" {
		return nil, nil
	}
	nc, err := nats.Connect(cfg.Nats.URL, nats.Name(constants.AppName))
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("draining NATS connection")
			return nc.Drain()
		},
	})
	return nc, nil
}

func ProvideEventBus(lc fx.Lifecycle, nc *nats.Conn) (events.Bus, error) {
	var bus events.Bus = events.NewMemoryBus()
	if nc != nil {
		nb, err := events.NewNatsBus(nc)
		if err != nil {
			return nil, err
		}
		bus = nb
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return bus.Close()
		},
	})
	return bus, nil
}

// ProvideDispatcher runs best-effort side effects. Queued tasks get the
// shutdown window to finish.
func ProvideDispatcher(lc fx.Lifecycle, cfg *config.Config) *dispatch.Dispatcher {
	d := dispatch.New(dispatch.FromCentralConfig(cfg.Dispatch))
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := d.Close(ctx); err != nil {
				slog.Warn("dispatcher did not drain", "dropped", d.Dropped(), "err", err)
			}
			return nil
		},
	})
	return d
}

func ProvidePasetoManager(cfg *config.Config) (*pasetotoken.Manager, error) {
	return pasetotoken.NewPasetoManager(cfg)
}

func ProvideHasher(cfg *config.Config) *password.Hasher {
	return password.NewHasher(password.FromCentralConfig(cfg.Password))
}

func ProvideOTel(lc fx.Lifecycle, cfg *config.Config) (*observability.Provider, error) {
	if !cfg.Observability.Enabled {
		return nil, nil
	}
	provider, err := observability.InitTelemetry(context.Background(), observability.FromCentralConfig(cfg))
	if err != nil {
		return nil, err
	}
	slog.Info("observability initialized",
		"tracing", cfg.Observability.Tracing.Enabled,
		"metrics", cfg.Observability.Metrics.Enabled,
	)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			slog.Debug("shutting down observability providers")
			return provider.Shutdown(ctx)
		},
	})
	return provider, nil
}
