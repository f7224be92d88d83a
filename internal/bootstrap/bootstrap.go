// Package bootstrap connects the stores named in the configuration and
// assembles a Reconciler over them.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"quote-vehicle-reconciler/internal/common/config"
	"quote-vehicle-reconciler/internal/common/database"
	apperrors "quote-vehicle-reconciler/internal/common/errors"
	"quote-vehicle-reconciler/internal/common/logger"
	"quote-vehicle-reconciler/internal/common/validation"
	"quote-vehicle-reconciler/internal/matcher"
	"quote-vehicle-reconciler/internal/reconcile"

	"go.uber.org/zap"
)

type Services struct {
	Config     *config.Config
	Mongo      *database.MongoClient
	Redis      *database.RedisClient
	Postgres   *database.PostgresClient
	Source     matcher.Source
	Reconciler *reconcile.Reconciler
}

// RetryWithBackoff attempts to execute a function with exponential backoff
func RetryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// Build connects MongoDB, and Redis and PostgreSQL when enabled. With
// reconcile.fixtures_path set the stages read the fixture file instead and
// the reconciler only accepts dry runs. Each connection is attempted up to
// retries times.
func Build(ctx context.Context, cfg *config.Config, zapLog *zap.Logger, retries int) (*Services, error) {
	if retries < 1 {
		retries = 1
	}
	log := logger.NewZapAdapter(zapLog)
	s := &Services{Config: cfg}

	validator, err := validation.NewAssetValidator()
	if err != nil {
		return nil, err
	}

	var opts []reconcile.Option

	if cfg.Reconcile.FixturesPath != "" {
		src, err := matcher.LoadFixtures(cfg.Reconcile.FixturesPath)
		if err != nil {
			return nil, apperrors.NewInvalidInputError(err.Error())
		}
		s.Source = src
		zapLog.Info("using fixtures", zap.String("path", cfg.Reconcile.FixturesPath))
	} else {
		err = RetryWithBackoff(func() error {
			var err error
			s.Mongo, err = database.NewMongo(ctx, cfg.Database.Mongo)
			if err != nil {
				return err
			}
			return s.Mongo.Ping(ctx)
		}, retries, 2*time.Second, zapLog, "MongoDB connection")
		if err != nil {
			s.Close(ctx)
			return nil, apperrors.NewDatabaseConnectionFailedError(err)
		}
		zapLog.Info("MongoDB connected successfully", zap.String("database", cfg.Database.Mongo.Database))

		s.Source = matcher.NewMongoSource(
			s.Mongo.VehicleMasters(), s.Mongo.Quotes(), s.Mongo.VehicleCatalogs(),
			cfg.Reconcile.GetQueryTimeout(), log,
		)
		opts = append(opts, reconcile.WithWriter(reconcile.NewMongoWriter(
			s.Mongo.NewQuotes(), s.Mongo.QuoteUpdateLog(), s.Mongo.Quotes(),
		)))
	}

	if cfg.Database.Redis.Enabled {
		err = RetryWithBackoff(func() error {
			var err error
			s.Redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return s.Redis.Ping(ctx)
		}, retries, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			s.Close(ctx)
			return nil, apperrors.NewDatabaseConnectionFailedError(err)
		}
		zapLog.Info("Redis connected successfully")
		opts = append(opts, reconcile.WithCache(reconcile.NewRedisCache(s.Redis.Client, cfg.Reconcile.GetCacheTTL())))
	}

	if cfg.Database.Postgres.Enabled {
		err = RetryWithBackoff(func() error {
			var err error
			s.Postgres, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return s.Postgres.Ping(ctx)
		}, retries, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			s.Close(ctx)
			return nil, apperrors.NewDatabaseConnectionFailedError(err)
		}
		store := reconcile.NewPostgresRunStore(s.Postgres.DB)
		if err := store.EnsureSchema(ctx); err != nil {
			s.Close(ctx)
			return nil, apperrors.NewRunRecordFailedError(err)
		}
		zapLog.Info("PostgreSQL connected successfully")
		opts = append(opts, reconcile.WithRunStore(store))
	}

	s.Reconciler = reconcile.New(s.Source, validator, log, opts...)
	return s, nil
}

// Close releases every connection that was opened.
func (s *Services) Close(ctx context.Context) {
	if s.Postgres != nil {
		s.Postgres.Close()
	}
	if s.Redis != nil {
		s.Redis.Close()
	}
	if s.Mongo != nil {
		s.Mongo.Close(ctx)
	}
}
