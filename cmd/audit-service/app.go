package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq"

	"ediaudit/internal/acceptance"
	"ediaudit/internal/archive"
	"ediaudit/internal/config"
	"ediaudit/internal/constants"
	"ediaudit/internal/dedup"
	"ediaudit/internal/ingest"
	"ediaudit/internal/logger"
	"ediaudit/pkg/bootstrap"
	"ediaudit/pkg/health"
	"ediaudit/pkg/metrics"
	"ediaudit/pkg/middleware"
	"ediaudit/pkg/migrations"
	"ediaudit/pkg/ratelimit"
)

const serviceName = "audit-service"

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redis          *redis.Client
	mongoClient    *mongo.Client
	acceptanceSvc  *acceptance.Service
	acceptanceRepo acceptance.Repository
	dedupSvc       *dedup.Service
	ingestSvc      ingest.Service
	server         *http.Server
	router         *gin.Engine
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(serviceName)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.InitProducerOnly(); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	a.registerMetrics()

	if err := a.initRouter(); err != nil {
		return fmt.Errorf("failed to initialize router: %w", err)
	}

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: a.router,
	}

	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db

	if a.Config.Database.RunMigrations {
		path := a.Config.Database.MigrationsPath
		if path == "" {
			path = "migrations/postgres"
		}
		if err := migrations.RunPostgres(a.db, path); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redis = rdb

	if a.Config.Database.MongoDB.URI != "" {
		mongoClient, err := a.dbConnector.InitMongoDB(ctx)
		if err != nil {
			a.Logger.WarnwCtx(ctx, "MongoDB connection failed, archive disabled", "error", err)
		} else if mongoClient != nil {
			a.mongoClient = mongoClient
			if err := migrations.EnsureArchiveCollection(ctx, a.mongoDatabase()); err != nil {
				return fmt.Errorf("failed to prepare archive collection: %w", err)
			}
		}
	}

	return nil
}

func (a *App) mongoDatabase() *mongo.Database {
	dbName := a.Config.Database.MongoDB.Database
	if dbName == "" {
		dbName = constants.DefaultMongoDBName
	}
	return a.mongoClient.Database(dbName)
}

func (a *App) initServices() error {
	a.acceptanceRepo = acceptance.NewRepository(a.db)

	acceptanceSvc, err := acceptance.NewService(a.acceptanceRepo, a.Config.Acceptance, a.Logger)
	if err != nil {
		return err
	}
	a.acceptanceSvc = acceptanceSvc

	dedupBaseRepo := dedup.NewRepository(a.redis)
	var dedupRepo dedup.Repository = dedupBaseRepo
	if a.Config.CircuitBreaker.Enabled {
		dedupRepo = dedup.NewCircuitBreakerRepository(dedupBaseRepo, a.Config.CircuitBreaker)
	}
	a.dedupSvc = dedup.NewService(dedupRepo, a.Config.Dedup, a.Logger)

	var archiveRepo archive.Repository
	if a.mongoClient != nil {
		archiveRepo = archive.NewRepository(a.mongoDatabase())
	}

	a.ingestSvc = ingest.NewService(
		ingest.NewRepository(a.db),
		a.acceptanceSvc,
		a.dedupSvc,
		archiveRepo,
		a.Producer,
		a.Config,
		a.Logger,
	)

	return nil
}

func (a *App) registerMetrics() {
	metrics.RegisterDecodeMetrics()
	metrics.RegisterIngestMetrics()
	metrics.RegisterAcceptanceMetrics()
	metrics.RegisterDedupMetrics()
	metrics.RegisterManagementMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}
}

func (a *App) initRouter() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.Config.API.RateLimit.Enabled {
		rateLimitConfig := ratelimit.RateLimitConfig{
			RPS:             a.Config.API.RateLimit.RPS,
			Burst:           a.Config.API.RateLimit.Burst,
			CleanupInterval: time.Duration(a.Config.API.RateLimit.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(a.Config.API.RateLimit.MaxAge) * time.Second,
		}
		router.Use(ratelimit.RateLimitMiddleware(rateLimitConfig))
		a.Logger.Infow("Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	handler := ingest.NewHandler(a.ingestSvc, a.acceptanceSvc, a.acceptanceRepo, a.Logger)
	handler.RegisterRoutes(router)

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	healthRegistry.Register(health.NewRedisChecker(a.redis))
	if a.mongoClient != nil {
		healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router = router
	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "Server listening", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.acceptanceSvc.StartReloader(gCtx)
	})

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(context.Background())
	})

	err := g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.dedupSvc != nil {
			a.dedupSvc.Stop()
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, a.db, a.mongoClient)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
