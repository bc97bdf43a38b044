package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

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
	"ediaudit/pkg/errors"
	"ediaudit/pkg/health"
	"ediaudit/pkg/metrics"
	"ediaudit/pkg/migrations"
	"ediaudit/pkg/models"
)

const serviceName = "ingest-worker"

type App struct {
	*bootstrap.Base
	dbConnector   *bootstrap.DatabaseConnector
	db            *sql.DB
	redis         *redis.Client
	mongoClient   *mongo.Client
	acceptanceSvc *acceptance.Service
	dedupSvc      *dedup.Service
	ingestSvc     ingest.Service
	server        *http.Server
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

	if err := a.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := a.InitBroker(serviceName); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	metrics.RegisterDecodeMetrics()
	metrics.RegisterIngestMetrics()
	metrics.RegisterAcceptanceMetrics()
	metrics.RegisterDedupMetrics()
	metrics.RegisterBrokerMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initHTTPServer(); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
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
	acceptanceRepo := acceptance.NewRepository(a.db)

	acceptanceSvc, err := acceptance.NewService(acceptanceRepo, a.Config.Acceptance, a.Logger)
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

func (a *App) initHTTPServer() error {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	healthRegistry.Register(health.NewRedisChecker(a.redis))
	if a.mongoClient != nil {
		healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	}
	if a.Config.Broker.Type == "kafka" {
		healthRegistry.Register(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := healthRegistry.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprintf(w, `{"status":"%s","timestamp":"%s"}`, h.Status, h.Timestamp.Format(time.RFC3339))
	})

	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: mux,
	}

	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
			if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return a.acceptanceSvc.StartReloader(gCtx)
	})

	inboundTopic := a.Config.Broker.Kafka.InboundTopic
	if inboundTopic == "" {
		inboundTopic = constants.DefaultInboundTopic
	}

	g.Go(func() error {
		a.Logger.InfowCtx(gCtx, "Starting inbound consumer", "topic", inboundTopic)
		return a.Consumer.Consume(gCtx, inboundTopic, a.handleMessage)
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

// handleMessage runs the full audit pipeline for one inbound envelope.
// Rejections, duplicates, and malformed messages are terminal outcomes
// for this message, not broker failures, so they are acknowledged
// instead of being retried into the DLQ.
func (a *App) handleMessage(ctx context.Context, msg models.InboundEnvelope) error {
	invoice, err := a.ingestSvc.Ingest(ctx, msg)
	if err != nil {
		switch {
		case errors.IsRejected(err):
			a.Logger.InfowCtx(ctx, "Message rejected by acceptance rules", "error", err)
			return nil
		case errors.IsDuplicate(err):
			a.Logger.InfowCtx(ctx, "Duplicate interchange skipped")
			return nil
		case errors.IsInvalidMessage(err):
			a.Logger.WarnwCtx(ctx, "Message cannot be decoded", "error", err)
			return nil
		default:
			a.Logger.ErrorwCtx(ctx, "Ingest failed", "error", err)
			return err
		}
	}

	a.Logger.InfowCtx(ctx, "Invoice ingested",
		"invoice_id", invoice.ID,
		"invoice_number", invoice.InvoiceNumber,
	)
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.InfowCtx(ctx, "Shutting down ingest worker")

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
