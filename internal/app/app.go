package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"class-service/common/logger"
	commonmetrics "class-service/common/metrics"
	"class-service/common/telemetry"
	"class-service/internal/classes"
	"class-service/internal/config"
	"class-service/internal/db"
	"class-service/internal/health"
	"class-service/internal/messaging"
	"class-service/internal/metrics"
	"class-service/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
)

type App struct {
	config    *config.Config
	router    chi.Router
	server    *http.Server
	logger    *slog.Logger
	db        *bun.DB
	producer  *messaging.Producer
	telemetry *telemetry.Telemetry
}

func New() *App {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	slogLogger := logger.NewWithServiceContext(ServiceName, Version, cfg.Env)

	// Set as default logger so slog.Info() uses the same handler
	slog.SetDefault(slogLogger)

	slogLogger.Info("initializing application", "env", cfg.Env, "commit", GitCommit, "built", BuildTime)

	app := &App{
		config: cfg,
		router: chi.NewRouter(),
		logger: slogLogger,
	}

	ctx := context.Background()

	infraMetrics := commonmetrics.NewMock()
	if cfg.Telemetry.Enabled {
		tel, err := telemetry.Init(ctx, telemetry.Options{
			ServiceName:    ServiceName,
			ServiceVersion: Version,
			Endpoint:       cfg.Telemetry.Endpoint,
		}, slogLogger)
		if err != nil {
			slogLogger.Warn("failed to initialize telemetry", "error", err)
		} else {
			app.telemetry = tel
			infraMetrics = tel.Metrics
		}
	}

	database, err := db.New(ctx, cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database: ", err)
	}
	app.db = database

	if app.telemetry != nil {
		if err := infraMetrics.Database.RegisterDB(database.DB, otel.Meter(ServiceName)); err != nil {
			slogLogger.Warn("failed to register database pool metrics", "error", err)
		}
	}

	if err := db.RunMigrations(ctx, database, classes.Tables()...); err != nil {
		log.Fatal("failed to run migrations: ", err)
	}

	serviceMetrics, err := metrics.New(otel.Meter(ServiceName))
	if err != nil {
		slogLogger.Warn("failed to initialize service metrics", "error", err)
		serviceMetrics = metrics.NewMock()
	}

	// NATS is optional: without it classes are still created, just not announced
	var publisher classes.Publisher
	if cfg.NATS.URL != "" {
		producer, err := messaging.NewProducer(cfg.NATS.URL, cfg.NATS.Subject, slogLogger, infraMetrics.Messaging)
		if err != nil {
			slogLogger.Warn("failed to initialize NATS producer", "error", err)
		} else {
			app.producer = producer
			publisher = producer
		}
	}

	app.router.Use(chimiddleware.RequestID)
	app.router.Use(chimiddleware.RealIP)
	app.router.Use(chimiddleware.Recoverer)
	app.router.Use(middleware.CORS(cfg.Server.CORSOrigins))

	healthHandler := health.NewHandler(database, slogLogger)
	healthHandler.RegisterRoutes(app.router)

	classRepo := classes.NewRepository(database, infraMetrics.Database)
	classService := classes.NewService(classRepo, publisher, slogLogger)
	classHandler := classes.NewHandler(classService, slogLogger, serviceMetrics)
	classHandler.RegisterRoutes(app.router)

	slogLogger.Info("application initialized successfully")

	return app
}

func (a *App) Run() error {
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", a.config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  seconds(a.config.Server.ReadTimeout),
		WriteTimeout: seconds(a.config.Server.WriteTimeout),
		IdleTimeout:  seconds(a.config.Server.IdleTimeout),
	}

	a.logger.Info("server starting", "port", a.config.Server.Port)
	if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down server")

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("nats producer: %w", err))
		}
	}

	if err := a.telemetry.Shutdown(ctx, a.logger); err != nil {
		errs = append(errs, err)
	}

	db.Close(a.db)

	return errors.Join(errs...)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
