package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/joho/godotenv"
	leadintake "github.com/phbpx/lead-intake"
	"github.com/phbpx/lead-intake/handler"
	"github.com/phbpx/lead-intake/metrics"
	"github.com/phbpx/lead-intake/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {

	log, err := newLog("lead-intake")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run("lead-intake", log); err != nil {
		log.Errorw("startup", "err", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(serverName string, log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		Http struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			Host            string        `conf:"default:0.0.0.0:10000"`
			MaxBodyBytes    int64         `conf:"default:1048576"`
		}
		DB struct {
			User         string `conf:"default:leadsvc"`
			Password     string `conf:"mask"`
			Host         string
			Name         string `conf:"default:leads"`
			MaxIdleConns int    `conf:"default:2"`
			MaxOpenConns int    `conf:"default:0"`
			DisableTLS   bool   `conf:"default:false"`
		}
		Jaeger struct {
			Disabled    bool    `conf:"default:false"`
			ReporterURI string  `conf:"default:http://localhost:14268/api/traces"`
			ServiceName string  `conf:"default:lead-intake-api"`
			Probability float64 `conf:"default:0.5"`
		}
	}{}

	// A local .env file is optional.
	_ = godotenv.Load()

	help, err := conf.Parse("LEAD", &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// Hosting platforms hand the listen port over in PORT.
	if port := os.Getenv("PORT"); port != "" {
		cfg.Http.Host = net.JoinHostPort("0.0.0.0", port)
	}

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Database Support

	dbCfg := postgres.Config{
		User:         cfg.DB.User,
		Password:     cfg.DB.Password,
		Host:         cfg.DB.Host,
		Name:         cfg.DB.Name,
		MaxIdleConns: cfg.DB.MaxIdleConns,
		MaxOpenConns: cfg.DB.MaxOpenConns,
		DisableTLS:   cfg.DB.DisableTLS,
	}

	var (
		store       leadintake.LeadStore
		statusCheck handler.StatusCheck
	)

	if dbCfg.Enabled() {
		db, err := openDB(log, dbCfg)
		if err != nil {
			return err
		}
		defer func() {
			log.Infow("shutdown", "status", "stopping database support", "host", dbCfg.Host)
			db.Close()
		}()

		store = postgres.NewLeadStore(db)
		statusCheck = func(ctx context.Context) error {
			return postgres.StatusCheck(ctx, db)
		}
	} else {
		log.Warnw("startup", "status", "database not configured, leads will be logged but not stored", "missing", "LEAD_DB_HOST or LEAD_DB_PASSWORD")
	}

	// =========================================================================
	// Start Tracing Support

	if !cfg.Jaeger.Disabled {
		log.Infow("startup", "status", "initializing OT/Jaeger tracing support")

		traceProvider, err := startTracing(
			cfg.Jaeger.ServiceName,
			cfg.Jaeger.ReporterURI,
			cfg.Jaeger.Probability,
		)
		if err != nil {
			return fmt.Errorf("starting tracing: %w", err)
		}
		defer traceProvider.Shutdown(context.Background())
	}

	// =========================================================================
	// Create router

	log.Infow("startup", "status", "initializing router")

	otelLog := otelzap.New(log.Desugar(), otelzap.WithStackTrace(true)).Sugar()

	mux := handler.NewRouter(handler.RouterConfig{
		ServiceName:  serverName,
		Log:          otelLog,
		Store:        store,
		StatusCheck:  statusCheck,
		Metrics:      metrics.New(prometheus.DefaultRegisterer),
		Gatherer:     prometheus.DefaultGatherer,
		MaxBodyBytes: cfg.Http.MaxBodyBytes,
	})

	// =========================================================================
	// Start API Server

	log.Infow("startup", "status", "initializing http server", "host", cfg.Http.Host)

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// The HTTP Server
	server := &http.Server{
		Addr:         cfg.Http.Host,
		Handler:      mux,
		ReadTimeout:  cfg.Http.ReadTimeout,
		WriteTimeout: cfg.Http.WriteTimeout,
		IdleTimeout:  cfg.Http.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	go func() {
		log.Infow("startup", "status", "api router started", "host", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Http.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			server.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

// openDB connects to the database and brings its schema up to date.
func openDB(log *zap.SugaredLogger, cfg postgres.Config) (*sql.DB, error) {
	log.Infow("startup", "status", "initializing database support", "host", cfg.Host)

	db, err := postgres.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to db: %w", err)
	}

	log.Infow("startup", "status", "updating database schema", "database", cfg.Name, "host", cfg.Host)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("updating database schema: %w", err)
	}

	return db, nil
}

func newLog(serviceName string) (*zap.SugaredLogger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stdout"}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.DisableStacktrace = true
	config.InitialFields = map[string]interface{}{
		"service": serviceName,
	}

	log, err := config.Build()
	if err != nil {
		return nil, err
	}

	return log.Sugar(), nil
}

func startTracing(serviceName, reporterURL string, probability float64) (*tracesdk.TracerProvider, error) {
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(reporterURL)))
	if err != nil {
		return nil, fmt.Errorf("creating new exporter: %w", err)
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithSampler(tracesdk.ParentBased(tracesdk.TraceIDRatioBased(probability))),
		// Always be sure to batch in production.
		tracesdk.WithBatcher(exp,
			tracesdk.WithMaxExportBatchSize(tracesdk.DefaultMaxExportBatchSize),
			tracesdk.WithBatchTimeout(tracesdk.DefaultScheduleDelay*time.Millisecond),
		),
		// Record information about this application in a Resource.
		tracesdk.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			attribute.String("exporter", "jaeger"),
		)),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}
