package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/sdko-org/get2put/internal/config"
	"github.com/sdko-org/get2put/internal/database"
	"github.com/sdko-org/get2put/internal/handlers"
	httpserver "github.com/sdko-org/get2put/internal/http"
	"github.com/sdko-org/get2put/internal/journal"
	"github.com/sdko-org/get2put/internal/metrics"
	"github.com/sdko-org/get2put/internal/session"
	"github.com/sdko-org/get2put/internal/storage"
	"github.com/sdko-org/get2put/internal/upstream"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *gorm.DB
	var store session.Store = session.NewMemoryStore()
	if cfg.PostgresEnabled() {
		db, err = database.NewPostgresDB(logger, database.PostgresConfigFrom(cfg))
		if err != nil {
			logger.WithError(err).Fatal("Database initialization failed")
		}
		store = session.NewPostgresStore(db)
	}
	go session.NewPurger(logger, store, cfg.SessionTTL, cfg.SessionPurgeInterval).Start(ctx)

	gate := session.NewGate(logger, store, cfg.SessionMinInterval)
	client := upstream.NewClient(logger, cfg)

	var opts []handlers.RelayOption
	var records storage.RecordStore
	var journalReader handlers.JournalReader

	if cfg.LoggingEnabled {
		var sinks []journal.Sink
		fileSink, err := journal.OpenFile(cfg.LogFile)
		if err != nil {
			logger.WithError(err).Warn("Journal file unavailable, continuing without it")
		} else {
			defer fileSink.Close()
			sinks = append(sinks, fileSink)
		}
		if cfg.LogSQLitePath != "" {
			sqliteSink, err := journal.OpenSQLite(cfg.LogSQLitePath)
			if err != nil {
				logger.WithError(err).Warn("Journal database unavailable, continuing without it")
			} else {
				defer sqliteSink.Close()
				sinks = append(sinks, sqliteSink)
				journalReader = sqliteSink
			}
		}
		opts = append(opts, handlers.WithJournal(journal.New(logger, sinks...)))
	}

	if cfg.S3Enabled() {
		s3Storage, err := storage.NewS3Storage(cfg)
		if err != nil {
			logger.WithError(err).Fatal("S3 initialization failed")
		}
		records = s3Storage
		opts = append(opts, handlers.WithRecordStore(s3Storage))
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
		opts = append(opts, handlers.WithMetrics(m))
	}

	relay := handlers.NewRelayHandler(logger, cfg, gate, client, opts...)

	r := mux.NewRouter()
	r.Use(handlers.LoggingMiddleware(logger, db, cfg.TrustProxyHeaders))
	if cfg.RateLimit > 0 {
		limiter := handlers.NewIPRateLimiter(cfg.RateLimit, cfg.RateLimitWindow, cfg.TrustProxyHeaders)
		go limiter.Start(ctx)
		r.Use(limiter.Middleware)
	}
	var op *handlers.OperatorHandler
	if cfg.OperatorRoutes {
		op = handlers.NewOperatorHandler(logger, records, journalReader)
	}
	handlers.RegisterRoutes(r, cfg, relay, m, op)

	servers, err := httpserver.New(logger, cfg.ListenAddr, cfg.TLSListenAddr, r)
	if err != nil {
		logger.WithError(err).Fatal("Server initialization failed")
	}

	logger.WithFields(logrus.Fields{
		"base_url":      cfg.BaseURL,
		"output_format": cfg.OutputFormat,
		"journal":       cfg.LoggingEnabled,
		"postgres":      cfg.PostgresEnabled(),
		"s3":            cfg.S3Enabled(),
		"operator":      cfg.OperatorRoutes,
	}).Info("get2put relay configured")

	if err := servers.Run(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
	logger.Info("Server stopped")
}
