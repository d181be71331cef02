package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"nabha-triage/internal/assessment"
	"nabha-triage/internal/platform/config"
	"nabha-triage/internal/platform/logging"
	"nabha-triage/internal/platform/metrics"
	"nabha-triage/internal/platform/telegram"
	"nabha-triage/internal/report"
	"nabha-triage/internal/triage"
)

func main() {
	configFile := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	// 1. Infrastructure
	repo := openRepository(cfg.Database, logger)

	// 2. Rule table and advisor
	rules, err := triage.NewReloader(cfg.Rules.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("Could not load rule table")
	}
	advisor := triage.NewAdvisor(rules, triage.WithLogger(logger))

	// 3. Services
	var notifier assessment.Notifier
	if cfg.Telegram.Token != "" {
		tgClient := telegram.NewClientWithBaseURL(cfg.Telegram.Token, cfg.Telegram.BaseURL)
		notifier = report.NewService(tgClient, report.Config{
			DoctorChatID:  cfg.Telegram.DoctorChatID,
			FontPaths:     cfg.Report.FontPaths,
			RatePerSecond: cfg.Telegram.RatePerSecond,
		}, logger)
	} else {
		logger.Warn("Telegram token is not set, high risk alerts are disabled")
	}

	svc := assessment.NewService(repo, advisor, notifier, rules, logger)
	handler := assessment.NewHandler(svc)

	// 4. Router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	// CORS for the mobile app's web build
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")
			if r.Method == http.MethodOptions {
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Route("/api", func(r chi.Router) {
		assessment.RegisterRoutes(r, handler)
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopped := make(chan struct{})
	go watchSignals(srv, rules, svc, logger, stopped)

	logger.WithField("port", cfg.Server.Port).Info("Server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Fatal("Server failed")
	}
	<-stopped
	logger.Info("Server stopped")
}

// openRepository connects to Postgres and applies migrations. Without a
// reachable database the service keeps assessments in memory.
func openRepository(cfg config.DatabaseConfig, logger *logrus.Logger) assessment.Repository {
	if cfg.URL == "" {
		logger.Warn("Database URL is not set, assessments are kept in memory")
		return assessment.NewMemoryRepository()
	}

	var (
		db  *sql.DB
		err error
	)
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", cfg.URL)
		if err == nil {
			err = db.Ping()
		}
		if err == nil {
			break
		}
		logger.WithField("attempt", i+1).Info("Waiting for database")
		time.Sleep(time.Second)
	}
	if err != nil {
		logger.WithError(err).Warn("Could not connect to database, assessments are kept in memory")
		return assessment.NewMemoryRepository()
	}
	logger.Info("Connected to database")

	m, err := migrate.New(cfg.Migrations, cfg.URL)
	if err != nil {
		logger.WithError(err).Error("Migration init failed")
	} else if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		logger.WithError(err).Error("Migration up failed")
	} else {
		logger.Info("Migrations applied")
	}

	return assessment.NewRepository(db)
}

// watchSignals reloads the rule table on SIGHUP. On SIGINT or SIGTERM it shuts
// the server down, waits for pending doctor alerts and closes stopped.
func watchSignals(srv *http.Server, rules *triage.Reloader, svc assessment.Service, logger *logrus.Logger, stopped chan<- struct{}) {
	defer close(stopped)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)

	for sig := range sigs {
		if sig == syscall.SIGHUP {
			metrics.RecordRuleReload(rules.Reload())
			continue
		}

		logger.WithField("signal", sig.String()).Info("Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if err := srv.Shutdown(ctx); err != nil {
			logger.WithError(err).Error("Graceful shutdown failed")
		}
		if err := svc.WaitForAlerts(ctx); err != nil {
			logger.WithError(err).Warn("Pending doctor alerts were dropped")
		}
		cancel()
		return
	}
}
