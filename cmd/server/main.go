// Command server runs the affiliate purchase ledger HTTP API together with
// its background notification dispatcher.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/affiliate-ledger/internal/config"
	httpapi "github.com/tbourn/affiliate-ledger/internal/http"
	"github.com/tbourn/affiliate-ledger/internal/notify"
	"github.com/tbourn/affiliate-ledger/internal/observability"
	"github.com/tbourn/affiliate-ledger/internal/repo"
	"github.com/tbourn/affiliate-ledger/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version string

const shutdownGrace = 15 * time.Second

func main() {
	// A missing .env is fine; real deployments use the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.ConfigureLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	gin.SetMode(cfg.GinMode)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
	log.Info().Msg("server exiting")
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ver := sysutil.FirstNonEmpty(version, os.Getenv("APP_VERSION"), "dev")
	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	dsn := cfg.DBPath
	if cfg.DBDriver == "postgres" {
		dsn = cfg.DatabaseURL
	}

	ledgerDB, err := openStore(cfg, dsn, cfg.DBMaxOpenConns)
	if err != nil {
		return err
	}
	defer closeStore(ledgerDB)
	if err := repo.AutoMigrate(ledgerDB); err != nil {
		return err
	}

	// Workers read orders and write delivery logs on their own pool so they
	// never queue behind purchase transactions.
	notifyDB, err := openStore(cfg, dsn, cfg.Notify.Workers)
	if err != nil {
		return err
	}
	defer closeStore(notifyDB)

	dispatcher := notify.NewDispatcher(notifyDB, newMailer(cfg), notify.Options{
		Workers:     cfg.Notify.Workers,
		QueueSize:   cfg.Notify.QueueSize,
		SendTimeout: cfg.Notify.SendTimeout,
		CompanyURL:  cfg.Notify.CompanyURL,
		BuyerURL:    cfg.Notify.BuyerURL,
	})
	dispatcher.Start(ctx)

	r := gin.New()
	httpapi.RegisterRoutes(r, ledgerDB, dispatcher, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", ver).Str("db", cfg.DBDriver).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	// Drain after the listener closes so no purchase enqueues into a closed queue.
	if err := dispatcher.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("notification drain")
	}
	return nil
}

func openStore(cfg config.Config, dsn string, conns int) (*gorm.DB, error) {
	db, err := repo.Open(cfg.DBDriver, dsn, conns)
	if err != nil {
		return nil, err
	}
	if cfg.OTEL.Enabled {
		if err := repo.EnableTracing(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func closeStore(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func newMailer(cfg config.Config) notify.Mailer {
	if cfg.SMTP.Host == "" {
		log.Warn().Msg("SMTP_HOST not set; notifications are logged, not sent")
		return notify.LogMailer{}
	}
	m, err := notify.NewSMTPMailer(cfg.SMTP, cfg.Notify.SendTimeout)
	if err != nil {
		log.Error().Err(err).Msg("smtp mailer unavailable; falling back to log mailer")
		return notify.LogMailer{}
	}
	return m
}
