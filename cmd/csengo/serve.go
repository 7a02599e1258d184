package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/beni69/csengo/internal/audio"
	"github.com/beni69/csengo/internal/config"
	"github.com/beni69/csengo/internal/httpapi"
	"github.com/beni69/csengo/internal/mail"
	"github.com/beni69/csengo/internal/metrics"
	"github.com/beni69/csengo/internal/player"
	"github.com/beni69/csengo/internal/scheduler"
	"github.com/beni69/csengo/internal/storage"
)

// gitRef is overridden at build time via -ldflags, the same way the
// teacher's desktop/mobile commands stamp a Version variable.
var gitRef = "dev"

func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and task scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN}); err != nil {
			log.Error().Err(err).Msg("failed to initialize sentry")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	store, err := storage.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	sink, err := audio.New()
	if err != nil {
		return fmt.Errorf("open audio sink: %w", err)
	}

	ply := player.New(store, sink)
	mailer := mail.New(cfg.Mail.Addr, cfg.Mail.Pass, cfg.Mail.Signature)
	sched := scheduler.New(store, ply, mailer)

	if err := sched.Recover(store); err != nil {
		return fmt.Errorf("recover tasks: %w", err)
	}

	metrics.Init(gitRef, config.DBVersion)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go metrics.PollProcessStats(ctx, 15*time.Second)

	srv := httpapi.New(cfg, store, ply, sched)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return err
	case s := <-sig:
		log.Info().Str("signal", s.String()).Msg("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
