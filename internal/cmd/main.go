package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/ferux/homewatch"
	"github.com/ferux/homewatch/internal/api"
	"github.com/ferux/homewatch/internal/config"
	"github.com/ferux/homewatch/internal/model"
	"github.com/ferux/homewatch/internal/netprobe"
	"github.com/ferux/homewatch/internal/notify"
	"github.com/ferux/homewatch/internal/presence"
	"github.com/ferux/homewatch/internal/registry"
	"github.com/ferux/homewatch/internal/scheduler"
)

const shutdownTimeout = 15 * time.Second

func main() {
	path := pflag.StringP("config", "c", "./config.json", "path to config")
	showRevision := pflag.Bool("revision", false, "show version of the application")

	pflag.Parse()

	if *showRevision {
		fmt.Println(homewatch.Revision)
		return
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	cfg, err := config.Parse(*path)
	if err != nil {
		logger.
			Fatal().
			Err(err).
			Str("revision", homewatch.Revision).
			Str("branch", homewatch.Branch).
			Str("env", homewatch.Env).
			Msg("parsing config file")
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}

	logger = logger.Level(level)
	logger.
		Debug().
		Str("listen", cfg.HTTP.Listen).
		Str("store", cfg.Store.Path).
		Str("network", cfg.Scanner.Network).
		Str("rev", homewatch.Revision).
		Str("branch", homewatch.Branch).
		Msg("starting application")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer cancel()

	ctx = logger.WithContext(ctx)

	var (
		sentryClient *sentry.Client
		reporter     scheduler.ErrorReporter
		apiNotifier  api.ErrorReporter
	)

	if len(cfg.SentryDSN) != 0 {
		sentryClient, err = sentry.NewClient(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Release:     homewatch.Revision,
			Environment: homewatch.Env,
			ServerName:  cfg.ServerName,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("can't create sentry client")
		}

		reporter = sentryClient
		apiNotifier = sentryClient
	}

	store, err := registry.Open(ctx, cfg.Store.Path, registry.RetryPolicy{
		Attempts:        cfg.Store.Retry.Attempts,
		InitialInterval: cfg.Store.Retry.InitialInterval.Std(),
		MaxInterval:     cfg.Store.Retry.MaxInterval.Std(),
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("can't open device registry")
	}

	network := netprobe.NewOS()
	prober := netprobe.NewProber(network, cfg.Scanner.ProbeTimeout.Std())
	locator := netprobe.NewLocator(network, netprobe.LocatorConfig{
		Prefix:       cfg.Scanner.Prefix(),
		Budget:       cfg.Scanner.SweepTimeout.Std(),
		ProbeTimeout: cfg.Scanner.ProbeTimeout.Std(),
		Workers:      cfg.Scanner.SweepWorkers,
	})

	dispatcher := notify.NewDispatcher(sinks(cfg.Notify, logger), cfg.Notify.Timeout.Std(), logger)
	engine := presence.New(store, prober, locator, dispatcher)
	sched := scheduler.New(engine, cfg.Scanner.Interval.Std(), logger, reporter)

	httpAPI := api.NewHTTP(cfg.HTTP, store, sched, logger, api.Options{
		AdminPassword: cfg.AdminPassword,
		Notifier:      apiNotifier,
		Info: model.ApplicationInfo{
			Revision:    homewatch.Revision,
			Branch:      homewatch.Branch,
			Environment: homewatch.Env,
		},
	})
	httpAPI.Serve()

	schedDone := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(schedDone)
	}()

	dispatcher.Send(ctx, "homewatch started", startupMessage(cfg.ServerName))

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if errShut := httpAPI.Shutdown(shutdownCtx); errShut != nil {
		logger.Error().Err(errShut).Msg("error shutting down server")
	}

	select {
	case <-schedDone:
	case <-shutdownCtx.Done():
		logger.Warn().Msg("scan pass did not stop in time")
	}

	dispatcher.Send(shutdownCtx, "homewatch stopped", "shutting down")

	if errWait := dispatcher.Wait(shutdownCtx); errWait != nil {
		logger.Error().Err(errWait).Msg("pending notifications dropped")
	}

	if errClose := store.Close(); errClose != nil {
		logger.Error().Err(errClose).Msg("error closing device registry")
	}

	if sentryClient != nil {
		sentryClient.Flush(2 * time.Second)
	}
}

func sinks(cfg config.Notify, logger zerolog.Logger) notify.Sink {
	client := &http.Client{Timeout: cfg.Timeout.Std()}

	var out []notify.Sink
	if len(cfg.Gotify.URL) != 0 {
		out = append(out, notify.NewGotify(cfg.Gotify.URL, cfg.Gotify.Token, cfg.Gotify.Priority, client))
	}

	if len(cfg.Telegram.API) != 0 {
		out = append(out, notify.NewTelegram(cfg.Telegram.API, cfg.Telegram.ChatID, client))
	}

	if len(out) == 0 {
		logger.Warn().Msg("no notification sink configured, notifications are dropped")
		return notify.Noop()
	}

	return notify.Multi(out...)
}

func startupMessage(serverName string) string {
	return fmt.Sprintf("%s branch=%s env=%s revision=%s",
		serverName, homewatch.Branch, homewatch.Env, homewatch.Revision)
}
