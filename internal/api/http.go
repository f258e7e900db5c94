package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"

	"github.com/ferux/homewatch/internal/config"
	"github.com/ferux/homewatch/internal/model"
	"github.com/ferux/homewatch/internal/registry"
)

const (
	maxHeaderBytes = 256 * (1 << 10) // 256 KiB
	maxBodyBytes   = 64 * (1 << 10)
	contentType    = "content-type"
	contentJSON    = "application/json"
)

// Scanner starts reconciliation passes on demand.
type Scanner interface {
	Trigger(ctx context.Context) bool
	Running() bool
}

// ErrorReporter is satisfied by *sentry.Client.
type ErrorReporter interface {
	CaptureEvent(event *sentry.Event, hint *sentry.EventHint, scope sentry.EventModifier) *sentry.EventID
	CaptureException(exception error, hint *sentry.EventHint, scope sentry.EventModifier) *sentry.EventID
}

type HTTP struct {
	srv *http.Server

	registry      registry.Registry
	scanner       Scanner
	logger        zerolog.Logger
	notifier      ErrorReporter
	adminPassword string

	requestCount int64
	bootTime     time.Time
}

// Options holds optional collaborators of the http service.
type Options struct {
	AdminPassword string
	// Notifier receives captured errors. Nil disables capturing.
	Notifier ErrorReporter
	Info     model.ApplicationInfo
}

// NewHTTP prepares new http service
func NewHTTP(
	cfg config.HTTP,
	reg registry.Registry,
	scanner Scanner,
	logger zerolog.Logger,
	opts Options,
) *HTTP {
	to := cfg.Timeout.Std()
	srv := &http.Server{
		Addr:              cfg.Listen,
		ReadTimeout:       to,
		ReadHeaderTimeout: to,
		WriteTimeout:      to,
		IdleTimeout:       to,
		MaxHeaderBytes:    maxHeaderBytes,
	}

	api := &HTTP{
		srv:           srv,
		registry:      reg,
		scanner:       scanner,
		logger:        logger,
		notifier:      opts.Notifier,
		adminPassword: opts.AdminPassword,
		bootTime:      time.Now(),
	}
	api.setupRoutes(opts.Info)

	return api
}

// Handler returns the root handler with every route attached.
func (api *HTTP) Handler() http.Handler {
	return api.srv.Handler
}

// Serve connections
func (api *HTTP) Serve() {
	go func() {
		api.logger.Info().Str("listen", api.srv.Addr).Msg("serving http")
		err := api.srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			api.logger.Error().Err(err).Msg("interrupted")
			if api.notifier != nil {
				api.notifier.CaptureException(err, nil, sentry.NewScope())
			}
		}
	}()
}

// Shutdown the server
func (api *HTTP) Shutdown(ctx context.Context) error {
	return api.srv.Shutdown(ctx)
}

func asJSON(ctx context.Context, w http.ResponseWriter, obj interface{}, code int) {
	w.Header().Set(contentType, contentJSON)
	w.WriteHeader(code)

	err := json.NewEncoder(w).Encode(obj)
	if err != nil {
		logger := zerolog.Ctx(ctx)
		logger.Error().Err(err).Msg("encoding json")
	}
}
