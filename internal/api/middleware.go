package api

import (
	"crypto/subtle"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pborman/uuid"
	"github.com/rs/zerolog"

	"github.com/ferux/homewatch/internal/fcontext"
	"github.com/ferux/homewatch/internal/model"
)

const adminUser = "admin"

func middlewareRequestID() func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			rid := r.Header.Get("x-request-id")
			if len(rid) == 0 {
				rid = uuid.New()
			}

			w.Header().Set("x-request-id", rid)
			r = r.WithContext(fcontext.WithRequestID(ctx, rid))

			h.ServeHTTP(w, r)
		})
	}
}

func middlewareLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := fcontext.WithLogger(r.Context(), logger)
			r = r.WithContext(ctx)
			lg := zerolog.Ctx(ctx)
			start := time.Now()
			lg.Debug().
				Str("method", r.Method).
				Str("request_uri", r.RequestURI).
				Msg("accepted")

			h.ServeHTTP(w, r)

			lg.Info().Str("took", time.Since(start).String()).Msg("served")
		})
	}
}

func middlewareCounter(api *HTTP) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(&api.requestCount, 1)
			h.ServeHTTP(w, r)
		})
	}
}

// middlewareBasicAuth guards handlers with the admin password. Empty password
// leaves them open.
func middlewareBasicAuth(password string) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		if len(password) == 0 {
			return h
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if ok &&
				subtle.ConstantTimeCompare([]byte(user), []byte(adminUser)) == 1 &&
				subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1 {
				h.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			zerolog.Ctx(ctx).Warn().Str("user", user).Msg("unauthorized")

			w.Header().Set("WWW-Authenticate", `Basic realm="homewatch"`)
			asJSON(ctx, w, model.ServiceError{
				Message:   "unauthorized",
				RequestID: fcontext.RequestID(ctx),
			}, http.StatusUnauthorized)
		})
	}
}
