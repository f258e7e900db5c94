package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/ferux/homewatch/internal/fcontext"
	"github.com/ferux/homewatch/internal/model"
)

func (api *HTTP) handleInfo(info model.ApplicationInfo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asJSON(r.Context(), w, infoResponse{
			Revision:     info.Revision,
			Branch:       info.Branch,
			Environment:  info.Environment,
			BootTime:     api.bootTime.String(),
			Uptime:       time.Since(api.bootTime).Seconds(),
			RequestCount: int(atomic.LoadInt64(&api.requestCount)),
			Scanning:     api.scanner != nil && api.scanner.Running(),
		}, http.StatusOK)
	}
}

func (api *HTTP) handleListDevices() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ctx = r.Context()

		devices, err := api.registry.ListDevices(ctx)
		if err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		asJSON(ctx, w, devices, http.StatusOK)
	}
}

func (api *HTTP) handleGetDevice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ctx = r.Context()

		id, err := deviceID(r)
		if err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		device, err := api.registry.GetDevice(ctx, id)
		if err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		asJSON(ctx, w, device, http.StatusOK)
	}
}

func (api *HTTP) handleGetHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ctx = r.Context()

		id, err := deviceID(r)
		if err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		filter, err := historyFilter(r)
		if err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		history, err := api.registry.History(ctx, id, filter)
		if err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		asJSON(ctx, w, history, http.StatusOK)
	}
}

func (api *HTTP) handleCreateDevice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ctx = r.Context()
		var req createDeviceRequest

		if err := decodeBody(r, &req); err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		nd, err := req.newDevice()
		if err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		device, err := api.registry.CreateDevice(ctx, nd)
		if err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		zerolog.Ctx(ctx).Info().Uint64("device_id", uint64(device.ID)).Str("device", device.Name).Msg("device registered")

		asJSON(ctx, w, device, http.StatusCreated)
	}
}

func (api *HTTP) handleUpdateDevice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ctx = r.Context()

		id, err := deviceID(r)
		if err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		var req updateDeviceRequest
		if err = decodeBody(r, &req); err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		upd, err := req.update()
		if err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		device, err := api.registry.UpdateDevice(ctx, id, upd)
		if err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		asJSON(ctx, w, device, http.StatusOK)
	}
}

func (api *HTTP) handleDeleteDevice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ctx = r.Context()

		id, err := deviceID(r)
		if err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		if err = api.registry.DeleteDevice(ctx, id); err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		zerolog.Ctx(ctx).Info().Uint64("device_id", uint64(id)).Msg("device deleted")

		w.WriteHeader(http.StatusNoContent)
	}
}

func (api *HTTP) handleSetNotify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ctx = r.Context()

		id, err := deviceID(r)
		if err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		pref, err := model.ParseNotifyPreference(mux.Vars(r)["pref"])
		if err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		if err = api.registry.SetNotifyPreference(ctx, id, pref); err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		device, err := api.registry.GetDevice(ctx, id)
		if err != nil {
			api.serveError(ctx, w, r, err)
			return
		}

		asJSON(ctx, w, device, http.StatusOK)
	}
}

func (api *HTTP) handleScan() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ctx = r.Context()

		if !api.scanner.Trigger(ctx) {
			api.serveError(ctx, w, r, model.ErrScanInProgress)
			return
		}

		asJSON(ctx, w, scanResponse{Status: "started", RequestID: fcontext.RequestID(ctx)}, http.StatusAccepted)
	}
}

func (api *HTTP) handleNotFound(w http.ResponseWriter, r *http.Request) {
	asJSON(r.Context(), w, model.ServiceError{Message: "not found"}, http.StatusNotFound)
}

func (api *HTTP) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	asJSON(r.Context(), w, model.ServiceError{Message: "method not allowed"}, http.StatusMethodNotAllowed)
}

func deviceID(r *http.Request) (model.DeviceID, error) {
	raw := mux.Vars(r)["id"]

	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("device id %q: %w", raw, model.ErrInvalidArgument)
	}

	return model.DeviceID(id), nil
}

func historyFilter(r *http.Request) (filter model.HistoryFilter, err error) {
	q := r.URL.Query()
	filter.Search = q.Get("search")

	if v := q.Get("status"); len(v) != 0 {
		if filter.Status, err = model.ParseStatus(v); err != nil {
			return filter, err
		}
	}

	if v := q.Get("since"); len(v) != 0 {
		if filter.Since, err = time.Parse(time.RFC3339, v); err != nil {
			return filter, fmt.Errorf("since %q: %w", v, model.ErrInvalidArgument)
		}
	}

	if v := q.Get("until"); len(v) != 0 {
		if filter.Until, err = time.Parse(time.RFC3339, v); err != nil {
			return filter, fmt.Errorf("until %q: %w", v, model.ErrInvalidArgument)
		}
	}

	if v := q.Get("limit"); len(v) != 0 {
		if filter.Limit, err = strconv.Atoi(v); err != nil || filter.Limit < 0 {
			return filter, fmt.Errorf("limit %q: %w", v, model.ErrInvalidArgument)
		}
	}

	return filter, nil
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decoding body: %v: %w", err, model.ErrInvalidArgument)
	}

	return nil
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrScanInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (api *HTTP) serveError(ctx context.Context, w http.ResponseWriter, r *http.Request, err error) {
	var (
		logger = zerolog.Ctx(ctx)
		rid    = fcontext.RequestID(ctx)

		responseError model.ServiceError
	)

	var serr model.ServiceError
	if errors.As(err, &serr) {
		responseError = serr
	} else {
		responseError.Code = statusCode(err)
		responseError.Message = err.Error()
	}

	if responseError.Code == 0 {
		responseError.Code = http.StatusInternalServerError
	}

	if len(responseError.RequestID) == 0 {
		responseError.RequestID = rid
	}

	if responseError.Code < http.StatusInternalServerError {
		logger.Warn().Err(err).Int("code", responseError.Code).Msg("request rejected")
		asJSON(ctx, w, responseError, responseError.Code)

		return
	}

	logger.Error().Err(err).Msg("captured error")

	if api.notifier != nil {
		event := sentry.NewEvent()
		event.Exception = []sentry.Exception{{
			Value:      err.Error(),
			Type:       fmt.Sprintf("%T", err),
			Stacktrace: sentry.NewStacktrace(),
		}}
		event.Message = responseError.Message
		event.Level = sentry.LevelError
		event.Tags["request_id"] = rid
		event.Request = sentry.NewRequest(r)

		api.notifier.CaptureEvent(event, &sentry.EventHint{
			OriginalException: err,
			Request:           r,
		}, sentry.NewScope())
	}

	asJSON(ctx, w, responseError, responseError.Code)
}
