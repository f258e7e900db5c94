// Package presence decides whether registered devices are home and keeps
// their recorded address in sync with where they actually are.
package presence

import (
	"context"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ferux/homewatch/internal/model"
	"github.com/ferux/homewatch/internal/netprobe"
	"github.com/ferux/homewatch/internal/registry"
)

// Prober checks a single address.
type Prober interface {
	Probe(ctx context.Context, addr netip.Addr) netprobe.Result
}

// Locator finds a hardware address anywhere on the network.
type Locator interface {
	Locate(ctx context.Context, hardwareAddr string) (netip.Addr, bool)
}

// Notifier delivers alerts without blocking.
type Notifier interface {
	Send(ctx context.Context, title, body string)
}

// Report summarizes a reconciliation pass.
type Report struct {
	Checked int
	Changed int
	Moved   int
	Failed  int
	Took    time.Duration
}

// Engine runs reconciliation passes.
type Engine struct {
	registry registry.Registry
	prober   Prober
	locator  Locator
	notifier Notifier
	now      func() time.Time
}

func New(r registry.Registry, p Prober, l Locator, n Notifier) *Engine {
	return &Engine{
		registry: r,
		prober:   p,
		locator:  l,
		notifier: n,
		now:      time.Now,
	}
}

// Reconcile evaluates every registered device once, in registry order.
// A failing device is logged and skipped; only a failure to list devices
// fails the pass.
func (e *Engine) Reconcile(ctx context.Context) (Report, error) {
	start := e.now()
	logger := zerolog.Ctx(ctx)

	devices, err := e.registry.ListDevices(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("listing devices: %w", err)
	}

	var report Report
	for _, d := range devices {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		report.Checked++

		o, err := e.reconcileDevice(ctx, d)
		if err != nil {
			report.Failed++
			logger.Error().Err(err).Uint64("device_id", uint64(d.ID)).Str("device", d.Name).Msg("device update skipped")

			continue
		}

		if o.moved {
			report.Moved++
		}

		if o.changed {
			report.Changed++
		}
	}

	report.Took = e.now().Sub(start)

	return report, nil
}

type outcome struct {
	changed bool
	moved   bool
}

// verdict is the in-memory decision of a single evaluation.
type verdict struct {
	status model.Status
	// found is set when the locator confirmed the device somewhere.
	found netip.Addr
}

func (e *Engine) evaluate(ctx context.Context, d model.Device, logger zerolog.Logger) verdict {
	res := e.prober.Probe(ctx, d.Address)

	switch {
	case res.Reachable && strings.EqualFold(res.HardwareAddr, d.HardwareAddr):
		logger.Debug().Msg("found at expected address")
		return verdict{status: model.StatusHome}
	case res.Reachable && len(res.HardwareAddr) != 0:
		logger.Info().Str("actual_hardware_address", res.HardwareAddr).Msg("another device answers at expected address, searching network")
	case res.Reachable:
		logger.Info().Msg("identity at expected address unknown, searching network")
	default:
		logger.Info().Msg("not reachable at expected address, searching network")
	}

	addr, ok := e.locator.Locate(ctx, d.HardwareAddr)
	if !ok {
		return verdict{status: model.StatusAway}
	}

	return verdict{status: model.StatusHome, found: addr}
}

func (e *Engine) reconcileDevice(ctx context.Context, d model.Device) (outcome, error) {
	logger := zerolog.Ctx(ctx).With().
		Uint64("device_id", uint64(d.ID)).
		Str("device", d.Name).
		Str("addr", d.Address.String()).
		Str("hardware_address", d.HardwareAddr).
		Logger()
	ctx = logger.WithContext(ctx)

	var o outcome

	v := e.evaluate(ctx, d, logger)

	if v.found.IsValid() && v.found != d.Address {
		if err := e.registry.Relocate(ctx, d.ID, v.found); err != nil {
			return o, err
		}

		logger.Info().Str("new_addr", v.found.String()).Msg("device moved")
		e.notifier.Send(ctx, d.Name+" IP Changed", fmt.Sprintf("%s moved from %s to %s", d.Name, d.Address, v.found))

		d.Address = v.found
		o.moved = true
	}

	if v.status == d.Status {
		logger.Debug().Str("status", string(v.status)).Msg("status unchanged")
		return o, nil
	}

	if err := e.registry.RecordStatus(ctx, d.ID, v.status, e.now()); err != nil {
		return o, err
	}

	o.changed = true
	logger.Info().Str("from", string(d.Status)).Str("to", string(v.status)).Msg("status changed")

	if d.Notify.Wants(v.status) {
		title, body := statusMessage(d, v.status)
		e.notifier.Send(ctx, title, body)
	}

	return o, nil
}

func statusMessage(d model.Device, status model.Status) (title, body string) {
	switch status {
	case model.StatusHome:
		return d.Name + " is Home", fmt.Sprintf("%s (IP: %s) is now home.", d.Name, d.Address)
	case model.StatusAway:
		return d.Name + " is Away", fmt.Sprintf("%s (IP: %s) is now away.", d.Name, d.Address)
	default:
		return d.Name + " changed", fmt.Sprintf("%s (IP: %s) is now %s.", d.Name, d.Address, status)
	}
}
