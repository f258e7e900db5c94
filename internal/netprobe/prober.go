package netprobe

import (
	"context"
	"net/netip"
	"time"

	"github.com/rs/zerolog"
)

// Result of a single probe.
type Result struct {
	Reachable bool
	// HardwareAddr is empty when the host answered but could not be resolved.
	HardwareAddr string
}

// Prober checks liveness of a single address.
type Prober struct {
	net     Network
	timeout time.Duration
}

func NewProber(n Network, timeout time.Duration) *Prober {
	return &Prober{net: n, timeout: timeout}
}

// Probe never fails: network errors are reported as an unreachable host.
func (p *Prober) Probe(ctx context.Context, addr netip.Addr) Result {
	logger := zerolog.Ctx(ctx).With().Str("addr", addr.String()).Logger()

	pctx, cancel := context.WithTimeout(ctx, p.timeout)
	reachable, err := p.net.Reachable(pctx, addr)
	cancel()

	if err != nil {
		logger.Debug().Err(err).Msg("probe failed, assuming unreachable")
		return Result{}
	}

	if !reachable {
		logger.Debug().Msg("no reply")
		return Result{}
	}

	rctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	hw, err := p.net.HardwareAddr(rctx, addr)
	if err != nil {
		logger.Debug().Err(err).Msg("resolving hardware address")
		return Result{Reachable: true}
	}

	logger.Debug().Str("hardware_address", hw).Msg("reachable")

	return Result{Reachable: true, HardwareAddr: hw}
}
