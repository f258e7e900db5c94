package netprobe

import (
	"context"
	"net/netip"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// LocatorConfig bounds a network wide search.
type LocatorConfig struct {
	Prefix netip.Prefix
	// Budget limits the whole sweep.
	Budget time.Duration
	// ProbeTimeout limits each probe of the fallback sweep and the table dump.
	ProbeTimeout time.Duration
	// Workers is the amount of concurrent probes of the fallback sweep.
	Workers int
}

// Locator searches the whole prefix for a hardware address.
type Locator struct {
	net Network
	cfg LocatorConfig
}

func NewLocator(n Network, cfg LocatorConfig) *Locator {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	cfg.Prefix = cfg.Prefix.Masked()

	return &Locator{net: n, cfg: cfg}
}

// Locate refreshes the resolution table and returns the first address
// hardwareAddr is bound to.
func (l *Locator) Locate(ctx context.Context, hardwareAddr string) (netip.Addr, bool) {
	logger := zerolog.Ctx(ctx).With().Str("hardware_address", hardwareAddr).Logger()
	start := time.Now()

	sctx, cancel := context.WithTimeout(ctx, l.cfg.Budget)
	l.sweep(sctx, logger)
	cancel()

	tctx, cancel := context.WithTimeout(ctx, l.cfg.ProbeTimeout)
	defer cancel()

	neighbors, err := l.net.Neighbors(tctx)
	if err != nil {
		logger.Error().Err(err).Msg("reading resolution table")
		return netip.Addr{}, false
	}

	for _, n := range neighbors {
		if strings.EqualFold(n.HardwareAddr, hardwareAddr) {
			logger.Info().Str("addr", n.Addr.String()).Dur("took", time.Since(start)).Msg("located")
			return n.Addr, true
		}
	}

	logger.Info().Dur("took", time.Since(start)).Msg("not found on network")

	return netip.Addr{}, false
}

func (l *Locator) sweep(ctx context.Context, logger zerolog.Logger) {
	err := l.net.Sweep(ctx, l.cfg.Prefix)
	if err == nil {
		return
	}

	if ctx.Err() != nil {
		logger.Warn().Err(err).Msg("sweep ran out of time")
		return
	}

	logger.Debug().Err(err).Msg("sweep tool unavailable, probing addresses one by one")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.Workers)

	for _, addr := range Hosts(l.cfg.Prefix) {
		addr := addr

		if gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			pctx, cancel := context.WithTimeout(gctx, l.cfg.ProbeTimeout)
			defer cancel()

			_, _ = l.net.Reachable(pctx, addr)

			return nil
		})
	}

	_ = g.Wait()

	if ctx.Err() != nil {
		logger.Warn().Msg("fallback sweep ran out of time")
	}
}
