package netprobe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/netip"
	"os"
	"os/exec"
	"strconv"
	"time"
)

// OS implements Network with system tools: ping, fping, arp and /proc/net/arp.
type OS struct {
	PingPath  string
	FpingPath string
	ARPPath   string
	ProcARP   string
}

// NewOS returns OS looking tools up in PATH.
func NewOS() *OS {
	return &OS{
		PingPath:  "ping",
		FpingPath: "fping",
		ARPPath:   "arp",
		ProcARP:   "/proc/net/arp",
	}
}

// Reachable implements Network.
func (o *OS) Reachable(ctx context.Context, addr netip.Addr) (bool, error) {
	wait := "1"
	if deadline, ok := ctx.Deadline(); ok {
		seconds := math.Ceil(time.Until(deadline).Seconds())
		if seconds < 1 {
			seconds = 1
		}

		wait = strconv.Itoa(int(seconds))
	}

	cmd := exec.CommandContext(ctx, o.PingPath, "-n", "-c", "1", "-W", wait, addr.String())
	err := cmd.Run()
	if err == nil {
		return true, nil
	}

	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return false, nil
	}

	return false, fmt.Errorf("running %s: %w", o.PingPath, err)
}

// HardwareAddr implements Network.
func (o *OS) HardwareAddr(ctx context.Context, addr netip.Addr) (string, error) {
	neighbors, err := o.Neighbors(ctx)
	if err != nil {
		return "", err
	}

	for _, n := range neighbors {
		if n.Addr == addr {
			return n.HardwareAddr, nil
		}
	}

	return "", nil
}

// Neighbors implements Network. /proc/net/arp is preferred, arp is used
// where it is missing.
func (o *OS) Neighbors(ctx context.Context) ([]Neighbor, error) {
	f, err := os.Open(o.ProcARP)
	if err == nil {
		defer f.Close()

		return parseProcNetARP(f)
	}

	out, errCmd := exec.CommandContext(ctx, o.ARPPath, "-an").Output()
	if errCmd != nil {
		return nil, fmt.Errorf("reading %s: %v; running %s: %w", o.ProcARP, err, o.ARPPath, errCmd)
	}

	return parseARPCommand(bytes.NewReader(out))
}

// Sweep implements Network.
func (o *OS) Sweep(ctx context.Context, prefix netip.Prefix) error {
	cmd := exec.CommandContext(ctx, o.FpingPath, "-a", "-q", "-r", "0", "-g", prefix.Masked().String())
	err := cmd.Run()
	if err == nil {
		return nil
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}

	// exit code 1 means some hosts were unreachable, which is the usual case.
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return nil
	}

	return fmt.Errorf("running %s: %w", o.FpingPath, err)
}
