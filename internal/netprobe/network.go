// Package netprobe checks whether hosts answer on the local network and
// finds which address a hardware address currently lives at.
package netprobe

import (
	"context"
	"net/netip"
)

// Neighbor is a single entry of the link-layer resolution table.
type Neighbor struct {
	Addr         netip.Addr
	HardwareAddr string
	Interface    string
}

// Network is the set of OS primitives presence detection is built on.
type Network interface {
	// Reachable sends a single echo request and reports whether a reply came back.
	// No reply is not an error.
	Reachable(ctx context.Context, addr netip.Addr) (bool, error)
	// HardwareAddr resolves addr in the resolution table. Empty when unknown.
	HardwareAddr(ctx context.Context, addr netip.Addr) (string, error)
	// Neighbors dumps the resolution table.
	Neighbors(ctx context.Context) ([]Neighbor, error)
	// Sweep probes every host in prefix with an external tool to refresh the
	// resolution table.
	Sweep(ctx context.Context, prefix netip.Prefix) error
}

// MaxHosts is the largest amount of addresses Hosts returns.
const MaxHosts = 4096

// Hosts lists addresses of prefix usable by hosts. Network and broadcast
// addresses of IPv4 prefixes shorter than /31 are skipped.
func Hosts(prefix netip.Prefix) []netip.Addr {
	prefix = prefix.Masked()
	if !prefix.IsValid() {
		return nil
	}

	hosts := make([]netip.Addr, 0, 256)
	for a := prefix.Addr(); a.IsValid() && prefix.Contains(a); a = a.Next() {
		if len(hosts) > MaxHosts+1 {
			break
		}

		hosts = append(hosts, a)
	}

	if prefix.Addr().Is4() && prefix.Bits() < 31 && len(hosts) > 2 {
		hosts = hosts[1 : len(hosts)-1]
	}

	if len(hosts) > MaxHosts {
		hosts = hosts[:MaxHosts]
	}

	return hosts
}
