package netprobe

import (
	"context"
	"net/netip"
	"sort"
	"sync"
	"time"
)

// Fake is an in-memory Network. Probing an attached host puts it into the
// resolution table the way a real echo request populates the kernel cache.
type Fake struct {
	// SweepErr is returned by Sweep when set.
	SweepErr error
	// NeighborsErr is returned by Neighbors when set.
	NeighborsErr error
	// ProbeDelay is waited for before every Reachable answer.
	ProbeDelay time.Duration

	mu     sync.Mutex
	hosts  map[netip.Addr]string
	hidden map[netip.Addr]bool
	table  map[netip.Addr]string
	probes int
	sweeps int
}

func NewFake() *Fake {
	return &Fake{
		hosts:  make(map[netip.Addr]string),
		hidden: make(map[netip.Addr]bool),
		table:  make(map[netip.Addr]string),
	}
}

// Attach puts a host with hardware address hw online at addr.
func (f *Fake) Attach(addr netip.Addr, hw string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.hosts[addr] = hw
}

// Detach takes the host at addr offline and drops it from the table.
func (f *Fake) Detach(addr netip.Addr) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.hosts, addr)
	delete(f.table, addr)
}

// Hide makes direct lookups of addr return an unknown hardware address while
// the table dump still lists it.
func (f *Fake) Hide(addr netip.Addr) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.hidden[addr] = true
}

// Remember seeds the resolution table without the host being online.
func (f *Fake) Remember(addr netip.Addr, hw string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.table[addr] = hw
}

// Probes returns the amount of Reachable calls.
func (f *Fake) Probes() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.probes
}

// Sweeps returns the amount of Sweep calls.
func (f *Fake) Sweeps() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.sweeps
}

func (f *Fake) Reachable(ctx context.Context, addr netip.Addr) (bool, error) {
	f.mu.Lock()
	f.probes++
	f.mu.Unlock()

	if f.ProbeDelay > 0 {
		select {
		case <-time.After(f.ProbeDelay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	hw, ok := f.hosts[addr]
	if ok {
		f.table[addr] = hw
	}

	return ok, nil
}

func (f *Fake) HardwareAddr(_ context.Context, addr netip.Addr) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.hidden[addr] {
		return "", nil
	}

	return f.table[addr], nil
}

func (f *Fake) Neighbors(_ context.Context) ([]Neighbor, error) {
	if f.NeighborsErr != nil {
		return nil, f.NeighborsErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	neighbors := make([]Neighbor, 0, len(f.table))
	for addr, hw := range f.table {
		neighbors = append(neighbors, Neighbor{Addr: addr, HardwareAddr: hw, Interface: "fake0"})
	}

	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].Addr.Less(neighbors[j].Addr) })

	return neighbors, nil
}

func (f *Fake) Sweep(_ context.Context, prefix netip.Prefix) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sweeps++
	if f.SweepErr != nil {
		return f.SweepErr
	}

	for addr, hw := range f.hosts {
		if prefix.Contains(addr) {
			f.table[addr] = hw
		}
	}

	return nil
}
