package netprobe

import (
	"context"
	"net/netip"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/matryer/is"
)

func script(t *testing.T, name, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs /bin/sh")
	}

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestOSReachable(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	o := NewOS()

	o.PingPath = script(t, "ping", "exit 0")
	ok, err := o.Reachable(ctx, addrA)
	is.NoErr(err)
	is.True(ok)

	o.PingPath = script(t, "ping", "exit 1")
	ok, err = o.Reachable(ctx, addrA)
	is.NoErr(err)
	is.True(!ok)

	o.PingPath = filepath.Join(t.TempDir(), "missing")
	_, err = o.Reachable(ctx, addrA)
	is.True(err != nil)
}

func TestOSSweep(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	prefix := netip.MustParsePrefix("10.0.0.0/24")

	o := NewOS()

	o.FpingPath = script(t, "fping", "exit 1")
	is.NoErr(o.Sweep(ctx, prefix))

	o.FpingPath = script(t, "fping", "exit 3")
	is.True(o.Sweep(ctx, prefix) != nil)

	o.FpingPath = filepath.Join(t.TempDir(), "missing")
	is.True(o.Sweep(ctx, prefix) != nil)
}

func TestOSNeighbors(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	o := NewOS()
	o.ProcARP = filepath.Join(t.TempDir(), "arp")
	is.NoErr(os.WriteFile(o.ProcARP, []byte(procNetARP), 0o600))

	hw, err := o.HardwareAddr(ctx, addrB)
	is.NoErr(err)
	is.Equal(hw, hwA)

	hw, err = o.HardwareAddr(ctx, netip.MustParseAddr("10.0.0.7"))
	is.NoErr(err)
	is.Equal(hw, "")

	o.ProcARP = filepath.Join(t.TempDir(), "missing")
	o.ARPPath = script(t, "arp", "echo '? (10.0.0.9) at aa:bb:cc:dd:ee:ff on en0 ifscope [ethernet]'")
	neighbors, err := o.Neighbors(ctx)
	is.NoErr(err)
	is.Equal(len(neighbors), 1)
	is.Equal(neighbors[0].Addr, addrB)
}
