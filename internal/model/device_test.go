package model

import (
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestParseHardwareAddr(t *testing.T) {
	is := is.New(t)

	for _, in := range []string{"AA:BB:CC:DD:EE:FF", "aa-bb-cc-dd-ee-ff", " aabb.ccdd.eeff "} {
		got, err := ParseHardwareAddr(in)
		is.NoErr(err)
		is.Equal(got, "aa:bb:cc:dd:ee:ff")
	}

	_, err := ParseHardwareAddr("not a mac")
	is.True(errors.Is(err, ErrInvalidArgument))

	// 64-bit EUI is parsable by net but is not a link-layer address we track.
	_, err = ParseHardwareAddr("00:00:00:00:fe:80:00:00")
	is.True(errors.Is(err, ErrInvalidArgument))
}

func TestParseStatus(t *testing.T) {
	is := is.New(t)

	s, err := ParseStatus("Home")
	is.NoErr(err)
	is.Equal(s, StatusHome)

	s, err = ParseStatus("offline")
	is.NoErr(err)
	is.Equal(s, StatusAway)

	_, err = ParseStatus("lost")
	is.True(errors.Is(err, ErrInvalidArgument))
}

func TestNotifyPreferenceWants(t *testing.T) {
	is := is.New(t)

	is.True(NotifyHome.Wants(StatusHome))
	is.True(!NotifyHome.Wants(StatusAway))
	is.True(NotifyAway.Wants(StatusAway))
	is.True(!NotifyAway.Wants(StatusHome))
	is.True(!NotifyNone.Wants(StatusHome))
	is.True(!NotifyNone.Wants(StatusAway))

	p, err := ParseNotifyPreference("")
	is.NoErr(err)
	is.Equal(p, NotifyNone)

	_, err = ParseNotifyPreference("always")
	is.True(errors.Is(err, ErrInvalidArgument))
}

func TestNewDeviceValidate(t *testing.T) {
	is := is.New(t)

	d := NewDevice{Name: " phone ", Address: netip.MustParseAddr("10.0.0.5"), HardwareAddr: "AA:BB:CC:DD:EE:FF"}
	is.NoErr(d.Validate())
	is.Equal(d.Name, "phone")
	is.Equal(d.HardwareAddr, "aa:bb:cc:dd:ee:ff")
	is.Equal(d.Notify, NotifyNone)

	d = NewDevice{Name: "phone", HardwareAddr: "AA:BB:CC:DD:EE:FF"}
	is.True(errors.Is(d.Validate(), ErrInvalidArgument))
}

func TestDeviceUpdateApply(t *testing.T) {
	is := is.New(t)

	name := "tablet"
	hw := "11-22-33-44-55-66"
	upd := DeviceUpdate{Name: &name, HardwareAddr: &hw}
	is.NoErr(upd.Validate())

	d := Device{Name: "phone", Address: netip.MustParseAddr("10.0.0.5"), HardwareAddr: "aa:bb:cc:dd:ee:ff"}
	upd.Apply(&d)
	is.Equal(d.Name, "tablet")
	is.Equal(d.HardwareAddr, "11:22:33:44:55:66")
	is.Equal(d.Address, netip.MustParseAddr("10.0.0.5"))
}

func TestHistoryFilterMatch(t *testing.T) {
	is := is.New(t)

	ts := time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC)
	e := HistoryEntry{Status: StatusHome, Timestamp: ts}

	is.True(HistoryFilter{}.Match(e))
	is.True(HistoryFilter{Search: "2024-03-09"}.Match(e))
	is.True(!HistoryFilter{Search: "2024-03-10"}.Match(e))
	is.True(!HistoryFilter{Status: StatusAway}.Match(e))
	is.True(!HistoryFilter{Since: ts.Add(time.Second)}.Match(e))
	is.True(!HistoryFilter{Until: ts.Add(-time.Second)}.Match(e))
	is.True(HistoryFilter{Since: ts, Until: ts}.Match(e))
}
