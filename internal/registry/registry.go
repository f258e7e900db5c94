// Package registry persists devices and their status history.
package registry

import (
	"context"
	"net/netip"
	"time"

	"github.com/ferux/homewatch/internal/model"
)

// Registry is the device store shared by the scanner and the api.
// Methods return model.ErrNotFound for unknown devices and
// model.ErrInvalidArgument for bad input.
type Registry interface {
	ListDevices(ctx context.Context) ([]model.Device, error)
	GetDevice(ctx context.Context, id model.DeviceID) (model.Device, error)
	CreateDevice(ctx context.Context, d model.NewDevice) (model.Device, error)
	UpdateDevice(ctx context.Context, id model.DeviceID, upd model.DeviceUpdate) (model.Device, error)
	// DeleteDevice removes the device together with its history.
	DeleteDevice(ctx context.Context, id model.DeviceID) error
	SetNotifyPreference(ctx context.Context, id model.DeviceID, pref model.NotifyPreference) error

	// Relocate rewrites the expected address of a device.
	Relocate(ctx context.Context, id model.DeviceID, addr netip.Addr) error
	// RecordStatus stores status and last seen time and appends a history
	// entry atomically. An entry older than the latest one is stored with the
	// latest timestamp.
	RecordStatus(ctx context.Context, id model.DeviceID, status model.Status, at time.Time) error
	History(ctx context.Context, id model.DeviceID, filter model.HistoryFilter) ([]model.HistoryEntry, error)
}
