package registry

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"sync"
	"time"

	"github.com/ferux/homewatch/internal/model"
)

// Memory is a Registry living in process memory. Values are copied in and
// out so callers never share state with the store.
type Memory struct {
	mu        sync.RWMutex
	devices   map[model.DeviceID]model.Device
	history   map[model.DeviceID][]model.HistoryEntry
	nextID    model.DeviceID
	nextEntry uint64
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		devices: make(map[model.DeviceID]model.Device),
		history: make(map[model.DeviceID][]model.HistoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) ListDevices(_ context.Context) ([]model.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	devices := make([]model.Device, 0, len(m.devices))
	for _, d := range m.devices {
		devices = append(devices, copyDevice(d))
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })

	return devices, nil
}

func (m *Memory) GetDevice(_ context.Context, id model.DeviceID) (model.Device, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.devices[id]
	if !ok {
		return model.Device{}, fmt.Errorf("getting device %d: %w", id, model.ErrNotFound)
	}

	return copyDevice(d), nil
}

func (m *Memory) CreateDevice(_ context.Context, nd model.NewDevice) (model.Device, error) {
	if err := nd.Validate(); err != nil {
		return model.Device{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	now := m.now()
	d := model.Device{
		ID:           m.nextID,
		Name:         nd.Name,
		Address:      nd.Address,
		HardwareAddr: nd.HardwareAddr,
		Status:       model.StatusAway,
		Notify:       nd.Notify,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	m.devices[d.ID] = d

	return copyDevice(d), nil
}

func (m *Memory) UpdateDevice(_ context.Context, id model.DeviceID, upd model.DeviceUpdate) (model.Device, error) {
	if err := upd.Validate(); err != nil {
		return model.Device{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[id]
	if !ok {
		return model.Device{}, fmt.Errorf("updating device %d: %w", id, model.ErrNotFound)
	}

	upd.Apply(&d)
	d.UpdatedAt = m.now()
	m.devices[id] = d

	return copyDevice(d), nil
}

func (m *Memory) DeleteDevice(_ context.Context, id model.DeviceID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.devices[id]; !ok {
		return fmt.Errorf("deleting device %d: %w", id, model.ErrNotFound)
	}

	delete(m.devices, id)
	delete(m.history, id)

	return nil
}

func (m *Memory) SetNotifyPreference(_ context.Context, id model.DeviceID, pref model.NotifyPreference) error {
	if _, err := model.ParseNotifyPreference(string(pref)); err != nil {
		return err
	}

	return m.modify(id, func(d *model.Device) { d.Notify = pref })
}

func (m *Memory) Relocate(_ context.Context, id model.DeviceID, addr netip.Addr) error {
	if !addr.IsValid() {
		return fmt.Errorf("relocating device %d: %w", id, model.ErrInvalidArgument)
	}

	return m.modify(id, func(d *model.Device) { d.Address = addr })
}

func (m *Memory) RecordStatus(_ context.Context, id model.DeviceID, status model.Status, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[id]
	if !ok {
		return fmt.Errorf("recording status of device %d: %w", id, model.ErrNotFound)
	}

	at = at.UTC()
	if h := m.history[id]; len(h) != 0 && at.Before(h[len(h)-1].Timestamp) {
		at = h[len(h)-1].Timestamp
	}

	d.Status = status
	d.LastSeen = &at
	d.UpdatedAt = m.now()
	m.devices[id] = d

	m.nextEntry++
	m.history[id] = append(m.history[id], model.HistoryEntry{
		ID:        m.nextEntry,
		DeviceID:  id,
		Status:    status,
		Timestamp: at,
	})

	return nil
}

func (m *Memory) History(_ context.Context, id model.DeviceID, filter model.HistoryFilter) ([]model.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.devices[id]; !ok {
		return nil, fmt.Errorf("reading history of device %d: %w", id, model.ErrNotFound)
	}

	return filter.Apply(m.history[id]), nil
}

func (m *Memory) modify(id model.DeviceID, fn func(d *model.Device)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[id]
	if !ok {
		return fmt.Errorf("device %d: %w", id, model.ErrNotFound)
	}

	fn(&d)
	d.UpdatedAt = m.now()
	m.devices[id] = d

	return nil
}

func copyDevice(d model.Device) model.Device {
	if d.LastSeen != nil {
		ls := *d.LastSeen
		d.LastSeen = &ls
	}

	return d
}
