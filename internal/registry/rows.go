package registry

import (
	"net/netip"
	"time"

	"github.com/ferux/homewatch/internal/model"
)

type deviceRow struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Name         string `gorm:"not null"`
	Address      string `gorm:"not null"`
	HardwareAddr string `gorm:"column:hardware_address;not null;index"`
	Status       string `gorm:"not null"`
	LastSeen     *time.Time
	Notify       string `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (deviceRow) TableName() string { return "devices" }

type historyRow struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	DeviceID  uint64    `gorm:"not null;index:idx_history_device_time,priority:1"`
	Status    string    `gorm:"not null"`
	Timestamp time.Time `gorm:"not null;index:idx_history_device_time,priority:2"`
}

func (historyRow) TableName() string { return "device_history" }

func (r deviceRow) device() model.Device {
	addr, _ := netip.ParseAddr(r.Address)

	status, err := model.ParseStatus(r.Status)
	if err != nil {
		status = model.StatusAway
	}

	notify, err := model.ParseNotifyPreference(r.Notify)
	if err != nil {
		notify = model.NotifyNone
	}

	return model.Device{
		ID:           model.DeviceID(r.ID),
		Name:         r.Name,
		Address:      addr,
		HardwareAddr: r.HardwareAddr,
		Status:       status,
		LastSeen:     r.LastSeen,
		Notify:       notify,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func (r historyRow) entry() model.HistoryEntry {
	status, err := model.ParseStatus(r.Status)
	if err != nil {
		status = model.StatusAway
	}

	return model.HistoryEntry{
		ID:        r.ID,
		DeviceID:  model.DeviceID(r.DeviceID),
		Status:    status,
		Timestamp: r.Timestamp,
	}
}
