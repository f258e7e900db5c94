package model

import (
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"
)

type DeviceID uint64

// Status of a device as decided by the last reconciliation pass.
type Status string

const (
	StatusHome Status = "home"
	StatusAway Status = "away"
)

// ParseStatus accepts "home" and "away". Legacy "offline" is treated as away.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(StatusHome):
		return StatusHome, nil
	case string(StatusAway), "offline":
		return StatusAway, nil
	default:
		return "", fmt.Errorf("status %q: %w", s, ErrInvalidArgument)
	}
}

// NotifyPreference tells on which transition a user wants to be notified.
type NotifyPreference string

const (
	NotifyNone NotifyPreference = "none"
	NotifyHome NotifyPreference = "home"
	NotifyAway NotifyPreference = "away"
)

// ParseNotifyPreference accepts none, home and away. Empty string means none.
func ParseNotifyPreference(s string) (NotifyPreference, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(NotifyNone):
		return NotifyNone, nil
	case string(NotifyHome):
		return NotifyHome, nil
	case string(NotifyAway):
		return NotifyAway, nil
	default:
		return "", fmt.Errorf("notify preference %q: %w", s, ErrInvalidArgument)
	}
}

// Wants reports whether a transition into status should be announced.
func (p NotifyPreference) Wants(status Status) bool {
	switch p {
	case NotifyHome:
		return status == StatusHome
	case NotifyAway:
		return status == StatusAway
	case NotifyNone:
		return false
	default:
		return false
	}
}

// Device is a tracked network endpoint.
type Device struct {
	ID           DeviceID         `json:"id"`
	Name         string           `json:"name"`
	Address      netip.Addr       `json:"address"`
	HardwareAddr string           `json:"hardware_address"`
	Status       Status           `json:"status"`
	LastSeen     *time.Time       `json:"last_seen"`
	Notify       NotifyPreference `json:"notify"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// NewDevice holds fields required to register a device.
type NewDevice struct {
	Name         string
	Address      netip.Addr
	HardwareAddr string
	Notify       NotifyPreference
}

// Validate normalizes hardware address and checks required fields.
func (d *NewDevice) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	if len(d.Name) == 0 {
		return fmt.Errorf("name is empty: %w", ErrInvalidArgument)
	}

	if !d.Address.IsValid() {
		return fmt.Errorf("address is empty: %w", ErrInvalidArgument)
	}

	hw, err := ParseHardwareAddr(d.HardwareAddr)
	if err != nil {
		return err
	}

	d.HardwareAddr = hw

	if len(d.Notify) == 0 {
		d.Notify = NotifyNone
	}

	return nil
}

// DeviceUpdate is an administrative edit. Nil fields are left untouched.
type DeviceUpdate struct {
	Name         *string
	Address      *netip.Addr
	HardwareAddr *string
	Status       *Status
}

// Validate normalizes the update in place.
func (u *DeviceUpdate) Validate() error {
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if len(name) == 0 {
			return fmt.Errorf("name is empty: %w", ErrInvalidArgument)
		}

		u.Name = &name
	}

	if u.Address != nil && !u.Address.IsValid() {
		return fmt.Errorf("address is invalid: %w", ErrInvalidArgument)
	}

	if u.HardwareAddr != nil {
		hw, err := ParseHardwareAddr(*u.HardwareAddr)
		if err != nil {
			return err
		}

		u.HardwareAddr = &hw
	}

	return nil
}

// Apply copies set fields onto d.
func (u DeviceUpdate) Apply(d *Device) {
	if u.Name != nil {
		d.Name = *u.Name
	}

	if u.Address != nil {
		d.Address = *u.Address
	}

	if u.HardwareAddr != nil {
		d.HardwareAddr = *u.HardwareAddr
	}

	if u.Status != nil {
		d.Status = *u.Status
	}
}

// ParseHardwareAddr returns the lower-case colon separated form of a 48-bit
// hardware address.
func ParseHardwareAddr(s string) (string, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("hardware address %q: %w", s, ErrInvalidArgument)
	}

	if len(hw) != 6 {
		return "", fmt.Errorf("hardware address %q is not 48 bit: %w", s, ErrInvalidArgument)
	}

	return hw.String(), nil
}
