package api

import (
	"fmt"
	"net/netip"

	"github.com/ferux/homewatch/internal/model"
)

type createDeviceRequest struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	HardwareAddr string `json:"hardware_address"`
	Notify       string `json:"notify"`
}

func (req createDeviceRequest) newDevice() (nd model.NewDevice, err error) {
	nd.Name = req.Name
	nd.HardwareAddr = req.HardwareAddr

	nd.Address, err = parseAddr(req.Address)
	if err != nil {
		return nd, err
	}

	nd.Notify, err = model.ParseNotifyPreference(req.Notify)

	return nd, err
}

type updateDeviceRequest struct {
	Name         *string `json:"name"`
	Address      *string `json:"address"`
	HardwareAddr *string `json:"hardware_address"`
	Status       *string `json:"status"`
}

func (req updateDeviceRequest) update() (upd model.DeviceUpdate, err error) {
	upd.Name = req.Name
	upd.HardwareAddr = req.HardwareAddr

	if req.Address != nil {
		addr, err := parseAddr(*req.Address)
		if err != nil {
			return upd, err
		}

		upd.Address = &addr
	}

	if req.Status != nil {
		status, err := model.ParseStatus(*req.Status)
		if err != nil {
			return upd, err
		}

		upd.Status = &status
	}

	return upd, nil
}

func parseAddr(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("address %q: %w", s, model.ErrInvalidArgument)
	}

	return addr, nil
}

type scanResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id,omitempty"`
}

type infoResponse struct {
	Revision     string  `json:"revision"`
	Branch       string  `json:"branch"`
	Environment  string  `json:"environment"`
	BootTime     string  `json:"boot_time"`
	Uptime       float64 `json:"uptime"`
	RequestCount int     `json:"request_count"`
	Scanning     bool    `json:"scanning"`
}
