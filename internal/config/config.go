package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
	"os"
	stdtime "time"

	"github.com/ferux/homewatch/internal/time"
)

// maxSweepHosts bounds how many addresses a single locator sweep may touch.
const maxSweepHosts = 4096

// Application settings.
type Application struct {
	Debug         bool    `json:"debug"`
	HTTP          HTTP    `json:"http"`
	SentryDSN     string  `json:"sentry_dsn"`
	ServerName    string  `json:"server_name"`
	AdminPassword string  `json:"admin_password"`
	Store         Store   `json:"store"`
	Scanner       Scanner `json:"scanner"`
	Notify        Notify  `json:"notify"`
}

type HTTP struct {
	Listen  string        `json:"listen"`
	Timeout time.Duration `json:"timeout"`
}

// Store is the device registry database.
type Store struct {
	Path  string `json:"path"`
	Retry Retry  `json:"retry"`
}

// Retry is applied to store operations failing on lock contention.
type Retry struct {
	Attempts        uint64        `json:"attempts"`
	InitialInterval time.Duration `json:"initial_interval"`
	MaxInterval     time.Duration `json:"max_interval"`
}

// Scanner drives presence reconciliation.
type Scanner struct {
	Interval     time.Duration `json:"interval"`
	Network      string        `json:"network"`
	ProbeTimeout time.Duration `json:"probe_timeout"`
	SweepTimeout time.Duration `json:"sweep_timeout"`
	SweepWorkers int           `json:"sweep_workers"`
}

// Prefix parses Network. Call Validate first.
func (s Scanner) Prefix() netip.Prefix {
	p, _ := netip.ParsePrefix(s.Network)
	return p.Masked()
}

type Notify struct {
	Timeout  time.Duration  `json:"timeout"`
	Gotify   Gotify         `json:"gotify"`
	Telegram NotifyTelegram `json:"telegram"`
}

type Gotify struct {
	URL      string `json:"url"`
	Token    string `json:"token"`
	Priority int    `json:"priority"`
}

type NotifyTelegram struct {
	API    string `json:"api"`
	ChatID string `json:"chat_id"`
}

// Parse parses config from file, applies defaults and validates the result.
func Parse(path string) (Application, error) {
	fileBytes, err := os.ReadFile(path)
	if err != nil {
		return Application{}, err
	}

	app := Application{}
	err = json.Unmarshal(fileBytes, &app)
	if err != nil {
		return Application{}, fmt.Errorf("decoding %s: %w", path, err)
	}

	app.SetDefaults()

	return app, app.Validate()
}

// SetDefaults fills every zero setting.
func (app *Application) SetDefaults() {
	if len(app.HTTP.Listen) == 0 {
		app.HTTP.Listen = ":8080"
	}
	app.HTTP.Timeout = app.HTTP.Timeout.Or(15 * stdtime.Second)

	if len(app.Store.Path) == 0 {
		app.Store.Path = "./data/homewatch.db"
	}
	if app.Store.Retry.Attempts == 0 {
		app.Store.Retry.Attempts = 5
	}
	app.Store.Retry.InitialInterval = app.Store.Retry.InitialInterval.Or(100 * stdtime.Millisecond)
	app.Store.Retry.MaxInterval = app.Store.Retry.MaxInterval.Or(stdtime.Second)

	if len(app.Scanner.Network) == 0 {
		app.Scanner.Network = "10.0.0.0/24"
	}
	app.Scanner.Interval = app.Scanner.Interval.Or(stdtime.Minute)
	app.Scanner.ProbeTimeout = app.Scanner.ProbeTimeout.Or(2 * stdtime.Second)
	app.Scanner.SweepTimeout = app.Scanner.SweepTimeout.Or(30 * stdtime.Second)
	if app.Scanner.SweepWorkers <= 0 {
		app.Scanner.SweepWorkers = 32
	}

	app.Notify.Timeout = app.Notify.Timeout.Or(10 * stdtime.Second)
	if app.Notify.Gotify.Priority == 0 {
		app.Notify.Gotify.Priority = 5
	}
}

// Validate reports the first invalid setting.
func (app Application) Validate() error {
	prefix, err := netip.ParsePrefix(app.Scanner.Network)
	if err != nil {
		return fmt.Errorf("scanner.network: %w", err)
	}

	hostBits := prefix.Addr().BitLen() - prefix.Bits()
	if hostBits > 12 || 1<<hostBits > maxSweepHosts {
		return fmt.Errorf("scanner.network %s is larger than %d addresses", prefix, maxSweepHosts)
	}

	if app.Scanner.ProbeTimeout.Std() > app.Scanner.SweepTimeout.Std() {
		return errors.New("scanner.probe_timeout must not exceed scanner.sweep_timeout")
	}

	if app.Scanner.SweepTimeout.Std() >= app.Scanner.Interval.Std() {
		return errors.New("scanner.sweep_timeout must be shorter than scanner.interval")
	}

	if len(app.Notify.Gotify.URL) != 0 && len(app.Notify.Gotify.Token) == 0 {
		return errors.New("notify.gotify.token is required with notify.gotify.url")
	}

	if (len(app.Notify.Telegram.API) == 0) != (len(app.Notify.Telegram.ChatID) == 0) {
		return errors.New("notify.telegram needs both api and chat_id")
	}

	return nil
}
