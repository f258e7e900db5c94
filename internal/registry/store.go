package registry

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ferux/homewatch/internal/model"
)

// Store is a Registry kept in a sqlite database.
type Store struct {
	db    *gorm.DB
	retry RetryPolicy
}

// Open creates the database file if needed and migrates the schema.
// Errors here are fatal for the application.
func Open(ctx context.Context, path string, retry RetryPolicy, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating db dir: %w", err)
	}

	glog := logger.With().Str("pkg", "registry").Logger()
	dsn := "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(&glog, gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db: %w", err)
	}

	// a single connection makes sqlite serialize writers of this process.
	sqlDB.SetMaxOpenConns(1)

	s := &Store{db: db, retry: retry}

	err = retry.Do(ctx, func() error {
		return db.WithContext(ctx).AutoMigrate(&deviceRow{}, &historyRow{})
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return s, nil
}

// Close the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

func (s *Store) ListDevices(ctx context.Context) ([]model.Device, error) {
	var rows []deviceRow

	err := s.retry.Do(ctx, func() error {
		rows = rows[:0]
		return s.db.WithContext(ctx).Order("id asc").Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	devices := make([]model.Device, 0, len(rows))
	for _, r := range rows {
		devices = append(devices, r.device())
	}

	return devices, nil
}

func (s *Store) GetDevice(ctx context.Context, id model.DeviceID) (model.Device, error) {
	var row deviceRow

	err := s.retry.Do(ctx, func() error {
		return s.db.WithContext(ctx).First(&row, uint64(id)).Error
	})
	if err != nil {
		return model.Device{}, fmt.Errorf("getting device %d: %w", id, notFound(err))
	}

	return row.device(), nil
}

func (s *Store) CreateDevice(ctx context.Context, d model.NewDevice) (model.Device, error) {
	if err := d.Validate(); err != nil {
		return model.Device{}, err
	}

	var row deviceRow

	err := s.retry.Do(ctx, func() error {
		row = deviceRow{
			Name:         d.Name,
			Address:      d.Address.String(),
			HardwareAddr: d.HardwareAddr,
			Status:       string(model.StatusAway),
			Notify:       string(d.Notify),
		}

		return s.db.WithContext(ctx).Create(&row).Error
	})
	if err != nil {
		return model.Device{}, fmt.Errorf("creating device: %w", err)
	}

	return row.device(), nil
}

func (s *Store) UpdateDevice(ctx context.Context, id model.DeviceID, upd model.DeviceUpdate) (model.Device, error) {
	if err := upd.Validate(); err != nil {
		return model.Device{}, err
	}

	var row deviceRow

	err := s.retry.Do(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			row = deviceRow{}
			if err := tx.First(&row, uint64(id)).Error; err != nil {
				return err
			}

			d := row.device()
			upd.Apply(&d)

			row.Name = d.Name
			row.Address = d.Address.String()
			row.HardwareAddr = d.HardwareAddr
			row.Status = string(d.Status)

			return tx.Save(&row).Error
		})
	})
	if err != nil {
		return model.Device{}, fmt.Errorf("updating device %d: %w", id, notFound(err))
	}

	return row.device(), nil
}

func (s *Store) DeleteDevice(ctx context.Context, id model.DeviceID) error {
	err := s.retry.Do(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("device_id = ?", uint64(id)).Delete(&historyRow{}).Error; err != nil {
				return err
			}

			res := tx.Delete(&deviceRow{}, uint64(id))
			if res.Error != nil {
				return res.Error
			}

			if res.RowsAffected == 0 {
				return model.ErrNotFound
			}

			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("deleting device %d: %w", id, err)
	}

	return nil
}

func (s *Store) SetNotifyPreference(ctx context.Context, id model.DeviceID, pref model.NotifyPreference) error {
	if _, err := model.ParseNotifyPreference(string(pref)); err != nil {
		return err
	}

	err := s.updateColumn(ctx, id, "notify", string(pref))
	if err != nil {
		return fmt.Errorf("setting notify preference of device %d: %w", id, err)
	}

	return nil
}

func (s *Store) Relocate(ctx context.Context, id model.DeviceID, addr netip.Addr) error {
	if !addr.IsValid() {
		return fmt.Errorf("relocating device %d: %w", id, model.ErrInvalidArgument)
	}

	err := s.updateColumn(ctx, id, "address", addr.String())
	if err != nil {
		return fmt.Errorf("relocating device %d: %w", id, err)
	}

	return nil
}

func (s *Store) updateColumn(ctx context.Context, id model.DeviceID, column string, value interface{}) error {
	return s.retry.Do(ctx, func() error {
		res := s.db.WithContext(ctx).Model(&deviceRow{}).Where("id = ?", uint64(id)).Update(column, value)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return model.ErrNotFound
		}

		return nil
	})
}

func (s *Store) RecordStatus(ctx context.Context, id model.DeviceID, status model.Status, at time.Time) error {
	err := s.retry.Do(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			ts := at.UTC()

			var last []historyRow
			err := tx.Where("device_id = ?", uint64(id)).
				Order("timestamp desc, id desc").
				Limit(1).
				Find(&last).Error
			if err != nil {
				return err
			}

			if len(last) == 1 && ts.Before(last[0].Timestamp) {
				ts = last[0].Timestamp.UTC()
			}

			res := tx.Model(&deviceRow{}).Where("id = ?", uint64(id)).Updates(map[string]interface{}{
				"status":    string(status),
				"last_seen": ts,
			})
			if res.Error != nil {
				return res.Error
			}

			if res.RowsAffected == 0 {
				return model.ErrNotFound
			}

			return tx.Create(&historyRow{DeviceID: uint64(id), Status: string(status), Timestamp: ts}).Error
		})
	})
	if err != nil {
		return fmt.Errorf("recording status of device %d: %w", id, err)
	}

	return nil
}

func (s *Store) History(ctx context.Context, id model.DeviceID, filter model.HistoryFilter) ([]model.HistoryEntry, error) {
	var rows []historyRow

	err := s.retry.Do(ctx, func() error {
		var exists int64
		if err := s.db.WithContext(ctx).Model(&deviceRow{}).Where("id = ?", uint64(id)).Count(&exists).Error; err != nil {
			return err
		}

		if exists == 0 {
			return model.ErrNotFound
		}

		q := s.db.WithContext(ctx).Where("device_id = ?", uint64(id))
		if len(filter.Status) != 0 {
			q = q.Where("status = ?", string(filter.Status))
		}

		rows = rows[:0]

		return q.Order("timestamp asc, id asc").Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("reading history of device %d: %w", id, err)
	}

	entries := make([]model.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.entry())
	}

	return filter.Apply(entries), nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ErrNotFound
	}

	return err
}
