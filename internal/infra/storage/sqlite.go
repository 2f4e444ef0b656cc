package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"signal_bridge/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Storage persists the instrument catalog and runtime state in SQLite.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the database at path.
// An empty path resolves to the per-user data directory.
func NewStorage(path string) (*Storage, error) {
	dbPath := path
	if dbPath == "" {
		var err error
		dbPath, err = getDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return newStorage(db)
}

func newStorage(db *gorm.DB) (*Storage, error) {
	if err := db.AutoMigrate(&domain.InstrumentInfo{}, &domain.AppConfig{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "SignalBridge", "data", "signal_bridge.db"), nil
}

// ======================================================================================
// Instrument Operations
// ======================================================================================

// ActiveInstruments returns every tradable instrument ordered by ticker
func (s *Storage) ActiveInstruments() ([]domain.Instrument, error) {
	var rows []domain.InstrumentInfo
	if err := s.db.Where("is_active = ?", true).Order("symbol").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]domain.Instrument, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Instrument())
	}
	return out, nil
}

// SyncTickers makes the catalog mirror the configured ticker map.
// Configured tickers are upserted as active, every other row is deactivated.
// Tickers are normalised to upper case.
func (s *Storage) SyncTickers(tickers map[string]string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		symbols := make([]string, 0, len(tickers))
		for ticker, figi := range tickers {
			symbol := strings.ToUpper(strings.TrimSpace(ticker))
			symbols = append(symbols, symbol)

			row := domain.InstrumentInfo{
				Symbol:   symbol,
				VenueID:  strings.TrimSpace(figi),
				Name:     symbol,
				IsActive: true,
			}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "symbol"}},
				DoUpdates: clause.AssignmentColumns([]string{"venue_id", "is_active", "updated_at"}),
			}).Create(&row).Error
			if err != nil {
				return fmt.Errorf("upsert %s: %w", symbol, err)
			}
		}

		q := tx.Model(&domain.InstrumentInfo{}).Where("is_active = ?", true)
		if len(symbols) > 0 {
			q = q.Where("symbol NOT IN ?", symbols)
		}
		return q.Update("is_active", false).Error
	})
}

// ======================================================================================
// Runtime State Operations
// ======================================================================================

// SaveValue stores a runtime value under key
func (s *Storage) SaveValue(key, value string) error {
	config := domain.AppConfig{
		Key:   key,
		Value: value,
	}
	return s.db.Save(&config).Error
}

// GetValue loads a runtime value. The bool is false when the key is absent.
func (s *Storage) GetValue(key string) (string, bool, error) {
	var config domain.AppConfig
	err := s.db.Where(&domain.AppConfig{Key: key}).First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return config.Value, true, nil
}
