package storage

import (
	"path/filepath"
	"testing"

	"signal_bridge/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *Storage {
	dbName := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	s, err := newStorage(db)
	if err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func TestSyncTickers(t *testing.T) {
	s := setupTestDB(t)

	err := s.SyncTickers(map[string]string{
		"SBER": "BBG004730N88",
		"gazp": "BBG004730ZJ9",
	})
	if err != nil {
		t.Fatalf("SyncTickers failed: %v", err)
	}

	active, err := s.ActiveInstruments()
	if err != nil {
		t.Fatalf("ActiveInstruments failed: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected 2 active instruments, got %d", len(active))
	}
	if active[0].Symbol != "GAZP" || active[1].Symbol != "SBER" {
		t.Errorf("unexpected order or normalisation: %+v", active)
	}

	t.Run("removed ticker is deactivated", func(t *testing.T) {
		if err := s.SyncTickers(map[string]string{"SBER": "BBG004730N88"}); err != nil {
			t.Fatalf("SyncTickers failed: %v", err)
		}

		active, _ := s.ActiveInstruments()
		if len(active) != 1 || active[0].Symbol != "SBER" {
			t.Errorf("expected only SBER active, got %+v", active)
		}

		var gazp domain.InstrumentInfo
		if err := s.db.First(&gazp, "symbol = ?", "GAZP").Error; err != nil {
			t.Fatalf("expected GAZP row to be kept: %v", err)
		}
		if gazp.IsActive {
			t.Error("expected GAZP row to be inactive")
		}
	})

	t.Run("figi change is applied", func(t *testing.T) {
		if err := s.SyncTickers(map[string]string{"SBER": "NEWFIGI"}); err != nil {
			t.Fatalf("SyncTickers failed: %v", err)
		}
		active, _ := s.ActiveInstruments()
		if len(active) != 1 || active[0].VenueID != "NEWFIGI" {
			t.Errorf("expected figi NEWFIGI, got %+v", active)
		}
	})
}

func TestRuntimeValues(t *testing.T) {
	s := setupTestDB(t)

	if _, ok, err := s.GetValue("sandbox.account_id"); err != nil || ok {
		t.Fatalf("expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := s.SaveValue("sandbox.account_id", "acc-1"); err != nil {
		t.Fatalf("SaveValue failed: %v", err)
	}
	if err := s.SaveValue("sandbox.account_id", "acc-2"); err != nil {
		t.Fatalf("SaveValue overwrite failed: %v", err)
	}

	v, ok, err := s.GetValue("sandbox.account_id")
	if err != nil || !ok || v != "acc-2" {
		t.Errorf("expected acc-2, got %q ok=%v err=%v", v, ok, err)
	}

	var rows int64
	s.db.Model(&domain.AppConfig{}).Count(&rows)
	if rows != 1 {
		t.Errorf("expected 1 stored value, got %d", rows)
	}
}
