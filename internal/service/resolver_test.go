package service

import (
	"errors"
	"reflect"
	"testing"

	"signal_bridge/internal/domain"
)

func TestInstrumentResolver_Resolve(t *testing.T) {
	r := newTestResolver()

	t.Run("exact match", func(t *testing.T) {
		inst, err := r.Resolve("SBER")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if inst.VenueID != "BBG004730N88" {
			t.Errorf("Expected BBG004730N88, got %s", inst.VenueID)
		}
	})

	t.Run("case insensitive", func(t *testing.T) {
		inst, err := r.Resolve(" gazp ")
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if inst.Symbol != "GAZP" {
			t.Errorf("Expected normalised symbol GAZP, got %s", inst.Symbol)
		}
	})

	t.Run("unknown ticker", func(t *testing.T) {
		_, err := r.Resolve("UNKNOWN")
		if domain.KindOf(err) != domain.KindUnknownInstrument {
			t.Fatalf("Expected UnknownInstrument, got %v", err)
		}
		if !errors.Is(err, domain.ErrUnknownInstrument) {
			t.Error("Expected error to wrap ErrUnknownInstrument")
		}
	})
}

func TestInstrumentResolver_Symbols(t *testing.T) {
	r := newTestResolver()

	want := []string{"AAPL", "GAZP", "SBER"}
	if got := r.Symbols(); !reflect.DeepEqual(got, want) {
		t.Errorf("Symbols() = %v, want %v", got, want)
	}
}

func TestNewInstrumentResolver_RejectsDuplicates(t *testing.T) {
	_, err := NewInstrumentResolver([]domain.Instrument{
		{Symbol: "SBER", VenueID: "A"},
		{Symbol: "sber", VenueID: "B"},
	})
	if err == nil {
		t.Fatal("Expected duplicate symbol error")
	}

	_, err = NewInstrumentResolver([]domain.Instrument{{Symbol: "SBER"}})
	if err == nil {
		t.Fatal("Expected empty venue id error")
	}
}
