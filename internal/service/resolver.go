package service

import (
	"fmt"
	"sort"
	"strings"

	"signal_bridge/internal/domain"
)

// InstrumentResolver maps ticker symbols to venue instruments.
// It is built once at startup and never mutated, so it is safe for concurrent use.
type InstrumentResolver struct {
	instruments map[string]domain.Instrument
	symbols     []string
}

// NewInstrumentResolver builds a resolver from catalog instruments.
// Symbols are normalised to upper case; duplicates are rejected.
func NewInstrumentResolver(instruments []domain.Instrument) (*InstrumentResolver, error) {
	r := &InstrumentResolver{
		instruments: make(map[string]domain.Instrument, len(instruments)),
		symbols:     make([]string, 0, len(instruments)),
	}

	for _, inst := range instruments {
		symbol := normalizeSymbol(inst.Symbol)
		if symbol == "" || inst.VenueID == "" {
			return nil, fmt.Errorf("instrument %q: empty symbol or venue id", inst.Symbol)
		}
		if _, dup := r.instruments[symbol]; dup {
			return nil, fmt.Errorf("instrument %q: duplicate symbol", symbol)
		}
		r.instruments[symbol] = domain.Instrument{Symbol: symbol, VenueID: inst.VenueID}
		r.symbols = append(r.symbols, symbol)
	}

	sort.Strings(r.symbols)
	return r, nil
}

// Resolve looks up a ticker case-insensitively.
func (r *InstrumentResolver) Resolve(symbol string) (domain.Instrument, error) {
	key := normalizeSymbol(symbol)
	inst, ok := r.instruments[key]
	if !ok {
		return domain.Instrument{}, domain.NewTradeError(domain.KindUnknownInstrument,
			domain.ErrUnknownInstrument, "unknown ticker: %q", key)
	}
	return inst, nil
}

// Symbols returns the known tickers in sorted order.
func (r *InstrumentResolver) Symbols() []string {
	out := make([]string, len(r.symbols))
	copy(out, r.symbols)
	return out
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
