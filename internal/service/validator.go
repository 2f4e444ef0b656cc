package service

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"signal_bridge/internal/domain"
)

const defaultLots = 1

// SignalValidator turns an untrusted webhook payload into a TradeCommand.
// It holds no per-request state.
type SignalValidator struct {
	resolver *InstrumentResolver
}

// NewSignalValidator creates a validator backed by the given resolver.
func NewSignalValidator(resolver *InstrumentResolver) *SignalValidator {
	return &SignalValidator{resolver: resolver}
}

// Validate parses a raw JSON body and validates it.
func (v *SignalValidator) Validate(raw []byte) (domain.TradeCommand, error) {
	fields, err := ParsePayload(raw)
	if err != nil {
		return domain.TradeCommand{}, err
	}
	return v.ValidateFields(fields)
}

// ParsePayload decodes a JSON object body. Anything else is MalformedPayload.
func ParsePayload(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, domain.NewTradeError(domain.KindMalformedPayload, err, "invalid JSON: %v", err)
	}
	if fields == nil {
		return nil, domain.NewTradeError(domain.KindMalformedPayload, nil, "invalid JSON: expected an object")
	}
	if dec.More() {
		return nil, domain.NewTradeError(domain.KindMalformedPayload, nil, "invalid JSON: trailing data after object")
	}
	return fields, nil
}

// ValidateFields validates an already-decoded payload.
func (v *SignalValidator) ValidateFields(fields map[string]any) (domain.TradeCommand, error) {
	sig := domain.TradeSignal{
		Action: stringField(fields, "action"),
		Ticker: stringField(fields, "ticker"),
		Lots:   fields["lots"],
	}
	return v.validateSignal(sig)
}

func (v *SignalValidator) validateSignal(sig domain.TradeSignal) (domain.TradeCommand, error) {
	side, ok := domain.ParseSide(sig.Action)
	if !ok {
		return domain.TradeCommand{}, domain.NewTradeError(domain.KindInvalidAction, nil,
			"invalid action %q: must be 'buy' or 'sell'", sig.Action)
	}

	inst, err := v.resolver.Resolve(sig.Ticker)
	if err != nil {
		return domain.TradeCommand{}, err
	}

	lots, err := parseLots(sig.Lots)
	if err != nil {
		return domain.TradeCommand{}, err
	}

	return domain.TradeCommand{
		Side:       side,
		Instrument: inst,
		Quantity:   lots,
	}, nil
}

// stringField returns fields[key] when it is a string, "" otherwise.
func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// parseLots accepts a JSON integer, an integral float or a numeric string.
// Missing and null both mean the default of one lot.
func parseLots(v any) (int64, error) {
	var (
		n   int64
		err error
	)

	switch val := v.(type) {
	case nil:
		return defaultLots, nil
	case json.Number:
		n, err = integralFromString(val.String())
	case float64:
		n, err = integralFromFloat(val)
	case int:
		n = int64(val)
	case int64:
		n = val
	case string:
		n, err = integralFromString(strings.TrimSpace(val))
	default:
		return 0, invalidQuantity(v)
	}

	if err != nil || n <= 0 {
		return 0, invalidQuantity(v)
	}
	return n, nil
}

func integralFromString(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return integralFromFloat(f)
}

func integralFromFloat(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64/2 {
		return 0, strconv.ErrSyntax
	}
	return int64(f), nil
}

func invalidQuantity(v any) error {
	return domain.NewTradeError(domain.KindInvalidQuantity, nil,
		"invalid lots %v: must be a positive integer", v)
}
