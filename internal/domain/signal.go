package domain

import "strings"

// Side is the direction of a market order.
type Side int

const (
	SideBuy Side = iota + 1
	SideSell
)

// ParseSide maps an action string ("buy"/"sell", any case) to a Side.
func ParseSide(action string) (Side, bool) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "buy":
		return SideBuy, true
	case "sell":
		return SideSell, true
	default:
		return 0, false
	}
}

// Action returns the lower-case wire form used in webhook payloads.
func (s Side) Action() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

func (s Side) String() string {
	return strings.ToUpper(s.Action())
}

// TradeSignal is the untrusted webhook payload as sent by the charting platform.
type TradeSignal struct {
	Action string `json:"action"`
	Ticker string `json:"ticker"`
	Lots   any    `json:"lots,omitempty"`
}

// TradeCommand is a validated signal, ready for submission.
// Quantity is always >= 1 and Instrument is always resolved.
type TradeCommand struct {
	Side       Side
	Instrument Instrument
	Quantity   int64
}
