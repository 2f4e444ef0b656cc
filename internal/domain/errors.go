package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a webhook request failed.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota

	// Client input errors (HTTP 400)
	KindMalformedPayload
	KindInvalidAction
	KindUnknownInstrument
	KindInvalidQuantity

	// Execution errors (HTTP 500)
	KindNoAccount
	KindVenueRejected
	KindTransportFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformedPayload:
		return "MalformedPayload"
	case KindInvalidAction:
		return "InvalidAction"
	case KindUnknownInstrument:
		return "UnknownInstrument"
	case KindInvalidQuantity:
		return "InvalidQuantity"
	case KindNoAccount:
		return "NoAccount"
	case KindVenueRejected:
		return "VenueRejected"
	case KindTransportFailure:
		return "TransportFailure"
	default:
		return "Unknown"
	}
}

// IsClientError reports whether the kind is caused by the webhook caller's input.
func (k ErrorKind) IsClientError() bool {
	switch k {
	case KindMalformedPayload, KindInvalidAction, KindUnknownInstrument, KindInvalidQuantity:
		return true
	default:
		return false
	}
}

// TradeError is the single error type returned by the validation and submission
// pipeline. Detail is human readable and safe to show to the caller.
type TradeError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *TradeError) Error() string {
	if e.Err != nil && e.Detail == "" {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Detail
}

func (e *TradeError) Unwrap() error {
	return e.Err
}

// NewTradeError builds a TradeError. Detail falls back to err's message.
func NewTradeError(kind ErrorKind, err error, format string, args ...any) *TradeError {
	detail := fmt.Sprintf(format, args...)
	if detail == "" && err != nil {
		detail = err.Error()
	}
	return &TradeError{Kind: kind, Detail: detail, Err: err}
}

// KindOf extracts the ErrorKind from err, KindUnknown if err is not a TradeError.
func KindOf(err error) ErrorKind {
	var te *TradeError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}

// VenueError is a structured rejection returned by the brokerage API
// (insufficient funds, market closed, unknown instrument at the venue...).
type VenueError struct {
	HTTPStatus  int
	Code        int
	Message     string
	Description string
}

func (e *VenueError) Error() string {
	msg := e.Message
	if e.Description != "" {
		if msg != "" {
			msg += " "
		}
		msg += e.Description
	}
	if msg == "" {
		msg = fmt.Sprintf("http status %d", e.HTTPStatus)
	}
	return fmt.Sprintf("venue error (code=%d): %s", e.Code, msg)
}

// NetworkError represents a transport-level failure talking to an external API
type NetworkError struct {
	Op  string // Operation that failed (e.g., "GetAccounts", "PostOrder")
	Err error  // Underlying error
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a network error for op
func NewNetworkError(op string, err error) *NetworkError {
	return &NetworkError{Op: op, Err: err}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

var (
	// ErrUnknownInstrument is returned by the resolver for tickers outside the catalog.
	ErrUnknownInstrument = errors.New("unknown instrument")

	// ErrNoAccount is returned when the venue has no usable trading account.
	ErrNoAccount = errors.New("no trading account")

	// ErrSessionClosed is returned when a venue session is used after Close.
	ErrSessionClosed = errors.New("venue session closed")

	// ErrSandboxDisabled is returned by sandbox provisioning in live mode.
	ErrSandboxDisabled = errors.New("sandbox mode is disabled")
)
