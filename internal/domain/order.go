package domain

import "github.com/shopspring/decimal"

// Account is a trading account returned by the venue.
type Account struct {
	ID     string
	Name   string
	Status string
}

// MarketOrderRequest is a single market order submission.
type MarketOrderRequest struct {
	InstrumentID   string
	Side           Side
	Quantity       int64
	AccountID      string
	IdempotencyKey string
}

// OrderResult is the venue's acknowledgment of an order.
// ExecutionStatus is passed through to the operator without interpretation.
type OrderResult struct {
	OrderID         string
	ExecutionStatus string

	LotsExecuted  int64
	ExecutedPrice decimal.Decimal
	TotalAmount   decimal.Decimal
	Currency      string
}

// Money is an amount in a given currency (sandbox balances, pay-ins).
type Money struct {
	Currency string          `yaml:"currency" json:"currency"`
	Amount   decimal.Decimal `yaml:"amount" json:"amount"`
}
