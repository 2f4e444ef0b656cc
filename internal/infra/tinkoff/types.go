package tinkoff

import (
	"encoding/json"

	"signal_bridge/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	servicePrefix = "tinkoff.public.invest.api.contract.v1."

	usersService   = "UsersService"
	ordersService  = "OrdersService"
	sandboxService = "SandboxService"

	directionBuy    = "ORDER_DIRECTION_BUY"
	directionSell   = "ORDER_DIRECTION_SELL"
	orderTypeMarket = "ORDER_TYPE_MARKET"
)

// moneyValue is the API's fixed-point money representation.
// Units are int64 and travel as JSON strings; nano is 1e-9 of a unit.
type moneyValue struct {
	Currency string      `json:"currency,omitempty"`
	Units    json.Number `json:"units"`
	Nano     int32       `json:"nano"`
}

func (m *moneyValue) decimal() decimal.Decimal {
	if m == nil {
		return decimal.Zero
	}
	units, err := decimal.NewFromString(m.Units.String())
	if err != nil {
		units = decimal.Zero
	}
	return units.Add(decimal.New(int64(m.Nano), -9))
}

func newMoneyValue(currency string, amount decimal.Decimal) moneyValue {
	units := amount.Truncate(0)
	nano := amount.Sub(units).Shift(9).IntPart()
	return moneyValue{
		Currency: currency,
		Units:    json.Number(units.String()),
		Nano:     int32(nano),
	}
}

func (m *moneyValue) money() domain.Money {
	if m == nil {
		return domain.Money{}
	}
	return domain.Money{Currency: m.Currency, Amount: m.decimal()}
}

type account struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type getAccountsResponse struct {
	Accounts []account `json:"accounts"`
}

type postOrderRequest struct {
	InstrumentID string `json:"instrumentId"`
	Quantity     string `json:"quantity"`
	Direction    string `json:"direction"`
	AccountID    string `json:"accountId"`
	OrderType    string `json:"orderType"`
	OrderID      string `json:"orderId"`
}

type postOrderResponse struct {
	OrderID               string      `json:"orderId"`
	ExecutionReportStatus string      `json:"executionReportStatus"`
	LotsRequested         json.Number `json:"lotsRequested"`
	LotsExecuted          json.Number `json:"lotsExecuted"`
	ExecutedOrderPrice    *moneyValue `json:"executedOrderPrice"`
	TotalOrderAmount      *moneyValue `json:"totalOrderAmount"`
	Figi                  string      `json:"figi"`
}

type openSandboxAccountResponse struct {
	AccountID string `json:"accountId"`
}

type accountRequest struct {
	AccountID string `json:"accountId"`
}

type sandboxPayInRequest struct {
	AccountID string     `json:"accountId"`
	Amount    moneyValue `json:"amount"`
}

type sandboxPayInResponse struct {
	Balance *moneyValue `json:"balance"`
}

// errorResponse is the gateway's error body.
type errorResponse struct {
	Code        int    `json:"code"`
	Message     string `json:"message"`
	Description string `json:"description"`
}
