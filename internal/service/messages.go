package service

import (
	"errors"
	"fmt"
	"strings"

	"signal_bridge/internal/domain"
)

// FormatSuccess renders the operator message for an executed order.
func FormatSuccess(cmd domain.TradeCommand, res domain.OrderResult) string {
	verb := "✅ BOUGHT"
	if cmd.Side == domain.SideSell {
		verb = "✅ SOLD"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %d lots %s (%s)\n", verb, cmd.Quantity, cmd.Instrument.Symbol, cmd.Instrument.VenueID)
	fmt.Fprintf(&b, "Order: %s\n", res.OrderID)
	fmt.Fprintf(&b, "Status: %s", res.ExecutionStatus)
	if !res.ExecutedPrice.IsZero() {
		fmt.Fprintf(&b, "\nExecuted price: %s %s", res.ExecutedPrice.String(), strings.ToUpper(res.Currency))
	}
	return b.String()
}

// FormatFailure renders the operator message for a failed request.
// cmd may be nil when the failure happened before validation finished.
func FormatFailure(err error, cmd *domain.TradeCommand) string {
	kind := domain.KindOf(err)
	detail := err.Error()
	var te *domain.TradeError
	if errors.As(err, &te) {
		detail = te.Detail
	}

	msg := fmt.Sprintf("❌ %s: %s", kind, detail)
	if cmd != nil {
		msg += fmt.Sprintf("\n%s %d lots %s", cmd.Side, cmd.Quantity, cmd.Instrument.Symbol)
	}
	return msg
}
