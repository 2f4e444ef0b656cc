package domain

import "context"

// Broker opens request-scoped sessions against the brokerage venue.
type Broker interface {
	Open(ctx context.Context) (BrokerSession, error)
}

// BrokerSession is a scoped connection to the venue. Callers must Close it.
type BrokerSession interface {
	ListAccounts(ctx context.Context) ([]Account, error)
	PostMarketOrder(ctx context.Context, req MarketOrderRequest) (OrderResult, error)
	Close() error
}

// SandboxProvisioner manages test accounts on the venue's sandbox environment.
type SandboxProvisioner interface {
	OpenSandboxAccount(ctx context.Context) (string, error)
	CloseSandboxAccount(ctx context.Context, accountID string) error
	SandboxAccounts(ctx context.Context) ([]Account, error)
	SandboxPayIn(ctx context.Context, accountID string, amount Money) (Money, error)
}

// Notifier delivers human-readable messages to the operator channel.
// Implementations must never fail from the caller's point of view.
type Notifier interface {
	Notify(ctx context.Context, message string)
}
