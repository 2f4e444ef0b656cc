package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"signal_bridge/internal/domain"
)

// OrderSubmitter places exactly one market order per call on a
// request-scoped venue session. It never retries.
type OrderSubmitter struct {
	broker    domain.Broker
	keys      *KeyGenerator
	accountID string
	timeout   time.Duration
	logger    *slog.Logger
}

// SubmitterConfig holds the submitter's tunables.
type SubmitterConfig struct {
	// AccountID pins the trading account; empty means the first account listed.
	AccountID string
	// Timeout bounds the whole venue interaction; zero disables it.
	Timeout time.Duration
}

// NewOrderSubmitter creates a new OrderSubmitter.
func NewOrderSubmitter(broker domain.Broker, keys *KeyGenerator, cfg SubmitterConfig) *OrderSubmitter {
	return &OrderSubmitter{
		broker:    broker,
		keys:      keys,
		accountID: cfg.AccountID,
		timeout:   cfg.Timeout,
		logger:    slog.Default().With("module", "order_submitter"),
	}
}

// Submit opens a venue session, selects the account and posts a market order.
// The caller's cancellation is ignored: once a signal is accepted the order is
// carried through, bounded only by the configured timeout.
// Errors are *domain.TradeError of kind NoAccount, VenueRejected or TransportFailure.
func (s *OrderSubmitter) Submit(ctx context.Context, cmd domain.TradeCommand) (domain.OrderResult, error) {
	ctx = context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	session, err := s.broker.Open(ctx)
	if err != nil {
		return domain.OrderResult{}, classifyVenueError(err)
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			s.logger.Warn("failed to close venue session", slog.Any("error", cerr))
		}
	}()

	accountID, err := s.selectAccount(ctx, session)
	if err != nil {
		return domain.OrderResult{}, err
	}

	key := s.keys.Next(cmd.Side, cmd.Instrument.Symbol)
	s.logger.InfoContext(ctx, "submitting market order",
		slog.String("ticker", cmd.Instrument.Symbol),
		slog.String("figi", cmd.Instrument.VenueID),
		slog.String("side", cmd.Side.String()),
		slog.Int64("lots", cmd.Quantity),
		slog.String("order_key", key),
	)

	result, err := session.PostMarketOrder(ctx, domain.MarketOrderRequest{
		InstrumentID:   cmd.Instrument.VenueID,
		Side:           cmd.Side,
		Quantity:       cmd.Quantity,
		AccountID:      accountID,
		IdempotencyKey: key,
	})
	if err != nil {
		return domain.OrderResult{}, classifyVenueError(err)
	}

	return result, nil
}

func (s *OrderSubmitter) selectAccount(ctx context.Context, session domain.BrokerSession) (string, error) {
	accounts, err := session.ListAccounts(ctx)
	if err != nil {
		return "", classifyVenueError(err)
	}
	if len(accounts) == 0 {
		return "", domain.NewTradeError(domain.KindNoAccount, domain.ErrNoAccount,
			"venue returned no trading accounts")
	}

	if s.accountID == "" {
		return accounts[0].ID, nil
	}
	for _, acc := range accounts {
		if acc.ID == s.accountID {
			return acc.ID, nil
		}
	}
	return "", domain.NewTradeError(domain.KindNoAccount, domain.ErrNoAccount,
		"configured account %q not found among %d venue accounts", s.accountID, len(accounts))
}

// classifyVenueError splits venue failures into structured rejections and
// everything else (network, timeout, decoding).
func classifyVenueError(err error) error {
	var te *domain.TradeError
	if errors.As(err, &te) {
		return err
	}

	var ve *domain.VenueError
	if errors.As(err, &ve) {
		return domain.NewTradeError(domain.KindVenueRejected, err, "")
	}
	return domain.NewTradeError(domain.KindTransportFailure, err, "")
}
