package service

import (
	"context"
	"errors"
	"sync"

	"signal_bridge/internal/domain"

	"github.com/shopspring/decimal"
)

var testInstruments = []domain.Instrument{
	{Symbol: "SBER", VenueID: "BBG004730N88"},
	{Symbol: "GAZP", VenueID: "BBG004730ZJ9"},
	{Symbol: "AAPL", VenueID: "BBG000B9XRY4"},
}

func newTestResolver() *InstrumentResolver {
	r, err := NewInstrumentResolver(testInstruments)
	if err != nil {
		panic(err)
	}
	return r
}

// fakeBroker records sessions and orders.
type fakeBroker struct {
	mu sync.Mutex

	openErr   error
	accounts  []domain.Account
	listErr   error
	postErr   error
	result    domain.OrderResult
	blockPost bool

	opened   int
	closed   int
	requests []domain.MarketOrderRequest
}

func (b *fakeBroker) Open(ctx context.Context) (domain.BrokerSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.opened++
	return &fakeSession{broker: b}, nil
}

func (b *fakeBroker) counts() (opened, closed, posted int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened, b.closed, len(b.requests)
}

type fakeSession struct {
	broker *fakeBroker
}

func (s *fakeSession) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	if s.broker.listErr != nil {
		return nil, s.broker.listErr
	}
	return s.broker.accounts, nil
}

func (s *fakeSession) PostMarketOrder(ctx context.Context, req domain.MarketOrderRequest) (domain.OrderResult, error) {
	s.broker.mu.Lock()
	s.broker.requests = append(s.broker.requests, req)
	block := s.broker.blockPost
	s.broker.mu.Unlock()

	if block {
		<-ctx.Done()
		return domain.OrderResult{}, domain.NewNetworkError("PostOrder", ctx.Err())
	}
	if s.broker.postErr != nil {
		return domain.OrderResult{}, s.broker.postErr
	}
	return s.broker.result, nil
}

func (s *fakeSession) Close() error {
	s.broker.mu.Lock()
	defer s.broker.mu.Unlock()
	s.broker.closed++
	return nil
}

// fakeProvisioner is an in-memory sandbox.
type fakeProvisioner struct {
	accounts []domain.Account
	next     int
	payIns   []domain.Money
	closeErr error
}

func (p *fakeProvisioner) OpenSandboxAccount(ctx context.Context) (string, error) {
	p.next++
	id := "sbx-" + string(rune('0'+p.next))
	p.accounts = append(p.accounts, domain.Account{ID: id})
	return id, nil
}

func (p *fakeProvisioner) CloseSandboxAccount(ctx context.Context, accountID string) error {
	if p.closeErr != nil {
		return p.closeErr
	}
	for i, acc := range p.accounts {
		if acc.ID == accountID {
			p.accounts = append(p.accounts[:i], p.accounts[i+1:]...)
			return nil
		}
	}
	return errors.New("not found")
}

func (p *fakeProvisioner) SandboxAccounts(ctx context.Context) ([]domain.Account, error) {
	out := make([]domain.Account, len(p.accounts))
	copy(out, p.accounts)
	return out, nil
}

func (p *fakeProvisioner) SandboxPayIn(ctx context.Context, accountID string, amount domain.Money) (domain.Money, error) {
	p.payIns = append(p.payIns, amount)
	return domain.Money{Currency: amount.Currency, Amount: amount.Amount.Add(decimal.Zero)}, nil
}

type memStore map[string]string

func (m memStore) GetValue(key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memStore) SaveValue(key, value string) error {
	m[key] = value
	return nil
}
