package execution

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"signal_bridge/internal/domain"

	"github.com/google/uuid"
)

const (
	// PaperAccountID is the single account a paper broker exposes
	PaperAccountID = "paper"

	statusFill = "EXECUTION_REPORT_STATUS_FILL"

	// gRPC status codes carried by the venue's error body
	codeInvalidArgument = 3
	codeNotFound        = 5
)

// Fill is one simulated execution.
type Fill struct {
	OrderID        string
	InstrumentID   string
	Side           domain.Side
	Lots           int64
	IdempotencyKey string
	Time           time.Time
}

// PaperExecution is an in-memory broker that fills every market order
// immediately. Positions are tracked in lots per instrument id; a sell larger
// than the held position is rejected like a venue would.
// A repeated idempotency key returns the original result without a new fill.
type PaperExecution struct {
	mu        sync.Mutex
	latency   time.Duration
	positions map[string]int64
	fills     []Fill
	byKey     map[string]domain.OrderResult
}

// NewPaperExecution creates a paper broker. latency simulates venue round trips.
func NewPaperExecution(latency time.Duration) *PaperExecution {
	return &PaperExecution{
		latency:   latency,
		positions: make(map[string]int64),
		byKey:     make(map[string]domain.OrderResult),
	}
}

// Deposit seeds a position, e.g. to allow sells in a dry run.
func (p *PaperExecution) Deposit(instrumentID string, lots int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.positions[instrumentID] += lots
}

// Position returns the held lots of an instrument.
func (p *PaperExecution) Position(instrumentID string) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positions[instrumentID]
}

// Fills returns a copy of all fills in execution order.
func (p *PaperExecution) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Fill(nil), p.fills...)
}

// Open implements domain.Broker.
func (p *PaperExecution) Open(ctx context.Context) (domain.BrokerSession, error) {
	if err := p.wait(ctx); err != nil {
		return nil, err
	}
	return &paperSession{broker: p}, nil
}

func (p *PaperExecution) wait(ctx context.Context) error {
	if p.latency <= 0 {
		if err := ctx.Err(); err != nil {
			return domain.NewNetworkError("paper", err)
		}
		return nil
	}
	t := time.NewTimer(p.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return domain.NewNetworkError("paper", ctx.Err())
	case <-t.C:
		return nil
	}
}

func (p *PaperExecution) execute(req domain.MarketOrderRequest) (domain.OrderResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if res, ok := p.byKey[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return res, nil
	}
	if req.AccountID != PaperAccountID {
		return domain.OrderResult{}, &domain.VenueError{
			HTTPStatus:  http.StatusBadRequest,
			Code:        codeNotFound,
			Message:     "50004",
			Description: "account not found: " + req.AccountID,
		}
	}
	if req.Quantity <= 0 {
		return domain.OrderResult{}, &domain.VenueError{
			HTTPStatus:  http.StatusBadRequest,
			Code:        codeInvalidArgument,
			Message:     "30003",
			Description: "quantity must be positive",
		}
	}

	held := p.positions[req.InstrumentID]
	switch req.Side {
	case domain.SideBuy:
		p.positions[req.InstrumentID] = held + req.Quantity
	case domain.SideSell:
		if held < req.Quantity {
			return domain.OrderResult{}, &domain.VenueError{
				HTTPStatus:  http.StatusBadRequest,
				Code:        codeInvalidArgument,
				Message:     "30034",
				Description: "not enough balance",
			}
		}
		p.positions[req.InstrumentID] = held - req.Quantity
	default:
		return domain.OrderResult{}, &domain.VenueError{
			HTTPStatus:  http.StatusBadRequest,
			Code:        codeInvalidArgument,
			Message:     "30001",
			Description: "unknown order direction",
		}
	}

	res := domain.OrderResult{
		OrderID:         uuid.NewString(),
		ExecutionStatus: statusFill,
		LotsExecuted:    req.Quantity,
	}
	p.fills = append(p.fills, Fill{
		OrderID:        res.OrderID,
		InstrumentID:   req.InstrumentID,
		Side:           req.Side,
		Lots:           req.Quantity,
		IdempotencyKey: req.IdempotencyKey,
		Time:           time.Now(),
	})
	if req.IdempotencyKey != "" {
		p.byKey[req.IdempotencyKey] = res
	}
	return res, nil
}

type paperSession struct {
	broker *PaperExecution
	closed atomic.Bool
}

func (s *paperSession) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	if s.closed.Load() {
		return nil, domain.ErrSessionClosed
	}
	if err := s.broker.wait(ctx); err != nil {
		return nil, err
	}
	return []domain.Account{{ID: PaperAccountID, Name: "Paper", Status: "ACCOUNT_STATUS_OPEN"}}, nil
}

func (s *paperSession) PostMarketOrder(ctx context.Context, req domain.MarketOrderRequest) (domain.OrderResult, error) {
	if s.closed.Load() {
		return domain.OrderResult{}, domain.ErrSessionClosed
	}
	if err := s.broker.wait(ctx); err != nil {
		return domain.OrderResult{}, err
	}
	return s.broker.execute(req)
}

func (s *paperSession) Close() error {
	s.closed.Store(true)
	return nil
}
