package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"signal_bridge/internal/domain"
	"signal_bridge/internal/execution"

	"github.com/shopspring/decimal"
)

func sberBuy(lots int64) domain.TradeCommand {
	return domain.TradeCommand{
		Side:       domain.SideBuy,
		Instrument: domain.Instrument{Symbol: "SBER", VenueID: "BBG004730N88"},
		Quantity:   lots,
	}
}

func TestOrderSubmitter_Submit(t *testing.T) {
	broker := &fakeBroker{
		accounts: []domain.Account{{ID: "acc-1"}, {ID: "acc-2"}},
		result:   domain.OrderResult{OrderID: "ord-1", ExecutionStatus: "EXECUTION_REPORT_STATUS_FILL"},
	}
	s := NewOrderSubmitter(broker, NewKeyGenerator(), SubmitterConfig{Timeout: time.Second})

	res, err := s.Submit(context.Background(), sberBuy(5))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if res.OrderID != "ord-1" {
		t.Errorf("Expected ord-1, got %s", res.OrderID)
	}

	opened, closed, posted := broker.counts()
	if opened != 1 || closed != 1 || posted != 1 {
		t.Errorf("Expected 1/1/1 open/close/post, got %d/%d/%d", opened, closed, posted)
	}

	req := broker.requests[0]
	if req.AccountID != "acc-1" {
		t.Errorf("Expected first account acc-1, got %s", req.AccountID)
	}
	if req.InstrumentID != "BBG004730N88" || req.Side != domain.SideBuy || req.Quantity != 5 {
		t.Errorf("Unexpected order request: %+v", req)
	}
	if req.IdempotencyKey == "" {
		t.Error("Expected an idempotency key")
	}
}

func TestOrderSubmitter_FreshKeyPerAttempt(t *testing.T) {
	broker := &fakeBroker{accounts: []domain.Account{{ID: "acc-1"}}}
	s := NewOrderSubmitter(broker, NewKeyGenerator(), SubmitterConfig{})

	for i := 0; i < 2; i++ {
		if _, err := s.Submit(context.Background(), sberBuy(1)); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	if broker.requests[0].IdempotencyKey == broker.requests[1].IdempotencyKey {
		t.Error("Two submissions of the same signal must use distinct keys")
	}
}

func TestOrderSubmitter_ConfiguredAccount(t *testing.T) {
	broker := &fakeBroker{accounts: []domain.Account{{ID: "acc-1"}, {ID: "acc-2"}}}

	t.Run("selects configured account", func(t *testing.T) {
		s := NewOrderSubmitter(broker, NewKeyGenerator(), SubmitterConfig{AccountID: "acc-2"})
		if _, err := s.Submit(context.Background(), sberBuy(1)); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if got := broker.requests[len(broker.requests)-1].AccountID; got != "acc-2" {
			t.Errorf("Expected acc-2, got %s", got)
		}
	})

	t.Run("missing configured account", func(t *testing.T) {
		s := NewOrderSubmitter(broker, NewKeyGenerator(), SubmitterConfig{AccountID: "acc-9"})
		_, err := s.Submit(context.Background(), sberBuy(1))
		if domain.KindOf(err) != domain.KindNoAccount {
			t.Fatalf("Expected NoAccount, got %v", err)
		}
	})
}

func TestOrderSubmitter_Failures(t *testing.T) {
	venueErr := &domain.VenueError{HTTPStatus: 400, Code: 3, Message: "30042", Description: "not enough assets for a margin trade"}

	tests := []struct {
		name       string
		broker     *fakeBroker
		wantKind   domain.ErrorKind
		wantPosted int
		wantDetail string
	}{
		{
			name:     "no accounts",
			broker:   &fakeBroker{},
			wantKind: domain.KindNoAccount,
		},
		{
			name:     "open fails",
			broker:   &fakeBroker{openErr: errors.New("dial tcp: connection refused")},
			wantKind: domain.KindTransportFailure,
		},
		{
			name:     "list accounts rejected",
			broker:   &fakeBroker{listErr: &domain.VenueError{HTTPStatus: 401, Code: 16, Message: "40003", Description: "authentication token is missing or invalid"}},
			wantKind: domain.KindVenueRejected,
		},
		{
			name:       "venue rejection",
			broker:     &fakeBroker{accounts: []domain.Account{{ID: "a"}}, postErr: venueErr},
			wantKind:   domain.KindVenueRejected,
			wantPosted: 1,
			wantDetail: "not enough assets",
		},
		{
			name:       "transport failure",
			broker:     &fakeBroker{accounts: []domain.Account{{ID: "a"}}, postErr: domain.NewNetworkError("PostOrder", errors.New("i/o timeout"))},
			wantKind:   domain.KindTransportFailure,
			wantPosted: 1,
			wantDetail: "i/o timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewOrderSubmitter(tt.broker, NewKeyGenerator(), SubmitterConfig{})

			_, err := s.Submit(context.Background(), sberBuy(1))
			if got := domain.KindOf(err); got != tt.wantKind {
				t.Fatalf("Expected %s, got %s (%v)", tt.wantKind, got, err)
			}
			if tt.wantDetail != "" && !strings.Contains(err.Error(), tt.wantDetail) {
				t.Errorf("Expected detail to contain %q, got %q", tt.wantDetail, err.Error())
			}

			opened, closed, posted := tt.broker.counts()
			if opened != closed {
				t.Errorf("Leaked session: opened=%d closed=%d", opened, closed)
			}
			if posted != tt.wantPosted {
				t.Errorf("Expected %d submissions, got %d", tt.wantPosted, posted)
			}
		})
	}
}

func TestOrderSubmitter_Timeout(t *testing.T) {
	broker := &fakeBroker{accounts: []domain.Account{{ID: "a"}}, blockPost: true}
	s := NewOrderSubmitter(broker, NewKeyGenerator(), SubmitterConfig{Timeout: 20 * time.Millisecond})

	_, err := s.Submit(context.Background(), sberBuy(1))
	if domain.KindOf(err) != domain.KindTransportFailure {
		t.Fatalf("Expected TransportFailure, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded cause, got %v", err)
	}

	if opened, closed, _ := broker.counts(); opened != closed {
		t.Errorf("Leaked session after timeout: opened=%d closed=%d", opened, closed)
	}
}

func TestOrderSubmitter_CallerCancelDoesNotAbortOrder(t *testing.T) {
	paper := execution.NewPaperExecution(50 * time.Millisecond)
	s := NewOrderSubmitter(paper, NewKeyGenerator(), SubmitterConfig{Timeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// The webhook client hangs up while the order is in flight.
	timer := time.AfterFunc(70*time.Millisecond, cancel)
	defer timer.Stop()

	res, err := s.Submit(ctx, sberBuy(2))
	if err != nil {
		t.Fatalf("Expected order to complete after caller cancel, got %v", err)
	}
	if ctx.Err() == nil {
		t.Error("Expected caller context to be cancelled during submit")
	}
	if res.OrderID == "" || res.LotsExecuted != 2 {
		t.Errorf("Unexpected result: %+v", res)
	}
	if fills := paper.Fills(); len(fills) != 1 {
		t.Errorf("Expected 1 fill, got %d", len(fills))
	}
}

func TestFormatMessages(t *testing.T) {
	cmd := sberBuy(5)

	t.Run("success", func(t *testing.T) {
		msg := FormatSuccess(cmd, domain.OrderResult{
			OrderID:         "ord-1",
			ExecutionStatus: "EXECUTION_REPORT_STATUS_FILL",
			ExecutedPrice:   decimal.RequireFromString("270.15"),
			Currency:        "rub",
		})
		for _, want := range []string{"BOUGHT 5 lots SBER", "Order: ord-1", "Status: EXECUTION_REPORT_STATUS_FILL", "270.15 RUB"} {
			if !strings.Contains(msg, want) {
				t.Errorf("Expected %q in %q", want, msg)
			}
		}
	})

	t.Run("failure", func(t *testing.T) {
		err := domain.NewTradeError(domain.KindVenueRejected, nil, "market is closed")
		msg := FormatFailure(err, &cmd)
		if !strings.Contains(msg, "VenueRejected: market is closed") {
			t.Errorf("Unexpected failure message %q", msg)
		}
		if !strings.Contains(msg, "BUY 5 lots SBER") {
			t.Errorf("Expected command summary in %q", msg)
		}
	})
}
