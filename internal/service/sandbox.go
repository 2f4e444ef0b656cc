package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"signal_bridge/internal/domain"
)

// sandboxAccountKey is the app_configs key holding the provisioned sandbox account.
const sandboxAccountKey = "sandbox.account_id"

// KeyValueStore persists small pieces of runtime state.
type KeyValueStore interface {
	GetValue(key string) (string, bool, error)
	SaveValue(key, value string) error
}

// SandboxService provisions and funds accounts on the venue's sandbox.
type SandboxService struct {
	enabled     bool
	provisioner domain.SandboxProvisioner
	store       KeyValueStore
	balances    []domain.Money
	logger      *slog.Logger
}

// SandboxStatus is returned by Init and Reset.
type SandboxStatus struct {
	AccountID string         `json:"accountId"`
	Reused    bool           `json:"reused"`
	Balances  []domain.Money `json:"balances"`
}

// NewSandboxService creates a SandboxService. When enabled is false every call
// fails with domain.ErrSandboxDisabled.
func NewSandboxService(enabled bool, provisioner domain.SandboxProvisioner, store KeyValueStore, balances []domain.Money) *SandboxService {
	return &SandboxService{
		enabled:     enabled,
		provisioner: provisioner,
		store:       store,
		balances:    balances,
		logger:      slog.Default().With("module", "sandbox"),
	}
}

// Enabled reports whether sandbox provisioning is available.
func (s *SandboxService) Enabled() bool {
	return s.enabled
}

// Init makes sure a funded sandbox account exists. An account recorded by a
// previous Init is reused when the venue still lists it; otherwise a new one is
// opened and funded.
func (s *SandboxService) Init(ctx context.Context) (SandboxStatus, error) {
	if !s.enabled {
		return SandboxStatus{}, domain.ErrSandboxDisabled
	}

	if id, ok, err := s.store.GetValue(sandboxAccountKey); err != nil {
		return SandboxStatus{}, fmt.Errorf("load sandbox account: %w", err)
	} else if ok {
		accounts, err := s.provisioner.SandboxAccounts(ctx)
		if err != nil {
			return SandboxStatus{}, err
		}
		for _, acc := range accounts {
			if acc.ID == id {
				s.logger.InfoContext(ctx, "sandbox account already initialised", slog.String("account_id", id))
				return SandboxStatus{AccountID: id, Reused: true}, nil
			}
		}
	}

	return s.openAndFund(ctx)
}

// Reset closes every sandbox account and opens a freshly funded one.
func (s *SandboxService) Reset(ctx context.Context) (SandboxStatus, error) {
	if !s.enabled {
		return SandboxStatus{}, domain.ErrSandboxDisabled
	}

	accounts, err := s.provisioner.SandboxAccounts(ctx)
	if err != nil {
		return SandboxStatus{}, err
	}

	var errs []error
	for _, acc := range accounts {
		if err := s.provisioner.CloseSandboxAccount(ctx, acc.ID); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", acc.ID, err))
			continue
		}
		s.logger.InfoContext(ctx, "sandbox account closed", slog.String("account_id", acc.ID))
	}
	if err := errors.Join(errs...); err != nil {
		return SandboxStatus{}, err
	}

	return s.openAndFund(ctx)
}

func (s *SandboxService) openAndFund(ctx context.Context) (SandboxStatus, error) {
	id, err := s.provisioner.OpenSandboxAccount(ctx)
	if err != nil {
		return SandboxStatus{}, err
	}

	status := SandboxStatus{AccountID: id, Balances: make([]domain.Money, 0, len(s.balances))}
	for _, amount := range s.balances {
		balance, err := s.provisioner.SandboxPayIn(ctx, id, amount)
		if err != nil {
			return SandboxStatus{}, fmt.Errorf("pay in %s %s: %w", amount.Amount, amount.Currency, err)
		}
		status.Balances = append(status.Balances, balance)
	}

	if err := s.store.SaveValue(sandboxAccountKey, id); err != nil {
		return SandboxStatus{}, fmt.Errorf("save sandbox account: %w", err)
	}

	s.logger.InfoContext(ctx, "sandbox account opened and funded",
		slog.String("account_id", id), slog.Int("balances", len(status.Balances)))
	return status, nil
}
