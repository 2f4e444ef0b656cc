package tinkoff

import (
	"context"

	"signal_bridge/internal/domain"
)

// OpenSandboxAccount registers a new sandbox account.
func (c *Client) OpenSandboxAccount(ctx context.Context) (string, error) {
	var resp openSandboxAccountResponse
	err := c.withSession(ctx, func(s *Session) error {
		return s.call(ctx, sandboxService, "OpenSandboxAccount", struct{}{}, &resp)
	})
	if err != nil {
		return "", err
	}
	return resp.AccountID, nil
}

// CloseSandboxAccount closes a sandbox account.
func (c *Client) CloseSandboxAccount(ctx context.Context, accountID string) error {
	return c.withSession(ctx, func(s *Session) error {
		var resp struct{}
		return s.call(ctx, sandboxService, "CloseSandboxAccount", accountRequest{AccountID: accountID}, &resp)
	})
}

// SandboxAccounts lists the sandbox accounts of the token.
func (c *Client) SandboxAccounts(ctx context.Context) ([]domain.Account, error) {
	var resp getAccountsResponse
	err := c.withSession(ctx, func(s *Session) error {
		return s.call(ctx, sandboxService, "GetSandboxAccounts", struct{}{}, &resp)
	})
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(resp.Accounts))
	for _, a := range resp.Accounts {
		accounts = append(accounts, domain.Account{ID: a.ID, Name: a.Name, Status: a.Status})
	}
	return accounts, nil
}

// SandboxPayIn credits test money to a sandbox account and returns the new balance.
func (c *Client) SandboxPayIn(ctx context.Context, accountID string, amount domain.Money) (domain.Money, error) {
	var resp sandboxPayInResponse
	err := c.withSession(ctx, func(s *Session) error {
		req := sandboxPayInRequest{
			AccountID: accountID,
			Amount:    newMoneyValue(amount.Currency, amount.Amount),
		}
		return s.call(ctx, sandboxService, "SandboxPayIn", req, &resp)
	})
	if err != nil {
		return domain.Money{}, err
	}
	return resp.Balance.money(), nil
}
