package tinkoff

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"signal_bridge/internal/domain"
)

// T-Invest REST gateway endpoints
const (
	BaseURLLive    = "https://invest-public-api.tinkoff.ru/rest/"
	BaseURLSandbox = "https://sandbox-invest-public-api.tinkoff.ru/rest/"
)

// maxErrorBody caps how much of an error response we keep for messages.
const maxErrorBody = 4 << 10

// Config holds the client's connection settings.
type Config struct {
	BaseURL string
	Token   string
	AppName string
	Sandbox bool
	// Timeout bounds each HTTP round trip
	Timeout time.Duration
}

// Client is the T-Invest REST API client (Boundary Layer).
// It hands out request-scoped sessions; it holds no connection state itself.
type Client struct {
	cfg    Config
	logger *slog.Logger
}

// NewClient creates a new T-Invest API client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURLLive
		if cfg.Sandbox {
			cfg.BaseURL = BaseURLSandbox
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		cfg:    cfg,
		logger: slog.Default().With("module", "tinkoff_client"),
	}
}

// Open starts a venue session with its own connection pool.
func (c *Client) Open(ctx context.Context) (domain.BrokerSession, error) {
	return c.open(ctx)
}

func (c *Client) open(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewNetworkError("open", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 4
	transport.IdleConnTimeout = 30 * time.Second

	return &Session{
		client:    c,
		transport: transport,
		httpClient: &http.Client{
			Timeout:   c.cfg.Timeout,
			Transport: transport,
		},
	}, nil
}

// withSession runs fn on a short-lived session, closing it afterwards.
func (c *Client) withSession(ctx context.Context, fn func(*Session) error) error {
	s, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// Session is a scoped connection to the venue.
type Session struct {
	client     *Client
	transport  *http.Transport
	httpClient *http.Client
	closed     atomic.Bool
}

// Close releases the session's connections. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.transport.CloseIdleConnections()
	return nil
}

// ListAccounts returns the trading accounts visible to the token.
func (s *Session) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	service, method := usersService, "GetAccounts"
	if s.client.cfg.Sandbox {
		service, method = sandboxService, "GetSandboxAccounts"
	}

	var resp getAccountsResponse
	if err := s.call(ctx, service, method, struct{}{}, &resp); err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(resp.Accounts))
	for _, a := range resp.Accounts {
		accounts = append(accounts, domain.Account{ID: a.ID, Name: a.Name, Status: a.Status})
	}
	return accounts, nil
}

// PostMarketOrder places a market order. The idempotency key is sent as the
// API's orderId so the venue can deduplicate a repeated attempt.
func (s *Session) PostMarketOrder(ctx context.Context, req domain.MarketOrderRequest) (domain.OrderResult, error) {
	direction := directionBuy
	if req.Side == domain.SideSell {
		direction = directionSell
	}

	service, method := ordersService, "PostOrder"
	if s.client.cfg.Sandbox {
		service, method = sandboxService, "PostSandboxOrder"
	}

	body := postOrderRequest{
		InstrumentID: req.InstrumentID,
		Quantity:     strconv.FormatInt(req.Quantity, 10),
		Direction:    direction,
		AccountID:    req.AccountID,
		OrderType:    orderTypeMarket,
		OrderID:      req.IdempotencyKey,
	}

	var resp postOrderResponse
	if err := s.call(ctx, service, method, body, &resp); err != nil {
		return domain.OrderResult{}, err
	}

	lotsExecuted, _ := resp.LotsExecuted.Int64()
	result := domain.OrderResult{
		OrderID:         resp.OrderID,
		ExecutionStatus: resp.ExecutionReportStatus,
		LotsExecuted:    lotsExecuted,
		ExecutedPrice:   resp.ExecutedOrderPrice.decimal(),
		TotalAmount:     resp.TotalOrderAmount.decimal(),
	}
	if resp.ExecutedOrderPrice != nil {
		result.Currency = resp.ExecutedOrderPrice.Currency
	}

	s.client.logger.InfoContext(ctx, "Order Placed Successfully",
		slog.String("order_id", result.OrderID),
		slog.String("figi", req.InstrumentID),
		slog.String("status", result.ExecutionStatus),
	)
	return result, nil
}

// call POSTs a JSON request to service/method and decodes the response into out.
func (s *Session) call(ctx context.Context, service, method string, in, out any) error {
	if s.closed.Load() {
		return domain.NewNetworkError(method, domain.ErrSessionClosed)
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return domain.NewNetworkError(method, err)
	}

	reqURL := s.client.cfg.BaseURL + servicePrefix + service + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return domain.NewNetworkError(method, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.client.cfg.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.client.cfg.AppName != "" {
		req.Header.Set("x-app-name", s.client.cfg.AppName)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.NewNetworkError(method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(method, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewNetworkError(method, fmt.Errorf("failed to parse response: %w", err))
	}
	return nil
}

// decodeError maps a non-200 gateway response to a VenueError when the body
// carries a structured error, and to a NetworkError otherwise.
func decodeError(method string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && (apiErr.Message != "" || apiErr.Description != "") {
		return &domain.VenueError{
			HTTPStatus:  resp.StatusCode,
			Code:        apiErr.Code,
			Message:     apiErr.Message,
			Description: apiErr.Description,
		}
	}

	cause := fmt.Errorf("unexpected status=%d body=%s", resp.StatusCode, string(body))
	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return domain.NewNetworkError(method, cause)
	}
	return &domain.VenueError{HTTPStatus: resp.StatusCode, Message: string(body)}
}
