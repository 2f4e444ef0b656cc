package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultAPIURL is the Bot API host
const DefaultAPIURL = "https://api.telegram.org"

// Recorder receives delivery outcomes (infra.Metrics satisfies it).
type Recorder interface {
	RecordNotification(ok bool)
}

// Notifier sends operator messages to a Telegram chat.
// Delivery is best effort: Notify never returns an error.
type Notifier struct {
	apiURL     string
	token      string
	chatID     string
	timeout    time.Duration
	httpClient *http.Client
	recorder   Recorder
	logger     *slog.Logger
}

// Config holds the bot credentials and delivery bound.
type Config struct {
	APIURL  string
	Token   string
	ChatID  string
	Timeout time.Duration
}

// NewNotifier creates a Notifier. With an empty token or chat id the notifier
// only logs messages.
func NewNotifier(cfg Config, recorder Recorder) *Notifier {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	return &Notifier{
		apiURL:  strings.TrimRight(cfg.APIURL, "/"),
		token:   cfg.Token,
		chatID:  cfg.ChatID,
		timeout: cfg.Timeout,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		recorder: recorder,
		logger:   slog.Default().With("module", "telegram"),
	}
}

// Enabled reports whether messages are actually delivered.
func (n *Notifier) Enabled() bool {
	return n.token != "" && n.chatID != ""
}

// Notify delivers message to the operator chat within the configured timeout.
// The caller's cancellation is ignored so a dropped webhook connection still
// produces the operator message.
func (n *Notifier) Notify(ctx context.Context, message string) {
	if !n.Enabled() {
		n.logger.InfoContext(ctx, "notification (telegram disabled)", slog.String("message", message))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	if err := n.send(ctx, message); err != nil {
		n.logger.ErrorContext(ctx, "Telegram error", slog.Any("error", err))
		n.record(false)
		return
	}
	n.record(true)
}

func (n *Notifier) record(ok bool) {
	if n.recorder != nil {
		n.recorder.RecordNotification(ok)
	}
}

type sendMessageResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (n *Notifier) send(ctx context.Context, message string) error {
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", message)

	endpoint := n.apiURL + "/bot" + n.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		// url.Error would embed the token-bearing URL
		return fmt.Errorf("sendMessage: %w", redact(err, n.token))
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	var out sendMessageResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("sendMessage: status=%d: unparseable body", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK || !out.OK {
		return fmt.Errorf("sendMessage: status=%d: %s", resp.StatusCode, out.Description)
	}
	return nil
}

func redact(err error, token string) error {
	var ue *url.Error
	if token != "" && errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", ue.Op, ue.Err)
	}
	return err
}
