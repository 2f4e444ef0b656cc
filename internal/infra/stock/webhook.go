package stock

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"signal_bridge/internal/domain"
	"signal_bridge/internal/service"

	"github.com/google/uuid"
)

const (
	// DefaultMaxBodyBytes caps a webhook body when no limit is configured
	DefaultMaxBodyBytes = 64 << 10

	requestIDHeader = "X-Request-Id"
)

// SignalValidator turns a raw payload into a validated command.
type SignalValidator interface {
	Validate(raw []byte) (domain.TradeCommand, error)
}

// OrderSubmitter places one market order for a validated command.
type OrderSubmitter interface {
	Submit(ctx context.Context, cmd domain.TradeCommand) (domain.OrderResult, error)
}

// Recorder receives pipeline counters (infra.Metrics satisfies it).
type Recorder interface {
	RecordSignal()
	RecordValidationError()
	RecordOrderSubmitted(latency time.Duration)
	RecordOrderRejected(latency time.Duration)
	RecordTransportFailure(latency time.Duration)
}

// WebhookHandler runs one signal through validate -> submit -> notify -> respond.
// It keeps no per-request state, so concurrent requests need no locking.
type WebhookHandler struct {
	validator    SignalValidator
	submitter    OrderSubmitter
	notifier     domain.Notifier
	recorder     Recorder
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewWebhookHandler creates a handler. recorder may be nil.
func NewWebhookHandler(validator SignalValidator, submitter OrderSubmitter, notifier domain.Notifier, recorder Recorder, maxBodyBytes int64) *WebhookHandler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &WebhookHandler{
		validator:    validator,
		submitter:    submitter,
		notifier:     notifier,
		recorder:     recorder,
		maxBodyBytes: maxBodyBytes,
		logger:       slog.Default().With("module", "webhook"),
	}
}

// OrderResponse is the 200 body of a successful webhook
type OrderResponse struct {
	Status          string `json:"status"`
	OrderID         string `json:"orderId"`
	FIGI            string `json:"figi"`
	Ticker          string `json:"ticker"`
	Action          string `json:"action"`
	Lots            int64  `json:"lots"`
	ExecutionStatus string `json:"executionStatus,omitempty"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// HandleWebhook implements POST /webhook.
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	requestID := r.Header.Get(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, requestID)

	ctx := r.Context()
	log := h.logger.With(slog.String("request_id", requestID))
	if h.recorder != nil {
		h.recorder.RecordSignal()
	}

	// Received -> Parsed
	raw, err := h.readBody(w, r)
	if err != nil {
		h.fail(ctx, w, log, err, nil)
		return
	}

	// Parsed -> Validated
	cmd, err := h.validator.Validate(raw)
	if err != nil {
		h.fail(ctx, w, log, err, nil)
		return
	}
	log.InfoContext(ctx, "📩 signal accepted",
		slog.String("ticker", cmd.Instrument.Symbol),
		slog.String("side", cmd.Side.String()),
		slog.Int64("lots", cmd.Quantity),
	)

	// Validated -> Submitted
	start := time.Now()
	result, err := h.submitter.Submit(ctx, cmd)
	latency := time.Since(start)
	if err != nil {
		h.recordExecutionFailure(err, latency)
		h.fail(ctx, w, log, err, &cmd)
		return
	}
	if h.recorder != nil {
		h.recorder.RecordOrderSubmitted(latency)
	}

	// Submitted -> Succeeded
	log.InfoContext(ctx, "✅ order placed",
		slog.String("order_id", result.OrderID),
		slog.String("execution_status", result.ExecutionStatus),
		slog.Duration("latency", latency),
	)
	h.notifier.Notify(ctx, service.FormatSuccess(cmd, result))

	respondJSON(w, http.StatusOK, OrderResponse{
		Status:          "ok",
		OrderID:         result.OrderID,
		FIGI:            cmd.Instrument.VenueID,
		Ticker:          cmd.Instrument.Symbol,
		Action:          cmd.Side.Action(),
		Lots:            cmd.Quantity,
		ExecutionStatus: result.ExecutionStatus,
	})
}

func (h *WebhookHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, domain.NewTradeError(domain.KindMalformedPayload, err,
				"request body exceeds %d bytes", tooLarge.Limit)
		}
		return nil, domain.NewTradeError(domain.KindMalformedPayload, err, "failed to read request body: %v", err)
	}
	return raw, nil
}

// fail notifies the operator and then writes the error response.
func (h *WebhookHandler) fail(ctx context.Context, w http.ResponseWriter, log *slog.Logger, err error, cmd *domain.TradeCommand) {
	kind := domain.KindOf(err)
	status := statusFor(kind)

	if kind.IsClientError() {
		if h.recorder != nil {
			h.recorder.RecordValidationError()
		}
		log.WarnContext(ctx, "⚠️ signal rejected", slog.String("kind", kind.String()), slog.Any("error", err))
	} else {
		log.ErrorContext(ctx, "❌ order failed", slog.String("kind", kind.String()), slog.Any("error", err))
	}

	h.notifier.Notify(ctx, service.FormatFailure(err, cmd))

	detail := err.Error()
	var te *domain.TradeError
	if errors.As(err, &te) {
		detail = te.Detail
	}
	respondJSON(w, status, ErrorResponse{
		Status: "error",
		Error:  kind.String(),
		Detail: detail,
	})
}

func (h *WebhookHandler) recordExecutionFailure(err error, latency time.Duration) {
	if h.recorder == nil {
		return
	}
	switch domain.KindOf(err) {
	case domain.KindVenueRejected, domain.KindNoAccount:
		h.recorder.RecordOrderRejected(latency)
	default:
		h.recorder.RecordTransportFailure(latency)
	}
}

func statusFor(kind domain.ErrorKind) int {
	if kind.IsClientError() {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
