// Package apiclient is the outbound HTTP client shared by the Events,
// Reservations and Auth API clients.
package apiclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	circuit "github.com/rubyist/circuitbreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/prohmpiriya/ticket-storefront/pkg/logger"
	"github.com/prohmpiriya/ticket-storefront/pkg/telemetry"
)

const (
	RequestIDHeader      = "X-Request-ID"
	IdempotencyKeyHeader = "X-Idempotency-Key"

	maxBodyBytes = 1 << 20
)

// ErrBreakerOpen is returned without contacting the API while the breaker is tripped
var ErrBreakerOpen = circuit.ErrBreakerOpen

// Config describes one remote API
type Config struct {
	Name             string
	BaseURL          string
	Timeout          time.Duration
	BreakerThreshold int64
}

type requestIDKey struct{}

// WithRequestID attaches the inbound request id so outbound calls carry it
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request id attached by WithRequestID
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Request is a single call to the remote API
type Request struct {
	Method         string
	Path           string
	Body           interface{}
	Token          string
	RequestID      string
	IdempotencyKey string
}

// Response is a fully read API response
type Response struct {
	Status int
	Body   []byte
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Client sends JSON requests through a circuit breaker. It never retries.
type Client struct {
	name    string
	baseURL string
	http    *circuit.HTTPClient
	log     *logger.Logger
}

// New creates a client for cfg. A nil log discards breaker events.
func New(cfg Config, log *logger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.BreakerThreshold < 1 {
		cfg.BreakerThreshold = 5
	}
	if log == nil {
		log = logger.Nop()
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	hc := circuit.NewHTTPClient(cfg.Timeout, cfg.BreakerThreshold, &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	})
	hc.BreakerTripped = func() {
		log.Warn("Circuit breaker tripped", zap.String("api", cfg.Name))
	}
	hc.BreakerReset = func() {
		log.Info("Circuit breaker reset", zap.String("api", cfg.Name))
	}

	return &Client{
		name:    cfg.Name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		log:     log,
	}
}

// Do performs req. A non-nil error means no HTTP status was obtained
// (connection failure, timeout, open breaker, cancelled context).
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	ctx, span := telemetry.StartSpan(ctx, c.name+" "+req.Method+" "+req.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", req.Method),
			attribute.String("api.name", c.name),
		),
	)
	defer span.End()

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	if req.RequestID == "" {
		req.RequestID = RequestIDFromContext(ctx)
	}
	if req.RequestID != "" {
		httpReq.Header.Set(RequestIDHeader, req.RequestID)
	}
	if req.IdempotencyKey != "" {
		httpReq.Header.Set(IdempotencyKeyHeader, req.IdempotencyKey)
	}
	telemetry.InjectHeaders(ctx, httpReq.Header)

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		c.log.Ctx(ctx).Warn("API call failed",
			zap.String("api", c.name),
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Bool("timeout", IsTimeout(err)),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		telemetry.SetSpanError(ctx, err)
		return nil, fmt.Errorf("read response body: %w", err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.log.Ctx(ctx).Debug("API call completed",
		zap.String("api", c.name),
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	return &Response{Status: resp.StatusCode, Body: raw}, nil
}

// IsTimeout reports whether err is a deadline or network timeout
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, circuit.ErrBreakerTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
