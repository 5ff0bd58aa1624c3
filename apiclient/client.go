package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/Yulian302/lfusys-renewal-map/logging"
	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultRetries    = 3
	DefaultRetryDelay = time.Second
)

type Client struct {
	baseURL    string
	retries    int
	retryDelay time.Duration
	http       *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	tracer     trace.Tracer
	logger     *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithBreaker wraps every request, retries included, in cb.
func WithBreaker(cb *gobreaker.CircuitBreaker[[]byte]) Option {
	return func(c *Client) { c.breaker = cb }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRetryPolicy changes the retry defaults. Per-request Retries and
// RetryDelay still win.
func WithRetryPolicy(retries int, delay time.Duration) Option {
	return func(c *Client) {
		if retries < 0 {
			retries = 0
		}
		c.retries = retries
		c.retryDelay = delay
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		retries:    DefaultRetries,
		retryDelay: DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.http == nil {
		c.http = &http.Client{
			Timeout:   30 * time.Second,
			Transport: logging.NewTransport(http.DefaultTransport, c.logger),
		}
	}
	return c
}

type request struct {
	method     string
	header     http.Header
	body       any
	retries    int
	retryDelay time.Duration
}

type RequestOption func(*request)

func Method(m string) RequestOption {
	return func(r *request) { r.method = m }
}

func Header(key, value string) RequestOption {
	return func(r *request) { r.header.Set(key, value) }
}

// JSONBody encodes v as the request body.
func JSONBody(v any) RequestOption {
	return func(r *request) { r.body = v }
}

// Retries sets how many extra attempts follow a retryable failure.
func Retries(n int) RequestOption {
	return func(r *request) {
		if n < 0 {
			n = 0
		}
		r.retries = n
	}
}

// RetryDelay is the wait before the first retry; it doubles on each one.
func RetryDelay(d time.Duration) RequestOption {
	return func(r *request) { r.retryDelay = d }
}

// Resolve prefixes the base URL unless endpoint is already absolute.
func (c *Client) Resolve(endpoint string) string {
	if strings.HasPrefix(endpoint, "http") {
		return endpoint
	}
	return c.baseURL + endpoint
}

// Do issues the request, retrying with exponential backoff, and decodes the
// JSON response into out (which may be nil).
func (c *Client) Do(ctx context.Context, endpoint string, out any, opts ...RequestOption) error {
	r := &request{
		method:     http.MethodGet,
		header:     http.Header{},
		retries:    c.retries,
		retryDelay: c.retryDelay,
	}
	for _, opt := range opts {
		opt(r)
	}

	var payload []byte
	if r.body != nil {
		var err error
		payload, err = json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		if r.header.Get("Content-Type") == "" {
			r.header.Set("Content-Type", "application/json")
		}
	}

	url := c.Resolve(endpoint)

	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, r.method+" "+endpoint,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("http.request.method", r.method),
				attribute.String("url.full", url),
			),
		)
		defer span.End()
	}

	body, err := c.execute(ctx, r, url, payload)
	if err != nil {
		if span := trace.SpanFromContext(ctx); span.IsRecording() {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return err
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response from %s: %w", endpoint, err)
	}
	return nil
}

// Request is Do with the response type as a type parameter.
func Request[T any](ctx context.Context, c *Client, endpoint string, opts ...RequestOption) (T, error) {
	var out T
	err := c.Do(ctx, endpoint, &out, opts...)
	return out, err
}

func (c *Client) execute(ctx context.Context, r *request, url string, payload []byte) ([]byte, error) {
	if c.breaker == nil {
		return c.retry(ctx, r, url, payload)
	}
	return c.breaker.Execute(func() ([]byte, error) {
		return c.retry(ctx, r, url, payload)
	})
}

func (c *Client) retry(ctx context.Context, r *request, url string, payload []byte) ([]byte, error) {
	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		body, err := c.send(ctx, r, url, payload)
		if err != nil && !IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return body, err
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(newBackOff(r.retryDelay)),
		backoff.WithMaxTries(uint(r.retries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("request failed, retrying",
				slog.String("url", url),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", r.retries+1),
				slog.Duration("retry_in", next),
				slog.String("error", err.Error()),
			)
		}),
	)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Unwrap()
		}
		return nil, err
	}
	return body, nil
}

// newBackOff waits delay, 2*delay, 4*delay and so on, without jitter and
// without a ceiling. Only the attempt count bounds a retry loop.
func newBackOff(delay time.Duration) *backoff.ExponentialBackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     delay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         time.Duration(math.MaxInt64),
	}
}

func (c *Client) send(ctx context.Context, r *request, url string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, url, reader)
	if err != nil {
		return nil, &buildError{err: err}
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, newAPIError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}
