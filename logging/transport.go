package logging

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// Transport logs every outgoing request once it completes.
type Transport struct {
	Base   http.RoundTripper
	Logger *slog.Logger
}

func NewTransport(base http.RoundTripper, logger *slog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		Base:   base,
		Logger: logger,
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	requestID := uuid.NewString()

	baseLogger := t.Logger
	if baseLogger == nil {
		baseLogger = FromContext(req.Context())
	}
	reqLogger := baseLogger.With(
		slog.String("request_id", requestID),
		slog.String("method", req.Method),
		slog.String("url", req.URL.Redacted()),
	)

	out := req.Clone(req.Context())
	out.Header.Set(RequestIDHeader, requestID)

	resp, err := t.Base.RoundTrip(out)
	duration := time.Since(start)
	if err != nil {
		reqLogger.Log(req.Context(), slog.LevelError, "http request failed",
			slog.String("error", err.Error()),
			slog.Duration("duration", duration),
		)
		return nil, err
	}

	level := slog.LevelDebug
	if resp.StatusCode >= 500 {
		level = slog.LevelError
	} else if resp.StatusCode >= 400 {
		level = slog.LevelWarn
	}

	reqLogger.Log(
		req.Context(),
		level,
		"http request completed",
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", duration),
	)
	return resp, nil
}
