package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	apperror "github.com/Yulian302/lfusys-renewal-map/errors"
)

// DeniedMessage tells the user how to lift a location permission block.
const DeniedMessage = "Location access is blocked. Allow location for this site in your browser's site settings, then try again."

var (
	HighAccuracy = PositionOptions{EnableHighAccuracy: true, Timeout: 5 * time.Second}
	LowAccuracy  = PositionOptions{EnableHighAccuracy: false, Timeout: 10 * time.Second, MaximumAge: 0}
)

// Status is what the rest of the app sees of the device location. Point is
// always usable: it falls back to DefaultPoint.
type Status struct {
	Point       GeoPoint
	Source      Source
	HasLocation bool
	Denied      bool
}

type Acquirer struct {
	locator Locator
	logger  *slog.Logger

	mu     sync.Mutex
	point  *GeoPoint
	denied bool
	subs   []chan Status
}

func NewAcquirer(locator Locator, logger *slog.Logger) *Acquirer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Acquirer{
		locator: locator,
		logger:  logger.With(slog.String("component", "geolocation")),
	}
}

// Acquire asks for a high accuracy fix and, on a timeout or unavailable
// position, retries once with low accuracy. A permission denial is recorded
// and never retried here.
func (a *Acquirer) Acquire(ctx context.Context) error {
	if a.locator == nil {
		a.logger.Info("geolocation not available, using default location")
		return apperror.ErrLocatorMissing
	}

	p, err := a.locate(ctx, HighAccuracy)
	if err == nil {
		a.record(p)
		return nil
	}

	code := classify(err)
	if code == PermissionDenied {
		a.logger.Warn("location permission denied", slog.String("error", err.Error()))
		a.markDenied()
		return err
	}
	if ctx.Err() != nil {
		return err
	}

	a.logger.Info("high accuracy location failed, retrying with low accuracy",
		slog.String("reason", code.String()),
	)

	p, err = a.locate(ctx, LowAccuracy)
	if err == nil {
		a.record(p)
		return nil
	}
	if classify(err) == PermissionDenied {
		a.markDenied()
	}
	a.logger.Info("low accuracy location failed, keeping default location", slog.String("error", err.Error()))
	return err
}

// Request is the user-triggered re-acquisition. With a denial on record it
// returns DeniedMessage and still makes a best-effort attempt, since the
// permission may have been granted since.
func (a *Acquirer) Request(ctx context.Context) (string, error) {
	st := a.Status()
	switch {
	case st.Denied:
		return DeniedMessage, a.Acquire(ctx)
	case !st.HasLocation:
		return "", a.Acquire(ctx)
	default:
		return "", nil
	}
}

func (a *Acquirer) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.statusLocked()
}

func (a *Acquirer) statusLocked() Status {
	if a.point == nil {
		return Status{Point: DefaultPoint, Source: SourceDefault, Denied: a.denied}
	}
	return Status{Point: *a.point, Source: SourceUser, HasLocation: true, Denied: a.denied}
}

// Subscribe returns a channel that always holds the latest status change.
func (a *Acquirer) Subscribe() <-chan Status {
	ch := make(chan Status, 1)
	a.mu.Lock()
	a.subs = append(a.subs, ch)
	a.mu.Unlock()
	return ch
}

func (a *Acquirer) locate(ctx context.Context, opts PositionOptions) (GeoPoint, error) {
	callCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	p, err := a.locator.CurrentPosition(callCtx, opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return GeoPoint{}, &PositionError{Code: Timeout, Message: fmt.Sprintf("no fix within %s", opts.Timeout)}
		}
		return GeoPoint{}, err
	}
	return p, nil
}

func (a *Acquirer) record(p GeoPoint) {
	a.mu.Lock()
	defer a.mu.Unlock()

	changed := a.point == nil || *a.point != p || a.denied
	a.point = &p
	a.denied = false
	if changed {
		a.notifyLocked()
	}
}

func (a *Acquirer) markDenied() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.denied {
		return
	}
	a.denied = true
	a.notifyLocked()
}

func (a *Acquirer) notifyLocked() {
	st := a.statusLocked()
	for _, ch := range a.subs {
		select {
		case <-ch:
		default:
		}
		ch <- st
	}
}

func classify(err error) ErrorCode {
	var posErr *PositionError
	if errors.As(err, &posErr) {
		return posErr.Code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}
	return PositionUnavailable
}
