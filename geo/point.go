package geo

import (
	"context"
	"fmt"
	"time"
)

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DefaultPoint is Tucheng district, used whenever the device location is
// unknown.
var DefaultPoint = GeoPoint{Lat: 24.9722, Lng: 121.4442}

type Source string

const (
	SourceUser    Source = "user"
	SourceDefault Source = "default"
)

type PositionOptions struct {
	EnableHighAccuracy bool
	Timeout            time.Duration
	MaximumAge         time.Duration
}

type ErrorCode int

const (
	PermissionDenied    ErrorCode = 1
	PositionUnavailable ErrorCode = 2
	Timeout             ErrorCode = 3
)

func (c ErrorCode) String() string {
	switch c {
	case PermissionDenied:
		return "permission denied"
	case PositionUnavailable:
		return "position unavailable"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("code %d", int(c))
	}
}

type PositionError struct {
	Code    ErrorCode
	Message string
}

func (e *PositionError) Error() string {
	if e.Message == "" {
		return "geolocation: " + e.Code.String()
	}
	return fmt.Sprintf("geolocation: %s: %s", e.Code, e.Message)
}

// Locator is the device geolocation capability.
type Locator interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (GeoPoint, error)
}

// StaticLocator always reports the same point.
type StaticLocator struct {
	Point GeoPoint
}

func (s StaticLocator) CurrentPosition(ctx context.Context, opts PositionOptions) (GeoPoint, error) {
	if err := ctx.Err(); err != nil {
		return GeoPoint{}, err
	}
	return s.Point, nil
}

// DeniedLocator reports a permission denial, like a browser with location
// blocked.
type DeniedLocator struct{}

func (DeniedLocator) CurrentPosition(ctx context.Context, opts PositionOptions) (GeoPoint, error) {
	return GeoPoint{}, &PositionError{Code: PermissionDenied, Message: "User denied Geolocation"}
}
