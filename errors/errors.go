package errors

import "errors"

var (
	ErrMalformedToken   = errors.New("malformed identity token")
	ErrSDKUnavailable   = errors.New("identity sdk unavailable")
	ErrLoginCancelled   = errors.New("login cancelled by user")
	ErrNotAuthenticated = errors.New("google identity required")
	ErrAlreadyBound     = errors.New("second identity already bound")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrProfileCorrupted = errors.New("persisted profile unreadable")
	ErrGraphRequest     = errors.New("facebook graph request failed")
	ErrInvalidConfig    = errors.New("invalid config")
	ErrLocatorMissing   = errors.New("geolocation not supported")
)
