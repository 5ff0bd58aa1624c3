package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Yulian302/lfusys-renewal-map/auth"
	"github.com/Yulian302/lfusys-renewal-map/auth/oauth"
	"github.com/Yulian302/lfusys-renewal-map/auth/types"
	apperror "github.com/Yulian302/lfusys-renewal-map/errors"
	"github.com/Yulian302/lfusys-renewal-map/logging"
	"github.com/Yulian302/lfusys-renewal-map/store"
)

const DefaultCheckInterval = 60 * time.Second

type State int

const (
	AwaitingGoogle State = iota
	AwaitingFacebook
	Ready
	LoggedOut
)

func (s State) String() string {
	switch s {
	case AwaitingGoogle:
		return "awaiting_google"
	case AwaitingFacebook:
		return "awaiting_facebook"
	case Ready:
		return "ready"
	case LoggedOut:
		return "logged_out"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Reloader discards whatever the hosting environment still caches after a
// logout. The default does nothing.
type Reloader func(ctx context.Context)

type Manager struct {
	store    store.ProfileStore
	google   oauth.CredentialProvider
	facebook oauth.LoginProvider

	now      func() time.Time
	interval time.Duration
	reload   Reloader
	logger   *slog.Logger

	mu        sync.Mutex
	profile   types.UserProfile
	loggedOut bool
	subs      []chan types.UserProfile

	expChanged chan struct{}
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithCheckInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

func WithReloader(r Reloader) Option {
	return func(m *Manager) { m.reload = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

func New(s store.ProfileStore, google oauth.CredentialProvider, facebook oauth.LoginProvider, opts ...Option) *Manager {
	m := &Manager{
		store:      s,
		google:     google,
		facebook:   facebook,
		now:        time.Now,
		interval:   DefaultCheckInterval,
		reload:     func(context.Context) {},
		logger:     slog.Default(),
		expChanged: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(slog.String("component", "session"))
	return m
}

// Init restores the persisted profile. An expired one is deleted before
// anyone can observe it, and unreadable data counts as no profile.
func (m *Manager) Init(ctx context.Context) error {
	profile := types.UserProfile{}

	saved, err := m.store.Load(ctx)
	switch {
	case err == nil:
		profile = *saved
	case errors.Is(err, apperror.ErrProfileNotFound):
	default:
		m.logger.Error("read persisted profile failed", slog.String("error", err.Error()))
	}

	if profile.Expired(m.now()) {
		m.logger.Info("persisted profile expired, discarding", slog.Int64("exp", *profile.Exp))
		if err := m.store.Delete(ctx); err != nil {
			m.logger.Error("delete expired profile failed", slog.String("error", err.Error()))
		}
		profile = types.UserProfile{}
	}

	m.mu.Lock()
	m.profile = profile
	m.loggedOut = false
	m.notifyLocked()
	m.mu.Unlock()

	m.signalExp()
	return nil
}

func (m *Manager) Profile() types.UserProfile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile.Clone()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	switch {
	case m.profile.Google == nil && m.loggedOut:
		return LoggedOut
	case m.profile.Google == nil:
		return AwaitingGoogle
	case !m.profile.Bound():
		return AwaitingFacebook
	default:
		return Ready
	}
}

// Subscribe returns a channel that always holds the latest profile.
func (m *Manager) Subscribe() <-chan types.UserProfile {
	ch := make(chan types.UserProfile, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// MountGoogle loads the Google SDK if needed and renders its button into
// mount. Credentials arrive later through HandleCredential.
func (m *Manager) MountGoogle(ctx context.Context, mount string) error {
	ctx = logging.WithLogger(ctx, m.logger)
	cbCtx := context.WithoutCancel(ctx)
	return m.google.Initialize(ctx, mount, func(credential string) error {
		return m.HandleCredential(cbCtx, credential)
	})
}

// HandleCredential applies a Google credential. A malformed token is
// returned as is and leaves the profile untouched.
func (m *Manager) HandleCredential(ctx context.Context, credential string) error {
	var claims types.GoogleUser
	if err := auth.DecodeInto(credential, &claims); err != nil {
		return err
	}

	m.update(ctx, func(p *types.UserProfile) {
		p.Google = &types.ProviderProfile{
			Name:    claims.Name,
			Picture: claims.Picture,
			Email:   claims.Email,
		}
		if claims.Exp > 0 {
			p.MergeExp(claims.Exp)
		}
	})
	m.logger.Info("google identity bound", slog.String("email", claims.Email))
	return nil
}

// LoginFacebook runs the Facebook login flow. A cancelled dialog is not an
// error. A blocked SDK comes back as ErrSDKUnavailable carrying the message
// to show the user.
func (m *Manager) LoginFacebook(ctx context.Context) error {
	if err := m.requireUnbound(); err != nil {
		return err
	}

	user, err := m.facebook.Login(ctx)
	if err != nil {
		if errors.Is(err, apperror.ErrLoginCancelled) {
			m.logger.Info("facebook login cancelled")
			return nil
		}
		m.logger.Warn("facebook login failed", slog.String("error", err.Error()))
		return err
	}

	exp, hasExp := auth.ExpiryFromURL(user.AvatarURL)
	m.update(ctx, func(p *types.UserProfile) {
		p.Facebook = &types.ProviderProfile{
			Name:    user.Name,
			Picture: user.AvatarURL,
			ID:      user.ProviderID,
		}
		p.IsFBGuest = false
		if hasExp {
			p.MergeExp(exp)
		}
	})
	m.logger.Info("facebook identity bound", slog.String("id", user.ProviderID))
	return nil
}

// LoginGuest satisfies the second identity without any network call.
func (m *Manager) LoginGuest(ctx context.Context) error {
	if err := m.requireUnbound(); err != nil {
		return err
	}

	m.update(ctx, func(p *types.UserProfile) {
		p.Facebook = &types.ProviderProfile{Name: types.GuestName, Picture: ""}
		p.IsFBGuest = true
	})
	m.logger.Info("continuing as guest")
	return nil
}

func (m *Manager) requireUnbound() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile.Google == nil {
		return apperror.ErrNotAuthenticated
	}
	if m.profile.Bound() {
		return apperror.ErrAlreadyBound
	}
	return nil
}

// Logout clears the profile, tears both providers down and hands over to the
// Reloader. The returned error is the store's; the in-memory logout always
// happens.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.profile = types.UserProfile{}
	m.loggedOut = true
	err := m.store.Delete(ctx)
	m.notifyLocked()
	m.mu.Unlock()

	if err != nil {
		m.logger.Error("delete persisted profile failed", slog.String("error", err.Error()))
		err = fmt.Errorf("delete profile: %w", err)
	}

	m.google.Reset()
	m.facebook.Reset()
	m.reload(ctx)

	m.logger.Info("logged out")
	return err
}

// Run is the expiry watchdog. It checks on every tick and right after any
// change to exp, until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.checkExpiry(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.checkExpiry(ctx)
		case <-m.expChanged:
			m.checkExpiry(ctx)
		}
	}
}

// CheckExpiry logs out if the session has expired and reports whether it
// did.
func (m *Manager) CheckExpiry(ctx context.Context) bool {
	return m.checkExpiry(ctx)
}

func (m *Manager) checkExpiry(ctx context.Context) bool {
	m.mu.Lock()
	expired := m.profile.Expired(m.now())
	m.mu.Unlock()

	if !expired {
		return false
	}
	m.logger.Info("session expired, logging out")
	_ = m.Logout(ctx)
	return true
}

// update applies fn to a copy of the profile and persists it before
// publishing. A failed write is logged and the new state still applies.
func (m *Manager) update(ctx context.Context, fn func(*types.UserProfile)) {
	m.mu.Lock()
	next := m.profile.Clone()
	fn(&next)

	expChanged := !sameExp(m.profile.Exp, next.Exp)
	if err := m.store.Save(ctx, next); err != nil {
		m.logger.Error("persist profile failed", slog.String("error", err.Error()))
	}
	m.profile = next
	m.loggedOut = false
	m.notifyLocked()
	m.mu.Unlock()

	if expChanged {
		m.signalExp()
	}
}

func (m *Manager) signalExp() {
	select {
	case m.expChanged <- struct{}{}:
	default:
	}
}

func (m *Manager) notifyLocked() {
	snapshot := m.profile.Clone()
	for _, ch := range m.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snapshot
	}
}

func sameExp(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
