package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Yulian302/lfusys-renewal-map/auth/oauth"
	"github.com/Yulian302/lfusys-renewal-map/auth/types"
	apperror "github.com/Yulian302/lfusys-renewal-map/errors"
	"github.com/Yulian302/lfusys-renewal-map/logging"
	"github.com/Yulian302/lfusys-renewal-map/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockGoogle struct {
	mock.Mock

	mu       sync.Mutex
	callback oauth.CredentialFunc
}

func (m *mockGoogle) Initialize(ctx context.Context, mount string, onCredential oauth.CredentialFunc) error {
	m.mu.Lock()
	m.callback = onCredential
	m.mu.Unlock()
	return m.Called(mount).Error(0)
}

func (m *mockGoogle) Reset() { m.Called() }

func (m *mockGoogle) fire(credential string) error {
	m.mu.Lock()
	cb := m.callback
	m.mu.Unlock()
	return cb(credential)
}

type mockFacebook struct{ mock.Mock }

func (m *mockFacebook) Login(ctx context.Context) (oauth.OAuthUser, error) {
	args := m.Called()
	return args.Get(0).(oauth.OAuthUser), args.Error(1)
}

func (m *mockFacebook) Reset() { m.Called() }

// failingStore fails every write.
type failingStore struct{ store.ProfileStore }

func (failingStore) Save(ctx context.Context, p types.UserProfile) error {
	return errors.New("disk full")
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

var epoch = time.Unix(1_700_000_000, 0)

func credential(t *testing.T, claims map[string]any) string {
	t.Helper()
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"RS256","typ":"JWT"}`)) + "." + enc.EncodeToString(payload) + ".sig"
}

type fixture struct {
	manager  *Manager
	store    *store.MemoryProfileStore
	google   *mockGoogle
	facebook *mockFacebook
	clock    *clock
	reloads  *atomic.Int32
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		store:    store.NewMemoryProfileStore(),
		google:   &mockGoogle{},
		facebook: &mockFacebook{},
		clock:    &clock{now: epoch},
		reloads:  &atomic.Int32{},
	}
	opts = append([]Option{
		WithClock(f.clock.Now),
		WithLogger(logging.Discard()),
		WithReloader(func(context.Context) { f.reloads.Add(1) }),
	}, opts...)
	f.manager = New(f.store, f.google, f.facebook, opts...)
	return f
}

func (f *fixture) googleLogin(t *testing.T, exp int64) {
	t.Helper()
	f.google.On("Initialize", "googleBtn").Return(nil).Once()
	require.NoError(t, f.manager.MountGoogle(context.Background(), "googleBtn"))
	require.NoError(t, f.google.fire(credential(t, map[string]any{
		"sub":     "1001",
		"name":    "陳大文",
		"picture": "https://lh3.example/a.png",
		"email":   "tai@example.com",
		"exp":     exp,
	})))
}

func TestInit_EmptyStore(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Init(context.Background()))

	assert.True(t, f.manager.Profile().IsEmpty())
	assert.Equal(t, AwaitingGoogle, f.manager.State())
}

func TestInit_RestoresValidProfile(t *testing.T) {
	f := newFixture(t)
	exp := epoch.Add(time.Hour).Unix()
	saved := types.UserProfile{
		Google:    &types.ProviderProfile{Name: "A"},
		IsFBGuest: true,
		Facebook:  &types.ProviderProfile{Name: types.GuestName},
		Exp:       &exp,
	}
	require.NoError(t, f.store.Save(context.Background(), saved))

	require.NoError(t, f.manager.Init(context.Background()))
	assert.Equal(t, saved, f.manager.Profile())
	assert.Equal(t, Ready, f.manager.State())
}

func TestInit_DiscardsExpiredProfile(t *testing.T) {
	f := newFixture(t)
	updates := f.manager.Subscribe()
	exp := epoch.Add(-time.Second).Unix()
	require.NoError(t, f.store.Save(context.Background(), types.UserProfile{
		Google:   &types.ProviderProfile{Name: "stale"},
		Facebook: &types.ProviderProfile{Name: "stale"},
		Exp:      &exp,
	}))

	require.NoError(t, f.manager.Init(context.Background()))

	assert.True(t, f.manager.Profile().IsEmpty())
	assert.Equal(t, AwaitingGoogle, f.manager.State())
	_, err := f.store.Load(context.Background())
	assert.ErrorIs(t, err, apperror.ErrProfileNotFound)

	select {
	case p := <-updates:
		assert.True(t, p.IsEmpty(), "no stale profile is ever published")
	default:
		t.Fatal("expected the initial profile to be published")
	}
}

func TestInit_ExpiryBoundaryIsExpired(t *testing.T) {
	f := newFixture(t)
	exp := epoch.Unix()
	require.NoError(t, f.store.Save(context.Background(), types.UserProfile{Google: &types.ProviderProfile{Name: "A"}, Exp: &exp}))

	require.NoError(t, f.manager.Init(context.Background()))
	assert.True(t, f.manager.Profile().IsEmpty())
}

func TestInit_CorruptedProfileIsEmpty(t *testing.T) {
	f := newFixture(t)
	f.store.SetRaw([]byte("{oops"))

	require.NoError(t, f.manager.Init(context.Background()))
	assert.True(t, f.manager.Profile().IsEmpty())
}

func TestGoogleCredential_MovesToAwaitingFacebook(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Init(context.Background()))

	exp := epoch.Add(time.Hour).Unix()
	f.googleLogin(t, exp)

	p := f.manager.Profile()
	require.NotNil(t, p.Google)
	assert.Equal(t, "陳大文", p.Google.Name)
	assert.Equal(t, "https://lh3.example/a.png", p.Google.Picture)
	assert.Equal(t, "tai@example.com", p.Google.Email)
	require.NotNil(t, p.Exp)
	assert.Equal(t, exp, *p.Exp)
	assert.Equal(t, AwaitingFacebook, f.manager.State())

	saved, err := f.store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, p, *saved)
	f.google.AssertExpectations(t)
}

func TestGoogleCredential_MalformedLeavesProfileUntouched(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Init(context.Background()))
	f.google.On("Initialize", "googleBtn").Return(nil)
	require.NoError(t, f.manager.MountGoogle(context.Background(), "googleBtn"))

	err := f.google.fire("header.!!!.sig")
	assert.ErrorIs(t, err, apperror.ErrMalformedToken)
	assert.True(t, f.manager.Profile().IsEmpty())
}

func TestMountGoogle_SDKUnavailable(t *testing.T) {
	f := newFixture(t)
	sdkErr := fmt.Errorf("%w: google: script blocked", apperror.ErrSDKUnavailable)
	f.google.On("Initialize", "googleBtn").Return(sdkErr)

	err := f.manager.MountGoogle(context.Background(), "googleBtn")
	assert.ErrorIs(t, err, apperror.ErrSDKUnavailable)
	assert.Equal(t, AwaitingGoogle, f.manager.State())
}

func TestLoginFacebook_MergesEarliestExpiry(t *testing.T) {
	tests := []struct {
		name      string
		googleExp int64
		avatar    string
		wantExp   int64
	}{
		{"facebook earlier", epoch.Add(2 * time.Hour).Unix(), fmt.Sprintf("https://fb.example/p.jpg?ext=%d&hash=x", epoch.Add(time.Hour).Unix()), epoch.Add(time.Hour).Unix()},
		{"google earlier", epoch.Add(time.Hour).Unix(), fmt.Sprintf("https://fb.example/p.jpg?ext=%d", epoch.Add(3*time.Hour).Unix()), epoch.Add(time.Hour).Unix()},
		{"no hint", epoch.Add(time.Hour).Unix(), "https://fb.example/p.jpg", epoch.Add(time.Hour).Unix()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.manager.Init(context.Background()))
			f.googleLogin(t, tt.googleExp)

			f.facebook.On("Login").Return(oauth.OAuthUser{
				Name:       "Tai Man",
				Provider:   "facebook",
				ProviderID: "fb-7",
				AvatarURL:  tt.avatar,
			}, nil).Once()

			require.NoError(t, f.manager.LoginFacebook(context.Background()))

			p := f.manager.Profile()
			require.NotNil(t, p.Facebook)
			assert.Equal(t, "Tai Man", p.Facebook.Name)
			assert.Equal(t, tt.avatar, p.Facebook.Picture)
			assert.Equal(t, "fb-7", p.Facebook.ID)
			assert.False(t, p.IsFBGuest)
			require.NotNil(t, p.Exp)
			assert.Equal(t, tt.wantExp, *p.Exp)
			assert.Equal(t, Ready, f.manager.State())

			saved, err := f.store.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, p, *saved)
		})
	}
}

func TestLoginFacebook_CancelIsNoop(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Init(context.Background()))
	f.googleLogin(t, epoch.Add(time.Hour).Unix())
	before := f.manager.Profile()

	f.facebook.On("Login").Return(oauth.OAuthUser{}, apperror.ErrLoginCancelled)

	assert.NoError(t, f.manager.LoginFacebook(context.Background()))
	assert.Equal(t, before, f.manager.Profile())
	assert.Equal(t, AwaitingFacebook, f.manager.State())
}

func TestLoginFacebook_BlockedSDK(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Init(context.Background()))
	f.googleLogin(t, epoch.Add(time.Hour).Unix())

	blocked := fmt.Errorf("%w: %s: %w", apperror.ErrSDKUnavailable, oauth.BlockedSDKMessage, errors.New("script error"))
	f.facebook.On("Login").Return(oauth.OAuthUser{}, blocked)

	err := f.manager.LoginFacebook(context.Background())
	require.ErrorIs(t, err, apperror.ErrSDKUnavailable)
	assert.Contains(t, err.Error(), oauth.BlockedSDKMessage)
	assert.Equal(t, AwaitingFacebook, f.manager.State())
}

func TestLoginFacebook_RequiresGoogle(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Init(context.Background()))

	assert.ErrorIs(t, f.manager.LoginFacebook(context.Background()), apperror.ErrNotAuthenticated)
	assert.ErrorIs(t, f.manager.LoginGuest(context.Background()), apperror.ErrNotAuthenticated)
	f.facebook.AssertNotCalled(t, "Login")
}

func TestLoginGuest_NoNetwork(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Init(context.Background()))
	f.googleLogin(t, epoch.Add(time.Hour).Unix())

	require.NoError(t, f.manager.LoginGuest(context.Background()))

	p := f.manager.Profile()
	assert.True(t, p.IsFBGuest)
	require.NotNil(t, p.Facebook)
	assert.Equal(t, types.GuestName, p.Facebook.Name)
	assert.Empty(t, p.Facebook.Picture)
	assert.Equal(t, Ready, f.manager.State())
	f.facebook.AssertNotCalled(t, "Login")

	assert.ErrorIs(t, f.manager.LoginGuest(context.Background()), apperror.ErrAlreadyBound)
}

func TestUpdate_PersistFailureStillApplies(t *testing.T) {
	f := newFixture(t)
	f.manager.store = failingStore{ProfileStore: f.store}
	require.NoError(t, f.manager.Init(context.Background()))

	f.googleLogin(t, epoch.Add(time.Hour).Unix())
	assert.Equal(t, AwaitingFacebook, f.manager.State())
}

func TestLogout_ClearsEverything(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Init(context.Background()))
	f.googleLogin(t, epoch.Add(time.Hour).Unix())
	require.NoError(t, f.manager.LoginGuest(context.Background()))

	f.google.On("Reset").Return().Once()
	f.facebook.On("Reset").Return().Once()

	require.NoError(t, f.manager.Logout(context.Background()))

	assert.True(t, f.manager.Profile().IsEmpty())
	assert.Equal(t, LoggedOut, f.manager.State())
	_, err := f.store.Load(context.Background())
	assert.ErrorIs(t, err, apperror.ErrProfileNotFound)
	assert.Equal(t, int32(1), f.reloads.Load())
	f.google.AssertExpectations(t)
	f.facebook.AssertExpectations(t)
}

func TestCheckExpiry(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Init(context.Background()))
	f.googleLogin(t, epoch.Add(time.Minute).Unix())
	require.NoError(t, f.manager.LoginGuest(context.Background()))
	f.google.On("Reset").Return()
	f.facebook.On("Reset").Return()

	assert.False(t, f.manager.CheckExpiry(context.Background()))
	assert.Equal(t, Ready, f.manager.State())

	f.clock.Set(epoch.Add(time.Minute))
	assert.True(t, f.manager.CheckExpiry(context.Background()))
	assert.Equal(t, LoggedOut, f.manager.State())
	assert.Equal(t, int32(1), f.reloads.Load())
}

func TestRun_LogsOutOnTick(t *testing.T) {
	f := newFixture(t, WithCheckInterval(5*time.Millisecond))
	require.NoError(t, f.manager.Init(context.Background()))
	f.googleLogin(t, epoch.Add(time.Minute).Unix())
	f.google.On("Reset").Return()
	f.facebook.On("Reset").Return()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.manager.Run(ctx) }()

	f.clock.Set(epoch.Add(2 * time.Minute))
	assert.Eventually(t, func() bool {
		return f.manager.State() == LoggedOut
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRun_ChecksImmediatelyOnExpChange(t *testing.T) {
	f := newFixture(t, WithCheckInterval(time.Hour))
	require.NoError(t, f.manager.Init(context.Background()))
	f.google.On("Reset").Return()
	f.facebook.On("Reset").Return()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = f.manager.Run(ctx) }()

	// Already expired token: no tick will come for an hour.
	f.googleLogin(t, epoch.Add(-time.Second).Unix())

	assert.Eventually(t, func() bool {
		return f.manager.State() == LoggedOut
	}, time.Second, 5*time.Millisecond)
}

func TestSubscribe_LatestWins(t *testing.T) {
	f := newFixture(t)
	updates := f.manager.Subscribe()
	require.NoError(t, f.manager.Init(context.Background()))
	f.googleLogin(t, epoch.Add(time.Hour).Unix())
	require.NoError(t, f.manager.LoginGuest(context.Background()))

	p := <-updates
	assert.True(t, p.IsFBGuest)
	select {
	case <-updates:
		t.Fatal("only the latest profile should be buffered")
	default:
	}
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "awaiting_google", AwaitingGoogle.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "state(9)", State(9).String())
}
