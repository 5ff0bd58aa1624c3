package oauth

import (
	"context"
	"sync"

	apperror "github.com/Yulian302/lfusys-renewal-map/errors"
)

// StaticGoogleSDK replays a credential obtained out of band, firing the
// registered callback when the button is rendered. Used by the CLI.
type StaticGoogleSDK struct {
	Credential string

	mu       sync.Mutex
	callback func(string)
}

func (s *StaticGoogleSDK) Load(ctx context.Context) error { return nil }

func (s *StaticGoogleSDK) Initialize(clientID string, callback func(credential string)) {
	s.mu.Lock()
	s.callback = callback
	s.mu.Unlock()
}

func (s *StaticGoogleSDK) RenderButton(mount string, opts ButtonOptions) error {
	s.mu.Lock()
	cb := s.callback
	s.mu.Unlock()

	if cb != nil && s.Credential != "" {
		cb(s.Credential)
	}
	return nil
}

func (s *StaticGoogleSDK) DisableAutoSelect() {
	s.mu.Lock()
	s.callback = nil
	s.mu.Unlock()
}

// StaticFacebookSDK answers Login with a fixed access token. An empty token
// behaves like the user closing the dialog.
type StaticFacebookSDK struct {
	AccessToken string
}

func (s *StaticFacebookSDK) Load(ctx context.Context) error { return nil }

func (s *StaticFacebookSDK) Init(appID, version string) error { return nil }

func (s *StaticFacebookSDK) Login(ctx context.Context, scope string) (string, error) {
	if s.AccessToken == "" {
		return "", apperror.ErrLoginCancelled
	}
	return s.AccessToken, nil
}

func (s *StaticFacebookSDK) Logout() {}
