package oauth

import "context"

type OAuthUser struct {
	Name       string
	Email      string
	Provider   string
	ProviderID string
	AvatarURL  string
}

// CredentialFunc receives the raw credential the Google SDK hands to its
// callback. It fires asynchronously, once per sign-in.
type CredentialFunc func(credential string) error

// CredentialProvider is an identity that pushes a signed credential through
// a callback after rendering its own sign-in button.
type CredentialProvider interface {
	Initialize(ctx context.Context, mount string, onCredential CredentialFunc) error
	Reset()
}

// LoginProvider is an identity with an explicit login flow.
type LoginProvider interface {
	Login(ctx context.Context) (OAuthUser, error)
	Reset()
}

// Script is a dynamically injected SDK.
type Script interface {
	Load(ctx context.Context) error
}

// GoogleSDK is the Google Identity Services surface the adapter needs.
type GoogleSDK interface {
	Script
	Initialize(clientID string, callback func(credential string))
	RenderButton(mount string, opts ButtonOptions) error
	DisableAutoSelect()
}

// FacebookSDK is the Facebook JS SDK surface the adapter needs. Login
// returns ErrLoginCancelled when the user closes or declines the dialog.
type FacebookSDK interface {
	Script
	Init(appID, version string) error
	Login(ctx context.Context, scope string) (accessToken string, err error)
	Logout()
}

type ButtonOptions struct {
	Theme string
	Size  string
}
