package oauth

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type mockScript struct {
	mock.Mock
}

func (m *mockScript) Load(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockGoogleSDK struct {
	mock.Mock
	callback func(string)
}

func (m *mockGoogleSDK) Load(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockGoogleSDK) Initialize(clientID string, callback func(credential string)) {
	m.Called(clientID)
	m.callback = callback
}

func (m *mockGoogleSDK) RenderButton(mount string, opts ButtonOptions) error {
	return m.Called(mount, opts).Error(0)
}

func (m *mockGoogleSDK) DisableAutoSelect() {
	m.Called()
}

type mockFacebookSDK struct {
	mock.Mock
}

func (m *mockFacebookSDK) Load(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockFacebookSDK) Init(appID, version string) error {
	return m.Called(appID, version).Error(0)
}

func (m *mockFacebookSDK) Login(ctx context.Context, scope string) (string, error) {
	args := m.Called(ctx, scope)
	return args.String(0), args.Error(1)
}

func (m *mockFacebookSDK) Logout() {
	m.Called()
}
