package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Yulian302/lfusys-renewal-map/config"
	apperror "github.com/Yulian302/lfusys-renewal-map/errors"
	"github.com/Yulian302/lfusys-renewal-map/logging"
)

type googleProvider struct {
	cfg    *config.GoogleConfig
	sdk    GoogleSDK
	loader *Loader

	mu           sync.Mutex
	initialized  bool
	onCredential CredentialFunc
}

func NewGoogleProvider(cfg *config.GoogleConfig, sdk GoogleSDK) *googleProvider {
	return &googleProvider{
		cfg:    cfg,
		sdk:    sdk,
		loader: NewLoader("google-gsi", sdk),
	}
}

// Initialize loads the SDK once, registers onCredential and renders the
// sign-in button into mount. Calling it again only re-renders the button and
// swaps the callback.
func (p *googleProvider) Initialize(ctx context.Context, mount string, onCredential CredentialFunc) error {
	if err := p.loader.Ensure(ctx); err != nil {
		return fmt.Errorf("%w: google: %w", apperror.ErrSDKUnavailable, err)
	}

	logger := logging.FromContext(ctx)

	p.mu.Lock()
	p.onCredential = onCredential
	if !p.initialized {
		p.sdk.Initialize(p.cfg.ClientID, func(credential string) {
			p.dispatch(logger, credential)
		})
		p.initialized = true
	}
	p.mu.Unlock()

	if mount == "" {
		return nil
	}
	if err := p.sdk.RenderButton(mount, ButtonOptions{Theme: "outline", Size: "large"}); err != nil {
		return fmt.Errorf("render google button: %w", err)
	}
	return nil
}

func (p *googleProvider) dispatch(logger *slog.Logger, credential string) {
	p.mu.Lock()
	cb := p.onCredential
	p.mu.Unlock()

	if cb == nil {
		logger.Warn("google credential received after reset, ignoring")
		return
	}
	if err := cb(credential); err != nil {
		logger.Error("google credential rejected", slog.String("error", err.Error()))
	}
}

// Reset drops the callback and forces a fresh SDK load on next use so no
// rendered button or cached selection outlives a logout.
func (p *googleProvider) Reset() {
	p.mu.Lock()
	if p.initialized {
		p.sdk.DisableAutoSelect()
	}
	p.initialized = false
	p.onCredential = nil
	p.mu.Unlock()

	p.loader.Reset()
}
