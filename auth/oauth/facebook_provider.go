package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/Yulian302/lfusys-renewal-map/auth"
	"github.com/Yulian302/lfusys-renewal-map/auth/types"
	"github.com/Yulian302/lfusys-renewal-map/config"
	apperror "github.com/Yulian302/lfusys-renewal-map/errors"
)

// BlockedSDKMessage is shown when the Facebook SDK never finished loading,
// which in practice means an ad or tracker blocker removed it.
const BlockedSDKMessage = "Facebook login is unavailable. Disable ad blockers or tracking protection for this site and try again."

const loginScope = "public_profile"

type facebookProvider struct {
	cfg    *config.FacebookConfig
	sdk    FacebookSDK
	loader *Loader
	client *auth.Client

	mu          sync.Mutex
	initialized bool
}

func NewFacebookProvider(cfg *config.FacebookConfig, sdk FacebookSDK) *facebookProvider {
	return &facebookProvider{
		cfg:    cfg,
		sdk:    sdk,
		loader: NewLoader("facebook-jssdk", sdk),
		client: auth.NewClient(10 * time.Second),
	}
}

func (p *facebookProvider) ensure(ctx context.Context) error {
	if err := p.loader.Ensure(ctx); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return nil
	}
	if err := p.sdk.Init(p.cfg.AppID, p.cfg.Version); err != nil {
		return err
	}
	p.initialized = true
	return nil
}

func (p *facebookProvider) Login(ctx context.Context) (OAuthUser, error) {
	if err := p.ensure(ctx); err != nil {
		return OAuthUser{}, fmt.Errorf("%w: %s: %w", apperror.ErrSDKUnavailable, BlockedSDKMessage, err)
	}

	token, err := p.sdk.Login(ctx, loginScope)
	if err != nil {
		if errors.Is(err, apperror.ErrLoginCancelled) {
			return OAuthUser{}, err
		}
		return OAuthUser{}, fmt.Errorf("facebook login: %w", err)
	}
	if token == "" {
		return OAuthUser{}, apperror.ErrLoginCancelled
	}

	return p.GetOAuthUser(ctx, token)
}

func (p *facebookProvider) GetOAuthUser(ctx context.Context, token string) (OAuthUser, error) {
	var fbUser types.FacebookUser
	endpoint := fmt.Sprintf("%s/%s/me", p.cfg.GraphURL, p.cfg.Version)
	query := url.Values{"fields": {"name,picture"}}

	if err := p.client.GetJSONWithToken(ctx, endpoint, token, query, &fbUser); err != nil {
		return OAuthUser{}, fmt.Errorf("%w: %w", apperror.ErrGraphRequest, graphError(err))
	}
	if fbUser.ID == "" && fbUser.Name == "" {
		return OAuthUser{}, fmt.Errorf("%w: empty profile", apperror.ErrGraphRequest)
	}

	return OAuthUser{
		Name:       fbUser.Name,
		Provider:   types.Providers[types.FacebookProvider],
		ProviderID: fbUser.ID,
		AvatarURL:  fbUser.Picture.Data.URL,
	}, nil
}

// graphError unwraps the Graph API error envelope from a failed response.
// Anything else is returned as is.
func graphError(err error) error {
	var statusErr *auth.StatusError
	if !errors.As(err, &statusErr) {
		return err
	}
	var resp types.GraphErrorResponse
	if json.Unmarshal(statusErr.Body, &resp) != nil || resp.Error == nil {
		return err
	}
	return resp.Error
}

func (p *facebookProvider) Reset() {
	p.mu.Lock()
	if p.initialized {
		p.sdk.Logout()
	}
	p.initialized = false
	p.mu.Unlock()

	p.loader.Reset()
}
