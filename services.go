package main

import (
	"context"
	"log/slog"

	"github.com/Yulian302/lfusys-renewal-map/apiclient"
	"github.com/Yulian302/lfusys-renewal-map/auth/oauth"
	"github.com/Yulian302/lfusys-renewal-map/geo"
	"github.com/Yulian302/lfusys-renewal-map/orchestrator"
	"github.com/Yulian302/lfusys-renewal-map/services"
	"github.com/Yulian302/lfusys-renewal-map/session"
	"github.com/Yulian302/lfusys-renewal-map/store"
	"github.com/Yulian302/lfusys-renewal-map/tracing"
)

type Providers struct {
	Google   oauth.CredentialProvider
	Facebook oauth.LoginProvider
}

type Services struct {
	Zones  *services.ZoneServiceImpl
	Nearby *services.NearbyServiceImpl

	Store     store.ProfileStore
	Providers *Providers

	Session      *session.Manager
	Location     *geo.Acquirer
	Orchestrator *orchestrator.Orchestrator
}

type Shutdowner interface {
	Shutdown(context.Context) error
}

func BuildServices(app *App, profiles store.ProfileStore, devices Devices) *Services {
	logger := app.Logger
	cfg := app.Config

	zonesClient := newAPIClient(app, "renewal-api:zones")
	nearbyClient := newAPIClient(app, "renewal-api:nearby")

	zoneSvc := services.NewZoneServiceImpl(zonesClient, logger)
	nearbySvc := services.NewNearbyServiceImpl(nearbyClient, logger)

	googleSDK := devices.Google
	if googleSDK == nil {
		googleSDK = &oauth.StaticGoogleSDK{}
	}
	facebookSDK := devices.Facebook
	if facebookSDK == nil {
		facebookSDK = &oauth.StaticFacebookSDK{}
	}
	googleProvider := oauth.NewGoogleProvider(cfg.GoogleConfig, googleSDK)
	facebookProvider := oauth.NewFacebookProvider(cfg.FacebookConfig, facebookSDK)

	sessionOpts := []session.Option{
		session.WithLogger(logger),
		session.WithCheckInterval(cfg.ExpiryCheckInterval),
	}
	if devices.Reloader != nil {
		sessionOpts = append(sessionOpts, session.WithReloader(devices.Reloader))
	}
	manager := session.New(profiles, googleProvider, facebookProvider, sessionOpts...)

	acquirer := geo.NewAcquirer(devices.Locator, logger)

	orch := orchestrator.New(manager, acquirer, zoneSvc, nearbySvc,
		orchestrator.WithDirectory(cfg.ZonesDirectory),
		orchestrator.WithLogger(logger),
	)

	return &Services{
		Zones:  zoneSvc,
		Nearby: nearbySvc,

		Store: profiles,

		Providers: &Providers{
			Google:   googleProvider,
			Facebook: facebookProvider,
		},

		Session:      manager,
		Location:     acquirer,
		Orchestrator: orch,
	}
}

// newAPIClient builds a client with a breaker of its own, one per fetcher.
func newAPIClient(app *App, name string) *apiclient.Client {
	opts := []apiclient.Option{
		apiclient.WithLogger(app.Logger),
		apiclient.WithBreaker(apiclient.NewBreaker(apiclient.DefaultBreakerSettings(name), app.Logger)),
	}
	if app.TracerProvider != nil {
		opts = append(opts, apiclient.WithTracer(app.TracerProvider.Tracer(tracing.TracerName)))
	}
	return apiclient.New(app.Config.APIBaseURL, opts...)
}

func (s *Services) Shutdown(ctx context.Context) error {
	if sh, ok := s.Store.(Shutdowner); ok {
		if err := sh.Shutdown(ctx); err != nil {
			slog.Error("profile store shutdown error", slog.String("error", err.Error()))
		}
	}
	return nil
}
