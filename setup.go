package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Yulian302/lfusys-renewal-map/auth/oauth"
	"github.com/Yulian302/lfusys-renewal-map/config"
	"github.com/Yulian302/lfusys-renewal-map/geo"
	"github.com/Yulian302/lfusys-renewal-map/logging"
	"github.com/Yulian302/lfusys-renewal-map/session"
	"github.com/Yulian302/lfusys-renewal-map/store"
	"github.com/Yulian302/lfusys-renewal-map/tracing"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/sdk/trace"
)

// Devices are the host capabilities a browser would provide. Nil fields get
// headless defaults.
type Devices struct {
	Fs       afero.Fs
	Google   oauth.GoogleSDK
	Facebook oauth.FacebookSDK
	Locator  geo.Locator
	Reloader session.Reloader
}

type App struct {
	DynamoDB *dynamodb.Client
	Redis    *redis.Client

	Config    config.Config
	AwsConfig aws.Config
	Logger    *slog.Logger

	Services       *Services
	TracerProvider *trace.TracerProvider
}

type SetupFunc func(ctx context.Context, devices Devices) (*App, error)

func SetupApp(ctx context.Context, devices Devices) (*App, error) {
	return SetupAppWith(ctx, config.LoadConfig(), devices)
}

func SetupAppWith(ctx context.Context, cfg config.Config, devices Devices) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app := &App{
		Config: cfg,
		Logger: logging.CreateLogger(cfg.Env),
	}

	if cfg.Tracing {
		tp, err := tracing.StartTracing(ctx)
		if err != nil {
			return nil, err
		}
		app.TracerProvider = tp
	}

	profiles, err := app.initProfileStore(ctx, devices)
	if err != nil {
		return nil, err
	}

	app.Services = BuildServices(app, profiles, devices)
	return app, nil
}

func (a *App) initProfileStore(ctx context.Context, devices Devices) (store.ProfileStore, error) {
	pc := a.Config.ProfileConfig

	switch pc.Store {
	case config.StoreMemory:
		return store.NewMemoryProfileStore(), nil
	case config.StoreFile:
		fs := devices.Fs
		if fs == nil {
			fs = afero.NewOsFs()
		}
		return store.NewFileProfileStore(fs, pc.Path), nil
	case config.StoreRedis:
		a.Redis = initRedis(*a.Config.RedisConfig)
		if a.Redis == nil {
			return nil, errors.New("could not init redis")
		}
		return store.NewRedisProfileStore(a.Redis, pc.Key), nil
	case config.StoreDynamoDB:
		awsCfg, err := initAWS(ctx, *a.Config.AWSConfig)
		if err != nil {
			return nil, err
		}
		a.AwsConfig = awsCfg
		a.DynamoDB = initDynamo(awsCfg)
		if a.DynamoDB == nil {
			return nil, errors.New("could not init dynamodb")
		}
		return store.NewDynamoProfileStore(a.DynamoDB, pc.Table, pc.Key), nil
	default:
		return nil, fmt.Errorf("unknown profile store %q", pc.Store)
	}
}

func initAWS(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

func initDynamo(cfg aws.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg)
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.HOST,
		Password: "",
		DB:       0,
	})
}

func (a *App) Shutdown(ctx context.Context) {
	if a.Services != nil {
		_ = a.Services.Shutdown(ctx)
	}
	if a.TracerProvider != nil {
		_ = a.TracerProvider.Shutdown(ctx)
	}
}
