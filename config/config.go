package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperror "github.com/Yulian302/lfusys-renewal-map/errors"
)

const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StoreDynamoDB = "dynamodb"
)

type GoogleConfig struct {
	ClientID string
}

type FacebookConfig struct {
	AppID    string
	Version  string
	GraphURL string
}

type ProfileConfig struct {
	Store string
	Path  string
	Key   string
	Table string
}

type RedisConfig struct {
	HOST string
}

type AWSConfig struct {
	Region string
}

type Config struct {
	Env        string
	APIBaseURL string

	ZonesDirectory      string
	ExpiryCheckInterval time.Duration
	Tracing             bool

	GoogleConfig   *GoogleConfig
	FacebookConfig *FacebookConfig
	ProfileConfig  *ProfileConfig
	RedisConfig    *RedisConfig
	AWSConfig      *AWSConfig
}

func LoadConfig() Config {
	return Config{
		Env:        getEnv("ENV", "DEV"),
		APIBaseURL: strings.TrimRight(getEnv("API_BASE_URL", ""), "/"),

		ZonesDirectory:      getEnv("ZONES_DIRECTORY", "tucheng.json"),
		ExpiryCheckInterval: getDuration("EXPIRY_CHECK_INTERVAL", time.Minute),
		Tracing:             getBool("TRACING", false),

		GoogleConfig: &GoogleConfig{
			ClientID: getEnv("GOOGLE_CLIENT_ID", ""),
		},
		FacebookConfig: &FacebookConfig{
			AppID:    getEnv("FB_APP_ID", ""),
			Version:  getEnv("FB_SDK_VERSION", "v18.0"),
			GraphURL: strings.TrimRight(getEnv("FB_GRAPH_URL", "https://graph.facebook.com"), "/"),
		},
		ProfileConfig: &ProfileConfig{
			Store: getEnv("PROFILE_STORE", StoreFile),
			Path:  getEnv("PROFILE_PATH", defaultProfilePath()),
			Key:   getEnv("PROFILE_KEY", "user_profile"),
			Table: getEnv("PROFILES_TABLE", "profiles"),
		},
		RedisConfig: &RedisConfig{
			HOST: getEnv("REDIS_HOST", "localhost:6379"),
		},
		AWSConfig: &AWSConfig{
			Region: getEnv("AWS_REGION", "ap-northeast-1"),
		},
	}
}

// Validate checks the values the selected profile store and the API need.
func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("%w: API_BASE_URL is required", apperror.ErrInvalidConfig)
	}
	if c.ExpiryCheckInterval <= 0 {
		return fmt.Errorf("%w: EXPIRY_CHECK_INTERVAL must be positive", apperror.ErrInvalidConfig)
	}
	if c.ProfileConfig == nil {
		return fmt.Errorf("%w: profile config missing", apperror.ErrInvalidConfig)
	}
	if c.ProfileConfig.Key == "" {
		return fmt.Errorf("%w: PROFILE_KEY is required", apperror.ErrInvalidConfig)
	}

	switch c.ProfileConfig.Store {
	case StoreMemory:
	case StoreFile:
		if c.ProfileConfig.Path == "" {
			return fmt.Errorf("%w: PROFILE_PATH is required for the file store", apperror.ErrInvalidConfig)
		}
	case StoreRedis:
		if c.RedisConfig == nil || c.RedisConfig.HOST == "" {
			return fmt.Errorf("%w: REDIS_HOST is required for the redis store", apperror.ErrInvalidConfig)
		}
	case StoreDynamoDB:
		if c.AWSConfig == nil || c.AWSConfig.Region == "" {
			return fmt.Errorf("%w: AWS_REGION is required for the dynamodb store", apperror.ErrInvalidConfig)
		}
		if c.ProfileConfig.Table == "" {
			return fmt.Errorf("%w: PROFILES_TABLE is required for the dynamodb store", apperror.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown PROFILE_STORE %q", apperror.ErrInvalidConfig, c.ProfileConfig.Store)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(fallback)))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, fallback.String()))
	if err != nil {
		return fallback
	}
	return v
}

func defaultProfilePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".todmap/user_profile.json"
	}
	return dir + "/todmap/user_profile.json"
}
