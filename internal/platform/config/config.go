package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"time"

	"sponsor-portal/internal/adapters/logger"
)

type StoreMode string

const (
	StoreMemory   StoreMode = "memory"
	StoreDynamoDB StoreMode = "dynamodb"
)

func ParseStoreMode() (StoreMode, error) {
	mode := StoreMode(os.Getenv("STORE_MODE"))
	switch mode {
	case "":
		return StoreDynamoDB, nil
	case StoreMemory, StoreDynamoDB:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid store mode %q", mode)
	}
}

type Config struct {
	Port               string
	BackendURL         string
	BackendTimeout     time.Duration
	SessionSecret      string
	SessionTTL         time.Duration
	SessionIdleTimeout time.Duration
	CookieSecure       bool
	StoreMode          StoreMode
	TableName          string
	Region             string
	LoginRatePerMinute int
	LogLevel           slog.Level
}

func Load() (Config, error) {
	storeMode, err := ParseStoreMode()
	if err != nil {
		return Config{}, err
	}
	level, err := logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Port:          envOr("PORT", "8080"),
		BackendURL:    os.Getenv("BACKEND_URL"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		StoreMode:     storeMode,
		TableName:     os.Getenv("TABLE_NAME"),
		Region:        os.Getenv("AWS_REGION"),
		LogLevel:      level,
	}

	var errs []error
	if cfg.BackendTimeout, err = durationEnv("BACKEND_TIMEOUT", 10*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", 12*time.Hour); err != nil {
		errs = append(errs, err)
	}
	if cfg.SessionIdleTimeout, err = durationEnv("SESSION_IDLE_TIMEOUT", 30*time.Minute); err != nil {
		errs = append(errs, err)
	}
	if cfg.LoginRatePerMinute, err = intEnv("LOGIN_RATE_PER_MINUTE", 10); err != nil {
		errs = append(errs, err)
	}
	if cfg.CookieSecure, err = boolEnv("COOKIE_SECURE", true); err != nil {
		errs = append(errs, err)
	}

	if cfg.BackendURL == "" {
		errs = append(errs, errors.New("BACKEND_URL is required"))
	} else if u, err := url.Parse(cfg.BackendURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("BACKEND_URL %q is not an absolute url", cfg.BackendURL))
	}
	if len(cfg.SessionSecret) < 32 {
		errs = append(errs, errors.New("SESSION_SECRET must be at least 32 characters"))
	}
	if cfg.StoreMode == StoreDynamoDB && (cfg.TableName == "" || cfg.Region == "") {
		errs = append(errs, errors.New("TABLE_NAME and AWS_REGION are required for dynamodb store mode"))
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, v)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return n, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}
