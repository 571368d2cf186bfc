// Package config loads parkvision settings from defaults, an optional
// config file and PARKVISION_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "PARKVISION"

const (
	KeyServerURL       = "server_url"
	KeyListenAddr      = "listen_addr"
	KeyPollInterval    = "poll_interval"
	KeyRetryMax        = "retry_max"
	KeyRetryWaitMin    = "retry_wait_min"
	KeyRetryWaitMax    = "retry_wait_max"
	KeyRequestTimeout  = "request_timeout"
	KeyShutdownTimeout = "shutdown_timeout"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
)

var (
	ErrInvalidServerURL    = errors.New("server_url must start with http:// or https://")
	ErrInvalidPollInterval = errors.New("poll_interval must be positive")
	ErrInvalidRetryMax     = errors.New("retry_max must not be negative")
	ErrEmptyListenAddr     = errors.New("listen_addr must not be empty")
)

type Config struct {
	ServerURL       string
	ListenAddr      string
	PollInterval    time.Duration
	RetryMax        int
	RetryWaitMin    time.Duration
	RetryWaitMax    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
	LogFormat       string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyServerURL, "http://localhost:5000")
	v.SetDefault(KeyListenAddr, ":8090")
	v.SetDefault(KeyPollInterval, time.Second)
	v.SetDefault(KeyRetryMax, 0)
	v.SetDefault(KeyRetryWaitMin, time.Second)
	v.SetDefault(KeyRetryWaitMax, 30*time.Second)
	v.SetDefault(KeyRequestTimeout, time.Duration(0))
	v.SetDefault(KeyShutdownTimeout, 10*time.Second)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
}

// Load reads the configuration. An empty path means defaults and
// environment only; a named file must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		ServerURL:       strings.TrimSpace(v.GetString(KeyServerURL)),
		ListenAddr:      v.GetString(KeyListenAddr),
		PollInterval:    v.GetDuration(KeyPollInterval),
		RetryMax:        v.GetInt(KeyRetryMax),
		RetryWaitMin:    v.GetDuration(KeyRetryWaitMin),
		RetryWaitMax:    v.GetDuration(KeyRetryWaitMax),
		RequestTimeout:  v.GetDuration(KeyRequestTimeout),
		ShutdownTimeout: v.GetDuration(KeyShutdownTimeout),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFormat:       v.GetString(KeyLogFormat),
	}

	return cfg, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.ServerURL, "http://") && !strings.HasPrefix(c.ServerURL, "https://") {
		return fmt.Errorf("%w: %q", ErrInvalidServerURL, c.ServerURL)
	}
	if c.PollInterval <= 0 {
		return ErrInvalidPollInterval
	}
	if c.RetryMax < 0 {
		return ErrInvalidRetryMax
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		return ErrEmptyListenAddr
	}
	return nil
}
