package config

import (
	"flag"
	"time"
)

// Flags holds the command-line overrides registered on a FlagSet.
type Flags struct {
	ServerURL      *string
	ListenAddr     *string
	PollInterval   *time.Duration
	RetryMax       *int
	RequestTimeout *time.Duration
	LogFormat      *string
}

// RegisterFlags defines the override flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		ServerURL:      fs.String("server", "", "Detector base URL (e.g., http://localhost:5000)"),
		ListenAddr:     fs.String("addr", "", "Dashboard listen address"),
		PollInterval:   fs.Duration("interval", 0, "Counts polling interval"),
		RetryMax:       fs.Int("retry-max", 0, "Maximum number of request retries"),
		RequestTimeout: fs.Duration("request-timeout", 0, "Request timeout (0 keeps transport defaults)"),
		LogFormat:      fs.String("log-format", "", "Log format: console or json"),
	}
}

// Apply copies only the flags that were given on the command line, so
// file and environment values survive unset flags.
func (f *Flags) Apply(fs *flag.FlagSet, cfg *Config) {
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "server":
			cfg.ServerURL = *f.ServerURL
		case "addr":
			cfg.ListenAddr = *f.ListenAddr
		case "interval":
			cfg.PollInterval = *f.PollInterval
		case "retry-max":
			cfg.RetryMax = *f.RetryMax
		case "request-timeout":
			cfg.RequestTimeout = *f.RequestTimeout
		case "log-format":
			cfg.LogFormat = *f.LogFormat
		}
	})
}
