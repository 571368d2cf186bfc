package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"parkvision/pkg/client"
	"parkvision/pkg/config"
	"parkvision/pkg/display"
	"parkvision/pkg/log"
	"parkvision/pkg/poller"
	"parkvision/pkg/render"
	"parkvision/pkg/server/dashboard"
	"parkvision/pkg/uploader"
)

const oneShotTimeout = 30 * time.Second

//go:embed VERSION
var Version string

func main() {
	configPath := flag.String("config", "", "Optional config file (yaml, json or toml)")
	overrides := config.RegisterFlags(flag.CommandLine)
	debug := flag.Bool("debug", false, "Enable debug logging")
	once := flag.Bool("once", false, "Print the current counts once and exit")
	health := flag.Bool("health", false, "Check detector health and exit")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [image ...]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	overrides.Apply(flag.CommandLine, cfg)

	if err := log.Setup(os.Stderr, cfg.LogFormat, cfg.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("Invalid logging configuration")
	}
	if *debug {
		log.SetDebugMode()
		log.Debug().Msg("Debug mode enabled")
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	detector, err := client.New(cfg.ServerURL, client.Options{
		RetryMax:     cfg.RetryMax,
		RetryWaitMin: cfg.RetryWaitMin,
		RetryWaitMax: cfg.RetryWaitMax,
		Timeout:      cfg.RequestTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create detector client")
	}

	switch {
	case *health:
		os.Exit(checkHealth(detector, os.Stdout))
	case *once:
		os.Exit(printCounts(detector, os.Stdout))
	}

	log.Info().
		Str("version", strings.TrimSpace(Version)).
		Str("detector", detector.BaseURL()).
		Dur("poll_interval", cfg.PollInterval).
		Int("retry_max", cfg.RetryMax).
		Msg("Starting parkvision")

	disp := display.New()
	uploads := uploader.New(detector, disp)
	uploadArgs(uploads, flag.Args())

	statsPoller := poller.New(detector, disp, cfg.PollInterval)
	if err := statsPoller.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to start poller")
	}

	srv, err := dashboard.New(disp, uploads, detector, detector.BaseURL(), statsPoller.Interval(), cfg.ShutdownTimeout)
	if err != nil {
		statsPoller.Stop()
		log.Fatal().Err(err).Msg("Failed to create dashboard")
	}

	serveErr := srv.Start(cfg.ListenAddr)
	statsPoller.Stop()
	if serveErr != nil {
		log.Fatal().Err(serveErr).Msg("Dashboard failed")
	}

	os.Exit(0)
}

// uploadArgs sends images named on the command line through the picker path.
func uploadArgs(uploads *uploader.Uploader, paths []string) {
	for _, path := range paths {
		if err := uploadPath(uploads, path); err != nil {
			log.Error().Err(err).Str("path", path).Msg("Initial upload failed")
		}
	}
}

func uploadPath(uploads *uploader.Uploader, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer func() { _ = file.Close() }()

	var size int64
	if info, statErr := file.Stat(); statErr == nil {
		size = info.Size()
	}

	result, err := uploads.Select(context.Background(), uploader.File{
		Name: filepath.Base(path),
		Size: size,
		Body: file,
	})
	if err != nil {
		return err
	}

	fmt.Println(result.Status)
	return nil
}

// checkHealth returns the process exit code for -health.
func checkHealth(detector dashboard.HealthChecker, out io.Writer) int {
	ctx, cancel := context.WithTimeout(context.Background(), oneShotTimeout)
	defer cancel()

	health, err := detector.Health(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Detector unreachable")
		return 1
	}

	fmt.Fprintf(out, "%s (version %s, model %s, loaded %t)\n", health.Status, health.Version, health.Model, health.ModelLoaded)
	if !health.ModelLoaded {
		return 1
	}
	return 0
}

// printCounts returns the process exit code for -once.
func printCounts(detector poller.Fetcher, out io.Writer) int {
	ctx, cancel := context.WithTimeout(context.Background(), oneShotTimeout)
	defer cancel()

	stats, err := detector.Counts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to fetch counts")
		return 1
	}

	fmt.Fprintln(out, render.Text(render.Render(stats)))
	return 0
}
