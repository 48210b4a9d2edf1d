// Command whisperd serves whisper.cpp speech-to-text over HTTP and
// WebSocket, holding one "cold" (accuracy) and one "hot" (latency)
// model behind two independent serialization domains.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/whisperd/whisperd/internal/app"
	"github.com/whisperd/whisperd/internal/config"
	"github.com/whisperd/whisperd/internal/engine"
	"github.com/whisperd/whisperd/internal/observe"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "whisperd: %v\n", err)
		return 1
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	otelShutdown, err := observe.InitProvider(context.Background(), observe.ProviderConfig{
		ServiceName: "whisperd",
		Domains:     []string{"cold:" + cfg.Models.Cold.Path, "hot:" + cfg.Models.Hot.Path},
	})
	if err != nil {
		slog.Error("failed to initialize observability providers", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("error shutting down observability providers", "err", err)
		}
	}()

	printStartupSummary(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, logger, engine.DefaultLoader(), observe.DefaultMetrics())
	if err != nil {
		slog.Error("model initialization failed", "err", err)
		return 3
	}

	slog.Info("whisperd ready — press Ctrl+C to shut down",
		"http_addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		"ws_addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.EffectiveWSPort()),
	)

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("server error", "err", err)
		return 1
	}

	slog.Info("goodbye")
	return 0
}

// parseFlags builds a [config.Config] starting from [config.Defaults],
// optionally overlaid with a YAML file (-c/--config), then with the
// individual flags — spec §6.3 treats flags as the primary control
// surface, so an explicit flag always wins over the config file.
func parseFlags(args []string) (*config.Config, error) {
	fs := flag.NewFlagSet("whisperd", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: whisperd [flags]\n\n")
		fmt.Fprintf(fs.Output(), "Serves whisper.cpp speech-to-text over HTTP and WebSocket.\n\n")
		fs.PrintDefaults()
	}

	var configPath string
	fs.StringVar(&configPath, "config", "", "path to a YAML configuration file")
	fs.StringVar(&configPath, "c", "", "path to a YAML configuration file (shorthand)")

	defaults := config.Defaults()

	host := fs.String("host", defaults.Server.Host, "interface the HTTP and WebSocket listeners bind to")
	fs.StringVar(host, "H", defaults.Server.Host, "interface to bind to (shorthand)")

	httpPort := fs.Int("port", defaults.Server.HTTPPort, "HTTP listener port")
	fs.IntVar(httpPort, "p", defaults.Server.HTTPPort, "HTTP listener port (shorthand)")

	wsPort := fs.Int("ws-port", defaults.Server.WSPort, "WebSocket listener port (0 derives http_port+1000)")

	prefix := fs.String("prefix", defaults.Server.RequestPathPrefix, "request path prefix in front of every route")

	coldModel := fs.String("cold-model", "", "path to the cold (accuracy) model file")
	fs.StringVar(coldModel, "mc", "", "path to the cold model file (shorthand)")

	hotModel := fs.String("hot-model", "", "path to the hot (latency) model file")
	fs.StringVar(hotModel, "mh", "", "path to the hot model file (shorthand)")

	logLevel := fs.String("log-level", string(defaults.LogLevel), "debug, info, warn, or error")
	fs.StringVar(logLevel, "l", string(defaults.LogLevel), "log level (shorthand)")

	publicPath := fs.String("public-path", defaults.Server.PublicPath, "static file root for the landing page")

	convert := fs.Bool("convert", defaults.Server.EnableConverter, "enable the FFmpeg fallback converter for non-WAV uploads")
	ffmpegPath := fs.String("ffmpeg-path", defaults.Server.FFmpegPath, "ffmpeg binary path (resolved via PATH if empty)")

	maxSessions := fs.Int("max-sessions", defaults.Server.MaxWSSessions, "maximum concurrent WebSocket sessions")
	idleTimeout := fs.Int("idle-timeout", defaults.Server.IdleTimeoutSeconds, "idle-session reap timeout, in seconds")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := defaults
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = *loaded
	}

	cfg.Server.Host = *host
	cfg.Server.HTTPPort = *httpPort
	cfg.Server.WSPort = *wsPort
	cfg.Server.RequestPathPrefix = *prefix
	cfg.Server.PublicPath = *publicPath
	cfg.Server.EnableConverter = *convert
	cfg.Server.FFmpegPath = *ffmpegPath
	cfg.Server.MaxWSSessions = *maxSessions
	cfg.Server.IdleTimeoutSeconds = *idleTimeout
	cfg.LogLevel = config.LogLevel(*logLevel)

	if *coldModel != "" {
		cfg.Models.Cold.Path = *coldModel
	}
	if *hotModel != "" {
		cfg.Models.Hot.Path = *hotModel
	}

	if err := config.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func printStartupSummary(cfg *config.Config) {
	slog.Info("whisperd starting",
		"cold_model", cfg.Models.Cold.Path,
		"hot_model", cfg.Models.Hot.Path,
		"http_port", cfg.Server.HTTPPort,
		"ws_port", cfg.Server.EffectiveWSPort(),
		"max_ws_sessions", cfg.Server.MaxWSSessions,
		"converter_enabled", cfg.Server.EnableConverter,
	)
}
