package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof" // Register pprof handlers
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slack-go/slack/socketmode"
	flag "github.com/spf13/pflag"

	slackbot "github.com/vidlake/vidlake/internal/slack"
	"github.com/vidlake/vidlake/pkg/pg"
	"github.com/vidlake/vidlake/pkg/pipeline"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultMetricsAddr = "0.0.0.0:8080"
	defaultModel       = "claude-sonnet-4-20250514"
	defaultMaxTokens   = 2048
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run starts the Slack bot in Socket Mode.
//
// Required Slack Bot Token Scopes:
//   - chat:write - Post messages
//   - app_mentions:read - Receive channel mentions
//   - im:history - Read DM history
//
// For DMs, the bot responds to all messages. In channels it responds only
// when mentioned.
func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	enablePprofFlag := flag.Bool("enable-pprof", false, "enable pprof server")
	metricsAddrFlag := flag.String("metrics-addr", defaultMetricsAddr, "Address to listen on for prometheus metrics")
	modelFlag := flag.String("model", defaultModel, "Anthropic model used for plan generation")
	maxTokensFlag := flag.Int64("max-tokens", defaultMaxTokens, "Maximum tokens per model response")
	flag.Parse()

	// Load .env in development; ignore when absent.
	_ = godotenv.Load()

	log := newLogger(*verboseFlag)

	cfg, err := slackbot.LoadFromEnv(*metricsAddrFlag, *verboseFlag, *enablePprofFlag)
	if err != nil {
		return err
	}

	// Start pprof server if enabled
	if cfg.EnablePprof {
		go func() {
			log.Info("starting pprof server", "address", "localhost:6060")
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				log.Error("failed to start pprof server", "error", err)
			}
		}()
	}

	// Start metrics server
	if cfg.MetricsAddr != "" {
		slackbot.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", cfg.MetricsAddr)
			if err != nil {
				log.Error("failed to start prometheus metrics server listener", "error", err)
				return
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			http.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, nil); err != nil {
				log.Error("failed to start prometheus metrics server", "error", err)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Connect storage and ensure the schema exists.
	store, err := pg.NewClient(ctx, log, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("failed to create postgres client: %w", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Plan acquisition pipeline around the Anthropic client.
	llmClient := pipeline.NewAnthropicLLMClient(anthropic.Model(*modelFlag), *maxTokensFlag, log)
	pl := pipeline.New(llmClient, log)

	// Initialize Slack client
	slackClient := slackbot.NewClient(cfg.BotToken, cfg.AppToken, log)
	botUserID, err := slackClient.Initialize(ctx)
	if err != nil {
		log.Warn("slack auth test failed, continuing anyway", "error", err)
	}
	cfg.BotUserID = botUserID

	processor := slackbot.NewProcessor(slackClient, pl, store, log)
	processor.StartCleanup(ctx)

	eventHandler := slackbot.NewEventHandler(slackClient, processor, log)

	smClient := socketmode.New(slackClient.API())
	go func() {
		if err := smClient.RunContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("socketmode client error", "error", err)
		}
	}()

	err = eventHandler.HandleSocketMode(ctx, smClient)
	if errors.Is(err, context.Canceled) || ctx.Err() != nil {
		log.Info("shutdown signal received, stopping")
		return nil
	}
	return err
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
	}))
}
