package slack

import (
	"fmt"
	"os"

	"github.com/vidlake/vidlake/pkg/pg"
)

// Config holds all configuration for the bot.
type Config struct {
	// Slack configuration (Socket Mode)
	BotToken  string
	AppToken  string
	BotUserID string

	// Postgres configuration
	Postgres pg.Config

	// Server configuration
	MetricsAddr string

	// Feature flags
	Verbose     bool
	EnablePprof bool
}

// LoadFromEnv loads configuration from environment variables and flags.
// The Anthropic API key is consumed by the SDK directly; it is checked here
// so a missing key fails at startup rather than on the first question.
func LoadFromEnv(metricsAddr string, verbose, enablePprof bool) (*Config, error) {
	cfg := &Config{
		MetricsAddr: metricsAddr,
		Verbose:     verbose,
		EnablePprof: enablePprof,
		Postgres:    pg.LoadConfigFromEnv(),
	}

	cfg.BotToken = os.Getenv("SLACK_BOT_TOKEN")
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("SLACK_BOT_TOKEN is required")
	}

	cfg.AppToken = os.Getenv("SLACK_APP_TOKEN")
	if cfg.AppToken == "" {
		return nil, fmt.Errorf("SLACK_APP_TOKEN is required for socket mode")
	}

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}

	return cfg, nil
}
