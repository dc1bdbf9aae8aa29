package slack

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_APP_TOKEN", "xapp-test")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("POSTGRES_HOST", "db.internal")
	t.Setenv("POSTGRES_PORT", "5433")

	cfg, err := LoadFromEnv("0.0.0.0:8080", true, false)
	require.NoError(t, err)
	require.Equal(t, "xoxb-test", cfg.BotToken)
	require.Equal(t, "xapp-test", cfg.AppToken)
	require.Equal(t, "0.0.0.0:8080", cfg.MetricsAddr)
	require.True(t, cfg.Verbose)
	require.False(t, cfg.EnablePprof)
	require.Equal(t, "db.internal", cfg.Postgres.Host)
	require.Equal(t, "5433", cfg.Postgres.Port)
}

func TestLoadFromEnv_MissingBotToken(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "")
	t.Setenv("SLACK_APP_TOKEN", "xapp-test")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	_, err := LoadFromEnv("", false, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "SLACK_BOT_TOKEN")
}

func TestLoadFromEnv_MissingAppToken(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_APP_TOKEN", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	_, err := LoadFromEnv("", false, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "SLACK_APP_TOKEN")
}

func TestLoadFromEnv_MissingAnthropicKey(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_APP_TOKEN", "xapp-test")
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := LoadFromEnv("", false, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "ANTHROPIC_API_KEY")
}
