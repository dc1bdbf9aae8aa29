package slack

import (
	"context"
	"log/slog"
	"strings"

	slackapi "github.com/slack-go/slack"
)

// Client wraps the Slack API client with the small surface the bot needs.
type Client struct {
	api       *slackapi.Client
	botUserID string
	log       *slog.Logger
}

// NewClient creates a Slack client for Socket Mode.
func NewClient(botToken, appToken string, log *slog.Logger) *Client {
	api := slackapi.New(
		botToken,
		slackapi.OptionAppLevelToken(appToken),
	)
	return &Client{api: api, log: log}
}

// API exposes the underlying client for the socketmode transport.
func (c *Client) API() *slackapi.Client {
	return c.api
}

// Initialize runs an auth test and records the bot's own user ID so its
// messages and mentions can be recognized.
func (c *Client) Initialize(ctx context.Context) (string, error) {
	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", err
	}
	c.botUserID = resp.UserID
	c.log.Info("slack auth ok", "bot_user_id", resp.UserID, "team", resp.Team)
	return resp.UserID, nil
}

// BotUserID returns the bot's own user ID, empty before Initialize.
func (c *Client) BotUserID() string {
	return c.botUserID
}

// PostMessage posts text to a channel, threaded when threadTS is set.
func (c *Client) PostMessage(ctx context.Context, channel, text, threadTS string) error {
	opts := []slackapi.MsgOption{slackapi.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slackapi.MsgOptionTS(threadTS))
	}
	_, _, err := c.api.PostMessageContext(ctx, channel, opts...)
	if err != nil {
		c.log.Error("failed to post message", "channel", channel, "error", err)
	}
	return err
}

// RemoveBotMention strips the bot's own <@...> mention from message text.
func (c *Client) RemoveBotMention(text string) string {
	if c.botUserID == "" {
		return text
	}
	mention := "<@" + c.botUserID + ">"
	return strings.TrimSpace(strings.ReplaceAll(text, mention, ""))
}
