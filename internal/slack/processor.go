package slack

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/vidlake/vidlake/pkg/pg"
	"github.com/vidlake/vidlake/pkg/pipeline"
	"github.com/vidlake/vidlake/pkg/sqlgen"
)

// User-visible replies. Failures collapse into one generic message; internal
// error detail never reaches the user.
const (
	emptyReply   = "Empty request."
	failureReply = "Sorry, I could not produce an answer to that."
)

// respondedTTL bounds how long processed event keys are remembered for
// duplicate-delivery suppression.
const respondedTTL = time.Hour

// Processor answers one Slack message: acquire a plan, compile it, execute
// it, reply with a single number. Each message runs on its own goroutine;
// the Postgres pool is the only shared resource.
type Processor struct {
	slackClient *Client
	pipeline    *pipeline.Pipeline
	store       *pg.Client
	log         *slog.Logger

	// Slack redelivers events; respond to each message once.
	responded *ttlcache.Cache[string, struct{}]
}

// NewProcessor creates a message processor.
func NewProcessor(slackClient *Client, pl *pipeline.Pipeline, store *pg.Client, log *slog.Logger) *Processor {
	responded := ttlcache.New(
		ttlcache.WithTTL[string, struct{}](respondedTTL),
	)
	return &Processor{
		slackClient: slackClient,
		pipeline:    pl,
		store:       store,
		log:         log,
		responded:   responded,
	}
}

// StartCleanup starts the expired-entry eviction loop and stops it when ctx
// is cancelled.
func (p *Processor) StartCleanup(ctx context.Context) {
	go p.responded.Start()
	go func() {
		<-ctx.Done()
		p.responded.Stop()
	}()
}

// HasResponded reports whether a message key was already handled.
func (p *Processor) HasResponded(messageKey string) bool {
	return p.responded.Has(messageKey)
}

// MarkResponded records a message key as handled.
func (p *Processor) MarkResponded(messageKey string) {
	p.responded.Set(messageKey, struct{}{}, ttlcache.DefaultTTL)
}

// Process handles one inbound message and posts exactly one reply, threaded
// on the triggering message.
func (p *Processor) Process(ctx context.Context, channel, messageTS, text string) {
	start := time.Now()
	defer func() {
		MessageProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	text = strings.TrimSpace(p.slackClient.RemoveBotMention(text))
	p.log.Info("processing message", "channel", channel, "message_ts", messageTS, "text", text)

	if text == "" {
		p.reply(ctx, channel, messageTS, emptyReply, outcomeEmpty)
		return
	}

	answer, err := p.answer(ctx, text)
	if err != nil {
		p.log.Warn("could not answer question", "channel", channel, "message_ts", messageTS, "error", err)
		p.reply(ctx, channel, messageTS, failureReply, outcomeFailure)
		return
	}

	p.log.Info("answered question", "channel", channel, "message_ts", messageTS, "answer", answer)
	p.reply(ctx, channel, messageTS, FormatAnswer(answer), outcomeAnswer)
}

// answer runs the full path: plan acquisition, compilation, execution.
func (p *Processor) answer(ctx context.Context, question string) (int64, error) {
	pl, err := p.pipeline.Acquire(ctx, question)
	if err != nil {
		return 0, err
	}

	query, err := sqlgen.Compile(pl)
	if err != nil {
		// A validated plan the compiler cannot lower is a defect in our
		// rules, not bad user input.
		p.log.Error("compiler rejected a validated plan", "error", err,
			"entity", pl.Entity, "operation", pl.Operation, "field", pl.Field)
		return 0, err
	}

	sql, args := query.SQL()
	p.log.Debug("executing aggregate", "sql", sql, "args", args)
	return p.store.Scalar(ctx, sql, args...)
}

func (p *Processor) reply(ctx context.Context, channel, threadTS, text, outcome string) {
	if err := p.slackClient.PostMessage(ctx, channel, text, threadTS); err != nil {
		SlackAPIErrorsTotal.WithLabelValues("post_message").Inc()
		return
	}
	RepliesTotal.WithLabelValues(outcome).Inc()
}
