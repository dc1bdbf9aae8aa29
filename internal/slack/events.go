package slack

import (
	"context"
	"log/slog"
	"strings"

	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"
)

// EventHandler consumes Socket Mode events and dispatches user messages to
// the processor. DMs are answered directly; in channels the bot answers
// only when mentioned.
type EventHandler struct {
	slackClient *Client
	processor   *Processor
	log         *slog.Logger
}

// NewEventHandler creates an event handler.
func NewEventHandler(slackClient *Client, processor *Processor, log *slog.Logger) *EventHandler {
	return &EventHandler{
		slackClient: slackClient,
		processor:   processor,
		log:         log,
	}
}

// HandleSocketMode processes events until ctx is cancelled or the event
// stream closes.
func (h *EventHandler) HandleSocketMode(ctx context.Context, client *socketmode.Client) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-client.Events:
			if !ok {
				return nil
			}
			switch evt.Type {
			case socketmode.EventTypeConnecting:
				h.log.Info("connecting to slack")
			case socketmode.EventTypeConnected:
				h.log.Info("connected to slack")
			case socketmode.EventTypeConnectionError:
				h.log.Warn("slack connection error", "data", evt.Data)
			case socketmode.EventTypeEventsAPI:
				eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				if evt.Request != nil {
					client.Ack(*evt.Request)
				}
				EventsReceivedTotal.WithLabelValues(string(eventsAPIEvent.InnerEvent.Type)).Inc()
				h.handleEvent(ctx, eventsAPIEvent)
			}
		}
	}
}

func (h *EventHandler) handleEvent(ctx context.Context, e slackevents.EventsAPIEvent) {
	if e.Type != slackevents.CallbackEvent {
		return
	}

	switch ev := e.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		// Own and system messages never get a reply.
		if ev.BotID != "" || ev.SubType != "" || ev.User == h.slackClient.BotUserID() {
			return
		}
		// Plain messages are handled in DMs only; channel messages arrive
		// as app_mention events.
		if !strings.HasPrefix(ev.Channel, "D") {
			return
		}
		h.dispatch(ctx, ev.Channel, ev.TimeStamp, ev.Text)
	case *slackevents.AppMentionEvent:
		if ev.User == h.slackClient.BotUserID() {
			return
		}
		h.dispatch(ctx, ev.Channel, ev.TimeStamp, ev.Text)
	}
}

// dispatch deduplicates redelivered events and answers each message on its
// own goroutine.
func (h *EventHandler) dispatch(ctx context.Context, channel, messageTS, text string) {
	key := channel + ":" + messageTS
	if h.processor.HasResponded(key) {
		EventsDuplicateTotal.Inc()
		h.log.Debug("skipping duplicate event", "message_key", key)
		return
	}
	h.processor.MarkResponded(key)

	go h.processor.Process(ctx, channel, messageTS, text)
}
