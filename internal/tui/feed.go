package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	sse "github.com/r3labs/sse/v2"
	"github.com/wheelibin/hughbridge/internal/server"
)

var errEventWithoutLight = errors.New("event without a light number")

// Feed follows a bridge's live light feed and turns each event into a message
// for the model.
type Feed struct {
	logger *log.Logger
	client *sse.Client
}

// NewFeed connects to the admin server at adminURL, e.g. http://localhost:8081.
func NewFeed(logger *log.Logger, adminURL string) *Feed {
	client := sse.NewClient(strings.TrimSuffix(adminURL, "/") + "/events")
	return &Feed{logger: logger, client: client}
}

// Run sends messages until ctx is cancelled, which also ends the subscription.
func (f *Feed) Run(ctx context.Context, send func(tea.Msg)) error {
	f.client.OnConnect(func(_ *sse.Client) {
		f.logger.Info("Connected to bridge, listening for events...")
		send(connectionMessage{connected: true})
	})
	f.client.OnDisconnect(func(_ *sse.Client) {
		f.logger.Info("Disconnected from bridge")
		send(connectionMessage{connected: false})
	})

	events := make(chan *sse.Event)
	if err := f.client.SubscribeChanWithContext(ctx, server.LightsStream, events); err != nil {
		return fmt.Errorf("error subscribing to light updates: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-events:
			if event == nil || len(event.Data) == 0 {
				continue
			}
			msg, err := decodeEvent(event.Data)
			if err != nil {
				f.logger.Warn("ignoring malformed event", "err", err)
				continue
			}
			send(msg)
		}
	}
}

func decodeEvent(data []byte) (tea.Msg, error) {
	var event lightEventMessage
	if err := json.Unmarshal(data, &event.event); err != nil {
		return nil, err
	}
	if event.event.Light <= 0 {
		return nil, errEventWithoutLight
	}
	return event, nil
}
