package redis

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/mosaic-network/walletx/pkg/store"
)

// Channel and stream naming for mirrored record events.
const (
	channelPrefix = "walletx:records:"
	streamPrefix  = "walletx:stream:"
)

// mirrorTimeout bounds each best-effort publish so a slow Redis cannot
// stall the store's publish path.
const mirrorTimeout = 2 * time.Second

// recordEvent is the wire form of one mirrored record update.
type recordEvent struct {
	Category string `json:"category"`
	Kind     string `json:"kind"`
	Key      string `json:"key"`
	Height   uint64 `json:"height,omitempty"`
}

// Mirror forwards store record events to Redis Pub/Sub and Streams.
// It implements store.EventSink; distribution is best-effort and never
// surfaces errors into the store.
type Mirror struct {
	client *Client
	logger *zap.Logger
}

var _ store.EventSink = (*Mirror)(nil)

// NewMirror wraps a connected client as an event sink.
func NewMirror(client *Client, logger *zap.Logger) *Mirror {
	return &Mirror{client: client, logger: logger}
}

// RecordUpdated publishes one record event under its category channel and
// appends it to the category stream.
func (m *Mirror) RecordUpdated(category store.Category, r store.Record) {
	event := recordEvent{
		Category: string(category),
		Kind:     r.Kind.String(),
	}
	switch r.Kind {
	case store.KindNote:
		event.Key = r.Note.Commitment.String()
		event.Height = r.Note.HeightSpent
	case store.KindSwap:
		event.Key = r.Swap.Commitment.String()
		event.Height = r.Swap.HeightClaimed
	case store.KindTransaction:
		event.Key = r.Tx.ID.String()
		event.Height = r.Tx.Height
	}

	payload, err := json.Marshal(event)
	if err != nil {
		m.logger.Warn("Failed to encode record event", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()

	m.client.Publish(ctx, channelPrefix+string(category), payload)
	m.client.XAdd(ctx, streamPrefix+string(category), map[string]interface{}{
		"kind":   event.Kind,
		"key":    event.Key,
		"height": event.Height,
	})
}
