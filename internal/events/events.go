package events

import (
	"context"
	"encoding/json"
	"time"
)

// Event names carried on the wire. Subscribers must tolerate duplicate
// delivery and deduplicate on the payload's canonical id (or client_ref
// when it matches a locally pending item).
const (
	EventNewMessage        = "new-message"
	EventNewNotification   = "new-notification"
	EventQuoteStatusUpdate = "quote-status-update"
)

// Channel namespaces. Per-user channels carry notifications; per-connection
// channels carry conversation items and quote status changes.
const (
	channelPrefixUser       = "user:"
	channelPrefixConnection = "conn:"
)

func UserChannel(userID string) string {
	return channelPrefixUser + userID
}

func ConnectionChannel(connectionID string) string {
	return channelPrefixConnection + connectionID
}

// AllPatterns matches every channel this service publishes to.
func AllPatterns() []string {
	return []string{channelPrefixUser + "*", channelPrefixConnection + "*"}
}

// Envelope wraps every published event.
type Envelope struct {
	Event      string          `json:"event"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func NewEnvelope(event string, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, OccurredAt: time.Now().UTC(), Payload: data}, nil
}

// QuoteStatusPayload is the payload of a quote-status-update event.
type QuoteStatusPayload struct {
	QuoteID string `json:"quote_id"`
	Status  string `json:"status"`
}

// Publisher delivers transient events to live subscribers. It is not a
// durable queue: a subscriber that was offline recovers by re-fetching
// authoritative state on reconnect.
type Publisher interface {
	Publish(ctx context.Context, channel string, env Envelope) error
}

// Subscriber is a long-lived pattern subscription bound to the lifetime
// of ctx.
type Subscriber interface {
	Subscribe(ctx context.Context, patterns []string, handler func(channel string, payload []byte)) error
}

// Bus combines both sides; services depend on Publisher only.
type Bus interface {
	Publisher
	Subscriber
}
