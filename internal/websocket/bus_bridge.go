package websocket

import (
	"context"

	"agrilink/internal/events"
)

// BusBridge pipes every event the service publishes into the hub, which
// fans it out to the websocket clients subscribed to that channel.
type BusBridge struct {
	subscriber events.Subscriber
	hub        *Hub
}

func NewBusBridge(subscriber events.Subscriber, hub *Hub) *BusBridge {
	return &BusBridge{subscriber: subscriber, hub: hub}
}

func (b *BusBridge) Run(ctx context.Context) error {
	return b.subscriber.Subscribe(ctx, events.AllPatterns(), func(channel string, payload []byte) {
		b.hub.Broadcast(channel, payload)
	})
}
