package events

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
)

// MemoryBus is an in-process Bus used by tests and single-node setups.
// Delivery is synchronous under a single lock, which preserves per-channel
// publish order for subscribers.
type MemoryBus struct {
	mu   sync.Mutex
	subs []*memorySub
}

type memorySub struct {
	patterns []string
	handler  func(channel string, payload []byte)
	done     <-chan struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) Publish(ctx context.Context, channel string, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		select {
		case <-sub.done:
			continue
		default:
		}
		if matchesAny(sub.patterns, channel) {
			sub.handler(channel, data)
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, patterns []string, handler func(channel string, payload []byte)) error {
	sub := &memorySub{patterns: patterns, handler: handler, done: ctx.Done()}

	b.mu.Lock()
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	<-ctx.Done()

	b.mu.Lock()
	for i, s := range b.subs {
		if s == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			break
		}
	}
	b.mu.Unlock()
	return ctx.Err()
}

func matchesAny(patterns []string, channel string) bool {
	for _, p := range patterns {
		if p == channel {
			return true
		}
		if prefix, ok := strings.CutSuffix(p, "*"); ok && strings.HasPrefix(channel, prefix) {
			return true
		}
	}
	return false
}
