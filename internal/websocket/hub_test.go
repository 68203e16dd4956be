package websocket

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, time.Millisecond)
}

func TestHubBroadcast(t *testing.T) {
	hub := runHub(t)

	alice := NewClient(nil, "alice")
	bob := NewClient(nil, "bob")
	hub.Register(alice)
	hub.Register(bob)
	waitFor(t, func() bool { return hub.ClientCount() == 2 })

	hub.Subscribe(alice, "conn:1")
	hub.Subscribe(bob, "conn:1")
	hub.Subscribe(bob, "conn:2")
	waitFor(t, func() bool { return hub.ChannelSubscriberCount("conn:1") == 2 })
	waitFor(t, func() bool { return hub.ChannelSubscriberCount("conn:2") == 1 })

	hub.Broadcast("conn:2", []byte("only bob"))

	select {
	case msg := <-bob.Send:
		assert.Equal(t, "only bob", string(msg))
	case <-time.After(time.Second):
		t.Fatal("bob never received the broadcast")
	}
	select {
	case msg := <-alice.Send:
		t.Fatalf("alice received %q for a channel she is not subscribed to", msg)
	default:
	}
}

func TestHubUnsubscribe(t *testing.T) {
	hub := runHub(t)

	client := NewClient(nil, "alice")
	hub.Register(client)
	hub.Subscribe(client, "user:alice")
	waitFor(t, func() bool { return hub.ChannelSubscriberCount("user:alice") == 1 })
	assert.True(t, client.IsSubscribed("user:alice"))

	hub.Unsubscribe(client, "user:alice")
	waitFor(t, func() bool { return hub.ChannelSubscriberCount("user:alice") == 0 })
	assert.False(t, client.IsSubscribed("user:alice"))

	hub.Broadcast("user:alice", []byte("late"))
	select {
	case <-client.Send:
		t.Fatal("received a broadcast after unsubscribing")
	default:
	}
}

func TestHubUnregisterCleansUp(t *testing.T) {
	hub := runHub(t)

	client := NewClient(nil, "alice")
	hub.Register(client)
	hub.Subscribe(client, "conn:1")
	waitFor(t, func() bool { return hub.ChannelSubscriberCount("conn:1") == 1 })

	hub.Unregister(client)
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
	assert.Equal(t, 0, hub.ChannelSubscriberCount("conn:1"))

	// The send channel is closed exactly once.
	_, open := <-client.Send
	assert.False(t, open)
}

func TestClientSendMessageNeverBlocks(t *testing.T) {
	client := NewClient(nil, "alice")
	for i := 0; i < cap(client.Send)+10; i++ {
		client.SendMessage([]byte("x"))
	}
	assert.Equal(t, cap(client.Send), len(client.Send), "overflow is dropped, not blocked on")
}
