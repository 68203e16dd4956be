package services

import (
	"context"
	"encoding/json"
	"testing"

	"agrilink/internal/domain/connection"
	"agrilink/internal/domain/conversation"
	"agrilink/internal/domain/identity"
	"agrilink/internal/domain/notification"
	"agrilink/internal/events"
	agrilink_errors "agrilink/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("appends and fans out", func(t *testing.T) {
		f := newFixture()
		producer, buyer, producerProfile, buyerProfile, req := f.acceptedPair()

		sent, err := f.messaging.SendMessage(ctx, buyer, req.ID, "Do you deliver on Fridays?", "client-ref-1")
		require.NoError(t, err)
		assert.Equal(t, buyerProfile.ID, sent.SenderID)
		assert.Equal(t, "client-ref-1", sent.Message.ClientRef)
		assert.Equal(t, int64(1), sent.Seq)

		reply, err := f.messaging.SendMessage(ctx, producer, req.ID, "Every Friday before noon.", "")
		require.NoError(t, err)
		assert.Equal(t, producerProfile.ID, reply.SenderID)
		assert.Equal(t, int64(2), reply.Seq)

		published := f.bus.onChannel(events.ConnectionChannel(req.ID.String()))
		require.Len(t, published, 2)
		for _, e := range published {
			assert.Equal(t, events.EventNewMessage, e.Envelope.Event)
		}

		// The correlation id survives the round trip through the envelope.
		var echoed conversation.Item
		require.NoError(t, json.Unmarshal(published[0].Envelope.Payload, &echoed))
		assert.Equal(t, "client-ref-1", echoed.Message.ClientRef)
		assert.Equal(t, sent.ID, echoed.ID)

		notified := f.notifs.byType(producerProfile.UserID, notification.TypeNewMessage)
		require.Len(t, notified, 1)
		assert.Contains(t, notified[0].Description, "Fresh Market Co")
	})

	t.Run("preserves per-connection order", func(t *testing.T) {
		f := newFixture()
		producer, buyer, _, _, req := f.acceptedPair()

		senders := []Principal{buyer, producer, buyer, buyer, producer}
		for i, p := range senders {
			_, err := f.messaging.SendMessage(ctx, p, req.ID, "message", "")
			require.NoError(t, err, "send %d", i)
		}

		items, err := f.messaging.FetchConversation(ctx, buyer, req.ID)
		require.NoError(t, err)
		require.Len(t, items, len(senders))
		for i, item := range items {
			assert.Equal(t, int64(i+1), item.Seq, "sequence numbers are dense and strictly increasing")
		}
	})

	t.Run("empty content", func(t *testing.T) {
		f := newFixture()
		_, buyer, _, _, req := f.acceptedPair()
		_, err := f.messaging.SendMessage(ctx, buyer, req.ID, "   ", "")
		assert.ErrorIs(t, err, agrilink_errors.ErrInvalidInput)
	})

	t.Run("outsider", func(t *testing.T) {
		f := newFixture()
		_, _, _, _, req := f.acceptedPair()
		outsider, _ := f.newParty(identity.RoleBuyer, "Corner Shop")
		_, err := f.messaging.SendMessage(ctx, outsider, req.ID, "hello", "")
		assert.ErrorIs(t, err, agrilink_errors.ErrForbidden)
	})

	t.Run("unknown connection", func(t *testing.T) {
		f := newFixture()
		buyer, _ := f.newParty(identity.RoleBuyer, "Fresh Market Co")
		_, err := f.messaging.SendMessage(ctx, buyer, uuid.New(), "hello", "")
		assert.ErrorIs(t, err, agrilink_errors.ErrNotFound)
	})
}

func TestSendMessageRequiresActiveConnection(t *testing.T) {
	ctx := context.Background()

	t.Run("pending", func(t *testing.T) {
		f := newFixture()
		buyer, _ := f.newParty(identity.RoleBuyer, "Fresh Market Co")
		_, producerProfile := f.newParty(identity.RoleProducer, "Green Valley Farms")
		req, err := f.connections.RequestConnection(ctx, buyer, producerProfile.ID, "")
		require.NoError(t, err)

		_, err = f.messaging.SendMessage(ctx, buyer, req.ID, "hello", "")
		assert.ErrorIs(t, err, agrilink_errors.ErrConnectionNotAccepted)
	})

	t.Run("rejected", func(t *testing.T) {
		f := newFixture()
		buyer, _ := f.newParty(identity.RoleBuyer, "Fresh Market Co")
		producer, producerProfile := f.newParty(identity.RoleProducer, "Green Valley Farms")
		req, err := f.connections.RequestConnection(ctx, buyer, producerProfile.ID, "")
		require.NoError(t, err)
		_, err = f.connections.RespondToConnection(ctx, producer, req.ID, connection.StatusRejected)
		require.NoError(t, err)

		_, err = f.messaging.SendMessage(ctx, buyer, req.ID, "hello", "")
		assert.ErrorIs(t, err, agrilink_errors.ErrConnectionNotAccepted)
	})

	t.Run("resigned", func(t *testing.T) {
		f := newFixture()
		producer, buyer, _, _, req := f.acceptedPair()
		require.NoError(t, f.connections.ResignConnection(ctx, producer, req.ID))

		// Neither side may write after a resignation, including the one
		// that resigned.
		_, err := f.messaging.SendMessage(ctx, buyer, req.ID, "hello", "")
		assert.ErrorIs(t, err, agrilink_errors.ErrConnectionNotAccepted)
		_, err = f.messaging.SendMessage(ctx, producer, req.ID, "hello", "")
		assert.ErrorIs(t, err, agrilink_errors.ErrConnectionNotAccepted)

		// Reading history is still allowed.
		_, err = f.messaging.FetchConversation(ctx, buyer, req.ID)
		assert.NoError(t, err)
	})
}

func TestRecordProductInquiry(t *testing.T) {
	ctx := context.Background()

	t.Run("no connection creates one with queued inquiry", func(t *testing.T) {
		f := newFixture()
		buyer, buyerProfile := f.newParty(identity.RoleBuyer, "Fresh Market Co")
		producer, producerProfile := f.newParty(identity.RoleProducer, "Green Valley Farms")
		product := f.catalog.add(producerProfile.ID, "Heirloom Tomatoes", "2.50")

		result, err := f.messaging.RecordProductInquiry(ctx, buyer, product.ID)
		require.NoError(t, err)
		assert.True(t, result.Queued)
		assert.Nil(t, result.Item)
		assert.Equal(t, connection.StatusPending, result.Connection.Status)
		assert.Equal(t, identity.RoleBuyer, result.Connection.Initiator)
		assert.NotEmpty(t, result.Connection.PendingInquiry)

		requests := f.notifs.byType(producerProfile.UserID, notification.TypeConnectionRequest)
		require.Len(t, requests, 1)
		assert.Contains(t, requests[0].Description, "Heirloom Tomatoes")

		// Acceptance replays the inquiry as the first conversation item.
		_, err = f.connections.RespondToConnection(ctx, producer, result.Connection.ID, connection.StatusAccepted)
		require.NoError(t, err)

		items, err := f.messaging.FetchConversation(ctx, buyer, result.Connection.ID)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, conversation.ItemTypeProductInquiry, items[0].Type)
		assert.Equal(t, buyerProfile.ID, items[0].SenderID)
		assert.Equal(t, product.ID, items[0].Inquiry.ProductID)
		assert.True(t, items[0].Inquiry.UnitPrice.Equal(product.UnitPrice))
	})

	t.Run("active connection inserts immediately", func(t *testing.T) {
		f := newFixture()
		_, buyer, producerProfile, _, req := f.acceptedPair()
		product := f.catalog.add(producerProfile.ID, "Heirloom Tomatoes", "2.50")

		result, err := f.messaging.RecordProductInquiry(ctx, buyer, product.ID)
		require.NoError(t, err)
		assert.False(t, result.Queued)
		require.NotNil(t, result.Item)
		assert.Equal(t, req.ID, result.Item.ConnectionID)
		assert.Equal(t, conversation.ItemTypeProductInquiry, result.Item.Type)

		published := f.bus.onChannel(events.ConnectionChannel(req.ID.String()))
		require.Len(t, published, 1)
	})

	t.Run("pending connection queues behind it", func(t *testing.T) {
		f := newFixture()
		buyer, _ := f.newParty(identity.RoleBuyer, "Fresh Market Co")
		_, producerProfile := f.newParty(identity.RoleProducer, "Green Valley Farms")
		req, err := f.connections.RequestConnection(ctx, buyer, producerProfile.ID, "Interested in collaborating")
		require.NoError(t, err)

		product := f.catalog.add(producerProfile.ID, "Heirloom Tomatoes", "2.50")
		result, err := f.messaging.RecordProductInquiry(ctx, buyer, product.ID)
		require.NoError(t, err)
		assert.True(t, result.Queued)
		assert.Equal(t, req.ID, result.Connection.ID)

		stored, err := f.conns.GetByID(ctx, req.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, stored.PendingInquiry)
	})

	t.Run("rejected pair", func(t *testing.T) {
		f := newFixture()
		buyer, _ := f.newParty(identity.RoleBuyer, "Fresh Market Co")
		producer, producerProfile := f.newParty(identity.RoleProducer, "Green Valley Farms")
		req, err := f.connections.RequestConnection(ctx, buyer, producerProfile.ID, "")
		require.NoError(t, err)
		_, err = f.connections.RespondToConnection(ctx, producer, req.ID, connection.StatusRejected)
		require.NoError(t, err)

		product := f.catalog.add(producerProfile.ID, "Heirloom Tomatoes", "2.50")
		_, err = f.messaging.RecordProductInquiry(ctx, buyer, product.ID)
		assert.ErrorIs(t, err, agrilink_errors.ErrPreviouslyRejected)
	})

	t.Run("resigned pair", func(t *testing.T) {
		f := newFixture()
		producer, buyer, producerProfile, _, req := f.acceptedPair()
		require.NoError(t, f.connections.ResignConnection(ctx, producer, req.ID))

		product := f.catalog.add(producerProfile.ID, "Heirloom Tomatoes", "2.50")
		_, err := f.messaging.RecordProductInquiry(ctx, buyer, product.ID)
		assert.ErrorIs(t, err, agrilink_errors.ErrConnectionNotAccepted)
	})

	t.Run("producers cannot inquire", func(t *testing.T) {
		f := newFixture()
		producer, producerProfile := f.newParty(identity.RoleProducer, "Green Valley Farms")
		product := f.catalog.add(producerProfile.ID, "Heirloom Tomatoes", "2.50")

		_, err := f.messaging.RecordProductInquiry(ctx, producer, product.ID)
		assert.ErrorIs(t, err, agrilink_errors.ErrForbidden)
	})

	t.Run("unknown product", func(t *testing.T) {
		f := newFixture()
		buyer, _ := f.newParty(identity.RoleBuyer, "Fresh Market Co")
		_, err := f.messaging.RecordProductInquiry(ctx, buyer, uuid.New())
		assert.ErrorIs(t, err, agrilink_errors.ErrNotFound)
	})
}
