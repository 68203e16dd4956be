package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"agrilink/internal/domain/catalog"
	"agrilink/internal/domain/connection"
	"agrilink/internal/domain/conversation"
	"agrilink/internal/domain/identity"
	"agrilink/internal/domain/notification"
	"agrilink/internal/events"
	"agrilink/internal/repository"
	agrilink_errors "agrilink/pkg/errors"
	"agrilink/pkg/logger"

	"github.com/google/uuid"
)

// MessagingService appends conversation items and fans them out. An
// ACCEPTED, non-resigned connection is the access-control gate for the
// whole conversation surface.
type MessagingService struct {
	connRepo      repository.ConnectionRepository
	convRepo      repository.ConversationRepository
	directory     repository.ProfileDirectory
	catalog       repository.CatalogReader
	notifications *NotificationService
	bus           events.Publisher
	log           *logger.Logger
}

func NewMessagingService(
	connRepo repository.ConnectionRepository,
	convRepo repository.ConversationRepository,
	directory repository.ProfileDirectory,
	catalog repository.CatalogReader,
	notifications *NotificationService,
	bus events.Publisher,
	log *logger.Logger,
) *MessagingService {
	return &MessagingService{
		connRepo:      connRepo,
		convRepo:      convRepo,
		directory:     directory,
		catalog:       catalog,
		notifications: notifications,
		bus:           bus,
		log:           log,
	}
}

// SendMessage persists a MESSAGE item and publishes it on the connection
// channel. clientRef is the caller's optimistic-send correlation id; it
// rides along on the persisted copy and the published event so the
// sender's UI can replace its local placeholder instead of duplicating.
func (s *MessagingService) SendMessage(ctx context.Context, principal Principal, connectionID uuid.UUID, content, clientRef string) (conversation.Item, error) {
	if strings.TrimSpace(content) == "" {
		return conversation.Item{}, agrilink_errors.ErrInvalidInput
	}

	sender, req, err := s.authorizeParty(ctx, principal, connectionID)
	if err != nil {
		return conversation.Item{}, err
	}
	if !req.Active() {
		return conversation.Item{}, agrilink_errors.ErrConnectionNotAccepted
	}

	item := conversation.Item{
		ConnectionID: connectionID,
		SenderID:     sender.ID,
		Type:         conversation.ItemTypeMessage,
		Message:      &conversation.MessagePayload{Content: content, ClientRef: clientRef},
	}
	if err := s.convRepo.Insert(ctx, &item); err != nil {
		return conversation.Item{}, err
	}

	s.publishItem(ctx, item)
	notifyOtherParty(ctx, s.directory, s.notifications, s.log, req, sender.ID, notification.Notification{
		Type:        notification.TypeNewMessage,
		Title:       "New message",
		Description: fmt.Sprintf("%s sent you a message", sender.Name),
		Link:        "/chat/" + req.ID.String(),
	})
	return item, nil
}

// FetchConversation returns the full ordered item list for a connection
// the caller is a party to.
func (s *MessagingService) FetchConversation(ctx context.Context, principal Principal, connectionID uuid.UUID) ([]conversation.Item, error) {
	_, _, err := s.authorizeParty(ctx, principal, connectionID)
	if err != nil {
		return nil, err
	}
	return s.convRepo.ListByConnection(ctx, connectionID)
}

// InquiryResult reports what RecordProductInquiry did: either the card
// was inserted into an accepted conversation, or it was queued behind a
// pending request (possibly one created on the spot).
type InquiryResult struct {
	Connection connection.Request `json:"connection"`
	Item       *conversation.Item `json:"item,omitempty"`
	Queued     bool               `json:"queued"`
}

// RecordProductInquiry is the catalog-to-chat convenience path. A buyer
// expressing interest without an accepted connection transparently
// creates the connection request; the inquiry card lands in the
// conversation once the connection is (or becomes) accepted.
func (s *MessagingService) RecordProductInquiry(ctx context.Context, principal Principal, productID uuid.UUID) (InquiryResult, error) {
	if principal.Role != identity.RoleBuyer {
		return InquiryResult{}, agrilink_errors.ErrForbidden
	}

	buyer, err := resolveProfile(ctx, s.directory, principal)
	if err != nil {
		return InquiryResult{}, err
	}

	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return InquiryResult{}, err
	}

	producer, err := s.directory.GetByID(ctx, product.ProducerID, identity.RoleProducer)
	if err != nil {
		if errors.Is(err, agrilink_errors.ErrNotFound) {
			return InquiryResult{}, agrilink_errors.ErrTargetNotFound
		}
		return InquiryResult{}, err
	}

	inquiry := inquiryFromProduct(product)

	req, err := s.connRepo.GetByPair(ctx, producer.ID, buyer.ID)
	if errors.Is(err, agrilink_errors.ErrNotFound) {
		return s.inquireWithNewConnection(ctx, buyer, producer, inquiry)
	}
	if err != nil {
		return InquiryResult{}, err
	}

	switch {
	case req.Active():
		item := conversation.Item{
			ConnectionID: req.ID,
			SenderID:     buyer.ID,
			Type:         conversation.ItemTypeProductInquiry,
			Inquiry:      inquiry,
		}
		if err := s.convRepo.Insert(ctx, &item); err != nil {
			return InquiryResult{}, err
		}
		s.publishItem(ctx, item)
		return InquiryResult{Connection: req, Item: &item}, nil

	case req.Status == connection.StatusPending:
		payload, err := json.Marshal(inquiry)
		if err != nil {
			return InquiryResult{}, err
		}
		if err := s.connRepo.SetPendingInquiry(ctx, req.ID, payload); err != nil {
			return InquiryResult{}, err
		}
		return InquiryResult{Connection: req, Queued: true}, nil

	case req.Status == connection.StatusRejected:
		return InquiryResult{}, agrilink_errors.ErrPreviouslyRejected

	default:
		// Accepted but resigned.
		return InquiryResult{}, agrilink_errors.ErrConnectionNotAccepted
	}
}

func (s *MessagingService) inquireWithNewConnection(ctx context.Context, buyer, producer identity.Profile, inquiry *conversation.InquiryPayload) (InquiryResult, error) {
	payload, err := json.Marshal(inquiry)
	if err != nil {
		return InquiryResult{}, err
	}

	req := &connection.Request{
		ProducerID:     producer.ID,
		BuyerID:        buyer.ID,
		Status:         connection.StatusPending,
		Initiator:      identity.RoleBuyer,
		PendingInquiry: payload,
	}
	if err := s.connRepo.Create(ctx, req); err != nil {
		// Lost a race with a concurrent request for the same pair; the
		// caller can retry against the now-existing connection.
		if errors.Is(err, agrilink_errors.ErrAlreadyExists) {
			return InquiryResult{}, agrilink_errors.ErrDuplicatePending
		}
		return InquiryResult{}, err
	}

	s.notifications.Notify(ctx, notification.Notification{
		UserID:      producer.UserID,
		Type:        notification.TypeConnectionRequest,
		Title:       "New connection request",
		Description: fmt.Sprintf("%s is interested in %s", buyer.Name, inquiry.ProductName),
		Link:        "/connections/requests",
	})

	return InquiryResult{Connection: *req, Queued: true}, nil
}

// authorizeParty resolves the caller's profile and checks it is one of
// the connection's two sides.
func (s *MessagingService) authorizeParty(ctx context.Context, principal Principal, connectionID uuid.UUID) (identity.Profile, connection.Request, error) {
	profile, err := resolveProfile(ctx, s.directory, principal)
	if err != nil {
		return identity.Profile{}, connection.Request{}, err
	}
	req, err := s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return identity.Profile{}, connection.Request{}, err
	}
	if !req.IsParty(profile.ID) {
		return identity.Profile{}, connection.Request{}, agrilink_errors.ErrForbidden
	}
	return profile, req, nil
}

func (s *MessagingService) publishItem(ctx context.Context, item conversation.Item) {
	env, err := events.NewEnvelope(events.EventNewMessage, item)
	if err != nil {
		s.log.Warnf("event encode failed for item %s: %v", item.ID, err)
		return
	}
	if err := s.bus.Publish(ctx, events.ConnectionChannel(item.ConnectionID.String()), env); err != nil {
		s.log.Warnf("event publish failed for item %s: %v", item.ID, err)
	}
}

func inquiryFromProduct(p catalog.ProductSnapshot) *conversation.InquiryPayload {
	return &conversation.InquiryPayload{
		ProductID:   p.ID,
		ProductName: p.Name,
		UnitPrice:   p.UnitPrice,
		Unit:        p.Unit,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
	}
}

func decodeInquiry(payload []byte) (*conversation.InquiryPayload, error) {
	inquiry := &conversation.InquiryPayload{}
	if err := json.Unmarshal(payload, inquiry); err != nil {
		return nil, err
	}
	return inquiry, nil
}
