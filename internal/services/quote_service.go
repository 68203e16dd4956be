package services

import (
	"context"
	"fmt"
	"strings"

	"agrilink/internal/domain/conversation"
	"agrilink/internal/domain/notification"
	"agrilink/internal/domain/quote"
	"agrilink/internal/events"
	"agrilink/internal/repository"
	agrilink_errors "agrilink/pkg/errors"
	"agrilink/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteService manages the negotiation sub-state-machine carried inside
// the message stream. Amounts are exact decimals end to end; floats
// never touch commercial totals.
type QuoteService struct {
	connRepo      repository.ConnectionRepository
	convRepo      repository.ConversationRepository
	directory     repository.ProfileDirectory
	notifications *NotificationService
	bus           events.Publisher
	log           *logger.Logger
}

func NewQuoteService(
	connRepo repository.ConnectionRepository,
	convRepo repository.ConversationRepository,
	directory repository.ProfileDirectory,
	notifications *NotificationService,
	bus events.Publisher,
	log *logger.Logger,
) *QuoteService {
	return &QuoteService{
		connRepo:      connRepo,
		convRepo:      convRepo,
		directory:     directory,
		notifications: notifications,
		bus:           bus,
		log:           log,
	}
}

type CreateQuoteInput struct {
	ConnectionID uuid.UUID
	ProductName  string
	Quantity     decimal.Decimal
	UnitPrice    decimal.Decimal
	Currency     string
	Notes        string
}

// CreateQuote persists a QUOTE item with status PENDING. The total is
// quantity * unit price, computed here once and stored; it is never
// re-derived later.
func (s *QuoteService) CreateQuote(ctx context.Context, principal Principal, in CreateQuoteInput) (conversation.Item, error) {
	if strings.TrimSpace(in.ProductName) == "" || !in.Quantity.IsPositive() || !in.UnitPrice.IsPositive() {
		return conversation.Item{}, agrilink_errors.ErrInvalidInput
	}
	if in.Currency == "" {
		in.Currency = "USD"
	}

	sender, err := resolveProfile(ctx, s.directory, principal)
	if err != nil {
		return conversation.Item{}, err
	}
	req, err := s.connRepo.GetByID(ctx, in.ConnectionID)
	if err != nil {
		return conversation.Item{}, err
	}
	if !req.IsParty(sender.ID) {
		return conversation.Item{}, agrilink_errors.ErrForbidden
	}
	if !req.Active() {
		return conversation.Item{}, agrilink_errors.ErrConnectionNotAccepted
	}

	item := conversation.Item{
		ConnectionID: in.ConnectionID,
		SenderID:     sender.ID,
		Type:         conversation.ItemTypeQuote,
		Quote: &conversation.QuotePayload{
			ProductName: in.ProductName,
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			TotalAmount: in.Quantity.Mul(in.UnitPrice),
			Currency:    in.Currency,
			Notes:       in.Notes,
			Status:      quote.StatusPending,
		},
	}
	if err := s.convRepo.Insert(ctx, &item); err != nil {
		return conversation.Item{}, err
	}

	s.publishItem(ctx, item)
	notifyOtherParty(ctx, s.directory, s.notifications, s.log, req, sender.ID, notification.Notification{
		Type:        notification.TypeNewQuote,
		Title:       "New quote",
		Description: fmt.Sprintf("%s sent a quote for %s", sender.Name, in.ProductName),
		Link:        "/chat/" + req.ID.String(),
	})
	return item, nil
}

// RespondToQuote resolves a pending quote exactly once. Only the party
// who did not send the quote may act.
func (s *QuoteService) RespondToQuote(ctx context.Context, principal Principal, quoteID uuid.UUID, decision quote.Status) (conversation.Item, error) {
	if decision != quote.StatusAccepted && decision != quote.StatusDeclined {
		return conversation.Item{}, agrilink_errors.ErrInvalidInput
	}

	responder, err := resolveProfile(ctx, s.directory, principal)
	if err != nil {
		return conversation.Item{}, err
	}

	item, err := s.convRepo.GetItem(ctx, quoteID)
	if err != nil {
		return conversation.Item{}, err
	}
	if item.Type != conversation.ItemTypeQuote || item.Quote == nil {
		return conversation.Item{}, agrilink_errors.ErrNotFound
	}

	req, err := s.connRepo.GetByID(ctx, item.ConnectionID)
	if err != nil {
		return conversation.Item{}, err
	}
	if !req.IsParty(responder.ID) {
		return conversation.Item{}, agrilink_errors.ErrForbidden
	}
	if item.SenderID == responder.ID {
		// Cannot accept your own quote.
		return conversation.Item{}, agrilink_errors.ErrForbidden
	}
	if item.Quote.Status != quote.StatusPending {
		return conversation.Item{}, agrilink_errors.ErrAlreadyResolved
	}

	resolved, err := s.convRepo.ResolveQuote(ctx, quoteID, decision)
	if err != nil {
		return conversation.Item{}, err
	}
	if !resolved {
		return conversation.Item{}, agrilink_errors.ErrAlreadyResolved
	}
	item.Quote.Status = decision

	s.publishStatus(ctx, item.ConnectionID, quoteID, decision)
	if decision == quote.StatusAccepted {
		notifyOtherParty(ctx, s.directory, s.notifications, s.log, req, responder.ID, notification.Notification{
			Type:        notification.TypeQuoteAccepted,
			Title:       "Quote accepted",
			Description: fmt.Sprintf("%s accepted your quote for %s", responder.Name, item.Quote.ProductName),
			Link:        "/chat/" + req.ID.String(),
		})
	}
	return item, nil
}

func (s *QuoteService) publishItem(ctx context.Context, item conversation.Item) {
	env, err := events.NewEnvelope(events.EventNewMessage, item)
	if err != nil {
		s.log.Warnf("event encode failed for quote %s: %v", item.ID, err)
		return
	}
	if err := s.bus.Publish(ctx, events.ConnectionChannel(item.ConnectionID.String()), env); err != nil {
		s.log.Warnf("event publish failed for quote %s: %v", item.ID, err)
	}
}

func (s *QuoteService) publishStatus(ctx context.Context, connectionID, quoteID uuid.UUID, status quote.Status) {
	env, err := events.NewEnvelope(events.EventQuoteStatusUpdate, events.QuoteStatusPayload{
		QuoteID: quoteID.String(),
		Status:  string(status),
	})
	if err != nil {
		s.log.Warnf("event encode failed for quote %s: %v", quoteID, err)
		return
	}
	if err := s.bus.Publish(ctx, events.ConnectionChannel(connectionID.String()), env); err != nil {
		s.log.Warnf("event publish failed for quote %s: %v", quoteID, err)
	}
}
