package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

// ConnectionService enforces the request/respond/resign state machine.
// Authorization and state-conflict failures are returned synchronously
// with a distinct error kind; notification and bus side effects are
// best-effort and never block the primary write.
type ConnectionService struct {
	connRepo      repository.ConnectionRepository
	directory     repository.ProfileDirectory
	notifications *NotificationService
	bus           events.Publisher
	log           *logger.Logger
}

func NewConnectionService(
	connRepo repository.ConnectionRepository,
	directory repository.ProfileDirectory,
	notifications *NotificationService,
	bus events.Publisher,
	log *logger.Logger,
) *ConnectionService {
	return &ConnectionService{
		connRepo:      connRepo,
		directory:     directory,
		notifications: notifications,
		bus:           bus,
		log:           log,
	}
}

// resolveProfile maps the authenticated principal to its business
// profile. A principal without a profile cannot act.
func resolveProfile(ctx context.Context, directory repository.ProfileDirectory, p Principal) (identity.Profile, error) {
	profile, err := directory.GetByUser(ctx, p.UserID, p.Role)
	if err != nil {
		if errors.Is(err, agrilink_errors.ErrNotFound) {
			return identity.Profile{}, agrilink_errors.ErrProfileIncomplete
		}
		return identity.Profile{}, err
	}
	return profile, nil
}

// RequestConnection creates a PENDING relationship from the caller
// toward the target profile of the opposite role. The pair-uniqueness
// check is the database constraint, not a read-then-write: when the
// insert loses a race the existing row classifies the conflict.
func (s *ConnectionService) RequestConnection(ctx context.Context, principal Principal, targetProfileID uuid.UUID, introMessage string) (connection.Request, error) {
	initiator, err := resolveProfile(ctx, s.directory, principal)
	if err != nil {
		return connection.Request{}, err
	}

	target, err := s.directory.GetByID(ctx, targetProfileID, principal.Role.Counterpart())
	if err != nil {
		if errors.Is(err, agrilink_errors.ErrNotFound) {
			return connection.Request{}, agrilink_errors.ErrTargetNotFound
		}
		return connection.Request{}, err
	}

	req := &connection.Request{
		Status:    connection.StatusPending,
		Initiator: principal.Role,
	}
	if principal.Role == identity.RoleProducer {
		req.ProducerID = initiator.ID
		req.BuyerID = target.ID
	} else {
		req.ProducerID = target.ID
		req.BuyerID = initiator.ID
	}
	if introMessage != "" {
		req.IntroMessage = sql.NullString{String: introMessage, Valid: true}
	}

	if err := s.connRepo.Create(ctx, req); err != nil {
		if errors.Is(err, agrilink_errors.ErrAlreadyExists) {
			return connection.Request{}, s.classifyPairConflict(ctx, req.ProducerID, req.BuyerID)
		}
		return connection.Request{}, err
	}

	s.notifications.Notify(ctx, notification.Notification{
		UserID:      target.UserID,
		Type:        notification.TypeConnectionRequest,
		Title:       "New connection request",
		Description: fmt.Sprintf("%s wants to connect with you", initiator.Name),
		Link:        "/connections/requests",
	})

	return *req, nil
}

func (s *ConnectionService) classifyPairConflict(ctx context.Context, producerID, buyerID uuid.UUID) error {
	existing, err := s.connRepo.GetByPair(ctx, producerID, buyerID)
	if err != nil {
		return agrilink_errors.ErrDuplicatePending
	}
	switch existing.Status {
	case connection.StatusAccepted:
		return agrilink_errors.ErrAlreadyConnected
	case connection.StatusRejected:
		// Deliberate anti-spam policy: a rejected pair may not re-request.
		return agrilink_errors.ErrPreviouslyRejected
	default:
		return agrilink_errors.ErrDuplicatePending
	}
}

// RespondToConnection resolves a pending request exactly once. Only the
// non-initiating party may act. On acceptance the stored intro message
// (and any queued product inquiry) becomes the start of the durable
// conversation, attributed to its original author.
func (s *ConnectionService) RespondToConnection(ctx context.Context, principal Principal, connectionID uuid.UUID, decision connection.Status) (connection.Request, error) {
	if decision != connection.StatusAccepted && decision != connection.StatusRejected {
		return connection.Request{}, agrilink_errors.ErrInvalidInput
	}

	responder, err := resolveProfile(ctx, s.directory, principal)
	if err != nil {
		return connection.Request{}, err
	}

	req, err := s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return connection.Request{}, err
	}

	if req.InitiatorProfileID() == responder.ID {
		return connection.Request{}, agrilink_errors.ErrSelfResponse
	}
	if req.RecipientProfileID() != responder.ID {
		return connection.Request{}, agrilink_errors.ErrForbidden
	}
	if req.Status != connection.StatusPending {
		return connection.Request{}, agrilink_errors.ErrAlreadyResolved
	}

	var migrated []*conversation.Item
	if decision == connection.StatusAccepted {
		migrated = s.migratedItems(req)
	}

	updated, err := s.connRepo.Resolve(ctx, connectionID, decision, migrated)
	if err != nil {
		return connection.Request{}, err
	}
	if !updated {
		return connection.Request{}, agrilink_errors.ErrAlreadyResolved
	}

	if decision == connection.StatusAccepted {
		for _, item := range migrated {
			s.publishItem(ctx, *item)
		}
		if initiator, err := s.directory.GetByID(ctx, req.InitiatorProfileID(), req.Initiator); err == nil {
			s.notifications.Notify(ctx, notification.Notification{
				UserID:      initiator.UserID,
				Type:        notification.TypeConnectionAccepted,
				Title:       "Connection accepted",
				Description: fmt.Sprintf("%s accepted your connection request", responder.Name),
				Link:        "/chat/" + req.ID.String(),
			})
		} else {
			s.log.Warnf("initiator lookup failed for connection %s: %v", req.ID, err)
		}
	}

	req, err = s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return connection.Request{}, err
	}
	return req, nil
}

// migratedItems builds the pre-acceptance content replayed into the
// conversation: the initiator's pitch first, then any queued inquiry.
func (s *ConnectionService) migratedItems(req connection.Request) []*conversation.Item {
	var items []*conversation.Item
	if req.IntroMessage.Valid {
		items = append(items, &conversation.Item{
			ConnectionID: req.ID,
			SenderID:     req.InitiatorProfileID(),
			Type:         conversation.ItemTypeMessage,
			Message:      &conversation.MessagePayload{Content: req.IntroMessage.String},
		})
	}
	if len(req.PendingInquiry) > 0 {
		inquiry, err := decodeInquiry(req.PendingInquiry)
		if err != nil {
			s.log.Warnf("dropping undecodable queued inquiry on connection %s: %v", req.ID, err)
			return items
		}
		items = append(items, &conversation.Item{
			ConnectionID: req.ID,
			SenderID:     req.BuyerID,
			Type:         conversation.ItemTypeProductInquiry,
			Inquiry:      inquiry,
		})
	}
	return items
}

// ResignConnection lets either party unilaterally terminate an accepted
// relationship. Irreversible. Conversation history is retained for
// audit; only live chat capability is revoked.
func (s *ConnectionService) ResignConnection(ctx context.Context, principal Principal, connectionID uuid.UUID) error {
	profile, err := resolveProfile(ctx, s.directory, principal)
	if err != nil {
		return err
	}

	req, err := s.connRepo.GetByID(ctx, connectionID)
	if err != nil {
		return err
	}
	if !req.IsParty(profile.ID) {
		return agrilink_errors.ErrForbidden
	}
	if req.Status != connection.StatusAccepted {
		return agrilink_errors.ErrConnectionNotAccepted
	}

	resigned, err := s.connRepo.Resign(ctx, connectionID, profile.ID)
	if err != nil {
		return err
	}
	if !resigned {
		return agrilink_errors.ErrAlreadyResolved
	}
	return nil
}

// ListConnections returns the caller's relationships, optionally
// filtered by status.
func (s *ConnectionService) ListConnections(ctx context.Context, principal Principal, status *connection.Status) ([]connection.Request, error) {
	profile, err := resolveProfile(ctx, s.directory, principal)
	if err != nil {
		return nil, err
	}
	return s.connRepo.ListByProfile(ctx, profile.ID, status)
}

// ListIncomingRequests returns pending requests awaiting the caller's
// decision.
func (s *ConnectionService) ListIncomingRequests(ctx context.Context, principal Principal) ([]connection.Request, error) {
	profile, err := resolveProfile(ctx, s.directory, principal)
	if err != nil {
		return nil, err
	}
	pending := connection.StatusPending
	all, err := s.connRepo.ListByProfile(ctx, profile.ID, &pending)
	if err != nil {
		return nil, err
	}
	var out []connection.Request
	for _, req := range all {
		if req.RecipientProfileID() == profile.ID {
			out = append(out, req)
		}
	}
	return out, nil
}

// publishItem emits a new-message event on the connection channel.
// Fire-and-forget: failures are logged, never propagated.
func (s *ConnectionService) publishItem(ctx context.Context, item conversation.Item) {
	env, err := events.NewEnvelope(events.EventNewMessage, item)
	if err != nil {
		s.log.Warnf("event encode failed for item %s: %v", item.ID, err)
		return
	}
	if err := s.bus.Publish(ctx, events.ConnectionChannel(item.ConnectionID.String()), env); err != nil {
		s.log.Warnf("event publish failed for item %s: %v", item.ID, err)
	}
}
