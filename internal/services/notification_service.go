package services

import (
	"context"

	"agrilink/internal/domain/connection"
	"agrilink/internal/domain/identity"
	"agrilink/internal/domain/notification"
	"agrilink/internal/events"
	"agrilink/internal/repository"
	"agrilink/pkg/logger"

	"github.com/google/uuid"
)

type NotificationService struct {
	repo repository.NotificationRepository
	bus  events.Publisher
	log  *logger.Logger
}

func NewNotificationService(repo repository.NotificationRepository, bus events.Publisher, log *logger.Logger) *NotificationService {
	return &NotificationService{repo: repo, bus: bus, log: log}
}

// Notify writes a notification and publishes it on the recipient's
// personal channel. Both steps are best-effort: a failure is logged and
// swallowed so it can never fail the mutation that triggered it.
func (s *NotificationService) Notify(ctx context.Context, n notification.Notification) {
	if err := s.repo.Create(ctx, &n); err != nil {
		s.log.Warnf("notification write failed for user %s: %v", n.UserID, err)
		return
	}

	env, err := events.NewEnvelope(events.EventNewNotification, n)
	if err != nil {
		s.log.Warnf("notification encode failed: %v", err)
		return
	}
	if err := s.bus.Publish(ctx, events.UserChannel(n.UserID.String()), env); err != nil {
		s.log.Warnf("notification publish failed for user %s: %v", n.UserID, err)
	}
}

func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]notification.Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly)
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, userID)
}

// notifyOtherParty delivers n to the party opposite fromProfileID on the
// given connection. Best-effort like everything else here.
func notifyOtherParty(ctx context.Context, directory repository.ProfileDirectory, notifications *NotificationService, log *logger.Logger, req connection.Request, fromProfileID uuid.UUID, n notification.Notification) {
	otherID := req.OtherParty(fromProfileID)
	otherRole := identity.RoleProducer
	if otherID == req.BuyerID {
		otherRole = identity.RoleBuyer
	}
	other, err := directory.GetByID(ctx, otherID, otherRole)
	if err != nil {
		log.Warnf("counterpart lookup failed on connection %s: %v", req.ID, err)
		return
	}
	n.UserID = other.UserID
	notifications.Notify(ctx, n)
}
