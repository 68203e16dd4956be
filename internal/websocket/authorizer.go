package websocket

import (
	"context"
	"strings"

	"agrilink/internal/events"
	"agrilink/internal/repository"
	"agrilink/internal/services"
	agrilink_errors "agrilink/pkg/errors"

	"github.com/google/uuid"
)

// Authorizer decides whether a principal may subscribe to a channel.
// A user channel belongs to exactly one user; a connection channel is
// open to the connection's two parties only.
type Authorizer struct {
	connRepo  repository.ConnectionRepository
	directory repository.ProfileDirectory
}

func NewAuthorizer(connRepo repository.ConnectionRepository, directory repository.ProfileDirectory) *Authorizer {
	return &Authorizer{connRepo: connRepo, directory: directory}
}

func (a *Authorizer) CanSubscribe(ctx context.Context, principal services.Principal, channel string) error {
	if userID, ok := strings.CutPrefix(channel, "user:"); ok {
		if userID != principal.UserID.String() {
			return agrilink_errors.ErrForbidden
		}
		return nil
	}

	if connID, ok := strings.CutPrefix(channel, "conn:"); ok {
		id, err := uuid.Parse(connID)
		if err != nil {
			return agrilink_errors.ErrInvalidInput
		}
		profile, err := a.directory.GetByUser(ctx, principal.UserID, principal.Role)
		if err != nil {
			return agrilink_errors.ErrForbidden
		}
		req, err := a.connRepo.GetByID(ctx, id)
		if err != nil {
			return agrilink_errors.ErrForbidden
		}
		if !req.IsParty(profile.ID) {
			return agrilink_errors.ErrForbidden
		}
		return nil
	}

	return agrilink_errors.ErrInvalidInput
}

// UserChannel is the channel every client is auto-joined to.
func UserChannel(principal services.Principal) string {
	return events.UserChannel(principal.UserID.String())
}
