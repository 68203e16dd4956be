package notification

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeConnectionRequest  Type = "CONNECTION_REQUEST"
	TypeConnectionAccepted Type = "CONNECTION_ACCEPTED"
	TypeNewMessage         Type = "NEW_MESSAGE"
	TypeNewQuote           Type = "NEW_QUOTE"
	TypeQuoteAccepted      Type = "QUOTE_ACCEPTED"
)

// Notification represents the notifications table: a fire-and-forget
// record for a single recipient. Writes are best-effort side effects of
// the connection/messaging/quote services and never block them.
type Notification struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Type        Type      `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Link        string    `json:"link,omitempty"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}
