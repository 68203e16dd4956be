package repository

import (
	"context"

	"agrilink/internal/domain/catalog"
	"agrilink/internal/domain/connection"
	"agrilink/internal/domain/conversation"
	"agrilink/internal/domain/identity"
	"agrilink/internal/domain/notification"
	"agrilink/internal/domain/quote"

	"github.com/google/uuid"
)

// ConnectionRepository persists the bilateral relationship records.
// Create surfaces the pair-uniqueness constraint as ErrAlreadyExists so
// the service can classify the conflict. Resolve and Resign are
// conditional writes: they return false when the guarded state no
// longer holds, never overwriting a terminal status.
type ConnectionRepository interface {
	Create(ctx context.Context, req *connection.Request) error
	GetByID(ctx context.Context, id uuid.UUID) (connection.Request, error)
	GetByPair(ctx context.Context, producerID, buyerID uuid.UUID) (connection.Request, error)

	// Resolve flips PENDING to the given terminal status. When accepting,
	// migrated items (intro message, queued inquiry) are appended to the
	// conversation within the same transaction.
	Resolve(ctx context.Context, id uuid.UUID, to connection.Status, migrated []*conversation.Item) (bool, error)

	Resign(ctx context.Context, id, resignedBy uuid.UUID) (bool, error)
	SetPendingInquiry(ctx context.Context, id uuid.UUID, payload []byte) error
	ListByProfile(ctx context.Context, profileID uuid.UUID, status *connection.Status) ([]connection.Request, error)
}

// ConversationRepository persists the ordered item log. Insert assigns
// the per-connection sequence number.
type ConversationRepository interface {
	Insert(ctx context.Context, item *conversation.Item) error
	GetItem(ctx context.Context, id uuid.UUID) (conversation.Item, error)
	ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]conversation.Item, error)

	// ResolveQuote flips a PENDING quote item to a terminal status.
	// Returns false when the quote was already resolved.
	ResolveQuote(ctx context.Context, itemID uuid.UUID, to quote.Status) (bool, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *notification.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]notification.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
}

type UserRepository interface {
	Create(ctx context.Context, u *identity.User) error
	GetByEmail(ctx context.Context, email string) (identity.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (identity.User, error)
}

// ProfileDirectory is the Identity Directory boundary: it resolves an
// authenticated principal to its role-specific business profile.
type ProfileDirectory interface {
	CreateProfile(ctx context.Context, p *identity.Profile) error
	GetByUser(ctx context.Context, userID uuid.UUID, role identity.Role) (identity.Profile, error)
	GetByID(ctx context.Context, profileID uuid.UUID, role identity.Role) (identity.Profile, error)
}

// CatalogReader is the read-only boundary with the product catalog.
type CatalogReader interface {
	GetProduct(ctx context.Context, id uuid.UUID) (catalog.ProductSnapshot, error)
}
