package identity

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Role distinguishes the two actor types. A connection always pairs
// exactly one producer with one buyer.
type Role string

const (
	RoleProducer Role = "PRODUCER"
	RoleBuyer    Role = "BUYER"
)

func (r Role) Valid() bool {
	return r == RoleProducer || r == RoleBuyer
}

// Counterpart returns the opposite role.
func (r Role) Counterpart() Role {
	if r == RoleProducer {
		return RoleBuyer
	}
	return RoleProducer
}

// User represents the users table (authentication principal).
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the role-specific business profile a principal resolves to.
// Producers and buyers live in separate tables but share this shape.
type Profile struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Role      Role           `json:"role"`
	Name      string         `json:"name"`
	Region    sql.NullString `json:"-"`
	About     sql.NullString `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
}
