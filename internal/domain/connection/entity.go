package connection

import (
	"database/sql"
	"time"

	"agrilink/internal/domain/identity"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a connection request. A request is
// created PENDING by the initiator and resolved exactly once by the
// other party; both resolved states are terminal.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:  {StatusAccepted: true, StatusRejected: true},
	StatusAccepted: {},
	StatusRejected: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Request represents the connections table: the bilateral relationship
// between one producer and one buyer. At most one row ever exists per
// (producer, buyer) pair; the database enforces this with a unique
// constraint so two racing requests cannot both land.
type Request struct {
	ID         uuid.UUID
	ProducerID uuid.UUID
	BuyerID    uuid.UUID
	Status     Status
	Initiator  identity.Role

	// IntroMessage is held on the request until acceptance, at which
	// point it is migrated into the conversation as its first item.
	// Pre-acceptance content is never visible as live chat.
	IntroMessage sql.NullString

	// PendingInquiry is a product snapshot (JSON) recorded by a buyer
	// before the connection was accepted, replayed on acceptance.
	PendingInquiry []byte

	ResignedAt sql.NullTime
	ResignedBy uuid.NullUUID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InitiatorProfileID returns the profile id of the party that created
// the request.
func (r Request) InitiatorProfileID() uuid.UUID {
	if r.Initiator == identity.RoleProducer {
		return r.ProducerID
	}
	return r.BuyerID
}

// RecipientProfileID returns the profile id of the non-initiating party,
// the only one allowed to resolve the request.
func (r Request) RecipientProfileID() uuid.UUID {
	if r.Initiator == identity.RoleProducer {
		return r.BuyerID
	}
	return r.ProducerID
}

// IsParty reports whether the given profile is one of the two sides.
func (r Request) IsParty(profileID uuid.UUID) bool {
	return r.ProducerID == profileID || r.BuyerID == profileID
}

// OtherParty returns the profile id on the opposite side of profileID.
func (r Request) OtherParty(profileID uuid.UUID) uuid.UUID {
	if r.ProducerID == profileID {
		return r.BuyerID
	}
	return r.ProducerID
}

// Active reports whether the relationship grants chat capability:
// accepted and not resigned.
func (r Request) Active() bool {
	return r.Status == StatusAccepted && !r.ResignedAt.Valid
}
