package httpdto

import (
	"time"

	"agrilink/internal/domain/connection"
)

type RequestConnectionRequest struct {
	TargetProfileID string `json:"target_profile_id" binding:"required"`
	IntroMessage    string `json:"intro_message"`
}

type RespondConnectionRequest struct {
	Decision string `json:"decision" binding:"required"`
}

// ConnectionView is the wire shape of a connection. The intro message is
// deliberately absent: pre-acceptance content is never exposed to the
// recipient.
type ConnectionView struct {
	ID         string     `json:"id"`
	ProducerID string     `json:"producer_id"`
	BuyerID    string     `json:"buyer_id"`
	Status     string     `json:"status"`
	Initiator  string     `json:"initiator"`
	Resigned   bool       `json:"resigned"`
	ResignedAt *time.Time `json:"resigned_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func NewConnectionView(c connection.Request) ConnectionView {
	v := ConnectionView{
		ID:         c.ID.String(),
		ProducerID: c.ProducerID.String(),
		BuyerID:    c.BuyerID.String(),
		Status:     string(c.Status),
		Initiator:  string(c.Initiator),
		Resigned:   c.ResignedAt.Valid,
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
	if c.ResignedAt.Valid {
		t := c.ResignedAt.Time
		v.ResignedAt = &t
	}
	return v
}

func NewConnectionViews(cs []connection.Request) []ConnectionView {
	out := make([]ConnectionView, 0, len(cs))
	for _, c := range cs {
		out = append(out, NewConnectionView(c))
	}
	return out
}
