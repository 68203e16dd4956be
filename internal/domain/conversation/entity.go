package conversation

import (
	"time"

	"agrilink/internal/domain/quote"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemType discriminates the conversation item variants.
type ItemType string

const (
	ItemTypeMessage        ItemType = "MESSAGE"
	ItemTypeQuote          ItemType = "QUOTE"
	ItemTypeProductInquiry ItemType = "PRODUCT_INQUIRY"
)

// Item represents the conversation_items table: one unit in a
// connection's ordered chat log. Exactly one payload field is non-nil,
// matching Type. Items are totally ordered per connection by Seq.
type Item struct {
	ID           uuid.UUID `json:"id"`
	ConnectionID uuid.UUID `json:"connection_id"`
	SenderID     uuid.UUID `json:"sender_id"`
	Type         ItemType  `json:"type"`
	Seq          int64     `json:"seq"`
	CreatedAt    time.Time `json:"created_at"`

	Message *MessagePayload `json:"message,omitempty"`
	Quote   *QuotePayload   `json:"quote,omitempty"`
	Inquiry *InquiryPayload `json:"inquiry,omitempty"`
}

// MessagePayload is the free-text variant. ClientRef is the optional
// client-generated correlation id used to reconcile an optimistic local
// insert with the authoritative copy; it is never the canonical id.
type MessagePayload struct {
	Content   string `json:"content"`
	ClientRef string `json:"client_ref,omitempty"`
}

// QuotePayload is the structured commercial proposal variant.
// TotalAmount is computed as Quantity * UnitPrice once at creation and
// never re-derived.
type QuotePayload struct {
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	Notes       string          `json:"notes,omitempty"`
	Status      quote.Status    `json:"status"`
}

// InquiryPayload is the read-only product reference card inserted when a
// buyer expresses interest from a catalog view.
type InquiryPayload struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Unit        string          `json:"unit"`
	Category    string          `json:"category,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
}
