package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"agrilink/internal/domain/conversation"
	"agrilink/internal/domain/quote"
	agrilink_errors "agrilink/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) ConversationRepository {
	return &PostgresConversationRepository{db: db}
}

// insertItemTx appends an item inside tx. Bumping connections.last_seq
// takes the row lock, which serializes appends per connection and gives
// items their total order.
func insertItemTx(ctx context.Context, tx pgx.Tx, item *conversation.Item) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	err := tx.QueryRow(ctx, `
		UPDATE connections SET last_seq = last_seq + 1 WHERE id = $1 RETURNING last_seq`,
		item.ConnectionID).Scan(&item.Seq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return agrilink_errors.ErrNotFound
		}
		return err
	}

	payload, quoteStatus, err := marshalPayload(item)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO conversation_items (id, connection_id, sender_id, type, seq, quote_status, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.ConnectionID, item.SenderID, item.Type, item.Seq, quoteStatus, payload, item.CreatedAt)
	return err
}

func (r *PostgresConversationRepository) Insert(ctx context.Context, item *conversation.Item) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertItemTx(ctx, tx, item); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *PostgresConversationRepository) GetItem(ctx context.Context, id uuid.UUID) (conversation.Item, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, connection_id, sender_id, type, seq, payload, created_at
		FROM conversation_items WHERE id = $1`, id)
	return scanItem(row)
}

func (r *PostgresConversationRepository) ListByConnection(ctx context.Context, connectionID uuid.UUID) ([]conversation.Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, connection_id, sender_id, type, seq, payload, created_at
		FROM conversation_items WHERE connection_id = $1 ORDER BY seq ASC`, connectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []conversation.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// ResolveQuote flips a PENDING quote exactly once. The guard on
// quote_status makes a duplicate submission affect zero rows.
func (r *PostgresConversationRepository) ResolveQuote(ctx context.Context, itemID uuid.UUID, to quote.Status) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE conversation_items
		SET quote_status = $2, payload = jsonb_set(payload, '{status}', to_jsonb($2::text))
		WHERE id = $1 AND type = 'QUOTE' AND quote_status = 'PENDING'`, itemID, to)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func marshalPayload(item *conversation.Item) ([]byte, *string, error) {
	var (
		payload     any
		quoteStatus *string
	)
	switch item.Type {
	case conversation.ItemTypeMessage:
		payload = item.Message
	case conversation.ItemTypeQuote:
		payload = item.Quote
		if item.Quote != nil {
			s := string(item.Quote.Status)
			quoteStatus = &s
		}
	case conversation.ItemTypeProductInquiry:
		payload = item.Inquiry
	default:
		return nil, nil, fmt.Errorf("unknown item type %q", item.Type)
	}
	if payload == nil {
		return nil, nil, fmt.Errorf("item %s has no payload for type %s", item.ID, item.Type)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	return data, quoteStatus, nil
}

func scanItem(row pgx.Row) (conversation.Item, error) {
	var (
		item    conversation.Item
		payload []byte
	)
	err := row.Scan(&item.ID, &item.ConnectionID, &item.SenderID, &item.Type, &item.Seq, &payload, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return conversation.Item{}, agrilink_errors.ErrNotFound
		}
		return conversation.Item{}, err
	}

	switch item.Type {
	case conversation.ItemTypeMessage:
		item.Message = &conversation.MessagePayload{}
		err = json.Unmarshal(payload, item.Message)
	case conversation.ItemTypeQuote:
		item.Quote = &conversation.QuotePayload{}
		err = json.Unmarshal(payload, item.Quote)
	case conversation.ItemTypeProductInquiry:
		item.Inquiry = &conversation.InquiryPayload{}
		err = json.Unmarshal(payload, item.Inquiry)
	default:
		err = fmt.Errorf("unknown item type %q", item.Type)
	}
	if err != nil {
		return conversation.Item{}, err
	}
	return item, nil
}
