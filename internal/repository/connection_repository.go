package repository

import (
	"context"
	"errors"
	"time"

	"agrilink/internal/domain/connection"
	"agrilink/internal/domain/conversation"
	agrilink_errors "agrilink/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresConnectionRepository struct {
	db *pgxpool.Pool
}

func NewConnectionRepository(db *pgxpool.Pool) ConnectionRepository {
	return &PostgresConnectionRepository{db: db}
}

const connectionColumns = `id, producer_id, buyer_id, status, initiator, intro_message,
	pending_inquiry, resigned_at, resigned_by, created_at, updated_at`

func scanConnection(row pgx.Row) (connection.Request, error) {
	var c connection.Request
	err := row.Scan(&c.ID, &c.ProducerID, &c.BuyerID, &c.Status, &c.Initiator, &c.IntroMessage,
		&c.PendingInquiry, &c.ResignedAt, &c.ResignedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return connection.Request{}, agrilink_errors.ErrNotFound
		}
		return connection.Request{}, err
	}
	return c, nil
}

func (r *PostgresConnectionRepository) Create(ctx context.Context, req *connection.Request) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now

	_, err := r.db.Exec(ctx, `
		INSERT INTO connections (id, producer_id, buyer_id, status, initiator, intro_message, pending_inquiry, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		req.ID, req.ProducerID, req.BuyerID, req.Status, req.Initiator,
		req.IntroMessage, req.PendingInquiry, req.CreatedAt, req.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return agrilink_errors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *PostgresConnectionRepository) GetByID(ctx context.Context, id uuid.UUID) (connection.Request, error) {
	row := r.db.QueryRow(ctx, `SELECT `+connectionColumns+` FROM connections WHERE id = $1`, id)
	return scanConnection(row)
}

func (r *PostgresConnectionRepository) GetByPair(ctx context.Context, producerID, buyerID uuid.UUID) (connection.Request, error) {
	row := r.db.QueryRow(ctx, `SELECT `+connectionColumns+` FROM connections WHERE producer_id = $1 AND buyer_id = $2`,
		producerID, buyerID)
	return scanConnection(row)
}

// Resolve is the exactly-once transition. The status update is guarded
// on PENDING so a concurrent duplicate submission affects zero rows, and
// the accepted-path migration (intro message, queued inquiry) commits
// atomically with the flip.
func (r *PostgresConnectionRepository) Resolve(ctx context.Context, id uuid.UUID, to connection.Status, migrated []*conversation.Item) (bool, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE connections
		SET status = $2, intro_message = NULL, pending_inquiry = NULL, updated_at = now()
		WHERE id = $1 AND status = 'PENDING'`, id, to)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	if to == connection.StatusAccepted {
		for _, item := range migrated {
			if err := insertItemTx(ctx, tx, item); err != nil {
				return false, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *PostgresConnectionRepository) Resign(ctx context.Context, id, resignedBy uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE connections
		SET resigned_at = now(), resigned_by = $2, updated_at = now()
		WHERE id = $1 AND status = 'ACCEPTED' AND resigned_at IS NULL`, id, resignedBy)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresConnectionRepository) SetPendingInquiry(ctx context.Context, id uuid.UUID, payload []byte) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE connections SET pending_inquiry = $2, updated_at = now()
		WHERE id = $1 AND status = 'PENDING'`, id, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return agrilink_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresConnectionRepository) ListByProfile(ctx context.Context, profileID uuid.UUID, status *connection.Status) ([]connection.Request, error) {
	query := `SELECT ` + connectionColumns + ` FROM connections WHERE (producer_id = $1 OR buyer_id = $1)`
	args := []any{profileID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []connection.Request
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
