package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the full DDL for the service. cmd/migrate applies it; every
// statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id            UUID PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL CHECK (role IN ('PRODUCER', 'BUYER')),
    display_name  TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS producer_profiles (
    id         UUID PRIMARY KEY,
    user_id    UUID NOT NULL UNIQUE REFERENCES users(id),
    name       TEXT NOT NULL,
    region     TEXT,
    about      TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS buyer_profiles (
    id         UUID PRIMARY KEY,
    user_id    UUID NOT NULL UNIQUE REFERENCES users(id),
    name       TEXT NOT NULL,
    region     TEXT,
    about      TEXT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS products (
    id          UUID PRIMARY KEY,
    producer_id UUID NOT NULL REFERENCES producer_profiles(id),
    name        TEXT NOT NULL,
    unit_price  NUMERIC(14,4) NOT NULL,
    unit        TEXT NOT NULL,
    stock       INTEGER NOT NULL DEFAULT 0,
    category    TEXT NOT NULL DEFAULT '',
    image_url   TEXT,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

-- One relationship row per (producer, buyer) pair, ever. Rejection is
-- terminal and blocks re-requests, so the constraint covers all statuses
-- and closes the race between two simultaneous requests.
CREATE TABLE IF NOT EXISTS connections (
    id              UUID PRIMARY KEY,
    producer_id     UUID NOT NULL REFERENCES producer_profiles(id),
    buyer_id        UUID NOT NULL REFERENCES buyer_profiles(id),
    status          TEXT NOT NULL CHECK (status IN ('PENDING', 'ACCEPTED', 'REJECTED')),
    initiator       TEXT NOT NULL CHECK (initiator IN ('PRODUCER', 'BUYER')),
    intro_message   TEXT,
    pending_inquiry JSONB,
    last_seq        BIGINT NOT NULL DEFAULT 0,
    resigned_at     TIMESTAMPTZ,
    resigned_by     UUID,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (producer_id, buyer_id)
);

CREATE TABLE IF NOT EXISTS conversation_items (
    id            UUID PRIMARY KEY,
    connection_id UUID NOT NULL REFERENCES connections(id),
    sender_id     UUID NOT NULL,
    type          TEXT NOT NULL CHECK (type IN ('MESSAGE', 'QUOTE', 'PRODUCT_INQUIRY')),
    seq           BIGINT NOT NULL,
    quote_status  TEXT CHECK (quote_status IN ('PENDING', 'ACCEPTED', 'DECLINED', 'NEGOTIATING')),
    payload       JSONB NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (connection_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_items_connection ON conversation_items (connection_id, seq);

CREATE TABLE IF NOT EXISTS notifications (
    id          UUID PRIMARY KEY,
    user_id     UUID NOT NULL,
    type        TEXT NOT NULL,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    link        TEXT NOT NULL DEFAULT '',
    is_read     BOOLEAN NOT NULL DEFAULT false,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, created_at DESC);
`

// Migrate applies the schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, Schema)
	return err
}
