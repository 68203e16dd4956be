package repository

import (
	"context"
	"errors"

	"agrilink/internal/domain/catalog"
	agrilink_errors "agrilink/pkg/errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresCatalogReader reads product snapshots. Catalog writes belong
// to a different service; nothing here mutates the products table.
type PostgresCatalogReader struct {
	db *pgxpool.Pool
}

func NewCatalogReader(db *pgxpool.Pool) CatalogReader {
	return &PostgresCatalogReader{db: db}
}

func (r *PostgresCatalogReader) GetProduct(ctx context.Context, id uuid.UUID) (catalog.ProductSnapshot, error) {
	var (
		p     catalog.ProductSnapshot
		price string
		image *string
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, producer_id, name, unit_price::text, unit, stock, category, image_url, updated_at
		FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.ProducerID, &p.Name, &price, &p.Unit, &p.Stock, &p.Category, &image, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.ProductSnapshot{}, agrilink_errors.ErrNotFound
		}
		return catalog.ProductSnapshot{}, err
	}
	p.UnitPrice, err = decimal.NewFromString(price)
	if err != nil {
		return catalog.ProductSnapshot{}, err
	}
	if image != nil {
		p.ImageURL = *image
	}
	return p, nil
}
