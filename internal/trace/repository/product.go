// Package repository persists the traceability domain in PostgreSQL.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rafsan3051/TraceRoot-sub000/internal/trace/model"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a product is not found in the database.
var ErrNotFound = errors.New("product not found")

// ProductRepository provides product persistence against PostgreSQL.
type ProductRepository struct {
	db *pgxpool.Pool
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = model.StatusRegistered
	}

	query := `
		INSERT INTO products (
			id, name, description, category, origin, owner, status,
			registration_price, current_price, ledger_tx_id, ledger_source,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.db.Exec(ctx, query,
		p.ID, p.Name, p.Description, p.Category, p.Origin, p.Owner, p.Status,
		p.RegistrationPrice, p.CurrentPrice, p.LedgerTxID, p.LedgerSource,
		p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetByID retrieves a product by its UUID.
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	query := `
		SELECT id, name, description, category, origin, owner, status,
		       registration_price, current_price, ledger_tx_id, ledger_source,
		       created_at, updated_at
		FROM products WHERE id = $1`

	p := &model.Product{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &p.Origin, &p.Owner,
		&p.Status, &p.RegistrationPrice, &p.CurrentPrice, &p.LedgerTxID,
		&p.LedgerSource, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// List returns products newest first.
func (r *ProductRepository) List(ctx context.Context, limit, offset int) ([]*model.Product, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, name, description, category, origin, owner, status,
		       registration_price, current_price, ledger_tx_id, ledger_source,
		       created_at, updated_at
		FROM products ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*model.Product
	for rows.Next() {
		p := &model.Product{}
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Description, &p.Category, &p.Origin, &p.Owner,
			&p.Status, &p.RegistrationPrice, &p.CurrentPrice, &p.LedgerTxID,
			&p.LedgerSource, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// UpdateStatus sets a product's status (and owner, for custody transfers).
func (r *ProductRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ProductStatus, owner string) error {
	query := `
		UPDATE products
		SET status = $2,
		    owner = CASE WHEN $3 = '' THEN owner ELSE $3 END,
		    updated_at = $4
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id, status, owner, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update product status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateCurrentPrice mirrors the latest accepted price onto the product row.
func (r *ProductRepository) UpdateCurrentPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error {
	query := `UPDATE products SET current_price = $2, updated_at = $3 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, price, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update product price: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
