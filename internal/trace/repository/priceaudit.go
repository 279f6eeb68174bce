package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rafsan3051/TraceRoot-sub000/internal/pricing"
	"github.com/rafsan3051/TraceRoot-sub000/internal/trace/model"
)

// PriceAuditRepository persists the off-ledger price audit trail. It also
// satisfies pricing.MirrorStore, serving as the reconciliation service's
// injected off-ledger collaborator.
type PriceAuditRepository struct {
	db *pgxpool.Pool
}

// NewPriceAuditRepository creates a new PriceAuditRepository.
func NewPriceAuditRepository(db *pgxpool.Pool) *PriceAuditRepository {
	return &PriceAuditRepository{db: db}
}

// Create inserts one audit row. Rows are append-only and never mutated.
func (r *PriceAuditRepository) Create(ctx context.Context, a *model.PriceAudit) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO price_audit (id, product_id, price, notes, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query, a.ID, a.ProductID, a.Price, a.Notes, a.Actor, a.CreatedAt)
	return err
}

// ListByProduct returns a product's audit rows, newest first.
func (r *PriceAuditRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*model.PriceAudit, error) {
	query := `
		SELECT id, product_id, price, notes, actor, created_at
		FROM price_audit WHERE product_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var audits []*model.PriceAudit
	for rows.Next() {
		a := &model.PriceAudit{}
		if err := rows.Scan(&a.ID, &a.ProductID, &a.Price, &a.Notes, &a.Actor, &a.CreatedAt); err != nil {
			return nil, err
		}
		audits = append(audits, a)
	}
	return audits, rows.Err()
}

// LatestPrice implements pricing.MirrorStore.
func (r *PriceAuditRepository) LatestPrice(ctx context.Context, productID string) (*pricing.AuditEntry, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("bad product id %q: %w", productID, err)
	}

	query := `
		SELECT price, notes, actor, created_at
		FROM price_audit WHERE product_id = $1
		ORDER BY created_at DESC LIMIT 1`

	entry := pricing.AuditEntry{}
	err = r.db.QueryRow(ctx, query, id).Scan(&entry.Price, &entry.Notes, &entry.Actor, &entry.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest mirror price: %w", err)
	}
	return &entry, nil
}

// Audit implements pricing.MirrorStore.
func (r *PriceAuditRepository) Audit(ctx context.Context, productID string) ([]pricing.AuditEntry, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("bad product id %q: %w", productID, err)
	}

	audits, err := r.ListByProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	entries := make([]pricing.AuditEntry, 0, len(audits))
	for _, a := range audits {
		entries = append(entries, pricing.AuditEntry{
			Price:     a.Price,
			Notes:     a.Notes,
			Actor:     a.Actor,
			Timestamp: a.CreatedAt,
		})
	}
	return entries, nil
}

// Registration implements pricing.MirrorStore.
func (r *PriceAuditRepository) Registration(ctx context.Context, productID string) (*pricing.Registration, error) {
	id, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("bad product id %q: %w", productID, err)
	}

	query := `SELECT registration_price, owner, created_at FROM products WHERE id = $1`

	reg := pricing.Registration{}
	err = r.db.QueryRow(ctx, query, id).Scan(&reg.Price, &reg.Actor, &reg.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registration price: %w", err)
	}
	return &reg, nil
}
