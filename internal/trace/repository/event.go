package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rafsan3051/TraceRoot-sub000/internal/trace/model"
)

// EventRepository mirrors recorded supply-chain events off-ledger.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts one event mirror row. Rows are append-only.
func (r *EventRepository) Create(ctx context.Context, e *model.SupplyEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO supply_events (id, product_id, type, actor, location, notes, tx_id, source, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		e.ID, e.ProductID, e.Type, e.Actor, e.Location, e.Notes, e.TxID, e.Source, e.CreatedAt,
	)
	return err
}

// ListByProduct returns a product's mirrored events, newest first.
func (r *EventRepository) ListByProduct(ctx context.Context, productID uuid.UUID) ([]*model.SupplyEvent, error) {
	query := `
		SELECT id, product_id, type, actor, location, notes, tx_id, source, created_at
		FROM supply_events WHERE product_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*model.SupplyEvent
	for rows.Next() {
		e := &model.SupplyEvent{}
		if err := rows.Scan(
			&e.ID, &e.ProductID, &e.Type, &e.Actor, &e.Location, &e.Notes,
			&e.TxID, &e.Source, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
