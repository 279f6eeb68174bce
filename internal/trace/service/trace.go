// Package service contains the traceability business logic: every state
// change is recorded through the ledger facade first, then mirrored into
// PostgreSQL with the transaction reference the facade returned.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rafsan3051/TraceRoot-sub000/internal/ledger"
	"github.com/rafsan3051/TraceRoot-sub000/internal/pricing"
	"github.com/rafsan3051/TraceRoot-sub000/internal/trace/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// productRepo is the persistence interface for products.
// *repository.ProductRepository satisfies this interface.
type productRepo interface {
	Create(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	List(ctx context.Context, limit, offset int) ([]*model.Product, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.ProductStatus, owner string) error
	UpdateCurrentPrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) error
}

// eventRepo mirrors recorded events. *repository.EventRepository satisfies it.
type eventRepo interface {
	Create(ctx context.Context, e *model.SupplyEvent) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]*model.SupplyEvent, error)
}

// auditRepo appends price audit rows. *repository.PriceAuditRepository satisfies it.
type auditRepo interface {
	Create(ctx context.Context, a *model.PriceAudit) error
}

// Recorder is the ledger facade subset the service consumes.
type Recorder interface {
	RecordTransaction(ctx context.Context, ev ledger.Event) (*ledger.TransactionRecord, error)
	GetHistory(ctx context.Context, subjectID string) ([]*ledger.TransactionRecord, error)
}

// TraceService orchestrates product lifecycle operations.
type TraceService struct {
	products productRepo
	events   eventRepo
	audits   auditRepo
	ledger   Recorder
	prices   *pricing.Service
	logger   *zap.Logger
}

// NewTraceService creates a new TraceService.
func NewTraceService(products productRepo, events eventRepo, audits auditRepo, rec Recorder, prices *pricing.Service, logger *zap.Logger) *TraceService {
	return &TraceService{
		products: products,
		events:   events,
		audits:   audits,
		ledger:   rec,
		prices:   prices,
		logger:   logger,
	}
}

// RegisterInput is the payload for product registration.
type RegisterInput struct {
	Name        string
	Description string
	Category    string
	Origin      string
	Owner       string
	Price       decimal.Decimal
}

// RegisterProduct records a CREATION event and persists the product with the
// transaction reference the facade returned.
func (s *TraceService) RegisterProduct(ctx context.Context, in RegisterInput) (*model.Product, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ledger.ErrInvalidInput)
	}
	if in.Owner == "" {
		return nil, fmt.Errorf("%w: owner is required", ledger.ErrInvalidInput)
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price %s is negative", ledger.ErrInvalidInput, in.Price)
	}

	id := uuid.New()
	rec, err := s.ledger.RecordTransaction(ctx, ledger.Event{
		Type:      ledger.EventCreation,
		Actor:     in.Owner,
		SubjectID: id.String(),
		Payload: map[string]any{
			"productId": id.String(),
			"name":      in.Name,
			"category":  in.Category,
			"origin":    in.Origin,
			"price":     in.Price.String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("record creation: %w", err)
	}

	product := &model.Product{
		ID:                id,
		Name:              in.Name,
		Description:       in.Description,
		Category:          in.Category,
		Origin:            in.Origin,
		Owner:             in.Owner,
		Status:            model.StatusRegistered,
		RegistrationPrice: in.Price,
		CurrentPrice:      in.Price,
		LedgerTxID:        rec.TxID,
		LedgerSource:      string(rec.Source),
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("persist product: %w", err)
	}

	s.mirrorEvent(ctx, product.ID, rec, "", "")

	s.logger.Info("product registered",
		zap.String("product", id.String()),
		zap.String("tx", rec.TxID),
		zap.String("source", string(rec.Source)),
	)
	return product, nil
}

// TransferCustody records a TRANSFER event and moves ownership.
func (s *TraceService) TransferCustody(ctx context.Context, id uuid.UUID, newOwner, location, notes, actor string) (*model.SupplyEvent, error) {
	if newOwner == "" {
		return nil, fmt.Errorf("%w: new owner is required", ledger.ErrInvalidInput)
	}

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rec, err := s.ledger.RecordTransaction(ctx, ledger.Event{
		Type:      ledger.EventTransfer,
		Actor:     actor,
		SubjectID: id.String(),
		Payload: map[string]any{
			"productId": id.String(),
			"from":      product.Owner,
			"to":        newOwner,
			"location":  location,
			"notes":     notes,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("record transfer: %w", err)
	}

	if err := s.products.UpdateStatus(ctx, id, model.StatusInTransit, newOwner); err != nil {
		return nil, fmt.Errorf("update owner: %w", err)
	}

	return s.mirrorEvent(ctx, id, rec, location, notes), nil
}

// UpdateStatus records a STATUS_UPDATE event and applies it.
func (s *TraceService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.ProductStatus, notes, actor string) (*model.SupplyEvent, error) {
	switch status {
	case model.StatusRegistered, model.StatusInTransit, model.StatusDelivered, model.StatusSold, model.StatusRecalled:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ledger.ErrInvalidInput, status)
	}

	if _, err := s.products.GetByID(ctx, id); err != nil {
		return nil, err
	}

	rec, err := s.ledger.RecordTransaction(ctx, ledger.Event{
		Type:      ledger.EventStatusUpdate,
		Actor:     actor,
		SubjectID: id.String(),
		Payload: map[string]any{
			"productId": id.String(),
			"status":    string(status),
			"notes":     notes,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("record status update: %w", err)
	}

	if err := s.products.UpdateStatus(ctx, id, status, ""); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}

	return s.mirrorEvent(ctx, id, rec, "", notes), nil
}

// UpdatePrice runs the reconciliation service's price update, then performs
// the mirroring the service signals for: an audit row, the product's current
// price, and an event mirror row. Mirroring happens regardless of whether
// the ledger write was real or fallback.
func (s *TraceService) UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal, notes, actor string) (*pricing.UpdateResult, error) {
	if _, err := s.products.GetByID(ctx, id); err != nil {
		return nil, err
	}

	res, err := s.prices.UpdatePrice(ctx, id.String(), price, notes, actor)
	if err != nil {
		return nil, err
	}

	audit := &model.PriceAudit{ProductID: id, Price: &price, Notes: notes, Actor: actor}
	if err := s.audits.Create(ctx, audit); err != nil {
		return nil, fmt.Errorf("mirror price audit: %w", err)
	}
	if err := s.products.UpdateCurrentPrice(ctx, id, price); err != nil {
		return nil, fmt.Errorf("mirror current price: %w", err)
	}

	if err := s.events.Create(ctx, &model.SupplyEvent{
		ProductID: id,
		Type:      string(ledger.EventPriceUpdate),
		Actor:     actor,
		Notes:     notes,
		TxID:      res.TxHash,
		Source:    string(res.Source),
	}); err != nil {
		s.logger.Error("event mirror write failed",
			zap.String("product", id.String()),
			zap.String("tx", res.TxHash),
			zap.Error(err),
		)
	}

	return res, nil
}

// GetProduct returns one product.
func (s *TraceService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return s.products.GetByID(ctx, id)
}

// ListProducts returns products newest first.
func (s *TraceService) ListProducts(ctx context.Context, limit, offset int) ([]*model.Product, error) {
	return s.products.List(ctx, limit, offset)
}

// GetTrace returns a product's full on-ledger history alongside the
// off-ledger event mirror, letting callers compare the two views.
func (s *TraceService) GetTrace(ctx context.Context, id uuid.UUID) ([]*ledger.TransactionRecord, []*model.SupplyEvent, error) {
	records, err := s.ledger.GetHistory(ctx, id.String())
	if err != nil {
		return nil, nil, fmt.Errorf("ledger history: %w", err)
	}
	mirrored, err := s.events.ListByProduct(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("mirrored events: %w", err)
	}
	return records, mirrored, nil
}

// mirrorEvent writes the off-ledger event row. Mirror failures are logged,
// not returned: the ledger record already exists and the caller holds its
// transaction reference.
func (s *TraceService) mirrorEvent(ctx context.Context, productID uuid.UUID, rec *ledger.TransactionRecord, location, notes string) *model.SupplyEvent {
	ev := &model.SupplyEvent{
		ProductID: productID,
		Type:      string(rec.Type),
		Actor:     rec.Actor,
		Location:  location,
		Notes:     notes,
		TxID:      rec.TxID,
		Source:    string(rec.Source),
	}
	if err := s.events.Create(ctx, ev); err != nil {
		s.logger.Error("event mirror write failed",
			zap.String("product", productID.String()),
			zap.String("tx", rec.TxID),
			zap.Error(err),
		)
	}
	return ev
}
