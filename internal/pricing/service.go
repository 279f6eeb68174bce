// Package pricing reconciles the on-ledger price view of a product with the
// off-ledger mirror, producing one authoritative answer per product.
//
// The merge is a choose-one-source decision, never an interleave: a positive
// on-ledger price always wins, the mirror serves while the ledger is empty or
// unreachable, and history comes wholesale from whichever source has it.
package pricing

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/rafsan3051/TraceRoot-sub000/internal/ledger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PricePoint is one reconciled price observation.
type PricePoint struct {
	ProductID string          `json:"productId"`
	Price     decimal.Decimal `json:"price"`
	Notes     string          `json:"notes,omitempty"`
	Actor     string          `json:"actor,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Source    ledger.Source   `json:"source"`
}

// UpdateResult reports what a price update actually achieved. Updated=true
// signals the caller to mirror the new price and an audit entry off-ledger;
// mirroring is the persistence collaborator's job, not this service's.
type UpdateResult struct {
	Updated bool          `json:"updated"`
	TxHash  string        `json:"txHash"`
	Source  ledger.Source `json:"source"`
}

// Ledger is the facade subset the service consumes.
type Ledger interface {
	RecordTransaction(ctx context.Context, ev ledger.Event) (*ledger.TransactionRecord, error)
	GetHistory(ctx context.Context, subjectID string) ([]*ledger.TransactionRecord, error)
}

// AuditEntry is one off-ledger price audit row. Price is nil when the row
// only carries free text; the service then reconstructs the number from
// the notes.
type AuditEntry struct {
	Price     *decimal.Decimal
	Notes     string
	Actor     string
	Timestamp time.Time
}

// Registration is the product's original registration price.
type Registration struct {
	Price     decimal.Decimal
	Actor     string
	Timestamp time.Time
}

// MirrorStore is the injected off-ledger price-history collaborator.
// A nil, nil return means no data for that product.
type MirrorStore interface {
	LatestPrice(ctx context.Context, productID string) (*AuditEntry, error)
	Audit(ctx context.Context, productID string) ([]AuditEntry, error)
	Registration(ctx context.Context, productID string) (*Registration, error)
}

// Service is the price reconciliation service.
type Service struct {
	facade Ledger
	mirror MirrorStore
	logger *zap.Logger
}

// NewService creates a Service on top of the ledger facade and the mirror.
func NewService(facade Ledger, mirror MirrorStore, logger *zap.Logger) *Service {
	return &Service{facade: facade, mirror: mirror, logger: logger}
}

// notesPriceRe matches the first decimal number in a free-text audit note,
// e.g. "Price updated to 150.50 per kg".
var notesPriceRe = regexp.MustCompile(`\d+(?:\.\d+)?`)

// GetLatestPrice returns the authoritative current price. A positive
// on-ledger value wins; a zero or absent one defers to the mirror; neither
// yields a zero price tagged DATABASE.
func (s *Service) GetLatestPrice(ctx context.Context, productID string) (*PricePoint, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: productID is required", ledger.ErrInvalidInput)
	}

	if p := s.latestOnLedger(ctx, productID); p != nil && p.Price.IsPositive() {
		return p, nil
	}

	entry, err := s.mirror.LatestPrice(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("mirror latest price: %w", err)
	}
	if entry != nil {
		price, ok := auditEntryPrice(*entry)
		if ok {
			return &PricePoint{
				ProductID: productID,
				Price:     price,
				Notes:     entry.Notes,
				Actor:     entry.Actor,
				Timestamp: entry.Timestamp,
				Source:    ledger.SourceDatabase,
			}, nil
		}
	}

	if reg, err := s.mirror.Registration(ctx, productID); err == nil && reg != nil {
		return &PricePoint{
			ProductID: productID,
			Price:     reg.Price,
			Actor:     reg.Actor,
			Timestamp: reg.Timestamp,
			Source:    ledger.SourceDatabase,
		}, nil
	}

	return &PricePoint{
		ProductID: productID,
		Price:     decimal.Zero,
		Timestamp: time.Now().UTC(),
		Source:    ledger.SourceDatabase,
	}, nil
}

// GetPriceHistory returns the full price history, sorted strictly descending
// by timestamp. A non-empty on-ledger history is used as-is; otherwise the
// history is synthesized from the off-ledger audit trail with the product's
// registration price prepended as the earliest record.
func (s *Service) GetPriceHistory(ctx context.Context, productID string) ([]*PricePoint, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: productID is required", ledger.ErrInvalidInput)
	}

	if points := s.onLedgerHistory(ctx, productID); len(points) > 0 {
		sortDescending(points)
		return dedupeByTimestamp(points), nil
	}

	entries, err := s.mirror.Audit(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("mirror price audit: %w", err)
	}

	points := make([]*PricePoint, 0, len(entries)+1)
	for _, entry := range entries {
		price, ok := auditEntryPrice(entry)
		if !ok {
			continue
		}
		points = append(points, &PricePoint{
			ProductID: productID,
			Price:     price,
			Notes:     entry.Notes,
			Actor:     entry.Actor,
			Timestamp: entry.Timestamp,
			Source:    ledger.SourceDatabase,
		})
	}

	if reg, err := s.mirror.Registration(ctx, productID); err == nil && reg != nil {
		points = append(points, &PricePoint{
			ProductID: productID,
			Price:     reg.Price,
			Notes:     "Initial registration price",
			Actor:     reg.Actor,
			Timestamp: reg.Timestamp,
			Source:    ledger.SourceDatabase,
		})
	}

	sortDescending(points)
	return dedupeByTimestamp(points), nil
}

// UpdatePrice validates and records a PRICE_UPDATE transaction. The ledger
// outcome never blocks the update: the caller mirrors the price regardless,
// and the result's Source reports what the facade actually achieved.
func (s *Service) UpdatePrice(ctx context.Context, productID string, newPrice decimal.Decimal, notes, actor string) (*UpdateResult, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: productID is required", ledger.ErrInvalidInput)
	}
	if newPrice.IsNegative() {
		return nil, fmt.Errorf("%w: price %s is negative", ledger.ErrInvalidInput, newPrice)
	}

	rec, err := s.facade.RecordTransaction(ctx, ledger.Event{
		Type:      ledger.EventPriceUpdate,
		Actor:     actor,
		SubjectID: productID,
		Payload: map[string]any{
			"productId": productID,
			"price":     newPrice.String(),
			"notes":     notes,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("record price update: %w", err)
	}

	s.logger.Info("price update recorded",
		zap.String("product", productID),
		zap.String("price", newPrice.String()),
		zap.String("tx", rec.TxID),
		zap.String("source", string(rec.Source)),
	)

	return &UpdateResult{Updated: true, TxHash: rec.TxID, Source: rec.Source}, nil
}

// latestOnLedger reads the newest on-ledger PRICE_UPDATE. Ledger errors are
// logged and treated as "no on-ledger view" so the mirror can take over.
func (s *Service) latestOnLedger(ctx context.Context, productID string) *PricePoint {
	points := s.onLedgerHistory(ctx, productID)
	if len(points) == 0 {
		return nil
	}
	sortDescending(points)
	return points[0]
}

// onLedgerHistory maps the facade's history onto price points, keeping only
// PRICE_UPDATE records with a recoverable price.
func (s *Service) onLedgerHistory(ctx context.Context, productID string) []*PricePoint {
	records, err := s.facade.GetHistory(ctx, productID)
	if err != nil {
		s.logger.Warn("on-ledger price history unavailable",
			zap.String("product", productID),
			zap.Error(err),
		)
		return nil
	}

	points := make([]*PricePoint, 0, len(records))
	for _, rec := range records {
		if rec.Type != ledger.EventPriceUpdate {
			continue
		}
		price, ok := recordPrice(rec)
		if !ok {
			continue
		}
		notes, _ := rec.Payload["notes"].(string)
		points = append(points, &PricePoint{
			ProductID: productID,
			Price:     price,
			Notes:     notes,
			Actor:     rec.Actor,
			Timestamp: rec.Timestamp,
			Source:    priceSource(rec.Source),
		})
	}
	return points
}

// recordPrice extracts a price from a transaction record payload.
func recordPrice(rec *ledger.TransactionRecord) (decimal.Decimal, bool) {
	switch v := rec.Payload["price"].(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case float64:
		return decimal.NewFromFloat(v), true
	case decimal.Decimal:
		return v, true
	default:
		return decimal.Zero, false
	}
}

// auditEntryPrice returns the entry's price, reconstructing it from the
// free-text notes when the row carries no numeric column.
func auditEntryPrice(entry AuditEntry) (decimal.Decimal, bool) {
	if entry.Price != nil {
		return *entry.Price, true
	}
	match := notesPriceRe.FindString(entry.Notes)
	if match == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(match)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// priceSource maps a transaction record source onto the price source enum:
// only a real backend's record counts as ONCHAIN.
func priceSource(s ledger.Source) ledger.Source {
	if s == ledger.SourceOnchain {
		return ledger.SourceOnchain
	}
	return ledger.SourceMock
}

func sortDescending(points []*PricePoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.After(points[j].Timestamp)
	})
}

// dedupeByTimestamp drops later duplicates of the same (source, timestamp)
// pair; history from a single source must be strictly descending.
func dedupeByTimestamp(points []*PricePoint) []*PricePoint {
	out := points[:0]
	seen := make(map[string]struct{}, len(points))
	for _, p := range points {
		key := string(p.Source) + "|" + p.Timestamp.UTC().Format(time.RFC3339Nano)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}
