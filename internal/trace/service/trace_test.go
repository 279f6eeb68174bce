package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rafsan3051/TraceRoot-sub000/internal/config"
	"github.com/rafsan3051/TraceRoot-sub000/internal/ledger"
	"github.com/rafsan3051/TraceRoot-sub000/internal/pricing"
	"github.com/rafsan3051/TraceRoot-sub000/internal/trace/model"
	"github.com/rafsan3051/TraceRoot-sub000/internal/trace/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ctx = context.Background()

// fakeProducts is an in-memory productRepo.
type fakeProducts struct {
	byID map[uuid.UUID]*model.Product
}

func newFakeProducts() *fakeProducts {
	return &fakeProducts{byID: make(map[uuid.UUID]*model.Product)}
}

func (f *fakeProducts) Create(_ context.Context, p *model.Product) error {
	f.byID[p.ID] = p
	return nil
}

func (f *fakeProducts) GetByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (f *fakeProducts) List(context.Context, int, int) ([]*model.Product, error) {
	out := make([]*model.Product, 0, len(f.byID))
	for _, p := range f.byID {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProducts) UpdateStatus(_ context.Context, id uuid.UUID, status model.ProductStatus, owner string) error {
	p, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = status
	if owner != "" {
		p.Owner = owner
	}
	return nil
}

func (f *fakeProducts) UpdateCurrentPrice(_ context.Context, id uuid.UUID, price decimal.Decimal) error {
	p, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.CurrentPrice = price
	return nil
}

// fakeEvents is an in-memory eventRepo.
type fakeEvents struct {
	rows      []*model.SupplyEvent
	createErr error
}

func (f *fakeEvents) Create(_ context.Context, e *model.SupplyEvent) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.rows = append(f.rows, e)
	return nil
}

func (f *fakeEvents) ListByProduct(_ context.Context, productID uuid.UUID) ([]*model.SupplyEvent, error) {
	var out []*model.SupplyEvent
	for _, e := range f.rows {
		if e.ProductID == productID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeAudits is an in-memory auditRepo that also serves as the pricing mirror.
type fakeAudits struct {
	rows []*model.PriceAudit
}

func (f *fakeAudits) Create(_ context.Context, a *model.PriceAudit) error {
	f.rows = append(f.rows, a)
	return nil
}

func (f *fakeAudits) LatestPrice(context.Context, string) (*pricing.AuditEntry, error) {
	return nil, nil
}

func (f *fakeAudits) Audit(context.Context, string) ([]pricing.AuditEntry, error) {
	return nil, nil
}

func (f *fakeAudits) Registration(context.Context, string) (*pricing.Registration, error) {
	return nil, nil
}

func newService(t *testing.T) (*TraceService, *fakeProducts, *fakeEvents, *fakeAudits) {
	t.Helper()
	facade, err := ledger.NewFacade(config.LedgerConfig{}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	products := newFakeProducts()
	events := &fakeEvents{}
	audits := &fakeAudits{}
	prices := pricing.NewService(facade, audits, zap.NewNop())
	svc := NewTraceService(products, events, audits, facade, prices, zap.NewNop())
	return svc, products, events, audits
}

func TestRegisterProduct(t *testing.T) {
	svc, products, events, _ := newService(t)

	p, err := svc.RegisterProduct(ctx, RegisterInput{
		Name:  "Widget",
		Owner: "acme",
		Price: decimal.RequireFromString("9.99"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.ID == uuid.Nil {
		t.Error("expected assigned ID")
	}
	if p.LedgerTxID == "" {
		t.Error("expected ledger transaction reference")
	}
	if p.Status != model.StatusRegistered {
		t.Errorf("status: got %q, want %q", p.Status, model.StatusRegistered)
	}
	if !p.CurrentPrice.Equal(p.RegistrationPrice) {
		t.Error("current price should start at registration price")
	}
	if _, ok := products.byID[p.ID]; !ok {
		t.Error("product not persisted")
	}
	if len(events.rows) != 1 {
		t.Fatalf("expected 1 mirrored event, got %d", len(events.rows))
	}
	if events.rows[0].Type != string(ledger.EventCreation) {
		t.Errorf("mirrored type: got %q", events.rows[0].Type)
	}
	if events.rows[0].TxID != p.LedgerTxID {
		t.Error("mirrored event should carry the same tx reference")
	}
}

func TestRegisterProduct_validation(t *testing.T) {
	svc, _, _, _ := newService(t)

	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"missing name", RegisterInput{Owner: "acme"}},
		{"missing owner", RegisterInput{Name: "Widget"}},
		{"negative price", RegisterInput{Name: "Widget", Owner: "acme", Price: decimal.RequireFromString("-1")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.RegisterProduct(ctx, tt.in); !errors.Is(err, ledger.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestTransferCustody(t *testing.T) {
	svc, products, events, _ := newService(t)
	p, _ := svc.RegisterProduct(ctx, RegisterInput{Name: "Widget", Owner: "acme"})

	ev, err := svc.TransferCustody(ctx, p.ID, "globex", "Rotterdam", "container 12", "acme")
	if err != nil {
		t.Fatal(err)
	}
	if ev.Type != string(ledger.EventTransfer) {
		t.Errorf("event type: got %q", ev.Type)
	}
	if ev.Location != "Rotterdam" {
		t.Errorf("location: got %q", ev.Location)
	}

	updated := products.byID[p.ID]
	if updated.Owner != "globex" {
		t.Errorf("owner: got %q, want globex", updated.Owner)
	}
	if updated.Status != model.StatusInTransit {
		t.Errorf("status: got %q, want %q", updated.Status, model.StatusInTransit)
	}
	if len(events.rows) != 2 { // creation + transfer
		t.Errorf("expected 2 mirrored events, got %d", len(events.rows))
	}
}

func TestTransferCustody_unknownProduct(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.TransferCustody(ctx, uuid.New(), "globex", "", "", "acme")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	svc, products, _, _ := newService(t)
	p, _ := svc.RegisterProduct(ctx, RegisterInput{Name: "Widget", Owner: "acme"})

	if _, err := svc.UpdateStatus(ctx, p.ID, model.StatusDelivered, "", "carrier"); err != nil {
		t.Fatal(err)
	}
	if products.byID[p.ID].Status != model.StatusDelivered {
		t.Errorf("status: got %q, want %q", products.byID[p.ID].Status, model.StatusDelivered)
	}
	// Owner must survive a status-only update.
	if products.byID[p.ID].Owner != "acme" {
		t.Errorf("owner changed on status update: %q", products.byID[p.ID].Owner)
	}
}

func TestUpdateStatus_unknownStatusRejected(t *testing.T) {
	svc, _, _, _ := newService(t)
	p, _ := svc.RegisterProduct(ctx, RegisterInput{Name: "Widget", Owner: "acme"})

	_, err := svc.UpdateStatus(ctx, p.ID, "teleported", "", "carrier")
	if !errors.Is(err, ledger.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdatePrice_mirrorsEverything(t *testing.T) {
	svc, products, events, audits := newService(t)
	p, _ := svc.RegisterProduct(ctx, RegisterInput{Name: "Widget", Owner: "acme", Price: decimal.RequireFromString("10")})

	res, err := svc.UpdatePrice(ctx, p.ID, decimal.RequireFromString("12.50"), "seasonal", "acme")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Updated {
		t.Error("expected Updated=true")
	}
	if res.TxHash == "" {
		t.Error("expected transaction reference")
	}

	if !products.byID[p.ID].CurrentPrice.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("current price: got %s", products.byID[p.ID].CurrentPrice)
	}
	if len(audits.rows) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(audits.rows))
	}
	if audits.rows[0].Price == nil || !audits.rows[0].Price.Equal(decimal.RequireFromString("12.50")) {
		t.Error("audit row should carry the numeric price")
	}
	if len(events.rows) != 2 { // creation + price update
		t.Errorf("expected 2 mirrored events, got %d", len(events.rows))
	}
}

func TestUpdatePrice_eventMirrorFailureNonFatal(t *testing.T) {
	svc, products, events, audits := newService(t)
	p, _ := svc.RegisterProduct(ctx, RegisterInput{Name: "Widget", Owner: "acme", Price: decimal.RequireFromString("10")})

	events.createErr = errors.New("events table unavailable")

	res, err := svc.UpdatePrice(ctx, p.ID, decimal.RequireFromString("12.50"), "", "acme")
	if err != nil {
		t.Fatalf("event mirror failure should not fail the update: %v", err)
	}
	if !res.Updated {
		t.Error("expected Updated=true")
	}
	if !products.byID[p.ID].CurrentPrice.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("current price: got %s", products.byID[p.ID].CurrentPrice)
	}
	if len(audits.rows) != 1 {
		t.Errorf("audit row should still be written, got %d", len(audits.rows))
	}
}

func TestUpdatePrice_unknownProduct(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.UpdatePrice(ctx, uuid.New(), decimal.RequireFromString("5"), "", "acme")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetTrace(t *testing.T) {
	svc, _, _, _ := newService(t)
	p, _ := svc.RegisterProduct(ctx, RegisterInput{Name: "Widget", Owner: "acme"})
	_, _ = svc.TransferCustody(ctx, p.ID, "globex", "", "", "acme")

	records, mirrored, err := svc.GetTrace(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Errorf("ledger records: got %d, want 2", len(records))
	}
	if len(mirrored) != 2 {
		t.Errorf("mirrored events: got %d, want 2", len(mirrored))
	}
}
