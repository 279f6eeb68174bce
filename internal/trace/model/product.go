// Package model defines the persisted shapes of the traceability domain:
// products, their supply-chain events, and the off-ledger price audit trail.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductStatus is the lifecycle state of a product.
type ProductStatus string

const (
	StatusRegistered ProductStatus = "registered"
	StatusInTransit  ProductStatus = "in_transit"
	StatusDelivered  ProductStatus = "delivered"
	StatusSold       ProductStatus = "sold"
	StatusRecalled   ProductStatus = "recalled"
)

// Product is one traceable product. LedgerTxID is the transaction reference
// returned by the ledger facade at registration time; it is the only ledger
// data the mirror stores.
type Product struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	Description       string          `json:"description,omitempty"`
	Category          string          `json:"category,omitempty"`
	Origin            string          `json:"origin,omitempty"`
	Owner             string          `json:"owner"`
	Status            ProductStatus   `json:"status"`
	RegistrationPrice decimal.Decimal `json:"registrationPrice"`
	CurrentPrice      decimal.Decimal `json:"currentPrice"`
	LedgerTxID        string          `json:"ledgerTxId"`
	LedgerSource      string          `json:"ledgerSource"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// SupplyEvent is the off-ledger mirror of one recorded supply-chain event.
// Written immediately after a successful facade call, never by the facade.
type SupplyEvent struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"productId"`
	Type      string    `json:"type"`
	Actor     string    `json:"actor"`
	Location  string    `json:"location,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	TxID      string    `json:"txId"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`
}

// PriceAudit is one immutable off-ledger price audit row. Price may be null
// in legacy rows that only carried free-text notes.
type PriceAudit struct {
	ID        uuid.UUID        `json:"id"`
	ProductID uuid.UUID        `json:"productId"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Notes     string           `json:"notes,omitempty"`
	Actor     string           `json:"actor"`
	CreatedAt time.Time        `json:"createdAt"`
}
