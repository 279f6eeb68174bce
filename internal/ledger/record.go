package ledger

import (
	"time"
)

// EventType is the semantic category of a recorded supply-chain event.
type EventType string

const (
	EventCreation     EventType = "CREATION"
	EventTransfer     EventType = "TRANSFER"
	EventStatusUpdate EventType = "STATUS_UPDATE"
	EventPriceUpdate  EventType = "PRICE_UPDATE"
	EventGeneric      EventType = "GENERIC"
)

// Source identifies where a record (or a price) actually came from.
type Source string

const (
	// SourceOnchain means the record was accepted by a real ledger backend.
	SourceOnchain Source = "ONCHAIN"
	// SourceMock means the configured mock backend produced the record.
	SourceMock Source = "MOCK"
	// SourceFallback means a real backend was attempted and failed; the
	// record was synthesized by the fallback path.
	SourceFallback Source = "FALLBACK"
	// SourceDatabase marks price data served from the off-ledger mirror.
	SourceDatabase Source = "DATABASE"
)

// Event is a typed supply-chain event submitted for recording.
// SubjectID is the identifier history queries are keyed on (the product ID).
// Payload is opaque to the facade and is carried to the backend as-is.
type Event struct {
	Type      EventType      `json:"type"`
	Actor     string         `json:"actor"`
	SubjectID string         `json:"subjectId"`
	Payload   map[string]any `json:"payload"`
}

// TransactionRecord is the normalized, backend-agnostic representation of one
// recorded event. TxID is never empty on a record returned to a caller.
// Records are immutable once created.
type TransactionRecord struct {
	TxID      string         `json:"txId"`
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Actor     string         `json:"actor"`
	Payload   map[string]any `json:"payload,omitempty"`
	Source    Source         `json:"source"`

	// Status and Confirmations are populated only by backends with
	// block-confirmation semantics.
	Status        string `json:"status,omitempty"`
	Confirmations uint64 `json:"confirmations,omitempty"`
}

// Confirmation is the result of verifying a transaction identifier.
// An unknown txID yields Verified=false, never an error.
type Confirmation struct {
	Verified  bool           `json:"verified"`
	Timestamp time.Time      `json:"timestamp"`
	Source    Source         `json:"source,omitempty"`
	Raw       map[string]any `json:"raw,omitempty"`
}

// ProbeResult reports backend reachability for operational visibility.
// It is never consulted by the facade's own decision-making.
type ProbeResult struct {
	Backend    string        `json:"backend"`
	Reachable  bool          `json:"reachable"`
	HTTPStatus int           `json:"httpStatus,omitempty"`
	ErrorClass ErrorClass    `json:"errorClass,omitempty"`
	Latency    time.Duration `json:"latencyNs,omitempty"`
}
