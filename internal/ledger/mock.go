package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// mockTxPrefix marks transaction identifiers synthesized by the mock backend.
const mockTxPrefix = "mock_"

// MockBackend is a deterministic, latency-free Backend implementation. It is
// the active backend when no real ledger is configured and the automatic
// fallback target for the other backends.
type MockBackend struct {
	mu      sync.RWMutex
	records map[string][]*TransactionRecord // keyed by subject ID
}

// NewMockBackend creates an empty MockBackend.
func NewMockBackend() *MockBackend {
	return &MockBackend{records: make(map[string][]*TransactionRecord)}
}

// Name implements Backend.
func (m *MockBackend) Name() string { return "mock" }

// Record implements Backend. It synthesizes a txID from the mock prefix, the
// wall clock, and a random suffix, and returns immediately.
func (m *MockBackend) Record(_ context.Context, ev Event) (*TransactionRecord, error) {
	if ev.Type == "" {
		return nil, fmt.Errorf("%w: event type is required", ErrInvalidInput)
	}

	actor := ev.Actor
	if actor == "" {
		actor = "system"
	}

	rec := &TransactionRecord{
		TxID:      newMockTxID(),
		Timestamp: time.Now().UTC(),
		Type:      ev.Type,
		Actor:     actor,
		Payload:   ev.Payload,
		Source:    SourceMock,
		Status:    "committed",
	}

	if ev.SubjectID != "" {
		m.mu.Lock()
		m.records[ev.SubjectID] = append([]*TransactionRecord{rec}, m.records[ev.SubjectID]...)
		m.mu.Unlock()
	}
	return rec, nil
}

// Verify implements Backend. Mock ledgers have no confirmation delay, so
// every txID verifies with a freshly generated timestamp.
func (m *MockBackend) Verify(_ context.Context, txID string) (*Confirmation, error) {
	return &Confirmation{
		Verified:  true,
		Timestamp: time.Now().UTC(),
		Raw:       map[string]any{"txId": txID, "mock": true},
	}, nil
}

// History implements Backend. Subjects never recorded against get a
// synthesized CREATION record so downstream views stay non-empty during
// development.
func (m *MockBackend) History(_ context.Context, subjectID string) ([]*TransactionRecord, error) {
	m.mu.RLock()
	stored := m.records[subjectID]
	m.mu.RUnlock()

	if len(stored) > 0 {
		out := make([]*TransactionRecord, len(stored))
		copy(out, stored)
		return out, nil
	}

	return []*TransactionRecord{
		{
			TxID:      newMockTxID(),
			Timestamp: time.Now().UTC().Add(-24 * time.Hour),
			Type:      EventCreation,
			Actor:     "system",
			Payload:   map[string]any{"productId": subjectID, "seeded": true},
			Source:    SourceMock,
			Status:    "committed",
		},
	}, nil
}

// Probe implements Backend. The mock backend is always reachable.
func (m *MockBackend) Probe(_ context.Context) ProbeResult {
	return ProbeResult{Backend: m.Name(), Reachable: true}
}

// newMockTxID builds a mock transaction identifier: prefix + unix millis +
// an 8-character random suffix.
func newMockTxID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s%d_%s", mockTxPrefix, time.Now().UnixMilli(), suffix)
}
