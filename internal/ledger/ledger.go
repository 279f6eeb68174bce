// Package ledger records, verifies, and replays supply-chain events against
// one of several interchangeable distributed-ledger backends.
//
// Every backend implements the Backend interface and normalizes its responses
// into TransactionRecord; backend-specific response parsing never leaks past
// this package. Exactly one backend is active per process, chosen once from
// configuration by the Facade, which wraps every call with a deadline and,
// unless strict mode is on, substitutes the mock backend's result when the
// real backend fails.
//
// Three implementations of Backend are provided:
//   - MockBackend: deterministic in-process stand-in, also the fallback target.
//   - GatewayBackend: a permissioned-network REST gateway (chaincode
//     invoke/query over HTTPS).
//   - ChainBackend: a public-chain JSON-RPC endpoint via go-ethereum.
package ledger

import "context"

// Backend is the operation set every ledger backend implements.
type Backend interface {
	// Name identifies the backend in logs, metrics, and probe results.
	Name() string

	// Record submits a typed event and returns the normalized record.
	// It must complete within the caller's deadline and must not partially
	// apply: on error, no record is returned.
	Record(ctx context.Context, ev Event) (*TransactionRecord, error)

	// Verify reports whether txID is confirmed. It is safe to call any
	// number of times; an unknown txID yields Verified=false, not an error.
	Verify(ctx context.Context, txID string) (*Confirmation, error)

	// History returns the records for a subject ordered by the backend's
	// own timestamp, newest first. No records yields an empty slice.
	History(ctx context.Context, subjectID string) ([]*TransactionRecord, error)

	// Probe is a lightweight reachability check that does not require a
	// full record/verify round trip.
	Probe(ctx context.Context) ProbeResult
}
