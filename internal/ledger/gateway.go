package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rafsan3051/TraceRoot-sub000/internal/config"
	"go.uber.org/zap"
)

// Chaincode functions exposed by the gateway. The invoke side records one
// event; the query side serves per-subject history and per-transaction lookup.
const (
	fnRecordEvent    = "recordEvent"
	fnGetTransaction = "getTransaction"
	fnGetHistory     = "getHistoryForProduct"
)

// maxOpaqueTxIDLen caps a response body reused verbatim as a transaction
// identifier, so a misrouted HTML error page cannot become one.
const maxOpaqueTxIDLen = 256

// txIDFields is the ordered list of candidate field names tried when parsing
// a gateway response for a transaction identifier. Gateway response shapes
// are not standardized across deployments.
var txIDFields = []string{"transactionId", "txid", "txId", "transaction_id", "id"}

// GatewayBackend talks to a REST gateway in front of a permissioned
// chaincode network. Requests carry the channel/chaincode/signer routing
// triple; responses are normalized with best-effort field guessing.
type GatewayBackend struct {
	cfg    config.GatewayConfig
	http   *http.Client
	logger *zap.Logger
}

// NewGatewayBackend creates a GatewayBackend. The http.Client is created once
// and reused across calls; per-call deadlines come from the caller's context.
func NewGatewayBackend(cfg config.GatewayConfig, logger *zap.Logger) *GatewayBackend {
	return &GatewayBackend{
		cfg:    cfg,
		http:   &http.Client{},
		logger: logger,
	}
}

// Name implements Backend.
func (g *GatewayBackend) Name() string { return "gateway" }

// invokeEnvelope is the request body for both invoke and query calls.
type invokeEnvelope struct {
	Channel   string   `json:"channel"`
	Chaincode string   `json:"chaincode"`
	Signer    string   `json:"signer"`
	Function  string   `json:"function"`
	Args      []string `json:"args"`
}

// Record implements Backend. It POSTs a chaincode invoke and extracts the
// transaction identifier from whatever shape the gateway returns.
func (g *GatewayBackend) Record(ctx context.Context, ev Event) (*TransactionRecord, error) {
	if ev.Type == "" {
		return nil, fmt.Errorf("%w: event type is required", ErrInvalidInput)
	}

	payloadJSON, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal event payload: %v", ErrInvalidInput, err)
	}

	body, status, err := g.post(ctx, "/invoke", invokeEnvelope{
		Channel:   g.cfg.Channel,
		Chaincode: g.cfg.Chaincode,
		Signer:    g.cfg.SignerID,
		Function:  fnRecordEvent,
		Args:      []string{ev.SubjectID, string(ev.Type), ev.Actor, string(payloadJSON)},
	})
	if err != nil {
		return nil, backendErr(g.Name(), "record", err)
	}
	if status < 200 || status >= 300 {
		return nil, rejectedErr(g.Name(), "record",
			fmt.Errorf("gateway returned status %d: %s", status, truncate(string(body), 200)))
	}

	txID := extractTxID(body)
	if txID == "" {
		return nil, rejectedErr(g.Name(), "record", fmt.Errorf("gateway returned empty response body"))
	}

	return &TransactionRecord{
		TxID:      txID,
		Timestamp: time.Now().UTC(),
		Type:      ev.Type,
		Actor:     ev.Actor,
		Payload:   ev.Payload,
		Source:    SourceOnchain,
		Status:    "submitted",
	}, nil
}

// Verify implements Backend. A 404 or an empty result means the transaction
// is unknown, which is a negative confirmation, not an error.
func (g *GatewayBackend) Verify(ctx context.Context, txID string) (*Confirmation, error) {
	body, status, err := g.post(ctx, "/query", invokeEnvelope{
		Channel:   g.cfg.Channel,
		Chaincode: g.cfg.Chaincode,
		Signer:    g.cfg.SignerID,
		Function:  fnGetTransaction,
		Args:      []string{txID},
	})
	if err != nil {
		return nil, backendErr(g.Name(), "verify", err)
	}
	if status == http.StatusNotFound {
		return &Confirmation{Verified: false, Timestamp: time.Now().UTC()}, nil
	}
	if status < 200 || status >= 300 {
		return nil, rejectedErr(g.Name(), "verify",
			fmt.Errorf("gateway returned status %d: %s", status, truncate(string(body), 200)))
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		return &Confirmation{Verified: false, Timestamp: time.Now().UTC()}, nil
	}

	ts := guessTimestamp(raw)
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &Confirmation{Verified: true, Timestamp: ts, Raw: raw}, nil
}

// History implements Backend. The gateway's event list is normalized into
// TransactionRecords and ordered by the gateway's own timestamp, newest first.
func (g *GatewayBackend) History(ctx context.Context, subjectID string) ([]*TransactionRecord, error) {
	body, status, err := g.post(ctx, "/query", invokeEnvelope{
		Channel:   g.cfg.Channel,
		Chaincode: g.cfg.Chaincode,
		Signer:    g.cfg.SignerID,
		Function:  fnGetHistory,
		Args:      []string{subjectID},
	})
	if err != nil {
		return nil, backendErr(g.Name(), "history", err)
	}
	if status == http.StatusNotFound {
		return []*TransactionRecord{}, nil
	}
	if status < 200 || status >= 300 {
		return nil, rejectedErr(g.Name(), "history",
			fmt.Errorf("gateway returned status %d: %s", status, truncate(string(body), 200)))
	}

	items := decodeEventList(body)
	records := make([]*TransactionRecord, 0, len(items))
	for _, item := range items {
		records = append(records, normalizeGatewayEvent(item))
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	return records, nil
}

// Probe implements Backend. It GETs the gateway's health endpoint, falling
// back to the base URL, and never requires a full invoke.
func (g *GatewayBackend) Probe(ctx context.Context) ProbeResult {
	start := time.Now()
	for _, path := range []string{"/health", ""} {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.URL+path, nil)
		if err != nil {
			continue
		}
		g.authorize(req)
		resp, err := g.http.Do(req)
		if err != nil {
			continue
		}
		resp.Body.Close()
		return ProbeResult{
			Backend:    g.Name(),
			Reachable:  resp.StatusCode < 500,
			HTTPStatus: resp.StatusCode,
			Latency:    time.Since(start),
		}
	}
	return ProbeResult{
		Backend:    g.Name(),
		Reachable:  false,
		ErrorClass: ClassUnavailable,
		Latency:    time.Since(start),
	}
}

// post sends one JSON request and returns the response body and status.
// Transport-level failures come back as errors for classification; HTTP-level
// failures come back as a status code for the caller to interpret.
func (g *GatewayBackend) post(ctx context.Context, path string, env invokeEnvelope) ([]byte, int, error) {
	reqBody, err := json.Marshal(env)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, 0, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	g.authorize(req)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("gateway request to %s: %w", g.cfg.URL, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read gateway response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func (g *GatewayBackend) authorize(req *http.Request) {
	if g.cfg.AuthHeader != "" {
		req.Header.Set("Authorization", g.cfg.AuthHeader)
	}
}

// extractTxID pulls a transaction identifier out of an arbitrary gateway
// response. It tries the known field names at the top level, then inside a
// nested "result", and finally treats the whole body as an opaque identifier.
func extractTxID(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var parsed any
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch v := parsed.(type) {
		case string:
			return truncate(strings.TrimSpace(v), maxOpaqueTxIDLen)
		case map[string]any:
			if id := lookupTxID(v); id != "" {
				return id
			}
			if nested, ok := v["result"]; ok {
				switch n := nested.(type) {
				case string:
					return truncate(strings.TrimSpace(n), maxOpaqueTxIDLen)
				case map[string]any:
					if id := lookupTxID(n); id != "" {
						return id
					}
				}
			}
		}
	}

	// Nothing matched: the body itself is the identifier.
	return truncate(strings.Trim(trimmed, `"`), maxOpaqueTxIDLen)
}

func lookupTxID(m map[string]any) string {
	for _, field := range txIDFields {
		if v, ok := m[field]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// decodeEventList accepts either a bare JSON array or an object wrapping one
// under "result", "events", or "history".
func decodeEventList(body []byte) []map[string]any {
	var items []map[string]any
	if err := json.Unmarshal(body, &items); err == nil {
		return items
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil
	}
	for _, key := range []string{"result", "events", "history"} {
		if raw, ok := wrapper[key]; ok {
			if err := json.Unmarshal(raw, &items); err == nil {
				return items
			}
		}
	}
	return nil
}

// normalizeGatewayEvent maps one gateway event object onto the canonical
// record shape, guessing field names where deployments disagree.
func normalizeGatewayEvent(item map[string]any) *TransactionRecord {
	rec := &TransactionRecord{
		TxID:    lookupTxID(item),
		Source:  SourceOnchain,
		Payload: item,
	}

	if rec.TxID == "" {
		rec.TxID = fmt.Sprintf("unknown_%d", time.Now().UnixNano())
	}

	for _, field := range []string{"type", "eventType", "action"} {
		if s, ok := item[field].(string); ok && s != "" {
			rec.Type = EventType(s)
			break
		}
	}
	if rec.Type == "" {
		rec.Type = EventGeneric
	}

	for _, field := range []string{"actor", "creator", "submitter", "mspId"} {
		if s, ok := item[field].(string); ok && s != "" {
			rec.Actor = s
			break
		}
	}

	if p, ok := item["payload"].(map[string]any); ok {
		rec.Payload = p
	} else if d, ok := item["data"].(map[string]any); ok {
		rec.Payload = d
	}

	if s, ok := item["status"].(string); ok {
		rec.Status = s
	}

	rec.Timestamp = guessTimestamp(item)
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	return rec
}

// guessTimestamp reads the first recognizable timestamp field: RFC 3339
// strings or unix seconds/milliseconds.
func guessTimestamp(item map[string]any) time.Time {
	for _, field := range []string{"timestamp", "time", "createdAt", "txTimestamp"} {
		switch v := item[field].(type) {
		case string:
			if ts, err := time.Parse(time.RFC3339, v); err == nil {
				return ts
			}
			if ts, err := time.Parse(time.RFC3339Nano, v); err == nil {
				return ts
			}
		case float64:
			// Heuristic: values past the year ~33658 in seconds are millis.
			if v > 1e12 {
				return time.UnixMilli(int64(v)).UTC()
			}
			if v > 0 {
				return time.Unix(int64(v), 0).UTC()
			}
		}
	}
	return time.Time{}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
