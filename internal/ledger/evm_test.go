package ledger

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func TestPriceToSubunits(t *testing.T) {
	tests := []struct {
		price string
		want  int64
	}{
		{"150.50", 15050},
		{"0.01", 1},
		{"0", 0},
		{"1000", 100000},
	}
	for _, tt := range tests {
		d := decimal.RequireFromString(tt.price)
		got, err := priceToSubunits(d)
		if err != nil {
			t.Fatalf("priceToSubunits(%s): %v", tt.price, err)
		}
		if got.Int64() != tt.want {
			t.Errorf("priceToSubunits(%s): got %s, want %d", tt.price, got, tt.want)
		}
	}
}

func TestPriceToSubunits_fractionalRejected(t *testing.T) {
	for _, price := range []string{"0.001", "150.505"} {
		_, err := priceToSubunits(decimal.RequireFromString(price))
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("price %s: expected ErrInvalidInput, got %v", price, err)
		}
	}
}

func TestPriceToSubunits_negativeRejected(t *testing.T) {
	_, err := priceToSubunits(decimal.RequireFromString("-1"))
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSubunitsToPrice_roundTrip(t *testing.T) {
	for _, price := range []string{"150.50", "0.01", "99999.99"} {
		d := decimal.RequireFromString(price)
		subunits, err := priceToSubunits(d)
		if err != nil {
			t.Fatal(err)
		}
		back := subunitsToPrice(subunits)
		if !back.Equal(d) {
			t.Errorf("round trip %s: got %s", price, back)
		}
	}
}

func TestPayloadPrice(t *testing.T) {
	if _, ok, err := payloadPrice(map[string]any{}); ok || err != nil {
		t.Errorf("absent price: ok=%v err=%v", ok, err)
	}

	d, ok, err := payloadPrice(map[string]any{"price": "12.50"})
	if err != nil || !ok || !d.Equal(decimal.RequireFromString("12.50")) {
		t.Errorf("string price: got %s ok=%v err=%v", d, ok, err)
	}

	d, ok, err = payloadPrice(map[string]any{"price": 12.5})
	if err != nil || !ok || !d.Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("float price: got %s ok=%v err=%v", d, ok, err)
	}

	if _, _, err := payloadPrice(map[string]any{"price": "not-a-number"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad price string: got %v", err)
	}

	if _, _, err := payloadPrice(map[string]any{"price": []int{1}}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad price type: got %v", err)
	}
}

func TestSubunitsToPrice_largeValue(t *testing.T) {
	subunits := new(big.Int).SetInt64(1_000_000_001)
	got := subunitsToPrice(subunits)
	if !got.Equal(decimal.RequireFromString("10000000.01")) {
		t.Errorf("got %s, want 10000000.01", got)
	}
}

// stubRPC scripts the JSON-RPC surface the backend reads history through.
type stubRPC struct {
	logs    []types.Log
	head    uint64
	headErr error
}

func (s *stubRPC) ChainID(context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (s *stubRPC) BlockNumber(context.Context) (uint64, error) {
	if s.headErr != nil {
		return 0, s.headErr
	}
	return s.head, nil
}

func (s *stubRPC) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Time: 1767225600}, nil
}

func (s *stubRPC) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return nil, ethereum.NotFound
}

func (s *stubRPC) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x01}, nil
}

func (s *stubRPC) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return s.logs, nil
}

func (s *stubRPC) PendingNonceAt(context.Context, common.Address) (uint64, error) { return 0, nil }

func (s *stubRPC) SuggestGasPrice(context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (s *stubRPC) SendTransaction(context.Context, *types.Transaction) error { return nil }

func chainBackendOver(t *testing.T, client rpcClient) *ChainBackend {
	t.Helper()
	registryABI, err := abi.JSON(strings.NewReader(productRegistryABI))
	if err != nil {
		t.Fatal(err)
	}
	return &ChainBackend{
		client:      client,
		registry:    common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		registryABI: registryABI,
		eventID:     registryABI.Events["ProductEvent"].ID,
		logger:      zap.NewNop(),
	}
}

func productEventLog(t *testing.T, backend *ChainBackend, block uint64) types.Log {
	t.Helper()
	data, err := backend.registryABI.Events["ProductEvent"].Inputs.NonIndexed().Pack(
		"TRANSFER",
		common.HexToAddress("0x0000000000000000000000000000000000000001"),
		`{"newOwner":"globex"}`,
	)
	if err != nil {
		t.Fatal(err)
	}
	return types.Log{
		TxHash:      common.HexToHash("0xbeef"),
		BlockNumber: block,
		Data:        data,
	}
}

func TestChainHistory_confirmationsFromHead(t *testing.T) {
	rpc := &stubRPC{head: 12}
	backend := chainBackendOver(t, rpc)
	rpc.logs = []types.Log{productEventLog(t, backend, 10)}

	records, err := backend.History(ctx, "prod-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Type != EventTransfer {
		t.Errorf("type: got %s", rec.Type)
	}
	if rec.Confirmations != 3 {
		t.Errorf("confirmations: got %d, want 3", rec.Confirmations)
	}
	if rec.Payload["newOwner"] != "globex" {
		t.Errorf("payload: got %v", rec.Payload)
	}
}

func TestChainHistory_headQueryFailureDegradesConfirmations(t *testing.T) {
	rpc := &stubRPC{headErr: errors.New("rpc node busy")}
	backend := chainBackendOver(t, rpc)
	rpc.logs = []types.Log{productEventLog(t, backend, 10)}

	records, err := backend.History(ctx, "prod-1")
	if err != nil {
		t.Fatalf("head query failure should not fail history: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].Confirmations != 0 {
		t.Errorf("confirmations should degrade to zero, got %d", records[0].Confirmations)
	}
	if records[0].TxID == "" {
		t.Error("record should keep its transaction hash")
	}
}
