package ledger

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rafsan3051/TraceRoot-sub000/internal/config"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// productRegistryABI is the contract surface the backend needs: one function
// to register an event and the event it emits.
const productRegistryABI = `[
	{"type":"function","name":"recordEvent","stateMutability":"nonpayable","inputs":[{"name":"productId","type":"string"},{"name":"eventType","type":"string"},{"name":"data","type":"string"}],"outputs":[]},
	{"type":"event","name":"ProductEvent","anonymous":false,"inputs":[{"name":"productId","type":"string","indexed":true},{"name":"eventType","type":"string","indexed":false},{"name":"actor","type":"address","indexed":false},{"name":"data","type":"string","indexed":false}]}
]`

// supplyChainABI is the optional secondary log contract.
const supplyChainABI = `[
	{"type":"function","name":"appendEntry","stateMutability":"nonpayable","inputs":[{"name":"productId","type":"string"},{"name":"entry","type":"string"}],"outputs":[]}
]`

// evmGasLimit is a fixed cap for contract calls; both functions only write
// an event plus a small log entry and fit comfortably under it.
const evmGasLimit = uint64(500_000)

// subunitScale converts between decimal prices and the chain's smallest
// indivisible unit: two decimal places, stored as an integer.
var subunitScale = decimal.NewFromInt(100)

// rpcClient is the slice of the go-ethereum client the backend uses.
// *ethclient.Client satisfies it.
type rpcClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CodeAt(ctx context.Context, contract common.Address, blockNumber *big.Int) ([]byte, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// ChainBackend talks to a public-chain JSON-RPC endpoint via go-ethereum.
// The client and signing key are created once per process and are safe for
// concurrent use by multiple in-flight calls; transaction submission is
// serialised so concurrent records cannot race on the account nonce.
type ChainBackend struct {
	client      rpcClient
	key         *ecdsa.PrivateKey
	from        common.Address
	registry    common.Address
	supplyChain *common.Address // nil = no secondary log contract
	registryABI abi.ABI
	supplyABI   abi.ABI
	eventID     common.Hash

	chainOnce sync.Once
	chainID   *big.Int
	chainErr  error

	sendMu sync.Mutex // serialises nonce read + submit

	logger *zap.Logger
}

// NewChainBackend dials the RPC endpoint and prepares the signer. The dial
// itself is lazy for HTTP endpoints; connectivity problems surface on first
// use, where the facade's fallback handles them.
func NewChainBackend(cfg config.ChainConfig, logger *zap.Logger) (*ChainBackend, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial rpc endpoint: %v", ErrConfiguration, err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: parse private key: %v", ErrConfiguration, err)
	}

	if !common.IsHexAddress(cfg.ProductRegistryAddress) {
		return nil, fmt.Errorf("%w: bad product registry address %q", ErrConfiguration, cfg.ProductRegistryAddress)
	}

	registryABI, err := abi.JSON(strings.NewReader(productRegistryABI))
	if err != nil {
		return nil, fmt.Errorf("parse registry abi: %w", err)
	}
	supplyABI, err := abi.JSON(strings.NewReader(supplyChainABI))
	if err != nil {
		return nil, fmt.Errorf("parse supply chain abi: %w", err)
	}

	b := &ChainBackend{
		client:      client,
		key:         key,
		from:        crypto.PubkeyToAddress(key.PublicKey),
		registry:    common.HexToAddress(cfg.ProductRegistryAddress),
		registryABI: registryABI,
		supplyABI:   supplyABI,
		eventID:     registryABI.Events["ProductEvent"].ID,
		logger:      logger,
	}
	if common.IsHexAddress(cfg.SupplyChainAddress) {
		addr := common.HexToAddress(cfg.SupplyChainAddress)
		b.supplyChain = &addr
	}
	return b, nil
}

// Name implements Backend.
func (c *ChainBackend) Name() string { return "chain" }

// Record implements Backend. It signs and submits the registry call, waits
// for the receipt, and optionally appends a supply-chain log entry. The
// secondary call is best-effort: its failure is logged, never returned.
func (c *ChainBackend) Record(ctx context.Context, ev Event) (*TransactionRecord, error) {
	if ev.Type == "" {
		return nil, fmt.Errorf("%w: event type is required", ErrInvalidInput)
	}

	data, err := c.encodePayload(ev)
	if err != nil {
		return nil, err
	}

	input, err := c.registryABI.Pack("recordEvent", ev.SubjectID, string(ev.Type), data)
	if err != nil {
		return nil, rejectedErr(c.Name(), "record", fmt.Errorf("pack recordEvent: %w", err))
	}

	receipt, err := c.submit(ctx, c.registry, input)
	if err != nil {
		return nil, backendErr(c.Name(), "record", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, rejectedErr(c.Name(), "record",
			fmt.Errorf("transaction %s reverted", receipt.TxHash.Hex()))
	}

	if c.supplyChain != nil {
		if err := c.appendSupplyEntry(ctx, ev, receipt.TxHash); err != nil {
			c.logger.Warn("supply chain log entry failed",
				zap.String("tx", receipt.TxHash.Hex()),
				zap.Error(err),
			)
		}
	}

	confirmations := c.confirmations(ctx, receipt.BlockNumber)

	return &TransactionRecord{
		TxID:          receipt.TxHash.Hex(),
		Timestamp:     c.blockTime(ctx, receipt.BlockNumber),
		Type:          ev.Type,
		Actor:         c.from.Hex(),
		Payload:       ev.Payload,
		Source:        SourceOnchain,
		Status:        "confirmed",
		Confirmations: confirmations,
	}, nil
}

// Verify implements Backend. A missing receipt is a negative confirmation,
// not an error.
func (c *ChainBackend) Verify(ctx context.Context, txID string) (*Confirmation, error) {
	receipt, err := c.client.TransactionReceipt(ctx, common.HexToHash(txID))
	if errors.Is(err, ethereum.NotFound) {
		return &Confirmation{Verified: false, Timestamp: time.Now().UTC()}, nil
	}
	if err != nil {
		return nil, backendErr(c.Name(), "verify", err)
	}

	return &Confirmation{
		Verified:  receipt.Status == types.ReceiptStatusSuccessful,
		Timestamp: c.blockTime(ctx, receipt.BlockNumber),
		Raw: map[string]any{
			"blockNumber": receipt.BlockNumber.Uint64(),
			"gasUsed":     receipt.GasUsed,
			"status":      receipt.Status,
		},
	}, nil
}

// History implements Backend. It filters ProductEvent logs by subject and
// maps each log with its block timestamp onto the canonical record shape.
func (c *ChainBackend) History(ctx context.Context, subjectID string) ([]*TransactionRecord, error) {
	logs, err := c.client.FilterLogs(ctx, ethereum.FilterQuery{
		Addresses: []common.Address{c.registry},
		Topics: [][]common.Hash{
			{c.eventID},
			{crypto.Keccak256Hash([]byte(subjectID))}, // indexed string topic
		},
	})
	if err != nil {
		return nil, backendErr(c.Name(), "history", err)
	}

	head, err := c.client.BlockNumber(ctx)
	if err != nil {
		// Confirmations degrade to zero; the records themselves are intact.
		c.logger.Warn("head block query failed", zap.Error(err))
		head = 0
	}
	blockTimes := make(map[uint64]time.Time)

	records := make([]*TransactionRecord, 0, len(logs))
	for _, lg := range logs {
		rec := c.decodeLog(lg)

		ts, ok := blockTimes[lg.BlockNumber]
		if !ok {
			ts = c.blockTime(ctx, new(big.Int).SetUint64(lg.BlockNumber))
			blockTimes[lg.BlockNumber] = ts
		}
		rec.Timestamp = ts
		if head >= lg.BlockNumber {
			rec.Confirmations = head - lg.BlockNumber + 1
		}
		records = append(records, rec)
	}

	// Newest first; logs arrive oldest first from the filter.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

// Probe implements Backend.
func (c *ChainBackend) Probe(ctx context.Context) ProbeResult {
	start := time.Now()
	if _, err := c.client.BlockNumber(ctx); err != nil {
		return ProbeResult{
			Backend:    c.Name(),
			Reachable:  false,
			ErrorClass: Classify(err),
			Latency:    time.Since(start),
		}
	}
	return ProbeResult{Backend: c.Name(), Reachable: true, Latency: time.Since(start)}
}

// encodePayload serialises the event payload for on-chain storage. A price
// in a PRICE_UPDATE payload is rewritten as integer subunits; fractional
// subunits are rejected before anything is submitted.
func (c *ChainBackend) encodePayload(ev Event) (string, error) {
	payload := make(map[string]any, len(ev.Payload)+1)
	for k, v := range ev.Payload {
		payload[k] = v
	}
	payload["actor"] = ev.Actor

	if ev.Type == EventPriceUpdate {
		price, ok, err := payloadPrice(ev.Payload)
		if err != nil {
			return "", err
		}
		if ok {
			subunits, err := priceToSubunits(price)
			if err != nil {
				return "", err
			}
			delete(payload, "price")
			payload["priceSubunits"] = subunits.String()
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: marshal event payload: %v", ErrInvalidInput, err)
	}
	return string(data), nil
}

// submit signs and sends one contract call, then waits for it to be mined.
// Nonce read and submission are serialised; a retried submission could
// double-record, so callers must not loop on error.
func (c *ChainBackend) submit(ctx context.Context, to common.Address, input []byte) (*types.Receipt, error) {
	chainID, err := c.getChainID(ctx)
	if err != nil {
		return nil, err
	}

	c.sendMu.Lock()
	nonce, err := c.client.PendingNonceAt(ctx, c.from)
	if err != nil {
		c.sendMu.Unlock()
		return nil, fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		c.sendMu.Unlock()
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), evmGasLimit, gasPrice, input)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), c.key)
	if err != nil {
		c.sendMu.Unlock()
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	err = c.client.SendTransaction(ctx, signed)
	c.sendMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, c.client, signed)
	if err != nil {
		return nil, fmt.Errorf("wait for receipt %s: %w", signed.Hash().Hex(), err)
	}
	return receipt, nil
}

// appendSupplyEntry makes the optional second call against the supply-chain
// log contract, referencing the primary transaction hash.
func (c *ChainBackend) appendSupplyEntry(ctx context.Context, ev Event, primary common.Hash) error {
	entry, err := json.Marshal(map[string]any{
		"eventType": ev.Type,
		"actor":     ev.Actor,
		"ref":       primary.Hex(),
	})
	if err != nil {
		return fmt.Errorf("marshal supply entry: %w", err)
	}

	input, err := c.supplyABI.Pack("appendEntry", ev.SubjectID, string(entry))
	if err != nil {
		return fmt.Errorf("pack appendEntry: %w", err)
	}

	receipt, err := c.submit(ctx, *c.supplyChain, input)
	if err != nil {
		return err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return fmt.Errorf("appendEntry transaction %s reverted", receipt.TxHash.Hex())
	}
	return nil
}

// decodeLog unpacks one ProductEvent log. The data string is parsed back
// into a payload map, with priceSubunits converted to a decimal price.
func (c *ChainBackend) decodeLog(lg types.Log) *TransactionRecord {
	rec := &TransactionRecord{
		TxID:   lg.TxHash.Hex(),
		Source: SourceOnchain,
		Type:   EventGeneric,
		Status: "confirmed",
	}

	out, err := c.registryABI.Unpack("ProductEvent", lg.Data)
	if err != nil || len(out) < 3 {
		c.logger.Warn("undecodable ProductEvent log", zap.String("tx", rec.TxID), zap.Error(err))
		return rec
	}

	if s, ok := out[0].(string); ok && s != "" {
		rec.Type = EventType(s)
	}
	if addr, ok := out[1].(common.Address); ok {
		rec.Actor = addr.Hex()
	}
	if data, ok := out[2].(string); ok && data != "" {
		var payload map[string]any
		if err := json.Unmarshal([]byte(data), &payload); err == nil {
			if s, ok := payload["priceSubunits"].(string); ok {
				if subunits, valid := new(big.Int).SetString(s, 10); valid {
					payload["price"] = subunitsToPrice(subunits).String()
					delete(payload, "priceSubunits")
				}
			}
			rec.Payload = payload
		}
	}
	return rec
}

func (c *ChainBackend) getChainID(ctx context.Context) (*big.Int, error) {
	c.chainOnce.Do(func() {
		c.chainID, c.chainErr = c.client.ChainID(ctx)
	})
	if c.chainErr != nil {
		return nil, fmt.Errorf("chain id: %w", c.chainErr)
	}
	return c.chainID, nil
}

// blockTime returns the timestamp of the given block, or the current time if
// the header cannot be fetched (the record still needs a timestamp).
func (c *ChainBackend) blockTime(ctx context.Context, blockNumber *big.Int) time.Time {
	header, err := c.client.HeaderByNumber(ctx, blockNumber)
	if err != nil {
		return time.Now().UTC()
	}
	return time.Unix(int64(header.Time), 0).UTC()
}

func (c *ChainBackend) confirmations(ctx context.Context, blockNumber *big.Int) uint64 {
	head, err := c.client.BlockNumber(ctx)
	if err != nil || blockNumber == nil || head < blockNumber.Uint64() {
		return 0
	}
	return head - blockNumber.Uint64() + 1
}

// payloadPrice extracts a price from an event payload, accepting string or
// numeric JSON values.
func payloadPrice(payload map[string]any) (decimal.Decimal, bool, error) {
	v, ok := payload["price"]
	if !ok {
		return decimal.Zero, false, nil
	}
	switch p := v.(type) {
	case string:
		d, err := decimal.NewFromString(p)
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("%w: bad price %q", ErrInvalidInput, p)
		}
		return d, true, nil
	case float64:
		return decimal.NewFromFloat(p), true, nil
	case decimal.Decimal:
		return p, true, nil
	default:
		return decimal.Zero, false, fmt.Errorf("%w: bad price type %T", ErrInvalidInput, v)
	}
}

// priceToSubunits converts a decimal price to integer subunits, rejecting
// values that do not land on a whole subunit.
func priceToSubunits(price decimal.Decimal) (*big.Int, error) {
	scaled := price.Mul(subunitScale)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: price %s is not a whole subunit amount", ErrInvalidInput, price)
	}
	if scaled.IsNegative() {
		return nil, fmt.Errorf("%w: price %s is negative", ErrInvalidInput, price)
	}
	return scaled.BigInt(), nil
}

// subunitsToPrice converts integer subunits back to a decimal price.
func subunitsToPrice(subunits *big.Int) decimal.Decimal {
	return decimal.NewFromBigInt(subunits, 0).Div(subunitScale)
}
