package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rafsan3051/TraceRoot-sub000/internal/config"
	"go.uber.org/zap"
)

// Facade exposes the three stable ledger operations to the rest of the
// system. It selects exactly one backend for the process lifetime and wraps
// every attempt with a deadline. Unless strict mode is on, a failed call is
// re-issued against the mock backend so callers never observe a hard failure;
// the caller-visible signal of degradation is the record's Source.
type Facade struct {
	backend  Backend
	fallback *MockBackend
	strict   bool

	recordTimeout time.Duration
	queryTimeout  time.Duration
	probeTimeout  time.Duration

	logger *zap.Logger
}

// NewFacade builds the facade from configuration. The backend choice is made
// here, once; it is never re-evaluated mid-call.
func NewFacade(cfg config.LedgerConfig, logger *zap.Logger) (*Facade, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	var backend Backend
	switch mode := cfg.EffectiveMode(); mode {
	case config.ModeMock:
		backend = NewMockBackend()
	case config.ModePermissioned:
		backend = NewGatewayBackend(cfg.Gateway, logger)
	case config.ModePublic:
		var err error
		backend, err = NewChainBackend(cfg.Chain, logger)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown ledger mode %q", ErrConfiguration, mode)
	}

	logger.Info("ledger backend selected",
		zap.String("backend", backend.Name()),
		zap.Bool("strict", cfg.Strict),
	)
	return newFacadeWith(backend, cfg, logger), nil
}

// newFacadeWith wires a facade around an already-constructed backend.
// Separated from NewFacade so tests can inject failing backends.
func newFacadeWith(backend Backend, cfg config.LedgerConfig, logger *zap.Logger) *Facade {
	recordTimeout := cfg.RecordTimeout
	if recordTimeout <= 0 {
		recordTimeout = 30 * time.Second
	}
	// Public-chain records include the receipt wait.
	if cfg.EffectiveMode() == config.ModePublic && cfg.ConfirmTimeout > recordTimeout {
		recordTimeout = cfg.ConfirmTimeout
	}
	queryTimeout := cfg.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = 15 * time.Second
	}
	probeTimeout := cfg.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = 10 * time.Second
	}

	return &Facade{
		backend:       backend,
		fallback:      NewMockBackend(),
		strict:        cfg.Strict,
		recordTimeout: recordTimeout,
		queryTimeout:  queryTimeout,
		probeTimeout:  probeTimeout,
		logger:        logger,
	}
}

// BackendName reports the active backend for logs and diagnostics.
func (f *Facade) BackendName() string { return f.backend.Name() }

// RecordTransaction submits one typed event. The event is issued to the
// backend exactly once per call: recording is not idempotent at the backend
// level, so retry policy belongs to the caller, never to this method.
func (f *Facade) RecordTransaction(ctx context.Context, ev Event) (*TransactionRecord, error) {
	if ev.Type == "" {
		return nil, fmt.Errorf("%w: event type is required", ErrInvalidInput)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, f.recordTimeout)
	start := time.Now()
	rec, err := f.backend.Record(attemptCtx, ev)
	cancel()
	observeAttempt(f.backend.Name(), "record", start, err)

	if err == nil {
		return rec, nil
	}
	if errors.Is(err, ErrInvalidInput) {
		return nil, err
	}
	if f.strict {
		return nil, err
	}

	class := Classify(err)
	f.logger.Warn("ledger record failed, falling back",
		zap.String("backend", f.backend.Name()),
		zap.String("class", string(class)),
		zap.String("event_type", string(ev.Type)),
		zap.String("subject", ev.SubjectID),
		zap.Error(err),
	)
	observeFallback("record", class)

	// The fallback attempt itself is not allowed to fail silently: caller
	// cancellation at this point is terminal.
	if ctx.Err() != nil {
		return nil, fmt.Errorf("fallback record cancelled: %w", ctx.Err())
	}

	fb, fbErr := f.fallback.Record(ctx, ev)
	if fbErr != nil {
		return nil, fmt.Errorf("fallback record: %w", fbErr)
	}
	fb.Source = SourceFallback
	fb.TxID = strings.Replace(fb.TxID, mockTxPrefix, "fallback_", 1)
	return fb, nil
}

// VerifyTransaction reports whether txID is confirmed. Safe to call any
// number of times; an unknown txID is a negative confirmation, not an error.
func (f *Facade) VerifyTransaction(ctx context.Context, txID string) (*Confirmation, error) {
	if txID == "" {
		return nil, fmt.Errorf("%w: txID is required", ErrInvalidInput)
	}

	// Locally synthesized identifiers never reached a real backend; answer
	// them directly instead of asking a ledger that has never seen them.
	if strings.HasPrefix(txID, mockTxPrefix) || strings.HasPrefix(txID, "fallback_") {
		conf, _ := f.fallback.Verify(ctx, txID)
		conf.Source = SourceMock
		return conf, nil
	}

	attemptCtx, cancel := context.WithTimeout(ctx, f.queryTimeout)
	start := time.Now()
	conf, err := f.backend.Verify(attemptCtx, txID)
	cancel()
	observeAttempt(f.backend.Name(), "verify", start, err)

	if err == nil {
		if conf.Source == "" {
			conf.Source = f.nativeSource()
		}
		return conf, nil
	}
	if f.strict {
		return nil, err
	}

	class := Classify(err)
	f.logger.Warn("ledger verify failed, falling back",
		zap.String("backend", f.backend.Name()),
		zap.String("class", string(class)),
		zap.String("tx", txID),
		zap.Error(err),
	)
	observeFallback("verify", class)

	if ctx.Err() != nil {
		return nil, fmt.Errorf("fallback verify cancelled: %w", ctx.Err())
	}

	fb, fbErr := f.fallback.Verify(ctx, txID)
	if fbErr != nil {
		return nil, fmt.Errorf("fallback verify: %w", fbErr)
	}
	fb.Source = SourceFallback
	return fb, nil
}

// GetHistory returns the subject's records, newest first. An empty history
// is an empty slice, never an error.
func (f *Facade) GetHistory(ctx context.Context, subjectID string) ([]*TransactionRecord, error) {
	if subjectID == "" {
		return nil, fmt.Errorf("%w: subjectID is required", ErrInvalidInput)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, f.queryTimeout)
	start := time.Now()
	records, err := f.backend.History(attemptCtx, subjectID)
	cancel()
	observeAttempt(f.backend.Name(), "history", start, err)

	if err == nil {
		if records == nil {
			records = []*TransactionRecord{}
		}
		return records, nil
	}
	if f.strict {
		return nil, err
	}

	class := Classify(err)
	f.logger.Warn("ledger history failed, falling back",
		zap.String("backend", f.backend.Name()),
		zap.String("class", string(class)),
		zap.String("subject", subjectID),
		zap.Error(err),
	)
	observeFallback("history", class)

	if ctx.Err() != nil {
		return nil, fmt.Errorf("fallback history cancelled: %w", ctx.Err())
	}

	fb, fbErr := f.fallback.History(ctx, subjectID)
	if fbErr != nil {
		return nil, fmt.Errorf("fallback history: %w", fbErr)
	}
	for _, rec := range fb {
		rec.Source = SourceFallback
	}
	return fb, nil
}

// Probe runs the active backend's reachability check with its own deadline
// and records the result. Operational visibility only.
func (f *Facade) Probe(ctx context.Context) ProbeResult {
	probeCtx, cancel := context.WithTimeout(ctx, f.probeTimeout)
	defer cancel()

	res := f.backend.Probe(probeCtx)
	ObserveProbe(res)
	return res
}

func (f *Facade) nativeSource() Source {
	if f.backend.Name() == "mock" {
		return SourceMock
	}
	return SourceOnchain
}
