package config

import (
	"errors"
	"strings"
	"testing"
)

func TestEffectiveMode_gateForcesMock(t *testing.T) {
	tests := []struct {
		name string
		cfg  LedgerConfig
		want string
	}{
		{"zero value", LedgerConfig{}, ModeMock},
		{"mode without gate", LedgerConfig{Mode: ModePermissioned}, ModeMock},
		{"public without gate", LedgerConfig{Mode: ModePublic}, ModeMock},
		{"gate without mode", LedgerConfig{UseRealLedger: true}, ModeMock},
		{"permissioned", LedgerConfig{Mode: ModePermissioned, UseRealLedger: true}, ModePermissioned},
		{"public", LedgerConfig{Mode: ModePublic, UseRealLedger: true}, ModePublic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.EffectiveMode(); got != tt.want {
				t.Errorf("EffectiveMode(): got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidate_mockNeedsNothing(t *testing.T) {
	if err := (LedgerConfig{}).Validate(); err != nil {
		t.Errorf("mock mode should validate: %v", err)
	}
}

func TestValidate_permissionedMissingKeys(t *testing.T) {
	cfg := LedgerConfig{
		Mode:          ModePermissioned,
		UseRealLedger: true,
		Gateway:       GatewayConfig{URL: "http://gateway:8801"},
	}

	err := cfg.Validate()
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	for _, key := range []string{"ledger.gateway.auth_header", "ledger.gateway.channel", "ledger.gateway.chaincode", "ledger.gateway.signer_id"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error should name missing key %s: %v", key, err)
		}
	}
	if strings.Contains(err.Error(), "ledger.gateway.url") {
		t.Errorf("url was provided and should not be reported missing: %v", err)
	}
}

func TestValidate_permissionedComplete(t *testing.T) {
	cfg := LedgerConfig{
		Mode:          ModePermissioned,
		UseRealLedger: true,
		Gateway: GatewayConfig{
			URL:        "http://gateway:8801",
			AuthHeader: "Bearer gw-token",
			Channel:    "trace-channel",
			Chaincode:  "tracecc",
			SignerID:   "org1",
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("complete permissioned config should validate: %v", err)
	}
}

func TestValidate_permissionedMissingAuthHeader(t *testing.T) {
	cfg := LedgerConfig{
		Mode:          ModePermissioned,
		UseRealLedger: true,
		Gateway: GatewayConfig{
			URL:       "http://gateway:8801",
			Channel:   "trace-channel",
			Chaincode: "tracecc",
			SignerID:  "org1",
		},
	}

	err := cfg.Validate()
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if !strings.Contains(err.Error(), "ledger.gateway.auth_header") {
		t.Errorf("error should name the missing auth header: %v", err)
	}
}

func TestValidate_publicMissingKeys(t *testing.T) {
	cfg := LedgerConfig{Mode: ModePublic, UseRealLedger: true}

	err := cfg.Validate()
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	for _, key := range []string{"ledger.chain.rpc_url", "ledger.chain.private_key", "ledger.chain.product_registry_address"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error should name missing key %s: %v", key, err)
		}
	}
}

func TestValidate_unknownMode(t *testing.T) {
	cfg := LedgerConfig{Mode: "hyperledger", UseRealLedger: true}
	if err := cfg.Validate(); !errors.Is(err, ErrConfiguration) {
		t.Errorf("expected ErrConfiguration for unknown mode, got %v", err)
	}
}
