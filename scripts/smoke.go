//go:build ignore

// smoke.go exercises a running TraceRoot server end to end: registers a
// product, transfers custody, updates the price, and checks the trace and
// verification endpoints.
//
// Run with: go run scripts/smoke.go [server-url]
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

func main() {
	base := "http://localhost:8080"
	if len(os.Args) > 1 {
		base = os.Args[1]
	}

	hc := &http.Client{Timeout: 30 * time.Second}

	// Health first.
	step("healthz", func() ([]byte, error) {
		return get(hc, base+"/healthz")
	})

	// Register.
	var product struct {
		ID         string `json:"id"`
		LedgerTxID string `json:"ledgerTxId"`
	}
	body := step("register", func() ([]byte, error) {
		return post(hc, base+"/api/v1/products", map[string]string{
			"name":  "Smoke Test Widget",
			"owner": "smoke-test",
			"price": "9.99",
		})
	})
	if err := json.Unmarshal(body, &product); err != nil {
		fatal("decode product: %v", err)
	}
	fmt.Printf("    product %s tx %s\n", product.ID, product.LedgerTxID)

	// Transfer, price update, trace, verify.
	step("transfer", func() ([]byte, error) {
		return post(hc, base+"/api/v1/products/"+product.ID+"/transfer", map[string]string{
			"newOwner": "smoke-test-2", "actor": "smoke-test",
		})
	})
	step("price set", func() ([]byte, error) {
		return post(hc, base+"/api/v1/products/"+product.ID+"/price", map[string]string{
			"price": "11.49", "actor": "smoke-test",
		})
	})
	step("price history", func() ([]byte, error) {
		return get(hc, base+"/api/v1/products/"+product.ID+"/price/history")
	})
	step("trace", func() ([]byte, error) {
		return get(hc, base+"/api/v1/products/"+product.ID+"/trace")
	})
	step("verify", func() ([]byte, error) {
		return get(hc, base+"/api/v1/ledger/verify/"+product.LedgerTxID)
	})
	step("probe", func() ([]byte, error) {
		return get(hc, base+"/api/v1/ledger/probe")
	})

	fmt.Println("smoke test passed")
}

func step(name string, fn func() ([]byte, error)) []byte {
	body, err := fn()
	if err != nil {
		fatal("%s: %v", name, err)
	}
	fmt.Printf("ok  %s\n", name)
	return body
}

func get(hc *http.Client, url string) ([]byte, error) {
	resp, err := hc.Get(url)
	if err != nil {
		return nil, err
	}
	return readOK(resp)
}

func post(hc *http.Client, url string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return readOK(resp)
}

func readOK(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	}
	return body, nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL "+format+"\n", args...)
	os.Exit(1)
}
