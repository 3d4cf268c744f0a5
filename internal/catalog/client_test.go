package catalog

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"chandlery/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestGetProductsScrollAllWithRetry(t *testing.T) {
	attempt := 0

	cfg, _ := config.Load()
	cfg.ERPAPIToken = "test"
	cfg.ERPAPIBaseURL = "https://example.test/api/v1"
	cfg.ERPRateLimitRPS = 1000

	client := NewClient(cfg)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/api/v1/products/scroll" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			attempt++
			if attempt == 1 {
				return &http.Response{
					StatusCode: http.StatusInternalServerError,
					Body:       io.NopCloser(strings.NewReader(`{"error":"boom"}`)),
					Header:     make(http.Header),
				}, nil
			}

			payload := map[string]any{"success": true, "data": map[string]any{"products": []map[string]any{}, "scrollId": nil}}
			if attempt == 2 {
				payload = map[string]any{"success": true, "data": map[string]any{"products": []map[string]any{{"id": 1, "code": "P-1001", "name": "Mineral Water 500ml"}}, "scrollId": "abc"}}
			}
			if attempt == 3 {
				payload = map[string]any{"success": true, "data": map[string]any{"products": []map[string]any{{"id": 2, "code": "P-1002", "name": "Olive Oil 1L"}}, "scrollId": nil}}
			}
			blob, _ := json.Marshal(payload)
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(string(blob))),
				Header:     make(http.Header),
			}, nil
		}),
	}

	products, err := client.GetProductsScrollAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 2 {
		t.Fatalf("len=%d", len(products))
	}
	if products[0].Code != "P-1001" || products[1].Code != "P-1002" {
		t.Fatalf("codes bad: %s %s", products[0].Code, products[1].Code)
	}
}

func TestGetSuppliers(t *testing.T) {
	cfg, _ := config.Load()
	cfg.ERPAPIToken = "test"
	cfg.ERPAPIBaseURL = "https://example.test/api/v1"
	cfg.ERPRateLimitRPS = 1000

	client := NewClient(cfg)
	client.httpClient = &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/api/v1/suppliers" {
				t.Fatalf("unexpected path %s", r.URL.Path)
			}
			payload := map[string]any{"success": true, "data": map[string]any{"suppliers": []map[string]any{
				{"id": "SUP-001", "name": "Pacific Provisions", "email": "sales@pacific.example", "quotes": []map[string]any{
					{"productCode": "P-1001", "price": 12.5, "currency": "USD", "isPrimary": true},
				}},
			}}}
			blob, _ := json.Marshal(payload)
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader(string(blob))),
				Header:     make(http.Header),
			}, nil
		}),
	}

	suppliers, quotes, err := client.GetSuppliers(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(suppliers) != 1 || suppliers[0].ID != "SUP-001" {
		t.Fatalf("suppliers bad: %+v", suppliers)
	}
	if len(quotes) != 1 || !quotes[0].IsPrimary || quotes[0].Price != 12.5 {
		t.Fatalf("quotes bad: %+v", quotes)
	}
}
