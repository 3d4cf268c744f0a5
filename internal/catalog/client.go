package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"chandlery/internal"
	"chandlery/internal/config"
	"chandlery/internal/util"
)

type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

type scrollPayload struct {
	Products []map[string]any `json:"products"`
	ScrollID *string          `json:"scrollId"`
	Total    *int             `json:"total"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.ERPTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.ERPRateLimitRPS),
	}
}

func (c *Client) GetProductsScrollAll(ctx context.Context) ([]internal.ProductRecord, error) {
	return c.getProductsScroll(ctx, map[string]string{})
}

func (c *Client) GetProductsIncremental(ctx context.Context, mode string) ([]internal.ProductRecord, error) {
	params := map[string]string{}
	switch mode {
	case "day":
		params["day"] = strconv.Itoa(c.cfg.IncrementalLookbackDay)
	case "hours":
		params["hours"] = strconv.Itoa(c.cfg.IncrementalLookbackHrs)
	default:
		return nil, fmt.Errorf("unsupported incremental mode: %s", mode)
	}
	return c.getProductsScroll(ctx, params)
}

func (c *Client) GetSuppliers(ctx context.Context) ([]internal.SupplierRecord, []internal.SupplierQuote, error) {
	body, err := c.fetchJSON(ctx, "suppliers", map[string]string{})
	if err != nil {
		return nil, nil, err
	}

	var payload struct {
		Suppliers []map[string]any `json:"suppliers"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, nil, err
	}

	suppliers := make([]internal.SupplierRecord, 0, len(payload.Suppliers))
	quotes := make([]internal.SupplierQuote, 0)
	for _, raw := range payload.Suppliers {
		rec, qs, err := toSupplierRecord(raw)
		if err != nil {
			continue
		}
		suppliers = append(suppliers, rec)
		quotes = append(quotes, qs...)
	}
	return suppliers, quotes, nil
}

func (c *Client) GetCategoryTree(ctx context.Context) (map[string]any, error) {
	body, err := c.fetchJSON(ctx, "catalog/categories", map[string]string{})
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) getProductsScroll(ctx context.Context, params map[string]string) ([]internal.ProductRecord, error) {
	all := make([]internal.ProductRecord, 0)
	seen := map[string]struct{}{}
	var scrollID string

	for {
		query := map[string]string{}
		for k, v := range params {
			query[k] = v
		}
		if scrollID != "" {
			query["scrollId"] = scrollID
		}

		body, err := c.fetchJSON(ctx, "products/scroll", query)
		if err != nil {
			return nil, err
		}

		var payload scrollPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}

		for _, raw := range payload.Products {
			product, err := toProductRecord(raw)
			if err != nil {
				continue
			}
			all = append(all, product)
		}

		if payload.ScrollID == nil || *payload.ScrollID == "" || len(payload.Products) == 0 {
			break
		}
		if _, ok := seen[*payload.ScrollID]; ok {
			break
		}
		seen[*payload.ScrollID] = struct{}{}
		scrollID = *payload.ScrollID
	}

	return all, nil
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.ERPAPIToken) == "" {
		return nil, errors.New("missing ERP_API_TOKEN")
	}

	baseURL := strings.TrimRight(c.cfg.ERPAPIBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		if err := c.limiter.WaitTurn(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.ERPAPIToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("erp status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("erp api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		var apiResp apiResponse
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return nil, err
		}
		if !apiResp.Success {
			return nil, fmt.Errorf("erp api unsuccessful: %s", string(apiResp.Errors))
		}
		return apiResp.Data, nil
	}

	if lastErr == nil {
		lastErr = errors.New("erp request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func toProductRecord(raw map[string]any) (internal.ProductRecord, error) {
	name, _ := raw["name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return internal.ProductRecord{}, errors.New("empty name")
	}

	code, _ := raw["code"].(string)
	code = strings.TrimSpace(code)
	if code == "" {
		return internal.ProductRecord{}, errors.New("empty code")
	}

	id, ok := toInt(raw["id"])
	if !ok {
		return internal.ProductRecord{}, errors.New("missing id")
	}

	rawJSON, _ := json.Marshal(raw)
	product := internal.ProductRecord{
		ID:      id,
		Code:    code,
		Name:    name,
		RawJSON: string(rawJSON),
	}
	product.NameJp = toStringPtr(raw["nameJp"])
	product.NameCn = toStringPtr(raw["nameCn"])
	product.PackSize = toStringPtr(raw["packSize"])
	product.Unit = toStringPtr(raw["unit"])
	product.Category = toStringPtr(raw["category"])
	product.PurchasePrice = toFloatPtr(raw["purchasePrice"])
	product.Currency = toStringPtr(raw["currency"])
	product.UpdatedAt = toStringPtr(raw["updatedAt"])
	product.AltCodes = toStringSlice(raw["altCodes"])

	return product, nil
}

func toSupplierRecord(raw map[string]any) (internal.SupplierRecord, []internal.SupplierQuote, error) {
	id, _ := raw["id"].(string)
	id = strings.TrimSpace(id)
	name, _ := raw["name"].(string)
	name = strings.TrimSpace(name)
	if id == "" || name == "" {
		return internal.SupplierRecord{}, nil, errors.New("missing supplier id or name")
	}

	rec := internal.SupplierRecord{
		ID:       id,
		Name:     name,
		Contact:  toStringPtr(raw["contact"]),
		Email:    toStringPtr(raw["email"]),
		Phone:    toStringPtr(raw["phone"]),
		IsActive: true,
	}
	if active, ok := raw["isActive"].(bool); ok {
		rec.IsActive = active
	}

	var quotes []internal.SupplierQuote
	if arr, ok := raw["quotes"].([]any); ok {
		for _, item := range arr {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			code, _ := m["productCode"].(string)
			price := toFloatPtr(m["price"])
			if strings.TrimSpace(code) == "" || price == nil {
				continue
			}
			q := internal.SupplierQuote{
				SupplierID:  id,
				ProductCode: strings.TrimSpace(code),
				Price:       *price,
				Currency:    "USD",
			}
			if cur := toStringPtr(m["currency"]); cur != nil {
				q.Currency = *cur
			}
			if primary, ok := m["isPrimary"].(bool); ok {
				q.IsPrimary = primary
			}
			if lead := toFloatPtr(m["leadTimeDays"]); lead != nil {
				days := int(*lead)
				q.LeadTimeDays = &days
			}
			q.MOQ = toFloatPtr(m["moq"])
			quotes = append(quotes, q)
		}
	}

	return rec, quotes, nil
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case json.Number:
		i, err := t.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

func toFloatPtr(v any) *float64 {
	switch t := v.(type) {
	case float64:
		return &t
	case int:
		f := float64(t)
		return &f
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return &f
		}
	}
	return nil
}

func toStringPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return util.StringPtr(s)
}

func toStringSlice(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
