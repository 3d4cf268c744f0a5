package pipeline

import (
	"testing"

	"chandlery/internal"
	"chandlery/internal/config"
)

func sp(v string) *string { return &v }

func testCatalog() []internal.ProductRecord {
	return []internal.ProductRecord{
		{ID: 1, Code: "P-1001", Name: "Mineral Water 500ml", Unit: sp("case")},
		{ID: 2, Code: "P-1002", Name: "Orange Juice 1L"},
		{ID: 3, Code: "P-2040", Name: "Beef Tenderloin", NameJp: sp("牛ヒレ肉")},
		{ID: 4, Code: "DUP-10", Name: "Paper Napkins White"},
		{ID: 5, Code: "DUP-10", Name: "Paper Napkins Blue"},
	}
}

func matchLine(t *testing.T, p internal.OrderProduct) internal.ProductMatch {
	t.Helper()
	cfg, _ := config.Load()
	m := NewMatcher(cfg, testCatalog())
	lines := NormalizeLines([]internal.OrderProduct{p})
	if len(lines) != 1 {
		t.Fatalf("lines=%d", len(lines))
	}
	return m.MatchLine(lines[0])
}

func TestMatchByCode(t *testing.T) {
	res := matchLine(t, internal.OrderProduct{ProductName: "water", ItemCode: sp("p-1001"), Quantity: 10})
	if res.Status != internal.MatchMatched || res.Reason != internal.ReasonCode {
		t.Fatalf("status=%s reason=%s", res.Status, res.Reason)
	}
	if res.MatchedProduct == nil || res.MatchedProduct.Code != "P-1001" {
		t.Fatalf("matched=%+v", res.MatchedProduct)
	}
}

func TestMatchAmbiguousCode(t *testing.T) {
	res := matchLine(t, internal.OrderProduct{ProductName: "napkins", ItemCode: sp("DUP-10"), Quantity: 5})
	if res.Status != internal.MatchPossible || res.Reason != internal.ReasonCode {
		t.Fatalf("status=%s reason=%s", res.Status, res.Reason)
	}
	if res.MatchedProduct == nil {
		t.Fatal("possible match should keep a tentative product")
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("candidates=%d", len(res.Candidates))
	}
}

func TestMatchByExactName(t *testing.T) {
	res := matchLine(t, internal.OrderProduct{ProductName: "Mineral Water 500ml", Quantity: 10})
	if res.Status != internal.MatchMatched || res.Reason != internal.ReasonName {
		t.Fatalf("status=%s reason=%s", res.Status, res.Reason)
	}
	if res.Score != 0.95 {
		t.Fatalf("score=%v", res.Score)
	}
}

func TestMatchByJapaneseName(t *testing.T) {
	res := matchLine(t, internal.OrderProduct{ProductName: "牛ヒレ肉", Quantity: 3})
	if res.Status != internal.MatchMatched {
		t.Fatalf("status=%s", res.Status)
	}
	if res.MatchedProduct == nil || res.MatchedProduct.Code != "P-2040" {
		t.Fatalf("matched=%+v", res.MatchedProduct)
	}
}

func TestMatchFuzzyIsPossible(t *testing.T) {
	res := matchLine(t, internal.OrderProduct{ProductName: "Mineral Water 500", Quantity: 10})
	if res.Status != internal.MatchPossible || res.Reason != internal.ReasonFuzzy {
		t.Fatalf("status=%s reason=%s score=%v", res.Status, res.Reason, res.Score)
	}
	if res.MatchedProduct == nil || res.MatchedProduct.Code != "P-1001" {
		t.Fatalf("matched=%+v", res.MatchedProduct)
	}
}

func TestMatchNotFound(t *testing.T) {
	res := matchLine(t, internal.OrderProduct{ProductName: "Quantum Flux Capacitor", Quantity: 1})
	if res.Status != internal.MatchNotMatched {
		t.Fatalf("status=%s", res.Status)
	}
	if res.MatchedProduct != nil {
		t.Fatalf("not_matched must carry no product, got %+v", res.MatchedProduct)
	}
}

func TestMatchZeroQtyDemoted(t *testing.T) {
	res := matchLine(t, internal.OrderProduct{ProductName: "Mineral Water 500ml", Quantity: 0})
	if res.Status != internal.MatchPossible {
		t.Fatalf("status=%s", res.Status)
	}
	if res.Score > 0.7 {
		t.Fatalf("score=%v", res.Score)
	}
}

func TestMatchUploadCountsAndOrder(t *testing.T) {
	cfg, _ := config.Load()
	m := NewMatcher(cfg, testCatalog())

	upload := internal.UploadResult{
		UploadID: "u-1",
		Orders: []internal.CruiseOrder{
			{PONumber: "PO-A", Products: []internal.OrderProduct{
				{ProductName: "x", ItemCode: sp("P-1001"), Quantity: 10},
				{ProductName: "Mineral Water 500", Quantity: 5},
			}},
			{PONumber: "PO-B", Products: []internal.OrderProduct{
				{ProductName: "Quantum Flux Capacitor", Quantity: 1},
			}},
		},
	}
	upload.TotalOrders = 2
	upload.TotalProducts = 3

	res := m.MatchUpload(upload)
	if res.TotalProducts != 3 || len(res.Results) != 3 {
		t.Fatalf("total=%d results=%d", res.TotalProducts, len(res.Results))
	}
	if res.MatchedProducts != 1 || res.UnmatchedProducts != 1 {
		t.Fatalf("matched=%d unmatched=%d", res.MatchedProducts, res.UnmatchedProducts)
	}
	if res.MatchedProducts+res.UnmatchedProducts > res.TotalProducts {
		t.Fatalf("counts exceed total: %+v", res)
	}
	if res.MatchRate != 33.3 {
		t.Fatalf("rate=%v", res.MatchRate)
	}

	flat := upload.FlattenProducts()
	for i, r := range res.Results {
		if r.CruiseProduct.ProductName != flat[i].ProductName {
			t.Fatalf("result %d out of order: %q vs %q", i, r.CruiseProduct.ProductName, flat[i].ProductName)
		}
	}

	for _, r := range res.Results {
		switch r.Status {
		case internal.MatchMatched:
			if r.MatchedProduct == nil {
				t.Fatalf("matched without product: %+v", r)
			}
		case internal.MatchNotMatched:
			if r.MatchedProduct != nil {
				t.Fatalf("not_matched with product: %+v", r)
			}
		}
	}
}
