package pipeline

import (
	"testing"

	"chandlery/internal"
)

func TestAnalyze(t *testing.T) {
	upload := internal.UploadResult{
		Orders: []internal.CruiseOrder{
			{PONumber: "PO-A", SupplierName: "Pacific Provisions", Currency: "USD", TotalAmount: 690},
			{PONumber: "PO-B", SupplierName: "Pacific Provisions", Currency: "USD", Products: []internal.OrderProduct{
				{ProductName: "Napkins", Quantity: 10, TotalPrice: 80},
				{ProductName: "Cups", Quantity: 20, TotalPrice: 20},
			}},
			{PONumber: "PO-C", Products: []internal.OrderProduct{
				{ProductName: "Towels", Quantity: 5, TotalPrice: 50},
			}},
		},
	}

	a := Analyze(upload)
	if a.TotalValue != 690+100+50 {
		t.Fatalf("total=%v", a.TotalValue)
	}
	if a.Currency != "USD" {
		t.Fatalf("currency=%q", a.Currency)
	}
	if a.OrdersBySupplier["Pacific Provisions"] != 2 {
		t.Fatalf("supplier count=%d", a.OrdersBySupplier["Pacific Provisions"])
	}
	if a.OrdersBySupplier["(unassigned)"] != 1 {
		t.Fatalf("unassigned=%d", a.OrdersBySupplier["(unassigned)"])
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	a := Analyze(internal.UploadResult{})
	if a.TotalValue != 0 || a.Currency != "USD" || len(a.OrdersBySupplier) != 0 {
		t.Fatalf("unexpected analysis: %+v", a)
	}
}
