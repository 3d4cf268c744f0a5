package pipeline

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"chandlery/internal"
	"chandlery/internal/util"
)

func samplePO() internal.PurchaseOrderRequest {
	return internal.PurchaseOrderRequest{
		SupplierID:      "SUP-001",
		SupplierName:    "Pacific Provisions Co.",
		PONumber:        "PO-5520",
		ShipCode:        "AUR",
		VoyageNumber:    "V-081",
		DeliveryDate:    "2026-09-01",
		DeliveryAddress: "Pier 4, Yokohama",
		Currency:        "USD",
		Lines: []internal.QuotationLine{
			{Code: "P-1001", Name: "Mineral Water 500ml", Quantity: 120, Unit: "case", Price: 4.5, Amount: 540, Currency: "USD"},
			{Code: "P-1002", Name: "Orange Juice 1L", Quantity: 40, Unit: "ctn", Price: 6, Amount: 240, Currency: "USD"},
		},
		TotalValue: 780,
	}
}

func TestBuildQuotationWorkbook(t *testing.T) {
	blob, err := BuildQuotationWorkbook(samplePO(), nil)
	if err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(blob))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	sheet := f.GetSheetName(0)

	cell := func(ref string) string {
		v, _ := f.GetCellValue(sheet, ref)
		return v
	}
	if cell("B2") != "PO-5520" {
		t.Fatalf("B2=%q", cell("B2"))
	}
	if cell("B3") != "Pacific Provisions Co." {
		t.Fatalf("B3=%q", cell("B3"))
	}
	if cell("C9") != "Mineral Water 500ml" {
		t.Fatalf("C9=%q", cell("C9"))
	}
	if cell("I11") != "780" {
		t.Fatalf("total I11=%q", cell("I11"))
	}
}

func TestBuildQuotationWorkbookWithOverlay(t *testing.T) {
	overlay := &internal.ExcelModification{
		Rows: []internal.ModifiedRow{
			{Index: 0, Quantity: util.FloatPtr(100)},
			{Index: 1, Name: util.StringPtr("Orange Juice 1L (brand B)"), UnitPrice: util.FloatPtr(5), Amount: util.FloatPtr(210)},
		},
		Note: "urgent delivery",
	}

	blob, err := BuildQuotationWorkbook(samplePO(), overlay)
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(blob))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	sheet := f.GetSheetName(0)
	cell := func(ref string) string {
		v, _ := f.GetCellValue(sheet, ref)
		return v
	}

	// qty edit without explicit amount recomputes qty*price
	if cell("F9") != "100" {
		t.Fatalf("F9=%q", cell("F9"))
	}
	if cell("I9") != "450" {
		t.Fatalf("I9=%q", cell("I9"))
	}
	// explicit amount wins over recompute
	if cell("C10") != "Orange Juice 1L (brand B)" {
		t.Fatalf("C10=%q", cell("C10"))
	}
	if cell("I10") != "210" {
		t.Fatalf("I10=%q", cell("I10"))
	}
	if cell("I11") != "660" {
		t.Fatalf("total I11=%q", cell("I11"))
	}
	if cell("B13") != "urgent delivery" {
		t.Fatalf("note B13=%q", cell("B13"))
	}
}

func TestApplyOverlayLeavesInputAlone(t *testing.T) {
	po := samplePO()
	overlay := &internal.ExcelModification{Rows: []internal.ModifiedRow{{Index: 0, Quantity: util.FloatPtr(1)}, {Index: 99, Quantity: util.FloatPtr(7)}}}

	out := applyOverlay(po.Lines, overlay)
	if out[0].Quantity != 1 || out[0].Amount != 4.5 {
		t.Fatalf("out[0]=%+v", out[0])
	}
	if po.Lines[0].Quantity != 120 {
		t.Fatalf("input mutated: %+v", po.Lines[0])
	}
	if out[1].Quantity != 40 {
		t.Fatalf("out[1]=%+v", out[1])
	}
}

func TestQuotationFilename(t *testing.T) {
	at := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	got := QuotationFilename("quotation", "Pacific Provisions Co.", at)
	if got != "quotation_Pacific_Provisions_Co_20260825.xlsx" {
		t.Fatalf("got %q", got)
	}
	if QuotationFilename("quotation", "///", at) != "quotation_supplier_20260825.xlsx" {
		t.Fatalf("fallback name wrong")
	}
}
