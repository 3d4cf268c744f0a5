package pipeline

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"chandlery/internal"
)

func mkXLSX(rows [][]any) []byte {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

func TestParseLabeledWorkbook(t *testing.T) {
	blob := mkXLSX([][]any{
		{"PO Number:", "PO-2024-0815"},
		{"Ship Name", "MS Pacific Aria", "Ship Code", "PAA"},
		{"Voyage", "V-0815", "Currency", "usd"},
		{"Destination Port", "Yokohama"},
		{"Delivery Date", "2024-08-20"},
		{},
		{"No", "Item Code", "Product Name", "Qty", "Unit", "Unit Price", "Amount"},
		{1, "P-1001", "Mineral Water 500ml", 120, "case", 4.5, 540},
		{2, "", "Fresh Eggs Large", 30, "tray", 3.2, ""},
		{3, "P-2040", "Beef Tenderloin", 0, "kg", 52, ""},
		{"TOTAL", "", "", "", "", "", 636},
	})

	orders, err := ParseOrderWorkbook(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 {
		t.Fatalf("orders=%d", len(orders))
	}

	o := orders[0]
	if o.PONumber != "PO-2024-0815" {
		t.Fatalf("po=%q", o.PONumber)
	}
	if o.ShipName != "MS Pacific Aria" || o.ShipCode != "PAA" {
		t.Fatalf("ship=%q code=%q", o.ShipName, o.ShipCode)
	}
	if o.VoyageNumber != "V-0815" {
		t.Fatalf("voyage=%q", o.VoyageNumber)
	}
	if o.DestinationPort != "Yokohama" {
		t.Fatalf("port=%q", o.DestinationPort)
	}
	if o.Currency != "USD" {
		t.Fatalf("currency=%q", o.Currency)
	}
	if o.Source != internal.SourceWorkbook {
		t.Fatalf("source=%q", o.Source)
	}

	// zero-qty line dropped, TOTAL row stops the table
	if len(o.Products) != 2 {
		t.Fatalf("products=%d", len(o.Products))
	}
	first := o.Products[0]
	if first.ProductName != "Mineral Water 500ml" {
		t.Fatalf("name=%q", first.ProductName)
	}
	if first.ItemCode == nil || *first.ItemCode != "P-1001" {
		t.Fatalf("code=%v", first.ItemCode)
	}
	if first.Quantity != 120 || first.UnitPrice != 4.5 || first.TotalPrice != 540 {
		t.Fatalf("qty=%v price=%v total=%v", first.Quantity, first.UnitPrice, first.TotalPrice)
	}

	second := o.Products[1]
	if second.TotalPrice != 96 {
		t.Fatalf("computed amount=%v", second.TotalPrice)
	}
}

func TestParseFlatWorkbookGroupsByPO(t *testing.T) {
	blob := mkXLSX([][]any{
		{"PO Number", "Ship Name", "Product Name", "Qty", "Unit", "Unit Price", "Currency"},
		{"PO-A", "MS Aurora", "Mineral Water 500ml", 100, "case", 4.5, "USD"},
		{"PO-A", "MS Aurora", "Orange Juice 1L", 40, "ctn", 6.0, "USD"},
		{"PO-B", "MS Borealis", "Paper Napkins", 500, "pack", 0.8, "JPY"},
	})

	orders, err := ParseOrderWorkbook(blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 2 {
		t.Fatalf("orders=%d", len(orders))
	}
	if orders[0].PONumber != "PO-A" || len(orders[0].Products) != 2 {
		t.Fatalf("first order %q products=%d", orders[0].PONumber, len(orders[0].Products))
	}
	if orders[1].PONumber != "PO-B" || orders[1].Currency != "JPY" {
		t.Fatalf("second order %q currency=%q", orders[1].PONumber, orders[1].Currency)
	}
	if orders[0].TotalAmount != 100*4.5+40*6.0 {
		t.Fatalf("total=%v", orders[0].TotalAmount)
	}
}

func TestParseWorkbookNoOrders(t *testing.T) {
	blob := mkXLSX([][]any{
		{"hello"},
		{"nothing to see"},
	})
	if _, err := ParseOrderWorkbook(blob); err == nil {
		t.Fatal("expected error for workbook without orders")
	}
}

func TestValidateWorkbookName(t *testing.T) {
	if err := ValidateWorkbookName("orders.xlsx"); err != nil {
		t.Fatal(err)
	}
	if err := ValidateWorkbookName("ORDERS.XLS"); err != nil {
		t.Fatal(err)
	}
	if err := ValidateWorkbookName("orders.csv"); err == nil {
		t.Fatal("expected error for csv")
	}
}
