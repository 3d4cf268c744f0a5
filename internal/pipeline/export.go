package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"chandlery/internal"
)

// BuildQuotationWorkbook renders one supplier's purchase order as an xlsx
// attachment. When overlay is non-nil its row edits supersede po.Lines.
func BuildQuotationWorkbook(po internal.PurchaseOrderRequest, overlay *internal.ExcelModification) ([]byte, error) {
	lines := applyOverlay(po.Lines, overlay)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	set := func(col, row int, value any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, value)
	}

	set(1, 1, "PURCHASE ORDER")
	set(1, 2, "PO Number")
	set(2, 2, po.PONumber)
	set(1, 3, "Supplier")
	set(2, 3, po.SupplierName)
	set(1, 4, "Ship Code")
	set(2, 4, po.ShipCode)
	set(3, 4, "Voyage")
	set(4, 4, po.VoyageNumber)
	set(1, 5, "Delivery Date")
	set(2, 5, po.DeliveryDate)
	set(1, 6, "Delivery Address")
	set(2, 6, po.DeliveryAddress)

	headers := []string{"No", "Code", "Product Name", "品名", "Pack Size", "Qty", "Unit", "Unit Price", "Amount", "Currency"}
	headerRow := 8
	for i, h := range headers {
		set(i+1, headerRow, h)
	}

	total := 0.0
	currency := po.Currency
	for i, line := range lines {
		r := headerRow + 1 + i
		set(1, r, i+1)
		set(2, r, line.Code)
		set(3, r, line.Name)
		set(4, r, line.NameJp)
		set(5, r, line.PackSize)
		set(6, r, line.Quantity)
		set(7, r, line.Unit)
		set(8, r, line.Price)
		set(9, r, line.Amount)
		set(10, r, line.Currency)
		total += line.Amount
		if currency == "" && line.Currency != "" {
			currency = line.Currency
		}
	}

	totalRow := headerRow + 1 + len(lines)
	set(3, totalRow, "TOTAL")
	set(9, totalRow, total)
	set(10, totalRow, currency)

	if overlay != nil && overlay.Note != "" {
		set(1, totalRow+2, "Note")
		set(2, totalRow+2, overlay.Note)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// applyOverlay returns a copy of lines with per-row edits applied. A row edit
// with no explicit amount recomputes qty*price; rows the overlay never names
// pass through unchanged.
func applyOverlay(lines []internal.QuotationLine, overlay *internal.ExcelModification) []internal.QuotationLine {
	out := make([]internal.QuotationLine, len(lines))
	copy(out, lines)
	if overlay == nil {
		return out
	}
	for _, mod := range overlay.Rows {
		if mod.Index < 0 || mod.Index >= len(out) {
			continue
		}
		line := &out[mod.Index]
		if mod.Name != nil {
			line.Name = *mod.Name
		}
		if mod.Quantity != nil {
			line.Quantity = *mod.Quantity
		}
		if mod.UnitPrice != nil {
			line.Price = *mod.UnitPrice
		}
		if mod.Amount != nil {
			line.Amount = *mod.Amount
		} else if mod.Quantity != nil || mod.UnitPrice != nil {
			line.Amount = line.Quantity * line.Price
		}
	}
	return out
}

var filenameJunk = regexp.MustCompile(`[^0-9A-Za-z\p{Han}\p{Hiragana}\p{Katakana}]+`)

func QuotationFilename(label, supplierName string, at time.Time) string {
	name := filenameJunk.ReplaceAllString(supplierName, "_")
	name = strings.Trim(name, "_")
	if name == "" {
		name = "supplier"
	}
	return fmt.Sprintf("%s_%s_%s.xlsx", label, name, at.Format("20060102"))
}

func ExportMatchReport(rows []internal.MatchReportRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"line_no", "po_number", "source", "product_name", "item_code", "qty", "unit",
		"match_status", "score", "match_reason",
		"product_code", "catalog_name", "catalog_name_jp", "pack_size", "purchase_price", "currency",
		"candidate2_name", "candidate2_score",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.LineNo)
		set(2, row.PONumber)
		set(3, row.Source)
		set(4, row.ProductName)
		set(5, derefString(row.ItemCode))
		set(6, row.Qty)
		set(7, derefString(row.Unit))
		set(8, row.MatchStatus)
		set(9, row.Score)
		set(10, row.MatchReason)
		set(11, derefString(row.ProductCode))
		set(12, derefString(row.CatalogName))
		set(13, derefString(row.CatalogNameJp))
		set(14, derefString(row.PackSize))
		set(15, derefFloat(row.PurchasePrice))
		set(16, derefString(row.Currency))
		set(17, derefString(row.Candidate2Name))
		set(18, derefFloat(row.Candidate2Score))
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func derefFloat(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}
