package pipeline

import (
	"testing"

	"chandlery/internal"
)

func TestParseOrdersHTMLTable(t *testing.T) {
	html := `<table>
<tr><th>Item Code</th><th>Product Name</th><th>Qty</th><th>Unit</th><th>Unit Price</th></tr>
<tr><td>P-1001</td><td>Mineral Water 500ml</td><td>120</td><td>case</td><td>4.50</td></tr>
<tr><td></td><td>Orange Juice 1L</td><td>40</td><td>ctn</td><td></td></tr>
</table>`
	orders := parseOrdersHTML(html, "Provision order P.O. PO-7741 MS Aurora")
	if len(orders) != 1 {
		t.Fatalf("orders=%d", len(orders))
	}
	o := orders[0]
	if o.PONumber != "PO-7741" {
		t.Fatalf("po=%q", o.PONumber)
	}
	if o.Source != internal.SourceHTMLTable {
		t.Fatalf("source=%q", o.Source)
	}
	if len(o.Products) != 2 {
		t.Fatalf("products=%d", len(o.Products))
	}
	p := o.Products[0]
	if p.ProductName != "Mineral Water 500ml" || p.Quantity != 120 {
		t.Fatalf("name=%q qty=%v", p.ProductName, p.Quantity)
	}
	if p.ItemCode == nil || *p.ItemCode != "P-1001" {
		t.Fatalf("code=%v", p.ItemCode)
	}
	if p.UnitPrice != 4.5 || p.TotalPrice != 540 {
		t.Fatalf("price=%v total=%v", p.UnitPrice, p.TotalPrice)
	}
	if o.Products[1].ItemCode != nil {
		t.Fatalf("second code=%v", o.Products[1].ItemCode)
	}
}

func TestParseOrdersHTMLNoTable(t *testing.T) {
	if orders := parseOrdersHTML("<p>see attached workbook</p>", "order"); orders != nil {
		t.Fatalf("expected nil, got %d orders", len(orders))
	}
}
