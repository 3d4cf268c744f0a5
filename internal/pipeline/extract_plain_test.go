package pipeline

import "testing"

func TestParseOrdersText(t *testing.T) {
	text := `
Dear Sirs,

Mineral Water 500ml 120 case
Orange Juice 1L x 40 ctn

Best regards,
Tel: +81-45-000-0000
`
	orders := parseOrdersText(text, "MS Aurora provision order PO-3301")
	if len(orders) != 1 {
		t.Fatalf("orders=%d", len(orders))
	}
	o := orders[0]
	if o.PONumber != "PO-3301" {
		t.Fatalf("po=%q", o.PONumber)
	}
	if len(o.Products) != 2 {
		t.Fatalf("products=%d", len(o.Products))
	}
	if o.Products[0].Quantity != 120 {
		t.Fatalf("qty1=%v", o.Products[0].Quantity)
	}
	if o.Products[0].Unit == nil || *o.Products[0].Unit != "case" {
		t.Fatalf("unit1=%v", o.Products[0].Unit)
	}
	if o.Products[1].ProductName != "Orange Juice 1L" {
		t.Fatalf("name2=%q", o.Products[1].ProductName)
	}
}

func TestParseOrdersTextSignatureOnly(t *testing.T) {
	text := "Best regards,\nTel: 000\nhttp://example.com\n"
	if orders := parseOrdersText(text, ""); orders != nil {
		t.Fatalf("expected nil, got %d orders", len(orders))
	}
}
