package pipeline

import "chandlery/internal"

// Analyze aggregates an upload for the review step: grand total, currency
// and per-supplier order counts. Purely informational, never gates the
// workflow.
func Analyze(upload internal.UploadResult) internal.OrderAnalysis {
	bySupplier := map[string]int{}
	total := 0.0
	currency := ""

	for _, o := range upload.Orders {
		name := o.SupplierName
		if name == "" {
			name = "(unassigned)"
		}
		bySupplier[name]++

		if currency == "" && o.Currency != "" {
			currency = o.Currency
		}
		if o.TotalAmount > 0 {
			total += o.TotalAmount
			continue
		}
		for _, p := range o.Products {
			total += p.TotalPrice
		}
	}

	if currency == "" {
		currency = "USD"
	}
	return internal.OrderAnalysis{TotalValue: total, Currency: currency, OrdersBySupplier: bySupplier}
}
