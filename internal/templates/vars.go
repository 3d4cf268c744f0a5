package templates

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"chandlery/internal"
	"chandlery/internal/util"
)

// GroupVars builds the substitution map for one supplier email group. The
// order-level variables come from the group's first assignment.
func GroupVars(group internal.SupplierEmailInfo, senderName, senderEmail string, now time.Time) map[string]string {
	vars := map[string]string{
		"supplier_name": group.SupplierName,
		"supplier_id":   group.SupplierID,
		"contact_email": group.Email,
		"product_count": strconv.Itoa(len(group.Products)),
		"sender_name":   senderName,
		"sender_email":  senderEmail,
		"date":          now.Format("2006-01-02"),
		"time":          now.Format("15:04"),
	}

	currency := ""
	var list strings.Builder
	for i, p := range group.Products {
		if currency == "" && p.Currency != "" {
			currency = p.Currency
		}
		if i > 0 {
			list.WriteString("\n")
		}
		fmt.Fprintf(&list, "- [%s] %s x%s @ %s", p.ProductCode, p.ProductName, formatQty(p.Quantity), util.FormatMoney(p.UnitPrice, p.Currency))
	}
	vars["product_list"] = list.String()
	vars["total_value"] = util.FormatMoney(group.TotalValue, currency)
	if currency == "" {
		currency = "USD"
	}
	vars["currency"] = currency

	if len(group.Products) > 0 {
		first := group.Products[0]
		vars["po_number"] = first.PONumber
		vars["ship_code"] = first.ShipCode
		vars["voyage_number"] = first.VoyageNumber
		vars["delivery_date"] = first.DeliveryDate
	}
	return vars
}

func formatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}
