package wizard

import (
	"fmt"
	"strconv"
	"strings"

	"chandlery/internal"
	"chandlery/internal/util"
)

// BuildEmailGroups clusters confirmed assignments by supplier in
// first-appearance order and fills a default subject and body per group.
// resolve maps a supplier to a deliverable address.
func BuildEmailGroups(assignments []internal.ProductSupplierAssignment, resolve func(id, name string) string, senderName string) []internal.SupplierEmailInfo {
	byID := map[string]int{}
	var groups []internal.SupplierEmailInfo
	for _, a := range assignments {
		gi, ok := byID[a.SupplierID]
		if !ok {
			groups = append(groups, internal.SupplierEmailInfo{
				SupplierID:   a.SupplierID,
				SupplierName: a.SupplierName,
				Email:        resolve(a.SupplierID, a.SupplierName),
			})
			gi = len(groups) - 1
			byID[a.SupplierID] = gi
		}
		groups[gi].Products = append(groups[gi].Products, a)
		groups[gi].TotalValue += a.TotalPrice
	}
	for i := range groups {
		groups[i].Subject = defaultSubject(groups[i])
		groups[i].EmailContent = defaultBody(groups[i], senderName)
	}
	return groups
}

func defaultSubject(g internal.SupplierEmailInfo) string {
	po := ""
	if len(g.Products) > 0 {
		po = g.Products[0].PONumber
	}
	if po == "" {
		return fmt.Sprintf("Quotation request - %s", g.SupplierName)
	}
	return fmt.Sprintf("Quotation request %s - %s", po, g.SupplierName)
}

func defaultBody(g internal.SupplierEmailInfo, senderName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", g.SupplierName)
	b.WriteString("Please provide your quotation for the following items:\n\n")
	currency := ""
	for _, p := range g.Products {
		if currency == "" && p.Currency != "" {
			currency = p.Currency
		}
		fmt.Fprintf(&b, "- [%s] %s x%s @ %s\n", p.ProductCode, p.ProductName, formatQty(p.Quantity), util.FormatMoney(p.UnitPrice, p.Currency))
	}
	fmt.Fprintf(&b, "\nEstimated total: %s\n", util.FormatMoney(g.TotalValue, currency))
	if len(g.Products) > 0 {
		if d := g.Products[0].DeliveryDate; d != "" {
			fmt.Fprintf(&b, "Requested delivery: %s\n", d)
		}
		if sc := g.Products[0].ShipCode; sc != "" {
			fmt.Fprintf(&b, "Vessel: %s %s\n", sc, g.Products[0].VoyageNumber)
		}
	}
	fmt.Fprintf(&b, "\nBest regards,\n%s\n", senderName)
	return b.String()
}

func formatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}
