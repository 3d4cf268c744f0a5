package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"chandlery/internal"
)

// ExtractOrdersFromInput parses a single local input without going through
// the mail intake. input is a file path for xlsx/pdf and literal content for
// the email types.
func ExtractOrdersFromInput(inputType string, input string) ([]internal.CruiseOrder, error) {
	switch inputType {
	case "email_text":
		return parseOrdersText(input, ""), nil
	case "email_table":
		return parseOrdersHTML(input, ""), nil
	case "xlsx":
		blob, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		orders, err := ParseOrderWorkbook(blob)
		if err != nil {
			return nil, err
		}
		return tagUnknownPO(orders, filepath.Base(input)), nil
	case "pdf":
		blob, err := os.ReadFile(input)
		if err != nil {
			return nil, err
		}
		return parseOrdersPDF(blob, filepath.Base(input))
	default:
		return nil, fmt.Errorf("unsupported input type: %s", inputType)
	}
}

func tagUnknownPO(orders []internal.CruiseOrder, hint string) []internal.CruiseOrder {
	for i := range orders {
		if orders[i].PONumber == "" || orders[i].PONumber == "PO-UNKNOWN" {
			if po := extractPONumber(hint); po != "" {
				orders[i].PONumber = po
			} else if orders[i].PONumber == "" {
				orders[i].PONumber = "PO-UNKNOWN"
			}
		}
	}
	return orders
}
