package pipeline

import (
	"chandlery/internal"
	"chandlery/internal/util"
)

// NormalizedLine pairs a flattened order product with its normalized name
// and its position, which stays the line's identity through matching,
// selection and supplier assignment.
type NormalizedLine struct {
	Index          internal.OriginalIndex
	Product        internal.OrderProduct
	NormalizedName string
}

func NormalizeLines(products []internal.OrderProduct) []NormalizedLine {
	out := make([]NormalizedLine, 0, len(products))
	for i, p := range products {
		out = append(out, NormalizedLine{
			Index:          internal.OriginalIndex(i),
			Product:        p,
			NormalizedName: util.NormalizeName(p.ProductName),
		})
	}
	return out
}
