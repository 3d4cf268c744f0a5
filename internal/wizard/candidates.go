package wizard

import (
	"chandlery/internal"
	"chandlery/internal/suppliers"
)

// CandidateProduct is one line-times-supplier row of the assignment stage.
// Quantity and UnitPrice start from the source line and the quote and may be
// edited; TotalPrice always tracks their product.
type CandidateProduct struct {
	OriginalIndex internal.OriginalIndex `json:"productIndex"`
	ProductCode   string                 `json:"productCode"`
	ProductName   string                 `json:"productName"`
	ProductNameJp *string                `json:"productNameJp,omitempty"`
	SourceQty     float64                `json:"sourceQuantity"`
	Quantity      float64                `json:"quantity"`
	UnitPrice     float64                `json:"unitPrice"`
	TotalPrice    float64                `json:"totalPrice"`
	Currency      string                 `json:"currency"`
	Selected      bool                   `json:"selected"`
	IsPrimary     bool                   `json:"isPrimary"`
}

type SupplierGroup struct {
	SupplierID   string             `json:"supplierId"`
	SupplierName string             `json:"supplierName"`
	Contact      *string            `json:"contact,omitempty"`
	Email        *string            `json:"email,omitempty"`
	Products     []CandidateProduct `json:"products"`
	AllSelected  bool               `json:"allSelected"`
	HasSelected  bool               `json:"hasSelected"`
}

// CandidateSet groups candidate rows by supplier, in first-appearance order
// over the selected lines. Primary quotes start selected.
type CandidateSet struct {
	Groups []SupplierGroup `json:"groups"`
}

func BuildCandidateSet(upload *internal.UploadResult, match *internal.MatchResult, selected []internal.OriginalIndex, svc *suppliers.Service) (*CandidateSet, error) {
	flat := upload.FlattenProducts()
	lines := make([]suppliers.RequestLine, 0, len(selected))
	for req, orig := range selected {
		if int(orig) >= len(match.Results) {
			continue
		}
		lines = append(lines, suppliers.RequestLine{
			Index: internal.RequestIndex(req),
			Match: match.Results[orig],
		})
	}
	byLine, err := svc.Candidates(lines)
	if err != nil {
		return nil, err
	}

	set := &CandidateSet{}
	groupIdx := map[string]int{}
	for req, orig := range selected {
		if int(orig) >= len(match.Results) || int(orig) >= len(flat) {
			continue
		}
		m := match.Results[orig]
		if m.MatchedProduct == nil {
			continue
		}
		qty := flat[orig].Quantity
		for _, cand := range byLine[internal.RequestIndex(req)] {
			gi, ok := groupIdx[cand.SupplierID]
			if !ok {
				set.Groups = append(set.Groups, SupplierGroup{
					SupplierID:   cand.SupplierID,
					SupplierName: cand.Name,
					Contact:      cand.Contact,
					Email:        cand.Email,
				})
				gi = len(set.Groups) - 1
				groupIdx[cand.SupplierID] = gi
			}
			set.Groups[gi].Products = append(set.Groups[gi].Products, CandidateProduct{
				OriginalIndex: orig,
				ProductCode:   m.MatchedProduct.Code,
				ProductName:   m.MatchedProduct.Name,
				ProductNameJp: m.MatchedProduct.NameJp,
				SourceQty:     qty,
				Quantity:      qty,
				UnitPrice:     cand.Price,
				TotalPrice:    qty * cand.Price,
				Currency:      cand.Currency,
				Selected:      cand.IsPrimary,
				IsPrimary:     cand.IsPrimary,
			})
		}
	}
	for i := range set.Groups {
		set.Groups[i].recompute()
	}
	return set, nil
}

func (c *CandidateSet) group(supplierID string) *SupplierGroup {
	for i := range c.Groups {
		if c.Groups[i].SupplierID == supplierID {
			return &c.Groups[i]
		}
	}
	return nil
}

func (c *CandidateSet) ToggleGroup(supplierID string, selected bool) error {
	g := c.group(supplierID)
	if g == nil {
		return ErrUnknownSupplier
	}
	for i := range g.Products {
		g.Products[i].Selected = selected
	}
	g.recompute()
	return nil
}

func (c *CandidateSet) ToggleProduct(supplierID string, idx internal.OriginalIndex, selected bool) error {
	g := c.group(supplierID)
	if g == nil {
		return ErrUnknownSupplier
	}
	for i := range g.Products {
		if g.Products[i].OriginalIndex == idx {
			g.Products[i].Selected = selected
			g.recompute()
			return nil
		}
	}
	return ErrNotSelectable
}

func (c *CandidateSet) EditProduct(supplierID string, idx internal.OriginalIndex, quantity, unitPrice *float64) error {
	g := c.group(supplierID)
	if g == nil {
		return ErrUnknownSupplier
	}
	for i := range g.Products {
		if g.Products[i].OriginalIndex != idx {
			continue
		}
		if quantity != nil {
			g.Products[i].Quantity = *quantity
		}
		if unitPrice != nil {
			g.Products[i].UnitPrice = *unitPrice
		}
		g.Products[i].TotalPrice = g.Products[i].Quantity * g.Products[i].UnitPrice
		return nil
	}
	return ErrNotSelectable
}

func (g *SupplierGroup) recompute() {
	all := len(g.Products) > 0
	has := false
	for _, p := range g.Products {
		if p.Selected {
			has = true
		} else {
			all = false
		}
	}
	g.AllSelected = all
	g.HasSelected = has
}

// FlattenSelected emits one assignment per checked row, in group order.
// Order-level fields pass through from the first uploaded order.
func (c *CandidateSet) FlattenSelected(upload *internal.UploadResult) []internal.ProductSupplierAssignment {
	var first internal.CruiseOrder
	if upload != nil && len(upload.Orders) > 0 {
		first = upload.Orders[0]
	}
	var out []internal.ProductSupplierAssignment
	for _, g := range c.Groups {
		for _, p := range g.Products {
			if !p.Selected {
				continue
			}
			out = append(out, internal.ProductSupplierAssignment{
				ProductIndex:  p.OriginalIndex,
				SupplierID:    g.SupplierID,
				SupplierName:  g.SupplierName,
				ProductCode:   p.ProductCode,
				ProductName:   p.ProductName,
				ProductNameJp: p.ProductNameJp,
				Quantity:      p.Quantity,
				UnitPrice:     p.UnitPrice,
				TotalPrice:    p.TotalPrice,
				Currency:      p.Currency,
				DeliveryDate:  first.DeliveryDate,
				ShipCode:      first.ShipCode,
				VoyageNumber:  first.VoyageNumber,
				PONumber:      first.PONumber,
			})
		}
	}
	return out
}
