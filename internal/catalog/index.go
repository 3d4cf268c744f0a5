package catalog

import (
	"chandlery/internal"
	"chandlery/internal/util"
)

type Index struct {
	ProductsByID       map[int]internal.ProductRecord
	ByCode             map[string][]internal.ProductRecord
	ByName             map[string][]internal.ProductRecord
	TokenToProductIDs  map[string]map[int]struct{}
	NormalizedNameByID map[int]string
}

func BuildIndex(products []internal.ProductRecord) *Index {
	idx := &Index{
		ProductsByID:       map[int]internal.ProductRecord{},
		ByCode:             map[string][]internal.ProductRecord{},
		ByName:             map[string][]internal.ProductRecord{},
		TokenToProductIDs:  map[string]map[int]struct{}{},
		NormalizedNameByID: map[int]string{},
	}

	for _, p := range products {
		idx.ProductsByID[p.ID] = p
		normName := util.NormalizeName(p.Name)
		idx.NormalizedNameByID[p.ID] = normName
		idx.ByName[normName] = append(idx.ByName[normName], p)

		addName := func(name *string) {
			if name == nil {
				return
			}
			norm := util.NormalizeName(*name)
			if norm == "" || norm == normName {
				return
			}
			idx.ByName[norm] = append(idx.ByName[norm], p)
		}
		addName(p.NameJp)
		addName(p.NameCn)

		addCode := func(code string) {
			norm := util.NormalizeCode(code)
			if norm == "" {
				return
			}
			idx.ByCode[norm] = append(idx.ByCode[norm], p)
		}
		addCode(p.Code)
		for _, alt := range p.AltCodes {
			addCode(alt)
		}

		for _, source := range []*string{&p.Name, p.NameJp, p.NameCn} {
			if source == nil {
				continue
			}
			for _, token := range util.Tokenize(*source) {
				if _, ok := idx.TokenToProductIDs[token]; !ok {
					idx.TokenToProductIDs[token] = map[int]struct{}{}
				}
				idx.TokenToProductIDs[token][p.ID] = struct{}{}
			}
		}
	}

	return idx
}
