package pipeline

import (
	"math"
	"sort"

	"chandlery/internal"
	"chandlery/internal/catalog"
	"chandlery/internal/config"
	"chandlery/internal/util"
)

type Matcher struct {
	cfg   config.Config
	index *catalog.Index
}

func NewMatcher(cfg config.Config, products []internal.ProductRecord) *Matcher {
	return &Matcher{cfg: cfg, index: catalog.BuildIndex(products)}
}

// MatchUpload matches every flattened line of the upload. The result array
// has the same length and ordering as the flattened product list; a line's
// position in it is the line's OriginalIndex.
func (m *Matcher) MatchUpload(upload internal.UploadResult) internal.MatchResult {
	lines := NormalizeLines(upload.FlattenProducts())

	results := make([]internal.ProductMatch, 0, len(lines))
	matched, unmatched := 0, 0
	for _, line := range lines {
		res := m.MatchLine(line)
		switch res.Status {
		case internal.MatchMatched:
			matched++
		case internal.MatchNotMatched:
			unmatched++
		}
		results = append(results, res)
	}

	rate := 0.0
	if len(results) > 0 {
		rate = math.Round(float64(matched)/float64(len(results))*1000) / 10
	}

	return internal.MatchResult{
		UploadID:          upload.UploadID,
		Results:           results,
		TotalProducts:     len(results),
		MatchedProducts:   matched,
		UnmatchedProducts: unmatched,
		MatchRate:         rate,
	}
}

func (m *Matcher) MatchLine(line NormalizedLine) internal.ProductMatch {
	src := line.Product

	code := ""
	if src.ItemCode != nil {
		code = util.NormalizeCode(*src.ItemCode)
	}
	if code == "" && src.ProductID != nil {
		code = util.NormalizeCode(*src.ProductID)
	}
	if code == "" && util.LooksLikeCode(src.ProductName) {
		code = util.NormalizeCode(src.ProductName)
	}

	if code != "" {
		byCode := m.index.ByCode[code]
		if len(byCode) == 1 {
			return m.adjustForInvalidQty(src, internal.ProductMatch{
				Status:         internal.MatchMatched,
				Score:          0.99,
				Reason:         internal.ReasonCode,
				CruiseProduct:  src,
				MatchedProduct: toCatalogProduct(byCode[0]),
				Candidates:     toCandidates(byCode, 0.99),
			})
		}
		if len(byCode) > 1 {
			// Ambiguous code: a human has to pick, tentative best kept.
			return internal.ProductMatch{
				Status:         internal.MatchPossible,
				Score:          0.80,
				Reason:         internal.ReasonCode,
				CruiseProduct:  src,
				MatchedProduct: toCatalogProduct(byCode[0]),
				Candidates:     toCandidates(byCode, 0.80),
			}
		}
	}

	exact := m.index.ByName[line.NormalizedName]
	if len(exact) == 1 {
		return m.adjustForInvalidQty(src, internal.ProductMatch{
			Status:         internal.MatchMatched,
			Score:          0.95,
			Reason:         internal.ReasonName,
			CruiseProduct:  src,
			MatchedProduct: toCatalogProduct(exact[0]),
			Candidates:     toCandidates(exact, 0.95),
		})
	}
	if len(exact) > 1 {
		return internal.ProductMatch{
			Status:         internal.MatchPossible,
			Score:          0.78,
			Reason:         internal.ReasonName,
			CruiseProduct:  src,
			MatchedProduct: toCatalogProduct(exact[0]),
			Candidates:     toCandidates(exact, 0.78),
		}
	}

	candidates := m.rankCandidates(line.NormalizedName)
	if len(candidates) == 0 {
		return internal.ProductMatch{
			Status:        internal.MatchNotMatched,
			Score:         0,
			Reason:        internal.ReasonNone,
			CruiseProduct: src,
			Candidates:    []internal.MatchCandidate{},
		}
	}

	top1 := candidates[0]
	gap := top1.Score
	if len(candidates) > 1 {
		gap = top1.Score - candidates[1].Score
	}

	best := m.index.ProductsByID[top1.ID]
	var result internal.ProductMatch
	switch {
	case top1.Score >= m.cfg.MatchOKThreshold && gap >= m.cfg.MatchGapThreshold:
		result = internal.ProductMatch{
			Status:         internal.MatchMatched,
			Score:          top1.Score,
			Reason:         internal.ReasonFuzzy,
			CruiseProduct:  src,
			MatchedProduct: toCatalogProduct(best),
			Candidates:     candidates,
		}
	case top1.Score >= m.cfg.MatchReviewThreshold:
		result = internal.ProductMatch{
			Status:         internal.MatchPossible,
			Score:          top1.Score,
			Reason:         internal.ReasonFuzzy,
			CruiseProduct:  src,
			MatchedProduct: toCatalogProduct(best),
			Candidates:     candidates,
		}
	default:
		result = internal.ProductMatch{
			Status:        internal.MatchNotMatched,
			Score:         top1.Score,
			Reason:        internal.ReasonNone,
			CruiseProduct: src,
			Candidates:    candidates,
		}
	}

	return m.adjustForInvalidQty(src, result)
}

// A line without a positive quantity is never auto-accepted; the verdict is
// demoted so the user has to confirm it by hand.
func (m *Matcher) adjustForInvalidQty(src internal.OrderProduct, base internal.ProductMatch) internal.ProductMatch {
	if src.Quantity > 0 {
		return base
	}
	if base.Status == internal.MatchMatched {
		base.Status = internal.MatchPossible
	}
	if base.Score > 0.7 {
		base.Score = 0.7
	}
	return base
}

func (m *Matcher) rankCandidates(query string) []internal.MatchCandidate {
	queryTokens := util.Tokenize(query)
	ids := map[int]struct{}{}

	for _, token := range queryTokens {
		for id := range m.index.TokenToProductIDs[token] {
			ids[id] = struct{}{}
		}
	}

	if len(ids) == 0 {
		i := 0
		for id := range m.index.ProductsByID {
			ids[id] = struct{}{}
			i++
			if i >= 1500 {
				break
			}
		}
	}

	out := make([]internal.MatchCandidate, 0, len(ids))
	for id := range ids {
		product := m.index.ProductsByID[id]
		candidateName := m.index.NormalizedNameByID[id]
		score := scoreName(query, candidateName, queryTokens, util.Tokenize(candidateName))
		out = append(out, internal.MatchCandidate{ID: product.ID, Code: product.Code, Name: product.Name, Score: score})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Code < out[j].Code
	})
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

func scoreName(query, candidate string, queryTokens, candidateTokens []string) float64 {
	dice := util.DiceCoefficient(query, candidate)
	if len(queryTokens) == 0 || len(candidateTokens) == 0 {
		return dice
	}

	set := map[string]struct{}{}
	for _, t := range candidateTokens {
		set[t] = struct{}{}
	}
	overlap := 0
	for _, t := range queryTokens {
		if _, ok := set[t]; ok {
			overlap++
		}
	}
	tokenScore := float64(overlap) / float64(len(queryTokens))
	return 0.65*dice + 0.35*tokenScore
}

func toCatalogProduct(p internal.ProductRecord) *internal.CatalogProduct {
	return &internal.CatalogProduct{
		Code:          p.Code,
		Name:          p.Name,
		NameJp:        p.NameJp,
		NameCn:        p.NameCn,
		PackSize:      p.PackSize,
		Unit:          p.Unit,
		PurchasePrice: p.PurchasePrice,
		Currency:      p.Currency,
	}
}

func toCandidates(products []internal.ProductRecord, score float64) []internal.MatchCandidate {
	limit := len(products)
	if limit > 5 {
		limit = 5
	}
	out := make([]internal.MatchCandidate, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, internal.MatchCandidate{ID: products[i].ID, Code: products[i].Code, Name: products[i].Name, Score: score})
	}
	return out
}
