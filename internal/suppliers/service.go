package suppliers

import (
	"strings"

	"chandlery/internal"
	"chandlery/internal/storage"
)

type Service struct {
	db *storage.DB
}

func NewService(db *storage.DB) *Service {
	return &Service{db: db}
}

// RequestLine is one row of a candidate request: a request-local index plus
// the match result it was built from. The indices are contiguous 0..k-1 over
// the caller's selected subset and never leave the request scope.
type RequestLine struct {
	Index internal.RequestIndex
	Match internal.ProductMatch
}

// Candidates resolves supplier quotes for every line that carries a matched
// catalog product. Lines without one get an empty list, never an error.
func (s *Service) Candidates(lines []RequestLine) (map[internal.RequestIndex][]internal.SupplierCandidate, error) {
	codes := make([]string, 0, len(lines))
	seen := map[string]struct{}{}
	for _, line := range lines {
		if line.Match.MatchedProduct == nil {
			continue
		}
		code := line.Match.MatchedProduct.Code
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	byCode := map[string][]internal.SupplierCandidate{}
	if len(codes) > 0 {
		var err error
		byCode, err = s.db.CandidatesByProductCodes(codes)
		if err != nil {
			return nil, err
		}
	}

	out := make(map[internal.RequestIndex][]internal.SupplierCandidate, len(lines))
	for _, line := range lines {
		if line.Match.MatchedProduct == nil {
			out[line.Index] = []internal.SupplierCandidate{}
			continue
		}
		got := byCode[line.Match.MatchedProduct.Code]
		if got == nil {
			got = []internal.SupplierCandidate{}
		}
		out[line.Index] = got
	}
	return out, nil
}

// ResolveEmail returns a usable address for a supplier: master data first,
// then the static fallback table, then a synthesized placeholder. Missing
// master data never stops the workflow.
func (s *Service) ResolveEmail(id, name string) string {
	if s.db != nil {
		if rec, err := s.db.GetSupplier(id); err == nil && rec != nil && rec.Email != nil && strings.TrimSpace(*rec.Email) != "" {
			return strings.TrimSpace(*rec.Email)
		}
	}
	return FallbackEmail(id, name)
}
