package server

import (
	"github.com/gin-gonic/gin"

	"chandlery/internal"
	"chandlery/internal/suppliers"
)

func (s *Server) listSuppliers(c *gin.Context) {
	items, err := s.db.ListSuppliers()
	if err != nil {
		Error(c, 50000, err.Error())
		return
	}
	Success(c, ListResponse{Items: items})
}

func (s *Server) getSupplier(c *gin.Context) {
	rec, err := s.db.GetSupplier(c.Param("id"))
	if err != nil {
		Error(c, 50000, err.Error())
		return
	}
	if rec == nil {
		NotFound(c, "supplier not found")
		return
	}
	Success(c, rec)
}

type candidatesRequest struct {
	ProductIndices []int                   `json:"product_indices"`
	MatchResults   []internal.ProductMatch `json:"match_results"`
}

type candidateEntry struct {
	ProductIndex int                          `json:"productIndex"`
	MatchResult  internal.ProductMatch        `json:"matchResult"`
	Suppliers    []internal.SupplierCandidate `json:"suppliers"`
}

// supplierCandidates resolves quote candidates for a batch of matched lines.
// Indices in the request are request-local: the k-th entry of both arrays
// describe the same line, and productIndex is echoed back untouched.
func (s *Server) supplierCandidates(c *gin.Context) {
	var req candidatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if len(req.ProductIndices) != len(req.MatchResults) {
		BadRequest(c, "product_indices and match_results must have the same length")
		return
	}

	lines := make([]suppliers.RequestLine, 0, len(req.MatchResults))
	for k, m := range req.MatchResults {
		lines = append(lines, suppliers.RequestLine{Index: internal.RequestIndex(k), Match: m})
	}
	byLine, err := s.supplies.Candidates(lines)
	if err != nil {
		Error(c, 50000, err.Error())
		return
	}

	out := make([]candidateEntry, 0, len(req.ProductIndices))
	for k, idx := range req.ProductIndices {
		out = append(out, candidateEntry{
			ProductIndex: idx,
			MatchResult:  req.MatchResults[k],
			Suppliers:    byLine[internal.RequestIndex(k)],
		})
	}
	Success(c, gin.H{"products": out})
}
