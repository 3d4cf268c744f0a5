package server

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) listProducts(c *gin.Context) {
	query := c.Query("search")
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if err != nil || pageSize < 1 || pageSize > 500 {
		pageSize = 50
	}

	items, total, err := s.db.SearchProducts(query, pageSize, (page-1)*pageSize)
	if err != nil {
		Error(c, 50000, err.Error())
		return
	}
	Success(c, ListResponse{
		Items: items,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: (total + pageSize - 1) / pageSize,
		},
	})
}

func (s *Server) listIntake(c *gin.Context) {
	status := c.DefaultQuery("status", "ready")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	items, err := s.db.ListIntakeByStatus(status, limit)
	if err != nil {
		Error(c, 50000, err.Error())
		return
	}
	Success(c, ListResponse{Items: items})
}
