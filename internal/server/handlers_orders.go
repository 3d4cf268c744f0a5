package server

import (
	"io"

	"github.com/gin-gonic/gin"

	"chandlery/internal/pipeline"
)

func (s *Server) uploadOrders(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file field")
		return
	}
	if err := pipeline.ValidateWorkbookName(fh.Filename); err != nil {
		BadRequest(c, err.Error())
		return
	}
	f, err := fh.Open()
	if err != nil {
		Error(c, 50000, err.Error())
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		Error(c, 50000, err.Error())
		return
	}

	orders, err := pipeline.ParseOrderWorkbook(content)
	if err != nil {
		BadRequest(c, err.Error())
		return
	}
	upload := pipeline.NewUploadResult(orders)
	if upload.TotalProducts == 0 {
		BadRequest(c, "no order lines found in workbook")
		return
	}
	s.wizard.Registry().Put(upload)
	Success(c, upload)
}

func (s *Server) orderAnalysis(c *gin.Context) {
	upload, ok := s.wizard.Registry().Get(c.Param("uploadId"))
	if !ok {
		NotFound(c, "upload not found")
		return
	}
	Success(c, pipeline.Analyze(upload))
}

type matchRequest struct {
	UploadID string `json:"upload_id"`
}

func (s *Server) matchOrders(c *gin.Context) {
	var req matchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.UploadID == "" {
		BadRequest(c, "upload_id is required")
		return
	}
	upload, ok := s.wizard.Registry().Get(req.UploadID)
	if !ok {
		NotFound(c, "upload not found")
		return
	}
	match, err := s.proc.MatchUpload(upload)
	if err != nil {
		Error(c, 50000, err.Error())
		return
	}
	Success(c, match)
}
