package server

import (
	"fmt"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"chandlery/internal"
	"chandlery/internal/wizard"
)

type createSessionRequest struct {
	IntakeID *int   `json:"intake_id,omitempty"`
	UploadID string `json:"upload_id,omitempty"`
}

func (s *Server) createSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}
	view, err := s.wizard.CreateSession(req.IntakeID, req.UploadID)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, view)
}

func (s *Server) getSession(c *gin.Context) {
	view, err := s.wizard.GetSession(c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, view)
}

func (s *Server) deleteSession(c *gin.Context) {
	id := c.Param("id")
	if err := s.wizard.DeleteSession(id); err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"deleted": id})
}

func (s *Server) sessionUpload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "file is required")
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
	upload, err := s.wizard.UploadWorkbook(c.Param("id"), fh.Filename, content)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, upload)
}

func (s *Server) sessionAnalysis(c *gin.Context) {
	analysis, err := s.wizard.Analysis(c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, analysis)
}

func (s *Server) sessionMatch(c *gin.Context) {
	match, err := s.wizard.RunMatch(c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, match)
}

type selectionRequest struct {
	Action string `json:"action"`
	Index  *int   `json:"index,omitempty"`
}

func (s *Server) sessionSelection(c *gin.Context) {
	var req selectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	id := c.Param("id")

	var (
		selected []internal.OriginalIndex
		err      error
	)
	switch req.Action {
	case "toggle":
		if req.Index == nil {
			BadRequest(c, "toggle requires an index")
			return
		}
		selected, err = s.wizard.ToggleSelection(id, internal.OriginalIndex(*req.Index))
	case "select-all-matched", "select-only-matched":
		selected, err = s.wizard.SelectAllMatched(id)
	case "select-none":
		selected, err = s.wizard.SelectNone(id)
	default:
		BadRequest(c, fmt.Sprintf("unknown selection action: %s", req.Action))
		return
	}
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"selectedIndices": selected})
}

func (s *Server) sessionCandidates(c *gin.Context) {
	groups, err := s.wizard.FetchCandidates(c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"groups": groups})
}

type groupUpdateRequest struct {
	Selected *bool `json:"selected"`
}

func (s *Server) sessionToggleGroup(c *gin.Context) {
	var req groupUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.Selected == nil {
		BadRequest(c, "selected is required")
		return
	}
	groups, err := s.wizard.ToggleSupplierGroup(c.Param("id"), c.Param("supplierId"), *req.Selected)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"groups": groups})
}

type candidateUpdateRequest struct {
	Selected  *bool    `json:"selected,omitempty"`
	Quantity  *float64 `json:"quantity,omitempty"`
	UnitPrice *float64 `json:"unit_price,omitempty"`
}

func (s *Server) sessionEditCandidate(c *gin.Context) {
	var req candidateUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.Selected == nil && req.Quantity == nil && req.UnitPrice == nil {
		BadRequest(c, "nothing to update")
		return
	}
	id := c.Param("id")
	supplierID := c.Param("supplierId")
	idx, err := strconv.Atoi(c.Param("productIndex"))
	if err != nil {
		BadRequest(c, "invalid product index")
		return
	}

	var groups []wizard.SupplierGroup
	if req.Selected != nil {
		groups, err = s.wizard.ToggleCandidate(id, supplierID, internal.OriginalIndex(idx), *req.Selected)
		if err != nil {
			Fail(c, err)
			return
		}
	}
	if req.Quantity != nil || req.UnitPrice != nil {
		groups, err = s.wizard.EditCandidate(id, supplierID, internal.OriginalIndex(idx), req.Quantity, req.UnitPrice)
		if err != nil {
			Fail(c, err)
			return
		}
	}
	Success(c, gin.H{"groups": groups})
}

func (s *Server) sessionConfirm(c *gin.Context) {
	assignments, err := s.wizard.ConfirmAssignments(c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"assignments": assignments, "currentStep": wizard.StepEmailPreparation})
}

func (s *Server) sessionEmails(c *gin.Context) {
	groups, err := s.wizard.PrepareEmails(c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"groups": groups})
}

type emailUpdateRequest struct {
	Subject *string `json:"subject,omitempty"`
	Content *string `json:"content,omitempty"`
}

func (s *Server) sessionEditEmail(c *gin.Context) {
	var req emailUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.Subject == nil && req.Content == nil {
		BadRequest(c, "nothing to update")
		return
	}
	groups, err := s.wizard.UpdateEmail(c.Param("id"), c.Param("supplierId"), req.Subject, req.Content)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"groups": groups})
}

func (s *Server) sessionPutOverlay(c *gin.Context) {
	var overlay internal.ExcelModification
	if err := c.ShouldBindJSON(&overlay); err != nil {
		BadRequest(c, err.Error())
		return
	}
	supplierID := c.Param("supplierId")
	if err := s.wizard.PutOverlay(c.Param("id"), supplierID, overlay); err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"supplierId": supplierID})
}

func (s *Server) sessionAttachment(c *gin.Context) {
	filename, content, err := s.wizard.Attachment(c.Param("id"), c.Param("supplierId"))
	if err != nil {
		Fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(200, xlsxContentType, content)
}

func (s *Server) sessionSendOne(c *gin.Context) {
	outcome, err := s.wizard.SendOne(c.Request.Context(), c.Param("id"), c.Param("supplierId"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, outcome)
}

type sendAllRequest struct {
	Acknowledge bool `json:"acknowledge"`
}

func (s *Server) sessionSendAll(c *gin.Context) {
	var req sendAllRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}
	outcomes, err := s.wizard.SendAll(c.Request.Context(), c.Param("id"), req.Acknowledge)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"results": outcomes})
}

type applyTemplateRequest struct {
	TemplateID int `json:"template_id"`
}

func (s *Server) sessionApplyTemplate(c *gin.Context) {
	var req applyTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.TemplateID == 0 {
		BadRequest(c, "template_id is required")
		return
	}
	groups, err := s.wizard.ApplyTemplate(c.Param("id"), req.TemplateID)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"groups": groups})
}

type unlockRequest struct {
	Phrase string `json:"phrase"`
}

func (s *Server) sessionUnlock(c *gin.Context) {
	var req unlockRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}
	id := c.Param("id")
	if err := s.wizard.UnlockSends(id, req.Phrase); err != nil {
		Fail(c, err)
		return
	}
	view, err := s.wizard.GetSession(id)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, view)
}

func (s *Server) sessionLock(c *gin.Context) {
	id := c.Param("id")
	if err := s.wizard.LockSends(id); err != nil {
		Fail(c, err)
		return
	}
	view, err := s.wizard.GetSession(id)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, view)
}

func (s *Server) sessionNext(c *gin.Context) {
	view, err := s.wizard.Next(c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, view)
}

func (s *Server) sessionBack(c *gin.Context) {
	view, err := s.wizard.Back(c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, view)
}

func (s *Server) sessionReset(c *gin.Context) {
	view, err := s.wizard.Reset(c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, view)
}
