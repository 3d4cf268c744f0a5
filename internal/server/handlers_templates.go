package server

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"chandlery/internal"
	"chandlery/internal/templates"
)

func (s *Server) listTemplates(c *gin.Context) {
	items, err := s.db.ListTemplates()
	if err != nil {
		Error(c, 50000, err.Error())
		return
	}
	Success(c, ListResponse{Items: items})
}

func (s *Server) createTemplate(c *gin.Context) {
	var t internal.EmailTemplate
	if err := c.ShouldBindJSON(&t); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if strings.TrimSpace(t.Name) == "" {
		BadRequest(c, "template name is required")
		return
	}
	created, err := s.db.CreateTemplate(t)
	if err != nil {
		Error(c, 50000, err.Error())
		return
	}
	Created(c, created)
}

func templateID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		BadRequest(c, "invalid template id")
		return 0, false
	}
	return id, true
}

func (s *Server) getTemplate(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}
	t, err := s.db.GetTemplate(id)
	if err != nil {
		Error(c, 50000, err.Error())
		return
	}
	if t == nil {
		NotFound(c, "template not found")
		return
	}
	Success(c, t)
}

func (s *Server) updateTemplate(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}
	var t internal.EmailTemplate
	if err := c.ShouldBindJSON(&t); err != nil {
		BadRequest(c, err.Error())
		return
	}
	t.ID = id
	existing, err := s.db.GetTemplate(id)
	if err != nil {
		Error(c, 50000, err.Error())
		return
	}
	if existing == nil {
		NotFound(c, "template not found")
		return
	}
	if err := s.db.UpdateTemplate(t); err != nil {
		Error(c, 50000, err.Error())
		return
	}
	Success(c, t)
}

func (s *Server) deleteTemplate(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}
	if err := s.db.DeleteTemplate(id); err != nil {
		Error(c, 50000, err.Error())
		return
	}
	Success(c, gin.H{"deleted": id})
}

type renderRequest struct {
	Variables map[string]string `json:"variables"`
}

// renderTemplate previews a stored template against caller variables.
// Placeholders without a variable are left as they are.
func (s *Server) renderTemplate(c *gin.Context) {
	id, ok := templateID(c)
	if !ok {
		return
	}
	t, err := s.db.GetTemplate(id)
	if err != nil {
		Error(c, 50000, err.Error())
		return
	}
	if t == nil {
		NotFound(c, "template not found")
		return
	}
	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	subject, content := templates.RenderTemplate(*t, req.Variables)
	Success(c, gin.H{"subject": subject, "content": content})
}
