package server

import (
	"errors"

	"github.com/gin-gonic/gin"

	"chandlery/internal/wizard"
)

// Response is the common envelope. Code 0 means success; error codes carry
// the HTTP status in their first three digits.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Fail maps wizard errors onto envelope codes. Validation problems are
// 400-class, missing resources 404, off-step and re-send conflicts 409,
// the send lock 423, everything else 500.
func Fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, wizard.ErrSessionNotFound):
		Error(c, 40400, err.Error())
	case errors.Is(err, wizard.ErrUnknownSupplier):
		Error(c, 40404, err.Error())
	case errors.Is(err, wizard.ErrWrongStep):
		Error(c, 40900, err.Error())
	case errors.Is(err, wizard.ErrAlreadySent):
		Error(c, 40901, err.Error())
	case errors.Is(err, wizard.ErrSendLocked):
		Error(c, 42300, err.Error())
	case errors.Is(err, wizard.ErrNoUpload),
		errors.Is(err, wizard.ErrNoMatch),
		errors.Is(err, wizard.ErrNoCandidates),
		errors.Is(err, wizard.ErrNoAssignments),
		errors.Is(err, wizard.ErrNoGroups),
		errors.Is(err, wizard.ErrNotSelectable),
		errors.Is(err, wizard.ErrEmptySelection),
		errors.Is(err, wizard.ErrBadPhrase),
		errors.Is(err, wizard.ErrAckRequired):
		Error(c, 40000, err.Error())
	default:
		Error(c, 50000, err.Error())
	}
}
