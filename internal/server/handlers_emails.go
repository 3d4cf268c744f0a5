package server

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chandlery/internal"
	"chandlery/internal/mailer"
	"chandlery/internal/pipeline"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// sendEmail is the standalone send endpoint: a full email composed by the
// caller, with the quotation workbook derived from products_data and any
// extra uploaded attachments forwarded as they are.
func (s *Server) sendEmail(c *gin.Context) {
	supplierID := c.PostForm("supplier_id")
	subject := c.PostForm("subject")
	content := c.PostForm("content")
	productsData := c.PostForm("products_data")
	if supplierID == "" || subject == "" || productsData == "" {
		BadRequest(c, "supplier_id, subject and products_data are required")
		return
	}

	var lines []internal.QuotationLine
	if err := json.Unmarshal([]byte(productsData), &lines); err != nil {
		BadRequest(c, fmt.Sprintf("invalid products_data: %v", err))
		return
	}
	if len(lines) == 0 {
		BadRequest(c, "products_data is empty")
		return
	}

	var overlay *internal.ExcelModification
	if raw := c.PostForm("modification_data"); raw != "" {
		var mod internal.ExcelModification
		if err := json.Unmarshal([]byte(raw), &mod); err != nil {
			BadRequest(c, fmt.Sprintf("invalid modification_data: %v", err))
			return
		}
		overlay = &mod
	}

	supplierName := supplierID
	if rec, err := s.db.GetSupplier(supplierID); err == nil && rec != nil {
		supplierName = rec.Name
	}
	recipient := s.supplies.ResolveEmail(supplierID, supplierName)

	po := internal.PurchaseOrderRequest{
		SupplierID:   supplierID,
		SupplierName: supplierName,
		PONumber:     c.PostForm("po_number"),
		ShipCode:     c.PostForm("ship_code"),
		DeliveryDate: c.PostForm("delivery_date"),
		Lines:        lines,
	}
	for _, l := range lines {
		po.TotalValue += l.Amount
		if po.Currency == "" {
			po.Currency = l.Currency
		}
	}
	workbook, err := pipeline.BuildQuotationWorkbook(po, overlay)
	if err != nil {
		Error(c, 50000, err.Error())
		return
	}

	attachments := []mailer.Attachment{{
		Filename:    pipeline.QuotationFilename(s.cfg.QuoteFileLabel, supplierName, time.Now()),
		ContentType: xlsxContentType,
		Content:     workbook,
	}}
	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, fh := range form.File["additional_attachments"] {
			f, err := fh.Open()
			if err != nil {
				Error(c, 50000, err.Error())
				return
			}
			data, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				Error(c, 50000, err.Error())
				return
			}
			contentType := fh.Header.Get("Content-Type")
			if contentType == "" {
				contentType = "application/octet-stream"
			}
			attachments = append(attachments, mailer.Attachment{
				Filename:    fh.Filename,
				ContentType: contentType,
				Content:     data,
			})
		}
	}

	ref, err := s.sender.Send(c.Request.Context(), mailer.OutboundEmail{
		To:          recipient,
		ToName:      supplierName,
		Subject:     subject,
		Body:        content,
		Attachments: attachments,
	})
	if err != nil {
		Error(c, 50200, err.Error())
		return
	}

	rec := internal.SentEmailRecord{
		SupplierID: supplierID,
		Recipient:  recipient,
		Subject:    subject,
		Provider:   s.sender.Provider(),
		MessageRef: ref,
		ProductsJSON: func() string {
			b, _ := json.Marshal(lines)
			return string(b)
		}(),
	}
	if overlay != nil {
		if b, err := json.Marshal(overlay); err == nil {
			rec.ModificationJSON = string(b)
		}
	}
	if _, err := s.db.InsertSentEmail(rec); err != nil {
		s.logger.Warn("sent email audit failed", zap.Error(err))
	}

	Success(c, gin.H{
		"message_ref": ref,
		"recipient":   recipient,
		"provider":    s.sender.Provider(),
	})
}

func (s *Server) listSentEmails(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	items, err := s.db.ListSentEmails(limit)
	if err != nil {
		Error(c, 50000, err.Error())
		return
	}
	Success(c, ListResponse{Items: items})
}

type excelRequest struct {
	PurchaseOrder internal.PurchaseOrderRequest `json:"purchase_order"`
	Modification  *internal.ExcelModification   `json:"modification,omitempty"`
}

func (s *Server) purchaseOrderExcel(c *gin.Context) {
	var req excelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if len(req.PurchaseOrder.Lines) == 0 {
		BadRequest(c, "purchase order has no lines")
		return
	}
	content, err := pipeline.BuildQuotationWorkbook(req.PurchaseOrder, req.Modification)
	if err != nil {
		Error(c, 50000, err.Error())
		return
	}
	filename := pipeline.QuotationFilename(s.cfg.QuoteFileLabel, req.PurchaseOrder.SupplierName, time.Now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(200, xlsxContentType, content)
}
