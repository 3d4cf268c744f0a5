package pipeline

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"chandlery/internal"
	"chandlery/internal/config"
	"chandlery/internal/storage"
	"chandlery/internal/util"
)

type ProcessingService struct {
	db  *storage.DB
	cfg config.Config
}

func NewProcessingService(db *storage.DB, cfg config.Config) *ProcessingService {
	return &ProcessingService{db: db, cfg: cfg}
}

type ProcessResult struct {
	IntakeID int
	Status   string
	Orders   int
	Products int
}

func (s *ProcessingService) ProcessByProviderMessageID(provider, messageID string) (ProcessResult, error) {
	email, err := s.db.MustIntakeByProviderMessageID(provider, messageID)
	if err != nil {
		return ProcessResult{}, err
	}
	return s.ProcessIntake(email)
}

func (s *ProcessingService) ProcessPending(limit int, provider string) (int, int, error) {
	pending, err := s.db.ListIntakeByStatus("fetched", limit)
	if err != nil {
		return 0, 0, err
	}
	processedEmails := 0
	readyEmails := 0
	for _, email := range pending {
		if provider != "" && email.Provider != provider {
			continue
		}
		res, err := s.ProcessIntake(email)
		if err != nil {
			return processedEmails, readyEmails, err
		}
		processedEmails++
		if res.Status == "ready" {
			readyEmails++
		}
	}
	return processedEmails, readyEmails, nil
}

// ProcessIntake classifies a fetched message: intakes that carry a parseable
// cruise order become "ready" for the wizard, everything else "skipped".
func (s *ProcessingService) ProcessIntake(email internal.IntakeEmail) (ProcessResult, error) {
	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return ProcessResult{}, err
	}

	orders, subject, text, attachmentNames, err := ExtractOrdersFromEmailRaw(raw)
	if err != nil {
		return ProcessResult{}, err
	}

	detect := DetectOrderSheet(firstNonEmpty(subject, email.Subject), text, "", attachmentNames)
	products := countOrderProducts(orders)
	if !detect.IsOrder || products == 0 {
		if err := s.db.UpdateIntakeStatus(email.ID, "skipped"); err != nil {
			return ProcessResult{}, err
		}
		return ProcessResult{IntakeID: email.ID, Status: "skipped"}, nil
	}

	if err := s.db.UpdateIntakeStatus(email.ID, "ready"); err != nil {
		return ProcessResult{}, err
	}
	return ProcessResult{IntakeID: email.ID, Status: "ready", Orders: len(orders), Products: products}, nil
}

func (s *ProcessingService) UploadFromIntake(email internal.IntakeEmail) (internal.UploadResult, error) {
	raw, err := os.ReadFile(email.RawRef)
	if err != nil {
		return internal.UploadResult{}, err
	}
	orders, _, _, _, err := ExtractOrdersFromEmailRaw(raw)
	if err != nil {
		return internal.UploadResult{}, err
	}
	if countOrderProducts(orders) == 0 {
		return internal.UploadResult{}, fmt.Errorf("intake %d: no order lines extracted", email.ID)
	}
	return NewUploadResult(orders), nil
}

func (s *ProcessingService) MatchUpload(upload internal.UploadResult) (internal.MatchResult, error) {
	products, err := s.db.ListProducts()
	if err != nil {
		return internal.MatchResult{}, err
	}
	matcher := NewMatcher(s.cfg, products)
	return matcher.MatchUpload(upload), nil
}

func NewUploadResult(orders []internal.CruiseOrder) internal.UploadResult {
	return internal.UploadResult{
		UploadID:      uuid.NewString(),
		TotalOrders:   len(orders),
		TotalProducts: countOrderProducts(orders),
		Orders:        orders,
	}
}

func countOrderProducts(orders []internal.CruiseOrder) int {
	total := 0
	for _, o := range orders {
		total += len(o.Products)
	}
	return total
}

// ReportRows flattens an upload and its match result into reporting rows,
// one per order line, in OriginalIndex order.
func ReportRows(upload internal.UploadResult, match internal.MatchResult) []internal.MatchReportRow {
	rows := make([]internal.MatchReportRow, 0, len(match.Results))
	idx := 0
	for _, order := range upload.Orders {
		for _, product := range order.Products {
			if idx >= len(match.Results) {
				break
			}
			m := match.Results[idx]
			row := internal.MatchReportRow{
				LineNo:      idx,
				PONumber:    order.PONumber,
				Source:      string(order.Source),
				ProductName: product.ProductName,
				ItemCode:    product.ItemCode,
				Qty:         product.Quantity,
				Unit:        product.Unit,
				MatchStatus: string(m.Status),
				Score:       m.Score,
				MatchReason: string(m.Reason),
			}
			if mp := m.MatchedProduct; mp != nil {
				row.ProductCode = util.StringPtr(mp.Code)
				row.CatalogName = util.StringPtr(mp.Name)
				row.CatalogNameJp = mp.NameJp
				row.PackSize = mp.PackSize
				row.PurchasePrice = mp.PurchasePrice
				row.Currency = mp.Currency
			}
			if len(m.Candidates) > 1 {
				row.Candidate2Name = util.StringPtr(m.Candidates[1].Name)
				row.Candidate2Score = util.FloatPtr(m.Candidates[1].Score)
			}
			rows = append(rows, row)
			idx++
		}
	}
	return rows
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
