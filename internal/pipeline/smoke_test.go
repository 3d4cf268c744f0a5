package pipeline

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chandlery/internal"
	"chandlery/internal/config"
	"chandlery/internal/storage"
)

func mkOrderEmail(subject string, workbook []byte) []byte {
	var sb strings.Builder
	sb.WriteString("From: agent@cruise.example.com\r\n")
	sb.WriteString("To: orders@chandlery.example.com\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: multipart/mixed; boundary=\"b1\"\r\n")
	sb.WriteString("\r\n--b1\r\n")
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	sb.WriteString("\r\nPlease find attached the provision order for loading.\r\n")
	sb.WriteString("\r\n--b1\r\n")
	sb.WriteString("Content-Type: application/vnd.openxmlformats-officedocument.spreadsheetml.sheet\r\n")
	sb.WriteString("Content-Disposition: attachment; filename=\"order.xlsx\"\r\n")
	sb.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")
	sb.WriteString(base64.StdEncoding.EncodeToString(workbook))
	sb.WriteString("\r\n--b1--\r\n")
	return []byte(sb.String())
}

func TestSmokeEmailToReport(t *testing.T) {
	tmp := t.TempDir()
	db, err := storage.Open(filepath.Join(tmp, "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	products := []internal.ProductRecord{
		{ID: 100, Code: "P-1001", Name: "Mineral Water 500ml", RawJSON: `{}`},
		{ID: 101, Code: "P-1002", Name: "Orange Juice 1L", RawJSON: `{}`},
	}
	if err := db.UpsertProducts(products); err != nil {
		t.Fatal(err)
	}

	workbook := mkXLSX([][]any{
		{"PO Number:", "PO-5520"},
		{"Ship Name", "MS Aurora"},
		{"Product Name", "Qty", "Unit", "Unit Price"},
		{"Mineral Water 500ml", 120, "case", 4.5},
		{"Dragonfruit Compote", 5, "jar", 12},
	})
	rawPath := filepath.Join(tmp, "fixture.eml")
	if err := os.WriteFile(rawPath, mkOrderEmail("Provision order PO-5520 MS Aurora", workbook), 0o644); err != nil {
		t.Fatal(err)
	}

	email, err := db.UpsertIntakeEmail("gmail", "<fixture-1@example.com>", "Provision order PO-5520 MS Aurora", "agent@cruise.example.com", "2026-08-20T00:00:00Z", "hash", rawPath, "fetched")
	if err != nil {
		t.Fatal(err)
	}

	cfg, _ := config.Load()
	proc := NewProcessingService(db, cfg)
	res, err := proc.ProcessIntake(email)
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != "ready" {
		t.Fatalf("status=%q", res.Status)
	}

	upload, err := proc.UploadFromIntake(email)
	if err != nil {
		t.Fatal(err)
	}
	if upload.TotalProducts != 2 {
		t.Fatalf("products=%d", upload.TotalProducts)
	}
	if upload.Orders[0].PONumber != "PO-5520" {
		t.Fatalf("po=%q", upload.Orders[0].PONumber)
	}

	match, err := proc.MatchUpload(upload)
	if err != nil {
		t.Fatal(err)
	}
	if match.TotalProducts != 2 {
		t.Fatalf("match total=%d", match.TotalProducts)
	}
	if match.Results[0].Status != internal.MatchMatched {
		t.Fatalf("first line: %s", match.Results[0].Status)
	}

	rows := ReportRows(upload, match)
	if len(rows) != 2 {
		t.Fatalf("rows=%d", len(rows))
	}

	out := filepath.Join(tmp, "report.xlsx")
	if err := ExportMatchReport(rows, out); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(out); err != nil {
		t.Fatal(err)
	}
}
