package wizard

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"chandlery/internal"
	"chandlery/internal/templates"
)

func TestSendLockWindow(t *testing.T) {
	var l SendLock
	now := time.Now()
	if l.Unlocked(now) {
		t.Fatal("unlocked by default")
	}
	if err := l.Unlock("nope", "SEND EMAILS", time.Minute, now); !errors.Is(err, ErrBadPhrase) {
		t.Fatalf("err=%v", err)
	}
	if err := l.Unlock(" SEND EMAILS ", "SEND EMAILS", time.Minute, now); err != nil {
		t.Fatal(err)
	}
	if !l.Unlocked(now.Add(30 * time.Second)) {
		t.Fatal("locked inside window")
	}
	if l.Unlocked(now.Add(61 * time.Second)) {
		t.Fatal("unlocked past deadline")
	}
	l.Relock()
	if l.Unlocked(now) {
		t.Fatal("unlocked after relock")
	}
}

func TestSendOneLifecycle(t *testing.T) {
	svc, sender, db := testService(t)
	id := startSession(t, svc)
	toEmailStep(t, svc, id, 0)
	ctx := context.Background()

	if _, err := svc.SendOne(ctx, id, "SUP-001"); !errors.Is(err, ErrSendLocked) {
		t.Fatalf("send while locked: %v", err)
	}
	if err := svc.UnlockSends(id, "wrong"); !errors.Is(err, ErrBadPhrase) {
		t.Fatalf("err=%v", err)
	}
	if err := svc.UnlockSends(id, "SEND EMAILS"); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.SendOne(ctx, id, "SUP-404"); !errors.Is(err, ErrUnknownSupplier) {
		t.Fatalf("err=%v", err)
	}

	out, err := svc.SendOne(ctx, id, "SUP-001")
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != "sent" || out.MessageRef == "" {
		t.Fatalf("outcome: %+v", out)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent=%d", len(sender.sent))
	}
	email := sender.sent[0]
	if email.To != "sales@pacific.example.com" {
		t.Fatalf("to=%q", email.To)
	}
	if !strings.Contains(email.Subject, "PO-5520") || !strings.Contains(email.Subject, "Pacific Provisions") {
		t.Fatalf("subject=%q", email.Subject)
	}
	if !strings.Contains(email.Body, "[P-1001]") {
		t.Fatalf("body=%q", email.Body)
	}
	if len(email.Attachments) != 1 {
		t.Fatalf("attachments=%d", len(email.Attachments))
	}
	att := email.Attachments[0]
	if !strings.HasPrefix(att.Filename, "quotation_Pacific_Provisions") || !strings.HasSuffix(att.Filename, ".xlsx") {
		t.Fatalf("filename=%q", att.Filename)
	}
	if !bytes.HasPrefix(att.Content, []byte{0x50, 0x4b, 0x03, 0x04}) {
		t.Fatalf("attachment not a zip")
	}

	if _, err := svc.SendOne(ctx, id, "SUP-001"); !errors.Is(err, ErrAlreadySent) {
		t.Fatalf("second send: %v", err)
	}

	recs, err := db.ListSentEmails(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("audit rows=%d", len(recs))
	}
	if recs[0].SupplierID != "SUP-001" || recs[0].Provider != "fake" || recs[0].Recipient != "sales@pacific.example.com" {
		t.Fatalf("audit: %+v", recs[0])
	}
	if recs[0].ProductsJSON == "" {
		t.Fatal("audit missing products json")
	}

	if err := svc.LockSends(id); err != nil {
		t.Fatal(err)
	}
	v, _ := svc.GetSession(id)
	if v.SendUnlocked {
		t.Fatal("still unlocked")
	}
}

func TestSendAllContinuesPastFailure(t *testing.T) {
	svc, sender, _ := testService(t)
	id := startSession(t, svc)
	toEmailStep(t, svc, id, 0, 3)
	ctx := context.Background()

	if err := svc.UnlockSends(id, "SEND EMAILS"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SendAll(ctx, id, false); !errors.Is(err, ErrAckRequired) {
		t.Fatalf("no ack: %v", err)
	}

	sender.fail["sales@pacific.example.com"] = true
	outcomes, err := svc.SendAll(ctx, id, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("outcomes=%d", len(outcomes))
	}
	if outcomes[0].SupplierID != "SUP-001" || outcomes[0].Status != "failed" || outcomes[0].Error == "" {
		t.Fatalf("first: %+v", outcomes[0])
	}
	if outcomes[1].SupplierID != "SUP-002" || outcomes[1].Status != "sent" {
		t.Fatalf("second: %+v", outcomes[1])
	}
	if outcomes[1].MessageRef == "" {
		t.Fatal("sent without ref")
	}

	// fallback address used for the supplier without one on file
	if sender.sent[0].To != "orders@yokohama-ship-supply.example.jp" {
		t.Fatalf("to=%q", sender.sent[0].To)
	}

	delete(sender.fail, "sales@pacific.example.com")
	outcomes, err = svc.SendAll(ctx, id, true)
	if err != nil {
		t.Fatal(err)
	}
	if outcomes[0].Status != "sent" || outcomes[1].Status != "skipped" {
		t.Fatalf("retry: %+v", outcomes)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("sent=%d", len(sender.sent))
	}
}

func TestOverlayShapesAttachment(t *testing.T) {
	svc, _, _ := testService(t)
	id := startSession(t, svc)
	toEmailStep(t, svc, id, 0)

	name, content, err := svc.Attachment(id, "SUP-001")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(name, ".xlsx") {
		t.Fatalf("name=%q", name)
	}
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	sheet := f.GetSheetName(0)
	cell := func(ref string) string {
		v, _ := f.GetCellValue(sheet, ref)
		return v
	}
	if cell("B2") != "PO-5520" || cell("B3") != "Pacific Provisions" {
		t.Fatalf("header: %q %q", cell("B2"), cell("B3"))
	}
	// catalog enrichment flows into pack size and unit
	if cell("E9") != "24x500ml" || cell("G9") != "case" {
		t.Fatalf("enrichment: pack=%q unit=%q", cell("E9"), cell("G9"))
	}
	if cell("F9") != "100" || cell("I9") != "450" {
		t.Fatalf("line: qty=%q amount=%q", cell("F9"), cell("I9"))
	}

	overlay := internal.ExcelModification{
		Rows: []internal.ModifiedRow{{Index: 0, Quantity: floatPtr(50)}},
		Note: "urgent delivery",
	}
	if err := svc.PutOverlay(id, "SUP-001", overlay); err != nil {
		t.Fatal(err)
	}
	if err := svc.PutOverlay(id, "SUP-404", overlay); !errors.Is(err, ErrUnknownSupplier) {
		t.Fatalf("err=%v", err)
	}

	_, content, err = svc.Attachment(id, "SUP-001")
	if err != nil {
		t.Fatal(err)
	}
	f, err = excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	sheet = f.GetSheetName(0)
	if cell("F9") != "50" || cell("I9") != "225" {
		t.Fatalf("overlay line: qty=%q amount=%q", cell("F9"), cell("I9"))
	}
	if cell("B12") != "urgent delivery" {
		t.Fatalf("note=%q", cell("B12"))
	}

	// the overlay never touches the confirmed assignments
	v, _ := svc.GetSession(id)
	if v.Assignments[0].Quantity != 100 {
		t.Fatalf("assignment mutated: %+v", v.Assignments[0])
	}
}

func TestApplyTemplateToGroups(t *testing.T) {
	svc, _, db := testService(t)
	tpl, err := db.CreateTemplate(templates.Defaults()[0])
	if err != nil {
		t.Fatal(err)
	}

	id := startSession(t, svc)
	toEmailStep(t, svc, id, 0)

	groups, err := svc.ApplyTemplate(id, tpl.ID)
	if err != nil {
		t.Fatal(err)
	}
	g := groups[0]
	if g.Subject != "Quotation request PO-5520 - Pacific Provisions" {
		t.Fatalf("subject=%q", g.Subject)
	}
	if strings.Contains(g.EmailContent, "{{") {
		t.Fatalf("unrendered vars:\n%s", g.EmailContent)
	}
	if !strings.Contains(g.EmailContent, "450.00 USD") {
		t.Fatalf("total missing:\n%s", g.EmailContent)
	}

	if _, err := svc.ApplyTemplate(id, 9999); err == nil {
		t.Fatal("missing template accepted")
	}
}

func TestEditEmailFields(t *testing.T) {
	svc, _, _ := testService(t)
	id := startSession(t, svc)
	toEmailStep(t, svc, id, 0)

	subject := "Revised request"
	groups, err := svc.UpdateEmail(id, "SUP-001", &subject, nil)
	if err != nil {
		t.Fatal(err)
	}
	if groups[0].Subject != "Revised request" {
		t.Fatalf("subject=%q", groups[0].Subject)
	}
	if groups[0].EmailContent == "" {
		t.Fatal("content dropped")
	}

	if _, err := svc.UpdateEmail(id, "SUP-404", &subject, nil); !errors.Is(err, ErrUnknownSupplier) {
		t.Fatalf("err=%v", err)
	}
}

func TestAnalysisTotals(t *testing.T) {
	svc, _, _ := testService(t)
	id := startSession(t, svc)
	if _, err := svc.Analysis(id); !errors.Is(err, ErrNoUpload) {
		t.Fatalf("err=%v", err)
	}
	if _, err := svc.UploadWorkbook(id, "orders.xlsx", orderWorkbook()); err != nil {
		t.Fatal(err)
	}
	analysis, err := svc.Analysis(id)
	if err != nil {
		t.Fatal(err)
	}
	if analysis.TotalValue != 545 {
		t.Fatalf("total=%v", analysis.TotalValue)
	}
	if analysis.Currency != "USD" {
		t.Fatalf("currency=%q", analysis.Currency)
	}
}

func TestResetClearsSession(t *testing.T) {
	svc, _, _ := testService(t)
	id := startSession(t, svc)
	toEmailStep(t, svc, id, 0)
	if err := svc.UnlockSends(id, "SEND EMAILS"); err != nil {
		t.Fatal(err)
	}
	if err := svc.PutOverlay(id, "SUP-001", internal.ExcelModification{Note: "x"}); err != nil {
		t.Fatal(err)
	}

	v, err := svc.Reset(id)
	if err != nil {
		t.Fatal(err)
	}
	if v.CurrentStep != StepUpload {
		t.Fatalf("step=%s", v.CurrentStep)
	}
	if v.Upload != nil || v.Match != nil || v.Candidates != nil || v.Assignments != nil || v.EmailGroups != nil {
		t.Fatalf("artifacts kept: %+v", v)
	}
	if len(v.Overlays) != 0 {
		t.Fatalf("overlays kept: %+v", v.Overlays)
	}
	if v.SendUnlocked {
		t.Fatal("still unlocked")
	}
}

func TestStoreEviction(t *testing.T) {
	s := NewStore(time.Minute, 0)
	defer s.Close()
	sess := s.Create()

	s.evictExpired(time.Now().Add(30 * time.Second))
	if _, err := s.Get(sess.ID); err != nil {
		t.Fatalf("evicted too early: %v", err)
	}
	s.evictExpired(time.Now().Add(2 * time.Minute))
	if _, err := s.Get(sess.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestUploadRegistryEviction(t *testing.T) {
	r := NewUploadRegistry(time.Minute, 0)
	defer r.Close()
	r.Put(internal.UploadResult{UploadID: "u-1"})

	if _, ok := r.Get("u-1"); !ok {
		t.Fatal("missing entry")
	}
	r.evictExpired(time.Now().Add(2 * time.Minute))
	if _, ok := r.Get("u-1"); ok {
		t.Fatal("entry survived eviction")
	}
}
