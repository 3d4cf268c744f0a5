package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"chandlery/internal"
	"chandlery/internal/config"
	"chandlery/internal/mailer"
	"chandlery/internal/pipeline"
	"chandlery/internal/storage"
	"chandlery/internal/suppliers"
	"chandlery/internal/templates"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Service drives wizard sessions end to end: upload, analysis, match,
// supplier assignment, email preparation and send.
type Service struct {
	db       *storage.DB
	cfg      config.Config
	sender   mailer.Sender
	logger   *zap.Logger
	store    *Store
	registry *UploadRegistry
	supplies *suppliers.Service
	proc     *pipeline.ProcessingService
}

func NewService(db *storage.DB, cfg config.Config, sender mailer.Sender, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	sweep := time.Duration(cfg.SessionSweepSec) * time.Second
	return &Service{
		db:       db,
		cfg:      cfg,
		sender:   sender,
		logger:   logger,
		store:    NewStore(time.Duration(cfg.SessionTTLMin)*time.Minute, sweep),
		registry: NewUploadRegistry(time.Duration(cfg.UploadTTLMin)*time.Minute, sweep),
		supplies: suppliers.NewService(db),
		proc:     pipeline.NewProcessingService(db, cfg),
	}
}

func (s *Service) Close() {
	s.store.Close()
	s.registry.Close()
}

func (s *Service) Registry() *UploadRegistry {
	return s.registry
}

// View is the session snapshot returned to clients.
type View struct {
	SessionID    string                                 `json:"sessionId"`
	CurrentStep  Step                                   `json:"currentStep"`
	Upload       *internal.UploadResult                 `json:"upload,omitempty"`
	Match        *internal.MatchResult                  `json:"match,omitempty"`
	Selected     []internal.OriginalIndex               `json:"selectedIndices"`
	Candidates   []SupplierGroup                        `json:"candidateGroups,omitempty"`
	Assignments  []internal.ProductSupplierAssignment   `json:"assignments,omitempty"`
	EmailGroups  []internal.SupplierEmailInfo           `json:"emailGroups,omitempty"`
	Overlays     map[string]*internal.ExcelModification `json:"modifications,omitempty"`
	SendUnlocked bool                                   `json:"sendUnlocked"`
}

// SendOutcome reports the result of one supplier send attempt.
type SendOutcome struct {
	SupplierID   string `json:"supplierId"`
	SupplierName string `json:"supplierName"`
	Status       string `json:"status"`
	MessageRef   string `json:"messageRef,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (s *Service) withSession(id string, fn func(*Session) error) error {
	sess, err := s.store.Get(id)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.LastTouched = time.Now()
	return fn(sess)
}

func snapshot(sess *Session) View {
	v := View{
		SessionID:    sess.ID,
		CurrentStep:  sess.CurrentStep,
		Upload:       sess.UploadData,
		Match:        sess.MatchData,
		Selected:     []internal.OriginalIndex{},
		Assignments:  sess.Assignments,
		EmailGroups:  sess.EmailGroups,
		SendUnlocked: sess.Lock.Unlocked(time.Now()),
	}
	if sess.Selection != nil {
		v.Selected = sess.Selection.Indices()
	}
	if sess.Candidates != nil {
		v.Candidates = sess.Candidates.Groups
	}
	if len(sess.Overlays) > 0 {
		v.Overlays = sess.Overlays
	}
	return v
}

// CreateSession starts a new wizard run. A non-nil intakeID seeds the upload
// stage from a stored intake email; a non-empty uploadID adopts a workbook
// already parsed through the stateless upload endpoint.
func (s *Service) CreateSession(intakeID *int, uploadID string) (View, error) {
	var upload *internal.UploadResult
	switch {
	case intakeID != nil:
		email, err := s.db.GetIntakeByID(*intakeID)
		if err != nil {
			return View{}, err
		}
		if email == nil {
			return View{}, fmt.Errorf("intake email %d not found", *intakeID)
		}
		u, err := s.proc.UploadFromIntake(*email)
		if err != nil {
			return View{}, err
		}
		upload = &u
	case uploadID != "":
		u, ok := s.registry.Get(uploadID)
		if !ok {
			return View{}, fmt.Errorf("upload %s not found", uploadID)
		}
		upload = &u
	}

	sess := s.store.Create()
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if upload != nil {
		sess.UploadData = upload
		sess.CurrentStep = StepAnalysis
		s.registry.Put(*upload)
	}
	return snapshot(sess), nil
}

func (s *Service) GetSession(id string) (View, error) {
	var v View
	err := s.withSession(id, func(sess *Session) error {
		v = snapshot(sess)
		return nil
	})
	return v, err
}

func (s *Service) DeleteSession(id string) error {
	if _, err := s.store.Get(id); err != nil {
		return err
	}
	s.store.Delete(id)
	return nil
}

// UploadWorkbook parses a spreadsheet into the session and advances to
// analysis. Everything derived from a previous upload is dropped.
func (s *Service) UploadWorkbook(id, filename string, content []byte) (internal.UploadResult, error) {
	var out internal.UploadResult
	err := s.withSession(id, func(sess *Session) error {
		if sess.CurrentStep != StepUpload {
			return ErrWrongStep
		}
		if err := pipeline.ValidateWorkbookName(filename); err != nil {
			return err
		}
		orders, err := pipeline.ParseOrderWorkbook(content)
		if err != nil {
			return err
		}
		upload := pipeline.NewUploadResult(orders)
		if upload.TotalProducts == 0 {
			return fmt.Errorf("no order lines found in %s", filename)
		}
		sess.UploadData = &upload
		sess.MatchData = nil
		sess.Selection = nil
		sess.Candidates = nil
		sess.Assignments = nil
		sess.EmailGroups = nil
		sess.Overlays = map[string]*internal.ExcelModification{}
		sess.CurrentStep = StepAnalysis
		s.registry.Put(upload)
		out = upload
		return nil
	})
	return out, err
}

func (s *Service) Analysis(id string) (internal.OrderAnalysis, error) {
	var out internal.OrderAnalysis
	err := s.withSession(id, func(sess *Session) error {
		if sess.UploadData == nil {
			return ErrNoUpload
		}
		out = pipeline.Analyze(*sess.UploadData)
		return nil
	})
	return out, err
}

// RunMatch matches the uploaded lines against the product catalog and resets
// the selection to empty. Downstream artifacts are dropped.
func (s *Service) RunMatch(id string) (internal.MatchResult, error) {
	var out internal.MatchResult
	err := s.withSession(id, func(sess *Session) error {
		if sess.CurrentStep != StepMatch {
			return ErrWrongStep
		}
		if sess.UploadData == nil {
			return ErrNoUpload
		}
		match, err := s.proc.MatchUpload(*sess.UploadData)
		if err != nil {
			return err
		}
		sess.MatchData = &match
		sess.Selection = NewSelectionSet(&match)
		sess.Candidates = nil
		sess.Assignments = nil
		sess.EmailGroups = nil
		sess.Overlays = map[string]*internal.ExcelModification{}
		out = match
		return nil
	})
	return out, err
}

func (s *Service) selectionAction(id string, fn func(*SelectionSet) error) ([]internal.OriginalIndex, error) {
	var out []internal.OriginalIndex
	err := s.withSession(id, func(sess *Session) error {
		if sess.CurrentStep != StepMatch {
			return ErrWrongStep
		}
		if sess.Selection == nil {
			return ErrNoMatch
		}
		if err := fn(sess.Selection); err != nil {
			return err
		}
		sess.Candidates = nil
		sess.Assignments = nil
		sess.EmailGroups = nil
		out = sess.Selection.Indices()
		return nil
	})
	return out, err
}

func (s *Service) ToggleSelection(id string, idx internal.OriginalIndex) ([]internal.OriginalIndex, error) {
	return s.selectionAction(id, func(sel *SelectionSet) error {
		return sel.Toggle(idx)
	})
}

func (s *Service) SelectAllMatched(id string) ([]internal.OriginalIndex, error) {
	return s.selectionAction(id, func(sel *SelectionSet) error {
		sel.SelectAllMatched()
		return nil
	})
}

func (s *Service) SelectNone(id string) ([]internal.OriginalIndex, error) {
	return s.selectionAction(id, func(sel *SelectionSet) error {
		sel.SelectNone()
		return nil
	})
}

// FetchCandidates builds supplier groups for the current selection. The set
// is cached until the selection changes, so group and row toggles survive a
// refetch.
func (s *Service) FetchCandidates(id string) ([]SupplierGroup, error) {
	var out []SupplierGroup
	err := s.withSession(id, func(sess *Session) error {
		if sess.CurrentStep != StepSupplierAssignment {
			return ErrWrongStep
		}
		if sess.MatchData == nil {
			return ErrNoMatch
		}
		if sess.Candidates == nil {
			set, err := BuildCandidateSet(sess.UploadData, sess.MatchData, sess.Selection.Indices(), s.supplies)
			if err != nil {
				return err
			}
			sess.Candidates = set
		}
		out = sess.Candidates.Groups
		return nil
	})
	return out, err
}

func (s *Service) candidateAction(id string, fn func(*CandidateSet) error) ([]SupplierGroup, error) {
	var out []SupplierGroup
	err := s.withSession(id, func(sess *Session) error {
		if sess.CurrentStep != StepSupplierAssignment {
			return ErrWrongStep
		}
		if sess.Candidates == nil {
			return ErrNoCandidates
		}
		if err := fn(sess.Candidates); err != nil {
			return err
		}
		sess.Assignments = nil
		sess.EmailGroups = nil
		out = sess.Candidates.Groups
		return nil
	})
	return out, err
}

func (s *Service) ToggleSupplierGroup(id, supplierID string, selected bool) ([]SupplierGroup, error) {
	return s.candidateAction(id, func(set *CandidateSet) error {
		return set.ToggleGroup(supplierID, selected)
	})
}

func (s *Service) ToggleCandidate(id, supplierID string, idx internal.OriginalIndex, selected bool) ([]SupplierGroup, error) {
	return s.candidateAction(id, func(set *CandidateSet) error {
		return set.ToggleProduct(supplierID, idx, selected)
	})
}

func (s *Service) EditCandidate(id, supplierID string, idx internal.OriginalIndex, quantity, unitPrice *float64) ([]SupplierGroup, error) {
	return s.candidateAction(id, func(set *CandidateSet) error {
		return set.EditProduct(supplierID, idx, quantity, unitPrice)
	})
}

// ConfirmAssignments flattens the checked candidate rows and advances to
// email preparation. An empty flatten is refused.
func (s *Service) ConfirmAssignments(id string) ([]internal.ProductSupplierAssignment, error) {
	var out []internal.ProductSupplierAssignment
	err := s.withSession(id, func(sess *Session) error {
		if sess.CurrentStep != StepSupplierAssignment {
			return ErrWrongStep
		}
		if sess.Candidates == nil {
			return ErrNoCandidates
		}
		assignments := sess.Candidates.FlattenSelected(sess.UploadData)
		if len(assignments) == 0 {
			return ErrEmptySelection
		}
		sess.Assignments = assignments
		sess.EmailGroups = nil
		sess.CurrentStep = StepEmailPreparation
		out = assignments
		return nil
	})
	return out, err
}

// PrepareEmails builds one email group per assigned supplier with default
// subject and body. Groups already prepared are returned as they stand so
// edits and sent flags survive.
func (s *Service) PrepareEmails(id string) ([]internal.SupplierEmailInfo, error) {
	var out []internal.SupplierEmailInfo
	err := s.withSession(id, func(sess *Session) error {
		if sess.CurrentStep != StepEmailPreparation {
			return ErrWrongStep
		}
		if len(sess.Assignments) == 0 {
			return ErrNoAssignments
		}
		if sess.EmailGroups == nil {
			sess.EmailGroups = BuildEmailGroups(sess.Assignments, s.supplies.ResolveEmail, s.cfg.MailFromName)
		}
		out = sess.EmailGroups
		return nil
	})
	return out, err
}

func (s *Service) groupAction(id string, fn func(*Session) error) ([]internal.SupplierEmailInfo, error) {
	var out []internal.SupplierEmailInfo
	err := s.withSession(id, func(sess *Session) error {
		if sess.CurrentStep != StepEmailPreparation {
			return ErrWrongStep
		}
		if sess.EmailGroups == nil {
			return ErrNoGroups
		}
		if err := fn(sess); err != nil {
			return err
		}
		out = sess.EmailGroups
		return nil
	})
	return out, err
}

func groupIndex(groups []internal.SupplierEmailInfo, supplierID string) int {
	for i := range groups {
		if groups[i].SupplierID == supplierID {
			return i
		}
	}
	return -1
}

func (s *Service) UpdateEmail(id, supplierID string, subject, content *string) ([]internal.SupplierEmailInfo, error) {
	return s.groupAction(id, func(sess *Session) error {
		gi := groupIndex(sess.EmailGroups, supplierID)
		if gi < 0 {
			return ErrUnknownSupplier
		}
		if subject != nil {
			sess.EmailGroups[gi].Subject = *subject
		}
		if content != nil {
			sess.EmailGroups[gi].EmailContent = *content
		}
		return nil
	})
}

// ApplyTemplate renders the stored template against every group and
// overwrites subject and body wholesale.
func (s *Service) ApplyTemplate(id string, templateID int) ([]internal.SupplierEmailInfo, error) {
	tpl, err := s.db.GetTemplate(templateID)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, fmt.Errorf("template %d not found", templateID)
	}
	return s.groupAction(id, func(sess *Session) error {
		now := time.Now()
		for i := range sess.EmailGroups {
			vars := templates.GroupVars(sess.EmailGroups[i], s.cfg.MailFromName, s.cfg.MailFromAddress, now)
			subject, content := templates.RenderTemplate(*tpl, vars)
			sess.EmailGroups[i].Subject = subject
			sess.EmailGroups[i].EmailContent = content
		}
		return nil
	})
}

// PutOverlay stores attachment row edits for one supplier. The overlay is
// applied when the workbook is built, leaving the assignments untouched.
func (s *Service) PutOverlay(id, supplierID string, overlay internal.ExcelModification) error {
	return s.withSession(id, func(sess *Session) error {
		if sess.CurrentStep != StepEmailPreparation {
			return ErrWrongStep
		}
		if sess.EmailGroups == nil {
			return ErrNoGroups
		}
		if groupIndex(sess.EmailGroups, supplierID) < 0 {
			return ErrUnknownSupplier
		}
		sess.Overlays[supplierID] = &overlay
		return nil
	})
}

// Attachment builds the quotation workbook for one supplier group, with its
// overlay applied when present.
func (s *Service) Attachment(id, supplierID string) (string, []byte, error) {
	var filename string
	var content []byte
	err := s.withSession(id, func(sess *Session) error {
		if sess.EmailGroups == nil {
			return ErrNoGroups
		}
		gi := groupIndex(sess.EmailGroups, supplierID)
		if gi < 0 {
			return ErrUnknownSupplier
		}
		g := sess.EmailGroups[gi]
		data, err := pipeline.BuildQuotationWorkbook(buildPORequest(sess, g), sess.Overlays[supplierID])
		if err != nil {
			return err
		}
		filename = pipeline.QuotationFilename(s.cfg.QuoteFileLabel, g.SupplierName, time.Now())
		content = data
		return nil
	})
	return filename, content, err
}

// SendOne sends the prepared email for a single supplier. Sending must be
// unlocked and a group sends at most once.
func (s *Service) SendOne(ctx context.Context, id, supplierID string) (SendOutcome, error) {
	var out SendOutcome
	err := s.withSession(id, func(sess *Session) error {
		if sess.CurrentStep != StepEmailPreparation {
			return ErrWrongStep
		}
		if sess.EmailGroups == nil {
			return ErrNoGroups
		}
		gi := groupIndex(sess.EmailGroups, supplierID)
		if gi < 0 {
			return ErrUnknownSupplier
		}
		if !sess.Lock.Unlocked(time.Now()) {
			return ErrSendLocked
		}
		if sess.EmailGroups[gi].Sent {
			return ErrAlreadySent
		}
		ref, err := s.sendGroup(ctx, sess, gi)
		if err != nil {
			return err
		}
		out = SendOutcome{
			SupplierID:   supplierID,
			SupplierName: sess.EmailGroups[gi].SupplierName,
			Status:       "sent",
			MessageRef:   ref,
		}
		return nil
	})
	return out, err
}

// SendAll sends every unsent group serially, pausing between sends. A failed
// group is recorded and the run continues; already sent groups are skipped.
func (s *Service) SendAll(ctx context.Context, id string, acknowledge bool) ([]SendOutcome, error) {
	var out []SendOutcome
	err := s.withSession(id, func(sess *Session) error {
		if sess.CurrentStep != StepEmailPreparation {
			return ErrWrongStep
		}
		if sess.EmailGroups == nil {
			return ErrNoGroups
		}
		if !acknowledge {
			return ErrAckRequired
		}
		if !sess.Lock.Unlocked(time.Now()) {
			return ErrSendLocked
		}
		delay := time.Duration(s.cfg.SendDelayMs) * time.Millisecond
		attempted := false
		for gi := range sess.EmailGroups {
			g := &sess.EmailGroups[gi]
			if g.Sent {
				out = append(out, SendOutcome{SupplierID: g.SupplierID, SupplierName: g.SupplierName, Status: "skipped"})
				continue
			}
			if attempted && delay > 0 {
				time.Sleep(delay)
			}
			attempted = true
			ref, err := s.sendGroup(ctx, sess, gi)
			if err != nil {
				s.logger.Warn("send failed",
					zap.String("supplier", g.SupplierID),
					zap.Error(err))
				out = append(out, SendOutcome{SupplierID: g.SupplierID, SupplierName: g.SupplierName, Status: "failed", Error: err.Error()})
				continue
			}
			out = append(out, SendOutcome{SupplierID: g.SupplierID, SupplierName: g.SupplierName, Status: "sent", MessageRef: ref})
		}
		return nil
	})
	return out, err
}

func (s *Service) sendGroup(ctx context.Context, sess *Session, gi int) (string, error) {
	g := &sess.EmailGroups[gi]
	if g.Email == "" {
		return "", fmt.Errorf("supplier %s has no email address", g.SupplierID)
	}
	content, err := pipeline.BuildQuotationWorkbook(buildPORequest(sess, *g), sess.Overlays[g.SupplierID])
	if err != nil {
		return "", err
	}
	ref, err := s.sender.Send(ctx, mailer.OutboundEmail{
		To:      g.Email,
		ToName:  g.SupplierName,
		Subject: g.Subject,
		Body:    g.EmailContent,
		Attachments: []mailer.Attachment{{
			Filename:    pipeline.QuotationFilename(s.cfg.QuoteFileLabel, g.SupplierName, time.Now()),
			ContentType: xlsxContentType,
			Content:     content,
		}},
	})
	if err != nil {
		return "", err
	}
	g.Sent = true
	s.audit(*g, ref, sess.Overlays[g.SupplierID])
	return ref, nil
}

func (s *Service) audit(g internal.SupplierEmailInfo, ref string, overlay *internal.ExcelModification) {
	rec := internal.SentEmailRecord{
		SupplierID: g.SupplierID,
		Recipient:  g.Email,
		Subject:    g.Subject,
		Provider:   s.sender.Provider(),
		MessageRef: ref,
	}
	if b, err := json.Marshal(g.Products); err == nil {
		rec.ProductsJSON = string(b)
	}
	if overlay != nil {
		if b, err := json.Marshal(overlay); err == nil {
			rec.ModificationJSON = string(b)
		}
	}
	if _, err := s.db.InsertSentEmail(rec); err != nil {
		s.logger.Warn("sent email audit failed", zap.Error(err))
	}
}

// UnlockSends arms the send lock for the configured window. When an unlock
// phrase is configured it must match.
func (s *Service) UnlockSends(id, phrase string) error {
	return s.withSession(id, func(sess *Session) error {
		ttl := time.Duration(s.cfg.SendLockTimeoutSec) * time.Second
		return sess.Lock.Unlock(phrase, s.cfg.SendUnlockPhrase, ttl, time.Now())
	})
}

func (s *Service) LockSends(id string) error {
	return s.withSession(id, func(sess *Session) error {
		sess.Lock.Relock()
		return nil
	})
}

// Next advances one step. A step only opens once its artifact exists.
func (s *Service) Next(id string) (View, error) {
	var v View
	err := s.withSession(id, func(sess *Session) error {
		i := stepIndex(sess.CurrentStep)
		if i < 0 || i == len(stepOrder)-1 {
			return ErrWrongStep
		}
		switch sess.CurrentStep {
		case StepUpload:
			if sess.UploadData == nil {
				return ErrNoUpload
			}
		case StepMatch:
			if sess.MatchData == nil {
				return ErrNoMatch
			}
		case StepSupplierAssignment:
			if len(sess.Assignments) == 0 {
				return ErrNoAssignments
			}
		case StepEmailPreparation:
			if sess.EmailGroups == nil {
				return ErrNoGroups
			}
		}
		sess.CurrentStep = stepOrder[i+1]
		v = snapshot(sess)
		return nil
	})
	return v, err
}

// Back moves one step toward upload. Downstream artifacts are kept until a
// producing action replaces them.
func (s *Service) Back(id string) (View, error) {
	var v View
	err := s.withSession(id, func(sess *Session) error {
		i := stepIndex(sess.CurrentStep)
		if i <= 0 {
			return ErrWrongStep
		}
		sess.CurrentStep = stepOrder[i-1]
		v = snapshot(sess)
		return nil
	})
	return v, err
}

// Reset clears every artifact and returns the session to upload.
func (s *Service) Reset(id string) (View, error) {
	var v View
	err := s.withSession(id, func(sess *Session) error {
		sess.UploadData = nil
		sess.MatchData = nil
		sess.Selection = nil
		sess.Candidates = nil
		sess.Assignments = nil
		sess.EmailGroups = nil
		sess.Overlays = map[string]*internal.ExcelModification{}
		sess.Lock.Relock()
		sess.CurrentStep = StepUpload
		v = snapshot(sess)
		return nil
	})
	return v, err
}

func buildPORequest(sess *Session, g internal.SupplierEmailInfo) internal.PurchaseOrderRequest {
	po := internal.PurchaseOrderRequest{
		SupplierID:   g.SupplierID,
		SupplierName: g.SupplierName,
		TotalValue:   g.TotalValue,
	}
	if len(g.Products) > 0 {
		first := g.Products[0]
		po.PONumber = first.PONumber
		po.ShipCode = first.ShipCode
		po.VoyageNumber = first.VoyageNumber
		po.DeliveryDate = first.DeliveryDate
		po.Currency = first.Currency
	}
	if sess.UploadData != nil && len(sess.UploadData.Orders) > 0 {
		po.DeliveryAddress = sess.UploadData.Orders[0].DestinationPort
	}
	for _, p := range g.Products {
		line := internal.QuotationLine{
			Code:     p.ProductCode,
			Name:     p.ProductName,
			Quantity: p.Quantity,
			Price:    p.UnitPrice,
			Amount:   p.TotalPrice,
			Currency: p.Currency,
		}
		if p.ProductNameJp != nil {
			line.NameJp = *p.ProductNameJp
		}
		if sess.MatchData != nil && int(p.ProductIndex) < len(sess.MatchData.Results) {
			if mp := sess.MatchData.Results[p.ProductIndex].MatchedProduct; mp != nil {
				if mp.PackSize != nil {
					line.PackSize = *mp.PackSize
				}
				if mp.Unit != nil {
					line.Unit = *mp.Unit
				}
			}
		}
		po.Lines = append(po.Lines, line)
	}
	return po
}
