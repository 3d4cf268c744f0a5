package wizard

import "errors"

// Step is one stage of the order-import wizard. Transitions move strictly
// one step forward or backward; producing actions re-run on an earlier step
// invalidate everything downstream.
type Step string

const (
	StepUpload             Step = "upload"
	StepAnalysis           Step = "analysis"
	StepMatch              Step = "match"
	StepSupplierAssignment Step = "supplier-assignment"
	StepEmailPreparation   Step = "email-preparation"
	StepComplete           Step = "complete"
)

var stepOrder = []Step{
	StepUpload,
	StepAnalysis,
	StepMatch,
	StepSupplierAssignment,
	StepEmailPreparation,
	StepComplete,
}

func stepIndex(s Step) int {
	for i, step := range stepOrder {
		if step == s {
			return i
		}
	}
	return -1
}

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrWrongStep       = errors.New("action not available on current step")
	ErrNoUpload        = errors.New("session has no upload")
	ErrNoMatch         = errors.New("session has no match results")
	ErrNoCandidates    = errors.New("supplier candidates not built")
	ErrNoAssignments   = errors.New("no supplier assignments confirmed")
	ErrNoGroups        = errors.New("email groups not prepared")
	ErrUnknownSupplier = errors.New("unknown supplier group")
	ErrNotSelectable   = errors.New("row is not selectable")
	ErrEmptySelection  = errors.New("selection is empty")
	ErrSendLocked      = errors.New("sending is locked")
	ErrAlreadySent     = errors.New("email already sent")
	ErrAckRequired     = errors.New("bulk send requires acknowledgement")
	ErrBadPhrase       = errors.New("confirmation phrase mismatch")
)
