package mailer

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SimulatedSender logs the message instead of delivering it. Used for local
// development (MAIL_SIMULATE=true) and in tests.
type SimulatedSender struct {
	logger *zap.Logger
}

func NewSimulated(logger *zap.Logger) *SimulatedSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SimulatedSender{logger: logger}
}

func (s *SimulatedSender) Provider() string { return "simulated" }

func (s *SimulatedSender) Send(_ context.Context, email OutboundEmail) (string, error) {
	ref := "simulated-" + uuid.NewString()
	s.logger.Info("simulated send",
		zap.String("to", email.To),
		zap.String("subject", email.Subject),
		zap.Int("attachments", len(email.Attachments)),
		zap.String("ref", ref),
	)
	return ref, nil
}
