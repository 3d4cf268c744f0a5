package mailer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"chandlery/internal/config"
)

type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

type OutboundEmail struct {
	To          string
	ToName      string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Sender delivers one message and returns a provider message reference.
type Sender interface {
	Provider() string
	Send(ctx context.Context, email OutboundEmail) (string, error)
}

// New picks the outbound provider. MAIL_SIMULATE short-circuits to the
// simulated sender regardless of MAIL_PROVIDER; nothing leaves the process
// in that mode.
func New(cfg config.Config, logger *zap.Logger) (Sender, error) {
	if cfg.MailSimulate {
		return NewSimulated(logger), nil
	}
	switch cfg.MailProvider {
	case "gmail":
		return NewGmailSender(cfg)
	case "sendgrid":
		return NewSendGridSender(cfg)
	case "simulated":
		return NewSimulated(logger), nil
	default:
		return nil, fmt.Errorf("unknown mail provider: %s", cfg.MailProvider)
	}
}
