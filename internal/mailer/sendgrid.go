package mailer

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"chandlery/internal/config"
)

type SendGridSender struct {
	apiKey string
	from   string
	name   string
}

func NewSendGridSender(cfg config.Config) (*SendGridSender, error) {
	if err := cfg.Require("SENDGRID_API_KEY", cfg.SendGridAPIKey); err != nil {
		return nil, err
	}
	if err := cfg.Require("MAIL_FROM_ADDRESS", cfg.MailFromAddress); err != nil {
		return nil, err
	}
	return &SendGridSender{apiKey: cfg.SendGridAPIKey, from: cfg.MailFromAddress, name: cfg.MailFromName}, nil
}

func (s *SendGridSender) Provider() string { return "sendgrid" }

func (s *SendGridSender) Send(ctx context.Context, email OutboundEmail) (string, error) {
	m := mail.NewV3Mail()
	m.SetFrom(mail.NewEmail(s.name, s.from))
	m.Subject = email.Subject

	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(email.ToName, email.To))
	m.AddPersonalizations(p)
	m.AddContent(mail.NewContent("text/plain", email.Body))

	for _, att := range email.Attachments {
		a := mail.NewAttachment()
		a.SetContent(base64.StdEncoding.EncodeToString(att.Content))
		a.SetType(att.ContentType)
		a.SetFilename(att.Filename)
		a.SetDisposition("attachment")
		m.AddAttachment(a)
	}

	client := sendgrid.NewSendClient(s.apiKey)
	resp, err := client.SendWithContext(ctx, m)
	if err != nil {
		return "", fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("sendgrid send failed: status=%d body=%s", resp.StatusCode, resp.Body)
	}
	if ids := resp.Headers["X-Message-Id"]; len(ids) > 0 {
		return ids[0], nil
	}
	return "", nil
}
