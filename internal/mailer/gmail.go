package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"

	"github.com/jhillyerd/enmime"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"chandlery/internal/config"
)

type GmailSender struct {
	service *gmailapi.Service
	from    string
	name    string
}

func NewGmailSender(cfg config.Config) (*GmailSender, error) {
	if err := cfg.Require("GMAIL_CLIENT_ID", cfg.GmailClientID); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_CLIENT_SECRET", cfg.GmailClientSecret); err != nil {
		return nil, err
	}
	if err := cfg.Require("GMAIL_REFRESH_TOKEN", cfg.GmailRefreshToken); err != nil {
		return nil, err
	}
	if err := cfg.Require("MAIL_FROM_ADDRESS", cfg.MailFromAddress); err != nil {
		return nil, err
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmailapi.GmailSendScope},
	}
	tokenSource := oauthCfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmailapi.NewService(context.Background(), option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}

	return &GmailSender{service: svc, from: cfg.MailFromAddress, name: cfg.MailFromName}, nil
}

func (s *GmailSender) Provider() string { return "gmail" }

func (s *GmailSender) Send(ctx context.Context, email OutboundEmail) (string, error) {
	raw, err := buildMIME(s.name, s.from, email)
	if err != nil {
		return "", err
	}

	msg := &gmailapi.Message{Raw: base64.RawURLEncoding.EncodeToString(raw)}
	sent, err := s.service.Users.Messages.Send("me", msg).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("gmail send: %w", err)
	}
	return sent.Id, nil
}

func buildMIME(fromName, fromAddr string, email OutboundEmail) ([]byte, error) {
	b := enmime.Builder().
		From(fromName, fromAddr).
		To(email.ToName, email.To).
		Subject(email.Subject).
		Text([]byte(email.Body))
	for _, att := range email.Attachments {
		b = b.AddAttachment(att.Content, att.ContentType, att.Filename)
	}

	part, err := b.Build()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
