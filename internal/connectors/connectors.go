package connectors

import (
	"fmt"
	"strings"

	"chandlery/internal"
	"chandlery/internal/config"
	"chandlery/internal/connectors/gmail"
	"chandlery/internal/connectors/imap"
)

// Inbox is a read-only view of one mailbox. Implementations return up to max
// messages from the named label or folder, raw bytes included.
type Inbox interface {
	FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error)
}

// New builds the inbound connector named by INTAKE_PROVIDER.
func New(provider string, cfg config.Config) (Inbox, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmail.NewConnector(cfg)
	case "imap":
		return imap.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unknown intake provider: %s", provider)
	}
}
