package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"chandlery/internal"
	"chandlery/internal/storage"
)

// IntakeStore persists fetched messages: the raw .eml lands on disk under its
// content hash, the intake row is keyed by (provider, messageId). Saving a
// message twice rewrites neither the file nor the row's pipeline status.
type IntakeStore struct {
	db         *storage.DB
	rawMailDir string
}

func NewIntakeStore(db *storage.DB, rawMailDir string) *IntakeStore {
	return &IntakeStore{db: db, rawMailDir: rawMailDir}
}

func (s *IntakeStore) Save(msg internal.FetchedMailMessage) (internal.IntakeEmail, error) {
	sum := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(sum[:])

	if err := os.MkdirAll(s.rawMailDir, 0o755); err != nil {
		return internal.IntakeEmail{}, err
	}
	rawPath := filepath.Join(s.rawMailDir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return internal.IntakeEmail{}, err
		}
	}

	return s.db.UpsertIntakeEmail(msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, rawPath, "fetched")
}
