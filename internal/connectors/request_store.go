package connectors

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"

	"iams2rf/internal"
	"iams2rf/internal/storage"
)

type RequestStore struct {
	db  *storage.DB
	dir string
}

func NewRequestStore(db *storage.DB, dir string) *RequestStore {
	return &RequestStore{db: db, dir: dir}
}

func (s *RequestStore) Store(msg internal.FetchedMailMessage) (internal.RequestRow, error) {
	sum := sha256.Sum256(msg.Raw)
	hash := hex.EncodeToString(sum[:])

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return internal.RequestRow{}, err
	}

	rawPath := filepath.Join(s.dir, hash+".eml")
	if _, err := os.Stat(rawPath); os.IsNotExist(err) {
		if err := os.WriteFile(rawPath, msg.Raw, 0o644); err != nil {
			return internal.RequestRow{}, err
		}
	}

	return s.db.UpsertRequest(msg.Provider, msg.MessageID, msg.Subject, msg.From, msg.ReceivedAt, hash, rawPath)
}
