package connectors

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"iams2rf/internal"
	"iams2rf/internal/config"
	"iams2rf/internal/storage"
)

type fakeConnector struct {
	messages []internal.FetchedMailMessage
	err      error
	mailbox  string
	max      int
}

func (f *fakeConnector) FetchRequests(mailbox string, max int) ([]internal.FetchedMailMessage, error) {
	f.mailbox, f.max = mailbox, max
	return f.messages, f.err
}

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "iams.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRequestStoreWritesRawMessage(t *testing.T) {
	db := openTestDB(t)
	dir := filepath.Join(t.TempDir(), "requests")
	store := NewRequestStore(db, dir)

	msg := internal.FetchedMailMessage{
		Provider:   "imap",
		MessageID:  "<req-1@example.com>",
		Subject:    "request",
		From:       "Reader <reader@example.com>",
		ReceivedAt: "2026-01-02T00:00:00Z",
		Raw:        []byte("Subject: request\r\n\r\nv=r\r\n"),
	}
	row, err := store.Store(msg)
	require.NoError(t, err)
	assert.Equal(t, internal.RequestFetched, row.Status)
	assert.Equal(t, filepath.Join(dir, row.Hash+".eml"), row.RawRef)

	blob, err := os.ReadFile(row.RawRef)
	require.NoError(t, err)
	assert.Equal(t, msg.Raw, blob)

	again, err := store.Store(msg)
	require.NoError(t, err)
	assert.Equal(t, row.ID, again.ID)
}

func TestFetchAndStore(t *testing.T) {
	db := openTestDB(t)
	fake := &fakeConnector{messages: []internal.FetchedMailMessage{
		{Provider: "gmail", MessageID: "m1", Raw: []byte("a")},
		{Provider: "gmail", MessageID: "m2", Raw: []byte("b")},
	}}
	svc := NewFetchService(db, t.TempDir(), fake, zerolog.Nop())

	res, err := svc.FetchAndStore("Requests", 5)
	require.NoError(t, err)
	assert.Equal(t, FetchResult{Fetched: 2, Stored: 2}, res)
	assert.Equal(t, "Requests", fake.mailbox)
	assert.Equal(t, 5, fake.max)

	pending, err := db.ListRequestsByStatus(internal.RequestFetched, "", 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestFetchAndStoreConnectorError(t *testing.T) {
	boom := errors.New("mailbox unavailable")
	svc := NewFetchService(openTestDB(t), t.TempDir(), &fakeConnector{err: boom}, zerolog.Nop())
	_, err := svc.FetchAndStore("INBOX", 1)
	assert.ErrorIs(t, err, boom)
}

func TestNewProvider(t *testing.T) {
	_, err := New(config.Config{}, "pop3")
	assert.Error(t, err)

	_, err = New(config.Config{}, "imap")
	assert.ErrorContains(t, err, "IMAP_")

	conn, err := New(config.Config{IMAPHost: "mail.example.com", IMAPUser: "u", IMAPPassword: "p"}, " IMAP ")
	require.NoError(t, err)
	assert.NotNil(t, conn)
}
