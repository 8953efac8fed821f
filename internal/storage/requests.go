package storage

import (
	"database/sql"
	"errors"

	"iams2rf/internal"
)

const requestColumns = `id, provider, messageId, subject, sender, receivedAt, hash, status, note, rawRef`

// UpsertRequest records a fetched message. A message seen before keeps its
// status so it is not exported twice.
func (d *DB) UpsertRequest(provider, messageID, subject, sender, receivedAt, hash, rawRef string) (internal.RequestRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO requests (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, string(internal.RequestFetched), rawRef)
	if err != nil {
		return internal.RequestRow{}, err
	}

	row, err := d.GetRequest(provider, messageID)
	if err != nil {
		return internal.RequestRow{}, err
	}
	if row == nil {
		return internal.RequestRow{}, errors.New("failed to upsert request")
	}
	return *row, nil
}

func scanRequest(scan func(dest ...any) error) (internal.RequestRow, error) {
	var (
		row                         internal.RequestRow
		subject, sender, receivedAt sql.NullString
		status                      string
	)
	err := scan(&row.ID, &row.Provider, &row.MessageID, &subject, &sender, &receivedAt, &row.Hash, &status, &row.Note, &row.RawRef)
	row.Subject, row.Sender, row.ReceivedAt = subject.String, sender.String, receivedAt.String
	row.Status = internal.RequestStatus(status)
	return row, err
}

func (d *DB) GetRequest(provider, messageID string) (*internal.RequestRow, error) {
	row, err := scanRequest(d.conn.QueryRow(`SELECT `+requestColumns+` FROM requests WHERE provider = ? AND messageId = ?`, provider, messageID).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListRequestsByStatus(status internal.RequestStatus, provider string, limit int) ([]internal.RequestRow, error) {
	rows, err := d.conn.Query(`SELECT `+requestColumns+` FROM requests
WHERE status = ? AND (? = '' OR provider = ?)
ORDER BY receivedAt ASC, id ASC LIMIT ?`, string(status), provider, provider, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RequestRow
	for rows.Next() {
		row, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateRequestStatus(id int, status internal.RequestStatus, note string) error {
	_, err := d.conn.Exec(`UPDATE requests SET status = ?, note = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, string(status), note, id)
	return err
}
