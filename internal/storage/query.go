package storage

import (
	"context"
	"database/sql"
	"fmt"
)

const SelectedIDsTable = "selected_ids"

// Session pins one connection so temporary tables stay visible between
// statements.
type Session struct {
	conn *sql.Conn
}

func (d *DB) Session(ctx context.Context) (*Session, error) {
	conn, err := d.conn.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &Session{conn: conn}, nil
}

func (s *Session) Close() error {
	return s.conn.Close()
}

func (s *Session) SearchIDs(ctx context.Context, where string, args []any) ([]string, error) {
	q := `SELECT RecordId FROM records`
	if where != "" {
		q += ` WHERE ` + where
	}
	q += ` ORDER BY RecordId ASC`

	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id sql.NullString
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id.String)
	}
	return out, rows.Err()
}

func (s *Session) SelectIDs(ctx context.Context, ids []string) error {
	if _, err := s.conn.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS `+SelectedIDsTable+` (RecordId NCHAR(13) PRIMARY KEY)`); err != nil {
		return err
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+SelectedIDsTable); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO `+SelectedIDsTable+` (RecordId) VALUES (?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Session) Rows(ctx context.Context, query string, args []any, fn func(row []string) error) (int, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, err
	}
	vals := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	n := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return n, err
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			row[i] = v.String
		}
		if err := fn(row); err != nil {
			return n, err
		}
		n++
	}
	return n, rows.Err()
}
