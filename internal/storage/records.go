package storage

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"iams2rf/internal"
)

const (
	TableRecords  = "records"
	TableNames    = "names"
	TableSubjects = "subjects"
	TableTitles   = "titles"
)

var Tables = []string{TableRecords, TableNames, TableSubjects, TableTitles}

var integerColumns = map[string]bool{"S_DATE1": true, "S_DATE2": true}

var reColumn = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const (
	namesDDL    = `CREATE TABLE names (id INTEGER PRIMARY KEY, RecordId NCHAR(13), Name NTEXT, NameDates NTEXT, NameType NTEXT, NameRole NTEXT, NameISNI NTEXT, NameVIAF NTEXT);`
	subjectsDDL = `CREATE TABLE subjects (id INTEGER PRIMARY KEY, RecordId NCHAR(13), Topic NTEXT, TopicType NTEXT);`
	titlesDDL   = `CREATE TABLE titles (id INTEGER PRIMARY KEY, RecordId NCHAR(13), Title NTEXT);`
)

func recordsDDL(codes []string) (string, error) {
	cols := make([]string, 0, len(codes))
	for _, code := range codes {
		if !reColumn.MatchString(code) {
			return "", fmt.Errorf("invalid column name %q", code)
		}
		typ := "NTEXT"
		if integerColumns[code] {
			typ = "INTEGER"
		}
		cols = append(cols, code+" "+typ)
	}
	return fmt.Sprintf("CREATE TABLE records (id INTEGER PRIMARY KEY, RecordId NCHAR(13), %s);", strings.Join(cols, ", ")), nil
}

func (d *DB) ResetTables(codes []string) error {
	ddl, err := recordsDDL(codes)
	if err != nil {
		return err
	}
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, t := range Tables {
		if _, err := tx.Exec(`DROP TABLE IF EXISTS ` + t); err != nil {
			return fmt.Errorf("drop %s: %w", t, err)
		}
	}
	for _, stmt := range []string{ddl, namesDDL, subjectsDDL, titlesDDL} {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) BuildIndexes() error {
	for _, t := range Tables {
		name := "IDX_" + t
		if _, err := d.conn.Exec(`DROP INDEX IF EXISTS ` + name); err != nil {
			return err
		}
		if _, err := d.conn.Exec(fmt.Sprintf(`CREATE INDEX %s ON %s (RecordId ASC)`, name, t)); err != nil {
			return fmt.Errorf("index %s: %w", t, err)
		}
	}
	return nil
}

func (d *DB) CountRows(table string) (int, error) {
	if !reColumn.MatchString(table) {
		return 0, fmt.Errorf("invalid table name %q", table)
	}
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n)
	return n, err
}

type InsertError struct {
	Code     internal.ErrorCode
	RecordID string
	Err      error
}

func (e *InsertError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.RecordID, e.Err)
}

func (e *InsertError) Unwrap() error { return e.Err }

type WriteStats struct {
	Records  int
	Names    int
	Subjects int
	Titles   int
	Failed   int
	Commits  int
}

type Writer struct {
	db    *DB
	codes []string
	every int

	tx       *sql.Tx
	records  *sql.Stmt
	names    *sql.Stmt
	subjects *sql.Stmt
	titles   *sql.Stmt
	pending  int

	Stats WriteStats
}

func (d *DB) NewWriter(codes []string, commitEvery int) (*Writer, error) {
	if commitEvery <= 0 {
		commitEvery = 1
	}
	w := &Writer{db: d, codes: codes, every: commitEvery}
	if err := w.begin(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) begin() error {
	tx, err := w.db.conn.Begin()
	if err != nil {
		return err
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(w.codes)), ", ")
	prepare := func(q string) *sql.Stmt {
		if err != nil {
			return nil
		}
		var stmt *sql.Stmt
		stmt, err = tx.Prepare(q)
		return stmt
	}
	w.records = prepare(fmt.Sprintf(`INSERT INTO records (id, RecordId, %s) VALUES (NULL, ?, %s)`, strings.Join(w.codes, ", "), marks))
	w.names = prepare(`INSERT INTO names (id, RecordId, Name, NameDates, NameType, NameRole, NameISNI, NameVIAF) VALUES (NULL, ?, ?, ?, ?, ?, ?, ?)`)
	w.subjects = prepare(`INSERT INTO subjects (id, RecordId, Topic, TopicType) VALUES (NULL, ?, ?, ?)`)
	w.titles = prepare(`INSERT INTO titles (id, RecordId, Title) VALUES (NULL, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	w.tx = tx
	return nil
}

func (w *Writer) commit() error {
	for _, s := range []*sql.Stmt{w.records, w.names, w.subjects, w.titles} {
		if s != nil {
			_ = s.Close()
		}
	}
	if err := w.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	w.tx = nil
	w.pending = 0
	w.Stats.Commits++
	return nil
}

func (w *Writer) recordArgs(desc *internal.Description) []any {
	args := make([]any, 0, len(w.codes)+1)
	args = append(args, desc.ID)
	for _, code := range w.codes {
		v := desc.Values[code].Join()
		if integerColumns[code] && v == "" {
			args = append(args, nil)
			continue
		}
		args = append(args, v)
	}
	return args
}

// Write inserts one description with its names, subjects and titles. Row
// failures come back as InsertErrors; err is only set when the batch
// itself can no longer continue.
func (w *Writer) Write(desc *internal.Description) (rowErrs []error, err error) {
	fail := func(code internal.ErrorCode, e error) {
		w.Stats.Failed++
		rowErrs = append(rowErrs, &InsertError{Code: code, RecordID: desc.ID, Err: e})
	}

	if _, e := w.records.Exec(w.recordArgs(desc)...); e != nil {
		fail(internal.CodeInsertRecord, e)
	} else {
		w.Stats.Records++
	}

	for _, n := range desc.SortedNames() {
		a := n.Authority
		if _, e := w.names.Exec(desc.ID, a.Name, a.Dates, a.Type, n.Role, a.ISNI, a.VIAF); e != nil {
			fail(internal.CodeInsertName, e)
			continue
		}
		w.Stats.Names++
	}

	for _, s := range desc.SortedSubjects() {
		if _, e := w.subjects.Exec(desc.ID, s.String(), s.Type); e != nil {
			fail(internal.CodeInsertSubject, e)
			continue
		}
		w.Stats.Subjects++
	}

	for _, t := range desc.Titles.Sorted() {
		if _, e := w.titles.Exec(desc.ID, t); e != nil {
			fail(internal.CodeInsertTitle, e)
			continue
		}
		w.Stats.Titles++
	}

	w.pending++
	if w.pending >= w.every {
		if err := w.commit(); err != nil {
			return rowErrs, err
		}
		if err := w.begin(); err != nil {
			return rowErrs, err
		}
	}
	return rowErrs, nil
}

func (w *Writer) Close() error {
	if w.tx == nil {
		return nil
	}
	return w.commit()
}
