package snapshot

import (
	"bufio"
	"io"
	"strings"

	"iams2rf/internal"
)

const (
	maxLineBytes = 64 << 20
	headerTokens = 4
)

type Record struct {
	Text   string
	ID     string
	Header []string
	Line   int
}

func (r Record) Type() internal.RecordType {
	return internal.RecordTypeOf(r.ID)
}

func newRecord(text string, line int) Record {
	header := strings.SplitN(text, ",", headerTokens+1)
	if len(header) > headerTokens {
		header = header[:headerTokens]
	}
	rec := Record{Text: text, Header: header, Line: line}
	if len(header) > 1 {
		rec.ID = strings.TrimSpace(header[1])
	}
	return rec
}

func IsAuthorityHeader(line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return false
	}
	return newRecord(line, 0).Type().IsAuthority()
}

type Option func(*Reader)

func SkipUntil(match func(line string) bool) Option {
	return func(r *Reader) { r.skip = match }
}

// StopAt ends the traversal at the first record for which stop returns
// true. That record is not returned.
func StopAt(stop func(Record) bool) Option {
	return func(r *Reader) { r.stop = stop }
}

// Reader rebuilds logical records from the snapshot's physical lines. A
// trimmed line starting with '{' begins a new record; anything else is
// appended to the current one without a separator.
type Reader struct {
	sc   *bufio.Scanner
	skip func(string) bool
	stop func(Record) bool

	buf     strings.Builder
	start   int
	line    int
	skipped bool

	rec     Record
	err     error
	done    bool
	stopped bool
}

func NewReader(r io.Reader, opts ...Option) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	rd := &Reader{sc: sc}
	for _, opt := range opts {
		opt(rd)
	}
	return rd
}

func (r *Reader) Next() bool {
	if r.done {
		return false
	}
	for r.sc.Scan() {
		r.line++
		raw := r.sc.Text()
		if r.skip != nil && !r.skipped {
			if !r.skip(raw) {
				continue
			}
			r.skipped = true
		}
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "{") && r.buf.Len() > 0 {
			rec := r.flush()
			r.start = r.line
			r.buf.WriteString(line)
			return r.emit(rec)
		}
		if r.buf.Len() == 0 {
			r.start = r.line
		}
		r.buf.WriteString(line)
	}
	r.done = true
	if err := r.sc.Err(); err != nil {
		r.err = err
		return false
	}
	if r.buf.Len() > 0 {
		return r.emit(r.flush())
	}
	return false
}

func (r *Reader) flush() Record {
	rec := newRecord(r.buf.String(), r.start)
	r.buf.Reset()
	return rec
}

func (r *Reader) emit(rec Record) bool {
	if r.stop != nil && r.stop(rec) {
		r.done = true
		r.stopped = true
		return false
	}
	r.rec = rec
	return true
}

func (r *Reader) Record() Record { return r.rec }

func (r *Reader) Err() error { return r.err }

func (r *Reader) Stopped() bool { return r.stopped }

func Each(src Source, fn func(Record) error, opts ...Option) (stopped bool, err error) {
	rc, err := src.Open()
	if err != nil {
		return false, err
	}
	defer rc.Close()

	rd := NewReader(rc, opts...)
	for rd.Next() {
		if err := fn(rd.Record()); err != nil {
			return false, err
		}
	}
	return rd.Stopped(), rd.Err()
}
