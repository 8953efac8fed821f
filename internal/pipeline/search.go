package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"iams2rf/internal"
	"iams2rf/internal/catalog"
	"iams2rf/internal/config"
	"iams2rf/internal/metrics"
	"iams2rf/internal/storage"
)

type ExportService struct {
	db      *storage.DB
	cfg     config.Config
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func NewExportService(db *storage.DB, cfg config.Config, log zerolog.Logger, m *metrics.Metrics) *ExportService {
	if m == nil {
		m = metrics.New()
	}
	return &ExportService{db: db, cfg: cfg, log: log, metrics: m}
}

type ExportResult struct {
	Matched int
	Denied  int
	Rows    map[OutputFile]int
	Paths   []string
}

// ReadDenylist returns the record ids listed in path. A missing file is an
// empty list; lines that are not record ids are ignored.
func ReadDenylist(path string) (map[string]struct{}, error) {
	deny := map[string]struct{}{}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return deny, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		id := strings.TrimSpace(strings.TrimPrefix(sc.Text(), "\uFEFF"))
		if internal.IsRecordID(id) {
			deny[id] = struct{}{}
		}
	}
	return deny, sc.Err()
}

func (s *ExportService) Search(ctx context.Context, sess *storage.Session, c Criteria) (ids []string, denied int, err error) {
	pred := BuildPredicate(c)
	where, args := pred.SQL()
	s.log.Debug().Str("where", pred.String()).Msg("searching records")

	hits, err := sess.SearchIDs(ctx, where, args)
	if err != nil {
		return nil, 0, err
	}

	deny, err := ReadDenylist(s.cfg.DenylistPath(s.db.Path()))
	if err != nil {
		return nil, 0, fmt.Errorf("read denylist: %w", err)
	}
	ids = make([]string, 0, len(hits))
	for _, id := range hits {
		if _, ok := deny[id]; ok {
			denied++
			continue
		}
		ids = append(ids, id)
	}
	return ids, denied, nil
}

func (s *ExportService) Export(ctx context.Context, spec ExportSpec, dir, format string) (ExportResult, error) {
	res := ExportResult{Rows: map[OutputFile]int{}}
	if err := spec.Validate(); err != nil {
		return res, err
	}
	if format == "" {
		format = s.cfg.ExportFormat
	}

	sess, err := s.db.Session(ctx)
	if err != nil {
		return res, err
	}
	defer sess.Close()

	began := time.Now()
	ids, denied, err := s.Search(ctx, sess, spec.Criteria)
	if err != nil {
		return res, err
	}
	res.Matched, res.Denied = len(ids)+denied, denied
	s.metrics.PhaseDuration.WithLabelValues("search").Observe(time.Since(began).Seconds())
	s.log.Info().Int("matched", res.Matched).Int("denied", denied).Msg("search complete")

	if err := sess.SelectIDs(ctx, ids); err != nil {
		return res, fmt.Errorf("select ids: %w", err)
	}

	began = time.Now()
	for _, p := range BuildProjections(catalog.Fields(), spec) {
		n, paths, err := s.writeProjection(ctx, sess, p, dir, format)
		res.Paths = append(res.Paths, paths...)
		if err != nil {
			return res, fmt.Errorf("write %s: %w", p.File, err)
		}
		res.Rows[p.File] = n
		s.metrics.ExportedRows.WithLabelValues(string(p.File)).Add(float64(n))
		s.log.Info().Str("file", p.File.FileName()).Int("rows", n).Msg("file written")
	}
	s.metrics.PhaseDuration.WithLabelValues("export").Observe(time.Since(began).Seconds())
	s.metrics.LastRunUnixTime.SetToCurrentTime()
	return res, nil
}

func (s *ExportService) writeProjection(ctx context.Context, sess *storage.Session, p Projection, dir, format string) (int, []string, error) {
	w, paths, err := OpenWriter(dir, p.File, format)
	if err != nil {
		return 0, nil, err
	}
	if err := w.WriteHeader(p.Header); err != nil {
		_ = w.Close()
		return 0, paths, err
	}
	n, err := sess.Rows(ctx, p.Query, nil, w.WriteRow)
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	return n, paths, err
}
