package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"iams2rf/internal"
	"iams2rf/internal/catalog"
	"iams2rf/internal/config"
	"iams2rf/internal/metrics"
	"iams2rf/internal/snapshot"
	"iams2rf/internal/storage"
)

const (
	MetaSnapshot    = "snapshot"
	MetaConvertedAt = "convertedAt"
	MetaLastTraceID = "lastTraceId"
)

type ConversionService struct {
	db      *storage.DB
	cfg     config.Config
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func NewConversionService(db *storage.DB, cfg config.Config, log zerolog.Logger, m *metrics.Metrics) *ConversionService {
	if m == nil {
		m = metrics.New()
	}
	return &ConversionService{db: db, cfg: cfg, log: log, metrics: m}
}

type ConvertOptions struct {
	SourceName string
	DumpDir    string
}

type ConversionResult struct {
	TraceID     string
	Authorities int
	Records     int
	Skipped     int
	Problems    map[internal.ErrorCode]int
	Stats       storage.WriteStats
	Dumps       map[string]int
}

func (s *ConversionService) Convert(ctx context.Context, src snapshot.Source, opts ConvertOptions) (ConversionResult, error) {
	start := time.Now()
	res := ConversionResult{TraceID: uuid.NewString()}
	log := s.log.With().Str("trace", res.TraceID).Logger()
	timings := map[string]float64{}
	phase := func(name string, began time.Time) {
		d := time.Since(began)
		timings[name+"Ms"] = float64(d.Milliseconds())
		s.metrics.PhaseDuration.WithLabelValues(name).Observe(d.Seconds())
	}

	log.Info().Str("source", opts.SourceName).Msg("building authority index")
	began := time.Now()
	idx, err := catalog.BuildIndex(src, log)
	if err != nil {
		return res, fmt.Errorf("authority pass: %w", err)
	}
	phase("authorities", began)
	res.Authorities = idx.Len()
	s.metrics.Authorities.Set(float64(idx.Len()))
	for _, kind := range []internal.RecordType{internal.TypeCorporation, internal.TypeFamily, internal.TypePerson, internal.TypePlace, internal.TypeSubject} {
		log.Debug().Str("kind", string(kind)).Int("count", idx.CountByKind(kind)).Msg("authorities indexed")
	}

	cat := catalog.Fields()
	codes := cat.Codes()
	if err := s.db.ResetTables(codes); err != nil {
		return res, fmt.Errorf("reset tables: %w", err)
	}
	w, err := s.db.NewWriter(codes, s.cfg.CommitEvery)
	if err != nil {
		return res, fmt.Errorf("open writer: %w", err)
	}

	log.Info().Int("authorities", res.Authorities).Msg("converting descriptive records")
	began = time.Now()
	norm := NewNormalizer(cat, idx, log, s.metrics)
	_, err = snapshot.Each(src, func(rec snapshot.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !internal.IsRecordID(rec.ID) {
			res.Skipped++
			s.metrics.RecordsTotal.WithLabelValues("descriptive", "skipped").Inc()
			log.Debug().Int("line", rec.Line).Str("record", rec.ID).Msg("skipping text without a record id")
			return nil
		}

		rowErrs, err := w.Write(norm.Normalize(rec))
		for _, e := range rowErrs {
			var ie *storage.InsertError
			if errors.As(e, &ie) {
				s.metrics.ErrorsTotal.WithLabelValues(string(ie.Code)).Inc()
				log.Warn().Str("code", string(ie.Code)).Str("record", ie.RecordID).Err(ie.Err).Msg("row not stored")
			}
		}
		if err != nil {
			return err
		}
		res.Records++
		s.metrics.RecordsTotal.WithLabelValues("descriptive", "stored").Inc()
		if res.Records%10000 == 0 {
			log.Info().Int("records", res.Records).Msg("progress")
		}
		return nil
	}, snapshot.StopAt(func(r snapshot.Record) bool { return r.Type().IsAuthority() }))
	if cerr := w.Close(); err == nil && cerr != nil {
		err = cerr
	}
	res.Stats = w.Stats
	res.Problems = norm.Problems
	if err != nil {
		return res, fmt.Errorf("descriptive pass: %w", err)
	}
	phase("records", began)

	for table, n := range map[string]int{
		storage.TableRecords:  w.Stats.Records,
		storage.TableNames:    w.Stats.Names,
		storage.TableSubjects: w.Stats.Subjects,
		storage.TableTitles:   w.Stats.Titles,
	} {
		s.metrics.RowsTotal.WithLabelValues(table).Add(float64(n))
	}

	began = time.Now()
	if err := s.db.BuildIndexes(); err != nil {
		return res, fmt.Errorf("build indexes: %w", err)
	}
	phase("indexes", began)

	if opts.DumpDir != "" {
		began = time.Now()
		res.Dumps, err = s.db.DumpTables(ctx, opts.DumpDir)
		if err != nil {
			return res, fmt.Errorf("dump tables: %w", err)
		}
		phase("dump", began)
	}

	timings["totalMs"] = float64(time.Since(start).Milliseconds())
	counts := map[string]int{
		"authorities": res.Authorities,
		"records":     w.Stats.Records,
		"names":       w.Stats.Names,
		"subjects":    w.Stats.Subjects,
		"titles":      w.Stats.Titles,
		"failedRows":  w.Stats.Failed,
		"skipped":     res.Skipped,
	}
	for code, n := range res.Problems {
		counts[string(code)] = n
	}
	if err := s.db.InsertRun(res.TraceID, opts.SourceName, timings, counts); err != nil {
		return res, err
	}
	for key, value := range map[string]string{
		MetaSnapshot:    opts.SourceName,
		MetaConvertedAt: strconv.FormatInt(time.Now().Unix(), 10),
		MetaLastTraceID: res.TraceID,
	} {
		if err := s.db.SetMetadata(key, value); err != nil {
			return res, err
		}
	}
	s.metrics.LastRunUnixTime.SetToCurrentTime()

	log.Info().
		Int("records", w.Stats.Records).
		Int("names", w.Stats.Names).
		Int("subjects", w.Stats.Subjects).
		Int("titles", w.Stats.Titles).
		Int("failedRows", w.Stats.Failed).
		Dur("took", time.Since(start)).
		Msg("conversion complete")
	return res, nil
}
