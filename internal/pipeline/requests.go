package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"iams2rf/internal"
	"iams2rf/internal/catalog"
	"iams2rf/internal/config"
	"iams2rf/internal/metrics"
	"iams2rf/internal/storage"
)

type RequestService struct {
	db      *storage.DB
	cfg     config.Config
	log     zerolog.Logger
	metrics *metrics.Metrics
	export  *ExportService
}

func NewRequestService(db *storage.DB, cfg config.Config, log zerolog.Logger, m *metrics.Metrics) *RequestService {
	if m == nil {
		m = metrics.New()
	}
	return &RequestService{
		db:      db,
		cfg:     cfg,
		log:     log,
		metrics: m,
		export:  NewExportService(db, cfg, log, m),
	}
}

type RequestResult struct {
	RequestID int
	Status    internal.RequestStatus
	Dir       string
	Rows      int
}

// ProcessPending handles up to limit fetched requests, optionally for one
// provider. A request that cannot be exported is marked failed and the
// batch moves on.
func (s *RequestService) ProcessPending(ctx context.Context, limit int, provider string) (processed, exported int, err error) {
	pending, err := s.db.ListRequestsByStatus(internal.RequestFetched, provider, limit)
	if err != nil {
		return 0, 0, err
	}
	for _, row := range pending {
		if err := ctx.Err(); err != nil {
			return processed, exported, err
		}
		res, err := s.ProcessRequest(ctx, row)
		if err != nil {
			s.metrics.ErrorsTotal.WithLabelValues("request").Inc()
			s.log.Error().Err(err).Int("request", row.ID).Str("messageId", row.MessageID).Msg("request not processed")
			continue
		}
		processed++
		if res.Status == internal.RequestExported {
			exported++
		}
	}
	return processed, exported, nil
}

func (s *RequestService) ProcessRequest(ctx context.Context, row internal.RequestRow) (RequestResult, error) {
	start := time.Now()
	res := RequestResult{RequestID: row.ID}
	log := s.log.With().Int("request", row.ID).Str("messageId", row.MessageID).Logger()

	finish := func(status internal.RequestStatus, note string) (RequestResult, error) {
		res.Status = status
		if err := s.db.UpdateRequestStatus(row.ID, status, note); err != nil {
			return res, err
		}
		if err := s.db.InsertRun(uuid.NewString(), "request:"+row.MessageID,
			map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())},
			map[string]int{"rows": res.Rows}); err != nil {
			log.Warn().Err(err).Msg("run not recorded")
		}
		log.Info().Str("status", string(status)).Str("note", note).Msg("request processed")
		return res, nil
	}

	raw, err := os.ReadFile(row.RawRef)
	if err != nil {
		return finish(internal.RequestFailed, err.Error())
	}
	doc, err := ExtractRequestFromEmailRaw(raw)
	if err != nil {
		return finish(internal.RequestFailed, err.Error())
	}

	block := DetectCodedParameters(doc.Lines)
	if !block.Found {
		return finish(internal.RequestSkipped, block.Reason)
	}

	spec, err := ParseRequest(catalog.Fields(), block.Lines)
	if err != nil {
		s.metrics.ErrorsTotal.WithLabelValues("request").Inc()
		return finish(internal.RequestFailed, err.Error())
	}
	log.Debug().Strs("fields", spec.Fields).Str("where", BuildPredicate(spec.Criteria).String()).Msg("request parsed")

	res.Dir = filepath.Join(s.cfg.OutputDir, "requests", sanitizeMessageID(row.MessageID))
	if err := os.MkdirAll(res.Dir, 0o755); err != nil {
		return finish(internal.RequestFailed, err.Error())
	}
	out, err := s.export.Export(ctx, spec, res.Dir, "")
	if err != nil {
		return finish(internal.RequestFailed, err.Error())
	}
	for _, n := range out.Rows {
		res.Rows += n
	}
	return finish(internal.RequestExported, fmt.Sprintf("matched=%d denied=%d", out.Matched, out.Denied))
}

func sanitizeMessageID(input string) string {
	repl := strings.NewReplacer("<", "", ">", "", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_", "\"", "_")
	out := repl.Replace(strings.TrimSpace(input))
	if len(out) > 120 {
		out = out[:120]
	}
	if out == "" {
		out = "request"
	}
	return out
}
