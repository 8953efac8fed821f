package listener

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"iams2rf/internal/config"
	"iams2rf/internal/connectors"
	"iams2rf/internal/metrics"
	"iams2rf/internal/pipeline"
	"iams2rf/internal/storage"
)

type Service struct {
	db      *storage.DB
	cfg     config.Config
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func NewService(db *storage.DB, cfg config.Config, log zerolog.Logger, m *metrics.Metrics) *Service {
	if m == nil {
		m = metrics.New()
	}
	return &Service{db: db, cfg: cfg, log: log, metrics: m}
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.ListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	for {
		if err := s.RunCycle(ctx); err != nil {
			s.log.Error().Err(err).Msg("listener cycle failed")
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func (s *Service) RunCycle(ctx context.Context) error {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.ListenerProvider))
	conn, err := connectors.New(s.cfg, provider)
	if err != nil {
		return err
	}

	fetched, err := connectors.NewFetchService(s.db, s.cfg.RequestsDir, conn, s.log).
		FetchAndStore(s.cfg.ListenerMailbox, s.cfg.ListenerFetchMax)
	if err != nil {
		return err
	}

	processed, exported, err := pipeline.NewRequestService(s.db, s.cfg, s.log, s.metrics).
		ProcessPending(ctx, s.cfg.ListenerProcessBatch, provider)
	if err != nil {
		return err
	}

	s.log.Info().
		Str("provider", provider).
		Int("fetched", fetched.Fetched).
		Int("stored", fetched.Stored).
		Int("processed", processed).
		Int("exported", exported).
		Msg("listener cycle done")
	return s.metrics.WriteTextfile(s.cfg.MetricsTextfile)
}
