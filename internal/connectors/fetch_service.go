package connectors

import (
	"github.com/rs/zerolog"

	"iams2rf/internal/storage"
)

type FetchService struct {
	connector MailConnector
	store     *RequestStore
	log       zerolog.Logger
}

type FetchResult struct {
	Fetched int
	Stored  int
}

func NewFetchService(db *storage.DB, requestsDir string, connector MailConnector, log zerolog.Logger) *FetchService {
	return &FetchService{
		connector: connector,
		store:     NewRequestStore(db, requestsDir),
		log:       log,
	}
}

func (s *FetchService) FetchAndStore(mailbox string, max int) (FetchResult, error) {
	messages, err := s.connector.FetchRequests(mailbox, max)
	if err != nil {
		return FetchResult{}, err
	}

	stored := 0
	for _, msg := range messages {
		row, err := s.store.Store(msg)
		if err != nil {
			return FetchResult{Fetched: len(messages), Stored: stored}, err
		}
		s.log.Debug().Str("provider", row.Provider).Str("messageId", row.MessageID).Str("status", string(row.Status)).Msg("request stored")
		stored++
	}

	return FetchResult{Fetched: len(messages), Stored: stored}, nil
}
