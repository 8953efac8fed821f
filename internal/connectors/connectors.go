package connectors

import (
	"fmt"
	"strings"

	"iams2rf/internal"
	"iams2rf/internal/config"
	gmailconnector "iams2rf/internal/connectors/gmail"
	imapconnector "iams2rf/internal/connectors/imap"
)

type MailConnector interface {
	FetchRequests(mailbox string, max int) ([]internal.FetchedMailMessage, error)
}

func New(cfg config.Config, provider string) (MailConnector, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gmail":
		return gmailconnector.NewConnector(cfg)
	case "imap":
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}
