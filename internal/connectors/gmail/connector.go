package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"iams2rf/internal"
	"iams2rf/internal/config"
)

type Connector struct {
	service *gmail.Service
	limiter *RateLimiter
}

func NewConnector(cfg config.Config) (*Connector, error) {
	for name, value := range map[string]string{
		"GMAIL_CLIENT_ID":     cfg.GmailClientID,
		"GMAIL_CLIENT_SECRET": cfg.GmailClientSecret,
		"GMAIL_REFRESH_TOKEN": cfg.GmailRefreshToken,
	} {
		if err := cfg.Require(name, value); err != nil {
			return nil, err
		}
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  cfg.GmailRedirectURI,
		Scopes:       []string{gmail.GmailReadonlyScope},
	}

	ctx := context.Background()
	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.GmailRefreshToken})
	svc, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, err
	}
	return &Connector{service: svc, limiter: NewRateLimiter(cfg.GmailRateLimitRPS)}, nil
}

func requestQuery() string {
	return strconv.Quote(internal.CodedParametersStart)
}

func (c *Connector) FetchRequests(label string, max int) ([]internal.FetchedMailMessage, error) {
	c.limiter.WaitTurn()
	listResp, err := c.service.Users.Messages.List("me").
		LabelIds(label).
		Q(requestQuery()).
		MaxResults(int64(max)).
		Do()
	if err != nil {
		return nil, err
	}

	out := make([]internal.FetchedMailMessage, 0, len(listResp.Messages))
	for _, ref := range listResp.Messages {
		if ref.Id == "" {
			continue
		}
		msg, ok, err := c.fetch(ref.Id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (c *Connector) fetch(id string) (internal.FetchedMailMessage, bool, error) {
	c.limiter.WaitTurn()
	rawResp, err := c.service.Users.Messages.Get("me", id).Format("raw").Do()
	if err != nil {
		return internal.FetchedMailMessage{}, false, err
	}
	if rawResp.Raw == "" {
		return internal.FetchedMailMessage{}, false, nil
	}
	c.limiter.WaitTurn()
	metaResp, err := c.service.Users.Messages.Get("me", id).Format("metadata").MetadataHeaders("Subject", "From", "Date", "Message-ID").Do()
	if err != nil {
		return internal.FetchedMailMessage{}, false, err
	}

	raw, err := decodeBase64URL(rawResp.Raw)
	if err != nil {
		return internal.FetchedMailMessage{}, false, err
	}

	headers := map[string]string{}
	if metaResp.Payload != nil {
		for _, h := range metaResp.Payload.Headers {
			headers[strings.ToLower(h.Name)] = h.Value
		}
	}

	received := time.Now().UTC()
	if t, err := parseMailDate(headers["date"]); err == nil {
		received = t.UTC()
	}
	messageID := headers["message-id"]
	if messageID == "" {
		messageID = id
	}

	return internal.FetchedMailMessage{
		Provider:   "gmail",
		MessageID:  messageID,
		Subject:    headers["subject"],
		From:       headers["from"],
		ReceivedAt: received.Format(time.RFC3339),
		Raw:        raw,
	}, true, nil
}

func decodeBase64URL(input string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.URLEncoding.DecodeString(input)
	if err == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("decode gmail raw payload: %w", err)
}

func parseMailDate(value string) (time.Time, error) {
	layouts := []string{time.RFC1123Z, time.RFC1123, time.RFC822Z, time.RFC822, time.RFC850, time.ANSIC}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format %q", value)
}
