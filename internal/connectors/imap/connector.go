package imap

import (
	"crypto/tls"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	imapclient "github.com/emersion/go-imap/client"

	"iams2rf/internal"
	"iams2rf/internal/config"
)

type Connector struct {
	host     string
	port     int
	secure   bool
	user     string
	password string
	markSeen bool
}

func NewConnector(cfg config.Config) (*Connector, error) {
	for name, value := range map[string]string{
		"IMAP_HOST":     cfg.IMAPHost,
		"IMAP_USER":     cfg.IMAPUser,
		"IMAP_PASSWORD": cfg.IMAPPassword,
	} {
		if err := cfg.Require(name, value); err != nil {
			return nil, err
		}
	}

	return &Connector{
		host:     cfg.IMAPHost,
		port:     cfg.IMAPPort,
		secure:   cfg.IMAPSecure,
		user:     cfg.IMAPUser,
		password: cfg.IMAPPassword,
		markSeen: cfg.IMAPMarkSeen,
	}, nil
}

func (c *Connector) dial() (*imapclient.Client, error) {
	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	if c.secure {
		return imapclient.DialTLS(addr, &tls.Config{ServerName: c.host})
	}
	return imapclient.Dial(addr)
}

func (c *Connector) FetchRequests(mailbox string, max int) ([]internal.FetchedMailMessage, error) {
	client, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer client.Logout()

	if err := client.Login(c.user, c.password); err != nil {
		return nil, err
	}
	if _, err := client.Select(mailbox, false); err != nil {
		return nil, err
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Body = []string{internal.CodedParametersStart}
	ids, err := client.Search(criteria)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > max {
		ids = ids[len(ids)-max:]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, imap.FetchUid, section.FetchItem()}
	messages := make(chan *imap.Message, len(ids))
	fetchDone := make(chan error, 1)
	go func() { fetchDone <- client.Fetch(seqset, items, messages) }()

	out := make([]internal.FetchedMailMessage, 0, len(ids))
	var seen []uint32
	for msg := range messages {
		if msg == nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}
		out = append(out, toFetched(msg, raw))
		seen = append(seen, msg.SeqNum)
	}
	if err := <-fetchDone; err != nil {
		return nil, err
	}

	if c.markSeen && len(seen) > 0 {
		set := new(imap.SeqSet)
		set.AddNum(seen...)
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := client.Store(set, item, []interface{}{imap.SeenFlag}, nil); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func toFetched(msg *imap.Message, raw []byte) internal.FetchedMailMessage {
	out := internal.FetchedMailMessage{Provider: "imap", Raw: raw}
	if msg.Envelope != nil {
		out.MessageID = msg.Envelope.MessageId
		out.Subject = msg.Envelope.Subject
		out.From = formatAddresses(msg.Envelope.From)
	}
	if out.MessageID == "" {
		out.MessageID = fmt.Sprintf("imap-%d", msg.Uid)
	}
	out.ReceivedAt = time.Now().UTC().Format(time.RFC3339)
	if !msg.InternalDate.IsZero() {
		out.ReceivedAt = msg.InternalDate.UTC().Format(time.RFC3339)
	}
	return out
}

func formatAddresses(addrs []*imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a == nil {
			continue
		}
		email := strings.Trim(a.MailboxName+"@"+a.HostName, "@")
		if a.PersonalName != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.PersonalName, email))
		} else {
			parts = append(parts, email)
		}
	}
	return strings.Join(parts, ", ")
}
