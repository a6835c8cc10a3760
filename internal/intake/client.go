package intake

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"
)

// InboundMessage is one mail item pulled from the intake mailbox.
type InboundMessage struct {
	UID       uint32
	MessageID string
	InReplyTo string
	Subject   string
	Origin    string // free-text origin header, e.g. `Jane Doe <jane@example.com>`
	Date      time.Time
	TextBody  string
}

// ThreadID returns the deduplication key for the message: the thread
// root when the message is a reply, its own Message-ID otherwise.
func (m InboundMessage) ThreadID() string {
	if m.InReplyTo != "" {
		return m.InReplyTo
	}
	return m.MessageID
}

// IMAPClient wraps go-imap v2 for polling the intake mailbox.
type IMAPClient struct {
	host     string
	port     string
	username string
	password string
	mailbox  string
	tls      bool
}

// NewIMAPClient creates a new IMAP client configuration.
func NewIMAPClient(host, port, username, password, mailbox string, tls bool) *IMAPClient {
	if mailbox == "" {
		mailbox = "INBOX"
	}
	return &IMAPClient{
		host:     host,
		port:     port,
		username: username,
		password: password,
		mailbox:  mailbox,
		tls:      tls,
	}
}

// connect dials and authenticates, retrying transient dial failures
// with exponential backoff. The caller owns the returned client.
func (c *IMAPClient) connect(ctx context.Context) (*imapclient.Client, error) {
	addr := c.host + ":" + c.port

	var client *imapclient.Client

	dial := func() error {
		var err error
		if c.tls {
			client, err = imapclient.DialTLS(addr, nil)
		} else {
			client, err = imapclient.DialStartTLS(addr, nil)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(), 3,
	), ctx)
	if err := backoff.Retry(dial, policy); err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("authenticating %s: %w", c.username, err)
	}

	return client, nil
}

// FetchUnseen retrieves all unseen messages from the intake mailbox
// with their envelope and plain-text body.
func (c *IMAPClient) FetchUnseen(ctx context.Context) ([]InboundMessage, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(c.mailbox, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", c.mailbox, err)
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}
	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching unseen messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	uidSet := imap.UIDSetNum(uids...)

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	var messages []InboundMessage
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			continue
		}

		im := messageFromBuffer(buf, bodySection)
		messages = append(messages, im)
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("fetching messages: %w", err)
	}

	return messages, nil
}

// MarkSeen flags processed messages so the next poll skips them.
func (c *IMAPClient) MarkSeen(ctx context.Context, uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}

	client, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(c.mailbox, nil).Wait(); err != nil {
		return fmt.Errorf("selecting %s: %w", c.mailbox, err)
	}

	imapUIDs := make([]imap.UID, len(uids))
	for i, uid := range uids {
		imapUIDs[i] = imap.UID(uid)
	}

	storeCmd := client.Store(imap.UIDSetNum(imapUIDs...), &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)

	return storeCmd.Close()
}

// messageFromBuffer extracts an InboundMessage from a fetch buffer.
func messageFromBuffer(
	buf *imapclient.FetchMessageBuffer,
	bodySection *imap.FetchItemBodySection,
) InboundMessage {
	im := InboundMessage{
		UID: uint32(buf.UID),
	}

	if buf.Envelope != nil {
		im.MessageID = buf.Envelope.MessageID
		if len(buf.Envelope.InReplyTo) > 0 {
			im.InReplyTo = buf.Envelope.InReplyTo[0]
		}
		im.Subject = buf.Envelope.Subject
		im.Date = buf.Envelope.Date

		if len(buf.Envelope.From) > 0 {
			from := buf.Envelope.From[0]
			if from.Name != "" {
				im.Origin = fmt.Sprintf("%s <%s>", from.Name, from.Addr())
			} else {
				im.Origin = from.Addr()
			}
		}
	}

	if raw := buf.FindBodySection(bodySection); raw != nil {
		im.TextBody = extractTextBody(raw)
	}

	return im
}

// extractTextBody parses a raw RFC 2822 message with go-message and
// returns its text/plain body, falling back to the raw bytes when the
// MIME structure cannot be parsed.
func extractTextBody(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw)
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		if !strings.HasPrefix(contentType, "text/plain") {
			continue
		}

		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}
		return string(body)
	}

	return ""
}
