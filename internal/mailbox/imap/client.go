// Package imap implements the mailbox client over IMAP using go-imap v2
// and go-message. Fetched MIME structures are presented in the same part
// tree shape the Gmail backend produces, so the extraction core sees one
// payload format regardless of backend.
package imap

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	goimap "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/mail"

	"github.com/nhle/inbox-summarizer/internal/mailbox"
	"github.com/nhle/inbox-summarizer/internal/model"
)

const snippetRuneLimit = 100

// Client wraps go-imap v2 for reading unread messages from an IMAP
// server. Each operation opens its own connection and logs out when
// done.
type Client struct {
	host     string
	port     string
	username string
	password string
	tls      bool
}

// NewClient creates a new IMAP mailbox client configuration.
func NewClient(
	host, port, username, password string, tls bool,
) *Client {
	return &Client{
		host:     host,
		port:     port,
		username: username,
		password: password,
		tls:      tls,
	}
}

// connect establishes a connection to the IMAP server, authenticates,
// and selects INBOX. The caller is responsible for calling Logout on
// the returned client.
func (c *Client) connect(
	_ context.Context,
) (*imapclient.Client, error) {
	addr := c.host + ":" + c.port

	var client *imapclient.Client
	var err error

	if c.tls {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(c.username, c.password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &mailbox.AuthError{
			Backend: model.BackendIMAP,
			Message: fmt.Sprintf(
				"authentication failed for %s: %v", c.username, err,
			),
		}
	}

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, fmt.Errorf("selecting INBOX: %w", err)
	}

	return client, nil
}

// ListUnreadIDs searches INBOX for unseen messages and returns up to
// limit UIDs as strings, most recent first.
func (c *Client) ListUnreadIDs(
	ctx context.Context, limit int,
) ([]string, error) {
	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	criteria := &goimap.SearchCriteria{
		NotFlag: []goimap.Flag{goimap.FlagSeen},
	}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching unseen messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	// UIDs come back in ascending order; keep the newest ones and
	// report them newest first.
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	ids := make([]string, 0, len(uids))
	for i := len(uids) - 1; i >= 0; i-- {
		ids = append(ids, strconv.FormatUint(uint64(uids[i]), 10))
	}
	return ids, nil
}

// GetMessage fetches the full message for the given UID and converts
// its MIME structure into the mailbox part tree.
func (c *Client) GetMessage(
	ctx context.Context, id string,
) (*model.Message, error) {
	uid, err := parseUID(id)
	if err != nil {
		return nil, err
	}

	client, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	uidSet := goimap.UIDSetNum(goimap.UID(uid))

	bodySection := &goimap.FetchItemBodySection{
		Peek: true,
	}

	fetchOpts := &goimap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*goimap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)

	fetched := fetchCmd.Next()
	if fetched == nil {
		_ = fetchCmd.Close()
		return nil, fmt.Errorf("message UID %d not found", uid)
	}

	buf, err := fetched.Collect()
	if err != nil {
		_ = fetchCmd.Close()
		return nil, fmt.Errorf("collecting message data: %w", err)
	}

	msg := &model.Message{
		ID:      id,
		Headers: headersFromEnvelope(buf),
	}

	rawBody := buf.FindBodySection(bodySection)
	msg.Payload, msg.Snippet = buildPayload(rawBody)

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("closing fetch: %w", err)
	}

	return msg, nil
}

// headersFromEnvelope extracts Subject/From/Date headers from the
// fetched envelope.
func headersFromEnvelope(
	buf *imapclient.FetchMessageBuffer,
) []model.Header {
	if buf.Envelope == nil {
		return nil
	}

	var headers []model.Header
	if buf.Envelope.Subject != "" {
		headers = append(headers, model.Header{
			Name:  "Subject",
			Value: buf.Envelope.Subject,
		})
	}

	if len(buf.Envelope.From) > 0 {
		from := buf.Envelope.From[0]
		value := from.Addr()
		if from.Name != "" {
			value = fmt.Sprintf("%s <%s>", from.Name, from.Addr())
		}
		headers = append(headers, model.Header{
			Name:  "From",
			Value: value,
		})
	}

	if !buf.Envelope.Date.IsZero() {
		headers = append(headers, model.Header{
			Name:  "Date",
			Value: buf.Envelope.Date.Format("Mon, 02 Jan 2006 15:04:05 -0700"),
		})
	}

	return headers
}

// buildPayload parses a raw RFC 5322 body with go-message and rebuilds
// it as a part tree with base64url leaf data, plus a short snippet from
// the first plain text part. A single-leaf message becomes a direct
// root body; parse failures degrade to treating the raw bytes as plain
// text.
func buildPayload(raw []byte) (model.ContentPart, string) {
	if len(raw) == 0 {
		return model.ContentPart{MimeType: "text/plain"}, ""
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		text := string(raw)
		return leafPart("text/plain", text), makeSnippet(text)
	}
	defer mr.Close()

	var leaves []model.ContentPart
	snippet := ""

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			// Attachments carry no body text.
			continue
		}

		contentType, _, _ := header.ContentType()
		if contentType != "text/plain" && contentType != "text/html" {
			continue
		}

		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		leaves = append(leaves, leafPart(contentType, string(body)))
		if snippet == "" && contentType == "text/plain" {
			snippet = makeSnippet(string(body))
		}
	}

	switch len(leaves) {
	case 0:
		return model.ContentPart{MimeType: "text/plain"}, ""
	case 1:
		return leaves[0], snippet
	default:
		return model.ContentPart{
			MimeType: "multipart/alternative",
			Parts:    leaves,
		}, snippet
	}
}

// leafPart wraps decoded text as a base64url leaf.
func leafPart(mimeType, text string) model.ContentPart {
	return model.ContentPart{
		MimeType: mimeType,
		Data:     base64.URLEncoding.EncodeToString([]byte(text)),
	}
}

// makeSnippet collapses the text to a single line and truncates it.
func makeSnippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) > snippetRuneLimit {
		return string(runes[:snippetRuneLimit]) + "…"
	}
	return text
}

// parseUID converts a string message ID to a uint32 UID.
func parseUID(id string) (uint32, error) {
	uid, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid message UID %q: %w", id, err)
	}
	return uint32(uid), nil
}
