package inbox

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/nhle/inbox-summarizer/internal/mailbox"
	"github.com/nhle/inbox-summarizer/internal/model"
)

// FetchResult is the per-message outcome of a batch fetch. Exactly one
// of Message or Err is meaningful; ID is always set so callers can tell
// which message a failure belongs to.
type FetchResult struct {
	ID      string
	Message model.NormalizedMessage
	Err     error
}

// Fetcher retrieves unread messages from a mailbox backend and
// assembles normalized records. It is stateless apart from its
// collaborators and safe for concurrent use.
type Fetcher struct {
	client mailbox.Client
	logger *log.Logger
}

// NewFetcher creates a Fetcher over the given mailbox client. The
// logger may be nil.
func NewFetcher(client mailbox.Client, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Fetcher{client: client, logger: logger}
}

// FetchUnread lists up to limit unread message IDs and retrieves and
// normalizes each one, preserving the listing order in the result.
//
// A failure to list IDs fails the whole batch. A failure to retrieve an
// individual message does not: its slot carries the error, so a caller
// always sees one result per listed ID and a shortfall is never silent.
func (f *Fetcher) FetchUnread(
	ctx context.Context, limit int,
) ([]FetchResult, error) {
	if limit < 1 {
		return nil, fmt.Errorf("fetch limit must be positive, got %d", limit)
	}

	ids, err := f.client.ListUnreadIDs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing unread messages: %w", err)
	}

	f.logger.Debug("listed unread messages", "count", len(ids))

	results := make([]FetchResult, 0, len(ids))
	for _, id := range ids {
		msg, err := f.client.GetMessage(ctx, id)
		if err != nil {
			f.logger.Debug("message fetch failed", "id", id, "err", err)
			results = append(results, FetchResult{
				ID:  id,
				Err: fmt.Errorf("fetching message %s: %w", id, err),
			})
			continue
		}

		results = append(results, FetchResult{
			ID:      id,
			Message: Normalize(msg),
		})
	}

	return results, nil
}

// Normalize assembles the normalized record for one raw message:
// Subject/From resolved case-insensitively with defaults, the part tree
// collapsed via ExtractBody, and the snippet copied verbatim.
func Normalize(msg *model.Message) model.NormalizedMessage {
	subject, ok := msg.HeaderValue("Subject")
	if !ok || subject == "" {
		subject = model.DefaultSubject
	}

	sender, ok := msg.HeaderValue("From")
	if !ok || sender == "" {
		sender = model.DefaultSender
	}

	return model.NormalizedMessage{
		ID:        msg.ID,
		Subject:   subject,
		Sender:    sender,
		Body:      ExtractBody(&msg.Payload),
		Snippet:   msg.Snippet,
		FetchedAt: time.Now(),
	}
}
