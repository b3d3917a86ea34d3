package inbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inbox-summarizer/internal/model"
)

// fakeMailbox is an in-memory mailbox.Client for fetcher tests.
type fakeMailbox struct {
	ids      []string
	messages map[string]*model.Message
	listErr  error
	getErr   map[string]error
}

func (f *fakeMailbox) ListUnreadIDs(_ context.Context, limit int) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit < len(f.ids) {
		return f.ids[:limit], nil
	}
	return f.ids, nil
}

func (f *fakeMailbox) GetMessage(_ context.Context, id string) (*model.Message, error) {
	if err := f.getErr[id]; err != nil {
		return nil, err
	}
	msg, ok := f.messages[id]
	if !ok {
		return nil, errors.New("no such message")
	}
	return msg, nil
}

func plainMessage(id, subject, from, body, snippet string) *model.Message {
	return &model.Message{
		ID: id,
		Headers: []model.Header{
			{Name: "Subject", Value: subject},
			{Name: "From", Value: from},
		},
		Payload: model.ContentPart{
			MimeType: "text/plain",
			Data:     encode(body),
		},
		Snippet: snippet,
	}
}

func TestFetchUnreadEndToEnd(t *testing.T) {
	mb := &fakeMailbox{
		ids: []string{"m1"},
		messages: map[string]*model.Message{
			"m1": plainMessage(
				"m1", "Q3 Invoice", "billing@acme.test",
				"Please pay $500 by Friday.", "Please pay $500...",
			),
		},
	}

	results, err := NewFetcher(mb, nil).FetchUnread(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.NoError(t, results[0].Err)
	msg := results[0].Message
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "Q3 Invoice", msg.Subject)
	assert.Equal(t, "billing@acme.test", msg.Sender)
	assert.Equal(t, "Please pay $500 by Friday.", msg.Body)
	assert.Equal(t, "Please pay $500...", msg.Snippet)
	assert.False(t, msg.FetchedAt.IsZero())
}

func TestFetchUnreadMissingHeaders(t *testing.T) {
	mb := &fakeMailbox{
		ids: []string{"m1"},
		messages: map[string]*model.Message{
			"m1": {
				ID:      "m1",
				Payload: model.ContentPart{MimeType: "text/plain", Data: encode("hi")},
			},
		},
	}

	results, err := NewFetcher(mb, nil).FetchUnread(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, model.DefaultSubject, results[0].Message.Subject)
	assert.Equal(t, model.DefaultSender, results[0].Message.Sender)
}

func TestFetchUnreadHeaderCaseInsensitive(t *testing.T) {
	msg := plainMessage("m1", "", "", "body", "")
	msg.Headers = []model.Header{
		{Name: "subject", Value: "lower case"},
		{Name: "FROM", Value: "shout@example.test"},
	}
	mb := &fakeMailbox{
		ids:      []string{"m1"},
		messages: map[string]*model.Message{"m1": msg},
	}

	results, err := NewFetcher(mb, nil).FetchUnread(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, "lower case", results[0].Message.Subject)
	assert.Equal(t, "shout@example.test", results[0].Message.Sender)
}

func TestFetchUnreadFewerThanLimit(t *testing.T) {
	mb := &fakeMailbox{
		ids: []string{"a", "b", "c"},
		messages: map[string]*model.Message{
			"a": plainMessage("a", "s1", "f1", "b1", ""),
			"b": plainMessage("b", "s2", "f2", "b2", ""),
			"c": plainMessage("c", "s3", "f3", "b3", ""),
		},
	}

	results, err := NewFetcher(mb, nil).FetchUnread(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Listing order is preserved.
	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, want, results[i].ID)
	}
}

func TestFetchUnreadListFailureAbortsBatch(t *testing.T) {
	mb := &fakeMailbox{listErr: errors.New("imap: connection refused")}

	results, err := NewFetcher(mb, nil).FetchUnread(context.Background(), 5)
	assert.Error(t, err)
	assert.Nil(t, results)
}

func TestFetchUnreadPerMessageFailureIsIsolated(t *testing.T) {
	mb := &fakeMailbox{
		ids: []string{"ok1", "boom", "ok2"},
		messages: map[string]*model.Message{
			"ok1": plainMessage("ok1", "s", "f", "b", ""),
			"ok2": plainMessage("ok2", "s", "f", "b", ""),
		},
		getErr: map[string]error{"boom": errors.New("rate limited")},
	}

	results, err := NewFetcher(mb, nil).FetchUnread(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.Equal(t, "boom", results[1].ID)
	assert.NoError(t, results[2].Err)
}

func TestFetchUnreadRejectsNonPositiveLimit(t *testing.T) {
	mb := &fakeMailbox{}

	_, err := NewFetcher(mb, nil).FetchUnread(context.Background(), 0)
	assert.Error(t, err)
}
