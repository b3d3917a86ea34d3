package sync

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inbox-summarizer/internal/inbox"
	"github.com/nhle/inbox-summarizer/internal/mailbox"
	"github.com/nhle/inbox-summarizer/internal/model"
	"github.com/nhle/inbox-summarizer/internal/store"
	"github.com/nhle/inbox-summarizer/tests/testutil"
)

// fakeMailbox is an in-memory mailbox.Client for poller tests.
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

func plainMessage(id, subject, body string) *model.Message {
	return &model.Message{
		ID: id,
		Headers: []model.Header{
			{Name: "Subject", Value: subject},
			{Name: "From", Value: "alice@example.com"},
		},
		Payload: model.ContentPart{
			MimeType: "text/plain",
			Data:     base64.URLEncoding.EncodeToString([]byte(body)),
		},
		Snippet: body,
	}
}

func newTestPoller(t *testing.T, client mailbox.Client) *Poller {
	t.Helper()

	s := testutil.NewTestStore(t)
	p := New(s, 0)
	p.SetFetcher(inbox.NewFetcher(client, nil), 10)
	return p
}

func TestPollerFetchPersistsMessages(t *testing.T) {
	client := &fakeMailbox{
		ids: []string{"m1", "m2"},
		messages: map[string]*model.Message{
			"m1": plainMessage("m1", "First", "hello"),
			"m2": plainMessage("m2", "Second", "world"),
		},
	}
	p := newTestPoller(t, client)

	p.fetchAndUpsert()

	result := <-p.resultCh
	require.NoError(t, result.Error)
	assert.Equal(t, 2, result.Fetched)
	assert.Empty(t, result.Failures)

	stored, err := p.store.GetMessages(context.Background(), store.MessageFilter{})
	require.NoError(t, err)
	assert.Len(t, stored, 2)

	status := p.GetStatus()
	assert.Equal(t, PollIdle, status.State)
	assert.False(t, status.LastFetch.IsZero())
}

func TestPollerReportsPerMessageFailures(t *testing.T) {
	client := &fakeMailbox{
		ids: []string{"good", "bad"},
		messages: map[string]*model.Message{
			"good": plainMessage("good", "Works", "body"),
		},
		getErr: map[string]error{
			"bad": errors.New("connection reset"),
		},
	}
	p := newTestPoller(t, client)

	p.fetchAndUpsert()

	result := <-p.resultCh
	require.NoError(t, result.Error)
	assert.Equal(t, 1, result.Fetched)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "bad", result.Failures[0].ID)

	stored, err := p.store.GetMessages(context.Background(), store.MessageFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "good", stored[0].ID)
}

func TestPollerListFailureReportsError(t *testing.T) {
	client := &fakeMailbox{listErr: errors.New("server unavailable")}
	p := newTestPoller(t, client)

	p.fetchAndUpsert()

	result := <-p.resultCh
	require.Error(t, result.Error)
	assert.Nil(t, result.AuthError)
	assert.Equal(t, PollError, p.GetStatus().State)
}

func TestPollerAuthErrorIsFlagged(t *testing.T) {
	client := &fakeMailbox{
		listErr: &mailbox.AuthError{Backend: "gmail", Message: "token expired"},
	}
	p := newTestPoller(t, client)

	p.fetchAndUpsert()

	result := <-p.resultCh
	require.Error(t, result.Error)
	require.NotNil(t, result.AuthError)
	assert.Equal(t, "gmail", result.AuthError.Backend)
	assert.Contains(t, result.AuthError.Message, "reconfigure")
}

func TestPollerWithoutFetcherDoesNothing(t *testing.T) {
	s := testutil.NewTestStore(t)
	p := New(s, 0)

	p.fetchAndUpsert()

	select {
	case msg := <-p.resultCh:
		t.Fatalf("unexpected result: %+v", msg)
	default:
	}
}
