package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inbox-summarizer/internal/mailbox"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		Token:      "test-token",
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
	})
}

func TestListUnreadIDs(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me/messages", r.URL.Path)
		assert.Equal(t, "UNREAD", r.URL.Query().Get("labelIds"))
		assert.Equal(t, "5", r.URL.Query().Get("maxResults"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		fmt.Fprint(w, `{
			"messages": [
				{"id": "m3", "threadId": "t1"},
				{"id": "m2", "threadId": "t1"},
				{"id": "m1", "threadId": "t2"}
			],
			"resultSizeEstimate": 3
		}`)
	})

	ids, err := client.ListUnreadIDs(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"m3", "m2", "m1"}, ids)
}

func TestListUnreadIDsEmptyMailbox(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"resultSizeEstimate": 0}`)
	})

	ids, err := client.ListUnreadIDs(context.Background(), 5)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestGetMessage(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me/messages/m1", r.URL.Path)
		assert.Equal(t, "full", r.URL.Query().Get("format"))

		fmt.Fprintf(w, `{
			"id": "m1",
			"snippet": "Please pay...",
			"payload": {
				"mimeType": "multipart/alternative",
				"headers": [
					{"name": "Subject", "value": "Q3 Invoice"},
					{"name": "From", "value": "billing@acme.test"}
				],
				"body": {"size": 0},
				"parts": [
					{
						"mimeType": "text/plain",
						"body": {"data": %q, "size": 26}
					},
					{
						"mimeType": "text/html",
						"body": {"data": %q, "size": 33}
					}
				]
			}
		}`, b64("Please pay $500 by Friday."), b64("<p>Please pay $500 by Friday.</p>"))
	})

	msg, err := client.GetMessage(context.Background(), "m1")
	require.NoError(t, err)

	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "Please pay...", msg.Snippet)

	subject, ok := msg.HeaderValue("subject")
	assert.True(t, ok)
	assert.Equal(t, "Q3 Invoice", subject)

	require.Len(t, msg.Payload.Parts, 2)
	assert.Equal(t, "text/plain", msg.Payload.Parts[0].MimeType)
	assert.Equal(t, b64("Please pay $500 by Friday."), msg.Payload.Parts[0].Data)
}

func TestAuthErrorSurfaces(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"code": 401, "message": "Invalid Credentials"}}`)
	})

	_, err := client.ListUnreadIDs(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, mailbox.IsAuthError(err))
}

func TestServerErrorSurfaces(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.GetMessage(context.Background(), "m1")
	assert.Error(t, err)
	assert.False(t, mailbox.IsAuthError(err))
}
