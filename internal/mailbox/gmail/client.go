// Package gmail implements the mailbox client against the Gmail REST
// API (v1), using a stored OAuth bearer token. Message payloads are
// used in the shape the API ships them: a part tree whose leaf bodies
// are URL-safe base64 strings.
package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nhle/inbox-summarizer/internal/mailbox"
	"github.com/nhle/inbox-summarizer/internal/model"
)

const defaultBaseURL = "https://gmail.googleapis.com/gmail/v1"

// Config holds the settings for a Gmail client.
type Config struct {
	// Token is the OAuth bearer token for the account.
	Token string

	// BaseURL overrides the Gmail API endpoint; empty means production.
	BaseURL string

	// HTTPClient overrides the HTTP client; nil means a 30s-timeout
	// default.
	HTTPClient *http.Client
}

// Client talks to the Gmail REST API for a single account.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Gmail mailbox client from the given configuration.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		token:      cfg.Token,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// ListUnreadIDs returns up to limit message IDs carrying the UNREAD
// label, in the API's order (most recent first).
func (c *Client) ListUnreadIDs(
	ctx context.Context, limit int,
) ([]string, error) {
	q := url.Values{}
	q.Set("labelIds", "UNREAD")
	q.Set("maxResults", strconv.Itoa(limit))

	var resp listResponse
	if err := c.get(ctx, "/users/me/messages?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("listing unread messages: %w", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

// GetMessage retrieves a single message in full format and converts its
// payload into the mailbox part tree.
func (c *Client) GetMessage(
	ctx context.Context, id string,
) (*model.Message, error) {
	var resp messageResponse
	path := fmt.Sprintf("/users/me/messages/%s?format=full", url.PathEscape(id))
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("getting message %s: %w", id, err)
	}

	msg := &model.Message{
		ID:      resp.ID,
		Snippet: resp.Snippet,
		Payload: convertPart(resp.Payload),
	}
	for _, h := range resp.Payload.Headers {
		msg.Headers = append(msg.Headers, model.Header{
			Name:  h.Name,
			Value: h.Value,
		})
	}
	return msg, nil
}

// get performs an authenticated GET against the API and decodes the
// JSON response into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.baseURL+path, nil,
	)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling Gmail API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return &mailbox.AuthError{
			Backend: model.BackendGmail,
			Message: fmt.Sprintf(
				"Gmail API rejected the token (%d)", resp.StatusCode,
			),
		}
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf(
			"Gmail API error (%d): %s", resp.StatusCode, string(body),
		)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// convertPart maps an API payload part (and its sub-parts) onto the
// mailbox part tree.
func convertPart(p apiPart) model.ContentPart {
	part := model.ContentPart{
		MimeType: p.MimeType,
		Data:     p.Body.Data,
	}
	for _, sub := range p.Parts {
		part.Parts = append(part.Parts, convertPart(sub))
	}
	return part
}

// --- Gmail API wire types ---

type listResponse struct {
	Messages []struct {
		ID       string `json:"id"`
		ThreadID string `json:"threadId"`
	} `json:"messages"`
	ResultSizeEstimate int `json:"resultSizeEstimate"`
}

type messageResponse struct {
	ID      string  `json:"id"`
	Snippet string  `json:"snippet"`
	Payload apiPart `json:"payload"`
}

type apiPart struct {
	MimeType string `json:"mimeType"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		Data string `json:"data"`
		Size int    `json:"size"`
	} `json:"body"`
	Parts []apiPart `json:"parts"`
}
