package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inbox-summarizer/internal/model"
)

func testMessage() model.NormalizedMessage {
	return model.NormalizedMessage{
		ID:      "m1",
		Subject: "Q3 Invoice",
		Sender:  "billing@acme.test",
		Body:    "Please pay $500 by Friday.",
	}
}

// fakeOllama answers /api/generate with a canned response per prompt
// keyword.
func fakeOllama(t *testing.T) (*Analyzer, *[]string) {
	t.Helper()

	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/generate", r.URL.Path)

			var req struct {
				Model  string `json:"model"`
				Prompt string `json:"prompt"`
				Stream bool   `json:"stream"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.False(t, req.Stream)
			prompts = append(prompts, req.Prompt)

			response := "ok"
			switch {
			case strings.HasPrefix(req.Prompt, "Summarize"):
				response = " Invoice for $500 due Friday.\n"
			case strings.HasPrefix(req.Prompt, "Classify"):
				response = " invoice "
			case strings.HasPrefix(req.Prompt, "From the email"):
				response = `{"deadline": "Friday", "amount": "$500"}`
			}

			fmt.Fprintf(w, `{"model": %q, "response": %q, "done": true}`,
				req.Model, response)
		},
	))
	t.Cleanup(srv.Close)

	return New(Config{BaseURL: srv.URL, Model: "gemma:2b"}), &prompts
}

func TestAnalyze(t *testing.T) {
	analyzer, prompts := fakeOllama(t)

	analysis, err := analyzer.Analyze(context.Background(), testMessage())
	require.NoError(t, err)

	assert.Equal(t, "m1", analysis.MessageID)
	assert.NotEmpty(t, analysis.ID)
	assert.Equal(t, "gemma:2b", analysis.Model)

	// Outputs are trimmed.
	assert.Equal(t, "Invoice for $500 due Friday.", analysis.Summary)
	assert.Equal(t, "invoice", analysis.Category)
	assert.Equal(t, `{"deadline": "Friday", "amount": "$500"}`, analysis.Extracted)

	// Three prompts, each carrying the formatted message text.
	require.Len(t, *prompts, 3)
	for _, p := range *prompts {
		assert.Contains(t, p,
			"Subject: Q3 Invoice\nFrom: billing@acme.test\n\nPlease pay $500 by Friday.")
	}
}

func TestAnalyzeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error": "model not found"}`)
		},
	))
	t.Cleanup(srv.Close)

	analyzer := New(Config{BaseURL: srv.URL})
	_, err := analyzer.Analyze(context.Background(), testMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not found")
}

func TestNewAppliesDefaults(t *testing.T) {
	a := New(Config{})
	assert.Equal(t, defaultModel, a.Model())
	assert.Equal(t, defaultBaseURL, a.baseURL)
}
