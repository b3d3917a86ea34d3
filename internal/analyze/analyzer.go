// Package analyze runs the language-model analysis over normalized
// messages: a short summary, a single category label, and extracted key
// facts per message, produced by three independent prompts against a
// local Ollama server.
package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/inbox-summarizer/internal/model"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "gemma:2b"
	defaultTimeout = 120 * time.Second
)

// Prompt templates; %s is replaced with the formatted message text.
const (
	summaryPrompt = "Summarize this email in 2 short lines:\n\n%s"

	classifyPrompt = "Classify this email into one single category:\n" +
		"[important, task, invoice, meeting, promotional, personal]\n\n" +
		"Email: %s\nCategory:"

	extractPrompt = "From the email below, extract:\n" +
		"1) date/deadline (if any)\n" +
		"2) amount (if any)\n" +
		"3) main action item (one short sentence)\n\n" +
		"Email: %s\n\n" +
		"Return as a short JSON-like answer (single line)."
)

// Config holds the analyzer settings: which server and model to use and
// how long a single completion may take. It is fixed at construction;
// the Analyzer carries no other state.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Analyzer produces per-message analyses by calling the Ollama
// completion API. Safe for concurrent use.
type Analyzer struct {
	baseURL string
	model   string
	client  *http.Client
}

// New creates an Analyzer with the given configuration, applying
// defaults for unset fields.
func New(cfg Config) *Analyzer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Analyzer{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Model returns the configured model name.
func (a *Analyzer) Model() string {
	return a.model
}

// Analyze runs the three prompts over one normalized message and
// returns the combined result. Any failing completion fails the whole
// analysis; partial analyses are not produced.
func (a *Analyzer) Analyze(
	ctx context.Context, msg model.NormalizedMessage,
) (*model.Analysis, error) {
	text := msg.AnalysisInput()

	summary, err := a.complete(ctx, fmt.Sprintf(summaryPrompt, text))
	if err != nil {
		return nil, fmt.Errorf("summarizing message %s: %w", msg.ID, err)
	}

	category, err := a.complete(ctx, fmt.Sprintf(classifyPrompt, text))
	if err != nil {
		return nil, fmt.Errorf("classifying message %s: %w", msg.ID, err)
	}

	extracted, err := a.complete(ctx, fmt.Sprintf(extractPrompt, text))
	if err != nil {
		return nil, fmt.Errorf("extracting facts from message %s: %w", msg.ID, err)
	}

	return &model.Analysis{
		ID:        uuid.NewString(),
		MessageID: msg.ID,
		Summary:   strings.TrimSpace(summary),
		Category:  strings.TrimSpace(category),
		Extracted: strings.TrimSpace(extracted),
		Model:     a.model,
		CreatedAt: time.Now(),
	}, nil
}

// complete performs one non-streaming completion request.
func (a *Analyzer) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Model:  a.model,
		Prompt: prompt,
		Stream: false,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost,
		a.baseURL+"/api/generate",
		bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling model server: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return "", fmt.Errorf(
				"model server error (%d): %s", resp.StatusCode, apiErr.Error,
			)
		}
		return "", fmt.Errorf(
			"model server error (%d): %s", resp.StatusCode, string(respBody),
		)
	}

	var result generateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return result.Response, nil
}

// --- Ollama API types ---

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type errorResponse struct {
	Error string `json:"error"`
}
