// Package contracts/analyzer defines the local-model analysis interface.
// The analyzer is read-only: it never mutates the mailbox or the store.
//
// Provider: Ollama (local HTTP API, /api/generate, stream=false)
// Model: gemma:2b (configurable)
package contracts

// Analyzer defines the interface for message analysis.

// Key operations:
//
// Analyze:
//   Runs three prompts over "Subject: {subject}\nFrom: {sender}\n\n{body}":
//   - Summary: the content in 2 concise lines
//   - Category: exactly one of important, task, invoice, meeting,
//     promotional, personal
//   - Extraction: dates, amounts, and required actions on a single line
//   All three completions must succeed; a partial analysis is never
//   stored. The result is cached per message ID, so re-analyzing a
//   message returns the stored row without calling the model.
//
// Timeouts:
//   One HTTP client timeout covers each completion (default 120s; local
//   models can be slow on first load).
