package store

import (
	"context"

	"github.com/nhle/inbox-summarizer/internal/model"
)

// MessageFilter controls filtering, sorting, and pagination for message
// queries.
type MessageFilter struct {
	Query    *string // search subject + sender + body
	SortBy   string  // "fetched_at", "subject", "sender"
	SortDesc bool
	Limit    int
	Offset   int
}

// Store defines the persistence interface for normalized messages and
// their cached analyses.
type Store interface {
	// Messages
	UpsertMessages(ctx context.Context, msgs []model.NormalizedMessage) error
	GetMessages(ctx context.Context, opts MessageFilter) ([]model.NormalizedMessage, error)
	GetMessageByID(ctx context.Context, id string) (*model.NormalizedMessage, error)

	// Analyses
	SaveAnalysis(ctx context.Context, a model.Analysis) error
	GetAnalysisForMessage(ctx context.Context, messageID string) (*model.Analysis, error)

	Close() error
}
