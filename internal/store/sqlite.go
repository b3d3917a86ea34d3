package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/inbox-summarizer/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertMessages inserts or replaces a batch of normalized messages.
func (s *SQLiteStore) UpsertMessages(
	ctx context.Context, msgs []model.NormalizedMessage,
) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT OR REPLACE INTO messages (
			id, subject, sender, body, snippet, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing upsert statement: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		_, err = stmt.ExecContext(ctx,
			m.ID, m.Subject, m.Sender, m.Body, m.Snippet,
			m.FetchedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("upserting message %s: %w", m.ID, err)
		}
	}

	return tx.Commit()
}

// GetMessages retrieves messages matching the provided filter options.
func (s *SQLiteStore) GetMessages(
	ctx context.Context,
	opts MessageFilter,
) ([]model.NormalizedMessage, error) {
	var conditions []string
	var args []interface{}

	if opts.Query != nil && *opts.Query != "" {
		conditions = append(conditions,
			"(subject LIKE ? OR sender LIKE ? OR body LIKE ?)")
		q := "%" + *opts.Query + "%"
		args = append(args, q, q, q)
	}

	query := "SELECT id, subject, sender, body, snippet, fetched_at FROM messages"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	// Determine sort column.
	sortBy := "fetched_at"
	if opts.SortBy != "" {
		allowedSorts := map[string]bool{
			"subject":    true,
			"sender":     true,
			"fetched_at": true,
		}
		if allowedSorts[opts.SortBy] {
			sortBy = opts.SortBy
		}
	}

	direction := "ASC"
	if opts.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY %s %s", sortBy, direction)

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	var msgs []model.NormalizedMessage
	if err := s.db.SelectContext(ctx, &msgs, query, args...); err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}

	return msgs, nil
}

// GetMessageByID retrieves a single message by its ID. Returns
// (nil, nil) when the message does not exist.
func (s *SQLiteStore) GetMessageByID(
	ctx context.Context,
	id string,
) (*model.NormalizedMessage, error) {
	var m model.NormalizedMessage
	err := s.db.GetContext(ctx, &m,
		"SELECT id, subject, sender, body, snippet, fetched_at FROM messages WHERE id = ?",
		id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting message %s: %w", id, err)
	}

	return &m, nil
}

// SaveAnalysis inserts or replaces the cached analysis for a message.
// If the analysis has no ID, a new UUID is generated.
func (s *SQLiteStore) SaveAnalysis(
	ctx context.Context,
	a model.Analysis,
) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// One analysis per message: replace by message_id, not by row id.
	_, err = tx.ExecContext(ctx,
		"DELETE FROM analyses WHERE message_id = ?", a.MessageID,
	)
	if err != nil {
		return fmt.Errorf("clearing analysis for message %s: %w", a.MessageID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analyses (
			id, message_id, summary, category, extracted, model, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.MessageID, a.Summary, a.Category, a.Extracted,
		a.Model, a.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving analysis for message %s: %w", a.MessageID, err)
	}

	return tx.Commit()
}

// GetAnalysisForMessage retrieves the cached analysis for a message.
// Returns (nil, nil) when no analysis has been stored.
func (s *SQLiteStore) GetAnalysisForMessage(
	ctx context.Context,
	messageID string,
) (*model.Analysis, error) {
	var a model.Analysis
	err := s.db.GetContext(ctx, &a,
		`SELECT id, message_id, summary, category, extracted, model, created_at
		 FROM analyses WHERE message_id = ?`,
		messageID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting analysis for message %s: %w", messageID, err)
	}

	return &a, nil
}
