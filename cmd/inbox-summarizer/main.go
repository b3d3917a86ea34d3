package main

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/nhle/inbox-summarizer/internal/app"
	"github.com/nhle/inbox-summarizer/internal/credential"
	"github.com/nhle/inbox-summarizer/internal/mailbox"
	"github.com/nhle/inbox-summarizer/internal/mailbox/gmail"
	"github.com/nhle/inbox-summarizer/internal/mailbox/imap"
	"github.com/nhle/inbox-summarizer/internal/model"
	"github.com/nhle/inbox-summarizer/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "inbox-summarizer: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := model.LoadConfig(model.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, closeLog, err := openLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	dbPath, err := databasePath()
	if err != nil {
		return err
	}
	s, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer s.Close()

	logger.Info("starting", "backend", cfg.Mailbox.Backend, "db", dbPath)

	root := app.New(cfg, s, newMailboxClient, logger)
	p := tea.NewProgram(root, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

// newMailboxClient builds the mailbox backend selected in the config,
// pulling the credential from the system keyring.
func newMailboxClient(cfg *model.AppConfig) (mailbox.Client, error) {
	switch cfg.Mailbox.Backend {
	case model.BackendGmail:
		token, err := credential.Get(credential.KeyGmailToken)
		if err != nil || token == "" {
			return nil, fmt.Errorf("no Gmail token stored: %w", err)
		}
		return gmail.NewClient(gmail.Config{Token: token}), nil

	case model.BackendIMAP:
		if cfg.Mailbox.Host == "" {
			return nil, fmt.Errorf("imap host not configured")
		}
		password, err := credential.Get(credential.KeyIMAPPassword)
		if err != nil || password == "" {
			return nil, fmt.Errorf("no IMAP password stored: %w", err)
		}
		return imap.NewClient(
			cfg.Mailbox.Host,
			cfg.Mailbox.Port,
			cfg.Mailbox.Username,
			password,
			cfg.Mailbox.TLS,
		), nil

	default:
		return nil, fmt.Errorf("unknown mailbox backend %q", cfg.Mailbox.Backend)
	}
}

// openLogger writes structured logs to a file next to the config so
// they never interleave with the terminal UI.
func openLogger() (*log.Logger, func(), error) {
	dir := filepath.Dir(model.DefaultConfigPath())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(
		filepath.Join(dir, "inbox-summarizer.log"),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY,
		0o644,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	logger := log.NewWithOptions(f, log.Options{
		ReportTimestamp: true,
	})
	return logger, func() { f.Close() }, nil
}

// databasePath returns the location of the SQLite database, creating
// the parent directory when needed.
func databasePath() (string, error) {
	dir := filepath.Dir(model.DefaultConfigPath())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating data dir: %w", err)
	}
	return filepath.Join(dir, "inbox.db"), nil
}
