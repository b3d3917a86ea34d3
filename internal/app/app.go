package app

import (
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/nhle/inbox-summarizer/internal/analyze"
	"github.com/nhle/inbox-summarizer/internal/inbox"
	"github.com/nhle/inbox-summarizer/internal/keys"
	"github.com/nhle/inbox-summarizer/internal/mailbox"
	"github.com/nhle/inbox-summarizer/internal/model"
	"github.com/nhle/inbox-summarizer/internal/store"
	appsync "github.com/nhle/inbox-summarizer/internal/sync"
	"github.com/nhle/inbox-summarizer/internal/ui"
	"github.com/nhle/inbox-summarizer/internal/ui/detail"
	helpview "github.com/nhle/inbox-summarizer/internal/ui/help"
	"github.com/nhle/inbox-summarizer/internal/ui/inboxlist"
	setupview "github.com/nhle/inbox-summarizer/internal/ui/setup"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewList ViewState = iota
	ViewDetail
	ViewSetup
	ViewHelp
)

// setupRequiredMsg opens the setup form on first run, when no mailbox
// has been configured yet.
type setupRequiredMsg struct{}

// analysisDoneMsg carries the outcome of an analysis run.
type analysisDoneMsg struct {
	message  *model.NormalizedMessage
	analysis *model.Analysis
	err      error
}

// ClientFactory builds a mailbox client from the current configuration.
// It is called again after the setup form saves new settings.
type ClientFactory func(cfg *model.AppConfig) (mailbox.Client, error)

// Model is the root Bubble Tea model that manages view routing,
// layout, and access to the persistence layer.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	config       *model.AppConfig
	store        store.Store
	keys         *keys.KeyMap
	logger       *log.Logger

	newClient  ClientFactory
	configured bool
	poller     *appsync.Poller
	analyzer   *analyze.Analyzer

	inboxList inboxlist.Model
	detail    detail.Model
	helpView  helpview.Model
	setupView setupview.Model

	ready     bool
	statusMsg string
}

// New creates a new root application model. The client factory may
// return an error when the mailbox is not configured yet; the app then
// opens the setup form on first render.
func New(cfg *model.AppConfig, s store.Store, factory ClientFactory, logger *log.Logger) Model {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	k := keys.DefaultKeyMap()

	m := Model{
		currentView: ViewList,
		config:      cfg,
		store:       s,
		keys:        k,
		logger:      logger,
		newClient:   factory,
		poller:      appsync.New(s, 0),
		analyzer: analyze.New(analyze.Config{
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
			Timeout: time.Duration(cfg.AI.TimeoutSec) * time.Second,
		}),
		inboxList: inboxlist.New(s, k, 80, 24),
		detail:    detail.New(k, 80, 24),
		helpView:  helpview.New(k, 80, 24),
		setupView: setupview.New(cfg, k, 80, 24),
	}
	m.rebuildFetcher()
	return m
}

// rebuildFetcher constructs the mailbox client from the current config
// and hands it to the poller. The app stays usable without one; the
// setup form opens on first render instead.
func (m *Model) rebuildFetcher() {
	client, err := m.newClient(m.config)
	if err != nil {
		m.logger.Debug("mailbox not configured", "err", err)
		m.configured = false
		return
	}
	m.configured = true
	m.poller.SetFetcher(inbox.NewFetcher(client, m.logger), m.config.Display.FetchLimit)
}

// Init loads stored messages, starts background polling, and opens the
// setup form when the mailbox has never been configured.
func (m Model) Init() tea.Cmd {
	if !m.configured {
		return tea.Batch(
			m.inboxList.Init(),
			func() tea.Msg { return setupRequiredMsg{} },
		)
	}
	return tea.Batch(m.inboxList.Init(), m.poller.Start())
}

// openSetup returns a command that switches to the setup view.
func (m *Model) openSetup() tea.Cmd {
	m.previousView = m.currentView
	m.currentView = ViewSetup
	m.setupView = setupview.New(m.config, m.keys, m.layout.ContentWidth(), m.layout.ContentHeight())
	return m.setupView.Init()
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.inboxList.SetSize(contentWidth, contentHeight)
		m.detail.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.setupView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case setupRequiredMsg:
		return m, m.openSetup()

	case inboxlist.RefreshRequestedMsg:
		if !m.configured {
			m.statusMsg = "mailbox not configured, press s to set it up"
			return m, nil
		}
		m.statusMsg = ""
		m.poller.Refresh()
		return m, nil

	case appsync.PollResultMsg:
		waitCmd := m.poller.WaitForNextResult()

		if msg.Error != nil {
			if msg.AuthError != nil {
				m.statusMsg = msg.AuthError.Message
			} else {
				m.statusMsg = fmt.Sprintf("fetch failed: %v", msg.Error)
			}
			return m, waitCmd
		}

		failures := make([]inboxlist.FailedItem, 0, len(msg.Failures))
		for _, f := range msg.Failures {
			failures = append(failures, inboxlist.FailedItem{ID: f.ID, Err: f.Err})
		}
		if len(failures) > 0 {
			m.statusMsg = fmt.Sprintf(
				"fetched %d messages, %d failed", msg.Fetched, len(failures),
			)
		} else if msg.Fetched > 0 {
			m.statusMsg = fmt.Sprintf("fetched %d messages", msg.Fetched)
		}
		return m, tea.Batch(m.inboxList.WithFailures(failures), waitCmd)

	case inboxlist.SelectedMessageMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.SetLoading(true)
		return m, m.loadMessageCmd(msg.MessageID)

	case detail.AnalyzeRequestedMsg:
		return m, m.analyzeCmd(msg.MessageID)

	case analysisDoneMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("analysis failed: %v", msg.err)
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(detail.MessageLoadedMsg{
			Message:  msg.message,
			Analysis: msg.analysis,
		})
		return m, tea.Batch(cmd, m.inboxList.LoadMessages())

	case detail.MessageLoadedMsg:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd

	case detail.BackMsg:
		m.currentView = ViewList
		return m, m.inboxList.LoadMessages()

	case setupview.DoneMsg:
		m.currentView = ViewList
		if msg.Saved {
			m.rebuildFetcher()
			m.analyzer = analyze.New(analyze.Config{
				BaseURL: m.config.AI.BaseURL,
				Model:   m.config.AI.Model,
				Timeout: time.Duration(m.config.AI.TimeoutSec) * time.Second,
			})
			m.statusMsg = "configuration saved"
			if m.configured {
				m.poller.Refresh()
				return m, tea.Batch(m.inboxList.LoadMessages(), m.poller.Start())
			}
		}
		return m, m.inboxList.LoadMessages()

	case tea.KeyMsg:
		// Global keys that work regardless of current view
		switch msg.String() {
		case "ctrl+c":
			m.poller.Stop()
			return m, tea.Quit

		case "q":
			if m.currentView == ViewList {
				m.poller.Stop()
				return m, tea.Quit
			}

		case "?":
			if m.currentView == ViewSetup {
				break
			}
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case "s":
			if m.currentView == ViewList {
				return m, m.openSetup()
			}

		case "tab":
			if m.currentView == ViewList {
				return m, m.inboxList.CycleSort()
			}
		}
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewList:
		m.inboxList, cmd = m.inboxList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewSetup:
		m.setupView, cmd = m.setupView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader("Inbox Summarizer", m.headerStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewList:
		return m.inboxList.View()
	case ViewDetail:
		return m.detail.View()
	case ViewSetup:
		return m.setupView.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return ""
	}
}

// headerStatus returns a short string describing the fetch state.
func (m Model) headerStatus() string {
	if !m.configured {
		return "not configured"
	}
	switch m.poller.GetStatus().State {
	case appsync.PollRunning:
		return "fetching..."
	case appsync.PollError:
		return "mailbox unreachable"
	}
	if m.config.Mailbox.Username != "" {
		return m.config.Mailbox.Username
	}
	return "idle"
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.statusMsg != "" && m.currentView == ViewList {
		return m.statusMsg
	}

	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewDetail:
		return "esc back | a analyze | j/k scroll"
	case ViewSetup:
		return "enter next | esc back"
	default:
		return "q quit | ? help | r fetch | / search | tab sort | s settings"
	}
}

// loadMessageCmd loads one message and its cached analysis for the
// detail view.
func (m Model) loadMessageCmd(id string) tea.Cmd {
	s := m.store
	return func() tea.Msg {
		ctx := context.Background()

		msg, err := s.GetMessageByID(ctx, id)
		if err != nil || msg == nil {
			return detail.MessageLoadedMsg{}
		}

		analysis, err := s.GetAnalysisForMessage(ctx, id)
		if err != nil {
			analysis = nil
		}
		return detail.MessageLoadedMsg{Message: msg, Analysis: analysis}
	}
}

// analyzeCmd runs the analyzer on a stored message. A cached analysis
// is returned without calling the model again.
func (m Model) analyzeCmd(id string) tea.Cmd {
	s := m.store
	analyzer := m.analyzer

	return func() tea.Msg {
		ctx := context.Background()

		msg, err := s.GetMessageByID(ctx, id)
		if err != nil {
			return analysisDoneMsg{err: fmt.Errorf("loading message %s: %w", id, err)}
		}
		if msg == nil {
			return analysisDoneMsg{err: fmt.Errorf("message %s not found", id)}
		}

		if cached, err := s.GetAnalysisForMessage(ctx, id); err == nil && cached != nil {
			return analysisDoneMsg{message: msg, analysis: cached}
		}

		analysis, err := analyzer.Analyze(ctx, *msg)
		if err != nil {
			return analysisDoneMsg{message: msg, err: err}
		}

		if err := s.SaveAnalysis(ctx, *analysis); err != nil {
			return analysisDoneMsg{message: msg, analysis: analysis,
				err: fmt.Errorf("caching analysis: %w", err)}
		}
		return analysisDoneMsg{message: msg, analysis: analysis}
	}
}
