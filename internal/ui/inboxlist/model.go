package inboxlist

import (
	"context"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/inbox-summarizer/internal/keys"
	"github.com/nhle/inbox-summarizer/internal/model"
	"github.com/nhle/inbox-summarizer/internal/store"
	"github.com/nhle/inbox-summarizer/internal/theme"
)

// MessagesLoadedMsg is sent when messages have been loaded from the store.
type MessagesLoadedMsg struct {
	Messages []model.NormalizedMessage
	Analyzed map[string]bool
	Failures []FailedItem
}

// SelectedMessageMsg is sent when a user selects a message to view details.
type SelectedMessageMsg struct {
	MessageID string
}

// RefreshRequestedMsg asks the app to fetch unread mail from the mailbox.
type RefreshRequestedMsg struct{}

// sortModes defines the available sort modes cycled with the messages query.
var sortModes = []string{
	"fetched_at",
	"sender",
	"subject",
}

// Model is the inbox list view component.
type Model struct {
	list        list.Model
	store       store.Store
	keys        *keys.KeyMap
	filter      store.MessageFilter
	failures    []FailedItem
	sortIndex   int
	searchMode  bool
	searchInput textinput.Model
	width       int
	height      int
}

// New creates a new inbox list model.
func New(s store.Store, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-2)
	l.Title = "Inbox"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search messages..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:  l,
		store: s,
		keys:  k,
		filter: store.MessageFilter{
			SortBy:   "fetched_at",
			SortDesc: true,
		},
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// Init returns a command that loads the stored messages.
func (m Model) Init() tea.Cmd {
	return m.LoadMessages()
}

// Update handles messages for the inbox list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case MessagesLoadedMsg:
		m.failures = msg.Failures
		items := make([]list.Item, 0, len(msg.Messages)+len(msg.Failures))
		for _, nm := range msg.Messages {
			items = append(items, MessageItem{
				Message:  nm,
				Analyzed: msg.Analyzed[nm.ID],
			})
		}
		for _, f := range msg.Failures {
			items = append(items, f)
		}
		cmd := m.list.SetItems(items)
		return m, cmd

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	// Delegate to list model for other messages
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		query := m.searchInput.Value()
		if query != "" {
			m.filter.Query = &query
		} else {
			m.filter.Query = nil
		}
		return m, m.LoadMessages()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.filter.Query = nil
		return m, m.LoadMessages()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		item, ok := m.list.SelectedItem().(MessageItem)
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return SelectedMessageMsg{MessageID: item.Message.ID}
		}

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.Refresh):
		return m, func() tea.Msg {
			return RefreshRequestedMsg{}
		}
	}

	// Delegate to the list for navigation keys (up/down/pgup/pgdn)
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// WithFailures records the fetch failures from the latest refresh and
// reloads the list so they show up alongside the stored messages.
func (m *Model) WithFailures(failures []FailedItem) tea.Cmd {
	m.failures = failures
	return m.LoadMessages()
}

// CycleSort advances to the next sort mode and reloads.
func (m *Model) CycleSort() tea.Cmd {
	m.sortIndex = (m.sortIndex + 1) % len(sortModes)
	m.filter.SortBy = sortModes[m.sortIndex]
	return m.LoadMessages()
}

// View renders the inbox list view.
func (m Model) View() string {
	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	return m.list.View()
}

// renderEmptyState shows guidance text when no messages are available.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.filter.Query != nil {
		return style.Render("No matching messages.\nPress / to change the search.")
	}

	return style.Render(
		"No messages yet.\n\n" +
			"Press r to fetch unread mail, or s to configure a mailbox.",
	)
}

// LoadMessages returns a tea.Cmd that queries the store with the
// current filter and looks up which messages already have analyses.
func (m Model) LoadMessages() tea.Cmd {
	filter := m.filter
	s := m.store
	failures := m.failures
	return func() tea.Msg {
		ctx := context.Background()
		msgs, err := s.GetMessages(ctx, filter)
		if err != nil {
			return MessagesLoadedMsg{Failures: failures}
		}

		analyzed := make(map[string]bool, len(msgs))
		for _, nm := range msgs {
			a, err := s.GetAnalysisForMessage(ctx, nm.ID)
			if err == nil && a != nil {
				analyzed[nm.ID] = true
			}
		}
		return MessagesLoadedMsg{Messages: msgs, Analyzed: analyzed, Failures: failures}
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-2)
	m.searchInput.Width = width - 4
}
