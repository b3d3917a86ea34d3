package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/inbox-summarizer/internal/keys"
	"github.com/nhle/inbox-summarizer/internal/model"
	"github.com/nhle/inbox-summarizer/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// MessageLoadedMsg carries the loaded message and, when one exists, its
// cached analysis.
type MessageLoadedMsg struct {
	Message  *model.NormalizedMessage
	Analysis *model.Analysis
}

// AnalyzeRequestedMsg asks the app to run the analyzer on a message.
type AnalyzeRequestedMsg struct {
	MessageID string
}

// Model is the message detail view component.
type Model struct {
	message   *model.NormalizedMessage
	analysis  *model.Analysis
	viewport  viewport.Model
	keys      *keys.KeyMap
	width     int
	height    int
	loading   bool
	analyzing bool
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Init returns the initial command for the detail view.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case MessageLoadedMsg:
		m.message = msg.Message
		m.analysis = msg.Analysis
		m.loading = false
		m.analyzing = false
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg {
				return BackMsg{}
			}

		case key.Matches(msg, m.keys.Analyze):
			if m.message != nil && !m.analyzing {
				m.analyzing = true
				m.viewport.SetContent(m.renderContent())
				id := m.message.ID
				return m, func() tea.Msg {
					return AnalyzeRequestedMsg{MessageID: id}
				}
			}
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	if m.loading {
		loadingStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return loadingStyle.Render("Loading message...")
	}

	if m.message == nil {
		emptyStyle := lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray)
		return emptyStyle.Render("No message selected")
	}

	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.message == nil {
		return ""
	}

	msg := m.message
	var sections []string

	// Subject line
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(msg.Subject))
	sections = append(sections, "")

	// Metadata
	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	sections = append(sections, fmt.Sprintf(
		"%s     %s",
		metaStyle.Render("From:"),
		theme.SenderStyle.Render(msg.Sender),
	))
	if !msg.FetchedAt.IsZero() {
		sections = append(sections, fmt.Sprintf(
			"%s  %s",
			metaStyle.Render("Fetched:"),
			valStyle.Render(msg.FetchedAt.Format("2006-01-02 15:04")),
		))
	}

	// Separator
	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", min(m.width-4, 80)))
	sections = append(sections, "")
	sections = append(sections, separator)
	sections = append(sections, "")

	// Body
	body := msg.Body
	if body == "" {
		body = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render(model.NoBodySentinel)
	}
	sections = append(sections, body)

	// Analysis section
	sections = append(sections, "")
	sections = append(sections, separator)
	sections = append(sections, "")

	switch {
	case m.analyzing:
		sections = append(sections, lipgloss.NewStyle().
			Foreground(theme.ColorYellow).
			Render("Analyzing..."))

	case m.analysis != nil:
		a := m.analysis
		sections = append(sections, lipgloss.JoinHorizontal(
			lipgloss.Top,
			theme.SectionTitleStyle.Render("Analysis"),
			"  ",
			theme.CategoryStyle(a.Category).Render(a.Category),
		))
		sections = append(sections, "")

		sections = append(sections, theme.SectionTitleStyle.Render("Summary"))
		sections = append(sections, a.Summary)
		sections = append(sections, "")

		sections = append(sections, theme.SectionTitleStyle.Render("Key Information"))
		sections = append(sections, a.Extracted)
		sections = append(sections, "")

		sections = append(sections, metaStyle.Render(fmt.Sprintf(
			"model: %s  analyzed: %s",
			a.Model,
			a.CreatedAt.Format("2006-01-02 15:04"),
		)))

	default:
		sections = append(sections, metaStyle.Render(
			"Press a to summarize, classify and extract key information.",
		))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	if m.message != nil {
		m.viewport.SetContent(m.renderContent())
	}
}
