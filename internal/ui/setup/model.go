package setup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/inbox-summarizer/internal/credential"
	"github.com/nhle/inbox-summarizer/internal/keys"
	"github.com/nhle/inbox-summarizer/internal/model"
	"github.com/nhle/inbox-summarizer/internal/theme"
)

// Mode represents the current state of the setup view.
type Mode int

const (
	ModeSelectBackend Mode = iota // Choose gmail or imap
	ModeFormGmail                 // Gmail-specific form
	ModeFormIMAP                  // IMAP-specific form
	ModeSaving                    // Persisting config and credentials
)

// DoneMsg signals the setup view should close. Saved reports whether
// the configuration was written.
type DoneMsg struct {
	Saved bool
}

// savedMsg is sent after the config and credentials are persisted.
type savedMsg struct {
	err error
}

// Model is the Bubble Tea model for the mailbox setup form.
type Model struct {
	mode   Mode
	config *model.AppConfig

	backendSelect *huh.Form
	gmailForm     *huh.Form
	imapForm      *huh.Form

	// Form field values (huh binds to these)
	formBackend  string
	formToken    string
	formHost     string
	formPort     string
	formUsername string
	formPassword string
	formTLS      bool
	formAIURL    string
	formAIModel  string

	statusMsg string

	keys          *keys.KeyMap
	width, height int
}

// New creates a new setup view model seeded from the current config.
func New(cfg *model.AppConfig, k *keys.KeyMap, width, height int) Model {
	m := Model{
		mode:   ModeSelectBackend,
		config: cfg,
		keys:   k,
		width:  width,
		height: height,
	}
	m.seedFromConfig()
	m.backendSelect = m.buildBackendSelectForm()
	return m
}

// seedFromConfig prefills form fields from the existing configuration.
func (m *Model) seedFromConfig() {
	m.formBackend = m.config.Mailbox.Backend
	m.formHost = m.config.Mailbox.Host
	m.formPort = m.config.Mailbox.Port
	m.formUsername = m.config.Mailbox.Username
	m.formTLS = m.config.Mailbox.TLS
	m.formAIURL = m.config.AI.BaseURL
	m.formAIModel = m.config.AI.Model
	if m.formPort == "" {
		m.formPort = "993"
	}
}

// Init starts the backend selection form.
func (m Model) Init() tea.Cmd {
	return m.backendSelect.Init()
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case savedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error saving configuration: %v", msg.err)
			m.mode = ModeSelectBackend
			m.backendSelect = m.buildBackendSelectForm()
			return m, m.backendSelect.Init()
		}
		return m, func() tea.Msg { return DoneMsg{Saved: true} }

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Back) && m.mode == ModeSelectBackend {
			return m, func() tea.Msg { return DoneMsg{} }
		}
	}

	return m.updateActiveForm(msg)
}

// updateActiveForm dispatches messages to the currently active form.
func (m Model) updateActiveForm(msg tea.Msg) (Model, tea.Cmd) {
	switch m.mode {
	case ModeSelectBackend:
		return m.updateBackendSelect(msg)
	case ModeFormGmail:
		return m.updateGmailForm(msg)
	case ModeFormIMAP:
		return m.updateIMAPForm(msg)
	}
	return m, nil
}

// --- Backend Selection ---

func (m Model) buildBackendSelectForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select Mailbox Backend").
				Description("Choose how to connect to your mailbox").
				Options(
					huh.NewOption("Gmail - Gmail REST API with an OAuth token", model.BackendGmail),
					huh.NewOption("IMAP - Any IMAP server", model.BackendIMAP),
				).
				Value(&m.formBackend),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateBackendSelect(msg tea.Msg) (Model, tea.Cmd) {
	if m.backendSelect == nil {
		return m, nil
	}

	mdl, cmd := m.backendSelect.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.backendSelect = f
	}

	if m.backendSelect.State == huh.StateCompleted {
		switch m.formBackend {
		case model.BackendGmail:
			m.mode = ModeFormGmail
			m.gmailForm = m.buildGmailForm()
			return m, m.gmailForm.Init()
		case model.BackendIMAP:
			m.mode = ModeFormIMAP
			m.imapForm = m.buildIMAPForm()
			return m, m.imapForm.Init()
		}
		return m, func() tea.Msg { return DoneMsg{} }
	}
	if m.backendSelect.State == huh.StateAborted {
		return m, func() tea.Msg { return DoneMsg{} }
	}

	return m, cmd
}

// --- Gmail Form ---

func (m *Model) buildGmailForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Account").
				Description("Gmail address this token belongs to").
				Placeholder("user@gmail.com").
				Value(&m.formUsername).
				Validate(validateRequired("Account")),
			huh.NewInput().
				Title("OAuth Token").
				Description("Bearer token with gmail.readonly scope").
				EchoMode(huh.EchoModePassword).
				Value(&m.formToken).
				Validate(validateRequired("Token")),
		),
		m.aiGroup(),
	).WithWidth(m.formWidth())
}

func (m Model) updateGmailForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.gmailForm == nil {
		return m, nil
	}

	mdl, cmd := m.gmailForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.gmailForm = f
	}

	if m.gmailForm.State == huh.StateCompleted {
		m.mode = ModeSaving
		return m, m.save(credential.KeyGmailToken, m.formToken)
	}
	if m.gmailForm.State == huh.StateAborted {
		m.mode = ModeSelectBackend
		m.backendSelect = m.buildBackendSelectForm()
		return m, m.backendSelect.Init()
	}

	return m, cmd
}

// --- IMAP Form ---

func (m *Model) buildIMAPForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP Host").
				Description("IMAP server hostname").
				Placeholder("imap.example.com").
				Value(&m.formHost).
				Validate(validateRequired("IMAP Host")),
			huh.NewInput().
				Title("IMAP Port").
				Description("IMAP server port (e.g., 993)").
				Placeholder("993").
				Value(&m.formPort).
				Validate(validatePort),
			huh.NewInput().
				Title("Username").
				Description("Email account username").
				Placeholder("user@example.com").
				Value(&m.formUsername).
				Validate(validateRequired("Username")),
			huh.NewInput().
				Title("Password").
				Description("Email account password or app password").
				EchoMode(huh.EchoModePassword).
				Value(&m.formPassword).
				Validate(validateRequired("Password")),
			huh.NewConfirm().
				Title("Use TLS").
				Description("Connect over implicit TLS (STARTTLS when off)").
				Affirmative("Yes").
				Negative("No").
				Value(&m.formTLS),
		),
		m.aiGroup(),
	).WithWidth(m.formWidth())
}

func (m Model) updateIMAPForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.imapForm == nil {
		return m, nil
	}

	mdl, cmd := m.imapForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.imapForm = f
	}

	if m.imapForm.State == huh.StateCompleted {
		m.mode = ModeSaving
		return m, m.save(credential.KeyIMAPPassword, m.formPassword)
	}
	if m.imapForm.State == huh.StateAborted {
		m.mode = ModeSelectBackend
		m.backendSelect = m.buildBackendSelectForm()
		return m, m.backendSelect.Init()
	}

	return m, cmd
}

// aiGroup builds the shared analyzer settings group.
func (m *Model) aiGroup() *huh.Group {
	return huh.NewGroup(
		huh.NewInput().
			Title("Ollama URL").
			Description("Base URL of the local Ollama server").
			Placeholder("http://localhost:11434").
			Value(&m.formAIURL),
		huh.NewInput().
			Title("Model").
			Description("Ollama model used for analysis").
			Placeholder("gemma:2b").
			Value(&m.formAIModel),
	)
}

// save persists the credential to the keyring and the rest of the
// settings to the config file.
func (m Model) save(credKey, secret string) tea.Cmd {
	cfg := *m.config
	cfg.Mailbox.Backend = m.formBackend
	cfg.Mailbox.Username = m.formUsername
	cfg.Mailbox.Host = m.formHost
	cfg.Mailbox.Port = m.formPort
	cfg.Mailbox.TLS = m.formTLS
	if m.formAIURL != "" {
		cfg.AI.BaseURL = m.formAIURL
	}
	if m.formAIModel != "" {
		cfg.AI.Model = m.formAIModel
	}

	return func() tea.Msg {
		if err := credential.Set(credKey, secret); err != nil {
			return savedMsg{err: fmt.Errorf("store credential: %w", err)}
		}
		if err := model.SaveConfig(model.DefaultConfigPath(), &cfg); err != nil {
			return savedMsg{err: fmt.Errorf("write config: %w", err)}
		}
		return savedMsg{}
	}
}

// View renders the setup view.
func (m Model) View() string {
	var content string

	switch m.mode {
	case ModeSelectBackend:
		content = m.backendSelect.View()
	case ModeFormGmail:
		content = m.gmailForm.View()
	case ModeFormIMAP:
		content = m.imapForm.View()
	case ModeSaving:
		content = "Saving configuration..."
	}

	if m.statusMsg != "" {
		content = theme.ErrorStyle.Render(m.statusMsg) + "\n\n" + content
	}

	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(content)
}

// SetSize updates the setup view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 8
	if w > 80 {
		w = 80
	}
	if w < 40 {
		w = 40
	}
	return w
}

// --- Validators ---

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validatePort(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("port is required")
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535")
	}
	return nil
}
