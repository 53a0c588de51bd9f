package tui

import (
	"fmt"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/commander/internal/config"
)

// SettingsPaneModel manages the settings form overlay.
type SettingsPaneModel struct {
	form        *huh.Form
	config      *config.Config
	savePath    string // "global" or "project"
	globalPath  string
	projectPath string
	width       int
	height      int
	visible     bool
	saved       bool
	err         error

	saveTarget      string
	queueCapacity   string
	queueAutoExit   bool
	auditEnabled    bool
	auditDBPath     string
	retryInitialMs  string
	retryMaxElapsed string
}

// NewSettingsPaneModel creates a new settings pane.
func NewSettingsPaneModel(cfg *config.Config, globalPath, projectPath string) SettingsPaneModel {
	m := SettingsPaneModel{
		config:      cfg,
		globalPath:  globalPath,
		projectPath: projectPath,

		saveTarget:      "global",
		queueCapacity:   strconv.Itoa(cfg.Queue.Capacity),
		queueAutoExit:   cfg.Queue.AutoExit,
		auditEnabled:    cfg.Audit.Enabled,
		auditDBPath:     cfg.Audit.DBPath,
		retryInitialMs:  strconv.FormatInt(cfg.Retry.InitialInterval.Milliseconds(), 10),
		retryMaxElapsed: strconv.FormatInt(cfg.Retry.MaxElapsedTime.Milliseconds(), 10),
	}

	m.buildForm()
	return m
}

// buildForm constructs the Huh form with all settings fields.
func (m *SettingsPaneModel) buildForm() {
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("saveTarget").
				Title("Save To").
				Options(
					huh.NewOption("Global (XDG config dir)", "global"),
					huh.NewOption("Project (.commander/config.json)", "project"),
				).
				Value(&m.saveTarget),
		).Title("Save Target"),

		huh.NewGroup(
			huh.NewInput().
				Key("queueCapacity").
				Title("Queue Capacity (0 = unbounded)").
				Value(&m.queueCapacity).
				Placeholder("0"),

			huh.NewConfirm().
				Key("queueAutoExit").
				Title("Auto-exit when queue drains").
				Value(&m.queueAutoExit),
		).Title("Queue Settings"),

		huh.NewGroup(
			huh.NewConfirm().
				Key("auditEnabled").
				Title("Enable audit trail").
				Value(&m.auditEnabled),

			huh.NewInput().
				Key("auditDBPath").
				Title("Audit DB Path").
				Value(&m.auditDBPath).
				Placeholder("commander-audit.db"),
		).Title("Audit Settings"),

		huh.NewGroup(
			huh.NewInput().
				Key("retryInitialMs").
				Title("Retry Initial Interval (ms)").
				Value(&m.retryInitialMs).
				Placeholder("100"),

			huh.NewInput().
				Key("retryMaxElapsed").
				Title("Retry Max Elapsed Time (ms)").
				Value(&m.retryMaxElapsed).
				Placeholder("120000"),
		).Title("Retry Settings"),
	)
}

// Init initializes the settings pane.
func (m SettingsPaneModel) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the settings pane.
func (m SettingsPaneModel) Update(msg tea.Msg) (SettingsPaneModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.visible = false
			m.saved = false
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		if err := m.applyFormToConfig(); err != nil {
			m.err = err
			m.saved = false
			return m, cmd
		}

		targetPath := m.globalPath
		if m.saveTarget == "project" {
			targetPath = m.projectPath
		}

		if err := config.Save(m.config, targetPath); err != nil {
			m.err = err
			m.saved = false
		} else {
			m.saved = true
			m.err = nil
		}

		if m.saved {
			m.visible = false
		}
	}

	return m, cmd
}

// applyFormToConfig parses and copies form field values back to the
// config struct, rejecting non-numeric durations instead of silently
// truncating them.
func (m *SettingsPaneModel) applyFormToConfig() error {
	capacity, err := strconv.Atoi(m.queueCapacity)
	if err != nil {
		return fmt.Errorf("queue capacity must be a number: %w", err)
	}
	initialMs, err := strconv.ParseInt(m.retryInitialMs, 10, 64)
	if err != nil {
		return fmt.Errorf("retry initial interval must be a number: %w", err)
	}
	maxElapsedMs, err := strconv.ParseInt(m.retryMaxElapsed, 10, 64)
	if err != nil {
		return fmt.Errorf("retry max elapsed time must be a number: %w", err)
	}

	m.config.Queue.Capacity = capacity
	m.config.Queue.AutoExit = m.queueAutoExit
	m.config.Audit.Enabled = m.auditEnabled
	m.config.Audit.DBPath = m.auditDBPath
	m.config.Retry.InitialInterval = time.Duration(initialMs) * time.Millisecond
	m.config.Retry.MaxElapsedTime = time.Duration(maxElapsedMs) * time.Millisecond

	return nil
}

// View renders the settings pane.
func (m SettingsPaneModel) View() string {
	if !m.visible {
		return ""
	}

	var content string

	if m.saved && m.form.State == huh.StateCompleted {
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true).
			Render("✓ Settings saved successfully!")
	} else if m.err != nil {
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true).
			Render(fmt.Sprintf("✗ Error saving: %v", m.err))
	} else {
		content = m.form.View()
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(m.width - 4).
		Height(m.height - 4)

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62")).
		Render("⚙ Settings")

	body := style.Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

// SetSize updates the dimensions of the settings pane.
func (m *SettingsPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.form != nil {
		m.form.WithWidth(w - 8).WithHeight(h - 8)
	}
}

// SetVisible shows or hides the settings pane.
func (m *SettingsPaneModel) SetVisible(v bool) {
	m.visible = v
	m.saved = false
	m.err = nil

	if v && m.form != nil {
		m.buildForm()
	}
}

// IsVisible returns whether the settings pane is currently visible.
func (m SettingsPaneModel) IsVisible() bool {
	return m.visible
}
