package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/commander/internal/config"
	"github.com/aristath/commander/internal/events"
)

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneNodeList PaneID = iota
	PaneNodeDetail
	PaneTree
)

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	nodePane          NodePaneModel
	treePane          TreePaneModel
	settingsPane      SettingsPaneModel
	focusedPane       PaneID
	eventSub          <-chan events.Event
	width             int
	height            int
	quitting          bool
	showSettings      bool
	config            *config.Config
	globalConfigPath  string
	projectConfigPath string

	nodeStatus map[string]string
}

// New creates a new TUI model. It subscribes to every event on the
// bus using SubscribeAll, since both the node pane and the tree pane
// need to see the same stream.
func New(eventBus *events.EventBus, cfg *config.Config, globalPath, projectPath string) Model {
	return Model{
		nodePane:          NewNodePaneModel(),
		treePane:          NewTreePaneModel(),
		settingsPane:      NewSettingsPaneModel(cfg, globalPath, projectPath),
		focusedPane:       PaneNodeList,
		eventSub:          eventBus.SubscribeAll(256),
		config:            cfg,
		globalConfigPath:  globalPath,
		projectConfigPath: projectPath,
		nodeStatus:        make(map[string]string),
	}
}

// Init initializes the model and returns the initial command.
func (m Model) Init() tea.Cmd {
	return waitForEvent(m.eventSub)
}

func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil
		}
		return event
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.showSettings {
			switch msg.String() {
			case "s", "esc":
				m.showSettings = false
				m.settingsPane.SetVisible(false)
			default:
				var cmd tea.Cmd
				m.settingsPane, cmd = m.settingsPane.Update(msg)
				cmds = append(cmds, cmd)

				if !m.settingsPane.IsVisible() {
					m.showSettings = false
				}
			}
			return m, tea.Batch(cmds...)
		}

		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case "s":
			m.showSettings = true
			m.settingsPane.SetVisible(true)
			cmds = append(cmds, m.settingsPane.Init())

		case KeyTab:
			m.focusedPane = (m.focusedPane + 1) % 3
			m.updateFocusStates()

		case KeyShiftTab:
			m.focusedPane = (m.focusedPane + 2) % 3
			m.updateFocusStates()

		case KeyPane1:
			m.focusedPane = PaneNodeList
			m.updateFocusStates()

		case KeyPane2:
			m.focusedPane = PaneNodeDetail
			m.updateFocusStates()

		case KeyPane3:
			m.focusedPane = PaneTree
			m.updateFocusStates()

		default:
			switch m.focusedPane {
			case PaneNodeList, PaneNodeDetail:
				var cmd tea.Cmd
				m.nodePane, cmd = m.nodePane.Update(msg)
				cmds = append(cmds, cmd)
			case PaneTree:
				var cmd tea.Cmd
				m.treePane, cmd = m.treePane.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()
		m.settingsPane.SetSize(msg.Width, msg.Height)

	case events.JobStartedEvent, events.HandlerStartedEvent, events.ExceptionEvent, events.TerminateEvent:
		var cmd tea.Cmd
		m.nodePane, cmd = m.nodePane.Update(msg)
		cmds = append(cmds, cmd)
		m.trackStatus(msg, "running")
		m.publishTreeProgress(&cmds)
		cmds = append(cmds, waitForEvent(m.eventSub))

	case events.HandlerEndEvent, events.JobEndEvent:
		var cmd tea.Cmd
		m.nodePane, cmd = m.nodePane.Update(msg)
		cmds = append(cmds, cmd)
		m.trackStatus(msg, "")
		m.publishTreeProgress(&cmds)
		cmds = append(cmds, waitForEvent(m.eventSub))

	case events.CommanderEndEvent:
		cmds = append(cmds, waitForEvent(m.eventSub))
	}

	return m, tea.Batch(cmds...)
}

// trackStatus updates the per-node status map the tree pane's summary
// is aggregated from. status is forced for job/handler start events;
// end events derive "done"/"failed" from the event's own Failed field.
func (m *Model) trackStatus(msg any, forced string) {
	switch e := msg.(type) {
	case events.JobStartedEvent:
		m.nodeStatus[e.ID] = forced
	case events.HandlerStartedEvent:
		m.nodeStatus[e.ID] = forced
	case events.HandlerEndEvent:
		m.nodeStatus[e.ID] = endStatus(e.Failed)
	case events.JobEndEvent:
		m.nodeStatus[e.ID] = endStatus(e.Failed)
	case events.TerminateEvent:
		m.nodeStatus[e.ID] = "failed"
	}
}

func endStatus(failed bool) string {
	if failed {
		return "failed"
	}
	return "done"
}

// publishTreeProgress recomputes node-status counts and feeds a fresh
// TreeProgressEvent straight into the tree pane's Update, bypassing
// the bus since this summary is derived from events the model has
// already observed rather than published by the Commander itself.
func (m *Model) publishTreeProgress(cmds *[]tea.Cmd) {
	var running, done, failed int
	for _, status := range m.nodeStatus {
		switch status {
		case "running":
			running++
		case "done":
			done++
		case "failed":
			failed++
		}
	}

	var cmd tea.Cmd
	m.treePane, cmd = m.treePane.Update(events.TreeProgressEvent{
		Total:   len(m.nodeStatus),
		Running: running,
		Done:    done,
		Failed:  failed,
	})
	*cmds = append(*cmds, cmd)
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.showSettings {
		return m.settingsPane.View()
	}

	leftWidth := (m.width * 35) / 100
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 1
	rightTopHeight := (availableHeight * 70) / 100

	leftPane := m.nodePane.View()

	rightTopStyle := StyleUnfocusedBorder
	rightTop := rightTopStyle.
		Width(rightWidth - 2).
		Height(rightTopHeight - 2).
		Render("Node detail (shown in left pane)")

	rightBottom := m.treePane.View()

	rightPane := lipgloss.JoinVertical(lipgloss.Left, rightTop, rightBottom)
	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)
	helpBar := HelpView()

	return lipgloss.JoinVertical(lipgloss.Left, mainContent, helpBar)
}

// computeLayout calculates pane dimensions and updates all child models.
func (m *Model) computeLayout() {
	leftWidth := (m.width * 35) / 100
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 1
	rightTopHeight := (availableHeight * 70) / 100
	rightBottomHeight := availableHeight - rightTopHeight

	m.nodePane.SetSize(leftWidth, availableHeight)
	m.treePane.SetSize(rightWidth, rightBottomHeight)

	m.updateFocusStates()
}

// updateFocusStates updates the focus state of all panes.
func (m *Model) updateFocusStates() {
	m.nodePane.SetFocused(m.focusedPane == PaneNodeList || m.focusedPane == PaneNodeDetail)
	m.treePane.SetFocused(m.focusedPane == PaneTree)
}
