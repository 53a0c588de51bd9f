package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/commander/internal/events"
)

// NodeState tracks the display state of a single TaskNode, rebuilt
// from the lifecycle events the bridge publishes rather than from any
// direct reference into the Commander's own tree.
type NodeState struct {
	ID        string
	ParentID  string
	IsHandler bool
	Status    string // "running", "done", "failed", "terminated"
	Log       []string
	StartTime time.Time
	Duration  time.Duration
}

// NodePaneModel shows the node list and a detail viewport for the
// selected node's transition log.
type NodePaneModel struct {
	nodes       map[string]*NodeState
	nodeOrder   []string
	selectedIdx int
	viewport    viewport.Model
	width       int
	height      int
	focused     bool
}

// NewNodePaneModel creates a new node pane model.
func NewNodePaneModel() NodePaneModel {
	return NodePaneModel{
		nodes:    make(map[string]*NodeState),
		viewport: viewport.New(0, 0),
	}
}

func (m *NodePaneModel) nodeFor(id, parentID string, isHandler bool) *NodeState {
	n, ok := m.nodes[id]
	if !ok {
		n = &NodeState{ID: id, ParentID: parentID, IsHandler: isHandler, Status: "running"}
		m.nodes[id] = n
		m.nodeOrder = append(m.nodeOrder, id)
		if len(m.nodeOrder) == 1 {
			m.selectedIdx = 0
		}
	}
	return n
}

// Update handles messages for the node pane.
func (m NodePaneModel) Update(msg tea.Msg) (NodePaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()

	case tea.KeyMsg:
		if !m.focused {
			break
		}
		switch msg.String() {
		case KeyJ, KeyDown:
			if m.selectedIdx < len(m.nodeOrder)-1 {
				m.selectedIdx++
				m.updateViewportContent()
			}
		case KeyK, KeyUp:
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.updateViewportContent()
			}
		default:
			m.viewport, cmd = m.viewport.Update(msg)
		}

	case events.JobStartedEvent:
		n := m.nodeFor(msg.ID, msg.ParentID, false)
		n.StartTime = msg.Timestamp
		n.Log = append(n.Log, "job started")
		m.refreshSelected(msg.ID)

	case events.HandlerStartedEvent:
		n := m.nodeFor(msg.ID, msg.ParentID, true)
		n.StartTime = msg.Timestamp
		n.Log = append(n.Log, "handler started")
		m.refreshSelected(msg.ID)

	case events.ExceptionEvent:
		if n, ok := m.nodes[msg.ID]; ok {
			n.Log = append(n.Log, fmt.Sprintf("exception: %v", msg.Err))
			m.refreshSelected(msg.ID)
		}

	case events.TerminateEvent:
		if n, ok := m.nodes[msg.ID]; ok {
			n.Status = "terminated"
			n.Log = append(n.Log, "terminated")
			m.refreshSelected(msg.ID)
		}

	case events.HandlerEndEvent:
		if n, ok := m.nodes[msg.ID]; ok {
			m.applyEnd(n, msg.Failed, msg.Duration, "handler")
			m.refreshSelected(msg.ID)
		}

	case events.JobEndEvent:
		if n, ok := m.nodes[msg.ID]; ok {
			m.applyEnd(n, msg.Failed, msg.Duration, "job")
			m.refreshSelected(msg.ID)
		}
	}

	return m, cmd
}

func (m *NodePaneModel) applyEnd(n *NodeState, failed bool, duration time.Duration, label string) {
	n.Duration = duration
	if failed {
		n.Status = "failed"
		n.Log = append(n.Log, fmt.Sprintf("%s failed after %v", label, duration))
	} else {
		n.Status = "done"
		n.Log = append(n.Log, fmt.Sprintf("%s ended after %v", label, duration))
	}
}

func (m *NodePaneModel) refreshSelected(id string) {
	if m.getSelectedNodeID() == id {
		m.updateViewportContent()
	}
}

// View renders the node pane.
func (m NodePaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	listWidth := 25
	viewportWidth := m.width - listWidth - 4

	listContent := m.renderNodeList(listWidth)
	viewportContent := m.viewport.View()

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		listContent,
		lipgloss.NewStyle().
			Width(viewportWidth).
			Height(m.height-2).
			Render(viewportContent),
	)

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

func (m NodePaneModel) renderNodeList(width int) string {
	var b strings.Builder

	title := StyleTitle.Render("Nodes")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", min(width, lipgloss.Width(title))))
	b.WriteString("\n\n")

	if len(m.nodeOrder) == 0 {
		b.WriteString(StyleStatusPending.Render("Waiting..."))
	} else {
		for i, id := range m.nodeOrder {
			n := m.nodes[id]
			icon := m.StatusIcon(n.Status)
			kind := StyleKindJob.Render("job")
			if n.IsHandler {
				kind = StyleKindHandler.Render("handler")
			}
			label := fmt.Sprintf("%s %s", kind, shorten(id, width-10))
			line := fmt.Sprintf("%s %s", icon, label)
			if i == m.selectedIdx {
				line = lipgloss.NewStyle().
					Background(lipgloss.Color("62")).
					Foreground(lipgloss.Color("0")).
					Render(line)
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	return lipgloss.NewStyle().
		Width(width).
		Height(m.height - 2).
		Render(b.String())
}

func shorten(s string, n int) string {
	if n <= 3 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// StatusIcon returns a styled status indicator.
func (m NodePaneModel) StatusIcon(status string) string {
	switch status {
	case "running":
		return StyleStatusRunning.Render("●")
	case "done":
		return StyleStatusComplete.Render("✓")
	case "failed":
		return StyleStatusFailed.Render("✗")
	case "terminated":
		return StyleStatusTerminated.Render("⊘")
	default:
		return StyleStatusPending.Render("○")
	}
}

func (m NodePaneModel) getSelectedNodeID() string {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.nodeOrder) {
		return m.nodeOrder[m.selectedIdx]
	}
	return ""
}

func (m *NodePaneModel) updateViewportContent() {
	id := m.getSelectedNodeID()
	if id == "" {
		m.viewport.SetContent("Waiting for nodes...")
		return
	}
	n, ok := m.nodes[id]
	if !ok {
		m.viewport.SetContent("Waiting for nodes...")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "id:     %s\n", n.ID)
	fmt.Fprintf(&b, "parent: %s\n", n.ParentID)
	fmt.Fprintf(&b, "status: %s\n\n", n.Status)
	b.WriteString(strings.Join(n.Log, "\n"))

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *NodePaneModel) resizeViewport() {
	listWidth := 25
	viewportWidth := m.width - listWidth - 4
	viewportHeight := m.height - 4

	if viewportWidth < 10 {
		viewportWidth = 10
	}
	if viewportHeight < 5 {
		viewportHeight = 5
	}

	m.viewport.Width = viewportWidth
	m.viewport.Height = viewportHeight
}

// SetSize updates the pane dimensions.
func (m *NodePaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.resizeViewport()
}

// SetFocused updates the focus state.
func (m *NodePaneModel) SetFocused(focused bool) {
	m.focused = focused
}
