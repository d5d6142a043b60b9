package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tortuosity/internal/aggregate"
	"tortuosity/internal/domain"
)

// Model is the Bubble Tea model for browsing a finished analysis.
type Model struct {
	input    textinput.Model
	viewport viewport.Model
	ranked   []domain.Result
	visible  []domain.Result
	summary  string
	status   string
	cursor   int
	ready    bool
}

// New creates a browser over the batch, most tortuous document first.
func New(batch domain.Batch, rep aggregate.Report) Model {
	ti := textinput.New()
	ti.Prompt = "id> "
	ti.Placeholder = "Type a document id to filter"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	ranked := aggregate.Top(batch.Results, len(batch.Results))
	m := Model{
		input:    ti,
		viewport: vp,
		ranked:   ranked,
		visible:  ranked,
		summary:  summaryLine(rep),
		status:   "Loaded. Up/down to browse, type to filter.",
	}
	return m
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + summary
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderCurrent())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD || msg.Type == tea.KeyEsc {
			return m, tea.Quit
		}
		switch msg.String() {
		case "down":
			if len(m.visible) > 0 {
				m.cursor = (m.cursor + 1) % len(m.visible)
				m.viewport.SetContent(m.renderCurrent())
			}
			return m, nil
		case "up":
			if len(m.visible) > 0 {
				m.cursor = (m.cursor - 1 + len(m.visible)) % len(m.visible)
				m.viewport.SetContent(m.renderCurrent())
			}
			return m, nil
		case "pgdown", "pgup":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.applyFilter(strings.TrimSpace(m.input.Value()))
	return m, cmd
}

func (m *Model) applyFilter(q string) {
	if q == "" {
		if len(m.visible) != len(m.ranked) {
			m.visible = m.ranked
			m.cursor = 0
			m.status = "Showing all documents."
		}
		m.viewport.SetContent(m.renderCurrent())
		return
	}
	var out []domain.Result
	for _, r := range m.ranked {
		if strings.Contains(strings.ToLower(r.ID), strings.ToLower(q)) {
			out = append(out, r)
		}
	}
	m.visible = out
	if m.cursor >= len(out) {
		m.cursor = 0
	}
	m.status = fmt.Sprintf("%d match %q", len(out), q)
	m.viewport.SetContent(m.renderCurrent())
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Trajectory Tortuosity")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderCurrent() string {
	if len(m.visible) == 0 {
		return "No documents."
	}
	r := m.visible[m.cursor]
	rank := 0
	for i := range m.ranked {
		if m.ranked[i].ID == r.ID {
			rank = i + 1
			break
		}
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s  (%d/%d, rank %d of %d)\n\n", titleStyle.Render("Document "+r.ID), m.cursor+1, len(m.visible), rank, len(m.ranked))
	fmt.Fprintf(&b, "overall   %s\n", bar(r.OverallTortuosity, m.maxOverall()))
	fmt.Fprintf(&b, "mean line %.4f\n", r.MeanLineTortuosity)
	fmt.Fprintf(&b, "max line  %.4f\n", r.MaxLineTortuosity)
	fmt.Fprintf(&b, "couplet   %.4f\n", r.CoupletTortuosity)
	fmt.Fprintf(&b, "words     %d found, %d missing\n\n", r.WordsFound, r.WordsMissing)
	for _, ls := range r.Lines {
		if ls.Scored {
			fmt.Fprintf(&b, "  line %2d  %3d vec  %.4f\n", ls.Index+1, ls.Vectors, ls.Tortuosity)
		} else {
			b.WriteString(dimStyle.Render(fmt.Sprintf("  line %2d  %3d vec  -", ls.Index+1, ls.Vectors)) + "\n")
		}
	}
	return b.String()
}

func (m Model) maxOverall() float64 {
	if len(m.ranked) == 0 {
		return 0
	}
	return m.ranked[0].OverallTortuosity
}

func bar(v, maxV float64) string {
	const width = 30
	n := 0
	if maxV > 0 {
		n = int(v / maxV * width)
	}
	return fmt.Sprintf("%.4f %s", v, highlightStyle.Render(strings.Repeat("█", n)))
}

func summaryLine(rep aggregate.Report) string {
	mean := 0.0
	for _, s := range rep.Fields {
		if s.Field == aggregate.Overall {
			mean = s.Mean
		}
	}
	return fmt.Sprintf("%d scored, %d skipped, %d failed · mean overall %.4f · coverage %.1f%%",
		rep.Documents, rep.Skipped, rep.Failed, mean, rep.Coverage.Ratio*100)
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	titleStyle     = lipgloss.NewStyle().Bold(true)
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)
