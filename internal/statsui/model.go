// Package statsui provides the Bubble Tea completion dashboard.
package statsui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/notegood/malla/internal/stats"
	"github.com/notegood/malla/internal/view"
)

const (
	tabOverview = iota
	tabSemesters
	tabAreas
)

const tableBarWidth = 12

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the completion dashboard.
type Model struct {
	adapter *view.Adapter
	report  stats.Report

	tabs      []string
	activeTab int
	tables    map[int]*table.Model

	width  int
	height int
}

// NewModel constructs a dashboard over the adapter's current progress.
func NewModel(adapter *view.Adapter) *Model {
	m := &Model{
		adapter: adapter,
		tabs:    []string{"Overview", "Semesters", "Areas"},
		tables:  map[int]*table.Model{},
	}
	m.refreshReport()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.String() == "q" || msg.String() == "esc" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "left", "h", "shift+tab":
			m.moveTab(-1)
			return m, nil
		case "right", "l", "tab":
			m.moveTab(1)
			return m, nil
		case "r":
			m.refreshReport()
			return m, nil
		}
		if t, ok := m.tables[m.activeTab]; ok {
			switch msg.String() {
			case "g", "home":
				t.GotoTop()
				return m, nil
			case "G", "end":
				t.GotoBottom()
				return m, nil
			}
			updated, cmd := t.Update(msg)
			*t = updated
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderTabs(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(headerStyle.Render(m.renderHelp()), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = max(1, lipgloss.Height(activeNavStyle.Render("X")))
	footerHeight = 1
	bodyHeight = max(1, m.height-headerHeight-footerHeight)
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) refreshReport() {
	m.report = m.adapter.Report()
	m.tables[tabSemesters] = newRowTable("Semester", m.report.Semesters)
	m.tables[tabAreas] = newRowTable("Area", m.report.Areas)
	m.updateLayout()
	m.focusActive()
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for _, t := range m.tables {
		t.SetWidth(m.width)
		// The header row and its border take two lines.
		t.SetHeight(max(1, bodyHeight-2))
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := (m.activeTab + delta + count) % count
	m.activeTab = next
	m.focusActive()
}

func (m *Model) focusActive() {
	for tab, t := range m.tables {
		if tab == m.activeTab {
			t.Focus()
		} else {
			t.Blur()
		}
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Refresh: r  Quit: q"
	if _, ok := m.tables[m.activeTab]; ok {
		help = "Nav: left/right  Rows: up/down/g/G  Refresh: r  Quit: q"
	}
	return truncateLine(help, m.width)
}

func (m *Model) renderBody() string {
	if m.report.Courses == 0 {
		return "No courses found."
	}
	if t, ok := m.tables[m.activeTab]; ok {
		if len(t.Rows()) == 0 {
			return "Nothing to show."
		}
		return tableMutedStyle.Render(t.View())
	}
	return renderOverview(m.report, m.width)
}

func renderOverview(r stats.Report, width int) string {
	overall := r.Overall
	cards := []string{
		metricCard("Approved", fmt.Sprintf("%d/%d", overall.Approved, overall.Total)),
		metricCard("Completion", fmt.Sprintf("%d%%", overall.Percent)),
		metricCard("Taking", strconv.Itoa(r.Taking)),
		metricCard("Courses", strconv.Itoa(r.Courses)),
		metricCard("Policy", string(r.Policy)),
	}
	var summary string
	if width < 80 {
		summary = strings.Join(cards, "\n")
	} else {
		row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
		row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4])
		summary = lipgloss.JoinVertical(lipgloss.Left, row1, row2)
	}
	bar := fmt.Sprintf("%s %3d%%", stats.Bar(overall.Percent, stats.BarWidthFor(width)), overall.Percent)
	return summary + "\n\n" + bar
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func newRowTable(label string, rows []stats.Row) *table.Model {
	labelWidth := len(label)
	for _, row := range rows {
		labelWidth = max(labelWidth, runewidth.StringWidth(row.Label))
	}
	columns := []table.Column{
		{Title: label, Width: labelWidth},
		{Title: "Courses", Width: 7},
		{Title: "Taking", Width: 6},
		{Title: "Approved", Width: 8},
		{Title: "Eligible", Width: 8},
		{Title: "%", Width: 4},
		{Title: "Progress", Width: tableBarWidth},
	}
	tableRows := make([]table.Row, 0, len(rows))
	for _, row := range rows {
		tableRows = append(tableRows, table.Row{
			row.Label,
			strconv.Itoa(row.Courses),
			strconv.Itoa(row.Taking),
			strconv.Itoa(row.Stats.Approved),
			strconv.Itoa(row.Stats.Total),
			strconv.Itoa(row.Stats.Percent) + "%",
			stats.Bar(row.Stats.Percent, tableBarWidth),
		})
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(tableRows),
		table.WithHeight(max(1, len(tableRows))),
	)
	t.SetStyles(rowTableStyles())
	return &t
}

func rowTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
