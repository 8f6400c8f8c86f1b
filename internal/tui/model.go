// Package tui provides the Bubble Tea curriculum grid.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/notegood/malla/internal/catalog"
	"github.com/notegood/malla/internal/model"
	"github.com/notegood/malla/internal/progress"
	"github.com/notegood/malla/internal/view"
)

const (
	columnWidth   = 30
	cardLines     = 4
	cardGap       = 1
	toastDuration = 1600 * time.Millisecond
)

type mode int

const (
	modeGrid mode = iota
	modeSearch
	modeDetail
	modeConfirmReset
)

type toastExpiredMsg struct {
	seq int
}

// Options configures a Model.
type Options struct {
	Filter view.Filter
	Logger *zap.Logger
	// Reload re-reads the catalog when its file changes. Nil disables
	// reloading.
	Reload func(context.Context) (*catalog.Catalog, error)
}

// Model implements the Bubble Tea grid UI.
type Model struct {
	adapter *view.Adapter
	reload  func(context.Context) (*catalog.Catalog, error)
	logger  *zap.Logger

	filter  view.Filter
	columns []view.Column
	col     int
	row     int
	offset  int

	mode   mode
	search textinput.Model
	detail viewport.Model

	toast    string
	toastSeq int

	width  int
	height int
}

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	activeTitleStyle = titleStyle.Copy().Foreground(lipgloss.Color("#C89A3A")).Underline(true)
	mutedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	approvedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#25A065"))
	takingStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	lockedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#5A5A5A"))
	unlockedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	selectedStyle    = lipgloss.NewStyle().Background(lipgloss.Color("#2A2F3A"))
	footerStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	toastStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Background(lipgloss.Color("#3A3F4B")).Padding(0, 1)
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// NewModel constructs a grid model over adapter.
func NewModel(adapter *view.Adapter, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "name, area or code"
	search.CharLimit = 80
	search.SetValue(opts.Filter.Query)

	m := &Model{
		adapter: adapter,
		reload:  opts.Reload,
		logger:  logger,
		filter:  opts.Filter,
		search:  search,
		detail:  viewport.New(0, 0),
	}
	m.refresh()
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
		m.detail.Width = msg.Width
		m.detail.Height = maxInt(1, msg.Height-2)
		return m, nil
	case CatalogChangedMsg:
		return m, m.reloadCatalog()
	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		switch m.mode {
		case modeSearch:
			return m.updateSearch(msg)
		case modeDetail:
			return m.updateDetail(msg)
		case modeConfirmReset:
			return m.updateConfirm(msg)
		default:
			return m.updateGrid(msg)
		}
	}
	return m, nil
}

func (m *Model) updateGrid(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "left", "h":
		m.moveColumn(-1)
	case "right", "l":
		m.moveColumn(1)
	case "up", "k":
		m.moveRow(-1)
	case "down", "j":
		m.moveRow(1)
	case "g", "home":
		m.row = 0
	case "G", "end":
		m.row = maxInt(0, len(m.currentCards())-1)
	case "a":
		return m, m.runCommand(m.adapter.ToggleApproved)
	case "t":
		return m, m.runCommand(m.adapter.ToggleTaking)
	case "x":
		return m, m.runCommand(m.adapter.Clear)
	case "enter":
		return m, m.openDetail()
	case "r":
		return m, m.showRequirements()
	case "/":
		m.mode = modeSearch
		return m, m.search.Focus()
	case "L":
		m.filter.ShowLocked = !m.filter.ShowLocked
		m.refreshKeeping(m.selectedID())
		return m, m.setToast("Locked courses " + onOff(m.filter.ShowLocked))
	case "T":
		m.filter.ShowTaking = !m.filter.ShowTaking
		m.refreshKeeping(m.selectedID())
		return m, m.setToast("In-progress courses " + onOff(m.filter.ShowTaking))
	case "R":
		m.mode = modeConfirmReset
	}
	return m, nil
}

func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.search.SetValue("")
		m.search.Blur()
		m.mode = modeGrid
		m.filter.Query = ""
		m.refresh()
		return m, nil
	case tea.KeyEnter:
		m.search.Blur()
		m.mode = modeGrid
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if q := m.search.Value(); q != m.filter.Query {
		m.filter.Query = q
		m.row = 0
		m.refresh()
	}
	return m, cmd
}

func (m *Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "enter", "q":
		m.mode = modeGrid
		return m, nil
	}
	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m *Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeGrid
	switch msg.String() {
	case "y", "Y", "s", "S":
		change := m.adapter.Reset(context.Background())
		m.refresh()
		if !change.Persisted {
			return m, m.setToast("Progress reset for this session; could not clear saved state.")
		}
		return m, m.setToast("Progress reset.")
	default:
		return m, m.setToast("Reset cancelled.")
	}
}

type command func(context.Context, string) (progress.Change, error)

func (m *Model) runCommand(fn command) tea.Cmd {
	card, ok := m.selected()
	if !ok {
		return nil
	}
	change, err := fn(context.Background(), card.Course.ID)
	if err != nil {
		m.logger.Warn("command failed", zap.String("course", card.Course.ID), zap.Error(err))
		return m.setToast(err.Error())
	}
	m.refreshKeeping(card.Course.ID)
	if !change.Persisted {
		return m.setToast("Could not save progress; changes kept for this session.")
	}
	return m.setToast(changeMessage(change.Kind, card.Course.Name))
}

func changeMessage(kind progress.ChangeKind, name string) string {
	switch kind {
	case progress.ChangeApproved:
		return "✓ " + name + " approved"
	case progress.ChangeTaking:
		return "⏳ " + name + " in progress"
	default:
		return name + " cleared"
	}
}

func (m *Model) openDetail() tea.Cmd {
	card, ok := m.selected()
	if !ok {
		return nil
	}
	d, err := m.adapter.Detail(card.Course.ID)
	if err != nil {
		return m.setToast(err.Error())
	}
	m.detail.SetContent(renderDetail(d, m.width))
	m.detail.GotoTop()
	m.mode = modeDetail
	return nil
}

func (m *Model) showRequirements() tea.Cmd {
	card, ok := m.selected()
	if !ok {
		return nil
	}
	missing, err := m.adapter.Requirements(card.Course.ID)
	if err != nil {
		return m.setToast(err.Error())
	}
	if len(missing) == 0 {
		return m.setToast("Nothing pending.")
	}
	return m.setToast("Missing: " + strings.Join(missing, "; "))
}

func (m *Model) reloadCatalog() tea.Cmd {
	if m.reload == nil {
		return nil
	}
	cat, err := m.reload(context.Background())
	if err != nil {
		m.logger.Warn("catalog reload failed", zap.Error(err))
		msg := "Catalog reload failed"
		if errors.Is(err, catalog.ErrFormat) {
			msg += ": unrecognized format"
		}
		return m.setToast(msg)
	}
	id := m.selectedID()
	m.adapter.Reload(cat)
	m.refreshKeeping(id)
	m.logger.Info("catalog reloaded", zap.Int("courses", cat.Len()))
	return m.setToast(fmt.Sprintf("Catalog reloaded (%d courses).", cat.Len()))
}

func (m *Model) setToast(text string) tea.Cmd {
	m.toastSeq++
	seq := m.toastSeq
	m.toast = text
	return tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return toastExpiredMsg{seq: seq}
	})
}

func (m *Model) refresh() {
	m.columns = m.adapter.Grid(m.filter)
	m.clampCursor()
}

// refreshKeeping rebuilds the grid and keeps the cursor on id when it is
// still visible.
func (m *Model) refreshKeeping(id string) {
	m.columns = m.adapter.Grid(m.filter)
	if id != "" {
		for ci, col := range m.columns {
			for ri, card := range col.Cards {
				if card.Course.ID == id {
					m.col, m.row = ci, ri
					return
				}
			}
		}
	}
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if len(m.columns) == 0 {
		m.col, m.row = 0, 0
		return
	}
	m.col = clamp(m.col, 0, len(m.columns)-1)
	m.row = clamp(m.row, 0, maxInt(0, len(m.columns[m.col].Cards)-1))
}

func (m *Model) moveColumn(delta int) {
	if len(m.columns) == 0 {
		return
	}
	m.col = clamp(m.col+delta, 0, len(m.columns)-1)
	m.clampCursor()
}

func (m *Model) moveRow(delta int) {
	m.row = clamp(m.row+delta, 0, maxInt(0, len(m.currentCards())-1))
}

func (m *Model) currentCards() []view.Card {
	if m.col < 0 || m.col >= len(m.columns) {
		return nil
	}
	return m.columns[m.col].Cards
}

func (m *Model) selected() (view.Card, bool) {
	cards := m.currentCards()
	if m.row < 0 || m.row >= len(cards) {
		return view.Card{}, false
	}
	return cards[m.row], true
}

func (m *Model) selectedID() string {
	card, ok := m.selected()
	if !ok {
		return ""
	}
	return card.Course.ID
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.mode == modeDetail {
		return m.detail.View() + "\n" + fitLines(footerStyle.Render("esc/enter: back  ↑/↓: scroll"), m.width, 1)
	}
	header := m.renderHeader()
	footer := m.renderFooter()
	bodyHeight := maxInt(1, m.height-lipgloss.Height(header)-lipgloss.Height(footer))
	body := m.renderGrid(bodyHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) renderHeader() string {
	cat := m.adapter.Catalog()
	parts := []string{titleStyle.Render("malla")}
	for _, a := range cat.Areas() {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color(cat.AreaColor(a.ID))).Render("●")
		parts = append(parts, dot+" "+a.Name)
	}
	return truncateStyled(strings.Join(parts, "  "), m.width)
}

func (m *Model) renderGrid(height int) string {
	visible := maxInt(1, m.width/columnWidth)
	if m.col < m.offset {
		m.offset = m.col
	}
	if m.col >= m.offset+visible {
		m.offset = m.col - visible + 1
	}
	end := minInt(len(m.columns), m.offset+visible)
	rendered := make([]string, 0, visible)
	for i := m.offset; i < end; i++ {
		rendered = append(rendered, m.renderColumn(i, height))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m *Model) renderColumn(idx, height int) string {
	col := m.columns[idx]
	inner := columnWidth - 2
	style := titleStyle
	if idx == m.col {
		style = activeTitleStyle
	}
	lines := []string{style.Render(truncate(fmt.Sprintf("%s (%d)", col.Title, len(col.Cards)), inner))}

	capacity := maxInt(1, (height-1)/(cardLines+cardGap))
	start := 0
	if idx == m.col && m.row >= capacity {
		start = m.row - capacity + 1
	}
	end := minInt(len(col.Cards), start+capacity)
	for i := start; i < end; i++ {
		lines = append(lines, renderCard(col.Cards[i], inner, idx == m.col && i == m.row))
	}
	if hidden := len(col.Cards) - end; hidden > 0 {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("  +%d more", hidden)))
	}
	block := lipgloss.NewStyle().Width(columnWidth).MaxHeight(height).PaddingRight(2).Render(strings.Join(lines, "\n"))
	return block
}

func renderCard(card view.Card, width int, selected bool) string {
	textWidth := maxInt(1, width-2)
	c := card.Course

	head := c.Code
	if head == "" {
		head = c.ID
	}
	if tag := statusTag(card.Status); tag != "" {
		head += " " + tag
	}
	nameLines := wrapText(c.Name, textWidth, cardLines-2)
	for len(nameLines) < cardLines-2 {
		nameLines = append(nameLines, "")
	}
	meta := card.AreaName
	if c.Credits != 0 {
		meta += fmt.Sprintf(" · %g cr.", c.Credits)
	}
	if card.Missing > 0 && card.Status == model.StatusLocked {
		meta += fmt.Sprintf(" · -%d", card.Missing)
	}

	body := make([]string, 0, cardLines)
	body = append(body, truncate(head, textWidth))
	body = append(body, nameLines...)
	body = append(body, truncate(meta, textWidth))

	text := statusStyle(card.Status)
	if selected {
		text = text.Copy().Inherit(selectedStyle).Bold(true)
	}
	content := text.Width(textWidth).Render(strings.Join(body, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(lipgloss.Color(card.AreaColor)).
		PaddingLeft(1).
		MarginBottom(cardGap).
		Render(content)
}

func statusTag(s model.Status) string {
	switch s {
	case model.StatusApproved:
		return "✓ APPROVED"
	case model.StatusTaking:
		return "⏳ TAKING"
	case model.StatusLocked:
		return "🔒 LOCKED"
	default:
		return ""
	}
}

func statusStyle(s model.Status) lipgloss.Style {
	switch s {
	case model.StatusApproved:
		return approvedStyle
	case model.StatusTaking:
		return takingStyle
	case model.StatusLocked:
		return lockedStyle
	default:
		return unlockedStyle
	}
}

func (m *Model) renderFooter() string {
	stats := m.adapter.Completion()
	segments := []string{
		fmt.Sprintf("Approved %d/%d (%d%%)", stats.Approved, stats.Total, stats.Percent),
		"policy " + string(m.adapter.Engine().Policy()),
		"locked " + onOff(m.filter.ShowLocked),
		"taking " + onOff(m.filter.ShowTaking),
	}
	if m.filter.Query != "" && m.mode != modeSearch {
		segments = append(segments, fmt.Sprintf("filter %q", m.filter.Query))
	}
	status := footerStyle.Render(strings.Join(segments, "  "))

	var second string
	switch {
	case m.mode == modeSearch:
		second = m.search.View()
	case m.mode == modeConfirmReset:
		second = errorStyle.Render("Reset all progress? (y/N)")
	case m.toast != "":
		second = toastStyle.Render(m.toast)
	default:
		second = footerStyle.Render("←↓↑→ move  a approve  t taking  x clear  enter detail  r requirements  / search  L locked  T taking  R reset  q quit")
	}
	return status + "\n" + second
}

func renderDetail(d view.Detail, width int) string {
	c := d.Course
	textWidth := maxInt(20, width-4)
	var b strings.Builder
	b.WriteString(titleStyle.Render(c.Name))
	b.WriteString("\n")
	meta := []string{c.Code, d.AreaName}
	if c.Credits != 0 {
		meta = append(meta, fmt.Sprintf("%g cr.", c.Credits))
	} else {
		meta = append(meta, "- cr.")
	}
	meta = append(meta, c.Semester.Title())
	b.WriteString(mutedStyle.Render(strings.Join(nonEmpty(meta), " · ")))
	b.WriteString("\n")
	status := statusTag(d.Status)
	if status == "" {
		status = "UNLOCKED"
	}
	b.WriteString(statusStyle(d.Status).Render(status))
	b.WriteString("\n\n")
	writeList(&b, "Prerequisites", d.Prerequisites, textWidth)
	writeList(&b, "Missing", d.Missing, textWidth)
	writeList(&b, "Unlocks", d.Unlocks, textWidth)
	return b.String()
}

func writeList(b *strings.Builder, label string, items []string, width int) {
	b.WriteString(titleStyle.Render(label + ":"))
	b.WriteString("\n")
	if len(items) == 0 {
		b.WriteString("  —\n")
		return
	}
	for _, item := range items {
		for i, line := range wrapText(item, width-4, 3) {
			prefix := "  • "
			if i > 0 {
				prefix = "    "
			}
			b.WriteString(prefix + line + "\n")
		}
	}
	b.WriteString("\n")
}

func nonEmpty(items []string) []string {
	out := items[:0:0]
	for _, s := range items {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func truncateStyled(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
