// Package statsui provides the Bubble Tea stats interface.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"go.uber.org/zap"

	"github.com/verte-zerg/jyutdrill/internal/model"
	"github.com/verte-zerg/jyutdrill/internal/stats"
	"github.com/verte-zerg/jyutdrill/internal/store"
)

const (
	tabOverview = iota
	tabGlyphTable
	tabMistakes
)

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
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	weakStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// MistakeSource provides the stored mistake logs.
type MistakeSource interface {
	LoadMistakes(scope model.MistakeScope) []model.MistakeRecord
}

// Model implements the Bubble Tea stats UI.
type Model struct {
	store    *store.Store
	mistakes MistakeSource
	logger   *zap.Logger
	cfg      model.StatsConfig

	report stats.Report
	errMsg string

	tabs       []string
	activeTab  int
	viewports  []viewport.Model
	glyphTable table.Model
	layout     tableLayout

	mistakeScope model.MistakeScope

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

type tableLayout struct {
	width    int
	height   int
	rowCount int
}

// NewModel constructs a stats UI model. mistakes may be nil.
func NewModel(st *store.Store, mistakes MistakeSource, cfg model.StatsConfig, logger *zap.Logger) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Model{
		store:    st,
		mistakes: mistakes,
		logger:   logger.Named("statsui"),
		cfg:      cfg,
		tabs:     []string{"Overview", "Glyph Table", "Mistakes"},
	}
	m.initInputs()
	m.glyphTable = buildGlyphTable(nil, 0, 1)
	m.initViewports()
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
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		if msg.String() == "q" {
			return m, tea.Quit
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
			m.refreshReport()
			m.updateLayout()
			return m, nil
		case "-":
			m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
			m.refreshReport()
			m.updateLayout()
			return m, nil
		case "/":
			return m.startFilter()
		case "s":
			if m.activeTab == tabMistakes {
				if m.mistakeScope == model.ScopeCumulative {
					m.mistakeScope = model.ScopeSession
				} else {
					m.mistakeScope = model.ScopeCumulative
				}
				m.renderTabContents()
			}
			return m, nil
		case "g", "home":
			if m.activeTab == tabGlyphTable {
				m.glyphTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabGlyphTable {
				m.glyphTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabGlyphTable {
				var cmd tea.Cmd
				m.glyphTable, cmd = m.glyphTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
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
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Since (YYYY-MM-DD): "),
		newFilterInput("Last: "),
		newFilterInput("Curve window: "),
	}
	m.setInputsFromConfig()
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := max(lipgloss.Height(activeNavStyle.Render("X")), 1)
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = max(m.height-headerHeight-footerHeight, 1)
	return headerHeight, bodyHeight, footerHeight
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	if m.cfg.Since != nil {
		m.filterInputs[0].SetValue(m.cfg.Since.Format("2006-01-02"))
	} else {
		m.filterInputs[0].SetValue("")
	}
	if m.cfg.Last > 0 {
		m.filterInputs[1].SetValue(strconv.Itoa(m.cfg.Last))
	} else {
		m.filterInputs[1].SetValue("")
	}
	m.filterInputs[2].SetValue(strconv.Itoa(m.cfg.CurveWindow))
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.setGlyphTableSize(m.width, vpHeight)
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = max(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabGlyphTable {
		m.glyphTable.Focus()
	} else {
		m.glyphTable.Blur()
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

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	since := "any"
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	last := "all"
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	summary := fmt.Sprintf("Settings: since=%s  last=%s  window=%d", since, last, m.cfg.CurveWindow)
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	help := "Nav: left/right  Scroll: up/down/pgup/pgdn  Window: -/=  Settings: /  Quit: q"
	if m.activeTab == tabMistakes {
		help = "Nav: left/right  Scroll: up/down/pgup/pgdn  Log: s  Settings: /  Quit: q"
	}
	return headerStyle.Render(help)
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel")
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabGlyphTable {
		switch {
		case len(m.report.Sessions) == 0:
			return fitLines("No sessions found.", m.width, height)
		case len(m.report.GlyphAggsAll) == 0:
			return fitLines("No character stats found.", m.width, height)
		default:
			return fitLines(tableMutedStyle.Render(m.glyphTable.View()), m.width, height)
		}
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	report, err := stats.BuildReport(context.Background(), m.store, m.cfg)
	if err != nil {
		m.logger.Error("failed to build stats report", zap.Error(err))
		m.errMsg = err.Error()
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	m.errMsg = ""
	m.report = report
	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.applyGlyphTable(m.report.GlyphAggsAll, width, bodyHeight)
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if m.errMsg != "" {
		for i := range m.viewports {
			m.viewports[i].SetContent("Failed to load stats.")
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.report, m.cfg.CurveWindow, width))
	m.viewports[tabMistakes].SetContent(m.renderMistakeLog(width))
}

func renderOverview(report stats.Report, window, width int) string {
	if len(report.Sessions) == 0 {
		return "No sessions found."
	}
	parts := []string{
		renderSummaryCards(report.Sessions, width),
		renderCurve(report.Sessions, window, width),
	}
	if len(report.WeakGlyphs) > 0 {
		parts = append(parts, headerStyle.Render(fmt.Sprintf("Weakest in the last %d sessions: ", window))+
			weakStyle.Render(strings.Join(report.WeakGlyphs, " ")))
	}
	return strings.TrimRight(strings.Join(parts, "\n\n"), "\n")
}

func renderSummaryCards(sessions []model.SessionAggregate, width int) string {
	sum := stats.Summarize(sessions)
	cards := []string{
		metricCard("Sessions", strconv.Itoa(sum.Sessions)),
		metricCard("Answered", strconv.Itoa(sum.Answered)),
		metricCard("Correct", strconv.Itoa(sum.Score)),
		metricCard("Avg Acc", fmt.Sprintf("%.1f%%", sum.AvgAccuracy*100)),
		metricCard("Best Acc", fmt.Sprintf("%.1f%%", sum.Best*100)),
		metricCard("Time", (time.Duration(sum.TotalMs) * time.Millisecond).Round(time.Second).String()),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	row1 := lipgloss.JoinHorizontal(lipgloss.Top, cards[0], cards[1], cards[2])
	row2 := lipgloss.JoinHorizontal(lipgloss.Top, cards[3], cards[4], cards[5])
	return lipgloss.JoinVertical(lipgloss.Left, row1, row2)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderCurve(sessions []model.SessionAggregate, window, width int) string {
	var buf bytes.Buffer
	// Keep the most recent sessions when the sparkline would overflow.
	limit := max(width-24, 10)
	if len(sessions) > limit {
		sessions = sessions[len(sessions)-limit:]
	}
	if err := stats.RenderCurve(&buf, sessions, window); err != nil {
		return fmt.Sprintf("Failed to render curve: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func (m *Model) renderMistakeLog(width int) string {
	title := "Cumulative mistakes"
	if m.mistakeScope == model.ScopeSession {
		title = "Last session mistakes"
	}
	if m.mistakes == nil {
		return title + "\n\nNo mistake log available."
	}
	var buf bytes.Buffer
	if err := stats.RenderMistakes(&buf, m.mistakes.LoadMistakes(m.mistakeScope), width); err != nil {
		return fmt.Sprintf("Failed to render mistakes: %v", err)
	}
	return headerStyle.Render(title) + "\n\n" + strings.TrimRight(buf.String(), "\n")
}

func glyphTableColumns() []table.Column {
	return []table.Column{
		{Title: "Char", Width: 4},
		{Title: "Accuracy", Width: 9},
		{Title: "Correct", Width: 7},
		{Title: "Incorrect", Width: 9},
		{Title: "Total", Width: 6},
	}
}

func buildGlyphTable(aggs []model.GlyphAggregate, width, height int) table.Model {
	t := table.New(
		table.WithColumns(glyphTableColumns()),
		table.WithRows(glyphTableRows(aggs)),
		table.WithHeight(max(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(glyphTableStyles())
	return t
}

func glyphTableRows(aggs []model.GlyphAggregate) []table.Row {
	rows := make([]table.Row, 0, len(aggs))
	for _, r := range stats.GlyphRows(aggs) {
		rows = append(rows, table.Row{
			r.Glyph,
			fmt.Sprintf("%.2f%%", r.Accuracy*100),
			strconv.Itoa(r.Correct),
			strconv.Itoa(r.Incorrect),
			strconv.Itoa(r.Correct + r.Incorrect),
		})
	}
	return rows
}

func (m *Model) applyGlyphTable(aggs []model.GlyphAggregate, width, height int) {
	rows := glyphTableRows(aggs)
	m.glyphTable.SetRows(rows)
	m.layout.rowCount = len(rows)
	m.layout.width = 0
	m.setGlyphTableSize(width, height)
}

func (m *Model) setGlyphTableSize(width, height int) {
	viewportHeight := max(1, height-1)
	if m.layout.width == width && m.layout.height == viewportHeight {
		return
	}
	m.layout.width = width
	m.layout.height = viewportHeight
	m.glyphTable.SetWidth(width)
	m.glyphTable.SetHeight(viewportHeight)
	viewportHeight = m.adjustGlyphTableHeight(height)
	if m.layout.height != viewportHeight {
		m.layout.height = viewportHeight
		m.glyphTable.SetHeight(viewportHeight)
	}
}

func glyphTableStyles() table.Styles {
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

// adjustGlyphTableHeight grows or shrinks the table until its rendered view
// fills the body exactly.
func (m *Model) adjustGlyphTableHeight(bodyHeight int) int {
	target := max(1, bodyHeight)
	height := m.glyphTable.Height()
	for i := 0; i < 2; i++ {
		viewHeight := lipgloss.Height(m.glyphTable.View())
		if viewHeight == target {
			return height
		}
		height = max(1, height+target-viewHeight)
		m.glyphTable.SetHeight(height)
	}
	return height
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	sinceInput := strings.TrimSpace(m.filterInputs[0].Value())
	var since *time.Time
	if sinceInput != "" {
		parsed, err := time.ParseInLocation("2006-01-02", sinceInput, time.Local)
		if err != nil {
			return fmt.Errorf("invalid since date (expected YYYY-MM-DD)")
		}
		since = &parsed
	}

	lastInput := strings.TrimSpace(m.filterInputs[1].Value())
	last := 0
	if lastInput != "" {
		parsed, err := strconv.Atoi(lastInput)
		if err != nil || parsed < 0 {
			return fmt.Errorf("invalid last value (use 0 or positive integer)")
		}
		last = parsed
	}

	windowInput := strings.TrimSpace(m.filterInputs[2].Value())
	window := 0
	if windowInput != "" {
		parsed, err := strconv.Atoi(windowInput)
		if err != nil {
			return fmt.Errorf("invalid curve window (use integer)")
		}
		if parsed < 1 {
			return fmt.Errorf("invalid curve window (use integer >= 1)")
		}
		window = parsed
	}

	m.cfg = model.StatsConfig{
		Since:       since,
		Last:        last,
		CurveWindow: window,
	}
	return nil
}

func nextCurveWindow(n int) int {
	if n < 5 {
		return 5
	}
	if n%5 == 0 {
		return n + 5
	}
	return ((n / 5) + 1) * 5
}

func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	if n%5 == 0 {
		return n - 5
	}
	return (n / 5) * 5
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
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
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}
