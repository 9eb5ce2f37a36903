package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/verte-zerg/jyutdrill/internal/model"
	"github.com/verte-zerg/jyutdrill/internal/session"
	statsPkg "github.com/verte-zerg/jyutdrill/internal/stats"
)

var errNoLoader = errors.New("no dataset loader configured")

const (
	successThreshold   = 70
	excellentThreshold = 90
)

var (
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	currentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle     = lipgloss.NewStyle().Bold(true)
	glyphStyle     = lipgloss.NewStyle().
			Bold(true).
			Padding(1, 4).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6E6E6E"))
	modalStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#C89A3A"))
)

// View implements tea.Model.
func (m *Model) View() string {
	contentWidth := m.contentWidth()
	var content string
	switch m.screen {
	case screenLoading:
		content = pendingStyle.Render("Loading character data…")
	case screenFailed:
		content = m.renderLoadError(contentWidth)
	case screenSettings:
		content = m.settings.view(contentWidth)
	case screenMistakes:
		content = m.renderMistakes()
	default:
		if m.session.State().ShowResults {
			content = m.renderResults(contentWidth)
		} else {
			content = m.renderQuiz(contentWidth)
		}
	}
	if m.width == 0 || m.height == 0 {
		return content
	}
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bodyHeight := m.height - 1
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) contentWidth() int {
	if m.width == 0 {
		return 60
	}
	return max(int(float64(m.width)*0.70), 1)
}

func (m *Model) renderLoadError(width int) string {
	lines := []string{
		incorrectStyle.Render("Failed to load character data."),
		"",
		m.loadErr.Error(),
		"",
		"Run: jyutdrill dataset",
		"",
		footerStyle.Render("q quit"),
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderQuiz(width int) string {
	st := m.session.State()
	var lines []string
	switch {
	case st.NoPracticeable:
		lines = append(lines,
			incorrectStyle.Render("No practiceable characters in the selected range."),
			"",
			pendingStyle.Render("ctrl+s to change the range"))
	case st.Phase == session.PhaseIdle:
		lines = append(lines, pendingStyle.Render("Press enter to start a new session."))
	default:
		lines = append(lines, glyphStyle.Render(st.Glyph), "")
		lines = append(lines, m.renderAnswerLine(st, width)...)
	}
	if m.notice != "" {
		lines = append(lines, "", currentStyle.Render(m.notice))
	}
	lines = append(lines, "", footerStyle.Render(quizHelp(st)))
	return lipgloss.NewStyle().Width(width).Align(lipgloss.Center).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderAnswerLine(st session.State, width int) []string {
	if st.Phase == session.PhaseAwaiting {
		return []string{m.input.View()}
	}
	var verdict string
	if st.LastCorrect {
		verdict = successStyle.Render("✓ Correct")
	} else {
		verdict = incorrectStyle.Render("✗ Incorrect")
	}
	answer := pendingStyle.Render("(no answer)")
	if strings.TrimSpace(st.Input) != "" {
		answer = renderStyledRunes(buildStyledAnswer([]rune(st.Input), st.Correct))
	}
	return []string{
		verdict + "  " + answer,
		wrapStyledRunes(buildStyledWords(st.Correct, currentStyle), max(width-4, 8)),
	}
}

func feedbackStyle(f session.Feedback) lipgloss.Style {
	switch f {
	case session.FeedbackExact:
		return successStyle
	case session.FeedbackPrefix:
		return currentStyle
	case session.FeedbackInvalid:
		return incorrectStyle
	default:
		return correctStyle
	}
}

func quizHelp(st session.State) string {
	var action string
	switch st.Phase {
	case session.PhaseAwaiting:
		action = "enter check"
	case session.PhaseRevealed:
		action = "enter next"
	case session.PhaseComplete:
		action = "enter results"
	default:
		action = "enter start"
	}
	return joinNonEmpty("  ", action, "ctrl+o lookup", "ctrl+e end", "ctrl+s settings", "ctrl+t mistakes", "ctrl+n new", "ctrl+x reset", "esc quit")
}

func (m *Model) renderResults(width int) string {
	st := m.session.State()
	percent := m.session.ScorePercent()
	scoreStyle := incorrectStyle
	if percent >= successThreshold {
		scoreStyle = successStyle
	}
	lines := []string{
		titleStyle.Render(fmt.Sprintf("Session %d complete", st.SessionIndex)),
		"",
		fmt.Sprintf("Score %d/%d  ", st.Score, st.Answered) + scoreStyle.Render(fmt.Sprintf("%.1f%%", percent)),
		fmt.Sprintf("Mistakes this session: %d", len(st.SessionMistakes)),
	}
	if len(st.SessionMistakes) > 0 {
		lines = append(lines, "")
		lines = append(lines, mistakeSummaryLines(st.SessionMistakes, max(width-8, 20))...)
	}
	lines = append(lines, "", performanceMessage(percent, st.Answered))
	actions := []string{"enter new session"}
	if len(st.SessionMistakes) > 0 {
		actions = append(actions, "r retry mistakes")
	}
	if len(st.CumulativeMistakes) > 0 {
		actions = append(actions, "c retry all mistakes")
	}
	actions = append(actions, "esc close", "q quit")
	lines = append(lines, "", footerStyle.Render(strings.Join(actions, "  ")))
	return modalStyle.Render(strings.Join(lines, "\n"))
}

func performanceMessage(percent float64, answered int) string {
	switch {
	case answered == 0:
		return pendingStyle.Render("Nothing left to practise here.")
	case percent >= excellentThreshold:
		return successStyle.Render("Excellent! Your Jyutping is solid.")
	case percent >= successThreshold:
		return currentStyle.Render("Good work. A few more rounds will make it stick.")
	default:
		return incorrectStyle.Render("Keep practising. Retry your mistakes to improve.")
	}
}

func mistakeSummaryLines(records []model.MistakeRecord, width int) []string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{rec.Glyph, displayAnswer(rec.UserAnswer), strings.Join(rec.Romanizations, ", ")})
	}
	headers := []string{"Char", "Your answer", "Jyutping"}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}
	format := func(row []string) string {
		parts := make([]string, len(row))
		for i, cell := range row {
			parts[i] = runewidth.FillRight(cell, widths[i])
		}
		return runewidth.Truncate(strings.TrimRight(strings.Join(parts, "  "), " "), width, "…")
	}
	lines := []string{pendingStyle.Render(format(headers))}
	for _, row := range rows {
		lines = append(lines, format(row))
	}
	return lines
}

func displayAnswer(answer string) string {
	if strings.TrimSpace(answer) == "" {
		return "(no answer)"
	}
	return answer
}

func (m *Model) renderFooter() string {
	if m.session == nil {
		return ""
	}
	st := m.session.State()
	segments := []string{fmt.Sprintf("Session %d", st.SessionIndex)}
	if st.Pool != model.PoolRange {
		segments = append(segments, "Retry "+string(st.Pool))
	}
	segments = append(segments,
		fmt.Sprintf("Question %d/%d", min(st.Answered+1, max(st.QuestionsPerSession, 1)), st.QuestionsPerSession),
		fmt.Sprintf("Score %d", st.Score))
	if m.hasLast {
		segments = append(segments, fmt.Sprintf("Last %.1f%%", m.lastAcc*100))
	}
	if m.allAnswered > 0 {
		segments = append(segments, fmt.Sprintf("All-time %.1f%%", statsPkg.SessionAccuracy(m.allScore, m.allAnswered)*100))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func newMistakeTable() table.Model {
	t := table.New(
		table.WithColumns(mistakeColumns(40)),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).Bold(true)
	styles.Selected = styles.Selected.Foreground(lipgloss.Color("#C89A3A")).Bold(false)
	t.SetStyles(styles)
	return t
}

func mistakeColumns(width int) []table.Column {
	when := 16
	glyph := 6
	answer := max((width-glyph-when)/2, 10)
	return []table.Column{
		{Title: "Char", Width: glyph},
		{Title: "Jyutping", Width: answer},
		{Title: "Your answer", Width: answer},
		{Title: "When", Width: when},
	}
}

func mistakeRows(records []model.MistakeRecord) []table.Row {
	rows := make([]table.Row, 0, len(records))
	for _, rec := range records {
		rows = append(rows, table.Row{
			rec.Glyph,
			strings.Join(rec.Romanizations, ", "),
			displayAnswer(rec.UserAnswer),
			rec.At().Format("2006-01-02 15:04"),
		})
	}
	return rows
}

func (m *Model) resizeMistakes() {
	width := m.contentWidth()
	m.mistakes.SetColumns(mistakeColumns(width))
	m.mistakes.SetWidth(width)
	if m.height > 0 {
		m.mistakes.SetHeight(max(m.height-8, 3))
	}
}

func (m *Model) renderMistakes() string {
	cumulative := "Cumulative"
	sessionTab := "This session"
	if m.mistakeScope == model.ScopeSession {
		sessionTab = currentStyle.Render("[" + sessionTab + "]")
	} else {
		cumulative = currentStyle.Render("[" + cumulative + "]")
	}
	count := len(m.currentMistakes())
	lines := []string{
		titleStyle.Render("Mistakes") + "  " + cumulative + "  " + sessionTab,
		pendingStyle.Render(strconv.Itoa(count) + " recorded"),
		"",
	}
	if count == 0 {
		lines = append(lines, pendingStyle.Render("No mistakes recorded."))
	} else {
		lines = append(lines, m.mistakes.View())
	}
	lines = append(lines, "", footerStyle.Render("tab switch  r retry  x clear all  esc back"))
	return strings.Join(lines, "\n")
}
