// Package tui provides the Bubble Tea practice interface.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/jyutdrill/internal/dataset"
	"github.com/verte-zerg/jyutdrill/internal/generator"
	"github.com/verte-zerg/jyutdrill/internal/model"
	"github.com/verte-zerg/jyutdrill/internal/session"
	statsPkg "github.com/verte-zerg/jyutdrill/internal/stats"
	"github.com/verte-zerg/jyutdrill/internal/storage"
)

type screen int

const (
	screenLoading screen = iota
	screenFailed
	screenQuiz
	screenSettings
	screenMistakes
)

// History records finished sessions and provides the weak-glyph window.
type History interface {
	InsertSession(ctx context.Context, rec model.SessionRecord, answers []model.AnswerRecord) (int64, error)
	GetWeakGlyphs(ctx context.Context, window int) ([]model.GlyphAggregate, error)
	ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error)
}

// WeakFocus biases selection toward glyphs answered badly in recent sessions.
type WeakFocus struct {
	Enabled bool
	Top     int
	Factor  float64
	Window  int
}

// Options configures NewModel.
type Options struct {
	Loader      func(ctx context.Context) (*dataset.Dataset, error)
	Persistence *storage.Adapter
	// History may be nil, in which case nothing is recorded.
	History   History
	Settings  model.Settings
	Pool      model.Pool
	Weak      WeakFocus
	Generator *generator.Generator
	Logger    *zap.Logger
	Opener    func(url string) error
	NewID     func() string
}

type datasetLoadedMsg struct {
	data *dataset.Dataset
	err  error
}

type lookupOpenedMsg struct {
	url string
	err error
}

// Model implements the Bubble Tea practice UI.
type Model struct {
	opts   Options
	logger *zap.Logger

	screen  screen
	loadErr error
	data    *dataset.Dataset
	session *session.Session
	picker  *focusPicker

	input    textinput.Model
	feedback session.Feedback

	settings     *settingsForm
	mistakes     table.Model
	mistakeScope model.MistakeScope

	notice       string
	confirmReset bool
	recorded     bool

	width  int
	height int

	lastAcc     float64
	hasLast     bool
	allScore    int
	allAnswered int
}

// focusPicker draws uniformly, or weighted toward weak glyphs when any are set.
type focusPicker struct {
	gen    *generator.Generator
	weak   map[string]struct{}
	factor float64
}

func (p *focusPicker) Draw(glyphs []string) generator.Draw {
	return generator.NewWeighted(p.gen, p.weak, p.factor).Draw(glyphs)
}

// NewModel constructs a practice TUI model. The dataset is loaded by Init.
func NewModel(opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Generator == nil {
		opts.Generator = generator.New()
	}
	if opts.Opener == nil {
		opts.Opener = OpenURL
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Persistence == nil {
		opts.Persistence = storage.New(storage.NewMemory(), opts.Logger)
	}
	m := &Model{
		opts:   opts,
		logger: opts.Logger.Named("tui"),
		screen: screenLoading,
		picker: &focusPicker{gen: opts.Generator, weak: map[string]struct{}{}, factor: opts.Weak.Factor},
	}
	m.input = newAnswerInput()
	m.mistakes = newMistakeTable()
	return m
}

func newAnswerInput() textinput.Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "e.g. jau1"
	input.CharLimit = 16
	input.Width = 18
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

// LoadErr returns the dataset load failure, if any.
func (m *Model) LoadErr() error {
	return m.loadErr
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.loadCmd()
}

func (m *Model) loadCmd() tea.Cmd {
	loader := m.opts.Loader
	return func() tea.Msg {
		if loader == nil {
			return datasetLoadedMsg{err: errNoLoader}
		}
		data, err := loader(context.Background())
		return datasetLoadedMsg{data: data, err: err}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeMistakes()
		return m, nil
	case datasetLoadedMsg:
		return m, m.handleLoaded(msg)
	case lookupOpenedMsg:
		if msg.err != nil {
			m.logger.Warn("failed to open lookup url", zap.String("url", msg.url), zap.Error(msg.err))
			m.notice = "Could not open browser: " + msg.url
		} else {
			m.notice = "Opened " + msg.url
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.finishSession()
			return m, tea.Quit
		}
		switch m.screen {
		case screenLoading:
			return m, nil
		case screenFailed:
			if msg.Type == tea.KeyEsc || msg.String() == "q" {
				return m, tea.Quit
			}
			return m, nil
		case screenSettings:
			return m.updateSettings(msg)
		case screenMistakes:
			return m.updateMistakes(msg)
		default:
			return m.updateQuiz(msg)
		}
	}
	if m.screen == screenQuiz || m.screen == screenSettings {
		var cmd tea.Cmd
		if m.screen == screenSettings && m.settings != nil {
			cmd = m.settings.updateBlink(msg)
		} else {
			m.input, cmd = m.input.Update(msg)
		}
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleLoaded(msg datasetLoadedMsg) tea.Cmd {
	if msg.err != nil {
		m.logger.Error("failed to load dataset", zap.Error(msg.err))
		m.loadErr = msg.err
		m.screen = screenFailed
		return nil
	}
	m.data = msg.data
	settings := m.opts.Settings
	if err := settings.Validate(m.data.Len()); err != nil {
		m.logger.Warn("settings do not fit the dataset, using defaults", zap.Error(err))
		settings = model.DefaultSettings()
		settings.Range.Count = max(min(settings.Range.Count, m.data.Len()), 1)
		settings.Range.End = max(min(settings.Range.End, m.data.Len()-1), 0)
	}
	m.session = session.New(session.Options{
		Dataset:     m.data,
		Persistence: m.opts.Persistence,
		Picker:      m.picker,
		Settings:    settings,
		Logger:      m.opts.Logger,
	})
	m.loadFooterStats()
	m.refreshWeakSet()
	m.screen = screenQuiz
	return m.startSession(m.opts.Pool)
}

func (m *Model) updateQuiz(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	st := m.session.State()
	if m.confirmReset {
		m.confirmReset = false
		if msg.String() == "y" {
			m.finishSession()
			m.session.ResetAll()
			m.recorded = false
			m.input.Reset()
			m.input.Blur()
			m.setFeedback(session.FeedbackNone)
			m.notice = "Mistakes cleared and settings restored to defaults."
		} else {
			m.notice = ""
		}
		return m, nil
	}
	if st.ShowResults {
		return m.updateResults(msg, st)
	}

	switch msg.Type {
	case tea.KeyEsc:
		m.finishSession()
		return m, tea.Quit
	case tea.KeyCtrlO:
		return m, m.lookupCmd()
	case tea.KeyCtrlE:
		m.session.EndEarly()
		return m, nil
	case tea.KeyCtrlS:
		return m, m.openSettings()
	case tea.KeyCtrlT:
		m.openMistakes()
		return m, nil
	case tea.KeyCtrlN:
		return m, m.startSession(model.PoolRange)
	case tea.KeyCtrlX:
		m.confirmReset = true
		m.notice = "Reset all mistakes and settings? (y/n)"
		return m, nil
	}

	switch st.Phase {
	case session.PhaseAwaiting:
		if msg.Type == tea.KeyEnter || msg.Type == tea.KeySpace {
			return m, m.submit()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.setFeedback(m.session.SetInput(m.input.Value()))
		return m, cmd
	case session.PhaseRevealed, session.PhaseComplete:
		if msg.Type == tea.KeyEnter || msg.Type == tea.KeySpace {
			return m, m.advance()
		}
	case session.PhaseIdle:
		if msg.Type == tea.KeyEnter {
			return m, m.startSession(model.PoolRange)
		}
	}
	return m, nil
}

func (m *Model) updateResults(msg tea.KeyMsg, st session.State) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "n":
		return m, m.startSession(model.PoolRange)
	case "r":
		if len(st.SessionMistakes) > 0 {
			return m, m.startSession(model.PoolSessionMistakes)
		}
	case "c":
		if len(st.CumulativeMistakes) > 0 {
			return m, m.startSession(model.PoolCumulativeMistakes)
		}
	case "esc":
		m.session.DismissResults()
	case "q":
		m.finishSession()
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) submit() tea.Cmd {
	if _, err := m.session.Submit(m.input.Value()); err != nil {
		m.logger.Debug("submit ignored", zap.Error(err))
		return nil
	}
	m.input.Blur()
	m.setFeedback(session.FeedbackNone)
	m.notice = ""
	if m.session.State().Complete {
		m.finishSession()
	}
	return nil
}

func (m *Model) advance() tea.Cmd {
	m.session.Advance()
	return m.syncInput()
}

func (m *Model) startSession(pool model.Pool) tea.Cmd {
	m.finishSession()
	m.recorded = false
	m.notice = ""
	m.session.Start(pool)
	if m.session.State().NoPracticeable {
		m.logger.Warn("no practiceable glyph in range", zap.Any("range", m.session.Settings().Range))
	}
	return m.syncInput()
}

// syncInput clears the answer line and focuses it while a question is open.
func (m *Model) syncInput() tea.Cmd {
	m.input.Reset()
	m.setFeedback(session.FeedbackNone)
	if m.session.State().Phase == session.PhaseAwaiting {
		return m.input.Focus()
	}
	m.input.Blur()
	return nil
}

func (m *Model) lookupCmd() tea.Cmd {
	url, err := m.session.LookupURL()
	if err != nil {
		m.notice = "Lookup unavailable: " + err.Error()
		return nil
	}
	opener := m.opts.Opener
	return func() tea.Msg {
		return lookupOpenedMsg{url: url, err: opener(url)}
	}
}

func (m *Model) setFeedback(f session.Feedback) {
	m.feedback = f
	m.input.TextStyle = feedbackStyle(f)
}

// finishSession stores the running session in the history once it has
// answers.
func (m *Model) finishSession() {
	if m.session == nil || m.recorded {
		return
	}
	st := m.session.State()
	if st.Answered == 0 {
		return
	}
	m.recorded = true
	acc := statsPkg.SessionAccuracy(st.Score, st.Answered)
	m.lastAcc = acc
	m.hasLast = true
	m.allScore += st.Score
	m.allAnswered += st.Answered

	if m.opts.History == nil {
		return
	}
	rec := m.session.Summary()
	rec.UUID = m.opts.NewID()
	if _, err := m.opts.History.InsertSession(context.Background(), rec, m.session.Answers()); err != nil {
		m.logger.Error("failed to save session", zap.String("uuid", rec.UUID), zap.Error(err))
		return
	}
	m.logger.Info("session saved",
		zap.String("uuid", rec.UUID),
		zap.String("pool", string(rec.Pool)),
		zap.Int("score", rec.Score),
		zap.Int("answered", rec.Answered))
	m.refreshWeakSet()
}

func (m *Model) loadFooterStats() {
	if m.opts.History == nil {
		return
	}
	sessions, err := m.opts.History.ListSessions(context.Background(), model.StatsConfig{})
	if err != nil {
		m.logger.Error("failed to load session stats", zap.Error(err))
		return
	}
	if len(sessions) == 0 {
		return
	}
	last := sessions[len(sessions)-1]
	m.lastAcc = statsPkg.SessionAccuracy(last.Score, last.Answered)
	m.hasLast = true
	for _, s := range sessions {
		m.allScore += s.Score
		m.allAnswered += s.Answered
	}
}

func (m *Model) refreshWeakSet() {
	if !m.opts.Weak.Enabled || m.opts.History == nil {
		return
	}
	aggs, err := m.opts.History.GetWeakGlyphs(context.Background(), m.opts.Weak.Window)
	if err != nil {
		m.logger.Error("failed to load weak glyphs", zap.Error(err))
		return
	}
	m.picker.weak = statsPkg.SelectWeakGlyphs(aggs, m.opts.Weak.Top)
	if len(m.picker.weak) == 0 {
		m.logger.Info("no stats available for weak-glyph focus yet; drawing uniformly")
	}
}

func (m *Model) openSettings() tea.Cmd {
	m.settings = newSettingsForm(m.session.Settings(), m.data)
	m.screen = screenSettings
	m.input.Blur()
	return m.settings.focus(0)
}

func (m *Model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	done, apply, cmd := m.settings.update(msg)
	if !done {
		return m, cmd
	}
	if apply {
		if err := m.session.UpdateSettings(m.settings.draft); err != nil {
			m.settings.err = err.Error()
			return m, nil
		}
		m.notice = "Settings saved. They apply from the next question."
	}
	m.settings = nil
	m.screen = screenQuiz
	if m.session.State().Phase == session.PhaseAwaiting {
		return m, m.input.Focus()
	}
	return m, nil
}

func (m *Model) openMistakes() {
	m.screen = screenMistakes
	m.input.Blur()
	m.refreshMistakes()
}

func (m *Model) updateMistakes(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.screen = screenQuiz
		if m.session.State().Phase == session.PhaseAwaiting {
			return m, m.input.Focus()
		}
		return m, nil
	case "tab":
		if m.mistakeScope == model.ScopeCumulative {
			m.mistakeScope = model.ScopeSession
		} else {
			m.mistakeScope = model.ScopeCumulative
		}
		m.refreshMistakes()
		return m, nil
	case "x":
		m.session.ClearMistakes()
		m.refreshMistakes()
		return m, nil
	case "r":
		pool := model.PoolCumulativeMistakes
		if m.mistakeScope == model.ScopeSession {
			pool = model.PoolSessionMistakes
		}
		if len(m.currentMistakes()) == 0 {
			return m, nil
		}
		m.screen = screenQuiz
		return m, m.startSession(pool)
	}
	var cmd tea.Cmd
	m.mistakes, cmd = m.mistakes.Update(msg)
	return m, cmd
}

func (m *Model) currentMistakes() []model.MistakeRecord {
	st := m.session.State()
	if m.mistakeScope == model.ScopeSession {
		return st.SessionMistakes
	}
	return st.CumulativeMistakes
}

func (m *Model) refreshMistakes() {
	m.mistakes.SetRows(mistakeRows(m.currentMistakes()))
	m.resizeMistakes()
}

func rangeSummary(r model.PracticeRange, n int) string {
	start, end := r.Bounds(n)
	if end <= start {
		return "an empty range"
	}
	if r.Mode == model.RangeWindow {
		return fmt.Sprintf("characters %d-%d (%d)", start+1, end, end-start)
	}
	return fmt.Sprintf("the %d most common characters", end)
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
