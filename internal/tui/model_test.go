package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/verte-zerg/jyutdrill/internal/dataset"
	"github.com/verte-zerg/jyutdrill/internal/generator"
	"github.com/verte-zerg/jyutdrill/internal/model"
	"github.com/verte-zerg/jyutdrill/internal/session"
)

type fakeHistory struct {
	inserted []model.SessionRecord
	answers  [][]model.AnswerRecord
	weak     []model.GlyphAggregate
	sessions []model.SessionAggregate
	err      error
}

func (h *fakeHistory) InsertSession(_ context.Context, rec model.SessionRecord, answers []model.AnswerRecord) (int64, error) {
	if h.err != nil {
		return 0, h.err
	}
	h.inserted = append(h.inserted, rec)
	h.answers = append(h.answers, answers)
	return int64(len(h.inserted)), nil
}

func (h *fakeHistory) GetWeakGlyphs(context.Context, int) ([]model.GlyphAggregate, error) {
	return h.weak, nil
}

func (h *fakeHistory) ListSessions(context.Context, model.StatsConfig) ([]model.SessionAggregate, error) {
	return h.sessions, nil
}

func testData() *dataset.Dataset {
	records := []model.CharacterRecord{
		{Glyph: "人", Romanizations: []string{"jan4"}},
		{Glyph: "大", Romanizations: []string{"daai6", "taai3"}},
		{Glyph: "的", Romanizations: []string{"dik1"}},
	}
	return dataset.New(records, []string{"人", "大", "的"}, []string{"%A4H", "%A4j", "%AA%BA"})
}

func testSettings(questions int) model.Settings {
	return model.Settings{
		QuestionsPerSession: questions,
		RealtimeFeedback:    true,
		Range:               model.PracticeRange{Mode: model.RangeCount, Count: 1, End: 0},
	}
}

func loadModel(t *testing.T, opts Options) *Model {
	t.Helper()
	if opts.Loader == nil {
		data := testData()
		opts.Loader = func(context.Context) (*dataset.Dataset, error) { return data, nil }
	}
	if opts.Settings.QuestionsPerSession == 0 {
		opts.Settings = testSettings(5)
	}
	if opts.Generator == nil {
		opts.Generator = generator.NewSeeded(1)
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return "session-1" }
	}
	m := NewModel(opts)
	msg := m.Init()()
	m.Update(msg)
	return m
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestCorrectAnswerFlow(t *testing.T) {
	m := loadModel(t, Options{})
	require.Equal(t, screenQuiz, m.screen)
	st := m.session.State()
	require.Equal(t, session.PhaseAwaiting, st.Phase)
	require.Equal(t, "人", st.Glyph)

	m.Update(keyRunes("jan4"))
	assert.Equal(t, session.FeedbackExact, m.feedback)

	m.Update(key(tea.KeyEnter))
	st = m.session.State()
	assert.Equal(t, session.PhaseRevealed, st.Phase)
	assert.True(t, st.LastCorrect)
	assert.Equal(t, 1, st.Score)
	assert.Contains(t, m.View(), "Correct")

	m.Update(key(tea.KeySpace))
	st = m.session.State()
	assert.Equal(t, session.PhaseAwaiting, st.Phase)
	assert.Empty(t, m.input.Value())
}

func TestSpaceSubmitsEmptyAnswer(t *testing.T) {
	m := loadModel(t, Options{})
	m.Update(key(tea.KeySpace))

	st := m.session.State()
	assert.Equal(t, session.PhaseRevealed, st.Phase)
	assert.False(t, st.LastCorrect)
	require.Len(t, st.SessionMistakes, 1)
	assert.Contains(t, m.View(), "(no answer)")
}

func TestLiveFeedbackTracksInput(t *testing.T) {
	m := loadModel(t, Options{})
	m.Update(keyRunes("ja"))
	assert.Equal(t, session.FeedbackPrefix, m.feedback)
	m.Update(keyRunes("x"))
	assert.Equal(t, session.FeedbackInvalid, m.feedback)
	m.Update(key(tea.KeyBackspace))
	assert.Equal(t, session.FeedbackPrefix, m.feedback)
}

func TestRevealedInputIgnoresTyping(t *testing.T) {
	m := loadModel(t, Options{})
	m.Update(keyRunes("dai"))
	m.Update(key(tea.KeyEnter))
	m.Update(keyRunes("xyz"))
	assert.Equal(t, "dai", m.session.State().Input)
	assert.Equal(t, session.PhaseRevealed, m.session.State().Phase)
}

func TestCompletionRecordsSessionOnce(t *testing.T) {
	hist := &fakeHistory{}
	m := loadModel(t, Options{History: hist})
	for i := 0; i < 5; i++ {
		m.Update(keyRunes("jan4"))
		m.Update(key(tea.KeyEnter))
		if i < 4 {
			m.Update(key(tea.KeyEnter))
		}
	}
	st := m.session.State()
	require.True(t, st.ShowResults)
	require.Len(t, hist.inserted, 1)
	assert.Equal(t, "session-1", hist.inserted[0].UUID)
	assert.Equal(t, 5, hist.inserted[0].Score)
	assert.Len(t, hist.answers[0], 5)
	assert.Contains(t, m.View(), "Excellent")

	m.Update(keyRunes("n"))
	st = m.session.State()
	assert.Equal(t, 2, st.SessionIndex)
	assert.False(t, st.ShowResults)
	assert.Len(t, hist.inserted, 1)
	assert.Contains(t, m.renderFooter(), "Last 100.0%")
}

func TestResultsRetrySessionMistakes(t *testing.T) {
	m := loadModel(t, Options{})
	for i := 0; i < 5; i++ {
		m.Update(key(tea.KeyEnter))
		if i < 4 {
			m.Update(key(tea.KeyEnter))
		}
	}
	require.True(t, m.session.State().ShowResults)
	assert.Contains(t, m.View(), "Keep practising")

	m.Update(keyRunes("r"))
	st := m.session.State()
	assert.Equal(t, model.PoolSessionMistakes, st.Pool)
	assert.Equal(t, 1, st.QuestionsPerSession)
	assert.Equal(t, "人", st.Glyph)
	assert.Equal(t, session.PhaseAwaiting, st.Phase)
}

func TestEndEarly(t *testing.T) {
	hist := &fakeHistory{}
	m := loadModel(t, Options{History: hist})

	m.Update(key(tea.KeyCtrlE))
	assert.False(t, m.session.State().ShowResults)

	m.Update(keyRunes("jan4"))
	m.Update(key(tea.KeyEnter))
	m.Update(key(tea.KeyCtrlE))
	require.True(t, m.session.State().ShowResults)
	assert.Empty(t, hist.inserted)

	m.Update(key(tea.KeyEsc))
	assert.False(t, m.session.State().ShowResults)
	assert.Equal(t, screenQuiz, m.screen)

	m.Update(key(tea.KeyCtrlN))
	require.Len(t, hist.inserted, 1)
	assert.Equal(t, 1, hist.inserted[0].Answered)
}

func TestQuitRecordsUnfinishedSession(t *testing.T) {
	hist := &fakeHistory{}
	m := loadModel(t, Options{History: hist})
	m.Update(keyRunes("jan4"))
	m.Update(key(tea.KeyEnter))

	_, cmd := m.Update(key(tea.KeyEsc))
	assert.True(t, isQuit(cmd))
	assert.Len(t, hist.inserted, 1)
}

func TestHistoryFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	hist := &fakeHistory{err: errors.New("disk full")}
	m := loadModel(t, Options{History: hist, Logger: zap.New(core), Settings: testSettings(5)})
	m.Update(keyRunes("jan4"))
	m.Update(key(tea.KeyEnter))

	m.Update(key(tea.KeyCtrlC))
	assert.Equal(t, 1, logs.FilterMessage("failed to save session").Len())
}

func TestLoadFailureShowsError(t *testing.T) {
	m := loadModel(t, Options{Loader: func(context.Context) (*dataset.Dataset, error) {
		return nil, errors.New("open characters.json: no such file")
	}})
	assert.Equal(t, screenFailed, m.screen)
	view := m.View()
	assert.Contains(t, view, "characters.json")
	assert.Contains(t, view, "jyutdrill dataset")

	_, cmd := m.Update(keyRunes("j"))
	assert.Nil(t, cmd)
	_, cmd = m.Update(keyRunes("q"))
	assert.True(t, isQuit(cmd))
}

func TestLookupOpensURL(t *testing.T) {
	var opened string
	m := loadModel(t, Options{Opener: func(url string) error {
		opened = url
		return nil
	}})
	_, cmd := m.Update(key(tea.KeyCtrlO))
	require.NotNil(t, cmd)
	m.Update(cmd())

	want, err := testData().LookupURL("人")
	require.NoError(t, err)
	assert.Equal(t, want, opened)
	assert.Contains(t, m.notice, "Opened")
}

func TestLookupFailureSetsNotice(t *testing.T) {
	m := loadModel(t, Options{Opener: func(string) error { return errors.New("no browser") }})
	_, cmd := m.Update(key(tea.KeyCtrlO))
	require.NotNil(t, cmd)
	m.Update(cmd())
	assert.Contains(t, m.notice, "Could not open browser")
}

func TestSettingsScreenAppliesQuestions(t *testing.T) {
	m := loadModel(t, Options{})
	m.Update(key(tea.KeyCtrlS))
	require.Equal(t, screenSettings, m.screen)
	assert.Contains(t, m.View(), "Questions per session")

	m.Update(key(tea.KeyRight))
	m.Update(key(tea.KeyEnter))
	assert.Equal(t, screenQuiz, m.screen)
	assert.Equal(t, 10, m.session.Settings().QuestionsPerSession)
	assert.Equal(t, 10, m.session.State().QuestionsPerSession)
}

func TestSettingsScreenCancel(t *testing.T) {
	m := loadModel(t, Options{})
	m.Update(key(tea.KeyCtrlS))
	m.Update(key(tea.KeyDown))
	m.Update(key(tea.KeySpace))
	m.Update(key(tea.KeyEsc))
	assert.Equal(t, screenQuiz, m.screen)
	assert.True(t, m.session.Settings().RealtimeFeedback)
}

func TestSettingsFormRangeFields(t *testing.T) {
	settings := testSettings(5)
	settings.Range = model.PracticeRange{Mode: model.RangeWindow, Start: 0, End: 0}
	f := newSettingsForm(settings, testData())

	assert.False(t, f.visible(fieldCount))
	assert.True(t, f.visible(fieldStart))

	f.focus(fieldEnd)
	f.inputs[fieldEnd].SetValue("3")
	f.applyInput()
	assert.Equal(t, 2, f.draft.Range.End)

	f.focus(fieldStart)
	f.inputs[fieldStart].SetValue("3")
	f.applyInput()
	assert.Equal(t, 2, f.draft.Range.Start)

	f.inputs[fieldStart].SetValue("9")
	f.applyInput()
	assert.Equal(t, 2, f.draft.Range.Start)

	f.focus(fieldEnd)
	assert.Equal(t, "3", f.inputs[fieldEnd].Value())
	f.inputs[fieldEnd].SetValue("1")
	f.applyInput()
	assert.Equal(t, model.PracticeRange{Mode: model.RangeWindow, Start: 0, End: 0}, f.draft.Range)
}

func TestSettingsFormSkipsHiddenFields(t *testing.T) {
	f := newSettingsForm(testSettings(5), testData())
	f.focus(fieldMode)
	f.move(1)
	assert.Equal(t, fieldCount, f.field)
	f.move(1)
	assert.Equal(t, fieldQuestions, f.field)
}

func TestCycleChoice(t *testing.T) {
	assert.Equal(t, 10, cycleChoice(5, 1))
	assert.Equal(t, 50, cycleChoice(5, -1))
	assert.Equal(t, 5, cycleChoice(50, 1))
	assert.Equal(t, 20, cycleChoice(20, 0))
	assert.Equal(t, 5, cycleChoice(7, 1))
}

func TestResetRequiresConfirmation(t *testing.T) {
	m := loadModel(t, Options{})
	m.Update(key(tea.KeyEnter))
	require.Len(t, m.session.State().CumulativeMistakes, 1)

	m.Update(key(tea.KeyCtrlX))
	m.Update(keyRunes("n"))
	assert.Len(t, m.session.State().CumulativeMistakes, 1)

	m.Update(key(tea.KeyCtrlX))
	m.Update(keyRunes("y"))
	st := m.session.State()
	assert.Empty(t, st.CumulativeMistakes)
	assert.Equal(t, session.PhaseIdle, st.Phase)
	assert.Equal(t, model.DefaultSettings(), m.session.Settings())

	m.Update(key(tea.KeyEnter))
	assert.Equal(t, session.PhaseAwaiting, m.session.State().Phase)
}

func TestMistakesScreen(t *testing.T) {
	m := loadModel(t, Options{})
	m.Update(keyRunes("jen4"))
	m.Update(key(tea.KeyEnter))

	m.Update(key(tea.KeyCtrlT))
	require.Equal(t, screenMistakes, m.screen)
	view := m.View()
	assert.Contains(t, view, "人")
	assert.Contains(t, view, "jen4")

	m.Update(key(tea.KeyTab))
	assert.Equal(t, model.ScopeSession, m.mistakeScope)

	m.Update(keyRunes("x"))
	assert.Empty(t, m.session.State().CumulativeMistakes)
	assert.Contains(t, m.View(), "No mistakes recorded")

	m.Update(key(tea.KeyEsc))
	assert.Equal(t, screenQuiz, m.screen)
}

func TestMistakesScreenRetry(t *testing.T) {
	m := loadModel(t, Options{})
	m.Update(key(tea.KeyEnter))
	m.Update(key(tea.KeyCtrlT))
	m.Update(keyRunes("r"))

	assert.Equal(t, screenQuiz, m.screen)
	st := m.session.State()
	assert.Equal(t, model.PoolCumulativeMistakes, st.Pool)
	assert.Equal(t, "人", st.Glyph)
}

func TestWeakFocusLoadsWeakGlyphs(t *testing.T) {
	hist := &fakeHistory{weak: []model.GlyphAggregate{
		{Glyph: "大", Correct: 1, Incorrect: 3},
		{Glyph: "人", Correct: 4, Incorrect: 0},
	}}
	m := loadModel(t, Options{History: hist, Weak: WeakFocus{Enabled: true, Top: 5, Factor: 3, Window: 10}})
	assert.Equal(t, map[string]struct{}{"大": {}}, m.picker.weak)
}

func TestFooterUsesHistory(t *testing.T) {
	hist := &fakeHistory{sessions: []model.SessionAggregate{
		{SessionID: 1, EndedAt: time.Unix(10, 0), Score: 8, Answered: 10},
		{SessionID: 2, EndedAt: time.Unix(20, 0), Score: 1, Answered: 2},
	}}
	m := loadModel(t, Options{History: hist})
	footer := m.renderFooter()
	assert.Contains(t, footer, "Last 50.0%")
	assert.Contains(t, footer, "All-time 75.0%")
	assert.Contains(t, footer, "Question 1/5")
}

func TestInvalidSettingsFallBackToDefaults(t *testing.T) {
	settings := testSettings(7)
	m := loadModel(t, Options{Settings: settings})
	got := m.session.Settings()
	assert.Equal(t, 10, got.QuestionsPerSession)
	assert.Equal(t, 3, got.Range.Count)
}

func TestRangeSummary(t *testing.T) {
	assert.Equal(t, "the 3 most common characters", rangeSummary(model.PracticeRange{Mode: model.RangeCount, Count: 100}, 3))
	assert.Equal(t, "characters 2-3 (2)", rangeSummary(model.PracticeRange{Mode: model.RangeWindow, Start: 1, End: 2}, 3))
}
