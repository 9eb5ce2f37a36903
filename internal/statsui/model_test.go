package statsui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/jyutdrill/internal/model"
	"github.com/verte-zerg/jyutdrill/internal/store"
)

type staticMistakes map[model.MistakeScope][]model.MistakeRecord

func (s staticMistakes) LoadMistakes(scope model.MistakeScope) []model.MistakeRecord {
	return s[scope]
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "jyutdrill.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedSessions(t *testing.T, st *store.Store) {
	t.Helper()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, correct := range []bool{false, true} {
		start := base.Add(time.Duration(i) * time.Hour)
		answers := []model.AnswerRecord{
			{Glyph: "人", Answer: "jan4", Correct: true, AnsweredAt: start},
			{Glyph: "大", Answer: "daai", Correct: correct, AnsweredAt: start},
		}
		score := 1
		if correct {
			score = 2
		}
		_, err := st.InsertSession(context.Background(), model.SessionRecord{
			UUID:       "s",
			StartedAt:  start,
			EndedAt:    start.Add(time.Minute),
			Pool:       model.PoolRange,
			Questions:  2,
			Score:      score,
			Answered:   2,
			DurationMs: 60000,
		}, answers)
		require.NoError(t, err)
	}
}

func sized(t *testing.T, m *Model) *Model {
	t.Helper()
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func TestOverviewShowsSummary(t *testing.T) {
	st := openStore(t)
	seedSessions(t, st)
	m := sized(t, NewModel(st, nil, model.StatsConfig{CurveWindow: 5}, nil))

	view := m.View()
	assert.Contains(t, view, "Sessions")
	assert.Contains(t, view, "75.0%")
	assert.Contains(t, view, "Accuracy [")
	assert.Contains(t, view, "大")
}

func TestEmptyStore(t *testing.T) {
	m := sized(t, NewModel(openStore(t), nil, model.StatsConfig{CurveWindow: 5}, nil))
	assert.Contains(t, m.View(), "No sessions found.")
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Contains(t, m.View(), "No sessions found.")
}

func TestGlyphTableSortsWeakestFirst(t *testing.T) {
	st := openStore(t)
	seedSessions(t, st)
	m := sized(t, NewModel(st, nil, model.StatsConfig{CurveWindow: 5}, nil))
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	require.Equal(t, tabGlyphTable, m.activeTab)

	view := m.View()
	weak := strings.Index(view, "大")
	strong := strings.Index(view, "人")
	require.True(t, weak >= 0 && strong >= 0, "both glyphs should be listed")
	assert.Less(t, weak, strong)
	assert.Contains(t, view, "50.00%")
}

func TestMistakesTabTogglesScope(t *testing.T) {
	source := staticMistakes{
		model.ScopeCumulative: {{Glyph: "的", Romanizations: []string{"dik1"}, UserAnswer: "dek1", Timestamp: 1}},
	}
	m := sized(t, NewModel(openStore(t), source, model.StatsConfig{CurveWindow: 5}, nil))
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	require.Equal(t, tabMistakes, m.activeTab)
	view := m.View()
	assert.Contains(t, view, "Cumulative mistakes")
	assert.Contains(t, view, "dek1")

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	view = m.View()
	assert.Contains(t, view, "Last session mistakes")
	assert.Contains(t, view, "No mistakes recorded.")
}

func TestFilterRejectsBadDate(t *testing.T) {
	m := sized(t, NewModel(openStore(t), nil, model.StatsConfig{CurveWindow: 5}, nil))
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	require.True(t, m.filterMode)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("yesterday")})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.filterMode)
	assert.Contains(t, m.filterError, "invalid since date")

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.filterMode)
}

func TestFilterAppliesLast(t *testing.T) {
	st := openStore(t)
	seedSessions(t, st)
	m := sized(t, NewModel(st, nil, model.StatsConfig{CurveWindow: 5}, nil))
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("1")})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	require.False(t, m.filterMode)
	assert.Equal(t, 1, m.cfg.Last)
	assert.Len(t, m.report.Sessions, 1)
	assert.Contains(t, m.View(), "last=1")
}

func TestCurveWindowKeys(t *testing.T) {
	m := sized(t, NewModel(openStore(t), nil, model.StatsConfig{CurveWindow: 3}, nil))
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("=")})
	assert.Equal(t, 5, m.cfg.CurveWindow)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("-")})
	assert.Equal(t, 1, m.cfg.CurveWindow)
}

func TestCurveWindowSteps(t *testing.T) {
	assert.Equal(t, 5, nextCurveWindow(1))
	assert.Equal(t, 10, nextCurveWindow(5))
	assert.Equal(t, 10, nextCurveWindow(7))
	assert.Equal(t, 1, prevCurveWindow(5))
	assert.Equal(t, 5, prevCurveWindow(7))
	assert.Equal(t, 10, prevCurveWindow(15))
}

func TestFitLinesPadsAndClips(t *testing.T) {
	out := fitLines("a\nb\nc", 3, 2)
	assert.Equal(t, "a  \nb  ", out)
	out = fitLines("人", 4, 2)
	assert.Equal(t, "人  \n    ", out)
}

func TestTruncateLineUsesDisplayWidth(t *testing.T) {
	assert.Equal(t, "abc", truncateLine("abc", 5))
	assert.Equal(t, "a...", truncateLine("abcdef", 4))
	assert.Equal(t, "人...", truncateLine("人人人人", 5))
}
