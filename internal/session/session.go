// Package session implements the practice session state machine.
package session

import (
	"errors"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/verte-zerg/jyutdrill/internal/generator"
	"github.com/verte-zerg/jyutdrill/internal/model"
)

// ErrNotAwaiting is returned when an answer is submitted without an open question.
var ErrNotAwaiting = errors.New("no question awaiting an answer")

// Phase is the current phase of the session.
type Phase int

const (
	PhaseIdle     Phase = iota // No active question
	PhaseAwaiting              // Question shown, input editable
	PhaseRevealed              // Answer checked, input locked
	PhaseComplete              // Question count reached
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaiting:
		return "awaiting"
	case PhaseRevealed:
		return "revealed"
	case PhaseComplete:
		return "complete"
	default:
		return "idle"
	}
}

// Dataset is the character data the session draws from.
type Dataset interface {
	Lookup(glyph string) (model.CharacterRecord, bool)
	Range(r model.PracticeRange) []string
	Len() int
	LookupURL(glyph string) (string, error)
}

// Persistence mirrors mistake logs and settings to durable storage. It must
// not fail; implementations log and swallow their own errors.
type Persistence interface {
	LoadMistakes(scope model.MistakeScope) []model.MistakeRecord
	SaveMistakes(scope model.MistakeScope, records []model.MistakeRecord)
	ClearMistakes(scope model.MistakeScope)
	SaveSettings(settings model.Settings)
}

// Picker orders candidate glyphs for selection.
type Picker interface {
	Draw(glyphs []string) generator.Draw
}

// State is the observable state of a session.
type State struct {
	Phase       Phase
	Glyph       string
	Correct     []string
	Input       string
	LastCorrect bool

	Score               int
	Answered            int
	QuestionsPerSession int
	SessionIndex        int
	Pool                model.Pool

	Complete       bool
	ShowResults    bool
	NoPracticeable bool

	CumulativeMistakes []model.MistakeRecord
	SessionMistakes    []model.MistakeRecord
}

// Options configures a Session.
type Options struct {
	Dataset     Dataset
	Persistence Persistence
	Picker      Picker
	Settings    model.Settings
	Logger      *zap.Logger
	Now         func() time.Time
}

// Session owns the state of one user's practice.
type Session struct {
	data    Dataset
	persist Persistence
	picker  Picker
	logger  *zap.Logger
	now     func() time.Time

	settings  model.Settings
	state     State
	retry     []string
	answers   []model.AnswerRecord
	startedAt time.Time
}

// New constructs a Session in the idle phase, restoring both mistake logs
// from persistence.
func New(opts Options) *Session {
	s := &Session{
		data:     opts.Dataset,
		persist:  opts.Persistence,
		picker:   opts.Picker,
		logger:   opts.Logger,
		now:      opts.Now,
		settings: opts.Settings,
	}
	if s.picker == nil {
		s.picker = generator.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.state = State{
		Phase:               PhaseIdle,
		QuestionsPerSession: s.settings.QuestionsPerSession,
		Pool:                model.PoolRange,
		CumulativeMistakes:  s.persist.LoadMistakes(model.ScopeCumulative),
		SessionMistakes:     s.persist.LoadMistakes(model.ScopeSession),
	}
	return s
}

// State returns a snapshot of the session state.
func (s *Session) State() State {
	st := s.state
	st.Correct = slices.Clone(s.state.Correct)
	st.CumulativeMistakes = slices.Clone(s.state.CumulativeMistakes)
	st.SessionMistakes = slices.Clone(s.state.SessionMistakes)
	return st
}

// Settings returns the current settings.
func (s *Session) Settings() model.Settings {
	return s.settings
}

// SelectNext picks a random practiceable glyph from the active pool and opens
// a question for it. It reports false when the pool has none left.
func (s *Session) SelectNext() bool {
	var candidates []string
	if s.state.Pool == model.PoolRange {
		candidates = s.data.Range(s.settings.Range)
	} else {
		candidates = s.retry
	}

	draw := s.picker.Draw(candidates)
	var used []string
	defer func() {
		if s.state.Pool != model.PoolRange && len(used) > 0 {
			s.retry = slices.DeleteFunc(slices.Clone(s.retry), func(g string) bool { return slices.Contains(used, g) })
		}
	}()
	for {
		glyph, ok := draw()
		if !ok {
			break
		}
		used = append(used, glyph)
		rec, found := s.data.Lookup(glyph)
		if !found {
			s.logger.Warn("glyph missing from dataset", zap.String("glyph", glyph))
			continue
		}
		if !rec.Practiceable() {
			continue
		}
		s.state.Glyph = rec.Glyph
		s.state.Correct = slices.Clone(rec.Romanizations)
		s.state.Input = ""
		s.state.LastCorrect = false
		s.state.NoPracticeable = false
		s.state.Phase = PhaseAwaiting
		return true
	}

	s.state.Glyph = ""
	s.state.Correct = nil
	s.state.Input = ""
	s.state.Phase = PhaseIdle
	if s.state.Pool == model.PoolRange {
		s.state.NoPracticeable = true
	} else {
		s.state.ShowResults = true
	}
	return false
}

// SetInput stores the in-progress answer and returns its live feedback.
func (s *Session) SetInput(input string) Feedback {
	if s.state.Phase != PhaseAwaiting {
		return FeedbackNone
	}
	s.state.Input = input
	return s.LiveFeedback(input)
}

// Submit checks input against the current glyph's romanizations.
func (s *Session) Submit(input string) (bool, error) {
	if s.state.Phase != PhaseAwaiting {
		return false, ErrNotAwaiting
	}
	s.state.Input = input
	normalized := normalize(input)
	correct := slices.ContainsFunc(s.state.Correct, func(r string) bool {
		return strings.ToLower(r) == normalized
	})

	now := s.now()
	glyph := s.state.Glyph
	if correct {
		s.state.Score++
		s.state.CumulativeMistakes = removeMistake(s.state.CumulativeMistakes, glyph)
		s.state.SessionMistakes = removeMistake(s.state.SessionMistakes, glyph)
	} else {
		rec := model.MistakeRecord{
			Glyph:         glyph,
			Romanizations: slices.Clone(s.state.Correct),
			UserAnswer:    input,
			Timestamp:     now.UnixMilli(),
		}
		s.state.CumulativeMistakes = upsertMistake(s.state.CumulativeMistakes, rec)
		s.state.SessionMistakes = upsertMistake(s.state.SessionMistakes, rec)
	}
	s.persist.SaveMistakes(model.ScopeCumulative, s.state.CumulativeMistakes)
	s.persist.SaveMistakes(model.ScopeSession, s.state.SessionMistakes)

	if s.startedAt.IsZero() {
		s.startedAt = now
	}
	s.answers = append(s.answers, model.AnswerRecord{
		Glyph:      glyph,
		Answer:     input,
		Correct:    correct,
		AnsweredAt: now,
	})
	s.state.Answered++
	s.state.LastCorrect = correct
	s.state.Complete = s.state.Answered >= s.state.QuestionsPerSession
	if s.state.Complete {
		s.state.ShowResults = true
		s.state.Phase = PhaseComplete
	} else {
		s.state.Phase = PhaseRevealed
	}
	return correct, nil
}

// Advance moves past a revealed answer. Once the session is complete it only
// surfaces the results view.
func (s *Session) Advance() {
	if s.state.Complete {
		s.state.ShowResults = true
		return
	}
	s.SelectNext()
}

// Start begins a new session drawing from pool. Mistake pools snapshot the
// chosen log and serve each of its glyphs once.
func (s *Session) Start(pool model.Pool) {
	var retry []string
	switch pool {
	case model.PoolSessionMistakes:
		retry = mistakeGlyphs(s.state.SessionMistakes)
	case model.PoolCumulativeMistakes:
		retry = mistakeGlyphs(s.state.CumulativeMistakes)
	default:
		pool = model.PoolRange
	}

	s.state.Score = 0
	s.state.Answered = 0
	s.state.Complete = false
	s.state.ShowResults = false
	s.state.NoPracticeable = false
	s.state.LastCorrect = false
	s.state.SessionMistakes = nil
	s.state.SessionIndex++
	s.state.Pool = pool
	s.retry = retry
	s.answers = nil
	s.startedAt = s.now()
	if pool == model.PoolRange {
		s.state.QuestionsPerSession = s.settings.QuestionsPerSession
	} else {
		s.state.QuestionsPerSession = len(retry)
	}
	s.persist.ClearMistakes(model.ScopeSession)

	if pool != model.PoolRange && len(retry) == 0 {
		s.state.Glyph = ""
		s.state.Correct = nil
		s.state.Input = ""
		s.state.Phase = PhaseIdle
		s.state.ShowResults = true
		return
	}
	s.SelectNext()
}

// EndEarly surfaces the results view before the question count is reached.
// It does nothing until at least one answer was submitted.
func (s *Session) EndEarly() {
	if s.state.Answered == 0 {
		return
	}
	s.state.ShowResults = true
}

// DismissResults hides the results view.
func (s *Session) DismissResults() {
	s.state.ShowResults = false
}

// ClearMistakes empties both mistake logs, in memory and in storage.
func (s *Session) ClearMistakes() {
	s.state.CumulativeMistakes = nil
	s.state.SessionMistakes = nil
	s.persist.ClearMistakes(model.ScopeCumulative)
	s.persist.ClearMistakes(model.ScopeSession)
}

// ResetAll clears both mistake logs and restores default settings.
func (s *Session) ResetAll() {
	s.ClearMistakes()
	s.settings = model.DefaultSettings()
	s.persist.SaveSettings(s.settings)
	s.retry = nil
	s.answers = nil
	s.startedAt = time.Time{}
	s.state = State{
		Phase:               PhaseIdle,
		QuestionsPerSession: s.settings.QuestionsPerSession,
		Pool:                model.PoolRange,
	}
}

// UpdateSettings validates and stores new settings. They apply from the next
// selection; the question count of a running session is kept.
func (s *Session) UpdateSettings(settings model.Settings) error {
	if err := settings.Validate(s.data.Len()); err != nil {
		return err
	}
	s.settings = settings
	s.persist.SaveSettings(settings)
	if s.state.Pool == model.PoolRange && s.state.Answered == 0 {
		s.state.QuestionsPerSession = settings.QuestionsPerSession
	}
	return nil
}

// LookupURL returns the external dictionary URL for the current glyph.
func (s *Session) LookupURL() (string, error) {
	return s.data.LookupURL(s.state.Glyph)
}

// Answers returns the answers submitted in the current session.
func (s *Session) Answers() []model.AnswerRecord {
	return slices.Clone(s.answers)
}

// Summary describes the current session for the history store.
func (s *Session) Summary() model.SessionRecord {
	ended := s.now()
	return model.SessionRecord{
		StartedAt:  s.startedAt,
		EndedAt:    ended,
		Pool:       s.state.Pool,
		Questions:  s.state.QuestionsPerSession,
		Score:      s.state.Score,
		Answered:   s.state.Answered,
		DurationMs: ended.Sub(s.startedAt).Milliseconds(),
	}
}

// ScorePercent returns the share of correct answers in percent.
func (s *Session) ScorePercent() float64 {
	if s.state.Answered == 0 {
		return 0
	}
	return float64(s.state.Score) / float64(s.state.Answered) * 100
}

func normalize(input string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(input)))
}

func upsertMistake(log []model.MistakeRecord, rec model.MistakeRecord) []model.MistakeRecord {
	i := slices.IndexFunc(log, func(m model.MistakeRecord) bool { return m.Glyph == rec.Glyph })
	if i < 0 {
		return append(log, rec)
	}
	out := slices.Clone(log)
	out[i] = rec
	return out
}

func removeMistake(log []model.MistakeRecord, glyph string) []model.MistakeRecord {
	return slices.DeleteFunc(slices.Clone(log), func(m model.MistakeRecord) bool { return m.Glyph == glyph })
}

func mistakeGlyphs(log []model.MistakeRecord) []string {
	out := make([]string, 0, len(log))
	for _, m := range log {
		out = append(out, m.Glyph)
	}
	return out
}
