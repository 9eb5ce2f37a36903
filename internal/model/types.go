// Package model defines shared data structures.
package model

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidSettings is returned when settings fail validation.
var ErrInvalidSettings = errors.New("invalid settings")

// QuestionChoices lists the allowed questions-per-session values.
var QuestionChoices = []int{5, 10, 20, 30, 50}

const (
	defaultQuestions  = 10
	defaultRangeCount = 100
)

// CharacterRecord is one entry of the character dataset.
type CharacterRecord struct {
	Glyph         string   `json:"char"`
	Codepoint     string   `json:"ucn"`
	Romanizations []string `json:"kCantonese"`
	Big5          string   `json:"big5"`
}

// Practiceable reports whether the record has at least one romanization.
func (r CharacterRecord) Practiceable() bool {
	return len(r.Romanizations) > 0
}

// RangeMode selects how a PracticeRange is interpreted.
type RangeMode string

const (
	// RangeCount takes the first Count glyphs of the frequency list.
	RangeCount RangeMode = "count"
	// RangeWindow takes the inclusive index window [Start, End].
	RangeWindow RangeMode = "window"
)

// PracticeRange selects the glyphs a session draws from.
type PracticeRange struct {
	Mode  RangeMode `json:"mode"`
	Count int       `json:"count"`
	Start int       `json:"start"`
	End   int       `json:"end"`
}

// Bounds returns the half-open index interval of the range clamped to a list
// of n glyphs.
func (r PracticeRange) Bounds(n int) (start, end int) {
	if n <= 0 {
		return 0, 0
	}
	if r.Mode == RangeWindow {
		start = max(0, r.Start)
		end = min(r.End, n-1) + 1
		if start >= end {
			return 0, 0
		}
		return start, end
	}
	return 0, min(max(r.Count, 0), n)
}

// Validate checks the range invariants against a list of n glyphs. A
// non-positive n skips the upper-bound checks.
func (r PracticeRange) Validate(n int) error {
	switch r.Mode {
	case RangeCount:
		if r.Count <= 0 {
			return fmt.Errorf("%w: count must be > 0", ErrInvalidSettings)
		}
	case RangeWindow:
		if r.Start < 0 || r.Start > r.End {
			return fmt.Errorf("%w: window must satisfy 0 <= start <= end", ErrInvalidSettings)
		}
		if n > 0 && r.End >= n {
			return fmt.Errorf("%w: window end %d beyond %d glyphs", ErrInvalidSettings, r.End+1, n)
		}
	default:
		return fmt.Errorf("%w: unknown range mode %q", ErrInvalidSettings, r.Mode)
	}
	return nil
}

// ParsePosition parses a 1-based list position and returns the 0-based
// index. Non-numeric or out-of-bounds input reports false.
func ParsePosition(input string, n int) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || v < 1 || v > n {
		return 0, false
	}
	return v - 1, true
}

// WithStart moves the window start to the 1-based position input. The end is
// pushed up so the window stays non-empty. Invalid input leaves r unchanged.
func (r PracticeRange) WithStart(input string, n int) (PracticeRange, bool) {
	idx, ok := ParsePosition(input, n)
	if !ok {
		return r, false
	}
	r.Start = idx
	r.End = max(idx, r.End)
	return r, true
}

// WithEnd moves the window end to the 1-based position input. The start is
// pulled down so the window stays non-empty. Invalid input leaves r unchanged.
func (r PracticeRange) WithEnd(input string, n int) (PracticeRange, bool) {
	idx, ok := ParsePosition(input, n)
	if !ok {
		return r, false
	}
	r.Start = min(r.Start, idx)
	r.End = idx
	return r, true
}

// WithCount sets the glyph count of count mode. Invalid input leaves r
// unchanged.
func (r PracticeRange) WithCount(input string, n int) (PracticeRange, bool) {
	idx, ok := ParsePosition(input, n)
	if !ok {
		return r, false
	}
	r.Count = idx + 1
	return r, true
}

// Settings defines practice settings persisted across sessions.
type Settings struct {
	QuestionsPerSession int           `json:"questionsPerSession"`
	RealtimeFeedback    bool          `json:"realtimeFeedbackEnabled"`
	Range               PracticeRange `json:"range"`
}

// DefaultSettings returns the settings restored by a full reset.
func DefaultSettings() Settings {
	return Settings{
		QuestionsPerSession: defaultQuestions,
		RealtimeFeedback:    true,
		Range: PracticeRange{
			Mode:  RangeCount,
			Count: defaultRangeCount,
			Start: 0,
			End:   defaultRangeCount - 1,
		},
	}
}

// Validate checks settings against a frequency list of n glyphs.
func (s Settings) Validate(n int) error {
	if !slices.Contains(QuestionChoices, s.QuestionsPerSession) {
		return fmt.Errorf("%w: questions per session must be one of %v", ErrInvalidSettings, QuestionChoices)
	}
	return s.Range.Validate(n)
}

// MistakeScope names one of the two mistake logs.
type MistakeScope int

const (
	// ScopeCumulative is the log kept across sessions.
	ScopeCumulative MistakeScope = iota
	// ScopeSession is the log of the current session.
	ScopeSession
)

func (s MistakeScope) String() string {
	if s == ScopeSession {
		return "session"
	}
	return "cumulative"
}

// MistakeRecord is the last incorrect answer given for a glyph.
type MistakeRecord struct {
	Glyph         string   `json:"char"`
	Romanizations []string `json:"correctJyutping"`
	UserAnswer    string   `json:"userAnswer"`
	Timestamp     int64    `json:"timestamp"`
}

// At returns the record timestamp as a time.
func (m MistakeRecord) At() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// Pool names the glyph source of a session.
type Pool string

const (
	// PoolRange draws from the configured practice range.
	PoolRange Pool = "range"
	// PoolSessionMistakes retries the mistakes of the last session.
	PoolSessionMistakes Pool = "session"
	// PoolCumulativeMistakes retries every stored mistake.
	PoolCumulativeMistakes Pool = "cumulative"
)

// ParsePool parses a pool name as used on the command line.
func ParsePool(s string) (Pool, error) {
	switch Pool(s) {
	case PoolRange, PoolSessionMistakes, PoolCumulativeMistakes:
		return Pool(s), nil
	case "":
		return PoolRange, nil
	}
	return "", fmt.Errorf("unknown pool %q (use range, session or cumulative)", s)
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Since       *time.Time
	Last        int
	CurveWindow int
}

// SessionRecord captures a completed practice session.
type SessionRecord struct {
	UUID       string
	StartedAt  time.Time
	EndedAt    time.Time
	Pool       Pool
	Questions  int
	Score      int
	Answered   int
	DurationMs int64
}

// AnswerRecord is one submitted answer of a session.
type AnswerRecord struct {
	Glyph      string
	Answer     string
	Correct    bool
	AnsweredAt time.Time
}

// GlyphAggregate aggregates answers for a glyph across sessions.
type GlyphAggregate struct {
	Glyph     string
	Correct   int
	Incorrect int
}

// SessionAggregate summarizes a session for reporting.
type SessionAggregate struct {
	SessionID  int64
	EndedAt    time.Time
	Pool       Pool
	Score      int
	Answered   int
	DurationMs int64
}
