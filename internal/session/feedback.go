package session

import (
	"strings"
)

// Feedback is the advisory signal shown while an answer is being typed.
type Feedback int

const (
	FeedbackNone    Feedback = iota // Empty input
	FeedbackExact                   // Equals a romanization
	FeedbackPrefix                  // Prefix of a romanization
	FeedbackInvalid                 // Neither
)

func (f Feedback) String() string {
	switch f {
	case FeedbackExact:
		return "exact"
	case FeedbackPrefix:
		return "prefix"
	case FeedbackInvalid:
		return "invalid"
	default:
		return "none"
	}
}

// Classify compares partial input with a set of romanizations, ignoring case
// and surrounding whitespace.
func Classify(partial string, romanizations []string) Feedback {
	in := normalize(partial)
	if in == "" {
		return FeedbackNone
	}
	prefix := false
	for _, r := range romanizations {
		r = strings.ToLower(r)
		if r == in {
			return FeedbackExact
		}
		if strings.HasPrefix(r, in) {
			prefix = true
		}
	}
	if prefix {
		return FeedbackPrefix
	}
	return FeedbackInvalid
}

// LiveFeedback classifies partial input against the current glyph. It is
// FeedbackNone while realtime feedback is disabled.
func (s *Session) LiveFeedback(partial string) Feedback {
	if !s.settings.RealtimeFeedback {
		return FeedbackNone
	}
	return Classify(partial, s.state.Correct)
}
