package stats

import (
	"context"

	"github.com/verte-zerg/jyutdrill/internal/model"
	"github.com/verte-zerg/jyutdrill/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions         []model.SessionAggregate
	WindowSessionIDs []int64
	GlyphAggsAll     []model.GlyphAggregate
	GlyphAggsWindow  []model.GlyphAggregate
	AccuracyCurve    []float64
	WeakGlyphs       []string
}

// BuildReport loads and prepares data for stats rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}

	allIDs := sessionIDs(sessions)
	windowIDs := lastSessionIDs(sessions, cfg.CurveWindow)
	glyphAggsAll, err := st.ListGlyphAggregatesForSessions(ctx, allIDs)
	if err != nil {
		return Report{}, err
	}
	glyphAggsWindow, err := st.ListGlyphAggregatesForSessions(ctx, windowIDs)
	if err != nil {
		return Report{}, err
	}

	weak := SelectWeakGlyphs(glyphAggsWindow, weakReportSize)
	weakList := make([]string, 0, len(weak))
	for _, row := range GlyphRows(glyphAggsWindow) {
		if _, ok := weak[row.Glyph]; ok {
			weakList = append(weakList, row.Glyph)
		}
	}

	return Report{
		Sessions:         sessions,
		WindowSessionIDs: windowIDs,
		GlyphAggsAll:     glyphAggsAll,
		GlyphAggsWindow:  glyphAggsWindow,
		AccuracyCurve:    AccuracyCurve(sessions, cfg.CurveWindow),
		WeakGlyphs:       weakList,
	}, nil
}

const weakReportSize = 10

func sessionIDs(sessions []model.SessionAggregate) []int64 {
	ids := make([]int64, len(sessions))
	for i, s := range sessions {
		ids[i] = s.SessionID
	}
	return ids
}

func lastSessionIDs(sessions []model.SessionAggregate, window int) []int64 {
	if window <= 0 || len(sessions) <= window {
		return sessionIDs(sessions)
	}
	return sessionIDs(sessions[len(sessions)-window:])
}
