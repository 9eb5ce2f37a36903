package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/jyutdrill/internal/model"
	"github.com/verte-zerg/jyutdrill/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "jyutdrill.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var ids []int64
	for i := 0; i < 3; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Minute)
		end := start.Add(30 * time.Second)
		rec := model.SessionRecord{
			UUID:       "session",
			StartedAt:  start,
			EndedAt:    end,
			Pool:       model.PoolRange,
			Questions:  2,
			Score:      1,
			Answered:   2,
			DurationMs: end.Sub(start).Milliseconds(),
		}
		answers := []model.AnswerRecord{
			{Glyph: "人", Answer: "jan4", Correct: true, AnsweredAt: start},
			{Glyph: "大", Answer: "daai", Correct: false, AnsweredAt: end},
		}
		id, err := st.InsertSession(ctx, rec, answers)
		if err != nil {
			t.Fatalf("insert session: %v", err)
		}
		ids = append(ids, id)
	}

	cfg := model.StatsConfig{
		Last:        2,
		CurveWindow: 2,
	}
	report, err := BuildReport(ctx, st, cfg)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(report.Sessions))
	}
	if report.Sessions[0].SessionID != ids[1] || report.Sessions[1].SessionID != ids[2] {
		t.Fatalf("unexpected session ids: %+v", report.Sessions)
	}
	if len(report.WindowSessionIDs) != 2 {
		t.Fatalf("expected 2 window session ids, got %d", len(report.WindowSessionIDs))
	}
	if len(report.GlyphAggsAll) != 2 {
		t.Fatalf("expected aggregates for 2 glyphs, got %+v", report.GlyphAggsAll)
	}
	if len(report.GlyphAggsWindow) == 0 {
		t.Fatalf("expected glyph aggregates for window sessions")
	}
	if len(report.WeakGlyphs) != 1 || report.WeakGlyphs[0] != "大" {
		t.Fatalf("unexpected weak glyphs: %v", report.WeakGlyphs)
	}
	if len(report.AccuracyCurve) != 2 || report.AccuracyCurve[1] != 50 {
		t.Fatalf("unexpected accuracy curve: %v", report.AccuracyCurve)
	}
}
