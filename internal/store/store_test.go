package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/jyutdrill/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "jyutdrill.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestKVRoundTrip(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	if _, ok, err := st.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected absent key, got ok=%v err=%v", ok, err)
	}
	if err := st.Put(ctx, "k", []byte(`[1]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := st.Put(ctx, "k", []byte(`[2]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, ok, err := st.Get(ctx, "k")
	if err != nil || !ok || string(got) != `[2]` {
		t.Fatalf("get = %q ok=%v err=%v", got, ok, err)
	}
	if err := st.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := st.Get(ctx, "k"); ok {
		t.Fatalf("expected key to be deleted")
	}
	if err := st.Delete(ctx, "k"); err != nil {
		t.Fatalf("deleting absent key should succeed: %v", err)
	}
}

func TestInsertAndListSessions(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0)
	var ids []int64
	for i := 0; i < 3; i++ {
		start := base.Add(time.Duration(i) * time.Hour)
		rec := model.SessionRecord{
			UUID:       "s",
			StartedAt:  start,
			EndedAt:    start.Add(time.Minute),
			Pool:       model.PoolRange,
			Questions:  2,
			Score:      1,
			Answered:   2,
			DurationMs: 60000,
		}
		answers := []model.AnswerRecord{
			{Glyph: "人", Answer: "jan4", Correct: true, AnsweredAt: start},
			{Glyph: "大", Answer: "daai", Correct: false, AnsweredAt: start},
		}
		id, err := st.InsertSession(ctx, rec, answers)
		if err != nil {
			t.Fatalf("insert session: %v", err)
		}
		ids = append(ids, id)
	}

	since := base.Add(90 * time.Minute)
	sessions, err := st.ListSessions(ctx, model.StatsConfig{Since: &since})
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].SessionID != ids[2] {
		t.Fatalf("unexpected sessions: %+v", sessions)
	}
	if sessions[0].Pool != model.PoolRange || sessions[0].Score != 1 {
		t.Fatalf("unexpected aggregate: %+v", sessions[0])
	}

	aggs, err := st.ListGlyphAggregatesForSessions(ctx, ids)
	if err != nil {
		t.Fatalf("list aggregates: %v", err)
	}
	byGlyph := map[string]model.GlyphAggregate{}
	for _, a := range aggs {
		byGlyph[a.Glyph] = a
	}
	if byGlyph["人"].Correct != 3 || byGlyph["人"].Incorrect != 0 {
		t.Fatalf("unexpected 人 aggregate: %+v", byGlyph["人"])
	}
	if byGlyph["大"].Incorrect != 3 {
		t.Fatalf("unexpected 大 aggregate: %+v", byGlyph["大"])
	}

	weak, err := st.GetWeakGlyphs(ctx, 1)
	if err != nil {
		t.Fatalf("weak glyphs: %v", err)
	}
	if len(weak) != 2 {
		t.Fatalf("expected 2 glyphs in last session, got %d", len(weak))
	}
}
