package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/jyutdrill/internal/model"
)

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{10, 20, 30, 40}, 2)
	want := []float64{10, 15, 25, 35}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %v, want %v", i, got, want)
		}
	}
	same := MovingAverage([]float64{1, 2}, 1)
	if same[0] != 1 || same[1] != 2 {
		t.Fatalf("window 1 should copy values, got %v", same)
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline(nil); got != "" {
		t.Fatalf("expected empty sparkline, got %q", got)
	}
	if got := Sparkline([]float64{0, 100}); got != " @" {
		t.Fatalf("unexpected sparkline: %q", got)
	}
	if got := Sparkline([]float64{5, 5, 5}); got != "+++" {
		t.Fatalf("flat series should use the middle mark, got %q", got)
	}
}

func TestSessionAccuracy(t *testing.T) {
	if got := SessionAccuracy(3, 4); got != 0.75 {
		t.Fatalf("expected 0.75, got %v", got)
	}
	if got := SessionAccuracy(0, 0); got != 0 {
		t.Fatalf("expected 0 for an empty session, got %v", got)
	}
}

func TestSummarize(t *testing.T) {
	sum := Summarize([]model.SessionAggregate{
		{Score: 5, Answered: 10, DurationMs: 1000},
		{Score: 10, Answered: 10, DurationMs: 2000},
	})
	if sum.Sessions != 2 || sum.Answered != 20 || sum.Score != 15 {
		t.Fatalf("unexpected totals: %+v", sum)
	}
	if sum.AvgAccuracy != 0.75 || sum.Best != 1 {
		t.Fatalf("unexpected accuracy: %+v", sum)
	}
	if sum.TotalMs != 3000 {
		t.Fatalf("unexpected duration: %d", sum.TotalMs)
	}
}

func TestSelectWeakGlyphs(t *testing.T) {
	aggs := []model.GlyphAggregate{
		{Glyph: "人", Correct: 9, Incorrect: 1},
		{Glyph: "大", Correct: 1, Incorrect: 3},
		{Glyph: "的", Correct: 5, Incorrect: 0},
		{Glyph: "一", Correct: 1, Incorrect: 1},
	}
	weak := SelectWeakGlyphs(aggs, 2)
	if len(weak) != 2 {
		t.Fatalf("expected 2 weak glyphs, got %v", weak)
	}
	for _, g := range []string{"大", "一"} {
		if _, ok := weak[g]; !ok {
			t.Fatalf("expected %s to be weak, got %v", g, weak)
		}
	}
	all := SelectWeakGlyphs(aggs, 0)
	if _, ok := all["的"]; ok {
		t.Fatalf("a glyph with no misses must not be weak")
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 weak glyphs, got %v", all)
	}
}

func TestRenderMistakes(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderMistakes(&buf, nil, 0); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "No mistakes") {
		t.Fatalf("unexpected output: %q", buf.String())
	}

	buf.Reset()
	records := []model.MistakeRecord{{
		Glyph:         "大",
		Romanizations: []string{"daai6", "taai3"},
		UserAnswer:    "dai6",
		Timestamp:     time.Date(2024, 1, 2, 3, 4, 0, 0, time.Local).UnixMilli(),
	}}
	if err := RenderMistakes(&buf, records, 0); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Jyutping", "daai6, taai3", "dai6", "2024-01-02 03:04"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderGlyphTableSortsByAccuracy(t *testing.T) {
	var buf bytes.Buffer
	err := RenderGlyphTable(&buf, []model.GlyphAggregate{
		{Glyph: "人", Correct: 4, Incorrect: 0},
		{Glyph: "大", Correct: 1, Incorrect: 1},
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	if !strings.HasPrefix(lines[2], "大") || !strings.HasPrefix(lines[3], "人") {
		t.Fatalf("unexpected order:\n%s", buf.String())
	}
}
