// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/jyutdrill/internal/model"
)

const sparkChars = " .:-=+*#%@"

// SessionAccuracy returns the share of correct answers of a session in [0, 1].
func SessionAccuracy(score, answered int) float64 {
	if answered <= 0 {
		return 0
	}
	return float64(score) / float64(answered)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		idx = max(0, min(idx, len(sparkChars)-1))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// AccuracyCurve returns per-session accuracy in percent, smoothed over window.
func AccuracyCurve(sessions []model.SessionAggregate, window int) []float64 {
	accs := make([]float64, len(sessions))
	for i, s := range sessions {
		accs[i] = SessionAccuracy(s.Score, s.Answered) * 100
	}
	return MovingAverage(accs, window)
}

// Summary aggregates a list of sessions.
type Summary struct {
	Sessions    int
	Answered    int
	Score       int
	AvgAccuracy float64
	Best        float64
	TotalMs     int64
}

// Summarize computes the summary over sessions.
func Summarize(sessions []model.SessionAggregate) Summary {
	var sum Summary
	sum.Sessions = len(sessions)
	var totalAcc float64
	for _, s := range sessions {
		acc := SessionAccuracy(s.Score, s.Answered)
		totalAcc += acc
		sum.Best = math.Max(sum.Best, acc)
		sum.Answered += s.Answered
		sum.Score += s.Score
		sum.TotalMs += s.DurationMs
	}
	if len(sessions) > 0 {
		sum.AvgAccuracy = totalAcc / float64(len(sessions))
	}
	return sum
}

// RenderSummary prints a summary block for sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	sum := Summarize(sessions)
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", sum.Sessions),
		fmt.Sprintf("Answered: %d", sum.Answered),
		fmt.Sprintf("Correct: %d", sum.Score),
		fmt.Sprintf("Avg Accuracy: %.2f%%", sum.AvgAccuracy*100),
		fmt.Sprintf("Best Accuracy: %.2f%%", sum.Best*100),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurve prints the smoothed accuracy sparkline.
func RenderCurve(w io.Writer, sessions []model.SessionAggregate, window int) error {
	if len(sessions) == 0 {
		return nil
	}
	curve := AccuracyCurve(sessions, window)
	if _, err := fmt.Fprintf(w, "Accuracy [%s] %.1f%%\n\n", Sparkline(curve), curve[len(curve)-1]); err != nil {
		return err
	}
	return nil
}

// GlyphRow is one formatted line of the per-glyph table.
type GlyphRow struct {
	Glyph     string
	Accuracy  float64
	Correct   int
	Incorrect int
}

// GlyphRows converts aggregates to rows sorted by lowest accuracy.
func GlyphRows(aggs []model.GlyphAggregate) []GlyphRow {
	rows := make([]GlyphRow, 0, len(aggs))
	for _, agg := range aggs {
		rows = append(rows, GlyphRow{
			Glyph:     agg.Glyph,
			Accuracy:  accuracy(agg),
			Correct:   agg.Correct,
			Incorrect: agg.Incorrect,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Accuracy == rows[j].Accuracy {
			return rows[i].Glyph < rows[j].Glyph
		}
		return rows[i].Accuracy < rows[j].Accuracy
	})
	return rows
}

// RenderGlyphTable prints per-glyph aggregates.
func RenderGlyphTable(w io.Writer, aggs []model.GlyphAggregate) error {
	if len(aggs) == 0 {
		_, err := fmt.Fprintln(w, "No character stats found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Per-Character (Windowed)"); err != nil {
		return err
	}
	headers := []string{"Char", "Accuracy", "Correct", "Incorrect"}
	rows := GlyphRows(aggs)
	tableRows := make([][]string, 0, len(rows))
	for _, r := range rows {
		tableRows = append(tableRows, []string{
			r.Glyph,
			fmt.Sprintf("%.2f%%", r.Accuracy*100),
			fmt.Sprintf("%d", r.Correct),
			fmt.Sprintf("%d", r.Incorrect),
		})
	}
	return writeLines(w, formatTable(headers, tableRows, map[int]bool{1: true, 2: true, 3: true}))
}

// RenderMistakes prints a mistake log as a table.
func RenderMistakes(w io.Writer, records []model.MistakeRecord, maxWidth int) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No mistakes recorded.")
		return err
	}
	headers := []string{"Char", "Jyutping", "Your answer", "When"}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.Glyph,
			strings.Join(r.Romanizations, ", "),
			r.UserAnswer,
			r.At().Format("2006-01-02 15:04"),
		})
	}
	lines := formatTable(headers, rows, nil)
	if maxWidth > 0 {
		for i, line := range lines {
			lines[i] = truncate(line, maxWidth)
		}
	}
	return writeLines(w, lines)
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
