package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

type styledRune struct {
	s       string
	width   int
	isSpace bool
}

// buildStyledAnswer styles each rune of answer against the romanization it
// shares the longest prefix with. Runes past that prefix are marked wrong.
func buildStyledAnswer(answer []rune, romanizations []string) []styledRune {
	matched := bestPrefix(answer, romanizations)
	out := make([]styledRune, 0, len(answer))
	for i, r := range answer {
		style := incorrectStyle
		if i < matched {
			style = correctStyle
		}
		displayed := r
		if r == ' ' {
			displayed = '•'
		}
		out = append(out, styledRune{
			s:     style.Render(string(displayed)),
			width: runewidth.RuneWidth(displayed),
		})
	}
	return out
}

func bestPrefix(answer []rune, romanizations []string) int {
	lowered := []rune(strings.ToLower(string(answer)))
	best := 0
	for _, rom := range romanizations {
		target := []rune(strings.ToLower(rom))
		n := 0
		for n < len(lowered) && n < len(target) && lowered[n] == target[n] {
			n++
		}
		best = max(best, n)
	}
	return best
}

// buildStyledGlyphs lays out glyphs for wrapping. Glyphs have no separators,
// so lines break at the width limit.
func buildStyledGlyphs(glyphs []string, style lipgloss.Style) []styledRune {
	out := make([]styledRune, 0, len(glyphs))
	for _, g := range glyphs {
		out = append(out, styledRune{
			s:     style.Render(g),
			width: runewidth.StringWidth(g),
		})
	}
	return out
}

// buildStyledWords lays out words separated by single spaces.
func buildStyledWords(words []string, style lipgloss.Style) []styledRune {
	var out []styledRune
	for i, w := range words {
		if i > 0 {
			out = append(out, styledRune{s: " ", width: 1, isSpace: true})
		}
		for _, r := range w {
			out = append(out, styledRune{s: style.Render(string(r)), width: runewidth.RuneWidth(r)})
		}
	}
	return out
}

func renderStyledRunes(runes []styledRune) string {
	var b strings.Builder
	for _, item := range runes {
		b.WriteString(item.s)
	}
	return b.String()
}

func wrapStyledRunes(runes []styledRune, width int) string {
	if width <= 0 {
		return renderStyledRunes(runes)
	}
	var out strings.Builder
	line := make([]styledRune, 0, len(runes))
	lineWidth := 0
	lastSpaceIdx := -1

	for i := 0; i < len(runes); {
		item := runes[i]
		if lineWidth+item.width > width && len(line) > 0 {
			if lastSpaceIdx >= 0 {
				out.WriteString(renderStyledRunes(line[:lastSpaceIdx]))
				out.WriteRune('\n')
				line = append([]styledRune{}, line[lastSpaceIdx+1:]...)
				lineWidth = lineWidthOf(line)
				lastSpaceIdx = lastSpaceIndex(line)
			} else {
				out.WriteString(renderStyledRunes(line))
				out.WriteRune('\n')
				line = line[:0]
				lineWidth = 0
				lastSpaceIdx = -1
			}
			continue
		}
		line = append(line, item)
		lineWidth += item.width
		if item.isSpace {
			lastSpaceIdx = len(line) - 1
		}
		i++
	}
	out.WriteString(renderStyledRunes(line))
	return out.String()
}

func lineWidthOf(line []styledRune) int {
	total := 0
	for _, item := range line {
		total += item.width
	}
	return total
}

func lastSpaceIndex(line []styledRune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i].isSpace {
			return i
		}
	}
	return -1
}
