// Package generator draws practice glyphs in random order.
package generator

import (
	"math/rand"
	"time"
)

// Draw yields the next glyph of a sequence; ok is false once the sequence is
// exhausted.
type Draw func() (glyph string, ok bool)

// Generator produces randomized glyph sequences.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a Generator with a fixed seed.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Draw returns every glyph exactly once in uniformly random order. The
// permutation is built lazily, so taking only the first glyph costs one swap.
func (g *Generator) Draw(glyphs []string) Draw {
	order := make([]int, len(glyphs))
	for i := range order {
		order[i] = i
	}
	next := 0
	return func() (string, bool) {
		if next >= len(order) {
			return "", false
		}
		j := next + g.rnd.Intn(len(order)-next)
		order[next], order[j] = order[j], order[next]
		glyph := glyphs[order[next]]
		next++
		return glyph, true
	}
}

// Weighted draws with a bias toward weak glyphs.
type Weighted struct {
	gen    *Generator
	weak   map[string]struct{}
	factor float64
}

// NewWeighted returns a drawer where each glyph in weak weighs 1+factor and
// every other glyph weighs 1.
func NewWeighted(gen *Generator, weak map[string]struct{}, factor float64) *Weighted {
	return &Weighted{gen: gen, weak: weak, factor: factor}
}

// Draw returns every glyph exactly once, weak glyphs tending to come first.
func (w *Weighted) Draw(glyphs []string) Draw {
	if len(w.weak) == 0 || w.factor <= 0 {
		return w.gen.Draw(glyphs)
	}
	weights := make([]float64, len(glyphs))
	total := 0.0
	for i, glyph := range glyphs {
		weight := 1.0
		if _, ok := w.weak[glyph]; ok {
			weight += w.factor
		}
		weights[i] = weight
		total += weight
	}
	remaining := len(glyphs)
	return func() (string, bool) {
		if remaining == 0 {
			return "", false
		}
		r := w.gen.rnd.Float64() * total
		acc := 0.0
		idx := -1
		for j, weight := range weights {
			if weight == 0 {
				continue
			}
			idx = j
			acc += weight
			if r < acc {
				break
			}
		}
		total -= weights[idx]
		weights[idx] = 0
		remaining--
		return glyphs[idx], true
	}
}
