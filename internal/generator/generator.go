// Package generator builds glyph practice sequences.
package generator

import (
	"math/rand"
	"time"

	"github.com/verte-zerg/numtrace/internal/glyph"
	"github.com/verte-zerg/numtrace/internal/model"
)

// Generator produces practice rounds from a glyph set.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a deterministic Generator.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate returns count glyphs. Sequential order cycles through glyphs in
// set order; random order draws uniformly and avoids immediate repeats
// when there is more than one glyph.
func (g *Generator) Generate(glyphs []*glyph.Glyph, count int, order model.Order) []*glyph.Glyph {
	if len(glyphs) == 0 || count <= 0 {
		return nil
	}
	result := make([]*glyph.Glyph, 0, count)
	for i := 0; i < count; i++ {
		if order == model.OrderSequential {
			result = append(result, glyphs[i%len(glyphs)])
			continue
		}
		idx := g.rnd.Intn(len(glyphs))
		if len(glyphs) > 1 && len(result) > 0 && glyphs[idx] == result[len(result)-1] {
			idx = (idx + 1 + g.rnd.Intn(len(glyphs)-1)) % len(glyphs)
		}
		result = append(result, glyphs[idx])
	}
	return result
}

// GenerateWeighted draws count glyphs with weak glyphs weighted by
// 1 + factor.
func (g *Generator) GenerateWeighted(glyphs []*glyph.Glyph, count int, weakSet map[string]struct{}, factor float64) []*glyph.Glyph {
	if len(glyphs) == 0 || count <= 0 {
		return nil
	}
	weights := make([]float64, len(glyphs))
	total := 0.0
	for i, gl := range glyphs {
		w := 1.0
		if _, ok := weakSet[gl.Name]; ok {
			w += factor
		}
		weights[i] = w
		total += w
	}

	result := make([]*glyph.Glyph, 0, count)
	for i := 0; i < count; i++ {
		r := g.rnd.Float64() * total
		acc := 0.0
		idx := len(glyphs) - 1
		for j, w := range weights {
			acc += w
			if r < acc {
				idx = j
				break
			}
		}
		result = append(result, glyphs[idx])
	}
	return result
}
