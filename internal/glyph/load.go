package glyph

import (
	_ "embed"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/numtrace/internal/geom"
)

//go:embed digits.toml
var builtinDigits string

const (
	// DefaultDensifyStep caps segment length after loading.
	DefaultDensifyStep = 4.0
	// DefaultCompletionSpacing is the spacing of derived completion points.
	DefaultCompletionSpacing = 10.0
	// DefaultTriggerMatch is how close a path vertex must be to a trigger
	// coordinate to count as that trigger.
	DefaultTriggerMatch = 1.0
	// DefaultTriggerFindRadius bounds the lookup of jump and completion
	// targets on the path.
	DefaultTriggerFindRadius = 10.0
)

// LoadOptions tunes how raw glyph data is prepared.
type LoadOptions struct {
	DensifyStep       float64
	CompletionSpacing float64
	TriggerMatch      float64
	TriggerFindRadius float64
}

// DefaultLoadOptions returns the options used for the built-in set.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		DensifyStep:       DefaultDensifyStep,
		CompletionSpacing: DefaultCompletionSpacing,
		TriggerMatch:      DefaultTriggerMatch,
		TriggerFindRadius: DefaultTriggerFindRadius,
	}
}

// Set is an ordered, immutable collection of glyphs.
type Set struct {
	Width  float64
	Height float64
	Glyphs []*Glyph
	byName map[string]*Glyph
}

// Get returns the glyph with the given name.
func (s *Set) Get(name string) (*Glyph, bool) {
	g, ok := s.byName[name]
	return g, ok
}

// Names returns glyph names in file order.
func (s *Set) Names() []string {
	names := make([]string, len(s.Glyphs))
	for i, g := range s.Glyphs {
		names[i] = g.Name
	}
	return names
}

// Select returns the glyphs named by the runes or comma-separated names in
// filter, in set order. An empty filter selects every glyph.
func (s *Set) Select(filter string) ([]*Glyph, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return append([]*Glyph(nil), s.Glyphs...), nil
	}
	var wanted []string
	if strings.Contains(filter, ",") {
		for _, part := range strings.Split(filter, ",") {
			if part = strings.TrimSpace(part); part != "" {
				wanted = append(wanted, part)
			}
		}
	} else {
		for _, r := range filter {
			wanted = append(wanted, string(r))
		}
	}
	want := map[string]bool{}
	for _, name := range wanted {
		if _, ok := s.byName[name]; !ok {
			return nil, fmt.Errorf("unknown glyph %q (available: %s)", name, strings.Join(s.Names(), " "))
		}
		want[name] = true
	}
	out := make([]*Glyph, 0, len(want))
	for _, g := range s.Glyphs {
		if want[g.Name] {
			out = append(out, g)
		}
	}
	return out, nil
}

type fileSet struct {
	Width  float64     `toml:"width"`
	Height float64     `toml:"height"`
	Glyphs []fileGlyph `toml:"glyph"`
}

type fileGlyph struct {
	Name             string       `toml:"name"`
	Spoken           string       `toml:"spoken"`
	Strokes          []fileStroke `toml:"stroke"`
	CompletionPoints [][]float64  `toml:"completion-points"`
}

type fileStroke struct {
	Points            [][]float64  `toml:"points"`
	CompletionTrigger []float64    `toml:"completion-trigger"`
	Corners           []fileCorner `toml:"corner"`
	Auto              []fileAuto   `toml:"auto"`
}

type fileCorner struct {
	At       []float64 `toml:"at"`
	Forward  []float64 `toml:"forward"`
	Backward []float64 `toml:"backward"`
}

type fileAuto struct {
	At           []float64 `toml:"at"`
	JumpTo       []float64 `toml:"jump-to"`
	SectionBreak bool      `toml:"section-break"`
}

// Builtin returns the embedded digit set.
func Builtin() (*Set, error) {
	return Load(strings.NewReader(builtinDigits), DefaultLoadOptions())
}

// LoadFile reads a glyph set from a TOML file.
func LoadFile(path string, opts LoadOptions) (*Set, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only glyph file.
			_ = cerr
		}
	}()
	return Load(file, opts)
}

// Load decodes and prepares a glyph set. Every glyph is validated; the first
// unusable glyph fails the whole set.
func Load(r io.Reader, opts LoadOptions) (*Set, error) {
	opts = withDefaults(opts)
	var raw fileSet
	if _, err := toml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode glyphs: %w", err)
	}
	if raw.Width <= 0 || raw.Height <= 0 {
		return nil, configErr("", "set needs positive width and height")
	}
	if len(raw.Glyphs) == 0 {
		return nil, configErr("", "set has no glyphs")
	}
	set := &Set{Width: raw.Width, Height: raw.Height, byName: map[string]*Glyph{}}
	for i, fg := range raw.Glyphs {
		g, err := buildGlyph(fg, raw.Width, raw.Height, opts)
		if err != nil {
			return nil, err
		}
		if g.Name == "" {
			return nil, configErr("", "glyph #%d has no name", i+1)
		}
		if _, dup := set.byName[g.Name]; dup {
			return nil, configErr(g.Name, "duplicate glyph name")
		}
		set.Glyphs = append(set.Glyphs, g)
		set.byName[g.Name] = g
	}
	return set, nil
}

func withDefaults(opts LoadOptions) LoadOptions {
	def := DefaultLoadOptions()
	if opts.DensifyStep <= 0 {
		opts.DensifyStep = def.DensifyStep
	}
	if opts.CompletionSpacing <= 0 {
		opts.CompletionSpacing = def.CompletionSpacing
	}
	if opts.TriggerMatch <= 0 {
		opts.TriggerMatch = def.TriggerMatch
	}
	if opts.TriggerFindRadius <= 0 {
		opts.TriggerFindRadius = def.TriggerFindRadius
	}
	return opts
}

func buildGlyph(fg fileGlyph, width, height float64, opts LoadOptions) (*Glyph, error) {
	name := strings.TrimSpace(fg.Name)
	g := &Glyph{Name: name, Spoken: strings.TrimSpace(fg.Spoken), Width: width, Height: height}
	for si, fs := range fg.Strokes {
		rawPath, err := toPoints(name, fmt.Sprintf("stroke %d points", si), fs.Points)
		if err != nil {
			return nil, err
		}
		if len(rawPath) < 2 {
			return nil, configErr(name, "stroke %d has %d points, need at least 2", si, len(rawPath))
		}
		auto := make([]AutoTrigger, 0, len(fs.Auto))
		for _, fa := range fs.Auto {
			at, err := toPoint(name, "auto trigger", fa.At)
			if err != nil {
				return nil, err
			}
			jump, err := toPoint(name, "auto jump-to", fa.JumpTo)
			if err != nil {
				return nil, err
			}
			auto = append(auto, AutoTrigger{At: at, JumpTo: jump, SectionBreak: fa.SectionBreak})
		}
		corners := make([]CornerTrigger, 0, len(fs.Corners))
		for _, fc := range fs.Corners {
			at, err := toPoint(name, "corner", fc.At)
			if err != nil {
				return nil, err
			}
			fwd, err := toPoint(name, "corner forward", fc.Forward)
			if err != nil {
				return nil, err
			}
			back, err := toPoint(name, "corner backward", fc.Backward)
			if err != nil {
				return nil, err
			}
			corners = append(corners, CornerTrigger{At: at, Forward: fwd, Backward: back})
		}
		path := densifyStroke(rawPath, auto, opts)
		stroke := NewStroke(path, auto, corners, opts.TriggerMatch)
		if len(fs.CompletionTrigger) > 0 {
			ct, err := toPoint(name, "completion-trigger", fs.CompletionTrigger)
			if err != nil {
				return nil, err
			}
			stroke.CompletionTrigger = ct
			stroke.HasCompletionTrigger = true
		}
		if err := checkTriggers(name, si, &stroke, opts); err != nil {
			return nil, err
		}
		g.Strokes = append(g.Strokes, stroke)
	}
	if len(fg.CompletionPoints) > 0 {
		pts, err := toPoints(name, "completion-points", fg.CompletionPoints)
		if err != nil {
			return nil, err
		}
		g.CompletionPoints = pts
	} else {
		g.CompletionPoints = DeriveCompletionPoints(g.Strokes, opts.CompletionSpacing)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// densifyStroke subdivides every traceable segment. Segments leaving an
// auto trigger stay whole so the pen lift remains a single gap segment.
func densifyStroke(raw []geom.Point, auto []AutoTrigger, opts LoadOptions) []geom.Point {
	gaps := map[int]bool{}
	for _, a := range auto {
		if idx, ok := geom.NearestIndex(raw, a.At, opts.TriggerMatch, 0); ok {
			gaps[idx] = true
		}
	}
	out := []geom.Point{raw[0]}
	for i := 1; i < len(raw); i++ {
		if gaps[i-1] {
			out = append(out, raw[i])
			continue
		}
		piece := geom.Densify(raw[i-1:i+1], opts.DensifyStep)
		out = append(out, piece[1:]...)
	}
	return out
}

// checkTriggers resolves every trigger the tracer will look up so a glyph
// that could never be finished fails at load time.
func checkTriggers(name string, si int, s *Stroke, opts LoadOptions) error {
	match, find := opts.TriggerMatch, opts.TriggerFindRadius
	for _, a := range s.Auto {
		at, ok := geom.NearestIndex(s.Path, a.At, match, 0)
		if !ok {
			return configErr(name, "stroke %d auto trigger %v is not a path vertex", si, a.At)
		}
		if a.SectionBreak {
			continue
		}
		if _, ok := geom.NearestIndex(s.Path, a.JumpTo, find, at+1); !ok {
			return configErr(name, "stroke %d auto trigger %v jumps to %v, which is not on the path", si, a.At, a.JumpTo)
		}
	}
	for _, c := range s.Corners {
		if _, ok := geom.NearestIndex(s.Path, c.At, match, 0); !ok {
			return configErr(name, "stroke %d corner %v is not a path vertex", si, c.At)
		}
	}
	if s.HasCompletionTrigger {
		if _, ok := geom.NearestIndex(s.Path, s.CompletionTrigger, find, 0); !ok {
			return configErr(name, "stroke %d completion trigger %v is not on the path", si, s.CompletionTrigger)
		}
	}
	return nil
}

func toPoints(name, what string, raw [][]float64) ([]geom.Point, error) {
	out := make([]geom.Point, 0, len(raw))
	for _, r := range raw {
		p, err := toPoint(name, what, r)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func toPoint(name, what string, raw []float64) (geom.Point, error) {
	if len(raw) != 2 {
		return geom.Point{}, configErr(name, "%s: expected [x, y], got %v", what, raw)
	}
	if math.IsNaN(raw[0]) || math.IsNaN(raw[1]) || math.IsInf(raw[0], 0) || math.IsInf(raw[1], 0) {
		return geom.Point{}, configErr(name, "%s: non-finite coordinate", what)
	}
	return geom.Pt(raw[0], raw[1]), nil
}
