// Package tui provides the Bubble Tea tracing and drawing board.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/numtrace/internal/coverage"
	"github.com/verte-zerg/numtrace/internal/generator"
	"github.com/verte-zerg/numtrace/internal/geom"
	"github.com/verte-zerg/numtrace/internal/gesture"
	"github.com/verte-zerg/numtrace/internal/glyph"
	"github.com/verte-zerg/numtrace/internal/logging"
	"github.com/verte-zerg/numtrace/internal/model"
	"github.com/verte-zerg/numtrace/internal/schedule"
	"github.com/verte-zerg/numtrace/internal/speech"
	statsPkg "github.com/verte-zerg/numtrace/internal/stats"
	"github.com/verte-zerg/numtrace/internal/store"
	"github.com/verte-zerg/numtrace/internal/trace"
)

const (
	tickInterval   = 50 * time.Millisecond
	celebrateDelay = 1500 * time.Millisecond

	headerRows   = 2
	footerRows   = 5
	minBoardRows = 8
	maxBoardRows = 40
	// cellAspect is the height of a terminal cell over its width.
	cellAspect = 2.0

	fallbackWidth  = 80
	fallbackHeight = 24
)

// Options wires a Model to its collaborators. Store, Generator, Speaker and
// Clock are optional.
type Options struct {
	Config    model.Config
	Glyphs    []*glyph.Glyph
	GlyphSet  string
	Store     *store.Store
	Generator *generator.Generator
	Speaker   speech.Speaker
	Trace     trace.Options
	Draw      coverage.Options
	Clock     schedule.Clock
	Logger    *slog.Logger
}

type tickMsg time.Time

// marker is a point the tracer shows or hides.
type marker struct {
	p       geom.Point
	visible bool
}

// attempt tracks the glyph currently on the board.
type attempt struct {
	started     bool
	startedAt   time.Time
	strokeStart time.Time
	strokes     []model.StrokeStats
}

// Model implements the Bubble Tea practice board.
type Model struct {
	config   model.Config
	glyphs   []*glyph.Glyph
	glyphSet string
	store    *store.Store
	gen      *generator.Generator
	speaker  speech.Speaker
	drawOpts coverage.Options
	clock    schedule.Clock
	log      *slog.Logger

	sched   *schedule.Scheduler
	pacing  *schedule.Group
	seq     *trace.Sequencer
	tracker *coverage.Tracker

	handle marker
	front  marker

	queue    []*glyph.Glyph
	played   int
	glyph    *glyph.Glyph
	current  attempt
	cheering bool
	finished bool
	status   string

	weakSet         map[string]struct{}
	weakNoticeShown bool

	width    int
	height   int
	keys     keyMap
	help     help.Model
	progress progress.Model

	hasLast   bool
	lastAt    time.Time
	total     int
	completed int
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	spokenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	guideStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5C5C5C"))
	inkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#4FC1E9"))
	floodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	startStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#3CB371"))
	frontStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	handleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs the practice board and puts the first glyph on it.
func NewModel(opts Options) (*Model, error) {
	if len(opts.Glyphs) == 0 {
		return nil, fmt.Errorf("no glyphs to practise")
	}
	m := &Model{
		config:   opts.Config,
		glyphs:   opts.Glyphs,
		glyphSet: opts.GlyphSet,
		store:    opts.Store,
		gen:      opts.Generator,
		speaker:  opts.Speaker,
		drawOpts: opts.Draw,
		clock:    opts.Clock,
		log:      logging.OrDiscard(opts.Logger),
		keys:     newKeyMap(opts.Config.Mode),
		help:     help.New(),
		progress: progress.New(
			progress.WithGradient("#F5A623", "#3CB371"),
			progress.WithoutPercentage(),
		),
	}
	if m.config.Mode == "" {
		m.config.Mode = model.ModeTrace
	}
	if m.gen == nil {
		m.gen = generator.New()
	}
	if m.speaker == nil {
		m.speaker = speech.Silent{}
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	m.sched = schedule.New(m.clock)
	m.pacing = schedule.NewGroup(m.sched)

	traceOpts := opts.Trace
	if traceOpts.Logger == nil {
		traceOpts.Logger = m.log
	}
	if m.drawOpts.Logger == nil {
		m.drawOpts.Logger = m.log
	}
	m.seq = trace.NewSequencer(m.sched, traceOpts, trace.Hooks{
		OnHandle:         func(_ int, p geom.Point, visible bool) { m.handle = marker{p: p, visible: visible} },
		OnFrontMarker:    func(_ int, p geom.Point, visible bool) { m.front = marker{p: p, visible: visible} },
		OnCommit:         m.committed,
		OnStrokeComplete: m.strokeDone,
		OnGlyphComplete:  m.glyphDone,
	})

	m.loadFooterStats()
	if m.config.FocusWeak {
		m.refreshWeakSet()
	}
	m.fillQueue()
	m.advance()
	return m, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.progress.Width = max(10, min(40, msg.Width-4))
		return m, nil
	case tickMsg:
		m.sched.Advance(m.clock())
		return m, tick()
	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.abandon()
		return m, tea.Quit
	case m.finished:
		return m, nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Undo):
		if m.tracker != nil && m.tracker.Undo() {
			m.status = ""
		}
	case key.Matches(msg, m.keys.Reset):
		if m.glyph == nil || m.cheering {
			break
		}
		m.abandon()
		if m.tracker != nil {
			m.tracker.Reset()
		} else {
			m.begin(m.glyph)
		}
	case key.Matches(msg, m.keys.Skip):
		m.abandon()
		m.pacing.Cancel()
		m.advance()
	}
	return m, nil
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	target := m.target()
	if target == nil || m.cheering {
		return
	}
	var phase gesture.Phase
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		phase = gesture.Down
	case tea.MouseActionMotion:
		if msg.Button != tea.MouseButtonLeft {
			return
		}
		phase = gesture.Move
	case tea.MouseActionRelease:
		phase = gesture.Up
	default:
		return
	}
	n := m.normalizer()
	m.seq.SetResolution(n.Resolution())
	gesture.Dispatch(target, gesture.PointerEvent{Point: n.CellCenter(msg.X, msg.Y), Phase: phase})
	if phase != gesture.Down || m.current.started {
		return
	}
	// A press that misses the handle does not touch a trace attempt.
	if m.tracker == nil && !m.seq.Tracer().Dragging() {
		return
	}
	now := m.clock()
	m.current.started = true
	m.current.startedAt = now
	m.current.strokeStart = now
}

// target returns the engine receiving pointer input, or nil.
func (m *Model) target() gesture.Target {
	if m.glyph == nil {
		return nil
	}
	if m.config.Mode == model.ModeDraw {
		if m.tracker == nil {
			return nil
		}
		return m.tracker
	}
	return m.seq
}

// boardLayout returns the board size and its top-left cell on screen.
func (m *Model) boardLayout() (cols, rows, left, top int) {
	width, height := m.width, m.height
	if width <= 0 || height <= 0 {
		width, height = fallbackWidth, fallbackHeight
	}
	gw, gh := 100.0, 150.0
	if m.glyph != nil {
		gw, gh = m.glyph.Width, m.glyph.Height
	}
	rows = max(minBoardRows, min(maxBoardRows, height-headerRows-footerRows))
	cols = int(math.Round(float64(rows) * gw / gh * cellAspect))
	if cols > width {
		cols = width
		rows = max(1, int(math.Round(float64(cols)*gh/gw/cellAspect)))
	}
	return cols, rows, max(0, (width-cols)/2), headerRows
}

func (m *Model) normalizer() gesture.Normalizer {
	cols, rows, left, top := m.boardLayout()
	n := gesture.Normalizer{
		Bounds: geom.Rect{X: float64(left), Y: float64(top), W: float64(cols), H: float64(rows)},
	}
	if m.glyph != nil {
		n.Width, n.Height = m.glyph.Width, m.glyph.Height
	}
	return n
}

func (m *Model) fillQueue() {
	count := m.config.Rounds
	if count <= 0 {
		count = len(m.glyphs)
	}
	if m.config.FocusWeak && len(m.weakSet) > 0 {
		m.queue = m.gen.GenerateWeighted(m.glyphs, count, m.weakSet, m.config.WeakFactor)
		return
	}
	m.queue = m.gen.Generate(m.glyphs, count, m.config.Order)
}

// advance puts the next queued glyph on the board.
func (m *Model) advance() {
	m.cheering = false
	m.status = ""
	if len(m.queue) == 0 {
		if m.config.Rounds > 0 {
			m.finish()
			return
		}
		if m.config.FocusWeak {
			m.refreshWeakSet()
		}
		m.fillQueue()
	}
	next := m.queue[0]
	m.queue = m.queue[1:]
	m.played++
	m.begin(next)
	m.speaker.Say(next.SpokenName())
}

func (m *Model) finish() {
	m.finished = true
	m.glyph = nil
	m.tracker = nil
	m.seq.Reset()
}

// begin (re)starts g with a fresh attempt.
func (m *Model) begin(g *glyph.Glyph) {
	m.glyph = g
	m.current = attempt{}
	m.status = ""
	m.handle, m.front = marker{}, marker{}
	if m.config.Mode == model.ModeDraw {
		m.seq.Reset()
		tracker, err := coverage.New(g, m.drawOpts, coverage.Hooks{
			OnCompletion:   m.glyphDone,
			OnFloodWarning: func() { m.status = "That's a lot of scribbles! Press u to undo." },
			OnFloodCleared: func() { m.status = "" },
			OnReset: func() {
				m.current = attempt{}
				m.status = ""
			},
		})
		if err != nil {
			m.tracker = nil
			m.status = err.Error()
			m.log.Warn("glyph unusable", "glyph", g.Name, "err", err)
			return
		}
		m.tracker = tracker
		return
	}
	m.tracker = nil
	if err := m.seq.Start(g); err != nil {
		m.status = err.Error()
		m.log.Warn("glyph unusable", "glyph", g.Name, "err", err)
	}
}

func (m *Model) committed(stroke, index int) {
	g := m.seq.Glyph()
	if g == nil {
		return
	}
	seg, frac, ok := m.seq.Tracer().LastProjection()
	m.log.Debug("commit", "glyph", g.Name, "stroke", stroke, "index", index,
		"segment", seg, "fraction", frac, "in_range", ok)
}

func (m *Model) strokeDone(stroke int) {
	now := m.clock()
	st := m.seq.Tracer().Stats()
	m.current.strokes = append(m.current.strokes, model.StrokeStats{
		Stroke:      stroke,
		DurationMs:  now.Sub(m.current.strokeStart).Milliseconds(),
		Moves:       st.Moves,
		Ignored:     st.Ignored,
		Regressions: st.Regressions,
		Jumps:       st.Jumps,
	})
	m.current.strokeStart = now
}

func (m *Model) glyphDone() {
	m.cheering = true
	m.status = "Great job!"
	m.saveAttempt(true)
	m.speaker.Say(speech.Phrase(m.glyph.SpokenName(), true))
	m.pacing.After(celebrateDelay, m.advance)
}

// abandon stores an unfinished attempt that was touched.
func (m *Model) abandon() {
	if m.cheering || m.finished {
		return
	}
	m.saveAttempt(false)
}

func (m *Model) saveAttempt(completed bool) {
	if m.glyph == nil || !m.current.started {
		return
	}
	endedAt := m.clock()
	a := model.AttemptStats{
		StartedAt:  m.current.startedAt,
		EndedAt:    endedAt,
		Mode:       m.config.Mode,
		Glyph:      m.glyph.Name,
		GlyphSet:   m.glyphSet,
		Completed:  completed,
		DurationMs: endedAt.Sub(m.current.startedAt).Milliseconds(),
	}
	var strokes []model.StrokeStats
	if m.tracker != nil {
		a.Strokes = len(m.tracker.Strokes())
		a.Undos = m.tracker.Undos()
		a.FloodWarnings = m.tracker.FloodWarnings()
		a.Coverage = m.tracker.Ratio()
		a.InkLength = m.tracker.Length()
	} else {
		st := m.seq.Stats()
		a.Strokes = len(m.glyph.Strokes)
		a.Moves = st.Moves
		a.Ignored = st.Ignored
		a.Regressions = st.Regressions
		a.Jumps = st.Jumps
		strokes = m.current.strokes
	}
	m.current = attempt{}

	m.hasLast = true
	m.lastAt = endedAt
	m.total++
	if completed {
		m.completed++
	}
	if m.store == nil {
		return
	}
	id, err := m.store.InsertAttempt(context.Background(), a, strokes)
	if err != nil {
		logErrf("failed to save attempt: %v\n", err)
		return
	}
	m.log.Debug("attempt saved", "id", id, "glyph", a.Glyph, "completed", completed)
}

func (m *Model) loadFooterStats() {
	if m.store == nil {
		return
	}
	attempts, err := m.store.ListAttempts(context.Background(), model.StatsConfig{Mode: string(m.config.Mode)})
	if err != nil {
		logErrf("failed to load attempt stats: %v\n", err)
		return
	}
	if len(attempts) == 0 {
		return
	}
	m.hasLast = true
	m.lastAt = attempts[len(attempts)-1].EndedAt
	m.total = len(attempts)
	for _, a := range attempts {
		if a.Completed {
			m.completed++
		}
	}
}

func (m *Model) refreshWeakSet() {
	if m.store == nil {
		return
	}
	aggs, err := m.store.GetWeakGlyphs(context.Background(), m.config.WeakWindow, m.config.Mode)
	if err != nil {
		logErrf("failed to load weak glyphs: %v\n", err)
		return
	}
	if len(aggs) == 0 {
		if !m.weakNoticeShown {
			m.status = "No practice history yet, so glyphs come in the usual order."
			m.weakNoticeShown = true
		}
		m.weakSet = map[string]struct{}{}
		return
	}
	m.weakSet = statsPkg.SelectWeakGlyphs(aggs, m.config.WeakTop)
}

// glyphProgress returns the fraction of the glyph done so far.
func (m *Model) glyphProgress() float64 {
	if m.glyph == nil {
		return 0
	}
	if m.tracker != nil {
		return m.tracker.Ratio()
	}
	if m.seq.Complete() {
		return 1
	}
	n := len(m.glyph.Strokes)
	if n == 0 {
		return 0
	}
	return (float64(m.seq.Stroke()) + m.seq.Progress()) / float64(n)
}

// View implements tea.Model.
func (m *Model) View() string {
	width := m.width
	if width <= 0 {
		width = fallbackWidth
	}
	center := func(s string) string { return lipgloss.PlaceHorizontal(width, lipgloss.Center, s) }

	if m.finished {
		lines := []string{
			"",
			center(titleStyle.Render("All done!")),
			center(fmt.Sprintf("You practised %d glyphs.", m.played)),
			"",
			center(footerStyle.Render("Press q to quit.")),
		}
		return strings.Join(lines, "\n")
	}
	if m.glyph == nil {
		return ""
	}

	cols, rows, left, _ := m.boardLayout()
	b := m.paint(cols, rows)
	pad := strings.Repeat(" ", left)
	boardLines := strings.Split(b.render(m.styles()), "\n")

	lines := make([]string, 0, headerRows+len(boardLines)+footerRows)
	lines = append(lines, center(m.renderHeader()), "")
	for _, line := range boardLines {
		lines = append(lines, pad+line)
	}
	lines = append(lines,
		"",
		center(m.progress.ViewAs(m.glyphProgress())),
		center(statusStyle.Render(m.status)),
		center(m.help.View(m.keys)),
		center(m.renderFooter()),
	)
	return strings.Join(lines, "\n")
}

func (m *Model) renderHeader() string {
	verb := "Trace"
	if m.config.Mode == model.ModeDraw {
		verb = "Draw"
	}
	header := titleStyle.Render(fmt.Sprintf("%s %s", verb, m.glyph.Name)) + "  " + spokenStyle.Render(m.glyph.SpokenName())
	if m.config.Rounds > 0 {
		header += footerStyle.Render(fmt.Sprintf("  %d/%d", m.played, m.config.Rounds))
	}
	return header
}

func (m *Model) styles() boardStyles {
	ink := inkStyle
	if m.tracker != nil && m.tracker.Flooded() {
		ink = floodStyle
	}
	return boardStyles{
		layerGuide:  guideStyle,
		layerDone:   lipgloss.NewStyle().Foreground(progressColor(m.glyphProgress())),
		layerInk:    ink,
		layerStart:  startStyle,
		layerFront:  frontStyle,
		layerHandle: handleStyle,
	}
}

// paint rasterizes the current glyph state.
func (m *Model) paint(cols, rows int) *board {
	g := m.glyph
	b := newBoard(cols, rows, g.Width, g.Height)
	for i := range g.Strokes {
		s := &g.Strokes[i]
		b.stroke(s, s.Segments(), layerGuide)
	}
	if m.tracker != nil {
		for _, s := range m.tracker.Strokes() {
			b.polyline(s, layerInk)
		}
		if len(g.Strokes) > 0 && len(m.tracker.Strokes()) == 0 {
			b.set(g.Strokes[0].Path[0], layerStart)
		}
		return b
	}

	active := m.seq.Stroke()
	tr := m.seq.Tracer()
	for i := range g.Strokes {
		s := &g.Strokes[i]
		switch {
		case m.seq.Complete() || i < active:
			b.stroke(s, s.Segments(), layerDone)
		case i == active:
			b.stroke(s, tr.Committed(), layerDone)
		}
	}
	if m.seq.Complete() || tr.Complete() {
		return b
	}
	if m.front.visible {
		b.set(m.front.p, layerFront)
	}
	if m.handle.visible {
		b.set(m.handle.p, layerHandle)
	}
	return b
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
