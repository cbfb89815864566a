// Package main provides the CLI entrypoint for numtrace.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/numtrace/internal/config"
	"github.com/verte-zerg/numtrace/internal/coverage"
	"github.com/verte-zerg/numtrace/internal/generator"
	"github.com/verte-zerg/numtrace/internal/glyph"
	"github.com/verte-zerg/numtrace/internal/logging"
	"github.com/verte-zerg/numtrace/internal/model"
	"github.com/verte-zerg/numtrace/internal/sheet"
	"github.com/verte-zerg/numtrace/internal/speech"
	"github.com/verte-zerg/numtrace/internal/stats"
	"github.com/verte-zerg/numtrace/internal/statsui"
	"github.com/verte-zerg/numtrace/internal/store"
	"github.com/verte-zerg/numtrace/internal/trace"
	"github.com/verte-zerg/numtrace/internal/tui"
)

const (
	defaultMode        = string(model.ModeTrace)
	defaultOrder       = string(model.OrderSequential)
	defaultRounds      = 10
	defaultWeakTop     = 3
	defaultWeakFactor  = 2.0
	defaultWeakWindow  = 30
	defaultCurveWindow = 10
	defaultSheetPath   = "numtrace-sheet.png"
	builtinSetName     = "builtin"
)

var (
	debugLog bool
	closeLog func() error

	practiceGlyphs        string
	practiceMode          string
	practiceOrder         string
	practiceRounds        int
	practiceGlyphFile     string
	practiceFocusWeak     bool
	practiceWeakTop       int
	practiceWeakFactor    float64
	practiceWeakWindow    int
	practiceSpeech        bool
	practiceSpeechCommand string

	statsMode        string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsGlyphs      string
	statsPlain       bool

	glyphsFile string

	sheetOut       string
	sheetGlyphs    string
	sheetGlyphFile string
	sheetColumns   int
	sheetRepeats   int
	sheetTitle     string
	sheetNoOrder   bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "numtrace",
		Short: "Trace and draw digits in the terminal",
		Long: "numtrace puts a digit on the board and lets you trace it with the mouse,\n" +
			"stroke by stroke, or draw it freely and have the coverage judged.",
		SilenceUsage:       true,
		SilenceErrors:      false,
		PersistentPreRunE:  setupLogging,
		PersistentPostRunE: teardownLogging,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPractice(cmd, "")
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "write a debug log to "+config.DefaultLogPath())
	addPracticeFlags(rootCmd, true)

	rootCmd.AddCommand(newDrawCmd())
	rootCmd.AddCommand(newGlyphsCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newSheetCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

func addPracticeFlags(cmd *cobra.Command, withMode bool) {
	flags := cmd.Flags()
	flags.StringVar(&practiceGlyphs, "glyphs", "", "glyphs to practise, e.g. 0123 or seven,eight (default: all)")
	if withMode {
		flags.StringVar(&practiceMode, "mode", defaultMode, "practice mode: trace or draw")
	}
	flags.StringVar(&practiceOrder, "order", defaultOrder, "glyph order: sequential or random")
	flags.IntVar(&practiceRounds, "rounds", defaultRounds, "glyphs per session (0 keeps going)")
	flags.StringVar(&practiceGlyphFile, "glyph-file", "", "TOML glyph set (default: "+config.DefaultGlyphFilePath()+" or built-in digits)")
	flags.BoolVar(&practiceFocusWeak, "focus-weak", false, "bias practice toward weak glyphs")
	flags.IntVar(&practiceWeakTop, "weak-top", defaultWeakTop, "number of weak glyphs to focus on")
	flags.Float64Var(&practiceWeakFactor, "weak-factor", defaultWeakFactor, "extra weight for weak glyphs")
	flags.IntVar(&practiceWeakWindow, "weak-window", defaultWeakWindow, "number of recent attempts used to find weak glyphs")
	flags.BoolVar(&practiceSpeech, "speech", false, "speak glyph names and praise")
	flags.StringVar(&practiceSpeechCommand, "speech-command", "", "text-to-speech command (default: auto-detect espeak/say)")
}

func setupLogging(_ *cobra.Command, _ []string) error {
	if !debugLog {
		return nil
	}
	logger, closeFn, err := logging.OpenFile(config.DefaultLogPath(), slog.LevelDebug)
	if err != nil {
		return err
	}
	logging.Set(logger)
	closeLog = closeFn
	logger.Debug("numtrace start", "args", os.Args[1:])
	return nil
}

func teardownLogging(_ *cobra.Command, _ []string) error {
	if closeLog == nil {
		return nil
	}
	logging.Set(nil)
	if err := closeLog(); err != nil {
		logErrf("failed to close log: %v\n", err)
	}
	closeLog = nil
	return nil
}

func newDrawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draw",
		Short: "Draw glyphs freely; coverage decides when they are done",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPractice(cmd, string(model.ModeDraw))
		},
	}
	addPracticeFlags(cmd, false)
	return cmd
}

func runPractice(cmd *cobra.Command, forceMode string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := fileCfg.Validate(); err != nil {
		return err
	}
	p := fileCfg.Practice
	applyStringConfig(cmd, "glyphs", &practiceGlyphs, p.Glyphs)
	applyStringConfig(cmd, "mode", &practiceMode, p.Mode)
	applyStringConfig(cmd, "order", &practiceOrder, p.Order)
	applyIntConfig(cmd, "rounds", &practiceRounds, p.Rounds)
	applyStringConfig(cmd, "glyph-file", &practiceGlyphFile, p.GlyphFile)
	applyBoolConfig(cmd, "focus-weak", &practiceFocusWeak, p.FocusWeak)
	applyIntConfig(cmd, "weak-top", &practiceWeakTop, p.WeakTop)
	applyFloatConfig(cmd, "weak-factor", &practiceWeakFactor, p.WeakFactor)
	applyIntConfig(cmd, "weak-window", &practiceWeakWindow, p.WeakWindow)
	applyBoolConfig(cmd, "speech", &practiceSpeech, p.Speech)
	applyStringConfig(cmd, "speech-command", &practiceSpeechCommand, p.SpeechCommand)
	if forceMode != "" {
		practiceMode = forceMode
	}

	mode, err := model.ParseMode(practiceMode)
	if err != nil {
		return err
	}
	order, err := model.ParseOrder(practiceOrder)
	if err != nil {
		return err
	}
	cfg := model.Config{
		Glyphs:        practiceGlyphs,
		Mode:          mode,
		Order:         order,
		Rounds:        practiceRounds,
		GlyphFile:     practiceGlyphFile,
		FocusWeak:     practiceFocusWeak,
		WeakTop:       practiceWeakTop,
		WeakFactor:    practiceWeakFactor,
		WeakWindow:    practiceWeakWindow,
		Speech:        practiceSpeech,
		SpeechCommand: practiceSpeechCommand,
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	set, setName, err := loadGlyphSet(cfg.GlyphFile)
	if err != nil {
		return err
	}
	glyphs, err := set.Select(cfg.Glyphs)
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	logger := logging.Logger()
	board, err := tui.NewModel(tui.Options{
		Config:    cfg,
		Glyphs:    glyphs,
		GlyphSet:  setName,
		Store:     st,
		Generator: generator.New(),
		Speaker:   speech.New(cfg.Speech, cfg.SpeechCommand, os.Stderr, logger),
		Trace:     fileCfg.Trace.TraceOptions(trace.DefaultOptions()),
		Draw:      fileCfg.Draw.CoverageOptions(coverage.Options{}),
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	program := tea.NewProgram(board, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

// loadGlyphSet loads path, else the user set in the config dir, else the
// built-in digits. It returns the set and the name stored with attempts.
func loadGlyphSet(path string) (*glyph.Set, string, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultGlyphFilePath()); err == nil {
			path = config.DefaultGlyphFilePath()
		}
	}
	if path == "" {
		set, err := glyph.Builtin()
		if err != nil {
			return nil, "", fmt.Errorf("failed to load built-in glyphs: %w", err)
		}
		return set, builtinSetName, nil
	}
	set, err := glyph.LoadFile(path, glyph.DefaultLoadOptions())
	if err != nil {
		if errors.Is(err, glyph.ErrConfiguration) {
			return nil, "", fmt.Errorf("invalid glyph file %s: %w", path, err)
		}
		return nil, "", fmt.Errorf("failed to load glyph file: %w", err)
	}
	return set, path, nil
}

func newGlyphsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "glyphs",
		Short: "List and validate the glyph set",
		Args:  cobra.NoArgs,
		RunE:  runGlyphsCmd,
	}
	cmd.Flags().StringVar(&glyphsFile, "glyph-file", "", "TOML glyph set to check (default: active set)")
	return cmd
}

func runGlyphsCmd(cmd *cobra.Command, _ []string) error {
	set, setName, err := loadGlyphSet(glyphsFile)
	if err != nil {
		return err
	}
	return writeGlyphList(cmd.OutOrStdout(), set, setName)
}

func writeGlyphList(w io.Writer, set *glyph.Set, setName string) error {
	lines := []string{fmt.Sprintf("Glyph set: %s (%gx%g)", setName, set.Width, set.Height)}
	for _, g := range set.Glyphs {
		lifts, corners := 0, 0
		for i := range g.Strokes {
			lifts += len(g.Strokes[i].Auto)
			corners += len(g.Strokes[i].Corners)
		}
		lines = append(lines, fmt.Sprintf("%-4s %-8s strokes=%d lifts=%d corners=%d targets=%d",
			g.Name, g.SpokenName(), len(g.Strokes), lifts, corners, len(g.CompletionPoints)))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show practice stats",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsMode, "mode", "", "mode filter: trace or draw")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N attempts")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().StringVar(&statsGlyphs, "glyph", "", "glyphs for per-glyph curves")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the TUI")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if statsMode != "" {
		if _, err := model.ParseMode(statsMode); err != nil {
			return err
		}
	}
	if statsCurveWindow < 1 {
		return fmt.Errorf("--curve-window must be >= 1")
	}

	cfg := model.StatsConfig{
		Mode:        statsMode,
		Since:       sinceTime,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
		Glyphs:      statsGlyphs,
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if statsPlain {
		return writePlainStats(cmd.Context(), cmd.OutOrStdout(), st, cfg)
	}
	program := tea.NewProgram(statsui.NewModel(st, cfg), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func writePlainStats(ctx context.Context, w io.Writer, st *store.Store, cfg model.StatsConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	report, err := stats.BuildReport(ctx, st, cfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}
	if err := stats.RenderSummary(w, report.Attempts); err != nil {
		return err
	}
	if len(report.Attempts) == 0 {
		return nil
	}
	if err := stats.RenderGlyphTable(w, report.GlyphAggsWindow); err != nil {
		return err
	}
	if err := stats.RenderCurves(w, report.Attempts, cfg.CurveWindow); err != nil {
		return err
	}
	glyphs := statsui.ParseGlyphs(cfg.Glyphs)
	if len(glyphs) == 0 {
		return nil
	}
	return stats.RenderGlyphCurvesWithSize(w, report.Attempts, glyphs, cfg.CurveWindow, 0, 10, false)
}

func newSheetCmd() *cobra.Command {
	def := sheet.DefaultOptions()
	cmd := &cobra.Command{
		Use:   "sheet",
		Short: "Render a printable PNG practice sheet",
		Args:  cobra.NoArgs,
		RunE:  runSheetCmd,
	}
	cmd.Flags().StringVarP(&sheetOut, "out", "o", defaultSheetPath, "output PNG path")
	cmd.Flags().StringVar(&sheetGlyphs, "glyphs", "", "glyphs to include (default: all)")
	cmd.Flags().StringVar(&sheetGlyphFile, "glyph-file", "", "TOML glyph set (default: active set)")
	cmd.Flags().IntVar(&sheetColumns, "columns", def.Columns, "cells per row")
	cmd.Flags().IntVar(&sheetRepeats, "repeats", def.Repeats, "copies of each glyph")
	cmd.Flags().StringVar(&sheetTitle, "title", "", "title printed above the grid")
	cmd.Flags().BoolVar(&sheetNoOrder, "no-order", false, "hide start dots and stroke numbers")
	return cmd
}

func runSheetCmd(cmd *cobra.Command, _ []string) error {
	if sheetColumns < 1 || sheetRepeats < 1 {
		return fmt.Errorf("--columns and --repeats must be >= 1")
	}
	set, _, err := loadGlyphSet(sheetGlyphFile)
	if err != nil {
		return err
	}
	glyphs, err := set.Select(sheetGlyphs)
	if err != nil {
		return err
	}
	opts := sheet.DefaultOptions()
	opts.Columns = sheetColumns
	opts.Repeats = sheetRepeats
	opts.Title = sheetTitle
	opts.ShowOrder = !sheetNoOrder
	if dir := filepath.Dir(sheetOut); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := sheet.SavePNG(sheetOut, glyphs, opts); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d glyphs)\n", sheetOut, len(glyphs))
	return err
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	tr := trace.DefaultOptions()
	return fmt.Sprintf(`# numtrace configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# glyphs = "0123456789"        # Glyphs to practise (default: all)
# mode = %q                 # trace or draw
# order = %q           # sequential or random
# rounds = %d                  # Glyphs per session (0 keeps going)
# glyph-file = %q
# focus-weak = false           # Bias practice toward weak glyphs
# weak-top = %d                 # Number of weak glyphs to focus on
# weak-factor = %.1f           # Extra weight for weak glyphs
# weak-window = %d             # Recent attempts used to find weak glyphs
# speech = false               # Speak glyph names and praise
# speech-command = "espeak-ng -s 130"

[trace]
# grab-radius = %.1f           # How close a press must be to the handle
# max-distance = %.1f          # Farthest a drag may stray from the stroke
# look-behind = %d
# look-ahead = %d
# first-look-ahead = %d
# advance-threshold = %.2f     # Segment fraction that commits progress (0-1]
# finish-threshold = %.2f      # Fraction of the last segment that ends a stroke
# settle-delay-ms = %d
# section-break-delay-ms = %d
# stroke-delay-ms = %d         # Pause before the next stroke starts

[draw]
# line-thickness = %.1f
# tolerance-factor = %.2f      # Coverage radius as a share of the line thickness
# coverage-threshold = %.2f    # Share of targets to cover (0-1]
# flood-factor = %.1f          # Ink allowed, in glyph heights, before scribble warning
`,
		defaultMode,
		defaultOrder,
		defaultRounds,
		config.DefaultGlyphFilePath(),
		defaultWeakTop,
		defaultWeakFactor,
		defaultWeakWindow,
		tr.GrabRadius,
		tr.MaxDistance,
		tr.LookBehind,
		tr.LookAhead,
		tr.FirstLookAhead,
		tr.AdvanceThreshold,
		tr.FinishThreshold,
		tr.SettleDelay.Milliseconds(),
		tr.SectionBreakDelay.Milliseconds(),
		tr.StrokeDelay.Milliseconds(),
		coverage.DefaultLineThickness,
		coverage.DefaultToleranceFactor,
		coverage.DefaultThreshold,
		coverage.DefaultFloodFactor,
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.Rounds < 0 {
		return fmt.Errorf("--rounds must be >= 0")
	}
	if cfg.WeakTop < 0 {
		return fmt.Errorf("--weak-top must be >= 0")
	}
	if cfg.WeakFactor < 0 {
		return fmt.Errorf("--weak-factor must be >= 0")
	}
	if cfg.WeakWindow < 0 {
		return fmt.Errorf("--weak-window must be >= 0")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
