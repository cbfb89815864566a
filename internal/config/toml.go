// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/numtrace/internal/coverage"
	"github.com/verte-zerg/numtrace/internal/trace"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Trace    TraceConfig    `toml:"trace"`
	Draw     DrawConfig     `toml:"draw"`
}

// PracticeConfig maps practice-related settings. Every field has a CLI flag.
type PracticeConfig struct {
	Glyphs        *string  `toml:"glyphs"`
	Mode          *string  `toml:"mode"`
	Order         *string  `toml:"order"`
	Rounds        *int     `toml:"rounds"`
	GlyphFile     *string  `toml:"glyph-file"`
	FocusWeak     *bool    `toml:"focus-weak"`
	WeakTop       *int     `toml:"weak-top"`
	WeakFactor    *float64 `toml:"weak-factor"`
	WeakWindow    *int     `toml:"weak-window"`
	Speech        *bool    `toml:"speech"`
	SpeechCommand *string  `toml:"speech-command"`
}

// TraceConfig tunes the stroke tracer. Distances are in glyph units.
type TraceConfig struct {
	GrabRadius          *float64 `toml:"grab-radius"`
	MaxDistance         *float64 `toml:"max-distance"`
	LookBehind          *int     `toml:"look-behind"`
	LookAhead           *int     `toml:"look-ahead"`
	FirstLookAhead      *int     `toml:"first-look-ahead"`
	AdvanceThreshold    *float64 `toml:"advance-threshold"`
	FinishThreshold     *float64 `toml:"finish-threshold"`
	SettleDelayMs       *int     `toml:"settle-delay-ms"`
	SectionBreakDelayMs *int     `toml:"section-break-delay-ms"`
	StrokeDelayMs       *int     `toml:"stroke-delay-ms"`
}

// DrawConfig tunes free-draw coverage.
type DrawConfig struct {
	LineThickness     *float64 `toml:"line-thickness"`
	ToleranceFactor   *float64 `toml:"tolerance-factor"`
	CoverageThreshold *float64 `toml:"coverage-threshold"`
	FloodFactor       *float64 `toml:"flood-factor"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}

// TraceOptions overlays the [trace] section on base.
func (c TraceConfig) TraceOptions(base trace.Options) trace.Options {
	setFloat(&base.GrabRadius, c.GrabRadius)
	setFloat(&base.MaxDistance, c.MaxDistance)
	setInt(&base.LookBehind, c.LookBehind)
	setInt(&base.LookAhead, c.LookAhead)
	setInt(&base.FirstLookAhead, c.FirstLookAhead)
	setFloat(&base.AdvanceThreshold, c.AdvanceThreshold)
	setFloat(&base.FinishThreshold, c.FinishThreshold)
	setMillis(&base.SettleDelay, c.SettleDelayMs)
	setMillis(&base.SectionBreakDelay, c.SectionBreakDelayMs)
	setMillis(&base.StrokeDelay, c.StrokeDelayMs)
	return base
}

// CoverageOptions overlays the [draw] section on base.
func (c DrawConfig) CoverageOptions(base coverage.Options) coverage.Options {
	setFloat(&base.LineThickness, c.LineThickness)
	setFloat(&base.ToleranceFactor, c.ToleranceFactor)
	setFloat(&base.Threshold, c.CoverageThreshold)
	setFloat(&base.FloodFactor, c.FloodFactor)
	return base
}

// Validate rejects values the engines would silently replace with defaults.
func (c FileConfig) Validate() error {
	if err := checkFraction("trace.advance-threshold", c.Trace.AdvanceThreshold); err != nil {
		return err
	}
	if err := checkFraction("trace.finish-threshold", c.Trace.FinishThreshold); err != nil {
		return err
	}
	if err := checkFraction("draw.coverage-threshold", c.Draw.CoverageThreshold); err != nil {
		return err
	}
	if err := checkPositive("draw.line-thickness", c.Draw.LineThickness); err != nil {
		return err
	}
	if err := checkPositive("draw.tolerance-factor", c.Draw.ToleranceFactor); err != nil {
		return err
	}
	if err := checkPositive("draw.flood-factor", c.Draw.FloodFactor); err != nil {
		return err
	}
	if err := checkPositive("trace.grab-radius", c.Trace.GrabRadius); err != nil {
		return err
	}
	return checkPositive("trace.max-distance", c.Trace.MaxDistance)
}

func checkFraction(name string, v *float64) error {
	if v != nil && (*v <= 0 || *v > 1) {
		return fmt.Errorf("%s must be in (0, 1]", name)
	}
	return nil
}

func checkPositive(name string, v *float64) error {
	if v != nil && *v <= 0 {
		return fmt.Errorf("%s must be > 0", name)
	}
	return nil
}

func setFloat(target, value *float64) {
	if value != nil {
		*target = *value
	}
}

func setInt(target, value *int) {
	if value != nil {
		*target = *value
	}
}

func setMillis(target *time.Duration, value *int) {
	if value != nil {
		*target = time.Duration(*value) * time.Millisecond
	}
}
