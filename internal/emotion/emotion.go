// Package emotion maps named speaking styles to synthesis speed.
//
// A style is only a default speed multiplier. Strength scales that speed and is
// capped, so "emotion" never reaches beyond a modest tempo change.
package emotion

import (
	"errors"
	"fmt"
	"sort"
)

const (
	DefaultEmotion     = "friendly"
	DefaultMaxStrength = 1.2

	MinStrength = 0.5
	MaxStrength = 2.0
	MinSpeed    = 0.5
	MaxSpeed    = 1.6
)

var (
	ErrUnknownEmotion = errors.New("unknown emotion")
	ErrStrengthRange  = fmt.Errorf("emotion strength must be between %.1f and %.1f", MinStrength, MaxStrength)
	ErrSpeedRange     = fmt.Errorf("speech speed must be between %.1f and %.1f", MinSpeed, MaxSpeed)
)

// Presets maps a style name to its base speed. It is loaded once and never
// mutated afterwards.
type Presets struct {
	speeds      map[string]float64
	maxStrength float64
}

// Preset is one named style.
type Preset struct {
	Name  string  `json:"name"`
	Speed float64 `json:"speed"`
}

// Settings is what a caller selects for one request. Zero Strength means 1.0
// and zero Speed means the preset's base speed.
type Settings struct {
	Emotion  string  `json:"emotion"`
	Strength float64 `json:"strength"`
	Speed    float64 `json:"speed"`
}

// Default returns the built-in styles.
func Default() Presets {
	return New(map[string]float64{
		"friendly":     1.0,
		"angry":        1.3,
		"storytelling": 0.85,
		"calm":         0.75,
		"robot":        1.05,
	}, DefaultMaxStrength)
}

// New copies speeds so later changes to the caller's map have no effect.
func New(speeds map[string]float64, maxStrength float64) Presets {
	if maxStrength <= 0 {
		maxStrength = DefaultMaxStrength
	}
	copied := make(map[string]float64, len(speeds))
	for name, speed := range speeds {
		copied[name] = speed
	}
	return Presets{speeds: copied, maxStrength: maxStrength}
}

// List returns the presets sorted by name.
func (p Presets) List() []Preset {
	out := make([]Preset, 0, len(p.speeds))
	for name, speed := range p.speeds {
		out = append(out, Preset{Name: name, Speed: speed})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// BaseSpeed returns the preset speed for name.
func (p Presets) BaseSpeed(name string) (float64, bool) {
	speed, ok := p.speeds[name]
	return speed, ok
}

// Resolve returns the effective synthesis speed: speed × min(strength, max).
func (p Presets) Resolve(s Settings) (float64, error) {
	name := s.Emotion
	if name == "" {
		name = DefaultEmotion
	}
	base, ok := p.speeds[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEmotion, name)
	}

	strength := s.Strength
	if strength == 0 {
		strength = 1.0
	}
	if strength < MinStrength || strength > MaxStrength {
		return 0, ErrStrengthRange
	}
	if strength > p.maxStrength {
		strength = p.maxStrength
	}

	speed := s.Speed
	if speed == 0 {
		speed = base
	}
	if speed < MinSpeed || speed > MaxSpeed {
		return 0, ErrSpeedRange
	}
	return speed * strength, nil
}
