// Package envelope implements the positional ADSR curve that shapes a track's
// presence over the fraction of its recorded sequence already traversed.
//
// Unlike a time-based envelope, the level depends only on the normalized
// position p in [0, 1], so it is unaffected by playback speed and direction.
package envelope

import "math"

// Envelope holds the attack, decay and release ratios (fractions of the
// sequence length) and the sustain level. The three ratios never sum above 1.
type Envelope struct {
	attack  float64
	decay   float64
	sustain float64
	release float64

	level float64 // Last computed level
}

// New returns a flat envelope: no attack, decay or release, full sustain.
func New() *Envelope {
	return &Envelope{sustain: 1.0}
}

func (e *Envelope) Attack() float64  { return e.attack }
func (e *Envelope) Decay() float64   { return e.decay }
func (e *Envelope) Sustain() float64 { return e.sustain }
func (e *Envelope) Release() float64 { return e.release }

// Current returns the level computed by the last call to Update.
func (e *Envelope) Current() float64 { return e.level }

// SetAttack sets the attack ratio, clamped to [0, 1].
func (e *Envelope) SetAttack(ratio float64) {
	e.attack = clamp01(ratio)
	e.normalize()
}

// SetDecay sets the decay ratio, clamped to [0, 1].
func (e *Envelope) SetDecay(ratio float64) {
	e.decay = clamp01(ratio)
	e.normalize()
}

// SetSustain sets the sustain level, clamped to [0, 1].
func (e *Envelope) SetSustain(level float64) {
	e.sustain = clamp01(level)
}

// SetRelease sets the release ratio, clamped to [0, 1].
func (e *Envelope) SetRelease(ratio float64) {
	e.release = clamp01(ratio)
	e.normalize()
}

// Set replaces all four parameters at once.
func (e *Envelope) Set(attack, decay, sustain, release float64) {
	e.attack = clamp01(attack)
	e.decay = clamp01(decay)
	e.sustain = clamp01(sustain)
	e.release = clamp01(release)
	e.normalize()
}

// normalize rescales the three ratios proportionally so their sum is exactly 1
// whenever it would otherwise exceed 1.
func (e *Envelope) normalize() {
	sum := e.attack + e.decay + e.release
	if sum <= 1.0 {
		return
	}
	e.attack /= sum
	e.decay /= sum
	e.release /= sum
}

// Level returns the envelope value at normalized position p without
// changing the stored level.
func (e *Envelope) Level(p float64) float64 {
	p = clamp01(p)

	if p < e.attack {
		return p / e.attack
	}

	decayEnd := e.attack + e.decay
	if p < decayEnd {
		t := (p - e.attack) / e.decay
		return 1.0 + (e.sustain-1.0)*t
	}

	releaseStart := 1.0 - e.release
	if p < releaseStart || e.release == 0 {
		return e.sustain
	}

	t := (p - releaseStart) / e.release
	level := e.sustain * (1.0 - t)
	if level < 0 {
		return 0
	}
	return level
}

// Update computes the level at p, stores it and returns it.
func (e *Envelope) Update(p float64) float64 {
	e.level = e.Level(p)
	return e.level
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
