package engine

import (
	"fmt"

	"github.com/Ondulab/Sp3ctra-sub004/internal/config"
	"github.com/Ondulab/Sp3ctra-sub004/internal/sequencer"
)

// ApplyConfig pushes the global settings and per-track presets of cfg into seq.
func ApplyConfig(seq *sequencer.Sequencer, cfg *config.Config) error {
	g := cfg.Sequencer
	blend, err := sequencer.ParseBlendMode(g.BlendMode)
	if err != nil {
		return err
	}
	if err := seq.SetEnabled(g.Enabled); err != nil {
		return err
	}
	if err := seq.SetBlendMode(blend); err != nil {
		return err
	}
	if g.BPM > 0 {
		if err := seq.SetBPM(g.BPM); err != nil {
			return err
		}
	}
	if err := seq.EnableMIDISync(g.MIDISync); err != nil {
		return err
	}

	for _, t := range cfg.Tracks {
		if err := ApplyTrackConfig(seq, t); err != nil {
			return fmt.Errorf("track %d: %w", t.ID, err)
		}
	}
	return nil
}

// ApplyTrackConfig applies one preset. Unset fields keep the current value.
func ApplyTrackConfig(seq *sequencer.Sequencer, t config.TrackConfig) error {
	id := t.ID - 1

	dir, err := sequencer.ParseDirection(t.Direction)
	if err != nil {
		return err
	}
	loop, err := sequencer.ParseLoopMode(t.LoopMode)
	if err != nil {
		return err
	}
	trigger, err := sequencer.ParseTriggerMode(t.TriggerMode)
	if err != nil {
		return err
	}

	steps := []func() error{
		func() error { return seq.SetPlaybackDirection(id, dir) },
		func() error { return seq.SetLoopMode(id, loop) },
		func() error { return seq.SetTriggerMode(id, trigger) },
	}
	float := func(v *float64, set func(int, float64) error) {
		if v != nil {
			steps = append(steps, func() error { return set(id, *v) })
		}
	}
	float(t.Speed, seq.SetSpeed)
	float(t.Attack, seq.SetAttack)
	float(t.Decay, seq.SetDecay)
	float(t.Sustain, seq.SetSustain)
	float(t.Release, seq.SetRelease)
	float(t.Exposure, seq.SetExposure)
	float(t.Brightness, seq.SetBrightness)
	float(t.PlayerMix, seq.SetPlayerMix)
	if t.Offset != nil {
		steps = append(steps, func() error { return seq.SetOffset(id, *t.Offset) })
	}
	if t.MixEnabled != nil {
		steps = append(steps, func() error { return seq.SetMixEnabled(id, *t.MixEnabled) })
	}
	if t.Record {
		steps = append(steps, func() error { return seq.StartRecording(id) })
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
