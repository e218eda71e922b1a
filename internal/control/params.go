package control

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrUnknownParam is returned for a parameter name the dispatcher does not know.
var ErrUnknownParam = errors.New("unknown parameter")

const (
	playerPrefix = "sequencer_player_"
	globalPrefix = "sequencer_global_"
)

// Scaling selects how a normalized [0, 1] control value maps to a raw value.
type Scaling int

const (
	ScaleLinear Scaling = iota
	ScaleExponential
	ScaleDiscrete
)

// ParamSpec describes the range of one controllable parameter.
type ParamSpec struct {
	Name    string
	Min     float64
	Max     float64
	Default float64
	Scaling Scaling
	Button  bool // Fires on a normalized value above 0.5, ignores the rest
}

// Scale maps a normalized value to the parameter's raw range.
func (p ParamSpec) Scale(norm float64) float64 {
	norm = math.Max(0, math.Min(1, norm))
	switch p.Scaling {
	case ScaleExponential:
		if p.Min > 0 {
			return p.Min * math.Pow(p.Max/p.Min, norm)
		}
	case ScaleDiscrete:
		return math.Round(p.Min + (p.Max-p.Min)*norm)
	}
	return p.Min + (p.Max-p.Min)*norm
}

// Clamp limits a raw value to the parameter's range.
func (p ParamSpec) Clamp(raw float64) float64 {
	return math.Max(p.Min, math.Min(p.Max, raw))
}

// Per-track parameters. Names are suffixes of sequencer_player_<n>_.
var playerParams = []ParamSpec{
	{Name: "record_toggle", Max: 1, Button: true},
	{Name: "play_stop", Max: 1, Button: true},
	{Name: "mute_toggle", Max: 1, Button: true},
	{Name: "clear", Max: 1, Button: true},
	{Name: "speed", Min: 0.1, Max: 10, Default: 1, Scaling: ScaleExponential},
	{Name: "offset", Max: 5000},
	{Name: "attack", Max: 1},
	{Name: "decay", Max: 1},
	{Name: "sustain", Max: 1, Default: 1},
	{Name: "release", Max: 1},
	{Name: "loop_mode", Max: 2, Scaling: ScaleDiscrete},
	{Name: "playback_direction", Max: 1, Scaling: ScaleDiscrete},
	{Name: "trigger_mode", Max: 2, Scaling: ScaleDiscrete},
	{Name: "exposure", Max: 1, Default: 0.5},
	{Name: "brightness", Min: 0.5, Max: 2, Default: 1},
	{Name: "player_mix", Max: 1},
	{Name: "mix_enabled", Max: 1, Default: 1, Scaling: ScaleDiscrete},
}

// Sequencer-wide parameters. Names are suffixes of sequencer_global_.
var globalParams = []ParamSpec{
	{Name: "enabled", Max: 1, Default: 1, Scaling: ScaleDiscrete},
	{Name: "blend_mode", Max: 3, Scaling: ScaleDiscrete},
	{Name: "master_tempo", Min: 60, Max: 240, Default: 120},
	{Name: "midi_sync", Max: 1, Scaling: ScaleDiscrete},
}

func findSpec(specs []ParamSpec, name string) (ParamSpec, bool) {
	for _, p := range specs {
		if p.Name == name {
			return p, true
		}
	}
	return ParamSpec{}, false
}

// PlayerParam builds the full name of a per-track parameter. track is 1-based.
func PlayerParam(track int, name string) string {
	return fmt.Sprintf("%s%d_%s", playerPrefix, track, name)
}

// GlobalParam builds the full name of a sequencer-wide parameter.
func GlobalParam(name string) string {
	return globalPrefix + name
}

// param is a parsed parameter name. track is -1 for global parameters.
type param struct {
	track int
	spec  ParamSpec
}

func parseParam(name string) (param, error) {
	if rest, ok := strings.CutPrefix(name, globalPrefix); ok {
		if spec, found := findSpec(globalParams, rest); found {
			return param{track: -1, spec: spec}, nil
		}
		return param{}, fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}

	rest, ok := strings.CutPrefix(name, playerPrefix)
	if !ok {
		return param{}, fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	num, suffix, ok := strings.Cut(rest, "_")
	if !ok {
		return param{}, fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 {
		return param{}, fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	spec, found := findSpec(playerParams, suffix)
	if !found {
		return param{}, fmt.Errorf("%w: %s", ErrUnknownParam, name)
	}
	return param{track: n - 1, spec: spec}, nil
}

// Names lists every parameter name for a sequencer with the given track count.
func Names(tracks int) []string {
	names := make([]string, 0, tracks*len(playerParams)+len(globalParams))
	for n := 1; n <= tracks; n++ {
		for _, p := range playerParams {
			names = append(names, PlayerParam(n, p.Name))
		}
	}
	for _, p := range globalParams {
		names = append(names, GlobalParam(p.Name))
	}
	return names
}

// Lookup returns the ParamSpec for a full parameter name.
func Lookup(name string) (ParamSpec, error) {
	p, err := parseParam(name)
	if err != nil {
		return ParamSpec{}, err
	}
	return p.spec, nil
}
