package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Ondulab/Sp3ctra-sub004/internal/sequencer"
)

// Config is the whole session configuration. Command-line flags override
// whatever Load read from disk.
type Config struct {
	Sequencer SequencerConfig `yaml:"sequencer"`
	Tracks    []TrackConfig   `yaml:"tracks"`
	Input     InputConfig     `yaml:"input"`
	Output    OutputConfig    `yaml:"output"`
	MIDI      MIDIConfig      `yaml:"midi"`
	Script    string          `yaml:"script"`
	ShowStats bool            `yaml:"show_stats"`

	BuildVersion string `yaml:"-"`
}

type SequencerConfig struct {
	Tracks      int     `yaml:"tracks"`
	MaxDuration float64 `yaml:"max_duration_s"`
	FrameRate   float64 `yaml:"frame_rate"`
	Pixels      int     `yaml:"pixels"`
	Enabled     bool    `yaml:"enabled"`
	BlendMode   string  `yaml:"blend_mode"`
	BPM         float64 `yaml:"bpm"`
	MIDISync    bool    `yaml:"midi_sync"`
}

// TrackConfig is a per-track preset applied at session start. Nil fields keep
// the sequencer default.
type TrackConfig struct {
	ID          int      `yaml:"id"` // 1-based, matching the control parameter names
	Speed       *float64 `yaml:"speed,omitempty"`
	Direction   string   `yaml:"direction,omitempty"`
	LoopMode    string   `yaml:"loop_mode,omitempty"`
	TriggerMode string   `yaml:"trigger_mode,omitempty"`
	Offset      *int     `yaml:"offset,omitempty"`
	Attack      *float64 `yaml:"attack,omitempty"`
	Decay       *float64 `yaml:"decay,omitempty"`
	Sustain     *float64 `yaml:"sustain,omitempty"`
	Release     *float64 `yaml:"release,omitempty"`
	Exposure    *float64 `yaml:"exposure,omitempty"`
	Brightness  *float64 `yaml:"brightness,omitempty"`
	PlayerMix   *float64 `yaml:"player_mix,omitempty"`
	MixEnabled  *bool    `yaml:"mix_enabled,omitempty"`
	Record      bool     `yaml:"record,omitempty"` // Arm recording at start
}

type InputConfig struct {
	Path     string `yaml:"path"`
	Pattern  string `yaml:"pattern"` // Text rendered as a QR test pattern when Path is empty
	DPI      int    `yaml:"dpi"`
	Loop     bool   `yaml:"loop"`
	Realtime bool   `yaml:"realtime"`
	MaxLines int    `yaml:"max_lines"` // 0 = until the input ends
}

type OutputConfig struct {
	Path          string `yaml:"path"`
	FPS           int    `yaml:"fps"`
	LinesPerFrame int    `yaml:"lines_per_frame"`
	Encoder       string `yaml:"encoder"`
	Quality       int    `yaml:"quality"`
}

type MIDIConfig struct {
	Port    string `yaml:"port"`
	Mapping string `yaml:"mapping"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Sequencer: SequencerConfig{
			Tracks:      sequencer.DefaultTracks,
			MaxDuration: 5.0,
			FrameRate:   sequencer.DefaultFrameRate,
			Pixels:      sequencer.DefaultPixels,
			Enabled:     true,
			BlendMode:   "mix",
			BPM:         sequencer.DefaultBPM,
		},
		Input: InputConfig{
			DPI:  150,
			Loop: true,
		},
		Output: OutputConfig{
			Path:          "output.png",
			FPS:           30,
			LinesPerFrame: 400,
			Quality:       75,
		},
	}
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Write stores cfg as YAML.
func Write(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks ranges that would otherwise only fail deep inside a session.
func (c *Config) Validate() error {
	s := c.Sequencer
	if s.Tracks < 1 || s.Tracks > sequencer.MaxTracks {
		return fmt.Errorf("sequencer.tracks must be in [1, %d], got %d", sequencer.MaxTracks, s.Tracks)
	}
	if s.MaxDuration <= 0 || s.FrameRate <= 0 {
		return fmt.Errorf("sequencer.max_duration_s and frame_rate must be positive")
	}
	if frames := int(s.MaxDuration * s.FrameRate); frames > sequencer.MaxCapacity {
		return fmt.Errorf("sequencer: %d frames per track exceeds %d", frames, sequencer.MaxCapacity)
	}
	if s.Pixels <= 0 {
		return fmt.Errorf("sequencer.pixels must be positive, got %d", s.Pixels)
	}
	if _, err := sequencer.ParseBlendMode(s.BlendMode); err != nil {
		return fmt.Errorf("sequencer.blend_mode: %w", err)
	}

	seen := make(map[int]bool)
	for _, t := range c.Tracks {
		if t.ID < 1 || t.ID > s.Tracks {
			return fmt.Errorf("tracks: id %d outside [1, %d]", t.ID, s.Tracks)
		}
		if seen[t.ID] {
			return fmt.Errorf("tracks: id %d configured twice", t.ID)
		}
		seen[t.ID] = true

		if _, err := sequencer.ParseDirection(t.Direction); err != nil {
			return fmt.Errorf("track %d: %w", t.ID, err)
		}
		if _, err := sequencer.ParseLoopMode(t.LoopMode); err != nil {
			return fmt.Errorf("track %d: %w", t.ID, err)
		}
		if _, err := sequencer.ParseTriggerMode(t.TriggerMode); err != nil {
			return fmt.Errorf("track %d: %w", t.ID, err)
		}
	}

	if c.Output.LinesPerFrame <= 0 {
		return fmt.Errorf("output.lines_per_frame must be positive, got %d", c.Output.LinesPerFrame)
	}
	if c.Output.FPS <= 0 {
		return fmt.Errorf("output.fps must be positive, got %d", c.Output.FPS)
	}
	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output.quality must be in [1, 100], got %d", c.Output.Quality)
	}
	return nil
}

// SequencerOptions converts the sequencer section into constructor options.
func (c *Config) SequencerOptions() sequencer.Options {
	return sequencer.Options{
		Tracks:      c.Sequencer.Tracks,
		MaxDuration: c.Sequencer.MaxDuration,
		FrameRate:   c.Sequencer.FrameRate,
		Pixels:      c.Sequencer.Pixels,
	}
}
