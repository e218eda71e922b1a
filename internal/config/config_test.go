package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default config should validate: %v", err)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	doc := `
sequencer:
  tracks: 3
  max_duration_s: 2
  pixels: 864
  blend_mode: screen
tracks:
  - id: 2
    speed: 0.5
    loop_mode: pingpong
    player_mix: 1
input:
  pattern: "SP3CTRA"
show_stats: true
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Sequencer.Tracks != 3 || cfg.Sequencer.Pixels != 864 || cfg.Sequencer.MaxDuration != 2 {
		t.Errorf("Unexpected sequencer section: %+v", cfg.Sequencer)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Sequencer.FrameRate != 1000 || !cfg.Sequencer.Enabled || cfg.Output.LinesPerFrame != 400 {
		t.Errorf("Defaults lost: frame rate %.0f enabled %v lines/frame %d",
			cfg.Sequencer.FrameRate, cfg.Sequencer.Enabled, cfg.Output.LinesPerFrame)
	}
	if len(cfg.Tracks) != 1 || cfg.Tracks[0].Speed == nil || *cfg.Tracks[0].Speed != 0.5 {
		t.Fatalf("Track preset not parsed: %+v", cfg.Tracks)
	}
	if cfg.Tracks[0].Exposure != nil {
		t.Errorf("Unset preset field should stay nil")
	}
	if !cfg.ShowStats || cfg.Input.Pattern != "SP3CTRA" {
		t.Errorf("Unexpected input/show_stats: %+v %v", cfg.Input, cfg.ShowStats)
	}

	opts := cfg.SequencerOptions()
	if opts.Tracks != 3 || opts.Pixels != 864 {
		t.Errorf("SequencerOptions mismatch: %+v", opts)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		substr string
	}{
		{"no tracks", func(c *Config) { c.Sequencer.Tracks = 0 }, "sequencer.tracks"},
		{"too many tracks", func(c *Config) { c.Sequencer.Tracks = 11 }, "sequencer.tracks"},
		{"oversized ring", func(c *Config) { c.Sequencer.MaxDuration = 60 }, "exceeds"},
		{"zero pixels", func(c *Config) { c.Sequencer.Pixels = 0 }, "pixels"},
		{"bad blend", func(c *Config) { c.Sequencer.BlendMode = "overlay" }, "blend_mode"},
		{"track id out of range", func(c *Config) { c.Tracks = []TrackConfig{{ID: 9}} }, "outside"},
		{"duplicate track", func(c *Config) { c.Tracks = []TrackConfig{{ID: 1}, {ID: 1}} }, "twice"},
		{"bad loop mode", func(c *Config) { c.Tracks = []TrackConfig{{ID: 1, LoopMode: "bounce"}} }, "loop mode"},
		{"zero lines per frame", func(c *Config) { c.Output.LinesPerFrame = 0 }, "lines_per_frame"},
		{"quality", func(c *Config) { c.Output.Quality = 0 }, "quality"},
	}

	for _, tt := range tests {
		cfg := Default()
		tt.mutate(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected error", tt.name)
			continue
		}
		if !strings.Contains(err.Error(), tt.substr) {
			t.Errorf("%s: error %q does not mention %q", tt.name, err, tt.substr)
		}
	}
}

func TestWriteThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.MIDI.Port = "Launch Control"
	cfg.Script = "cues.yaml"

	if err := Write(cfg, path); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.MIDI.Port != "Launch Control" || got.Script != "cues.yaml" {
		t.Errorf("Round trip lost fields: %+v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
