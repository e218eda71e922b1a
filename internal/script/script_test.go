package script

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Ondulab/Sp3ctra-sub004/internal/control"
	"github.com/Ondulab/Sp3ctra-sub004/internal/sequencer"
)

func TestDue(t *testing.T) {
	s := &Script{Cues: []Cue{
		{Frame: 10, Param: control.PlayerParam(1, "speed"), Value: 2},
		{Frame: 0, Param: control.PlayerParam(1, "record_toggle"), Value: 1},
		{Frame: 10, Param: control.PlayerParam(1, "exposure"), Value: 0.7},
		{Frame: 40, Param: control.GlobalParam("enabled"), Value: 0},
	}}
	s.Sort()

	tests := []struct {
		frame uint64
		want  int
	}{
		{0, 1},
		{5, 0},
		{10, 2},
		{40, 1},
		{41, 0},
	}
	for _, tt := range tests {
		if got := s.Due(tt.frame); len(got) != tt.want {
			t.Errorf("Due(%d): expected %d cues, got %d", tt.frame, tt.want, len(got))
		}
	}

	// Stable sort keeps file order inside a frame.
	due := s.Due(10)
	if due[0].Param != control.PlayerParam(1, "speed") {
		t.Errorf("Expected speed cue first, got %s", due[0].Param)
	}
	if s.Last() != 40 {
		t.Errorf("Expected last frame 40, got %d", s.Last())
	}
}

func TestScriptWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cues.yaml")
	s := &Script{
		Version: "1.0",
		Cues: []Cue{
			{Frame: 200, Param: control.PlayerParam(1, "play_stop"), Value: 1},
			{Frame: 0, Param: control.PlayerParam(1, "record_toggle"), Value: 1, Comment: "arm"},
		},
	}
	if err := Write(s, path); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Version != "1.0" || len(got.Cues) != 2 {
		t.Fatalf("Unexpected script: %+v", got)
	}
	if got.Cues[0].Frame != 0 || got.Cues[0].Comment != "arm" {
		t.Errorf("Expected cues sorted by frame on read, got %+v", got.Cues)
	}
}

func TestReadRejectsUnknownParam(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	doc := "version: \"1.0\"\ncues:\n  - frame: 3\n    param: sequencer_player_1_warp\n    value: 1\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); err == nil {
		t.Error("Expected error for unknown parameter")
	}
}

func TestApplyCues(t *testing.T) {
	quiet := log.New(io.Discard, "", 0)
	seq, err := sequencer.New(sequencer.Options{Tracks: 1, MaxDuration: 1, FrameRate: 8, Pixels: 2, Logger: quiet})
	if err != nil {
		t.Fatal(err)
	}
	d := control.NewDispatcher(seq, quiet)

	cues := []Cue{
		{Param: control.PlayerParam(1, "speed"), Value: 3},
		{Param: control.PlayerParam(1, "player_mix"), Value: 0.5, Normalized: true},
		{Param: control.PlayerParam(1, "speed"), Value: 1, Normalized: true},
	}
	for _, c := range cues[:2] {
		if err := c.Apply(d); err != nil {
			t.Fatalf("Apply %s: %v", c.Param, err)
		}
	}
	st, _ := seq.Snapshot()
	if st.Tracks[0].Speed != 3 || st.Tracks[0].PlayerMix != 0.5 {
		t.Errorf("Unexpected track after cues: speed %.2f mix %.2f", st.Tracks[0].Speed, st.Tracks[0].PlayerMix)
	}

	cues[2].Apply(d)
	st, _ = seq.Snapshot()
	if st.Tracks[0].Speed < 9.99 {
		t.Errorf("Normalized 1.0 should map to max speed, got %.2f", st.Tracks[0].Speed)
	}
}

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.yaml")
	recent := filepath.Join(dir, "recent.yml")
	for _, p := range []string{old, recent, filepath.Join(dir, "notes.txt")} {
		if err := os.WriteFile(p, []byte("version: \"1.0\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, past, past); err != nil {
		t.Fatal(err)
	}

	got, err := FindLatest(dir)
	if err != nil {
		t.Fatalf("FindLatest: %v", err)
	}
	if got != recent {
		t.Errorf("Expected %s, got %s", recent, got)
	}

	if _, err := FindLatest(t.TempDir()); err == nil {
		t.Error("Expected error for directory without cue sheets")
	}
}
