package control

import (
	"errors"
	"io"
	"log"
	"math"
	"path/filepath"
	"testing"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"github.com/Ondulab/Sp3ctra-sub004/internal/frame"
	"github.com/Ondulab/Sp3ctra-sub004/internal/sequencer"
)

func newTestDispatcher(t *testing.T, tracks int) (*Dispatcher, *sequencer.Sequencer) {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)
	seq, err := sequencer.New(sequencer.Options{
		Tracks:      tracks,
		MaxDuration: 1,
		FrameRate:   16,
		Pixels:      2,
		Logger:      quiet,
	})
	if err != nil {
		t.Fatalf("sequencer.New: %v", err)
	}
	seq.SetEnabled(true)
	return NewDispatcher(seq, quiet), seq
}

func trackStatus(t *testing.T, seq *sequencer.Sequencer, id int) sequencer.TrackStatus {
	t.Helper()
	st, err := seq.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	return st.Tracks[id]
}

func TestParseParam(t *testing.T) {
	tests := []struct {
		name  string
		track int
		param string
		ok    bool
	}{
		{"sequencer_player_1_speed", 0, "speed", true},
		{"sequencer_player_10_playback_direction", 9, "playback_direction", true},
		{"sequencer_global_master_tempo", -1, "master_tempo", true},
		{"sequencer_player_0_speed", 0, "", false},
		{"sequencer_player_x_speed", 0, "", false},
		{"sequencer_player_2_warp", 0, "", false},
		{"sequencer_global_speed", 0, "", false},
		{"synth_volume", 0, "", false},
	}

	for _, tt := range tests {
		p, err := parseParam(tt.name)
		if !tt.ok {
			if !errors.Is(err, ErrUnknownParam) {
				t.Errorf("%s: expected ErrUnknownParam, got %v", tt.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
			continue
		}
		if p.track != tt.track || p.spec.Name != tt.param {
			t.Errorf("%s: got track %d param %s", tt.name, p.track, p.spec.Name)
		}
	}
}

func TestScale(t *testing.T) {
	speed, _ := Lookup(PlayerParam(1, "speed"))
	loop, _ := Lookup(PlayerParam(1, "loop_mode"))
	tempo, _ := Lookup(GlobalParam("master_tempo"))

	tests := []struct {
		name string
		spec ParamSpec
		in   float64
		want float64
	}{
		{"speed min", speed, 0, 0.1},
		{"speed centre is unity", speed, 0.5, 1.0},
		{"speed max", speed, 1, 10},
		{"loop discrete low", loop, 0.2, 0},
		{"loop discrete mid", loop, 0.5, 1},
		{"loop discrete high", loop, 1, 2},
		{"tempo linear", tempo, 0.5, 150},
		{"clamped above", tempo, 4, 240},
	}
	for _, tt := range tests {
		if got := tt.spec.Scale(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: Scale(%.2f) = %f, expected %f", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestNamesCoverEveryParam(t *testing.T) {
	names := Names(3)
	if want := 3*len(playerParams) + len(globalParams); len(names) != want {
		t.Fatalf("Expected %d names, got %d", want, len(names))
	}
	for _, n := range names {
		if _, err := Lookup(n); err != nil {
			t.Errorf("Listed name %s does not parse: %v", n, err)
		}
	}
}

func TestSetContinuousParams(t *testing.T) {
	d, seq := newTestDispatcher(t, 2)

	steps := []struct {
		name string
		raw  float64
	}{
		{PlayerParam(2, "speed"), 2.5},
		{PlayerParam(2, "exposure"), 0.8},
		{PlayerParam(2, "brightness"), 7}, // clamped to 2
		{PlayerParam(2, "player_mix"), 0.25},
		{PlayerParam(2, "loop_mode"), 1},
		{PlayerParam(2, "playback_direction"), 1},
		{PlayerParam(2, "trigger_mode"), 1},
		{PlayerParam(2, "mix_enabled"), 0},
		{PlayerParam(2, "sustain"), 0.4},
	}
	for _, s := range steps {
		if err := d.Set(s.name, s.raw); err != nil {
			t.Fatalf("Set(%s): %v", s.name, err)
		}
	}

	ts := trackStatus(t, seq, 1)
	if ts.Speed != 2.5 || ts.Exposure != 0.8 || ts.Brightness != 2 || ts.PlayerMix != 0.25 {
		t.Errorf("Unexpected continuous values: %+v", ts)
	}
	if ts.Loop != sequencer.LoopPingPong || ts.Direction != sequencer.Reverse || ts.Trigger != sequencer.TriggerAuto {
		t.Errorf("Unexpected modes: %s %s %s", ts.Loop, ts.Direction, ts.Trigger)
	}
	if ts.MixEnabled || ts.Sustain != 0.4 {
		t.Errorf("Expected mix disabled and sustain 0.4, got %v %.2f", ts.MixEnabled, ts.Sustain)
	}
	if other := trackStatus(t, seq, 0); other.Speed != 1 {
		t.Errorf("Track 1 should be untouched, speed %.2f", other.Speed)
	}
}

func TestButtonsDriveTransport(t *testing.T) {
	d, seq := newTestDispatcher(t, 1)
	rec := PlayerParam(1, "record_toggle")
	play := PlayerParam(1, "play_stop")

	// Button releases are ignored.
	if err := d.SetNormalized(rec, 0); err != nil {
		t.Fatal(err)
	}
	if st, _ := seq.TrackState(0); st != sequencer.StateIdle {
		t.Fatalf("Release should not toggle recording, state %s", st)
	}

	d.SetNormalized(rec, 1)
	seq.ProcessFrame(frame.New(2))
	d.SetNormalized(rec, 1)
	if err := d.SetNormalized(play, 1); err != nil {
		t.Fatalf("play_stop: %v", err)
	}
	if st, _ := seq.TrackState(0); st != sequencer.StatePlaying {
		t.Fatalf("Expected PLAYING, got %s", st)
	}

	d.SetNormalized(PlayerParam(1, "mute_toggle"), 1)
	if st, _ := seq.TrackState(0); st != sequencer.StateMuted {
		t.Fatalf("Expected MUTED, got %s", st)
	}
	d.SetNormalized(PlayerParam(1, "clear"), 1)
	if st, _ := seq.TrackState(0); st != sequencer.StateIdle {
		t.Fatalf("Expected IDLE after clear, got %s", st)
	}

	if err := d.SetNormalized(play, 1); !errors.Is(err, sequencer.ErrIllegalTransition) {
		t.Errorf("Expected ErrIllegalTransition on empty track, got %v", err)
	}
}

func TestGlobalParams(t *testing.T) {
	d, seq := newTestDispatcher(t, 1)

	d.Set(GlobalParam("master_tempo"), 30)
	d.Set(GlobalParam("blend_mode"), 3)
	d.Set(GlobalParam("midi_sync"), 1)
	d.Set(GlobalParam("enabled"), 0)

	st, _ := seq.Snapshot()
	if st.BPM != 60 || st.BlendMode != sequencer.BlendMask || !st.MIDISync || st.Enabled {
		t.Errorf("Unexpected globals: %+v", st)
	}
}

func TestUnknownTrackIsRejected(t *testing.T) {
	d, _ := newTestDispatcher(t, 2)
	if err := d.Set(PlayerParam(3, "speed"), 1); !errors.Is(err, sequencer.ErrInvalidTrack) {
		t.Errorf("Expected ErrInvalidTrack, got %v", err)
	}
	if err := d.Set("nope", 1); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("Expected ErrUnknownParam, got %v", err)
	}
}

func TestHandleMessage(t *testing.T) {
	d, seq := newTestDispatcher(t, 1)
	d.now = func() time.Time { return time.UnixMicro(5000) }

	m := &Mapping{Bindings: []Binding{
		{Param: PlayerParam(1, "player_mix"), Type: BindCC, Channel: 2, Number: 7},
		{Param: PlayerParam(1, "exposure"), Type: BindCC, Channel: -1, Number: 8},
		{Param: PlayerParam(1, "record_toggle"), Type: BindNote, Channel: -1, Number: 36},
	}}
	if err := d.SetMapping(m); err != nil {
		t.Fatal(err)
	}

	// Wrong channel is ignored.
	d.HandleMessage(midi.ControlChange(3, 7, 127))
	if ts := trackStatus(t, seq, 0); ts.PlayerMix != 0 {
		t.Errorf("CC on unmapped channel changed player mix to %.2f", ts.PlayerMix)
	}

	d.HandleMessage(midi.ControlChange(2, 7, 127))
	d.HandleMessage(midi.ControlChange(9, 8, 0))
	ts := trackStatus(t, seq, 0)
	if ts.PlayerMix != 1 || ts.Exposure != 0 {
		t.Errorf("Expected mix 1 and exposure 0, got %.2f %.2f", ts.PlayerMix, ts.Exposure)
	}

	if err := d.HandleMessage(midi.NoteOn(0, 36, 100)); err != nil {
		t.Fatal(err)
	}
	if st, _ := seq.TrackState(0); st != sequencer.StateRecording {
		t.Errorf("Note On should toggle recording, state %s", st)
	}

	if err := d.HandleMessage(midi.Message{midiTimingClock}); err != nil {
		t.Fatal(err)
	}
	st, _ := seq.Snapshot()
	if st.LastClockUS != 5000 {
		t.Errorf("Expected clock tick at 5000us, got %d", st.LastClockUS)
	}
	if err := d.HandleMessage(midi.Message{midiStop}); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestMappingValidate(t *testing.T) {
	tests := []struct {
		name string
		b    Binding
	}{
		{"unknown param", Binding{Param: "volume", Type: BindCC, Number: 1}},
		{"bad type", Binding{Param: GlobalParam("enabled"), Type: "pitchbend", Number: 1}},
		{"bad channel", Binding{Param: GlobalParam("enabled"), Type: BindCC, Channel: 16, Number: 1}},
		{"bad number", Binding{Param: GlobalParam("enabled"), Type: BindNote, Number: 128}},
	}
	for _, tt := range tests {
		m := &Mapping{Bindings: []Binding{tt.b}}
		if err := m.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}

	if err := DefaultMapping(10).Validate(); err != nil {
		t.Errorf("Default mapping invalid: %v", err)
	}
}

func TestMappingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapping.yaml")
	if err := WriteMapping(DefaultMapping(2), path); err != nil {
		t.Fatal(err)
	}
	m, err := LoadMapping(path)
	if err != nil {
		t.Fatalf("LoadMapping: %v", err)
	}
	if len(m.Bindings) != len(DefaultMapping(2).Bindings) {
		t.Errorf("Expected %d bindings, got %d", len(DefaultMapping(2).Bindings), len(m.Bindings))
	}
}
