package sequencer

import (
	"fmt"
	"io"
	"strings"
)

// TrackStatus is a point-in-time copy of one track's settings.
type TrackStatus struct {
	ID             int
	State          State
	RecordedFrames int
	Position       float64
	Speed          float64
	Direction      Direction
	Offset         int
	Loop           LoopMode
	Trigger        TriggerMode
	Attack         float64
	Decay          float64
	Sustain        float64
	Release        float64
	Level          float64
	Exposure       float64
	Brightness     float64
	PlayerMix      float64
	MixEnabled     bool
}

// Status is a point-in-time copy of the whole sequencer.
type Status struct {
	Enabled     bool
	BlendMode   BlendMode
	BPM         float64
	MIDISync    bool
	LastClockUS uint64
	Capacity    int
	Pixels      int
	Stats       Stats
	Tracks      []TrackStatus
}

// Snapshot copies the sequencer state under the lock.
func (s *Sequencer) Snapshot() (Status, error) {
	var st Status
	err := s.withLock(func() {
		st = Status{
			Enabled:     s.enabled,
			BlendMode:   s.blendMode,
			BPM:         s.bpm,
			MIDISync:    s.midiSync,
			LastClockUS: s.lastClockUS,
			Capacity:    s.capacity,
			Pixels:      s.pixels,
			Stats:       s.stats(),
			Tracks:      make([]TrackStatus, len(s.tracks)),
		}
		for i, t := range s.tracks {
			st.Tracks[i] = TrackStatus{
				ID:             t.id,
				State:          t.state,
				RecordedFrames: t.recorded(),
				Position:       t.position,
				Speed:          t.speed,
				Direction:      t.direction,
				Offset:         t.offset,
				Loop:           t.loop,
				Trigger:        t.trigger,
				Attack:         t.env.Attack(),
				Decay:          t.env.Decay(),
				Sustain:        t.env.Sustain(),
				Release:        t.env.Release(),
				Level:          t.env.Current(),
				Exposure:       t.exposure,
				Brightness:     t.brightness,
				PlayerMix:      t.playerMix,
				MixEnabled:     t.mixEnabled,
			}
		}
	})
	return st, err
}

// PrintStatus writes a human-readable report of the sequencer to w.
func (s *Sequencer) PrintStatus(w io.Writer) error {
	st, err := s.Snapshot()
	if err != nil {
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "========== SEQUENCER STATUS ==========\n")
	fmt.Fprintf(&b, "Enabled:          %s\n", yesNo(st.Enabled))
	fmt.Fprintf(&b, "Blend Mode:       %s\n", st.BlendMode)
	fmt.Fprintf(&b, "BPM:              %.1f\n", st.BPM)
	fmt.Fprintf(&b, "MIDI Sync:        %s\n", yesNo(st.MIDISync))
	fmt.Fprintf(&b, "Frames Processed: %d\n", st.Stats.FramesProcessed)
	fmt.Fprintf(&b, "Avg Process Time: %.2f us\n", st.Stats.AvgProcessTimeUS)
	fmt.Fprintf(&b, "Capacity:         %d frames x %d pixels\n", st.Capacity, st.Pixels)
	fmt.Fprintf(&b, "\n")
	for _, t := range st.Tracks {
		fmt.Fprintf(&b, "Track %d: %-17s %5d frames  pos %8.2f  speed %5.2f  %s %s\n",
			t.ID, t.State, t.RecordedFrames, t.Position, t.Speed, t.Direction, t.Loop)
		fmt.Fprintf(&b, "  env a=%.2f d=%.2f s=%.2f r=%.2f (level %.2f)  exp %.2f  bright %.2f  mix %.2f  %s\n",
			t.Attack, t.Decay, t.Sustain, t.Release, t.Level,
			t.Exposure, t.Brightness, t.PlayerMix, onOff(t.MixEnabled))
	}
	fmt.Fprintf(&b, "======================================\n")

	_, err = io.WriteString(w, b.String())
	return err
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
