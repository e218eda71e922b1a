package sequencer

import (
	"fmt"
	"strings"
)

// State is the lifecycle state of a track.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateReady
	StatePlaying
	StateStopped
	StateMuted
	StateRecordingPlaying
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRecording:
		return "RECORDING"
	case StateReady:
		return "READY"
	case StatePlaying:
		return "PLAYING"
	case StateStopped:
		return "STOPPED"
	case StateMuted:
		return "MUTED"
	case StateRecordingPlaying:
		return "RECORDING_PLAYING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// records reports whether a track in this state accepts live frames.
func (s State) records() bool {
	return s == StateRecording || s == StateRecordingPlaying
}

// plays reports whether a track in this state advances and emits playback.
func (s State) plays() bool {
	return s == StatePlaying || s == StateRecordingPlaying
}

// LoopMode selects what happens when playback runs past either end.
type LoopMode int

const (
	LoopSimple LoopMode = iota
	LoopPingPong
	LoopOneShot
)

func (m LoopMode) String() string {
	switch m {
	case LoopSimple:
		return "SIMPLE"
	case LoopPingPong:
		return "PINGPONG"
	case LoopOneShot:
		return "ONESHOT"
	default:
		return fmt.Sprintf("LoopMode(%d)", int(m))
	}
}

// TriggerMode selects how playback starts once recording stops.
type TriggerMode int

const (
	TriggerManual TriggerMode = iota
	TriggerAuto
	// TriggerSync is reserved for MIDI-clock quantized starts. It currently
	// behaves exactly like TriggerManual.
	TriggerSync
)

func (m TriggerMode) String() string {
	switch m {
	case TriggerManual:
		return "MANUAL"
	case TriggerAuto:
		return "AUTO"
	case TriggerSync:
		return "SYNC"
	default:
		return fmt.Sprintf("TriggerMode(%d)", int(m))
	}
}

// BlendMode tells downstream consumers how to interpret the composite.
// Per-track compositing does not depend on it.
type BlendMode int

const (
	BlendMix BlendMode = iota
	BlendAdd
	BlendScreen
	BlendMask
)

func (m BlendMode) String() string {
	switch m {
	case BlendMix:
		return "MIX"
	case BlendAdd:
		return "ADD"
	case BlendScreen:
		return "SCREEN"
	case BlendMask:
		return "MASK"
	default:
		return fmt.Sprintf("BlendMode(%d)", int(m))
	}
}

// Direction is the playback direction, +1 forward or -1 reverse.
type Direction int

const (
	Forward Direction = 1
	Reverse Direction = -1
)

func (d Direction) String() string {
	if d == Reverse {
		return "REVERSE"
	}
	return "FORWARD"
}

// ParseLoopMode accepts the names produced by LoopMode.String, case-insensitively.
func ParseLoopMode(s string) (LoopMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SIMPLE", "":
		return LoopSimple, nil
	case "PINGPONG", "PING-PONG":
		return LoopPingPong, nil
	case "ONESHOT", "ONE-SHOT":
		return LoopOneShot, nil
	}
	return LoopSimple, fmt.Errorf("unknown loop mode: %s", s)
}

// ParseTriggerMode accepts the names produced by TriggerMode.String.
func ParseTriggerMode(s string) (TriggerMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MANUAL", "":
		return TriggerManual, nil
	case "AUTO":
		return TriggerAuto, nil
	case "SYNC":
		return TriggerSync, nil
	}
	return TriggerManual, fmt.Errorf("unknown trigger mode: %s", s)
}

// ParseBlendMode accepts the names produced by BlendMode.String.
func ParseBlendMode(s string) (BlendMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MIX", "":
		return BlendMix, nil
	case "ADD":
		return BlendAdd, nil
	case "SCREEN":
		return BlendScreen, nil
	case "MASK":
		return BlendMask, nil
	}
	return BlendMix, fmt.Errorf("unknown blend mode: %s", s)
}

// ParseDirection accepts "forward"/"reverse" and their one-letter forms.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "FORWARD", "F", "":
		return Forward, nil
	case "REVERSE", "R", "BACKWARD":
		return Reverse, nil
	}
	return Forward, fmt.Errorf("unknown playback direction: %s", s)
}
