package sequencer

import (
	"fmt"
	"math"

	"github.com/Ondulab/Sp3ctra-sub004/internal/envelope"
	"github.com/Ondulab/Sp3ctra-sub004/internal/frame"
)

const (
	MinSpeed      = 0.1
	MaxSpeed      = 10.0
	MinBrightness = 0.5
	MaxBrightness = 2.0

	// Fractional positions closer than this to a whole frame are not interpolated.
	interpolationEpsilon = 0.001
)

// track is one recordable/playable channel of frames. It is not safe for
// concurrent use; the owning Sequencer serializes every access.
type track struct {
	id      int
	store   *frame.Store
	scratch *frame.Frame // Interpolation output, reused every step

	position  float64
	speed     float64
	direction Direction
	offset    int

	state   State
	loop    LoopMode
	trigger TriggerMode
	env     *envelope.Envelope

	exposure   float64
	brightness float64
	playerMix  float64
	mixEnabled bool
}

func newTrack(id, capacity, pixels int) (*track, error) {
	store, err := frame.NewStore(capacity, pixels)
	if err != nil {
		return nil, fmt.Errorf("track %d: %w", id, err)
	}
	return &track{
		id:         id,
		store:      store,
		scratch:    frame.New(pixels),
		speed:      1.0,
		direction:  Forward,
		state:      StateIdle,
		loop:       LoopSimple,
		trigger:    TriggerManual,
		env:        envelope.New(),
		exposure:   0.5,
		brightness: 1.0,
		mixEnabled: true,
	}, nil
}

func (t *track) recorded() int {
	return t.store.Len()
}

func (t *track) illegal(op string) error {
	return fmt.Errorf("%w: track %d: %s from %s", ErrIllegalTransition, t.id, op, t.state)
}

func (t *track) startRecording() error {
	switch t.state {
	case StateIdle, StateReady, StateStopped:
		t.state = StateRecording
	case StatePlaying:
		t.state = StateRecordingPlaying
	default:
		return t.illegal("start recording")
	}
	return nil
}

func (t *track) stopRecording() error {
	switch t.state {
	case StateRecording:
		t.state = StateReady
		if t.trigger == TriggerAuto && t.recorded() > 0 {
			t.state = StatePlaying
			t.position = 0
		}
	case StateRecordingPlaying:
		t.state = StatePlaying
	default:
		return t.illegal("stop recording")
	}
	return nil
}

func (t *track) startPlayback() error {
	switch t.state {
	case StateReady, StateStopped, StateMuted:
	default:
		return t.illegal("start playback")
	}
	if t.recorded() == 0 {
		return fmt.Errorf("%w: track %d", ErrNoFrames, t.id)
	}
	t.state = StatePlaying
	t.position = 0
	return nil
}

func (t *track) stopPlayback() error {
	if t.state != StatePlaying {
		return t.illegal("stop playback")
	}
	t.state = StateStopped
	return nil
}

func (t *track) mute() error {
	if t.state != StatePlaying {
		return t.illegal("mute")
	}
	t.state = StateMuted
	return nil
}

func (t *track) unmute() error {
	if t.state != StateMuted {
		return t.illegal("unmute")
	}
	if t.recorded() == 0 {
		return fmt.Errorf("%w: track %d", ErrNoFrames, t.id)
	}
	t.state = StatePlaying
	return nil
}

func (t *track) clear() {
	t.store.Reset()
	t.state = StateIdle
	t.position = 0
}

func (t *track) setOffset(frames int) {
	n := t.recorded()
	if frames < 0 || n == 0 {
		frames = 0
	} else if frames >= n {
		frames = n - 1
	}
	t.offset = frames
	if n > 0 {
		t.position = float64(frames)
	}
}

// record appends live to the ring. A zero live timestamp is replaced by nowUS.
func (t *track) record(live *frame.Frame, nowUS uint64) {
	t.store.Append(live)
	if live.Timestamp == 0 {
		t.store.At(t.recorded() - 1).Timestamp = nowUS
	}
}

// play composites the frame under the cursor into acc and advances the cursor.
// visible is the number of frames playback may address this step. It reports
// whether the track contributed to the mix.
func (t *track) play(live *frame.Frame, acc *accumulator, visible int) bool {
	if visible <= 0 {
		return false
	}
	// Positions in (visible-1, visible) read the last frame unblended.
	if t.position < 0 || math.IsNaN(t.position) {
		t.position = 0
	} else if t.position >= float64(visible) {
		t.position = float64(visible - 1)
	}

	level := t.env.Update(t.position / float64(visible))

	contributed := false
	if t.mixEnabled {
		acc.add(t.source(visible), live, toneParams{
			brightness: float32(t.brightness),
			exposure:   exposureMultiplier(t.exposure),
			level:      float32(level),
			mix:        float32(t.playerMix),
		})
		contributed = true
	}

	t.advance(visible)
	return contributed
}

// source returns the frame under the cursor, blending with the next frame
// when the cursor sits between two frames.
func (t *track) source(visible int) *frame.Frame {
	idx := int(t.position)
	frac := t.position - float64(idx)
	if frac > interpolationEpsilon && idx+1 < visible {
		frame.Interpolate(t.scratch, t.store.At(idx), t.store.At(idx+1), float32(frac))
		return t.scratch
	}
	return t.store.At(idx)
}

func (t *track) advance(visible int) {
	t.position += t.speed * float64(t.direction)

	last := float64(visible - 1)
	switch {
	case t.position >= float64(visible):
		switch t.loop {
		case LoopSimple:
			t.position = 0
		case LoopPingPong:
			t.direction = Reverse
			t.position = last
		case LoopOneShot:
			t.position = last
			t.finishOneShot()
		}
	case t.position < 0:
		switch t.loop {
		case LoopSimple:
			t.position = last
		case LoopPingPong:
			t.direction = Forward
			t.position = 0
		case LoopOneShot:
			t.position = 0
			t.finishOneShot()
		}
	}
}

// finishOneShot ends playback. A track that is also recording keeps recording.
func (t *track) finishOneShot() {
	if t.state == StateRecordingPlaying {
		t.state = StateRecording
		return
	}
	t.state = StateStopped
}
