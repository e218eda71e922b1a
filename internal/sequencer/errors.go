package sequencer

import "errors"

var (
	// ErrNilSequencer is returned by every method called on a nil *Sequencer.
	ErrNilSequencer = errors.New("sequencer is nil")
	// ErrClosed is returned after Close has released the frame stores.
	ErrClosed = errors.New("sequencer is closed")
	// ErrInvalidTrack is returned for a track id outside [0, Tracks()).
	ErrInvalidTrack = errors.New("invalid track id")
	// ErrInvalidConfig is returned by New when a sizing parameter is out of range.
	ErrInvalidConfig = errors.New("invalid sequencer configuration")
	// ErrIllegalTransition is returned when a call is not valid in the track's current state.
	ErrIllegalTransition = errors.New("illegal state transition")
	// ErrNoFrames is returned when playback is requested on an empty track.
	ErrNoFrames = errors.New("track has no recorded frames")
	// ErrFrameSize is returned when a live frame does not match the configured pixel count.
	ErrFrameSize = errors.New("frame size mismatch")
)
