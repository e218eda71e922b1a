// Package sequencer records live RGB scan lines into per-track ring buffers
// and mixes their playback back over the live input, one line per call.
//
// All state sits behind a single mutex. ProcessFrame is meant to be driven by
// one producer; every other method may be called from any goroutine.
package sequencer

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/Ondulab/Sp3ctra-sub004/internal/frame"
)

const (
	MaxTracks        = 10
	DefaultTracks    = 5
	DefaultFrameRate = 1000.0 // Nominal lines per second used for capacity
	DefaultPixels    = 3456   // CIS sensor at 400 DPI
	MaxCapacity      = 10000  // Upper bound on frames per track

	MinBPM     = 60.0
	MaxBPM     = 240.0
	DefaultBPM = 120.0
)

// Options sizes a Sequencer. Zero fields take their defaults.
type Options struct {
	Tracks      int
	MaxDuration float64 // Seconds of history each track can hold
	FrameRate   float64 // Lines per second, used only to size the rings
	Pixels      int
	Logger      *log.Logger
}

// Sequencer owns the tracks and the compositing buffers.
type Sequencer struct {
	mu sync.Mutex

	tracks   []*track
	pixels   int
	capacity int

	maxDuration float64
	frameRate   float64

	enabled     bool
	blendMode   BlendMode
	bpm         float64
	midiSync    bool
	lastClockUS uint64

	output *frame.Frame
	acc    accumulator

	framesProcessed uint64
	totalProcessUS  uint64

	closed bool
	logger *log.Logger
	now    func() time.Time
}

// Create builds a sequencer with the default pixel count and frame rate.
func Create(numTracks int, maxDuration float64) (*Sequencer, error) {
	return New(Options{Tracks: numTracks, MaxDuration: maxDuration})
}

// New validates opts and preallocates every buffer the sequencer will use.
func New(opts Options) (*Sequencer, error) {
	if opts.Tracks == 0 {
		opts.Tracks = DefaultTracks
	}
	if opts.FrameRate == 0 {
		opts.FrameRate = DefaultFrameRate
	}
	if opts.Pixels == 0 {
		opts.Pixels = DefaultPixels
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	if opts.Tracks < 1 || opts.Tracks > MaxTracks {
		return nil, fmt.Errorf("%w: tracks must be in [1, %d], got %d", ErrInvalidConfig, MaxTracks, opts.Tracks)
	}
	if opts.MaxDuration <= 0 {
		return nil, fmt.Errorf("%w: max duration must be positive, got %.3fs", ErrInvalidConfig, opts.MaxDuration)
	}
	if opts.FrameRate <= 0 {
		return nil, fmt.Errorf("%w: frame rate must be positive, got %.1f", ErrInvalidConfig, opts.FrameRate)
	}
	if opts.Pixels < 0 {
		return nil, fmt.Errorf("%w: pixel count must be positive, got %d", ErrInvalidConfig, opts.Pixels)
	}

	capacity := int(opts.MaxDuration * opts.FrameRate)
	if capacity < 1 || capacity > MaxCapacity {
		return nil, fmt.Errorf("%w: %.3fs at %.0f fps gives %d frames per track, limit is [1, %d]",
			ErrInvalidConfig, opts.MaxDuration, opts.FrameRate, capacity, MaxCapacity)
	}

	s := &Sequencer{
		pixels:      opts.Pixels,
		capacity:    capacity,
		maxDuration: opts.MaxDuration,
		frameRate:   opts.FrameRate,
		enabled:     false,
		blendMode:   BlendMix,
		bpm:         DefaultBPM,
		output:      frame.New(opts.Pixels),
		acc:         newAccumulator(opts.Pixels),
		logger:      opts.Logger,
		now:         time.Now,
	}

	s.tracks = make([]*track, opts.Tracks)
	for i := range s.tracks {
		t, err := newTrack(i, capacity, opts.Pixels)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		s.tracks[i] = t
	}

	s.logger.Printf("[SEQ] Дорожек: %d, по %d кадров (%.2fs @ %.0f fps), пикселей: %d",
		opts.Tracks, capacity, opts.MaxDuration, opts.FrameRate, opts.Pixels)
	return s, nil
}

// Close releases the frame stores. Later calls return ErrClosed.
func (s *Sequencer) Close() error {
	if s == nil {
		return ErrNilSequencer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.tracks = nil
	s.output = nil
	s.acc = accumulator{}
	s.logger.Printf("[SEQ] Закрыт после %d кадров", s.framesProcessed)
	return nil
}

// Tracks returns the number of tracks.
func (s *Sequencer) Tracks() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tracks)
}

// Pixels returns the pixel count every frame must have.
func (s *Sequencer) Pixels() int {
	if s == nil {
		return 0
	}
	return s.pixels
}

// Capacity returns the per-track ring capacity in frames.
func (s *Sequencer) Capacity() int {
	if s == nil {
		return 0
	}
	return s.capacity
}

// ProcessFrame records live into every recording track, mixes every playing
// track over it and returns the composite. The returned frame is owned by the
// sequencer and is only valid until the next call.
func (s *Sequencer) ProcessFrame(live *frame.Frame) (*frame.Frame, error) {
	if s == nil {
		return nil, ErrNilSequencer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.processLocked(live); err != nil {
		return nil, err
	}
	return s.output, nil
}

// ProcessInto is ProcessFrame with the composite copied into dst.
func (s *Sequencer) ProcessInto(live, dst *frame.Frame) error {
	if s == nil {
		return ErrNilSequencer
	}
	if !dst.Valid(s.pixels) {
		return fmt.Errorf("%w: destination must have %d pixels", ErrFrameSize, s.pixels)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.processLocked(live); err != nil {
		return err
	}
	dst.CopyFrom(s.output)
	return nil
}

func (s *Sequencer) processLocked(live *frame.Frame) error {
	if s.closed {
		return ErrClosed
	}
	if !live.Valid(s.pixels) {
		return fmt.Errorf("%w: expected %d pixels per channel", ErrFrameSize, s.pixels)
	}

	start := s.now()
	s.process(live, start)

	if elapsed := s.now().Sub(start).Microseconds(); elapsed > 0 {
		s.totalProcessUS += uint64(elapsed)
	}
	s.framesProcessed++
	return nil
}

func (s *Sequencer) process(live *frame.Frame, start time.Time) {
	if !s.enabled {
		s.output.CopyFrom(live)
		return
	}

	nowUS := uint64(start.UnixMicro())
	s.acc.reset()
	active := false
	for _, t := range s.tracks {
		// Playback sees only the frames that existed before this call, so it
		// reads the ring before the append can overwrite the oldest slot.
		visible := t.recorded()
		recording := t.state.records()
		if t.state.plays() && t.play(live, &s.acc, visible) {
			active = true
		}
		if recording {
			t.record(live, nowUS)
		}
	}

	if !active {
		s.output.CopyFrom(live)
		return
	}
	s.acc.store(s.output)
	s.output.Timestamp = live.Timestamp
}

// withTrack runs fn on track id while holding the lock.
func (s *Sequencer) withTrack(id int, fn func(t *track) error) error {
	if s == nil {
		return ErrNilSequencer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if id < 0 || id >= len(s.tracks) {
		return fmt.Errorf("%w: %d (have %d tracks)", ErrInvalidTrack, id, len(s.tracks))
	}
	return fn(s.tracks[id])
}

// withLock runs fn on the sequencer while holding the lock.
func (s *Sequencer) withLock(fn func()) error {
	if s == nil {
		return ErrNilSequencer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	fn()
	return nil
}

// transition applies a state change and logs the outcome.
func (s *Sequencer) transition(id int, op string, fn func(t *track) error) error {
	return s.withTrack(id, func(t *track) error {
		from := t.state
		if err := fn(t); err != nil {
			s.logger.Printf("[!] Дорожка %d: %v", id, err)
			return err
		}
		s.logger.Printf("[SEQ] Дорожка %d: %s (%s -> %s, кадров: %d)", id, op, from, t.state, t.recorded())
		return nil
	})
}

// StartRecording begins capturing live frames on a track. Frames already in
// the ring are kept; new frames are appended after them.
func (s *Sequencer) StartRecording(id int) error {
	return s.transition(id, "запись начата", (*track).startRecording)
}

// StopRecording ends capture. An AUTO-triggered track with frames starts playing.
func (s *Sequencer) StopRecording(id int) error {
	return s.transition(id, "запись остановлена", (*track).stopRecording)
}

// StartPlayback plays a track from its first frame.
func (s *Sequencer) StartPlayback(id int) error {
	return s.transition(id, "воспроизведение начато", (*track).startPlayback)
}

// StopPlayback stops a playing track.
func (s *Sequencer) StopPlayback(id int) error {
	return s.transition(id, "воспроизведение остановлено", (*track).stopPlayback)
}

// Mute silences a playing track without losing its position.
func (s *Sequencer) Mute(id int) error {
	return s.transition(id, "заглушена", (*track).mute)
}

// Unmute resumes a muted track from where it was muted.
func (s *Sequencer) Unmute(id int) error {
	return s.transition(id, "заглушка снята", (*track).unmute)
}

// ToggleRecording starts recording on an idle, ready, stopped or playing track
// and stops it on a recording one.
func (s *Sequencer) ToggleRecording(id int) error {
	return s.transition(id, "переключение записи", func(t *track) error {
		if t.state.records() {
			return t.stopRecording()
		}
		return t.startRecording()
	})
}

// TogglePlayback stops a playing track and starts any other track that has frames.
func (s *Sequencer) TogglePlayback(id int) error {
	return s.transition(id, "переключение воспроизведения", func(t *track) error {
		if t.state == StatePlaying {
			return t.stopPlayback()
		}
		return t.startPlayback()
	})
}

// ToggleMute switches a track between PLAYING and MUTED.
func (s *Sequencer) ToggleMute(id int) error {
	return s.transition(id, "переключение заглушки", func(t *track) error {
		if t.state == StateMuted {
			return t.unmute()
		}
		return t.mute()
	})
}

// ClearBuffer drops every recorded frame and returns the track to IDLE.
func (s *Sequencer) ClearBuffer(id int) error {
	return s.transition(id, "очищена", func(t *track) error {
		t.clear()
		return nil
	})
}

// ClearAll clears every track.
func (s *Sequencer) ClearAll() error {
	return s.withLock(func() {
		for _, t := range s.tracks {
			t.clear()
		}
		s.logger.Printf("[SEQ] Все дорожки очищены (%d)", len(s.tracks))
	})
}

// TrackState returns the lifecycle state of a track.
func (s *Sequencer) TrackState(id int) (State, error) {
	var st State
	err := s.withTrack(id, func(t *track) error {
		st = t.state
		return nil
	})
	return st, err
}

// RecordedFrames returns the number of retrievable frames on a track.
func (s *Sequencer) RecordedFrames(id int) (int, error) {
	var n int
	err := s.withTrack(id, func(t *track) error {
		n = t.recorded()
		return nil
	})
	return n, err
}

// SetSpeed sets the playback rate in frames per call, clamped to [0.1, 10].
func (s *Sequencer) SetSpeed(id int, speed float64) error {
	return s.withTrack(id, func(t *track) error {
		t.speed = clamp(speed, MinSpeed, MaxSpeed)
		return nil
	})
}

// SetOffset moves the cursor to a frame index, clamped to the recorded range.
func (s *Sequencer) SetOffset(id int, frames int) error {
	return s.withTrack(id, func(t *track) error {
		t.setOffset(frames)
		return nil
	})
}

// SetPlaybackDirection sets the cursor direction.
func (s *Sequencer) SetPlaybackDirection(id int, d Direction) error {
	if d != Forward && d != Reverse {
		return fmt.Errorf("invalid playback direction %d", int(d))
	}
	return s.withTrack(id, func(t *track) error {
		t.direction = d
		return nil
	})
}

// SetLoopMode sets what happens when the cursor runs off either end.
func (s *Sequencer) SetLoopMode(id int, m LoopMode) error {
	if m < LoopSimple || m > LoopOneShot {
		return fmt.Errorf("invalid loop mode %d", int(m))
	}
	return s.withTrack(id, func(t *track) error {
		t.loop = m
		return nil
	})
}

// SetTriggerMode sets how playback starts after recording stops.
func (s *Sequencer) SetTriggerMode(id int, m TriggerMode) error {
	if m < TriggerManual || m > TriggerSync {
		return fmt.Errorf("invalid trigger mode %d", int(m))
	}
	return s.withTrack(id, func(t *track) error {
		t.trigger = m
		return nil
	})
}

// SetAttack sets the attack ratio, clamped to [0, 1].
func (s *Sequencer) SetAttack(id int, ratio float64) error {
	return s.withTrack(id, func(t *track) error {
		t.env.SetAttack(ratio)
		return nil
	})
}

// SetDecay sets the decay ratio, clamped to [0, 1].
func (s *Sequencer) SetDecay(id int, ratio float64) error {
	return s.withTrack(id, func(t *track) error {
		t.env.SetDecay(ratio)
		return nil
	})
}

// SetSustain sets the sustain level, clamped to [0, 1].
func (s *Sequencer) SetSustain(id int, level float64) error {
	return s.withTrack(id, func(t *track) error {
		t.env.SetSustain(level)
		return nil
	})
}

// SetRelease sets the release ratio, clamped to [0, 1].
func (s *Sequencer) SetRelease(id int, ratio float64) error {
	return s.withTrack(id, func(t *track) error {
		t.env.SetRelease(ratio)
		return nil
	})
}

// SetEnvelope sets all four envelope parameters at once.
func (s *Sequencer) SetEnvelope(id int, attack, decay, sustain, release float64) error {
	return s.withTrack(id, func(t *track) error {
		t.env.Set(attack, decay, sustain, release)
		return nil
	})
}

// SetExposure sets the exposure control, clamped to [0, 1]. 0.5 is unity gain.
func (s *Sequencer) SetExposure(id int, exposure float64) error {
	return s.withTrack(id, func(t *track) error {
		t.exposure = clamp(exposure, 0, 1)
		return nil
	})
}

// SetBrightness sets the pre-exposure gain, clamped to [0.5, 2].
func (s *Sequencer) SetBrightness(id int, brightness float64) error {
	return s.withTrack(id, func(t *track) error {
		t.brightness = clamp(brightness, MinBrightness, MaxBrightness)
		return nil
	})
}

// SetPlayerMix crossfades a track between overlay (0) and live mask (1).
func (s *Sequencer) SetPlayerMix(id int, mix float64) error {
	return s.withTrack(id, func(t *track) error {
		t.playerMix = clamp(mix, 0, 1)
		return nil
	})
}

// SetMixEnabled includes or excludes a track from the composite. A playing
// track that is excluded still advances.
func (s *Sequencer) SetMixEnabled(id int, enabled bool) error {
	return s.withTrack(id, func(t *track) error {
		t.mixEnabled = enabled
		return nil
	})
}

// SetEnabled turns the whole sequencer into a passthrough when false.
func (s *Sequencer) SetEnabled(enabled bool) error {
	return s.withLock(func() {
		s.enabled = enabled
		s.logger.Printf("[SEQ] Секвенсор: %s", onOffRU(enabled))
	})
}

// SetBlendMode records the advisory blend mode.
func (s *Sequencer) SetBlendMode(m BlendMode) error {
	if m < BlendMix || m > BlendMask {
		return fmt.Errorf("invalid blend mode %d", int(m))
	}
	return s.withLock(func() {
		s.blendMode = m
	})
}

// SetBPM sets the master tempo, clamped to [60, 240].
func (s *Sequencer) SetBPM(bpm float64) error {
	return s.withLock(func() {
		s.bpm = clamp(bpm, MinBPM, MaxBPM)
	})
}

// EnableMIDISync records whether MIDI clock should drive the tempo.
func (s *Sequencer) EnableMIDISync(enabled bool) error {
	return s.withLock(func() {
		s.midiSync = enabled
		s.logger.Printf("[SEQ] MIDI-синхронизация: %s", onOffRU(enabled))
	})
}

// MIDIClockTick stores the time of the latest clock pulse.
func (s *Sequencer) MIDIClockTick(timestampUS uint64) error {
	return s.withLock(func() {
		s.lastClockUS = timestampUS
	})
}

// MIDIClockStart stores the time of a MIDI start message.
func (s *Sequencer) MIDIClockStart(timestampUS uint64) error {
	return s.withLock(func() {
		s.lastClockUS = timestampUS
	})
}

// MIDIClockStop accepts a MIDI stop message. Playback is not affected.
func (s *Sequencer) MIDIClockStop() error {
	return s.withLock(func() {})
}

// Stats reports the processing counters.
type Stats struct {
	FramesProcessed  uint64
	AvgProcessTimeUS float64
}

// Stats returns the number of ProcessFrame calls and their mean duration.
func (s *Sequencer) Stats() (Stats, error) {
	var st Stats
	err := s.withLock(func() {
		st = s.stats()
	})
	return st, err
}

func (s *Sequencer) stats() Stats {
	st := Stats{FramesProcessed: s.framesProcessed}
	if s.framesProcessed > 0 {
		st.AvgProcessTimeUS = float64(s.totalProcessUS) / float64(s.framesProcessed)
	}
	return st
}

// clamp maps NaN to lo.
func clamp(v, lo, hi float64) float64 {
	if v < lo || math.IsNaN(v) {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func onOffRU(b bool) string {
	if b {
		return "вкл"
	}
	return "выкл"
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
