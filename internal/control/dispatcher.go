// Package control routes named parameter changes, from MIDI or cue scripts,
// to a Sequencer.
package control

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"

	"github.com/Ondulab/Sp3ctra-sub004/internal/sequencer"
)

// MIDI realtime status bytes.
const (
	midiTimingClock = 0xF8
	midiStart       = 0xFA
	midiStop        = 0xFC
)

// Dispatcher applies parameter changes to one sequencer.
type Dispatcher struct {
	seq    *sequencer.Sequencer
	logger *log.Logger
	now    func() time.Time

	mu      sync.RWMutex
	mapping *Mapping
}

// NewDispatcher binds a dispatcher to seq. A nil logger uses log.Default().
func NewDispatcher(seq *sequencer.Sequencer, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.Default()
	}
	return &Dispatcher{
		seq:     seq,
		logger:  logger,
		now:     time.Now,
		mapping: &Mapping{},
	}
}

// SetNormalized scales v from [0, 1] into the parameter's range and applies it.
func (d *Dispatcher) SetNormalized(name string, v float64) error {
	p, err := parseParam(name)
	if err != nil {
		return err
	}
	return d.apply(p, p.spec.Scale(v))
}

// Set applies a raw value, clamped to the parameter's range.
func (d *Dispatcher) Set(name string, raw float64) error {
	p, err := parseParam(name)
	if err != nil {
		return err
	}
	return d.apply(p, p.spec.Clamp(raw))
}

func (d *Dispatcher) apply(p param, v float64) error {
	if p.spec.Button && v <= 0.5 {
		return nil
	}
	if p.track < 0 {
		return d.applyGlobal(p.spec.Name, v)
	}

	id, s := p.track, d.seq
	switch p.spec.Name {
	case "record_toggle":
		return s.ToggleRecording(id)
	case "play_stop":
		return s.TogglePlayback(id)
	case "mute_toggle":
		return s.ToggleMute(id)
	case "clear":
		return s.ClearBuffer(id)
	case "speed":
		return s.SetSpeed(id, v)
	case "offset":
		return s.SetOffset(id, int(v))
	case "attack":
		return s.SetAttack(id, v)
	case "decay":
		return s.SetDecay(id, v)
	case "sustain":
		return s.SetSustain(id, v)
	case "release":
		return s.SetRelease(id, v)
	case "loop_mode":
		return s.SetLoopMode(id, sequencer.LoopMode(math.Round(v)))
	case "playback_direction":
		dir := sequencer.Forward
		if math.Round(v) >= 1 {
			dir = sequencer.Reverse
		}
		return s.SetPlaybackDirection(id, dir)
	case "trigger_mode":
		return s.SetTriggerMode(id, sequencer.TriggerMode(math.Round(v)))
	case "exposure":
		return s.SetExposure(id, v)
	case "brightness":
		return s.SetBrightness(id, v)
	case "player_mix":
		return s.SetPlayerMix(id, v)
	case "mix_enabled":
		return s.SetMixEnabled(id, v >= 0.5)
	}
	return fmt.Errorf("%w: %s", ErrUnknownParam, p.spec.Name)
}

func (d *Dispatcher) applyGlobal(name string, v float64) error {
	switch name {
	case "enabled":
		return d.seq.SetEnabled(v >= 0.5)
	case "blend_mode":
		return d.seq.SetBlendMode(sequencer.BlendMode(math.Round(v)))
	case "master_tempo":
		return d.seq.SetBPM(v)
	case "midi_sync":
		return d.seq.EnableMIDISync(v >= 0.5)
	}
	return fmt.Errorf("%w: %s", ErrUnknownParam, name)
}

// SetMapping replaces the MIDI bindings after validating them.
func (d *Dispatcher) SetMapping(m *Mapping) error {
	if err := m.Validate(); err != nil {
		return err
	}
	d.mu.Lock()
	d.mapping = m
	d.mu.Unlock()
	return nil
}

// HandleMessage applies one MIDI message. Realtime clock messages go straight
// to the sequencer; CC and Note On are resolved through the mapping.
func (d *Dispatcher) HandleMessage(msg midi.Message) error {
	if len(msg) == 1 {
		switch msg[0] {
		case midiTimingClock:
			return d.seq.MIDIClockTick(uint64(d.now().UnixMicro()))
		case midiStart:
			return d.seq.MIDIClockStart(uint64(d.now().UnixMicro()))
		case midiStop:
			return d.seq.MIDIClockStop()
		}
		return nil
	}

	var ch, num, val uint8
	switch {
	case msg.GetControlChange(&ch, &num, &val):
		return d.dispatch(BindCC, ch, num, float64(val)/127)
	case msg.GetNoteStart(&ch, &num, &val):
		return d.dispatch(BindNote, ch, num, 1)
	}
	return nil
}

func (d *Dispatcher) dispatch(kind string, ch, num uint8, v float64) error {
	d.mu.RLock()
	bindings := d.mapping.Bindings
	d.mu.RUnlock()

	var firstErr error
	for _, b := range bindings {
		if !b.matches(kind, ch, num) {
			continue
		}
		if err := d.SetNormalized(b.Param, v); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", b.Param, err)
		}
	}
	return firstErr
}

// Listen feeds messages from the named MIDI input port until ctx is done.
// A MIDI driver must be registered by the caller.
func (d *Dispatcher) Listen(ctx context.Context, port string) error {
	in, err := midi.FindInPort(port)
	if err != nil {
		return fmt.Errorf("MIDI input %q not found: %w", port, err)
	}
	if err := in.Open(); err != nil {
		return fmt.Errorf("open MIDI input %q: %w", port, err)
	}
	defer in.Close()

	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		if err := d.HandleMessage(msg); err != nil {
			d.logger.Printf("[!] MIDI %s: %v", msg, err)
		}
	}, midi.HandleError(func(listenErr error) {
		d.logger.Printf("[!] Ошибка MIDI-входа %s: %v", port, listenErr)
	}))
	if err != nil {
		return fmt.Errorf("listen on MIDI input %q: %w", port, err)
	}
	defer stop()

	d.logger.Printf("[*] Слушаем MIDI: %s", in)
	<-ctx.Done()
	d.logger.Printf("[*] MIDI-вход %s закрыт", port)
	return nil
}
