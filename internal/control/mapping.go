package control

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Binding kinds.
const (
	BindCC   = "cc"
	BindNote = "note"
)

// Binding ties one MIDI controller or note to a parameter.
type Binding struct {
	Param   string `yaml:"param"`
	Type    string `yaml:"type"`    // cc or note
	Channel int    `yaml:"channel"` // 0-15, or -1 for any channel
	Number  int    `yaml:"number"`  // Controller or note number
}

func (b Binding) matches(kind string, ch, num uint8) bool {
	return b.Type == kind && b.Number == int(num) && (b.Channel < 0 || b.Channel == int(ch))
}

// Mapping is the set of MIDI bindings loaded from YAML.
type Mapping struct {
	Bindings []Binding `yaml:"bindings"`
}

// Validate checks every binding refers to a known parameter and a legal MIDI address.
func (m *Mapping) Validate() error {
	for i, b := range m.Bindings {
		if _, err := Lookup(b.Param); err != nil {
			return fmt.Errorf("binding %d: %w", i, err)
		}
		if b.Type != BindCC && b.Type != BindNote {
			return fmt.Errorf("binding %d (%s): type must be %q or %q, got %q", i, b.Param, BindCC, BindNote, b.Type)
		}
		if b.Channel < -1 || b.Channel > 15 {
			return fmt.Errorf("binding %d (%s): channel %d outside [-1, 15]", i, b.Param, b.Channel)
		}
		if b.Number < 0 || b.Number > 127 {
			return fmt.Errorf("binding %d (%s): number %d outside [0, 127]", i, b.Param, b.Number)
		}
	}
	return nil
}

// DefaultMapping lays out notes and CCs for the given track count on any
// channel. Track n uses notes 36+4(n-1).. for its buttons and CCs
// 20+10(n-1).. for its continuous controls.
func DefaultMapping(tracks int) *Mapping {
	buttons := []string{"record_toggle", "play_stop", "mute_toggle", "clear"}
	knobs := []string{"speed", "offset", "attack", "decay", "sustain", "release",
		"exposure", "brightness", "player_mix", "loop_mode"}

	m := &Mapping{}
	for n := 1; n <= tracks; n++ {
		for i, name := range buttons {
			m.Bindings = append(m.Bindings, Binding{
				Param: PlayerParam(n, name), Type: BindNote, Channel: -1, Number: 36 + 4*(n-1) + i,
			})
		}
		for i, name := range knobs {
			m.Bindings = append(m.Bindings, Binding{
				Param: PlayerParam(n, name), Type: BindCC, Channel: -1, Number: 20 + 10*(n-1) + i,
			})
		}
	}
	m.Bindings = append(m.Bindings,
		Binding{Param: GlobalParam("master_tempo"), Type: BindCC, Channel: -1, Number: 14},
		Binding{Param: GlobalParam("enabled"), Type: BindCC, Channel: -1, Number: 15},
	)
	return m
}

// LoadMapping reads a YAML mapping file.
func LoadMapping(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse mapping %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}
	return &m, nil
}

// WriteMapping stores m as YAML.
func WriteMapping(m *Mapping, path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
