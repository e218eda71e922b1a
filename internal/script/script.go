package script

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Ondulab/Sp3ctra-sub004/internal/control"
)

// Script is a cue sheet: parameter changes pinned to line indices.
type Script struct {
	Version string `yaml:"version"`
	Cues    []Cue  `yaml:"cues"`
}

// Cue sets one control parameter before the given line is processed.
type Cue struct {
	Frame      uint64  `yaml:"frame"`
	Param      string  `yaml:"param"`
	Value      float64 `yaml:"value"`
	Normalized bool    `yaml:"normalized,omitempty"` // Value is in [0, 1] and scaled to the parameter range
	Comment    string  `yaml:"comment,omitempty"`
}

// Sort orders cues by frame, keeping file order within a frame.
func (s *Script) Sort() {
	sort.SliceStable(s.Cues, func(i, j int) bool {
		return s.Cues[i].Frame < s.Cues[j].Frame
	})
}

// Validate checks every cue names a known parameter.
func (s *Script) Validate() error {
	for i, c := range s.Cues {
		if _, err := control.Lookup(c.Param); err != nil {
			return fmt.Errorf("cue %d (frame %d): %w", i, c.Frame, err)
		}
	}
	return nil
}

// Due returns the cues scheduled for frame. Cues must be sorted.
func (s *Script) Due(frame uint64) []Cue {
	lo := sort.Search(len(s.Cues), func(i int) bool { return s.Cues[i].Frame >= frame })
	hi := lo
	for hi < len(s.Cues) && s.Cues[hi].Frame == frame {
		hi++
	}
	return s.Cues[lo:hi]
}

// Last returns the frame of the final cue, or 0 for an empty script.
func (s *Script) Last() uint64 {
	if len(s.Cues) == 0 {
		return 0
	}
	return s.Cues[len(s.Cues)-1].Frame
}

// Apply sends cue c through d.
func (c Cue) Apply(d *control.Dispatcher) error {
	if c.Normalized {
		return d.SetNormalized(c.Param, c.Value)
	}
	return d.Set(c.Param, c.Value)
}

// Write writes a script to a YAML file
func Write(s *Script, path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Read reads, sorts and validates a script from a YAML file
func Read(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	s.Sort()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &s, nil
}

// FindLatest finds the most recent cue sheet in dir
func FindLatest(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read scripts directory: %w", err)
	}

	var scripts []string
	for _, entry := range entries {
		name := strings.ToLower(entry.Name())
		if !entry.IsDir() && (strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
			scripts = append(scripts, filepath.Join(dir, entry.Name()))
		}
	}

	if len(scripts) == 0 {
		return "", fmt.Errorf("no cue sheets found in %s", dir)
	}

	// Sort by modification time (newest first)
	sort.Slice(scripts, func(i, j int) bool {
		infoI, errI := os.Stat(scripts[i])
		infoJ, errJ := os.Stat(scripts[j])
		if errI != nil || errJ != nil {
			return errJ != nil
		}
		return infoI.ModTime().After(infoJ.ModTime())
	})

	return scripts[0], nil
}
