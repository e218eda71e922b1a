package frame

import "fmt"

// Store is a fixed-capacity ring of frames. All frames are allocated up front;
// once full, each Append overwrites the oldest frame.
type Store struct {
	frames  []Frame
	pixels  int
	written uint64 // Frames ever appended since the last Reset
}

// NewStore allocates capacity frames of the given pixel count.
func NewStore(capacity, pixels int) (*Store, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("frame store capacity must be positive, got %d", capacity)
	}
	if pixels <= 0 {
		return nil, fmt.Errorf("frame pixel count must be positive, got %d", pixels)
	}

	// One backing array per channel keeps the store to three allocations.
	r := make([]byte, capacity*pixels)
	g := make([]byte, capacity*pixels)
	b := make([]byte, capacity*pixels)

	frames := make([]Frame, capacity)
	for i := range frames {
		lo, hi := i*pixels, (i+1)*pixels
		frames[i] = Frame{
			R: r[lo:hi:hi],
			G: g[lo:hi:hi],
			B: b[lo:hi:hi],
		}
	}

	return &Store{frames: frames, pixels: pixels}, nil
}

// Capacity returns the maximum number of retrievable frames.
func (s *Store) Capacity() int {
	return len(s.frames)
}

// Pixels returns the pixel count of each stored frame.
func (s *Store) Pixels() int {
	return s.pixels
}

// Len returns the number of retrievable frames, clamped to the capacity.
func (s *Store) Len() int {
	if s.written > uint64(len(s.frames)) {
		return len(s.frames)
	}
	return int(s.written)
}

// Written returns the total number of frames appended since the last Reset.
func (s *Store) Written() uint64 {
	return s.written
}

// Append copies src into the slot after the newest frame.
func (s *Store) Append(src *Frame) {
	slot := int(s.written % uint64(len(s.frames)))
	s.frames[slot].CopyFrom(src)
	s.written++
}

// At returns the frame at logical index i, where 0 is the oldest retained
// frame and Len()-1 the newest. The returned frame is owned by the store.
func (s *Store) At(i int) *Frame {
	n := s.Len()
	if i < 0 || i >= n {
		return nil
	}
	start := 0
	if s.written > uint64(len(s.frames)) {
		start = int(s.written % uint64(len(s.frames)))
	}
	return &s.frames[(start+i)%len(s.frames)]
}

// Reset forgets all frames without touching their memory.
func (s *Store) Reset() {
	s.written = 0
}
