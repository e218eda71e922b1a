package frame

import (
	"image"
	"testing"
)

func filled(pixels int, v byte) *Frame {
	f := New(pixels)
	f.Fill(v, v, v)
	return f
}

func TestStoreWraparound(t *testing.T) {
	const capacity, extra = 5, 3

	s, err := NewStore(capacity, 4)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	for i := 0; i < capacity+extra; i++ {
		s.Append(filled(4, byte(i)))
	}

	if s.Len() != capacity {
		t.Fatalf("Expected %d retrievable frames, got %d", capacity, s.Len())
	}
	if s.Written() != capacity+extra {
		t.Errorf("Expected %d written frames, got %d", capacity+extra, s.Written())
	}

	// Oldest retained frame is the (extra)-th one written.
	for i := 0; i < capacity; i++ {
		want := byte(i + extra)
		if got := s.At(i).R[0]; got != want {
			t.Errorf("At(%d): expected value %d, got %d", i, want, got)
		}
	}

	for i := 0; i < extra; i++ {
		for j := 0; j < s.Len(); j++ {
			if s.At(j).R[0] == byte(i) {
				t.Errorf("Frame %d should have been overwritten", i)
			}
		}
	}
}

func TestStoreBeforeFull(t *testing.T) {
	s, _ := NewStore(10, 2)
	s.Append(filled(2, 7))
	s.Append(filled(2, 9))

	if s.Len() != 2 {
		t.Fatalf("Expected 2 frames, got %d", s.Len())
	}
	if s.At(0).G[1] != 7 || s.At(1).G[1] != 9 {
		t.Errorf("Unexpected order: %v %v", s.At(0).G, s.At(1).G)
	}
	if s.At(2) != nil || s.At(-1) != nil {
		t.Error("Out-of-range index should return nil")
	}

	s.Reset()
	if s.Len() != 0 {
		t.Errorf("Expected empty store after reset, got %d", s.Len())
	}
}

func TestNewStoreRejectsEmpty(t *testing.T) {
	tests := []struct {
		capacity, pixels int
	}{
		{0, 10},
		{10, 0},
		{-1, 10},
	}
	for _, tt := range tests {
		if _, err := NewStore(tt.capacity, tt.pixels); err == nil {
			t.Errorf("NewStore(%d, %d): expected error", tt.capacity, tt.pixels)
		}
	}
}

func TestStoreFramesDoNotAlias(t *testing.T) {
	s, _ := NewStore(3, 4)
	s.Append(filled(4, 1))
	s.Append(filled(4, 2))

	s.At(0).R[3] = 99
	if s.At(1).R[0] != 2 {
		t.Errorf("Writing one frame leaked into its neighbour: %v", s.At(1).R)
	}
}

func TestInterpolate(t *testing.T) {
	a := filled(3, 10)
	b := filled(3, 20)
	dst := New(3)

	tests := []struct {
		t    float32
		want byte
	}{
		{0, 10},
		{0.5, 15},
		{0.25, 12},
		{1, 20},
	}

	for _, tt := range tests {
		Interpolate(dst, a, b, tt.t)
		for i := 0; i < dst.Len(); i++ {
			if dst.R[i] != tt.want || dst.G[i] != tt.want || dst.B[i] != tt.want {
				t.Errorf("t=%.2f: expected %d, got %d/%d/%d", tt.t, tt.want, dst.R[i], dst.G[i], dst.B[i])
			}
		}
	}
}

func TestRowRoundTrip(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src := New(3)
	src.R = []byte{1, 2, 3}
	src.G = []byte{4, 5, 6}
	src.B = []byte{7, 8, 9}

	if err := WriteRow(img, 1, src); err != nil {
		t.Fatalf("WriteRow failed: %v", err)
	}
	dst := New(3)
	if err := ReadRow(img, 1, dst); err != nil {
		t.Fatalf("ReadRow failed: %v", err)
	}
	if !dst.Equal(src) {
		t.Errorf("Row mismatch: got %v/%v/%v", dst.R, dst.G, dst.B)
	}

	if err := ReadRow(img, 2, dst); err == nil {
		t.Error("Expected error for row outside bounds")
	}
	if err := WriteRow(img, 0, New(4)); err == nil {
		t.Error("Expected error for width mismatch")
	}
}
