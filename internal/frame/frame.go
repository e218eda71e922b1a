package frame

import "bytes"

// Frame is one scanned line: three same-length byte channels plus the capture time.
type Frame struct {
	R, G, B   []byte
	Timestamp uint64 // Microseconds
}

// New allocates a zeroed frame of the given pixel count.
func New(pixels int) *Frame {
	return &Frame{
		R: make([]byte, pixels),
		G: make([]byte, pixels),
		B: make([]byte, pixels),
	}
}

// Len returns the pixel count of the frame.
func (f *Frame) Len() int {
	return len(f.R)
}

// Valid reports whether all three channels have the given pixel count.
func (f *Frame) Valid(pixels int) bool {
	return f != nil && len(f.R) == pixels && len(f.G) == pixels && len(f.B) == pixels
}

// CopyFrom copies pixels and timestamp of src into f without reallocating.
func (f *Frame) CopyFrom(src *Frame) {
	copy(f.R, src.R)
	copy(f.G, src.G)
	copy(f.B, src.B)
	f.Timestamp = src.Timestamp
}

// Equal compares pixel data only; timestamps are ignored.
func (f *Frame) Equal(other *Frame) bool {
	return bytes.Equal(f.R, other.R) && bytes.Equal(f.G, other.G) && bytes.Equal(f.B, other.B)
}

// Fill sets every pixel of the frame to the same color.
func (f *Frame) Fill(r, g, b byte) {
	for i := range f.R {
		f.R[i] = r
		f.G[i] = g
		f.B[i] = b
	}
}
