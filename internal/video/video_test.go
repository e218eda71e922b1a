package video

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/Ondulab/Sp3ctra-sub004/internal/frame"
)

func line(v byte, width int) *frame.Frame {
	f := frame.New(width)
	f.Fill(v, v/2, 255-v)
	return f
}

func TestPNGSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	s := NewPNGSink(path, 3)

	for _, v := range []byte{10, 20, 30, 40} {
		if err := s.WriteLine(line(v, 3)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.WriteLine(line(1, 5)); err == nil {
		t.Error("Expected error for wrong line width")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds().Dx() != 3 || img.Bounds().Dy() != 4 {
		t.Fatalf("Expected 3x4 image, got %v", img.Bounds())
	}
	r, g, b, _ := img.At(1, 2).RGBA()
	if r>>8 != 30 || g>>8 != 15 || b>>8 != 225 {
		t.Errorf("Row 2: expected 30 15 225, got %d %d %d", r>>8, g>>8, b>>8)
	}
}

func TestFramerStacksLines(t *testing.T) {
	var buf bytes.Buffer
	fr := newFramer(&buf, 2, 3)

	for _, v := range []byte{1, 2, 3, 4} {
		if err := fr.writeLine(line(v, 2)); err != nil {
			t.Fatal(err)
		}
	}
	if fr.frames != 1 || buf.Len() != 2*3*4 {
		t.Fatalf("Expected one full frame of 24 bytes, got %d frames, %d bytes", fr.frames, buf.Len())
	}

	// The partial second frame is padded with black rows.
	if err := fr.flush(); err != nil {
		t.Fatal(err)
	}
	if fr.frames != 2 || buf.Len() != 2*2*3*4 {
		t.Fatalf("Expected two frames, got %d frames, %d bytes", fr.frames, buf.Len())
	}
	second := buf.Bytes()[24:]
	if second[0] != 4 || second[3] != 0xff {
		t.Errorf("Expected first row of frame 2 to hold line 4, got %v", second[:4])
	}
	if !slices.Equal(second[8:], make([]byte, 16)) {
		t.Errorf("Expected black padding, got %v", second[8:])
	}
	fr.release()
}

func TestQualityArgs(t *testing.T) {
	tests := []struct {
		encoder string
		quality int
		want    []string
	}{
		{"libx264", 100, []string{"-crf", "0", "-preset", "medium"}},
		{"libx264", 75, []string{"-crf", "13", "-preset", "medium"}},
		{"h264_nvenc", 0, []string{"-cq", "51"}},
		{"h264_videotoolbox", 75, []string{"-b:v", "7500k"}},
	}
	for _, tt := range tests {
		if got := qualityArgs(tt.encoder, tt.quality); !slices.Equal(got, tt.want) {
			t.Errorf("qualityArgs(%s, %d) = %v, expected %v", tt.encoder, tt.quality, got, tt.want)
		}
	}

	args := buildFFmpegArgs(Options{Path: "out.mp4", Width: 864, LinesPerFrame: 400, FPS: 30, Encoder: "libx264", Quality: 75})
	if args[len(args)-1] != "out.mp4" || !slices.Contains(args, "864x400") {
		t.Errorf("Unexpected ffmpeg args: %v", args)
	}
}

func TestOpenDiscard(t *testing.T) {
	s, err := Open(context.Background(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(Discard); !ok {
		t.Errorf("Expected Discard sink for empty path, got %T", s)
	}
	if err := s.WriteLine(line(1, 1)); err != nil || s.Close() != nil {
		t.Error("Discard sink should never fail")
	}

	p, _ := Open(context.Background(), Options{Path: "x.PNG", Width: 4})
	if _, ok := p.(*PNGSink); !ok {
		t.Errorf("Expected PNG sink, got %T", p)
	}
}
