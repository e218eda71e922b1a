package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Ondulab/Sp3ctra-sub004/internal/frame"
	"github.com/Ondulab/Sp3ctra-sub004/internal/system"
)

// Sink consumes the sequencer output one line at a time.
type Sink interface {
	WriteLine(f *frame.Frame) error
	Close() error
}

// Options configures Open.
type Options struct {
	Path          string
	Width         int // Pixels per line
	LinesPerFrame int
	FPS           int
	Encoder       string // Empty picks the best available H.264 encoder
	Quality       int    // 1-100
}

// Open chooses a sink by file extension: .png stacks every line into one
// image, an empty path discards output, anything else is encoded by ffmpeg.
func Open(ctx context.Context, opts Options) (Sink, error) {
	switch strings.ToLower(filepath.Ext(opts.Path)) {
	case "":
		if opts.Path == "" {
			return Discard{}, nil
		}
	case ".png":
		return NewPNGSink(opts.Path, opts.Width), nil
	}
	return NewFFmpegSink(ctx, opts)
}

// Discard drops every line.
type Discard struct{}

func (Discard) WriteLine(*frame.Frame) error { return nil }
func (Discard) Close() error                 { return nil }

// PNGSink keeps every line and writes them top to bottom as one PNG on Close.
type PNGSink struct {
	path  string
	width int
	lines [][]byte // Packed RGB rows
}

func NewPNGSink(path string, width int) *PNGSink {
	return &PNGSink{path: path, width: width}
}

func (s *PNGSink) WriteLine(f *frame.Frame) error {
	if f.Len() != s.width {
		return fmt.Errorf("png sink: line has %d pixels, expected %d", f.Len(), s.width)
	}
	row := make([]byte, 3*s.width)
	for x := 0; x < s.width; x++ {
		row[3*x], row[3*x+1], row[3*x+2] = f.R[x], f.G[x], f.B[x]
	}
	s.lines = append(s.lines, row)
	return nil
}

// Lines returns the number of lines written so far.
func (s *PNGSink) Lines() int {
	return len(s.lines)
}

func (s *PNGSink) Close() error {
	if len(s.lines) == 0 {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, s.width, len(s.lines)))
	for y, row := range s.lines {
		off := img.PixOffset(0, y)
		for x := 0; x < s.width; x++ {
			p := off + 4*x
			img.Pix[p], img.Pix[p+1], img.Pix[p+2], img.Pix[p+3] = row[3*x], row[3*x+1], row[3*x+2], 0xff
		}
	}

	f, err := os.Create(s.path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", s.path, err)
	}
	return f.Close()
}

// framer stacks lines into fixed-height RGBA frames and writes each full
// frame as raw RGBA.
type framer struct {
	w      io.Writer
	img    *image.RGBA
	row    int
	frames int
}

func newFramer(w io.Writer, width, height int) *framer {
	img := system.GetImage(image.Rect(0, 0, width, height))
	clear(img.Pix)
	return &framer{w: w, img: img}
}

func (f *framer) writeLine(line *frame.Frame) error {
	if err := frame.WriteRow(f.img, f.row, line); err != nil {
		return err
	}
	f.row++
	if f.row == f.img.Bounds().Dy() {
		return f.flush()
	}
	return nil
}

func (f *framer) flush() error {
	if f.row == 0 {
		return nil
	}
	// Rows left over from the previous frame are blanked.
	clear(f.img.Pix[f.img.PixOffset(0, f.row):])
	if _, err := f.w.Write(f.img.Pix); err != nil {
		return err
	}
	f.row = 0
	f.frames++
	return nil
}

func (f *framer) release() {
	system.PutImage(f.img)
	f.img = nil
}

// FFmpegSink streams stacked lines to an ffmpeg process as raw RGBA video.
type FFmpegSink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr bytes.Buffer
	framer *framer
}

func NewFFmpegSink(ctx context.Context, opts Options) (*FFmpegSink, error) {
	if opts.Width <= 0 || opts.LinesPerFrame <= 0 {
		return nil, fmt.Errorf("ffmpeg sink: invalid frame size %dx%d", opts.Width, opts.LinesPerFrame)
	}
	if opts.Encoder == "" {
		opts.Encoder = system.GetBestH264Encoder()
	}

	s := &FFmpegSink{}
	s.cmd = exec.CommandContext(ctx, "ffmpeg", buildFFmpegArgs(opts)...)
	s.cmd.Stderr = &s.stderr

	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := s.cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start error: %w", err)
	}
	s.stdin = stdin
	s.framer = newFramer(stdin, opts.Width, opts.LinesPerFrame)

	fmt.Printf("[*] Видео: %s | %dx%d @ %d FPS | %s\n", opts.Path, opts.Width, opts.LinesPerFrame, opts.FPS, opts.Encoder)
	return s, nil
}

func buildFFmpegArgs(opts Options) []string {
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", opts.Width, opts.LinesPerFrame),
		"-framerate", fmt.Sprintf("%d", opts.FPS),
		"-i", "-",
		"-pix_fmt", "yuv420p",
		"-c:v", opts.Encoder,
	}
	args = append(args, qualityArgs(opts.Encoder, opts.Quality)...)
	return append(args, opts.Path)
}

// qualityArgs maps quality 1-100 (higher is better) to encoder-specific flags.
func qualityArgs(encoder string, quality int) []string {
	quality = max(1, min(100, quality))
	// Constant-quality scales run 0 (best) to 51 (worst).
	cq := 51 - quality*51/100

	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox does not support -q:v everywhere, use a bitrate.
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", cq)}
	default: // libx264
		return []string{"-crf", fmt.Sprintf("%d", cq), "-preset", "medium"}
	}
}

func (s *FFmpegSink) WriteLine(f *frame.Frame) error {
	if err := s.framer.writeLine(f); err != nil {
		return fmt.Errorf("write raw error: %w", err)
	}
	return nil
}

// Frames returns the number of video frames sent to ffmpeg.
func (s *FFmpegSink) Frames() int {
	return s.framer.frames
}

// Close flushes a partial frame and waits for ffmpeg to finish the file.
func (s *FFmpegSink) Close() error {
	flushErr := s.framer.flush()
	s.framer.release()
	s.stdin.Close()

	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error: %w\nLog: %s", err, s.stderr.String())
	}
	return flushErr
}
