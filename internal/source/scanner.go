package source

import (
	"fmt"
	"image"
	"io"

	"golang.org/x/image/draw"

	"github.com/Ondulab/Sp3ctra-sub004/internal/frame"
	"github.com/Ondulab/Sp3ctra-sub004/internal/system"
)

// Scanner turns the pages of a Source into scan lines of a fixed pixel
// count, emulating a line sensor moving down each page.
type Scanner struct {
	src    Source
	pixels int
	dpi    int
	loop   bool

	page  int // Index of the page in img, -1 before the first load
	row   int
	img   *image.RGBA
	lines uint64
}

// NewScanner validates the source and prepares to read from its first page.
func NewScanner(src Source, pixels, dpi int, loop bool) (*Scanner, error) {
	if pixels <= 0 {
		return nil, fmt.Errorf("scanner pixel count must be positive, got %d", pixels)
	}
	if src.PageCount() == 0 {
		return nil, fmt.Errorf("source has no pages")
	}
	return &Scanner{src: src, pixels: pixels, dpi: dpi, loop: loop, page: -1}, nil
}

// Next fills dst with the next scan line. It returns io.EOF after the last
// row of the last page unless the scanner loops.
func (s *Scanner) Next(dst *frame.Frame) error {
	if !dst.Valid(s.pixels) {
		return fmt.Errorf("scanner: destination must have %d pixels", s.pixels)
	}
	for s.img == nil || s.row >= s.img.Bounds().Dy() {
		if err := s.advancePage(); err != nil {
			return err
		}
	}

	if err := frame.ReadRow(s.img, s.img.Bounds().Min.Y+s.row, dst); err != nil {
		return err
	}
	dst.Timestamp = 0
	s.row++
	s.lines++
	return nil
}

// Lines returns the number of lines emitted so far.
func (s *Scanner) Lines() uint64 {
	return s.lines
}

// Page returns the index of the page being scanned.
func (s *Scanner) Page() int {
	return s.page
}

func (s *Scanner) advancePage() error {
	next := s.page + 1
	if next >= s.src.PageCount() {
		if !s.loop {
			return io.EOF
		}
		next = 0
	}

	page, err := s.src.RenderPage(next, s.dpi)
	if err != nil {
		return fmt.Errorf("scanner page %d: %w", next, err)
	}
	s.release()
	s.img = resample(page, s.pixels)
	s.page = next
	s.row = 0
	return nil
}

// resample scales page to the given width, keeping its aspect ratio.
func resample(page image.Image, width int) *image.RGBA {
	b := page.Bounds()
	height := 1
	if b.Dx() > 0 {
		height = max(1, b.Dy()*width/b.Dx())
	}

	dst := system.GetImage(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), page, b, draw.Src, nil)
	return dst
}

func (s *Scanner) release() {
	if s.img != nil {
		system.PutImage(s.img)
		s.img = nil
	}
}

// Close returns pooled buffers and closes the source.
func (s *Scanner) Close() error {
	s.release()
	return s.src.Close()
}
