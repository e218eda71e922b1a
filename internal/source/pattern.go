package source

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/skip2/go-qrcode"
)

const patternSize = 512

// PatternSource renders each '|'-separated part of a text as a QR code page,
// tinted so the three channels differ. It needs no input files.
type PatternSource struct {
	texts []string
	size  int
}

func NewPatternSource(text string) (*PatternSource, error) {
	var texts []string
	for _, part := range strings.Split(text, "|") {
		if part = strings.TrimSpace(part); part != "" {
			texts = append(texts, part)
		}
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty pattern text")
	}
	return &PatternSource{texts: texts, size: patternSize}, nil
}

func (p *PatternSource) PageCount() int {
	return len(p.texts)
}

func (p *PatternSource) GetPageDimensions(index int) (float64, float64, error) {
	if index < 0 || index >= len(p.texts) {
		return 0, 0, fmt.Errorf("page %d out of range [0, %d)", index, len(p.texts))
	}
	return float64(p.size), float64(p.size), nil
}

func (p *PatternSource) RenderPage(index int, dpi int) (image.Image, error) {
	if index < 0 || index >= len(p.texts) {
		return nil, fmt.Errorf("page %d out of range [0, %d)", index, len(p.texts))
	}

	qr, err := qrcode.New(p.texts[index], qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("qr pattern %q: %w", p.texts[index], err)
	}
	qr.ForegroundColor = pageTint(index)
	qr.BackgroundColor = color.White

	src := qr.Image(p.size)
	img := image.NewRGBA(src.Bounds())
	draw.Draw(img, img.Bounds(), src, src.Bounds().Min, draw.Src)
	return img, nil
}

func (p *PatternSource) Close() error {
	return nil
}

func pageTint(index int) color.Color {
	tints := []color.RGBA{
		{R: 0x10, G: 0x20, B: 0x80, A: 0xff},
		{R: 0x80, G: 0x10, B: 0x20, A: 0xff},
		{R: 0x20, G: 0x80, B: 0x10, A: 0xff},
	}
	return tints[index%len(tints)]
}
