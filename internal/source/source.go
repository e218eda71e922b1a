package source

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// Source is a paged image input. Each page is scanned top to bottom, one row
// per sequencer line.
type Source interface {
	PageCount() int
	GetPageDimensions(index int) (width, height float64, err error)
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

// Open picks a source for path: PDF files go through MuPDF, anything else is
// treated as an image file or a directory of images. An empty path with a
// non-empty pattern gives a QR test pattern.
func Open(path, pattern string) (Source, error) {
	if path == "" {
		if pattern == "" {
			return nil, fmt.Errorf("no input path or pattern given")
		}
		return NewPatternSource(pattern)
	}
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return NewFitzPDFSource(path)
	}
	return NewImageSource(path)
}

// FitzPDFSource renders PDF pages with MuPDF.
type FitzPDFSource struct {
	mu   sync.Mutex // fitz documents are not safe for concurrent use
	doc  *fitz.Document
	path string
}

func NewFitzPDFSource(path string) (*FitzPDFSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	return &FitzPDFSource{doc: doc, path: path}, nil
}

func (f *FitzPDFSource) PageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doc.NumPage()
}

func (f *FitzPDFSource) GetPageDimensions(index int) (float64, float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rect, err := f.doc.Bound(index)
	if err != nil {
		return 0, 0, err
	}
	return float64(rect.Dx()), float64(rect.Dy()), nil
}

func (f *FitzPDFSource) RenderPage(index int, dpi int) (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, err := f.doc.ImageDPI(index, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("render %s page %d: %w", filepath.Base(f.path), index, err)
	}
	return img, nil
}

func (f *FitzPDFSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doc.Close()
}
