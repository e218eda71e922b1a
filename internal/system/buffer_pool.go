package system

import (
	"image"
	"sync"
)

// ImagePool recycles image.RGBA buffers keyed by size. Page rendering and
// video frame assembly draw from it.
type ImagePool struct {
	mu    sync.Mutex
	pools map[image.Point]*sync.Pool
}

var globalPool = NewImagePool()

func NewImagePool() *ImagePool {
	return &ImagePool{pools: make(map[image.Point]*sync.Pool)}
}

// GetImage takes a buffer with bounds rect from the shared pool.
// Its pixels are not cleared.
func GetImage(rect image.Rectangle) *image.RGBA {
	return globalPool.Get(rect)
}

// PutImage returns a buffer to the shared pool.
func PutImage(img *image.RGBA) {
	globalPool.Put(img)
}

func (p *ImagePool) pool(size image.Point) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()

	pl, ok := p.pools[size]
	if !ok {
		pl = &sync.Pool{
			New: func() any {
				return image.NewRGBA(image.Rectangle{Max: size})
			},
		}
		p.pools[size] = pl
	}
	return pl
}

func (p *ImagePool) Get(rect image.Rectangle) *image.RGBA {
	img := p.pool(rect.Size()).Get().(*image.RGBA)
	// Pooled by size only, so rebase the origin.
	img.Rect = rect
	return img
}

func (p *ImagePool) Put(img *image.RGBA) {
	if img == nil || img.Rect.Empty() {
		return
	}
	p.pool(img.Rect.Size()).Put(img)
}
