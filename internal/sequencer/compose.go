package sequencer

import "github.com/Ondulab/Sp3ctra-sub004/internal/frame"

// toneParams are the per-track multipliers applied to every source pixel.
type toneParams struct {
	brightness float32
	exposure   float32 // Already mapped through exposureMultiplier
	level      float32 // Envelope level
	mix        float32 // Player mix: 0 = overlay, 1 = mask of the live input
}

// exposureMultiplier maps exposure in [0, 1] to a gain: 0.1x..1x on the lower
// half and 1x..16x on the upper half.
func exposureMultiplier(e float64) float32 {
	if e < 0.5 {
		return float32(0.1 + e*2*0.9)
	}
	return float32(1.0 + (e-0.5)*2*15)
}

// accumulator holds the float sum of all track contributions for one call.
type accumulator struct {
	r, g, b []float32
}

func newAccumulator(pixels int) accumulator {
	return accumulator{
		r: make([]float32, pixels),
		g: make([]float32, pixels),
		b: make([]float32, pixels),
	}
}

func (a *accumulator) reset() {
	clear(a.r)
	clear(a.g)
	clear(a.b)
}

// add composites one track frame against the live frame into the sums.
func (a *accumulator) add(src, live *frame.Frame, p toneParams) {
	addChannel(a.r, src.R, live.R, p)
	addChannel(a.g, src.G, live.G, p)
	addChannel(a.b, src.B, live.B, p)
}

func addChannel(sum []float32, src, live []byte, p toneParams) {
	for i := range sum {
		sum[i] += shade(src[i], live[i], p)
	}
}

// shade computes one track's contribution for one pixel channel:
// brightness, exposure, envelope, then the overlay/mask crossfade.
func shade(v, live byte, p toneParams) float32 {
	x := float32(v) * p.brightness
	if x > 255 {
		x = 255
	}
	x *= p.exposure
	if x > 255 {
		x = 255
	}
	x *= p.level

	masked := float32(live) * (x / 255)
	return x*(1-p.mix) + masked*p.mix
}

// store clamps the sums to [0, 255] and truncates them into dst.
func (a *accumulator) store(dst *frame.Frame) {
	storeChannel(dst.R, a.r)
	storeChannel(dst.G, a.g)
	storeChannel(dst.B, a.b)
}

func storeChannel(dst []byte, sum []float32) {
	for i, v := range sum {
		switch {
		case v <= 0:
			dst[i] = 0
		case v >= 255:
			dst[i] = 255
		default:
			dst[i] = uint8(v)
		}
	}
}
