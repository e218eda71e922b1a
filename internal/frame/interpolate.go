package frame

// Interpolate writes the per-channel linear blend of a and b at weight t into dst.
// t = 0 yields a, t = 1 yields b. All three frames must have the same length.
func Interpolate(dst, a, b *Frame, t float32) {
	if t <= 0 {
		dst.CopyFrom(a)
		return
	}
	if t >= 1 {
		dst.CopyFrom(b)
		return
	}
	blendChannel(dst.R, a.R, b.R, t)
	blendChannel(dst.G, a.G, b.G, t)
	blendChannel(dst.B, a.B, b.B, t)
	dst.Timestamp = a.Timestamp
}

func blendChannel(dst, a, b []byte, t float32) {
	for i := range dst {
		dst[i] = uint8(lerp(float32(a[i]), float32(b[i]), t))
	}
}

// lerp performs linear interpolation between a and b
func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
