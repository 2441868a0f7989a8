package render

// DepthBuffer holds one rendered depth image.
//
// Depth is row-major with row 0 at the bottom of the image, the order a GL
// depth read-back produces. Values are window depth in [0, 1]: 0 at the
// near plane, 1 at the far plane and for pixels nothing covered.
type DepthBuffer struct {
	Width  int
	Height int
	Depth  []float64
}

// NewDepthBuffer creates a cleared depth buffer.
func NewDepthBuffer(width, height int) *DepthBuffer {
	b := &DepthBuffer{
		Width:  width,
		Height: height,
		Depth:  make([]float64, width*height),
	}
	b.Clear()
	return b
}

// Clear resets every pixel to the far plane.
func (b *DepthBuffer) Clear() {
	// Use copy-doubling for faster clearing
	n := len(b.Depth)
	if n == 0 {
		return
	}
	b.Depth[0] = 1
	for i := 1; i < n; i *= 2 {
		copy(b.Depth[i:], b.Depth[:i])
	}
}

// At returns the window depth at (x, y); 1 outside the buffer.
func (b *DepthBuffer) At(x, y int) float64 {
	if x < 0 || x >= b.Width || y < 0 || y >= b.Height {
		return 1
	}
	return b.Depth[y*b.Width+x]
}

// NDC returns the depth at (x, y) in normalized device coordinates, [-1, 1].
func (b *DepthBuffer) NDC(x, y int) float64 {
	return 2*b.At(x, y) - 1
}

// Covered reports whether any geometry was drawn at (x, y).
func (b *DepthBuffer) Covered(x, y int) bool {
	return b.At(x, y) < 1
}

// Range returns the nearest and farthest covered depth, or false when the
// buffer is empty.
func (b *DepthBuffer) Range() (near, far float64, ok bool) {
	near, far = 1, 0
	for _, d := range b.Depth {
		if d >= 1 {
			continue
		}
		ok = true
		near = min(near, d)
		far = max(far, d)
	}
	return near, far, ok
}

// Clone creates a deep copy of the buffer.
func (b *DepthBuffer) Clone() *DepthBuffer {
	clone := &DepthBuffer{
		Width:  b.Width,
		Height: b.Height,
		Depth:  make([]float64, len(b.Depth)),
	}
	copy(clone.Depth, b.Depth)
	return clone
}
