package hal

import "sync"

// Framebuffer is a locked RGB565 pixel buffer shared between the terminal
// renderer and the window presenting it.
type Framebuffer struct {
	mu     sync.Mutex
	width  int
	height int
	stride int
	buf    []byte
}

// NewFramebuffer allocates a zeroed buffer, two bytes per pixel.
func NewFramebuffer(width, height int) *Framebuffer {
	stride := width * 2
	return &Framebuffer{
		width:  width,
		height: height,
		stride: stride,
		buf:    make([]byte, stride*height),
	}
}

func (f *Framebuffer) Width() int       { return f.width }
func (f *Framebuffer) Height() int      { return f.height }
func (f *Framebuffer) StrideBytes() int { return f.stride }

// SetPixel writes one pixel. Out-of-range coordinates are dropped.
func (f *Framebuffer) SetPixel(x, y int, r, g, b uint8) {
	if x < 0 || x >= f.width || y < 0 || y >= f.height {
		return
	}
	pixel := rgb565(r, g, b)
	f.mu.Lock()
	off := y*f.stride + x*2
	f.buf[off] = byte(pixel)
	f.buf[off+1] = byte(pixel >> 8)
	f.mu.Unlock()
}

// FillRect paints a rectangle, clamped to the buffer.
func (f *Framebuffer) FillRect(x, y, width, height int, r, g, b uint8) {
	x0 := clampInt(x, 0, f.width)
	y0 := clampInt(y, 0, f.height)
	x1 := clampInt(x+width, 0, f.width)
	y1 := clampInt(y+height, 0, f.height)
	if x0 >= x1 || y0 >= y1 {
		return
	}

	pixel := rgb565(r, g, b)
	lo := byte(pixel)
	hi := byte(pixel >> 8)

	f.mu.Lock()
	for py := y0; py < y1; py++ {
		row := py * f.stride
		for px := x0; px < x1; px++ {
			off := row + px*2
			f.buf[off] = lo
			f.buf[off+1] = hi
		}
	}
	f.mu.Unlock()
}

// ClearRGB floods the whole buffer with one color.
func (f *Framebuffer) ClearRGB(r, g, b uint8) {
	f.FillRect(0, 0, f.width, f.height, r, g, b)
}

// ScrollUp shifts the content up by the given number of pixel rows and
// clears the exposed band at the bottom.
func (f *Framebuffer) ScrollUp(rows int, r, g, b uint8) {
	if rows <= 0 {
		return
	}
	if rows >= f.height {
		f.ClearRGB(r, g, b)
		return
	}
	f.mu.Lock()
	keep := (f.height - rows) * f.stride
	copy(f.buf[:keep], f.buf[rows*f.stride:])
	f.mu.Unlock()
	f.FillRect(0, f.height-rows, f.width, rows, r, g, b)
}

// SnapshotRGB565 copies the raw buffer into dst for presentation.
func (f *Framebuffer) SnapshotRGB565(dst []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(dst, f.buf)
}

// BufferLen reports the byte length presentation scratch must have.
func (f *Framebuffer) BufferLen() int { return len(f.buf) }

func rgb565(r, g, b uint8) uint16 {
	rr := uint16(r>>3) & 0x1F
	gg := uint16(g>>2) & 0x3F
	bb := uint16(b>>3) & 0x1F
	return (rr << 11) | (gg << 5) | bb
}

func rgb888From565(p uint16) (r, g, b uint8) {
	rr := (p >> 11) & 0x1F
	gg := (p >> 5) & 0x3F
	bb := p & 0x1F

	r = uint8((rr * 255) / 31)
	g = uint8((gg * 255) / 63)
	b = uint8((bb * 255) / 31)
	return r, g, b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
