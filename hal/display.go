package hal

import (
	"image/color"

	"tinygo.org/x/drivers"
)

// fbDisplay adapts a Framebuffer to the tinyterm Displayer interface,
// including the optional software-scroll extension.
type fbDisplay struct {
	fb *Framebuffer
}

func newFBDisplay(fb *Framebuffer) *fbDisplay {
	return &fbDisplay{fb: fb}
}

func (d *fbDisplay) Size() (x, y int16) {
	return int16(d.fb.Width()), int16(d.fb.Height())
}

func (d *fbDisplay) SetPixel(x, y int16, c color.RGBA) {
	d.fb.SetPixel(int(x), int(y), c.R, c.G, c.B)
}

// Display is a no-op. The window snapshots the buffer on its own cadence.
func (d *fbDisplay) Display() error { return nil }

func (d *fbDisplay) FillRectangle(x, y, width, height int16, c color.RGBA) error {
	d.fb.FillRect(int(x), int(y), int(width), int(height), c.R, c.G, c.B)
	return nil
}

func (d *fbDisplay) ScrollUp(pixels int16, bg color.RGBA) error {
	d.fb.ScrollUp(int(pixels), bg.R, bg.G, bg.B)
	return nil
}

// SetScroll is hardware scrolling, which a plain pixel buffer does not have.
func (d *fbDisplay) SetScroll(line int16) {
	_ = line
}

func (d *fbDisplay) SetRotation(rotation drivers.Rotation) error {
	_ = rotation
	return nil
}
