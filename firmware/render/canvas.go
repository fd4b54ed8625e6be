// Package render draws the PIN entry UI and the boot splash on a mono
// framebuffer.
package render

import (
	"image/color"

	"pinlock/hal"

	"tinygo.org/x/drivers"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"
)

var (
	On  = color.RGBA{255, 255, 255, 255}
	Off = color.RGBA{0, 0, 0, 255}
)

var _ drivers.Displayer = (*Canvas)(nil)

// Canvas is the drawing context shared by every screen. It adapts a
// framebuffer to drivers.Displayer so tinyfont can draw into it.
type Canvas struct {
	fb   hal.Framebuffer
	font tinyfont.Fonter

	cellWidth int16
}

func NewCanvas(fb hal.Framebuffer) *Canvas {
	c := &Canvas{fb: fb, font: &proggy.TinySZ8pt7b}
	_, outbox := tinyfont.LineWidth(c.font, "0")
	c.cellWidth = int16(outbox)
	if c.cellWidth <= 0 {
		c.cellWidth = 6
	}
	return c
}

func (c *Canvas) Size() (x, y int16) {
	if c.fb == nil {
		return 0, 0
	}
	return int16(c.fb.Width()), int16(c.fb.Height())
}

// SetPixel lights the pixel for any non-black color.
func (c *Canvas) SetPixel(x, y int16, col color.RGBA) {
	hal.SetPixel(c.fb, int(x), int(y), col.R|col.G|col.B != 0)
}

func (c *Canvas) Display() error {
	if c.fb == nil {
		return nil
	}
	return c.fb.Present()
}

func (c *Canvas) Clear() {
	if c.fb != nil {
		c.fb.Clear()
	}
}

// Text draws s with its baseline at y.
func (c *Canvas) Text(x, y int16, s string) {
	tinyfont.WriteLine(c, c.font, x, y, s, On)
}

func (c *Canvas) TextWidth(s string) int16 {
	_, outbox := tinyfont.LineWidth(c.font, s)
	return int16(outbox)
}

// CenterText draws s horizontally centered with its baseline at y.
func (c *Canvas) CenterText(y int16, s string) {
	w, _ := c.Size()
	x := (w - c.TextWidth(s)) / 2
	if x < 0 {
		x = 0
	}
	c.Text(x, y, s)
}

// CellWidth is the advance of one digit.
func (c *Canvas) CellWidth() int16 { return c.cellWidth }

func (c *Canvas) HLine(x, y, w int16) {
	for i := int16(0); i < w; i++ {
		c.SetPixel(x+i, y, On)
	}
}

func (c *Canvas) VLine(x, y, h int16) {
	for i := int16(0); i < h; i++ {
		c.SetPixel(x, y+i, On)
	}
}

// Frame draws a 1px rectangle outline.
func (c *Canvas) Frame(x, y, w, h int16) {
	if w <= 0 || h <= 0 {
		return
	}
	c.HLine(x, y, w)
	c.HLine(x, y+h-1, w)
	c.VLine(x, y, h)
	c.VLine(x+w-1, y, h)
}

func (c *Canvas) FillRect(x, y, w, h int16) {
	for i := int16(0); i < h; i++ {
		c.HLine(x, y+i, w)
	}
}
