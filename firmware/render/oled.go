package render

import (
	"strings"

	"pinlock/firmware/pinentry"
	"pinlock/hal"
)

const (
	titleText    = "Choose PIN"
	acceptedText = "PIN OK!"
	rejectedText = "Wrong PIN!"
)

// Layout places the entry screen; values are text baselines in pixels.
type Layout struct {
	Title   int16
	Row     int16
	Caret   int16
	Stars   int16
	Message int16
}

// LayoutFor fits the entry screen to a panel height.
func LayoutFor(height int) Layout {
	if height >= 64 {
		return Layout{Title: 15, Row: 35, Caret: 38, Stars: 60, Message: 34}
	}
	return Layout{Title: 8, Row: 19, Caret: 21, Stars: 31, Message: 20}
}

// OLED is the pinentry.Sink for the panel.
type OLED struct {
	c      *Canvas
	layout Layout
	logger hal.Logger
}

func NewOLED(c *Canvas, logger hal.Logger) *OLED {
	_, h := c.Size()
	return &OLED{c: c, layout: LayoutFor(int(h)), logger: logger}
}

func (o *OLED) Render(v pinentry.View) {
	o.c.Clear()
	switch v.State {
	case pinentry.Accepted:
		o.c.CenterText(o.layout.Message, acceptedText)
	case pinentry.Rejected:
		o.c.CenterText(o.layout.Message, rejectedText)
	default:
		o.drawEntry(v)
	}
	if err := o.c.Display(); err != nil {
		hal.Logf(o.logger, "render: present: %v", err)
	}
}

func (o *OLED) drawEntry(v pinentry.View) {
	o.c.CenterText(o.layout.Title, titleText)

	cell := o.c.CellWidth()
	w, _ := o.c.Size()
	x0 := (w - cell*int16(len(v.Candidates))) / 2
	if x0 < 0 {
		x0 = 0
	}
	for i, cand := range v.Candidates {
		o.c.Text(x0+int16(i)*cell, o.layout.Row, cand.String())
	}
	if v.Cursor >= 0 && v.Cursor < len(v.Candidates) {
		o.c.HLine(x0+int16(v.Cursor)*cell, o.layout.Caret, cell-1)
	}

	if v.Entered > 0 {
		o.c.CenterText(o.layout.Stars, strings.Repeat("*", v.Entered))
	}
}
