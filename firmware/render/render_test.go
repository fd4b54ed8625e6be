package render

import (
	"testing"

	"pinlock/firmware/pinentry"
	"pinlock/hal"
)

func litPixels(fb hal.Framebuffer, x0, y0, x1, y1 int) int {
	n := 0
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			if hal.PixelOn(fb, x, y) {
				n++
			}
		}
	}
	return n
}

func newFB(presents *int) hal.Framebuffer {
	return hal.NewFramebuffer(128, 32, func([]byte) error {
		*presents++
		return nil
	})
}

func TestCanvasPrimitives(t *testing.T) {
	var presents int
	fb := newFB(&presents)
	c := NewCanvas(fb)
	if w, h := c.Size(); w != 128 || h != 32 {
		t.Fatalf("size=%dx%d", w, h)
	}
	if c.CellWidth() <= 0 {
		t.Fatal("no cell width")
	}

	c.Frame(0, 0, 10, 5)
	if !hal.PixelOn(fb, 0, 0) || !hal.PixelOn(fb, 9, 4) || hal.PixelOn(fb, 5, 2) {
		t.Fatal("frame drawn wrong")
	}
	c.SetPixel(20, 20, Off)
	if hal.PixelOn(fb, 20, 20) {
		t.Fatal("black lit a pixel")
	}

	c.Clear()
	c.Text(0, 10, "8")
	if litPixels(fb, 0, 0, 16, 16) == 0 {
		t.Fatal("text drew nothing")
	}
	if err := c.Display(); err != nil || presents != 1 {
		t.Fatalf("Display err=%v presents=%d", err, presents)
	}
}

func TestOLEDEntryView(t *testing.T) {
	var presents int
	fb := newFB(&presents)
	o := NewOLED(NewCanvas(fb), nil)

	cands := pinentry.DigitsPlusDelete.Candidates()
	o.Render(pinentry.View{Candidates: cands, Cursor: 0})
	if presents != 1 {
		t.Fatalf("presents=%d", presents)
	}
	lay := LayoutFor(32)
	if litPixels(fb, 0, int(lay.Stars)-8, 128, int(lay.Stars)+1) != 0 {
		t.Fatal("stars drawn with empty entry")
	}
	before := litPixels(fb, 0, int(lay.Caret), 128, int(lay.Caret)+1)
	if before == 0 {
		t.Fatal("no caret")
	}

	o.Render(pinentry.View{Candidates: cands, Cursor: 3, Entered: 2})
	if litPixels(fb, 0, int(lay.Stars)-8, 128, int(lay.Stars)+1) == 0 {
		t.Fatal("no stars for entered digits")
	}
}

func TestOLEDMessages(t *testing.T) {
	var presents int
	fb := newFB(&presents)
	o := NewOLED(NewCanvas(fb), nil)
	for _, st := range []pinentry.State{pinentry.Accepted, pinentry.Rejected} {
		o.Render(pinentry.View{State: st})
		if litPixels(fb, 0, 0, 128, 32) == 0 {
			t.Fatalf("%v: blank screen", st)
		}
		// Title row stays empty on message screens.
		if litPixels(fb, 0, 0, 128, 4) != 0 {
			t.Fatalf("%v: title drawn", st)
		}
	}
}

func TestSplashProgress(t *testing.T) {
	var presents int
	fb := newFB(&presents)
	s := NewSplashScreen(NewCanvas(fb), nil)

	// Bar interior row.
	y := 32 - 6 - 1 + 2
	s.Progress(0, 3)
	empty := litPixels(fb, 10, y, 118, y+1)
	s.Progress(3, 3)
	full := litPixels(fb, 10, y, 118, y+1)
	if full <= empty || full != 108 {
		t.Fatalf("empty=%d full=%d", empty, full)
	}
	if presents != 2 {
		t.Fatalf("presents=%d", presents)
	}
}
