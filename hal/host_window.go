//go:build !tinygo && cgo

package hal

import (
	"fmt"
	"image"
	"pinlock/internal/buildinfo"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const hostWindowScale = 4

// RunWindow shows the framebuffer in a desktop window and drives the button
// switches from the keyboard while run executes on its own goroutine.
//
// bindings maps a button pin name to Ebiten key names (for example
// "ArrowLeft", "Enter"). RunWindow blocks until the window closes or run fails.
func RunWindow(h *Host, bindings map[string][]string, run func() error) error {
	g := &hostGame{h: h, done: make(chan error, 1)}
	for pin, names := range bindings {
		sw, ok := h.Switch(pin)
		if !ok {
			return fmt.Errorf("window: no switch %q", pin)
		}
		b := keyBinding{sw: sw}
		for _, name := range names {
			var k ebiten.Key
			if err := k.UnmarshalText([]byte(name)); err != nil {
				return fmt.Errorf("window: key %q for %s: %w", name, pin, err)
			}
			b.keys = append(b.keys, k)
		}
		g.bindings = append(g.bindings, b)
	}

	go func() { g.done <- run() }()

	ebiten.SetWindowTitle("pinlock (" + buildinfo.Short() + ")")
	ebiten.SetWindowSize(h.fb.width*hostWindowScale, h.fb.height*hostWindowScale)
	ebiten.SetTPS(60)
	return ebiten.RunGame(g)
}

type keyBinding struct {
	sw   *SwitchPin
	keys []ebiten.Key
}

type hostGame struct {
	h        *Host
	bindings []keyBinding
	done     chan error

	img     *image.RGBA
	fbImg   *ebiten.Image
	scratch []byte
}

func (g *hostGame) Update() error {
	select {
	case err := <-g.done:
		if err != nil {
			return err
		}
	default:
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	for _, b := range g.bindings {
		pressed := false
		for _, k := range b.keys {
			if ebiten.IsKeyPressed(k) {
				pressed = true
				break
			}
		}
		b.sw.Set(pressed)
	}
	return nil
}

func (g *hostGame) Draw(screen *ebiten.Image) {
	fb := g.h.fb
	if g.img == nil || g.img.Bounds().Dx() != fb.width || g.img.Bounds().Dy() != fb.height {
		g.img = image.NewRGBA(image.Rect(0, 0, fb.width, fb.height))
		g.scratch = make([]byte, len(fb.buf))
		if g.fbImg != nil {
			g.fbImg.Deallocate()
		}
		g.fbImg = ebiten.NewImage(fb.width, fb.height)
	}

	fb.snapshot(g.scratch)

	dst := g.img.Pix
	for y := 0; y < fb.height; y++ {
		for x := 0; x < fb.width; x++ {
			j := (y*fb.width + x) * 4
			if monoOn(g.scratch, fb.width, fb.height, x, y) {
				// OLED cyan-white on black.
				dst[j+0] = 0xC8
				dst[j+1] = 0xF0
				dst[j+2] = 0xFF
			} else {
				dst[j+0] = 0
				dst[j+1] = 0
				dst[j+2] = 0
			}
			dst[j+3] = 0xFF
		}
	}

	g.fbImg.WritePixels(g.img.Pix)
	screen.DrawImage(g.fbImg, nil)
}

func (g *hostGame) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.h.fb.width, g.h.fb.height
}
