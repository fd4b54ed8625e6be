package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pinlock/firmware/credential"
	"pinlock/firmware/input"
	"pinlock/firmware/nvs"
	"pinlock/firmware/pinentry"
	"pinlock/firmware/render"
	"pinlock/firmware/splash"
	"pinlock/hal"
)

type Config struct {
	Variant pinentry.Variant
	Input   input.Config
	Pins    input.PinNames

	Namespace       string
	Key             string
	RefuseOverwrite bool

	AcceptHold time.Duration
	RejectHold time.Duration
}

func DefaultConfig() Config {
	opts := pinentry.DefaultOptions()
	return Config{
		Variant:    opts.Variant,
		Input:      input.DefaultConfig(),
		Pins:       input.DefaultPinNames(),
		Namespace:  credential.DefaultNamespace,
		Key:        credential.DefaultKey,
		AcceptHold: opts.AcceptHold,
		RejectHold: opts.RejectHold,
	}
}

// Device is the booted firmware: display, store and buttons ready.
type Device struct {
	h   hal.HAL
	cfg Config

	canvas *render.Canvas
	part   *nvs.Partition
	store  *credential.Store
	lines  *input.GPIOLines
}

// Boot runs the splash steps: display setup, NVS mount and button setup.
func Boot(ctx context.Context, h hal.HAL, cfg Config) (*Device, error) {
	d := &Device{h: h, cfg: cfg}
	l := h.Logger()

	steps := []splash.Step{
		splash.StepFunc("display", d.setupDisplay),
		splash.StepFunc("nvs", d.initNVS),
		splash.StepFunc("buttons", d.initButtons),
	}

	var screen splash.Screen
	if fb := framebuffer(h); fb != nil {
		d.canvas = render.NewCanvas(fb)
		screen = render.NewSplashScreen(d.canvas, l)
	}
	if err := splash.Run(ctx, screen, l, steps...); err != nil {
		return nil, err
	}
	return d, nil
}

func framebuffer(h hal.HAL) hal.Framebuffer {
	disp := h.Display()
	if disp == nil {
		return nil
	}
	return disp.Framebuffer()
}

func (d *Device) setupDisplay(context.Context) error {
	if d.canvas == nil {
		return errors.New("no display")
	}
	d.canvas.Clear()
	return d.canvas.Display()
}

// initNVS mounts the partition, erasing and retrying once when the pages are
// unreadable or from another layout version.
func (d *Device) initNVS(context.Context) error {
	l := d.h.Logger()
	part, err := nvs.Init(d.h.Flash(), l)
	if errors.Is(err, nvs.ErrCorrupt) || errors.Is(err, nvs.ErrNewVersion) {
		hal.Logf(l, "app: nvs: %v, erasing", err)
		if err := nvs.Erase(d.h.Flash()); err != nil {
			return err
		}
		part, err = nvs.Init(d.h.Flash(), l)
	}
	if err != nil {
		return err
	}
	d.part = part
	d.store = credential.NewStore(part, credential.Options{
		Namespace:       d.cfg.Namespace,
		Key:             d.cfg.Key,
		RefuseOverwrite: d.cfg.RefuseOverwrite,
		Logger:          l,
	})
	return nil
}

func (d *Device) initButtons(context.Context) error {
	lines, err := input.NewGPIOLines(d.h.GPIO(), d.cfg.Pins)
	if err != nil {
		return err
	}
	d.lines = lines
	return nil
}

func (d *Device) Store() *credential.Store { return d.store }

// Session runs one PIN entry session until it is accepted or ctx is done.
func (d *Device) Session(ctx context.Context) error {
	l := d.h.Logger()
	ht := d.h.Time()
	c := pinentry.New(d.store, render.NewOLED(d.canvas, l), pinentry.Options{
		Variant:    d.cfg.Variant,
		AcceptHold: d.cfg.AcceptHold,
		RejectHold: d.cfg.RejectHold,
		Sleep:      ht.Sleep,
		Logger:     l,
	})
	poller := input.NewPoller(d.lines, ht, d.cfg.Input)
	return c.Run(ctx, poller)
}

// RunContext boots and runs one session. It returns nil once the PIN is
// accepted.
func RunContext(ctx context.Context, h hal.HAL, cfg Config) error {
	d, err := Boot(ctx, h, cfg)
	if err != nil {
		return fmt.Errorf("boot: %w", err)
	}
	if err := d.Session(ctx); err != nil {
		return err
	}
	hal.Logf(h.Logger(), "app: pin accepted")
	return nil
}

// Run is the MCU entrypoint: it boots, runs the session and then idles
// forever.
func Run(h hal.HAL, cfg Config) {
	defer recoverPanic(h)

	if err := RunContext(context.Background(), h, cfg); err != nil {
		hal.Logf(h.Logger(), "app: %v", err)
	}
	for {
		h.Time().Sleep(time.Second)
	}
}
