//go:build !tinygo

package hal

import (
	"fmt"
	"image"
	"os"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"
)

// PeriphConfig wires a Linux single-board computer (Raspberry Pi class) with
// three buttons and an I2C SSD1306 panel.
type PeriphConfig struct {
	// Buttons maps firmware pin names to periph pin names (for example
	// "LEFT" -> "GPIO17").
	Buttons []PeriphButton

	// I2CBus is the bus name passed to i2creg.Open; empty picks the first bus.
	I2CBus string
	Width  int
	Height int

	FlashPath string
}

type PeriphButton struct {
	Name string
	Pin  string
}

// Periph is a HAL backed by periph.io drivers.
type Periph struct {
	logger *hostLogger
	gpio   GPIO
	fb     *monoFramebuffer
	flash  *FileFlash

	bus i2c.BusCloser
	dev *ssd1306.Dev
}

// NewPeriph initializes the host drivers and opens the configured devices.
func NewPeriph(cfg PeriphConfig) (*Periph, error) {
	if cfg.Width <= 0 {
		cfg.Width = 128
	}
	if cfg.Height <= 0 {
		cfg.Height = 32
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph: host init: %w", err)
	}

	p := &Periph{logger: &hostLogger{w: os.Stdout}}

	var pins []GPIOPin
	for _, b := range cfg.Buttons {
		pin := gpioreg.ByName(b.Pin)
		if pin == nil {
			return nil, fmt.Errorf("periph: no gpio %q for %s", b.Pin, b.Name)
		}
		pins = append(pins, &periphPin{name: b.Name, pin: pin})
	}
	p.gpio = NewPinSet(pins...)

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		return nil, fmt.Errorf("periph: open i2c %q: %w", cfg.I2CBus, err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.Opts{W: cfg.Width, H: cfg.Height})
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("periph: ssd1306: %w", err)
	}
	p.bus = bus
	p.dev = dev

	img := &image1bit.VerticalLSB{Stride: cfg.Width, Rect: image.Rect(0, 0, cfg.Width, cfg.Height)}
	p.fb = newMonoFramebuffer(cfg.Width, cfg.Height, func(buf []byte) error {
		img.Pix = buf
		return dev.Draw(dev.Bounds(), img, image.Point{})
	})

	ff, err := OpenFileFlash(cfg.FlashPath, FileFlashDefaultSizeBytes)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	p.flash = ff
	return p, nil
}

func (p *Periph) Logger() Logger   { return p.logger }
func (p *Periph) GPIO() GPIO       { return p.gpio }
func (p *Periph) Display() Display { return hostDisplay{fb: p.fb} }
func (p *Periph) Flash() Flash     { return p.flash }
func (p *Periph) Time() Time       { return WallTime() }

// Close blanks the panel and releases the bus and flash image.
func (p *Periph) Close() error {
	var first error
	if p.dev != nil {
		if err := p.dev.Halt(); err != nil {
			first = err
		}
	}
	if p.bus != nil {
		if err := p.bus.Close(); err != nil && first == nil {
			first = err
		}
	}
	if p.flash != nil {
		if err := p.flash.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type periphPin struct {
	mu   sync.Mutex
	name string
	pin  gpio.PinIO
}

func (p *periphPin) Name() string   { return p.name }
func (p *periphPin) Caps() GPIOCaps { return GPIOCapInput | GPIOCapPullUp | GPIOCapPullDown }

func (p *periphPin) Configure(mode GPIOMode, pull GPIOPull) error {
	if err := checkInputConfig(p.name, p.Caps(), mode, pull); err != nil {
		return err
	}
	pp := gpio.Float
	switch pull {
	case GPIOPullUp:
		pp = gpio.PullUp
	case GPIOPullDown:
		pp = gpio.PullDown
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.pin.In(pp, gpio.NoEdge); err != nil {
		return fmt.Errorf("gpio: pin %s (%s): %w", p.name, p.pin.Name(), err)
	}
	return nil
}

func (p *periphPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pin.Read() == gpio.High, nil
}

func (p *periphPin) Write(level bool) error {
	_ = level
	return fmt.Errorf("gpio: pin %s: output unsupported", p.name)
}
