package hal

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// GPIOMode selects whether a pin is an input or output.
type GPIOMode uint8

const (
	GPIOModeInput GPIOMode = iota
	GPIOModeOutput
)

// GPIOPull selects the pull resistor configuration.
type GPIOPull uint8

const (
	GPIOPullNone GPIOPull = iota
	GPIOPullUp
	GPIOPullDown
)

// GPIOCaps declares what operations a pin supports.
type GPIOCaps uint8

const (
	GPIOCapInput GPIOCaps = 1 << iota
	GPIOCapOutput
	GPIOCapPullUp
	GPIOCapPullDown
)

// GPIO provides access to general-purpose IO pins.
//
// Implementations may return nil if GPIO is unsupported.
type GPIO interface {
	PinCount() int
	Pin(id int) GPIOPin
}

// GPIOPin is a single digital IO pin.
type GPIOPin interface {
	Name() string
	Caps() GPIOCaps
	Configure(mode GPIOMode, pull GPIOPull) error
	Read() (level bool, err error)
	Write(level bool) error
}

// PinByName returns the first pin whose name matches (case-insensitive).
func PinByName(g GPIO, name string) (GPIOPin, bool) {
	if g == nil {
		return nil, false
	}
	for i := 0; i < g.PinCount(); i++ {
		p := g.Pin(i)
		if p == nil {
			continue
		}
		if strings.EqualFold(p.Name(), name) {
			return p, true
		}
	}
	return nil, false
}

type nullGPIO struct{}

func (nullGPIO) PinCount() int      { return 0 }
func (nullGPIO) Pin(id int) GPIOPin { return nil }

type pinSet struct {
	pins []GPIOPin
}

// NewPinSet groups pins into a GPIO bank. Nil pins are skipped.
func NewPinSet(pins ...GPIOPin) GPIO {
	var kept []GPIOPin
	for _, p := range pins {
		if p != nil {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nullGPIO{}
	}
	return &pinSet{pins: kept}
}

func (g *pinSet) PinCount() int {
	if g == nil {
		return 0
	}
	return len(g.pins)
}

func (g *pinSet) Pin(id int) GPIOPin {
	if g == nil || id < 0 || id >= len(g.pins) {
		return nil
	}
	return g.pins[id]
}

func checkInputConfig(name string, caps GPIOCaps, mode GPIOMode, pull GPIOPull) error {
	if mode != GPIOModeInput {
		return fmt.Errorf("gpio: pin %s: only input supported", name)
	}
	if caps&GPIOCapInput == 0 {
		return fmt.Errorf("gpio: pin %s: input unsupported", name)
	}
	switch pull {
	case GPIOPullNone:
	case GPIOPullUp:
		if caps&GPIOCapPullUp == 0 {
			return fmt.Errorf("gpio: pin %s: pull-up unsupported", name)
		}
	case GPIOPullDown:
		if caps&GPIOCapPullDown == 0 {
			return fmt.Errorf("gpio: pin %s: pull-down unsupported", name)
		}
	default:
		return fmt.Errorf("gpio: pin %s: invalid pull", name)
	}
	return nil
}

// SwitchPin simulates a push button wired between the pin and ground.
//
// With the pull-up enabled the line reads high while released and low while
// pressed. Without a bias resistor the line floats and reads high.
type SwitchPin struct {
	mu         sync.Mutex
	name       string
	configured bool
	pull       GPIOPull
	pressed    bool
}

// NewSwitchPin returns a released switch on a pull-up capable input.
func NewSwitchPin(name string) *SwitchPin {
	return &SwitchPin{name: name}
}

func (p *SwitchPin) Name() string   { return p.name }
func (p *SwitchPin) Caps() GPIOCaps { return GPIOCapInput | GPIOCapPullUp }

func (p *SwitchPin) Configure(mode GPIOMode, pull GPIOPull) error {
	if err := checkInputConfig(p.name, p.Caps(), mode, pull); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.configured = true
	p.pull = pull
	return nil
}

func (p *SwitchPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.configured {
		return false, fmt.Errorf("gpio: pin %s: not configured", p.name)
	}
	if p.pressed {
		return false, nil
	}
	return true, nil
}

func (p *SwitchPin) Write(level bool) error {
	_ = level
	return fmt.Errorf("gpio: pin %s: output unsupported", p.name)
}

// Set presses (true) or releases (false) the simulated switch.
func (p *SwitchPin) Set(pressed bool) {
	p.mu.Lock()
	p.pressed = pressed
	p.mu.Unlock()
}

// Window is a time span, relative to a script start, during which a line is held low.
type Window struct {
	From time.Duration
	To   time.Duration
}

type scriptPin struct {
	mu   sync.Mutex
	name string

	configured bool

	t0      time.Time
	now     func() time.Time
	windows []Window
}

// NewScriptPin returns an active-low input that reads low inside any of the
// given windows, measured from the clock's time at construction.
func NewScriptPin(name string, now func() time.Time, windows []Window) GPIOPin {
	if strings.TrimSpace(name) == "" {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	return &scriptPin{
		name:    name,
		t0:      now(),
		now:     now,
		windows: append([]Window(nil), windows...),
	}
}

func (p *scriptPin) Name() string   { return p.name }
func (p *scriptPin) Caps() GPIOCaps { return GPIOCapInput | GPIOCapPullUp }

func (p *scriptPin) Configure(mode GPIOMode, pull GPIOPull) error {
	if err := checkInputConfig(p.name, p.Caps(), mode, pull); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.configured = true
	return nil
}

func (p *scriptPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.configured {
		return false, fmt.Errorf("gpio: pin %s: not configured for input", p.name)
	}

	elapsed := p.now().Sub(p.t0)
	for _, w := range p.windows {
		if elapsed >= w.From && elapsed < w.To {
			return false, nil
		}
	}
	return true, nil
}

func (p *scriptPin) Write(level bool) error {
	_ = level
	return fmt.Errorf("gpio: pin %s: output unsupported", p.name)
}
