//go:build !tinygo

package hal

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// HostConfig selects how the host HAL is wired.
type HostConfig struct {
	// FlashPath is the NVS partition image. Empty keeps the partition in RAM.
	FlashPath string
	Width     int
	Height    int

	// Buttons names the input lines, in the order the firmware reads them.
	Buttons []string

	// Script, when set, replaces the switches with scripted lines keyed by
	// pin name and driven by a virtual clock.
	Script map[string][]Window
}

// Host is the desktop HAL: switches driven by the keyboard (or a script), a
// mono framebuffer shown in a window, and a file-backed flash.
type Host struct {
	logger   *hostLogger
	gpio     GPIO
	switches map[string]*SwitchPin
	fb       *monoFramebuffer
	t        Time
	virtual  *VirtualTime
	flash    Flash
	closer   func() error
}

// NewHost returns a host HAL implementation.
func NewHost(cfg HostConfig) (*Host, error) {
	if cfg.Width <= 0 {
		cfg.Width = 128
	}
	if cfg.Height <= 0 {
		cfg.Height = 32
	}

	h := &Host{
		logger:   &hostLogger{w: os.Stdout},
		switches: make(map[string]*SwitchPin),
		fb:       newMonoFramebuffer(cfg.Width, cfg.Height, nil),
		t:        WallTime(),
	}

	var pins []GPIOPin
	if cfg.Script != nil {
		h.virtual = NewVirtualTime(time.Unix(0, 0))
		h.t = h.virtual
		for _, name := range cfg.Buttons {
			pins = append(pins, NewScriptPin(name, h.virtual.Now, cfg.Script[name]))
		}
	} else {
		for _, name := range cfg.Buttons {
			sw := NewSwitchPin(name)
			h.switches[name] = sw
			pins = append(pins, sw)
		}
	}
	h.gpio = NewPinSet(pins...)

	if cfg.FlashPath == "" {
		h.flash = NewMemFlash(FileFlashDefaultSizeBytes, fileFlashEraseBlockBytes)
	} else {
		ff, err := OpenFileFlash(cfg.FlashPath, FileFlashDefaultSizeBytes)
		if err != nil {
			return nil, err
		}
		h.flash = ff
		h.closer = ff.Close
	}
	return h, nil
}

func (h *Host) Logger() Logger   { return h.logger }
func (h *Host) GPIO() GPIO       { return h.gpio }
func (h *Host) Display() Display { return hostDisplay{fb: h.fb} }
func (h *Host) Flash() Flash     { return h.flash }
func (h *Host) Time() Time       { return h.t }

// Virtual returns the scripted clock, or nil when running in real time.
func (h *Host) Virtual() *VirtualTime { return h.virtual }

// Switch returns the simulated switch for a button line.
func (h *Host) Switch(name string) (*SwitchPin, bool) {
	sw, ok := h.switches[name]
	return sw, ok
}

// Close releases the flash image.
func (h *Host) Close() error {
	if h.closer == nil {
		return nil
	}
	return h.closer()
}

type hostDisplay struct {
	fb *monoFramebuffer
}

func (d hostDisplay) Framebuffer() Framebuffer { return d.fb }

type hostLogger struct {
	mu sync.Mutex
	w  *os.File
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}
