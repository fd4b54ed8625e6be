// Package input turns sampled button lines into debounced press events.
package input

import (
	"context"
	"fmt"
	"time"

	"pinlock/hal"
)

// Button identifies one of the three front-panel buttons.
type Button uint8

const (
	Left Button = iota
	Right
	Select

	buttonCount = 3
)

func (b Button) String() string {
	switch b {
	case Left:
		return "left"
	case Right:
		return "right"
	case Select:
		return "select"
	default:
		return fmt.Sprintf("button(%d)", uint8(b))
	}
}

// Class groups buttons that share a cooldown.
type Class uint8

const (
	Navigation Class = iota
	Commit

	classCount = 2
)

func (b Button) Class() Class {
	if b == Select {
		return Commit
	}
	return Navigation
}

// Event is one debounced press.
type Event struct {
	Button Button
}

type Config struct {
	// Poll is the sampling period.
	Poll time.Duration

	NavigationCooldown time.Duration
	CommitCooldown     time.Duration

	// GlobalLock makes a reported press suppress every button for its
	// cooldown instead of only its own class.
	GlobalLock bool
}

func DefaultConfig() Config {
	return Config{
		Poll:               50 * time.Millisecond,
		NavigationCooldown: 200 * time.Millisecond,
		CommitCooldown:     300 * time.Millisecond,
		GlobalLock:         true,
	}
}

func (c Config) cooldown(cl Class) time.Duration {
	if cl == Commit {
		return c.CommitCooldown
	}
	return c.NavigationCooldown
}

// Lines reads raw button state. Pressed reports the physical state; active-low
// wiring is the implementation's concern.
type Lines interface {
	Pressed(b Button) (bool, error)
}

// Debouncer reports a press on the released-to-pressed edge of a line, unless
// the button's class is cooling down. Edges inside a cooldown are dropped.
type Debouncer struct {
	cfg   Config
	prev  [buttonCount]bool
	until [classCount]time.Time
}

func NewDebouncer(cfg Config) *Debouncer {
	return &Debouncer{cfg: cfg}
}

// Update feeds one sample taken at now and returns the presses to report,
// in Left, Right, Select order.
func (d *Debouncer) Update(now time.Time, pressed [buttonCount]bool) []Event {
	var out []Event
	for i := 0; i < buttonCount; i++ {
		b := Button(i)
		edge := pressed[i] && !d.prev[i]
		d.prev[i] = pressed[i]
		if !edge {
			continue
		}
		cl := b.Class()
		if now.Before(d.until[cl]) {
			continue
		}
		out = append(out, Event{Button: b})

		until := now.Add(d.cfg.cooldown(cl))
		if d.cfg.GlobalLock {
			for c := range d.until {
				d.until[c] = until
			}
		} else {
			d.until[cl] = until
		}
	}
	return out
}

// Sample reads every line and feeds the result to Update. A line that fails
// to read counts as released.
func (d *Debouncer) Sample(now time.Time, lines Lines) []Event {
	var pressed [buttonCount]bool
	for i := range pressed {
		p, err := lines.Pressed(Button(i))
		pressed[i] = err == nil && p
	}
	return d.Update(now, pressed)
}

// Poller samples lines every Poll period and hands out debounced events.
type Poller struct {
	lines Lines
	clock hal.Time
	cfg   Config
	deb   *Debouncer

	pending []Event
}

func NewPoller(lines Lines, clock hal.Time, cfg Config) *Poller {
	if cfg.Poll <= 0 {
		cfg.Poll = DefaultConfig().Poll
	}
	return &Poller{
		lines: lines,
		clock: clock,
		cfg:   cfg,
		deb:   NewDebouncer(cfg),
	}
}

// Next blocks until a press is reported or ctx is done.
func (p *Poller) Next(ctx context.Context) (Event, error) {
	for {
		if len(p.pending) > 0 {
			ev := p.pending[0]
			p.pending = p.pending[1:]
			return ev, nil
		}
		if err := ctx.Err(); err != nil {
			return Event{}, err
		}
		p.pending = p.deb.Sample(p.clock.Now(), p.lines)
		if len(p.pending) == 0 {
			p.clock.Sleep(p.cfg.Poll)
		}
	}
}
