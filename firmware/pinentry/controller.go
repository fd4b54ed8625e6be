// Package pinentry implements the PIN entry session: cursor movement over a
// candidate row, digit entry, and first-time enrollment or verification.
package pinentry

import (
	"context"
	"time"

	"pinlock/firmware/credential"
	"pinlock/firmware/input"
	"pinlock/hal"
)

type State uint8

const (
	Selecting State = iota
	Accepted
	Rejected
)

func (s State) String() string {
	switch s {
	case Selecting:
		return "selecting"
	case Accepted:
		return "accepted"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// View is what a Sink draws. Entered is the number of digits typed; their
// values are never exposed.
type View struct {
	Candidates []Candidate
	Cursor     int
	Entered    int
	State      State
}

// Sink draws views. It must not retain the Candidates slice.
type Sink interface {
	Render(v View)
}

// Store is the credential persistence the controller enrolls into or
// verifies against.
type Store interface {
	Exists() bool
	Save(p credential.PIN) error
	Verify(p credential.PIN) bool
}

// Events yields debounced presses.
type Events interface {
	Next(ctx context.Context) (input.Event, error)
}

type Options struct {
	Variant Variant

	// AcceptHold and RejectHold keep the result message on screen.
	AcceptHold time.Duration
	RejectHold time.Duration

	// Sleep waits out the hold times. Nil skips the wait.
	Sleep func(time.Duration)

	Logger hal.Logger
}

func DefaultOptions() Options {
	return Options{
		Variant:    DigitsPlusDelete,
		AcceptHold: 1500 * time.Millisecond,
		RejectHold: 2000 * time.Millisecond,
	}
}

// Controller owns the cursor and entry buffer of one session.
type Controller struct {
	store Store
	sink  Sink
	opts  Options

	candidates []Candidate
	cursor     int
	entry      []uint8
	state      State
}

func New(store Store, sink Sink, opts Options) *Controller {
	return &Controller{
		store:      store,
		sink:       sink,
		opts:       opts,
		candidates: opts.Variant.Candidates(),
		entry:      make([]uint8, 0, credential.Length),
	}
}

func (c *Controller) Cursor() int  { return c.cursor }
func (c *Controller) State() State { return c.state }

// Entry returns a copy of the digits entered so far.
func (c *Controller) Entry() []uint8 { return append([]uint8(nil), c.entry...) }

// Start draws the initial view.
func (c *Controller) Start() { c.render() }

// Handle applies one press and returns the resulting state. Rejected is
// reported for the press that completed a wrong PIN; by the time Handle
// returns the session is back to Selecting with an empty buffer.
func (c *Controller) Handle(b input.Button) State {
	if c.state == Accepted {
		return Accepted
	}
	n := len(c.candidates)

	switch b {
	case input.Left:
		c.cursor = (c.cursor - 1 + n) % n
		c.render()
	case input.Right:
		c.cursor = (c.cursor + 1) % n
		c.render()
	case input.Select:
		cand := c.candidates[c.cursor]
		switch {
		case cand == Delete:
			if len(c.entry) > 0 {
				c.entry = c.entry[:len(c.entry)-1]
				c.render()
			}
		case len(c.entry) < credential.Length:
			c.entry = append(c.entry, uint8(cand))
			c.render()
			if len(c.entry) == credential.Length {
				return c.complete()
			}
		}
	}
	return c.state
}

func (c *Controller) complete() State {
	var pin credential.PIN
	copy(pin[:], c.entry)

	if !c.store.Exists() {
		if err := c.store.Save(pin); err != nil {
			hal.Logf(c.opts.Logger, "pinentry: enroll: save failed: %v", err)
		} else {
			hal.Logf(c.opts.Logger, "pinentry: enrolled")
		}
		return c.accept()
	}
	if c.store.Verify(pin) {
		hal.Logf(c.opts.Logger, "pinentry: verified")
		return c.accept()
	}

	hal.Logf(c.opts.Logger, "pinentry: wrong pin")
	c.state = Rejected
	c.render()
	c.sleep(c.opts.RejectHold)

	c.entry = c.entry[:0]
	c.cursor = 0
	c.state = Selecting
	c.render()
	return Rejected
}

func (c *Controller) accept() State {
	c.state = Accepted
	c.render()
	c.sleep(c.opts.AcceptHold)
	return Accepted
}

// Run draws the initial view and applies events until the session is
// accepted or ctx is done.
func (c *Controller) Run(ctx context.Context, events Events) error {
	c.Start()
	for {
		ev, err := events.Next(ctx)
		if err != nil {
			return err
		}
		if c.Handle(ev.Button) == Accepted {
			return nil
		}
	}
}

func (c *Controller) render() {
	if c.sink == nil {
		return
	}
	c.sink.Render(View{
		Candidates: c.candidates,
		Cursor:     c.cursor,
		Entered:    len(c.entry),
		State:      c.state,
	})
}

func (c *Controller) sleep(d time.Duration) {
	if c.opts.Sleep != nil && d > 0 {
		c.opts.Sleep(d)
	}
}
