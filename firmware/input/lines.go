package input

import (
	"fmt"

	"pinlock/hal"
)

// PinNames names the GPIO line of each button.
type PinNames struct {
	Left   string
	Right  string
	Select string
}

func DefaultPinNames() PinNames {
	return PinNames{Left: "LEFT", Right: "RIGHT", Select: "SELECT"}
}

func (n PinNames) List() []string { return []string{n.Left, n.Right, n.Select} }

// GPIOLines reads buttons wired between a pulled-up input and ground.
type GPIOLines struct {
	pins [buttonCount]hal.GPIOPin
}

// NewGPIOLines looks up and configures the three button pins as pulled-up
// inputs.
func NewGPIOLines(g hal.GPIO, names PinNames) (*GPIOLines, error) {
	l := &GPIOLines{}
	for i, name := range names.List() {
		pin, ok := hal.PinByName(g, name)
		if !ok {
			return nil, fmt.Errorf("input: no pin %q for %s", name, Button(i))
		}
		if err := pin.Configure(hal.GPIOModeInput, hal.GPIOPullUp); err != nil {
			return nil, fmt.Errorf("input: %s: %w", Button(i), err)
		}
		l.pins[i] = pin
	}
	return l, nil
}

func (l *GPIOLines) Pressed(b Button) (bool, error) {
	if int(b) >= len(l.pins) || l.pins[b] == nil {
		return false, fmt.Errorf("input: unknown %s", b)
	}
	level, err := l.pins[b].Read()
	if err != nil {
		return false, err
	}
	return !level, nil
}
