//go:build !tinygo

package cli

import (
	"fmt"
	"strings"
	"time"

	"pinlock/firmware/input"
	"pinlock/hal"
)

const (
	scriptSlot = 400 * time.Millisecond
	scriptHold = 100 * time.Millisecond
	// scriptLead delays the first press so the boot samples see released lines.
	scriptLead = 100 * time.Millisecond
)

// parseScript turns a press script into per-pin low windows. Each press or
// pause takes one slot, longer than any cooldown.
func parseScript(s string, pins input.PinNames) (map[string][]hal.Window, time.Duration, error) {
	out := map[string][]hal.Window{
		pins.Left:   nil,
		pins.Right:  nil,
		pins.Select: nil,
	}
	slot := 0
	for _, r := range strings.ToUpper(s) {
		var pin string
		switch r {
		case 'L':
			pin = pins.Left
		case 'R':
			pin = pins.Right
		case 'S':
			pin = pins.Select
		case '.':
			slot++
			continue
		case ' ', '\t', '\n', ',':
			continue
		default:
			return nil, 0, fmt.Errorf("script: unexpected %q (want L, R, S or .)", r)
		}
		from := scriptLead + time.Duration(slot)*scriptSlot
		out[pin] = append(out[pin], hal.Window{From: from, To: from + scriptHold})
		slot++
	}
	if slot == 0 {
		return nil, 0, fmt.Errorf("script: empty")
	}
	return out, scriptLead + time.Duration(slot)*scriptSlot, nil
}
