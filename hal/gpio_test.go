package hal

import (
	"testing"
	"time"
)

func TestSwitchPinActiveLow(t *testing.T) {
	sw := NewSwitchPin("LEFT")
	if _, err := sw.Read(); err == nil {
		t.Fatal("expected error reading unconfigured pin")
	}
	if err := sw.Configure(GPIOModeOutput, GPIOPullNone); err == nil {
		t.Fatal("expected output mode to be rejected")
	}
	if err := sw.Configure(GPIOModeInput, GPIOPullDown); err == nil {
		t.Fatal("expected pull-down to be rejected")
	}
	if err := sw.Configure(GPIOModeInput, GPIOPullUp); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	level, err := sw.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !level {
		t.Fatal("expected released switch to read high")
	}

	sw.Set(true)
	if level, _ = sw.Read(); level {
		t.Fatal("expected pressed switch to read low")
	}
	sw.Set(false)
	if level, _ = sw.Read(); !level {
		t.Fatal("expected high after release")
	}
}

func TestScriptPinWindows(t *testing.T) {
	clock := NewVirtualTime(time.Unix(0, 0))
	pin := NewScriptPin("SELECT", clock.Now, []Window{
		{From: 100 * time.Millisecond, To: 200 * time.Millisecond},
	})
	if pin == nil {
		t.Fatal("expected pin")
	}
	if err := pin.Configure(GPIOModeInput, GPIOPullUp); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	steps := []struct {
		advance time.Duration
		want    bool
	}{
		{0, true},
		{100 * time.Millisecond, false},
		{50 * time.Millisecond, false},
		{50 * time.Millisecond, true},
	}
	for i, s := range steps {
		clock.Sleep(s.advance)
		level, err := pin.Read()
		if err != nil {
			t.Fatalf("step %d: Read: %v", i, err)
		}
		if level != s.want {
			t.Fatalf("step %d: level=%v want %v", i, level, s.want)
		}
	}
}

func TestPinByName(t *testing.T) {
	g := NewPinSet(NewSwitchPin("LEFT"), nil, NewSwitchPin("RIGHT"))
	if g.PinCount() != 2 {
		t.Fatalf("PinCount=%d want 2", g.PinCount())
	}
	p, ok := PinByName(g, "right")
	if !ok || p.Name() != "RIGHT" {
		t.Fatalf("PinByName(right)=%v,%v", p, ok)
	}
	if _, ok := PinByName(g, "SELECT"); ok {
		t.Fatal("unexpected SELECT pin")
	}
	if _, ok := PinByName(nil, "LEFT"); ok {
		t.Fatal("unexpected pin on nil bank")
	}
}
