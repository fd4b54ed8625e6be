package credential

import (
	"errors"
	"testing"

	"pinlock/firmware/nvs"
	"pinlock/hal"
)

func newStore(t *testing.T, opts Options) (*Store, *hal.MemFlash) {
	t.Helper()
	f := hal.NewMemFlash(2*4096, 4096)
	part, err := nvs.Init(f, nil)
	if err != nil {
		t.Fatalf("nvs.Init: %v", err)
	}
	return NewStore(part, opts), f
}

func TestEncodeLayout(t *testing.T) {
	b := Encode(PIN{1, 2, 3, 9})
	want := []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0, 9, 0, 0, 0}
	if string(b) != string(want) {
		t.Fatalf("Encode=% x", b)
	}
	p, err := Decode(b)
	if err != nil || p != (PIN{1, 2, 3, 9}) {
		t.Fatalf("Decode=%v,%v", p, err)
	}
	if _, err := Decode(b[:12]); !errors.Is(err, ErrMalformed) {
		t.Fatalf("short blob err=%v", err)
	}
	b[4] = 10
	if _, err := Decode(b); !errors.Is(err, ErrMalformed) {
		t.Fatalf("bad digit err=%v", err)
	}
}

func TestParsePIN(t *testing.T) {
	p, err := ParsePIN(" 0420 ")
	if err != nil || p != (PIN{0, 4, 2, 0}) || p.String() != "0420" {
		t.Fatalf("ParsePIN=%v,%v", p, err)
	}
	for _, s := range []string{"", "123", "12345", "12a4"} {
		if _, err := ParsePIN(s); !errors.Is(err, ErrMalformed) {
			t.Fatalf("ParsePIN(%q) err=%v", s, err)
		}
	}
}

func TestEnrollAndVerify(t *testing.T) {
	s, _ := newStore(t, DefaultOptions())
	if s.Exists() || s.Exists() {
		t.Fatal("empty store reports a PIN")
	}
	if s.Verify(PIN{0, 0, 0, 0}) {
		t.Fatal("verify on empty store")
	}

	if err := s.Save(PIN{1, 2, 3, 4}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !s.Exists() || !s.Exists() {
		t.Fatal("Exists=false after Save")
	}
	if !s.Verify(PIN{1, 2, 3, 4}) {
		t.Fatal("Verify(1234)=false")
	}
	if s.Verify(PIN{1, 2, 3, 5}) || s.Verify(PIN{4, 3, 2, 1}) {
		t.Fatal("Verify accepted a different PIN")
	}
}

func TestRoundTripAllDigits(t *testing.T) {
	s, _ := newStore(t, DefaultOptions())
	for d := uint8(0); d <= 9; d++ {
		x := PIN{d, 9 - d, d, (d + 1) % 10}
		if err := s.Save(x); err != nil {
			t.Fatalf("Save(%v): %v", x, err)
		}
		if !s.Verify(x) {
			t.Fatalf("Verify(%v)=false", x)
		}
		y := x
		y[3] = (y[3] + 1) % 10
		if s.Verify(y) {
			t.Fatalf("Verify(%v)=true after Save(%v)", y, x)
		}
	}
}

func TestWrongSizeIsAbsent(t *testing.T) {
	s, _ := newStore(t, DefaultOptions())
	h, err := s.part.Open(DefaultNamespace, nvs.ReadWrite)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := h.SetBlob(DefaultKey, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("SetBlob: %v", err)
	}
	if err := h.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	h.Close()

	if s.Exists() {
		t.Fatal("4-byte blob reported as a PIN")
	}
	if s.Verify(PIN{1, 2, 3, 4}) {
		t.Fatal("4-byte blob verified")
	}
}

func TestSaveFailureKeepsPrevious(t *testing.T) {
	s, f := newStore(t, DefaultOptions())
	if err := s.Save(PIN{1, 2, 3, 4}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	f.FailWrites = 0
	if err := s.Save(PIN{5, 5, 5, 5}); err == nil {
		t.Fatal("expected Save error")
	}
	f.FailWrites = -1
	if !s.Verify(PIN{1, 2, 3, 4}) {
		t.Fatal("previous PIN lost")
	}

	part, err := nvs.Init(f, nil)
	if err != nil {
		t.Fatalf("remount: %v", err)
	}
	if !NewStore(part, DefaultOptions()).Verify(PIN{1, 2, 3, 4}) {
		t.Fatal("previous PIN lost after remount")
	}
}

func TestRefuseOverwrite(t *testing.T) {
	opts := DefaultOptions()
	opts.RefuseOverwrite = true
	s, _ := newStore(t, opts)
	if err := s.Save(PIN{1, 2, 3, 4}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(PIN{4, 3, 2, 1}); !errors.Is(err, ErrExists) {
		t.Fatalf("err=%v want ErrExists", err)
	}
	if !s.Verify(PIN{1, 2, 3, 4}) {
		t.Fatal("PIN overwritten")
	}
}

func TestClear(t *testing.T) {
	s, _ := newStore(t, DefaultOptions())
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear on empty: %v", err)
	}
	if err := s.Save(PIN{1, 2, 3, 4}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.Exists() {
		t.Fatal("PIN survived Clear")
	}
}

func TestSaveRejectsBadDigits(t *testing.T) {
	s, _ := newStore(t, DefaultOptions())
	if err := s.Save(PIN{1, 2, 3, 10}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("err=%v want ErrMalformed", err)
	}
}

func TestNilPartition(t *testing.T) {
	s := NewStore(nil, Options{})
	if s.Exists() || s.Verify(PIN{}) {
		t.Fatal("nil partition reports a PIN")
	}
	if err := s.Save(PIN{}); err == nil {
		t.Fatal("expected Save error")
	}
}
