package nvs

import (
	"bytes"
	"errors"
	"testing"

	"pinlock/hal"
)

func newFlash() *hal.MemFlash { return hal.NewMemFlash(2*4096, 4096) }

func mustInit(t *testing.T, f hal.Flash) *Partition {
	t.Helper()
	p, err := Init(f, nil)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return p
}

func setBlob(t *testing.T, p *Partition, ns, key string, v []byte) {
	t.Helper()
	h, err := p.Open(ns, ReadWrite)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()
	if err := h.SetBlob(key, v); err != nil {
		t.Fatalf("SetBlob: %v", err)
	}
	if err := h.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
}

func TestBlankPartition(t *testing.T) {
	p := mustInit(t, newFlash())
	if _, err := p.Open("storage", ReadOnly); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Open(ReadOnly) err=%v want ErrNotFound", err)
	}
	h, err := p.Open("storage", ReadWrite)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := h.GetBlob("pin_code"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetBlob err=%v", err)
	}
}

func TestSetCommitRemount(t *testing.T) {
	f := newFlash()
	p := mustInit(t, f)
	setBlob(t, p, "storage", "pin_code", []byte{1, 2, 3, 4})
	setBlob(t, p, "other", "k", []byte("v"))
	setBlob(t, p, "storage", "pin_code", []byte{5, 6})

	p = mustInit(t, f)
	h, err := p.Open("storage", ReadOnly)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := h.GetBlob("pin_code")
	if err != nil {
		t.Fatalf("GetBlob: %v", err)
	}
	if !bytes.Equal(got, []byte{5, 6}) {
		t.Fatalf("got % x", got)
	}
	if n, _ := h.BlobSize("pin_code"); n != 2 {
		t.Fatalf("BlobSize=%d", n)
	}

	keys := p.Keys()
	if len(keys) != 2 || keys[0].Namespace != "other" || keys[1].Key != "pin_code" {
		t.Fatalf("keys=%+v", keys)
	}
}

func TestUncommittedWritesAreDiscarded(t *testing.T) {
	f := newFlash()
	p := mustInit(t, f)
	h, _ := p.Open("storage", ReadWrite)
	if err := h.SetBlob("pin_code", []byte{9}); err != nil {
		t.Fatalf("SetBlob: %v", err)
	}
	if v, err := h.GetBlob("pin_code"); err != nil || v[0] != 9 {
		t.Fatalf("staged read=%v,%v", v, err)
	}
	if _, ok := p.get("storage", "pin_code"); ok {
		t.Fatal("staged write visible before commit")
	}
	h.Close()
	if _, err := h.GetBlob("pin_code"); !errors.Is(err, ErrClosed) {
		t.Fatalf("err=%v want ErrClosed", err)
	}

	p = mustInit(t, f)
	if len(p.Keys()) != 0 {
		t.Fatalf("keys=%+v", p.Keys())
	}
}

func TestReadOnlyHandle(t *testing.T) {
	p := mustInit(t, newFlash())
	setBlob(t, p, "storage", "pin_code", []byte{1})
	h, err := p.Open("storage", ReadOnly)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := h.SetBlob("pin_code", []byte{2}); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("err=%v want ErrReadOnly", err)
	}
	if err := h.Erase("pin_code"); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("err=%v want ErrReadOnly", err)
	}
}

func TestEraseKey(t *testing.T) {
	f := newFlash()
	p := mustInit(t, f)
	setBlob(t, p, "storage", "pin_code", []byte{1})

	h, _ := p.Open("storage", ReadWrite)
	if err := h.Erase("pin_code"); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if err := h.Erase("pin_code"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Erase err=%v", err)
	}
	if err := h.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	h.Close()

	p = mustInit(t, f)
	if _, err := p.Open("storage", ReadOnly); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
}

func TestInvalidNames(t *testing.T) {
	p := mustInit(t, newFlash())
	if _, err := p.Open("", ReadWrite); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("err=%v", err)
	}
	h, _ := p.Open("storage", ReadWrite)
	if err := h.SetBlob("a_key_that_is_too_long", nil); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("err=%v", err)
	}
}

func TestNoSpace(t *testing.T) {
	p := mustInit(t, newFlash())
	h, _ := p.Open("storage", ReadWrite)
	if err := h.SetBlob("big", make([]byte, 4096)); err != nil {
		t.Fatalf("SetBlob: %v", err)
	}
	if err := h.Commit(); !errors.Is(err, ErrNoSpace) {
		t.Fatalf("err=%v want ErrNoSpace", err)
	}
}

func TestFailedCommitKeepsPreviousImage(t *testing.T) {
	f := newFlash()
	p := mustInit(t, f)
	setBlob(t, p, "storage", "pin_code", []byte{1, 2, 3, 4})

	// Payload write succeeds, header write fails.
	f.FailWrites = 1
	h, _ := p.Open("storage", ReadWrite)
	if err := h.SetBlob("pin_code", []byte{4, 3, 2, 1}); err != nil {
		t.Fatalf("SetBlob: %v", err)
	}
	if err := h.Commit(); err == nil {
		t.Fatal("expected commit error")
	}
	f.FailWrites = -1

	if v, _ := p.get("storage", "pin_code"); !bytes.Equal(v, []byte{1, 2, 3, 4}) {
		t.Fatalf("in-memory image changed: % x", v)
	}
	p = mustInit(t, f)
	if v, _ := p.get("storage", "pin_code"); !bytes.Equal(v, []byte{1, 2, 3, 4}) {
		t.Fatalf("remounted image=% x", v)
	}
}

func TestTornHeaderFallsBack(t *testing.T) {
	f := newFlash()
	p := mustInit(t, f)
	setBlob(t, p, "storage", "pin_code", []byte{1, 2, 3, 4})
	setBlob(t, p, "storage", "pin_code", []byte{7, 7, 7, 7})
	active := p.active

	// Clear bits in the newest header's magic.
	if _, err := f.WriteAt([]byte{0}, p.pageOffset(active)); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}

	p = mustInit(t, f)
	if p.active == active {
		t.Fatal("mounted the torn page")
	}
	if v, _ := p.get("storage", "pin_code"); !bytes.Equal(v, []byte{1, 2, 3, 4}) {
		t.Fatalf("got % x want previous image", v)
	}
}

func TestCorruptAndVersionErrors(t *testing.T) {
	f := newFlash()
	if _, err := f.WriteAt([]byte("junk"), 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if _, err := Init(f, nil); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("err=%v want ErrCorrupt", err)
	}

	f = newFlash()
	p := mustInit(t, f)
	setBlob(t, p, "storage", "pin_code", []byte{1})
	// Rewrite the header as a future layout version.
	hdr := make([]byte, headerLen)
	f.ReadAt(hdr, 0)
	hdr[4] = 2
	hdr[5] = 0
	fixHeaderCRC(hdr)
	if err := f.Erase(0, 4096); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if _, err := f.WriteAt(hdr, 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if _, err := Init(f, nil); !errors.Is(err, ErrNewVersion) {
		t.Fatalf("err=%v want ErrNewVersion", err)
	}

	if err := Erase(f); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	p = mustInit(t, f)
	if len(p.Keys()) != 0 {
		t.Fatalf("keys after erase=%+v", p.Keys())
	}
}

func TestEraseAll(t *testing.T) {
	f := newFlash()
	p := mustInit(t, f)
	setBlob(t, p, "storage", "pin_code", []byte{1})
	if err := p.EraseAll(); err != nil {
		t.Fatalf("EraseAll: %v", err)
	}
	if len(p.Keys()) != 0 {
		t.Fatal("entries survived EraseAll")
	}
	setBlob(t, p, "storage", "pin_code", []byte{2})
	p = mustInit(t, f)
	if v, _ := p.get("storage", "pin_code"); !bytes.Equal(v, []byte{2}) {
		t.Fatalf("got % x", v)
	}
}
