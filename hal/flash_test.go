package hal

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

func testFlashNOR(t *testing.T, f Flash) {
	t.Helper()

	buf := make([]byte, 4)
	if _, err := f.ReadAt(buf, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(buf, []byte{0xFF, 0xFF, 0xFF, 0xFF}) {
		t.Fatalf("erased=% x", buf)
	}

	if _, err := f.WriteAt([]byte{0x0F, 0xF0}, 0); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if _, err := f.WriteAt([]byte{0x0E}, 0); err != nil {
		t.Fatalf("WriteAt clearing bits: %v", err)
	}
	if _, err := f.WriteAt([]byte{0xFF}, 0); !errors.Is(err, ErrFlashWriteRequiresErase) {
		t.Fatalf("err=%v want ErrFlashWriteRequiresErase", err)
	}
	if _, err := f.WriteAt([]byte{0}, f.SizeBytes()); !errors.Is(err, ErrFlashRange) {
		t.Fatalf("err=%v want ErrFlashRange", err)
	}

	if err := f.Erase(1, f.EraseBlockBytes()); !errors.Is(err, ErrFlashRange) {
		t.Fatalf("unaligned erase err=%v", err)
	}
	if err := f.Erase(0, f.EraseBlockBytes()); err != nil {
		t.Fatalf("Erase: %v", err)
	}
	if _, err := f.ReadAt(buf, 0); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if buf[0] != 0xFF || buf[1] != 0xFF {
		t.Fatalf("after erase=% x", buf)
	}
}

func TestMemFlash(t *testing.T) {
	testFlashNOR(t, NewMemFlash(8192, 4096))
}

func TestMemFlashFailWrites(t *testing.T) {
	f := NewMemFlash(4096, 4096)
	f.FailWrites = 1
	if _, err := f.WriteAt([]byte{0}, 0); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := f.WriteAt([]byte{0}, 1); err == nil {
		t.Fatal("expected injected failure")
	}
	buf := make([]byte, 2)
	f.ReadAt(buf, 0)
	if buf[1] != 0xFF {
		t.Fatalf("failed write reached flash: % x", buf)
	}
}

func TestFileFlashPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nvs.bin")
	f, err := OpenFileFlash(path, 0)
	if err != nil {
		t.Fatalf("OpenFileFlash: %v", err)
	}
	if f.SizeBytes() != FileFlashDefaultSizeBytes {
		t.Fatalf("size=%d", f.SizeBytes())
	}
	testFlashNOR(t, f)

	if _, err := f.WriteAt([]byte("pin"), 100); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err = OpenFileFlash(path, 0)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer f.Close()
	got := make([]byte, 3)
	if _, err := f.ReadAt(got, 100); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if string(got) != "pin" {
		t.Fatalf("got %q", got)
	}
}

func TestOpenFileFlashRejectsOddSize(t *testing.T) {
	if _, err := OpenFileFlash(filepath.Join(t.TempDir(), "x.bin"), 1000); err == nil {
		t.Fatal("expected error")
	}
}
