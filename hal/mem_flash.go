package hal

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrFlashWriteRequiresErase = errors.New("flash write requires erase")
	ErrFlashRange              = errors.New("flash access out of range")
)

// MemFlash is a RAM-backed Flash with NOR semantics: erase sets bytes to 0xFF
// and writes may only clear bits.
type MemFlash struct {
	mu    sync.Mutex
	data  []byte
	block uint32

	// FailWrites makes every WriteAt return an error after n more successful
	// writes when it is >= 0. It is meant for fault injection in tests.
	FailWrites int
}

// NewMemFlash returns an erased flash of size bytes with the given erase block.
func NewMemFlash(size, block uint32) *MemFlash {
	if block == 0 {
		block = 4096
	}
	size -= size % block
	f := &MemFlash{data: make([]byte, size), block: block, FailWrites: -1}
	for i := range f.data {
		f.data[i] = 0xFF
	}
	return f
}

func (f *MemFlash) SizeBytes() uint32       { return uint32(len(f.data)) }
func (f *MemFlash) EraseBlockBytes() uint32 { return f.block }

func (f *MemFlash) ReadAt(p []byte, off uint32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off >= uint32(len(f.data)) {
		return 0, fmt.Errorf("flash read at %d: %w", off, ErrFlashRange)
	}
	return copy(p, f.data[off:]), nil
}

func (f *MemFlash) WriteAt(p []byte, off uint32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off >= uint32(len(f.data)) || uint64(off)+uint64(len(p)) > uint64(len(f.data)) {
		return 0, fmt.Errorf("flash write at %d: %w", off, ErrFlashRange)
	}
	if f.FailWrites == 0 {
		return 0, fmt.Errorf("flash write at %d: %w", off, ErrNotImplemented)
	}
	if f.FailWrites > 0 {
		f.FailWrites--
	}
	cur := f.data[off : off+uint32(len(p))]
	for i := range p {
		if cur[i]&p[i] != p[i] {
			return 0, ErrFlashWriteRequiresErase
		}
	}
	return copy(cur, p), nil
}

func (f *MemFlash) Erase(off, size uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if size == 0 {
		return nil
	}
	if off%f.block != 0 || size%f.block != 0 {
		return fmt.Errorf("flash erase off=%d size=%d: %w", off, size, ErrFlashRange)
	}
	if uint64(off)+uint64(size) > uint64(len(f.data)) {
		return fmt.Errorf("flash erase off=%d size=%d: %w", off, size, ErrFlashRange)
	}
	for i := off; i < off+size; i++ {
		f.data[i] = 0xFF
	}
	return nil
}

type stubFlash struct{}

func (stubFlash) SizeBytes() uint32       { return 0 }
func (stubFlash) EraseBlockBytes() uint32 { return 0 }

func (stubFlash) ReadAt(p []byte, off uint32) (int, error) {
	_ = p
	_ = off
	return 0, ErrNotImplemented
}

func (stubFlash) WriteAt(p []byte, off uint32) (int, error) {
	_ = p
	_ = off
	return 0, ErrNotImplemented
}

func (stubFlash) Erase(off, size uint32) error {
	_ = off
	_ = size
	return ErrNotImplemented
}
