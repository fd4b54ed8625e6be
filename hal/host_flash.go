//go:build !tinygo

package hal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

const (
	// FileFlashDefaultSizeBytes holds two NVS pages.
	FileFlashDefaultSizeBytes = 2 * fileFlashEraseBlockBytes
	fileFlashEraseBlockBytes  = 4096
)

// FileFlash is a Flash backed by a host file, used as the NVS partition image.
type FileFlash struct {
	mu      sync.Mutex
	f       *os.File
	size    uint32
	scratch [fileFlashEraseBlockBytes]byte
}

// OpenFileFlash opens (or creates and erases) a flash image at path.
//
// An existing non-empty file keeps its size; a new one is sized to size bytes.
func OpenFileFlash(path string, size uint32) (*FileFlash, error) {
	if size == 0 {
		size = FileFlashDefaultSizeBytes
	}
	if size%fileFlashEraseBlockBytes != 0 {
		return nil, fmt.Errorf("flash: size %d not multiple of erase size %d", size, fileFlashEraseBlockBytes)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open flash file %q: %w", path, err)
	}

	ff := &FileFlash{f: f, size: size}
	for i := range ff.scratch {
		ff.scratch[i] = 0xFF
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat flash file %q: %w", path, err)
	}
	if st.Size() > 0 {
		if st.Size() > int64(^uint32(0)) || st.Size()%fileFlashEraseBlockBytes != 0 {
			_ = f.Close()
			return nil, fmt.Errorf("flash file %q: bad size %d", path, st.Size())
		}
		ff.size = uint32(st.Size())
		return ff, nil
	}

	if err := f.Truncate(int64(size)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("truncate flash file %q to %d: %w", path, size, err)
	}
	if err := ff.Erase(0, size); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("erase flash file %q: %w", path, err)
	}
	return ff, nil
}

func (f *FileFlash) Close() error { return f.f.Close() }

func (f *FileFlash) SizeBytes() uint32 { return f.size }
func (f *FileFlash) EraseBlockBytes() uint32 {
	return fileFlashEraseBlockBytes
}

func (f *FileFlash) ReadAt(p []byte, off uint32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off >= f.size {
		return 0, fmt.Errorf("flash read at %d: %w", off, ErrFlashRange)
	}
	maxN := int(f.size - off)
	if len(p) > maxN {
		p = p[:maxN]
	}
	return f.f.ReadAt(p, int64(off))
}

func (f *FileFlash) WriteAt(p []byte, off uint32) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if off >= f.size || uint64(off)+uint64(len(p)) > uint64(f.size) {
		return 0, fmt.Errorf("flash write at %d: %w", off, ErrFlashRange)
	}

	prev := make([]byte, len(p))
	if _, err := f.f.ReadAt(prev, int64(off)); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("flash read before write at %d: %w", off, err)
	}
	for i := range p {
		if prev[i]&p[i] != p[i] {
			return 0, ErrFlashWriteRequiresErase
		}
	}
	n, err := f.f.WriteAt(p, int64(off))
	if err != nil {
		return n, err
	}
	return n, f.f.Sync()
}

func (f *FileFlash) Erase(off, size uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if size == 0 {
		return nil
	}
	if off%fileFlashEraseBlockBytes != 0 || size%fileFlashEraseBlockBytes != 0 {
		return fmt.Errorf("flash erase off=%d size=%d: %w", off, size, ErrFlashRange)
	}
	if off >= f.size || off+size > f.size {
		return fmt.Errorf("flash erase off=%d size=%d: %w", off, size, ErrFlashRange)
	}

	for size > 0 {
		if _, err := f.f.WriteAt(f.scratch[:], int64(off)); err != nil {
			return fmt.Errorf("flash erase block at %d: %w", off, err)
		}
		off += fileFlashEraseBlockBytes
		size -= fileFlashEraseBlockBytes
	}
	return f.f.Sync()
}
