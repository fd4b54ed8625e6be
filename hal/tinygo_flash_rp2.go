//go:build tinygo && baremetal && (rp2040 || rp2350)

package hal

import (
	"fmt"
	"machine"
)

// nvsBlocks is how many erase blocks of the free flash area the NVS
// partition occupies.
const nvsBlocks = 2

// rp2Flash exposes the first erase blocks past the program image.
type rp2Flash struct {
	size  uint32
	block uint32
}

func newRP2Flash() Flash {
	bs := machine.Flash.EraseBlockSize()
	sz := machine.Flash.Size()
	if bs <= 0 || sz < bs*nvsBlocks {
		return stubFlash{}
	}
	return rp2Flash{size: uint32(bs * nvsBlocks), block: uint32(bs)}
}

func (f rp2Flash) SizeBytes() uint32       { return f.size }
func (f rp2Flash) EraseBlockBytes() uint32 { return f.block }

func (f rp2Flash) ReadAt(p []byte, off uint32) (int, error) {
	if off >= f.size {
		return 0, fmt.Errorf("flash read at %d: %w", off, ErrFlashRange)
	}
	if max := f.size - off; uint32(len(p)) > max {
		p = p[:max]
	}
	n, err := machine.Flash.ReadAt(p, int64(off))
	if err != nil {
		return n, fmt.Errorf("flash read at %d: %w", off, err)
	}
	return n, nil
}

func (f rp2Flash) WriteAt(p []byte, off uint32) (int, error) {
	if uint64(off)+uint64(len(p)) > uint64(f.size) {
		return 0, fmt.Errorf("flash write at %d: %w", off, ErrFlashRange)
	}
	n, err := machine.Flash.WriteAt(p, int64(off))
	if err != nil {
		return n, fmt.Errorf("flash write at %d: %w", off, err)
	}
	return n, nil
}

func (f rp2Flash) Erase(off, size uint32) error {
	if size == 0 {
		return nil
	}
	if off%f.block != 0 || size%f.block != 0 || uint64(off)+uint64(size) > uint64(f.size) {
		return fmt.Errorf("flash erase off=%d size=%d: %w", off, size, ErrFlashRange)
	}
	return machine.Flash.EraseBlocks(int64(off/f.block), int64(size/f.block))
}
