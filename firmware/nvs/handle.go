package nvs

import "fmt"

// Handle reads and stages writes for one namespace. Staged writes become
// visible to other handles only after Commit.
type Handle struct {
	p      *Partition
	ns     string
	mode   Mode
	closed bool

	// pending holds staged writes; a nil value stages a delete.
	pending map[string][]byte
}

func (h *Handle) Namespace() string { return h.ns }

// BlobSize returns the stored length of key.
func (h *Handle) BlobSize(key string) (int, error) {
	v, err := h.lookup(key)
	if err != nil {
		return 0, err
	}
	return len(v), nil
}

// GetBlob returns a copy of the value stored under key.
func (h *Handle) GetBlob(key string) ([]byte, error) {
	v, err := h.lookup(key)
	if err != nil {
		return nil, err
	}
	return append([]byte(nil), v...), nil
}

func (h *Handle) lookup(key string) ([]byte, error) {
	if h.closed {
		return nil, ErrClosed
	}
	if err := checkName(key); err != nil {
		return nil, err
	}
	if v, ok := h.pending[key]; ok {
		if v == nil {
			return nil, ErrNotFound
		}
		return v, nil
	}
	v, ok := h.p.get(h.ns, key)
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

// SetBlob stages value under key.
func (h *Handle) SetBlob(key string, value []byte) error {
	if err := h.writable(key); err != nil {
		return err
	}
	if len(value) > MaxBlobLen {
		return fmt.Errorf("nvs: blob %q is %d bytes: %w", key, len(value), ErrNoSpace)
	}
	h.stage(key, append([]byte{}, value...))
	return nil
}

// Erase stages the removal of key. Erasing a missing key returns ErrNotFound.
func (h *Handle) Erase(key string) error {
	if err := h.writable(key); err != nil {
		return err
	}
	if _, err := h.lookup(key); err != nil {
		return err
	}
	h.stage(key, nil)
	return nil
}

func (h *Handle) writable(key string) error {
	if h.closed {
		return ErrClosed
	}
	if h.mode != ReadWrite {
		return ErrReadOnly
	}
	return checkName(key)
}

func (h *Handle) stage(key string, v []byte) {
	if h.pending == nil {
		h.pending = make(map[string][]byte)
	}
	h.pending[key] = v
}

// Commit persists staged writes atomically. On error nothing is applied and
// the writes stay staged.
func (h *Handle) Commit() error {
	if h.closed {
		return ErrClosed
	}
	if len(h.pending) == 0 {
		return nil
	}
	if err := h.p.commit(h.ns, h.pending); err != nil {
		return err
	}
	h.pending = nil
	return nil
}

// Close discards uncommitted writes.
func (h *Handle) Close() {
	h.closed = true
	h.pending = nil
}
