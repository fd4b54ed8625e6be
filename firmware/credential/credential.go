// Package credential persists the device's single 4-digit PIN.
package credential

import (
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"pinlock/firmware/nvs"
	"pinlock/hal"
)

const (
	// Length is the number of digits in a PIN.
	Length = 4
	// BlobSize is the stored size: one 32-bit little-endian integer per digit.
	BlobSize = Length * 4

	DefaultNamespace = "storage"
	DefaultKey       = "pin_code"
)

var (
	ErrMalformed = errors.New("credential: malformed")
	ErrExists    = errors.New("credential: already set")
)

// PIN is a sequence of Length digits, each in [0, 9].
type PIN [Length]uint8

// ParsePIN parses exactly Length decimal digits.
func ParsePIN(s string) (PIN, error) {
	var p PIN
	s = strings.TrimSpace(s)
	if len(s) != Length {
		return p, fmt.Errorf("%w: want %d digits, got %q", ErrMalformed, Length, s)
	}
	for i := 0; i < Length; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return p, fmt.Errorf("%w: %q is not a digit", ErrMalformed, c)
		}
		p[i] = c - '0'
	}
	return p, nil
}

func (p PIN) String() string {
	var b [Length]byte
	for i, d := range p {
		b[i] = '0' + d
	}
	return string(b[:])
}

func (p PIN) valid() bool {
	for _, d := range p {
		if d > 9 {
			return false
		}
	}
	return true
}

// Encode returns the stored form of p.
func Encode(p PIN) []byte {
	b := make([]byte, 0, BlobSize)
	for _, d := range p {
		b = binary.LittleEndian.AppendUint32(b, uint32(d))
	}
	return b
}

// Decode parses a stored blob. Any size other than BlobSize or a value
// outside [0, 9] is ErrMalformed.
func Decode(b []byte) (PIN, error) {
	var p PIN
	if len(b) != BlobSize {
		return p, fmt.Errorf("%w: blob is %d bytes, want %d", ErrMalformed, len(b), BlobSize)
	}
	for i := 0; i < Length; i++ {
		v := binary.LittleEndian.Uint32(b[i*4:])
		if v > 9 {
			return p, fmt.Errorf("%w: digit %d is %d", ErrMalformed, i, v)
		}
		p[i] = uint8(v)
	}
	return p, nil
}

type Options struct {
	Namespace string
	Key       string

	// RefuseOverwrite makes Save fail with ErrExists when a well-formed
	// PIN is already stored.
	RefuseOverwrite bool

	Logger hal.Logger
}

func DefaultOptions() Options {
	return Options{Namespace: DefaultNamespace, Key: DefaultKey}
}

// Store reads and writes the PIN under one namespace and key.
//
// Exists and Verify never return errors: any storage fault reads as "no PIN"
// or "no match" and is logged.
type Store struct {
	part *nvs.Partition
	opts Options
}

func NewStore(part *nvs.Partition, opts Options) *Store {
	if opts.Namespace == "" {
		opts.Namespace = DefaultNamespace
	}
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	return &Store{part: part, opts: opts}
}

// Exists reports whether a well-formed PIN is stored.
func (s *Store) Exists() bool {
	_, err := s.Load()
	return err == nil
}

// Load returns the stored PIN.
func (s *Store) Load() (PIN, error) {
	b, err := s.read()
	if err != nil {
		return PIN{}, err
	}
	return Decode(b)
}

func (s *Store) read() ([]byte, error) {
	if s.part == nil {
		return nil, nvs.ErrNotFound
	}
	h, err := s.part.Open(s.opts.Namespace, nvs.ReadOnly)
	if err != nil {
		return nil, err
	}
	defer h.Close()
	return h.GetBlob(s.opts.Key)
}

// Save stores p and commits it. The commit is atomic: a failed Save leaves
// the previous state readable.
func (s *Store) Save(p PIN) error {
	if !p.valid() {
		return fmt.Errorf("%w: %v", ErrMalformed, p)
	}
	if s.opts.RefuseOverwrite && s.Exists() {
		return ErrExists
	}
	if s.part == nil {
		return fmt.Errorf("credential: no partition: %w", hal.ErrNotImplemented)
	}

	h, err := s.part.Open(s.opts.Namespace, nvs.ReadWrite)
	if err != nil {
		return fmt.Errorf("credential: open %s: %w", s.opts.Namespace, err)
	}
	defer h.Close()
	if err := h.SetBlob(s.opts.Key, Encode(p)); err != nil {
		return fmt.Errorf("credential: set %s: %w", s.opts.Key, err)
	}
	if err := h.Commit(); err != nil {
		hal.Logf(s.opts.Logger, "credential: commit failed: %v", err)
		return fmt.Errorf("credential: commit: %w", err)
	}
	hal.Logf(s.opts.Logger, "credential: saved")
	return nil
}

// Verify reports whether p matches the stored PIN exactly.
func (s *Store) Verify(p PIN) bool {
	b, err := s.read()
	if err != nil {
		if !errors.Is(err, nvs.ErrNotFound) {
			hal.Logf(s.opts.Logger, "credential: read failed: %v", err)
		}
		return false
	}
	if _, err := Decode(b); err != nil {
		hal.Logf(s.opts.Logger, "credential: %v", err)
		return false
	}
	return subtle.ConstantTimeCompare(b, Encode(p)) == 1
}

// Clear removes the stored PIN. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	if s.part == nil {
		return nil
	}
	h, err := s.part.Open(s.opts.Namespace, nvs.ReadWrite)
	if err != nil {
		return fmt.Errorf("credential: open %s: %w", s.opts.Namespace, err)
	}
	defer h.Close()
	if err := h.Erase(s.opts.Key); err != nil {
		if errors.Is(err, nvs.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("credential: erase %s: %w", s.opts.Key, err)
	}
	return h.Commit()
}
