// Package nvs is a small non-volatile key/value store for blobs grouped by
// namespace. It keeps two flash pages and rewrites the whole image into the
// inactive page on every commit, writing the page header last, so a commit
// either lands completely or leaves the previous image in place.
package nvs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"sort"
	"sync"

	"pinlock/hal"
)

const (
	MaxNameLen = 15
	MaxBlobLen = 0xFFFF

	layoutVersion = 1

	headerRegion = 256
	headerLen    = 24
	pageCount    = 2
)

var pageMagic = [4]byte{'P', 'N', 'V', 'S'}

var (
	ErrNotFound    = errors.New("nvs: not found")
	ErrNoSpace     = errors.New("nvs: no space")
	ErrReadOnly    = errors.New("nvs: read only")
	ErrInvalidName = errors.New("nvs: invalid name")
	ErrClosed      = errors.New("nvs: handle closed")

	// ErrNewVersion reports pages written by a different layout version.
	ErrNewVersion = errors.New("nvs: new layout version found")
	// ErrCorrupt reports that no page holds a valid image and the pages
	// are not blank.
	ErrCorrupt = errors.New("nvs: no valid page")
)

type Mode uint8

const (
	ReadOnly Mode = iota
	ReadWrite
)

type entryKey struct {
	ns  string
	key string
}

// Partition is a mounted store on a flash region.
type Partition struct {
	mu     sync.Mutex
	flash  hal.Flash
	logger hal.Logger

	pageSize uint32
	active   int
	seq      uint32
	entries  map[entryKey][]byte
}

// Init mounts the store on f. A blank flash mounts as an empty store.
func Init(f hal.Flash, logger hal.Logger) (*Partition, error) {
	if f == nil {
		return nil, errors.New("nvs: nil flash")
	}
	block := f.EraseBlockBytes()
	if block == 0 {
		return nil, fmt.Errorf("nvs: flash has no erase block: %w", hal.ErrNotImplemented)
	}
	pageSize := (f.SizeBytes() / pageCount) / block * block
	if pageSize <= headerRegion {
		return nil, fmt.Errorf("nvs: flash too small (%d bytes): %w", f.SizeBytes(), ErrNoSpace)
	}

	p := &Partition{
		flash:    f,
		logger:   logger,
		pageSize: pageSize,
		active:   -1,
		entries:  make(map[entryKey][]byte),
	}
	if err := p.mount(); err != nil {
		return nil, err
	}
	return p, nil
}

type pageState uint8

const (
	pageBlank pageState = iota
	pageValid
	pageOtherVersion
	pageBad
)

type header struct {
	version uint16
	seq     uint32
	length  uint32
	crc     uint32
}

func (p *Partition) mount() error {
	best := -1
	var bestSeq uint32
	var bestEntries map[entryKey][]byte
	blank, otherVersion := 0, 0

	for i := 0; i < pageCount; i++ {
		st, h, entries, err := p.readPage(i)
		if err != nil {
			return err
		}
		switch st {
		case pageBlank:
			blank++
		case pageOtherVersion:
			otherVersion++
		case pageBad:
			hal.Logf(p.logger, "nvs: page %d invalid, ignoring", i)
		case pageValid:
			if best < 0 || h.seq > bestSeq {
				best, bestSeq, bestEntries = i, h.seq, entries
			}
		}
	}

	switch {
	case best >= 0:
		p.active, p.seq, p.entries = best, bestSeq, bestEntries
		hal.Logf(p.logger, "nvs: mounted page %d seq %d (%d entries)", best, bestSeq, len(bestEntries))
		return nil
	case otherVersion > 0:
		return ErrNewVersion
	case blank == pageCount:
		hal.Logf(p.logger, "nvs: blank partition")
		return nil
	default:
		return ErrCorrupt
	}
}

func (p *Partition) pageOffset(i int) uint32 { return uint32(i) * p.pageSize }

func (p *Partition) readPage(i int) (pageState, header, map[entryKey][]byte, error) {
	var h header
	hdr := make([]byte, headerRegion)
	if _, err := p.flash.ReadAt(hdr, p.pageOffset(i)); err != nil {
		return pageBad, h, nil, fmt.Errorf("nvs: read page %d: %w", i, err)
	}

	if isErased(hdr) {
		return pageBlank, h, nil, nil
	}
	if !bytes.Equal(hdr[:4], pageMagic[:]) {
		return pageBad, h, nil, nil
	}
	if crc32.ChecksumIEEE(hdr[:headerLen-4]) != binary.LittleEndian.Uint32(hdr[headerLen-4:headerLen]) {
		return pageBad, h, nil, nil
	}
	h.version = binary.LittleEndian.Uint16(hdr[4:6])
	h.seq = binary.LittleEndian.Uint32(hdr[8:12])
	h.length = binary.LittleEndian.Uint32(hdr[12:16])
	h.crc = binary.LittleEndian.Uint32(hdr[16:20])
	if h.version != layoutVersion {
		return pageOtherVersion, h, nil, nil
	}
	if h.length > p.pageSize-headerRegion {
		return pageBad, h, nil, nil
	}

	payload := make([]byte, h.length)
	if _, err := p.flash.ReadAt(payload, p.pageOffset(i)+headerRegion); err != nil {
		return pageBad, h, nil, fmt.Errorf("nvs: read page %d payload: %w", i, err)
	}
	if crc32.ChecksumIEEE(payload) != h.crc {
		return pageBad, h, nil, nil
	}
	entries, err := decodeEntries(payload)
	if err != nil {
		return pageBad, h, nil, nil
	}
	return pageValid, h, entries, nil
}

func isErased(b []byte) bool {
	for _, c := range b {
		if c != 0xFF {
			return false
		}
	}
	return true
}

// EraseAll wipes both pages and leaves the partition empty.
func (p *Partition) EraseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.flash.Erase(0, p.pageSize*pageCount); err != nil {
		return fmt.Errorf("nvs: erase: %w", err)
	}
	p.active = -1
	p.seq = 0
	p.entries = make(map[entryKey][]byte)
	return nil
}

// Erase wipes every page of f without mounting it.
func Erase(f hal.Flash) error {
	if f == nil {
		return errors.New("nvs: nil flash")
	}
	block := f.EraseBlockBytes()
	if block == 0 {
		return hal.ErrNotImplemented
	}
	size := (f.SizeBytes() / pageCount) / block * block * pageCount
	if err := f.Erase(0, size); err != nil {
		return fmt.Errorf("nvs: erase: %w", err)
	}
	return nil
}

// Open returns a handle on namespace ns.
//
// A read-only handle on a namespace with no entries fails with ErrNotFound.
func (p *Partition) Open(ns string, mode Mode) (*Handle, error) {
	if err := checkName(ns); err != nil {
		return nil, err
	}
	if mode == ReadOnly {
		p.mu.Lock()
		found := false
		for k := range p.entries {
			if k.ns == ns {
				found = true
				break
			}
		}
		p.mu.Unlock()
		if !found {
			return nil, ErrNotFound
		}
	}
	return &Handle{p: p, ns: ns, mode: mode}, nil
}

// Keys lists the entries of every namespace, sorted.
func (p *Partition) Keys() []Key {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Key, 0, len(p.entries))
	for k, v := range p.entries {
		out = append(out, Key{Namespace: k.ns, Key: k.key, Size: len(v)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Namespace != out[j].Namespace {
			return out[i].Namespace < out[j].Namespace
		}
		return out[i].Key < out[j].Key
	})
	return out
}

type Key struct {
	Namespace string
	Key       string
	Size      int
}

func (p *Partition) get(ns, key string) ([]byte, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.entries[entryKey{ns, key}]
	return v, ok
}

// commit writes the current image with changes applied to the inactive page.
// On failure the in-memory image and the active page are left untouched.
func (p *Partition) commit(ns string, changes map[string][]byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	next := make(map[entryKey][]byte, len(p.entries)+len(changes))
	for k, v := range p.entries {
		next[k] = v
	}
	for key, v := range changes {
		if v == nil {
			delete(next, entryKey{ns, key})
			continue
		}
		next[entryKey{ns, key}] = v
	}

	payload := encodeEntries(next)
	if uint32(len(payload)) > p.pageSize-headerRegion {
		return ErrNoSpace
	}

	target := 0
	if p.active == 0 {
		target = 1
	}
	off := p.pageOffset(target)
	seq := p.seq + 1

	if err := p.flash.Erase(off, p.pageSize); err != nil {
		return fmt.Errorf("nvs: erase page %d: %w", target, err)
	}
	if len(payload) > 0 {
		if _, err := p.flash.WriteAt(payload, off+headerRegion); err != nil {
			return fmt.Errorf("nvs: write page %d: %w", target, err)
		}
	}

	var hdr [headerLen]byte
	copy(hdr[:4], pageMagic[:])
	binary.LittleEndian.PutUint16(hdr[4:6], layoutVersion)
	binary.LittleEndian.PutUint16(hdr[6:8], 0)
	binary.LittleEndian.PutUint32(hdr[8:12], seq)
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(len(payload)))
	binary.LittleEndian.PutUint32(hdr[16:20], crc32.ChecksumIEEE(payload))
	binary.LittleEndian.PutUint32(hdr[20:24], crc32.ChecksumIEEE(hdr[:20]))
	if _, err := p.flash.WriteAt(hdr[:], off); err != nil {
		return fmt.Errorf("nvs: write header %d: %w", target, err)
	}

	p.active = target
	p.seq = seq
	p.entries = next
	return nil
}

// encodeEntries serializes entries sorted by namespace then key:
// nsLen u8, ns, keyLen u8, key, valLen u16 LE, val.
func encodeEntries(entries map[entryKey][]byte) []byte {
	keys := make([]entryKey, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ns != keys[j].ns {
			return keys[i].ns < keys[j].ns
		}
		return keys[i].key < keys[j].key
	})

	var b []byte
	for _, k := range keys {
		v := entries[k]
		b = append(b, byte(len(k.ns)))
		b = append(b, k.ns...)
		b = append(b, byte(len(k.key)))
		b = append(b, k.key...)
		b = binary.LittleEndian.AppendUint16(b, uint16(len(v)))
		b = append(b, v...)
	}
	return b
}

func decodeEntries(b []byte) (map[entryKey][]byte, error) {
	out := make(map[entryKey][]byte)
	for len(b) > 0 {
		ns, rest, err := decodeName(b)
		if err != nil {
			return nil, err
		}
		key, rest, err := decodeName(rest)
		if err != nil {
			return nil, err
		}
		if len(rest) < 2 {
			return nil, errors.New("short value length")
		}
		n := int(binary.LittleEndian.Uint16(rest))
		rest = rest[2:]
		if len(rest) < n {
			return nil, errors.New("short value")
		}
		out[entryKey{ns, key}] = append([]byte(nil), rest[:n]...)
		b = rest[n:]
	}
	return out, nil
}

func decodeName(b []byte) (string, []byte, error) {
	if len(b) < 1 {
		return "", nil, errors.New("short name length")
	}
	n := int(b[0])
	if n == 0 || n > MaxNameLen || len(b) < 1+n {
		return "", nil, errors.New("bad name")
	}
	return string(b[1 : 1+n]), b[1+n:], nil
}

func checkName(s string) error {
	if len(s) == 0 || len(s) > MaxNameLen {
		return fmt.Errorf("%w: %q", ErrInvalidName, s)
	}
	return nil
}
