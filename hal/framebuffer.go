package hal

import "sync"

// monoFramebuffer is a 1bpp back buffer. Present hands a copy to the panel.
type monoFramebuffer struct {
	mu      sync.Mutex
	width   int
	height  int
	buf     []byte
	front   []byte
	present func(buf []byte) error
}

// NewFramebuffer returns a PixelFormatMonoVLSB framebuffer of w x h pixels.
//
// present receives the full buffer on every Present; it may be nil for
// off-screen use.
func NewFramebuffer(w, h int, present func(buf []byte) error) Framebuffer {
	return newMonoFramebuffer(w, h, present)
}

func newMonoFramebuffer(w, h int, present func(buf []byte) error) *monoFramebuffer {
	n := MonoBufferSize(w, h)
	return &monoFramebuffer{
		width:   w,
		height:  h,
		buf:     make([]byte, n),
		front:   make([]byte, n),
		present: present,
	}
}

func (f *monoFramebuffer) Width() int          { return f.width }
func (f *monoFramebuffer) Height() int         { return f.height }
func (f *monoFramebuffer) Format() PixelFormat { return PixelFormatMonoVLSB }
func (f *monoFramebuffer) Buffer() []byte      { return f.buf }

func (f *monoFramebuffer) Clear() {
	for i := range f.buf {
		f.buf[i] = 0
	}
}

func (f *monoFramebuffer) Present() error {
	f.mu.Lock()
	copy(f.front, f.buf)
	f.mu.Unlock()
	if f.present == nil {
		return nil
	}
	return f.present(f.buf)
}

// snapshot copies the last presented frame into dst.
func (f *monoFramebuffer) snapshot(dst []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy(dst, f.front)
}
