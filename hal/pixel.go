package hal

func monoIndex(w, h, x, y int) (off int, mask byte, ok bool) {
	if x < 0 || x >= w || y < 0 || y >= h {
		return 0, 0, false
	}
	return (y/8)*w + x, 1 << uint(y%8), true
}

// MonoBufferSize returns the byte size of a PixelFormatMonoVLSB buffer.
func MonoBufferSize(w, h int) int {
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * ((h + 7) / 8)
}

// SetPixel turns a pixel of a mono framebuffer on or off.
func SetPixel(fb Framebuffer, x, y int, on bool) {
	if fb == nil || fb.Format() != PixelFormatMonoVLSB {
		return
	}
	buf := fb.Buffer()
	off, mask, ok := monoIndex(fb.Width(), fb.Height(), x, y)
	if !ok || off >= len(buf) {
		return
	}
	if on {
		buf[off] |= mask
	} else {
		buf[off] &^= mask
	}
}

// PixelOn reports whether a pixel of a mono framebuffer is lit.
func PixelOn(fb Framebuffer, x, y int) bool {
	if fb == nil || fb.Format() != PixelFormatMonoVLSB {
		return false
	}
	return monoOn(fb.Buffer(), fb.Width(), fb.Height(), x, y)
}

func monoOn(buf []byte, w, h, x, y int) bool {
	off, mask, ok := monoIndex(w, h, x, y)
	if !ok || off >= len(buf) {
		return false
	}
	return buf[off]&mask != 0
}
