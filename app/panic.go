package app

import (
	"fmt"
	"runtime/debug"
	"strings"
	"unicode/utf8"

	"pinlock/firmware/render"
	"pinlock/hal"
)

// recoverPanic logs a panic with its stack, shows it on the panel and halts.
func recoverPanic(h hal.HAL) {
	v := recover()
	if v == nil {
		return
	}
	stack := debug.Stack()

	if l := h.Logger(); l != nil {
		l.WriteLineString(fmt.Sprintf("pinlock panic: %v", v))
		for _, line := range strings.Split(string(stack), "\n") {
			if line == "" {
				continue
			}
			l.WriteLineString(line)
		}
	}

	if fb := framebuffer(h); fb != nil {
		drawPanic(render.NewCanvas(fb), v)
	}
	select {}
}

func drawPanic(c *render.Canvas, v any) {
	c.Clear()
	w, h := c.Size()
	cell := c.CellWidth()
	cols := w / cell
	if cols <= 0 {
		cols = 1
	}
	const lineHeight = 10

	y := int16(lineHeight - 2)
	line := fmt.Sprintf("PANIC: %v", v)
	for len(line) > 0 && y <= h {
		chunk, rest := takeRunes(line, cols)
		c.Text(0, y, chunk)
		y += lineHeight
		line = strings.TrimLeft(rest, " ")
	}
	_ = c.Display()
}

func takeRunes(s string, n int16) (prefix, rest string) {
	if n <= 0 || s == "" {
		return "", s
	}
	if int64(len(s)) <= int64(n) {
		return s, ""
	}
	var i int
	var count int16
	for i < len(s) && count < n {
		_, size := utf8.DecodeRuneInString(s[i:])
		if size <= 0 {
			break
		}
		i += size
		count++
	}
	if i >= len(s) {
		return s, ""
	}
	return s[:i], s[i:]
}
