package render

import (
	"pinlock/hal"
	"pinlock/internal/buildinfo"
)

// SplashScreen draws the boot title and a progress bar.
type SplashScreen struct {
	c      *Canvas
	logger hal.Logger
}

func NewSplashScreen(c *Canvas, logger hal.Logger) *SplashScreen {
	return &SplashScreen{c: c, logger: logger}
}

// Progress redraws the splash with done of total steps complete.
func (s *SplashScreen) Progress(done, total int) {
	w, h := s.c.Size()
	s.c.Clear()
	s.c.CenterText(h/2-2, "pinlock "+buildinfo.Short())

	barW := w - 16
	barH := int16(6)
	x, y := int16(8), h-barH-1
	s.c.Frame(x, y, barW, barH)
	if total > 0 {
		if done > total {
			done = total
		}
		fill := int16(int(barW-4) * done / total)
		s.c.FillRect(x+2, y+2, fill, barH-4)
	}
	if err := s.c.Display(); err != nil {
		hal.Logf(s.logger, "render: present: %v", err)
	}
}
