//go:build !tinygo

package hal

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// HeadlessConfig controls the no-window host runner.
type HeadlessConfig struct {
	// Duration is how much virtual time the run may consume.
	Duration time.Duration
}

// RunHeadless runs the firmware on the host's scripted clock until it returns
// or the virtual duration elapses. Running out of time is not an error.
func RunHeadless(ctx context.Context, h *Host, run func(ctx context.Context) error, cfg HeadlessConfig) error {
	if h.virtual == nil {
		return errors.New("headless: host has no script")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("invalid headless duration: %v", cfg.Duration)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	h.virtual.StopAfter(cfg.Duration, cancel)

	err := run(ctx)
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
