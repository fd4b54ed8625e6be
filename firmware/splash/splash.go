// Package splash runs the boot steps in order behind a progress screen.
package splash

import (
	"context"
	"fmt"

	"pinlock/hal"
)

// Step is one boot initialization task.
type Step interface {
	Name() string
	Run(ctx context.Context) error
}

type stepFunc struct {
	name string
	fn   func(ctx context.Context) error
}

// StepFunc wraps fn as a named Step.
func StepFunc(name string, fn func(ctx context.Context) error) Step {
	return stepFunc{name: name, fn: fn}
}

func (s stepFunc) Name() string                  { return s.name }
func (s stepFunc) Run(ctx context.Context) error { return s.fn(ctx) }

// Screen shows boot progress.
type Screen interface {
	Progress(done, total int)
}

// Run executes steps strictly in order, redrawing progress before the first
// step and after each one. It stops at the first failure.
func Run(ctx context.Context, screen Screen, logger hal.Logger, steps ...Step) error {
	total := len(steps)
	if screen != nil {
		screen.Progress(0, total)
	}
	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		hal.Logf(logger, "splash: %s", s.Name())
		if err := s.Run(ctx); err != nil {
			return fmt.Errorf("splash: %s: %w", s.Name(), err)
		}
		if screen != nil {
			screen.Progress(i+1, total)
		}
	}
	hal.Logf(logger, "splash: done")
	return nil
}
