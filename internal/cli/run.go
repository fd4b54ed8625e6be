//go:build !tinygo

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"pinlock/app"
	"pinlock/hal"
	"pinlock/internal/hostcfg"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the firmware",
		Long: `Runs the firmware against a HAL.

board=host opens a window: Left/Right arrows move the cursor, Enter or
Space selects. With --headless the buttons follow --script instead, a
sequence of L, R and S presses where '.' is a pause and spaces are
ignored; the command fails unless the session ends accepted.

board=rpi uses periph.io GPIO and an I2C SSD1306 panel.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ac, err := cfg.App()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			headless, _ := cmd.Flags().GetBool("headless")
			switch {
			case cfg.Board == "rpi":
				return runPeriph(ctx, cfg, ac)
			case cfg.Board != "host":
				return fmt.Errorf("unknown board %q (want host or rpi)", cfg.Board)
			case headless:
				script, _ := cmd.Flags().GetString("script")
				return runHeadless(ctx, cmd, cfg, ac, script)
			default:
				return runWindow(ctx, cfg, ac)
			}
		},
	}
	cmd.Flags().String("board", "host", "target board: host or rpi")
	cmd.Flags().String("flash", "pinlock-nvs.bin", "NVS flash image path (empty keeps it in memory)")
	cmd.Flags().String("variant", "digits+delete", "candidate row: digits or digits+delete")
	cmd.Flags().Bool("headless", false, "run without a window, driven by --script")
	cmd.Flags().String("script", "", "button script for --headless, e.g. \"RSSSS\"")
	return cmd
}

func hostConfig(cfg hostcfg.Config, ac app.Config) hal.HostConfig {
	return hal.HostConfig{
		FlashPath: cfg.Flash,
		Width:     cfg.UI.Width,
		Height:    cfg.UI.Height,
		Buttons:   ac.Pins.List(),
	}
}

func runWindow(ctx context.Context, cfg hostcfg.Config, ac app.Config) error {
	h, err := hal.NewHost(hostConfig(cfg, ac))
	if err != nil {
		return err
	}
	defer h.Close()

	bindings := map[string][]string{
		ac.Pins.Left:   {"ArrowLeft"},
		ac.Pins.Right:  {"ArrowRight"},
		ac.Pins.Select: {"Enter", "Space"},
	}
	return hal.RunWindow(h, bindings, func() error {
		err := app.RunContext(ctx, h, ac)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
}

func runHeadless(ctx context.Context, cmd *cobra.Command, cfg hostcfg.Config, ac app.Config, script string) error {
	windows, length, err := parseScript(script, ac.Pins)
	if err != nil {
		return err
	}
	hc := hostConfig(cfg, ac)
	hc.Script = windows
	h, err := hal.NewHost(hc)
	if err != nil {
		return err
	}
	defer h.Close()

	accepted := false
	err = hal.RunHeadless(ctx, h, func(ctx context.Context) error {
		if err := app.RunContext(ctx, h, ac); err != nil {
			return err
		}
		accepted = true
		return nil
	}, hal.HeadlessConfig{Duration: length + ac.RejectHold + ac.AcceptHold + time.Second})
	if err != nil {
		return err
	}
	if !accepted {
		return errors.New("session not accepted")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "accepted")
	return nil
}

func runPeriph(ctx context.Context, cfg hostcfg.Config, ac app.Config) error {
	p, err := hal.NewPeriph(hal.PeriphConfig{
		Buttons: []hal.PeriphButton{
			{Name: ac.Pins.Left, Pin: cfg.RPi.Left},
			{Name: ac.Pins.Right, Pin: cfg.RPi.Right},
			{Name: ac.Pins.Select, Pin: cfg.RPi.Select},
		},
		I2CBus:    cfg.RPi.I2CBus,
		Width:     cfg.UI.Width,
		Height:    cfg.UI.Height,
		FlashPath: cfg.Flash,
	})
	if err != nil {
		return err
	}
	defer p.Close()

	if err := app.RunContext(ctx, p, ac); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	// Idle on the result screen until interrupted.
	<-ctx.Done()
	return nil
}
