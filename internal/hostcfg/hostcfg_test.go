//go:build !tinygo

package hostcfg

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"pinlock/firmware/pinentry"
)

func isolate(t *testing.T) {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("HOME", tmp)
	t.Chdir(tmp)
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	c, err := Load(&cobra.Command{}, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Board != "host" || c.Storage.Namespace != "storage" || c.Storage.Key != "pin_code" {
		t.Fatalf("config=%+v", c)
	}
	if c.Input.Poll != 50*time.Millisecond || c.Input.CommitCooldown != 300*time.Millisecond {
		t.Fatalf("input=%+v", c.Input)
	}

	a, err := c.App()
	if err != nil {
		t.Fatalf("App: %v", err)
	}
	if a.Variant != pinentry.DigitsPlusDelete || !a.Input.GlobalLock {
		t.Fatalf("app config=%+v", a)
	}
}

func TestWriteThenLoad(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "pinlock.yaml")

	c := Default()
	c.Variant = "digits"
	c.UI.RejectHold = 500 * time.Millisecond
	c.RPi.I2CBus = "1"
	if err := Write(path, c); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Load(&cobra.Command{}, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Variant != "digits" || got.UI.RejectHold != 500*time.Millisecond || got.RPi.I2CBus != "1" {
		t.Fatalf("got=%+v", got)
	}
	a, err := got.App()
	if err != nil {
		t.Fatalf("App: %v", err)
	}
	if a.Variant != pinentry.DigitsOnly || a.RejectHold != 500*time.Millisecond {
		t.Fatalf("app=%+v", a)
	}
}

func TestEnvAndFlagsOverride(t *testing.T) {
	isolate(t)
	t.Setenv("PINLOCK_STORAGE_KEY", "other_pin")

	cmd := &cobra.Command{}
	cmd.Flags().String("board", "host", "")
	if err := cmd.Flags().Set("board", "rpi"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	c, err := Load(cmd, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Storage.Key != "other_pin" {
		t.Fatalf("storage.key=%q", c.Storage.Key)
	}
	if c.Board != "rpi" {
		t.Fatalf("board=%q", c.Board)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	isolate(t)
	if _, err := Load(&cobra.Command{}, filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestAppRejectsUnknownVariant(t *testing.T) {
	c := Default()
	c.Variant = "hex"
	if _, err := c.App(); err == nil {
		t.Fatal("expected error")
	}
}
