//go:build !tinygo

// Package hostcfg loads the host binary's configuration: defaults, then
// pinlock.yaml, then PINLOCK_* environment variables, then flags.
package hostcfg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pinlock/app"
	"pinlock/firmware/input"
	"pinlock/firmware/pinentry"
)

const (
	configName = "pinlock"
	envPrefix  = "pinlock"
)

type Config struct {
	// Board is "host" (desktop simulator) or "rpi" (periph.io).
	Board   string `mapstructure:"board" yaml:"board"`
	Flash   string `mapstructure:"flash" yaml:"flash"`
	Variant string `mapstructure:"variant" yaml:"variant"`

	Input   InputConfig   `mapstructure:"input" yaml:"input"`
	Pins    PinConfig     `mapstructure:"pins" yaml:"pins"`
	RPi     RPiConfig     `mapstructure:"rpi" yaml:"rpi"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	UI      UIConfig      `mapstructure:"ui" yaml:"ui"`
}

type InputConfig struct {
	Poll               time.Duration `mapstructure:"poll" yaml:"poll"`
	NavigationCooldown time.Duration `mapstructure:"navigation_cooldown" yaml:"navigation_cooldown"`
	CommitCooldown     time.Duration `mapstructure:"commit_cooldown" yaml:"commit_cooldown"`
	GlobalLock         bool          `mapstructure:"global_lock" yaml:"global_lock"`
}

// PinConfig names the firmware's button lines.
type PinConfig struct {
	Left   string `mapstructure:"left" yaml:"left"`
	Right  string `mapstructure:"right" yaml:"right"`
	Select string `mapstructure:"select" yaml:"select"`
}

// RPiConfig maps the button lines to periph.io GPIO names.
type RPiConfig struct {
	I2CBus string `mapstructure:"i2c_bus" yaml:"i2c_bus"`
	Left   string `mapstructure:"left" yaml:"left"`
	Right  string `mapstructure:"right" yaml:"right"`
	Select string `mapstructure:"select" yaml:"select"`
}

type StorageConfig struct {
	Namespace       string `mapstructure:"namespace" yaml:"namespace"`
	Key             string `mapstructure:"key" yaml:"key"`
	RefuseOverwrite bool   `mapstructure:"refuse_overwrite" yaml:"refuse_overwrite"`
}

type UIConfig struct {
	Width      int           `mapstructure:"width" yaml:"width"`
	Height     int           `mapstructure:"height" yaml:"height"`
	AcceptHold time.Duration `mapstructure:"accept_hold" yaml:"accept_hold"`
	RejectHold time.Duration `mapstructure:"reject_hold" yaml:"reject_hold"`
}

// Default mirrors app.DefaultConfig plus the host-only settings.
func Default() Config {
	a := app.DefaultConfig()
	return Config{
		Board:   "host",
		Flash:   "pinlock-nvs.bin",
		Variant: a.Variant.String(),
		Input: InputConfig{
			Poll:               a.Input.Poll,
			NavigationCooldown: a.Input.NavigationCooldown,
			CommitCooldown:     a.Input.CommitCooldown,
			GlobalLock:         a.Input.GlobalLock,
		},
		Pins: PinConfig{Left: a.Pins.Left, Right: a.Pins.Right, Select: a.Pins.Select},
		RPi:  RPiConfig{Left: "GPIO17", Right: "GPIO4", Select: "GPIO16"},
		Storage: StorageConfig{
			Namespace:       a.Namespace,
			Key:             a.Key,
			RefuseOverwrite: a.RefuseOverwrite,
		},
		UI: UIConfig{
			Width:      128,
			Height:     32,
			AcceptHold: a.AcceptHold,
			RejectHold: a.RejectHold,
		},
	}
}

// Defaults flattens Default into viper keys.
func Defaults() map[string]any {
	d := Default()
	return map[string]any{
		"board":                     d.Board,
		"flash":                     d.Flash,
		"variant":                   d.Variant,
		"input.poll":                d.Input.Poll,
		"input.navigation_cooldown": d.Input.NavigationCooldown,
		"input.commit_cooldown":     d.Input.CommitCooldown,
		"input.global_lock":         d.Input.GlobalLock,
		"pins.left":                 d.Pins.Left,
		"pins.right":                d.Pins.Right,
		"pins.select":               d.Pins.Select,
		"rpi.i2c_bus":               d.RPi.I2CBus,
		"rpi.left":                  d.RPi.Left,
		"rpi.right":                 d.RPi.Right,
		"rpi.select":                d.RPi.Select,
		"storage.namespace":         d.Storage.Namespace,
		"storage.key":               d.Storage.Key,
		"storage.refuse_overwrite":  d.Storage.RefuseOverwrite,
		"ui.width":                  d.UI.Width,
		"ui.height":                 d.UI.Height,
		"ui.accept_hold":            d.UI.AcceptHold,
		"ui.reject_hold":            d.UI.RejectHold,
	}
}

// DefaultPath is pinlock.yaml in the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("could not get user config directory: %w", err)
	}
	return filepath.Join(dir, "pinlock", configName+".yaml"), nil
}

// Load reads the layered configuration. A missing config file is not an
// error; path, when set, must exist.
func Load(cmd *cobra.Command, path string) (Config, error) {
	var c Config
	v := viper.New()

	for key, value := range Defaults() {
		v.SetDefault(key, value)
	}

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return c, fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(path)
	}
	if p, err := DefaultPath(); err == nil {
		v.AddConfigPath(filepath.Dir(p))
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("parse config: %w", err)
	}
	return c, nil
}

// Write stores c as YAML at path, creating the directory.
func Write(path string, c Config) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}

// App converts the host configuration into the firmware's.
func (c Config) App() (app.Config, error) {
	a := app.DefaultConfig()
	v, ok := pinentry.ParseVariant(c.Variant)
	if !ok {
		return a, fmt.Errorf("unknown variant %q (want digits or digits+delete)", c.Variant)
	}
	a.Variant = v
	a.Input = input.Config{
		Poll:               c.Input.Poll,
		NavigationCooldown: c.Input.NavigationCooldown,
		CommitCooldown:     c.Input.CommitCooldown,
		GlobalLock:         c.Input.GlobalLock,
	}
	a.Pins = input.PinNames{Left: c.Pins.Left, Right: c.Pins.Right, Select: c.Pins.Select}
	a.Namespace = c.Storage.Namespace
	a.Key = c.Storage.Key
	a.RefuseOverwrite = c.Storage.RefuseOverwrite
	a.AcceptHold = c.UI.AcceptHold
	a.RejectHold = c.UI.RejectHold
	return a, nil
}
