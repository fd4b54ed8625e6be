//go:build !tinygo

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"pinlock/firmware/credential"
	"pinlock/firmware/nvs"
	"pinlock/hal"
	"pinlock/internal/hostcfg"
)

func newNVSCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nvs",
		Short: "Inspect or provision the NVS flash image",
	}
	cmd.PersistentFlags().String("flash", "pinlock-nvs.bin", "NVS flash image path")

	show := &cobra.Command{
		Use:   "show",
		Short: "List stored keys and whether a PIN is set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(part *nvs.Partition, store *credential.Store) error {
				for _, k := range part.Keys() {
					fmt.Fprintf(cmd.OutOrStdout(), "%s/%s\t%d bytes\n", k.Namespace, k.Key, k.Size)
				}
				reveal, _ := cmd.Flags().GetBool("reveal")
				pin, err := store.Load()
				switch {
				case err != nil:
					fmt.Fprintf(cmd.OutOrStdout(), "pin: not set (%v)\n", err)
				case reveal:
					fmt.Fprintf(cmd.OutOrStdout(), "pin: %s\n", pin)
				default:
					fmt.Fprintln(cmd.OutOrStdout(), "pin: set")
				}
				return nil
			})
		},
	}
	show.Flags().Bool("reveal", false, "print the stored digits")

	setCmd := &cobra.Command{
		Use:   "set <pin>",
		Short: "Store a PIN, replacing any existing one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pin, err := credential.ParsePIN(args[0])
			if err != nil {
				return err
			}
			return withStore(cmd, func(_ *nvs.Partition, store *credential.Store) error {
				if err := store.Save(pin); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "pin stored")
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored PIN so the device enrolls on next boot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(_ *nvs.Partition, store *credential.Store) error {
				if err := store.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "pin cleared")
				return nil
			})
		},
	}

	format := &cobra.Command{
		Use:   "format",
		Short: "Erase the whole NVS image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			f, err := hal.OpenFileFlash(cfg.Flash, hal.FileFlashDefaultSizeBytes)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := nvs.Erase(f); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "nvs erased")
			return nil
		},
	}

	cmd.AddCommand(show, setCmd, clearCmd, format)
	return cmd
}

// withStore opens the configured flash image and mounts it. Set and clear
// write the image back; the store always overwrites.
func withStore(cmd *cobra.Command, fn func(part *nvs.Partition, store *credential.Store) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Flash == "" {
		return errors.New("no flash image configured")
	}
	f, err := hal.OpenFileFlash(cfg.Flash, hal.FileFlashDefaultSizeBytes)
	if err != nil {
		return err
	}
	defer f.Close()

	part, err := nvs.Init(f, nil)
	if err != nil {
		return fmt.Errorf("mount %s: %w (run \"pinlock nvs format\" to reset it)", cfg.Flash, err)
	}
	return fn(part, credential.NewStore(part, storeOptions(cfg)))
}

func storeOptions(cfg hostcfg.Config) credential.Options {
	return credential.Options{
		Namespace: cfg.Storage.Namespace,
		Key:       cfg.Storage.Key,
	}
}
