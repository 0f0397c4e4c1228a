package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/absfs/strongbox"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	keyFormat    = "format"
	keyExtension = "extension"
)

// settingsStore persists strongbox.Settings as JSON
type settingsStore struct {
	v    *viper.Viper
	path string
}

func defaultSettingsPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locate config dir: %w", err)
	}
	return filepath.Join(dir, "strongbox", "settings.json"), nil
}

// loadSettings reads path once. A missing file gives the defaults;
// STRONGBOX_FORMAT and STRONGBOX_EXTENSION override the file.
func loadSettings(path string) (*settingsStore, error) {
	defaults := strongbox.DefaultSettings()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault(keyFormat, defaults.Format.String())
	v.SetDefault(keyExtension, defaults.Extension)
	v.SetEnvPrefix("STRONGBOX")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
	}
	return &settingsStore{v: v, path: path}, nil
}

func (s *settingsStore) Path() string {
	return s.path
}

// Settings returns the current settings with the extension normalized
func (s *settingsStore) Settings() (strongbox.Settings, error) {
	format, err := strongbox.ParseFilenameFormat(s.v.GetString(keyFormat))
	if err != nil {
		return strongbox.Settings{}, fmt.Errorf("settings %s: %w", s.path, err)
	}
	return strongbox.Settings{
		Format:    format,
		Extension: s.v.GetString(keyExtension),
	}.Normalize(), nil
}

// Save writes settings to the store's file, creating its directory
func (s *settingsStore) Save(settings strongbox.Settings) error {
	settings = settings.Normalize()
	s.v.Set(keyFormat, settings.Format.String())
	s.v.Set(keyExtension, settings.Extension)

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings %s: %w", s.path, err)
	}
	return nil
}

func newSettingsCmd(a *app) *cobra.Command {
	var format, ext string

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the saved filename settings",
		Long: `Without flags, settings prints the saved filename format and extension.
With --format or --ext it updates them and saves the settings file.

Formats:
  full-encrypt    name the file after a hash of its name and the password
  keep-original   keep the original filename
  new-extension   hashed name plus the configured extension`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := a.settings.Settings()
			if err != nil {
				return err
			}

			changed := false
			if cmd.Flags().Changed("format") {
				if settings.Format, err = strongbox.ParseFilenameFormat(format); err != nil {
					return err
				}
				changed = true
			}
			if cmd.Flags().Changed("ext") {
				settings.Extension = ext
				changed = true
			}

			if changed {
				if err := a.settings.Save(settings); err != nil {
					return err
				}
				settings = settings.Normalize()
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "format: %s\n", settings.Format)
			fmt.Fprintf(out, "extension: %s\n", settings.Extension)
			if changed {
				fmt.Fprintf(out, "saved to %s\n", a.settings.Path())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "filename format (full-encrypt, keep-original, new-extension)")
	cmd.Flags().StringVar(&ext, "ext", "", "extension used by new-extension")
	return cmd
}
