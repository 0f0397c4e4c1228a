package main

import (
	"github.com/absfs/strongbox"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const version = "0.1.0-dev"

// app holds global flags and state shared by all commands
type app struct {
	configPath    string
	verbose       bool
	cipher        string
	passwordStdin bool

	settings *settingsStore
	logger   *logrus.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "strongbox",
		Short: "Encrypt and decrypt files in place with a password",
		Long: `strongbox encrypts files and directory trees in place. Each file becomes a
self-contained container holding the encrypted content and the encrypted
original filename; decrypting restores both.

Commands:
  encrypt     Encrypt files or directories
  decrypt     Decrypt files or directories
  probe       Show the original name stored in an encrypted file
  settings    Show or change the saved filename settings`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "settings file (default <user config dir>/strongbox/settings.json)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")
	flags.StringVar(&a.cipher, "cipher", strongbox.CipherAES256GCM.String(), "cipher suite (aes-256-gcm, chacha20-poly1305)")
	flags.BoolVar(&a.passwordStdin, "password-stdin", false, "read the password from the first line of stdin")

	root.AddCommand(
		newEncryptCmd(a),
		newDecryptCmd(a),
		newProbeCmd(a),
		newSettingsCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	a.logger = logrus.New()
	a.logger.SetOutput(cmd.ErrOrStderr())
	a.logger.SetLevel(logrus.WarnLevel)
	if a.verbose {
		a.logger.SetLevel(logrus.DebugLevel)
	}

	path := a.configPath
	if path == "" {
		var err error
		if path, err = defaultSettingsPath(); err != nil {
			return err
		}
	}

	store, err := loadSettings(path)
	if err != nil {
		return err
	}
	a.settings = store
	a.logger.WithField("path", store.Path()).Debug("settings loaded")
	return nil
}

func (a *app) config() (*strongbox.Config, error) {
	suite, err := strongbox.ParseCipherSuite(a.cipher)
	if err != nil {
		return nil, err
	}
	return &strongbox.Config{Cipher: suite, Logger: a.logger}, nil
}
