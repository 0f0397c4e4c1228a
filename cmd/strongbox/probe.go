package main

import (
	"fmt"

	"github.com/absfs/strongbox"
	"github.com/spf13/cobra"
)

func newProbeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <file>",
		Short: "Show the original name stored in an encrypted file",
		Long: `Read only the filename block of an encrypted file and print the original
name, or "unknown" if the password is wrong or the file is not encrypted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := a.config()
			if err != nil {
				return err
			}
			engine, err := strongbox.New(config)
			if err != nil {
				return err
			}

			password, err := a.readPassword(cmd, false)
			if err != nil {
				return err
			}
			defer strongbox.Zero(password)

			name, ok := engine.ProbeOriginalName(args[0], password)
			if !ok {
				name = "unknown"
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}
