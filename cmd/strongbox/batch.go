package main

import (
	"context"
	"fmt"

	"github.com/absfs/strongbox"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type batchFunc func(ctx context.Context, r *strongbox.Runner, path string) (*strongbox.Report, error)

func newEncryptCmd(a *app) *cobra.Command {
	var format, ext string

	cmd := &cobra.Command{
		Use:   "encrypt <path>...",
		Short: "Encrypt files or directories in place",
		Long: `Encrypt each path in place. Directories are walked recursively; files whose
name starts with a dot are skipped. The output name follows the saved
settings unless --format or --ext is given for this run.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := a.settings.Settings()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("format") {
				if settings.Format, err = strongbox.ParseFilenameFormat(format); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("ext") {
				settings.Extension = ext
			}

			password, err := a.readPassword(cmd, true)
			if err != nil {
				return err
			}
			defer strongbox.Zero(password)

			return a.runBatch(cmd, args, func(ctx context.Context, r *strongbox.Runner, path string) (*strongbox.Report, error) {
				return r.Encrypt(ctx, path, password, settings)
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "filename format for this run (full-encrypt, keep-original, new-extension)")
	cmd.Flags().StringVar(&ext, "ext", "", "extension for this run when the format is new-extension")
	return cmd
}

func newDecryptCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <path>...",
		Short: "Decrypt files or directories in place",
		Long: `Decrypt each path in place, restoring the original filenames. An existing
file with the same name is never overwritten; the output gets a " (n)"
suffix instead.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := a.readPassword(cmd, false)
			if err != nil {
				return err
			}
			defer strongbox.Zero(password)

			return a.runBatch(cmd, args, func(ctx context.Context, r *strongbox.Runner, path string) (*strongbox.Report, error) {
				return r.Decrypt(ctx, path, password)
			})
		},
	}
}

// runBatch runs fn for each path in order and prints one summary per path.
// Any failed file makes the command fail after all paths are processed.
func (a *app) runBatch(cmd *cobra.Command, paths []string, fn batchFunc) error {
	config, err := a.config()
	if err != nil {
		return err
	}

	runner, err := strongbox.NewBatch(config, strongbox.WithProgress(func(p strongbox.Progress) {
		if a.verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "[%5.1f%%] %s\n", p.Percent, p.CurrentFile)
		}
	}))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var processed, failed, warnings int

	for _, path := range paths {
		report, err := fn(cmd.Context(), runner, path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		fmt.Fprintf(out, "%s: %s\n", path, report.Message)
		for _, f := range report.Failures {
			fmt.Fprintf(out, "  failed: %s (%s)\n", f.File, f.Kind)
			a.logger.WithFields(logrus.Fields{"file": f.File, "error": f.Err}).Debug("failure detail")
		}
		for _, w := range report.Warnings {
			fmt.Fprintf(out, "  warning: %s is in use; data saved at %s\n", w.Path, w.SafePath)
		}

		processed += report.Processed
		failed += report.Failed
		warnings += len(report.Warnings)
	}

	if len(paths) > 1 {
		fmt.Fprintf(out, "total: %d processed, %d failed, %d warning(s)\n", processed, failed, warnings)
	}
	if failed > 0 {
		return fmt.Errorf("%d file(s) failed", failed)
	}
	return nil
}
