package main

import (
	"context"
	"encoding/json"
	"io"

	"addrstore/config"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configDir   string
	env         string
	metricsFile string

	// logWriter overrides the configured log stream, used by tests.
	logWriter io.Writer
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "addressctl",
		Short: "Manage the address store",
		Long: `addressctl stores postal addresses with a unique zip code index and
secondary street and alias indexes.

The configuration is read from <config-dir>/<env>.yaml and overlaid with
environment variables such as STORAGE_DRIVER or ENV_LOG_LEVEL.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configDir, "config-dir", "", "directory holding the config file (default: ./config)")
	flags.StringVar(&opts.env, "env", "config", "config file name without the .yaml extension")
	flags.StringVar(&opts.metricsFile, "metrics-textfile", "", "write index metrics to this file after the command")

	cmd.AddCommand(
		newListCmd(opts),
		newGetCmd(opts),
		newFindCmd(opts),
		newCountCmd(opts),
		newCreateCmd(opts),
		newUpdateCmd(opts),
		newDeleteCmd(opts),
		newImportCmd(opts),
		newExportCmd(opts),
		newBackupCmd(opts),
		newRestoreCmd(opts),
		newSnapshotsCmd(opts),
	)

	return cmd
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configDir == "" {
		return config.Load(o.env, "config", "../config", "../../config")
	}

	return config.Load(o.env, o.configDir)
}

// run loads the configuration and executes fn inside a started application.
func (o *rootOptions) run(cmd *cobra.Command, fn func(context.Context, services) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	if err := runApp(cmd.Context(), cfg, o.logWriter, fn); err != nil {
		return err
	}

	if o.metricsFile != "" {
		return writeMetrics(o.metricsFile)
	}

	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return errors.Wrap(enc.Encode(v), "failed to write output")
}
