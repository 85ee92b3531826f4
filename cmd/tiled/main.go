// Package main provides the tiled command line tool.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/born-ml/tiled/internal/runner"
	"github.com/born-ml/tiled/internal/transform"
)

const version = "v0.1.0-dev"

const (
	keyConfig    = "config"
	keyLogLevel  = "log-level"
	keyLogFormat = "log-format"
)

func main() {
	if err := newRootCommand(os.Stdout, os.Stderr).Execute(); err != nil {
		os.Exit(1)
	}
}

// app carries the state shared by all subcommands.
type app struct {
	v        *viper.Viper
	registry *transform.Registry
	stderr   io.Writer
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	a := &app{
		v:        viper.New(),
		registry: transform.NewRegistry(),
		stderr:   stderr,
	}
	runner.SetDefaults(a.v)
	a.v.SetEnvPrefix("TILED")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "tiled",
		Short:         "Run array transforms tile by tile",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			return a.readConfig()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.String(keyConfig, "", "config file (yaml, json or toml)")
	pf.String(keyLogLevel, "info", "log level: debug, info, warn or error")
	pf.String(keyLogFormat, "text", "log format: text or json")

	root.AddCommand(
		a.predictCommand(),
		a.planCommand(),
		a.transformsCommand(),
		versionCommand(),
	)
	return root
}

func (a *app) readConfig() error {
	path := a.v.GetString(keyConfig)
	if path == "" {
		return nil
	}
	a.v.SetConfigFile(path)
	if err := a.v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	return nil
}

func (a *app) logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.v.GetString(keyLogLevel))); err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	opts := &slog.HandlerOptions{Level: level}
	switch format := a.v.GetString(keyLogFormat); format {
	case "text":
		return slog.New(slog.NewTextHandler(a.stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(a.stderr, opts)), nil
	default:
		return nil, errors.Errorf("unknown log format %q", format)
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tiled %s\n", version)
		},
	}
}
