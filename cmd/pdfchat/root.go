package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pdfchat/internal/config"
	logpkg "github.com/kailas-cloud/pdfchat/internal/logger"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	env        string
	configPath string
	dotenv     string
	logLevel   string

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "pdfchat",
		Short:         "Chat with PDF documents",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.env, "env", "", "environment name selecting config/<env>.yaml (default: $ENV or local)")
	flags.StringVar(&opts.configPath, "config", "", "explicit config file, overrides --env lookup")
	flags.StringVar(&opts.dotenv, "dotenv", ".env", "dotenv file loaded before the config")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level override: debug, info, warn, error")

	cmd.AddCommand(
		newServeCmd(opts),
		newIngestCmd(opts),
		newAskCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// load reads the dotenv file and the YAML config. A missing dotenv file is fine.
func (o *rootOptions) load() error {
	if o.dotenv != "" {
		if err := godotenv.Load(o.dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", o.dotenv, err)
		}
	}
	if o.env == "" {
		o.env = config.GetEnv()
	}

	var err error
	if o.configPath != "" {
		o.cfg, err = config.LoadFile(o.configPath)
	} else {
		o.cfg, err = config.Load(o.env)
	}
	if err != nil {
		return err
	}
	if o.logLevel != "" {
		o.cfg.Logging.Level = o.logLevel
	}
	return nil
}

// serverLogger follows the environment; cliLogger keeps stdout for results.
func (o *rootOptions) serverLogger() (*zap.Logger, error) {
	return logpkg.NewLogger(o.env, o.cfg.Logging.Level)
}

func (o *rootOptions) cliLogger() (*zap.Logger, error) {
	return logpkg.NewLogger(logpkg.EnvCLI, o.logLevel)
}
