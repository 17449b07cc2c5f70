package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/scanbox/internal/api"
	"github.com/jackzampolin/scanbox/internal/config"
	"github.com/jackzampolin/scanbox/internal/home"
	"github.com/jackzampolin/scanbox/internal/svcctx"
	"github.com/jackzampolin/scanbox/version"
)

// skipServices marks commands that run without loading configuration.
const skipServices = "scanbox/skip-services"

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "scanbox",
	Short: "Barcode scan validation with placement feedback",
	Long: `Scanbox runs barcode scan sessions against a target box.

A session consumes detection frames from a capture source, evaluates the
first code of each frame (decoded, accepted length, inside the box), shows
feedback as a border color and status line, and commits once a valid code
has stayed inside the box for the confirmation delay.

Capture sources:
  - watch:  JSON frame files dropped into an inbox directory
  - replay: a YAML script of timed frames`,
	Version:       version.GitRelease,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.scanbox/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "scanbox home directory (default: ~/.scanbox)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level override: debug, info, warn, error",
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		format, err := api.ParseOutputFormat(outputFormat)
		if err != nil {
			return err
		}
		api.SetOutputFormat(format)

		if cmd.Annotations[skipServices] == "true" {
			return nil
		}
		svcs, err := loadServices(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		slog.SetDefault(svcs.Logger)
		cmd.SetContext(svcctx.WithServices(cmd.Context(), svcs))
		return nil
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(configCmd)
}

// loadServices resolves the home directory and configuration and builds the
// logger. Logs go to w so stdout carries only reports.
func loadServices(w io.Writer) (*svcctx.Services, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}

	file := cfgFile
	if file == "" && h.ConfigExists() {
		file = h.ConfigPath()
	}
	mgr, err := config.NewManager(file)
	if err != nil {
		return nil, err
	}

	logCfg := mgr.Get().Log
	if logLevel != "" {
		logCfg.Level = logLevel
	}
	logger, err := newLogger(w, logCfg)
	if err != nil {
		return nil, err
	}

	return &svcctx.Services{Config: mgr, Logger: logger, Home: h}, nil
}

// newLogger builds the process logger from the log config section.
func newLogger(w io.Writer, cfg config.LogCfg) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
