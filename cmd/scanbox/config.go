package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/scanbox/internal/api"
	"github.com/jackzampolin/scanbox/internal/config"
	"github.com/jackzampolin/scanbox/internal/home"
	"github.com/jackzampolin/scanbox/internal/svcctx"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and initialize configuration",
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write the default config file to the home directory",
	Annotations: map[string]string{skipServices: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		if h.ConfigExists() && !configForce {
			return fmt.Errorf("config already exists at %s (use --force to overwrite)", h.ConfigPath())
		}
		if err := config.WriteDefault(h.ConfigPath()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", h.ConfigPath())
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return api.Output(svcctx.ConfigFrom(cmd.Context()).Get())
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the effective value of one key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := svcctx.ConfigFrom(cmd.Context()).GetValue(args[0])
		if err != nil {
			return err
		}
		return api.Output(map[string]any{args[0]: v})
	},
}

var configDefaultsCmd = &cobra.Command{
	Use:         "defaults",
	Short:       "List every key with its default and description",
	Annotations: map[string]string{skipServices: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return api.Output(config.DefaultEntries())
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configDefaultsCmd)
}
