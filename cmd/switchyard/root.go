package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "switchyard",
	Short: "Event-driven component runtime",
	Long: `Switchyard runs a tree of components that exchange events through a
single root queue. Components are declared in Lua scripts; a file watcher
and an event debugger can be enabled from the configuration.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (.toml, .yaml or .yml)")
}
