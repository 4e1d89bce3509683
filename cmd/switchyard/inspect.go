package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/switchyard/internal/config"
	"github.com/dshills/switchyard/internal/inspect"
	"github.com/dshills/switchyard/internal/logging"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [script...]",
	Short: "Print the component tree and handler table",
	Long: `Assemble the configured components plus any scripts given as arguments
without running them, then print the component tree and the handlers
registered at the root.`,
	RunE: runInspect,
}

var (
	inspectTreeOnly bool
	inspectJSON     bool
)

func init() {
	inspectCmd.Flags().BoolVar(&inspectTreeOnly, "tree", false, "print only the component tree")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "print tree and handlers as JSON")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	a, err := assemble(cfg, logging.Nop(), args...)
	if err != nil {
		return err
	}
	defer a.shutdown(newLogger(cfg))

	out := cmd.OutOrStdout()
	if inspectJSON {
		doc, err := inspect.JSON(a.root)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, doc)
		return nil
	}
	fmt.Fprint(out, inspect.Tree(a.root))
	if inspectTreeOnly {
		return nil
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, inspect.Handlers(a.root))
	return nil
}
