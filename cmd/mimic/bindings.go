package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var bindingsCmd = &cobra.Command{
	Use:   "bindings",
	Short: "List the parameters the drawing is bound to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		controller := cfg.Controller(logger)
		if err := controller.Initialise(cmd.Context()); err != nil {
			return err
		}
		defer controller.Dispose()

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "BINDING\tELEMENTS\tRULES")
		for _, b := range controller.Bindings() {
			procs := controller.ElementProcessors(b)
			rules := 0
			for _, p := range procs {
				rules += p.Rules()
			}
			fmt.Fprintf(w, "%s\t%d\t%d\n", b, len(procs), rules)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(bindingsCmd)
}
