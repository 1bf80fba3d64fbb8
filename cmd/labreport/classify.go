package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/JonMunkholm/labreport/internal/core"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify NAME...",
	Short: "Show the device group of headers or parameters",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPARAMETER\tGROUP")
		for _, name := range args {
			fmt.Fprintf(w, "%s\t%s\t%s\n", name, core.BaseName(name), core.Classify(name))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
