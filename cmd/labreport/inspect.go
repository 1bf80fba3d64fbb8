package main

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/labreport/internal/core"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE",
	Short: "Show the result headers of an export grouped by device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, stats, err := readDataset(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		repeats := 0
		for _, rec := range ds.Data {
			if rec.IsRepeat {
				repeats++
			}
		}
		fmt.Fprintf(out, "File:     %s\n", ds.FileName)
		fmt.Fprintf(out, "Records:  %d (%d repeats, %d rows skipped)\n", stats.DataRows, repeats, stats.SkippedRows)
		fmt.Fprintf(out, "Headers:  %d\n", len(ds.ResultHeaders))

		for _, g := range core.GroupParams(ds.ResultHeaders) {
			fmt.Fprintf(out, "\n%s (%d)\n", g.Group, len(g.Params))
			fmt.Fprintf(out, "  %s\n", strings.Join(g.Params, ", "))
		}

		if missing := core.NewColumnResolver(ds.ResultHeaders, columnNames()).MissingColumns(); len(missing) > 0 {
			fmt.Fprintf(out, "\nMissing ion-balance columns: %s\n", strings.Join(missing, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
