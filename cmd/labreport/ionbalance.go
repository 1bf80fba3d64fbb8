package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JonMunkholm/labreport/internal/core"
	"github.com/JonMunkholm/labreport/internal/export"
	"github.com/spf13/cobra"
)

var ionOutput string

var ionbalanceCmd = &cobra.Command{
	Use:   "ionbalance FILE",
	Short: "Write the ion-balance table of an export as CSV",
	Long: `Write the ion-balance table of an export as semicolon separated CSV.
Without -o the table goes to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, _, err := readDataset(args[0])
		if err != nil {
			return err
		}

		table := core.DiagnoseDataset(ds, columnNames())
		if len(table.MissingColumns) > 0 {
			slog.Warn("ion-balance columns missing", "columns", table.MissingColumns)
		}
		lines := core.DiagnosticLines(table, core.SeedComments(nil, table))

		var w io.Writer = cmd.OutOrStdout()
		if ionOutput != "" {
			f, err := os.Create(ionOutput)
			if err != nil {
				return err
			}
			defer f.Close()
			w = f
		}
		if err := export.WriteDiagnosticCSV(w, lines); err != nil {
			return fmt.Errorf("write ion balance: %w", err)
		}
		if ionOutput != "" {
			slog.Info("ion balance written", "file", ionOutput, "rows", len(lines))
		}
		return nil
	},
}

func init() {
	ionbalanceCmd.Flags().StringVarP(&ionOutput, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(ionbalanceCmd)
}
