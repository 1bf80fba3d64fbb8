package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/JonMunkholm/labreport/internal/core"
	"github.com/JonMunkholm/labreport/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportOutput string
	exportAll    bool
	exportRows   []int
)

var exportCmd = &cobra.Command{
	Use:   "export FILE",
	Short: "Build the colour-coded report workbook",
	Long: `Build the report workbook for an export. Select rows with --row (repeatable)
or every row with --all. Selected rows keep their default parameters.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportOutput == "" {
			return errors.New("an output file is required (-o report.xlsx)")
		}
		ds, _, err := readDataset(args[0])
		if err != nil {
			return err
		}

		sel, err := selectRows(ds, exportAll, exportRows)
		if err != nil {
			return err
		}

		table := core.DiagnoseDataset(ds, columnNames())
		comments := core.SeedComments(nil, table)
		report := core.BuildReport(ds, sel, comments)
		if len(report.Rows) == 0 {
			return errors.New("no rows selected, use --all or --row")
		}

		f, err := os.Create(exportOutput)
		if err != nil {
			return err
		}
		if err := export.WriteXLSX(f, core.BuildWorkbook(report, table, comments)); err != nil {
			f.Close()
			return fmt.Errorf("write workbook: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}

		slog.Info("report written", "file", exportOutput, "rows", len(report.Rows), "columns", len(report.Columns))
		return nil
	},
}

// selectRows selects every record or the given record ids.
func selectRows(ds *core.ParsedDataset, all bool, ids []int) (core.SelectionState, error) {
	sel := core.NewSelection(ds)
	if all {
		return sel.ToggleAllRows(ds), nil
	}

	known := make(map[int]bool, len(ds.Data))
	for _, rec := range ds.Data {
		known[rec.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return sel, fmt.Errorf("row %d: %w", id, core.ErrUnknownRow)
		}
		if !sel.IsSelected(id) {
			sel = sel.ToggleRow(id)
		}
	}
	return sel, nil
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output workbook")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "select every row")
	exportCmd.Flags().IntSliceVar(&exportRows, "row", nil, "record id to select")
	rootCmd.AddCommand(exportCmd)
}
