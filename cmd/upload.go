package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"bichat/internal/ingest"
)

var (
	uploadTable    string
	uploadDropCols []string
	uploadDryRun   bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload [file]",
	Short: "Load a CSV or Excel file into a table",
	Long: `Load a .csv, .xlsx or .xls file into a table, replacing any existing table
of the same name. Column names are cleaned and empty rows dropped.

Examples:
  bichat upload sales.csv
  bichat upload "Q1 Report.xlsx" --table q1_report --drop notes,comments
  bichat upload sales.csv --dry-run`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]
		f, err := os.Open(path)
		if err != nil {
			HandleError(err, "Failed to open file")
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			HandleError(err, "Failed to stat file")
		}

		a := mustSetup(cmd)
		defer a.close()

		ds, err := ingest.Read(filepath.Base(path), f)
		if err != nil {
			HandleError(err, "Failed to read file")
		}
		fmt.Printf("Read %s rows from %s (%s)\n", humanize.Comma(int64(ds.Len())), filepath.Base(path), humanize.Bytes(uint64(info.Size())))

		if nulls := ingest.NullColumns(ds); len(nulls) > 0 {
			fmt.Printf("Columns without values: %v\n", nulls)
		}
		if len(uploadDropCols) > 0 {
			if ds, err = ingest.Preprocess(ds, uploadDropCols); err != nil {
				HandleError(err, "Failed to preprocess file")
			}
		}
		cleaned, err := ingest.Prepare(ds)
		if err != nil {
			HandleError(err, "No valid data remaining after cleaning")
		}

		name := uploadTable
		if name == "" {
			name = ingest.TableName(filepath.Base(path))
		}
		if uploadDryRun {
			fmt.Printf("Would load %s rows into %s\n", humanize.Comma(int64(cleaned.Len())), name)
			if err := renderDataset(os.Stdout, cleaned.Head(5), formatTable); err != nil {
				HandleError(err, "Failed to render preview")
			}
			return
		}

		res, err := a.store.Ingest(a.ctx(), database, name, cleaned)
		if err != nil {
			HandleError(err, "Failed to load file")
		}
		fmt.Printf("Loaded %s rows into %s.%s\n", humanize.Comma(int64(res.RowsInserted)), res.Database, res.Table)
		for _, c := range res.Columns {
			fmt.Printf("  %s %s\n", c, res.DataTypes[c])
		}
	},
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadTable, "table", "t", "", "Target table (default: derived from the file name)")
	uploadCmd.Flags().StringSliceVar(&uploadDropCols, "drop", nil, "Columns to drop before loading")
	uploadCmd.Flags().BoolVar(&uploadDryRun, "dry-run", false, "Show what would be loaded without writing")
	rootCmd.AddCommand(uploadCmd)
}
