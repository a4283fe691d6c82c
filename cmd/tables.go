package cmd

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var tablesJSON bool

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List databases and their tables",
	Long: `List every known database (the workspace, database files found in the
data directory) with its tables.

Examples:
  bichat tables
  bichat tables --json`,
	Run: func(cmd *cobra.Command, args []string) {
		a := mustSetup(cmd)
		defer a.close()

		type entry struct {
			Database string   `json:"database"`
			Driver   string   `json:"driver"`
			Tables   []string `json:"tables"`
		}
		var out []entry
		for _, d := range a.store.ListDatabases() {
			tables, err := a.store.ListTables(a.ctx(), d.Name)
			if err != nil {
				a.logger.Warn("Failed to list tables", "error", err, "database", d.Name)
				continue
			}
			out = append(out, entry{Database: d.Name, Driver: d.Driver, Tables: tables})
		}

		if tablesJSON {
			if err := renderJSON(os.Stdout, out); err != nil {
				HandleError(err, "Failed to encode JSON")
			}
			return
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)
		t.AppendHeader(table.Row{"Database", "Driver", "Table"})
		for _, e := range out {
			if len(e.Tables) == 0 {
				t.AppendRow(table.Row{e.Database, e.Driver, "(no tables)"})
			}
			for _, name := range e.Tables {
				t.AppendRow(table.Row{e.Database, e.Driver, name})
			}
		}
		t.SetColumnConfigs([]table.ColumnConfig{{Number: 1, AutoMerge: true}, {Number: 2, AutoMerge: true}})
		t.Render()
	},
}

func init() {
	tablesCmd.Flags().BoolVar(&tablesJSON, "json", false, "Print JSON instead of a table")
	rootCmd.AddCommand(tablesCmd)
}
