package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	queryString string
	queryFormat string
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run SQL against a database",
	Long: `Execute the requested QUERY against a database and print the result.
The workspace database is used unless --db names another one.

Examples:
  bichat query --sql "SELECT * FROM sales LIMIT 5"
  bichat query --sql "SELECT COUNT(*) AS total FROM sales" --format json
  bichat query --db analytics --sql "SELECT * FROM orders" --format csv`,
	Run: func(cmd *cobra.Command, args []string) {
		if queryString == "" {
			HandleError(fmt.Errorf("query is required"), "Missing query parameter")
		}

		a := mustSetup(cmd)
		defer a.close()

		ds, err := a.store.Execute(a.ctx(), database, queryString)
		if err != nil {
			HandleError(err, "Failed to execute query")
		}
		if err := renderDataset(os.Stdout, ds, queryFormat); err != nil {
			HandleError(err, "Failed to render result")
		}
	},
}

func init() {
	queryCmd.Flags().StringVarP(&queryString, "sql", "q", "", "SQL query to execute (required)")
	queryCmd.Flags().StringVarP(&queryFormat, "format", "f", formatTable, "Output format: table, json, csv, md")
	_ = queryCmd.MarkFlagRequired("sql")
	rootCmd.AddCommand(queryCmd)
}
