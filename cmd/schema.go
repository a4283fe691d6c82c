package cmd

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"bichat/internal/store"
)

// SchemaOutput represents the schema information for a table
type SchemaOutput struct {
	TableName   string         `json:"table_name"`
	Description string         `json:"description,omitempty"`
	ColumnCount int            `json:"column_count"`
	Columns     []store.Column `json:"columns"`
}

var schemaJSON bool

var schemaCmd = &cobra.Command{
	Use:   "schema [table...]",
	Short: "Show table schemas",
	Long: `Show the columns of the named tables, or of every table in the database.

Examples:
  bichat schema
  bichat schema sales --json
  bichat schema --db analytics orders`,
	Run: func(cmd *cobra.Command, args []string) {
		a := mustSetup(cmd)
		defer a.close()
		ctx := a.ctx()

		tables := args
		if len(tables) == 0 {
			var err error
			if tables, err = a.store.ListTables(ctx, database); err != nil {
				HandleError(err, "Failed to list tables")
			}
		}
		descriptions, err := a.store.Descriptions(ctx, database)
		if err != nil {
			a.logger.Warn("Failed to load descriptions", "error", err)
		}

		schemas := make([]SchemaOutput, 0, len(tables))
		for _, name := range tables {
			cols, err := a.store.TableSchema(ctx, database, name)
			if err != nil {
				HandleError(err, fmt.Sprintf("Failed to get schema for table %s", name))
			}
			schemas = append(schemas, SchemaOutput{
				TableName:   name,
				Description: descriptions[name],
				ColumnCount: len(cols),
				Columns:     cols,
			})
		}

		if schemaJSON {
			if err := renderJSON(os.Stdout, schemas); err != nil {
				HandleError(err, "Failed to encode JSON")
			}
			return
		}
		for _, s := range schemas {
			fmt.Printf("%s (%d columns)\n", s.TableName, s.ColumnCount)
			if s.Description != "" {
				fmt.Println(s.Description)
			}
			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Column", "Type", "Nullable", "Key"})
			for _, c := range s.Columns {
				nullable, key := "YES", ""
				if c.NotNull {
					nullable = "NO"
				}
				if c.PrimaryKey {
					key = "PK"
				}
				t.AppendRow(table.Row{c.Name, c.Type, nullable, key})
			}
			t.Render()
			fmt.Println()
		}
	},
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaJSON, "json", false, "Print JSON instead of tables")
	rootCmd.AddCommand(schemaCmd)
}
