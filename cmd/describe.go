package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	describeSet      string
	describeGenerate bool
	describeSave     bool
)

var describeCmd = &cobra.Command{
	Use:   "describe [table]",
	Short: "Show, set or generate a table description",
	Long: `Table descriptions help question routing pick the right table.

Without flags the stored description is printed. --set stores the given text.
--generate asks Claude to draft one from the schema and sample rows; add
--save to store the draft.

Examples:
  bichat describe sales
  bichat describe sales --set "Monthly sales totals per region"
  bichat describe sales --generate --save`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		table := args[0]

		a := mustSetup(cmd)
		defer a.close()
		ctx := a.ctx()

		text := strings.TrimSpace(describeSet)
		if describeGenerate {
			assistant := a.requireAssistant()
			var err error
			text, err = assistant.Describer.DescribeTable(ctx, a.store, database, table)
			if err != nil {
				HandleError(err, "Failed to generate description")
			}
			fmt.Println(text)
			if !describeSave {
				return
			}
		}

		if text != "" {
			d, err := a.store.SetDescription(ctx, database, table, text)
			if err != nil {
				HandleError(err, "Failed to save description")
			}
			fmt.Printf("Saved description for %s.%s\n", d.Database, d.Table)
			return
		}

		d, err := a.store.Description(ctx, database, table)
		if err != nil {
			HandleError(err, "Failed to load description")
		}
		if d.Description == "" {
			fmt.Printf("No description for %s.%s\n", d.Database, d.Table)
			return
		}
		fmt.Println(d.Description)
	},
}

func init() {
	describeCmd.Flags().StringVar(&describeSet, "set", "", "Store this description")
	describeCmd.Flags().BoolVar(&describeGenerate, "generate", false, "Draft a description with Claude")
	describeCmd.Flags().BoolVar(&describeSave, "save", false, "Store the generated description")
	describeCmd.MarkFlagsMutuallyExclusive("set", "generate")
	rootCmd.AddCommand(describeCmd)
}
