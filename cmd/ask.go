package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"bichat/internal/agent"
	"bichat/internal/nlsql"
)

var (
	askMulti  bool
	askAgent  bool
	askFormat string

	askCompanyCode string
	askCompanyName string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your data",
	Long: `Ask a natural language question. Claude writes SQL for it, the SQL is run
(and corrected on errors) and the result is described.

--multi first picks the single most relevant table.
--agent instead lets Claude explore the database with read-only tools and
answer in prose.

Requires ANTHROPIC_API_KEY environment variable to be set.

Example:
  bichat ask "What were total sales by month?"
  bichat ask --multi "Which customer placed the most orders?"
  bichat ask --company C1587 --company-name Acme "Top products this year?"
  bichat ask --agent "Which tables mention revenue?"`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		question := strings.Join(args, " ")

		a := mustSetup(cmd)
		defer a.close()
		ctx := a.ctx()

		if askAgent {
			answer, err := agent.GenerateResponse(ctx, question,
				agent.WithAPIKey(a.cfg.AnthropicAPIKey),
				agent.WithModel(a.cfg.Model),
				agent.WithCatalog(a.store),
				agent.WithDatabase(database),
			)
			if err != nil {
				HandleError(err, "Failed to generate response")
			}
			fmt.Println(answer)
			return
		}

		assistant := a.requireAssistant()
		ask := assistant.Ask
		if askMulti {
			ask = assistant.MultiAgent
		}
		ans, err := ask(ctx, database, question, nlsql.WithScope(askCompanyCode, askCompanyName))
		if err != nil {
			HandleError(err, "Failed to answer question")
		}
		if err := printAnswer(ans, askFormat); err != nil {
			HandleError(err, "Failed to render answer")
		}
	},
}

func printAnswer(ans *nlsql.Answer, format string) error {
	if format == formatJSON {
		return renderJSON(os.Stdout, ans)
	}
	if ans.Routing != nil {
		fmt.Printf("Table: %s (%s confidence)\n", ans.Routing.SelectedTable, ans.Routing.Confidence)
	}
	fmt.Printf("SQL: %s\n\n", ans.SQL)
	if err := renderDataset(os.Stdout, ans.Data, format); err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(ans.Answer)
	return nil
}

func init() {
	askCmd.Flags().BoolVar(&askMulti, "multi", false, "Route the question to one table first")
	askCmd.Flags().BoolVar(&askAgent, "agent", false, "Answer with the tool-using agent")
	askCmd.Flags().StringVarP(&askFormat, "format", "f", formatTable, "Result format: table, json, csv, md")
	askCmd.Flags().StringVar(&askCompanyCode, "company", "", "Only answer from rows of this company code")
	askCmd.Flags().StringVar(&askCompanyName, "company-name", "", "Display name of --company")
	askCmd.MarkFlagsMutuallyExclusive("multi", "agent")
	rootCmd.AddCommand(askCmd)
}
