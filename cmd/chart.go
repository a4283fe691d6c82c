package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"bichat/internal/chart"
)

var (
	chartSQL    string
	chartX      string
	chartY      string
	chartOut    string
	chartWidth  int
	chartHeight int
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Draw a bar chart of a query result",
	Long: `Run a query and draw its result as a bar chart. The first column is the X
axis and the second the Y axis unless --x and --y say otherwise.

Without --out the chart is drawn in the terminal; --out writes an .svg or
.png file.

Examples:
  bichat chart --sql "SELECT month, sales FROM sales"
  bichat chart --sql "SELECT * FROM sales" --x region --y sales --out sales.svg`,
	Run: func(cmd *cobra.Command, args []string) {
		a := mustSetup(cmd)
		defer a.close()

		ds, err := a.store.Execute(a.ctx(), database, chartSQL)
		if err != nil {
			HandleError(err, "Failed to execute query")
		}
		c := chart.Restore(ds, chart.Selection{X: chartX, Y: chartY})

		if chartOut == "" {
			fmt.Println(c.Terminal(chartWidth))
			return
		}

		f, err := os.Create(chartOut)
		if err != nil {
			HandleError(err, "Failed to create output file")
		}
		defer f.Close()

		size := chart.Size{Width: chartWidth * 10, Height: chartHeight}
		switch strings.ToLower(filepath.Ext(chartOut)) {
		case ".png":
			err = c.PNG(f, size)
		default:
			err = c.SVG(f, size)
		}
		if err != nil {
			HandleError(err, "Failed to render chart")
		}
		fmt.Printf("Wrote %s\n", chartOut)
	},
}

func init() {
	chartCmd.Flags().StringVarP(&chartSQL, "sql", "q", "", "SQL query to chart (required)")
	chartCmd.Flags().StringVar(&chartX, "x", "", "X axis column")
	chartCmd.Flags().StringVar(&chartY, "y", "", "Y axis column")
	chartCmd.Flags().StringVarP(&chartOut, "out", "o", "", "Write an .svg or .png file instead")
	chartCmd.Flags().IntVar(&chartWidth, "width", 80, "Width in terminal columns (x10 pixels for files)")
	chartCmd.Flags().IntVar(&chartHeight, "height", chart.DefaultSize.Height, "Image height in pixels")
	_ = chartCmd.MarkFlagRequired("sql")
	rootCmd.AddCommand(chartCmd)
}
