package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"

	"bichat/internal/table"
)

// maxCellWidth bounds a cell so wide text columns do not push the rest of
// the table off screen.
const maxCellWidth = 24

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	inputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1)

	columnHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("33")).Padding(0, 1)
	selectedHeader    = columnHeaderStyle.Foreground(lipgloss.Color("226")).Underline(true)
	cellStyle         = lipgloss.NewStyle().Padding(0, 1)

	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	sqlStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
)

// renderMarkdown renders markdown content with glamour
func renderMarkdown(content string, width int) (string, error) {
	const glamourGutter = 2
	renderWidth := width - glamourGutter
	if renderWidth < 40 {
		renderWidth = 40
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(renderWidth),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(content)
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("📊 BI Chat"))
	b.WriteString("\n\n")
	b.WriteString(inputStyle.Render(m.input.View()))
	b.WriteString("\n")

	if m.loading {
		b.WriteString("Thinking...\n")
	}
	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status))
		b.WriteString("\n")
	}

	if m.answer != nil {
		b.WriteString("\n")
		b.WriteString(m.tabsView())
		b.WriteString("\n\n")
		switch m.tab {
		case chartTab:
			b.WriteString(m.chart.Terminal(m.contentWidth()))
			b.WriteString("\n")
			sel := m.chart.Selection()
			b.WriteString(mutedStyle.Render(fmt.Sprintf("X: %s | Y: %s", orDash(sel.X), orDash(sel.Y))))
		case answerTab:
			b.WriteString(m.viewport.View())
		default:
			b.WriteString(m.tableView())
		}
	}

	if m.focus == filterFocus {
		cols := m.viewer.Data().Columns()
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("Filter %s: %s", cols[m.cursor], m.filterInput.View()))
	}

	b.WriteString(helpStyle.Render("\n" + m.help()))
	return b.String()
}

func (m model) tabsView() string {
	parts := make([]string, len(tabNames))
	for i, name := range tabNames {
		label := fmt.Sprintf("%d %s", i+1, name)
		if tab(i) == m.tab {
			parts[i] = activeTabStyle.Render(label)
		} else {
			parts[i] = tabStyle.Render(label)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// tableView renders the current page with sort and filter markers in the
// header row.
func (m model) tableView() string {
	page := m.viewer.View()
	if page.Empty {
		return mutedStyle.Render(page.Message)
	}

	st := page.State
	headers := make([]string, len(page.Columns))
	for i, c := range page.Columns {
		h := c
		if st.Sort != nil && st.Sort.Column == c {
			if st.Sort.Direction == table.Descending {
				h += " ▼"
			} else {
				h += " ▲"
			}
		}
		if _, ok := st.Filters[c]; ok {
			h += " *"
		}
		headers[i] = h
	}

	rows := make([][]string, 0, page.Rows.Len())
	for _, rec := range page.Rows.Rows() {
		row := make([]string, len(page.Columns))
		for i, c := range page.Columns {
			row[i] = ansi.Truncate(rec[c].String(), maxCellWidth, "…")
		}
		rows = append(rows, row)
	}

	cursor := m.cursor
	t := ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("62"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == ltable.HeaderRow {
				if col == cursor {
					return selectedHeader
				}
				return columnHeaderStyle
			}
			return cellStyle
		})

	var b strings.Builder
	b.WriteString(t.Render())
	b.WriteString("\n")
	if page.Rows.Len() == 0 {
		b.WriteString(mutedStyle.Render("No rows match the current filters"))
		b.WriteString("\n")
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s | %s | %s rows per page",
		page.Showing, page.PageLabel, humanize.Comma(int64(page.PageSize)))))
	return b.String()
}

// answerContent is the markdown shown in the answer tab.
func (m model) answerContent() string {
	a := m.answer
	var md strings.Builder
	if a.Answer != "" {
		md.WriteString(a.Answer)
		md.WriteString("\n\n")
	}
	if a.Routing != nil {
		fmt.Fprintf(&md, "**Table:** %s (%s confidence)\n\n", a.Routing.SelectedTable, a.Routing.Confidence)
	}
	if a.Explanation != "" {
		fmt.Fprintf(&md, "_%s_\n\n", a.Explanation)
	}
	if a.SQL != "" {
		fmt.Fprintf(&md, "```sql\n%s\n```\n", a.SQL)
	}
	if a.Attempts > 1 {
		fmt.Fprintf(&md, "\nAnswered after %d attempts.\n", a.Attempts)
	}

	rendered, err := renderMarkdown(md.String(), m.contentWidth())
	if err != nil {
		m.logger.Warn("Markdown render failed", "error", err)
		if a.SQL != "" {
			return md.String() + "\n" + sqlStyle.Render(a.SQL)
		}
		return md.String()
	}
	return rendered
}

func (m model) contentWidth() int {
	if m.width <= 0 {
		return 80
	}
	return m.width
}

func (m model) help() string {
	switch m.focus {
	case filterFocus:
		return "Enter: Apply filter | Esc: Cancel"
	case resultFocus:
		switch m.tab {
		case chartTab:
			return "1/2/3: Tabs | x/y: Cycle axes | Ctrl+Y: Copy SQL | Tab: Ask again | Ctrl+C: Quit"
		case answerTab:
			return "1/2/3: Tabs | ↑/↓: Scroll | Ctrl+Y: Copy SQL | Tab: Ask again | Ctrl+C: Quit"
		}
		return "1/2/3: Tabs | ←/→: Column | s: Sort | /: Filter | c: Clear | n/p g/G: Page | +/-: Size | Tab: Ask again"
	}
	return "Enter: Ask | /sql <query>: Run SQL | Tab: Results | Esc/Ctrl+C: Quit"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
