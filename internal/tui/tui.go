// Package tui is the interactive terminal client: ask a question, then page,
// sort and filter the result table, chart it and read the answer.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"bichat/internal/chart"
	"bichat/internal/dataset"
	"bichat/internal/logging"
	"bichat/internal/nlsql"
	"bichat/internal/table"
)

// sqlPrefix marks input that is run as SQL instead of being asked.
const sqlPrefix = "/sql "

// Asker answers natural language questions.
type Asker interface {
	Ask(ctx context.Context, db, question string, opts ...nlsql.AskOption) (*nlsql.Answer, error)
}

// Querier runs raw SQL.
type Querier interface {
	Execute(ctx context.Context, db, query string) (*dataset.Dataset, error)
}

// Options configures the program.
type Options struct {
	Assistant Asker // nil disables questions; /sql still works
	Store     Querier
	Database  string
	PageSize  int
	Logger    *slog.Logger
}

type tab int

const (
	tableTab tab = iota
	chartTab
	answerTab
)

var tabNames = []string{"Table", "Chart", "Answer"}

type focus int

const (
	inputFocus focus = iota
	resultFocus
	filterFocus
)

type answerMsg struct {
	answer *nlsql.Answer
	err    error
}

type model struct {
	opts   Options
	logger *slog.Logger

	input       textinput.Model
	filterInput textinput.Model
	viewport    viewport.Model

	focus  focus
	tab    tab
	cursor int // selected column in the table tab

	answer *nlsql.Answer
	viewer table.Viewer
	chart  chart.Chart

	loading       bool
	err           error
	status        string
	width         int
	height        int
	viewportReady bool
}

func initialModel(opts Options) model {
	ti := textinput.New()
	ti.Placeholder = "Ask a question about your data, or /sql SELECT ..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 70

	fi := textinput.New()
	fi.Placeholder = "Filter text"
	fi.CharLimit = 100
	fi.Width = 40

	empty := dataset.Empty()
	viewer := table.New(empty)
	if table.ValidPageSize(opts.PageSize) {
		viewer = viewer.SetPageSize(opts.PageSize)
	}

	return model{
		opts:        opts,
		logger:      logging.OrDiscard(opts.Logger),
		input:       ti,
		filterInput: fi,
		viewport:    viewport.New(80, 20),
		viewer:      viewer,
		chart:       chart.New(empty),
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) submit(text string) tea.Cmd {
	opts := m.opts
	return func() tea.Msg {
		ctx := context.Background()
		if q, ok := strings.CutPrefix(text, sqlPrefix); ok {
			ds, err := opts.Store.Execute(ctx, opts.Database, q)
			if err != nil {
				return answerMsg{err: err}
			}
			return answerMsg{answer: &nlsql.Answer{Question: text, SQL: q, Data: ds, Columns: ds.Columns()}}
		}
		if opts.Assistant == nil {
			return answerMsg{err: fmt.Errorf("questions need ANTHROPIC_API_KEY; use %sSELECT ... to run SQL", sqlPrefix)}
		}
		ans, err := opts.Assistant.Ask(ctx, opts.Database, text)
		return answerMsg{answer: ans, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-10, 5)
		m.viewportReady = true
		m.refreshAnswer()
		return m, nil

	case tea.KeyMsg:
		switch m.focus {
		case filterFocus:
			return m.handleFilterKeys(msg)
		case resultFocus:
			return m.handleResultKeys(msg)
		default:
			return m.handleInputKeys(msg)
		}

	case tea.MouseMsg:
		if m.tab == answerTab {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case answerMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.logger.Error("Question failed", "error", msg.err, "question", m.input.Value())
			return m, nil
		}
		m.err = nil
		m.setAnswer(msg.answer)
		m.logger.Info("Question answered", "rows", msg.answer.Data.Len(), "attempts", msg.answer.Attempts)
		return m, nil
	}

	if m.focus == inputFocus {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// setAnswer binds a new result to the table and chart. A different column
// set resets the views; the same columns keep page size and chart axes.
func (m *model) setAnswer(ans *nlsql.Answer) {
	m.answer = ans
	ds := ans.Data
	if ds == nil {
		ds = dataset.Empty()
	}
	m.viewer = m.viewer.WithData(ds)
	m.chart = m.chart.WithData(ds)
	m.cursor = 0
	m.status = ""
	m.focus = resultFocus
	m.input.Blur()
	m.refreshAnswer()
}

func (m *model) refreshAnswer() {
	if !m.viewportReady || m.answer == nil {
		return
	}
	m.viewport.SetContent(m.answerContent())
}

func (m model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit

	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		if text == "" || m.loading {
			return m, nil
		}
		m.loading = true
		m.err = nil
		return m, m.submit(text)

	case tea.KeyTab:
		if m.answer != nil {
			m.focus = resultFocus
			m.input.Blur()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	cols := m.viewer.Data().Columns()

	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc, tea.KeyTab:
		m.focus = inputFocus
		m.input.Focus()
		return m, textinput.Blink
	case tea.KeyCtrlY:
		if m.answer != nil && m.answer.SQL != "" {
			if err := clipboard.WriteAll(m.answer.SQL); err != nil {
				m.err = fmt.Errorf("copy failed: %w", err)
			} else {
				m.status = "SQL copied to clipboard"
			}
		}
		return m, nil
	case tea.KeyUp, tea.KeyDown, tea.KeyPgUp, tea.KeyPgDown:
		if m.tab == answerTab {
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	switch msg.String() {
	case "1", "2", "3":
		m.tab = tab(msg.String()[0] - '1')
	case "t":
		m.tab = (m.tab + 1) % tab(len(tabNames))
	case "left", "h":
		if m.cursor > 0 {
			m.cursor--
		}
	case "right", "l":
		if m.cursor < len(cols)-1 {
			m.cursor++
		}
	case "n":
		m.viewer = m.viewer.NextPage()
	case "p":
		m.viewer = m.viewer.PrevPage()
	case "g":
		m.viewer = m.viewer.FirstPage()
	case "G":
		m.viewer = m.viewer.LastPage()
	case "+", "-":
		m.viewer = m.viewer.SetPageSize(stepPageSize(m.viewer.State().PageSize, msg.String() == "+"))
	case "s":
		if m.cursor < len(cols) {
			m.viewer = m.viewer.ToggleSort(cols[m.cursor])
		}
	case "c":
		m.viewer = m.viewer.ClearFilters()
	case "/":
		if m.cursor < len(cols) {
			m.focus = filterFocus
			m.filterInput.SetValue(m.viewer.State().Filters[cols[m.cursor]])
			m.filterInput.Focus()
			return m, textinput.Blink
		}
	case "x":
		m.chart = m.chart.SelectX(nextColumn(cols, m.chart.Selection().X))
	case "y":
		sel := m.chart.Selection()
		y := nextColumn(cols, sel.Y)
		if y == sel.X {
			y = nextColumn(cols, y)
		}
		m.chart = m.chart.SelectY(y)
	}
	return m, nil
}

func (m model) handleFilterKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.focus = resultFocus
		m.filterInput.Blur()
		return m, nil
	case tea.KeyEnter:
		cols := m.viewer.Data().Columns()
		if m.cursor < len(cols) {
			m.viewer = m.viewer.SetFilter(cols[m.cursor], m.filterInput.Value())
		}
		m.focus = resultFocus
		m.filterInput.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	return m, cmd
}

// stepPageSize moves to the next or previous allowed page size.
func stepPageSize(current int, up bool) int {
	for i, n := range table.PageSizes {
		if n != current {
			continue
		}
		if up && i+1 < len(table.PageSizes) {
			return table.PageSizes[i+1]
		}
		if !up && i > 0 {
			return table.PageSizes[i-1]
		}
		return n
	}
	return table.DefaultPageSize
}

// nextColumn cycles through cols after current.
func nextColumn(cols []string, current string) string {
	if len(cols) == 0 {
		return ""
	}
	for i, c := range cols {
		if c == current {
			return cols[(i+1)%len(cols)]
		}
	}
	return cols[0]
}

// Run starts the program and blocks until the user quits.
func Run(opts Options) error {
	p := tea.NewProgram(
		initialModel(opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running program: %w", err)
	}
	return nil
}
