package chart

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	barStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	emptyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	axisStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	titleStyle = lipgloss.NewStyle().Bold(true)
)

// Terminal renders the chart as horizontal bars scaled to the Y domain.
// It returns the chart message when there is nothing to plot.
func (c Chart) Terminal(width int) string {
	v := c.View()
	if !v.Ready {
		return v.Message
	}

	labelWidth := 0
	for _, b := range v.Bars {
		labelWidth = max(labelWidth, ansi.StringWidth(b.Label))
	}
	labelWidth = min(labelWidth, 20)

	barWidth := width - labelWidth - 10
	if barWidth < 10 {
		barWidth = 10
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("%s by %s", v.Selection.Y, v.Selection.X)))
	sb.WriteString("\n")
	if v.Warning != "" {
		sb.WriteString(axisStyle.Render(v.Warning))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	for _, b := range v.Bars {
		sb.WriteString(HorizontalBar(b.Label, labelWidth, b.Value, v.Domain.Max, barWidth))
		sb.WriteString("\n")
	}
	sb.WriteString(axisStyle.Render(fmt.Sprintf("%s 0 .. %s", strings.Repeat(" ", labelWidth), FormatNumber(v.Domain.Max))))
	return sb.String()
}

// HorizontalBar draws one labelled bar filled in proportion to value/limit.
func HorizontalBar(label string, labelWidth int, value, limit float64, width int) string {
	if limit <= 0 {
		limit = value
	}
	ratio := 0.0
	if limit > 0 {
		ratio = value / limit
	}
	ratio = max(0, min(ratio, 1))

	filled := int(float64(width) * ratio)
	filled = max(0, min(filled, width))

	return fmt.Sprintf("%s %s%s %s",
		padLabel(label, labelWidth),
		barStyle.Render(strings.Repeat("█", filled)),
		emptyStyle.Render(strings.Repeat("░", width-filled)),
		FormatNumber(value),
	)
}

func padLabel(s string, width int) string {
	s = ansi.Truncate(s, width, "…")
	if pad := width - ansi.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}
