package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(14)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

// Summary renders r as a bordered block for a terminal.
func Summary(r *Report) string {
	rows := [][2]string{
		{"dataset", r.Dataset},
		{"backend", backendLabel(r)},
		{"records", fmt.Sprintf("%d x %d", r.Records, r.Dimension)},
		{"workers", fmt.Sprint(r.Workers)},
		{"import", seconds(r.ImportTime)},
		{"recall@" + fmt.Sprint(r.TopK), ratio(r.Recall)},
		{"runs", fmt.Sprint(r.Runs)},
		{"qps", fmt.Sprintf("%.1f", r.QPS)},
		{"latency", fmt.Sprintf("mean %s  p50 %s  p99 %s", seconds(r.MeanLatency), seconds(r.P50Latency), seconds(r.P99Latency))},
	}
	if r.SyntaxErrors > 0 {
		rows = append(rows, [2]string{"rejected", fmt.Sprint(r.SyntaxErrors)})
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("vecbench " + r.RunID))
	for _, row := range rows {
		b.WriteByte('\n')
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(row[0]), valueStyle.Render(row[1])))
	}
	return boxStyle.Render(b.String())
}

func backendLabel(r *Report) string {
	if r.Index == "" {
		return r.Backend
	}
	return r.Backend + " (" + r.Index + ")"
}
