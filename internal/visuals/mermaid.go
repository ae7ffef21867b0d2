package visuals

import (
	"fmt"
	"math"
	"strings"
)

// maxMermaidPoints is roughly where xychart labels start to overlap.
const maxMermaidPoints = 60

// RenderMermaid creates a Mermaid xychart-beta for a line or bar chart. Tables, empty charts and
// charts without numeric values render as the empty string.
func RenderMermaid(c Chart) string {
	if c.Kind == KindTable || len(c.Rows) == 0 || len(c.YFields) == 0 {
		return ""
	}

	cols := make([]int, 0, len(c.YFields))
	for _, y := range c.YFields {
		for i, name := range c.Columns {
			if name == y {
				cols = append(cols, i)
				break
			}
		}
	}
	if len(cols) == 0 {
		return ""
	}

	// Subsample long series so the x-axis stays readable
	step := 1
	if len(c.Rows) > maxMermaidPoints {
		step = int(math.Ceil(float64(len(c.Rows)) / maxMermaidPoints))
	}

	var labels []string
	series := make([][]string, len(cols))
	maxVal := 0.0
	for i, row := range c.Rows {
		if i%step != 0 && i != len(c.Rows)-1 {
			continue
		}
		labels = append(labels, fmt.Sprintf("%q", sanitizeLabel(fmt.Sprint(row[0]))))
		for s, col := range cols {
			v, ok := numeric(row[col])
			if !ok {
				v = 0
			}
			if v > maxVal {
				maxVal = v
			}
			series[s] = append(series[s], formatValue(v))
		}
	}

	upper := math.Ceil(maxVal * 1.1)
	if upper <= 0 {
		upper = 1
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString(fmt.Sprintf("    title \"%s\"\n", sanitizeLabel(c.Title)))
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"%s\" 0 --> %s\n", sanitizeLabel(strings.Join(c.YFields, " / ")), formatValue(upper)))
	for _, values := range series {
		sb.WriteString(fmt.Sprintf("    %s [%s]\n", c.Kind, strings.Join(values, ", ")))
	}
	sb.WriteString("```")
	return sb.String()
}

// RenderTable renders a chart or panel table as Markdown.
func RenderTable(columns []string, rows [][]any) string {
	if len(columns) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	sb.WriteString("|" + strings.Repeat(" --- |", len(columns)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return sb.String()
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.3f", v)
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "n/a"
	case float64:
		return formatValue(x)
	case bool:
		if x {
			return "yes"
		}
		return ""
	}
	return sanitizeLabel(fmt.Sprint(v))
}

// sanitizeLabel strips characters that break Mermaid and Markdown table syntax.
func sanitizeLabel(s string) string {
	return strings.NewReplacer("\"", "'", "|", "/", "\n", " ", "[", "(", "]", ")").Replace(s)
}
