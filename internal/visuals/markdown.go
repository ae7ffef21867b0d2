package visuals

import (
	"fmt"
	"strings"

	"picking-dash/internal/stats"
)

// RenderDashboard renders tiles, charts and outlier panels as Markdown. With mermaid set, line and
// bar charts become xychart-beta blocks; table charts and panels are always Markdown tables.
func RenderDashboard(v View, mermaid bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", sanitizeLabel(v.DatasetName))
	if v.Empty {
		fmt.Fprintf(&sb, "_%s_\n\n", v.EmptyReason)
	}

	rows := make([][]any, len(v.Tiles))
	for i, t := range v.Tiles {
		rows[i] = []any{t.Label, t.Value}
	}
	sb.WriteString(RenderTable([]string{"Metric", "Value"}, rows))

	for _, c := range v.Charts {
		fmt.Fprintf(&sb, "\n### %s\n\n", c.Title)
		switch {
		case len(c.Rows) == 0:
			fmt.Fprintf(&sb, "_%s_\n", c.EmptyReason)
		case mermaid && c.Kind != KindTable:
			sb.WriteString(RenderMermaid(c))
			sb.WriteString("\n")
		default:
			sb.WriteString(RenderTable(c.Columns, c.Rows))
		}
	}

	for _, p := range v.Outliers {
		fmt.Fprintf(&sb, "\n### %s\n\n", p.Title)
		fmt.Fprintf(&sb, "Mean efficiency %s, mean refills %s.\n\n", formatValue(p.MeanEfficiency), formatValue(p.MeanRefills))
		if len(p.Rows) == 0 {
			reason := p.EmptyReason
			if reason == "" {
				reason = "No outliers"
			}
			fmt.Fprintf(&sb, "_%s_\n", reason)
			continue
		}
		sb.WriteString(RenderTable(p.Columns, p.Rows))
	}
	return sb.String()
}

// RenderOutliers renders one outlier report: the baselines, then the flagged groups.
func RenderOutliers(r stats.OutlierReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Mean efficiency %s, mean refills %s, threshold %.0f%%.\n\n",
		formatValue(r.MeanEfficiency), formatValue(r.MeanRefills), r.Threshold*100)
	if len(r.Outliers) == 0 {
		reason := r.EmptyReason
		if reason == "" {
			reason = "No outliers"
		}
		fmt.Fprintf(&sb, "_%s_\n", reason)
		return sb.String()
	}
	panel := outlierPanel(r)
	sb.WriteString(RenderTable(panel.Columns, panel.Rows))
	return sb.String()
}
