package visuals

import (
	"picking-dash/internal/picklog"
	"picking-dash/internal/stats"
)

// ChartKind tells the renderer how to draw a chart table.
type ChartKind string

const (
	KindLine  ChartKind = "line"
	KindBar   ChartKind = "bar"
	KindTable ChartKind = "table"
)

// ReasonNoDefinedEfficiency marks an efficiency chart where every group has a zero denominator.
const ReasonNoDefinedEfficiency = "no group has a defined efficiency"

// EfficiencyField is the column name of the derived ratio in chart tables.
const EfficiencyField = "Efficiency"

// Chart is a plain data table plus the fields to plot. Rows follow Columns; the first column
// is always XField. Undefined efficiencies are nil cells.
type Chart struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Kind        ChartKind `json:"kind"`
	XField      string    `json:"xField"`
	YFields     []string  `json:"yFields"`
	Columns     []string  `json:"columns"`
	Rows        [][]any   `json:"rows"`
	EmptyReason string    `json:"emptyReason,omitempty"`
}

// Tile is a single labelled value (number or string).
type Tile struct {
	Label string `json:"label"`
	Value any    `json:"value"`
}

// OutlierPanel lists the flagged groups of one dimension with the baselines used.
type OutlierPanel struct {
	Dimension      stats.Dimension `json:"dimension"`
	Title          string          `json:"title"`
	MeanEfficiency float64         `json:"meanEfficiency"`
	MeanRefills    float64         `json:"meanRefills"`
	Threshold      float64         `json:"threshold"`
	Columns        []string        `json:"columns"`
	Rows           [][]any         `json:"rows"`
	EmptyReason    string          `json:"emptyReason,omitempty"`
}

// View is everything the page needs to draw one dashboard.
type View struct {
	DatasetID   string         `json:"datasetId"`
	DatasetName string         `json:"datasetName"`
	Warnings    int            `json:"parseWarnings"`
	Tiles       []Tile         `json:"tiles"`
	Charts      []Chart        `json:"charts"`
	Outliers    []OutlierPanel `json:"outliers"`
	Empty       bool           `json:"empty"`
	EmptyReason string         `json:"emptyReason,omitempty"`
}

var tileLabels = map[picklog.Metric]string{
	picklog.SourceTotes:      "Total Source Totes",
	picklog.DestinationTotes: "Total Destination Totes",
	picklog.TotalRefills:     "Total Refills",
}

var outlierTitles = map[stats.Dimension]string{
	stats.ByUser:        "User outliers",
	stats.ByDate:        "Day outliers",
	stats.ByWorkstation: "Workstation outliers",
}

// BuildDashboardView turns a computed dashboard into chart tables and tiles.
func BuildDashboardView(d stats.Dashboard) View {
	metrics := d.Display.Metrics
	if len(metrics) == 0 {
		metrics = picklog.Metrics
	}

	v := View{
		DatasetID:   d.DatasetID,
		DatasetName: d.DatasetName,
		Warnings:    d.Warnings,
		Empty:       d.Empty,
		EmptyReason: d.EmptyReason,
	}

	for _, m := range metrics {
		v.Tiles = append(v.Tiles, Tile{Label: tileLabels[m], Value: d.Summary.Sum(m)})
	}
	v.Tiles = append(v.Tiles,
		Tile{Label: "Records", Value: d.Summary.Records},
		Tile{Label: "Users", Value: d.Summary.Users},
		Tile{Label: "Workstations", Value: d.Summary.Workstations},
		Tile{Label: "Mean Efficiency", Value: ratioTile(d.Summary.Efficiency)},
	)

	v.Charts = []Chart{
		metricChart("timeline", "Operational Totals Over Time", KindLine, d.Timeline, metrics),
		metricChart("by_user", "Operations per User", KindBar, d.Users, metrics),
		metricChart("by_workstation", "Operations per Workstation", KindBar, d.Workstations, metrics),
		metricChart("by_shift", "Operations per Shift", KindBar, d.Shifts, metrics),
		efficiencyChart(d.UserEfficiency),
		dailyUserChart(d.DailyUsers),
	}

	for _, o := range d.Outliers {
		v.Outliers = append(v.Outliers, outlierPanel(o))
	}
	return v
}

func ratioTile(r stats.Ratio) any {
	if !r.Defined {
		return "n/a"
	}
	return r.Value
}

func ratioCell(r stats.Ratio) any {
	if !r.Defined {
		return nil
	}
	return r.Value
}

func metricChart(id, title string, kind ChartKind, t stats.GroupTable, metrics []picklog.Metric) Chart {
	c := Chart{
		ID:          id,
		Title:       title,
		Kind:        kind,
		XField:      t.Field,
		Columns:     []string{t.Field},
		Rows:        make([][]any, 0, len(t.Groups)),
		EmptyReason: t.EmptyReason,
	}
	for _, m := range metrics {
		c.YFields = append(c.YFields, string(m))
		c.Columns = append(c.Columns, string(m))
	}
	for _, g := range t.Groups {
		row := []any{g.Key}
		for _, m := range metrics {
			row = append(row, g.Sum(m))
		}
		c.Rows = append(c.Rows, row)
	}
	return c
}

func efficiencyChart(t stats.GroupTable) Chart {
	c := Chart{
		ID:          "user_efficiency",
		Title:       "Average Efficiency per User",
		Kind:        KindBar,
		XField:      t.Field,
		YFields:     []string{EfficiencyField},
		Columns:     []string{t.Field, EfficiencyField},
		Rows:        [][]any{},
		EmptyReason: t.EmptyReason,
	}
	for _, g := range t.Groups {
		if g.Efficiency.Defined {
			c.Rows = append(c.Rows, []any{g.Key, g.Efficiency.Value})
		}
	}
	if len(c.Rows) == 0 && c.EmptyReason == "" {
		c.EmptyReason = ReasonNoDefinedEfficiency
	}
	return c
}

func dailyUserChart(t stats.GroupTable) Chart {
	c := Chart{
		ID:          "daily_user_refills",
		Title:       "Refills per User per Day",
		Kind:        KindTable,
		XField:      "Date",
		YFields:     []string{string(picklog.TotalRefills)},
		Columns:     []string{"Date", picklog.ColUsername, string(picklog.SourceTotes), string(picklog.DestinationTotes), string(picklog.TotalRefills), EfficiencyField},
		Rows:        make([][]any, 0, len(t.Groups)),
		EmptyReason: t.EmptyReason,
	}
	for _, g := range t.Groups {
		c.Rows = append(c.Rows, []any{g.Parts[0], g.Parts[1], g.SourceTotes, g.DestinationTotes, g.TotalRefills, ratioCell(g.Efficiency)})
	}
	return c
}

func outlierPanel(r stats.OutlierReport) OutlierPanel {
	p := OutlierPanel{
		Dimension:      r.Dimension,
		Title:          outlierTitles[r.Dimension],
		MeanEfficiency: r.MeanEfficiency,
		MeanRefills:    r.MeanRefills,
		Threshold:      r.Threshold,
		Columns:        []string{r.Field, string(picklog.TotalRefills), EfficiencyField, "EfficiencyOutlier", "RefillOutlier"},
		Rows:           make([][]any, 0, len(r.Outliers)),
		EmptyReason:    r.EmptyReason,
	}
	for _, g := range r.Outliers {
		p.Rows = append(p.Rows, []any{g.Key, g.TotalRefills, ratioCell(g.Efficiency), g.EfficiencyOutlier, g.RefillOutlier})
	}
	return p
}
