package visuals

import (
	"strings"
	"testing"
	"time"

	"picking-dash/internal/picklog"
	"picking-dash/internal/stats"
)

func scenarioDashboard(t *testing.T, mutate func(*stats.FilterSpec)) stats.Dashboard {
	t.Helper()
	at := func(s string) *time.Time {
		ts, err := time.Parse("2006-01-02 15:04", s)
		if err != nil {
			t.Fatal(err)
		}
		return &ts
	}
	c := picklog.CountOf
	ds := &picklog.Dataset{ID: "abc", Name: "picks.csv", Records: []picklog.Record{
		picklog.NewRecord(1, at("2024-01-01 08:00"), "User A", "WS1", c(10), c(10), c(5)),
		picklog.NewRecord(2, at("2024-01-01 09:00"), "User A", "WS1", c(0), c(0), c(0)),
		picklog.NewRecord(3, at("2024-01-02 23:30"), "User B", "WS2", c(20), c(0), c(0)),
	}}
	spec := stats.DefaultFilter(ds)
	if mutate != nil {
		mutate(&spec)
	}
	return stats.NewAnalysisSession(ds, spec, stats.DefaultDisplayOptions()).Run()
}

func chartByID(v View, id string) (Chart, bool) {
	for _, c := range v.Charts {
		if c.ID == id {
			return c, true
		}
	}
	return Chart{}, false
}

func TestBuildDashboardView_Tiles(t *testing.T) {
	v := BuildDashboardView(scenarioDashboard(t, nil))

	want := map[string]any{
		"Total Source Totes":      int64(30),
		"Total Destination Totes": int64(10),
		"Total Refills":           int64(5),
		"Records":                 3,
		"Users":                   2,
		"Workstations":            2,
	}
	for _, tile := range v.Tiles {
		if expected, ok := want[tile.Label]; ok && tile.Value != expected {
			t.Errorf("Tile %q = %v, want %v", tile.Label, tile.Value, expected)
		}
	}
	if len(v.Tiles) != 7 {
		t.Errorf("Expected 7 tiles, got %d", len(v.Tiles))
	}
}

func TestBuildDashboardView_Charts(t *testing.T) {
	v := BuildDashboardView(scenarioDashboard(t, nil))

	timeline, ok := chartByID(v, "timeline")
	if !ok {
		t.Fatal("Expected a timeline chart")
	}
	if timeline.Kind != KindLine || timeline.XField != "Date" || len(timeline.YFields) != 3 {
		t.Errorf("Unexpected timeline chart %+v", timeline)
	}
	if len(timeline.Rows) != 2 || timeline.Rows[0][0] != "2024-01-01" {
		t.Errorf("Unexpected timeline rows %v", timeline.Rows)
	}

	users, _ := chartByID(v, "by_user")
	if users.XField != picklog.ColUsername || users.Rows[0][0] != "User B" {
		t.Errorf("Expected User B first when ranked by SourceTotes, got %v", users.Rows)
	}

	eff, _ := chartByID(v, "user_efficiency")
	if len(eff.Rows) != 2 || eff.YFields[0] != EfficiencyField {
		t.Errorf("Unexpected efficiency chart %+v", eff)
	}

	daily, _ := chartByID(v, "daily_user_refills")
	if daily.Kind != KindTable || len(daily.Rows) != 2 || len(daily.Rows[0]) != len(daily.Columns) {
		t.Errorf("Unexpected daily table %+v", daily)
	}

	if len(v.Outliers) != 3 {
		t.Fatalf("Expected 3 outlier panels, got %d", len(v.Outliers))
	}
	if v.Outliers[0].Title != "User outliers" || len(v.Outliers[0].Rows) != 1 {
		t.Errorf("Unexpected user outlier panel %+v", v.Outliers[0])
	}
}

func TestBuildDashboardView_Empty(t *testing.T) {
	v := BuildDashboardView(scenarioDashboard(t, func(s *stats.FilterSpec) { s.Users = nil }))

	if !v.Empty || v.EmptyReason == "" {
		t.Error("Expected empty view with a reason")
	}
	for _, c := range v.Charts {
		if len(c.Rows) != 0 || c.EmptyReason == "" {
			t.Errorf("Chart %s should be empty with a reason, got %+v", c.ID, c)
		}
	}
	for _, tile := range v.Tiles {
		if tile.Label == "Mean Efficiency" && tile.Value != "n/a" {
			t.Errorf("Expected n/a efficiency tile, got %v", tile.Value)
		}
	}
}

func TestRenderMermaid(t *testing.T) {
	c := Chart{
		Title:   "Operations per User",
		Kind:    KindBar,
		XField:  "Username",
		YFields: []string{"SourceTotes"},
		Columns: []string{"Username", "SourceTotes"},
		Rows:    [][]any{{"alice", int64(20)}, {"bob", int64(10)}},
	}

	out := RenderMermaid(c)
	for _, want := range []string{
		"```mermaid\nxychart-beta\n",
		`title "Operations per User"`,
		`x-axis ["alice", "bob"]`,
		`y-axis "SourceTotes" 0 --> `,
		"bar [20, 10]",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in output:\n%s", want, out)
		}
	}

	if RenderMermaid(Chart{Kind: KindBar}) != "" {
		t.Error("Expected empty output for an empty chart")
	}
	if RenderMermaid(Chart{Kind: KindTable, Rows: c.Rows, YFields: c.YFields}) != "" {
		t.Error("Expected empty output for a table")
	}
}

func TestRenderMermaid_Subsamples(t *testing.T) {
	c := Chart{Kind: KindLine, YFields: []string{"v"}, Columns: []string{"x", "v"}}
	for i := 0; i < 150; i++ {
		c.Rows = append(c.Rows, []any{i, int64(i)})
	}
	out := RenderMermaid(c)
	line := out[strings.Index(out, "    line ["):]
	points := strings.Count(line[:strings.Index(line, "]")], ",") + 1
	if points > maxMermaidPoints+1 {
		t.Errorf("Expected at most %d points, got %d", maxMermaidPoints+1, points)
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable([]string{"Username", "Efficiency", "RefillOutlier"}, [][]any{{"a|b", nil, true}})
	want := "| Username | Efficiency | RefillOutlier |\n| --- | --- | --- |\n| a/b | n/a | yes |\n"
	if out != want {
		t.Errorf("RenderTable() = %q, want %q", out, want)
	}
}
