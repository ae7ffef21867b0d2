package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"picking-dash/internal/analysis"
	"picking-dash/internal/visuals"
)

var (
	reportFilter  filterFlags
	reportMermaid bool
	reportJSON    bool
)

var reportCmd = &cobra.Command{
	Use:   "report <file>",
	Short: "Print the dashboard of a picking export as Markdown",
	Long: `Loads one CSV or XLSX file, applies the filter flags and prints the metric tiles, every chart
table and the user, day and workstation outlier panels. --mermaid renders line and bar charts as
Mermaid xycharts; --json prints the raw chart tables instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportFilter.bind(reportCmd)
	reportCmd.Flags().BoolVar(&reportMermaid, "mermaid", false, "render charts as Mermaid xycharts (defaults to PICKING_ENABLE_MERMAID_CHARTS)")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the dashboard view as JSON")
}

func runReport(cmd *cobra.Command, args []string) error {
	svc := newService(nil)
	info, err := loadFile(svc, args[0])
	if err != nil {
		return err
	}
	params, err := reportFilter.params(svc.Location())
	if err != nil {
		return err
	}
	d, err := svc.Analyze(info.ID, params, analysis.SurfaceCLI)
	if err != nil {
		return err
	}
	view := visuals.BuildDashboardView(d)

	out := cmd.OutOrStdout()
	if reportJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	mermaid := reportMermaid || cfg.EnableMermaidCharts
	if _, err := fmt.Fprintln(out, visuals.RenderDashboard(view, mermaid)); err != nil {
		return err
	}
	if info.Warnings > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d cells could not be parsed and were treated as empty\n", info.Warnings)
	}
	return nil
}
