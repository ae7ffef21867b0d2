package mcp

import (
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"picking-dash/internal/picklog"
	"picking-dash/internal/stats"
)

// FilterInput is the selection shared by the analytical tools. Omitted users or workstations mean
// "all"; an explicit empty list selects nothing.
type FilterInput struct {
	Users        []string               `json:"users,omitempty" jsonschema:"Usernames to keep. Omit to keep every user."`
	Workstations []string               `json:"workstations,omitempty" jsonschema:"Workstations to keep. Omit to keep every workstation."`
	Slicer       string                 `json:"slicer,omitempty" jsonschema:"Quick date range anchored on today. Custom (default) uses start and end."`
	Start        string                 `json:"start,omitempty" jsonschema:"First day of a custom range (YYYY-MM-DD)."`
	End          string                 `json:"end,omitempty" jsonschema:"Last day of a custom range (YYYY-MM-DD), inclusive."`
	TimeOfDay    bool                   `json:"time_of_day,omitempty" jsonschema:"Compare start and end as full timestamps instead of calendar days."`
	Shifts       []string               `json:"shifts,omitempty" jsonschema:"Keep only these shifts: AM (06-14), PM (14-22), NIGHT (22-06), UNKNOWN (no timestamp)."`
	Ranges       map[string]stats.Range `json:"ranges,omitempty" jsonschema:"Inclusive min/max per counter, keyed by SourceTotes, DestinationTotes or TotalRefills. Empty cells never match."`
	Metrics      []string               `json:"metrics,omitempty" jsonschema:"Counters to display, in order. The first one ranks the per-user, per-workstation and per-shift views."`
}

// LoadInput is the load_picking_file argument.
type LoadInput struct {
	Path    string `json:"path,omitempty" jsonschema:"Local path of a CSV or XLSX picking export."`
	Content string `json:"content,omitempty" jsonschema:"Inline CSV text, used when no path is given."`
	Name    string `json:"name,omitempty" jsonschema:"Display name for inline content."`
}

// ListInput is the (empty) list_datasets argument.
type ListInput struct{}

// DashboardInput is the get_dashboard argument.
type DashboardInput struct {
	DatasetID string      `json:"dataset_id" jsonschema:"Dataset id returned by load_picking_file."`
	Filter    FilterInput `json:"filter,omitempty"`
}

// OutliersInput is the get_outliers argument.
type OutliersInput struct {
	DatasetID string      `json:"dataset_id" jsonschema:"Dataset id returned by load_picking_file."`
	Dimension string      `json:"dimension" jsonschema:"Grouping to inspect: user, date or workstation."`
	Filter    FilterInput `json:"filter,omitempty"`
}

// ExportInput is the export_filtered argument.
type ExportInput struct {
	DatasetID string      `json:"dataset_id" jsonschema:"Dataset id returned by load_picking_file."`
	Format    string      `json:"format,omitempty" jsonschema:"csv (default) or xlsx."`
	Path      string      `json:"path,omitempty" jsonschema:"Destination file. Defaults to the configured export directory."`
	Filter    FilterInput `json:"filter,omitempty"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name: "load_picking_file",
		Description: "Load a warehouse picking log (CSV or XLSX with the columns Date, Username, Workstations, SourceTotes, DestinationTotes, TotalRefills). " +
			"Returns the dataset id plus the users, workstations, date span and counter ranges available for filtering. " +
			"Loading identical bytes twice returns the same dataset. Guidance: call 'get_dashboard' next with the returned dataset_id.",
		InputSchema: inputSchema[LoadInput](nil),
	}, s.handleLoad)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_datasets",
		Description: "List the picking datasets currently held in memory, oldest first, with their selector options.",
		InputSchema: inputSchema[ListInput](nil),
	}, s.handleList)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name: "get_dashboard",
		Description: "Compute the picking performance dashboard for a dataset and filter: totals, operations per day, user, workstation and shift, " +
			"mean efficiency per user (TotalRefills / (SourceTotes + DestinationTotes), averaged per record), refills per user per day and outlier panels. " +
			"Efficiency is 'n/a' when no record of a group moved any tote. Do not invent values for empty views; report the empty reason instead.",
		InputSchema: inputSchema[DashboardInput](filterEnums("filter")),
	}, s.handleDashboard)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name: "get_outliers",
		Description: "Flag the users, days or workstations whose mean efficiency or refill total is below 50% of the cross-group mean. " +
			"Returns the baselines used and every flagged group. Guidance: drill down with 'get_dashboard' filtered on a flagged group.",
		InputSchema: inputSchema[OutliersInput](mergeEnums(filterEnums("filter"), map[string][]any{
			"dimension": toAny(stats.OutlierDimensions),
		})),
	}, s.handleOutliers)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name: "export_filtered",
		Description: "Write the records selected by a filter to a CSV or XLSX file, source columns first followed by the derived Shift and Efficiency columns. " +
			"Returns the written path and row count.",
		InputSchema: inputSchema[ExportInput](mergeEnums(filterEnums("filter"), map[string][]any{
			"format": {string(picklog.FormatCSV), string(picklog.FormatXLSX)},
		})),
	}, s.handleExport)
}

// inputSchema infers the schema of T and pins enum values on the dotted property paths given.
func inputSchema[T any](enums map[string][]any) *jsonschema.Schema {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to infer tool input schema")
	}
	for path, values := range enums {
		if prop := property(schema, path); prop != nil {
			if prop.Items != nil {
				prop.Items.Enum = values
			} else {
				prop.Enum = values
			}
		}
	}
	return schema
}

func property(schema *jsonschema.Schema, path string) *jsonschema.Schema {
	current := schema
	for _, name := range strings.Split(path, ".") {
		if current == nil || current.Properties == nil {
			return nil
		}
		current = current.Properties[name]
	}
	return current
}

func filterEnums(prefix string) map[string][]any {
	return map[string][]any{
		prefix + ".slicer":  toAny([]stats.Slicer{stats.SlicerCustom, stats.SlicerToday, stats.SlicerThisWeek, stats.SlicerThisMonth}),
		prefix + ".shifts":  toAny(picklog.Shifts),
		prefix + ".metrics": toAny(picklog.Metrics),
	}
}

func mergeEnums(maps ...map[string][]any) map[string][]any {
	out := make(map[string][]any)
	for _, m := range maps {
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

func toAny[T ~string](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
