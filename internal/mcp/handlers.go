package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"picking-dash/internal/analysis"
	"picking-dash/internal/stats"
	"picking-dash/internal/visuals"
)

// inlineName names inline uploads that carry no name.
const inlineName = "inline.csv"

// params converts a tool filter into pipeline parameters.
func (s *Server) params(in FilterInput) (stats.FilterParams, error) {
	p := stats.FilterParams{
		Users:        in.Users,
		Workstations: in.Workstations,
		Slicer:       in.Slicer,
		TimeOfDay:    in.TimeOfDay,
		Shifts:       in.Shifts,
		Ranges:       in.Ranges,
		Metrics:      in.Metrics,
	}
	loc := s.svc.Location()
	if in.Start != "" {
		t, err := analysis.ParseDate(in.Start, loc)
		if err != nil {
			return stats.FilterParams{}, fmt.Errorf("%w: start: %w", stats.ErrInvalidFilter, err)
		}
		p.Start = &t
	}
	if in.End != "" {
		t, err := analysis.ParseDate(in.End, loc)
		if err != nil {
			return stats.FilterParams{}, fmt.Errorf("%w: end: %w", stats.ErrInvalidFilter, err)
		}
		p.End = &t
	}
	return p, nil
}

func (s *Server) handleLoad(ctx context.Context, req *sdk.CallToolRequest, in LoadInput) (*sdk.CallToolResult, any, error) {
	name, data, err := s.readInput(in)
	if err != nil {
		return nil, nil, err
	}

	info, existing, err := s.svc.Load(name, data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load %s: %w", name, err)
	}

	var warnings []string
	if info.Warnings > 0 {
		warnings = append(warnings, fmt.Sprintf("%d cells could not be parsed and were left empty; affected rows are kept with null values.", info.Warnings))
	}
	if info.Undated > 0 {
		warnings = append(warnings, fmt.Sprintf("%d records have no usable timestamp; they count in totals but not in per-day views.", info.Undated))
	}
	if existing {
		warnings = append(warnings, "Identical content was already loaded; returning the existing dataset.")
	}

	res, err := WrapResponse(info, []string{
		"Call 'get_dashboard' with this dataset_id for totals, per-user, per-workstation and per-shift views.",
		"Call 'get_outliers' to list under-performing users, days or workstations.",
	}, warnings)
	return res, nil, err
}

func (s *Server) readInput(in LoadInput) (string, []byte, error) {
	if in.Path == "" {
		if in.Content == "" {
			return "", nil, errors.New("either path or content is required")
		}
		name := in.Name
		if name == "" {
			name = inlineName
		}
		return name, []byte(in.Content), nil
	}

	info, err := os.Stat(in.Path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to open %s: %w", in.Path, err)
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("%s is a directory", in.Path)
	}
	if s.opts.MaxFileBytes > 0 && info.Size() > s.opts.MaxFileBytes {
		return "", nil, fmt.Errorf("%s is %d bytes, above the limit of %d", in.Path, info.Size(), s.opts.MaxFileBytes)
	}
	data, err := os.ReadFile(in.Path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read %s: %w", in.Path, err)
	}
	return filepath.Base(in.Path), data, nil
}

func (s *Server) handleList(ctx context.Context, req *sdk.CallToolRequest, in ListInput) (*sdk.CallToolResult, any, error) {
	sets := s.svc.Datasets()
	var guidance []string
	if len(sets) == 0 {
		guidance = append(guidance, "No dataset is loaded. Call 'load_picking_file' first.")
	}
	res, err := WrapResponse(sets, guidance, nil)
	return res, nil, err
}

func (s *Server) handleDashboard(ctx context.Context, req *sdk.CallToolRequest, in DashboardInput) (*sdk.CallToolResult, any, error) {
	params, err := s.params(in.Filter)
	if err != nil {
		return nil, nil, err
	}
	d, err := s.svc.Analyze(in.DatasetID, params, analysis.SurfaceMCP)
	if err != nil {
		return nil, nil, err
	}
	view := visuals.BuildDashboardView(d)

	var warnings []string
	if d.Warnings > 0 {
		warnings = append(warnings, fmt.Sprintf("The source file had %d unparseable cells; those values are treated as empty.", d.Warnings))
	}
	if d.Empty {
		warnings = append(warnings, d.EmptyReason)
	}

	res, err := WrapResponse(view, []string{
		"Efficiency is the mean of per-record TotalRefills / (SourceTotes + DestinationTotes); 'n/a' means no record of the group moved a tote.",
	}, warnings, visuals.RenderDashboard(view, s.opts.Mermaid))
	return res, nil, err
}

func (s *Server) handleOutliers(ctx context.Context, req *sdk.CallToolRequest, in OutliersInput) (*sdk.CallToolResult, any, error) {
	dim, err := stats.ParseDimension(in.Dimension)
	if err != nil {
		return nil, nil, err
	}
	params, err := s.params(in.Filter)
	if err != nil {
		return nil, nil, err
	}
	report, err := s.svc.Outliers(in.DatasetID, dim, params, analysis.SurfaceMCP)
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	if report.EmptyReason != "" {
		warnings = append(warnings, report.EmptyReason)
	}
	guidance := []string{fmt.Sprintf("A group is flagged when its efficiency or refill total is below %.0f%% of the cross-group mean.", report.Threshold*100)}
	if len(report.Outliers) == 0 && report.EmptyReason == "" {
		guidance = append(guidance, "No group is below the threshold; do not report any outlier.")
	}

	res, err := WrapResponse(report, guidance, warnings, visuals.RenderOutliers(report))
	return res, nil, err
}

// ExportResult describes a written export.
type ExportResult struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Rows   int    `json:"rows"`
}

func (s *Server) handleExport(ctx context.Context, req *sdk.CallToolRequest, in ExportInput) (*sdk.CallToolResult, any, error) {
	format, err := analysis.ParseExportFormat(in.Format)
	if err != nil {
		return nil, nil, err
	}
	ds, err := s.svc.Dataset(in.DatasetID)
	if err != nil {
		return nil, nil, err
	}
	params, err := s.params(in.Filter)
	if err != nil {
		return nil, nil, err
	}

	path := in.Path
	if path == "" {
		path = filepath.Join(s.opts.ExportDir, analysis.ExportFileName(ds, format))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	rows, err := s.svc.Export(f, in.DatasetID, params, format)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, nil, err
	}

	log.Info().Str("path", path).Int("rows", rows).Msg("Export written for MCP client")
	res, err := WrapResponse(ExportResult{Path: path, Format: string(format), Rows: rows}, nil, nil)
	return res, nil, err
}
