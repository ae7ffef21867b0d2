package commands

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"picking-dash/internal/analysis"
	"picking-dash/internal/picklog"
	"picking-dash/internal/stats"
)

func TestFilterFlags_Params(t *testing.T) {
	var f filterFlags
	cmd := &cobra.Command{Use: "test"}
	f.bind(cmd)
	err := cmd.Flags().Parse([]string{
		"--user", "alice,bob",
		"--start", "2024-01-01",
		"--end", "2024-01-31",
		"--shift", "AM",
		"--range", "SourceTotes=5:20",
		"--range", "TotalRefills=0:3",
		"--metric", "TotalRefills",
	})
	if err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	p, err := f.params(time.UTC)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(p.Users) != 2 || p.Users[1] != "bob" {
		t.Errorf("Expected users [alice bob], got %v", p.Users)
	}
	if p.Workstations != nil {
		t.Errorf("Expected unset workstations to mean all, got %v", p.Workstations)
	}
	if p.Start == nil || !p.Start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected start 2024-01-01, got %v", p.Start)
	}
	if p.End == nil || p.End.Day() != 31 {
		t.Errorf("Expected end 2024-01-31, got %v", p.End)
	}
	if got := p.Ranges[string(picklog.SourceTotes)]; got != (stats.Range{Min: 5, Max: 20}) {
		t.Errorf("Expected SourceTotes range 5..20, got %+v", got)
	}
	if len(p.Ranges) != 2 {
		t.Errorf("Expected 2 ranges, got %d", len(p.Ranges))
	}
}

func TestFilterFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		f    filterFlags
	}{
		{"bad start", filterFlags{start: "01/02/2024"}},
		{"range without bounds", filterFlags{ranges: []string{"SourceTotes"}}},
		{"range without colon", filterFlags{ranges: []string{"SourceTotes=5"}}},
		{"range not numeric", filterFlags{ranges: []string{"SourceTotes=a:b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.f.params(time.UTC); !errors.Is(err, stats.ErrInvalidFilter) {
				t.Errorf("Expected ErrInvalidFilter, got %v", err)
			}
		})
	}
}

func TestFilterFlags_EndBeforeStartIsRejected(t *testing.T) {
	var f filterFlags
	cmd := &cobra.Command{Use: "test"}
	f.bind(cmd)
	if err := cmd.Flags().Parse([]string{"--start", "2024-01-02", "--end", "2024-01-01"}); err != nil {
		t.Fatalf("Failed to parse flags: %v", err)
	}

	svc := analysis.New(analysis.Options{})
	info, _, err := svc.Load("picks.csv", []byte("Date,Username,Workstations,SourceTotes,DestinationTotes,TotalRefills\n"+
		"01/01/2024 08:00,alice,WS1,1,1,1\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	p, err := f.params(svc.Location())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, err := svc.Analyze(info.ID, p, analysis.SurfaceCLI); !errors.Is(err, stats.ErrInvalidFilter) {
		t.Errorf("Expected ErrInvalidFilter, got %v", err)
	}
}

func TestFormatFromPath(t *testing.T) {
	if got := formatFromPath("out/picks.XLSX"); got != picklog.FormatXLSX {
		t.Errorf("Expected xlsx, got %s", got)
	}
	if got := formatFromPath("picks.txt"); got != picklog.FormatCSV {
		t.Errorf("Expected csv fallback, got %s", got)
	}
}
