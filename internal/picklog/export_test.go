package picklog

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Derived columns re-appear as extra columns on re-parse; compare the parsed record values only.
var recordValues = cmpopts.IgnoreFields(Record{}, "Extra")

func TestWriteCSV_RoundTrip(t *testing.T) {
	data := `Date,Username,Workstations,SourceTotes,DestinationTotes,TotalRefills
01/01/2024 08:00,"Smith, J",WS1,10,10,5
garbage,"say ""hi""",WS2,,3,x
02/01/2024 23:30:15,User B,WS2,20,0,0
`
	ds := mustParse(t, data)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, ds, ds.Records, ExportOptions{Derived: []DerivedColumn{ShiftColumn}}); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	again, err := Parse(&buf, Options{})
	if err != nil {
		t.Fatalf("re-Parse() error = %v", err)
	}

	if diff := cmp.Diff(ds.Records, again.Records, recordValues); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSV_FieldOrderAndDerived(t *testing.T) {
	data := "Note,TotalRefills,Username,Date,Workstations,SourceTotes,DestinationTotes\n" +
		"x,3,alice,01/01/2024 08:00,WS1,1,2\n"
	ds := mustParse(t, data)

	efficiency := DerivedColumn{Name: "Efficiency", Value: func(Record) string { return "1" }}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, ds, ds.Records, ExportOptions{Derived: []DerivedColumn{ShiftColumn, efficiency}}); err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{
		{"Note", "TotalRefills", "Username", "Date", "Workstations", "SourceTotes", "DestinationTotes", "Shift", "Efficiency"},
		{"x", "3", "alice", "01/01/2024 08:00:00", "WS1", "1", "2", "AM", "1"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("export mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteCSV_DerivedColumnsAreNotDuplicated(t *testing.T) {
	data := "Date,Username,Workstations,SourceTotes,DestinationTotes,TotalRefills,Shift\n" +
		"01/01/2024 15:00,alice,WS1,1,2,3,AM\n"
	ds := mustParse(t, data)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, ds, ds.Records, ExportOptions{Derived: []DerivedColumn{ShiftColumn}}); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "Date,Username,Workstations,SourceTotes,DestinationTotes,TotalRefills,Shift" {
		t.Errorf("Unexpected header %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], ",PM") {
		t.Errorf("Expected recomputed shift, got %q", lines[1])
	}
}

func TestWriteCSV_BOM(t *testing.T) {
	ds := mustParse(t, scenarioCSV)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, ds, nil, ExportOptions{BOMPrefix: true}); err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(buf.Bytes(), utf8BOM) {
		t.Error("Expected BOM prefix")
	}

	again, err := Parse(&buf, Options{})
	if err != nil {
		t.Fatalf("BOM-prefixed export must parse: %v", err)
	}
	if len(again.Records) != 0 {
		t.Errorf("Expected header-only export, got %d records", len(again.Records))
	}
}

func TestWriteXLSX_RoundTrip(t *testing.T) {
	ds := mustParse(t, scenarioCSV+"bad,User C,WS3,,1,1\n")

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, ds, ds.Records, ExportOptions{}); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}
	if DetectFormat("download", buf.Bytes()) != FormatXLSX {
		t.Fatal("Expected workbook bytes to be detected as xlsx")
	}

	again, err := ParseXLSX(bytes.NewReader(buf.Bytes()), Options{})
	if err != nil {
		t.Fatalf("ParseXLSX() error = %v", err)
	}
	if diff := cmp.Diff(ds.Records, again.Records, recordValues); diff != "" {
		t.Errorf("xlsx round trip mismatch (-want +got):\n%s", diff)
	}
}
