package picklog

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// DerivedColumn is a computed column appended after the source schema on export.
type DerivedColumn struct {
	Name  string
	Value func(Record) string
}

// ShiftColumn exports the derived shift label.
var ShiftColumn = DerivedColumn{
	Name:  "Shift",
	Value: func(r Record) string { return string(r.Shift) },
}

// ExportOptions configure the export serializer.
type ExportOptions struct {
	// Derived columns are appended after the source columns, in order.
	Derived []DerivedColumn
	// BOMPrefix writes a UTF-8 byte order mark so spreadsheet tools detect the encoding.
	BOMPrefix bool
}

// exportHeader is the source header followed by derived columns. Source columns whose name
// collides with a derived column are dropped so a re-exported file does not duplicate them.
func exportHeader(ds *Dataset, opts ExportOptions) ([]string, []int) {
	derived := make(map[string]bool, len(opts.Derived))
	for _, d := range opts.Derived {
		derived[d.Name] = true
	}

	var header []string
	var source []int
	for i, col := range ds.Header {
		if derived[col] {
			continue
		}
		header = append(header, col)
		source = append(source, i)
	}
	for _, d := range opts.Derived {
		header = append(header, d.Name)
	}
	return header, source
}

// exportRows encodes records in source field order followed by derived values.
func exportRows(ds *Dataset, records []Record, opts ExportOptions) ([]string, [][]string) {
	header, source := exportHeader(ds, opts)

	extraPos := make(map[int]int, len(ds.ExtraColumns))
	seen := make(map[string]bool, len(ds.Header))
	extra := 0
	for i, col := range ds.Header {
		if isRequired(col) && !seen[col] {
			seen[col] = true
			continue
		}
		extraPos[i] = extra
		extra++
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := make([]string, 0, len(header))
		for _, i := range source {
			if pos, ok := extraPos[i]; ok {
				if pos < len(r.Extra) {
					row = append(row, r.Extra[pos])
				} else {
					row = append(row, "")
				}
				continue
			}
			row = append(row, requiredCell(r, ds.Header[i]))
		}
		for _, d := range opts.Derived {
			row = append(row, d.Value(r))
		}
		rows = append(rows, row)
	}
	return header, rows
}

func requiredCell(r Record, col string) string {
	switch col {
	case ColTimestamp:
		if r.Timestamp == nil {
			return ""
		}
		return r.Timestamp.Format(ExportLayout)
	case ColUsername:
		return r.Username
	case ColWorkstation:
		return r.Workstation
	case ColSourceTotes:
		return r.SourceTotes.String()
	case ColDestinationTotes:
		return r.DestinationTotes.String()
	case ColTotalRefills:
		return r.TotalRefills.String()
	}
	return ""
}

// WriteCSV serializes records as comma-separated text, header first, in source field order.
func WriteCSV(w io.Writer, ds *Dataset, records []Record, opts ExportOptions) error {
	if opts.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	header, rows := exportRows(ds, records, opts)

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExportSheet is the worksheet name used for xlsx exports.
const ExportSheet = "Picking"

// WriteXLSX serializes records into a single-sheet workbook. Counter cells are written as
// numbers; nulls are left blank.
func WriteXLSX(w io.Writer, ds *Dataset, records []Record, opts ExportOptions) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header, rows := exportRows(ds, records, opts)

	if err := setRow(f, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		values := make([]any, len(row))
		for j, cell := range row {
			values[j] = cell
			if c, reason := parseCount(cell); reason == "" && isCounterColumn(header[j]) {
				values[j] = c.Value
			}
		}
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(ExportSheet, cellName, &values); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, n int, cells []string) error {
	values := make([]any, len(cells))
	for i, c := range cells {
		values[i] = c
	}
	cellName, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(ExportSheet, cellName, &values); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	return nil
}

func isCounterColumn(col string) bool {
	return col == ColSourceTotes || col == ColDestinationTotes || col == ColTotalRefills
}
