package picklog

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// Options control how a picking log is normalized.
type Options struct {
	// Location interprets timestamps that carry no zone. Defaults to UTC.
	Location *time.Location
	// Now stamps Dataset.LoadedAt. Defaults to time.Now.
	Now func() time.Time
}

func (o Options) location() *time.Location {
	if o.Location == nil {
		return time.UTC
	}
	return o.Location
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Format identifies the container of an upload.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat infers the container from the file name, falling back to the zip magic
// that every xlsx workbook starts with.
func DetectFormat(name string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv", ".txt":
		return FormatCSV
	}
	if bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return FormatXLSX
	}
	return FormatCSV
}

// Load parses an uploaded file of either format and stamps it with its content hash.
func Load(name string, data []byte, opts Options) (*Dataset, error) {
	var (
		ds  *Dataset
		err error
	)
	switch DetectFormat(name, data) {
	case FormatXLSX:
		ds, err = ParseXLSX(bytes.NewReader(data), opts)
	default:
		ds, err = Parse(bytes.NewReader(data), opts)
	}
	if err != nil {
		return nil, err
	}
	ds.ID = Fingerprint(data)
	ds.Name = name
	return ds, nil
}

// Fingerprint is the dataset identity: hex SHA-256 of the raw bytes.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Parse reads comma-separated picking rows with a header.
func Parse(r io.Reader, opts Options) (*Dataset, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(bom, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	// Operator names such as O"Brien arrive unquoted.
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyInput
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	n, err := newNormalizer(header, opts, ParseTimestamp)
	if err != nil {
		return nil, err
	}

	// The reader drops empty lines, so rows are numbered from their line in the file.
	headerLine, _ := reader.FieldPos(0)
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := n.row + 1
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.StartLine - headerLine
			}
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}
		start, _ := reader.FieldPos(0)
		n.row = start - headerLine - 1
		n.add(row)
	}

	return n.finish(), nil
}

// ParseXLSX reads the first worksheet of a workbook. Date cells may be Excel serial numbers.
func ParseXLSX(r io.Reader, opts Options) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyInput
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyInput
	}

	n, err := newNormalizer(rows[0], opts, parseSerialTimestamp)
	if err != nil {
		return nil, err
	}
	for _, row := range rows[1:] {
		n.add(row)
	}
	return n.finish(), nil
}

type normalizer struct {
	opts      Options
	parseTime func(string, *time.Location) (time.Time, bool)

	header  []string
	index   map[string]int
	extraIx []int
	extra   []string

	row      int
	records  []Record
	warnings []ParseWarning
}

func newNormalizer(rawHeader []string, opts Options, parseTime func(string, *time.Location) (time.Time, bool)) (*normalizer, error) {
	header := make([]string, len(rawHeader))
	for i, h := range rawHeader {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.TrimSpace(h)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing, Found: header}
	}

	n := &normalizer{
		opts:      opts,
		parseTime: parseTime,
		header:    header,
		index:     index,
	}
	for i, h := range header {
		if index[h] == i && isRequired(h) {
			continue
		}
		n.extraIx = append(n.extraIx, i)
		n.extra = append(n.extra, h)
	}
	return n, nil
}

func isRequired(col string) bool {
	for _, c := range RequiredColumns {
		if c == col {
			return true
		}
	}
	return false
}

func (n *normalizer) cell(row []string, col string) string {
	i := n.index[col]
	if i >= len(row) {
		return ""
	}
	return row[i]
}

func (n *normalizer) warn(col, value, reason string) {
	n.warnings = append(n.warnings, ParseWarning{Row: n.row, Column: col, Value: value, Reason: reason})
}

func (n *normalizer) count(row []string, col string) Count {
	raw := n.cell(row, col)
	c, reason := parseCount(raw)
	if reason != "" {
		n.warn(col, raw, reason)
	}
	return c
}

func (n *normalizer) add(row []string) {
	n.row++
	if isBlank(row) {
		return
	}

	var ts *time.Time
	rawTS := n.cell(row, ColTimestamp)
	if t, ok := n.parseTime(rawTS, n.opts.location()); ok {
		ts = &t
	} else {
		n.warn(ColTimestamp, rawTS, "unparseable timestamp")
	}

	rec := NewRecord(
		n.row,
		ts,
		strings.TrimSpace(n.cell(row, ColUsername)),
		strings.TrimSpace(n.cell(row, ColWorkstation)),
		n.count(row, ColSourceTotes),
		n.count(row, ColDestinationTotes),
		n.count(row, ColTotalRefills),
	)

	if len(n.extraIx) > 0 {
		rec.Extra = make([]string, len(n.extraIx))
		for j, i := range n.extraIx {
			if i < len(row) {
				rec.Extra[j] = row[i]
			}
		}
	}

	n.records = append(n.records, rec)
}

func (n *normalizer) finish() *Dataset {
	if len(n.warnings) > 0 {
		log.Info().Int("records", len(n.records)).Int("warnings", len(n.warnings)).Msg("Picking log loaded with recovered cells")
		for _, w := range n.warnings {
			log.Debug().Int("row", w.Row).Str("column", w.Column).Str("value", w.Value).Msg(w.Reason)
		}
	} else {
		log.Info().Int("records", len(n.records)).Msg("Picking log loaded")
	}

	return &Dataset{
		Header:       n.header,
		ExtraColumns: n.extra,
		Records:      n.records,
		Warnings:     n.warnings,
		LoadedAt:     n.opts.now(),
	}
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
