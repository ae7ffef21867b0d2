package picklog

import (
	"encoding/json"
	"strconv"
	"time"
)

// Source column names. Header cells are whitespace-trimmed before they are matched against these.
const (
	ColTimestamp        = "Date"
	ColUsername         = "Username"
	ColWorkstation      = "Workstations"
	ColSourceTotes      = "SourceTotes"
	ColDestinationTotes = "DestinationTotes"
	ColTotalRefills     = "TotalRefills"
)

// RequiredColumns lists the columns every picking log must carry, in canonical order.
var RequiredColumns = []string{
	ColTimestamp,
	ColUsername,
	ColWorkstation,
	ColSourceTotes,
	ColDestinationTotes,
	ColTotalRefills,
}

// Metric names one of the three numeric counters of a picking event.
type Metric string

const (
	SourceTotes      Metric = ColSourceTotes
	DestinationTotes Metric = ColDestinationTotes
	TotalRefills     Metric = ColTotalRefills
)

// Metrics is the canonical display order of the counters.
var Metrics = []Metric{SourceTotes, DestinationTotes, TotalRefills}

// ParseMetric resolves a counter name, accepting the column name exactly.
func ParseMetric(name string) (Metric, bool) {
	for _, m := range Metrics {
		if string(m) == name {
			return m, true
		}
	}
	return "", false
}

// Count is a nullable non-negative counter cell.
type Count struct {
	Value int64
	Valid bool
}

// CountOf returns a valid Count.
func CountOf(v int64) Count {
	return Count{Value: v, Valid: true}
}

// OrZero returns the value, treating null as a zero contribution.
func (c Count) OrZero() int64 {
	if !c.Valid {
		return 0
	}
	return c.Value
}

// String renders the cell the way it is written on export; null is the empty string.
func (c Count) String() string {
	if !c.Valid {
		return ""
	}
	return strconv.FormatInt(c.Value, 10)
}

func (c Count) MarshalJSON() ([]byte, error) {
	if !c.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(c.Value, 10)), nil
}

func (c *Count) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = Count{}
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = CountOf(v)
	return nil
}

// Record is a single picking event after parsing, with its derived fields attached.
type Record struct {
	// Row is the 1-based data row in the source file (the header is row 0). Blank lines count.
	Row int `json:"row"`
	// Timestamp is nil when the source cell could not be parsed.
	Timestamp *time.Time `json:"timestamp"`
	// Username is the operator identity.
	Username string `json:"username"`
	// Workstation is the station identity.
	Workstation string `json:"workstation"`

	SourceTotes      Count `json:"sourceTotes"`
	DestinationTotes Count `json:"destinationTotes"`
	TotalRefills     Count `json:"totalRefills"`

	// Date is the calendar date of Timestamp (YYYY-MM-DD), empty when undated.
	Date string `json:"date,omitempty"`
	// Time is the time of day of Timestamp (HH:MM:SS), empty when undated.
	Time string `json:"time,omitempty"`
	// Shift is derived from the hour of Timestamp.
	Shift Shift `json:"shift"`

	// Extra holds the verbatim cells of non-required columns, aligned with Dataset.ExtraColumns.
	Extra []string `json:"-"`
}

// NewRecord builds a record and attaches its derived fields.
func NewRecord(row int, ts *time.Time, user, workstation string, source, dest, refills Count) Record {
	r := Record{
		Row:              row,
		Timestamp:        ts,
		Username:         user,
		Workstation:      workstation,
		SourceTotes:      source,
		DestinationTotes: dest,
		TotalRefills:     refills,
	}
	r.derive()
	return r
}

func (r *Record) derive() {
	r.Shift = ShiftOf(r.Timestamp)
	if r.Timestamp == nil {
		r.Date, r.Time = "", ""
		return
	}
	r.Date = r.Timestamp.Format(DateLayout)
	r.Time = r.Timestamp.Format(TimeLayout)
}

// Dated reports whether the record has a usable timestamp.
func (r Record) Dated() bool {
	return r.Timestamp != nil
}

// Value returns the counter cell for m.
func (r Record) Value(m Metric) Count {
	switch m {
	case SourceTotes:
		return r.SourceTotes
	case DestinationTotes:
		return r.DestinationTotes
	case TotalRefills:
		return r.TotalRefills
	}
	return Count{}
}

// Totes is the efficiency denominator with nulls treated as zero.
func (r Record) Totes() int64 {
	return r.SourceTotes.OrZero() + r.DestinationTotes.OrZero()
}

// Dataset is an immutable parsed snapshot of one uploaded file.
type Dataset struct {
	// ID is the hex SHA-256 of the uploaded bytes.
	ID string `json:"id"`
	// Name is the uploaded file name, informational only.
	Name string `json:"name"`
	// Header is the trimmed source header in its original order.
	Header []string `json:"header"`
	// ExtraColumns are the header names that are not required columns, in header order.
	ExtraColumns []string `json:"extraColumns,omitempty"`

	Records  []Record       `json:"-"`
	Warnings []ParseWarning `json:"-"`
	LoadedAt time.Time      `json:"loadedAt"`
}
