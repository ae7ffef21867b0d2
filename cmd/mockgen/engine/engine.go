package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"time"

	"picking-dash/internal/picklog"
)

// Scenarios understood by Generate.
const (
	ScenarioSteady   = "steady"
	ScenarioOutliers = "outliers"
	ScenarioDirty    = "dirty"
)

// Scenarios lists every supported scenario.
var Scenarios = []string{ScenarioSteady, ScenarioOutliers, ScenarioDirty}

// timestampLayout is the day-first layout picking exports use.
const timestampLayout = "02/01/2006 15:04"

type GeneratorConfig struct {
	Scenario     string
	Users        int
	Workstations int
	Days         int
	RowsPerDay   int
	Seed         int64
	// Now anchors the last generated day. Defaults to time.Now.
	Now time.Time
}

// Row is one generated picking event, already formatted as CSV cells.
type Row struct {
	Date             string
	Username         string
	Workstation      string
	SourceTotes      string
	DestinationTotes string
	TotalRefills     string
	Notes            string
}

// Header returns the column names written for cfg.
func (cfg GeneratorConfig) Header() []string {
	header := []string{
		picklog.ColTimestamp, picklog.ColUsername, picklog.ColWorkstation,
		string(picklog.SourceTotes), string(picklog.DestinationTotes), string(picklog.TotalRefills),
	}
	if cfg.Scenario == ScenarioDirty {
		header = append(header, "Notes")
	}
	return header
}

// Generate produces Days*RowsPerDay rows ending on cfg.Now, in chronological order per day.
//
// steady: every picker refills about a quarter of the totes they move.
// outliers: picker01 never refills and the last workstation refills a tenth of the others' rate.
// dirty: steady data with unparseable dates, non-numeric counters, idle rows and a free-text column.
func Generate(cfg GeneratorConfig) ([]Row, error) {
	switch cfg.Scenario {
	case ScenarioSteady, ScenarioOutliers, ScenarioDirty:
	default:
		return nil, fmt.Errorf("unknown scenario %q", cfg.Scenario)
	}
	if cfg.Users <= 0 || cfg.Workstations <= 0 || cfg.Days <= 0 || cfg.RowsPerDay <= 0 {
		return nil, fmt.Errorf("users, workstations, days and rows per day must be positive")
	}
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	first := time.Date(cfg.Now.Year(), cfg.Now.Month(), cfg.Now.Day(), 0, 0, 0, 0, cfg.Now.Location()).
		AddDate(0, 0, -(cfg.Days - 1))
	// Spread events over the whole day so every shift is represented
	spacing := 24 * time.Hour / time.Duration(cfg.RowsPerDay)

	rows := make([]Row, 0, cfg.Days*cfg.RowsPerDay)
	for day := 0; day < cfg.Days; day++ {
		start := first.AddDate(0, 0, day)
		for i := 0; i < cfg.RowsPerDay; i++ {
			n := len(rows)
			user := rng.Intn(cfg.Users)
			ws := rng.Intn(cfg.Workstations)
			at := start.Add(time.Duration(i)*spacing + time.Duration(rng.Int63n(int64(spacing))))

			source := 5 + rng.Int63n(26)
			dest := rng.Int63n(16)
			refills := 1 + (source+dest)/4 + rng.Int63n(3) - 1

			switch cfg.Scenario {
			case ScenarioOutliers:
				if user == 0 {
					refills = 0
				}
				if ws == cfg.Workstations-1 && cfg.Workstations > 1 {
					refills = refills / 10
				}
			}

			row := Row{
				Date:             at.Format(timestampLayout),
				Username:         fmt.Sprintf("picker%02d", user+1),
				Workstation:      fmt.Sprintf("WS%d", ws+1),
				SourceTotes:      strconv.FormatInt(source, 10),
				DestinationTotes: strconv.FormatInt(dest, 10),
				TotalRefills:     strconv.FormatInt(refills, 10),
			}
			if cfg.Scenario == ScenarioDirty {
				dirty(&row, n, rng)
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// dirty damages row n on a fixed schedule so every generated file carries each defect.
func dirty(row *Row, n int, rng *rand.Rand) {
	switch {
	case n%20 == 19:
		row.Date = "not recorded"
	case n%25 == 24:
		row.SourceTotes = "n/a"
	case n%30 == 29:
		row.SourceTotes, row.DestinationTotes, row.TotalRefills = "0", "0", "0"
	}
	if rng.Intn(10) == 0 {
		row.Notes = `jam at "conveyor", cleared`
	}
}

// Write encodes header and rows as CSV, calling progress after each row when non-nil.
func Write(w io.Writer, header []string, rows []Row, progress func()) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{r.Date, r.Username, r.Workstation, r.SourceTotes, r.DestinationTotes, r.TotalRefills}
		if len(header) > len(record) {
			record = append(record, r.Notes)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
		if progress != nil {
			progress()
		}
	}
	cw.Flush()
	return cw.Error()
}
