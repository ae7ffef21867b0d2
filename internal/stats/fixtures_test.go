package stats

import (
	"time"

	"picking-dash/internal/picklog"
)

func ts(s string) *time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func rec(row int, when *time.Time, user, ws string, src, dst, refills int64) picklog.Record {
	return picklog.NewRecord(row, when, user, ws, picklog.CountOf(src), picklog.CountOf(dst), picklog.CountOf(refills))
}

// scenarioRecords is the three-record reference fixture.
func scenarioRecords() []picklog.Record {
	return []picklog.Record{
		rec(1, ts("2024-01-01 08:00"), "User A", "WS1", 10, 10, 5),
		rec(2, ts("2024-01-01 09:00"), "User A", "WS1", 0, 0, 0),
		rec(3, ts("2024-01-02 23:30"), "User B", "WS2", 20, 0, 0),
	}
}

func datasetOf(records []picklog.Record) *picklog.Dataset {
	return &picklog.Dataset{ID: "test", Name: "test.csv", Header: picklog.RequiredColumns, Records: records}
}

func findGroup(t GroupTable, key string) (GroupAggregate, bool) {
	for _, g := range t.Groups {
		if g.Key == key {
			return g, true
		}
	}
	return GroupAggregate{}, false
}
