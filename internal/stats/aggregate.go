package stats

import (
	"fmt"
	"sort"
	"strings"

	"picking-dash/internal/picklog"
)

// keySeparator joins the components of a composite group key for display.
const keySeparator = " / "

// keyParts returns the group key components of r under dim, or false when r does not belong
// to any group of that dimension (undated records under a date dimension).
func keyParts(r picklog.Record, dim Dimension) ([]string, bool) {
	switch dim {
	case ByDate:
		if !r.Dated() {
			return nil, false
		}
		return []string{r.Date}, true
	case ByUser:
		return []string{r.Username}, true
	case ByWorkstation:
		return []string{r.Workstation}, true
	case ByShift:
		return []string{string(r.Shift)}, true
	case ByDateUser:
		if !r.Dated() {
			return nil, false
		}
		return []string{r.Date, r.Username}, true
	}
	return nil, false
}

// Aggregate groups records along dim and returns one aggregate per group in natural key order:
// dates ascending, shifts AM/PM/NIGHT/UNKNOWN, everything else lexicographic. Null counters
// contribute zero. Records with a null timestamp are left out of date-keyed groupings.
func Aggregate(records []picklog.Record, dim Dimension) (GroupTable, error) {
	if _, err := ParseDimension(string(dim)); err != nil {
		return GroupTable{}, err
	}

	table := GroupTable{Dimension: dim, Field: dim.Field()}

	type acc struct {
		agg    GroupAggregate
		ratios []Ratio
	}
	groups := make(map[string]*acc)
	var order []string

	for _, r := range records {
		parts, ok := keyParts(r, dim)
		if !ok {
			continue
		}
		key := strings.Join(parts, keySeparator)
		g, exists := groups[key]
		if !exists {
			g = &acc{agg: GroupAggregate{Key: key, Parts: parts}}
			groups[key] = g
			order = append(order, key)
		}
		g.agg.Records++
		g.agg.SourceTotes += r.SourceTotes.OrZero()
		g.agg.DestinationTotes += r.DestinationTotes.OrZero()
		g.agg.TotalRefills += r.TotalRefills.OrZero()
		g.ratios = append(g.ratios, RecordEfficiency(r))
	}

	table.Groups = make([]GroupAggregate, 0, len(order))
	for _, key := range order {
		g := groups[key]
		g.agg.Efficiency = MeanRatio(g.ratios)
		table.Groups = append(table.Groups, g.agg)
	}
	sortNatural(table.Groups, dim)

	if len(table.Groups) == 0 {
		table.EmptyReason = emptyReason(records, dim)
	}
	return table, nil
}

// AggregateForDisplay is the ranked view of Aggregate: groups whose sum for metric is zero are
// dropped and the rest are ordered by that sum, largest first, ties broken by natural order.
// Outlier detection must use Aggregate, not this view.
func AggregateForDisplay(records []picklog.Record, dim Dimension, metric picklog.Metric) (GroupTable, error) {
	if _, ok := picklog.ParseMetric(string(metric)); !ok {
		return GroupTable{}, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}
	table, err := Aggregate(records, dim)
	if err != nil {
		return GroupTable{}, err
	}
	table.RankedBy = metric
	if table.Empty() {
		return table, nil
	}

	ranked := make([]GroupAggregate, 0, len(table.Groups))
	for _, g := range table.Groups {
		if g.Sum(metric) != 0 {
			ranked = append(ranked, g)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Sum(metric) > ranked[j].Sum(metric)
	})
	table.Groups = ranked
	if len(ranked) == 0 {
		table.EmptyReason = ReasonAllZeroForMetric
	}
	return table, nil
}

func sortNatural(groups []GroupAggregate, dim Dimension) {
	sort.SliceStable(groups, func(i, j int) bool {
		if dim == ByShift {
			return picklog.Shift(groups[i].Key).Rank() < picklog.Shift(groups[j].Key).Rank()
		}
		// Date keys are YYYY-MM-DD, so lexicographic order is chronological.
		a, b := groups[i].Parts, groups[j].Parts
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
}

func emptyReason(records []picklog.Record, dim Dimension) string {
	if len(records) > 0 && dim.dated() {
		return ReasonNoDatedRecords
	}
	return ReasonNoRecords
}

// Totals sums every counter over records and counts distinct users and workstations.
func Totals(records []picklog.Record) Summary {
	s := Summary{Records: len(records)}
	users := make(map[string]struct{})
	stations := make(map[string]struct{})
	for _, r := range records {
		s.SourceTotes += r.SourceTotes.OrZero()
		s.DestinationTotes += r.DestinationTotes.OrZero()
		s.TotalRefills += r.TotalRefills.OrZero()
		if !r.Dated() {
			s.Undated++
		}
		users[r.Username] = struct{}{}
		stations[r.Workstation] = struct{}{}
	}
	s.Users = len(users)
	s.Workstations = len(stations)
	s.Efficiency = MeanEfficiency(records)
	if len(records) == 0 {
		s.EmptyReason = ReasonNoRecords
	}
	return s
}
