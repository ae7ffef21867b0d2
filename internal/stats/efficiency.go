package stats

import (
	"fmt"
	"strconv"

	"picking-dash/internal/picklog"
)

// Ratio is an efficiency value that may be undefined. An undefined ratio is distinct from a
// true zero and is excluded from every mean.
type Ratio struct {
	Value   float64
	Defined bool
}

// Undefined is the ratio produced by a zero denominator.
var Undefined = Ratio{}

// DefinedRatio wraps a computed value.
func DefinedRatio(v float64) Ratio {
	return Ratio{Value: v, Defined: true}
}

// RatioOf computes refills / totes. A zero denominator yields Undefined, never a division fault.
func RatioOf(refills, totes int64) Ratio {
	if totes == 0 {
		return Undefined
	}
	return DefinedRatio(float64(refills) / float64(totes))
}

// RecordEfficiency is TotalRefills / (SourceTotes + DestinationTotes) for one record, with null
// counters contributing zero.
func RecordEfficiency(r picklog.Record) Ratio {
	return RatioOf(r.TotalRefills.OrZero(), r.Totes())
}

// MeanRatio averages the defined ratios. It is Undefined when none are defined.
func MeanRatio(ratios []Ratio) Ratio {
	values := make([]float64, 0, len(ratios))
	for _, r := range ratios {
		if r.Defined {
			values = append(values, r.Value)
		}
	}
	if len(values) == 0 {
		return Undefined
	}
	return DefinedRatio(CalculateMean(values))
}

// MeanEfficiency is the mean of the defined per-record efficiencies (mean of ratios, not the
// ratio of summed counters).
func MeanEfficiency(records []picklog.Record) Ratio {
	ratios := make([]Ratio, len(records))
	for i, r := range records {
		ratios[i] = RecordEfficiency(r)
	}
	return MeanRatio(ratios)
}

// String renders the full-precision value; undefined renders empty.
func (r Ratio) String() string {
	if !r.Defined {
		return ""
	}
	return strconv.FormatFloat(r.Value, 'g', -1, 64)
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.Defined {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(r.Value, 'g', -1, 64)), nil
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Undefined
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid ratio %s: %w", data, err)
	}
	*r = DefinedRatio(v)
	return nil
}

// EfficiencyColumn appends the per-record efficiency on export.
var EfficiencyColumn = picklog.DerivedColumn{
	Name:  "Efficiency",
	Value: func(r picklog.Record) string { return RecordEfficiency(r).String() },
}
