package stats

// OutlierThreshold is the fraction of the cross-group mean below which a group is flagged.
const OutlierThreshold = 0.5

// OutlierReport is the result of outlier detection over one grouping.
type OutlierReport struct {
	Dimension Dimension `json:"dimension"`
	Field     string    `json:"field"`
	// MeanEfficiency is the mean of the defined group efficiencies, 0 when none are defined.
	MeanEfficiency float64 `json:"meanEfficiency"`
	// MeanRefills is the mean of the per-group refill sums, 0 for an empty grouping.
	MeanRefills float64 `json:"meanRefills"`
	Threshold   float64 `json:"threshold"`

	// Groups is every group of the dimension, annotated with its flags.
	Groups []GroupAggregate `json:"groups"`
	// Outliers is the subset of Groups with at least one flag set, in the same order.
	Outliers    []GroupAggregate `json:"outliers"`
	EmptyReason string           `json:"emptyReason,omitempty"`
}

// DetectOutliers flags groups whose mean efficiency or refill sum falls below
// OutlierThreshold times the respective cross-group mean. Groups with undefined efficiency are
// left out of the efficiency baseline and are never efficiency outliers. The input table is
// not modified.
func DetectOutliers(table GroupTable) OutlierReport {
	report := OutlierReport{
		Dimension:   table.Dimension,
		Field:       table.Field,
		Threshold:   OutlierThreshold,
		Groups:      make([]GroupAggregate, len(table.Groups)),
		Outliers:    []GroupAggregate{},
		EmptyReason: table.EmptyReason,
	}
	copy(report.Groups, table.Groups)
	if len(report.Groups) == 0 {
		if report.EmptyReason == "" {
			report.EmptyReason = ReasonNoRecords
		}
		return report
	}

	var efficiencies []float64
	refills := make([]int64, 0, len(report.Groups))
	for _, g := range report.Groups {
		if g.Efficiency.Defined {
			efficiencies = append(efficiencies, g.Efficiency.Value)
		}
		refills = append(refills, g.TotalRefills)
	}
	report.MeanEfficiency = CalculateMean(efficiencies)
	report.MeanRefills = CalculateMeanDiscrete(refills)

	effCut := OutlierThreshold * report.MeanEfficiency
	refillCut := OutlierThreshold * report.MeanRefills
	for i := range report.Groups {
		g := &report.Groups[i]
		g.EfficiencyOutlier = g.Efficiency.Defined && g.Efficiency.Value < effCut
		g.RefillOutlier = float64(g.TotalRefills) < refillCut
		if g.IsOutlier() {
			report.Outliers = append(report.Outliers, *g)
		}
	}
	return report
}
