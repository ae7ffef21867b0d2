package stats

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func outlierFixture() GroupTable {
	return GroupTable{
		Dimension: ByUser,
		Field:     "Username",
		Groups: []GroupAggregate{
			{Key: "alice", Parts: []string{"alice"}, TotalRefills: 10, Efficiency: DefinedRatio(0.4)},
			{Key: "bob", Parts: []string{"bob"}, TotalRefills: 2, Efficiency: DefinedRatio(0.1)},
			{Key: "carol", Parts: []string{"carol"}, TotalRefills: 0, Efficiency: Undefined},
			{Key: "dave", Parts: []string{"dave"}, TotalRefills: 12, Efficiency: DefinedRatio(0.3)},
		},
	}
}

func flagged(r OutlierReport) []string {
	keys := []string{}
	for _, g := range r.Outliers {
		keys = append(keys, g.Key)
	}
	return keys
}

func TestDetectOutliers(t *testing.T) {
	table := outlierFixture()
	report := DetectOutliers(table)

	if math.Abs(report.MeanEfficiency-0.8/3) > 1e-12 {
		t.Errorf("Expected mean efficiency %v, got %v", 0.8/3, report.MeanEfficiency)
	}
	if report.MeanRefills != 6 {
		t.Errorf("Expected mean refills 6, got %v", report.MeanRefills)
	}
	if report.Threshold != OutlierThreshold {
		t.Errorf("Expected threshold %v, got %v", OutlierThreshold, report.Threshold)
	}
	if diff := cmp.Diff([]string{"bob", "carol"}, flagged(report)); diff != "" {
		t.Errorf("Unexpected outliers (-want +got):\n%s", diff)
	}

	bob := report.Groups[1]
	if !bob.EfficiencyOutlier || !bob.RefillOutlier {
		t.Errorf("Expected bob to carry both flags, got %+v", bob)
	}
	carol := report.Groups[2]
	if carol.EfficiencyOutlier || !carol.RefillOutlier {
		t.Errorf("Expected undefined efficiency never to be flagged, got %+v", carol)
	}

	// The input table is left untouched.
	for _, g := range table.Groups {
		if g.IsOutlier() {
			t.Errorf("DetectOutliers mutated input group %s", g.Key)
		}
	}
}

func TestDetectOutliers_ScalingInvariance(t *testing.T) {
	base := DetectOutliers(outlierFixture())

	for _, factor := range []int64{2, 7, 1000} {
		scaled := outlierFixture()
		for i := range scaled.Groups {
			scaled.Groups[i].TotalRefills *= factor
		}
		report := DetectOutliers(scaled)
		if diff := cmp.Diff(flagged(base), flagged(report)); diff != "" {
			t.Errorf("Flags changed under scaling by %d (-want +got):\n%s", factor, diff)
		}
	}
}

func TestDetectOutliers_Empty(t *testing.T) {
	report := DetectOutliers(GroupTable{Dimension: ByDate, EmptyReason: ReasonNoDatedRecords})

	if report.MeanEfficiency != 0 || report.MeanRefills != 0 {
		t.Errorf("Expected zero means, got %v / %v", report.MeanEfficiency, report.MeanRefills)
	}
	if report.Outliers == nil || len(report.Outliers) != 0 {
		t.Errorf("Expected an empty, non-nil outlier set, got %v", report.Outliers)
	}
	if report.EmptyReason != ReasonNoDatedRecords {
		t.Errorf("Expected reason to carry over, got %q", report.EmptyReason)
	}

	if r := DetectOutliers(GroupTable{}); r.EmptyReason != ReasonNoRecords {
		t.Errorf("Expected default reason, got %q", r.EmptyReason)
	}
}

func TestDetectOutliers_UniformGroups(t *testing.T) {
	table := GroupTable{Dimension: ByWorkstation, Groups: []GroupAggregate{
		{Key: "WS1", TotalRefills: 5, Efficiency: DefinedRatio(0.2)},
		{Key: "WS2", TotalRefills: 5, Efficiency: DefinedRatio(0.2)},
	}}
	if r := DetectOutliers(table); len(r.Outliers) != 0 {
		t.Errorf("Expected no outliers among identical groups, got %v", flagged(r))
	}
}

func TestDetectOutliers_AllEfficienciesUndefined(t *testing.T) {
	table := GroupTable{Dimension: ByUser, Groups: []GroupAggregate{
		{Key: "a", TotalRefills: 0, Efficiency: Undefined},
		{Key: "b", TotalRefills: 0, Efficiency: Undefined},
	}}
	r := DetectOutliers(table)
	if r.MeanEfficiency != 0 {
		t.Errorf("Expected zero mean efficiency, got %v", r.MeanEfficiency)
	}
	// 0 < 0.5 * 0 is false, so nothing is flagged.
	if len(r.Outliers) != 0 {
		t.Errorf("Expected no outliers, got %v", flagged(r))
	}
}
