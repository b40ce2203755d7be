package core

import (
	"testing"
)

func TestSitesFrameAnnotatesCriteria(t *testing.T) {
	stations := []Station{
		{StationID: "A", NutrientRegion: str("PANHANDLE WEST"), Bioregion: str("BIG BEND")},
		{StationID: "B", NutrientRegion: str(" peninsular "), Bioregion: str("EVERGLADES")},
	}
	frame, anomalies := SitesFrame(stations, nil)
	if len(anomalies) != 0 {
		t.Fatalf("expected clean annotation, got %+v", anomalies)
	}
	if len(frame.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(frame.Rows))
	}

	rowA := frame.Rows[0]
	if rowA[ColumnTotalNitrogenCriterion] != 0.67 || rowA[ColumnTotalPhosphorusCriterion] != 0.06 {
		t.Fatalf("unexpected panhandle west thresholds: %v / %v",
			rowA[ColumnTotalNitrogenCriterion], rowA[ColumnTotalPhosphorusCriterion])
	}
	if rowA[ColumnDissolvedOxygenCriterion] != float64(34) {
		t.Fatalf("unexpected big bend DO criterion: %v", rowA[ColumnDissolvedOxygenCriterion])
	}

	// Category text is trimmed and case-folded before lookup.
	rowB := frame.Rows[1]
	if rowB[ColumnTotalNitrogenCriterion] != 1.54 || rowB[ColumnTotalPhosphorusCriterion] != 0.12 {
		t.Fatalf("unexpected peninsular thresholds: %v / %v",
			rowB[ColumnTotalNitrogenCriterion], rowB[ColumnTotalPhosphorusCriterion])
	}
	if rowB[ColumnDissolvedOxygenCriterion] != float64(38) {
		t.Fatalf("unexpected everglades DO criterion: %v", rowB[ColumnDissolvedOxygenCriterion])
	}
}

func TestSitesFrameUnmatchedCategoryYieldsNullAndAnomaly(t *testing.T) {
	stations := []Station{
		{StationID: "X", NutrientRegion: str("ATLANTIS"), Bioregion: str("MORDOR")},
	}
	frame, anomalies := SitesFrame(stations, nil)
	row := frame.Rows[0]
	if row[ColumnTotalNitrogenCriterion] != nil || row[ColumnDissolvedOxygenCriterion] != nil {
		t.Fatalf("expected null criteria for unmatched categories, got %v / %v",
			row[ColumnTotalNitrogenCriterion], row[ColumnDissolvedOxygenCriterion])
	}
	if len(anomalies) != 2 {
		t.Fatalf("expected one anomaly per unmatched category, got %d", len(anomalies))
	}
	for _, a := range anomalies {
		if a.Kind != AnomalyUnmatchedCategory || a.StationID != "X" {
			t.Fatalf("unexpected anomaly: %+v", a)
		}
	}
	if anomalies[0].Category != "ATLANTIS" || anomalies[1].Category != "MORDOR" {
		t.Fatalf("expected offending text recorded, got %+v", anomalies)
	}
}

func TestSitesFrameMissingCategoryStaysSilent(t *testing.T) {
	stations := []Station{{StationID: "Y"}}
	frame, anomalies := SitesFrame(stations, nil)
	if len(anomalies) != 0 {
		t.Fatalf("expected no anomalies for absent categories, got %+v", anomalies)
	}
	row := frame.Rows[0]
	if row[ColumnTotalNitrogenCriterion] != nil || row[ColumnTotalPhosphorusCriterion] != nil || row[ColumnDissolvedOxygenCriterion] != nil {
		t.Fatalf("expected all criteria null, got %+v", row)
	}
}

func TestSitesFrameAppliesPartition(t *testing.T) {
	stations := []Station{
		{StationID: "keep"},
		{StationID: "drop"},
		{StationID: "absent"},
	}
	partition := SitePartition{"keep": true, "drop": false}
	frame, _ := SitesFrame(stations, partition)
	if len(frame.Rows) != 1 {
		t.Fatalf("expected only retained stations, got %d rows", len(frame.Rows))
	}
	if frame.Rows[0]["station_id"] != "keep" {
		t.Fatalf("unexpected surviving station: %v", frame.Rows[0]["station_id"])
	}
}

func TestSitesFrameNilPartitionKeepsAll(t *testing.T) {
	stations := []Station{{StationID: "A"}, {StationID: "B"}}
	frame, _ := SitesFrame(stations, nil)
	if len(frame.Rows) != 2 {
		t.Fatalf("expected nil partition to keep everything, got %d", len(frame.Rows))
	}
}
