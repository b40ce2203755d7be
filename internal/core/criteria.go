package core

import (
	"fmt"

	"watercolumn/pkg/domain"
)

// Criteria column names match the adopted regulatory shorthand and are
// already canonical under NormalizeColumnName.
const (
	ColumnTotalNitrogenCriterion   = "TN_NNC"
	ColumnTotalPhosphorusCriterion = "TP_NNC"
	ColumnDissolvedOxygenCriterion = "DO_Conc"
)

// SitesFrame builds the station metadata frame with criteria annotations
// attached. Stations removed by the partition are dropped. A station whose
// region or bioregion text matches no lookup entry keeps null criteria and
// yields an unmatched-category anomaly; stations with no category text at
// all keep null criteria silently.
func SitesFrame(stations []Station, partition SitePartition) (Frame, []Anomaly) {
	frame := Frame{Columns: []Column{
		{Name: "station_id", Type: domain.ColumnString},
		{Name: "water_resource", Type: domain.ColumnString},
		{Name: "wbid", Type: domain.ColumnString},
		{Name: "nutrient_region", Type: domain.ColumnString},
		{Name: "bioregion", Type: domain.ColumnString},
		{Name: "county", Type: domain.ColumnString},
		{Name: "latitude", Type: domain.ColumnNumber},
		{Name: "longitude", Type: domain.ColumnNumber},
		{Name: "description", Type: domain.ColumnString},
		{Name: ColumnTotalNitrogenCriterion, Type: domain.ColumnNumber},
		{Name: ColumnTotalPhosphorusCriterion, Type: domain.ColumnNumber},
		{Name: ColumnDissolvedOxygenCriterion, Type: domain.ColumnNumber},
	}}

	var anomalies []Anomaly
	for _, st := range stations {
		if !partition.Keep(st.StationID) {
			continue
		}
		row := map[string]any{
			"station_id":      st.StationID,
			"water_resource":  strOrNil(st.WaterResource),
			"wbid":            strOrNil(st.WBID),
			"nutrient_region": strOrNil(st.NutrientRegion),
			"bioregion":       strOrNil(st.Bioregion),
			"county":          strOrNil(st.County),
			"latitude":        floatOrNil(st.Latitude),
			"longitude":       floatOrNil(st.Longitude),
			"description":     strOrNil(st.Description),
		}

		row[ColumnTotalNitrogenCriterion] = nil
		row[ColumnTotalPhosphorusCriterion] = nil
		if region := deref(st.NutrientRegion); region != "" {
			if c, ok := domain.LookupNutrientCriteria(region); ok {
				row[ColumnTotalNitrogenCriterion] = c.TotalNitrogen
				row[ColumnTotalPhosphorusCriterion] = c.TotalPhosphorus
			} else {
				anomalies = append(anomalies, unmatchedCategory(st.StationID, "nutrient region", region))
			}
		}

		row[ColumnDissolvedOxygenCriterion] = nil
		if bioregion := deref(st.Bioregion); bioregion != "" {
			if v, ok := domain.LookupDissolvedOxygen(bioregion); ok {
				row[ColumnDissolvedOxygenCriterion] = v
			} else {
				anomalies = append(anomalies, unmatchedCategory(st.StationID, "bioregion", bioregion))
			}
		}

		frame.Rows = append(frame.Rows, row)
	}
	return frame, anomalies
}

func unmatchedCategory(stationID, kind, value string) Anomaly {
	return Anomaly{
		Kind:      AnomalyUnmatchedCategory,
		Message:   fmt.Sprintf("%s %q matches no criteria table entry", kind, value),
		StationID: stationID,
		Category:  value,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func floatOrNil(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
