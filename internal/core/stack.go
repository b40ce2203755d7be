package core

import "watercolumn/pkg/domain"

// LongFrame renders measurement rows in stacked (long) form: the raw fields
// plus the legacy encoded "value | qualifier" cell, one row per measurement.
// Both the stacked export and the duplicates export use this layout.
func LongFrame(rows []Measurement) Frame {
	frame := Frame{Columns: []Column{
		{Name: "station_id", Type: domain.ColumnString},
		{Name: "random_sample_location_id", Type: domain.ColumnString},
		{Name: "sample_id", Type: domain.ColumnString},
		{Name: "water_resource", Type: domain.ColumnString},
		{Name: "collection_date", Type: domain.ColumnTimestamp},
		{Name: "sample_type", Type: domain.ColumnString},
		{Name: "matrix", Type: domain.ColumnString},
		{Name: "param_code", Type: domain.ColumnString},
		{Name: "parameter_name", Type: domain.ColumnString},
		{Name: "value", Type: domain.ColumnNumber},
		{Name: "value_qualifier", Type: domain.ColumnString},
		{Name: "units", Type: domain.ColumnString},
		{Name: "result", Type: domain.ColumnString},
	}}

	frame.Rows = make([]map[string]any, 0, len(rows))
	for _, m := range rows {
		cell := Cell{Value: m.Value, Qualifier: m.ValueQualifier}
		row := map[string]any{
			"station_id":                m.StationID,
			"random_sample_location_id": strOrNil(m.RandomLocationID),
			"sample_id":                 strOrNil(m.SampleID),
			"water_resource":            strOrNil(m.WaterResource),
			"collection_date":           domain.FormatCollectionDate(m.CollectionDate),
			"sample_type":               m.SampleType,
			"matrix":                    m.Matrix,
			"param_code":                m.ParamCode,
			"parameter_name":            m.ParameterName,
			"value":                     floatOrNil(m.Value),
			"value_qualifier":           m.ValueQualifier,
			"units":                     strOrNil(m.Units),
			"result":                    cell.Encode(),
		}
		frame.Rows = append(frame.Rows, row)
	}
	return frame
}
