// Package domain defines the measurement entities, value types, and
// data-quality primitives used by watercolumn.
package domain

import "time"

// PipelineKind identifies which transform chain a run executes.
type PipelineKind string

// Supported pipeline kinds. The trend pipeline partitions duplicate
// (station, date, parameter) groups before pivoting; the general pipeline
// does not. The asymmetry mirrors the upstream correction workflow: trend
// duplicates are exported for manual review, general results are not.
const (
	// PipelineGeneral produces the wide results table without a duplicate split.
	PipelineGeneral PipelineKind = "general"
	// PipelineTrend partitions duplicates into a separate export before pivoting.
	PipelineTrend PipelineKind = "trend"
)

// PartitionsDuplicates reports whether the pipeline forks duplicate keys into
// a separate export prior to the pivot.
func (k PipelineKind) PartitionsDuplicates() bool {
	return k == PipelineTrend
}

// Measurement is one long-form result row: a single (sample, parameter)
// observation as returned by the source collaborator. Rows are immutable once
// fetched; annotation happens on derived frames, never in place.
type Measurement struct {
	StationID        string    `json:"station_id"`
	RandomLocationID *string   `json:"random_sample_location_id,omitempty"`
	SampleID         *string   `json:"sample_id,omitempty"`
	WaterResource    *string   `json:"water_resource,omitempty"`
	CollectionDate   time.Time `json:"collection_date"`
	SampleType       string    `json:"sample_type"`
	Matrix           string    `json:"matrix"`
	ParamCode        string    `json:"param_code"`
	ParameterName    string    `json:"parameter_name"`
	Value            *float64  `json:"value"`
	ValueQualifier   string    `json:"value_qualifier"`
	Units            *string   `json:"units,omitempty"`
}

// Station carries site metadata joined for the sites export and criteria
// annotation.
type Station struct {
	StationID      string   `json:"station_id"`
	WaterResource  *string  `json:"water_resource,omitempty"`
	WBID           *string  `json:"wbid,omitempty"`
	NutrientRegion *string  `json:"nutrient_region,omitempty"`
	Bioregion      *string  `json:"bioregion,omitempty"`
	County         *string  `json:"county,omitempty"`
	Latitude       *float64 `json:"latitude,omitempty"`
	Longitude      *float64 `json:"longitude,omitempty"`
	Description    *string  `json:"description,omitempty"`
}

// SitePartition is an externally computed retain/remove decision per station,
// typically produced by a GIS collaborator. A nil partition retains everything.
type SitePartition map[string]bool

// Keep reports whether the partition retains the given station.
func (p SitePartition) Keep(stationID string) bool {
	if p == nil {
		return true
	}
	keep, ok := p[stationID]
	if !ok {
		return false
	}
	return keep
}
