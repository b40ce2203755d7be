package core

import (
	"time"

	"watercolumn/pkg/domain"
)

// Stage names one step of the transform chain. Stages are recorded on run
// metadata and appear as structured log fields.
type Stage string

// Pipeline stages in execution order. The duplicate partition only runs for
// the trend pipeline.
const (
	StageRaw                   Stage = "raw"
	StageQualifierFiltered     Stage = "qualifier_filtered"
	StageDuplicatesPartitioned Stage = "duplicates_partitioned"
	StageEncoded               Stage = "encoded"
	StagePivoted               Stage = "pivoted"
	StageSplit                 Stage = "split"
	StageNormalized            Stage = "normalized"
)

// RunInfo is the metadata attached to one pipeline run.
type RunInfo struct {
	Kind          PipelineKind        `json:"kind"`
	Filter        domain.ResultFilter `json:"filter"`
	Stage         Stage               `json:"stage"`
	GeneratedAt   time.Time           `json:"generated_at"`
	SourceRows    int                 `json:"source_rows"`
	WideRows      int                 `json:"wide_rows"`
	DuplicateRows int                 `json:"duplicate_rows"`
	StationCount  int                 `json:"station_count"`
}

// RunBundle is the explicit result of one pipeline run: every frame the run
// produced plus recorded anomalies. Bundles are returned by value and own
// their frames; nothing is written into shared state.
type RunBundle struct {
	Info RunInfo `json:"info"`
	// Results is the wide, split, normalized table.
	Results Frame `json:"results"`
	// Stacked is the qualifier-filtered long form with the encoded cell.
	Stacked Frame `json:"stacked"`
	// Sites is the station metadata frame with criteria annotations.
	Sites Frame `json:"sites"`
	// Duplicates holds the partitioned duplicate rows (trend pipeline) plus
	// any rows involved in ambiguous pivot cells, in long form.
	Duplicates Frame `json:"duplicates"`
	// Anomalies records every non-fatal data-quality finding of the run.
	Anomalies []Anomaly `json:"anomalies,omitempty"`
}

// HasDuplicates reports whether the duplicates frame carries any rows.
func (b RunBundle) HasDuplicates() bool {
	return len(b.Duplicates.Rows) > 0
}
