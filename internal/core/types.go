package core

import "watercolumn/pkg/domain"

type (
	Measurement   = domain.Measurement
	Station       = domain.Station
	Cell          = domain.Cell
	Frame         = domain.Frame
	Column        = domain.Column
	FieldSet      = domain.FieldSet
	RowKey        = domain.RowKey
	ResultFilter  = domain.ResultFilter
	ResultSource  = domain.ResultSource
	SitePartition = domain.SitePartition
	PipelineKind  = domain.PipelineKind
	Anomaly       = domain.Anomaly
	AnomalyKind   = domain.AnomalyKind
)

const (
	PipelineGeneral = domain.PipelineGeneral
	PipelineTrend   = domain.PipelineTrend
)

const (
	AnomalyAmbiguousPivot    = domain.AnomalyAmbiguousPivot
	AnomalyUnmatchedCategory = domain.AnomalyUnmatchedCategory
)
