package core

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"watercolumn/internal/infra/source/memory"
	"watercolumn/pkg/domain"
)

// Service runs the measurement pipelines against a source collaborator and
// returns explicit result bundles. It owns no persistent state; every run's
// intermediate tables live and die with the run.
type Service struct {
	source  ResultSource
	logger  Logger
	clock   Clock
	metrics MetricsRecorder
	tracer  Tracer
}

// NewService constructs a service over the given source collaborator.
func NewService(source ResultSource, opts ...ServiceOption) *Service {
	options := defaultServiceOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return &Service{
		source:  source,
		logger:  options.logger,
		clock:   options.clock,
		metrics: options.metrics,
		tracer:  options.tracer,
	}
}

// NewInMemoryService wires a service to a fresh in-memory source and returns
// both, so tests and fixtures can seed measurement rows directly.
func NewInMemoryService(opts ...ServiceOption) (*Service, *memory.Source) {
	src := NewMemorySource()
	return NewService(src, opts...), src
}

// Source returns the underlying measurement source.
func (s *Service) Source() ResultSource {
	return s.source
}

// RunRequest carries the caller's filter plus the externally computed site
// partition, when a geospatial collaborator supplied one.
type RunRequest struct {
	Filter    ResultFilter
	Partition SitePartition
}

// RunGeneral executes the general results pipeline: no duplicate partition.
func (s *Service) RunGeneral(ctx context.Context, req RunRequest) (RunBundle, error) {
	return s.run(ctx, PipelineGeneral, req)
}

// RunTrend executes the trend pipeline, forking duplicate (station, date,
// parameter) groups into the duplicates frame before pivoting.
func (s *Service) RunTrend(ctx context.Context, req RunRequest) (RunBundle, error) {
	return s.run(ctx, PipelineTrend, req)
}

// Sites fetches and annotates station metadata without running a transform
// chain.
func (s *Service) Sites(ctx context.Context, req RunRequest) (Frame, []Anomaly, error) {
	const op = "fetch_sites"
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, op)

	frame, anomalies, err := s.fetchSites(ctx, req)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, time.Since(started))
	if err != nil {
		s.logger.Error("sites fetch failed", "error", err)
		return Frame{}, nil, err
	}
	s.logger.Info("sites fetch complete", "stations", len(frame.Rows), "anomalies", len(anomalies))
	return frame, anomalies, nil
}

func (s *Service) fetchSites(ctx context.Context, req RunRequest) (Frame, []Anomaly, error) {
	if err := req.Filter.Validate(); err != nil {
		return Frame{}, nil, err
	}
	stations, err := s.source.FetchStations(ctx, req.Filter)
	if err != nil {
		return Frame{}, nil, err
	}
	frame, anomalies := SitesFrame(stations, req.Partition)
	return frame, anomalies, nil
}

func (s *Service) run(ctx context.Context, kind PipelineKind, req RunRequest) (RunBundle, error) {
	op := "run_" + string(kind)
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, op)

	bundle, err := s.execute(ctx, kind, req)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, time.Since(started))
	if err != nil {
		s.logger.Error("pipeline run failed", "kind", kind, "error", err)
		return RunBundle{}, err
	}
	s.logger.Info("pipeline run complete",
		"kind", kind,
		"wide_rows", bundle.Info.WideRows,
		"duplicate_rows", bundle.Info.DuplicateRows,
		"anomalies", len(bundle.Anomalies))
	return bundle, nil
}

func (s *Service) execute(ctx context.Context, kind PipelineKind, req RunRequest) (RunBundle, error) {
	// Validation failures abort before any I/O.
	if err := req.Filter.Validate(); err != nil {
		return RunBundle{}, err
	}

	// Results and stations are independent queries; fetch them concurrently.
	var (
		rows     []Measurement
		stations []Station
	)
	g, fetchCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.source.FetchResults(fetchCtx, req.Filter)
		return err
	})
	g.Go(func() error {
		var err error
		stations, err = s.source.FetchStations(fetchCtx, req.Filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return RunBundle{}, err
	}
	s.stageDone(StageRaw, "rows", len(rows))

	filtered := domain.NullFatalValues(rows)
	s.stageDone(StageQualifierFiltered, "rows", len(filtered))

	pipelineRows := filtered
	var duplicateRows []Measurement
	if kind.PartitionsDuplicates() {
		pipelineRows, duplicateRows = PartitionDuplicates(filtered)
		s.stageDone(StageDuplicatesPartitioned, "uniques", len(pipelineRows), "duplicates", len(duplicateRows))
	}

	// The native cells carry value and qualifier as a pair; the encoded
	// string form is materialized only in the stacked frame.
	s.stageDone(StageEncoded, "rows", len(pipelineRows))

	pivoted, err := Pivot(pipelineRows, kind.IdentityFields())
	if err != nil {
		return RunBundle{}, err
	}
	s.stageDone(StagePivoted, "rows", len(pivoted.Rows), "parameters", len(pivoted.Parameters))
	if len(pivoted.Anomalies) > 0 {
		s.logger.Warn("ambiguous pivot cells detected", "count", len(pivoted.Anomalies))
	}

	split := SplitColumns(pivoted)
	s.stageDone(StageSplit, "columns", len(split.Columns))

	wide := NormalizeFrameColumns(split)
	s.stageDone(StageNormalized, "columns", len(wide.Columns))

	wide = filterWideRows(wide, req.Partition)

	sites, siteAnomalies := SitesFrame(stations, req.Partition)
	if len(siteAnomalies) > 0 {
		s.logger.Warn("unmatched criteria categories", "count", len(siteAnomalies))
	}

	sideChannel := make([]Measurement, 0, len(duplicateRows)+len(pivoted.Collisions))
	sideChannel = append(sideChannel, duplicateRows...)
	sideChannel = append(sideChannel, pivoted.Collisions...)

	anomalies := make([]Anomaly, 0, len(pivoted.Anomalies)+len(siteAnomalies))
	anomalies = append(anomalies, pivoted.Anomalies...)
	anomalies = append(anomalies, siteAnomalies...)

	bundle := RunBundle{
		Info: RunInfo{
			Kind:          kind,
			Filter:        req.Filter,
			Stage:         StageNormalized,
			GeneratedAt:   s.clock.Now(),
			SourceRows:    len(rows),
			WideRows:      len(wide.Rows),
			DuplicateRows: len(sideChannel),
			StationCount:  len(sites.Rows),
		},
		Results:    wide,
		Stacked:    LongFrame(filtered),
		Sites:      sites,
		Duplicates: LongFrame(sideChannel),
		Anomalies:  anomalies,
	}
	return bundle, nil
}

func (s *Service) stageDone(stage Stage, args ...any) {
	s.logger.Debug("stage complete", append([]any{"stage", stage}, args...)...)
}

func filterWideRows(frame Frame, partition SitePartition) Frame {
	if partition == nil {
		return frame
	}
	kept := frame.Rows[:0:0]
	for _, row := range frame.Rows {
		if sid, ok := row["station_id"].(string); ok && !partition.Keep(sid) {
			continue
		}
		kept = append(kept, row)
	}
	frame.Rows = kept
	return frame
}
