// Package memory provides a seedable in-memory measurement source used for
// tests and ephemeral runs.
package memory

import (
	"context"
	"sync"

	"watercolumn/pkg/domain"
)

// Compile-time contract assertion ensuring the source satisfies the domain interface.
var _ domain.ResultSource = (*Source)(nil)

type (
	// Measurement aliases domain.Measurement for in-memory fixtures.
	Measurement = domain.Measurement
	// Station aliases domain.Station.
	Station = domain.Station
	// ResultFilter aliases domain.ResultFilter.
	ResultFilter = domain.ResultFilter
)

// Source serves seeded rows, applying the same filter semantics the SQL
// sources express as WHERE clauses.
type Source struct {
	mu       sync.RWMutex
	results  []Measurement
	stations []Station
	failWith error
}

// NewSource constructs an empty source.
func NewSource() *Source {
	return &Source{}
}

// SeedResults appends measurement rows to the source.
func (s *Source) SeedResults(rows ...Measurement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, rows...)
}

// SeedStations appends station rows to the source.
func (s *Source) SeedStations(stations ...Station) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stations = append(s.stations, stations...)
}

// FailWith makes every subsequent call return err wrapped as a source error.
// A nil err restores normal operation.
func (s *Source) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

// FetchResults returns seeded rows matching the filter, in seed order.
func (s *Source) FetchResults(ctx context.Context, filter ResultFilter) ([]Measurement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return nil, domain.SourceError{Op: "query results", Err: s.failWith}
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.SourceError{Op: "query results", Err: err}
	}
	matched := make([]Measurement, 0, len(s.results))
	for _, row := range s.results {
		if matchesResult(row, filter) {
			matched = append(matched, row)
		}
	}
	return matched, nil
}

// FetchStations returns seeded stations matching the filter's resource and
// station clauses.
func (s *Source) FetchStations(ctx context.Context, filter ResultFilter) ([]Station, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return nil, domain.SourceError{Op: "query stations", Err: s.failWith}
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.SourceError{Op: "query stations", Err: err}
	}
	matched := make([]Station, 0, len(s.stations))
	for _, st := range s.stations {
		if matchesStation(st, filter) {
			matched = append(matched, st)
		}
	}
	return matched, nil
}

// Ping reports the injected failure, if any.
func (s *Source) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.failWith != nil {
		return domain.SourceError{Op: "ping", Err: s.failWith}
	}
	return nil
}

// Close is a no-op for the in-memory source.
func (s *Source) Close() error {
	return nil
}

func matchesResult(row Measurement, filter ResultFilter) bool {
	if len(filter.WaterResources) > 0 && !containsString(filter.WaterResources, strValue(row.WaterResource)) {
		return false
	}
	if len(filter.StationIDs) > 0 && !containsString(filter.StationIDs, row.StationID) {
		return false
	}
	if len(filter.Years) > 0 && !containsInt(filter.Years, row.CollectionDate.UTC().Year()) {
		return false
	}
	if filter.DateFrom != nil && row.CollectionDate.Before(*filter.DateFrom) {
		return false
	}
	if filter.DateTo != nil && row.CollectionDate.After(*filter.DateTo) {
		return false
	}
	if len(filter.Parameters) > 0 && !containsString(filter.Parameters, row.ParameterName) {
		return false
	}
	if len(filter.SampleTypes) > 0 && !containsString(filter.SampleTypes, row.SampleType) {
		return false
	}
	return true
}

func matchesStation(st Station, filter ResultFilter) bool {
	if len(filter.WaterResources) > 0 && !containsString(filter.WaterResources, strValue(st.WaterResource)) {
		return false
	}
	if len(filter.StationIDs) > 0 && !containsString(filter.StationIDs, st.StationID) {
		return false
	}
	return true
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsInt(haystack []int, needle int) bool {
	for _, n := range haystack {
		if n == needle {
			return true
		}
	}
	return false
}
