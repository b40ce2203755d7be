package domain

import (
	"context"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ResultFilter is the parameterized query filter handed to the source
// collaborator. Every field travels as a bound query parameter; filter text
// never enters SQL text.
type ResultFilter struct {
	WaterResources []string   `json:"water_resources,omitempty"`
	StationIDs     []string   `json:"station_ids,omitempty"`
	Years          []int      `json:"years,omitempty"`
	DateFrom       *time.Time `json:"date_from,omitempty"`
	DateTo         *time.Time `json:"date_to,omitempty"`
	Parameters     []string   `json:"parameters,omitempty"`
	SampleTypes    []string   `json:"sample_types,omitempty"`
}

// Validate fails fast, before any I/O, when a required argument is absent.
func (f ResultFilter) Validate() error {
	if err := RequireArg("water resources or station ids", len(f.WaterResources) > 0 || len(f.StationIDs) > 0); err != nil {
		return err
	}
	return RequireArg("years or date range", len(f.Years) > 0 || f.DateFrom != nil || f.DateTo != nil)
}

// Tag derives the deterministic artifact base name for the filter: quoting
// characters stripped, remaining non-alphanumerics replaced by underscore,
// parts concatenated with underscores in filter order.
func (f ResultFilter) Tag() string {
	var parts []string
	appendPart := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}
	for _, wr := range f.WaterResources {
		appendPart(sanitizeTagPart(wr))
	}
	for _, id := range f.StationIDs {
		appendPart(sanitizeTagPart(id))
	}
	for _, y := range f.Years {
		appendPart(strconv.Itoa(y))
	}
	if f.DateFrom != nil {
		appendPart(f.DateFrom.UTC().Format("20060102"))
	}
	if f.DateTo != nil {
		appendPart(f.DateTo.UTC().Format("20060102"))
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, "_")
}

func sanitizeTagPart(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\'' || r == '"' || r == '`':
			// quoting characters are stripped outright
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// ResultSource is the query-execution collaborator: it owns connections,
// credentials, and timeout policy, and returns rectangular result sets. The
// pipeline core never constructs SQL against it.
type ResultSource interface {
	// FetchResults returns long-form measurement rows matching the filter.
	FetchResults(ctx context.Context, filter ResultFilter) ([]Measurement, error)
	// FetchStations returns site metadata for the filter's resources/stations.
	FetchStations(ctx context.Context, filter ResultFilter) ([]Station, error)
	// Ping verifies the collaborator is reachable.
	Ping(ctx context.Context) error
	// Close releases the collaborator's resources.
	Close() error
}
