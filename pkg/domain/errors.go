package domain

import "fmt"

// MissingInputError reports a required caller argument that was absent. It is
// raised before any I/O and is never retried.
type MissingInputError struct {
	Argument string
}

func (e MissingInputError) Error() string {
	return fmt.Sprintf("missing required input: %s", e.Argument)
}

// RequireArg returns a MissingInputError for the named argument when present
// is false.
func RequireArg(name string, present bool) error {
	if present {
		return nil
	}
	return MissingInputError{Argument: name}
}

// SourceError wraps a failure from the query collaborator with the operation
// that hit it. The underlying driver error is preserved for errors.Is/As and
// propagates to the caller unretried.
type SourceError struct {
	Op  string
	Err error
}

func (e SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e SourceError) Unwrap() error {
	return e.Err
}

// AnomalyKind classifies non-fatal data-quality findings recorded on a run
// bundle. Anomalies degrade to nulls or side-channel exports; they never halt
// the pipeline.
type AnomalyKind string

// Anomaly kinds.
const (
	// AnomalyAmbiguousPivot marks more than one value mapping to a single
	// (identity, parameter) cell.
	AnomalyAmbiguousPivot AnomalyKind = "ambiguous_pivot"
	// AnomalyUnmatchedCategory marks a criteria lookup that matched no known
	// region or bioregion.
	AnomalyUnmatchedCategory AnomalyKind = "unmatched_category"
)

// Anomaly is one recorded data-quality finding.
type Anomaly struct {
	Kind      AnomalyKind `json:"kind"`
	Message   string      `json:"message"`
	StationID string      `json:"station_id,omitempty"`
	Parameter string      `json:"parameter,omitempty"`
	Category  string      `json:"category,omitempty"`
}
