package domain

import (
	"strings"
	"time"
)

// Field names one measurement attribute that can participate in a pivot
// identity key. Parameter name, value, and qualifier can never be identity
// fields; they are what the pivot spreads.
type Field string

// Identity-eligible measurement fields.
const (
	FieldStationID        Field = "station_id"
	FieldRandomLocationID Field = "random_sample_location_id"
	FieldSampleID         Field = "sample_id"
	FieldWaterResource    Field = "water_resource"
	FieldCollectionDate   Field = "collection_date"
	FieldSampleType       Field = "sample_type"
	FieldMatrix           Field = "matrix"
)

// Value returns the measurement's value for the field as it appears in an
// identity column. Absent optional fields yield nil.
func (f Field) Value(m Measurement) any {
	switch f {
	case FieldStationID:
		return m.StationID
	case FieldRandomLocationID:
		return deref(m.RandomLocationID)
	case FieldSampleID:
		return deref(m.SampleID)
	case FieldWaterResource:
		return deref(m.WaterResource)
	case FieldCollectionDate:
		return FormatCollectionDate(m.CollectionDate)
	case FieldSampleType:
		return m.SampleType
	case FieldMatrix:
		return m.Matrix
	default:
		return nil
	}
}

func deref(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// keyPart renders the field canonically for key construction. Nil optional
// fields render empty so that rows missing the same fields still share a key.
func (f Field) keyPart(m Measurement) string {
	v := f.Value(m)
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// FieldSet is an ordered identity key: the measurement fields preserved as
// row identity during pivoting.
type FieldSet []Field

// RowKey is the canonical composite key one FieldSet derives from one
// measurement. Two measurements with equal RowKeys land in the same WideRow.
type RowKey string

// keySeparator joins key parts; the ASCII unit separator cannot occur in
// source text, so joined keys never collide.
const keySeparator = "\x1f"

// Key derives the measurement's composite row key.
func (fs FieldSet) Key(m Measurement) RowKey {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.keyPart(m)
	}
	return RowKey(strings.Join(parts, keySeparator))
}

// Columns returns the identity column names in field order.
func (fs FieldSet) Columns() []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}

// Contains reports whether the set includes the field.
func (fs FieldSet) Contains(f Field) bool {
	for _, have := range fs {
		if have == f {
			return true
		}
	}
	return false
}

// IdentityFields returns the pivot identity key a pipeline kind uses. Random
// (status-network) pulls key on the random location; trend pulls key on the
// sample identifier.
func (k PipelineKind) IdentityFields() FieldSet {
	if k == PipelineTrend {
		return FieldSet{FieldStationID, FieldSampleID, FieldCollectionDate, FieldSampleType, FieldMatrix}
	}
	return FieldSet{FieldStationID, FieldRandomLocationID, FieldCollectionDate, FieldSampleType, FieldMatrix}
}

// SampleParamKey is the (station, date, parameter) composite the duplicate
// detector partitions on.
type SampleParamKey struct {
	StationID string
	Date      string
	Parameter string
}

// SampleParamKeyOf derives the duplicate-detection key for a measurement.
func SampleParamKeyOf(m Measurement) SampleParamKey {
	return SampleParamKey{
		StationID: m.StationID,
		Date:      FormatCollectionDate(m.CollectionDate),
		Parameter: m.ParameterName,
	}
}

// FormatCollectionDate renders a collection timestamp canonically: date-only
// when no clock component is present, RFC 3339 otherwise.
func FormatCollectionDate(t time.Time) string {
	t = t.UTC()
	if h, m, s := t.Clock(); h == 0 && m == 0 && s == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339)
}
