package domain

import (
	"strconv"
	"strings"
)

// CellSeparator joins the value and qualifier halves of an encoded cell.
// Legitimate cell content must never contain the separator text; qualifier
// codes are short alphanumerics and values render as plain decimal text, so
// the invariant holds for all source data.
const CellSeparator = " | "

// Cell is the native (value, qualifier) pair a pivoted parameter column
// holds. The encoded single-string form exists only for consumers of the
// legacy CSV layout; see Encode.
type Cell struct {
	Value     *float64 `json:"value"`
	Qualifier string   `json:"qualifier"`
}

// Encode renders the cell as "<value> | <qualifier>". A nil value renders as
// empty text, so a fatally qualified result keeps its qualifier visible.
func (c Cell) Encode() string {
	return FormatValue(c.Value) + CellSeparator + c.Qualifier
}

// FormatValue renders a nullable measurement value as decimal text; nil
// renders as the empty string.
func FormatValue(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// SplitEncodedCell recovers the value and qualifier halves of an encoded
// cell. Input without the separator is treated as a bare value with an empty
// qualifier.
func SplitEncodedCell(s string) (value, qualifier string) {
	value, qualifier, ok := strings.Cut(s, CellSeparator)
	if !ok {
		return s, ""
	}
	return value, qualifier
}
