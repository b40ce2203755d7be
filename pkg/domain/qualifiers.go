package domain

import "strings"

// FatalQualifierCodes are the qualifier characters that invalidate a
// measurement value. Containment anywhere in the qualifier string counts: a
// compound qualifier like "AO" is fatal because it carries "O".
const FatalQualifierCodes = "?ONTX"

// HasFatalQualifier reports whether the qualifier carries any fatal code.
func HasFatalQualifier(qualifier string) bool {
	return strings.ContainsAny(qualifier, FatalQualifierCodes)
}

// NullFatalValues returns a copy of the rows with values nulled wherever the
// qualifier is fatal. Qualifiers themselves are retained so the condition
// stays visible in the qualifier columns. Pure and order-independent.
func NullFatalValues(rows []Measurement) []Measurement {
	out := make([]Measurement, len(rows))
	for i, m := range rows {
		if m.Value != nil && HasFatalQualifier(m.ValueQualifier) {
			m.Value = nil
		}
		out[i] = m
	}
	return out
}
