package core

import (
	"fmt"
	"strings"
)

// QualifierSuffix marks the qualifier half of a split parameter column.
const QualifierSuffix = "_VQ"

// NormalizeColumnName canonicalizes a generated column name. The rules are
// total and documented; applying them twice changes nothing:
//
//  1. every character outside [A-Za-z0-9_] becomes an underscore, covering
//     the spaces, parentheses, brackets, commas, signs, apostrophes, and
//     periods substituted into parameter text upstream;
//  2. every run of two or more underscores collapses to one, repeated until
//     no run remains;
//  3. leading and trailing underscores are trimmed.
func NormalizeColumnName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	for strings.Contains(out, "__") {
		out = strings.ReplaceAll(out, "__", "_")
	}
	return strings.Trim(out, "_")
}

// NormalizeFrameColumns rewrites every column name in the frame to canonical
// form, renaming row keys to match. Distinct raw names that canonicalize to
// the same text get a numeric suffix in column order, so the result is always
// collision-free.
func NormalizeFrameColumns(frame Frame) Frame {
	renames := make(map[string]string, len(frame.Columns))
	taken := make(map[string]int, len(frame.Columns))

	out := Frame{Columns: make([]Column, len(frame.Columns))}
	for i, col := range frame.Columns {
		name := NormalizeColumnName(col.Name)
		if n, clash := taken[name]; clash {
			taken[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		}
		taken[name] = 1
		renames[col.Name] = name
		out.Columns[i] = Column{Name: name, Type: col.Type}
	}

	out.Rows = make([]map[string]any, len(frame.Rows))
	for i, row := range frame.Rows {
		dup := make(map[string]any, len(row))
		for k, v := range row {
			if renamed, ok := renames[k]; ok {
				dup[renamed] = v
				continue
			}
			dup[k] = v
		}
		out.Rows[i] = dup
	}
	return out
}
