package core

import (
	"fmt"
	"sort"

	"github.com/zeebo/xxh3"

	"watercolumn/pkg/domain"
)

// PivotResult is the intermediate wide table: one row per identity key with
// one (value, qualifier) cell per parameter, before the split and rename
// stages project it into a flat frame.
type PivotResult struct {
	Identity   FieldSet
	Parameters []string
	Rows       []PivotRow
	Anomalies  []Anomaly
	// Collisions holds every long row involved in an ambiguous cell, first
	// occurrence included, so the side-channel export lets operators locate
	// and correct them at the source.
	Collisions []Measurement
}

// PivotRow is one wide row under construction. Cells is keyed by raw
// parameter name; absence means the (identity, parameter) combination never
// occurred and renders as null in both split halves.
type PivotRow struct {
	Key      RowKey
	Identity map[string]any
	Cells    map[string]Cell
}

// Pivot spreads long measurement rows into one wide row per identity key.
// Every parameter name observed anywhere in the input becomes a column on
// every row. When a (identity, parameter) pair sees more than one cell the
// first occurrence wins, the collision is recorded as an anomaly, and all
// involved rows are retained in Collisions; nothing is dropped silently.
func Pivot(rows []Measurement, identity FieldSet) (*PivotResult, error) {
	if err := domain.RequireArg("identity fields", len(identity) > 0); err != nil {
		return nil, err
	}

	res := &PivotResult{Identity: identity}
	rowIndex := make(map[RowKey]int)
	paramSeen := make(map[string]struct{})
	firstByCell := make(map[string]Measurement)
	collidedCell := make(map[string]bool)

	for _, m := range rows {
		if _, ok := paramSeen[m.ParameterName]; !ok {
			paramSeen[m.ParameterName] = struct{}{}
			res.Parameters = append(res.Parameters, m.ParameterName)
		}

		key := identity.Key(m)
		idx, ok := rowIndex[key]
		if !ok {
			ident := make(map[string]any, len(identity))
			for _, f := range identity {
				ident[string(f)] = f.Value(m)
			}
			res.Rows = append(res.Rows, PivotRow{
				Key:      key,
				Identity: ident,
				Cells:    make(map[string]Cell),
			})
			idx = len(res.Rows) - 1
			rowIndex[key] = idx
		}

		cell := Cell{Value: m.Value, Qualifier: m.ValueQualifier}
		cellKey := string(key) + keyJoin + m.ParameterName
		existing, filled := res.Rows[idx].Cells[m.ParameterName]
		if !filled {
			res.Rows[idx].Cells[m.ParameterName] = cell
			firstByCell[cellKey] = m
			continue
		}

		// Ambiguous cell: classify by content fingerprint, keep the first
		// occurrence, surface everything involved.
		identical := cellFingerprint(existing) == cellFingerprint(cell)
		res.Anomalies = append(res.Anomalies, Anomaly{
			Kind:      AnomalyAmbiguousPivot,
			Message:   collisionMessage(m.ParameterName, identical),
			StationID: m.StationID,
			Parameter: m.ParameterName,
		})
		if !collidedCell[cellKey] {
			collidedCell[cellKey] = true
			res.Collisions = append(res.Collisions, firstByCell[cellKey])
		}
		res.Collisions = append(res.Collisions, m)
	}

	sort.Strings(res.Parameters)
	return res, nil
}

// keyJoin separates the row key from the parameter name in cell-tracking
// keys; same reasoning as the identity key separator.
const keyJoin = "\x1f"

func cellFingerprint(c Cell) uint64 {
	return xxh3.HashString(c.Encode())
}

func collisionMessage(parameter string, identical bool) string {
	if identical {
		return fmt.Sprintf("parameter %q repeated with identical value for one identity key", parameter)
	}
	return fmt.Sprintf("parameter %q has conflicting values for one identity key", parameter)
}

// SplitColumns projects the pivot result into a flat frame: identity columns
// first, in field order, then a value column and a qualifier column per
// parameter. Column names are raw at this stage; NormalizeFrameColumns
// canonicalizes them.
func SplitColumns(res *PivotResult) Frame {
	frame := Frame{}
	for _, f := range res.Identity {
		frame.Columns = append(frame.Columns, Column{Name: string(f), Type: identityColumnType(f)})
	}
	for _, p := range res.Parameters {
		frame.Columns = append(frame.Columns,
			Column{Name: p, Type: domain.ColumnNumber},
			Column{Name: p + QualifierSuffix, Type: domain.ColumnString},
		)
	}

	frame.Rows = make([]map[string]any, 0, len(res.Rows))
	for _, row := range res.Rows {
		out := make(map[string]any, len(frame.Columns))
		for k, v := range row.Identity {
			out[k] = v
		}
		for _, p := range res.Parameters {
			cell, ok := row.Cells[p]
			if !ok {
				out[p] = nil
				out[p+QualifierSuffix] = nil
				continue
			}
			if cell.Value != nil {
				out[p] = *cell.Value
			} else {
				out[p] = nil
			}
			out[p+QualifierSuffix] = cell.Qualifier
		}
		frame.Rows = append(frame.Rows, out)
	}
	return frame
}

func identityColumnType(f domain.Field) domain.ColumnType {
	if f == domain.FieldCollectionDate {
		return domain.ColumnTimestamp
	}
	return domain.ColumnString
}
