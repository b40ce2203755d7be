package domain

// ColumnType describes the logical type of a frame column.
type ColumnType string

// Logical column types carried on frame schemas and rendered into CSV.
const (
	ColumnString    ColumnType = "string"
	ColumnNumber    ColumnType = "number"
	ColumnTimestamp ColumnType = "timestamp"
)

// Column is one named, typed column of a frame schema.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Frame is the tabular unit of exchange: an ordered column schema plus rows
// keyed by column name. Missing keys render as null; a frame's rows always
// share the full column set after pivoting.
type Frame struct {
	Columns []Column         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// ColumnNames returns the schema's names in order.
func (f Frame) ColumnNames() []string {
	out := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		out[i] = c.Name
	}
	return out
}

// Clone returns a deep copy; callers may mutate the copy freely.
func (f Frame) Clone() Frame {
	cp := Frame{Columns: append([]Column(nil), f.Columns...)}
	if f.Rows != nil {
		cp.Rows = make([]map[string]any, len(f.Rows))
		for i, row := range f.Rows {
			dup := make(map[string]any, len(row))
			for k, v := range row {
				dup[k] = v
			}
			cp.Rows[i] = dup
		}
	}
	return cp
}
