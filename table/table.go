package table

// Well-known column names.
const (
	// ColMsgName is the synthetic first column every table carries.
	ColMsgName = "MSGNAME"
	// ColTimeUS is the microseconds-since-boot timestamp column most
	// tables declare.
	ColTimeUS = "TimeUS"
)

// Row is one record: MSGNAME followed by the descriptor's columns, in
// declaration order.
type Row []Value

// Table is an ordered collection of rows sharing one schema. Rows appear
// in arrival order and are never reordered; the serializer establishes
// global time order itself.
type Table struct {
	Name    string
	Columns []string // MSGNAME plus the descriptor's column names
	Rows    []Row
}

// New creates an empty table with the given schema.
func New(name string, columns []string) *Table {
	return &Table{
		Name:    name,
		Columns: columns,
	}
}

// Append adds a row. The row must match the schema; the parser guarantees
// this by construction.
func (t *Table) Append(row Row) {
	t.Rows = append(t.Rows, row)
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, col := range t.Columns {
		if col == name {
			return i
		}
	}

	return -1
}

// HasColumn reports whether the schema declares the named column.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// ShiftUint64Column adds delta to every row's value in the given column
// using unsigned 64-bit arithmetic. Values that cannot be read as unsigned
// integers are left untouched. Used for bulk TimeUS shifting during merge.
func (t *Table) ShiftUint64Column(idx int, delta uint64) {
	for _, row := range t.Rows {
		if idx < 0 || idx >= len(row) {
			continue
		}
		if v, ok := row[idx].AsUint64(); ok {
			row[idx] = Uint64Value(v + delta)
		}
	}
}

// SetColumn overwrites the given column with the same value on every row.
func (t *Table) SetColumn(idx int, v Value) {
	for _, row := range t.Rows {
		if idx >= 0 && idx < len(row) {
			row[idx] = v
		}
	}
}

// FirstWhere returns the first row for which pred is true.
func (t *Table) FirstWhere(pred func(Row) bool) (Row, bool) {
	for _, row := range t.Rows {
		if pred(row) {
			return row, true
		}
	}

	return nil, false
}
