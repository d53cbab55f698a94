// Package table holds the in-memory dataset the pipeline mutates in place:
// an ordered list of named, homogeneously typed, row-aligned columns.
package table

import (
	"fmt"
	"sort"
	"strings"

	"lazyprep/domain/core"
)

// Kind is the semantic type of a column
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNumeric
	KindText
	KindBoolean
	KindDatetime
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	case KindBoolean:
		return "boolean"
	case KindDatetime:
		return "datetime"
	default:
		return "unknown"
	}
}

// Column is a named sequence of values of one kind
type Column struct {
	Name   string
	Kind   Kind
	Values []Value
}

// NewNumeric builds a numeric column; NaN entries become missing
func NewNumeric(name string, xs []float64) *Column {
	vals := make([]Value, len(xs))
	for i, x := range xs {
		vals[i] = Num(x)
	}
	return &Column{Name: name, Kind: KindNumeric, Values: vals}
}

// NewText builds a text column; empty strings become missing
func NewText(name string, ss []string) *Column {
	vals := make([]Value, len(ss))
	for i, s := range ss {
		vals[i] = Str(s)
	}
	return &Column{Name: name, Kind: KindText, Values: vals}
}

// NewColumn builds a column from already typed values
func NewColumn(name string, kind Kind, vals []Value) *Column {
	return &Column{Name: name, Kind: kind, Values: vals}
}

// Len returns the number of rows
func (c *Column) Len() int { return len(c.Values) }

// IsMissing reports whether row i is missing
func (c *Column) IsMissing(i int) bool { return c.Values[i].IsMissing() }

// MissingCount counts missing cells
func (c *Column) MissingCount() int {
	n := 0
	for _, v := range c.Values {
		if v.IsMissing() {
			n++
		}
	}
	return n
}

// PresentCount counts non-missing cells
func (c *Column) PresentCount() int { return c.Len() - c.MissingCount() }

// NullRatio is the fraction of missing cells, 0 for an empty column
func (c *Column) NullRatio() float64 {
	if c.Len() == 0 {
		return 0
	}
	return float64(c.MissingCount()) / float64(c.Len())
}

// Floats returns the column as float64 with NaN for missing or non-numeric cells
func (c *Column) Floats() []float64 {
	out := make([]float64, len(c.Values))
	for i, v := range c.Values {
		out[i] = v.Float()
	}
	return out
}

// Present returns only the non-missing numeric values, in row order
func (c *Column) Present() []float64 {
	out := make([]float64, 0, len(c.Values))
	for _, v := range c.Values {
		if v.Type == ValueTypeNumeric {
			out = append(out, v.num)
		}
	}
	return out
}

// SetFloats overwrites the column with numeric values; NaN becomes missing
func (c *Column) SetFloats(xs []float64) {
	c.Kind = KindNumeric
	c.Values = make([]Value, len(xs))
	for i, x := range xs {
		c.Values[i] = Num(x)
	}
}

// Fill replaces every missing cell with v and returns the number of cells filled
func (c *Column) Fill(v Value) int {
	n := 0
	for i := range c.Values {
		if c.Values[i].IsMissing() {
			c.Values[i] = v
			n++
		}
	}
	return n
}

// Counts returns value frequencies keyed by string form, plus the first seen value for each key
func (c *Column) Counts() (map[string]int, map[string]Value) {
	counts := make(map[string]int)
	first := make(map[string]Value)
	for _, v := range c.Values {
		if v.IsMissing() {
			continue
		}
		k := v.key()
		if _, ok := first[k]; !ok {
			first[k] = v
		}
		counts[k]++
	}
	return counts, first
}

// Distinct returns the distinct non-missing values sorted by string form
func (c *Column) Distinct() []Value {
	_, first := c.Counts()
	out := make([]Value, 0, len(first))
	for _, v := range first {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return lessValue(out[i], out[j]) })
	return out
}

// Mode returns the most frequent non-missing value. Ties resolve to the smallest value.
func (c *Column) Mode() (Value, bool) {
	counts, first := c.Counts()
	if len(counts) == 0 {
		return Value{}, false
	}
	var best Value
	bestN := -1
	for k, n := range counts {
		v := first[k]
		if n > bestN || (n == bestN && lessValue(v, best)) {
			best, bestN = v, n
		}
	}
	return best, true
}

func lessValue(a, b Value) bool {
	if a.Type == ValueTypeNumeric && b.Type == ValueTypeNumeric {
		return a.num < b.num
	}
	if a.Type == ValueTypeTimestamp && b.Type == ValueTypeTimestamp {
		return a.ts.Before(b.ts)
	}
	return a.String() < b.String()
}

// Clone deep-copies the column
func (c *Column) Clone() *Column {
	vals := make([]Value, len(c.Values))
	copy(vals, c.Values)
	return &Column{Name: c.Name, Kind: c.Kind, Values: vals}
}

// Table is an ordered set of row-aligned columns
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New builds a table and checks the columns are aligned and uniquely named
func New(cols ...*Column) (*Table, error) {
	t := &Table{index: make(map[string]int)}
	for i, c := range cols {
		if i == 0 {
			t.rows = c.Len()
		}
		if err := t.AddColumn(c); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustNew is New that panics on error, for fixtures
func MustNew(cols ...*Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// NumRows returns the row count
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the column count
func (t *Table) NumCols() int { return len(t.columns) }

// Columns returns the columns in order. The slice must not be modified.
func (t *Table) Columns() []*Column { return t.columns }

// Names returns the column names in order
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Has reports whether a column exists
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// NumericColumns returns the numeric columns in order
func (t *Table) NumericColumns() []*Column {
	var out []*Column
	for _, c := range t.columns {
		if c.Kind == KindNumeric {
			out = append(out, c)
		}
	}
	return out
}

// AddColumn appends a column
func (t *Table) AddColumn(c *Column) error {
	if _, dup := t.index[c.Name]; dup {
		return fmt.Errorf("%w: %s", core.ErrDuplicateColumn, c.Name)
	}
	if len(t.columns) > 0 && c.Len() != t.rows {
		return fmt.Errorf("%w: %s has %d rows, table has %d", core.ErrShapeMismatch, c.Name, c.Len(), t.rows)
	}
	if len(t.columns) == 0 {
		t.rows = c.Len()
	}
	t.index[c.Name] = len(t.columns)
	t.columns = append(t.columns, c)
	return nil
}

// DropColumns removes the named columns and returns the names actually removed
func (t *Table) DropColumns(names ...string) []string {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var removed []string
	kept := t.columns[:0]
	for _, c := range t.columns {
		if drop[c.Name] {
			removed = append(removed, c.Name)
			continue
		}
		kept = append(kept, c)
	}
	t.columns = kept
	t.reindex()
	return removed
}

// KeepRows retains rows where keep[i] is true and returns how many were removed
func (t *Table) KeepRows(keep []bool) int {
	if len(keep) != t.rows {
		panic(fmt.Sprintf("table: keep mask has %d entries for %d rows", len(keep), t.rows))
	}
	kept := 0
	for _, k := range keep {
		if k {
			kept++
		}
	}
	if kept == t.rows {
		return 0
	}
	for _, c := range t.columns {
		vals := make([]Value, 0, kept)
		for i, v := range c.Values {
			if keep[i] {
				vals = append(vals, v)
			}
		}
		c.Values = vals
	}
	removed := t.rows - kept
	t.rows = kept
	return removed
}

// RowMissingCount counts missing cells in row i
func (t *Table) RowMissingCount(i int) int {
	n := 0
	for _, c := range t.columns {
		if c.Values[i].IsMissing() {
			n++
		}
	}
	return n
}

// RowKey encodes row i for exact duplicate detection
func (t *Table) RowKey(i int) string {
	var b strings.Builder
	for _, c := range t.columns {
		b.WriteString(c.Values[i].key())
		b.WriteByte(0x1f)
	}
	return b.String()
}

// Clone deep-copies the table
func (t *Table) Clone() *Table {
	out := &Table{index: make(map[string]int, len(t.columns)), rows: t.rows}
	for _, c := range t.columns {
		out.index[c.Name] = len(out.columns)
		out.columns = append(out.columns, c.Clone())
	}
	return out
}

// Matrix returns the named numeric columns as row-major float rows with NaN for missing
func (t *Table) Matrix(names []string) ([][]float64, error) {
	cols := make([][]float64, len(names))
	for j, n := range names {
		c, ok := t.Column(n)
		if !ok {
			return nil, core.NewColumnNotFoundError(n)
		}
		cols[j] = c.Floats()
	}
	rows := make([][]float64, t.rows)
	for i := range rows {
		r := make([]float64, len(names))
		for j := range names {
			r[j] = cols[j][i]
		}
		rows[i] = r
	}
	return rows, nil
}

// SetMatrix writes row-major values back into the named columns
func (t *Table) SetMatrix(names []string, rows [][]float64) error {
	if len(rows) != t.rows {
		return fmt.Errorf("%w: matrix has %d rows, table has %d", core.ErrShapeMismatch, len(rows), t.rows)
	}
	for j, n := range names {
		c, ok := t.Column(n)
		if !ok {
			return core.NewColumnNotFoundError(n)
		}
		xs := make([]float64, len(rows))
		for i := range rows {
			xs[i] = rows[i][j]
		}
		c.SetFloats(xs)
	}
	return nil
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.columns))
	for i, c := range t.columns {
		t.index[c.Name] = i
	}
}
