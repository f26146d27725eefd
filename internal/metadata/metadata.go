// Package metadata provides the optional row-aligned auxiliary table of an
// epoch store: one row per retained epoch, queryable for sub-selection.
// Full expression queries run on an in-memory SQLite database; when that
// backend is disabled a best-effort equality/membership matcher is used.
package metadata

import (
	"fmt"
	"sort"

	"github.com/neurokit/neurokit-go/internal/errors"
)

// Kind is the declared type of a column.
type Kind string

const (
	KindBool   Kind = "bool"
	KindString Kind = "string"
	KindNumber Kind = "number"
)

// Column declares one metadata column.
type Column struct {
	Name string
	Kind Kind
}

// Table is an ordered collection of rows aligned with epoch store rows.
// Values are nil, bool, string or float64 according to the column kind.
type Table struct {
	cols []Column
	rows [][]any
}

// New validates the rows against the declared columns and returns a Table.
func New(cols []Column, rows [][]any) (*Table, error) {
	names := make(map[string]struct{}, len(cols))
	for _, col := range cols {
		if col.Name == "" {
			return nil, errors.Newf("metadata column with empty name").
				Category(errors.CategoryValidation).
				Build()
		}
		if _, dup := names[col.Name]; dup {
			return nil, errors.Newf("duplicate metadata column %q", col.Name).
				Category(errors.CategoryValidation).
				Build()
		}
		names[col.Name] = struct{}{}
		switch col.Kind {
		case KindBool, KindString, KindNumber:
		default:
			return nil, errors.Newf("metadata column %q has invalid kind %q", col.Name, col.Kind).
				Category(errors.CategoryValidation).
				Build()
		}
	}

	for ri, row := range rows {
		if len(row) != len(cols) {
			return nil, errors.Newf("metadata row %d has %d values, expected %d", ri, len(row), len(cols)).
				Category(errors.CategoryValidation).
				Build()
		}
		for ci, v := range row {
			if v == nil {
				continue
			}
			if err := checkKind(cols[ci], v); err != nil {
				return nil, err
			}
		}
	}

	t := &Table{cols: append([]Column(nil), cols...)}
	t.rows = make([][]any, len(rows))
	for i, row := range rows {
		t.rows[i] = append([]any(nil), row...)
	}
	return t, nil
}

func checkKind(col Column, v any) error {
	ok := false
	switch col.Kind {
	case KindBool:
		_, ok = v.(bool)
	case KindString:
		_, ok = v.(string)
	case KindNumber:
		switch v.(type) {
		case float64, int, int64:
			ok = true
		}
	}
	if !ok {
		return errors.Newf("metadata value %v (%T) does not match column %q kind %s", v, v, col.Name, col.Kind).
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// Columns returns the column declarations.
func (t *Table) Columns() []Column {
	return append([]Column(nil), t.cols...)
}

// NRows returns the number of rows.
func (t *Table) NRows() int {
	return len(t.rows)
}

// Row returns row i as a name→value map.
func (t *Table) Row(i int) map[string]any {
	out := make(map[string]any, len(t.cols))
	for ci, col := range t.cols {
		out[col.Name] = t.rows[i][ci]
	}
	return out
}

// Value returns the value at (row, column name).
func (t *Table) Value(row int, name string) (any, error) {
	for ci, col := range t.cols {
		if col.Name == name {
			return t.rows[row][ci], nil
		}
	}
	return nil, errors.Newf("metadata column %q not found", name).
		Category(errors.CategoryNotFound).
		Build()
}

// Select returns a new Table containing the given rows, in the given
// order. Used to keep metadata aligned with epoch selection.
func (t *Table) Select(indices []int) (*Table, error) {
	rows := make([][]any, len(indices))
	for i, ri := range indices {
		if ri < 0 || ri >= len(t.rows) {
			return nil, errors.Newf("metadata row index %d out of range (%d rows)", ri, len(t.rows)).
				Category(errors.CategoryValidation).
				Build()
		}
		rows[i] = append([]any(nil), t.rows[ri]...)
	}
	return &Table{cols: t.Columns(), rows: rows}, nil
}

// Concat appends another table with identical columns.
func (t *Table) Concat(other *Table) (*Table, error) {
	if len(t.cols) != len(other.cols) {
		return nil, concatError(t, other)
	}
	for i := range t.cols {
		if t.cols[i] != other.cols[i] {
			return nil, concatError(t, other)
		}
	}
	rows := make([][]any, 0, len(t.rows)+len(other.rows))
	for _, row := range t.rows {
		rows = append(rows, append([]any(nil), row...))
	}
	for _, row := range other.rows {
		rows = append(rows, append([]any(nil), row...))
	}
	return &Table{cols: t.Columns(), rows: rows}, nil
}

func concatError(a, b *Table) error {
	return errors.Newf("cannot concatenate metadata tables with different columns (%v vs %v)", a.cols, b.cols).
		Category(errors.CategoryMetadata).
		Build()
}

// Op is a comparison operator for the degenerate query backend.
type Op string

const (
	OpEq Op = "=="
	OpNe Op = "!="
	OpIn Op = "in"
)

// Filter returns the row indices matching a single equality or membership
// condition. This is the best-effort query surface used when the SQLite
// backend is disabled.
func (t *Table) Filter(name string, op Op, value any) ([]int, error) {
	ci := -1
	for i, col := range t.cols {
		if col.Name == name {
			ci = i
			break
		}
	}
	if ci < 0 {
		return nil, errors.Newf("metadata column %q not found", name).
			Category(errors.CategoryNotFound).
			Build()
	}

	var matched []int
	for ri, row := range t.rows {
		v := row[ci]
		var hit bool
		switch op {
		case OpEq:
			hit = equalValues(v, value)
		case OpNe:
			hit = v != nil && !equalValues(v, value)
		case OpIn:
			set, ok := value.([]any)
			if !ok {
				return nil, errors.Newf("membership filter needs a []any value, got %T", value).
					Category(errors.CategoryValidation).
					Build()
			}
			for _, candidate := range set {
				if equalValues(v, candidate) {
					hit = true
					break
				}
			}
		default:
			return nil, errors.Newf("invalid filter operator %q", op).
				Category(errors.CategoryValidation).
				Build()
		}
		if hit {
			matched = append(matched, ri)
		}
	}
	sort.Ints(matched)
	return matched, nil
}

// equalValues compares values numerically when both sides are numbers.
func equalValues(a, b any) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// String renders a compact description, used by the CLI inspect command.
func (t *Table) String() string {
	return fmt.Sprintf("metadata: %d rows x %d columns", len(t.rows), len(t.cols))
}
