package dataset

import (
	"fmt"
	"math"

	"github.com/dfencode/dfencode/pkg/errors"
)

// Column is an immutable, named, typed sequence of cells.
type Column struct {
	name   string
	typ    ColumnType
	values []any
}

// NewColumn validates values against typ and returns a column owning a copy
// of them. Numeric columns accept any Go integer or float kind and store
// float64; NaN is stored as missing.
func NewColumn(name string, typ ColumnType, values []any) (*Column, error) {
	if typ < Numeric || typ > Category {
		return nil, errors.NewValidationError("type", "unknown column type", int(typ))
	}
	cells := make([]any, len(values))
	for i, v := range values {
		cell, err := normalize(typ, v)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q row %d", name, i)
		}
		cells[i] = cell
	}
	return &Column{name: name, typ: typ, values: cells}, nil
}

// MustColumn is like NewColumn but panics on invalid cells. Intended for
// literals in tests and examples.
func MustColumn(name string, typ ColumnType, values ...any) *Column {
	c, err := NewColumn(name, typ, values)
	if err != nil {
		panic(err)
	}
	return c
}

// Floats builds a Numeric column; NaN entries become missing.
func Floats(name string, values ...float64) *Column {
	cells := make([]any, len(values))
	for i, v := range values {
		if !math.IsNaN(v) {
			cells[i] = v
		}
	}
	return &Column{name: name, typ: Numeric, values: cells}
}

// Strings builds a Text column without missing cells.
func Strings(name string, values ...string) *Column {
	return &Column{name: name, typ: Text, values: boxStrings(values)}
}

// Categories builds a Category column without missing cells.
func Categories(name string, values ...string) *Column {
	return &Column{name: name, typ: Category, values: boxStrings(values)}
}

// Bools builds a Boolean column without missing cells.
func Bools(name string, values ...bool) *Column {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return &Column{name: name, typ: Boolean, values: cells}
}

func boxStrings(values []string) []any {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func normalize(typ ColumnType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch typ {
	case Numeric:
		var f float64
		switch x := v.(type) {
		case float64:
			f = x
		case float32:
			f = float64(x)
		case int:
			f = float64(x)
		case int8:
			f = float64(x)
		case int16:
			f = float64(x)
		case int32:
			f = float64(x)
		case int64:
			f = float64(x)
		case uint:
			f = float64(x)
		case uint8:
			f = float64(x)
		case uint16:
			f = float64(x)
		case uint32:
			f = float64(x)
		case uint64:
			f = float64(x)
		default:
			return nil, cellTypeError(typ, v)
		}
		if math.IsNaN(f) {
			return nil, nil
		}
		return f, nil
	case Text, Category:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return nil, cellTypeError(typ, v)
	case Boolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, cellTypeError(typ, v)
	}
	return nil, cellTypeError(typ, v)
}

func cellTypeError(typ ColumnType, v any) error {
	return errors.NewValidationError("value", fmt.Sprintf("cell of type %T does not fit a %s column", v, typ), v)
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Type returns the declared column type.
func (c *Column) Type() ColumnType { return c.typ }

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.values) }

// At returns cell i; nil means missing.
func (c *Column) At(i int) any { return c.values[i] }

// IsMissing reports whether cell i is missing.
func (c *Column) IsMissing(i int) bool { return c.values[i] == nil }

// Float returns cell i of a Numeric column. ok is false for missing cells and
// for non-numeric columns.
func (c *Column) Float(i int) (v float64, ok bool) {
	v, ok = c.values[i].(float64)
	return v, ok
}

// Values returns a copy of the cells.
func (c *Column) Values() []any {
	out := make([]any, len(c.values))
	copy(out, c.values)
	return out
}

// MissingCount returns the number of missing cells.
func (c *Column) MissingCount() int {
	n := 0
	for _, v := range c.values {
		if v == nil {
			n++
		}
	}
	return n
}

// Distinct returns the non-missing distinct values in the order they are
// first encountered.
func (c *Column) Distinct() []any {
	seen := make(map[any]struct{})
	var out []any
	for _, v := range c.values {
		if v == nil {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Copy returns a deep copy of the column.
func (c *Column) Copy() *Column {
	return &Column{name: c.name, typ: c.typ, values: c.Values()}
}

// Rename returns a copy of the column under a new name.
func (c *Column) Rename(name string) *Column {
	out := c.Copy()
	out.name = name
	return out
}

func (c *Column) String() string {
	return fmt.Sprintf("Column(%s, %s, len=%d)", c.name, c.typ, len(c.values))
}

// NullableFloats builds a Numeric column where valid[i] == false marks row i
// as missing. valid may be nil, in which case every cell is present.
func NullableFloats(name string, values []float64, valid []bool) (*Column, error) {
	if valid != nil && len(valid) != len(values) {
		return nil, errors.NewValidationError("valid", "length must match values", len(valid))
	}
	cells := make([]any, len(values))
	for i, v := range values {
		if (valid == nil || valid[i]) && !math.IsNaN(v) {
			cells[i] = v
		}
	}
	return &Column{name: name, typ: Numeric, values: cells}, nil
}
