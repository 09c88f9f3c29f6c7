package dataset

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/dfencode/dfencode/pkg/errors"
)

// Frame is an ordered collection of equally long, uniquely named columns.
//
// The row count is stored explicitly so a frame with no columns still knows
// how many rows it describes. Frame implements mat.Matrix: numeric cells are
// returned as-is and missing cells as NaN. Calling At on a non-numeric
// column panics, as mat does for out-of-range access.
type Frame struct {
	rows    int
	columns []*Column
	index   map[string]int
}

// compile-time check
var _ mat.Matrix = (*Frame)(nil)

// New builds a frame whose row count is taken from the first column.
// A frame without columns has zero rows.
func New(cols ...*Column) (*Frame, error) {
	rows := 0
	if len(cols) > 0 {
		rows = cols[0].Len()
	}
	return NewSized(rows, cols...)
}

// NewSized builds a frame with an explicit row count. Every column must have
// exactly rows cells and names must be unique.
func NewSized(rows int, cols ...*Column) (*Frame, error) {
	if rows < 0 {
		return nil, errors.NewValidationError("rows", "must be non-negative", rows)
	}
	f := &Frame{
		rows:    rows,
		columns: make([]*Column, 0, len(cols)),
		index:   make(map[string]int, len(cols)),
	}
	for _, c := range cols {
		if c == nil {
			return nil, errors.NewValidationError("columns", "nil column", nil)
		}
		if c.Len() != rows {
			return nil, errors.NewValidationError(c.Name(),
				fmt.Sprintf("column length must equal the frame row count %d", rows), c.Len())
		}
		if _, dup := f.index[c.Name()]; dup {
			return nil, errors.NewValidationError(c.Name(), "duplicate column name", c.Name())
		}
		f.index[c.Name()] = len(f.columns)
		f.columns = append(f.columns, c)
	}
	return f, nil
}

// MustNew is like New but panics on error.
func MustNew(cols ...*Column) *Frame {
	f, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return f
}

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name()
	}
	return names
}

// Types returns the type of every column keyed by name.
func (f *Frame) Types() map[string]ColumnType {
	types := make(map[string]ColumnType, len(f.columns))
	for _, c := range f.columns {
		types[c.Name()] = c.Type()
	}
	return types
}

// Columns returns the columns in order. Columns are immutable, so the
// returned slice shares them with the frame.
func (f *Frame) Columns() []*Column {
	out := make([]*Column, len(f.columns))
	copy(out, f.columns)
	return out
}

// Column looks a column up by name.
func (f *Frame) Column(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.columns[i], true
}

// ColumnAt returns the j-th column.
func (f *Frame) ColumnAt(j int) *Column { return f.columns[j] }

// Index returns the position of the named column, or -1.
func (f *Frame) Index(name string) int {
	if i, ok := f.index[name]; ok {
		return i
	}
	return -1
}

// NumRows returns the row count.
func (f *Frame) NumRows() int { return f.rows }

// NumCols returns the column count.
func (f *Frame) NumCols() int { return len(f.columns) }

// Copy returns a deep copy of the frame.
func (f *Frame) Copy() *Frame {
	out := &Frame{
		rows:    f.rows,
		columns: make([]*Column, len(f.columns)),
		index:   make(map[string]int, len(f.columns)),
	}
	for i, c := range f.columns {
		out.columns[i] = c.Copy()
		out.index[c.Name()] = i
	}
	return out
}

// Dims implements mat.Matrix.
func (f *Frame) Dims() (r, c int) { return f.rows, len(f.columns) }

// At implements mat.Matrix. Missing cells are NaN.
func (f *Frame) At(i, j int) float64 {
	if i < 0 || i >= f.rows {
		panic(mat.ErrRowAccess)
	}
	if j < 0 || j >= len(f.columns) {
		panic(mat.ErrColAccess)
	}
	col := f.columns[j]
	if col.Type() != Numeric {
		panic(errors.Wrapf(errors.ErrNonNumeric, "column %q has type %s", col.Name(), col.Type()))
	}
	if v, ok := col.Float(i); ok {
		return v
	}
	return math.NaN()
}

// T implements mat.Matrix.
func (f *Frame) T() mat.Matrix { return mat.Transpose{Matrix: f} }

// Dense copies an all-numeric frame into a *mat.Dense. Missing cells become
// NaN. A frame with no rows or no columns yields an empty matrix.
func (f *Frame) Dense() (*mat.Dense, error) {
	for _, c := range f.columns {
		if c.Type() != Numeric {
			return nil, errors.Wrapf(errors.ErrNonNumeric, "dataset: column %q has type %s", c.Name(), c.Type())
		}
	}
	if f.rows == 0 || len(f.columns) == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(f.rows, len(f.columns), nil)
	for j, c := range f.columns {
		for i := 0; i < f.rows; i++ {
			if v, ok := c.Float(i); ok {
				out.Set(i, j, v)
			} else {
				out.Set(i, j, math.NaN())
			}
		}
	}
	return out, nil
}

func (f *Frame) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Frame(%d rows) [", f.rows)
	for i, c := range f.columns {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s:%s", c.Name(), c.Type())
	}
	b.WriteString("]")
	return b.String()
}
