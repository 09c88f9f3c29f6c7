package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/mat"

	"github.com/dfencode/dfencode/pkg/errors"
)

// DefaultMissingTokens are the cell values ReadCSV treats as missing.
var DefaultMissingTokens = []string{"", "NA", "NaN", "null"}

type readConfig struct {
	comma   rune
	missing map[string]struct{}
	types   map[string]ColumnType
	hints   map[string]ColumnType
}

// ReadOption configures ReadCSV.
type ReadOption func(*readConfig)

// WithDelimiter sets the field delimiter (default ',').
func WithDelimiter(r rune) ReadOption {
	return func(c *readConfig) { c.comma = r }
}

// WithMissingTokens replaces the set of cell values read as missing.
func WithMissingTokens(tokens ...string) ReadOption {
	return func(c *readConfig) {
		c.missing = make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			c.missing[t] = struct{}{}
		}
	}
}

// WithColumnType forces the type of one column instead of inferring it.
func WithColumnType(name string, t ColumnType) ReadOption {
	return func(c *readConfig) { c.types[name] = t }
}

// WithColumnTypes forces the types of several columns.
func WithColumnTypes(types map[string]ColumnType) ReadOption {
	return func(c *readConfig) {
		for k, v := range types {
			c.types[k] = v
		}
	}
}

// WithTypeHints sets the type of the named columns when they are present.
// Unlike WithColumnTypes, names missing from the header are ignored, and
// WithColumnType/WithColumnTypes take precedence over a hint.
func WithTypeHints(types map[string]ColumnType) ReadOption {
	return func(c *readConfig) {
		for k, v := range types {
			c.hints[k] = v
		}
	}
}

// ReadCSV reads a header row followed by data rows.
//
// Column types are inferred unless overridden: a column whose present cells
// all parse as decimals is Numeric, one whose cells are all true/false is
// Boolean, anything else is Text. A column with no present cells is Numeric.
func ReadCSV(r io.Reader, opts ...ReadOption) (*Frame, error) {
	cfg := &readConfig{comma: ',', types: map[string]ColumnType{}, hints: map[string]ColumnType{}}
	WithMissingTokens(DefaultMissingTokens...)(cfg)
	for _, opt := range opts {
		opt(cfg)
	}

	reader := csv.NewReader(r)
	reader.Comma = cfg.comma
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "dataset: read csv")
	}
	if len(records) == 0 {
		return nil, errors.NewModelError("ReadCSV", "missing header row", errors.ErrEmptyData)
	}

	header := records[0]
	rows := records[1:]
	for name := range cfg.types {
		if !contains(header, name) {
			return nil, errors.NewValidationError("column_types", "unknown column", name)
		}
	}

	cols := make([]*Column, len(header))
	raw := make([]string, len(rows))
	for j, name := range header {
		for i, rec := range rows {
			raw[i] = strings.TrimSpace(rec[j])
		}
		typ, forced := cfg.types[name]
		if !forced {
			if hint, ok := cfg.hints[name]; ok {
				typ = hint
			} else {
				typ = cfg.infer(raw)
			}
		}
		col, err := cfg.parseColumn(name, typ, raw)
		if err != nil {
			return nil, err
		}
		cols[j] = col
	}
	return NewSized(len(rows), cols...)
}

// ReadCSVFile opens path and calls ReadCSV.
func ReadCSVFile(path string, opts ...ReadOption) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close()
	return ReadCSV(f, opts...)
}

func (c *readConfig) isMissing(s string) bool {
	_, ok := c.missing[s]
	return ok
}

func (c *readConfig) infer(raw []string) ColumnType {
	numeric, boolean := true, true
	for _, s := range raw {
		if c.isMissing(s) {
			continue
		}
		if numeric {
			if _, err := decimal.NewFromString(s); err != nil {
				numeric = false
			}
		}
		if boolean {
			l := strings.ToLower(s)
			boolean = l == "true" || l == "false"
		}
		if !numeric && !boolean {
			return Text
		}
	}
	if numeric {
		return Numeric
	}
	return Boolean
}

func (c *readConfig) parseColumn(name string, typ ColumnType, raw []string) (*Column, error) {
	cells := make([]any, len(raw))
	for i, s := range raw {
		if c.isMissing(s) {
			continue
		}
		switch typ {
		case Numeric:
			d, err := decimal.NewFromString(s)
			if err != nil {
				return nil, errors.NewValueError("ReadCSV",
					fmt.Sprintf("column %q row %d: %q is not a number", name, i+1, s))
			}
			cells[i], _ = d.Float64()
		case Boolean:
			b, err := strconv.ParseBool(s)
			if err != nil {
				return nil, errors.NewValueError("ReadCSV",
					fmt.Sprintf("column %q row %d: %q is not a boolean", name, i+1, s))
			}
			cells[i] = b
		default:
			cells[i] = s
		}
	}
	return &Column{name: name, typ: typ, values: cells}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// WriteCSV writes the frame with a header row. Missing cells are written as
// empty fields.
func WriteCSV(w io.Writer, f *Frame) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(f.Names()); err != nil {
		return errors.Wrap(err, "dataset: write csv header")
	}
	record := make([]string, f.NumCols())
	for i := 0; i < f.NumRows(); i++ {
		for j, c := range f.columns {
			record[j] = formatCell(c.At(i))
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "dataset: write csv row %d", i)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "dataset: flush csv")
}

// WriteMatrixCSV writes m as a headerless numeric grid. NaN is written as an
// empty field.
func WriteMatrixCSV(w io.Writer, m mat.Matrix) error {
	cw := csv.NewWriter(w)
	r, c := m.Dims()
	record := make([]string, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			record[j] = formatFloat(m.At(i, j))
		}
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "dataset: write matrix row %d", i)
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "dataset: flush csv")
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return formatFloat(x)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 0):
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return decimal.NewFromFloat(v).String()
	}
}
