// Package dataset provides the typed, column-oriented data frame consumed and
// produced by the encoders.
//
// Every column carries an explicit ColumnType decided when the column is
// built. Cells are stored as float64 (Numeric), string (Text, Category) or
// bool (Boolean); a nil cell is a missing value in any column type.
package dataset

import (
	"strings"

	"github.com/dfencode/dfencode/pkg/errors"
)

// ColumnType tags the declared type of a column.
type ColumnType int

const (
	// Numeric columns hold float64 cells.
	Numeric ColumnType = iota
	// Text columns hold free-form string cells.
	Text
	// Boolean columns hold bool cells.
	Boolean
	// Category columns hold string labels of a categorical variable.
	Category
)

func (t ColumnType) String() string {
	switch t {
	case Numeric:
		return "numeric"
	case Text:
		return "text"
	case Boolean:
		return "boolean"
	case Category:
		return "category"
	default:
		return "unknown"
	}
}

// IsCategorical reports whether columns of this type are treated as categorical.
func (t ColumnType) IsCategorical() bool {
	return t == Text || t == Boolean || t == Category
}

// ParseColumnType parses the names used in configuration files.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "numeric", "number", "float":
		return Numeric, nil
	case "text", "string", "object":
		return Text, nil
	case "boolean", "bool":
		return Boolean, nil
	case "category", "categorical":
		return Category, nil
	default:
		return Numeric, errors.NewValidationError("column_type", "must be one of numeric, text, boolean, category", s)
	}
}
