// Package golearn converts encoded frames to and from
// github.com/sjwhitworth/golearn/base DenseInstances, so the output of the
// categorical encoder can feed golearn classifiers directly.
package golearn

import (
	"math"

	"github.com/sjwhitworth/golearn/base"

	"github.com/dfencode/dfencode/dataset"
	"github.com/dfencode/dfencode/pkg/errors"
)

// ToDenseInstances copies an all-numeric frame into DenseInstances with one
// float attribute per column. Missing cells become NaN. When classColumn is
// not empty that column is registered as the class attribute.
func ToDenseInstances(f *dataset.Frame, classColumn string) (*base.DenseInstances, error) {
	if classColumn != "" && f.Index(classColumn) < 0 {
		return nil, errors.NewValidationError("class_column", "unknown column", classColumn)
	}

	cols := f.Columns()
	attrs := make([]base.Attribute, len(cols))
	for i, col := range cols {
		if col.Type() != dataset.Numeric {
			return nil, errors.NewValidationError(col.Name(), "golearn export needs numeric columns, encode the frame first", col.Type().String())
		}
		attrs[i] = base.NewFloatAttribute(col.Name())
	}

	inst := base.NewDenseInstances()
	specs := make([]base.AttributeSpec, len(attrs))
	for i, a := range attrs {
		specs[i] = inst.AddAttribute(a)
	}
	if f.NumRows() > 0 {
		if err := inst.Extend(f.NumRows()); err != nil {
			return nil, errors.Wrap(err, "golearn: extend instances")
		}
	}

	for c, col := range cols {
		for r := 0; r < col.Len(); r++ {
			v, ok := col.Float(r)
			if !ok {
				v = math.NaN()
			}
			inst.Set(specs[c], r, base.PackFloatToBytes(v))
		}
	}

	if classColumn != "" {
		if err := inst.AddClassAttribute(attrs[f.Index(classColumn)]); err != nil {
			return nil, errors.Wrap(err, "golearn: add class attribute")
		}
	}
	return inst, nil
}

// FromDenseInstances converts DenseInstances back into a frame. Float
// attributes become Numeric columns (NaN is missing); categorical attributes
// become Category columns.
func FromDenseInstances(inst *base.DenseInstances) (*dataset.Frame, error) {
	attrs := inst.AllAttributes()
	_, rows := inst.Size()

	cols := make([]*dataset.Column, len(attrs))
	for c, a := range attrs {
		attrSpec, err := inst.GetAttribute(a)
		if err != nil {
			return nil, errors.Wrapf(err, "golearn: attribute %s", a.GetName())
		}
		cells := make([]any, rows)
		switch a.GetType() {
		case base.Float64Type:
			for r := 0; r < rows; r++ {
				cells[r] = base.UnpackBytesToFloat(inst.Get(attrSpec, r))
			}
			cols[c], err = dataset.NewColumn(a.GetName(), dataset.Numeric, cells)
		default:
			for r := 0; r < rows; r++ {
				cells[r] = a.GetStringFromSysVal(inst.Get(attrSpec, r))
			}
			cols[c], err = dataset.NewColumn(a.GetName(), dataset.Category, cells)
		}
		if err != nil {
			return nil, err
		}
	}
	return dataset.NewSized(rows, cols...)
}
