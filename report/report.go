// Package report summarises encoded frames: per-category row counts of a
// fitted categorical column and bar charts of them.
package report

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/dfencode/dfencode/dataset"
	"github.com/dfencode/dfencode/pkg/errors"
	"github.com/dfencode/dfencode/preprocessing"
)

// Counts holds the number of rows per category of one original column.
type Counts struct {
	Column string
	Labels []string
	Values []float64
}

// Total returns the number of rows counted across all categories.
func (c *Counts) Total() float64 {
	total := 0.0
	for _, v := range c.Values {
		total += v
	}
	return total
}

// CategoryCounts counts the rows of each category of column in a frame
// produced by enc.
//
// Expansion columns are counted by summing their indicators. Binary columns
// are counted per code; each code is labelled with the values mapped to it,
// joined by "|". Missing cells are not counted.
func CategoryCounts(enc *preprocessing.CategoricalEncoder, encoded *dataset.Frame, column string) (*Counts, error) {
	expansion, err := enc.ExpansionColumns()
	if err != nil {
		return nil, err
	}
	if cats, ok := expansion[column]; ok {
		counts := &Counts{Column: column}
		for _, cat := range cats {
			col, err := encodedColumn(encoded, column+"_"+fmt.Sprint(cat))
			if err != nil {
				return nil, err
			}
			sum := 0.0
			for i := 0; i < col.Len(); i++ {
				if v, ok := col.Float(i); ok {
					sum += v
				}
			}
			counts.Labels = append(counts.Labels, fmt.Sprint(cat))
			counts.Values = append(counts.Values, sum)
		}
		return counts, nil
	}

	binary, err := enc.BinaryColumns()
	if err != nil {
		return nil, err
	}
	table, ok := binary[column]
	if !ok {
		return nil, errors.NewValueError("report.CategoryCounts",
			fmt.Sprintf("column %q is not a fitted categorical column", column))
	}
	col, err := encodedColumn(encoded, column)
	if err != nil {
		return nil, err
	}

	counts := &Counts{Column: column, Values: make([]float64, 2)}
	for i := 0; i < col.Len(); i++ {
		if v, ok := col.Float(i); ok && (v == 0 || v == 1) {
			counts.Values[int(v)]++
		}
	}
	counts.Labels = []string{labelFor(table, 0), labelFor(table, 1)}
	return counts, nil
}

func encodedColumn(df *dataset.Frame, name string) (*dataset.Column, error) {
	col, ok := df.Column(name)
	if !ok {
		return nil, errors.NewSchemaMismatchError("report.CategoryCounts", name, "column missing from encoded frame")
	}
	if col.Type() != dataset.Numeric {
		return nil, errors.NewSchemaMismatchError("report.CategoryCounts", name, "encoded column is not numeric")
	}
	return col, nil
}

// labelFor joins the values mapped to code in a stable order.
func labelFor(table map[any]float64, code float64) string {
	var labels []string
	for v, c := range table {
		if c == code {
			labels = append(labels, fmt.Sprint(v))
		}
	}
	sort.Strings(labels)
	return strings.Join(labels, "|")
}

// PlotCategoryCounts renders the category counts of column as a bar chart.
// The image format follows the extension of path (png, svg, pdf, ...).
func PlotCategoryCounts(enc *preprocessing.CategoricalEncoder, encoded *dataset.Frame, column, path string) error {
	counts, err := CategoryCounts(enc, encoded, column)
	if err != nil {
		return err
	}
	return PlotCounts(counts, path)
}

// PlotCounts renders counts as a bar chart saved to path.
func PlotCounts(counts *Counts, path string) error {
	if len(counts.Values) == 0 {
		return errors.NewValueError("report.PlotCounts",
			fmt.Sprintf("column %q has no categories to plot", counts.Column))
	}

	p := plot.New()
	p.Title.Text = counts.Column
	p.Y.Label.Text = "rows"

	bars, err := plotter.NewBarChart(plotter.Values(counts.Values), vg.Points(20))
	if err != nil {
		return errors.Wrap(err, "report: build bar chart")
	}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.NominalX(counts.Labels...)

	if err := p.Save(4*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "report: save plot to %s", path)
	}
	return nil
}
