package preprocessing

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/dfencode/dfencode/core/model"
	"github.com/dfencode/dfencode/core/parallel"
	"github.com/dfencode/dfencode/dataset"
	"github.com/dfencode/dfencode/pkg/errors"
	"github.com/dfencode/dfencode/pkg/log"
)

const (
	encoderName = "CategoricalEncoder"

	// indicator columns of frames above this many rows are filled in parallel
	parallelThreshold = 1000
)

// CategoricalEncoder converts the categorical columns of a frame into numeric
// columns.
//
// Text, Category and Boolean columns are categorical. A categorical column
// with exactly two distinct non-missing values at Fit becomes a single
// 0.0/1.0 column (binary coding); every other categorical column is expanded
// into one indicator column per category seen at Fit, named
// "<column>_<category>". Non-categorical columns pass through unchanged.
//
// The output column layout is frozen by Fit. Transform is not pure: a value
// never seen during Fit in a binary column is added to that column's code
// table with code 0.0 and reported as an UnseenCategoryWarning. Concurrent
// calls to Transform are safe; Fit must not race with anything else that
// relies on the previous fit.
type CategoricalEncoder struct {
	state *model.StateManager
	mu    sync.RWMutex

	// configuration
	returnAsMatrix bool
	nJobs          int
	logger         log.Logger
	warn           func(error)

	// learned at Fit
	originalColumns    []string
	categoricalColumns []string
	isCategorical      map[string]bool
	binary             map[string]*CodeTable
	expansion          map[string][]any
	encodedColumns     []string
}

// compile-time check
var _ model.FrameEncoder = (*CategoricalEncoder)(nil)

// NewCategoricalEncoder creates an unfitted encoder.
//
// Example:
//
//	enc := preprocessing.NewCategoricalEncoder(preprocessing.WithReturnAsMatrix(true))
//	out, err := enc.FitTransform(df)
func NewCategoricalEncoder(opts ...EncoderOption) *CategoricalEncoder {
	e := &CategoricalEncoder{
		state: model.NewStateManager(),
		nJobs: 1,
		logger: log.GetLoggerWithName("preprocessing.categorical").With(
			log.ModelNameKey, encoderName,
		),
		warn: errors.Warn,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.nJobs == -1 {
		e.nJobs = runtime.NumCPU()
	} else if e.nJobs <= 0 {
		e.nJobs = 1
	}
	return e
}

// Fit learns which columns are categorical, how each is encoded, and the
// output column layout. Any previous fit is fully replaced; on error the
// previous fit is kept.
//
// Parameters:
//   - df: reference frame with at least one column (zero rows are allowed)
//
// Returns:
//   - *CategoricalEncoder: the receiver, for chaining
//   - error: ModelError wrapping ErrEmptyData for a frame without columns,
//     ValidationError when two generated output names collide
func (e *CategoricalEncoder) Fit(df *dataset.Frame) (_ *CategoricalEncoder, err error) {
	defer errors.Recover(&err, "CategoricalEncoder.Fit")
	start := time.Now()

	if df == nil || df.NumCols() == 0 {
		return nil, errors.NewModelError("CategoricalEncoder.Fit", "empty data", errors.ErrEmptyData)
	}

	originals := df.Names()
	isCategorical := make(map[string]bool, len(originals))
	binary := make(map[string]*CodeTable)
	expansion := make(map[string][]any)
	var categoricals []string

	for _, col := range df.Columns() {
		if !col.Type().IsCategorical() {
			continue
		}
		name := col.Name()
		isCategorical[name] = true
		categoricals = append(categoricals, name)

		distinct := col.Distinct()
		if len(distinct) != 2 {
			expansion[name] = distinct
			continue
		}
		table := newCodeTable()
		if col.Type() == dataset.Boolean {
			table.InsertIfAbsent(false, 0.0)
			table.InsertIfAbsent(true, 1.0)
		} else {
			table.InsertIfAbsent(distinct[0], 0.0)
			table.InsertIfAbsent(distinct[1], 1.0)
		}
		binary[name] = table
	}

	encoded := make([]string, 0, len(originals))
	seen := make(map[string]bool, len(originals))
	for _, name := range originals {
		var names []string
		if cats, ok := expansion[name]; ok {
			for _, cat := range cats {
				names = append(names, indicatorName(name, cat))
			}
		} else {
			names = []string{name}
		}
		for _, n := range names {
			if seen[n] {
				return nil, errors.NewValidationError("columns",
					"encoded column name collides with another output column", n)
			}
			seen[n] = true
			encoded = append(encoded, n)
		}
	}

	e.mu.Lock()
	e.originalColumns = originals
	e.categoricalColumns = categoricals
	e.isCategorical = isCategorical
	e.binary = binary
	e.expansion = expansion
	e.encodedColumns = encoded
	e.state.MarkFitted(len(originals), df.NumRows())
	nFeatures, nSamples := e.state.Dimensions()
	e.mu.Unlock()

	e.logger.Info("Encoder fitted",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhasePreprocessing,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.CategoricalColumnsKey, len(categoricals),
		log.BinaryColumnsKey, len(binary),
		log.ExpansionColumnsKey, len(expansion),
		log.OutputFeaturesKey, len(encoded),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return e, nil
}

func indicatorName(column string, category any) string {
	return column + "_" + fmt.Sprint(category)
}

// Transform encodes df with the fitted rules. The input frame is never
// modified; the result holds exactly the fitted output columns in order.
//
// Parameters:
//   - df: frame containing every column seen at Fit; extra columns are ignored
//
// Returns:
//   - *dataset.Frame: encoded frame with the same number of rows as df
//   - error: NotFittedError before Fit, SchemaMismatchError when a fitted
//     column is missing or a categorical column arrives with a numeric type
func (e *CategoricalEncoder) Transform(df *dataset.Frame) (_ *dataset.Frame, err error) {
	defer errors.Recover(&err, "CategoricalEncoder.Transform")

	if err := e.state.RequireFitted(encoderName, "Transform"); err != nil {
		return nil, err
	}
	if df == nil {
		return nil, errors.NewValueError("CategoricalEncoder.Transform", "nil frame")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if err := e.checkSchema(df); err != nil {
		e.logger.Error("Transform rejected input", err,
			log.OperationKey, log.OperationTransform,
			log.ErrorCodeKey, log.ErrorSchemaMismatch,
		)
		return nil, err
	}

	rows := df.NumRows()
	out := make([]*dataset.Column, 0, len(e.encodedColumns))
	for _, name := range e.originalColumns {
		col, _ := df.Column(name)
		if table, ok := e.binary[name]; ok {
			encoded, err := e.encodeBinary(col, table)
			if err != nil {
				return nil, err
			}
			out = append(out, encoded)
			continue
		}
		if cats, ok := e.expansion[name]; ok {
			out = append(out, e.expand(col, cats)...)
			continue
		}
		out = append(out, col)
	}

	frame, err := dataset.NewSized(rows, out...)
	if err != nil {
		return nil, errors.Wrap(err, "CategoricalEncoder.Transform")
	}

	e.logger.Debug("Frame transformed",
		log.OperationKey, log.OperationTransform,
		log.SamplesKey, rows,
		log.OutputFeaturesKey, frame.NumCols(),
	)
	return frame, nil
}

func (e *CategoricalEncoder) checkSchema(df *dataset.Frame) error {
	for _, name := range e.originalColumns {
		col, ok := df.Column(name)
		if !ok {
			return errors.NewSchemaMismatchError("CategoricalEncoder.Transform", name, "column missing from input")
		}
		if e.isCategorical[name] && !col.Type().IsCategorical() {
			return errors.NewSchemaMismatchError("CategoricalEncoder.Transform", name,
				fmt.Sprintf("fitted as categorical but got %s column", col.Type()))
		}
	}
	return nil
}

// encodeBinary maps every cell through table. Unseen values are recorded with
// code 0.0 and reported once per value.
func (e *CategoricalEncoder) encodeBinary(col *dataset.Column, table *CodeTable) (*dataset.Column, error) {
	n := col.Len()
	values := make([]float64, n)
	valid := make([]bool, n)
	for i := 0; i < n; i++ {
		v := col.At(i)
		if v == nil {
			continue
		}
		code, ok := table.Lookup(v)
		if !ok {
			var inserted bool
			code, inserted = table.InsertIfAbsent(v, 0.0)
			if inserted {
				e.reportUnseen(col.Name(), v, code)
			}
		}
		values[i] = code
		valid[i] = true
	}
	return dataset.NullableFloats(col.Name(), values, valid)
}

func (e *CategoricalEncoder) reportUnseen(column string, value any, code float64) {
	e.logger.Warn("Unseen category in binary column",
		log.OperationKey, log.OperationTransform,
		log.ColumnKey, column,
		log.ValueKey, value,
		log.ErrorCodeKey, log.ErrorUnseenCategory,
	)
	e.warn(errors.NewUnseenCategoryWarning(column, value, code))
}

// expand builds one indicator column per category. Missing cells and values
// outside cats are 0.0 in every indicator.
func (e *CategoricalEncoder) expand(col *dataset.Column, cats []any) []*dataset.Column {
	n := col.Len()
	position := make(map[any]int, len(cats))
	indicators := make([][]float64, len(cats))
	for k, cat := range cats {
		position[cat] = k
		indicators[k] = make([]float64, n)
	}

	fill := func(start, end int) {
		for i := start; i < end; i++ {
			v := col.At(i)
			if v == nil {
				continue
			}
			if k, ok := position[v]; ok {
				indicators[k][i] = 1.0
			}
		}
	}
	if e.nJobs > 1 && n > parallelThreshold {
		parallel.ParallelizeWorkers(n, e.nJobs, fill)
	} else if n > 0 {
		fill(0, n)
	}

	out := make([]*dataset.Column, len(cats))
	for k, cat := range cats {
		out[k] = dataset.Floats(indicatorName(col.Name(), cat), indicators[k]...)
	}
	return out
}

// TransformMatrix is Transform followed by conversion to a dense matrix in
// the fitted column order. Missing cells become NaN.
func (e *CategoricalEncoder) TransformMatrix(df *dataset.Frame) (*mat.Dense, error) {
	frame, err := e.Transform(df)
	if err != nil {
		return nil, err
	}
	return frame.Dense()
}

// Output transforms df and returns a *dataset.Frame, or a *mat.Dense when
// the encoder was built WithReturnAsMatrix(true).
func (e *CategoricalEncoder) Output(df *dataset.Frame) (mat.Matrix, error) {
	e.mu.RLock()
	asMatrix := e.returnAsMatrix
	e.mu.RUnlock()

	if asMatrix {
		m, err := e.TransformMatrix(df)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	frame, err := e.Transform(df)
	if err != nil {
		return nil, err
	}
	return frame, nil
}

// FitTransform fits on df and returns Output(df).
func (e *CategoricalEncoder) FitTransform(df *dataset.Frame) (mat.Matrix, error) {
	if _, err := e.Fit(df); err != nil {
		return nil, err
	}
	return e.Output(df)
}

// IsFitted reports whether Fit has succeeded at least once.
func (e *CategoricalEncoder) IsFitted() bool {
	return e.state.IsFitted()
}

// OriginalColumns returns the input column names seen at Fit, in order.
func (e *CategoricalEncoder) OriginalColumns() ([]string, error) {
	if err := e.state.RequireFitted(encoderName, "OriginalColumns"); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.originalColumns...), nil
}

// CategoricalColumns returns the columns detected as categorical, in input order.
func (e *CategoricalEncoder) CategoricalColumns() ([]string, error) {
	if err := e.state.RequireFitted(encoderName, "CategoricalColumns"); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.categoricalColumns...), nil
}

// BinaryColumns returns a copy of every binary column's code table,
// including values added by Transform.
func (e *CategoricalEncoder) BinaryColumns() (map[string]map[any]float64, error) {
	if err := e.state.RequireFitted(encoderName, "BinaryColumns"); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string]map[any]float64, len(e.binary))
	for name, table := range e.binary {
		out[name] = table.Snapshot()
	}
	return out, nil
}

// ExpansionColumns returns the recorded categories of every expansion
// column, in first-seen order.
func (e *CategoricalEncoder) ExpansionColumns() (map[string][]any, error) {
	if err := e.state.RequireFitted(encoderName, "ExpansionColumns"); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[string][]any, len(e.expansion))
	for name, cats := range e.expansion {
		out[name] = append([]any(nil), cats...)
	}
	return out, nil
}

// EncodedColumns returns the frozen output column names, in order.
func (e *CategoricalEncoder) EncodedColumns() ([]string, error) {
	if err := e.state.RequireFitted(encoderName, "EncodedColumns"); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.encodedColumns...), nil
}

// GetParams returns the constructor parameters.
func (e *CategoricalEncoder) GetParams() map[string]interface{} {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return map[string]interface{}{
		"return_as_matrix": e.returnAsMatrix,
	}
}

// SetParams updates constructor parameters. Only "return_as_matrix" is
// recognised; it takes effect on the next Output call.
func (e *CategoricalEncoder) SetParams(params map[string]interface{}) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for key, value := range params {
		switch key {
		case "return_as_matrix":
			b, ok := value.(bool)
			if !ok {
				return errors.NewValidationError(key, "must be a bool", value)
			}
			e.returnAsMatrix = b
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return nil
}

// String returns the encoder representation.
func (e *CategoricalEncoder) String() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return fmt.Sprintf("CategoricalEncoder(return_as_matrix=%t)", e.returnAsMatrix)
}
