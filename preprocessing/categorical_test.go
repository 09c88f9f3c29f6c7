package preprocessing

import (
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/dfencode/dfencode/dataset"
	"github.com/dfencode/dfencode/pkg/errors"
	"github.com/dfencode/dfencode/pkg/log"
)

// warningRecorder collects warnings emitted by an encoder.
type warningRecorder struct {
	mu       sync.Mutex
	warnings []error
}

func (r *warningRecorder) handle(w error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, w)
}

func (r *warningRecorder) all() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.warnings...)
}

func newTestEncoder(opts ...EncoderOption) (*CategoricalEncoder, *warningRecorder) {
	rec := &warningRecorder{}
	base := []EncoderOption{
		WithLogger(log.NewNopLogger()),
		WithWarningHandler(rec.handle),
	}
	return NewCategoricalEncoder(append(base, opts...)...), rec
}

func peopleFrame(t *testing.T) *dataset.Frame {
	t.Helper()
	df, err := dataset.New(
		dataset.Floats("age", 31, 45, 28, 52),
		dataset.Strings("color", "red", "blue", "red", "green"),
		dataset.Bools("smoker", true, false, true, true),
		dataset.Categories("status", "active", "inactive", "active", "active"),
	)
	require.NoError(t, err)
	return df
}

func columnFloats(t *testing.T, df *dataset.Frame, name string) []float64 {
	t.Helper()
	col, ok := df.Column(name)
	require.True(t, ok, "column %q missing from %v", name, df.Names())
	require.Equal(t, dataset.Numeric, col.Type())
	out := make([]float64, col.Len())
	for i := range out {
		if v, ok := col.Float(i); ok {
			out[i] = v
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

func TestCategoricalEncoderFitClassification(t *testing.T) {
	enc, _ := newTestEncoder()
	df := peopleFrame(t)

	got, err := enc.Fit(df)
	require.NoError(t, err)
	assert.Same(t, enc, got)
	assert.True(t, enc.IsFitted())

	categorical, err := enc.CategoricalColumns()
	require.NoError(t, err)
	assert.Equal(t, []string{"color", "smoker", "status"}, categorical)

	binary, err := enc.BinaryColumns()
	require.NoError(t, err)
	assert.Equal(t, map[string]map[any]float64{
		"smoker": {false: 0.0, true: 1.0},
		"status": {"active": 0.0, "inactive": 1.0},
	}, binary, spew.Sdump(binary))

	expansion, err := enc.ExpansionColumns()
	require.NoError(t, err)
	assert.Equal(t, map[string][]any{"color": {"red", "blue", "green"}}, expansion)

	encoded, err := enc.EncodedColumns()
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "color_red", "color_blue", "color_green", "smoker", "status"}, encoded)

	original, err := enc.OriginalColumns()
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "color", "smoker", "status"}, original)

	// 同じ入力で再学習しても同じ分類・スキーマになる
	again, _ := newTestEncoder()
	_, err = again.Fit(df)
	require.NoError(t, err)
	encodedAgain, _ := again.EncodedColumns()
	assert.Equal(t, encoded, encodedAgain)
}

func TestCategoricalEncoderTransform(t *testing.T) {
	enc, rec := newTestEncoder()
	df := peopleFrame(t)
	_, err := enc.Fit(df)
	require.NoError(t, err)

	out, err := enc.Transform(df)
	require.NoError(t, err)

	assert.Equal(t, 4, out.NumRows())
	encoded, _ := enc.EncodedColumns()
	assert.Equal(t, encoded, out.Names())

	assert.Equal(t, []float64{31, 45, 28, 52}, columnFloats(t, out, "age"))
	assert.Equal(t, []float64{1, 0, 1, 0}, columnFloats(t, out, "color_red"))
	assert.Equal(t, []float64{0, 1, 0, 0}, columnFloats(t, out, "color_blue"))
	assert.Equal(t, []float64{0, 0, 0, 1}, columnFloats(t, out, "color_green"))
	assert.Equal(t, []float64{1, 0, 1, 1}, columnFloats(t, out, "smoker"))
	assert.Equal(t, []float64{0, 1, 0, 0}, columnFloats(t, out, "status"))
	assert.Empty(t, rec.all())
}

func TestCategoricalEncoderBooleanRoundTrip(t *testing.T) {
	enc, _ := newTestEncoder()
	df := dataset.MustNew(dataset.Bools("flag", true, false, true))

	out, err := enc.FitTransform(df)
	require.NoError(t, err)

	frame, ok := out.(*dataset.Frame)
	require.True(t, ok, "default output should be a frame, got %T", out)
	assert.Equal(t, []float64{1, 0, 1}, columnFloats(t, frame, "flag"))
}

func TestCategoricalEncoderBooleanCodesIgnoreOrder(t *testing.T) {
	enc, _ := newTestEncoder()
	// true appears first but still maps to 1.0
	df := dataset.MustNew(dataset.Bools("flag", true, true, false))

	_, err := enc.Fit(df)
	require.NoError(t, err)
	binary, _ := enc.BinaryColumns()
	assert.Equal(t, map[any]float64{false: 0, true: 1}, binary["flag"])
}

func TestCategoricalEncoderTwoValuedText(t *testing.T) {
	enc, _ := newTestEncoder()
	df := dataset.MustNew(dataset.Strings("status", "active", "inactive", "active"))

	out, err := enc.FitTransform(df)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0}, columnFloats(t, out.(*dataset.Frame), "status"))
}

func TestCategoricalEncoderUnseenBinaryCategory(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	enc, rec := newTestEncoder(WithLogger(logger))
	_, err := enc.Fit(dataset.MustNew(dataset.Strings("status", "active", "inactive", "active")))
	require.NoError(t, err)

	out, err := enc.Transform(dataset.MustNew(dataset.Strings("status", "active", "pending", "pending")))
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0}, columnFloats(t, out, "status"))

	warnings := rec.all()
	require.Len(t, warnings, 1, "one warning per distinct unseen value")
	var unseen *errors.UnseenCategoryWarning
	require.True(t, errors.As(warnings[0], &unseen))
	assert.Equal(t, "status", unseen.Column)
	assert.Equal(t, "pending", unseen.Value)
	assert.Equal(t, 0.0, unseen.MappedTo)

	binary, _ := enc.BinaryColumns()
	assert.Equal(t, map[any]float64{"active": 0, "inactive": 1, "pending": 0}, binary["status"])

	assert.Equal(t, 1, logger.CountLevel(log.LevelWarn))
	assert.True(t, logger.ContainsField(log.ValueKey, "pending"))

	// the extension is permanent: no new warning on the next call
	_, err = enc.Transform(dataset.MustNew(dataset.Strings("status", "pending")))
	require.NoError(t, err)
	assert.Len(t, rec.all(), 1)

	// output schema is unaffected by the extension
	encoded, _ := enc.EncodedColumns()
	assert.Equal(t, []string{"status"}, encoded)
}

func TestCategoricalEncoderMissingValues(t *testing.T) {
	enc, rec := newTestEncoder()
	fit := dataset.MustNew(
		dataset.MustColumn("status", dataset.Text, "active", nil, "inactive", "active"),
		dataset.MustColumn("color", dataset.Text, "red", "blue", nil, "green"),
	)
	_, err := enc.Fit(fit)
	require.NoError(t, err)

	binary, _ := enc.BinaryColumns()
	assert.Len(t, binary["status"], 2, "missing is not a category")
	expansion, _ := enc.ExpansionColumns()
	assert.Equal(t, []any{"red", "blue", "green"}, expansion["color"])

	out, err := enc.Transform(fit)
	require.NoError(t, err)

	status, _ := out.Column("status")
	assert.False(t, status.IsMissing(0))
	assert.True(t, status.IsMissing(1), "missing stays missing in binary columns")
	assert.Equal(t, 1.0, status.At(2))

	// a missing cell is 0 in every indicator
	assert.Equal(t, []float64{1, 0, 0, 0}, columnFloats(t, out, "color_red"))
	assert.Equal(t, []float64{0, 1, 0, 0}, columnFloats(t, out, "color_blue"))
	assert.Equal(t, []float64{0, 0, 0, 1}, columnFloats(t, out, "color_green"))
	assert.Empty(t, rec.all(), "missing values never trigger warnings")
}

func TestCategoricalEncoderExpansionUnseenValue(t *testing.T) {
	enc, rec := newTestEncoder()
	_, err := enc.Fit(dataset.MustNew(dataset.Strings("color", "red", "blue", "green")))
	require.NoError(t, err)

	out, err := enc.Transform(dataset.MustNew(dataset.Strings("color", "purple", "red")))
	require.NoError(t, err)
	assert.Equal(t, []string{"color_red", "color_blue", "color_green"}, out.Names())
	assert.Equal(t, []float64{0, 1}, columnFloats(t, out, "color_red"))
	assert.Equal(t, []float64{0, 0}, columnFloats(t, out, "color_blue"))
	assert.Empty(t, rec.all())
}

func TestCategoricalEncoderSingleValuedAndEmptyColumns(t *testing.T) {
	enc, _ := newTestEncoder()
	df := dataset.MustNew(
		dataset.Strings("country", "jp", "jp", "jp"),
		dataset.MustColumn("note", dataset.Text, nil, nil, nil),
		dataset.Floats("x", 1, 2, 3),
	)
	out, err := enc.FitTransform(df)
	require.NoError(t, err)

	frame := out.(*dataset.Frame)
	assert.Equal(t, []string{"country_jp", "x"}, frame.Names())
	assert.Equal(t, []float64{1, 1, 1}, columnFloats(t, frame, "country_jp"))

	expansion, _ := enc.ExpansionColumns()
	assert.Empty(t, expansion["note"])
	assert.Contains(t, expansion, "note")
}

func TestCategoricalEncoderZeroRows(t *testing.T) {
	enc, _ := newTestEncoder()
	df, err := dataset.NewSized(0, dataset.Floats("age"), dataset.Strings("color"), dataset.Bools("flag"))
	require.NoError(t, err)

	_, err = enc.Fit(df)
	require.NoError(t, err)

	binary, _ := enc.BinaryColumns()
	assert.Empty(t, binary)
	expansion, _ := enc.ExpansionColumns()
	assert.Len(t, expansion, 2)

	encoded, _ := enc.EncodedColumns()
	assert.Equal(t, []string{"age"}, encoded)

	out, err := enc.Transform(df)
	require.NoError(t, err)
	assert.Equal(t, 0, out.NumRows())

	m, err := enc.TransformMatrix(df)
	require.NoError(t, err)
	assert.True(t, m.IsEmpty())
}

func TestCategoricalEncoderFitErrors(t *testing.T) {
	t.Run("no columns", func(t *testing.T) {
		enc, _ := newTestEncoder()
		df, err := dataset.NewSized(3)
		require.NoError(t, err)

		_, err = enc.Fit(df)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrEmptyData))
		assert.False(t, enc.IsFitted())
	})

	t.Run("nil frame", func(t *testing.T) {
		enc, _ := newTestEncoder()
		_, err := enc.Fit(nil)
		assert.True(t, errors.Is(err, errors.ErrEmptyData))
	})

	t.Run("generated name collision", func(t *testing.T) {
		enc, _ := newTestEncoder()
		df := dataset.MustNew(
			dataset.Strings("color", "a", "b", "c"),
			dataset.Floats("color_a", 1, 2, 3),
		)
		_, err := enc.Fit(df)
		var verr *errors.ValidationError
		require.True(t, errors.As(err, &verr), "got %v", err)
		assert.Equal(t, "color_a", verr.Value)
		assert.False(t, enc.IsFitted())
	})

	t.Run("failed refit keeps previous fit", func(t *testing.T) {
		enc, _ := newTestEncoder()
		_, err := enc.Fit(peopleFrame(t))
		require.NoError(t, err)

		_, err = enc.Fit(dataset.MustNew(dataset.Strings("c", "x", "y", "z"), dataset.Floats("c_x", 1, 2, 3)))
		require.Error(t, err)

		encoded, err := enc.EncodedColumns()
		require.NoError(t, err)
		assert.Contains(t, encoded, "color_red")
	})
}

func TestCategoricalEncoderNotFitted(t *testing.T) {
	enc, _ := newTestEncoder()
	df := peopleFrame(t)

	assertNotFitted := func(t *testing.T, err error, method string) {
		t.Helper()
		var nf *errors.NotFittedError
		require.True(t, errors.As(err, &nf), "got %v", err)
		assert.Equal(t, "CategoricalEncoder", nf.ModelName)
		assert.Equal(t, method, nf.Method)
	}

	_, err := enc.Transform(df)
	assertNotFitted(t, err, "Transform")
	_, err = enc.TransformMatrix(df)
	assertNotFitted(t, err, "Transform")
	_, err = enc.Output(df)
	assertNotFitted(t, err, "Transform")
	_, err = enc.OriginalColumns()
	assertNotFitted(t, err, "OriginalColumns")
	_, err = enc.CategoricalColumns()
	assertNotFitted(t, err, "CategoricalColumns")
	_, err = enc.BinaryColumns()
	assertNotFitted(t, err, "BinaryColumns")
	_, err = enc.ExpansionColumns()
	assertNotFitted(t, err, "ExpansionColumns")
	_, err = enc.EncodedColumns()
	assertNotFitted(t, err, "EncodedColumns")
	assert.False(t, enc.IsFitted())
}

func TestCategoricalEncoderSchemaMismatch(t *testing.T) {
	enc, _ := newTestEncoder()
	_, err := enc.Fit(peopleFrame(t))
	require.NoError(t, err)

	tests := []struct {
		name   string
		df     *dataset.Frame
		column string
	}{
		{
			name: "missing expansion column",
			df: dataset.MustNew(
				dataset.Floats("age", 1),
				dataset.Bools("smoker", true),
				dataset.Categories("status", "active"),
			),
			column: "color",
		},
		{
			name: "missing binary column",
			df: dataset.MustNew(
				dataset.Floats("age", 1),
				dataset.Strings("color", "red"),
				dataset.Categories("status", "active"),
			),
			column: "smoker",
		},
		{
			name: "missing pass-through column",
			df: dataset.MustNew(
				dataset.Strings("color", "red"),
				dataset.Bools("smoker", true),
				dataset.Categories("status", "active"),
			),
			column: "age",
		},
		{
			name: "categorical column became numeric",
			df: dataset.MustNew(
				dataset.Floats("age", 1),
				dataset.Strings("color", "red"),
				dataset.Floats("smoker", 1),
				dataset.Categories("status", "active"),
			),
			column: "smoker",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := enc.Transform(tt.df)
			var sm *errors.SchemaMismatchError
			require.True(t, errors.As(err, &sm), "got %v", err)
			assert.Equal(t, tt.column, sm.Column)
		})
	}
}

func TestCategoricalEncoderIgnoresExtraColumnsAndOrder(t *testing.T) {
	enc, _ := newTestEncoder()
	_, err := enc.Fit(peopleFrame(t))
	require.NoError(t, err)

	shuffled := dataset.MustNew(
		dataset.Categories("status", "inactive"),
		dataset.Strings("extra", "ignored"),
		dataset.Bools("smoker", false),
		dataset.Strings("color", "green"),
		dataset.Floats("age", 60),
	)
	out, err := enc.Transform(shuffled)
	require.NoError(t, err)

	encoded, _ := enc.EncodedColumns()
	assert.Equal(t, encoded, out.Names())
	assert.Equal(t, []float64{1}, columnFloats(t, out, "color_green"))
	assert.Equal(t, []float64{1}, columnFloats(t, out, "status"))
}

func TestCategoricalEncoderDoesNotMutateInput(t *testing.T) {
	enc, _ := newTestEncoder()
	df := peopleFrame(t)
	before := df.Copy()

	_, err := enc.FitTransform(df)
	require.NoError(t, err)

	assert.Equal(t, before.Names(), df.Names())
	for j := 0; j < df.NumCols(); j++ {
		assert.Equal(t, before.ColumnAt(j).Values(), df.ColumnAt(j).Values())
		assert.Equal(t, before.ColumnAt(j).Type(), df.ColumnAt(j).Type())
	}
}

func TestCategoricalEncoderRefitReplacesState(t *testing.T) {
	enc, _ := newTestEncoder()
	_, err := enc.Fit(peopleFrame(t))
	require.NoError(t, err)

	_, err = enc.Fit(dataset.MustNew(dataset.Strings("city", "tokyo", "osaka", "kyoto")))
	require.NoError(t, err)

	binary, _ := enc.BinaryColumns()
	assert.Empty(t, binary)
	encoded, _ := enc.EncodedColumns()
	assert.Equal(t, []string{"city_tokyo", "city_osaka", "city_kyoto"}, encoded)
}

func TestCategoricalEncoderMatrixOutput(t *testing.T) {
	enc, _ := newTestEncoder(WithReturnAsMatrix(true))
	df := peopleFrame(t)

	out, err := enc.FitTransform(df)
	require.NoError(t, err)

	dense, ok := out.(*mat.Dense)
	require.True(t, ok, "got %T", out)
	r, c := dense.Dims()
	assert.Equal(t, 4, r)
	assert.Equal(t, 6, c)
	assert.Equal(t, []float64{31, 1, 0, 0, 1, 0}, dense.RawRowView(0))
	assert.Equal(t, []float64{45, 0, 1, 0, 0, 1}, dense.RawRowView(1))

	// the frame output is a mat.Matrix as well and agrees cell by cell
	frameEnc, _ := newTestEncoder()
	frameOut, err := frameEnc.FitTransform(df)
	require.NoError(t, err)
	assert.True(t, mat.Equal(dense, frameOut))
}

func TestCategoricalEncoderTransformMatrixMissingIsNaN(t *testing.T) {
	enc, _ := newTestEncoder()
	df := dataset.MustNew(dataset.MustColumn("s", dataset.Text, "a", nil, "b"))
	_, err := enc.Fit(df)
	require.NoError(t, err)

	m, err := enc.TransformMatrix(df)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.At(0, 0))
	assert.True(t, math.IsNaN(m.At(1, 0)))
	assert.Equal(t, 1.0, m.At(2, 0))
}

func TestCategoricalEncoderParams(t *testing.T) {
	enc, _ := newTestEncoder()
	assert.Equal(t, "CategoricalEncoder(return_as_matrix=false)", enc.String())
	assert.Equal(t, map[string]interface{}{"return_as_matrix": false}, enc.GetParams())

	require.NoError(t, enc.SetParams(map[string]interface{}{"return_as_matrix": true}))
	assert.Equal(t, "CategoricalEncoder(return_as_matrix=true)", enc.String())

	out, err := enc.FitTransform(peopleFrame(t))
	require.NoError(t, err)
	assert.IsType(t, &mat.Dense{}, out)

	var verr *errors.ValidationError
	assert.True(t, errors.As(enc.SetParams(map[string]interface{}{"return_as_matrix": "yes"}), &verr))
	assert.True(t, errors.As(enc.SetParams(map[string]interface{}{"sparse": true}), &verr))
}

func TestCategoricalEncoderAccessorsReturnCopies(t *testing.T) {
	enc, _ := newTestEncoder()
	_, err := enc.Fit(peopleFrame(t))
	require.NoError(t, err)

	encoded, _ := enc.EncodedColumns()
	encoded[0] = "mutated"
	expansion, _ := enc.ExpansionColumns()
	expansion["color"][0] = "mutated"
	binary, _ := enc.BinaryColumns()
	binary["status"]["mutated"] = 1

	fresh, _ := enc.EncodedColumns()
	assert.Equal(t, "age", fresh[0])
	freshExp, _ := enc.ExpansionColumns()
	assert.Equal(t, "red", freshExp["color"][0])
	freshBin, _ := enc.BinaryColumns()
	assert.NotContains(t, freshBin["status"], "mutated")
}

func TestCategoricalEncoderLogsFitSummary(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	enc, _ := newTestEncoder(WithLogger(logger))

	_, err := enc.FitTransform(peopleFrame(t))
	require.NoError(t, err)

	assert.True(t, logger.ContainsMessage("Encoder fitted"))
	assert.True(t, logger.ContainsField(log.SamplesKey, float64(4)))
	assert.True(t, logger.ContainsField(log.FeaturesKey, float64(4)))
	assert.True(t, logger.ContainsField(log.BinaryColumnsKey, float64(2)))
	assert.True(t, logger.ContainsField(log.ExpansionColumnsKey, float64(1)))
	assert.True(t, logger.ContainsField(log.OutputFeaturesKey, float64(6)))
	assert.True(t, logger.ContainsMessage("Frame transformed"))
}

func TestCategoricalEncoderParallelMatchesSequential(t *testing.T) {
	const rows = 5000
	cats := []string{"a", "b", "c", "d"}
	values := make([]any, rows)
	for i := range values {
		if i%17 == 0 {
			continue
		}
		values[i] = cats[i%len(cats)]
	}
	df := dataset.MustNew(dataset.MustColumn("letter", dataset.Category, values...))

	seq, _ := newTestEncoder()
	par, _ := newTestEncoder(WithNJobs(4))

	seqOut, err := seq.FitTransform(df)
	require.NoError(t, err)
	parOut, err := par.FitTransform(df)
	require.NoError(t, err)

	assert.Equal(t, seqOut.(*dataset.Frame).Names(), parOut.(*dataset.Frame).Names())
	assert.True(t, mat.Equal(seqOut, parOut))
}

func TestCategoricalEncoderConcurrentTransform(t *testing.T) {
	enc, rec := newTestEncoder()
	_, err := enc.Fit(dataset.MustNew(dataset.Strings("status", "active", "inactive")))
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			df := dataset.MustNew(dataset.Strings("status", "pending", fmt.Sprintf("new-%d", w%2), "active"))
			out, err := enc.Transform(df)
			if err != nil {
				errs <- err
				return
			}
			if got := out.At(0, 0); got != 0.0 {
				errs <- fmt.Errorf("pending encoded as %v", got)
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	// pending, new-0 and new-1 are each reported exactly once
	assert.Len(t, rec.all(), 3)
	binary, _ := enc.BinaryColumns()
	assert.Len(t, binary["status"], 5)
}

func TestCodeTableInsertIfAbsent(t *testing.T) {
	table := newCodeTable()
	code, inserted := table.InsertIfAbsent("x", 1.0)
	assert.True(t, inserted)
	assert.Equal(t, 1.0, code)

	code, inserted = table.InsertIfAbsent("x", 0.0)
	assert.False(t, inserted)
	assert.Equal(t, 1.0, code, "existing code wins")

	got, ok := table.Lookup("x")
	assert.True(t, ok)
	assert.Equal(t, 1.0, got)
	assert.Equal(t, 1, table.Len())

	snap := table.Snapshot()
	snap["y"] = 0
	assert.Equal(t, 1, table.Len())
}
