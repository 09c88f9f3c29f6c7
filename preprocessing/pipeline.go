package preprocessing

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/dfencode/dfencode/core/model"
	"github.com/dfencode/dfencode/dataset"
	"github.com/dfencode/dfencode/pkg/errors"
	"github.com/dfencode/dfencode/pkg/log"
)

// Pipeline chains a CategoricalEncoder with numeric transformers such as
// StandardScaler. The encoder turns a frame into a matrix; each step is fitted
// on the output of the previous one.
type Pipeline struct {
	state   *model.StateManager
	encoder *CategoricalEncoder
	steps   []model.Transformer
	logger  log.Logger
}

// NewPipeline creates a pipeline. Without steps it behaves like the encoder
// alone and honours its return_as_matrix setting.
func NewPipeline(encoder *CategoricalEncoder, steps ...model.Transformer) *Pipeline {
	return &Pipeline{
		state:   model.NewStateManager(),
		encoder: encoder,
		steps:   steps,
		logger:  log.GetLoggerWithName("preprocessing.pipeline").With(log.ModelNameKey, "Pipeline"),
	}
}

// Encoder returns the first stage of the pipeline.
func (p *Pipeline) Encoder() *CategoricalEncoder { return p.encoder }

// Fit fits the encoder on df and then every step in order.
func (p *Pipeline) Fit(df *dataset.Frame) error {
	_, err := p.FitTransform(df)
	return err
}

// FitTransform fits every stage and returns the output of the last one.
// If any stage fails the pipeline is left unfitted, since earlier steps may
// already have been refitted on the new data.
func (p *Pipeline) FitTransform(df *dataset.Frame) (out mat.Matrix, err error) {
	defer func() {
		if err != nil {
			p.state.Reset()
		}
	}()
	if p.encoder == nil {
		return nil, errors.NewValidationError("encoder", "pipeline needs an encoder", nil)
	}
	if _, err := p.encoder.Fit(df); err != nil {
		return nil, err
	}
	if len(p.steps) == 0 {
		out, err := p.encoder.Output(df)
		if err != nil {
			return nil, err
		}
		p.markFitted(df)
		return out, nil
	}

	X, err := p.encoder.TransformMatrix(df)
	if err != nil {
		return nil, err
	}
	out = X
	for i, step := range p.steps {
		out, err = step.FitTransform(out)
		if err != nil {
			return nil, errors.Wrapf(err, "Pipeline.Fit: step %d (%T)", i, step)
		}
	}
	p.markFitted(df)
	return out, nil
}

func (p *Pipeline) markFitted(df *dataset.Frame) {
	p.state.MarkFitted(df.NumCols(), df.NumRows())
	nFeatures, nSamples := p.state.Dimensions()
	p.logger.Info("Pipeline fitted",
		log.OperationKey, log.OperationFitTransform,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		"pipeline.state", p.state.State().String(),
		"pipeline.steps", len(p.steps),
	)
}

// Transform runs df through the fitted encoder and every step.
func (p *Pipeline) Transform(df *dataset.Frame) (mat.Matrix, error) {
	if err := p.state.RequireFitted("Pipeline", "Transform"); err != nil {
		return nil, err
	}
	if len(p.steps) == 0 {
		return p.encoder.Output(df)
	}

	X, err := p.encoder.TransformMatrix(df)
	if err != nil {
		return nil, err
	}
	var out mat.Matrix = X
	for i, step := range p.steps {
		out, err = step.Transform(out)
		if err != nil {
			return nil, errors.Wrapf(err, "Pipeline.Transform: step %d (%T)", i, step)
		}
	}
	return out, nil
}

// OutputColumns returns the names of the output columns. Scalers keep the
// column layout, so these are the encoder's encoded columns.
func (p *Pipeline) OutputColumns() ([]string, error) {
	if err := p.state.RequireFitted("Pipeline", "OutputColumns"); err != nil {
		return nil, err
	}
	return p.encoder.EncodedColumns()
}

// IsFitted reports whether the pipeline has been fitted.
func (p *Pipeline) IsFitted() bool { return p.state.IsFitted() }

// String returns the pipeline representation.
func (p *Pipeline) String() string {
	parts := make([]string, 0, len(p.steps)+1)
	parts = append(parts, fmt.Sprint(p.encoder))
	for _, step := range p.steps {
		parts = append(parts, fmt.Sprint(step))
	}
	return "Pipeline(" + strings.Join(parts, ", ") + ")"
}
