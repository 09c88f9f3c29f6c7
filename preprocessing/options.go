package preprocessing

import (
	"github.com/dfencode/dfencode/pkg/log"
)

// EncoderOption configures a CategoricalEncoder.
type EncoderOption func(*CategoricalEncoder)

// WithReturnAsMatrix makes Output and FitTransform return a *mat.Dense
// instead of a *dataset.Frame.
func WithReturnAsMatrix(asMatrix bool) EncoderOption {
	return func(e *CategoricalEncoder) {
		e.returnAsMatrix = asMatrix
	}
}

// WithLogger sets the logger used for fit summaries and unseen categories
func WithLogger(logger log.Logger) EncoderOption {
	return func(e *CategoricalEncoder) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithWarningHandler routes UnseenCategoryWarning values to handler instead of
// the package-wide errors.Warn.
func WithWarningHandler(handler func(error)) EncoderOption {
	return func(e *CategoricalEncoder) {
		if handler != nil {
			e.warn = handler
		}
	}
}

// WithNJobs sets the number of goroutines used to fill indicator columns of
// large frames. -1 means one per CPU.
func WithNJobs(n int) EncoderOption {
	return func(e *CategoricalEncoder) {
		e.nJobs = n
	}
}
