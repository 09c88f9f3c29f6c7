// Standard attribute keys for encoding operations.
//
// Keys follow a hierarchical naming convention ("model.name",
// "data.samples") so that log output can be filtered the same way across
// encoders, scalers and the CLI.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of transformer.
	// Examples: "CategoricalEncoder", "StandardScaler", "Pipeline"
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "transform", "fit_transform"
	OperationKey = "ml.operation"

	// ComponentKey identifies which component or package is performing the operation.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the processing lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of rows in the frame.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of input columns.
	FeaturesKey = "data.features"

	// OutputFeaturesKey indicates the number of encoded output columns.
	OutputFeaturesKey = "data.output_features"

	// ColumnKey names the column an event refers to.
	ColumnKey = "data.column"

	// ValueKey carries the offending cell value, e.g. an unseen category.
	ValueKey = "data.value"
)

// Encoding Summary
const (
	// CategoricalColumnsKey records how many columns were detected as categorical.
	CategoricalColumnsKey = "encoding.categorical"

	// BinaryColumnsKey records how many categorical columns were binary coded.
	BinaryColumnsKey = "encoding.binary"

	// ExpansionColumnsKey records how many categorical columns were one-hot expanded.
	ExpansionColumnsKey = "encoding.expansion"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

// Error and Warning Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"
)

// Standard attribute values.
const (
	OperationFit          = "fit"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"

	PhasePreprocessing = "preprocessing"

	ErrorNotFitted      = "NOT_FITTED"
	ErrorSchemaMismatch = "SCHEMA_MISMATCH"
	ErrorEmptyData      = "EMPTY_DATA"
	ErrorUnseenCategory = "UNSEEN_CATEGORY"
)
