package log

// Standard attribute keys. They follow a dotted, hierarchical naming
// convention so that log pipelines can filter by prefix.

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "FTRLProximal".
	ModelNameKey = "model.name"

	// EstimatorIDKey identifies one estimator instance (a UUID).
	EstimatorIDKey = "estimator.id"

	// ModelTypeKey is "classification" or "regression".
	ModelTypeKey = "model.type"

	OperationKey = "ml.operation"
	ComponentKey = "ml.component"
	PhaseKey     = "ml.phase"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"

	// NonZeroEntriesKey is the number of stored entries of a CSR matrix.
	NonZeroEntriesKey = "data.nnz"

	BatchSizeKey = "data.batch_size"
	PathKey      = "data.path"
)

// Training and performance.
const (
	DurationMsKey = "perf.duration_ms"
	LossKey       = "metrics.loss"
	AUCKey        = "metrics.auc"
	AccuracyKey   = "metrics.accuracy"
	R2ScoreKey    = "metrics.r2_score"
	EpochKey      = "training.epoch"
	PassesKey     = "training.passes"
	ShuffleKey    = "training.shuffle"
	WorkersKey    = "training.workers"

	// ConcurrencyKey is the batch driver mode: "sequential", "hogwild" or "sharded".
	ConcurrencyKey = "training.concurrency"

	// NonZeroWeightsKey counts features whose materialized weight is not exactly zero.
	NonZeroWeightsKey = "model.non_zero_weights"

	PredsKey = "preds.count"
)

// Hyperparameters.
const (
	HyperParamsKey = "model.hyperparams"
	AlphaKey       = "hyperparams.alpha"
	BetaKey        = "hyperparams.beta"
	L1Key          = "hyperparams.l1"
	L2Key          = "hyperparams.l2"
	RandomSeedKey  = "config.random_seed"
)

// Error context.
const (
	ErrorCodeKey  = "error.code"
	ErrorTypeKey  = "error.type"
	StacktraceKey = "error.stacktrace"
)

// Standard values.
const (
	OperationFit        = "fit"
	OperationPartialFit = "partial_fit"
	OperationPredict    = "predict"
	OperationScore      = "score"
	OperationSave       = "save"
	OperationLoad       = "load"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseInference  = "inference"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorEmptyData         = "EMPTY_DATA"
)
