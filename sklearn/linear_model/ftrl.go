// Package linear_model provides scikit-learn style linear estimators.
package linear_model

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ftrl/core/model"
	"github.com/YuminosukeSato/ftrl/core/sparse"
	"github.com/YuminosukeSato/ftrl/linear/ftrl"
	"github.com/YuminosukeSato/ftrl/metrics"
	"github.com/YuminosukeSato/ftrl/pkg/errors"
	"github.com/YuminosukeSato/ftrl/pkg/log"
)

const (
	ftrlModelName = "FTRLProximal"
	ftrlVersion   = "1.0.0"
)

// FTRLProximal is an online logistic / linear regression estimator trained with
// FTRL-Proximal. It accepts dense gonum matrices (converted to sparse rows, zero
// entries dropped) or CSR matrices directly.
type FTRLProximal struct {
	state *model.StateManager
	mu    sync.RWMutex
	id    string

	// Hyperparameters
	params      ftrl.Params
	numPasses   int
	shuffle     bool
	randomState int64 // < 0: seeded from the clock
	nJobs       int
	concurrency ftrl.Concurrency
	warmStart   bool
	numFeatures int // 0: taken from the first training batch
	observer    ftrl.Observer

	// Learned state
	model       *ftrl.Model
	rng         *rand.Rand
	lossHistory []float64

	logger log.Logger
}

// FTRLOption is a functional option for FTRLProximal.
type FTRLOption func(*FTRLProximal)

// NewFTRLProximal creates an estimator with alpha=1, beta=1, no regularization,
// classification, one shuffled pass per Fit.
func NewFTRLProximal(opts ...FTRLOption) *FTRLProximal {
	f := &FTRLProximal{
		state:       model.NewStateManager(),
		id:          uuid.NewString(),
		params:      ftrl.DefaultParams(),
		numPasses:   1,
		shuffle:     true,
		randomState: -1,
		nJobs:       1,
		concurrency: ftrl.Sequential,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = log.GetLoggerWithName("sklearn.linear_model").With(
		log.ModelNameKey, ftrlModelName,
		log.EstimatorIDKey, f.id,
	)
	return f
}

// WithAlpha sets the learning-rate scale alpha (> 0).
func WithAlpha(alpha float64) FTRLOption {
	return func(f *FTRLProximal) { f.params.Alpha = float32(alpha) }
}

// WithBeta sets the learning-rate smoothing beta.
func WithBeta(beta float64) FTRLOption {
	return func(f *FTRLProximal) { f.params.Beta = float32(beta) }
}

// WithL1 sets the L1 regularization strength.
func WithL1(l1 float64) FTRLOption {
	return func(f *FTRLProximal) { f.params.L1 = float32(l1) }
}

// WithL2 sets the L2 regularization strength.
func WithL2(l2 float64) FTRLOption {
	return func(f *FTRLProximal) { f.params.L2 = float32(l2) }
}

// WithModelType selects classification or regression.
func WithModelType(t ftrl.ModelType) FTRLOption {
	return func(f *FTRLProximal) { f.params.ModelType = t }
}

// WithNumPasses sets the number of passes Fit makes over the data.
func WithNumPasses(n int) FTRLOption {
	return func(f *FTRLProximal) { f.numPasses = n }
}

// WithShuffle sets whether Fit visits examples in random order.
func WithShuffle(shuffle bool) FTRLOption {
	return func(f *FTRLProximal) { f.shuffle = shuffle }
}

// WithRandomState seeds the shuffle. Negative values seed from the clock.
func WithRandomState(seed int64) FTRLOption {
	return func(f *FTRLProximal) { f.randomState = seed }
}

// WithNJobs sets the worker count for parallel fitting and prediction.
// n <= 0 uses one worker per CPU.
func WithNJobs(n int) FTRLOption {
	return func(f *FTRLProximal) { f.nJobs = n }
}

// WithConcurrency selects how Fit spreads examples over the NJobs workers.
func WithConcurrency(c ftrl.Concurrency) FTRLOption {
	return func(f *FTRLProximal) { f.concurrency = c }
}

// WithWarmStart keeps the learned state across Fit calls.
func WithWarmStart(warm bool) FTRLOption {
	return func(f *FTRLProximal) { f.warmStart = warm }
}

// WithNumFeatures fixes the size of the feature space instead of inferring it
// from the first training batch.
func WithNumFeatures(n int) FTRLOption {
	return func(f *FTRLProximal) { f.numFeatures = n }
}

// WithObserver reports every batch to o, e.g. a telemetry collector.
func WithObserver(o ftrl.Observer) FTRLOption {
	return func(f *FTRLProximal) { f.observer = o }
}

// ID returns the estimator's unique identifier, used in log lines.
func (f *FTRLProximal) ID() string { return f.id }

// Fit trains a fresh model (unless warm start is enabled) for NumPasses passes.
// y must be an n×1 matrix.
func (f *FTRLProximal) Fit(X, y mat.Matrix) error {
	Xs, labels, cols, err := denseInput("Fit", X, y)
	if err != nil {
		return err
	}
	return f.fit(Xs, labels, cols)
}

// FitSparse is Fit over a CSR matrix. Without WithNumFeatures the feature
// space is sized by the largest column index of X.
func (f *FTRLProximal) FitSparse(X *sparse.CSR, y []float32) error {
	return f.fit(X, y, 0)
}

func (f *FTRLProximal) fit(X *sparse.CSR, y []float32, featuresHint int) (err error) {
	defer errors.Recover(&err, "FTRLProximal.Fit")
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.numPasses < 1 {
		return errors.NewValidationError("num_passes", "must be at least 1", f.numPasses)
	}
	if err := f.params.Validate(); err != nil {
		return err
	}
	if X == nil {
		return errors.NewValueError("Fit", "nil matrix")
	}
	// fresh のときは新しいモデルで学習し、成功した場合だけ差し替える
	m, rng := f.model, f.rng
	fresh := !f.warmStart || f.model == nil
	if fresh {
		var err error
		if m, err = f.newModelLocked(X, featuresHint); err != nil {
			return err
		}
		rng = f.newRand()
	}

	start := time.Now()
	f.logger.Info("fit started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, X.NumExamples,
		log.FeaturesKey, m.NumFeatures(),
		log.PassesKey, f.numPasses,
	)
	losses := make([]float64, 0, f.numPasses)
	for pass := 0; pass < f.numPasses; pass++ {
		loss, err := f.runPass(m, rng, X, y, f.shuffle, pass)
		if err != nil {
			if fresh {
				m.Release()
			}
			f.logger.Error("fit failed", err, log.OperationKey, log.OperationFit, log.EpochKey, pass)
			return err
		}
		losses = append(losses, loss)
	}
	if fresh {
		f.installLocked(m, rng)
	}
	for _, loss := range losses {
		f.recordPassLocked(loss, X.NumExamples)
	}
	f.state.SetFitted()

	if n := len(f.lossHistory); f.numPasses > 1 && n >= 2 && f.lossHistory[n-1] > f.lossHistory[n-f.numPasses] {
		errors.Warn(errors.NewConvergenceWarning(ftrlModelName, f.numPasses, "loss increased over the passes"))
	}
	nz, _ := f.model.NonZeroWeights()
	f.logger.Info("fit completed",
		log.OperationKey, log.OperationFit,
		log.LossKey, f.lossHistory[len(f.lossHistory)-1],
		log.NonZeroWeightsKey, nz,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// PartialFit runs exactly one unshuffled pass over the batch, continuing from
// the current state. The first call creates the model.
func (f *FTRLProximal) PartialFit(X, y mat.Matrix) error {
	Xs, labels, cols, err := denseInput("PartialFit", X, y)
	if err != nil {
		return err
	}
	return f.partialFit(Xs, labels, cols)
}

// PartialFitSparse is PartialFit over a CSR matrix.
func (f *FTRLProximal) PartialFitSparse(X *sparse.CSR, y []float32) error {
	return f.partialFit(X, y, 0)
}

func (f *FTRLProximal) partialFit(X *sparse.CSR, y []float32, featuresHint int) (err error) {
	defer errors.Recover(&err, "FTRLProximal.PartialFit")
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.params.Validate(); err != nil {
		return err
	}
	if X == nil {
		return errors.NewValueError("PartialFit", "nil matrix")
	}
	m, rng := f.model, f.rng
	fresh := m == nil
	if fresh {
		var err error
		if m, err = f.newModelLocked(X, featuresHint); err != nil {
			return err
		}
		rng = f.newRand()
	}
	loss, err := f.runPass(m, rng, X, y, false, f.state.NIterations())
	if err != nil {
		if fresh {
			m.Release()
		}
		return err
	}
	if fresh {
		f.installLocked(m, rng)
	}
	f.recordPassLocked(loss, X.NumExamples)
	f.state.SetFitted()
	return nil
}

// FitStream trains on every batch received from dataChan with PartialFit.
// Cancellation is checked between batches.
func (f *FTRLProximal) FitStream(ctx context.Context, dataChan <-chan *model.Batch) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-dataChan:
			if !ok {
				return nil
			}
			if batch == nil {
				continue
			}
			if err := f.PartialFitSparse(batch.X, batch.Y); err != nil {
				return err
			}
		}
	}
}

// PredictStream emits PredictSparse results for every matrix received. Batches
// that fail to predict are logged and skipped.
func (f *FTRLProximal) PredictStream(ctx context.Context, inputChan <-chan *sparse.CSR) <-chan []float64 {
	out := make(chan []float64)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case X, ok := <-inputChan:
				if !ok {
					return
				}
				pred, err := f.PredictSparse(X)
				if err != nil {
					f.logger.Warn("stream prediction failed", err, log.OperationKey, log.OperationPredict)
					continue
				}
				select {
				case out <- pred:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// newModelLocked sizes an empty model for X. The estimator is not touched.
func (f *FTRLProximal) newModelLocked(X *sparse.CSR, featuresHint int) (*ftrl.Model, error) {
	nf := f.numFeatures
	if nf <= 0 {
		nf = featuresHint
	}
	if nf <= 0 {
		nf = X.NumFeatures()
	}
	return ftrl.NewModel(f.params, nf)
}

func (f *FTRLProximal) newRand() *rand.Rand {
	seed := uint64(time.Now().UnixNano())
	if f.randomState >= 0 {
		seed = uint64(f.randomState)
	}
	return rand.New(rand.NewPCG(seed, seed))
}

// installLocked replaces the learned state with m.
func (f *FTRLProximal) installLocked(m *ftrl.Model, rng *rand.Rand) {
	if f.model != nil {
		f.model.Release()
	}
	f.model = m
	f.rng = rng
	f.lossHistory = nil
	f.state.Reset()
	f.state.SetNumFeatures(m.NumFeatures())
}

func (f *FTRLProximal) batchOptions(rng *rand.Rand, shuffle bool) []ftrl.BatchOption {
	opts := []ftrl.BatchOption{
		ftrl.WithShuffle(shuffle),
		ftrl.WithRand(rng),
		ftrl.WithWorkers(f.nJobs),
		ftrl.WithConcurrency(f.concurrency),
	}
	if f.observer != nil {
		opts = append(opts, ftrl.WithObserver(f.observer))
	}
	return opts
}

// runPass runs one FitBatch on m.
func (f *FTRLProximal) runPass(m *ftrl.Model, rng *rand.Rand, X *sparse.CSR, y []float32, shuffle bool, epoch int) (float64, error) {
	start := time.Now()
	loss, err := m.FitBatch(X, y, f.batchOptions(rng, shuffle)...)
	if err != nil {
		return 0, err
	}
	f.logger.Debug("pass completed",
		log.EpochKey, epoch,
		log.LossKey, loss,
		log.ShuffleKey, shuffle,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return loss, nil
}

func (f *FTRLProximal) recordPassLocked(loss float64, samples int) {
	f.lossHistory = append(f.lossHistory, loss)
	f.state.RecordPass(samples)
}

func (f *FTRLProximal) requireModel(method string) (*ftrl.Model, error) {
	if err := f.state.RequireFitted(ftrlModelName, method); err != nil {
		return nil, err
	}
	if f.model == nil {
		return nil, errors.NewNotFittedError(ftrlModelName, method)
	}
	return f.model, nil
}

// DecisionFunctionSparse returns the raw linear score of every row.
func (f *FTRLProximal) DecisionFunctionSparse(X *sparse.CSR) ([]float64, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	m, err := f.requireModel("DecisionFunction")
	if err != nil {
		return nil, err
	}
	return m.PredictBatch(X, ftrl.WithWorkers(f.nJobs))
}

// PredictProbaSparse returns P(y=1) for classification, the score for regression.
func (f *FTRLProximal) PredictProbaSparse(X *sparse.CSR) ([]float64, error) {
	out, _, err := f.predictProba(X)
	return out, err
}

// predictProba also reports the model type of the model that produced the output.
func (f *FTRLProximal) predictProba(X *sparse.CSR) ([]float64, ftrl.ModelType, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	m, err := f.requireModel("PredictProba")
	if err != nil {
		return nil, 0, err
	}
	out, err := m.PredictProbabilityBatch(X, ftrl.WithWorkers(f.nJobs))
	return out, m.Params().ModelType, err
}

// PredictSparse returns 0/1 labels (probability >= 0.5) for classification and
// scores for regression.
func (f *FTRLProximal) PredictSparse(X *sparse.CSR) ([]float64, error) {
	out, _, err := f.predictSparse(X)
	return out, err
}

func (f *FTRLProximal) predictSparse(X *sparse.CSR) ([]float64, ftrl.ModelType, error) {
	out, mt, err := f.predictProba(X)
	if err != nil {
		return nil, mt, err
	}
	if mt == ftrl.Classification {
		return metrics.Threshold(out, 0.5).RawVector().Data, mt, nil
	}
	return out, mt, nil
}

func (f *FTRLProximal) modelType() ftrl.ModelType {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.params.ModelType
}

// Predict returns an n×1 matrix of labels (classification) or values (regression).
func (f *FTRLProximal) Predict(X mat.Matrix) (mat.Matrix, error) {
	if X == nil {
		return nil, errors.NewValueError("Predict", "nil matrix")
	}
	pred, err := f.PredictSparse(sparse.FromDense(X))
	if err != nil {
		return nil, err
	}
	return column(pred), nil
}

// DecisionFunction returns an n×1 matrix of raw linear scores.
func (f *FTRLProximal) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	if X == nil {
		return nil, errors.NewValueError("DecisionFunction", "nil matrix")
	}
	scores, err := f.DecisionFunctionSparse(sparse.FromDense(X))
	if err != nil {
		return nil, err
	}
	return column(scores), nil
}

// PredictProba returns an n×2 matrix [P(y=0), P(y=1)]. Classification only.
func (f *FTRLProximal) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if f.modelType() != ftrl.Classification {
		return nil, errors.NewValueError("PredictProba", "only available for classification")
	}
	if X == nil {
		return nil, errors.NewValueError("PredictProba", "nil matrix")
	}
	p, mt, err := f.predictProba(sparse.FromDense(X))
	if err != nil {
		return nil, err
	}
	if mt != ftrl.Classification {
		return nil, errors.NewValueError("PredictProba", "only available for classification")
	}
	out := mat.NewDense(len(p), 2, nil)
	for i, v := range p {
		out.Set(i, 0, 1-v)
		out.Set(i, 1, v)
	}
	return out, nil
}

// Score returns the accuracy for classification and R² for regression.
func (f *FTRLProximal) Score(X, y mat.Matrix) (float64, error) {
	yv, err := columnVector("Score", y)
	if err != nil {
		return 0, err
	}
	if X == nil {
		return 0, errors.NewValueError("Score", "nil matrix")
	}
	pred, mt, err := f.predictSparse(sparse.FromDense(X))
	if err != nil {
		return 0, err
	}
	pv := metrics.Vec(pred)
	if mt == ftrl.Classification {
		return metrics.Accuracy(yv, pv)
	}
	return metrics.R2Score(yv, pv)
}

// Save writes the learned model in the binary model format.
func (f *FTRLProximal) Save(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.requireModel("Save")
	if err != nil {
		return err
	}
	if err := m.Save(path); err != nil {
		f.logger.Error("save failed", err, log.OperationKey, log.OperationSave, log.PathKey, path)
		return err
	}
	return nil
}

// Load replaces the estimator's model and hyperparameters with the ones stored at path.
func (f *FTRLProximal) Load(path string) error {
	m, err := ftrl.Load(path)
	if err != nil {
		f.logger.Error("load failed", err, log.OperationKey, log.OperationLoad, log.PathKey, path)
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.model != nil {
		f.model.Release()
	}
	f.model = m
	f.params = m.Params()
	f.numFeatures = m.NumFeatures()
	f.lossHistory = nil
	f.state.Reset()
	f.state.SetNumFeatures(m.NumFeatures())
	f.state.SetFitted()
	if f.rng == nil {
		seed := uint64(max(f.randomState, 0))
		f.rng = rand.New(rand.NewPCG(seed, seed))
	}
	return nil
}

// LoadFTRLProximal creates an estimator from a saved model.
func LoadFTRLProximal(path string, opts ...FTRLOption) (*FTRLProximal, error) {
	f := NewFTRLProximal(opts...)
	if err := f.Load(path); err != nil {
		return nil, err
	}
	return f, nil
}

// Release frees the underlying model. The estimator returns to the unfitted state.
func (f *FTRLProximal) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.model != nil {
		f.model.Release()
		f.model = nil
	}
	f.state.Reset()
}

// Model returns the underlying FTRL model, nil before fitting.
func (f *FTRLProximal) Model() *ftrl.Model {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.model
}

// Coef returns the materialized feature weights.
func (f *FTRLProximal) Coef() []float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.model == nil {
		return nil
	}
	w, _, err := f.model.Weights()
	if err != nil {
		return nil
	}
	out := make([]float64, len(w))
	for i, v := range w {
		out[i] = float64(v)
	}
	return out
}

// Intercept returns the materialized intercept.
func (f *FTRLProximal) Intercept() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.model == nil {
		return 0
	}
	_, b, _ := f.model.Weights()
	return float64(b)
}

// ExportWeights exports coefficients, intercept and hyperparameters.
func (f *FTRLProximal) ExportWeights() (*model.ModelWeights, error) {
	if !f.state.IsFitted() {
		return nil, errors.NewNotFittedError(ftrlModelName, "ExportWeights")
	}
	mw := &model.ModelWeights{
		ModelType:       ftrlModelName,
		Version:         ftrlVersion,
		Coefficients:    f.Coef(),
		Intercept:       f.Intercept(),
		Hyperparameters: f.GetParams(),
		IsFitted:        true,
	}
	st := f.state.GetState()
	if err := errors.CheckNumericalStability("ExportWeights", mw.Coefficients, st.NIterations); err != nil {
		return nil, err
	}
	mw.Metadata = map[string]interface{}{
		"n_features":   st.NFeatures,
		"samples_seen": st.SamplesSeen,
		"n_iterations": st.NIterations,
		"non_zero":     mw.NonZero(),
		"checksum":     mw.Checksum(),
	}
	return mw, nil
}

// GetWeightHash returns the SHA-256 of the exported weights, "" before fitting.
func (f *FTRLProximal) GetWeightHash() string {
	mw, err := f.ExportWeights()
	if err != nil {
		return ""
	}
	return mw.Checksum()
}

// GetParams returns the model hyperparameters.
func (f *FTRLProximal) GetParams() map[string]interface{} {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return map[string]interface{}{
		"alpha":        float64(f.params.Alpha),
		"beta":         float64(f.params.Beta),
		"l1":           float64(f.params.L1),
		"l2":           float64(f.params.L2),
		"model_type":   f.params.ModelType.String(),
		"num_passes":   f.numPasses,
		"shuffle":      f.shuffle,
		"random_state": f.randomState,
		"n_jobs":       f.nJobs,
		"concurrency":  f.concurrency.String(),
		"warm_start":   f.warmStart,
	}
}

// LossHistory returns the mean loss of every pass since the last reset.
func (f *FTRLProximal) LossHistory() []float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]float64(nil), f.lossHistory...)
}

// GetLossHistory implements model.OnlineMetrics.
func (f *FTRLProximal) GetLossHistory() []float64 { return f.LossHistory() }

// GetLoss returns the mean loss of the last pass, 0 before fitting.
func (f *FTRLProximal) GetLoss() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.lossHistory) == 0 {
		return 0
	}
	return f.lossHistory[len(f.lossHistory)-1]
}

// GetConverged reports whether the last pass did not increase the loss.
func (f *FTRLProximal) GetConverged() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := len(f.lossHistory)
	return n >= 2 && f.lossHistory[n-1] <= f.lossHistory[n-2]
}

// NIterations returns the number of passes made since the last reset.
func (f *FTRLProximal) NIterations() int { return f.state.NIterations() }

// IsFitted reports whether the estimator has a trained model.
func (f *FTRLProximal) IsFitted() bool { return f.state.IsFitted() }

// IsWarmStart reports whether Fit continues from the existing state.
func (f *FTRLProximal) IsWarmStart() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.warmStart
}

// SetWarmStart enables or disables warm start.
func (f *FTRLProximal) SetWarmStart(warm bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.warmStart = warm
}

var (
	_ model.IncrementalEstimator = (*FTRLProximal)(nil)
	_ model.StreamingEstimator   = (*FTRLProximal)(nil)
	_ model.SparseEstimator      = (*FTRLProximal)(nil)
	_ model.Classifier           = (*FTRLProximal)(nil)
	_ model.OnlineMetrics        = (*FTRLProximal)(nil)
	_ model.Persistable          = (*FTRLProximal)(nil)
	_ model.WeightExporter       = (*FTRLProximal)(nil)
)
