package ftrl

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/YuminosukeSato/ftrl/core/parallel"
	"github.com/YuminosukeSato/ftrl/core/sparse"
	"github.com/YuminosukeSato/ftrl/pkg/errors"
	"github.com/YuminosukeSato/ftrl/pkg/log"
)

// parallelThreshold 以下の件数は呼び出し元のゴルーチンで処理する
const parallelThreshold = 1024

// Concurrency selects how FitBatch spreads examples over workers.
type Concurrency int

const (
	// Sequential processes examples one at a time on the calling goroutine.
	Sequential Concurrency = iota
	// Hogwild lets workers update shared accumulators without locks.
	Hogwild
	// Sharded trains per-worker copies and sums their deltas after the join.
	Sharded
)

func (c Concurrency) String() string {
	switch c {
	case Sequential:
		return "sequential"
	case Hogwild:
		return "hogwild"
	case Sharded:
		return "sharded"
	default:
		return "unknown"
	}
}

// ParseConcurrency converts "sequential", "hogwild" or "sharded".
func ParseConcurrency(s string) (Concurrency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sequential":
		return Sequential, nil
	case "hogwild":
		return Hogwild, nil
	case "sharded":
		return Sharded, nil
	}
	return 0, errors.NewValidationError("concurrency",
		"unknown concurrency: allowed sequential, hogwild, sharded", s)
}

// BatchStats describes one completed batch call.
type BatchStats struct {
	Operation string
	Mode      Concurrency
	Workers   int
	Examples  int
	NNZ       int
	Loss      float64
	Duration  time.Duration
}

// Observer receives statistics after every FitBatch and PredictBatch call.
type Observer interface {
	ObserveBatch(stats BatchStats)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(BatchStats)

// ObserveBatch implements Observer.
func (f ObserverFunc) ObserveBatch(s BatchStats) { f(s) }

type batchConfig struct {
	shuffle  bool
	rng      *rand.Rand
	workers  int
	mode     Concurrency
	observer Observer
}

// BatchOption configures FitBatch and PredictBatch.
type BatchOption func(*batchConfig)

// WithShuffle visits the examples in a random order.
func WithShuffle(shuffle bool) BatchOption {
	return func(c *batchConfig) { c.shuffle = shuffle }
}

// WithSeed seeds the shuffle so that sequential runs are reproducible.
func WithSeed(seed uint64) BatchOption {
	return func(c *batchConfig) { c.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// WithRand uses r for shuffling. Callers keep r across batches to get a
// different but reproducible order on every pass.
func WithRand(r *rand.Rand) BatchOption {
	return func(c *batchConfig) { c.rng = r }
}

// WithWorkers sets the number of worker goroutines. n <= 0 means one per CPU.
// Sequential fitting ignores it.
func WithWorkers(n int) BatchOption {
	return func(c *batchConfig) { c.workers = n }
}

// WithConcurrency selects the fitting mode.
func WithConcurrency(mode Concurrency) BatchOption {
	return func(c *batchConfig) { c.mode = mode }
}

// WithObserver reports batch statistics to o.
func WithObserver(o Observer) BatchOption {
	return func(c *batchConfig) { c.observer = o }
}

func newBatchConfig(opts []BatchOption) (*batchConfig, error) {
	c := &batchConfig{mode: Sequential}
	for _, opt := range opts {
		opt(c)
	}
	switch c.mode {
	case Sequential, Hogwild, Sharded:
	default:
		return nil, errors.NewValidationError("concurrency", "unknown concurrency mode", int(c.mode))
	}
	if c.shuffle && c.rng == nil {
		seed := uint64(time.Now().UnixNano())
		c.rng = rand.New(rand.NewPCG(seed, seed))
	}
	return c, nil
}

// fitWorkers is 1 for sequential fitting, the requested count otherwise.
func (c *batchConfig) fitWorkers() int {
	if c.mode == Sequential {
		return 1
	}
	return parallel.Workers(c.workers)
}

// predictWorkers honours an explicit worker count in every mode.
func (c *batchConfig) predictWorkers() int {
	if c.workers > 0 {
		return c.workers
	}
	if c.mode == Sequential {
		return 1
	}
	return parallel.Workers(0)
}

// validateBatch checks the matrix structure, every feature index and every
// label. Nothing is mutated before it returns nil.
func (m *Model) validateBatch(op string, X *sparse.CSR, labels []float32) error {
	if err := m.checkAlive(op); err != nil {
		return err
	}
	if err := X.Validate(); err != nil {
		return err
	}
	if labels != nil && len(labels) != X.NumExamples {
		return errors.NewDimensionError(op, X.NumExamples, len(labels), 0)
	}
	if err := X.CheckFeatures(op, m.numFeatures); err != nil {
		return err
	}
	for i, y := range labels {
		if err := m.validateLabel(op, y, i); err != nil {
			return err
		}
	}
	return nil
}

// FitBatch runs one online update per example of X, in row order or shuffled,
// and returns the mean per-example loss. The whole batch is validated first:
// on a structural, index or label error nothing is updated. A non-finite mean
// loss is reported as a NumericalInstabilityError after the updates were applied.
func (m *Model) FitBatch(X *sparse.CSR, labels []float32, opts ...BatchOption) (float64, error) {
	const op = "FitBatch"
	cfg, err := newBatchConfig(opts)
	if err != nil {
		return 0, err
	}
	if X != nil && labels == nil {
		labels = []float32{}
	}
	if err := m.validateBatch(op, X, labels); err != nil {
		return 0, err
	}
	if X.NumExamples == 0 {
		return 0, errors.Wrapf(errors.ErrEmptyData, "ftrl: %s", op)
	}

	start := time.Now()
	order := make([]int, X.NumExamples)
	for i := range order {
		order[i] = i
	}
	if cfg.shuffle {
		cfg.rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}

	workers := cfg.fitWorkers()
	var total float64
	switch {
	case workers == 1 || cfg.mode == Sequential:
		workers = 1
		total = m.fitRange(X, labels, order)
	case cfg.mode == Hogwild:
		total, err = m.fitHogwild(X, labels, order, workers)
	default:
		total, err = m.fitSharded(X, labels, order, workers)
	}
	if err != nil {
		return 0, err
	}

	avg := total / float64(X.NumExamples)
	elapsed := time.Since(start)
	log.GetLoggerWithName("ftrl").Debug("batch fitted",
		log.OperationKey, op,
		log.SamplesKey, X.NumExamples,
		log.NonZeroEntriesKey, X.NNZ(),
		log.LossKey, avg,
		log.ConcurrencyKey, cfg.mode.String(),
		log.WorkersKey, workers,
		log.DurationMsKey, elapsed.Milliseconds(),
	)
	if cfg.observer != nil {
		cfg.observer.ObserveBatch(BatchStats{
			Operation: op, Mode: cfg.mode, Workers: workers,
			Examples: X.NumExamples, NNZ: X.NNZ(), Loss: avg, Duration: elapsed,
		})
	}
	// 非有限の損失は更新後にしか検出できない。蓄積値はすでに書き換わっている
	if err := errors.CheckScalar(op, avg, 0); err != nil {
		return 0, err
	}
	return avg, nil
}

func (m *Model) fitRange(X *sparse.CSR, labels []float32, order []int) float64 {
	var total float64
	for _, i := range order {
		total += m.update(X.Row(i), labels[i])
	}
	return total
}

func (m *Model) fitHogwild(X *sparse.CSR, labels []float32, order []int, workers int) (float64, error) {
	losses := make([]float64, len(parallel.Chunks(len(order), workers)))
	err := parallel.Parallelize(len(order), workers, func(worker, start, end int) error {
		losses[worker] = m.fitRange(X, labels, order[start:end])
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sum(losses), nil
}

func (m *Model) fitSharded(X *sparse.CSR, labels []float32, order []int, workers int) (float64, error) {
	n := len(parallel.Chunks(len(order), workers))
	losses := make([]float64, n)
	shards := make([]*Model, n)
	err := parallel.Parallelize(len(order), workers, func(worker, start, end int) error {
		shard := m.clone()
		losses[worker] = shard.fitRange(X, labels, order[start:end])
		shards[worker] = shard
		return nil
	})
	if err != nil {
		return 0, err
	}

	err = parallel.ParallelizeWithThreshold(m.numFeatures, parallelThreshold, workers, func(_, start, end int) error {
		for i := start; i < end; i++ {
			m.mergeSlot(shards, func(s *Model) slot { return s.featureSlot(i) })
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	m.mergeSlot(shards, (*Model).biasSlot)
	return sum(losses), nil
}

// slot addresses one (n, z, w) triple, either a feature or the intercept.
type slot struct {
	n, z, w    vector
	in, iz, iw int
}

func (m *Model) featureSlot(i int) slot {
	return slot{n: m.n, z: m.z, w: m.w, in: i, iz: i, iw: i}
}

func (m *Model) biasSlot() slot {
	return slot{n: m.bias, z: m.bias, w: m.bias, in: biasN, iz: biasZ, iw: biasW}
}

// mergeSlot adds every shard's change of z and n to the model and refreshes
// the weight cache of slots that changed.
func (m *Model) mergeSlot(shards []*Model, at func(*Model) slot) {
	dst := at(m)
	z0, n0 := dst.z.load(dst.iz), dst.n.load(dst.in)
	var dz, dn float64
	touched := false
	for _, shard := range shards {
		s := at(shard)
		z, n := s.z.load(s.iz), s.n.load(s.in)
		if z == z0 && n == n0 {
			continue
		}
		touched = true
		dz += float64(z) - float64(z0)
		dn += float64(n) - float64(n0)
	}
	if !touched {
		return
	}
	z := float32(float64(z0) + dz)
	n := float32(float64(n0) + dn)
	dst.z.store(dst.iz, z)
	dst.n.store(dst.in, n)
	dst.w.store(dst.iw, Weight(z, n, m.params))
}

func sum(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s
}

// PredictBatch returns the raw linear score of every example of X.
func (m *Model) PredictBatch(X *sparse.CSR, opts ...BatchOption) ([]float64, error) {
	return m.predictBatch("PredictBatch", X, false, opts)
}

// PredictProbabilityBatch returns sigmoid scores for classification models and
// raw scores for regression models.
func (m *Model) PredictProbabilityBatch(X *sparse.CSR, opts ...BatchOption) ([]float64, error) {
	return m.predictBatch("PredictProbabilityBatch", X, true, opts)
}

func (m *Model) predictBatch(op string, X *sparse.CSR, link bool, opts []BatchOption) ([]float64, error) {
	cfg, err := newBatchConfig(opts)
	if err != nil {
		return nil, err
	}
	if err := m.validateBatch(op, X, nil); err != nil {
		return nil, err
	}

	start := time.Now()
	out := make([]float64, X.NumExamples)
	workers := cfg.predictWorkers()
	err = parallel.ParallelizeWithThreshold(X.NumExamples, parallelThreshold, workers, func(_, s, e int) error {
		for i := s; i < e; i++ {
			out[i] = m.score(X.Row(i))
			if link {
				out[i] = m.params.ModelType.link(out[i])
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cfg.observer != nil {
		cfg.observer.ObserveBatch(BatchStats{
			Operation: op, Mode: cfg.mode, Workers: workers,
			Examples: X.NumExamples, NNZ: X.NNZ(), Duration: time.Since(start),
		})
	}
	return out, nil
}
