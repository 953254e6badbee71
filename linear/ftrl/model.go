package ftrl

import (
	"math"
	"sync/atomic"

	"github.com/YuminosukeSato/ftrl/core/sparse"
	"github.com/YuminosukeSato/ftrl/pkg/errors"
)

// intercept slots
const (
	biasN = iota
	biasZ
	biasW
)

// Model holds the FTRL-Proximal accumulators of a sparse linear model.
//
// For each feature i it keeps z[i] (the adjusted gradient sum), n[i] (the sum of
// squared gradients) and w[i], the weight last materialized by a prediction. The
// intercept has the same three values and is always active. Buffers are sized
// once at creation and never resized.
type Model struct {
	params      Params
	numFeatures int

	n, z, w vector
	bias    vector

	released atomic.Bool
}

// NewModel creates a zero-initialized model over numFeatures features.
func NewModel(params Params, numFeatures int) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if numFeatures < 0 || numFeatures > math.MaxInt32 {
		return nil, errors.NewValidationError("num_features", "must be in [0, 2^31-1]", numFeatures)
	}
	return &Model{
		params:      params,
		numFeatures: numFeatures,
		n:           newVector(numFeatures),
		z:           newVector(numFeatures),
		w:           newVector(numFeatures),
		bias:        newVector(3),
	}, nil
}

// State is a plain snapshot of a model's learned state.
type State struct {
	Params      Params
	NumFeatures int
	N, Z, W     []float32
	NIntercept  float32
	ZIntercept  float32
	WIntercept  float32
}

// NewModelFromState rebuilds a model from a snapshot. The slices are copied.
func NewModelFromState(s State) (*Model, error) {
	m, err := NewModel(s.Params, s.NumFeatures)
	if err != nil {
		return nil, err
	}
	for name, xs := range map[string][]float32{"n": s.N, "z": s.Z, "w": s.W} {
		if len(xs) != s.NumFeatures {
			return nil, errors.NewValidationError(name, "length must equal num_features", len(xs))
		}
	}
	m.n = vectorFrom(s.N)
	m.z = vectorFrom(s.Z)
	m.w = vectorFrom(s.W)
	m.bias = vectorFrom([]float32{s.NIntercept, s.ZIntercept, s.WIntercept})
	return m, nil
}

// State returns a copy of the model's learned state.
func (m *Model) State() (State, error) {
	if err := m.checkAlive("State"); err != nil {
		return State{}, err
	}
	return State{
		Params:      m.params,
		NumFeatures: m.numFeatures,
		N:           m.n.floats(),
		Z:           m.z.floats(),
		W:           m.w.floats(),
		NIntercept:  m.bias.load(biasN),
		ZIntercept:  m.bias.load(biasZ),
		WIntercept:  m.bias.load(biasW),
	}, nil
}

// Params returns the hyperparameters the model was created with.
func (m *Model) Params() Params { return m.params }

// NumFeatures returns the size of the feature space.
func (m *Model) NumFeatures() int { return m.numFeatures }

// Released reports whether Release has been called.
func (m *Model) Released() bool { return m.released.Load() }

// Release drops the model's buffers. Every later operation returns
// ErrModelReleased. Calling Release twice is a no-op.
func (m *Model) Release() {
	if m.released.Swap(true) {
		return
	}
	m.n, m.z, m.w, m.bias = nil, nil, nil, nil
}

func (m *Model) checkAlive(op string) error {
	if m == nil || m.released.Load() {
		return errors.Wrapf(errors.ErrModelReleased, "ftrl: %s", op)
	}
	return nil
}

// clone copies the accumulators into an independent model.
func (m *Model) clone() *Model {
	return &Model{
		params:      m.params,
		numFeatures: m.numFeatures,
		n:           m.n.clone(),
		z:           m.z.clone(),
		w:           m.w.clone(),
		bias:        m.bias.clone(),
	}
}

// Weights materializes every feature weight and the intercept from z and n.
// The weight cache is left untouched.
func (m *Model) Weights() ([]float32, float32, error) {
	if err := m.checkAlive("Weights"); err != nil {
		return nil, 0, err
	}
	out := make([]float32, m.numFeatures)
	for i := range out {
		out[i] = Weight(m.z.load(i), m.n.load(i), m.params)
	}
	return out, Weight(m.bias.load(biasZ), m.bias.load(biasN), m.params), nil
}

// NonZeroWeights returns the number of features whose materialized weight is not zero.
func (m *Model) NonZeroWeights() (int, error) {
	w, _, err := m.Weights()
	if err != nil {
		return 0, err
	}
	count := 0
	for _, v := range w {
		if v != 0 {
			count++
		}
	}
	return count, nil
}

// validateLabel rejects non-finite labels, and labels outside {0, 1} for classification.
func (m *Model) validateLabel(op string, label float32, row int) error {
	y := float64(label)
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return errors.NewInvalidLabelError(op, y, row)
	}
	if m.params.ModelType == Classification && y != 0 && y != 1 {
		return errors.NewInvalidLabelError(op, y, row)
	}
	return nil
}

// score computes intercept + sum(value*w) and refreshes the weight cache of
// the intercept and of every active feature.
func (m *Model) score(r sparse.Row) float64 {
	p := m.params
	wb := Weight(m.bias.load(biasZ), m.bias.load(biasN), p)
	m.bias.store(biasW, wb)
	s := float64(wb)
	for k, idx := range r.Indices {
		i := int(idx)
		wi := Weight(m.z.load(i), m.n.load(i), p)
		m.w.store(i, wi)
		s += float64(r.Value(k)) * float64(wi)
	}
	return s
}

// update runs one FTRL step on a validated example and returns its loss.
func (m *Model) update(r sparse.Row, label float32) float64 {
	y := float64(label)
	pred := m.params.ModelType.link(m.score(r))
	grad := pred - y
	alpha := m.params.Alpha

	nb := float64(m.bias.load(biasN))
	sigma := Sigma(nb, grad, alpha)
	m.bias.store(biasZ, float32(float64(m.bias.load(biasZ))+grad-sigma*float64(m.bias.load(biasW))))
	m.bias.store(biasN, float32(nb+grad*grad))

	for k, idx := range r.Indices {
		i := int(idx)
		g := grad * float64(r.Value(k))
		ni := float64(m.n.load(i))
		sigma := Sigma(ni, g, alpha)
		m.z.store(i, float32(float64(m.z.load(i))+g-sigma*float64(m.w.load(i))))
		m.n.store(i, float32(ni+g*g))
	}
	return m.params.ModelType.loss(pred, y)
}
