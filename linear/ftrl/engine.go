package ftrl

import (
	"github.com/YuminosukeSato/ftrl/core/sparse"
)

// Predict returns the raw linear score (intercept plus dot product) of one
// example. It refreshes the weight cache for the example's features.
func (m *Model) Predict(r sparse.Row) (float64, error) {
	if err := m.checkAlive("Predict"); err != nil {
		return 0, err
	}
	if err := r.Validate("Predict", m.numFeatures, 0); err != nil {
		return 0, err
	}
	return m.score(r), nil
}

// PredictProbability returns sigmoid(Predict(r)) for classification models and
// the raw score for regression models.
func (m *Model) PredictProbability(r sparse.Row) (float64, error) {
	s, err := m.Predict(r)
	if err != nil {
		return 0, err
	}
	return m.params.ModelType.link(s), nil
}

// Fit runs one online update on a single example and returns its loss.
// The example is fully validated before any state changes.
func (m *Model) Fit(r sparse.Row, label float32) (float64, error) {
	if err := m.checkAlive("Fit"); err != nil {
		return 0, err
	}
	if err := r.Validate("Fit", m.numFeatures, 0); err != nil {
		return 0, err
	}
	if err := m.validateLabel("Fit", label, 0); err != nil {
		return 0, err
	}
	return m.update(r, label), nil
}
