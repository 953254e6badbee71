package ftrl

import (
	"math"
	"strings"

	"github.com/YuminosukeSato/ftrl/pkg/errors"
)

// ModelType selects the link function and loss.
type ModelType int32

const (
	// Classification is logistic regression: sigmoid link, log-loss, labels in {0, 1}.
	Classification ModelType = 0
	// Regression is linear regression: identity link, squared loss.
	Regression ModelType = 1
)

func (t ModelType) String() string {
	switch t {
	case Classification:
		return "classification"
	case Regression:
		return "regression"
	default:
		return "unknown"
	}
}

// Valid reports whether t is one of the defined model types.
func (t ModelType) Valid() bool {
	return t == Classification || t == Regression
}

// ParseModelType converts "classification" or "regression" (case-insensitive).
func ParseModelType(s string) (ModelType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "classification":
		return Classification, nil
	case "regression":
		return Regression, nil
	}
	return 0, errors.NewValidationError("model_type",
		"unknown model_type: allowed classification, regression", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t ModelType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, errors.NewValidationError("model_type", "unknown model type", int32(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *ModelType) UnmarshalText(b []byte) error {
	v, err := ParseModelType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Params are the hyperparameters of a training run. They are immutable once a
// model is created. The field order matches the on-disk layout.
type Params struct {
	Alpha     float32
	Beta      float32
	L1        float32
	L2        float32
	ModelType ModelType
}

// DefaultParams returns alpha=1, beta=1, no regularization, classification.
func DefaultParams() Params {
	return Params{Alpha: 1, Beta: 1, L1: 0, L2: 0, ModelType: Classification}
}

// Validate checks alpha > 0, beta/l1/l2 >= 0, all finite, and a known model type.
func (p Params) Validate() error {
	check := func(name string, v float32, strictlyPositive bool) error {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return errors.NewValidationError(name, "must be finite", v)
		}
		if strictlyPositive && f <= 0 {
			return errors.NewValidationError(name, "must be positive", v)
		}
		if f < 0 {
			return errors.NewValidationError(name, "must be non-negative", v)
		}
		return nil
	}
	if err := check("alpha", p.Alpha, true); err != nil {
		return err
	}
	if err := check("beta", p.Beta, false); err != nil {
		return err
	}
	if err := check("l1", p.L1, false); err != nil {
		return err
	}
	if err := check("l2", p.L2, false); err != nil {
		return err
	}
	if !p.ModelType.Valid() {
		return errors.NewValidationError("model_type", "unknown model type", int32(p.ModelType))
	}
	return nil
}
