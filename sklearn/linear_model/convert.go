package linear_model

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ftrl/core/sparse"
	"github.com/YuminosukeSato/ftrl/pkg/errors"
)

// denseInput converts a dense feature matrix and an n×1 label matrix. The
// column count of X is returned as the feature-space size hint.
func denseInput(op string, X, y mat.Matrix) (*sparse.CSR, []float32, int, error) {
	if X == nil {
		return nil, nil, 0, errors.NewValueError(op, "nil matrix")
	}
	yv, err := columnVector(op, y)
	if err != nil {
		return nil, nil, 0, err
	}
	rows, cols := X.Dims()
	if yv.Len() != rows {
		return nil, nil, 0, errors.NewDimensionError(op, rows, yv.Len(), 0)
	}
	labels := make([]float32, rows)
	for i := range labels {
		labels[i] = float32(yv.AtVec(i))
	}
	return sparse.FromDense(X), labels, cols, nil
}

// columnVector copies an n×1 matrix into a vector.
func columnVector(op string, y mat.Matrix) (*mat.VecDense, error) {
	if y == nil {
		return nil, errors.NewValueError(op, "nil label matrix")
	}
	r, c := y.Dims()
	if r == 0 {
		return nil, errors.NewValueError(op, "empty label matrix")
	}
	if c != 1 {
		return nil, errors.NewValueError(op, "y must be a column vector")
	}
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, y.At(i, 0))
	}
	return v, nil
}

func column(xs []float64) *mat.Dense {
	if len(xs) == 0 {
		return &mat.Dense{}
	}
	return mat.NewDense(len(xs), 1, xs)
}
