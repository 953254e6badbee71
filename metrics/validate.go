// Package metrics provides evaluation metrics for classification and regression.
package metrics

import (
	"github.com/YuminosukeSato/ftrl/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// checkPair validates two prediction vectors and returns their common length.
func checkPair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil || yTrue.Len() == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	n := yTrue.Len()
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// checkBinary rejects labels other than 0 and 1.
func checkBinary(op string, y *mat.VecDense) error {
	for i := 0; i < y.Len(); i++ {
		if v := y.AtVec(i); v != 0 && v != 1 {
			return errors.NewValueError(op, "labels must be 0 or 1")
		}
	}
	return nil
}

// firstColumn copies column 0 of a matrix into a vector.
func firstColumn(op string, m mat.Matrix) (*mat.VecDense, error) {
	if m == nil {
		return nil, errors.NewValueError(op, "nil matrix")
	}
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return nil, errors.NewValueError(op, "empty matrix")
	}
	v := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		v.SetVec(i, m.At(i, 0))
	}
	return v, nil
}

// Vec32 converts float32 labels into a gonum vector.
func Vec32(xs []float32) *mat.VecDense {
	if len(xs) == 0 {
		return &mat.VecDense{}
	}
	data := make([]float64, len(xs))
	for i, x := range xs {
		data[i] = float64(x)
	}
	return mat.NewVecDense(len(data), data)
}

// Vec wraps predictions in a gonum vector without copying.
func Vec(xs []float64) *mat.VecDense {
	if len(xs) == 0 {
		return &mat.VecDense{}
	}
	return mat.NewVecDense(len(xs), xs)
}
