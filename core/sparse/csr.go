// Package sparse provides the compressed-sparse-row (CSR) matrix and the
// per-example row view consumed by the FTRL engine.
//
// The layout mirrors the usual interchange format (scipy.sparse.csr_matrix,
// libsvm files): Columns holds feature indices, Indptr holds row boundaries and
// the optional Data holds feature values. A nil Data means every stored entry
// is an indicator feature with value 1.
package sparse

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ftrl/pkg/errors"
)

// Row is a read-only view over the active features of one example.
// Values is either nil (binary features) or the same length as Indices.
type Row struct {
	Indices []int32
	Values  []float32
}

// BinaryRow builds a Row of indicator features.
func BinaryRow(indices ...int32) Row {
	return Row{Indices: indices}
}

// Len returns the number of active features.
func (r Row) Len() int {
	return len(r.Indices)
}

// Value returns the value of the k-th active feature.
func (r Row) Value(k int) float32 {
	if r.Values == nil {
		return 1
	}
	return r.Values[k]
}

// Validate checks that the row is well formed and every index is in [0, numFeatures).
// row is only used for error reporting.
func (r Row) Validate(op string, numFeatures, row int) error {
	if r.Values != nil && len(r.Values) != len(r.Indices) {
		return errors.NewCSRStructureError(op, "row %d has %d indices but %d values", row, len(r.Indices), len(r.Values))
	}
	for _, idx := range r.Indices {
		if idx < 0 || int(idx) >= numFeatures {
			return errors.NewFeatureIndexError(op, int(idx), numFeatures, row)
		}
	}
	for k, v := range r.Values {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return errors.NewValueError(op, fmt.Sprintf("non-finite feature value at row %d position %d", row, k))
		}
	}
	return nil
}

// CSR is a sparse matrix in compressed-sparse-row form.
// The engine only borrows it; it is never modified.
type CSR struct {
	Columns     []int32
	Indptr      []int32
	Data        []float32
	NumExamples int
}

// NewCSR builds a matrix from raw arrays and validates its structure.
// data may be nil for binary features.
func NewCSR(columns, indptr []int32, data []float32) (*CSR, error) {
	if len(indptr) == 0 {
		return nil, errors.NewCSRStructureError("NewCSR", "indptr must have at least one element")
	}
	m := &CSR{
		Columns:     columns,
		Indptr:      indptr,
		Data:        data,
		NumExamples: len(indptr) - 1,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the structural invariants:
// len(Indptr) == NumExamples+1, Indptr[0] == 0, Indptr is non-decreasing,
// Indptr[NumExamples] == len(Columns) and, if present, len(Data) == len(Columns).
func (m *CSR) Validate() error {
	const op = "CSR.Validate"
	if m == nil {
		return errors.NewCSRStructureError(op, "matrix is nil")
	}
	if m.NumExamples < 0 {
		return errors.NewCSRStructureError(op, "num_examples is negative (%d)", m.NumExamples)
	}
	if len(m.Indptr) != m.NumExamples+1 {
		return errors.NewCSRStructureError(op, "indptr has length %d, expected num_examples+1 = %d", len(m.Indptr), m.NumExamples+1)
	}
	if m.Indptr[0] != 0 {
		return errors.NewCSRStructureError(op, "indptr[0] must be 0, got %d", m.Indptr[0])
	}
	for i := 1; i < len(m.Indptr); i++ {
		if m.Indptr[i] < m.Indptr[i-1] {
			return errors.NewCSRStructureError(op, "indptr[%d]=%d is smaller than indptr[%d]=%d", i, m.Indptr[i], i-1, m.Indptr[i-1])
		}
	}
	if last := int(m.Indptr[m.NumExamples]); last != len(m.Columns) {
		return errors.NewCSRStructureError(op, "indptr[%d]=%d does not match len(columns)=%d", m.NumExamples, last, len(m.Columns))
	}
	if m.Data != nil && len(m.Data) != len(m.Columns) {
		return errors.NewCSRStructureError(op, "len(data)=%d does not match len(columns)=%d", len(m.Data), len(m.Columns))
	}
	return nil
}

// CheckFeatures validates every stored index against numFeatures and every value
// for finiteness. Call it after Validate.
func (m *CSR) CheckFeatures(op string, numFeatures int) error {
	for i := 0; i < m.NumExamples; i++ {
		if err := m.Row(i).Validate(op, numFeatures, i); err != nil {
			return err
		}
	}
	return nil
}

// Row returns a view of the i-th example. The slices alias the matrix storage.
func (m *CSR) Row(i int) Row {
	start, end := m.Indptr[i], m.Indptr[i+1]
	r := Row{Indices: m.Columns[start:end:end]}
	if m.Data != nil {
		r.Values = m.Data[start:end:end]
	}
	return r
}

// NNZ returns the number of stored entries.
func (m *CSR) NNZ() int {
	return len(m.Columns)
}

// IsBinary reports whether the matrix carries no explicit values.
func (m *CSR) IsBinary() bool {
	return m.Data == nil
}

// NumFeatures returns one past the largest stored column index, i.e. the
// smallest feature space the matrix fits in.
func (m *CSR) NumFeatures() int {
	maxIdx := int32(-1)
	for _, c := range m.Columns {
		if c > maxIdx {
			maxIdx = c
		}
	}
	return int(maxIdx) + 1
}

// FromDense converts a gonum matrix into CSR form, keeping non-zero entries.
func FromDense(X mat.Matrix) *CSR {
	rows, cols := X.Dims()
	m := &CSR{
		Indptr:      make([]int32, 1, rows+1),
		Data:        make([]float32, 0),
		NumExamples: rows,
	}
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if v := X.At(i, j); v != 0 {
				m.Columns = append(m.Columns, int32(j))
				m.Data = append(m.Data, float32(v))
			}
		}
		m.Indptr = append(m.Indptr, int32(len(m.Columns)))
	}
	return m
}

// ToDense expands the matrix into a rows x numFeatures gonum matrix.
// Entries with index >= numFeatures are dropped.
func (m *CSR) ToDense(numFeatures int) *mat.Dense {
	if m.NumExamples == 0 || numFeatures == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(m.NumExamples, numFeatures, nil)
	for i := 0; i < m.NumExamples; i++ {
		r := m.Row(i)
		for k, idx := range r.Indices {
			if int(idx) < numFeatures {
				d.Set(i, int(idx), d.At(i, int(idx))+float64(r.Value(k)))
			}
		}
	}
	return d
}
