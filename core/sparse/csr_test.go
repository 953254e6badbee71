package sparse

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/ftrl/pkg/errors"
)

func referenceMatrix(t *testing.T) *CSR {
	t.Helper()
	m, err := NewCSR(
		[]int32{0, 1, 2, 3, 0, 1, 2, 3, 4, 0, 1, 2, 3, 4},
		[]int32{0, 4, 9, 14},
		nil,
	)
	require.NoError(t, err)
	return m
}

func TestNewCSR_Valid(t *testing.T) {
	m := referenceMatrix(t)

	assert.Equal(t, 3, m.NumExamples)
	assert.Equal(t, 14, m.NNZ())
	assert.True(t, m.IsBinary())
	assert.Equal(t, 5, m.NumFeatures())

	r := m.Row(1)
	assert.Equal(t, 5, r.Len())
	assert.Equal(t, []int32{0, 1, 2, 3, 4}, r.Indices)
	assert.Equal(t, float32(1), r.Value(4))
}

func TestCSR_Validate(t *testing.T) {
	tests := []struct {
		name string
		m    *CSR
	}{
		{"nil matrix", nil},
		{"indptr length", &CSR{Columns: []int32{0}, Indptr: []int32{0, 1}, NumExamples: 2}},
		{"indptr does not start at zero", &CSR{Columns: []int32{0, 1}, Indptr: []int32{1, 2}, NumExamples: 1}},
		{"indptr decreasing", &CSR{Columns: []int32{0, 1, 2}, Indptr: []int32{0, 2, 1, 3}, NumExamples: 3}},
		{"indptr end mismatch", &CSR{Columns: []int32{0, 1, 2}, Indptr: []int32{0, 1, 2}, NumExamples: 2}},
		{"data length mismatch", &CSR{Columns: []int32{0, 1}, Indptr: []int32{0, 2}, Data: []float32{1}, NumExamples: 1}},
		{"negative num_examples", &CSR{NumExamples: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			require.Error(t, err)
			var cse *errors.CSRStructureError
			assert.True(t, errors.As(err, &cse), "expected CSRStructureError, got %v", err)
		})
	}

	empty := &CSR{Indptr: []int32{0}}
	assert.NoError(t, empty.Validate())
}

func TestNewCSR_EmptyIndptr(t *testing.T) {
	_, err := NewCSR(nil, nil, nil)
	assert.Error(t, err)
}

func TestCSR_CheckFeatures(t *testing.T) {
	m := referenceMatrix(t)
	assert.NoError(t, m.CheckFeatures("Fit", 5))

	err := m.CheckFeatures("Fit", 4)
	require.Error(t, err)
	var fie *errors.FeatureIndexError
	require.True(t, errors.As(err, &fie))
	assert.Equal(t, 1, fie.Row)
	assert.Equal(t, 4, fie.Index)

	nan, err := NewCSR([]int32{0}, []int32{0, 1}, []float32{float32(math.NaN())})
	require.NoError(t, err)
	assert.Error(t, nan.CheckFeatures("Fit", 1))
}

func TestRow_Validate(t *testing.T) {
	assert.NoError(t, BinaryRow(0, 2).Validate("Fit", 3, 0))

	err := BinaryRow(0, 3).Validate("Fit", 3, 0)
	assert.Error(t, err)

	err = BinaryRow(-1).Validate("Fit", 3, 0)
	assert.Error(t, err)

	bad := Row{Indices: []int32{0, 1}, Values: []float32{1}}
	err = bad.Validate("Fit", 3, 0)
	var cse *errors.CSRStructureError
	assert.True(t, errors.As(err, &cse))
}

func TestRow_ViewDoesNotGrowIntoNextRow(t *testing.T) {
	m, err := NewCSR([]int32{0, 1, 2}, []int32{0, 1, 3}, []float32{1, 2, 3})
	require.NoError(t, err)

	r := m.Row(0)
	assert.Equal(t, 1, cap(r.Indices))
	assert.Equal(t, 1, cap(r.Values))
	assert.Equal(t, float32(3), m.Row(1).Value(1))
}

func TestFromDenseAndBack(t *testing.T) {
	X := mat.NewDense(3, 4, []float64{
		0, 1.5, 0, 0,
		0, 0, 0, 0,
		2, 0, 0, -1,
	})

	m := FromDense(X)
	require.NoError(t, m.Validate())
	assert.Equal(t, 3, m.NumExamples)
	assert.Equal(t, 3, m.NNZ())
	assert.Equal(t, 0, m.Row(1).Len())
	assert.Equal(t, []int32{0, 3}, m.Row(2).Indices)
	assert.Equal(t, []float32{2, -1}, m.Row(2).Values)

	back := m.ToDense(4)
	assert.True(t, mat.Equal(X, back))
}

func TestBuilder(t *testing.T) {
	b := NewBuilder(false)
	require.NoError(t, b.AddRow([]int32{0, 3}, []float32{0.5, 2}))
	require.NoError(t, b.AddRow(nil, nil))
	require.NoError(t, b.AddRow([]int32{1}, nil))
	assert.Equal(t, 3, b.Len())

	assert.Error(t, b.AddRow([]int32{1, 2}, []float32{1}))
	assert.Error(t, b.AddRow([]int32{-2}, nil))

	m := b.Build()
	require.NoError(t, m.Validate())
	assert.Equal(t, []int32{0, 2, 2, 3}, m.Indptr)
	assert.Equal(t, []float32{0.5, 2, 1}, m.Data)

	bin := NewBuilder(true)
	require.NoError(t, bin.AddRow([]int32{4}, []float32{9}))
	bm := bin.Build()
	assert.True(t, bm.IsBinary())
	assert.Equal(t, float32(1), bm.Row(0).Value(0))
}
