package sparse

import (
	"github.com/YuminosukeSato/ftrl/pkg/errors"
)

// Builder accumulates rows into a CSR matrix.
// A builder is either binary (no values) or weighted, fixed at construction.
type Builder struct {
	binary  bool
	columns []int32
	indptr  []int32
	data    []float32
}

// NewBuilder creates a Builder. If binary is true, AddRow ignores values.
func NewBuilder(binary bool) *Builder {
	b := &Builder{binary: binary, indptr: []int32{0}}
	if !binary {
		b.data = make([]float32, 0)
	}
	return b
}

// AddRow appends one example. values may be nil, in which case every value is 1.
func (b *Builder) AddRow(indices []int32, values []float32) error {
	if values != nil && len(values) != len(indices) {
		return errors.NewCSRStructureError("Builder.AddRow", "row %d has %d indices but %d values",
			len(b.indptr)-1, len(indices), len(values))
	}
	for _, idx := range indices {
		if idx < 0 {
			return errors.NewFeatureIndexError("Builder.AddRow", int(idx), -1, len(b.indptr)-1)
		}
	}
	for k, idx := range indices {
		b.columns = append(b.columns, idx)
		if !b.binary {
			v := float32(1)
			if values != nil {
				v = values[k]
			}
			b.data = append(b.data, v)
		}
	}
	b.indptr = append(b.indptr, int32(len(b.columns)))
	return nil
}

// Len returns the number of rows added so far.
func (b *Builder) Len() int {
	return len(b.indptr) - 1
}

// Build returns the matrix. The builder must not be used afterwards.
func (b *Builder) Build() *CSR {
	return &CSR{
		Columns:     b.columns,
		Indptr:      b.indptr,
		Data:        b.data,
		NumExamples: len(b.indptr) - 1,
	}
}
