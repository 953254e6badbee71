package ftrl

import (
	"math"
	"sync/atomic"
)

// vector is a float32 buffer whose elements are accessed with relaxed atomic
// word operations. Concurrent Hogwild workers may lose each other's updates,
// but a reader never observes a torn value.
type vector []uint32

func newVector(n int) vector {
	return make(vector, n)
}

func vectorFrom(xs []float32) vector {
	v := make(vector, len(xs))
	for i, x := range xs {
		v[i] = math.Float32bits(x)
	}
	return v
}

func (v vector) load(i int) float32 {
	return math.Float32frombits(atomic.LoadUint32(&v[i]))
}

func (v vector) store(i int, x float32) {
	atomic.StoreUint32(&v[i], math.Float32bits(x))
}

// floats returns a copy of the buffer.
func (v vector) floats() []float32 {
	out := make([]float32, len(v))
	for i := range v {
		out[i] = v.load(i)
	}
	return out
}

func (v vector) clone() vector {
	out := make(vector, len(v))
	for i := range v {
		out[i] = atomic.LoadUint32(&v[i])
	}
	return out
}
