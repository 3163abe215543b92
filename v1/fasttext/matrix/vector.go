// Package matrix implements the dense and product-quantized float32 matrices
// that hold embedding tables, plus the small vector type used as scratch space
// during training and inference.
package matrix

import (
	"math"

	"github.com/viterin/vek/vek32"
	"gonum.org/v1/gonum/blas/blas32"
)

// Matrix is the read surface shared by dense and quantized embedding tables.
// Inference code depends only on this interface; training additionally needs
// the write methods of *Dense.
type Matrix interface {
	// Rows returns the number of rows (m).
	Rows() int64
	// Cols returns the row dimension (n).
	Cols() int64
	// DotRow returns the dot product of v with row i.
	DotRow(v Vector, i int64) float32
	// AddRowToVector adds a times row i to v.
	AddRowToVector(v Vector, i int64, a float32)
}

// Vector is a float32 scratch vector.
type Vector []float32

// NewVector allocates a zeroed vector of size n.
func NewVector(n int) Vector {
	return make(Vector, n)
}

// Zero resets all components.
func (v Vector) Zero() {
	clear(v)
}

// Scale multiplies every component by a.
func (v Vector) Scale(a float32) {
	vek32.MulNumber_Inplace(v, a)
}

// AddVector adds src component-wise.
func (v Vector) AddVector(src Vector) {
	vek32.Add_Inplace(v, src)
}

// AddScaled adds a times src.
func (v Vector) AddScaled(src Vector, a float32) {
	blas32.Axpy(a, asBlas(src), asBlas(v))
}

// AddRow adds a times row i of m.
func (v Vector) AddRow(m Matrix, i int64, a float32) {
	m.AddRowToVector(v, i, a)
}

// MulMatrix sets v to m·x. Dense matrices go through a single BLAS call.
func (v Vector) MulMatrix(m Matrix, x Vector) {
	if d, ok := m.(*Dense); ok {
		d.MulVector(x, v)
		return
	}
	for i := range v {
		v[i] = m.DotRow(x, int64(i))
	}
}

// Dot returns the inner product with other.
func (v Vector) Dot(other Vector) float32 {
	return vek32.Dot(v, other)
}

// Norm returns the euclidean length.
func (v Vector) Norm() float32 {
	return float32(math.Sqrt(float64(vek32.Dot(v, v))))
}

// Argmax returns the index of the largest component, the first one on ties.
func (v Vector) Argmax() int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// Float64s returns a widened copy.
func (v Vector) Float64s() []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func asBlas(v []float32) blas32.Vector {
	return blas32.Vector{N: len(v), Inc: 1, Data: v}
}
