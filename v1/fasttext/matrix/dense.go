package matrix

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Aleph-Alpha/wordembed/v1/fasttext/random"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
)

// ErrBadShape is returned when a serialized matrix declares an impossible size.
var ErrBadShape = errors.New("invalid matrix shape")

// maxElements bounds the size accepted when reading a matrix (16 GiB of float32).
const maxElements = 1 << 32

// Dense is a row-major m×n float32 matrix.
//
// Concurrency: during training several workers call AddVectorToRow on shared
// rows without synchronization (Hogwild-style SGD). Such updates may be lost
// or interleave at float granularity; the algorithm tolerates this. Code that
// needs race-free reads must not run concurrently with training.
type Dense struct {
	m, n int64
	data []float32
}

// NewDense allocates a zeroed m×n matrix.
func NewDense(m, n int64) *Dense {
	return &Dense{m: m, n: n, data: make([]float32, m*n)}
}

// Clone returns a deep copy.
func (d *Dense) Clone() *Dense {
	c := &Dense{m: d.m, n: d.n, data: make([]float32, len(d.data))}
	copy(c.data, d.data)
	return c
}

func (d *Dense) Rows() int64 { return d.m }
func (d *Dense) Cols() int64 { return d.n }

// Data exposes the backing slice.
func (d *Dense) Data() []float32 { return d.data }

// Row returns row i as a slice aliasing the matrix storage.
func (d *Dense) Row(i int64) Vector {
	return d.data[i*d.n : (i+1)*d.n]
}

// Zero clears all entries.
func (d *Dense) Zero() {
	clear(d.data)
}

// Uniform fills the matrix with values drawn uniformly from [-a, a) using a
// generator seeded with 1, so initialization is reproducible.
func (d *Dense) Uniform(a float32) {
	rng := random.New(1)
	for i := range d.data {
		d.data[i] = float32(rng.Uniform(-float64(a), float64(a)))
	}
}

func (d *Dense) DotRow(v Vector, i int64) float32 {
	return d.Row(i).Dot(v)
}

func (d *Dense) AddRowToVector(v Vector, i int64, a float32) {
	v.AddScaled(d.Row(i), a)
}

// AddVectorToRow adds a times v to row i.
func (d *Dense) AddVectorToRow(v Vector, i int64, a float32) {
	d.Row(i).AddScaled(v, a)
}

// MultiplyRow scales rows [ib, ie) by nums[i-ib]. Zero factors leave the row
// untouched. ie < 0 means all rows.
func (d *Dense) MultiplyRow(nums Vector, ib, ie int64) {
	if ie < 0 {
		ie = d.m
	}
	for i := ib; i < ie; i++ {
		if n := nums[i-ib]; n != 0 {
			d.Row(i).Scale(n)
		}
	}
}

// DivideRow divides rows [ib, ie) by denoms[i-ib], skipping zero denominators.
func (d *Dense) DivideRow(denoms Vector, ib, ie int64) {
	if ie < 0 {
		ie = d.m
	}
	for i := ib; i < ie; i++ {
		if n := denoms[i-ib]; n != 0 {
			d.Row(i).Scale(1 / n)
		}
	}
}

// L2NormRow returns the euclidean norm of row i.
func (d *Dense) L2NormRow(i int64) float32 {
	return d.Row(i).Norm()
}

// L2NormRows writes the norm of every row into norms.
func (d *Dense) L2NormRows(norms Vector) {
	for i := int64(0); i < d.m; i++ {
		norms[i] = d.L2NormRow(i)
	}
}

// MulVector computes y = d·x.
func (d *Dense) MulVector(x, y Vector) {
	if d.m == 0 || d.n == 0 {
		y.Zero()
		return
	}
	blas32.Gemv(
		blas.NoTrans,
		1,
		blas32.General{Rows: int(d.m), Cols: int(d.n), Stride: int(d.n), Data: d.data},
		asBlas(x),
		0,
		asBlas(y),
	)
}

// Save writes m and n as int64 followed by m·n float32 values.
func (d *Dense) Save(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, [2]int64{d.m, d.n}); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, d.data)
}

// Load replaces the content of d with a matrix read from r.
func (d *Dense) Load(r io.Reader) error {
	var shape [2]int64
	if err := binary.Read(r, binary.LittleEndian, &shape); err != nil {
		return err
	}
	m, n := shape[0], shape[1]
	if m < 0 || n < 0 || (n > 0 && m > maxElements/n) {
		return fmt.Errorf("%w: %dx%d", ErrBadShape, m, n)
	}
	data, err := readFloats(r, m*n)
	if err != nil {
		return err
	}
	d.m, d.n, d.data = m, n, data
	return nil
}

func distL2(x, y []float32) float32 {
	var dist float32
	for i := range x {
		t := x[i] - y[i]
		dist += t * t
	}
	return dist
}

