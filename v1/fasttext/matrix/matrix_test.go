package matrix

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorOps(t *testing.T) {
	v := Vector{1, 2, 3}
	v.Scale(2)
	assert.Equal(t, Vector{2, 4, 6}, v)

	v.AddVector(Vector{1, 1, 1})
	assert.Equal(t, Vector{3, 5, 7}, v)

	v.AddScaled(Vector{1, 0, -1}, 0.5)
	assert.InDeltaSlice(t, []float32{3.5, 5, 6.5}, []float32(v), 1e-6)

	assert.Equal(t, 2, v.Argmax())
	assert.InDelta(t, 5.0, float64(Vector{3, 4}.Norm()), 1e-6)

	v.Zero()
	assert.Equal(t, Vector{0, 0, 0}, v)
}

func TestDenseRowOps(t *testing.T) {
	d := NewDense(2, 3)
	copy(d.Data(), []float32{1, 2, 3, 4, 5, 6})

	assert.InDelta(t, 14.0, float64(d.DotRow(Vector{1, 2, 3}, 0)), 1e-6)

	v := NewVector(3)
	d.AddRowToVector(v, 1, 2)
	assert.Equal(t, Vector{8, 10, 12}, v)

	d.AddVectorToRow(Vector{1, 1, 1}, 0, -1)
	assert.Equal(t, Vector{0, 1, 2}, d.Row(0))

	d.MultiplyRow(Vector{0, 2}, 0, -1)
	assert.Equal(t, Vector{0, 1, 2}, d.Row(0))
	assert.Equal(t, Vector{8, 10, 12}, d.Row(1))

	d.DivideRow(Vector{1, 2}, 0, 2)
	assert.Equal(t, Vector{4, 5, 6}, d.Row(1))

	norms := NewVector(2)
	d.L2NormRows(norms)
	assert.InDelta(t, math.Sqrt(5), float64(norms[0]), 1e-6)
}

func TestDenseMulVector(t *testing.T) {
	d := NewDense(2, 2)
	copy(d.Data(), []float32{1, 2, 3, 4})
	y := NewVector(2)
	y.MulMatrix(d, Vector{1, 1})
	assert.InDeltaSlice(t, []float32{3, 7}, []float32(y), 1e-6)
}

func TestDenseUniformIsDeterministic(t *testing.T) {
	a, b := NewDense(10, 4), NewDense(10, 4)
	a.Uniform(0.25)
	b.Uniform(0.25)
	assert.Equal(t, a.Data(), b.Data())
	for _, x := range a.Data() {
		require.GreaterOrEqual(t, x, float32(-0.25))
		require.Less(t, x, float32(0.25))
	}
}

func TestDenseSaveLoad(t *testing.T) {
	d := NewDense(3, 2)
	d.Uniform(1)
	var buf bytes.Buffer
	require.NoError(t, d.Save(&buf))
	assert.Equal(t, 16+3*2*4, buf.Len())

	var got Dense
	require.NoError(t, got.Load(&buf))
	assert.Equal(t, int64(3), got.Rows())
	assert.Equal(t, int64(2), got.Cols())
	assert.Equal(t, d.Data(), got.Data())
}

func TestDenseLoadRejectsNegativeShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&Dense{m: -1, n: 2}).Save(&buf))
	var got Dense
	assert.ErrorIs(t, got.Load(&buf), ErrBadShape)
}

func TestDenseLoadAcrossChunks(t *testing.T) {
	d := NewDense(readChunk/512+3, 512)
	d.Uniform(1)
	var buf bytes.Buffer
	require.NoError(t, d.Save(&buf))

	var got Dense
	require.NoError(t, got.Load(&buf))
	assert.Equal(t, d.Rows(), got.Rows())
	assert.Equal(t, d.Data(), got.Data())
}

func TestDenseLoadTruncatedHugeShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, [2]int64{1 << 31, 2}))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, []float32{1, 2, 3}))

	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	var got Dense
	err := got.Load(&buf)
	runtime.ReadMemStats(&after)

	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Less(t, after.TotalAlloc-before.TotalAlloc, uint64(64<<20))
	assert.Zero(t, got.Rows())
}
