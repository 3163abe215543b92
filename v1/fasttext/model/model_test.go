package model

import (
	"math"
	"testing"

	"github.com/Aleph-Alpha/wordembed/v1/fasttext/args"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext/matrix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testArgs(loss args.LossName, model args.ModelName) *args.Args {
	a := args.Default()
	a.Dim = 4
	a.Loss = loss
	a.Model = model
	a.Neg = 2
	return a
}

func TestSigmoidTable(t *testing.T) {
	assert.Equal(t, float32(0), sigmoid(-9))
	assert.Equal(t, float32(1), sigmoid(9))
	assert.InDelta(t, 0.5, float64(sigmoid(0)), 1e-2)
	assert.Less(t, sigmoid(-1), sigmoid(1))
}

func TestLogTable(t *testing.T) {
	assert.Equal(t, float32(0), tableLog(2))
	assert.InDelta(t, math.Log(0.5), float64(tableLog(0.5)), 1e-2)
}

func TestHuffmanTree(t *testing.T) {
	a := testArgs(args.HierarchicalSoftmax, args.Supervised)
	out := matrix.NewDense(4, 4)
	m := New(matrix.NewDense(3, 4), out, a, 0)
	m.SetTargetCounts([]int64{10, 5, 2, 1})

	require.Len(t, m.tree, 7)
	// the most frequent class gets the shortest code
	assert.Len(t, m.paths[0], 1)
	assert.Len(t, m.paths[3], 3)
	for i := range m.paths {
		assert.Len(t, m.codes[i], len(m.paths[i]))
		for _, p := range m.paths[i] {
			assert.GreaterOrEqual(t, p, int32(0))
			assert.Less(t, p, int32(3))
		}
	}
	// root is the last inner node
	assert.Equal(t, int32(-1), m.tree[6].parent)
	assert.Equal(t, int64(18), m.tree[6].count)
}

func TestNegativeTable(t *testing.T) {
	a := testArgs(args.NegativeSampling, args.SkipGram)
	m := New(matrix.NewDense(2, 4), matrix.NewDense(2, 4), a, 0)
	m.SetTargetCounts([]int64{9, 1})

	require.NotEmpty(t, m.negatives)
	var zeros int
	for _, n := range m.negatives {
		if n == 0 {
			zeros++
		}
	}
	// sqrt weighting: 3 to 1
	assert.InDelta(t, 0.75, float64(zeros)/float64(len(m.negatives)), 1e-3)
	for i := 0; i < 20; i++ {
		assert.Equal(t, int32(1), m.getNegative(0))
	}
}

func TestUpdateIgnoresEmptyInput(t *testing.T) {
	a := testArgs(args.Softmax, args.Supervised)
	out := matrix.NewDense(2, 4)
	m := New(matrix.NewDense(3, 4), out, a, 0)
	m.Update(nil, 0, 0.1)
	assert.Equal(t, int64(1), m.nexamples)
	assert.Equal(t, make([]float32, 8), out.Data())
}

func trainToy(t *testing.T, loss args.LossName) *Model {
	t.Helper()
	a := testArgs(loss, args.Supervised)
	in := matrix.NewDense(4, 4)
	in.Uniform(1.0 / 4)
	out := matrix.NewDense(2, 4)
	m := New(in, out, a, 0)
	m.SetTargetCounts([]int64{5, 5})

	for i := 0; i < 300; i++ {
		m.Update([]int32{0, 1}, 0, 0.2)
		m.Update([]int32{2, 3}, 1, 0.2)
	}
	return m
}

func TestUpdateLearnsSeparableExamples(t *testing.T) {
	for _, loss := range []args.LossName{args.Softmax, args.NegativeSampling, args.HierarchicalSoftmax} {
		t.Run(loss.String(), func(t *testing.T) {
			m := trainToy(t, loss)
			assert.Greater(t, m.Loss(), float32(0))

			hidden := matrix.NewVector(4)
			output := matrix.NewVector(2)
			preds := m.Predict([]int32{0, 1}, 1, hidden, output)
			require.Len(t, preds, 1)
			assert.Equal(t, int32(0), preds[0].ID)

			preds = m.Predict([]int32{2, 3}, 2, hidden, output)
			require.Len(t, preds, 2)
			assert.Equal(t, int32(1), preds[0].ID)
			assert.GreaterOrEqual(t, preds[0].LogProb, preds[1].LogProb)
		})
	}
}

func TestPredictOnQuantizedInput(t *testing.T) {
	a := testArgs(args.Softmax, args.Supervised)
	in := matrix.NewDense(300, 4)
	for i := int64(0); i < 300; i++ {
		copy(in.Row(i), []float32{float32(i % 2), float32(1 - i%2), 0, 0})
	}
	out := matrix.NewDense(2, 4)
	copy(out.Data(), []float32{5, 0, 0, 0, 0, 5, 0, 0})
	q, err := matrix.NewQuantized(in, 2, false)
	require.NoError(t, err)

	m := New(q, out, a, 0)
	preds := m.Predict([]int32{1}, 1, matrix.NewVector(4), matrix.NewVector(2))
	require.Len(t, preds, 1)
	assert.Equal(t, int32(0), preds[0].ID)

	// quantized models are inference only
	m.Update([]int32{1}, 1, 0.5)
	assert.Equal(t, int64(1), m.nexamples)
}

func TestPredictEdgeCases(t *testing.T) {
	a := testArgs(args.Softmax, args.Supervised)
	m := New(matrix.NewDense(1, 4), matrix.NewDense(2, 4), a, 0)
	assert.Nil(t, m.Predict(nil, 1, matrix.NewVector(4), matrix.NewVector(2)))
	assert.Nil(t, m.Predict([]int32{0}, 0, matrix.NewVector(4), matrix.NewVector(2)))
}

func TestPredictWithoutOutputClasses(t *testing.T) {
	for _, loss := range []args.LossName{args.Softmax, args.NegativeSampling, args.HierarchicalSoftmax} {
		a := testArgs(loss, args.Supervised)
		m := New(matrix.NewDense(1, 4), matrix.NewDense(0, 4), a, 0)
		assert.Nil(t, m.Predict([]int32{0}, 3, matrix.NewVector(4), matrix.NewVector(0)), loss.String())
	}
}
