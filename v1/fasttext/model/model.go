// Package model implements the shallow network shared by the CBOW,
// skip-gram and supervised objectives: an averaged hidden layer over input
// rows and an output layer trained with negative sampling, hierarchical
// softmax or a full softmax.
package model

import (
	"math"
	"sort"

	"github.com/Aleph-Alpha/wordembed/v1/fasttext/args"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext/matrix"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext/random"
)

// NegativeTableSize is the approximate size of the negative sampling table.
const NegativeTableSize = 10000000

// Prediction is one scored output class.
type Prediction struct {
	LogProb float32
	ID      int32
}

// Model holds per-worker training state on top of shared matrices. A Model
// is used by one goroutine at a time; Predict is the exception and may be
// called concurrently as long as every caller passes its own buffers.
type Model struct {
	in, out   matrix.Matrix
	win, wout *matrix.Dense

	args *args.Args

	hidden matrix.Vector
	output matrix.Vector
	grad   matrix.Vector

	hsz int32
	osz int32

	loss      float32
	nexamples int64

	negatives []int32
	negpos    int

	tree  []node
	paths [][]int32
	codes [][]bool

	rng *random.Rand
}

// New builds a model over the given input and output matrices. Training
// requires both to be *matrix.Dense; quantized matrices only support
// inference.
func New(in, out matrix.Matrix, a *args.Args, seed int32) *Model {
	m := &Model{
		in:        in,
		out:       out,
		args:      a,
		hidden:    matrix.NewVector(int(a.Dim)),
		output:    matrix.NewVector(int(out.Rows())),
		grad:      matrix.NewVector(int(a.Dim)),
		hsz:       a.Dim,
		osz:       int32(out.Rows()),
		nexamples: 1,
		rng:       random.New(int64(seed)),
	}
	m.win, _ = in.(*matrix.Dense)
	m.wout, _ = out.(*matrix.Dense)
	return m
}

// Rand exposes the model's generator to the training loop.
func (m *Model) Rand() *random.Rand { return m.rng }

// OutputSize returns the number of output classes.
func (m *Model) OutputSize() int32 { return m.osz }

// Loss returns the average loss over the examples seen so far.
func (m *Model) Loss() float32 {
	return m.loss / float32(m.nexamples)
}

// SetTargetCounts prepares the loss specific structures: the negative
// sampling table for ns and the Huffman tree for hs.
func (m *Model) SetTargetCounts(counts []int64) {
	switch m.args.Loss {
	case args.NegativeSampling:
		m.initTableNegatives(counts)
	case args.HierarchicalSoftmax:
		m.buildTree(counts)
	}
}

func (m *Model) initTableNegatives(counts []int64) {
	var z float32
	for _, c := range counts {
		z += float32(math.Sqrt(float64(c)))
	}
	m.negatives = m.negatives[:0]
	for i, c := range counts {
		share := float32(math.Sqrt(float64(c))) * NegativeTableSize / z
		for j := 0; float32(j) < share; j++ {
			m.negatives = append(m.negatives, int32(i))
		}
	}
	m.rng.Shuffle(len(m.negatives), func(i, j int) {
		m.negatives[i], m.negatives[j] = m.negatives[j], m.negatives[i]
	})
}

func (m *Model) getNegative(target int32) int32 {
	for {
		negative := m.negatives[m.negpos]
		m.negpos = (m.negpos + 1) % len(m.negatives)
		if negative != target {
			return negative
		}
	}
}

// ComputeHidden writes the average of the given input rows into hidden.
func (m *Model) ComputeHidden(input []int32, hidden matrix.Vector) {
	hidden.Zero()
	for _, id := range input {
		hidden.AddRow(m.in, int64(id), 1)
	}
	hidden.Scale(1 / float32(len(input)))
}

func (m *Model) binaryLogistic(target int32, label bool, lr float32) float32 {
	score := sigmoid(m.wout.DotRow(m.hidden, int64(target)))
	var l float32
	if label {
		l = 1
	}
	alpha := lr * (l - score)
	m.grad.AddRow(m.wout, int64(target), alpha)
	m.wout.AddVectorToRow(m.hidden, int64(target), alpha)
	if label {
		return -tableLog(score)
	}
	return -tableLog(1 - score)
}

func (m *Model) negativeSampling(target int32, lr float32) float32 {
	var loss float32
	m.grad.Zero()
	for n := int32(0); n <= m.args.Neg; n++ {
		if n == 0 {
			loss += m.binaryLogistic(target, true, lr)
		} else {
			loss += m.binaryLogistic(m.getNegative(target), false, lr)
		}
	}
	return loss
}

func (m *Model) hierarchicalSoftmax(target int32, lr float32) float32 {
	var loss float32
	m.grad.Zero()
	code := m.codes[target]
	path := m.paths[target]
	for i := range path {
		loss += m.binaryLogistic(path[i], code[i], lr)
	}
	return loss
}

// computeOutputSoftmax sets output to softmax(out·hidden), shifted by the
// maximum for numerical stability.
func (m *Model) computeOutputSoftmax(hidden, output matrix.Vector) {
	output.MulMatrix(m.out, hidden)
	maxv := output[0]
	for _, v := range output {
		maxv = max(maxv, v)
	}
	var z float32
	for i, v := range output {
		output[i] = float32(math.Exp(float64(v - maxv)))
		z += output[i]
	}
	for i := range output {
		output[i] /= z
	}
}

func (m *Model) softmax(target int32, lr float32) float32 {
	m.grad.Zero()
	m.computeOutputSoftmax(m.hidden, m.output)
	for i := int32(0); i < m.osz; i++ {
		var label float32
		if i == target {
			label = 1
		}
		alpha := lr * (label - m.output[i])
		m.grad.AddRow(m.wout, int64(i), alpha)
		m.wout.AddVectorToRow(m.hidden, int64(i), alpha)
	}
	return -tableLog(m.output[target])
}

// Update performs one SGD step predicting target from the averaged input
// rows. Empty inputs are ignored.
func (m *Model) Update(input []int32, target int32, lr float32) {
	if len(input) == 0 || m.win == nil || m.wout == nil {
		return
	}
	m.ComputeHidden(input, m.hidden)
	switch m.args.Loss {
	case args.NegativeSampling:
		m.loss += m.negativeSampling(target, lr)
	case args.HierarchicalSoftmax:
		m.loss += m.hierarchicalSoftmax(target, lr)
	default:
		m.loss += m.softmax(target, lr)
	}
	m.nexamples++

	if m.args.Model == args.Supervised {
		m.grad.Scale(1 / float32(len(input)))
	}
	for _, id := range input {
		m.win.AddVectorToRow(m.grad, int64(id), 1)
	}
}

// Predict returns the k most likely output classes for input, best first.
// hidden must have size dim and output size OutputSize(). A model without
// output classes predicts nothing.
func (m *Model) Predict(input []int32, k int32, hidden, output matrix.Vector) []Prediction {
	if k <= 0 || len(input) == 0 || m.osz == 0 {
		return nil
	}
	h := make(predictionHeap, 0, k+1)
	m.ComputeHidden(input, hidden)
	if m.args.Loss == args.HierarchicalSoftmax {
		m.dfs(k, 2*m.osz-2, 0, &h, hidden)
	} else {
		m.findKBest(k, &h, hidden, output)
	}
	sort.SliceStable(h, func(i, j int) bool { return h[i].LogProb > h[j].LogProb })
	return h
}

func (m *Model) findKBest(k int32, h *predictionHeap, hidden, output matrix.Vector) {
	m.computeOutputSoftmax(hidden, output)
	for i := int32(0); i < m.osz; i++ {
		lp := tableLog(output[i])
		if int32(len(*h)) == k && lp < (*h)[0].LogProb {
			continue
		}
		h.push(Prediction{LogProb: lp, ID: i}, k)
	}
}

func (m *Model) dfs(k int32, n int32, score float32, h *predictionHeap, hidden matrix.Vector) {
	if n < 0 || int(n) >= len(m.tree) {
		return
	}
	if int32(len(*h)) == k && score < (*h)[0].LogProb {
		return
	}
	if m.tree[n].left == -1 && m.tree[n].right == -1 {
		h.push(Prediction{LogProb: score, ID: n}, k)
		return
	}
	f := sigmoid(m.out.DotRow(hidden, int64(n-m.osz)))
	m.dfs(k, m.tree[n].left, score+tableLog(1-f), h, hidden)
	m.dfs(k, m.tree[n].right, score+tableLog(f), h, hidden)
}
