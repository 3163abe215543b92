package fasttext

import (
	"container/heap"
	"math"
	"time"

	"github.com/Aleph-Alpha/wordembed/v1/fasttext/matrix"
)

// Prediction is a scored word or label. Value is exp of the raw score, so it
// is positive and preserves the ranking.
type Prediction struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type scoredWord struct {
	score float32
	word  string
}

// neighborHeap is a max-heap on score. Equal scores pop in lexicographic
// order of the word.
type neighborHeap []scoredWord

func (h neighborHeap) Len() int { return len(h) }
func (h neighborHeap) Less(i, j int) bool {
	if h[i].score != h[j].score {
		return h[i].score > h[j].score
	}
	return h[i].word < h[j].word
}
func (h neighborHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *neighborHeap) Push(x any)   { *h = append(*h, x.(scoredWord)) }
func (h *neighborHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// findNN scores every vocabulary word against query by cosine similarity
// and returns the k best that are not in ban.
func (e *Engine) findNN(st *modelState, query matrix.Vector, k int, ban map[string]struct{}) []Prediction {
	if k <= 0 {
		return []Prediction{}
	}
	wv := e.wordVectors.Load()
	queryNorm := query.Norm()
	if queryNorm < minNorm {
		queryNorm = 1
	}

	scores := matrix.NewVector(int(wv.Rows()))
	scores.MulMatrix(wv, query)

	h := make(neighborHeap, len(scores))
	for i, s := range scores {
		h[i] = scoredWord{score: s / queryNorm, word: st.dict.Word(int32(i))}
	}
	heap.Init(&h)

	results := make([]Prediction, 0, min(k, len(h)))
	for len(results) < k && h.Len() > 0 {
		top := heap.Pop(&h).(scoredWord)
		if _, banned := ban[top.word]; banned {
			continue
		}
		results = append(results, Prediction{Label: top.word, Value: math.Exp(float64(top.score))})
	}
	return results
}

// NN returns the k nearest vocabulary words to word by cosine similarity,
// never including word itself. It loads the model and precomputes the word
// vectors on first use.
func (e *Engine) NN(word string, k int) (results []Prediction, err error) {
	start := time.Now()
	defer func() {
		e.observeOperation("nn", "", start, err, int64(len(results)), map[string]interface{}{"k": k})
	}()

	if err := e.PrecomputeWordVectors(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []Prediction{}, nil
	}
	st := e.current.Load()
	query := matrix.NewVector(int(st.args.Dim))
	st.wordVector(word, query)
	return e.findNN(st, query, k, map[string]struct{}{word: {}}), nil
}

// Analogy returns the k nearest words to a - b + c, excluding the three
// query words.
func (e *Engine) Analogy(a, b, c string, k int) (results []Prediction, err error) {
	start := time.Now()
	defer func() {
		e.observeOperation("analogy", "", start, err, int64(len(results)), map[string]interface{}{"k": k})
	}()

	if err := e.PrecomputeWordVectors(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []Prediction{}, nil
	}
	st := e.current.Load()
	dim := int(st.args.Dim)
	query, buf := matrix.NewVector(dim), matrix.NewVector(dim)
	for _, term := range []struct {
		word string
		sign float32
	}{{a, 1}, {b, -1}, {c, 1}} {
		st.wordVector(term.word, buf)
		if n := buf.Norm(); n > 0 {
			query.AddScaled(buf, term.sign/n)
		}
	}
	ban := map[string]struct{}{a: {}, b: {}, c: {}}
	return e.findNN(st, query, k, ban), nil
}
