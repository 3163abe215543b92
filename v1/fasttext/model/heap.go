package model

import "container/heap"

// predictionHeap is a min-heap on LogProb so the weakest of the current k
// best predictions sits at index 0.
type predictionHeap []Prediction

func (h predictionHeap) Len() int           { return len(h) }
func (h predictionHeap) Less(i, j int) bool { return h[i].LogProb < h[j].LogProb }
func (h predictionHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *predictionHeap) Push(x any) { *h = append(*h, x.(Prediction)) }

func (h *predictionHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// push adds p and drops the weakest entry when more than k are held.
func (h *predictionHeap) push(p Prediction, k int32) {
	heap.Push(h, p)
	if int32(h.Len()) > k {
		heap.Pop(h)
	}
}
