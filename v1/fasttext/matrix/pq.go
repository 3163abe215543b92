package matrix

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/Aleph-Alpha/wordembed/v1/fasttext/random"
)

const (
	pqBits          = 8
	pqKsub          = 1 << pqBits
	pqMaxPointsPerC = 256
	pqMaxPoints     = pqMaxPointsPerC * pqKsub
	pqSeed          = 1234
	pqIterations    = 25
	pqEps           = 1e-7
)

// ErrTooFewRows is returned when a matrix has fewer rows than centroids.
var ErrTooFewRows = errors.New("matrix too small for quantization, must have at least 256 rows")

// ProductQuantizer splits vectors of size dim into nsubq sub-vectors of size
// dsub (the last one may be shorter) and encodes each with one of 256
// centroids learned by k-means.
type ProductQuantizer struct {
	dim      int32
	nsubq    int32
	dsub     int32
	lastdsub int32

	centroids []float32
	rng       *random.Rand
}

// NewProductQuantizer returns an untrained quantizer.
func NewProductQuantizer(dim, dsub int32) *ProductQuantizer {
	pq := &ProductQuantizer{
		dim:       dim,
		nsubq:     dim / dsub,
		dsub:      dsub,
		centroids: make([]float32, int(dim)*pqKsub),
		rng:       random.New(pqSeed),
	}
	pq.lastdsub = dim % dsub
	if pq.lastdsub == 0 {
		pq.lastdsub = dsub
	} else {
		pq.nsubq++
	}
	return pq
}

// Subquantizers returns the number of codes per vector.
func (pq *ProductQuantizer) Subquantizers() int32 { return pq.nsubq }

func (pq *ProductQuantizer) subDim(m int32) int32 {
	if m == pq.nsubq-1 {
		return pq.lastdsub
	}
	return pq.dsub
}

// centroid returns centroid i of sub-quantizer m.
func (pq *ProductQuantizer) centroid(m int32, i int32) []float32 {
	d := pq.subDim(m)
	var off int32
	if m == pq.nsubq-1 {
		off = m*pqKsub*pq.dsub + i*pq.lastdsub
	} else {
		off = (m*pqKsub + i) * pq.dsub
	}
	return pq.centroids[off : off+d]
}

func (pq *ProductQuantizer) centroidBlock(m int32) []float32 {
	start := int(m) * pqKsub * int(pq.dsub)
	return pq.centroids[start : start+pqKsub*int(pq.subDim(m))]
}

func assignCentroid(x, centroids []float32, d int) (uint8, float32) {
	best := distL2(x, centroids[:d])
	var code uint8
	for j := 1; j < pqKsub; j++ {
		if dis := distL2(x, centroids[j*d:(j+1)*d]); dis < best {
			code = uint8(j)
			best = dis
		}
	}
	return code, best
}

func (pq *ProductQuantizer) estep(x, centroids []float32, codes []uint8, d, n int) {
	for i := 0; i < n; i++ {
		codes[i], _ = assignCentroid(x[i*d:(i+1)*d], centroids, d)
	}
}

func (pq *ProductQuantizer) mstep(x, centroids []float32, codes []uint8, d, n int) {
	nelts := make([]int, pqKsub)
	clear(centroids[:d*pqKsub])
	for i := 0; i < n; i++ {
		k := int(codes[i])
		c := centroids[k*d : (k+1)*d]
		for j := range c {
			c[j] += x[i*d+j]
		}
		nelts[k]++
	}
	for k := 0; k < pqKsub; k++ {
		if z := float32(nelts[k]); z != 0 {
			c := centroids[k*d : (k+1)*d]
			for j := range c {
				c[j] /= z
			}
		}
	}
	// Split a populated cluster for every empty one.
	for k := 0; k < pqKsub; k++ {
		if nelts[k] != 0 {
			continue
		}
		m := 0
		for pq.rng.Uniform(0, 1)*float64(n-pqKsub) >= float64(nelts[m]-1) {
			m = (m + 1) % pqKsub
		}
		copy(centroids[k*d:(k+1)*d], centroids[m*d:(m+1)*d])
		for j := 0; j < d; j++ {
			sign := float32((j%2)*2 - 1)
			centroids[k*d+j] += sign * pqEps
			centroids[m*d+j] -= sign * pqEps
		}
		nelts[k] = nelts[m] / 2
		nelts[m] -= nelts[k]
	}
}

func (pq *ProductQuantizer) kmeans(x, centroids []float32, n, d int) {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	pq.rng.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
	for i := 0; i < pqKsub; i++ {
		copy(centroids[i*d:(i+1)*d], x[perm[i]*d:(perm[i]+1)*d])
	}
	codes := make([]uint8, n)
	for i := 0; i < pqIterations; i++ {
		pq.estep(x, centroids, codes, d, n)
		pq.mstep(x, centroids, codes, d, n)
	}
}

// Train learns the centroids from n row-major vectors of size dim. At most
// 65536 randomly chosen rows are used.
func (pq *ProductQuantizer) Train(n int, x []float32) error {
	if n < pqKsub {
		return fmt.Errorf("%w: got %d", ErrTooFewRows, n)
	}
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	np := min(n, pqMaxPoints)
	xslice := make([]float32, np*int(pq.dsub))
	for m := int32(0); m < pq.nsubq; m++ {
		d := int(pq.subDim(m))
		if np != n {
			pq.rng.Shuffle(n, func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		}
		for j := 0; j < np; j++ {
			src := perm[j]*int(pq.dim) + int(m*pq.dsub)
			copy(xslice[j*d:(j+1)*d], x[src:src+d])
		}
		pq.kmeans(xslice[:np*d], pq.centroidBlock(m), np, d)
	}
	return nil
}

// ComputeCode encodes one vector of size dim into nsubq codes.
func (pq *ProductQuantizer) ComputeCode(x []float32, code []uint8) {
	for m := int32(0); m < pq.nsubq; m++ {
		d := int(pq.subDim(m))
		off := int(m * pq.dsub)
		code[m], _ = assignCentroid(x[off:off+d], pq.centroidBlock(m), d)
	}
}

// ComputeCodes encodes n row-major vectors.
func (pq *ProductQuantizer) ComputeCodes(x []float32, codes []uint8, n int) {
	dim, nsubq := int(pq.dim), int(pq.nsubq)
	for i := 0; i < n; i++ {
		pq.ComputeCode(x[i*dim:(i+1)*dim], codes[i*nsubq:(i+1)*nsubq])
	}
}

// MulCode returns alpha times the dot product of x with the decoded vector t.
func (pq *ProductQuantizer) MulCode(x []float32, codes []uint8, t int64, alpha float32) float32 {
	var res float32
	code := codes[int(pq.nsubq)*int(t):]
	for m := int32(0); m < pq.nsubq; m++ {
		c := pq.centroid(m, int32(code[m]))
		off := int(m * pq.dsub)
		for n := range c {
			res += x[off+n] * c[n]
		}
	}
	return res * alpha
}

// AddCode adds alpha times the decoded vector t to x.
func (pq *ProductQuantizer) AddCode(x []float32, codes []uint8, t int64, alpha float32) {
	code := codes[int(pq.nsubq)*int(t):]
	for m := int32(0); m < pq.nsubq; m++ {
		c := pq.centroid(m, int32(code[m]))
		off := int(m * pq.dsub)
		for n := range c {
			x[off+n] += alpha * c[n]
		}
	}
}

// Save writes dim, nsubq, dsub, lastdsub as int32 followed by the centroids.
func (pq *ProductQuantizer) Save(w io.Writer) error {
	header := [4]int32{pq.dim, pq.nsubq, pq.dsub, pq.lastdsub}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, pq.centroids)
}

// Load reads a quantizer written by Save.
func (pq *ProductQuantizer) Load(r io.Reader) error {
	var header [4]int32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return err
	}
	dim, nsubq, dsub, lastdsub := header[0], header[1], header[2], header[3]
	if dim <= 0 || dsub <= 0 || nsubq <= 0 || lastdsub <= 0 || lastdsub > dsub {
		return fmt.Errorf("%w: quantizer dim=%d nsubq=%d dsub=%d", ErrBadShape, dim, nsubq, dsub)
	}
	centroids, err := readFloats(r, int64(dim)*pqKsub)
	if err != nil {
		return err
	}
	pq.dim, pq.nsubq, pq.dsub, pq.lastdsub = dim, nsubq, dsub, lastdsub
	pq.centroids = centroids
	if pq.rng == nil {
		pq.rng = random.New(pqSeed)
	}
	return nil
}
