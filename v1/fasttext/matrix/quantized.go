package matrix

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Quantized is a read-only product-quantized matrix. When norm quantization
// is enabled, rows are normalized before encoding and their norms are stored
// through a separate one-dimensional quantizer.
type Quantized struct {
	qnorm    bool
	m, n     int64
	codesize int32

	codes []uint8
	pq    *ProductQuantizer

	normCodes []uint8
	npq       *ProductQuantizer
}

// NewQuantized encodes mat. The source matrix is left untouched.
func NewQuantized(mat *Dense, dsub int32, qnorm bool) (*Quantized, error) {
	if dsub <= 0 {
		return nil, fmt.Errorf("%w: dsub %d", ErrBadShape, dsub)
	}
	q := &Quantized{
		qnorm:    qnorm,
		m:        mat.m,
		n:        mat.n,
		codesize: int32(mat.m * ((mat.n + int64(dsub) - 1) / int64(dsub))),
		pq:       NewProductQuantizer(int32(mat.n), dsub),
	}
	q.codes = make([]uint8, q.codesize)

	temp := mat.Clone()
	if qnorm {
		norms := NewVector(int(q.m))
		temp.L2NormRows(norms)
		temp.DivideRow(norms, 0, -1)

		q.normCodes = make([]uint8, q.m)
		q.npq = NewProductQuantizer(1, 1)
		if err := q.npq.Train(int(q.m), norms); err != nil {
			return nil, err
		}
		q.npq.ComputeCodes(norms, q.normCodes, int(q.m))
	}
	if err := q.pq.Train(int(q.m), temp.data); err != nil {
		return nil, err
	}
	q.pq.ComputeCodes(temp.data, q.codes, int(q.m))
	return q, nil
}

func (q *Quantized) Rows() int64 { return q.m }
func (q *Quantized) Cols() int64 { return q.n }

func (q *Quantized) rowNorm(i int64) float32 {
	if !q.qnorm {
		return 1
	}
	return q.npq.centroid(0, int32(q.normCodes[i]))[0]
}

func (q *Quantized) DotRow(v Vector, i int64) float32 {
	return q.pq.MulCode(v, q.codes, i, q.rowNorm(i))
}

func (q *Quantized) AddRowToVector(v Vector, i int64, a float32) {
	q.pq.AddCode(v, q.codes, i, a*q.rowNorm(i))
}

// Save writes qnorm, m, n, codesize, the codes and the quantizer, followed by
// the norm codes and norm quantizer when qnorm is set.
func (q *Quantized) Save(w io.Writer) error {
	if err := writeBool(w, q.qnorm); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, [2]int64{q.m, q.n}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, q.codesize); err != nil {
		return err
	}
	if _, err := w.Write(q.codes); err != nil {
		return err
	}
	if err := q.pq.Save(w); err != nil {
		return err
	}
	if q.qnorm {
		if _, err := w.Write(q.normCodes); err != nil {
			return err
		}
		return q.npq.Save(w)
	}
	return nil
}

// Load reads a matrix written by Save.
func (q *Quantized) Load(r io.Reader) error {
	qnorm, err := readBool(r)
	if err != nil {
		return err
	}
	var shape [2]int64
	if err := binary.Read(r, binary.LittleEndian, &shape); err != nil {
		return err
	}
	var codesize int32
	if err := binary.Read(r, binary.LittleEndian, &codesize); err != nil {
		return err
	}
	m, n := shape[0], shape[1]
	if m < 0 || n <= 0 || m > maxElements/n || codesize < 0 || int64(codesize) > m*n {
		return fmt.Errorf("%w: quantized %dx%d codesize %d", ErrBadShape, m, n, codesize)
	}
	codes, err := readBytes(r, int64(codesize))
	if err != nil {
		return err
	}
	pq := &ProductQuantizer{}
	if err := pq.Load(r); err != nil {
		return err
	}
	if int64(pq.nsubq)*m != int64(codesize) {
		return fmt.Errorf("%w: %d codes for %d rows of %d sub-quantizers", ErrBadShape, codesize, m, pq.nsubq)
	}
	var normCodes []uint8
	var npq *ProductQuantizer
	if qnorm {
		if normCodes, err = readBytes(r, m); err != nil {
			return err
		}
		npq = &ProductQuantizer{}
		if err := npq.Load(r); err != nil {
			return err
		}
	}
	*q = Quantized{qnorm: qnorm, m: m, n: n, codesize: codesize, codes: codes, pq: pq, normCodes: normCodes, npq: npq}
	return nil
}

// readChunk is the largest number of elements allocated ahead of the data
// actually read, so a corrupt size fails on EOF instead of allocating.
const readChunk = 1 << 20

func readFloats(r io.Reader, count int64) ([]float32, error) {
	out := make([]float32, 0, min(count, readChunk))
	for int64(len(out)) < count {
		next := min(count, int64(len(out))+readChunk)
		if int64(cap(out)) < next {
			grown := make([]float32, len(out), min(count, max(next, 2*int64(cap(out)))))
			copy(grown, out)
			out = grown
		}
		chunk := out[len(out):next]
		if err := binary.Read(r, binary.LittleEndian, chunk); err != nil {
			return nil, err
		}
		out = out[:next]
	}
	return out, nil
}

func readBytes(r io.Reader, count int64) ([]byte, error) {
	out := make([]byte, 0, min(count, readChunk))
	for int64(len(out)) < count {
		next := min(count, int64(len(out))+readChunk)
		if int64(cap(out)) < next {
			grown := make([]byte, len(out), min(count, max(next, 2*int64(cap(out)))))
			copy(grown, out)
			out = grown
		}
		if _, err := io.ReadFull(r, out[len(out):next]); err != nil {
			return nil, err
		}
		out = out[:next]
	}
	return out, nil
}

func writeBool(w io.Writer, b bool) error {
	var v uint8
	if b {
		v = 1
	}
	_, err := w.Write([]byte{v})
	return err
}

func readBool(r io.Reader) (bool, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// WriteBool and ReadBool expose the single-byte boolean encoding used by
// model files.
func WriteBool(w io.Writer, b bool) error { return writeBool(w, b) }

func ReadBool(r io.Reader) (bool, error) { return readBool(r) }
