package fasttext

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/Aleph-Alpha/wordembed/v1/fasttext/args"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext/dictionary"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext/matrix"
)

// loadPretrained reads a text vectors file, adds its words to dict and
// returns an input matrix initialized with those vectors. Rows of words that
// are not in the file keep their uniform initialization.
func loadPretrained(path string, a *args.Args, dict *dictionary.Dictionary) (*matrix.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPretrainedOpen, path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	sc.Split(bufio.ScanWords)
	next := func() (string, error) {
		if sc.Scan() {
			return sc.Text(), nil
		}
		if err := sc.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("unexpected end of file")
	}
	nextInt := func() (int64, error) {
		tok, err := next()
		if err != nil {
			return 0, err
		}
		return strconv.ParseInt(tok, 10, 64)
	}

	n, err := nextInt()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: header: %v", ErrPretrainedOpen, path, err)
	}
	dim, err := nextInt()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: header: %v", ErrPretrainedOpen, path, err)
	}
	if dim != int64(a.Dim) {
		return nil, fmt.Errorf("%w: file has %d, expected %d", ErrDimensionMismatch, dim, a.Dim)
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: %s: negative vector count %d", ErrPretrainedOpen, path, n)
	}
	// Every vector takes at least a one byte word and dim one digit values,
	// each followed by a separator.
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPretrainedOpen, path, err)
	}
	if maxVectors := info.Size() / (2 * (dim + 1)); n > maxVectors {
		return nil, fmt.Errorf("%w: %s: header announces %d vectors, file holds at most %d", ErrPretrainedOpen, path, n, maxVectors)
	}

	words := make([]string, 0, n)
	mat := matrix.NewDense(n, dim)
	for i := int64(0); i < n; i++ {
		word, err := next()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: vector %d: %v", ErrPretrainedOpen, path, i, err)
		}
		words = append(words, word)
		dict.Add(word)
		row := mat.Row(i)
		for j := range row {
			tok, err := next()
			if err != nil {
				return nil, fmt.Errorf("%w: %s: vector %d: %v", ErrPretrainedOpen, path, i, err)
			}
			v, err := strconv.ParseFloat(tok, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: vector %d: %v", ErrPretrainedOpen, path, i, err)
			}
			row[j] = float32(v)
		}
	}

	dict.Threshold(1, 0)
	dict.Finalize()

	input := matrix.NewDense(int64(dict.Nwords())+int64(a.Bucket), int64(a.Dim))
	input.Uniform(1 / float32(a.Dim))
	for i, word := range words {
		idx := dict.ID(word)
		if idx < 0 || idx >= dict.Nwords() {
			continue
		}
		copy(input.Row(int64(idx)), mat.Row(int64(i)))
	}
	return input, nil
}
