package fasttext

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Aleph-Alpha/wordembed/v1/fasttext/args"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext/dictionary"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext/matrix"
)

const minNorm = 1e-8

// wordVector writes the average of the subword rows of word into vec.
func (s *modelState) wordVector(word string, vec matrix.Vector) {
	vec.Zero()
	ngrams := s.dict.SubwordsOf(word)
	in := s.inputMatrix()
	for _, id := range ngrams {
		vec.AddRow(in, int64(id), 1)
	}
	if len(ngrams) > 0 {
		vec.Scale(1 / float32(len(ngrams)))
	}
}

// WordVector returns the subword-averaged vector of word. Out-of-vocabulary
// words are composed from their character n-grams.
func (e *Engine) WordVector(word string) ([]float32, error) {
	if err := e.LoadModel(); err != nil {
		return nil, err
	}
	st := e.current.Load()
	vec := matrix.NewVector(int(st.args.Dim))
	st.wordVector(word, vec)
	return vec, nil
}

// PrecomputeWordVectors builds the matrix of unit-length vectors for every
// vocabulary word. It runs once per loaded model.
func (e *Engine) PrecomputeWordVectors() error {
	if err := e.LoadModel(); err != nil {
		return err
	}
	if e.wordVectors.Load() != nil {
		return nil
	}
	e.precomputeMu.Lock()
	defer e.precomputeMu.Unlock()
	if e.wordVectors.Load() != nil {
		return nil
	}

	start := time.Now()
	st := e.current.Load()
	nwords := st.dict.Nwords()
	wv := matrix.NewDense(int64(nwords), int64(st.args.Dim))
	vec := matrix.NewVector(int(st.args.Dim))
	for i := int32(0); i < nwords; i++ {
		st.wordVector(st.dict.Word(i), vec)
		norm := vec.Norm()
		if norm < minNorm {
			norm = 1
		}
		wv.AddVectorToRow(vec, int64(i), 1/norm)
	}
	e.wordVectors.Store(wv)

	e.logger.Debug("word vectors precomputed", nil, map[string]interface{}{
		"nwords":      nwords,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	e.observeOperation("precompute", "", start, nil, int64(nwords), nil)
	return nil
}

// normalizedWordVector returns the unit vector of word, or nil when the word
// vector is zero. Results go through the LRU cache when it is enabled.
func (e *Engine) normalizedWordVector(st *modelState, word string) matrix.Vector {
	cache := e.vectorCache()
	if cache != nil {
		if v, ok := cache.Get(word); ok {
			return v
		}
	}
	vec := matrix.NewVector(int(st.args.Dim))
	st.wordVector(word, vec)
	norm := vec.Norm()
	if norm > 0 {
		vec.Scale(1 / norm)
	} else {
		vec = nil
	}
	if cache != nil {
		cache.Add(word, vec)
	}
	return vec
}

// SentenceVector embeds text. Supervised models average the input rows of
// the line's word and n-gram ids; other models average the unit vectors of
// the whitespace separated tokens, skipping zero vectors. Empty input yields
// a zero vector.
func (e *Engine) SentenceVector(text string) (vec []float64, err error) {
	start := time.Now()
	defer func() { e.observeOperation("sentence_vector", "", start, err, int64(len(vec)), nil) }()

	if err := e.LoadModel(); err != nil {
		return nil, err
	}
	st := e.current.Load()
	svec := matrix.NewVector(int(st.args.Dim))

	if st.args.Model == args.Supervised {
		lr := dictionary.NewLineReader(strings.NewReader(text))
		words, _, _, err := st.dict.GetLabeledLine(lr, nil, nil)
		if err != nil {
			return nil, err
		}
		in := st.inputMatrix()
		for _, id := range words {
			svec.AddRow(in, int64(id), 1)
		}
		if len(words) > 0 {
			svec.Scale(1 / float32(len(words)))
		}
		return svec.Float64s(), nil
	}

	count := 0
	for _, word := range strings.Fields(text) {
		v := e.normalizedWordVector(st, word)
		if v == nil {
			continue
		}
		svec.AddVector(v)
		count++
	}
	if count > 0 {
		svec.Scale(1 / float32(count))
	}
	return svec.Float64s(), nil
}

// WordVectors calls fn for every vocabulary word with its unit-length vector.
// The vector must not be retained. Iteration stops at the first error.
func (e *Engine) WordVectors(fn func(id int, word string, vec []float32) error) error {
	if err := e.PrecomputeWordVectors(); err != nil {
		return err
	}
	st := e.current.Load()
	wv := e.wordVectors.Load()
	for i := int32(0); i < st.dict.Nwords(); i++ {
		if err := fn(int(i), st.dict.Word(i), wv.Row(int64(i))); err != nil {
			return err
		}
	}
	return nil
}

// SaveVectors writes the word vectors in the text format: a header line with
// the word count and dimension, then one word per line followed by its values.
func (e *Engine) SaveVectors(path string) (err error) {
	if err := e.LoadModel(); err != nil {
		return err
	}
	start := time.Now()
	defer func() { e.observeOperation("save_vectors", path, start, err, 0, nil) }()

	st := e.current.Load()
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrModelWrite, path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%d %d\n", st.dict.Nwords(), st.args.Dim)
	vec := matrix.NewVector(int(st.args.Dim))
	buf := make([]byte, 0, 32)
	for i := int32(0); i < st.dict.Nwords(); i++ {
		word := st.dict.Word(i)
		st.wordVector(word, vec)
		w.WriteString(word)
		w.WriteByte(' ')
		for _, x := range vec {
			buf = strconv.AppendFloat(buf[:0], float64(x), 'g', 5, 32)
			w.Write(buf)
			w.WriteByte(' ')
		}
		w.WriteByte('\n')
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrModelWrite, path, err)
	}
	return f.Close()
}
