// Package dictionary maps tokens to integer ids, computes hashed character
// and word n-grams, and implements frequency thresholding and subsampling.
package dictionary

import (
	"errors"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/Aleph-Alpha/wordembed/v1/fasttext/args"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext/random"
)

const (
	// MaxVocabSize bounds the number of distinct tokens. While reading a
	// corpus, the minimum count is raised whenever three quarters of it are used.
	MaxVocabSize = 30000000

	// MaxLineSize is the number of in-vocabulary tokens after which an
	// unsupervised line is cut.
	MaxLineSize = 1024

	EOS = "</s>"
	BOW = "<"
	EOW = ">"
)

// ErrEmptyVocabulary is returned when thresholding leaves no token.
var ErrEmptyVocabulary = errors.New("empty vocabulary, try a smaller -minCount value")

// EntryType distinguishes words from labels.
type EntryType int8

const (
	Word  EntryType = 0
	Label EntryType = 1
)

type entry struct {
	word     string
	count    int64
	typ      EntryType
	subwords []int32
}

// Dictionary is the vocabulary of a model. Words occupy ids [0, nwords) and
// labels [nwords, size); hashed n-grams are addressed as nwords+bucketIndex
// in the input matrix.
//
// A Dictionary is safe for concurrent reads once built or loaded.
type Dictionary struct {
	args *args.Args

	word2int map[string]int32
	words    []entry
	pdiscard []float32

	size    int32
	nwords  int32
	nlabels int32
	ntokens int64

	pruneIdxSize int64
	pruneIdx     map[int32]int32
}

// New returns an empty dictionary using the given parameters.
func New(a *args.Args) *Dictionary {
	return &Dictionary{
		args:         a,
		word2int:     make(map[string]int32),
		pruneIdxSize: -1,
		pruneIdx:     make(map[int32]int32),
	}
}

// Hash is the 32 bit FNV-1a variant used for all n-gram buckets. Bytes are
// sign-extended before mixing, which matters for non-ASCII input.
func Hash(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(int8(s[i]))
		h *= 16777619
	}
	return h
}

func (d *Dictionary) Nwords() int32  { return d.nwords }
func (d *Dictionary) Nlabels() int32 { return d.nlabels }
func (d *Dictionary) Ntokens() int64 { return d.ntokens }
func (d *Dictionary) Size() int32    { return d.size }

// ID returns the id of w or -1.
func (d *Dictionary) ID(w string) int32 {
	if id, ok := d.word2int[w]; ok {
		return id
	}
	return -1
}

// Word returns the token stored under id.
func (d *Dictionary) Word(id int32) string {
	return d.words[id].word
}

// Label returns the label with label index lid, in [0, nlabels).
func (d *Dictionary) Label(lid int32) (string, bool) {
	if lid < 0 || lid >= d.nlabels {
		return "", false
	}
	return d.words[lid+d.nwords].word, true
}

// Type returns the type of the entry id.
func (d *Dictionary) Type(id int32) EntryType {
	return d.words[id].typ
}

// TypeOf classifies a token by the label prefix.
func (d *Dictionary) TypeOf(w string) EntryType {
	if strings.HasPrefix(w, d.args.Label) {
		return Label
	}
	return Word
}

// Add records one occurrence of w.
func (d *Dictionary) Add(w string) {
	d.ntokens++
	if id, ok := d.word2int[w]; ok {
		d.words[id].count++
		return
	}
	d.words = append(d.words, entry{word: w, count: 1, typ: d.TypeOf(w)})
	d.word2int[w] = d.size
	d.size++
}

// Subwords returns the input rows that make up word id: the id itself
// followed by its character n-gram buckets. The slice must not be modified.
func (d *Dictionary) Subwords(id int32) []int32 {
	return d.words[id].subwords
}

// SubwordsOf returns the subwords of an arbitrary token. Out-of-vocabulary
// tokens yield only their n-gram buckets.
func (d *Dictionary) SubwordsOf(w string) []int32 {
	if id := d.ID(w); id >= 0 {
		return d.Subwords(id)
	}
	var ngrams []int32
	if w != EOS {
		d.computeSubwords(BOW+w+EOW, &ngrams)
	}
	return ngrams
}

// Counts returns the counts of all entries of type t, in id order.
func (d *Dictionary) Counts(t EntryType) []int64 {
	var counts []int64
	for _, e := range d.words {
		if e.typ == t {
			counts = append(counts, e.count)
		}
	}
	return counts
}

// Words returns all word tokens in id order.
func (d *Dictionary) Words() []string {
	out := make([]string, d.nwords)
	for i := int32(0); i < d.nwords; i++ {
		out[i] = d.words[i].word
	}
	return out
}

// SubwordRows returns how many input matrix rows after the word rows are
// addressed by character n-grams.
func (d *Dictionary) SubwordRows() int64 {
	switch {
	case d.pruneIdxSize == 0:
		return 0
	case d.pruneIdxSize > 0:
		var rows int64
		for _, mapped := range d.pruneIdx {
			rows = max(rows, int64(mapped)+1)
		}
		return rows
	case d.args.Bucket > 0:
		return int64(d.args.Bucket)
	}
	return 0
}

func (d *Dictionary) pushHash(hashes *[]int32, id int32) {
	if d.pruneIdxSize == 0 || id < 0 {
		return
	}
	if d.pruneIdxSize > 0 {
		mapped, ok := d.pruneIdx[id]
		if !ok {
			return
		}
		id = mapped
	}
	*hashes = append(*hashes, d.nwords+id)
}

// computeSubwords appends the bucket ids of all character n-grams of word
// whose length lies in [minn, maxn], counted in UTF-8 characters. Single
// characters touching either boundary are skipped.
func (d *Dictionary) computeSubwords(word string, ngrams *[]int32) {
	if d.args.Bucket <= 0 {
		return
	}
	minn, maxn := int(d.args.Minn), int(d.args.Maxn)
	bucket := uint32(d.args.Bucket)
	buf := make([]byte, 0, len(word))
	for i := 0; i < len(word); i++ {
		if word[i]&0xC0 == 0x80 {
			continue
		}
		buf = buf[:0]
		for j, n := i, 1; j < len(word) && n <= maxn; n++ {
			buf = append(buf, word[j])
			j++
			for j < len(word) && word[j]&0xC0 == 0x80 {
				buf = append(buf, word[j])
				j++
			}
			if n >= minn && !(n == 1 && (i == 0 || j == len(word))) {
				h := int32(Hash(string(buf)) % bucket)
				d.pushHash(ngrams, h)
			}
		}
	}
}

func (d *Dictionary) initNgrams() {
	for i := int32(0); i < d.size; i++ {
		e := &d.words[i]
		sub := []int32{i}
		if e.word != EOS {
			d.computeSubwords(BOW+e.word+EOW, &sub)
		}
		e.subwords = sub
	}
}

func (d *Dictionary) initTableDiscard() {
	d.pdiscard = make([]float32, d.size)
	for i := int32(0); i < d.size; i++ {
		f := float64(float32(d.words[i].count) / float32(d.ntokens))
		d.pdiscard[i] = float32(math.Sqrt(d.args.T/f) + d.args.T/f)
	}
}

// discard reports whether an occurrence of id should be dropped given a
// uniform draw r. Supervised models never subsample.
func (d *Dictionary) discard(id int32, r float64) bool {
	if d.args.Model == args.Supervised {
		return false
	}
	return r > float64(d.pdiscard[id])
}

// Threshold removes words seen fewer than t times and labels seen fewer than
// tl times. Entries are reordered words first, each group by descending
// count; equal counts keep their insertion order.
func (d *Dictionary) Threshold(t, tl int64) {
	sort.SliceStable(d.words, func(i, j int) bool {
		if d.words[i].typ != d.words[j].typ {
			return d.words[i].typ < d.words[j].typ
		}
		return d.words[i].count > d.words[j].count
	})
	kept := d.words[:0]
	for _, e := range d.words {
		if (e.typ == Word && e.count < t) || (e.typ == Label && e.count < tl) {
			continue
		}
		kept = append(kept, e)
	}
	d.words = kept
	d.rebuildIndex()
}

func (d *Dictionary) rebuildIndex() {
	d.size, d.nwords, d.nlabels = 0, 0, 0
	d.word2int = make(map[string]int32, len(d.words))
	for _, e := range d.words {
		d.word2int[e.word] = d.size
		d.size++
		if e.typ == Word {
			d.nwords++
		} else {
			d.nlabels++
		}
	}
}

// Finalize recomputes the subsampling table and subword lists. It must be
// called after the vocabulary changes.
func (d *Dictionary) Finalize() {
	d.initTableDiscard()
	d.initNgrams()
}

// ReadFrom builds the vocabulary from a whitespace tokenized corpus.
func (d *Dictionary) ReadFrom(r io.Reader) error {
	lr := NewLineReader(r)
	minThreshold := int64(1)
	for {
		w, ok := lr.ReadWord()
		if !ok {
			break
		}
		d.Add(w)
		if float64(d.size) > 0.75*MaxVocabSize {
			minThreshold++
			d.Threshold(minThreshold, minThreshold)
		}
	}
	if err := lr.Err(); err != nil {
		return err
	}
	d.Threshold(int64(d.args.MinCount), int64(d.args.MinCountLabel))
	d.Finalize()
	if d.size == 0 {
		return ErrEmptyVocabulary
	}
	return nil
}

// GetLine reads one unsupervised line into words, dropping out-of-vocabulary
// tokens and subsampling frequent ones. It returns the number of
// in-vocabulary tokens consumed. The reader is rewound first if it is at EOF.
func (d *Dictionary) GetLine(lr *LineReader, words []int32, rng *random.Rand) ([]int32, int32, error) {
	if err := lr.Rewind(); err != nil {
		return words[:0], 0, err
	}
	words = words[:0]
	var ntokens int32
	for {
		token, ok := lr.ReadWord()
		if !ok {
			break
		}
		wid := d.ID(token)
		if wid < 0 {
			continue
		}
		ntokens++
		if d.Type(wid) == Word && !d.discard(wid, rng.Uniform(0, 1)) {
			words = append(words, wid)
		}
		if ntokens > MaxLineSize || token == EOS {
			break
		}
	}
	return words, ntokens, lr.Err()
}

// GetLabeledLine reads one supervised line. Words contribute their subwords
// and hashed word n-grams; labels are returned as label indices.
func (d *Dictionary) GetLabeledLine(lr *LineReader, words, labels []int32) ([]int32, []int32, int32, error) {
	if err := lr.Rewind(); err != nil {
		return words[:0], labels[:0], 0, err
	}
	words, labels = words[:0], labels[:0]
	var wordHashes []int32
	var ntokens int32
	for {
		token, ok := lr.ReadWord()
		if !ok {
			break
		}
		typ := d.TypeOf(token)
		wid := d.ID(token)
		if wid >= 0 {
			typ = d.Type(wid)
		}
		ntokens++
		if typ == Word {
			words = d.addSubwords(words, token, wid)
			wordHashes = append(wordHashes, int32(Hash(token)))
		} else if typ == Label && wid >= 0 {
			labels = append(labels, wid-d.nwords)
		}
		if token == EOS {
			break
		}
	}
	words = d.addWordNgrams(words, wordHashes, d.args.WordNgrams)
	return words, labels, ntokens, lr.Err()
}

func (d *Dictionary) addSubwords(line []int32, token string, wid int32) []int32 {
	if wid < 0 {
		if token != EOS {
			d.computeSubwords(BOW+token+EOW, &line)
		}
		return line
	}
	if d.args.Maxn <= 0 {
		return append(line, wid)
	}
	return append(line, d.Subwords(wid)...)
}

func (d *Dictionary) addWordNgrams(line []int32, hashes []int32, n int32) []int32 {
	if d.args.Bucket <= 0 {
		return line
	}
	bucket := uint64(d.args.Bucket)
	for i := range hashes {
		h := uint64(int64(hashes[i]))
		for j := i + 1; j < len(hashes) && j < i+int(n); j++ {
			h = h*116049371 + uint64(int64(hashes[j]))
			d.pushHash(&line, int32(h%bucket))
		}
	}
	return line
}
