package dictionary

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
)

// ErrCorrupt is returned when a serialized dictionary is inconsistent.
var ErrCorrupt = errors.New("corrupt dictionary")

// loadChunk caps the up-front allocation when loading.
const loadChunk = 1 << 16

type header struct {
	Size         int32
	Nwords       int32
	Nlabels      int32
	Ntokens      int64
	PruneIdxSize int64
}

// Save writes the dictionary block of a model file: counts, one
// NUL-terminated entry per token with its count and type, then the pruning
// index pairs.
func (d *Dictionary) Save(w io.Writer) error {
	h := header{d.size, d.nwords, d.nlabels, d.ntokens, d.pruneIdxSize}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return err
	}
	for _, e := range d.words {
		if _, err := io.WriteString(w, e.word); err != nil {
			return err
		}
		if _, err := w.Write([]byte{0}); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, e.count); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, int8(e.typ)); err != nil {
			return err
		}
	}
	keys := make([]int32, 0, len(d.pruneIdx))
	for k := range d.pruneIdx {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		if err := binary.Write(w, binary.LittleEndian, [2]int32{k, d.pruneIdx[k]}); err != nil {
			return err
		}
	}
	return nil
}

// Load replaces the content of d with a dictionary read from r and rebuilds
// the derived tables.
func (d *Dictionary) Load(r *bufio.Reader) error {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return err
	}
	if h.Size < 0 || h.Nwords < 0 || h.Nlabels < 0 || h.Nwords+h.Nlabels != h.Size || h.Size > MaxVocabSize {
		return fmt.Errorf("%w: size=%d nwords=%d nlabels=%d", ErrCorrupt, h.Size, h.Nwords, h.Nlabels)
	}
	if h.PruneIdxSize > int64(MaxVocabSize)*16 {
		return fmt.Errorf("%w: prune index size %d", ErrCorrupt, h.PruneIdxSize)
	}

	// The header is untrusted: grow with the entries actually read.
	hint := min(h.Size, loadChunk)
	words := make([]entry, 0, hint)
	word2int := make(map[string]int32, hint)
	for i := int32(0); i < h.Size; i++ {
		raw, err := r.ReadBytes(0)
		if err != nil {
			return err
		}
		var e entry
		e.word = string(raw[:len(raw)-1])
		if err := binary.Read(r, binary.LittleEndian, &e.count); err != nil {
			return err
		}
		var typ int8
		if err := binary.Read(r, binary.LittleEndian, &typ); err != nil {
			return err
		}
		e.typ = EntryType(typ)
		words = append(words, e)
		word2int[e.word] = i
	}

	pruneIdx := make(map[int32]int32)
	for i := int64(0); i < h.PruneIdxSize; i++ {
		var pair [2]int32
		if err := binary.Read(r, binary.LittleEndian, &pair); err != nil {
			return err
		}
		if pair[1] < 0 {
			return fmt.Errorf("%w: prune index maps %d to %d", ErrCorrupt, pair[0], pair[1])
		}
		pruneIdx[pair[0]] = pair[1]
	}

	d.words, d.word2int, d.pruneIdx = words, word2int, pruneIdx
	d.size, d.nwords, d.nlabels = h.Size, h.Nwords, h.Nlabels
	d.ntokens, d.pruneIdxSize = h.Ntokens, h.PruneIdxSize
	d.Finalize()
	return nil
}
