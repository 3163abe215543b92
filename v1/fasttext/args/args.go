// Package args holds the hyper-parameters of an embedding model, their
// defaults, option parsing, and the binary header block stored in model files.
package args

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ModelName selects the training objective.
type ModelName int32

const (
	CBOW       ModelName = 1
	SkipGram   ModelName = 2
	Supervised ModelName = 3
)

func (m ModelName) String() string {
	switch m {
	case CBOW:
		return "cbow"
	case SkipGram:
		return "skipgram"
	case Supervised:
		return "supervised"
	}
	return fmt.Sprintf("model(%d)", int32(m))
}

// LossName selects the output layer loss.
type LossName int32

const (
	HierarchicalSoftmax LossName = 1
	NegativeSampling    LossName = 2
	Softmax             LossName = 3
)

func (l LossName) String() string {
	switch l {
	case HierarchicalSoftmax:
		return "hs"
	case NegativeSampling:
		return "ns"
	case Softmax:
		return "softmax"
	}
	return fmt.Sprintf("loss(%d)", int32(l))
}

// Args is the full set of training and model parameters. Only the fields
// written by Save survive a round trip through a model file; the rest fall
// back to their defaults on load.
type Args struct {
	Input             string
	Output            string
	PretrainedVectors string

	LR            float64
	LRUpdateRate  int32
	Dim           int32
	WS            int32
	Epoch         int32
	MinCount      int32
	MinCountLabel int32
	Neg           int32
	WordNgrams    int32
	Loss          LossName
	Model         ModelName
	Bucket        int32
	Minn          int32
	Maxn          int32
	Thread        int32
	T             float64
	Label         string
	Verbose       int32
	SaveOutput    bool

	QOut    bool
	QNorm   bool
	Retrain bool
	Cutoff  int32
	DSub    int32
}

// Default returns the parameter set of an unsupervised skip-gram model.
func Default() *Args {
	return &Args{
		LR:            0.05,
		LRUpdateRate:  100,
		Dim:           100,
		WS:            5,
		Epoch:         5,
		MinCount:      5,
		MinCountLabel: 0,
		Neg:           5,
		WordNgrams:    1,
		Loss:          NegativeSampling,
		Model:         SkipGram,
		Bucket:        2000000,
		Minn:          3,
		Maxn:          6,
		Thread:        12,
		T:             1e-4,
		Label:         "__label__",
		Verbose:       2,
		DSub:          2,
	}
}

// Clone returns a copy that can be modified independently.
func (a *Args) Clone() *Args {
	c := *a
	return &c
}

// Save writes the persisted subset of the parameters: twelve little-endian
// int32 values followed by the subsampling threshold as a float64.
func (a *Args) Save(w io.Writer) error {
	fields := []int32{
		a.Dim, a.WS, a.Epoch, a.MinCount, a.Neg, a.WordNgrams,
		int32(a.Loss), int32(a.Model), a.Bucket, a.Minn, a.Maxn, a.LRUpdateRate,
	}
	if err := binary.Write(w, binary.LittleEndian, fields); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, a.T)
}

// Load reads the block written by Save into a.
func (a *Args) Load(r io.Reader) error {
	var fields [12]int32
	if err := binary.Read(r, binary.LittleEndian, &fields); err != nil {
		return err
	}
	var t float64
	if err := binary.Read(r, binary.LittleEndian, &t); err != nil {
		return err
	}
	a.Dim, a.WS, a.Epoch, a.MinCount, a.Neg, a.WordNgrams = fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]
	a.Loss, a.Model = LossName(fields[6]), ModelName(fields[7])
	a.Bucket, a.Minn, a.Maxn, a.LRUpdateRate = fields[8], fields[9], fields[10], fields[11]
	a.T = t
	return a.validateLoaded()
}

func (a *Args) validateLoaded() error {
	if a.Dim <= 0 {
		return fmt.Errorf("%w: dim %d", ErrInvalidValue, a.Dim)
	}
	if a.Model < CBOW || a.Model > Supervised {
		return fmt.Errorf("%w: model %d", ErrInvalidValue, int32(a.Model))
	}
	if a.Loss < HierarchicalSoftmax || a.Loss > Softmax {
		return fmt.Errorf("%w: loss %d", ErrInvalidValue, int32(a.Loss))
	}
	if a.Bucket < 0 {
		return fmt.Errorf("%w: bucket %d", ErrInvalidValue, a.Bucket)
	}
	return nil
}
