package fasttext

import (
	"math"
	"strings"
	"time"

	"github.com/Aleph-Alpha/wordembed/v1/fasttext/args"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext/dictionary"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext/matrix"
)

// Predict returns the k most likely labels of sentence, best first. A line
// without known words yields an empty result.
func (e *Engine) Predict(sentence string, k int) (results []Prediction, err error) {
	start := time.Now()
	defer func() {
		e.observeOperation("predict", "", start, err, int64(len(results)), map[string]interface{}{"k": k})
	}()

	if err := e.LoadModel(); err != nil {
		return nil, err
	}
	st := e.current.Load()
	if st.args.Model != args.Supervised {
		return nil, ErrNotSupervised
	}

	lr := dictionary.NewLineReader(strings.NewReader(sentence))
	words, _, _, err := st.dict.GetLabeledLine(lr, nil, nil)
	if err != nil {
		return nil, err
	}
	results = []Prediction{}
	if len(words) == 0 || k <= 0 {
		return results, nil
	}

	hidden := matrix.NewVector(int(st.args.Dim))
	output := matrix.NewVector(int(st.model.OutputSize()))
	for _, p := range st.model.Predict(words, int32(k), hidden, output) {
		label, ok := st.dict.Label(p.ID)
		if !ok {
			continue
		}
		results = append(results, Prediction{Label: label, Value: math.Exp(float64(p.LogProb))})
	}
	return results, nil
}
