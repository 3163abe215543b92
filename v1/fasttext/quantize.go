package fasttext

import (
	"fmt"
	"time"

	"github.com/Aleph-Alpha/wordembed/v1/fasttext/args"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext/matrix"
)

// QuantizeOptions controls product quantization of a supervised model.
type QuantizeOptions struct {
	// DSub is the sub-vector size of the input quantizer. Defaults to 2.
	DSub int32
	// QNorm quantizes row norms separately.
	QNorm bool
	// QOut also quantizes the output matrix (sub-vector size 2).
	QOut bool
}

// Quantize compresses the input matrix, and optionally the output matrix,
// of a loaded supervised model. Every quantized matrix needs at least 256
// rows. The engine keeps answering queries from the quantized matrices; use
// SaveModel to persist them.
func (e *Engine) Quantize(opts QuantizeOptions) (err error) {
	if err := e.LoadModel(); err != nil {
		return err
	}
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	start := time.Now()
	defer func() { e.observeOperation("quantize", "", start, err, 0, nil) }()

	st := e.current.Load()
	if st.args.Model != args.Supervised {
		return ErrNotSupervised
	}
	if st.quant {
		return ErrAlreadyQuantized
	}
	if opts.DSub <= 0 {
		opts.DSub = 2
	}

	a := st.args.Clone()
	a.DSub, a.QNorm, a.QOut = opts.DSub, opts.QNorm, opts.QOut

	qinput, err := matrix.NewQuantized(st.input, a.DSub, a.QNorm)
	if err != nil {
		return fmt.Errorf("fasttext: quantizing input matrix: %w", err)
	}
	next := &modelState{args: a, dict: st.dict, qinput: qinput, output: st.output, quant: true}
	if a.QOut {
		if next.qoutput, err = matrix.NewQuantized(st.output, 2, a.QNorm); err != nil {
			return fmt.Errorf("fasttext: quantizing output matrix: %w", err)
		}
	}
	next.newInferenceModel()
	e.install(next)

	e.logger.Info("model quantized", nil, map[string]interface{}{
		"dsub":  a.DSub,
		"qnorm": a.QNorm,
		"qout":  a.QOut,
	})
	return nil
}
