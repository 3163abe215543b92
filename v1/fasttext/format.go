package fasttext

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Aleph-Alpha/wordembed/v1/fasttext/args"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext/dictionary"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext/matrix"
)

const (
	fileMagic   int32 = 793712314
	fileVersion int32 = 12
)

// LoadModel reads the model file once. Later calls return immediately, also
// when called concurrently. On failure nothing is installed and a later call
// tries again.
func (e *Engine) LoadModel() error {
	if e.current.Load() != nil {
		return nil
	}
	e.loadMu.Lock()
	defer e.loadMu.Unlock()
	if e.current.Load() != nil {
		return nil
	}

	start := time.Now()
	e.logger.Info("loading model", nil, map[string]interface{}{"path": e.path})

	st, err := e.readModelFile()
	if err != nil {
		e.logger.Error("failed to load model", err, map[string]interface{}{"path": e.path})
		e.observeOperation("load", "", start, err, 0, nil)
		return err
	}
	e.install(st)

	e.logger.Info("model loaded", nil, map[string]interface{}{
		"path":      e.path,
		"dim":       st.args.Dim,
		"model":     st.args.Model.String(),
		"nwords":    st.dict.Nwords(),
		"nlabels":   st.dict.Nlabels(),
		"quantized": st.quant,
	})
	e.observeOperation("load", "", start, nil, int64(st.dict.Size()), nil)
	return nil
}

func (e *Engine) readModelFile() (*modelState, error) {
	f, err := e.open(e.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelOpen, e.path, err)
	}
	defer f.Close()
	return readModel(bufio.NewReader(f))
}

func checkModel(r io.Reader) bool {
	var header [2]int32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return false
	}
	return header[0] == fileMagic && header[1] == fileVersion
}

func corrupt(what string, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: reading %s: %v", ErrCorruptModel, what, err)
}

// readModel decodes a complete model file body after validating the header.
func readModel(r *bufio.Reader) (*modelState, error) {
	if !checkModel(r) {
		return nil, ErrWrongFormat
	}

	a := args.Default()
	if err := a.Load(r); err != nil {
		return nil, corrupt("args", err)
	}
	st := &modelState{args: a, dict: dictionary.New(a)}
	if err := st.dict.Load(r); err != nil {
		return nil, corrupt("dictionary", err)
	}

	quantInput, err := matrix.ReadBool(r)
	if err != nil {
		return nil, corrupt("input flag", err)
	}
	st.quant = quantInput
	if quantInput {
		st.qinput = &matrix.Quantized{}
		err = st.qinput.Load(r)
	} else {
		st.input = &matrix.Dense{}
		err = st.input.Load(r)
	}
	if err != nil {
		return nil, corrupt("input matrix", err)
	}

	if a.QOut, err = matrix.ReadBool(r); err != nil {
		return nil, corrupt("output flag", err)
	}
	if st.quant && a.QOut {
		st.qoutput = &matrix.Quantized{}
		err = st.qoutput.Load(r)
	} else {
		st.output = &matrix.Dense{}
		err = st.output.Load(r)
	}
	if err != nil {
		return nil, corrupt("output matrix", err)
	}

	if err := st.validateShapes(); err != nil {
		return nil, err
	}
	st.newInferenceModel()
	return st, nil
}

func (s *modelState) validateShapes() error {
	dim := int64(s.args.Dim)
	in, out := s.inputMatrix(), s.outputMatrix()
	if in.Cols() != dim || out.Cols() != dim {
		return fmt.Errorf("%w: matrix width %d/%d, expected %d", ErrCorruptModel, in.Cols(), out.Cols(), dim)
	}
	if s.args.Model == args.Supervised && s.dict.Nlabels() == 0 {
		return fmt.Errorf("%w: supervised model without labels", ErrCorruptModel)
	}
	if want := int64(s.dict.Nwords()) + s.dict.SubwordRows(); in.Rows() < want {
		return fmt.Errorf("%w: input matrix has %d rows, expected at least %d", ErrCorruptModel, in.Rows(), want)
	}
	if want := int64(len(s.targetCounts())); out.Rows() != want {
		return fmt.Errorf("%w: output matrix has %d rows, expected %d", ErrCorruptModel, out.Rows(), want)
	}
	return nil
}

func writeModel(w io.Writer, st *modelState) error {
	if err := binary.Write(w, binary.LittleEndian, [2]int32{fileMagic, fileVersion}); err != nil {
		return err
	}
	if err := st.args.Save(w); err != nil {
		return err
	}
	if err := st.dict.Save(w); err != nil {
		return err
	}
	if err := matrix.WriteBool(w, st.quant); err != nil {
		return err
	}
	var err error
	if st.quant {
		err = st.qinput.Save(w)
	} else {
		err = st.input.Save(w)
	}
	if err != nil {
		return err
	}
	if err := matrix.WriteBool(w, st.args.QOut); err != nil {
		return err
	}
	if st.quant && st.args.QOut {
		return st.qoutput.Save(w)
	}
	return st.output.Save(w)
}

// SaveModel writes the current model to path in the binary model format.
func (e *Engine) SaveModel(path string) (err error) {
	st := e.current.Load()
	if st == nil {
		return ErrNotLoaded
	}
	start := time.Now()
	defer func() { e.observeOperation("save", path, start, err, 0, nil) }()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrModelWrite, path, err)
	}
	bw := bufio.NewWriter(f)
	if err := writeModel(bw, st); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %v", ErrModelWrite, path, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %v", ErrModelWrite, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrModelWrite, path, err)
	}
	e.logger.Info("model saved", nil, map[string]interface{}{"path": path})
	return nil
}
