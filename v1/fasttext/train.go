package fasttext

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/Aleph-Alpha/wordembed/v1/fasttext/args"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext/dictionary"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext/matrix"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext/model"
	"github.com/Aleph-Alpha/wordembed/v1/observability"
	"golang.org/x/sync/errgroup"
)

// Progress is a snapshot of the current or last training run.
type Progress struct {
	State        State
	Tokens       int64
	TotalTokens  int64
	Progress     float64
	Loss         float64
	LearningRate float64
}

// Train builds a model from the corpus described by opts. Option keys are
// the training parameter names without the leading dash ("dim", "epoch",
// "lr", ...) plus "command" to select skipgram, cbow or supervised. The
// corpus defaults to the engine path. When "output" is set the model is also
// written to <output>.bin and the word vectors to <output>.vec.
//
// An Engine trains at most once and cannot train after loading a model.
// Canceling ctx stops the workers at their next synchronization point.
func (e *Engine) Train(ctx context.Context, opts map[string]string) (err error) {
	e.loadMu.Lock()
	defer e.loadMu.Unlock()

	start := time.Now()
	defer func() {
		e.observeOperation("train", "", start, err, e.tokenCount.Load(), map[string]interface{}{"state": e.State().String()})
	}()

	if e.current.Load() != nil || e.State() != StateUnconfigured {
		return ErrAlreadyInitialized
	}

	options := make(map[string]string, len(opts)+1)
	for k, v := range opts {
		options[k] = v
	}
	if options["input"] == "" {
		options["input"] = e.path
	}
	a, err := args.ParseOptions(options)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	if a.Input == "-" {
		return ErrStdinUnsupported
	}

	e.logger.Info("building dictionary", nil, map[string]interface{}{"input": a.Input, "model": a.Model.String()})
	dict := dictionary.New(a)
	if err := readDictionary(a.Input, dict); err != nil {
		return err
	}
	if a.Model == args.Supervised && dict.Nlabels() == 0 {
		return fmt.Errorf("%w: %s (labels need the %q prefix)", ErrNoLabels, a.Input, a.Label)
	}
	e.state.Store(int32(StateDictionaryBuilt))
	e.logger.Info("dictionary built", nil, map[string]interface{}{
		"nwords":  dict.Nwords(),
		"nlabels": dict.Nlabels(),
		"ntokens": dict.Ntokens(),
	})

	var input *matrix.Dense
	if a.PretrainedVectors != "" {
		if input, err = loadPretrained(a.PretrainedVectors, a, dict); err != nil {
			return err
		}
	} else {
		input = matrix.NewDense(int64(dict.Nwords())+int64(a.Bucket), int64(a.Dim))
		input.Uniform(1 / float32(a.Dim))
	}
	outRows := int64(dict.Nwords())
	if a.Model == args.Supervised {
		outRows = int64(dict.Nlabels())
	}
	output := matrix.NewDense(outRows, int64(a.Dim))
	e.state.Store(int32(StateMatricesInitialized))

	st := &modelState{args: a, dict: dict, input: input, output: output}
	if err := e.startThreads(ctx, st); err != nil {
		return err
	}

	st.newInferenceModel()
	e.install(st)
	e.state.Store(int32(StateComplete))
	e.logger.Info("training finished", nil, map[string]interface{}{
		"tokens":      e.tokenCount.Load(),
		"loss":        e.loss(),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if a.Output != "" {
		if err := e.SaveModel(a.Output + ".bin"); err != nil {
			return err
		}
		if err := e.SaveVectors(a.Output + ".vec"); err != nil {
			return err
		}
	}
	return nil
}

func readDictionary(path string, dict *dictionary.Dictionary) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorpusOpen, path, err)
	}
	defer f.Close()
	if err := dict.ReadFrom(f); err != nil {
		return fmt.Errorf("fasttext: building dictionary from %s: %w", path, err)
	}
	return nil
}

func (e *Engine) storeLoss(l float32) { e.lossBits.Store(math.Float32bits(l)) }

func (e *Engine) loss() float32 { return math.Float32frombits(e.lossBits.Load()) }

// Progress returns a snapshot of the training run.
func (e *Engine) Progress() Progress {
	p := Progress{State: e.State(), Tokens: e.tokenCount.Load(), Loss: float64(e.loss())}
	if run := e.run.Load(); run != nil && run.total > 0 {
		p.TotalTokens = run.total
		p.Progress = min(1, float64(p.Tokens)/float64(run.total))
		p.LearningRate = run.args.LR * (1 - p.Progress)
	}
	return p
}

func (e *Engine) reportProgress() {
	run := e.run.Load()
	if run == nil {
		return
	}
	p := e.Progress()
	var wst float64
	if elapsed := time.Since(run.started).Seconds(); elapsed > 0 {
		wst = float64(p.Tokens) / elapsed / float64(run.args.Thread)
	}
	e.logger.Debug("training progress", nil, map[string]interface{}{
		"progress":                 p.Progress,
		"loss":                     p.Loss,
		"lr":                       p.LearningRate,
		"words_per_sec_per_thread": wst,
	})
	if po, ok := e.observer.(observability.ProgressObserver); ok {
		po.ObserveProgress(observability.TrainingProgress{
			Component:               "fasttext",
			Resource:                e.path,
			Progress:                p.Progress,
			Tokens:                  p.Tokens,
			Loss:                    p.Loss,
			LearningRate:            p.LearningRate,
			WordsPerSecondPerThread: wst,
		})
	}
}

// startThreads runs the training workers and blocks until the token budget
// is consumed, a worker fails, or ctx ends.
func (e *Engine) startThreads(ctx context.Context, st *modelState) error {
	a := st.args
	total := int64(a.Epoch) * st.dict.Ntokens()
	info, err := os.Stat(a.Input)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorpusOpen, a.Input, err)
	}

	e.tokenCount.Store(0)
	e.storeLoss(-1)
	e.run.Store(&trainingRun{args: a, total: total, started: time.Now()})
	e.state.Store(int32(StateTraining))
	e.logger.Info("training started", nil, map[string]interface{}{
		"threads":      a.Thread,
		"epochs":       a.Epoch,
		"total_tokens": total,
	})

	g, gctx := errgroup.WithContext(ctx)
	for i := int32(0); i < a.Thread; i++ {
		threadID := i
		g.Go(func() error {
			return guard(func() error {
				return e.trainThread(gctx, st, threadID, info.Size(), total)
			})
		})
	}

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()
poll:
	for e.tokenCount.Load() < total {
		select {
		case <-gctx.Done():
			break poll
		case <-ticker.C:
			e.reportProgress()
		}
	}

	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrTrainingCanceled, ctx.Err())
		}
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrTrainingCanceled, err)
	}
	e.reportProgress()
	return nil
}

// worker is the per-thread training state.
type worker struct {
	model *model.Model
	dict  *dictionary.Dictionary
	args  *args.Args
	bow   []int32
}

func (w *worker) supervised(lr float32, line, labels []int32) {
	if len(labels) == 0 || len(line) == 0 {
		return
	}
	i := w.model.Rand().Intn(0, int64(len(labels)-1))
	w.model.Update(line, labels[i], lr)
}

func (w *worker) cbow(lr float32, line, _ []int32) {
	for pos := range line {
		boundary := int(w.model.Rand().Intn(1, int64(w.args.WS)))
		w.bow = w.bow[:0]
		for c := -boundary; c <= boundary; c++ {
			if c != 0 && pos+c >= 0 && pos+c < len(line) {
				w.bow = append(w.bow, w.dict.Subwords(line[pos+c])...)
			}
		}
		w.model.Update(w.bow, line[pos], lr)
	}
}

func (w *worker) skipgram(lr float32, line, _ []int32) {
	for pos := range line {
		boundary := int(w.model.Rand().Intn(1, int64(w.args.WS)))
		ngrams := w.dict.Subwords(line[pos])
		for c := -boundary; c <= boundary; c++ {
			if c != 0 && pos+c >= 0 && pos+c < len(line) {
				w.model.Update(ngrams, line[pos+c], lr)
			}
		}
	}
}

// trainThread streams the shard of the corpus starting at
// threadID*size/threads, wrapping around at the end of the file, until the
// shared token budget is used up.
func (e *Engine) trainThread(ctx context.Context, st *modelState, threadID int32, size, total int64) error {
	a := st.args
	f, err := os.Open(a.Input)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorpusOpen, a.Input, err)
	}
	defer f.Close()
	if _, err := f.Seek(int64(threadID)*size/int64(a.Thread), io.SeekStart); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorpusOpen, a.Input, err)
	}
	reader := dictionary.NewLineReader(f)

	m := model.New(st.input, st.output, a, threadID)
	m.SetTargetCounts(st.targetCounts())
	w := &worker{model: m, dict: st.dict, args: a}

	var step func(lr float32, line, labels []int32)
	switch a.Model {
	case args.Supervised:
		step = w.supervised
	case args.CBOW:
		step = w.cbow
	default:
		step = w.skipgram
	}

	var (
		line, labels []int32
		ntokens      int32
		localTokens  int64
	)
	for iter := 0; e.tokenCount.Load() < total; iter++ {
		progress := float64(e.tokenCount.Load()) / float64(total)
		lr := float32(a.LR * (1 - progress))
		if a.Model == args.Supervised {
			line, labels, ntokens, err = st.dict.GetLabeledLine(reader, line, labels)
		} else {
			line, ntokens, err = st.dict.GetLine(reader, line, m.Rand())
		}
		if err != nil {
			return fmt.Errorf("fasttext: reading %s: %w", a.Input, err)
		}
		localTokens += int64(ntokens)
		step(lr, line, labels)

		if localTokens > int64(a.LRUpdateRate) {
			e.tokenCount.Add(localTokens)
			localTokens = 0
			if threadID == 0 {
				e.storeLoss(m.Loss())
			}
		}
		if iter&1023 == 0 || localTokens == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}
