package fasttext

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Aleph-Alpha/wordembed/v1/fasttext/args"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext/dictionary"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext/matrix"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext/model"
	"github.com/Aleph-Alpha/wordembed/v1/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// State is the training lifecycle of an Engine.
type State int32

const (
	StateUnconfigured State = iota
	StateDictionaryBuilt
	StateMatricesInitialized
	StateTraining
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateDictionaryBuilt:
		return "dictionary_built"
	case StateMatricesInitialized:
		return "matrices_initialized"
	case StateTraining:
		return "training"
	case StateComplete:
		return "complete"
	}
	return "unknown"
}

// FileOpener opens a file for reading. It is used for model files and can be
// replaced to read from other sources.
type FileOpener func(name string) (io.ReadCloser, error)

func openFile(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

// modelState is everything a successful load or training run installs. It is
// immutable once published, except for the matrix contents during training.
type modelState struct {
	args *args.Args
	dict *dictionary.Dictionary

	input   *matrix.Dense
	output  *matrix.Dense
	qinput  *matrix.Quantized
	qoutput *matrix.Quantized
	quant   bool

	model *model.Model
}

func (s *modelState) inputMatrix() matrix.Matrix {
	if s.quant {
		return s.qinput
	}
	return s.input
}

func (s *modelState) outputMatrix() matrix.Matrix {
	if s.quant && s.args.QOut {
		return s.qoutput
	}
	return s.output
}

func (s *modelState) targetCounts() []int64 {
	if s.args.Model == args.Supervised {
		return s.dict.Counts(dictionary.Label)
	}
	return s.dict.Counts(dictionary.Word)
}

// newInferenceModel binds a model to the final matrices and prepares the
// loss tables from the dictionary counts.
func (s *modelState) newInferenceModel() {
	s.model = model.New(s.inputMatrix(), s.outputMatrix(), s.args, 0)
	s.model.SetTargetCounts(s.targetCounts())
}

// trainingRun describes the training job currently executing.
type trainingRun struct {
	args    *args.Args
	total   int64
	started time.Time
}

// Engine owns one embedding model: it loads or trains it and answers
// nearest-neighbor, sentence-vector and prediction queries.
//
// Query methods are safe for concurrent use. Training and quantization
// mutate the model and must not overlap with queries on the same Engine.
type Engine struct {
	path         string
	logger       Logger
	observer     observability.Observer
	open         FileOpener
	pollInterval time.Duration

	loadMu  sync.Mutex
	current atomic.Pointer[modelState]

	precomputeMu sync.Mutex
	wordVectors  atomic.Pointer[matrix.Dense]

	cacheSize int
	cache     atomic.Pointer[lru.Cache[string, matrix.Vector]]

	state      atomic.Int32
	tokenCount atomic.Int64
	lossBits   atomic.Uint32
	run        atomic.Pointer[trainingRun]
}

// NewEngine returns an engine for the model (or, when training, corpus) at path.
func NewEngine(path string) *Engine {
	return &Engine{
		path:         path,
		logger:       nopLogger{},
		open:         openFile,
		pollInterval: DefaultPollInterval,
		cacheSize:    DefaultVectorCacheSize,
	}
}

// NewEngineFromConfig returns an engine configured from cfg.
func NewEngineFromConfig(cfg *Config) *Engine {
	e := NewEngine(cfg.ModelPath)
	if cfg.PollInterval > 0 {
		e.pollInterval = cfg.PollInterval
	}
	e.cacheSize = cfg.VectorCacheSize
	return e
}

// WithLogger attaches a logger. A nil logger disables logging.
func (e *Engine) WithLogger(l Logger) *Engine {
	if l == nil {
		l = nopLogger{}
	}
	e.logger = l
	return e
}

// WithObserver attaches an observer notified after every operation.
func (e *Engine) WithObserver(o observability.Observer) *Engine {
	e.observer = o
	return e
}

// WithFileOpener replaces the function used to open model files.
func (e *Engine) WithFileOpener(open FileOpener) *Engine {
	e.open = open
	return e
}

// WithPollInterval sets how often training progress is checked.
func (e *Engine) WithPollInterval(d time.Duration) *Engine {
	if d > 0 {
		e.pollInterval = d
	}
	return e
}

// WithVectorCacheSize sets the word vector cache size; zero disables it.
func (e *Engine) WithVectorCacheSize(n int) *Engine {
	e.cacheSize = n
	return e
}

// Path returns the model or corpus path the engine was created with.
func (e *Engine) Path() string { return e.path }

// Loaded reports whether a model is available for queries.
func (e *Engine) Loaded() bool { return e.current.Load() != nil }

// State returns the training lifecycle state.
func (e *Engine) State() State { return State(e.state.Load()) }

// Args returns a copy of the parameters of the loaded model.
func (e *Engine) Args() (*args.Args, error) {
	st := e.current.Load()
	if st == nil {
		return nil, ErrNotLoaded
	}
	return st.args.Clone(), nil
}

// Dimension returns the embedding dimension of the loaded model.
func (e *Engine) Dimension() int {
	if st := e.current.Load(); st != nil {
		return int(st.args.Dim)
	}
	return 0
}

// install publishes a fully built model and drops derived caches.
func (e *Engine) install(st *modelState) {
	e.precomputeMu.Lock()
	e.wordVectors.Store(nil)
	e.precomputeMu.Unlock()
	e.cache.Store(nil)
	e.current.Store(st)
}

func (e *Engine) vectorCache() *lru.Cache[string, matrix.Vector] {
	if e.cacheSize <= 0 {
		return nil
	}
	if c := e.cache.Load(); c != nil {
		return c
	}
	c, err := lru.New[string, matrix.Vector](e.cacheSize)
	if err != nil {
		return nil
	}
	if e.cache.CompareAndSwap(nil, c) {
		return c
	}
	return e.cache.Load()
}

func (e *Engine) observeOperation(operation, subResource string, start time.Time, err error, size int64, metadata map[string]interface{}) {
	if e.observer == nil {
		return
	}
	e.observer.ObserveOperation(observability.OperationContext{
		Component:   "fasttext",
		Operation:   operation,
		Resource:    e.path,
		SubResource: subResource,
		Duration:    time.Since(start),
		Error:       err,
		Size:        size,
		Metadata:    metadata,
	})
}
