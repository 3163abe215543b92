package fasttext

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/Aleph-Alpha/wordembed/v1/fasttext/args"
	"github.com/Aleph-Alpha/wordembed/v1/observability"
	"github.com/Aleph-Alpha/wordembed/v1/tracer"
)

// SpanTracer starts and annotates the client spans. *tracer.Tracer
// implements it.
type SpanTracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, trace.Span)
	RecordErrorOnSpan(span trace.Span, err error)
	SetAttributes(span trace.Span, attrs map[string]interface{})
}

// Result carries the outcome of an asynchronous call: either Value or Err,
// never both.
type Result[T any] struct {
	Value T
	Err   error
}

// Client is the application facing entrypoint to an Engine.
//
// Every operation exists in a blocking form and an Async form. Async calls
// run on their own goroutine and deliver exactly one Result on the returned
// channel, which is then closed.
type Client struct {
	engine *Engine
	cfg    *Config
	logger ContextLogger
	tracer SpanTracer
}

// NewClient validates cfg and constructs a Client. The model is loaded
// lazily on the first query unless Load is called.
func NewClient(cfg *Config, logger Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOption, err)
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &Client{
		engine: NewEngineFromConfig(cfg).WithLogger(logger),
		cfg:    cfg,
		logger: withContext(logger),
		tracer: tracer.Global(),
	}, nil
}

// WithObserver attaches an observer to the underlying engine.
func (c *Client) WithObserver(o observability.Observer) *Client {
	c.engine.WithObserver(o)
	return c
}

// WithTracer replaces the tracer used for client spans. Without one, spans
// go to the globally installed provider.
func (c *Client) WithTracer(t SpanTracer) *Client {
	if t != nil {
		c.tracer = t
	}
	return c
}

// Engine exposes the underlying engine for operations without a client
// wrapper, such as SaveVectors or WordVectors.
func (c *Client) Engine() *Engine { return c.engine }

// Load reads the model file if it has not been loaded yet.
func (c *Client) Load(ctx context.Context) error {
	ctx, span := c.startSpan(ctx, "load", nil)
	defer span.End()
	return c.endSpan(ctx, span, "load", run(ctx, c.engine.LoadModel))
}

// Nn returns the k nearest neighbors of word, best first.
func (c *Client) Nn(ctx context.Context, word string, k int) ([]Prediction, error) {
	ctx, span := c.startSpan(ctx, "nn", map[string]interface{}{"word": word, "k": k})
	defer span.End()

	var res []Prediction
	err := run(ctx, func() (err error) {
		res, err = c.engine.NN(word, k)
		return err
	})
	c.tracer.SetAttributes(span, map[string]interface{}{"results": len(res)})
	return res, c.endSpan(ctx, span, "nn", err)
}

// NnAsync is the asynchronous form of Nn.
func (c *Client) NnAsync(ctx context.Context, word string, k int) <-chan Result[[]Prediction] {
	return async(func() ([]Prediction, error) { return c.Nn(ctx, word, k) })
}

// Analogy returns the k nearest neighbors of a - b + c.
func (c *Client) Analogy(ctx context.Context, a, b, cc string, k int) ([]Prediction, error) {
	ctx, span := c.startSpan(ctx, "analogy", map[string]interface{}{"k": k})
	defer span.End()

	var res []Prediction
	err := run(ctx, func() (err error) {
		res, err = c.engine.Analogy(a, b, cc, k)
		return err
	})
	return res, c.endSpan(ctx, span, "analogy", err)
}

// SentenceVector returns the embedding of text.
func (c *Client) SentenceVector(ctx context.Context, text string) ([]float64, error) {
	ctx, span := c.startSpan(ctx, "sentence_vector", map[string]interface{}{"text_length": len(text)})
	defer span.End()

	var vec []float64
	err := run(ctx, func() (err error) {
		vec, err = c.engine.SentenceVector(text)
		return err
	})
	return vec, c.endSpan(ctx, span, "sentence_vector", err)
}

// SentenceVectorAsync is the asynchronous form of SentenceVector.
func (c *Client) SentenceVectorAsync(ctx context.Context, text string) <-chan Result[[]float64] {
	return async(func() ([]float64, error) { return c.SentenceVector(ctx, text) })
}

// Predict returns the k most likely labels of sentence for supervised models.
func (c *Client) Predict(ctx context.Context, sentence string, k int) ([]Prediction, error) {
	ctx, span := c.startSpan(ctx, "predict", map[string]interface{}{"k": k})
	defer span.End()

	var res []Prediction
	err := run(ctx, func() (err error) {
		res, err = c.engine.Predict(sentence, k)
		return err
	})
	return res, c.endSpan(ctx, span, "predict", err)
}

// PredictAsync is the asynchronous form of Predict.
func (c *Client) PredictAsync(ctx context.Context, sentence string, k int) <-chan Result[[]Prediction] {
	return async(func() ([]Prediction, error) { return c.Predict(ctx, sentence, k) })
}

// Train trains a model on the configured corpus. Canceling ctx stops
// training.
func (c *Client) Train(ctx context.Context, opts map[string]string) error {
	ctx, span := c.startSpan(ctx, "train", map[string]interface{}{"command": opts[args.CommandKey]})
	defer span.End()

	c.logger.InfoWithContext(ctx, "training requested", nil, map[string]interface{}{
		"command": opts[args.CommandKey],
		"input":   opts["input"],
	})
	err := guard(func() error { return c.engine.Train(ctx, opts) })
	p := c.engine.Progress()
	c.tracer.SetAttributes(span, map[string]interface{}{
		"state":  p.State.String(),
		"tokens": p.Tokens,
	})
	return c.endSpan(ctx, span, "train", err)
}

// TrainAsync is the asynchronous form of Train. The Result value is always
// the final progress snapshot.
func (c *Client) TrainAsync(ctx context.Context, opts map[string]string) <-chan Result[Progress] {
	return async(func() (Progress, error) {
		if err := c.Train(ctx, opts); err != nil {
			return Progress{}, err
		}
		return c.engine.Progress(), nil
	})
}

// Quantize compresses a loaded supervised model.
func (c *Client) Quantize(ctx context.Context, opts QuantizeOptions) error {
	ctx, span := c.startSpan(ctx, "quantize", map[string]interface{}{"dsub": opts.DSub})
	defer span.End()
	return c.endSpan(ctx, span, "quantize", run(ctx, func() error { return c.engine.Quantize(opts) }))
}

// Close releases cached state. The engine must not be used afterwards.
func (c *Client) Close() error {
	c.engine.cache.Store(nil)
	c.logger.Debug("fasttext client closed", nil, map[string]interface{}{"path": c.engine.Path()})
	return nil
}

func (c *Client) startSpan(ctx context.Context, op string, attrs map[string]interface{}) (context.Context, trace.Span) {
	ctx, span := c.tracer.StartSpan(ctx, "fasttext."+op)
	c.tracer.SetAttributes(span, map[string]interface{}{"fasttext.model_path": c.engine.Path()})
	c.tracer.SetAttributes(span, attrs)
	return ctx, span
}

// endSpan records err on span and logs the outcome with the span's trace ids.
func (c *Client) endSpan(ctx context.Context, span trace.Span, op string, err error) error {
	c.tracer.RecordErrorOnSpan(span, err)
	fields := map[string]interface{}{"operation": op, "path": c.engine.Path()}
	switch {
	case err == nil:
		c.logger.DebugWithContext(ctx, "fasttext operation finished", nil, fields)
	case errors.Is(err, ErrInternal):
		c.logger.ErrorWithContext(ctx, "fasttext operation failed", err, fields)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrTrainingCanceled):
		c.logger.WarnWithContext(ctx, "fasttext operation canceled", err, fields)
	}
	return err
}

// run executes fn unless ctx is already done.
func run(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return guard(fn)
}

// guard returns a panic in fn as an ErrInternal error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()
	return fn()
}

func async[T any](fn func() (T, error)) <-chan Result[T] {
	ch := make(chan Result[T], 1)
	go func() {
		defer close(ch)
		var v T
		err := guard(func() (err error) {
			v, err = fn()
			return err
		})
		if err != nil {
			var zero T
			ch <- Result[T]{Value: zero, Err: err}
			return
		}
		ch <- Result[T]{Value: v}
	}()
	return ch
}
