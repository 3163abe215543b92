package fasttext

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Aleph-Alpha/wordembed/v1/logger"
	"github.com/Aleph-Alpha/wordembed/v1/observability"
	"github.com/Aleph-Alpha/wordembed/v1/tracer"
)

func newTestClient(t *testing.T, path string) *Client {
	t.Helper()
	c, err := NewClient(&Config{ModelPath: path, VectorCacheSize: DefaultVectorCacheSize}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewClientRejectsInvalidConfig(t *testing.T) {
	_, err := NewClient(&Config{}, nil)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestClientNnAsync(t *testing.T) {
	c := newTestClient(t, animalsModel(t))

	ch := c.NnAsync(context.Background(), "cat", 1)
	res, ok := <-ch
	require.True(t, ok)
	require.NoError(t, res.Err)
	require.Len(t, res.Value, 1)
	assert.Equal(t, "dog", res.Value[0].Label)

	_, open := <-ch
	assert.False(t, open, "exactly one result is delivered")
}

func TestClientAsyncDeliversErrorWithoutValue(t *testing.T) {
	c := newTestClient(t, filepath.Join(t.TempDir(), "missing.bin"))

	res := <-c.SentenceVectorAsync(context.Background(), "hello")
	assert.ErrorIs(t, res.Err, ErrModelOpen)
	assert.Nil(t, res.Value)

	pred := <-c.PredictAsync(context.Background(), "hello", 1)
	assert.ErrorIs(t, pred.Err, ErrModelOpen)
	assert.Nil(t, pred.Value)
}

func TestClientSentenceVectorAsync(t *testing.T) {
	c := newTestClient(t, animalsModel(t))

	res := <-c.SentenceVectorAsync(context.Background(), "")
	require.NoError(t, res.Err)
	assert.Equal(t, []float64{0, 0}, res.Value)
}

func TestClientPredictAsync(t *testing.T) {
	c := newTestClient(t, sentimentModel(t))

	res := <-c.PredictAsync(context.Background(), "good", 1)
	require.NoError(t, res.Err)
	require.Len(t, res.Value, 1)
	assert.Equal(t, "__label__pos", res.Value[0].Label)
}

func TestClientTrainAsync(t *testing.T) {
	corpus := writeCorpus(t, []string{"red green blue", "green blue red"}, 30)
	c := newTestClient(t, corpus)

	res := <-c.TrainAsync(context.Background(), unsupervisedOptions())
	require.NoError(t, res.Err)
	assert.Equal(t, StateComplete, res.Value.State)
	assert.GreaterOrEqual(t, res.Value.Tokens, res.Value.TotalTokens)

	nn, err := c.Nn(context.Background(), "red", 2)
	require.NoError(t, err)
	assert.Len(t, nn, 2)
}

func TestClientTrainAsyncError(t *testing.T) {
	c := newTestClient(t, "-")

	res := <-c.TrainAsync(context.Background(), nil)
	assert.ErrorIs(t, res.Err, ErrStdinUnsupported)
	assert.Equal(t, Progress{}, res.Value)
}

func TestClientHonorsCanceledContext(t *testing.T) {
	c := newTestClient(t, animalsModel(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Nn(ctx, "cat", 1)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, c.Engine().Loaded())
}

func newRecordedTracer(t *testing.T) (*tracer.Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tr, err := tracer.NewClient(tracer.Config{ServiceName: "fasttext-test", AppEnv: "test"}, nil, sdktrace.WithSpanProcessor(sr))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Shutdown(context.Background()) })
	return tr, sr
}

func TestClientRecordsSpans(t *testing.T) {
	tr, sr := newRecordedTracer(t)

	path := animalsModel(t)
	c := newTestClient(t, path).WithTracer(tr)

	_, err := c.Nn(context.Background(), "cat", 2)
	require.NoError(t, err)
	_, err = c.Predict(context.Background(), "cat", 1)
	require.ErrorIs(t, err, ErrNotSupervised)

	spans := sr.Ended()
	require.Len(t, spans, 2)

	assert.Equal(t, "fasttext.nn", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
	attrs := map[string]interface{}{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "cat", attrs["word"])
	assert.Equal(t, int64(2), attrs["results"])
	assert.Equal(t, path, attrs["fasttext.model_path"])

	assert.Equal(t, "fasttext.predict", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	require.NotEmpty(t, spans[1].Events())
	assert.Equal(t, "exception", spans[1].Events()[0].Name)
}

func TestClientLogsModelLoad(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := NewMockLogger(ctrl)

	path := animalsModel(t)
	logger.EXPECT().Info("loading model", nil, gomock.Any()).Times(1)
	logger.EXPECT().Info("model loaded", nil, gomock.Any()).Times(1)
	logger.EXPECT().Debug(gomock.Any(), nil, gomock.Any()).AnyTimes()

	c, err := NewClient(&Config{ModelPath: path}, logger)
	require.NoError(t, err)

	require.NoError(t, c.Load(context.Background()))
	require.NoError(t, c.Load(context.Background()))
	_, err = c.Nn(context.Background(), "cat", 1)
	require.NoError(t, err)
	require.NoError(t, c.Close())
}

func TestClientLogsLoadFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	logger := NewMockLogger(ctrl)

	path := filepath.Join(t.TempDir(), "missing.bin")
	logger.EXPECT().Info("loading model", nil, gomock.Any())
	logger.EXPECT().Error("failed to load model", gomock.Any(), gomock.Any()).
		Do(func(_ string, err error, _ ...map[string]interface{}) {
			assert.ErrorIs(t, err, ErrModelOpen)
		})

	c, err := NewClient(&Config{ModelPath: path}, logger)
	require.NoError(t, err)
	assert.ErrorIs(t, c.Load(context.Background()), ErrModelOpen)
}

func TestClientWithObserver(t *testing.T) {
	obs := &TestObserver{}
	c := newTestClient(t, animalsModel(t))
	assert.Same(t, c, c.WithObserver(obs))

	_, err := c.Nn(context.Background(), "cat", 1)
	require.NoError(t, err)

	nn := obs.Operations("nn")
	require.Len(t, nn, 1)
	assert.Equal(t, int64(1), nn[0].Size)
	assert.Equal(t, 1, nn[0].Metadata["k"])
}

func TestClientAnalogyNonPositiveK(t *testing.T) {
	c := newTestClient(t, animalsModel(t))

	res, err := c.Analogy(context.Background(), "cat", "dog", "car", -1)
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestClientRecoversPanics(t *testing.T) {
	c := newTestClient(t, animalsModel(t)).WithObserver(observability.ObserverFunc(func(op observability.OperationContext) {
		if op.Operation != "load" {
			panic("observer failed")
		}
	}))

	_, err := c.Nn(context.Background(), "cat", 1)
	require.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, err.Error(), "observer failed")

	ch := c.PredictAsync(context.Background(), "cat", 1)
	res, ok := <-ch
	require.True(t, ok)
	assert.ErrorIs(t, res.Err, ErrInternal)
	assert.Nil(t, res.Value)
	_, open := <-ch
	assert.False(t, open)

	corpus := writeCorpus(t, []string{"red green blue"}, 10)
	trainer := newTestClient(t, corpus).WithObserver(observability.ObserverFunc(func(observability.OperationContext) {
		panic("observer failed")
	}))
	train := <-trainer.TrainAsync(context.Background(), unsupervisedOptions())
	assert.ErrorIs(t, train.Err, ErrInternal)
}

func TestClientLogsWithTraceContext(t *testing.T) {
	tr, sr := newRecordedTracer(t)
	core, logs := observer.New(zap.DebugLevel)
	log := logger.NewFromZap(zap.New(core), true)

	c, err := NewClient(&Config{ModelPath: animalsModel(t)}, log)
	require.NoError(t, err)
	c.WithTracer(tr)

	_, err = c.Nn(context.Background(), "cat", 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Nn(ctx, "cat", 1)
	require.ErrorIs(t, err, context.Canceled)

	spans := sr.Ended()
	require.Len(t, spans, 2)

	finished := logs.FilterMessage("fasttext operation finished").All()
	require.Len(t, finished, 1)
	fields := finished[0].ContextMap()
	assert.Equal(t, "nn", fields["operation"])
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), fields["trace_id"])
	assert.Equal(t, spans[0].SpanContext().SpanID().String(), fields["span_id"])

	canceled := logs.FilterMessage("fasttext operation canceled").All()
	require.Len(t, canceled, 1)
	assert.Equal(t, zap.WarnLevel, canceled[0].Level)
	assert.Equal(t, spans[1].SpanContext().TraceID().String(), canceled[0].ContextMap()["trace_id"])
}
