package tracer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
)

func newRecordedTracer(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tr, err := NewClient(Config{ServiceName: "wordembed-test", AppEnv: "test"}, nil, sdktrace.WithSpanProcessor(sr))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Shutdown(context.Background()) })
	return tr, sr
}

func TestStartSpanRecordsAttributesAndErrors(t *testing.T) {
	tr, sr := newRecordedTracer(t)

	ctx, span := tr.StartSpan(context.Background(), "train")
	tr.SetAttributes(span, map[string]interface{}{
		"dim":    int32(100),
		"epochs": 5,
		"tokens": int64(1000),
		"lr":     0.05,
		"quant":  false,
		"model":  "skipgram",
		"path":   []string{"a"},
	})
	tr.RecordErrorOnSpan(span, nil)
	tr.RecordErrorOnSpan(span, errors.New("canceled"))
	span.End()
	require.True(t, trace.SpanContextFromContext(ctx).IsValid())

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "train", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "canceled", spans[0].Status().Description)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, int64(100), attrs["dim"].AsInt64())
	assert.Equal(t, int64(5), attrs["epochs"].AsInt64())
	assert.Equal(t, 0.05, attrs["lr"].AsFloat64())
	assert.Equal(t, "skipgram", attrs["model"].AsString())
	assert.Equal(t, "[a]", attrs["path"].AsString())

	res := spans[0].Resource()
	svc, ok := res.Set().Value("service.name")
	require.True(t, ok)
	assert.Equal(t, "wordembed-test", svc.AsString())
}

func TestNewClientInstallsGlobalProvider(t *testing.T) {
	_, sr := newRecordedTracer(t)

	_, span := otel.Tracer("other").Start(context.Background(), "nn")
	span.End()

	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, "nn", sr.Ended()[0].Name())
}

func TestGlobalFollowsInstalledProvider(t *testing.T) {
	global := Global()
	assert.Nil(t, global.Provider())
	assert.NoError(t, global.Shutdown(context.Background()))

	_, sr := newRecordedTracer(t)
	ctx, span := global.StartSpan(context.Background(), "predict")
	global.RecordErrorOnSpan(span, errors.New("no labels"))
	span.End()

	require.True(t, trace.SpanContextFromContext(ctx).IsValid())
	require.Len(t, sr.Ended(), 1)
	assert.Equal(t, "predict", sr.Ended()[0].Name())
	assert.Equal(t, codes.Error, sr.Ended()[0].Status().Code)
}

func TestFXModule(t *testing.T) {
	var tr *Tracer
	app := fxtest.New(t,
		fx.Supply(Config{ServiceName: "fx-test"}),
		FXModule,
		fx.Populate(&tr),
	)
	app.RequireStart()
	require.NotNil(t, tr)
	app.RequireStop()
}

func TestNewConfigFromEnvironment(t *testing.T) {
	t.Setenv("TRACER_SERVICE_NAME", "wordembed")
	t.Setenv("APP_ENV", "staging")
	t.Setenv("TRACER_ENABLE_EXPORT", "true")

	cfg := NewConfig()
	assert.Equal(t, Config{ServiceName: "wordembed", AppEnv: "staging", EnableExport: true}, cfg)
}
