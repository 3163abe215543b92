package vectorexport

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Aleph-Alpha/wordembed/v1/logger"
	"github.com/Aleph-Alpha/wordembed/v1/metrics"
	"github.com/Aleph-Alpha/wordembed/v1/observability"
)

type fakeQdrant struct {
	exists    bool
	created   []*qdrant.CreateCollection
	upserts   []*qdrant.UpsertPoints
	upsertErr error
}

func (f *fakeQdrant) CollectionExists(context.Context, string) (bool, error) {
	return f.exists, nil
}

func (f *fakeQdrant) CreateCollection(_ context.Context, req *qdrant.CreateCollection) error {
	f.created = append(f.created, req)
	f.exists = true
	return nil
}

func (f *fakeQdrant) Upsert(_ context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.upserts = append(f.upserts, req)
	return &qdrant.UpdateResult{}, nil
}

type fakeSource struct {
	words   []string
	dim     int
	loadErr error
}

func (s *fakeSource) LoadModel() error { return s.loadErr }
func (s *fakeSource) Dimension() int   { return s.dim }

func (s *fakeSource) WordVectors(fn func(int, string, []float32) error) error {
	vec := make([]float32, s.dim)
	for i, w := range s.words {
		vec[0] = float32(i)
		if err := fn(i, w, vec); err != nil {
			return err
		}
	}
	return nil
}

func words(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("w%d", i)
	}
	return out
}

func TestExportCreatesCollectionAndBatches(t *testing.T) {
	api := &fakeQdrant{}
	cfg := &Config{Endpoint: "localhost", Collection: "vectors", BatchSize: 2}
	var ops []observability.OperationContext
	exp := newExporter(api, cfg, nil).WithObserver(observability.ObserverFunc(func(c observability.OperationContext) {
		ops = append(ops, c)
	}))

	n, err := exp.Export(context.Background(), &fakeSource{words: words(5), dim: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	require.Len(t, api.created, 1)
	assert.Equal(t, "vectors", api.created[0].CollectionName)
	params := api.created[0].VectorsConfig.GetParams()
	assert.Equal(t, uint64(3), params.GetSize())
	assert.Equal(t, qdrant.Distance_Cosine, params.GetDistance())

	require.Len(t, api.upserts, 3)
	assert.Len(t, api.upserts[0].Points, 2)
	assert.Len(t, api.upserts[2].Points, 1)
	assert.True(t, api.upserts[0].GetWait())

	last := api.upserts[2].Points[0]
	assert.Equal(t, uint64(4), last.Id.GetNum())
	assert.Equal(t, "w4", last.Payload["word"].GetStringValue())

	require.Len(t, ops, 1)
	assert.Equal(t, "vectorexport", ops[0].Component)
	assert.Equal(t, "export", ops[0].Operation)
	assert.Equal(t, int64(5), ops[0].Size)
}

func TestExportSkipsExistingCollection(t *testing.T) {
	api := &fakeQdrant{exists: true}
	exp := newExporter(api, &Config{Collection: "vectors"}, nil)

	n, err := exp.Export(context.Background(), &fakeSource{words: words(3), dim: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Empty(t, api.created)
	require.Len(t, api.upserts, 1)
}

func TestExportPropagatesErrors(t *testing.T) {
	loadErr := errors.New("no model")
	exp := newExporter(&fakeQdrant{}, &Config{Collection: "vectors"}, nil)
	_, err := exp.Export(context.Background(), &fakeSource{loadErr: loadErr})
	assert.ErrorIs(t, err, loadErr)

	upsertErr := errors.New("unavailable")
	api := &fakeQdrant{upsertErr: upsertErr}
	exp = newExporter(api, &Config{Collection: "vectors", BatchSize: 10}, nil)
	n, err := exp.Export(context.Background(), &fakeSource{words: words(3), dim: 2})
	assert.ErrorIs(t, err, upsertErr)
	assert.Zero(t, n)
}

func TestExportStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	api := &fakeQdrant{exists: true}
	exp := newExporter(api, &Config{Collection: "vectors"}, nil)
	_, err := exp.Export(ctx, &fakeSource{words: words(3), dim: 2})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, api.upserts)
}

func TestNewPoint(t *testing.T) {
	p, err := newPoint(7, "seven", []float32{1, 2})
	require.NoError(t, err)

	assert.Equal(t, uint64(7), p.Id.GetNum())
	assert.Equal(t, "seven", p.Payload["word"].GetStringValue())
	assert.NotNil(t, p.Vectors)

	_, err = newPoint(8, "caf\xc3", []float32{1, 2})
	assert.Error(t, err)
}

func TestExportSkipsInvalidUTF8Words(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	api := &fakeQdrant{exists: true}
	m := metrics.NewMetrics(metrics.Config{Address: ":0", Namespace: "wordembed", ServiceName: "test"})
	exp := newExporter(api, &Config{Collection: "vectors", BatchSize: 10}, logger.NewFromZap(zap.New(core), false)).
		WithMetrics(m)

	src := &fakeSource{words: []string{"cafe", "caf\xc3", "café"}, dim: 2}
	var n int64
	var err error
	require.NotPanics(t, func() { n, err = exp.Export(context.Background(), src) })
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.Len(t, api.upserts, 1)
	points := api.upserts[0].Points
	require.Len(t, points, 2)
	assert.Equal(t, uint64(0), points[0].Id.GetNum())
	assert.Equal(t, uint64(2), points[1].Id.GetNum())
	assert.Equal(t, "café", points[1].Payload["word"].GetStringValue())

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "skipping word", logs.All()[0].Message)
	assert.Equal(t, int64(1), logs.All()[0].ContextMap()["id"])

	assert.Equal(t, 2.0, testutil.ToFloat64(exp.metrics.words.WithLabelValues("vectors", "exported")))
	assert.Equal(t, 1.0, testutil.ToFloat64(exp.metrics.words.WithLabelValues("vectors", "skipped")))
	assert.Equal(t, 2.0, testutil.ToFloat64(exp.metrics.dimension.WithLabelValues("vectors")))
	assert.Equal(t, 1, testutil.CollectAndCount(exp.metrics.upserts))
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("QDRANT_ENDPOINT", "qdrant.internal")
	t.Setenv("QDRANT_PORT", "7000")
	t.Setenv("QDRANT_COLLECTION", "fasttext_en")
	t.Setenv("QDRANT_BATCH_SIZE", "50")

	cfg := NewConfig()
	assert.Equal(t, "qdrant.internal", cfg.Endpoint)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "fasttext_en", cfg.Collection)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.NoError(t, cfg.Validate())

	cfg.Collection = ""
	assert.Error(t, cfg.Validate())
}

func TestCloseWithoutConnection(t *testing.T) {
	assert.NoError(t, newExporter(&fakeQdrant{}, DefaultConfig(), nil).Close())
}
