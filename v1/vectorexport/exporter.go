package vectorexport

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/qdrant/go-client/qdrant"

	"github.com/Aleph-Alpha/wordembed/v1/observability"
)

// VectorSource is a loaded embedding model. *fasttext.Engine implements it.
type VectorSource interface {
	LoadModel() error
	Dimension() int
	WordVectors(fn func(id int, word string, vec []float32) error) error
}

// pointWriter is the subset of *qdrant.Client used by the exporter.
type pointWriter interface {
	CollectionExists(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, req *qdrant.CreateCollection) error
	Upsert(ctx context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
}

// Logger is the logging contract of the exporter.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, error, ...map[string]interface{})  {}
func (nopLogger) Debug(string, error, ...map[string]interface{}) {}
func (nopLogger) Warn(string, error, ...map[string]interface{})  {}

// MetricsFactory creates and registers collectors. *metrics.Metrics
// implements it.
type MetricsFactory interface {
	CreateCounter(name, help string, labels []string) *prometheus.CounterVec
	CreateHistogram(name, help string, labels []string, buckets []float64) *prometheus.HistogramVec
	CreateGauge(name, help string, labels []string) *prometheus.GaugeVec
}

type exportMetrics struct {
	words     *prometheus.CounterVec
	upserts   *prometheus.HistogramVec
	dimension *prometheus.GaugeVec
}

// Exporter writes word vectors into a Qdrant collection.
type Exporter struct {
	api      pointWriter
	closer   func() error
	cfg      *Config
	logger   Logger
	observer observability.Observer
	metrics  *exportMetrics
}

// NewExporter connects to Qdrant.
func NewExporter(cfg *Config, logger Logger) (*Exporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   cfg.Endpoint,
		Port:                   port,
		APIKey:                 cfg.ApiKey,
		UseTLS:                 cfg.UseTLS,
		SkipCompatibilityCheck: !cfg.CheckCompatibility,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize qdrant client: %w", err)
	}
	e := newExporter(client, cfg, logger)
	e.closer = client.Close
	return e, nil
}

func newExporter(api pointWriter, cfg *Config, logger Logger) *Exporter {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Exporter{api: api, cfg: cfg, logger: logger}
}

// WithObserver attaches an observer notified after every export.
func (e *Exporter) WithObserver(o observability.Observer) *Exporter {
	e.observer = o
	return e
}

// WithMetrics registers the exporter collectors with f. A registry accepts
// them once, so attach a single exporter per registry.
func (e *Exporter) WithMetrics(f MetricsFactory) *Exporter {
	e.metrics = &exportMetrics{
		words: f.CreateCounter("vectorexport_words_total",
			"Vocabulary words handled by exports, by outcome", []string{"collection", "status"}),
		upserts: f.CreateHistogram("vectorexport_upsert_duration_seconds",
			"Duration of batch upserts in seconds", []string{"collection"}, prometheus.DefBuckets),
		dimension: f.CreateGauge("vectorexport_dimension",
			"Vector dimension of the last exported model", []string{"collection"}),
	}
	return e
}

// Close releases the gRPC connection.
func (e *Exporter) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer()
}

// EnsureCollection creates the collection with cosine distance if it is missing.
func (e *Exporter) EnsureCollection(ctx context.Context, dim int) error {
	exists, err := e.api.CollectionExists(ctx, e.cfg.Collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %q: %w", e.cfg.Collection, err)
	}
	if exists {
		return nil
	}
	e.logger.Info("creating collection", nil, map[string]interface{}{
		"collection": e.cfg.Collection,
		"dim":        dim,
	})
	err = e.api.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: e.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %q: %w", e.cfg.Collection, err)
	}
	return nil
}

// Export upserts every vocabulary word of src as a point whose id is the
// word id and whose payload holds the word. It returns the number of points.
// Words that are not valid UTF-8 cannot be stored as payload and are skipped.
func (e *Exporter) Export(ctx context.Context, src VectorSource) (count int64, err error) {
	start := time.Now()
	defer func() {
		e.observeOperation("export", start, err, count)
	}()

	if err = src.LoadModel(); err != nil {
		return 0, err
	}
	if err = e.EnsureCollection(ctx, src.Dimension()); err != nil {
		return 0, err
	}
	if e.metrics != nil {
		e.metrics.dimension.WithLabelValues(e.cfg.Collection).Set(float64(src.Dimension()))
	}

	batchSize := e.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	batch := make([]*qdrant.PointStruct, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := e.upsertBatch(ctx, batch); err != nil {
			return fmt.Errorf("batch upsert failed at [%d:%d]: %w", count, count+int64(len(batch)), err)
		}
		count += int64(len(batch))
		e.logger.Debug("exported batch", nil, map[string]interface{}{
			"collection": e.cfg.Collection,
			"points":     count,
		})
		e.countWords("exported", len(batch))
		batch = batch[:0]
		return nil
	}

	var skipped int

	err = src.WordVectors(func(id int, word string, vec []float32) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := newPoint(id, word, vec)
		if err != nil {
			skipped++
			e.countWords("skipped", 1)
			e.logger.Warn("skipping word", err, map[string]interface{}{
				"collection": e.cfg.Collection,
				"id":         id,
				"word":       strconv.QuoteToASCII(word),
			})
			return nil
		}
		batch = append(batch, p)
		if len(batch) == batchSize {
			return flush()
		}
		return nil
	})
	if err == nil {
		err = flush()
	}
	if err != nil {
		return count, err
	}

	e.logger.Info("exported word vectors", nil, map[string]interface{}{
		"collection": e.cfg.Collection,
		"points":     count,
		"skipped":    skipped,
	})
	return count, nil
}

func newPoint(id int, word string, vec []float32) (*qdrant.PointStruct, error) {
	payload, err := qdrant.TryValueMap(map[string]any{"word": word})
	if err != nil {
		return nil, err
	}
	return &qdrant.PointStruct{
		Id:      qdrant.NewIDNum(uint64(id)),
		Vectors: qdrant.NewVectors(append([]float32(nil), vec...)...),
		Payload: payload,
	}, nil
}

func (e *Exporter) upsertBatch(ctx context.Context, points []*qdrant.PointStruct) error {
	start := time.Now()
	wait := true
	_, err := e.api.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: e.cfg.Collection,
		Points:         points,
		Wait:           &wait,
	})
	if e.metrics != nil {
		e.metrics.upserts.WithLabelValues(e.cfg.Collection).Observe(time.Since(start).Seconds())
	}
	return err
}

func (e *Exporter) countWords(status string, n int) {
	if e.metrics == nil || n == 0 {
		return
	}
	e.metrics.words.WithLabelValues(e.cfg.Collection, status).Add(float64(n))
}

func (e *Exporter) observeOperation(operation string, start time.Time, err error, size int64) {
	if e.observer == nil {
		return
	}
	e.observer.ObserveOperation(observability.OperationContext{
		Component: "vectorexport",
		Operation: operation,
		Resource:  e.cfg.Collection,
		Duration:  time.Since(start),
		Error:     err,
		Size:      size,
	})
}
