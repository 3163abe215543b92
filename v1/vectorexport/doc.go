// Package vectorexport copies the word vectors of a model into a Qdrant
// collection so they can be searched by other services.
//
// Each vocabulary word becomes one point: the point id is the word id, the
// vector is the unit-length word vector and the payload is {"word": word}.
// The collection is created with cosine distance and the model dimension
// when it does not exist. Words that are not valid UTF-8 cannot be stored
// in a payload; they are skipped with a warning.
//
//	exp, err := vectorexport.NewExporter(vectorexport.NewConfig(), log)
//	if err != nil {
//	    return err
//	}
//	defer exp.Close()
//	n, err := exp.Export(ctx, engine)
//
// WithMetrics adds counters of exported and skipped words, the upsert
// latency and the exported dimension to a *metrics.Metrics registry.
package vectorexport
