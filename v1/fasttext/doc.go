// Package fasttext provides subword-aware word embeddings: it loads and
// trains fastText compatible models and answers nearest-neighbor, sentence
// vector and label prediction queries.
//
// # Overview
//
// The package has two layers. Engine owns one model and exposes blocking
// operations. Client wraps an Engine for application code: every operation
// is traced with OpenTelemetry and has an Async variant that delivers a
// single Result on a channel.
//
//	client, err := fasttext.NewClient(&fasttext.Config{ModelPath: "wiki.en.bin"}, log)
//	if err != nil {
//	    return err
//	}
//	res := <-client.NnAsync(ctx, "king", 10)
//	if res.Err != nil {
//	    return res.Err
//	}
//
// # Loading
//
// A model file is read on the first query, or eagerly with Client.Load. The
// load is all-or-nothing: if any part of the file cannot be read the engine
// stays unloaded and a later call retries. Errors distinguish a file that
// cannot be opened (ErrModelOpen) from one that is not a model
// (ErrWrongFormat) or is truncated (ErrCorruptModel).
//
// # Queries
//
//   - Nn returns the k nearest vocabulary words by cosine similarity,
//     excluding the query word. Scores are exp(cosine). Ties are ordered by
//     word.
//   - SentenceVector averages unit word vectors for unsupervised models and
//     raw input rows (words and word n-grams) for supervised models. Empty
//     input yields a zero vector.
//   - Predict returns the k most likely labels of a supervised model.
//
// # Training
//
// Train takes a flat option map with the fastText parameter names:
//
//	err := client.Train(ctx, map[string]string{
//	    "command":  "skipgram",
//	    "input":    "corpus.txt",
//	    "dim":      "100",
//	    "epoch":    "5",
//	    "thread":   "8",
//	    "output":   "model",
//	})
//
// Worker goroutines share the parameter matrices without locking and stop
// when the shared token counter reaches epoch times the corpus token count.
// Progress is logged at debug level and reported to observers that
// implement observability.ProgressObserver. Canceling ctx stops training.
//
// # Fx
//
// FXModule provides *Config from the environment and *Client. Set
// FASTTEXT_PRELOAD=true to load the model while the application starts.
package fasttext
