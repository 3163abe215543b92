// Package observability defines the hook contract through which library
// packages report what they do, without depending on a particular metrics or
// tracing backend.
//
// Components call ObserveOperation once per completed operation. Long running
// operations such as training may additionally report intermediate progress
// to observers that implement ProgressObserver.
package observability

import "time"

// Observer receives a notification for every completed operation.
// Implementations must be safe for concurrent use and should return quickly.
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// OperationContext describes one completed operation.
type OperationContext struct {
	// Component is the reporting package, e.g. "fasttext" or "modelstore".
	Component string

	// Operation is the operation name, e.g. "nn", "train", "upload".
	Operation string

	// Resource identifies the primary target, e.g. a model path or bucket.
	Resource string

	// SubResource is an optional secondary target, e.g. an object key.
	SubResource string

	// Duration is the wall time of the operation.
	Duration time.Duration

	// Error is the returned error, or nil on success.
	Error error

	// Size is an operation specific size such as the number of results or bytes.
	Size int64

	// Metadata carries additional free-form attributes.
	Metadata map[string]interface{}
}

// TrainingProgress is a snapshot of a running training job.
type TrainingProgress struct {
	Component string
	Resource  string

	// Progress is the fraction of the token budget processed, in [0, 1].
	Progress float64

	// Tokens is the number of tokens processed so far.
	Tokens int64

	// Loss is the running average loss reported by the first worker.
	Loss float64

	// LearningRate is the current linearly decayed learning rate.
	LearningRate float64

	// WordsPerSecondPerThread is the processing rate since training started.
	WordsPerSecondPerThread float64
}

// ProgressObserver is implemented by observers that also want periodic
// progress reports from long running operations.
type ProgressObserver interface {
	ObserveProgress(p TrainingProgress)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx OperationContext)

func (f ObserverFunc) ObserveOperation(ctx OperationContext) { f(ctx) }
