package fasttext

import "errors"

// Configuration errors.
var (
	// ErrInvalidOption wraps option parsing failures from training requests.
	ErrInvalidOption = errors.New("fasttext: invalid training option")

	// ErrDimensionMismatch is returned when pretrained vectors do not have the
	// requested dimension.
	ErrDimensionMismatch = errors.New("fasttext: dimension of pretrained vectors does not match -dim option")

	// ErrStdinUnsupported is returned when training input is "-".
	ErrStdinUnsupported = errors.New("fasttext: cannot use stdin for training")

	// ErrAlreadyInitialized is returned when training is requested on an
	// engine that already holds a model or has started training.
	ErrAlreadyInitialized = errors.New("fasttext: engine already holds a model")

	// ErrNotLoaded is returned by operations that need a model when none is present.
	ErrNotLoaded = errors.New("fasttext: no model loaded")

	// ErrNotSupervised is returned by operations that need a supervised model.
	ErrNotSupervised = errors.New("fasttext: operation requires a supervised model")

	// ErrAlreadyQuantized is returned when quantizing a quantized model.
	ErrAlreadyQuantized = errors.New("fasttext: model is already quantized")

	// ErrNoLabels is returned when a supervised corpus contains no label.
	ErrNoLabels = errors.New("fasttext: supervised training input has no labels")
)

// I/O and format errors.
var (
	ErrModelOpen      = errors.New("fasttext: model file cannot be opened for loading")
	ErrWrongFormat    = errors.New("fasttext: model file has wrong file format")
	ErrCorruptModel   = errors.New("fasttext: model file is truncated or corrupt")
	ErrModelWrite     = errors.New("fasttext: model file cannot be written")
	ErrCorpusOpen     = errors.New("fasttext: training input cannot be opened")
	ErrPretrainedOpen = errors.New("fasttext: pretrained vectors file cannot be opened")
)

// ErrInternal wraps a panic recovered in a client call or a training worker.
var ErrInternal = errors.New("fasttext: internal error")

// ErrTrainingCanceled is returned when the training context ends before the
// token budget is consumed.
var ErrTrainingCanceled = errors.New("fasttext: training canceled")
