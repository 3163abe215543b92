package args

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
)

var (
	// ErrUnknownOption is returned for option keys that do not name a parameter.
	ErrUnknownOption = errors.New("unknown option")

	// ErrInvalidValue is returned when an option value cannot be parsed or is out of range.
	ErrInvalidValue = errors.New("invalid option value")
)

// CommandKey selects the training objective in an option map. It accepts
// "skipgram", "cbow" and "supervised" and defaults to "skipgram".
const CommandKey = "command"

type setter func(a *Args, v string) error

var setters = map[string]setter{
	"input":             func(a *Args, v string) error { a.Input = v; return nil },
	"output":            func(a *Args, v string) error { a.Output = v; return nil },
	"pretrainedVectors": func(a *Args, v string) error { a.PretrainedVectors = v; return nil },
	"label":             func(a *Args, v string) error { a.Label = v; return nil },
	"lr":                floatSetter(func(a *Args) *float64 { return &a.LR }),
	"t":                 floatSetter(func(a *Args) *float64 { return &a.T }),
	"lrUpdateRate":      intSetter(func(a *Args) *int32 { return &a.LRUpdateRate }),
	"dim":               intSetter(func(a *Args) *int32 { return &a.Dim }),
	"ws":                intSetter(func(a *Args) *int32 { return &a.WS }),
	"epoch":             intSetter(func(a *Args) *int32 { return &a.Epoch }),
	"minCount":          intSetter(func(a *Args) *int32 { return &a.MinCount }),
	"minCountLabel":     intSetter(func(a *Args) *int32 { return &a.MinCountLabel }),
	"neg":               intSetter(func(a *Args) *int32 { return &a.Neg }),
	"wordNgrams":        intSetter(func(a *Args) *int32 { return &a.WordNgrams }),
	"bucket":            intSetter(func(a *Args) *int32 { return &a.Bucket }),
	"minn":              intSetter(func(a *Args) *int32 { return &a.Minn }),
	"maxn":              intSetter(func(a *Args) *int32 { return &a.Maxn }),
	"thread":            intSetter(func(a *Args) *int32 { return &a.Thread }),
	"verbose":           intSetter(func(a *Args) *int32 { return &a.Verbose }),
	"cutoff":            intSetter(func(a *Args) *int32 { return &a.Cutoff }),
	"dsub":              intSetter(func(a *Args) *int32 { return &a.DSub }),
	"saveOutput":        boolSetter(func(a *Args) *bool { return &a.SaveOutput }),
	"qout":              boolSetter(func(a *Args) *bool { return &a.QOut }),
	"qnorm":             boolSetter(func(a *Args) *bool { return &a.QNorm }),
	"retrain":           boolSetter(func(a *Args) *bool { return &a.Retrain }),
	"loss": func(a *Args, v string) error {
		switch v {
		case "hs":
			a.Loss = HierarchicalSoftmax
		case "ns":
			a.Loss = NegativeSampling
		case "softmax":
			a.Loss = Softmax
		default:
			return fmt.Errorf("%w: loss %q", ErrInvalidValue, v)
		}
		return nil
	},
}

// ParseOptions builds an Args from a flat option map, the form used by the
// training entry points (keys without the leading dash, e.g. "dim": "50").
//
// The command is applied first: "supervised" switches to the supervised
// defaults (softmax loss, minCount 1, no character n-grams, lr 0.1). The
// remaining keys are applied in sorted order so the result does not depend on
// map iteration. The bucket table is disabled when neither word n-grams nor
// character n-grams are in use.
func ParseOptions(opts map[string]string) (*Args, error) {
	a := Default()

	switch cmd := opts[CommandKey]; cmd {
	case "", "skipgram":
		a.Model = SkipGram
	case "cbow":
		a.Model = CBOW
	case "supervised":
		a.Model = Supervised
		a.Loss = Softmax
		a.MinCount = 1
		a.Minn = 0
		a.Maxn = 0
		a.LR = 0.1
	default:
		return nil, fmt.Errorf("%w: command %q", ErrInvalidValue, cmd)
	}

	keys := make([]string, 0, len(opts))
	for k := range opts {
		if k != CommandKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		set, ok := setters[k]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOption, k)
		}
		if err := set(a, opts[k]); err != nil {
			return nil, fmt.Errorf("option %q: %w", k, err)
		}
	}

	if a.WordNgrams <= 1 && a.Maxn == 0 {
		a.Bucket = 0
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks the ranges that training relies on.
func (a *Args) Validate() error {
	positive := []struct {
		name string
		v    int32
	}{
		{"dim", a.Dim}, {"ws", a.WS}, {"epoch", a.Epoch}, {"thread", a.Thread},
		{"lrUpdateRate", a.LRUpdateRate}, {"dsub", a.DSub},
	}
	for _, p := range positive {
		if p.v <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidValue, p.name, p.v)
		}
	}
	if a.LR <= 0 {
		return fmt.Errorf("%w: lr must be positive, got %g", ErrInvalidValue, a.LR)
	}
	if a.Bucket < 0 || a.Neg < 0 || a.MinCount < 0 || a.Minn < 0 || a.Maxn < 0 {
		return fmt.Errorf("%w: negative count parameter", ErrInvalidValue)
	}
	if a.Loss == NegativeSampling && a.Neg == 0 {
		return fmt.Errorf("%w: neg must be positive with ns loss", ErrInvalidValue)
	}
	if a.Maxn > 0 && a.Minn > a.Maxn {
		return fmt.Errorf("%w: minn %d exceeds maxn %d", ErrInvalidValue, a.Minn, a.Maxn)
	}
	return nil
}

func intSetter(field func(*Args) *int32) setter {
	return func(a *Args, v string) error {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		*field(a) = int32(n)
		return nil
	}
}

func floatSetter(field func(*Args) *float64) setter {
	return func(a *Args, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		*field(a) = f
		return nil
	}
}

func boolSetter(field func(*Args) *bool) setter {
	return func(a *Args, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		*field(a) = b
		return nil
	}
}
