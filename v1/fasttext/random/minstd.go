// Package random provides the deterministic pseudo random source used by
// training and initialization.
//
// The generator is a Park-Miller "minimal standard" linear congruential engine
// (multiplier 48271, modulus 2^31-1). The real and integer distributions follow
// the libstdc++ algorithms so that a given seed yields the same stream of
// samples as models produced by the reference toolchain.
package random

import "math"

const (
	multiplier = 48271
	modulus    = 2147483647

	// min and max values produced by Next.
	minValue = 1
	maxValue = modulus - 1
)

// Rand is a minstd_rand engine. It is not safe for concurrent use; every
// training worker owns its own instance.
type Rand struct {
	state uint64
}

// New returns an engine seeded with seed. A seed congruent to zero modulo
// 2^31-1 is replaced by 1, since zero is a fixed point of the recurrence.
func New(seed int64) *Rand {
	r := &Rand{}
	r.Seed(seed)
	return r
}

// Seed resets the engine state.
func (r *Rand) Seed(seed int64) {
	s := seed % modulus
	if s < 0 {
		s += modulus
	}
	if s == 0 {
		s = 1
	}
	r.state = uint64(s)
}

// Next advances the engine and returns the next raw value in [1, 2^31-2].
func (r *Rand) Next() uint32 {
	r.state = (r.state * multiplier) % modulus
	return uint32(r.state)
}

// Float64 returns a uniformly distributed value in [0, 1). It consumes two
// engine draws per sample, the way generate_canonical<double, 53> does for a
// 31 bit engine.
func (r *Rand) Float64() float64 {
	const rng = float64(maxValue - minValue + 1)
	sum := 0.0
	tmp := 1.0
	for k := 0; k < 2; k++ {
		sum += float64(r.Next()-minValue) * tmp
		tmp *= rng
	}
	ret := sum / tmp
	if ret >= 1 {
		ret = math.Nextafter(1, 0)
	}
	return ret
}

// Uniform returns a real value uniformly distributed in [a, b).
func (r *Rand) Uniform(a, b float64) float64 {
	return a + (b-a)*r.Float64()
}

// Intn returns an integer uniformly distributed in the closed range [a, b].
func (r *Rand) Intn(a, b int64) int64 {
	if b <= a {
		return a
	}
	const urngRange = uint64(maxValue - minValue)
	urange := uint64(b - a)
	if urange >= urngRange {
		return a + int64(r.Float64()*float64(urange+1))
	}
	erange := urange + 1
	scaling := urngRange / erange
	past := erange * scaling
	var ret uint64
	for {
		ret = uint64(r.Next() - minValue)
		if ret < past {
			break
		}
	}
	return a + int64(ret/scaling)
}

// Shuffle permutes n elements with a Fisher-Yates walk driven by Intn.
func (r *Rand) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := int(r.Intn(0, int64(i)))
		swap(i, j)
	}
}
