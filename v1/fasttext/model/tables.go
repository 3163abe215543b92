package model

import "math"

const (
	sigmoidTableSize = 512
	maxSigmoid       = 8
	logTableSize     = 512
)

var (
	sigmoidTable = buildSigmoidTable()
	logTable     = buildLogTable()
)

func buildSigmoidTable() []float32 {
	t := make([]float32, sigmoidTableSize+1)
	for i := range t {
		x := float32(i*2*maxSigmoid)/sigmoidTableSize - maxSigmoid
		t[i] = float32(1.0 / (1.0 + math.Exp(-float64(x))))
	}
	return t
}

func buildLogTable() []float32 {
	t := make([]float32, logTableSize+1)
	for i := range t {
		x := (float64(i) + 1e-5) / logTableSize
		t[i] = float32(math.Log(x))
	}
	return t
}

// sigmoid is a table lookup clamped to [-8, 8].
func sigmoid(x float32) float32 {
	if x < -maxSigmoid {
		return 0
	}
	if x > maxSigmoid {
		return 1
	}
	i := int((x + maxSigmoid) * sigmoidTableSize / maxSigmoid / 2)
	return sigmoidTable[i]
}

// tableLog is a table lookup for x in [0, 1]; larger values map to 0.
func tableLog(x float32) float32 {
	if x > 1 {
		return 0
	}
	i := int(x * logTableSize)
	return logTable[i]
}
