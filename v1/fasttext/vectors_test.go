package fasttext

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentenceVectorEmptyInput(t *testing.T) {
	for name, path := range map[string]string{
		"unsupervised": animalsModel(t),
		"supervised":   sentimentModel(t),
	} {
		t.Run(name, func(t *testing.T) {
			e := NewEngine(path)
			for _, text := range []string{"", "   ", "\n"} {
				vec, err := e.SentenceVector(text)
				require.NoError(t, err)
				assert.Equal(t, []float64{0, 0}, vec)
			}
		})
	}
}

func TestSentenceVectorAveragesUnitVectors(t *testing.T) {
	e := NewEngine(writeTestModel(t, testModel{
		words: []string{"up", "right", "zero"},
		input: map[string][]float32{
			"up":    {0, 4},
			"right": {2, 0},
			"zero":  {0, 0},
		},
	}))

	vec, err := e.SentenceVector("up right unknown zero")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, vec, 1e-6)

	single, err := e.SentenceVector("up")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 1}, single, 1e-6)
}

func TestSentenceVectorWithoutCache(t *testing.T) {
	e := NewEngine(animalsModel(t)).WithVectorCacheSize(0)

	vec, err := e.SentenceVector("cat car")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, vec, 1e-6)
	assert.Nil(t, e.vectorCache())
}

func TestSentenceVectorUsesCache(t *testing.T) {
	e := NewEngine(animalsModel(t)).WithVectorCacheSize(2)

	_, err := e.SentenceVector("cat dog car")
	require.NoError(t, err)
	cache := e.vectorCache()
	require.NotNil(t, cache)
	assert.Equal(t, 2, cache.Len())
	assert.True(t, cache.Contains("car"))
}

func TestSentenceVectorSupervisedAveragesInputRows(t *testing.T) {
	e := NewEngine(sentimentModel(t))

	vec, err := e.SentenceVector("good bad unknown")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0.5, 0.5}, vec, 1e-6)
}

func TestWordVectorOutOfVocabulary(t *testing.T) {
	e := NewEngine(animalsModel(t))

	vec, err := e.WordVector("zebra")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0}, vec)
}
