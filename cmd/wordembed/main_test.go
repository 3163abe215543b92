package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/wordembed/v1/fasttext"
)

func runCLI(t *testing.T, stdin string, argv ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := execute(context.Background(), argv, strings.NewReader(stdin), &out)
	return out.String(), err
}

func writeCorpus(t *testing.T, dir string, lines []string, repeat int) string {
	t.Helper()
	var sb strings.Builder
	for i := 0; i < repeat; i++ {
		for _, l := range lines {
			sb.WriteString(l)
			sb.WriteByte('\n')
		}
	}
	path := filepath.Join(dir, "corpus.txt")
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func isolateEnv(t *testing.T) {
	t.Setenv("FASTTEXT_MODEL_PATH", "")
	t.Setenv("ZAP_LOGGER_LEVEL", "error")
	t.Setenv("TRACER_ENABLE_EXPORT", "false")
}

func TestTrainAndQueryUnsupervised(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	corpus := writeCorpus(t, dir, []string{"red green blue", "green blue red", "blue red green"}, 50)
	output := filepath.Join(dir, "colors")

	out, err := runCLI(t, "", "train", "skipgram", "-i", corpus, "-o", output,
		"--opt", "dim=8", "--opt", "epoch=2", "--opt", "minCount=1", "--opt", "thread=1", "--opt", "bucket=100")
	require.NoError(t, err)
	assert.Contains(t, out, "trained skipgram model")
	assert.FileExists(t, output+".bin")
	assert.FileExists(t, output+".vec")

	out, err = runCLI(t, "", "nn", "-m", output+".bin", "red", "-k", "2")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	for _, l := range lines {
		fields := strings.Fields(l)
		require.Len(t, fields, 2)
		assert.NotEqual(t, "red", fields[0])
	}

	out, err = runCLI(t, "red green\nblue\n", "sentence-vector", "-m", output+".bin")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Len(t, strings.Fields(lines[0]), 8)

	out, err = runCLI(t, "", "analogy", "-m", output+".bin", "red", "green", "blue", "-k", "1")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.NotContains(t, []string{"red", "green", "blue"}, strings.Fields(lines[0])[0])

	_, err = runCLI(t, "", "predict", "-m", output+".bin", "red")
	assert.ErrorIs(t, err, fasttext.ErrNotSupervised)
}

func TestTrainPredictAndQuantizeSupervised(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	corpus := writeCorpus(t, dir, []string{
		"__label__pos good great fine",
		"__label__neg bad awful poor",
	}, 30)
	output := filepath.Join(dir, "sentiment")

	_, err := runCLI(t, "", "train", "supervised", "-i", corpus, "-o", output,
		"--opt", "dim=4", "--opt", "epoch=2", "--opt", "thread=1", "--opt", "wordNgrams=2", "--opt", "bucket=300")
	require.NoError(t, err)

	out, err := runCLI(t, "", "predict", "-m", output+".bin", "-k", "2", "good", "great")
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.Len(t, fields, 4)
	assert.True(t, strings.HasPrefix(fields[0], "__label__"))

	out, err = runCLI(t, "", "quantize", "-m", output+".bin")
	require.NoError(t, err)
	assert.Contains(t, out, output+".ftz")

	out, err = runCLI(t, "good\nbad\n", "predict", "-m", output+".ftz")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)
}

func TestCommandErrors(t *testing.T) {
	isolateEnv(t)

	_, err := runCLI(t, "", "train")
	assert.Error(t, err)

	_, err = runCLI(t, "", "train", "skipgram", "-i", filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, fasttext.ErrCorpusOpen)

	_, err = runCLI(t, "", "nn", "-m", filepath.Join(t.TempDir(), "missing.bin"), "word")
	assert.ErrorIs(t, err, fasttext.ErrModelOpen)

	_, err = runCLI(t, "", "nn", "word")
	assert.ErrorIs(t, err, fasttext.ErrInvalidOption)

	_, err = runCLI(t, "", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "nn", "word")
	assert.ErrorContains(t, err, "failed to read config file")
}
