package fasttext

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	// DefaultPollInterval is how often the training orchestrator checks progress.
	DefaultPollInterval = 100 * time.Millisecond

	// DefaultVectorCacheSize is the number of word vectors kept for sentence
	// vector computation.
	DefaultVectorCacheSize = 10000
)

// Config configures a Client and the Engine behind it.
type Config struct {
	// ModelPath is the model file to load, or the training corpus when the
	// engine is used for training.
	//
	// Environment variable: FASTTEXT_MODEL_PATH
	ModelPath string `yaml:"model_path" envconfig:"FASTTEXT_MODEL_PATH"`

	// PollInterval controls how often training progress is checked and reported.
	//
	// Environment variable: FASTTEXT_POLL_INTERVAL (Go duration, default 100ms)
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"FASTTEXT_POLL_INTERVAL"`

	// VectorCacheSize bounds the LRU cache of normalized word vectors used by
	// unsupervised sentence vectors. Zero disables the cache.
	//
	// Environment variable: FASTTEXT_VECTOR_CACHE_SIZE
	VectorCacheSize int `yaml:"vector_cache_size" envconfig:"FASTTEXT_VECTOR_CACHE_SIZE"`

	// Preload loads the model when the fx application starts instead of on
	// the first query.
	//
	// Environment variable: FASTTEXT_PRELOAD
	Preload bool `yaml:"preload" envconfig:"FASTTEXT_PRELOAD"`
}

// NewConfig reads the configuration from the environment.
func NewConfig() *Config {
	cfg := &Config{
		ModelPath:       os.Getenv("FASTTEXT_MODEL_PATH"),
		PollInterval:    DefaultPollInterval,
		VectorCacheSize: DefaultVectorCacheSize,
	}
	if v := os.Getenv("FASTTEXT_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.PollInterval = d
		}
	}
	if v := os.Getenv("FASTTEXT_VECTOR_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.VectorCacheSize = n
		}
	}
	if v := os.Getenv("FASTTEXT_PRELOAD"); v != "" {
		cfg.Preload, _ = strconv.ParseBool(v)
	}
	return cfg
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.ModelPath == "" {
		return fmt.Errorf("fasttext: missing FASTTEXT_MODEL_PATH")
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("fasttext: negative poll interval %s", c.PollInterval)
	}
	if c.VectorCacheSize < 0 {
		return fmt.Errorf("fasttext: negative vector cache size %d", c.VectorCacheSize)
	}
	return nil
}
