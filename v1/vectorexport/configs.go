package vectorexport

import (
	"errors"
	"os"
	"strconv"
)

const (
	defaultPort      = 6334
	defaultBatchSize = 200
)

// Config holds the Qdrant connection and the target collection.
type Config struct {
	Endpoint string `yaml:"endpoint" env:"QDRANT_ENDPOINT"`

	// Port is the gRPC port, 6334 by default.
	Port int `yaml:"port" env:"QDRANT_PORT"`

	ApiKey string `yaml:"api_key" env:"QDRANT_API_KEY"`

	UseTLS bool `yaml:"use_tls" env:"QDRANT_USE_TLS"`

	// Collection receives one point per vocabulary word.
	Collection string `yaml:"collection" env:"QDRANT_COLLECTION"`

	// BatchSize is the number of points per upsert request.
	BatchSize int `yaml:"batch_size" env:"QDRANT_BATCH_SIZE"`

	CheckCompatibility bool `yaml:"check_compatibility" env:"QDRANT_CHECK_COMPATIBILITY"`
}

// DefaultConfig returns a configuration for a local Qdrant instance.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:   "localhost",
		Port:       defaultPort,
		Collection: "word_vectors",
		BatchSize:  defaultBatchSize,
	}
}

// NewConfig starts from DefaultConfig and applies the environment.
func NewConfig() *Config {
	cfg := DefaultConfig()
	if v := os.Getenv("QDRANT_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v, err := strconv.Atoi(os.Getenv("QDRANT_PORT")); err == nil && v > 0 {
		cfg.Port = v
	}
	cfg.ApiKey = os.Getenv("QDRANT_API_KEY")
	if v, err := strconv.ParseBool(os.Getenv("QDRANT_USE_TLS")); err == nil {
		cfg.UseTLS = v
	}
	if v := os.Getenv("QDRANT_COLLECTION"); v != "" {
		cfg.Collection = v
	}
	if v, err := strconv.Atoi(os.Getenv("QDRANT_BATCH_SIZE")); err == nil && v > 0 {
		cfg.BatchSize = v
	}
	if v, err := strconv.ParseBool(os.Getenv("QDRANT_CHECK_COMPATIBILITY")); err == nil {
		cfg.CheckCompatibility = v
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("qdrant endpoint is empty")
	}
	if c.Collection == "" {
		return errors.New("qdrant collection is empty")
	}
	return nil
}
