// Package config assembles the configuration of the wordembed command from
// environment variables, an optional .env file and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Aleph-Alpha/wordembed/v1/fasttext"
	"github.com/Aleph-Alpha/wordembed/v1/logger"
	"github.com/Aleph-Alpha/wordembed/v1/metrics"
	"github.com/Aleph-Alpha/wordembed/v1/modelstore"
	"github.com/Aleph-Alpha/wordembed/v1/tracer"
	"github.com/Aleph-Alpha/wordembed/v1/vectorexport"
)

// AppConfig is the configuration of every component the command can start.
type AppConfig struct {
	Logger       logger.Config        `yaml:"logger"`
	Metrics      metrics.Config       `yaml:"metrics"`
	Tracer       tracer.Config        `yaml:"tracer"`
	FastText     *fasttext.Config     `yaml:"fasttext"`
	ModelStore   *modelstore.Config   `yaml:"modelstore"`
	VectorExport *vectorexport.Config `yaml:"vectorexport"`
}

// Default returns the configuration derived from the environment alone.
func Default() *AppConfig {
	cfg := &AppConfig{
		Logger:       logger.NewConfig(),
		Metrics:      metrics.NewConfig(),
		Tracer:       tracer.NewConfig(),
		FastText:     fasttext.NewConfig(),
		ModelStore:   modelstore.NewConfig(),
		VectorExport: vectorexport.NewConfig(),
	}
	if cfg.Logger.Level == "" {
		cfg.Logger.Level = logger.Info
	}
	if cfg.Logger.ServiceName == "" {
		cfg.Logger.ServiceName = "wordembed"
	}
	if cfg.Tracer.ServiceName == "" {
		cfg.Tracer.ServiceName = "wordembed"
	}
	return cfg
}

// Load reads envFile (ignored when missing) into the process environment,
// builds the defaults and overlays the YAML file at path, if given. Values in
// the YAML file win over the environment.
func Load(envFile, path string) (*AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}
