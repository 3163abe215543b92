package modelstore

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// DefaultOperationTimeout bounds bucket checks done while connecting.
const DefaultOperationTimeout = 10 * time.Second

// Config holds the connection and layout settings of the model bucket.
type Config struct {
	// Connection contains the details needed to reach the MinIO or S3 server.
	Connection Connection `yaml:"connection"`

	// Prefix is prepended to every object name, e.g. "models/en".
	//
	// Environment variable: MODELSTORE_PREFIX
	Prefix string `yaml:"prefix" envconfig:"MODELSTORE_PREFIX"`

	// OperationTimeout bounds the bucket check and creation on connect.
	OperationTimeout time.Duration `yaml:"operation_timeout" envconfig:"MODELSTORE_OPERATION_TIMEOUT"`
}

// Connection contains the parameters needed to connect to the server.
type Connection struct {
	// Endpoint is the server address without scheme, e.g. "localhost:9000".
	Endpoint string `yaml:"endpoint" envconfig:"MODELSTORE_ENDPOINT"`

	AccessKeyID     string `yaml:"access_key_id" envconfig:"MODELSTORE_ACCESS_KEY"`
	SecretAccessKey string `yaml:"secret_access_key" envconfig:"MODELSTORE_SECRET_KEY"`

	// UseSSL switches the client to HTTPS.
	UseSSL bool `yaml:"use_ssl" envconfig:"MODELSTORE_USE_SSL"`

	// BucketName is created on connect when it does not exist yet.
	BucketName string `yaml:"bucket_name" envconfig:"MODELSTORE_BUCKET"`

	Region string `yaml:"region" envconfig:"MODELSTORE_REGION"`
}

// NewConfig reads the configuration from the environment.
func NewConfig() *Config {
	cfg := &Config{
		Connection: Connection{
			Endpoint:        os.Getenv("MODELSTORE_ENDPOINT"),
			AccessKeyID:     os.Getenv("MODELSTORE_ACCESS_KEY"),
			SecretAccessKey: os.Getenv("MODELSTORE_SECRET_KEY"),
			BucketName:      os.Getenv("MODELSTORE_BUCKET"),
			Region:          os.Getenv("MODELSTORE_REGION"),
		},
		Prefix:           os.Getenv("MODELSTORE_PREFIX"),
		OperationTimeout: DefaultOperationTimeout,
	}
	if v, err := strconv.ParseBool(os.Getenv("MODELSTORE_USE_SSL")); err == nil {
		cfg.Connection.UseSSL = v
	}
	if v := os.Getenv("MODELSTORE_OPERATION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.OperationTimeout = d
		}
	}
	return cfg
}

// Validate reports the first missing required setting.
func (c *Config) Validate() error {
	switch {
	case c.Connection.Endpoint == "":
		return errors.New("endpoint is empty")
	case c.Connection.BucketName == "":
		return errors.New("bucket name is empty")
	case c.Connection.AccessKeyID == "" || c.Connection.SecretAccessKey == "":
		return errors.New("credentials are empty")
	}
	return nil
}
