package minio

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config holds the object storage settings for processed images.
type Config struct {
	Connection ConnectionConfig

	// HealthCheckInterval is how often the bucket is probed. Zero uses 30s.
	HealthCheckInterval time.Duration `yaml:"health_check_interval" envconfig:"MINIO_HEALTH_CHECK_INTERVAL" default:"30s"`
}

type ConnectionConfig struct {
	Endpoint        string `yaml:"endpoint" envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" envconfig:"MINIO_ACCESS_KEY_ID" default:"minioadmin"`
	SecretAccessKey string `yaml:"secret_access_key" envconfig:"MINIO_SECRET_ACCESS_KEY" default:"minioadmin"`
	UseSSL          bool   `yaml:"use_ssl" envconfig:"MINIO_USE_SSL" default:"false"`
	BucketName      string `yaml:"bucket_name" envconfig:"MINIO_BUCKET" default:"catalog-images"`
	Region          string `yaml:"region" envconfig:"MINIO_REGION" default:"us-east-1"`

	// AccessBucketCreation allows creating the bucket when it is missing.
	AccessBucketCreation bool `yaml:"access_bucket_creation" envconfig:"MINIO_CREATE_BUCKET" default:"true"`
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c.Connection,
		validation.Field(&c.Connection.Endpoint, validation.Required),
		validation.Field(&c.Connection.BucketName, validation.Required, validation.Length(3, 63)),
	)
}

func (c Config) healthCheckInterval() time.Duration {
	if c.HealthCheckInterval <= 0 {
		return 30 * time.Second
	}
	return c.HealthCheckInterval
}
