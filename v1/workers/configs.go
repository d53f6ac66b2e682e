package workers

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config tunes the consumer processes.
type Config struct {
	// Concurrency is the number of messages handled in parallel per process.
	Concurrency int `yaml:"concurrency" envconfig:"WORKER_CONCURRENCY" default:"1"`

	// MaxDeliveries bounds how often a failing message is attempted before
	// it is dropped and dead-lettered.
	MaxDeliveries int `yaml:"max_deliveries" envconfig:"WORKER_MAX_DELIVERIES" default:"3"`

	Images ImageConfig
}

type ImageConfig struct {
	DownloadTimeout time.Duration `yaml:"download_timeout" envconfig:"IMAGE_DOWNLOAD_TIMEOUT" default:"30s"`
	MaxBytes        int64         `yaml:"max_bytes" envconfig:"IMAGE_MAX_BYTES" default:"20971520"`

	// Prefix is the object key prefix and the public path of processed images.
	Prefix string `yaml:"prefix" envconfig:"IMAGE_PREFIX" default:"processed"`

	MainWidth    int `yaml:"main_width" envconfig:"IMAGE_MAIN_WIDTH" default:"800"`
	MainHeight   int `yaml:"main_height" envconfig:"IMAGE_MAIN_HEIGHT" default:"600"`
	ThumbWidth   int `yaml:"thumb_width" envconfig:"IMAGE_THUMB_WIDTH" default:"250"`
	ThumbHeight  int `yaml:"thumb_height" envconfig:"IMAGE_THUMB_HEIGHT" default:"150"`
	MainQuality  int `yaml:"main_quality" envconfig:"IMAGE_MAIN_QUALITY" default:"85"`
	ThumbQuality int `yaml:"thumb_quality" envconfig:"IMAGE_THUMB_QUALITY" default:"75"`
}

// WithDefaults fills zero values.
func (c Config) WithDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.MaxDeliveries <= 0 {
		c.MaxDeliveries = 3
	}
	c.Images = c.Images.withDefaults()
	return c
}

func (c ImageConfig) withDefaults() ImageConfig {
	if c.DownloadTimeout <= 0 {
		c.DownloadTimeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 20 << 20
	}
	if c.Prefix == "" {
		c.Prefix = "processed"
	}
	if c.MainWidth <= 0 || c.MainHeight <= 0 {
		c.MainWidth, c.MainHeight = 800, 600
	}
	if c.ThumbWidth <= 0 || c.ThumbHeight <= 0 {
		c.ThumbWidth, c.ThumbHeight = 250, 150
	}
	if c.MainQuality <= 0 {
		c.MainQuality = 85
	}
	if c.ThumbQuality <= 0 {
		c.ThumbQuality = 75
	}
	return c
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Concurrency, validation.Min(1), validation.Max(64)),
		validation.Field(&c.MaxDeliveries, validation.Min(1)),
		validation.Field(&c.Images),
	)
}

func (c ImageConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MainQuality, validation.Min(1), validation.Max(100)),
		validation.Field(&c.ThumbQuality, validation.Min(1), validation.Max(100)),
	)
}
