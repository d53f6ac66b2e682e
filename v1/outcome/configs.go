package outcome

import (
	"errors"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	DefaultBackendURL    = "http://localhost:3000"
	DefaultTimeout       = 10 * time.Second
	DefaultRetryCount    = 2
	DefaultRetryInterval = time.Second
)

// Config points the reporter at the catalog backend.
type Config struct {
	BackendURL    string        `yaml:"backend_url" envconfig:"BACKEND_URL" default:"http://localhost:3000"`
	Timeout       time.Duration `yaml:"timeout" envconfig:"BACKEND_TIMEOUT" default:"10s"`
	RetryCount    int           `yaml:"retry_count" envconfig:"BACKEND_RETRY_COUNT" default:"2"`
	RetryInterval time.Duration `yaml:"retry_interval" envconfig:"BACKEND_RETRY_INTERVAL" default:"1s"`
}

// WithDefaults fills zero values.
func (c Config) WithDefaults() Config {
	if c.BackendURL == "" {
		c.BackendURL = DefaultBackendURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RetryCount < 0 {
		c.RetryCount = 0
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = DefaultRetryInterval
	}
	return c
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.BackendURL, validation.Required, validation.By(func(value interface{}) error {
			u, err := url.Parse(value.(string))
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return errors.New("must be an absolute http or https URL")
			}
			return nil
		})),
		validation.Field(&c.RetryCount, validation.Min(0), validation.Max(10)),
	)
}
