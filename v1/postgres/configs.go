package postgres

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Config defines the Postgres connection used by the dead-letter store.
type Config struct {
	Connection        Connection
	ConnectionDetails ConnectionDetails
}

type Connection struct {
	Host     string `yaml:"host" envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     string `yaml:"port" envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `yaml:"user" envconfig:"POSTGRES_USER" default:"postgres"`
	Password string `yaml:"password" envconfig:"POSTGRES_PASSWORD"`
	DbName   string `yaml:"db_name" envconfig:"POSTGRES_DB" default:"catalog"`
	SSLMode  string `yaml:"ssl_mode" envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

type ConnectionDetails struct {
	MaxOpenConns    int           `yaml:"max_open_conns" envconfig:"POSTGRES_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns" envconfig:"POSTGRES_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" envconfig:"POSTGRES_CONN_MAX_LIFETIME" default:"5m"`

	// MonitorInterval is how often the connection is pinged.
	MonitorInterval time.Duration `yaml:"monitor_interval" envconfig:"POSTGRES_MONITOR_INTERVAL" default:"10s"`
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c.Connection,
		validation.Field(&c.Connection.Host, validation.Required),
		validation.Field(&c.Connection.Port, validation.Required),
		validation.Field(&c.Connection.User, validation.Required),
		validation.Field(&c.Connection.DbName, validation.Required),
		validation.Field(&c.Connection.SSLMode, validation.In("disable", "allow", "prefer", "require", "verify-ca", "verify-full")),
	)
}

// DSN renders the key/value connection string understood by pgx.
func (c Config) DSN() string {
	sslMode := c.Connection.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Connection.Host,
		c.Connection.Port,
		c.Connection.User,
		c.Connection.Password,
		c.Connection.DbName,
		sslMode)
}

func (c ConnectionDetails) withDefaults() ConnectionDetails {
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
	if c.MonitorInterval == 0 {
		c.MonitorInterval = 10 * time.Second
	}
	return c
}
