package rabbit

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// amqpConnection is the part of *amqp.Connection the manager uses.
type amqpConnection interface {
	Channel() (amqpChannel, error)
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	NotifyBlocked(receiver chan amqp.Blocking) chan amqp.Blocking
	IsClosed() bool
	Close() error
}

// amqpChannel is the part of *amqp.Channel the manager, publisher and
// consumer use.
type amqpChannel interface {
	Confirm(noWait bool) error
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
	IsClosed() bool
	Close() error
}

type dialer func(uri string, cfg amqp.Config) (amqpConnection, error)

type connectionAdapter struct {
	*amqp.Connection
}

func (c connectionAdapter) Channel() (amqpChannel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func dialAMQP(uri string, cfg amqp.Config) (amqpConnection, error) {
	conn, err := amqp.DialConfig(uri, cfg)
	if err != nil {
		return nil, err
	}
	return connectionAdapter{conn}, nil
}

// amqpConfig builds the dial configuration, loading TLS material for
// amqps:// URIs.
func amqpConfig(cfg Connection) (amqp.Config, error) {
	props := amqp.NewConnectionProperties()
	if cfg.ConnectionName != "" {
		props.SetClientConnectionName(cfg.ConnectionName)
	}

	config := amqp.Config{
		Heartbeat:  cfg.Heartbeat,
		Locale:     "en_US",
		Dial:       amqp.DefaultDial(cfg.DialTimeout),
		Properties: props,
	}

	if !strings.HasPrefix(cfg.URI, "amqps://") {
		return config, nil
	}

	tlsConfig := &tls.Config{
		ServerName: cfg.ServerName,
		MinVersion: tls.VersionTLS12,
	}
	if cfg.CACertPath != "" {
		caCert, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return config, fmt.Errorf("%w: read CA cert: %v", ErrCertificateError, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return config, fmt.Errorf("%w: no certificates in %s", ErrCertificateError, cfg.CACertPath)
		}
		tlsConfig.RootCAs = pool
	}
	if cfg.UseCert {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			return config, fmt.Errorf("%w: load client cert: %v", ErrCertificateError, err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	config.TLSClientConfig = tlsConfig
	return config, nil
}
