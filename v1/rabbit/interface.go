package rabbit

import "context"

// MessagePublisher is the publishing side used by domain code.
// *Publisher implements it.
type MessagePublisher interface {
	Publish(ctx context.Context, queueName string, payload interface{}) bool
	PublishRaw(ctx context.Context, queueName string, body []byte, headers map[string]interface{}) error
}

// ConnectionStatus is the read-only view of the manager used by health
// checks. *ConnectionManager implements it.
type ConnectionStatus interface {
	IsConnected() bool
	Blocked() bool
	State() State
	LastError() error
}

var (
	_ MessagePublisher = (*Publisher)(nil)
	_ ConnectionStatus = (*ConnectionManager)(nil)
)
