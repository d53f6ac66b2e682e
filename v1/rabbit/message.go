package rabbit

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// Message is one delivery handed to a HandlerFunc.
type Message interface {
	// AckMsg removes the message from the queue.
	AckMsg() error

	// NackMsg rejects the message, requeueing it when requeue is true.
	NackMsg(requeue bool) error

	Body() []byte
	Header() map[string]interface{}
	Queue() string
	MessageID() string

	// Redelivered is the broker's redelivery flag.
	Redelivered() bool

	// DeliveryCount is 1 on first delivery and grows with each redelivery
	// the consumer can observe.
	DeliveryCount() int
}

// ConsumerMessage wraps an amqp.Delivery.
type ConsumerMessage struct {
	queue      string
	delivery   amqp.Delivery
	deliveries int
}

var _ Message = (*ConsumerMessage)(nil)

func (m *ConsumerMessage) AckMsg() error {
	return m.delivery.Ack(false)
}

func (m *ConsumerMessage) NackMsg(requeue bool) error {
	return m.delivery.Nack(false, requeue)
}

func (m *ConsumerMessage) Body() []byte {
	return m.delivery.Body
}

func (m *ConsumerMessage) Header() map[string]interface{} {
	return m.delivery.Headers
}

func (m *ConsumerMessage) Queue() string {
	return m.queue
}

func (m *ConsumerMessage) MessageID() string {
	return m.delivery.MessageId
}

func (m *ConsumerMessage) Redelivered() bool {
	return m.delivery.Redelivered
}

func (m *ConsumerMessage) DeliveryCount() int {
	return m.deliveries
}
