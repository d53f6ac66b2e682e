package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Publisher sends persistent messages to durable queues through the default
// exchange. It never retries on its own: a call either gets a broker confirm
// or reports failure.
type Publisher struct {
	observed

	manager        *ConnectionManager
	contentType    string
	confirmTimeout time.Duration
	tracer         trace.Tracer
	now            func() time.Time
	newID          func() string
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithPublisherLogger attaches a logger. It defaults to the manager's.
func WithPublisherLogger(logger Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithPublisherObserver attaches an observer. It defaults to the manager's.
func WithPublisherObserver(observer Observer) PublisherOption {
	return func(p *Publisher) {
		p.observer = observer
	}
}

// NewPublisher creates a Publisher bound to m.
func NewPublisher(m *ConnectionManager, opts ...PublisherOption) *Publisher {
	cfg := m.Config()
	p := &Publisher{
		observed:       m.observed,
		manager:        m,
		contentType:    cfg.Channel.ContentType,
		confirmTimeout: cfg.Channel.PublishConfirmTimeout,
		tracer:         otel.Tracer(tracerName),
		now:            time.Now,
		newID:          func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish serialises payload as JSON (or sends it as is when it is a []byte
// or json.RawMessage) and sends it to queueName with persistent delivery.
//
// It returns true only when the broker confirmed the message. When no live
// channel is held it asks the manager to connect once; if that fails, or
// the broker is applying backpressure, or the confirm does not arrive within
// Channel.PublishConfirmTimeout, it returns false. It never panics or
// returns transport errors; use PublishRaw to get the reason.
func (p *Publisher) Publish(ctx context.Context, queueName string, payload interface{}) bool {
	body, err := encodePayload(payload)
	if err != nil {
		p.logWarn(ctx, "Message not published", err, map[string]interface{}{"queue": queueName})
		return false
	}
	return p.PublishRaw(ctx, queueName, body, nil) == nil
}

// PublishRaw has the semantics of Publish but returns why the message was
// not sent. The error is always a *PublishError.
func (p *Publisher) PublishRaw(ctx context.Context, queueName string, body []byte, headers map[string]interface{}) error {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "publish "+queueName,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination.name", queueName),
			attribute.Int("messaging.message.body.size", len(body)),
		),
	)
	defer span.End()

	err := p.publish(ctx, queueName, body, headers)
	p.observeOperation("publish", queueName, "", time.Since(start), err, int64(len(body)))

	if err != nil {
		perr := &PublishError{Queue: queueName, Err: err}
		span.RecordError(perr)
		span.SetStatus(codes.Error, perr.Error())
		p.logWarn(ctx, "Message not published", perr, map[string]interface{}{
			"queue": queueName,
			"size":  len(body),
		})
		return perr
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, queueName string, body []byte, headers map[string]interface{}) error {
	if strings.TrimSpace(queueName) == "" {
		return fmt.Errorf("%w: queue name is empty", ErrInvalidArgument)
	}

	sess := p.manager.session()
	if sess == nil {
		if err := p.manager.Reconnect(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrNotConnected, err)
		}
		if sess = p.manager.session(); sess == nil {
			return ErrNotConnected
		}
	}

	if p.manager.Blocked() {
		return ErrBackpressure
	}

	table := amqp.Table{}
	for k, v := range headers {
		table[k] = v
	}
	injectTrace(ctx, table)

	msg := amqp.Publishing{
		Headers:      table,
		ContentType:  p.contentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    p.newID(),
		Timestamp:    p.now().UTC(),
		Body:         body,
	}

	confirm, tag, err := sess.publish(ctx, queueName, msg)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.manager.reportFailure(sess, err)
		return TranslateError(err)
	}

	timer := time.NewTimer(p.confirmTimeout)
	defer timer.Stop()

	select {
	case c, ok := <-confirm:
		if !ok {
			return ErrChannelClosed
		}
		if !c.Ack {
			return ErrPublishNacked
		}
		return nil
	case <-timer.C:
		sess.forget(tag)
		return ErrPublishTimeout
	case <-ctx.Done():
		sess.forget(tag)
		return ctx.Err()
	}
}

func encodePayload(payload interface{}) ([]byte, error) {
	switch v := payload.(type) {
	case nil:
		return nil, fmt.Errorf("%w: payload is nil", ErrInvalidArgument)
	case []byte:
		return v, nil
	case json.RawMessage:
		return v, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Join(ErrInvalidArgument, err)
	}
	return body, nil
}
