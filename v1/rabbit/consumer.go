package rabbit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// HandlerFunc processes one message. Returning nil acks it. Returning an
// error built with Malformed drops it without requeue. Any other error
// requeues it.
type HandlerFunc func(ctx context.Context, msg Message) error

// Resolver maps a delivery to the kind its handler is registered under.
// A resolver error is treated as a malformed message.
type Resolver func(queue string, body []byte) (string, error)

// QueueResolver dispatches every message of a queue to the handler
// registered under the queue name.
func QueueResolver(queue string, _ []byte) (string, error) {
	return queue, nil
}

// DropReason says why a message was nacked without requeue.
type DropReason string

const (
	DropMalformed DropReason = "malformed"
	DropExhausted DropReason = "exhausted"
)

// DroppedMessage is passed to the drop hook before the nack.
type DroppedMessage struct {
	Queue  string
	Kind   string
	Reason DropReason
	Err    error
	Msg    Message
}

// DropHook observes dropped messages, e.g. to audit them or report a final
// failure to the owning system. It must not ack or nack the message.
type DropHook func(ctx context.Context, dropped DroppedMessage)

type outcome int

const (
	outcomeAck outcome = iota
	outcomeRequeue
	outcomeDrop
)

func (o outcome) String() string {
	switch o {
	case outcomeAck:
		return "ack"
	case outcomeRequeue:
		return "requeue"
	default:
		return "drop"
	}
}

// Consumer subscribes to one queue with manual acknowledgement and
// dispatches deliveries to registered handlers.
type Consumer struct {
	observed

	manager        *ConnectionManager
	queue          string
	tag            string
	resolver       Resolver
	concurrency    int
	maxDeliveries  int
	resubscribeGap time.Duration
	dropHook       DropHook
	tracer         trace.Tracer

	handlersMu sync.RWMutex
	handlers   map[string]HandlerFunc

	attemptsMu sync.Mutex
	attempts   map[string]int
}

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithResolver sets how a delivery's handler kind is found. The default is
// QueueResolver.
func WithResolver(r Resolver) ConsumerOption {
	return func(c *Consumer) {
		c.resolver = r
	}
}

// WithConcurrency sets how many handlers may run at once. Values above one
// only help when Channel.PrefetchCount is at least as large.
func WithConcurrency(n int) ConsumerOption {
	return func(c *Consumer) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithMaxDeliveries bounds how often a message is handed to a failing
// handler. When the bound is reached the message is dropped with reason
// DropExhausted instead of being requeued. Zero means unbounded.
func WithMaxDeliveries(n int) ConsumerOption {
	return func(c *Consumer) {
		c.maxDeliveries = n
	}
}

// WithDropHook registers a hook for messages nacked without requeue.
func WithDropHook(h DropHook) ConsumerOption {
	return func(c *Consumer) {
		c.dropHook = h
	}
}

// WithConsumerLogger attaches a logger. It defaults to the manager's.
func WithConsumerLogger(logger Logger) ConsumerOption {
	return func(c *Consumer) {
		c.logger = logger
	}
}

// WithConsumerObserver attaches an observer. It defaults to the manager's.
func WithConsumerObserver(observer Observer) ConsumerOption {
	return func(c *Consumer) {
		c.observer = observer
	}
}

// NewConsumer creates a consumer for queue. The queue should also be listed
// in the manager's Channel.Queues so it is declared before subscribing.
func NewConsumer(m *ConnectionManager, queue string, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		observed:       m.observed,
		manager:        m,
		queue:          queue,
		tag:            queue + "-" + uuid.NewString(),
		resolver:       QueueResolver,
		concurrency:    1,
		resubscribeGap: 250 * time.Millisecond,
		tracer:         otel.Tracer(tracerName),
		handlers:       make(map[string]HandlerFunc),
		attempts:       make(map[string]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle registers h for kind, replacing any earlier handler.
func (c *Consumer) Handle(kind string, h HandlerFunc) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers[kind] = h
}

// Queue returns the consumed queue name.
func (c *Consumer) Queue() string {
	return c.queue
}

// Consume subscribes and dispatches until ctx is cancelled or the manager
// shuts down, in which case it returns nil. After a connection loss it
// waits for the manager to reconnect and subscribes again; unacknowledged
// deliveries are redelivered by the broker.
//
// Handlers run with a context that is not cancelled with ctx, so a handler
// in flight at shutdown finishes and settles its message.
func (c *Consumer) Consume(ctx context.Context) error {
	if c.queue == "" {
		return fmt.Errorf("%w: queue name is empty", ErrInvalidArgument)
	}
	c.handlersMu.RLock()
	registered := len(c.handlers)
	c.handlersMu.RUnlock()
	if registered == 0 {
		return fmt.Errorf("%w: no handlers registered for %q", ErrInvalidArgument, c.queue)
	}

	for {
		sess, err := c.manager.waitSession(ctx)
		if err != nil {
			c.logInfo(ctx, "Stopping consumer", map[string]interface{}{
				"queue":  c.queue,
				"reason": err.Error(),
			})
			return nil
		}

		deliveries, err := sess.ch.Consume(c.queue, c.tag, false, false, false, false, nil)
		if err != nil {
			c.logError(ctx, "Failed to establish consumer", err, map[string]interface{}{"queue": c.queue})
			c.observeOperation("subscribe", c.queue, "", 0, err, 0)
			if IsConnectionError(err) {
				c.manager.reportFailure(sess, err)
			}
			if !c.pause(ctx) {
				return nil
			}
			continue
		}

		c.logInfo(ctx, "Consumer subscribed", map[string]interface{}{
			"queue":       c.queue,
			"consumer":    c.tag,
			"concurrency": c.concurrency,
		})

		if stopped := c.drain(ctx, sess, deliveries); stopped {
			return nil
		}
		c.logWarn(ctx, "Delivery stream closed, waiting for reconnect", nil, map[string]interface{}{"queue": c.queue})
	}
}

func (c *Consumer) pause(ctx context.Context) bool {
	timer := time.NewTimer(c.resubscribeGap)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	case <-c.manager.shutdownSignal:
		return false
	}
}

// drain dispatches deliveries until the stream closes (false) or ctx is
// done or the manager shuts down (true).
func (c *Consumer) drain(ctx context.Context, sess *session, deliveries <-chan amqp.Delivery) bool {
	var group errgroup.Group
	group.SetLimit(c.concurrency)
	defer func() { _ = group.Wait() }()

	handlerCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			c.cancel(sess)
			return true
		case <-c.manager.shutdownSignal:
			return true
		case d, ok := <-deliveries:
			if !ok {
				return false
			}
			group.Go(func() error {
				c.handle(handlerCtx, d)
				return nil
			})
		}
	}
}

func (c *Consumer) cancel(sess *session) {
	if err := sess.ch.Cancel(c.tag, false); err != nil && !errors.Is(err, amqp.ErrClosed) {
		c.logWarn(context.Background(), "Failed to cancel consumer", err, map[string]interface{}{"queue": c.queue})
	}
}

// handle runs the handler for d and settles it.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	start := time.Now()
	msg := &ConsumerMessage{
		queue:      c.queue,
		delivery:   d,
		deliveries: c.deliveryCount(d),
	}

	ctx = extractTrace(ctx, d.Headers)
	ctx, span := c.tracer.Start(ctx, "process "+c.queue,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination.name", c.queue),
			attribute.String("messaging.message.id", d.MessageId),
			attribute.Int("messaging.rabbitmq.delivery_count", msg.deliveries),
		),
	)
	defer span.End()

	kind, result, err := c.dispatch(ctx, msg)
	span.SetAttributes(attribute.String("messaging.operation.outcome", result.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	fields := map[string]interface{}{
		"queue":          c.queue,
		"kind":           kind,
		"message_id":     d.MessageId,
		"delivery_count": msg.deliveries,
		"outcome":        result.String(),
	}

	var settleErr error
	switch result {
	case outcomeAck:
		if settleErr = msg.AckMsg(); settleErr != nil {
			settleErr = fmt.Errorf("%w: %w", ErrAckFailed, settleErr)
		}
		c.forgetAttempts(d)
	case outcomeRequeue:
		c.logWarn(ctx, "Handler failed, message requeued", err, fields)
		if settleErr = msg.NackMsg(true); settleErr != nil {
			settleErr = fmt.Errorf("%w: %w", ErrNackFailed, settleErr)
		}
	case outcomeDrop:
		reason := DropMalformed
		if !IsMalformed(err) {
			reason = DropExhausted
		}
		fields["reason"] = string(reason)
		c.logError(ctx, "Message dropped without requeue", err, fields)
		if c.dropHook != nil {
			c.dropHook(ctx, DroppedMessage{Queue: c.queue, Kind: kind, Reason: reason, Err: err, Msg: msg})
		}
		if settleErr = msg.NackMsg(false); settleErr != nil {
			settleErr = fmt.Errorf("%w: %w", ErrNackFailed, settleErr)
		}
		c.forgetAttempts(d)
	}

	// A failed ack or nack means the channel is gone. The broker redelivers
	// the message after reconnect, so this is logged and not retried.
	if settleErr != nil {
		c.logError(ctx, "Failed to settle message", settleErr, fields)
	}
	c.observeOperation("consume", c.queue, result.String(), time.Since(start), errors.Join(err, settleErr), int64(len(d.Body)))
}

// dispatch resolves the handler, runs it and decides the outcome.
func (c *Consumer) dispatch(ctx context.Context, msg *ConsumerMessage) (string, outcome, error) {
	kind, err := c.resolver(c.queue, msg.Body())
	if err != nil {
		if !IsMalformed(err) {
			err = Malformed("unresolvable message", err)
		}
		return kind, outcomeDrop, err
	}

	c.handlersMu.RLock()
	h, ok := c.handlers[kind]
	c.handlersMu.RUnlock()
	if !ok {
		return kind, outcomeDrop, Malformed(fmt.Sprintf("no handler for %q", kind), nil)
	}

	err = c.invoke(ctx, h, msg)
	switch {
	case err == nil:
		return kind, outcomeAck, nil
	case IsMalformed(err):
		return kind, outcomeDrop, err
	case c.maxDeliveries > 0 && msg.deliveries >= c.maxDeliveries:
		return kind, outcomeDrop, fmt.Errorf("gave up after %d deliveries: %w", msg.deliveries, err)
	default:
		return kind, outcomeRequeue, NewHandlerError(err)
	}
}

// invoke runs h and turns a panic into a retryable error.
func (c *Consumer) invoke(ctx context.Context, h HandlerFunc, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, msg)
}

// deliveryCount prefers the broker's x-delivery-count header (quorum
// queues) and otherwise counts deliveries locally, keyed by attemptKey.
func (c *Consumer) deliveryCount(d amqp.Delivery) int {
	if n, ok := headerInt(d.Headers, headerDeliveryCount); ok {
		return n + 1
	}

	key := attemptKey(d)
	c.attemptsMu.Lock()
	defer c.attemptsMu.Unlock()
	c.attempts[key]++
	n := c.attempts[key]
	if d.Redelivered && n == 1 {
		// first sight after a restart of this process
		n = 2
		c.attempts[key] = n
	}
	return n
}

func (c *Consumer) forgetAttempts(d amqp.Delivery) {
	if _, ok := headerInt(d.Headers, headerDeliveryCount); ok {
		return
	}
	c.attemptsMu.Lock()
	delete(c.attempts, attemptKey(d))
	c.attemptsMu.Unlock()
}

// attemptKey identifies a message across redeliveries: its message id, or a
// digest of the body for producers that publish without one.
func attemptKey(d amqp.Delivery) string {
	if d.MessageId != "" {
		return "id:" + d.MessageId
	}
	sum := sha256.Sum256(d.Body)
	return "body:" + hex.EncodeToString(sum[:])
}
