package rabbit

import (
	"context"
	"errors"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

const confirmBuffer = 64

// session is one connection plus its channel. It is replaced as a whole on
// every reconnect and never reused after it is lost.
type session struct {
	generation uint64
	conn       amqpConnection
	ch         amqpChannel

	connClosed chan *amqp.Error
	chClosed   chan *amqp.Error
	blockings  chan amqp.Blocking

	// publishMu keeps publishes in call order and nextTag in step with the
	// broker's delivery tags.
	publishMu sync.Mutex
	nextTag   uint64

	pendingMu     sync.Mutex
	pending       map[uint64]chan amqp.Confirmation
	confirmsEnded bool

	closeOnce sync.Once
	closeErr  error
}

func newSession(conn amqpConnection, ch amqpChannel) *session {
	return &session{
		conn:    conn,
		ch:      ch,
		pending: make(map[uint64]chan amqp.Confirmation),
	}
}

// publish sends msg and returns a channel that yields the broker confirm.
// The returned channel is closed without a value if the channel dies first.
func (s *session) publish(ctx context.Context, queue string, msg amqp.Publishing) (<-chan amqp.Confirmation, uint64, error) {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	tag := s.nextTag + 1
	waiter := make(chan amqp.Confirmation, 1)

	s.pendingMu.Lock()
	if s.confirmsEnded {
		s.pendingMu.Unlock()
		return nil, 0, ErrChannelClosed
	}
	s.pending[tag] = waiter
	s.pendingMu.Unlock()

	if err := s.ch.PublishWithContext(ctx, "", queue, false, false, msg); err != nil {
		s.forget(tag)
		return nil, 0, err
	}
	s.nextTag = tag
	return waiter, tag, nil
}

// forget drops the waiter for tag so a late confirm is discarded.
func (s *session) forget(tag uint64) {
	s.pendingMu.Lock()
	delete(s.pending, tag)
	s.pendingMu.Unlock()
}

// dispatchConfirms routes confirms to their waiters until the channel closes,
// then releases every remaining waiter.
func (s *session) dispatchConfirms(confirms <-chan amqp.Confirmation) {
	for c := range confirms {
		s.pendingMu.Lock()
		waiter, ok := s.pending[c.DeliveryTag]
		delete(s.pending, c.DeliveryTag)
		s.pendingMu.Unlock()
		if ok {
			waiter <- c
		}
	}

	s.pendingMu.Lock()
	s.confirmsEnded = true
	for tag, waiter := range s.pending {
		close(waiter)
		delete(s.pending, tag)
	}
	s.pendingMu.Unlock()
}

// close releases the channel and then the connection. Safe to call more
// than once.
func (s *session) close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if !s.ch.IsClosed() {
			if err := s.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
				errs = append(errs, &ShutdownError{Op: "close channel", Err: err})
			}
		}
		if !s.conn.IsClosed() {
			if err := s.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
				errs = append(errs, &ShutdownError{Op: "close connection", Err: err})
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// closeWithin is close bounded by ctx.
func (s *session) closeWithin(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- s.close() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return &ShutdownError{Op: "close", Err: ctx.Err()}
	}
}
