package rabbit

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ConnectionManager owns the broker connection and its channel.
//
// All state transitions run on one scheduler goroutine started by Start.
// Close notifications, publisher reconnect requests and retry timers are
// posted to it as events, so a reconnect in progress never races a
// concurrent publish. Publishers and consumers read the current session
// through accessors on every call and never cache it.
type ConnectionManager struct {
	observed

	cfg  Config
	uri  string
	dial dialer

	mu         sync.RWMutex
	state      State
	current    *session
	lastErr    error
	ready      chan struct{}
	generation uint64

	blocked atomic.Bool
	started atomic.Bool

	// failures counts consecutive scheduled retries. Scheduler goroutine only.
	failures int

	events         chan event
	startOnce      sync.Once
	shutdownOnce   sync.Once
	shutdownSignal chan struct{}
	done           chan struct{}
}

type eventKind int

const (
	eventLost eventKind = iota
	eventConnect
	eventSchedule
)

type event struct {
	kind       eventKind
	generation uint64
	err        error

	// reply and retryOnFailure are set for eventConnect.
	reply          chan error
	retryOnFailure bool
}

// Option configures a ConnectionManager.
type Option func(*ConnectionManager)

// WithLogger attaches a logger.
func WithLogger(logger Logger) Option {
	return func(m *ConnectionManager) {
		m.logger = logger
	}
}

// WithObserver attaches an observer that receives connect operations.
func WithObserver(observer Observer) Option {
	return func(m *ConnectionManager) {
		m.observer = observer
	}
}

func withDialer(d dialer) Option {
	return func(m *ConnectionManager) {
		m.dial = d
	}
}

// NewConnectionManager creates a manager in the Disconnected state. No
// network I/O happens until Start.
func NewConnectionManager(cfg Config, opts ...Option) *ConnectionManager {
	cfg = cfg.WithDefaults()
	m := &ConnectionManager{
		cfg:            cfg,
		uri:            redactURI(cfg.Connection.URI),
		dial:           dialAMQP,
		state:          StateDisconnected,
		ready:          make(chan struct{}),
		events:         make(chan event, 16),
		shutdownSignal: make(chan struct{}),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the effective configuration, defaults included.
func (m *ConnectionManager) Config() Config {
	return m.cfg
}

// State returns the current state.
func (m *ConnectionManager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected reports whether a live connection and channel are held. Host
// processes surface this on their health endpoint.
func (m *ConnectionManager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateConnected && m.current != nil
}

// LastError returns the error that caused the last failed connect or the
// last connection loss. It is nil while connected.
func (m *ConnectionManager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Blocked reports whether the broker has blocked publishing on the current
// connection (memory or disk alarm).
func (m *ConnectionManager) Blocked() bool {
	return m.blocked.Load()
}

// Start launches the scheduler and performs the bounded startup connect.
//
// Up to Startup.MaxAttempts attempts are made, Startup.RetryDelay apart.
// When they are all used up Start returns a *StartupConnectError if
// Startup.FailFast is set. Otherwise it logs, leaves background reconnection
// running and returns nil.
func (m *ConnectionManager) Start(ctx context.Context) error {
	if err := m.cfg.Validate(); err != nil {
		return fmt.Errorf("%w: rabbit config: %v", ErrInvalidArgument, err)
	}
	select {
	case <-m.shutdownSignal:
		return ErrShutdown
	default:
	}

	m.startOnce.Do(func() {
		m.started.Store(true)
		go m.run()
	})

	attempts := m.cfg.Startup.MaxAttempts
	var lastErr error
	made := 0

attemptLoop:
	for made < attempts {
		made++
		err := m.requestConnect(ctx, false)
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, ErrShutdown) || ctx.Err() != nil {
			break
		}

		m.logWarn(ctx, "RabbitMQ startup connection attempt failed", err, map[string]interface{}{
			"attempt":      made,
			"max_attempts": attempts,
			"uri":          m.uri,
		})
		if made == attempts {
			break
		}

		timer := time.NewTimer(m.cfg.Startup.RetryDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			lastErr = ctx.Err()
			break attemptLoop
		case <-m.shutdownSignal:
			timer.Stop()
			return ErrShutdown
		}
	}

	if m.cfg.Startup.FailFast {
		return &StartupConnectError{Attempts: made, Err: lastErr}
	}

	m.logWarn(ctx, "RabbitMQ unreachable at startup, continuing in degraded mode", lastErr, map[string]interface{}{
		"attempts":        made,
		"reconnect_delay": m.cfg.Channel.ReconnectDelay.String(),
	})
	m.post(event{kind: eventSchedule})
	return nil
}

// Reconnect makes one synchronous connect attempt on the scheduler. It
// returns nil immediately if already connected. A failure also schedules a
// background retry.
func (m *ConnectionManager) Reconnect(ctx context.Context) error {
	if !m.started.Load() {
		return ErrNotConnected
	}
	return m.requestConnect(ctx, true)
}

// WaitConnected blocks until the manager holds a live session, ctx is done
// or the manager shuts down.
func (m *ConnectionManager) WaitConnected(ctx context.Context) error {
	_, err := m.waitSession(ctx)
	return err
}

// GracefulShutdown stops the scheduler and closes the channel, then the
// connection, bounded by Channel.ShutdownTimeout. Failures are returned as
// *ShutdownError values and logged. Calling it again is a no-op.
func (m *ConnectionManager) GracefulShutdown(ctx context.Context) error {
	var result error

	m.shutdownOnce.Do(func() {
		m.logInfo(ctx, "Shutting down RabbitMQ connection manager", nil)

		m.mu.Lock()
		m.transitionLocked(ctx, triggerShutdown)
		sess := m.current
		m.current = nil
		m.ready = make(chan struct{})
		m.mu.Unlock()

		close(m.shutdownSignal)

		ctx, cancel := context.WithTimeout(ctx, m.cfg.Channel.ShutdownTimeout)
		defer cancel()

		if m.started.Load() {
			select {
			case <-m.done:
			case <-ctx.Done():
				result = &ShutdownError{Op: "stop scheduler", Err: ctx.Err()}
			}
		}

		if sess != nil {
			start := time.Now()
			err := sess.closeWithin(ctx)
			m.observeOperation("close", m.uri, "", time.Since(start), err, 0)
			result = errors.Join(result, err)
		}

		if result != nil {
			m.logWarn(ctx, "RabbitMQ shutdown did not complete cleanly", result, nil)
			return
		}
		m.logInfo(ctx, "RabbitMQ connection closed", nil)
	})

	return result
}

func (m *ConnectionManager) session() *session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *ConnectionManager) waitSession(ctx context.Context) (*session, error) {
	for {
		m.mu.RLock()
		sess, ready := m.current, m.ready
		m.mu.RUnlock()
		if sess != nil {
			return sess, nil
		}

		select {
		case <-ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-m.shutdownSignal:
			return nil, ErrShutdown
		}
	}
}

// reportFailure tells the scheduler that sess failed during an operation.
func (m *ConnectionManager) reportFailure(sess *session, err error) {
	m.post(event{
		kind:       eventLost,
		generation: sess.generation,
		err:        fmt.Errorf("%w: %w", ErrConnectionLost, err),
	})
}

func (m *ConnectionManager) requestConnect(ctx context.Context, retryOnFailure bool) error {
	reply := make(chan error, 1)
	select {
	case m.events <- event{kind: eventConnect, reply: reply, retryOnFailure: retryOnFailure}:
	case <-ctx.Done():
		return ctx.Err()
	case <-m.shutdownSignal:
		return ErrShutdown
	}

	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-m.shutdownSignal:
		return ErrShutdown
	}
}

func (m *ConnectionManager) post(ev event) {
	select {
	case m.events <- ev:
	case <-m.shutdownSignal:
	}
}

// run is the scheduler. It is the only goroutine that dials.
func (m *ConnectionManager) run() {
	defer close(m.done)

	var (
		retry  *time.Timer
		retryC <-chan time.Time
	)
	schedule := func() {
		if retryC != nil {
			return
		}
		delay := m.nextDelay()
		m.failures++
		retry = time.NewTimer(delay)
		retryC = retry.C
		m.logInfo(context.Background(), "RabbitMQ reconnect scheduled", map[string]interface{}{
			"delay": delay.String(),
			"retry": m.failures,
		})
	}
	cancelRetry := func() {
		if retry != nil {
			retry.Stop()
		}
		retryC = nil
		m.failures = 0
	}

	for {
		select {
		case <-m.shutdownSignal:
			if retry != nil {
				retry.Stop()
			}
			return

		case ev := <-m.events:
			switch ev.kind {
			case eventLost:
				if m.handleLost(ev) {
					schedule()
				}
			case eventConnect:
				err := m.ensureConnected()
				if err == nil {
					cancelRetry()
				} else if ev.retryOnFailure {
					schedule()
				}
				ev.reply <- err
			case eventSchedule:
				schedule()
			}

		case <-retryC:
			retryC = nil
			if err := m.ensureConnected(); err != nil {
				if errors.Is(err, ErrShutdown) {
					continue
				}
				schedule()
				continue
			}
			m.failures = 0
		}
	}
}

// nextDelay returns the fixed reconnect delay, or an exponential delay with
// equal jitter when MaxReconnectDelay is above it.
func (m *ConnectionManager) nextDelay() time.Duration {
	base := m.cfg.Channel.ReconnectDelay
	ceiling := m.cfg.Channel.MaxReconnectDelay
	if ceiling <= base {
		return base
	}

	d := base
	for i := 0; i < m.failures && d < ceiling; i++ {
		d *= 2
	}
	if d > ceiling {
		d = ceiling
	}
	half := d / 2
	return half + time.Duration(rand.Int64N(int64(half)+1))
}

func (m *ConnectionManager) ensureConnected() error {
	m.mu.RLock()
	connected := m.current != nil
	m.mu.RUnlock()
	if connected {
		return nil
	}
	return m.connect(context.Background())
}

// connect dials, opens the channel and declares the topology. Scheduler
// goroutine only.
func (m *ConnectionManager) connect(ctx context.Context) error {
	m.mu.Lock()
	if !m.transitionLocked(ctx, triggerDial) {
		m.mu.Unlock()
		return ErrShutdown
	}
	m.mu.Unlock()

	start := time.Now()
	sess, err := m.open()
	m.observeOperation("connect", m.uri, "", time.Since(start), err, 0)

	m.mu.Lock()
	if err != nil {
		cerr := &ConnectError{URI: m.uri, Err: err}
		m.lastErr = cerr
		m.transitionLocked(ctx, triggerFailed)
		m.mu.Unlock()
		m.logWarn(ctx, "RabbitMQ connection attempt failed", cerr, map[string]interface{}{
			"uri":  m.uri,
			"kind": TranslateError(err).Error(),
		})
		return cerr
	}
	if !m.transitionLocked(ctx, triggerEstablished) {
		m.mu.Unlock()
		_ = sess.close()
		return ErrShutdown
	}
	m.generation++
	sess.generation = m.generation
	m.current = sess
	m.lastErr = nil
	m.blocked.Store(false)
	close(m.ready)
	m.mu.Unlock()

	m.watch(sess)
	m.logInfo(ctx, "Connected to RabbitMQ", map[string]interface{}{
		"uri":        m.uri,
		"queues":     m.cfg.Channel.Queues,
		"generation": sess.generation,
	})
	return nil
}

func (m *ConnectionManager) open() (*session, error) {
	amqpCfg, err := amqpConfig(m.cfg.Connection)
	if err != nil {
		return nil, err
	}

	conn, err := m.dial(m.cfg.Connection.URI, amqpCfg)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	fail := func(err error) (*session, error) {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	if err := ch.Confirm(false); err != nil {
		return fail(fmt.Errorf("enable publisher confirms: %w", err))
	}
	if err := m.declareTopology(ch); err != nil {
		return fail(err)
	}
	if m.cfg.Channel.PrefetchCount > 0 {
		if err := ch.Qos(m.cfg.Channel.PrefetchCount, 0, false); err != nil {
			return fail(fmt.Errorf("set qos: %w", err))
		}
	}

	sess := newSession(conn, ch)
	sess.connClosed = conn.NotifyClose(make(chan *amqp.Error, 1))
	sess.chClosed = ch.NotifyClose(make(chan *amqp.Error, 1))
	sess.blockings = conn.NotifyBlocked(make(chan amqp.Blocking, 1))
	go sess.dispatchConfirms(ch.NotifyPublish(make(chan amqp.Confirmation, confirmBuffer)))
	return sess, nil
}

// declareTopology declares every configured queue durable, plus the
// dead-letter exchange and queue when enabled. Redeclaring with the same
// arguments is a no-op on the broker.
func (m *ConnectionManager) declareTopology(ch amqpChannel) error {
	var queueArgs amqp.Table

	if dl := m.cfg.DeadLetter; dl.Enabled() {
		if err := ch.ExchangeDeclare(dl.ExchangeName, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare dead-letter exchange %q: %w", dl.ExchangeName, err)
		}
		if _, err := ch.QueueDeclare(dl.QueueName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare dead-letter queue %q: %w", dl.QueueName, err)
		}
		if err := ch.QueueBind(dl.QueueName, dl.RoutingKey, dl.ExchangeName, false, nil); err != nil {
			return fmt.Errorf("bind dead-letter queue %q: %w", dl.QueueName, err)
		}
		queueArgs = amqp.Table{
			"x-dead-letter-exchange":    dl.ExchangeName,
			"x-dead-letter-routing-key": dl.RoutingKey,
		}
	}

	for _, name := range m.cfg.Channel.Queues {
		if _, err := ch.QueueDeclare(name, true, false, false, false, queueArgs); err != nil {
			return fmt.Errorf("declare queue %q: %w", name, err)
		}
	}
	return nil
}

// watch forwards the first close notification of sess to the scheduler and
// tracks connection.blocked for it.
func (m *ConnectionManager) watch(sess *session) {
	go func() {
		var cause *amqp.Error
		select {
		case cause = <-sess.connClosed:
		case cause = <-sess.chClosed:
		case <-m.shutdownSignal:
			return
		}

		err := ErrConnectionLost
		if cause != nil {
			err = fmt.Errorf("%w: %w", ErrConnectionLost, cause)
		}
		m.post(event{kind: eventLost, generation: sess.generation, err: err})
	}()

	go func() {
		for b := range sess.blockings {
			if m.session() != sess {
				continue
			}
			m.blocked.Store(b.Active)
			if b.Active {
				m.logWarn(context.Background(), "RabbitMQ blocked publishing", nil, map[string]interface{}{
					"reason": b.Reason,
				})
			} else {
				m.logInfo(context.Background(), "RabbitMQ unblocked publishing", nil)
			}
		}
	}()
}

// handleLost clears the session named by ev. Stale events for an older
// generation are ignored.
func (m *ConnectionManager) handleLost(ev event) bool {
	m.mu.Lock()
	if m.current == nil || m.current.generation != ev.generation {
		m.mu.Unlock()
		return false
	}
	sess := m.current
	m.current = nil
	m.lastErr = ev.err
	m.transitionLocked(context.Background(), triggerLost)
	m.ready = make(chan struct{})
	m.blocked.Store(false)
	m.mu.Unlock()

	go func() { _ = sess.close() }()

	m.logWarn(context.Background(), "RabbitMQ connection lost", ev.err, map[string]interface{}{
		"uri":        m.uri,
		"generation": ev.generation,
	})
	return true
}

// transitionLocked applies t to the current state. m.mu must be held.
func (m *ConnectionManager) transitionLocked(ctx context.Context, t trigger) bool {
	to, ok := nextState(m.state, t)
	if !ok {
		if m.state != StateClosing {
			m.logWarn(ctx, "Rejected RabbitMQ state transition", nil, map[string]interface{}{
				"state":   m.state.String(),
				"trigger": t.String(),
			})
		}
		return false
	}
	m.state = to
	return true
}
