package rabbit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Transport-level sentinels. TranslateError maps raw amqp091, net and
// syscall errors onto these so callers never see driver types.
var (
	ErrConnectionFailed     = errors.New("connection failed")
	ErrConnectionLost       = errors.New("connection lost")
	ErrConnectionClosed     = errors.New("connection closed")
	ErrChannelClosed        = errors.New("channel closed")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrAccessDenied         = errors.New("access denied")
	ErrQueueNotFound        = errors.New("queue not found")
	ErrPreconditionFailed   = errors.New("precondition failed")
	ErrResourceLocked       = errors.New("resource locked")
	ErrMessageTooLarge      = errors.New("message too large")
	ErrProtocolError        = errors.New("protocol error")
	ErrServerError          = errors.New("server error")
	ErrTimeout              = errors.New("timeout")
	ErrNetworkError         = errors.New("network error")
	ErrCertificateError     = errors.New("certificate error")
	ErrResourceAlarm        = errors.New("resource alarm")
	ErrUnknownError         = errors.New("unknown error")
)

// Operation-level sentinels.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotConnected    = errors.New("not connected")
	ErrBackpressure    = errors.New("backpressure")
	ErrPublishFailed   = errors.New("publish failed")
	ErrPublishTimeout  = errors.New("publish confirm timeout")
	ErrPublishNacked   = errors.New("publish nacked by broker")
	ErrAckFailed       = errors.New("acknowledge failed")
	ErrNackFailed      = errors.New("negative acknowledge failed")
	ErrMalformed       = errors.New("malformed message")
	ErrShutdown        = errors.New("shutdown")
)

// ConnectError reports a failed attempt to establish the connection, open
// the channel or declare the topology. It is recoverable: the manager
// schedules another attempt.
type ConnectError struct {
	URI string
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("rabbit: connect to %s: %v", e.URI, e.Err)
}

func (e *ConnectError) Unwrap() []error {
	return []error{ErrConnectionFailed, e.Err}
}

// StartupConnectError is returned by Start when the bounded startup attempts
// are exhausted and Startup.FailFast is set.
type StartupConnectError struct {
	Attempts int
	Err      error
}

func (e *StartupConnectError) Error() string {
	return fmt.Sprintf("rabbit: broker unreachable after %d startup attempts: %v", e.Attempts, e.Err)
}

func (e *StartupConnectError) Unwrap() error {
	return e.Err
}

// PublishError is the reason Publish returned false.
type PublishError struct {
	Queue string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("rabbit: publish to %q: %v", e.Queue, e.Err)
}

func (e *PublishError) Unwrap() []error {
	return []error{ErrPublishFailed, e.Err}
}

// HandlerError marks a retryable domain failure. The consumer nacks the
// delivery with requeue. Any non-malformed error returned by a handler is
// treated the same way; the type exists so handlers can say so explicitly.
type HandlerError struct {
	Err error
}

func (e *HandlerError) Error() string {
	return "rabbit: handler failed: " + e.Err.Error()
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}

// NewHandlerError wraps err as a retryable handler failure.
func NewHandlerError(err error) error {
	if err == nil {
		return nil
	}
	return &HandlerError{Err: err}
}

// MalformedMessageError marks a payload that can never be processed. The
// consumer nacks it without requeue.
type MalformedMessageError struct {
	Reason string
	Err    error
}

func (e *MalformedMessageError) Error() string {
	if e.Err == nil {
		return "rabbit: malformed message: " + e.Reason
	}
	return fmt.Sprintf("rabbit: malformed message: %s: %v", e.Reason, e.Err)
}

func (e *MalformedMessageError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformed}
	}
	return []error{ErrMalformed, e.Err}
}

// Malformed builds a MalformedMessageError.
func Malformed(reason string, err error) error {
	return &MalformedMessageError{Reason: reason, Err: err}
}

// IsMalformed reports whether err anywhere in its chain marks a poison message.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}

// ShutdownError reports a failure while closing the channel or connection.
// It is logged and never blocks process exit.
type ShutdownError struct {
	Op  string
	Err error
}

func (e *ShutdownError) Error() string {
	return fmt.Sprintf("rabbit: shutdown %s: %v", e.Op, e.Err)
}

func (e *ShutdownError) Unwrap() []error {
	return []error{ErrShutdown, e.Err}
}

// TranslateError converts amqp091, network and syscall errors into the
// package sentinels. Errors that are already translated, context errors and
// unknown errors without a recognisable message are returned unchanged.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, amqp.ErrClosed) {
		return ErrConnectionClosed
	}

	var amqpErr *amqp.Error
	if errors.As(err, &amqpErr) {
		return translateAMQPError(amqpErr)
	}

	var syscallErr syscall.Errno
	if errors.As(err, &syscallErr) {
		return translateSyscallError(syscallErr)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrTimeout
		}
		return ErrNetworkError
	}

	return translateByMessage(strings.ToLower(err.Error()), err)
}

func translateAMQPError(amqpErr *amqp.Error) error {
	switch amqpErr.Code {
	case amqp.ConnectionForced:
		return ErrConnectionClosed
	case amqp.AccessRefused:
		if strings.Contains(strings.ToLower(amqpErr.Reason), "login") {
			return ErrAuthenticationFailed
		}
		return ErrAccessDenied
	case amqp.NotFound:
		return ErrQueueNotFound
	case amqp.ResourceLocked:
		return ErrResourceLocked
	case amqp.PreconditionFailed:
		return ErrPreconditionFailed
	case amqp.ContentTooLarge:
		return ErrMessageTooLarge
	case amqp.ChannelError:
		return ErrChannelClosed
	case amqp.FrameError, amqp.SyntaxError, amqp.CommandInvalid, amqp.UnexpectedFrame:
		return ErrProtocolError
	case amqp.ResourceError:
		return ErrResourceAlarm
	case amqp.InternalError, amqp.NotImplemented:
		return ErrServerError
	}
	return translateByMessage(strings.ToLower(amqpErr.Reason), amqpErr)
}

func translateSyscallError(errno syscall.Errno) error {
	switch errno {
	case syscall.ECONNREFUSED:
		return ErrConnectionFailed
	case syscall.ECONNRESET, syscall.ECONNABORTED, syscall.EPIPE, syscall.ENOTCONN:
		return ErrConnectionLost
	case syscall.ETIMEDOUT:
		return ErrTimeout
	case syscall.EACCES, syscall.EPERM:
		return ErrAccessDenied
	default:
		return ErrNetworkError
	}
}

func translateByMessage(msg string, original error) error {
	switch {
	case strings.Contains(msg, "connection refused"):
		return ErrConnectionFailed
	case strings.Contains(msg, "connection reset"), strings.Contains(msg, "broken pipe"):
		return ErrConnectionLost
	case strings.Contains(msg, "channel/connection is not open"), strings.Contains(msg, "connection closed"):
		return ErrConnectionClosed
	case strings.Contains(msg, "channel closed"):
		return ErrChannelClosed
	case strings.Contains(msg, "username or password not allowed"), strings.Contains(msg, "login refused"):
		return ErrAuthenticationFailed
	case strings.Contains(msg, "i/o timeout"), strings.Contains(msg, "timed out"):
		return ErrTimeout
	case strings.Contains(msg, "no such host"), strings.Contains(msg, "network is unreachable"):
		return ErrNetworkError
	case strings.Contains(msg, "memory alarm"), strings.Contains(msg, "disk alarm"):
		return ErrResourceAlarm
	case strings.Contains(msg, "certificate"), strings.Contains(msg, "x509"):
		return ErrCertificateError
	}
	return original
}

// IsConnectionError reports whether err means the connection or channel is
// unusable and a reconnect is needed.
func IsConnectionError(err error) bool {
	translated := TranslateError(err)
	switch {
	case errors.Is(translated, ErrConnectionFailed),
		errors.Is(translated, ErrConnectionLost),
		errors.Is(translated, ErrConnectionClosed),
		errors.Is(translated, ErrChannelClosed),
		errors.Is(translated, ErrNetworkError),
		errors.Is(translated, ErrTimeout):
		return true
	}
	return false
}

// IsRetryableError reports whether an operation that failed with err may
// succeed when attempted again later.
func IsRetryableError(err error) bool {
	if err == nil || IsMalformed(err) {
		return false
	}
	translated := TranslateError(err)
	switch {
	case errors.Is(translated, ErrAuthenticationFailed),
		errors.Is(translated, ErrAccessDenied),
		errors.Is(translated, ErrPreconditionFailed),
		errors.Is(translated, ErrMessageTooLarge),
		errors.Is(translated, ErrCertificateError),
		errors.Is(translated, ErrInvalidArgument),
		errors.Is(translated, ErrShutdown):
		return false
	}
	return true
}
