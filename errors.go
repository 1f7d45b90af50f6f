package redisconn

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

var (
	// ErrInvalidConfiguration matches every ConfigurationError.
	ErrInvalidConfiguration = errors.New("redisconn: invalid configuration")

	// ErrAlreadyConnected is returned by Connect on a connected connection.
	ErrAlreadyConnected = errors.New("redisconn: connection already established")
)

// ConfigurationError is returned when parameters are rejected.
// It is never retried: the same parameters will always fail.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return "redisconn: invalid configuration: " + e.Message
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// ConnectionError wraps failures at the transport boundary: resource
// creation, writes and reads.
//
// Connection handling: the connection is broken, disconnect and reconnect.
type ConnectionError struct {
	ID      string // Connection identifier
	Op      string // Operation that failed (connect, write, read)
	Message string
	Err     error // Underlying error
}

func (e *ConnectionError) Error() string {
	msg := fmt.Sprintf("redisconn: connection error [%s] during %s", e.ID, e.Op)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - the connection is already broken
func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// ProtocolError is returned when a reply does not have the expected shape.
//
// Connection handling: state is uncertain, disconnect.
type ProtocolError struct {
	ID      string
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	msg := fmt.Sprintf("redisconn: protocol error [%s]: %s", e.ID, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - protocol errors indicate corrupted state
func (e *ProtocolError) ShouldCloseConnection() bool {
	return true
}

// InvalidOptionError is returned when an option value is out of range.
type InvalidOptionError struct {
	Option string
	Value  string
}

func (e *InvalidOptionError) Error() string {
	msg := "redisconn: invalid option: " + e.Option
	if e.Value != "" {
		msg += " [" + e.Value + "]"
	}
	return msg
}

// ShouldCloseConnection returns false - nothing was sent
func (e *InvalidOptionError) ShouldCloseConnection() bool {
	return false
}

func newInvalidOptionError(option, value string) error {
	return &InvalidOptionError{Option: option, Value: value}
}

// ErrorWithConnectionState is implemented by errors that know whether the
// connection survived them.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether err leaves the connection unusable.
//
// Returns false for nil, ErrAlreadyConnected, configuration errors,
// InvalidOptionError and context errors not wrapped in a ConnectionError.
// Unknown errors are treated conservatively.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	if errors.Is(err, ErrAlreadyConnected) || errors.Is(err, ErrInvalidConfiguration) {
		return false
	}

	// A bare context error comes from the pre-I/O check: nothing was sent
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return true
}

// FailureHandler intercepts connection and protocol errors before they reach
// the caller. It returns the error to surface; returning nil is not allowed
// to hide a failure and is replaced by the original error.
type FailureHandler interface {
	HandleCommunicationFailure(err error) error
}

// FailureHandlerFunc adapts a function to FailureHandler.
type FailureHandlerFunc func(err error) error

func (f FailureHandlerFunc) HandleCommunicationFailure(err error) error {
	return f(err)
}

// Propagate returns every failure unchanged. It is the default handler.
var Propagate FailureHandler = FailureHandlerFunc(func(err error) error { return err })

// LogFailures logs each failure at error level, then hands it to next.
// A nil next means Propagate.
func LogFailures(logger zerolog.Logger, next FailureHandler) FailureHandler {
	if next == nil {
		next = Propagate
	}
	return FailureHandlerFunc(func(err error) error {
		event := logger.Error().Err(err)

		var connErr *ConnectionError
		var protoErr *ProtocolError
		switch {
		case errors.As(err, &connErr):
			event = event.Str("conn", connErr.ID).Str("op", connErr.Op).Str("kind", "connection")
		case errors.As(err, &protoErr):
			event = event.Str("conn", protoErr.ID).Str("kind", "protocol")
		}
		event.Msg("communication failure")

		return next.HandleCommunicationFailure(err)
	})
}
