package redisconn

import (
	"github.com/rs/zerolog"
)

// Option configures a Connection.
type Option func(*options)

type options struct {
	logger            zerolog.Logger
	failureHandler    FailureHandler
	replayInit        bool
	newCircuitBreaker func(id string) CircuitBreaker
}

func defaultOptions() options {
	return options{
		logger:         zerolog.Nop(),
		failureHandler: Propagate,
	}
}

// WithLogger sets the logger for lifecycle events. Defaults to zerolog.Nop().
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithFailureHandler installs the handler that sees every connection and
// protocol error. A nil handler keeps Propagate.
func WithFailureHandler(handler FailureHandler) Option {
	return func(o *options) {
		if handler != nil {
			o.failureHandler = handler
		}
	}
}

// WithInitCommandReplay controls whether Connect replays the init commands
// itself. When disabled (the default) replay is left to the caller, see
// Connection.ReplayInitCommands.
func WithInitCommandReplay(enabled bool) Option {
	return func(o *options) {
		o.replayInit = enabled
	}
}

// WithCircuitBreaker wraps ExecuteCommand in a circuit breaker.
// newBreaker is called once with the connection identifier.
func WithCircuitBreaker(newBreaker func(id string) CircuitBreaker) Option {
	return func(o *options) {
		o.newCircuitBreaker = newBreaker
	}
}
