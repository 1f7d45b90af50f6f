package redisconn

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/zeebo/xxh3"

	"github.com/pior/redisconn/resp"
)

// Connection owns the lifecycle of a single logical connection to a server.
//
// It is either disconnected or connected; Connect and Disconnect move between
// the two and any handshake runs inside Connect. Commands are executed one at
// a time: a mutex serializes every operation, and each blocks until its I/O
// completes or ctx is done.
//
// A Connection must be released with Close (or Disconnect). Use With to tie
// the release to a function scope.
type Connection struct {
	params    Parameters
	transport Transport

	// Computed once from params, which never change.
	id   string
	hash uint64

	logger         zerolog.Logger
	failureHandler FailureHandler
	replayInit     bool
	breaker        CircuitBreaker // nil if not configured

	mu       sync.Mutex
	resource Resource
	initCmds []Command

	stats *statsCollector
}

// New validates params and builds a disconnected Connection.
func New(params Parameters, transport Transport, opts ...Option) (*Connection, error) {
	if transport == nil {
		return nil, &ConfigurationError{Message: "missing transport"}
	}

	params, err := ValidateParameters(params)
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	id := params.Addr()

	c := &Connection{
		params:         params,
		transport:      transport,
		id:             id,
		hash:           xxh3.HashString(id),
		logger:         o.logger.With().Str("conn", id).Logger(),
		failureHandler: o.failureHandler,
		replayInit:     o.replayInit,
		stats:          newStatsCollector(),
	}

	if pi, ok := transport.(ProtocolInitializer); ok {
		if err := pi.InitializeProtocol(params); err != nil {
			return nil, err
		}
	}

	if o.newCircuitBreaker != nil {
		c.breaker = o.newCircuitBreaker(id)
	}

	return c, nil
}

// IsConnected returns true while a resource is held.
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resource != nil
}

// Connect creates the transport resource.
// It fails with ErrAlreadyConnected if a resource is already held, leaving
// that resource untouched: Connect is not a reconnect primitive.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	err := c.connectLocked(ctx)
	c.mu.Unlock()
	return c.handleFailure(err)
}

func (c *Connection) connectLocked(ctx context.Context) error {
	if c.resource != nil {
		return ErrAlreadyConnected
	}

	res, err := c.transport.CreateResource(ctx, c.params)
	if err != nil {
		return c.classify("connect", err)
	}

	if hs, ok := c.transport.(Handshaker); ok {
		if err := hs.Handshake(ctx, res, c.params); err != nil {
			if cerr := res.Close(); cerr != nil {
				err = errors.Join(err, cerr)
			}
			return c.classify("handshake", err)
		}
	}

	c.resource = res
	c.stats.recordConnect()
	c.logger.Debug().Msg("connected")

	if c.replayInit {
		if err := c.replayLocked(ctx); err != nil {
			_ = c.disconnectLocked()
			return err
		}
	}

	return nil
}

// Disconnect releases the resource. It is a no-op when disconnected.
// The connection is disconnected afterwards even if closing the resource
// fails; the close error is returned.
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnectLocked()
}

func (c *Connection) disconnectLocked() error {
	if c.resource == nil {
		return nil
	}

	err := c.resource.Close()
	c.resource = nil
	c.stats.recordDisconnect()
	c.logger.Debug().Err(err).Msg("disconnected")
	return err
}

// Close implements io.Closer. It is Disconnect.
func (c *Connection) Close() error {
	return c.Disconnect()
}

// Resource returns the live resource, connecting first if needed.
// This is the only place a connection is opened implicitly.
func (c *Connection) Resource(ctx context.Context) (Resource, error) {
	c.mu.Lock()
	res, err := c.resourceLocked(ctx)
	c.mu.Unlock()
	if err != nil {
		return nil, c.handleFailure(err)
	}
	return res, nil
}

func (c *Connection) resourceLocked(ctx context.Context) (Resource, error) {
	if c.resource == nil {
		if err := c.connectLocked(ctx); err != nil {
			return nil, err
		}
	}
	return c.resource, nil
}

// PushInitCommand queues cmd to run after every successful connect.
func (c *Connection) PushInitCommand(cmd Command) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initCmds = append(c.initCmds, cmd)
}

// InitCommands returns a copy of the init command queue, in push order.
func (c *Connection) InitCommands() []Command {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Command(nil), c.initCmds...)
}

// ReplayInitCommands executes the init commands in order, connecting first
// if needed. Connections built WithInitCommandReplay(true) do this on their
// own inside Connect.
func (c *Connection) ReplayInitCommands(ctx context.Context) error {
	c.mu.Lock()
	err := c.replayInitLocked(ctx)
	c.mu.Unlock()
	return c.handleFailure(err)
}

func (c *Connection) replayInitLocked(ctx context.Context) error {
	if c.resource == nil {
		if err := c.connectLocked(ctx); err != nil {
			return err
		}
		if c.replayInit {
			return nil
		}
	}
	return c.replayLocked(ctx)
}

func (c *Connection) replayLocked(ctx context.Context) error {
	for _, cmd := range c.initCmds {
		reply, err := c.executeLocked(ctx, cmd)
		if err != nil {
			return err
		}
		if rerr, ok := reply.(error); ok {
			return c.connectionError("init", fmt.Sprintf("%s rejected", cmd.Name()), rerr)
		}
		c.stats.recordInitCommand()
	}
	if len(c.initCmds) > 0 {
		c.logger.Debug().Int("count", len(c.initCmds)).Msg("init commands replayed")
	}
	return nil
}

// ExecuteCommand writes cmd and reads its reply. It connects on demand.
//
// A failure in either phase leaves the connection in an unknown state; the
// caller should Disconnect before trying again.
func (c *Connection) ExecuteCommand(ctx context.Context, cmd Command) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := c.execute(ctx, cmd)
	if err != nil {
		return nil, c.handleFailure(err)
	}
	return result, nil
}

func (c *Connection) execute(ctx context.Context, cmd Command) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.breaker == nil {
		return c.executeLocked(ctx, cmd)
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.executeLocked(ctx, cmd)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, c.connectionError("execute", "circuit breaker rejected command", err)
	}
	return result, err
}

func (c *Connection) executeLocked(ctx context.Context, cmd Command) (any, error) {
	if err := c.writeLocked(ctx, cmd); err != nil {
		return nil, err
	}
	return c.readLocked(ctx, cmd)
}

// WriteCommand sends cmd without reading the reply.
// Each write must be matched by exactly one ReadResponse.
func (c *Connection) WriteCommand(ctx context.Context, cmd Command) error {
	c.mu.Lock()
	err := c.writeLocked(ctx, cmd)
	c.mu.Unlock()
	return c.handleFailure(err)
}

func (c *Connection) writeLocked(ctx context.Context, cmd Command) error {
	if cmd == nil || cmd.Name() == "" {
		return c.OnInvalidOption("command", "empty name")
	}

	res, err := c.resourceLocked(ctx)
	if err != nil {
		return err
	}
	if err := c.transport.Write(ctx, res, cmd); err != nil {
		return c.classify("write", err)
	}
	return nil
}

// ReadResponse reads one reply and parses it with cmd.
// Replies that are already resolved (see Resolved) are returned verbatim.
func (c *Connection) ReadResponse(ctx context.Context, cmd Command) (any, error) {
	c.mu.Lock()
	result, err := c.readLocked(ctx, cmd)
	c.mu.Unlock()
	if err != nil {
		return nil, c.handleFailure(err)
	}
	return result, nil
}

func (c *Connection) readLocked(ctx context.Context, cmd Command) (any, error) {
	res, err := c.resourceLocked(ctx)
	if err != nil {
		return nil, err
	}

	reply, err := c.transport.Read(ctx, res)
	if err != nil {
		return nil, c.classify("read", err)
	}
	c.stats.recordCommand()

	if r, ok := reply.(Resolved); ok && r.SkipParse() {
		return reply, nil
	}

	result, err := cmd.ParseResponse(reply)
	if err != nil {
		return nil, c.protocolError(fmt.Sprintf("cannot parse reply to %s", cmd.Name()), err)
	}
	return result, nil
}

// String returns the identifier: the socket path for unix, host:port otherwise.
func (c *Connection) String() string {
	return c.id
}

// ID is String.
func (c *Connection) ID() string {
	return c.id
}

// Hash returns a stable 64-bit hash of the identifier, for distributing keys
// across connections.
func (c *Connection) Hash() uint64 {
	return c.hash
}

// Parameters returns a copy of the validated parameters.
func (c *Connection) Parameters() Parameters {
	return c.params
}

// Stats returns a snapshot of connection statistics.
func (c *Connection) Stats() ConnectionStats {
	return c.stats.snapshot()
}

// OnConnectionError builds a ConnectionError for this connection and passes
// it through the failure handler.
func (c *Connection) OnConnectionError(op, message string, err error) error {
	return c.fail(c.connectionError(op, message, err))
}

// OnProtocolError builds a ProtocolError for this connection and passes it
// through the failure handler.
func (c *Connection) OnProtocolError(message string, err error) error {
	return c.fail(c.protocolError(message, err))
}

func (c *Connection) connectionError(op, message string, err error) error {
	c.stats.recordConnectionError()
	return &ConnectionError{ID: c.id, Op: op, Message: message, Err: err}
}

func (c *Connection) protocolError(message string, err error) error {
	c.stats.recordProtocolError()
	return &ProtocolError{ID: c.id, Message: message, Err: err}
}

// OnInvalidOption returns an InvalidOptionError. It does not reach the
// failure handler: the caller supplied a bad value, nothing failed on the wire.
// Commands without a name are rejected through it before any I/O.
func (c *Connection) OnInvalidOption(option, value string) error {
	return newInvalidOptionError(option, value)
}

func (c *Connection) fail(err error) error {
	if out := c.failureHandler.HandleCommunicationFailure(err); out != nil {
		return out
	}
	return err
}

// handleFailure passes connection and protocol errors through the failure
// handler. It must be called without c.mu held: the handler may call back
// into the connection.
func (c *Connection) handleFailure(err error) error {
	if err == nil {
		return nil
	}

	var connErr *ConnectionError
	var protoErr *ProtocolError
	if errors.As(err, &connErr) || errors.As(err, &protoErr) {
		return c.fail(err)
	}
	return err
}

// classify turns a transport error into a ConnectionError or ProtocolError.
// The failure handler runs later, in handleFailure.
func (c *Connection) classify(op string, err error) error {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		c.stats.recordConnectionError()
		return err
	}

	var protoErr *ProtocolError
	if errors.As(err, &protoErr) {
		c.stats.recordProtocolError()
		return err
	}

	var parseErr *resp.ParseError
	if errors.As(err, &parseErr) {
		return c.protocolError("malformed reply", err)
	}

	var optErr *InvalidOptionError
	if errors.As(err, &optErr) {
		return err
	}

	return c.connectionError(op, "", err)
}
