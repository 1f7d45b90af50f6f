package redisconn

import "context"

// Resource is the opaque handle for an open connection, e.g. a socket.
// A Connection owns at most one at a time and only ever closes it.
type Resource interface {
	Close() error
}

// Transport creates resources and moves bytes over them.
//
// Implementations return plain errors; the Connection classifies them.
// A *resp.ParseError (anywhere in the chain) becomes a ProtocolError,
// anything else a ConnectionError. Errors that already are a
// ConnectionError or ProtocolError are kept as they are.
type Transport interface {
	// CreateResource opens a new resource. Only called from Connect.
	CreateResource(ctx context.Context, params Parameters) (Resource, error)

	// Write sends the wire encoding of cmd.
	Write(ctx context.Context, res Resource, cmd Command) error

	// Read returns exactly one raw reply unit.
	Read(ctx context.Context, res Resource) (any, error)
}

// ProtocolInitializer is implemented by transports that derive state from
// the parameters. It runs once, when the Connection is built.
type ProtocolInitializer interface {
	InitializeProtocol(params Parameters) error
}

// Handshaker is implemented by transports that must talk to the server
// before a fresh resource is usable. It runs inside Connect; if it fails the
// resource is closed and the connection stays disconnected.
type Handshaker interface {
	Handshake(ctx context.Context, res Resource, params Parameters) error
}

// Resolved is implemented by replies that may already be in final form.
// When SkipParse returns true the reply bypasses Command.ParseResponse.
type Resolved interface {
	SkipParse() bool
}
