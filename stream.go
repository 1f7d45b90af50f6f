package redisconn

import (
	"bufio"
	"context"
	"errors"
	"net"
	"time"

	"github.com/pior/redisconn/resp"
)

const defaultReaderSize = 16 * 1024

var errForeignResource = errors.New("redisconn: resource was not created by this transport")

// StreamTransport speaks RESP over a tcp or unix stream socket.
type StreamTransport struct {
	// Dialer is used to open sockets. If nil, a zero net.Dialer is used.
	// Parameters.Timeout overrides its Timeout when set.
	Dialer *net.Dialer

	// ReaderSize is the size of the read buffer. Zero means 16KiB.
	ReaderSize int

	// for testing purposes only
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

var (
	_ Transport           = (*StreamTransport)(nil)
	_ ProtocolInitializer = (*StreamTransport)(nil)
)

// streamResource is the socket plus its buffered reader.
type streamResource struct {
	conn      net.Conn
	reader    *bufio.Reader
	rwTimeout time.Duration
}

func (r *streamResource) Close() error {
	return r.conn.Close()
}

// setDeadline applies the earliest of the context deadline and the
// read/write timeout. No deadline at all clears it.
func (r *streamResource) setDeadline(ctx context.Context) error {
	var deadline time.Time
	if r.rwTimeout > 0 {
		deadline = time.Now().Add(r.rwTimeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return r.conn.SetDeadline(deadline)
}

// InitializeProtocol rejects settings the stream cannot honor.
func (t *StreamTransport) InitializeProtocol(params Parameters) error {
	if params.Timeout < 0 {
		return newInvalidOptionError("timeout", params.Timeout.String())
	}
	if params.ReadWriteTimeout < 0 {
		return newInvalidOptionError("read_write_timeout", params.ReadWriteTimeout.String())
	}
	if t.ReaderSize < 0 {
		return newInvalidOptionError("reader_size", "negative")
	}
	return nil
}

func (t *StreamTransport) CreateResource(ctx context.Context, params Parameters) (Resource, error) {
	var netConn net.Conn
	var err error

	if t.dial != nil {
		netConn, err = t.dial(ctx, string(params.Scheme), params.Addr())
	} else {
		dialer := net.Dialer{}
		if t.Dialer != nil {
			dialer = *t.Dialer
		}
		if params.Timeout > 0 {
			dialer.Timeout = params.Timeout
		}
		netConn, err = dialer.DialContext(ctx, string(params.Scheme), params.Addr())
	}
	if err != nil {
		return nil, err
	}

	size := t.ReaderSize
	if size == 0 {
		size = defaultReaderSize
	}

	return &streamResource{
		conn:      netConn,
		reader:    bufio.NewReaderSize(netConn, size),
		rwTimeout: params.ReadWriteTimeout,
	}, nil
}

func (t *StreamTransport) Write(ctx context.Context, res Resource, cmd Command) error {
	r, ok := res.(*streamResource)
	if !ok {
		return errForeignResource
	}
	if err := r.setDeadline(ctx); err != nil {
		return err
	}
	_, err := resp.WriteCommand(r.conn, cmd.Name(), cmd.Arguments()...)
	return err
}

func (t *StreamTransport) Read(ctx context.Context, res Resource) (any, error) {
	r, ok := res.(*streamResource)
	if !ok {
		return nil, errForeignResource
	}
	if err := r.setDeadline(ctx); err != nil {
		return nil, err
	}
	return resp.ReadReply(r.reader)
}

// Dial connects to the server described by params over a stream socket.
// AUTH and SELECT derived from params are queued as init commands and
// replayed on every connect.
func Dial(ctx context.Context, params Parameters, opts ...Option) (*Connection, error) {
	return dial(ctx, params, &StreamTransport{}, opts...)
}

func dial(ctx context.Context, params Parameters, transport *StreamTransport, opts ...Option) (*Connection, error) {
	opts = append([]Option{WithInitCommandReplay(true)}, opts...)

	conn, err := New(params, transport, opts...)
	if err != nil {
		return nil, err
	}

	for _, cmd := range InitCommandsFor(conn.Parameters()) {
		conn.PushInitCommand(cmd)
	}

	if err := conn.Connect(ctx); err != nil {
		return nil, err
	}
	return conn, nil
}
