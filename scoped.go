package redisconn

import "context"

// With builds a connection, runs fn with it and disconnects when fn returns
// or panics. The connection is not opened up front: fn connects explicitly
// or lets the first command do it.
//
// If fn succeeds, an error from the final disconnect is returned.
func With(ctx context.Context, params Parameters, transport Transport, fn func(ctx context.Context, conn *Connection) error, opts ...Option) (err error) {
	conn, err := New(params, transport, opts...)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := conn.Disconnect(); err == nil {
			err = cerr
		}
	}()

	return fn(ctx, conn)
}
