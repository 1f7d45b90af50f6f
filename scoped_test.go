package redisconn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWith_ReleasesResourceOnReturn(t *testing.T) {
	transport := &fakeTransport{}

	var leaked *Connection
	err := With(context.Background(), tcpParams(), transport, func(ctx context.Context, conn *Connection) error {
		leaked = conn
		return conn.Connect(ctx)
	})
	require.NoError(t, err)

	assert.Equal(t, 1, transport.creates)
	assert.Equal(t, 1, transport.releases)
	assert.False(t, leaked.IsConnected())
}

func TestWith_ReleasesResourceOnError(t *testing.T) {
	transport := &fakeTransport{}
	boom := errors.New("boom")

	err := With(context.Background(), tcpParams(), transport, func(ctx context.Context, conn *Connection) error {
		if err := conn.Connect(ctx); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, transport.releases)
}

func TestWith_ReleasesResourceOnPanic(t *testing.T) {
	transport := &fakeTransport{}

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = With(context.Background(), tcpParams(), transport, func(ctx context.Context, conn *Connection) error {
			require.NoError(t, conn.Connect(ctx))
			panic("kaboom")
		})
	})
	assert.Equal(t, 1, transport.releases)
}

func TestWith_ExplicitDisconnectIsNotRepeated(t *testing.T) {
	transport := &fakeTransport{}

	err := With(context.Background(), tcpParams(), transport, func(ctx context.Context, conn *Connection) error {
		require.NoError(t, conn.Connect(ctx))
		return conn.Disconnect()
	})
	require.NoError(t, err)
	assert.Equal(t, 1, transport.releases)
}

func TestWith_NeverConnected(t *testing.T) {
	transport := &fakeTransport{}

	err := With(context.Background(), tcpParams(), transport, func(ctx context.Context, conn *Connection) error {
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0, transport.creates)
	assert.Equal(t, 0, transport.releases)
}

func TestWith_CloseErrorSurfaces(t *testing.T) {
	transport := &fakeTransport{closeErr: errors.New("close failed")}

	err := With(context.Background(), tcpParams(), transport, func(ctx context.Context, conn *Connection) error {
		return conn.Connect(ctx)
	})
	assert.EqualError(t, err, "close failed")
}

func TestWith_InvalidParameters(t *testing.T) {
	called := false
	err := With(context.Background(), Parameters{Scheme: "ftp"}, &fakeTransport{}, func(ctx context.Context, conn *Connection) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
	assert.False(t, called)
}
