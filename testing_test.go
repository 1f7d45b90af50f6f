package redisconn

import (
	"bufio"
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pior/redisconn/resp"
)

// fakeResource counts its own releases.
type fakeResource struct {
	transport *fakeTransport
	serial    int
	closes    int
}

func (r *fakeResource) Close() error {
	r.closes++
	r.transport.releases++
	return r.transport.closeErr
}

// fakeTransport is an in-memory Transport with scripted replies.
type fakeTransport struct {
	creates  int
	releases int

	createErr error
	writeErr  error
	readErr   error
	closeErr  error

	replies []any
	written []string
}

var _ Transport = (*fakeTransport)(nil)

func (f *fakeTransport) CreateResource(ctx context.Context, params Parameters) (Resource, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.creates++
	return &fakeResource{transport: f, serial: f.creates}, nil
}

func (f *fakeTransport) Write(ctx context.Context, res Resource, cmd Command) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, strings.Join(append([]string{cmd.Name()}, cmd.Arguments()...), " "))
	return nil
}

func (f *fakeTransport) Read(ctx context.Context, res Resource) (any, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if len(f.replies) == 0 {
		return nil, io.EOF
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

// handshakeTransport runs a handshake hook on every new resource.
type handshakeTransport struct {
	fakeTransport
	handshakes   int
	handshakeErr error
}

func (h *handshakeTransport) Handshake(ctx context.Context, res Resource, params Parameters) error {
	h.handshakes++
	return h.handshakeErr
}

// initTransport records InitializeProtocol calls.
type initTransport struct {
	fakeTransport
	initialized []Parameters
	initErr     error
}

func (i *initTransport) InitializeProtocol(params Parameters) error {
	i.initialized = append(i.initialized, params)
	return i.initErr
}

// resolvedReply carries the skip-parse marker.
type resolvedReply string

func (resolvedReply) SkipParse() bool { return true }

func tcpParams() Parameters {
	return Parameters{Scheme: SchemeTCP, Host: "127.0.0.1", Port: 6379}
}

func newTestConnection(t *testing.T, transport Transport, opts ...Option) *Connection {
	t.Helper()
	conn, err := New(tcpParams(), transport, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// fakeServer is a minimal RESP server for tcp and unix socket tests.
type fakeServer struct {
	listener net.Listener
	wg       sync.WaitGroup

	mu       sync.Mutex
	conns    []net.Conn
	received []string
}

func startFakeServer(t *testing.T, network string) *fakeServer {
	t.Helper()

	addr := "127.0.0.1:0"
	if network == "unix" {
		// Short path: unix socket paths are limited to ~100 bytes
		dir, err := os.MkdirTemp("", "rc")
		require.NoError(t, err)
		t.Cleanup(func() { os.RemoveAll(dir) })
		addr = filepath.Join(dir, "s.sock")
	}

	listener, err := net.Listen(network, addr)
	require.NoError(t, err)

	s := &fakeServer{listener: listener}
	s.wg.Add(1)
	go s.serve()

	t.Cleanup(s.close)
	return s
}

func (s *fakeServer) params() Parameters {
	switch addr := s.listener.Addr().(type) {
	case *net.TCPAddr:
		return Parameters{Scheme: SchemeTCP, Host: addr.IP.String(), Port: addr.Port}
	default:
		return Parameters{Scheme: SchemeUnix, Path: addr.String()}
	}
}

func (s *fakeServer) close() {
	s.listener.Close()
	s.mu.Lock()
	for _, c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *fakeServer) commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

func (s *fakeServer) serve() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns = append(s.conns, conn)
		s.mu.Unlock()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer conn.Close()
			s.handle(conn)
		}()
	}
}

func (s *fakeServer) handle(conn net.Conn) {
	r := bufio.NewReader(conn)
	for {
		req, err := resp.ReadReply(r)
		if err != nil {
			return
		}

		var args []string
		for _, item := range req.(resp.Array) {
			args = append(args, string(item.(resp.Bulk)))
		}

		s.mu.Lock()
		s.received = append(s.received, strings.Join(args, " "))
		s.mu.Unlock()

		if _, err := io.WriteString(conn, respond(args)); err != nil {
			return
		}
	}
}

func respond(args []string) string {
	switch strings.ToUpper(args[0]) {
	case "PING":
		return "+PONG\r\n"
	case "AUTH":
		if len(args) == 2 && args[1] == "secret" {
			return "+OK\r\n"
		}
		return "-WRONGPASS invalid username-password pair\r\n"
	case "SELECT":
		return "+OK\r\n"
	case "ECHO":
		return "$" + strconv.Itoa(len(args[1])) + "\r\n" + args[1] + "\r\n"
	case "INCR":
		return ":1\r\n"
	case "GARBAGE":
		return "?what\r\n"
	default:
		return "-ERR unknown command '" + args[0] + "'\r\n"
	}
}
