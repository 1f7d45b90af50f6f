package redisconn

import (
	"fmt"
	"strconv"

	"github.com/pior/redisconn/resp"
)

// Command is a request plus the logic to turn its raw reply into a result.
type Command interface {
	Name() string
	Arguments() []string
	ParseResponse(reply any) (any, error)
}

// ResponseParser converts a raw reply into a command result.
type ResponseParser func(reply any) (any, error)

// Cmd is a generic Command. The zero parser returns the reply unchanged.
type Cmd struct {
	name   string
	args   []string
	parser ResponseParser
}

var _ Command = (*Cmd)(nil)

// NewCommand creates a command returning its raw reply.
func NewCommand(name string, args ...string) *Cmd {
	return &Cmd{
		name: name,
		args: args,
	}
}

// WithParser returns a copy of the command using parser.
func (c *Cmd) WithParser(parser ResponseParser) *Cmd {
	cp := *c
	cp.parser = parser
	return &cp
}

func (c *Cmd) Name() string {
	return c.name
}

func (c *Cmd) Arguments() []string {
	return c.args
}

func (c *Cmd) ParseResponse(reply any) (any, error) {
	if c.parser == nil {
		return reply, nil
	}
	return c.parser(reply)
}

func (c *Cmd) String() string {
	return fmt.Sprintf("%s %v", c.name, c.args)
}

// ParseOK expects a +OK status and returns true.
func ParseOK(reply any) (any, error) {
	if s, ok := reply.(resp.Status); ok && s == resp.StatusOK {
		return true, nil
	}
	return nil, fmt.Errorf("expected OK, got %#v", reply)
}

// ParseInt expects an integer reply and returns it as int64.
func ParseInt(reply any) (any, error) {
	if n, ok := reply.(resp.Integer); ok {
		return int64(n), nil
	}
	return nil, fmt.Errorf("expected integer, got %#v", reply)
}

// ParseString returns bulk and status replies as string.
// A null bulk string becomes nil.
func ParseString(reply any) (any, error) {
	switch r := reply.(type) {
	case resp.Bulk:
		if r.IsNil() {
			return nil, nil
		}
		return string(r), nil
	case resp.Status:
		return string(r), nil
	default:
		return nil, fmt.Errorf("expected string, got %#v", reply)
	}
}

// parsePong accepts PONG or the echoed bulk argument.
func parsePong(reply any) (any, error) {
	switch r := reply.(type) {
	case resp.Status:
		if r == "PONG" {
			return true, nil
		}
	case resp.Bulk:
		return string(r), nil
	}
	return nil, fmt.Errorf("expected PONG, got %#v", reply)
}

// AuthCommand authenticates the connection.
func AuthCommand(password string) *Cmd {
	return NewCommand("AUTH", password).WithParser(ParseOK)
}

// SelectCommand switches the connection to database db.
func SelectCommand(db int) *Cmd {
	return NewCommand("SELECT", strconv.Itoa(db)).WithParser(ParseOK)
}

// PingCommand checks the server answers.
func PingCommand() *Cmd {
	return NewCommand("PING").WithParser(parsePong)
}

// InitCommandsFor returns the commands a connection to p must run after
// every connect: AUTH when a password is set, SELECT for a non-zero database.
func InitCommandsFor(p Parameters) []Command {
	var cmds []Command
	if p.Password != "" {
		cmds = append(cmds, AuthCommand(p.Password))
	}
	if p.Database != 0 {
		cmds = append(cmds, SelectCommand(p.Database))
	}
	return cmds
}
