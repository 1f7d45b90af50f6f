package redisconn

import (
	"fmt"
	"io"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Scheme is the connection transport kind.
type Scheme string

const (
	SchemeTCP  Scheme = "tcp"
	SchemeUnix Scheme = "unix"
)

const (
	DefaultHost    = "127.0.0.1"
	DefaultPort    = 6379
	DefaultTimeout = 5 * time.Second
)

// Parameters describes how to reach a server.
// It is a plain value: a connection keeps its own copy and never modifies it.
type Parameters struct {
	Scheme Scheme `yaml:"scheme"`
	Host   string `yaml:"host,omitempty"`
	Port   int    `yaml:"port,omitempty"`
	Path   string `yaml:"path,omitempty"`

	// Timeout bounds connection establishment.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// ReadWriteTimeout bounds each blocking read and write.
	// Zero means no limit beyond the context deadline.
	ReadWriteTimeout time.Duration `yaml:"read_write_timeout,omitempty"`

	// Database and Password produce SELECT and AUTH init commands.
	Database int    `yaml:"database,omitempty"`
	Password string `yaml:"password,omitempty"`

	// Alias is a free-form name, handy in logs.
	Alias string `yaml:"alias,omitempty"`
}

// DefaultParameters returns parameters for a local server on the default port.
func DefaultParameters() Parameters {
	return Parameters{
		Scheme:  SchemeTCP,
		Host:    DefaultHost,
		Port:    DefaultPort,
		Timeout: DefaultTimeout,
	}
}

// Addr returns the dial address: the socket path for unix, host:port otherwise.
func (p Parameters) Addr() string {
	if p.Scheme == SchemeUnix {
		return p.Path
	}
	return net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// ParseParameters parses a connection URI such as
//
//	tcp://127.0.0.1:6379?timeout=2s&database=3
//	unix:///tmp/redis.sock?read_write_timeout=1.5
//
// Missing parts fall back to DefaultParameters. Unknown options are ignored.
func ParseParameters(uri string) (Parameters, error) {
	p := DefaultParameters()

	if !strings.Contains(uri, "://") {
		if scheme, rest, ok := strings.Cut(uri, ":"); ok && Scheme(strings.ToLower(scheme)) == SchemeUnix {
			// unix:/path, without the authority slashes
			uri = string(SchemeUnix) + "://" + rest
		} else {
			uri = string(SchemeTCP) + "://" + uri
		}
	}

	u, err := url.Parse(uri)
	if err != nil {
		return Parameters{}, &ConfigurationError{Message: fmt.Sprintf("parse %q: %v", uri, err)}
	}

	p.Scheme = Scheme(strings.ToLower(u.Scheme))

	switch p.Scheme {
	case SchemeUnix:
		p.Host = ""
		p.Port = 0
		p.Path = u.Path
	default:
		if host := u.Hostname(); host != "" {
			p.Host = host
		}
		if port := u.Port(); port != "" {
			n, err := strconv.Atoi(port)
			if err != nil || n <= 0 || n > 65535 {
				return Parameters{}, newInvalidOptionError("port", port)
			}
			p.Port = n
		}
	}

	if u.User != nil {
		if pw, ok := u.User.Password(); ok {
			p.Password = pw
		}
	}

	if err := applyOptions(&p, u.Query()); err != nil {
		return Parameters{}, err
	}
	return p, nil
}

func applyOptions(p *Parameters, query url.Values) error {
	for name, values := range query {
		if len(values) == 0 {
			continue
		}
		value := values[len(values)-1]

		switch name {
		case "timeout":
			d, err := parseSeconds(value)
			if err != nil {
				return newInvalidOptionError(name, value)
			}
			p.Timeout = d
		case "read_write_timeout":
			d, err := parseSeconds(value)
			if err != nil {
				return newInvalidOptionError(name, value)
			}
			p.ReadWriteTimeout = d
		case "database":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return newInvalidOptionError(name, value)
			}
			p.Database = n
		case "password":
			p.Password = value
		case "alias":
			p.Alias = value
		}
	}
	return nil
}

// parseSeconds accepts Go durations ("1.5s") and bare seconds ("1.5").
func parseSeconds(value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		secs, ferr := strconv.ParseFloat(value, 64)
		if ferr != nil {
			return 0, err
		}
		d = time.Duration(secs * float64(time.Second))
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}

// LoadParameters decodes a YAML document into Parameters.
// Keys not present keep their DefaultParameters value.
//
//	scheme: unix
//	path: /var/run/redis.sock
//	read_write_timeout: 2s
func LoadParameters(r io.Reader) (Parameters, error) {
	p := DefaultParameters()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && err != io.EOF {
		return Parameters{}, &ConfigurationError{Message: fmt.Sprintf("decode parameters: %v", err)}
	}

	if p.Scheme == SchemeUnix && p.Host == DefaultHost && p.Port == DefaultPort {
		p.Host = ""
		p.Port = 0
	}
	if p.Timeout < 0 {
		return Parameters{}, newInvalidOptionError("timeout", p.Timeout.String())
	}
	if p.ReadWriteTimeout < 0 {
		return Parameters{}, newInvalidOptionError("read_write_timeout", p.ReadWriteTimeout.String())
	}
	return p, nil
}
