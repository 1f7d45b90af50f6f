package redisconn

import (
	"fmt"
	"os"
)

// ValidateParameters checks that p describes a usable endpoint.
//
// For unix sockets the path must be set and exist when this runs. The socket
// may still vanish before connect, so callers must handle connect errors too.
// TCP parameters are accepted as-is.
func ValidateParameters(p Parameters) (Parameters, error) {
	switch p.Scheme {
	case SchemeUnix:
		if p.Path == "" {
			return Parameters{}, &ConfigurationError{Message: "missing UNIX domain socket path"}
		}
		if _, err := os.Stat(p.Path); err != nil {
			return Parameters{}, &ConfigurationError{Message: fmt.Sprintf("could not find %s", p.Path)}
		}
		return p, nil
	case SchemeTCP:
		return p, nil
	default:
		return Parameters{}, &ConfigurationError{Message: fmt.Sprintf("invalid scheme: %s", p.Scheme)}
	}
}
