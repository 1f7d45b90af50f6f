package resp

import "strconv"

// Reply is one parsed reply unit: Status, Error, Integer, Bulk or Array.
type Reply interface {
	reply()
}

// Status is a simple string reply.
type Status string

// Error is an error reply sent by the server. It is a value, not a failure
// of the connection: the protocol state is intact after reading it.
type Error string

// Integer is an integer reply.
type Integer int64

// Bulk is a binary safe string reply. A nil Bulk is the null bulk string.
type Bulk []byte

// Array is a multi-bulk reply. A nil Array is the null array.
type Array []Reply

func (Status) reply()  {}
func (Error) reply()   {}
func (Integer) reply() {}
func (Bulk) reply()    {}
func (Array) reply()   {}

// SkipParse reports whether the status is already in final form.
// Only QUEUED is: the real reply arrives with EXEC.
func (s Status) SkipParse() bool {
	return s == StatusQueued
}

func (s Status) String() string {
	return string(s)
}

// SkipParse always returns true: error replies bypass command parsing.
func (e Error) SkipParse() bool {
	return true
}

func (e Error) Error() string {
	return string(e)
}

// Kind returns the error prefix, e.g. "ERR" or "WRONGTYPE".
func (e Error) Kind() string {
	for i := 0; i < len(e); i++ {
		if e[i] == ' ' {
			return string(e[:i])
		}
	}
	return string(e)
}

// IsNil returns true for the null bulk string.
func (b Bulk) IsNil() bool {
	return b == nil
}

func (b Bulk) String() string {
	return string(b)
}

// IsNil returns true for the null array.
func (a Array) IsNil() bool {
	return a == nil
}

func (i Integer) String() string {
	return strconv.FormatInt(int64(i), 10)
}
