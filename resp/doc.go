// Package resp provides a low-level wire protocol implementation for RESP,
// the request/response protocol spoken by Redis-compatible servers.
//
// It only deals with serialization and parsing. Connection management
// lives in the parent package.
//
// # Requests
//
// Commands are always sent as arrays of bulk strings:
//
//	resp.WriteCommand(conn, "SET", "key", "value")
//	// *3\r\n$3\r\nSET\r\n$3\r\nkey\r\n$5\r\nvalue\r\n
//
// # Replies
//
// ReadReply parses one reply unit and returns one of:
//
//   - Status: +OK\r\n
//   - Error: -ERR unknown command\r\n
//   - Integer: :42\r\n
//   - Bulk: $5\r\nhello\r\n (nil Bulk for $-1)
//   - Array: *2\r\n... (nil Array for *-1)
//
// Error replies and the QUEUED status are already in final form: they report
// SkipParse() == true so callers hand them back without command-specific
// parsing.
//
// # Error Handling
//
// Go errors returned by ReadReply are I/O errors or *ParseError. Both leave
// the stream in an unknown state; the connection should be closed.
package resp
