package resp

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
)

var crlfBytes = []byte(CRLF)

// ReadReply reads and parses a single reply from r.
//
// Error replies are returned as Error values, not as Go errors.
// Go errors returned indicate I/O or parsing failures:
//   - io.EOF: Connection closed
//   - ParseError: Malformed reply, connection should be closed
//   - Other I/O errors: Connection issues, connection should be closed
func ReadReply(r *bufio.Reader) (Reply, error) {
	return readReply(r, 0)
}

func readReply(r *bufio.Reader, depth int) (Reply, error) {
	if depth > MaxNestingDepth {
		return nil, &ParseError{Message: "reply nesting too deep"}
	}

	line, err := readLine(r)
	if err != nil {
		return nil, err
	}
	if len(line) == 0 {
		return nil, &ParseError{Message: "empty reply line"}
	}

	payload := line[1:]

	switch line[0] {
	case PrefixStatus:
		return Status(payload), nil

	case PrefixError:
		return Error(payload), nil

	case PrefixInteger:
		n, err := strconv.ParseInt(string(payload), 10, 64)
		if err != nil {
			return nil, &ParseError{Message: "invalid integer reply", Err: err}
		}
		return Integer(n), nil

	case PrefixBulk:
		size, err := parseLength(payload, MaxBulkLength)
		if err != nil {
			return nil, err
		}
		if size < 0 {
			return Bulk(nil), nil
		}

		data, err := readBulk(r, size+2)
		if err != nil {
			return nil, err
		}
		if !bytes.HasSuffix(data, crlfBytes) {
			return nil, &ParseError{Message: "bulk data not terminated by CRLF"}
		}
		return Bulk(data[:size]), nil

	case PrefixArray:
		count, err := parseLength(payload, MaxArrayLength)
		if err != nil {
			return nil, err
		}
		if count < 0 {
			return Array(nil), nil
		}

		// The declared count is untrusted: grow with the elements actually read
		items := make(Array, 0, min(count, preallocLimit))
		for range count {
			item, err := readReply(r, depth+1)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil

	default:
		return nil, &ParseError{Message: "unknown reply type " + strconv.QuoteRune(rune(line[0]))}
	}
}

// readBulk reads n bytes. Small payloads are read in one operation; larger
// ones grow the buffer as data arrives, so a bogus length cannot force a
// huge allocation up front.
func readBulk(r *bufio.Reader, n int) ([]byte, error) {
	var data []byte
	var err error

	if n <= preallocBytes {
		data = make([]byte, n)
		_, err = io.ReadFull(r, data)
	} else {
		var buf bytes.Buffer
		buf.Grow(preallocBytes)
		_, err = io.CopyN(&buf, r, int64(n))
		data = buf.Bytes()
	}

	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, &ParseError{Message: "incomplete bulk data", Err: err}
		}
		return nil, err
	}
	return data, nil
}

// readLine returns a line without its CRLF terminator.
// The returned slice is only valid until the next read on r.
func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		// Line exceeds buffer, fall back to ReadBytes (allocates)
		var rest []byte
		buffered := append([]byte(nil), line...)
		rest, err = r.ReadBytes('\n')
		line = append(buffered, rest...)
	}
	if err != nil {
		return nil, err
	}

	if !bytes.HasSuffix(line, crlfBytes) {
		return nil, &ParseError{Message: "line not terminated by CRLF"}
	}
	return line[:len(line)-2], nil
}

// parseLength parses a bulk or array length. -1 means null.
func parseLength(b []byte, limit int) (int, error) {
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, &ParseError{Message: "invalid length", Err: err}
	}
	if n < -1 {
		return 0, &ParseError{Message: "negative length " + strconv.Itoa(n)}
	}
	if n > limit {
		return 0, &ParseError{Message: "length " + strconv.Itoa(n) + " exceeds limit"}
	}
	return n, nil
}
