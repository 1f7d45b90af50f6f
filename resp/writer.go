package resp

import (
	"bytes"
	"io"
	"strconv"
	"sync"
)

// Buffer pool for building requests
var bufferPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 256))
	},
}

func getBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

func putBuffer(buf *bytes.Buffer) {
	// Large buffers would pin memory in the pool
	if buf.Cap() > 64*1024 {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}

// AppendCommand appends the wire encoding of a command to dst.
// Format: *<n>\r\n followed by $<len>\r\n<arg>\r\n for the name and each argument.
func AppendCommand(dst []byte, name string, args ...string) []byte {
	dst = append(dst, PrefixArray)
	dst = strconv.AppendInt(dst, int64(len(args)+1), 10)
	dst = append(dst, CRLF...)
	dst = appendBulk(dst, name)
	for _, arg := range args {
		dst = appendBulk(dst, arg)
	}
	return dst
}

func appendBulk(dst []byte, s string) []byte {
	dst = append(dst, PrefixBulk)
	dst = strconv.AppendInt(dst, int64(len(s)), 10)
	dst = append(dst, CRLF...)
	dst = append(dst, s...)
	return append(dst, CRLF...)
}

// WriteCommand serializes a command and writes it to w in a single Write call.
// Returns the number of bytes written and any error encountered.
func WriteCommand(w io.Writer, name string, args ...string) (int, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	buf.Write(AppendCommand(buf.AvailableBuffer(), name, args...))
	return w.Write(buf.Bytes())
}
