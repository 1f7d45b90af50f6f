package resp

// Reply type prefixes.
const (
	PrefixStatus  = '+'
	PrefixError   = '-'
	PrefixInteger = ':'
	PrefixBulk    = '$'
	PrefixArray   = '*'
)

const (
	CRLF = "\r\n"

	// StatusOK is the usual reply to commands that only acknowledge.
	StatusOK = Status("OK")
	// StatusQueued is returned for commands queued inside MULTI.
	StatusQueued = Status("QUEUED")
)

// Protocol limits
const (
	MaxBulkLength   = 512 * 1024 * 1024 // proto-max-bulk-len default
	MaxArrayLength  = 1024 * 1024 * 1024
	MaxNestingDepth = 64

	// Upper bounds on what a declared length may preallocate
	preallocLimit = 1024
	preallocBytes = 64 * 1024
)
