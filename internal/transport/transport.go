// Package transport implements the wire's byte-stream contract: a
// producer side that hands out writable command space and
// flushes it as one span, and a receiver side that gets that whole span
// back, in order, with no partial reads.
package transport

// Transport is the producer-side contract every serializer writes through.
// GetCmdSpace/Flush/OnSerializeError are called only from the single
// goroutine that owns the client or server endpoint.
type Transport interface {
	// GetCmdSpace returns a contiguous writable region of exactly n bytes,
	// or ok=false if the transport cannot satisfy the request, a fatal,
	// unrecoverable condition.
	GetCmdSpace(n int) (buf []byte, ok bool)

	// Flush hands the bytes written into the most recent GetCmdSpace
	// region(s) since the last Flush to the receiver as one span. May
	// block.
	Flush() error

	// MaxAllocationSize is the producer-side ceiling for one GetCmdSpace
	// call. A command whose serialized size would exceed this must go
	// through the chunked framer instead.
	MaxAllocationSize() int

	// OnSerializeError is a hook the caller invokes if mid-command
	// serialization fails after space was already obtained from
	// GetCmdSpace, so the transport can discard the partially-written
	// region instead of flushing garbage.
	OnSerializeError()
}

// CommandHandler is the receiver-side contract:
// HandleCommands is handed one whole span at a time and returns the suffix
// after the last fully consumed command, or ok=false on a fatal protocol
// error. Bytes remaining after the last whole command abort the span the
// same way.
type CommandHandler interface {
	HandleCommands(bytes []byte) (rest []byte, ok bool)
}
