// Package interfaces provides internal interface definitions for go-wire.
// These are separate from the public interfaces to avoid circular imports
// between the top-level package and the wireclient/wireserver packages.
package interfaces

// MapStatus mirrors the buffer map status enumeration on the wire:
// SUCCESS, ERROR, or UNKNOWN.
type MapStatus uint8

const (
	MapStatusSuccess MapStatus = iota
	MapStatusError
	MapStatusUnknown
)

// BuilderStatus mirrors the builder error-callback status enumeration on
// the wire ({SUCCESS, ERROR, UNKNOWN}).
type BuilderStatus uint8

const (
	BuilderStatusSuccess BuilderStatus = iota
	BuilderStatusError
	BuilderStatusUnknown
)

// Driver is the opaque procedure table the server dispatches decoded
// commands into. It stands in for a real graphics driver, which is not
// this module's concern: the server only ever invokes it through this
// interface.
type Driver interface {
	// NewBuffer creates a driver-side buffer. A non-nil error means driver
	// object creation failed; the server still allocates a slot for the
	// result but marks it invalid.
	NewBuffer(size uint64) (DriverBuffer, error)

	// NewCommandEncoder creates a driver-side command encoder builder
	// result. A non-nil error means driver object creation failed.
	NewCommandEncoder(label string) (DriverCommandEncoder, error)

	// Tick drains driver-side asynchronous completions (map callbacks,
	// etc). Called once per server command-loop iteration, before
	// decoding the next command.
	Tick()
}

// DriverBuffer is the driver-side handle backing a client Buffer object.
type DriverBuffer interface {
	// MapReadAsync and MapWriteAsync post an asynchronous mapping request.
	// cb must be invoked exactly once, synchronously or from a later Tick.
	MapReadAsync(offset, size uint64, cb func(status MapStatus, data []byte))
	MapWriteAsync(offset, size uint64, cb func(status MapStatus, data []byte))

	// Unmap releases the current mapping. Called after any pending
	// BufferUpdateMappedData write-back has already landed.
	Unmap()

	// Release destroys the driver object. Called at most once.
	Release()
}

// DriverCommandEncoder is the driver-side handle backing a client
// CommandEncoder object (the result of CommandEncoderBuilder.GetResult).
type DriverCommandEncoder interface {
	SetLabel(label string)

	// Finish validates the encoder and transitions it into its built form.
	// ok=false means the builder is poisoned; errMsg is propagated in the
	// BuilderErrorCallback.
	Finish() (ok bool, errMsg string)

	Release()
}

// Logger is the logging sink the server/client optionally write debug
// traces to.
type Logger interface {
	Printf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Observer is the metrics sink the server/client optionally report to.
// Implementations must be thread-safe: the server's command loop and a
// driver's asynchronous completion callbacks may call it concurrently.
type Observer interface {
	ObserveCommand(commandSize int, latencyNs uint64, fatal bool)
	ObserveBuilderResult(status BuilderStatus)
	ObserveMapRequest(status MapStatus, isWrite bool)
	ObserveChunkedCommand(totalSize int, chunks int)
}
