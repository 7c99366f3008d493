package wireserver

import "github.com/behrlich/go-wire/internal/interfaces"

// serverBuffer is the server-side object record for a Buffer.
// mappedData is non-nil iff the buffer is currently mapped from the
// driver's perspective; it aliases the driver's own backing slice, so
// BufferUpdateMappedData can memcpy directly into it.
type serverBuffer struct {
	driver     interfaces.DriverBuffer
	mappedData []byte
}

// serverBuilder is the server-side object record for a
// CommandEncoderBuilder. builtObjectID/Serial are set at GetResult time.
type serverBuilder struct {
	builtObjectID     uint32
	builtObjectSerial uint32
}

// serverEncoder is the server-side object record for a CommandEncoder, the
// builder's result.
type serverEncoder struct {
	driver interfaces.DriverCommandEncoder
}

// errorScope is one entry of the device's error-scope stack.
// hasError tracks whether any error was observed while
// this scope was on top; message holds the most recently observed one
// ("worst error" — this implementation keeps the latest rather than
// ranking severities, since the driver contract here has only one error
// shape).
type errorScope struct {
	hasError bool
	message  string
}
