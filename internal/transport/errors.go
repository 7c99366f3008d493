package transport

import "errors"

// ErrFatalProtocol is returned when a CommandHandler rejects a flushed span
// outright, or leaves a non-empty remainder after the last whole command.
// Either condition aborts the whole
// connection; callers should not attempt to continue using the transport
// after seeing this error.
var ErrFatalProtocol = errors.New("transport: fatal protocol error")
