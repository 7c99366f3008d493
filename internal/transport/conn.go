package transport

import (
	"io"

	"code.hybscloud.com/framer"
)

// Conn is a real byte-stream transport over any io.ReadWriter (a net.Conn,
// a net.Pipe() half, …). A raw stream like TCP has no message boundaries of
// its own; Conn uses code.hybscloud.com/framer to add a compact length
// prefix so the bytes written by one Flush arrive at the peer as one whole
// span read, matching the "no partial reads" contract this package's
// CommandHandler relies on.
//
// This is a different concern than the wire's own chunked-command framing
// (internal/chunked): framer only guarantees transport-level message
// boundaries. The wire's chunked framer separately decides when a single
// logical command must be split because it exceeds MaxAllocationSize.
type Conn struct {
	fr       io.ReadWriter
	handler  CommandHandler
	scratch  []byte
	lastLen  int
	maxAlloc int
}

// defaultMaxAllocationSize bounds how large a single GetCmdSpace call (and
// thus a single framed message) may be over a Conn.
const defaultMaxAllocationSize = 256 * 1024

// NewConn wraps rw with message framing and returns a ready-to-use Conn.
// Call SetHandler before the first inbound Read via Recv.
func NewConn(rw io.ReadWriter, opts ...framer.Option) *Conn {
	return &Conn{
		fr:       framer.NewReadWriter(rw, rw, opts...),
		scratch:  make([]byte, defaultMaxAllocationSize),
		maxAlloc: defaultMaxAllocationSize,
	}
}

// SetHandler installs the receiver that Recv hands decoded spans to.
func (c *Conn) SetHandler(h CommandHandler) {
	c.handler = h
}

func (c *Conn) GetCmdSpace(n int) ([]byte, bool) {
	if n < 0 || n > c.maxAlloc {
		return nil, false
	}
	c.lastLen = n
	return c.scratch[:n], true
}

// Flush writes the bytes currently staged in the scratch buffer (the last
// slice handed out by GetCmdSpace) as one framed message. Every GetCmdSpace
// call hands out the scratch buffer from its start, so regions obtained by
// earlier GetCmdSpace calls since the last Flush are overwritten and not
// sent.
func (c *Conn) Flush() error {
	_, err := c.fr.Write(c.scratch[:c.lastLen])
	return err
}

// FlushSpan writes span as one framed message directly, for callers (the
// chunked sender) that assemble a full command outside the scratch buffer.
func (c *Conn) FlushSpan(span []byte) error {
	_, err := c.fr.Write(span)
	return err
}

func (c *Conn) MaxAllocationSize() int { return c.maxAlloc }

func (c *Conn) OnSerializeError() {}

// Recv blocks for one framed message and hands it to the installed handler.
// Returns io.EOF when the peer closes the connection cleanly, or
// ErrFatalProtocol if the handler rejects the span.
func (c *Conn) Recv() error {
	buf := make([]byte, c.maxAlloc)
	n, err := c.fr.Read(buf)
	if err != nil {
		return err
	}
	if c.handler == nil {
		return nil
	}
	rest, ok := c.handler.HandleCommands(buf[:n])
	if !ok || len(rest) != 0 {
		return ErrFatalProtocol
	}
	return nil
}
