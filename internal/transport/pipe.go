package transport

// Pipe is a synchronous in-memory transport: GetCmdSpace hands out space in
// a fixed scratch buffer, and Flush hands the accumulated span directly to
// a CommandHandler set with SetHandler, standing in for a real socket in
// unit tests and single-process loopbacks.
//
// Pipe is not safe for concurrent use; like the rest of the wire, it is
// meant to be driven from one goroutine per endpoint.
type Pipe struct {
	handler CommandHandler
	buf     []byte
	offset  int
}

// defaultPipeCapacity bounds the scratch buffer; one span never exceeds it.
const defaultPipeCapacity = 1_000_000

// NewPipe returns a Pipe with no handler set. Call SetHandler before the
// first Flush, or wire two Pipes to each other's handler for a
// client<->server loopback test fixture.
func NewPipe() *Pipe {
	return &Pipe{buf: make([]byte, defaultPipeCapacity)}
}

// SetHandler installs (or replaces) the receiver that Flush hands spans to.
func (p *Pipe) SetHandler(h CommandHandler) {
	p.handler = h
}

func (p *Pipe) GetCmdSpace(n int) ([]byte, bool) {
	if n < 0 || p.offset+n > len(p.buf) {
		return nil, false
	}
	start := p.offset
	p.offset += n
	return p.buf[start:p.offset], true
}

func (p *Pipe) Flush() error {
	if p.handler == nil {
		p.offset = 0
		return nil
	}
	span := p.buf[:p.offset]
	p.offset = 0
	rest, ok := p.handler.HandleCommands(span)
	if !ok {
		return ErrFatalProtocol
	}
	if len(rest) != 0 {
		return ErrFatalProtocol
	}
	return nil
}

func (p *Pipe) MaxAllocationSize() int { return len(p.buf) }

func (p *Pipe) OnSerializeError() {
	p.offset = 0
}
