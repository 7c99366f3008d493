package wireclient

import (
	"fmt"

	"github.com/behrlich/go-wire/internal/bufpool"
	"github.com/behrlich/go-wire/internal/chunked"
	"github.com/behrlich/go-wire/internal/interfaces"
	"github.com/behrlich/go-wire/internal/transport"
	"github.com/behrlich/go-wire/internal/wirecmd"
)

// deviceObjectID is fixed: a Client only ever drives one Device per
// connection, so unlike Buffer/Builder/Encoder it never goes through an
// Allocator.
const deviceObjectID uint32 = 1

// chunkedFrameOverhead is the ChunkedCommandCmd wire overhead (id, total
// size, chunk size) on top of the fixed command header.
const chunkedFrameOverhead = 16

// Client is the client half of the wire protocol.
// Owned by a single goroutine; not safe for concurrent use.
type Client struct {
	t        transport.Transport
	sender   *chunked.Sender
	reasm    *chunked.Reassembler
	observer interfaces.Observer

	buffers  *Allocator[Buffer]
	builders *Allocator[Builder]
	encoders *Allocator[Encoder]

	popErrorScopeCallbacks  map[uint32]func(status interfaces.BuilderStatus, msg string)
	nextPopErrorScopeSerial uint32

	onDeviceError func(msg string)
	deviceLost    *builderCallback
}

// NewClient returns a Client driving t. observer may be nil.
func NewClient(t transport.Transport, observer interfaces.Observer) *Client {
	return &Client{
		t:                      t,
		sender:                 chunked.NewSender(),
		reasm:                  chunked.NewReassembler(),
		observer:               observer,
		buffers:                NewAllocator[Buffer](&Buffer{}),
		builders:               NewAllocator[Builder](&Builder{}),
		encoders:               NewAllocator[Encoder](&Encoder{}),
		popErrorScopeCallbacks: make(map[uint32]func(status interfaces.BuilderStatus, msg string)),
	}
}

// SetDeviceErrorHandler installs the callback for standalone device errors
// and for builder errors that no builder-local callback
// consumed.
func (c *Client) SetDeviceErrorHandler(h func(msg string)) {
	c.onDeviceError = h
}

// SetDeviceLostHandler installs the device's one-shot lost callback.
func (c *Client) SetDeviceLostHandler(h func(msg string)) {
	c.deviceLost = newBuilderCallback(func(status interfaces.BuilderStatus, msg string) { h(msg) })
}

// Disconnect tears down the client side of the connection: it fires the
// device-lost callback (if the server never did) and drains every pending
// PopErrorScope callback with UNKNOWN. Call once, after the reverse stream
// has stopped being read — no return command can resolve them anymore.
func (c *Client) Disconnect() {
	c.deviceLost.fire(interfaces.BuilderStatusUnknown, "device lost: connection closed")
	for serial, cb := range c.popErrorScopeCallbacks {
		delete(c.popErrorScopeCallbacks, serial)
		cb(interfaces.BuilderStatusUnknown, "")
	}
}

// CreateBuffer allocates a client-side Buffer record and sends the
// creation command.
func (c *Client) CreateBuffer(size uint64) (*Buffer, error) {
	id, serial, buf := c.buffers.New(func(id, serial uint32) *Buffer { return newBuffer(id, serial, size) })
	cmd := &wirecmd.DeviceCreateBufferCmd{SelfID: deviceObjectID, ResultID: id, ResultSerial: serial, Size: size}
	if err := c.send(wirecmd.CmdDeviceCreateBuffer, cmd); err != nil {
		return nil, err
	}
	return buf, nil
}

// CreateCommandEncoderBuilder allocates a client-side Builder record and
// sends the creation command.
func (c *Client) CreateCommandEncoderBuilder() (*Builder, error) {
	id, serial, b := c.builders.New(func(id, serial uint32) *Builder { return newBuilder(id, serial) })
	cmd := &wirecmd.DeviceCreateCommandEncoderBuilderCmd{SelfID: deviceObjectID, ResultID: id, ResultSerial: serial}
	if err := c.send(wirecmd.CmdDeviceCreateCommandEncoderBuilder, cmd); err != nil {
		return nil, err
	}
	return b, nil
}

// PushErrorScope pushes a new error scope onto the device's scope stack.
func (c *Client) PushErrorScope() error {
	return c.send(wirecmd.CmdDevicePushErrorScope, &wirecmd.DevicePushErrorScopeCmd{SelfID: deviceObjectID})
}

// PopErrorScope pops the top error scope; cb fires exactly once with the
// worst error observed while the scope was on top.
func (c *Client) PopErrorScope(cb func(status interfaces.BuilderStatus, msg string)) error {
	serial := c.nextPopErrorScopeSerial
	c.nextPopErrorScopeSerial++
	c.popErrorScopeCallbacks[serial] = cb
	return c.send(wirecmd.CmdDevicePopErrorScope, &wirecmd.DevicePopErrorScopeCmd{SelfID: deviceObjectID, RequestSerial: serial})
}

// SetDeviceLabel sets the device's debug label.
func (c *Client) SetDeviceLabel(label string) error {
	return c.send(wirecmd.CmdObjectSetLabel, &wirecmd.ObjectSetLabelCmd{Type: wirecmd.ObjectTypeDevice, ID: deviceObjectID, Label: label})
}

// SetBufferLabel sets b's debug label.
func (c *Client) SetBufferLabel(b *Buffer, label string) error {
	return c.send(wirecmd.CmdObjectSetLabel, &wirecmd.ObjectSetLabelCmd{Type: wirecmd.ObjectTypeBuffer, ID: b.ID, Label: label})
}

// ReferenceBuffer increments b's refcount.
func (c *Client) ReferenceBuffer(b *Buffer) { b.Refcount++ }

// ReleaseBuffer decrements b's refcount; at zero it drains any in-flight
// map requests with UNKNOWN, frees the local slot, and sends a destroy
// command.
func (c *Client) ReleaseBuffer(b *Buffer) error {
	b.Refcount--
	if b.Refcount > 0 {
		return nil
	}
	for serial, req := range b.requests {
		delete(b.requests, serial)
		deliver(req, interfaces.MapStatusUnknown, nil)
	}
	c.buffers.Free(b.ID)
	return c.send(wirecmd.CmdObjectDestroy, &wirecmd.ObjectDestroyCmd{Type: wirecmd.ObjectTypeBuffer, ID: b.ID})
}

// ReferenceBuilder increments b's refcount.
func (c *Client) ReferenceBuilder(b *Builder) { b.Refcount++ }

// ReleaseBuilder decrements b's refcount; at zero it fires the builder's
// callback with UNKNOWN if it was never consumed (GetResult never called),
// frees the local slot, and sends a destroy command.
func (c *Client) ReleaseBuilder(b *Builder) error {
	b.Refcount--
	if b.Refcount > 0 {
		return nil
	}
	b.callback.fire(interfaces.BuilderStatusUnknown, "builder destroyed before GetResult")
	c.builders.Free(b.ID)
	return c.send(wirecmd.CmdObjectDestroy, &wirecmd.ObjectDestroyCmd{Type: wirecmd.ObjectTypeCommandEncoderBuilder, ID: b.ID})
}

// ReferenceEncoder increments e's refcount.
func (c *Client) ReferenceEncoder(e *Encoder) { e.Refcount++ }

// ReleaseEncoder decrements e's refcount; at zero it fires e's callback
// with UNKNOWN if the server's result never arrived, frees the local slot,
// and sends a destroy command.
func (c *Client) ReleaseEncoder(e *Encoder) error {
	e.Refcount--
	if e.Refcount > 0 {
		return nil
	}
	e.callback.fire(interfaces.BuilderStatusUnknown, "object destroyed before server result arrived")
	c.encoders.Free(e.ID)
	return c.send(wirecmd.CmdObjectDestroy, &wirecmd.ObjectDestroyCmd{Type: wirecmd.ObjectTypeCommandEncoder, ID: e.ID})
}

// send serializes cmd, transparently switching to the chunked framer when
// the command is too large for one transport allocation.
func (c *Client) send(id wirecmd.ForwardCommandID, cmd wirecmd.Command) error {
	bodySize, err := cmd.Size_()
	if err != nil {
		c.t.OnSerializeError()
		return err
	}
	total := wirecmd.HeaderSize + bodySize
	if int(total) <= c.t.MaxAllocationSize() {
		return c.sendSpan(uint32(id), cmd, bodySize)
	}
	return c.sendChunked(uint32(id), cmd, bodySize)
}

func (c *Client) sendSpan(id uint32, cmd wirecmd.Command, bodySize uint64) error {
	total := wirecmd.HeaderSize + bodySize
	buf, ok := c.t.GetCmdSpace(int(total))
	if !ok {
		return fmt.Errorf("wireclient: transport rejected %d-byte command", total)
	}
	wirecmd.PutHeader(buf, wirecmd.Header{CommandID: id, CommandSize: uint32(total)})
	cmd.Serialize(buf[wirecmd.HeaderSize:])
	if err := c.t.Flush(); err != nil {
		c.t.OnSerializeError()
		return err
	}
	return nil
}

func (c *Client) sendChunked(id uint32, cmd wirecmd.Command, bodySize uint64) error {
	total := wirecmd.HeaderSize + bodySize
	serialized := bufpool.Get(int(total))
	defer bufpool.Put(serialized)
	wirecmd.PutHeader(serialized, wirecmd.Header{CommandID: id, CommandSize: uint32(total)})
	cmd.Serialize(serialized[wirecmd.HeaderSize:])

	chunkSize := c.t.MaxAllocationSize() - wirecmd.HeaderSize - chunkedFrameOverhead
	frames := c.sender.Split(serialized, chunkSize)
	if c.observer != nil {
		c.observer.ObserveChunkedCommand(int(total), len(frames))
	}
	for _, frame := range frames {
		frameSize, err := frame.Size_()
		if err != nil {
			return err
		}
		if err := c.sendSpan(uint32(wirecmd.CmdChunkedCommand), &frame, frameSize); err != nil {
			return err
		}
	}
	return nil
}

func deliver(req *mapRequest, status interfaces.MapStatus, data []byte) {
	if req.isWrite {
		if req.onWrite != nil {
			req.onWrite(status, data)
		}
		return
	}
	if req.onRead != nil {
		req.onRead(status, data)
	}
}
