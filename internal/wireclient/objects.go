package wireclient

import (
	"github.com/behrlich/go-wire/internal/interfaces"
	"github.com/behrlich/go-wire/internal/memtransfer"
)

// builderCallback is the one-shot callback token shared by builders and the
// device-lost callback. canCall starts true and is consumed (set false)
// the first time fire is called, so
// every caller — the server's error callback, destruction draining, or an
// explicit device-lost notification — can race to fire it and only one
// wins.
type builderCallback struct {
	canCall bool
	fn      func(status interfaces.BuilderStatus, msg string)
}

func newBuilderCallback(fn func(status interfaces.BuilderStatus, msg string)) *builderCallback {
	return &builderCallback{canCall: true, fn: fn}
}

// fire invokes the callback exactly once; later calls are no-ops.
func (b *builderCallback) fire(status interfaces.BuilderStatus, msg string) {
	if b == nil || !b.canCall {
		return
	}
	b.canCall = false
	if b.fn != nil {
		b.fn(status, msg)
	}
}

// mapRequest is a client-side record of one in-flight map_*_async call.
type mapRequest struct {
	isWrite bool
	size    uint64
	onRead  func(status interfaces.MapStatus, data []byte)
	onWrite func(status interfaces.MapStatus, data []byte)
}

// Buffer is the client-side object record for a Buffer.
type Buffer struct {
	ID, Serial uint32
	Refcount   uint32
	Size       uint64

	requests          map[uint32]*mapRequest
	nextRequestSerial uint32

	mappedData  []byte
	writeHandle *memtransfer.WriteHandle
}

func newBuffer(id, serial uint32, size uint64) *Buffer {
	return &Buffer{ID: id, Serial: serial, Size: size, Refcount: 1, requests: make(map[uint32]*mapRequest)}
}

// IsMapped reports whether the buffer currently has a local mapping.
func (b *Buffer) IsMapped() bool { return b.mappedData != nil }

// MappedData returns the buffer's current local mapping, or nil if unmapped.
func (b *Buffer) MappedData() []byte { return b.mappedData }

// Builder is the client-side object record for a CommandEncoderBuilder.
type Builder struct {
	ID, Serial uint32
	Refcount   uint32
	callback   *builderCallback
	gotResult  bool
}

func newBuilder(id, serial uint32) *Builder {
	return &Builder{ID: id, Serial: serial, Refcount: 1}
}

// Encoder is the client-side object record for a CommandEncoder, the
// result of a Builder's GetResult.
type Encoder struct {
	ID, Serial uint32
	Refcount   uint32
	valid      bool
	callback   *builderCallback
}

func newEncoder(id, serial uint32) *Encoder {
	return &Encoder{ID: id, Serial: serial, Refcount: 1}
}

// Valid reports whether the server reported this encoder's creation as
// successful. Meaningful only after the builder callback has fired.
func (e *Encoder) Valid() bool { return e.valid }
