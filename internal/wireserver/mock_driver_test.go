package wireserver

import (
	"fmt"

	"github.com/behrlich/go-wire/internal/interfaces"
)

// mockBuffer and mockEncoder are minimal interfaces.DriverBuffer/
// DriverCommandEncoder stand-ins for driving the dispatcher in isolation.
type mockBuffer struct {
	released     bool
	mapResult    interfaces.MapStatus
	mapReadData  []byte
	unmapped     int
}

func (b *mockBuffer) MapReadAsync(offset, size uint64, cb func(status interfaces.MapStatus, data []byte)) {
	data := b.mapReadData
	if data == nil && b.mapResult == interfaces.MapStatusSuccess {
		data = make([]byte, size)
	}
	cb(b.mapResult, data)
}

func (b *mockBuffer) MapWriteAsync(offset, size uint64, cb func(status interfaces.MapStatus, data []byte)) {
	var data []byte
	if b.mapResult == interfaces.MapStatusSuccess {
		data = make([]byte, size)
	}
	cb(b.mapResult, data)
}

func (b *mockBuffer) Unmap()   { b.unmapped++ }
func (b *mockBuffer) Release() { b.released = true }

type mockEncoder struct {
	released     bool
	label        string
	finishOK     bool
	finishErrMsg string
}

func (e *mockEncoder) SetLabel(label string)  { e.label = label }
func (e *mockEncoder) Finish() (bool, string) { return e.finishOK, e.finishErrMsg }
func (e *mockEncoder) Release()               { e.released = true }

type mockDriver struct {
	failNewBuffer  bool
	failNewEncoder bool
	finishOK       bool
	finishErrMsg   string
	ticks          int

	lastBuffer  *mockBuffer
	lastEncoder *mockEncoder
}

func newMockDriver() *mockDriver {
	return &mockDriver{finishOK: true}
}

func (d *mockDriver) NewBuffer(size uint64) (interfaces.DriverBuffer, error) {
	if d.failNewBuffer {
		return nil, fmt.Errorf("mock driver: buffer creation refused")
	}
	b := &mockBuffer{mapResult: interfaces.MapStatusSuccess}
	d.lastBuffer = b
	return b, nil
}

func (d *mockDriver) NewCommandEncoder(label string) (interfaces.DriverCommandEncoder, error) {
	if d.failNewEncoder {
		return nil, fmt.Errorf("mock driver: encoder creation refused")
	}
	e := &mockEncoder{finishOK: d.finishOK, finishErrMsg: d.finishErrMsg}
	d.lastEncoder = e
	return e, nil
}

func (d *mockDriver) Tick() { d.ticks++ }
