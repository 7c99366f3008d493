package wire

import (
	"fmt"
	"sync"

	"github.com/behrlich/go-wire/internal/interfaces"
)

// MockDriver provides a mock implementation of interfaces.Driver for
// testing. The buffers and encoders it creates are MockBuffer and
// MockEncoder, which implement DriverBuffer and DriverCommandEncoder, and it
// tracks method calls for verification. This is useful for unit testing
// applications built on top of a Server without a real graphics driver.
type MockDriver struct {
	mu sync.RWMutex

	failNewBuffer  bool
	failNewEncoder bool
	newBufferCalls int
	tickCalls      int

	buffers  []*MockBuffer
	encoders []*MockEncoder
}

// NewMockDriver creates a new mock driver with no failure injection.
func NewMockDriver() *MockDriver {
	return &MockDriver{}
}

// NewBuffer implements interfaces.Driver.
func (d *MockDriver) NewBuffer(size uint64) (interfaces.DriverBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.newBufferCalls++
	if d.failNewBuffer {
		return nil, fmt.Errorf("mock driver: buffer creation refused")
	}

	b := &MockBuffer{size: size, mapResult: interfaces.MapStatusSuccess}
	d.buffers = append(d.buffers, b)
	return b, nil
}

// NewCommandEncoder implements interfaces.Driver.
func (d *MockDriver) NewCommandEncoder(label string) (interfaces.DriverCommandEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.failNewEncoder {
		return nil, fmt.Errorf("mock driver: encoder creation refused")
	}

	e := &MockEncoder{label: label, finishOK: true}
	d.encoders = append(d.encoders, e)
	return e, nil
}

// Tick implements interfaces.Driver.
func (d *MockDriver) Tick() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tickCalls++
}

// SetFailNewBuffer makes every subsequent NewBuffer call return an error.
func (d *MockDriver) SetFailNewBuffer(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNewBuffer = fail
}

// SetFailNewEncoder makes every subsequent NewCommandEncoder call return an
// error.
func (d *MockDriver) SetFailNewEncoder(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNewEncoder = fail
}

// TickCalls returns the number of times Tick has been called.
func (d *MockDriver) TickCalls() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.tickCalls
}

// LastBuffer returns the most recently created MockBuffer, or nil.
func (d *MockDriver) LastBuffer() *MockBuffer {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.buffers) == 0 {
		return nil
	}
	return d.buffers[len(d.buffers)-1]
}

// LastEncoder returns the most recently created MockEncoder, or nil.
func (d *MockDriver) LastEncoder() *MockEncoder {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.encoders) == 0 {
		return nil
	}
	return d.encoders[len(d.encoders)-1]
}

// MockBuffer is a mock implementation of interfaces.DriverBuffer.
type MockBuffer struct {
	mu sync.RWMutex

	size      uint64
	released  bool
	unmapped  int
	mapResult interfaces.MapStatus
	mapData   []byte // when non-nil, returned verbatim on a successful MapReadAsync
}

// MapReadAsync implements interfaces.DriverBuffer. The callback is invoked
// synchronously, matching the common case of a driver whose mapping has no
// real asynchronous latency.
func (b *MockBuffer) MapReadAsync(offset, size uint64, cb func(status interfaces.MapStatus, data []byte)) {
	b.mu.RLock()
	status := b.mapResult
	data := b.mapData
	b.mu.RUnlock()

	if data == nil && status == interfaces.MapStatusSuccess {
		data = make([]byte, size)
	}
	cb(status, data)
}

// MapWriteAsync implements interfaces.DriverBuffer.
func (b *MockBuffer) MapWriteAsync(offset, size uint64, cb func(status interfaces.MapStatus, data []byte)) {
	b.mu.RLock()
	status := b.mapResult
	b.mu.RUnlock()

	var data []byte
	if status == interfaces.MapStatusSuccess {
		data = make([]byte, size)
	}
	cb(status, data)
}

// Unmap implements interfaces.DriverBuffer.
func (b *MockBuffer) Unmap() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.unmapped++
}

// Release implements interfaces.DriverBuffer.
func (b *MockBuffer) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.released = true
}

// SetMapResult controls the status MapReadAsync/MapWriteAsync report.
func (b *MockBuffer) SetMapResult(status interfaces.MapStatus) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mapResult = status
}

// IsReleased returns true if Release has been called.
func (b *MockBuffer) IsReleased() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.released
}

// UnmapCalls returns the number of times Unmap has been called.
func (b *MockBuffer) UnmapCalls() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.unmapped
}

// MockEncoder is a mock implementation of interfaces.DriverCommandEncoder.
type MockEncoder struct {
	mu sync.RWMutex

	label        string
	released     bool
	finishOK     bool
	finishErrMsg string
}

// SetLabel implements interfaces.DriverCommandEncoder.
func (e *MockEncoder) SetLabel(label string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.label = label
}

// Finish implements interfaces.DriverCommandEncoder.
func (e *MockEncoder) Finish() (bool, string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.finishOK, e.finishErrMsg
}

// Release implements interfaces.DriverCommandEncoder.
func (e *MockEncoder) Release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.released = true
}

// SetFinishResult controls what Finish reports, simulating a validation
// failure that poisons the builder's result.
func (e *MockEncoder) SetFinishResult(ok bool, errMsg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.finishOK = ok
	e.finishErrMsg = errMsg
}

// Label returns the label most recently passed to SetLabel.
func (e *MockEncoder) Label() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.label
}

// IsReleased returns true if Release has been called.
func (e *MockEncoder) IsReleased() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.released
}

// Compile-time interface checks
var (
	_ interfaces.Driver               = (*MockDriver)(nil)
	_ interfaces.DriverBuffer         = (*MockBuffer)(nil)
	_ interfaces.DriverCommandEncoder = (*MockEncoder)(nil)
)
