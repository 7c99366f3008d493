// Package wireclient implements the client half of the wire protocol:
// per-type object-id allocation, the normal-method and builder dispatch
// paths, the buffer map/unmap protocol, refcounted destruction, and the
// reverse command handler that consumes the server's return stream.
package wireclient

// slot is one entry in an Allocator's backing vector.
type slot[T any] struct {
	serial uint32
	object *T
}

// Allocator is the client-side per-type object-id allocator.
// Slot 0 is pre-populated with a caller-supplied null object and is never
// freed. Not safe for concurrent use — the client is single-threaded per
// endpoint.
type Allocator[T any] struct {
	slots []slot[T]
	free  []uint32
}

// NewAllocator returns an Allocator whose null slot (id 0) holds
// nullObject.
func NewAllocator[T any](nullObject *T) *Allocator[T] {
	return &Allocator[T]{slots: []slot[T]{{serial: 0, object: nullObject}}}
}

// New allocates a fresh id, reusing a freed slot if one is available, and
// installs the object returned by makeObj(id, serial). Reusing a slot
// increments its serial first, so the serial strictly increases after
// Free+New on the same slot.
func (a *Allocator[T]) New(makeObj func(id, serial uint32) *T) (id uint32, serial uint32, obj *T) {
	if n := len(a.free); n > 0 {
		id = a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[id].serial++
		serial = a.slots[id].serial
		obj = makeObj(id, serial)
		a.slots[id].object = obj
		return id, serial, obj
	}
	id = uint32(len(a.slots))
	serial = 0
	obj = makeObj(id, serial)
	a.slots = append(a.slots, slot[T]{serial: serial, object: obj})
	return id, serial, obj
}

// Free clears the slot's object and returns id to the free list. id 0 is
// immortal and Free on it is a no-op.
func (a *Allocator[T]) Free(id uint32) {
	if id == 0 || int(id) >= len(a.slots) {
		return
	}
	a.slots[id].object = nil
	a.free = append(a.free, id)
}

// Get returns the object at id, or (nil, false) if id is out of range or
// the slot is currently free.
func (a *Allocator[T]) Get(id uint32) (*T, bool) {
	if int(id) >= len(a.slots) {
		return nil, false
	}
	obj := a.slots[id].object
	return obj, obj != nil
}

// SerialOf returns the current serial for id.
func (a *Allocator[T]) SerialOf(id uint32) (uint32, bool) {
	if int(id) >= len(a.slots) {
		return 0, false
	}
	return a.slots[id].serial, true
}
