// Package wireserver implements the server half of the wire protocol:
// per-type object-id resolution, the command loop and per-command
// dispatch, the server half of builder error propagation, and the server
// half of the buffer map/unmap protocol.
package wireserver

// Entry is one slot in a KnownObjects table: the server-side object
// record for one id.
type Entry[T any] struct {
	Object    *T
	Serial    uint32
	Allocated bool
	Valid     bool
}

// KnownObjects is the server-side per-type object-id resolution table.
// entries[0] is the immortal null slot. Not safe for concurrent use.
type KnownObjects[T any] struct {
	entries []Entry[T]
}

// NewKnownObjects returns a KnownObjects table with the immortal null slot
// populated (allocated=true, valid=true, serial=0).
func NewKnownObjects[T any](nullObject *T) *KnownObjects[T] {
	return &KnownObjects[T]{entries: []Entry[T]{{Object: nullObject, Allocated: true, Valid: true}}}
}

// Allocate reserves id: append if id == len, reuse in place if id < len
// and the slot is free, reject (fatal) in every other case — anything
// else means the client's id space has diverged from ours.
func (k *KnownObjects[T]) Allocate(id uint32, makeObj func() *T) (*Entry[T], bool) {
	n := uint32(len(k.entries))
	switch {
	case id > n:
		return nil, false
	case id == n:
		k.entries = append(k.entries, Entry[T]{Object: makeObj(), Allocated: true, Valid: false, Serial: 0})
		return &k.entries[id], true
	default:
		if k.entries[id].Allocated {
			return nil, false
		}
		k.entries[id] = Entry[T]{Object: makeObj(), Allocated: true, Valid: false, Serial: k.entries[id].Serial + 1}
		return &k.entries[id], true
	}
}

// Free clears the allocated bit for id. id 0 can never be freed.
func (k *KnownObjects[T]) Free(id uint32) bool {
	if id == 0 || int(id) >= len(k.entries) || !k.entries[id].Allocated {
		return false
	}
	k.entries[id].Allocated = false
	k.entries[id].Object = nil
	return true
}

// Get returns the entry at id, only when allocated.
func (k *KnownObjects[T]) Get(id uint32) (*Entry[T], bool) {
	if int(id) >= len(k.entries) || !k.entries[id].Allocated {
		return nil, false
	}
	return &k.entries[id], true
}

// InRange reports whether id names a slot that has ever existed, used to
// distinguish the fatal out-of-range case from a merely-freed slot.
func (k *KnownObjects[T]) InRange(id uint32) bool {
	return int(id) < len(k.entries)
}
