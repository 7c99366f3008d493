package wireclient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type thing struct{ tag string }

func TestAllocator_NewAppends(t *testing.T) {
	a := NewAllocator[thing](&thing{tag: "null"})
	id, serial, obj := a.New(func(id, serial uint32) *thing { return &thing{tag: "first"} })
	require.Equal(t, uint32(1), id)
	require.Equal(t, uint32(0), serial)
	require.Equal(t, "first", obj.tag)
}

func TestAllocator_FreeThenReuseIncrementsSerial(t *testing.T) {
	a := NewAllocator[thing](&thing{})
	id1, serial1, _ := a.New(func(id, serial uint32) *thing { return &thing{} })
	a.Free(id1)

	id2, serial2, _ := a.New(func(id, serial uint32) *thing { return &thing{} })
	require.Equal(t, id1, id2)
	require.Greater(t, serial2, serial1)
}

func TestAllocator_GetMissingSlot(t *testing.T) {
	a := NewAllocator[thing](&thing{})
	_, ok := a.Get(5)
	require.False(t, ok)
}

func TestAllocator_GetFreedSlot(t *testing.T) {
	a := NewAllocator[thing](&thing{})
	id, _, _ := a.New(func(id, serial uint32) *thing { return &thing{} })
	a.Free(id)
	_, ok := a.Get(id)
	require.False(t, ok)
}

func TestAllocator_NullSlotImmortal(t *testing.T) {
	a := NewAllocator[thing](&thing{tag: "null"})
	a.Free(0)
	obj, ok := a.Get(0)
	require.True(t, ok)
	require.Equal(t, "null", obj.tag)
}
