package wireserver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type widget struct{ n int }

func TestKnownObjects_AllocateAppend(t *testing.T) {
	k := NewKnownObjects[widget](&widget{})
	e, ok := k.Allocate(1, func() *widget { return &widget{n: 1} })
	require.True(t, ok)
	require.Equal(t, 1, e.Object.n)
	require.False(t, e.Valid)
}

func TestKnownObjects_AllocateSkippingIndexIsFatal(t *testing.T) {
	k := NewKnownObjects[widget](&widget{})
	_, ok := k.Allocate(5, func() *widget { return &widget{} })
	require.False(t, ok)
}

func TestKnownObjects_DoubleAllocateIsFatal(t *testing.T) {
	k := NewKnownObjects[widget](&widget{})
	_, ok := k.Allocate(1, func() *widget { return &widget{} })
	require.True(t, ok)
	_, ok = k.Allocate(1, func() *widget { return &widget{} })
	require.False(t, ok)
}

func TestKnownObjects_FreeThenReallocateIncrementsSerial(t *testing.T) {
	k := NewKnownObjects[widget](&widget{})
	e1, _ := k.Allocate(1, func() *widget { return &widget{} })
	serial1 := e1.Serial
	require.True(t, k.Free(1))

	e2, ok := k.Allocate(1, func() *widget { return &widget{} })
	require.True(t, ok)
	require.Greater(t, e2.Serial, serial1)
}

func TestKnownObjects_GetRejectsFreedSlot(t *testing.T) {
	k := NewKnownObjects[widget](&widget{})
	k.Allocate(1, func() *widget { return &widget{} })
	k.Free(1)
	_, ok := k.Get(1)
	require.False(t, ok)
}

func TestKnownObjects_NullSlotImmortal(t *testing.T) {
	k := NewKnownObjects[widget](&widget{n: 42})
	require.False(t, k.Free(0))
	e, ok := k.Get(0)
	require.True(t, ok)
	require.True(t, e.Valid)
	require.Equal(t, 42, e.Object.n)
}

func TestKnownObjects_InRange(t *testing.T) {
	k := NewKnownObjects[widget](&widget{})
	k.Allocate(1, func() *widget { return &widget{} })
	require.True(t, k.InRange(1))
	require.False(t, k.InRange(2))
}
