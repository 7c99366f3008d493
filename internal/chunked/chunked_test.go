package chunked

import (
	"testing"

	"github.com/behrlich/go-wire/internal/bufpool"
	"github.com/behrlich/go-wire/internal/wirecmd"
	"github.com/stretchr/testify/require"
)

func roundTrip(t *testing.T, original []byte, chunkSize int) []byte {
	t.Helper()
	sender := NewSender()
	frames := sender.Split(original, chunkSize)
	require.NotEmpty(t, frames)

	reassembler := NewReassembler()
	var out []byte
	for i, f := range frames {
		frame := f
		buf, done, err := reassembler.Feed(&frame)
		require.NoError(t, err)
		if i < len(frames)-1 {
			require.False(t, done)
		} else {
			require.True(t, done)
			out = buf
		}
	}
	return out
}

func TestSplitAndReassemble_ExactMultiple(t *testing.T) {
	original := make([]byte, 300)
	for i := range original {
		original[i] = byte(i)
	}
	out := roundTrip(t, original, 100)
	require.Equal(t, original, out[:len(original)])
	bufpool.Put(out)
}

func TestSplitAndReassemble_NonMultiple(t *testing.T) {
	original := make([]byte, 2*1024+100)
	for i := range original {
		original[i] = byte(i % 251)
	}
	out := roundTrip(t, original, 1024)
	require.Equal(t, original, out[:len(original)])
	require.Len(t, NewSender().Split(original, 1024), 3)
	bufpool.Put(out)
}

func TestSplit_AssignsMonotonicStreamIDs(t *testing.T) {
	sender := NewSender()
	first := sender.Split(make([]byte, 10), 4)
	second := sender.Split(make([]byte, 10), 4)
	require.NotEqual(t, first[0].ID, second[0].ID)
	require.Greater(t, second[0].ID, first[0].ID)
}

func TestFeed_ChunkExceedsRemaining(t *testing.T) {
	r := NewReassembler()
	frame := wirecmd.ChunkedCommandCmd{ID: 1, TotalSize: 8, Chunk: make([]byte, 12)}
	_, _, err := r.Feed(&frame)
	require.Error(t, err)
}

func TestFeed_TotalSizeBelowHeaderIsRejected(t *testing.T) {
	r := NewReassembler()
	frame := wirecmd.ChunkedCommandCmd{ID: 1, TotalSize: 4, Chunk: []byte{1, 2, 3, 4}}
	_, _, err := r.Feed(&frame)
	require.Error(t, err)
}

func TestFeed_InterleavedStreams(t *testing.T) {
	r := NewReassembler()
	a0 := wirecmd.ChunkedCommandCmd{ID: 1, TotalSize: 8, Chunk: []byte{1, 2, 3, 4}}
	b0 := wirecmd.ChunkedCommandCmd{ID: 2, TotalSize: 8, Chunk: []byte{9, 9, 9, 9}}
	a1 := wirecmd.ChunkedCommandCmd{ID: 1, TotalSize: 8, Chunk: []byte{5, 6, 7, 8}}
	b1 := wirecmd.ChunkedCommandCmd{ID: 2, TotalSize: 8, Chunk: []byte{9, 9, 9, 9}}

	_, done, err := r.Feed(&a0)
	require.NoError(t, err)
	require.False(t, done)

	_, done, err = r.Feed(&b0)
	require.NoError(t, err)
	require.False(t, done)

	bufA, done, err := r.Feed(&a1)
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, bufA[:8])

	bufB, done, err := r.Feed(&b1)
	require.NoError(t, err)
	require.True(t, done)
	require.Equal(t, []byte{9, 9, 9, 9, 9, 9, 9, 9}, bufB[:8])
}
